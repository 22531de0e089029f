package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/transport/http/dto"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/usecase"
)

// AnalyticsUsecase は分析用 CSV を読む日次統計のユースケースインターフェースです。
type AnalyticsUsecase interface {
	SymbolStats(ctx context.Context, symbol, date string) (usecase.SymbolStats, error)
	DailySummary(ctx context.Context, date string) (usecase.DailySummary, error)
	DateRange(ctx context.Context, symbol, start, end string) (usecase.DateRange, error)
	TopMovers(ctx context.Context, date string, limit int) (usecase.TopMovers, error)
}

// AnalyticsHandler は日次統計の HTTP リクエストを処理します。
type AnalyticsHandler struct {
	uc AnalyticsUsecase
}

// NewAnalyticsHandler は新しい AnalyticsHandler を生成します。
func NewAnalyticsHandler(uc AnalyticsUsecase) *AnalyticsHandler {
	return &AnalyticsHandler{uc: uc}
}

// GetStatsHandler は1銘柄1日分の統計を返します。
//
// エンドポイント例:
// GET /analytics/stats?symbol=RELIANCE&date=2025-01-14
func (h *AnalyticsHandler) GetStatsHandler(c *gin.Context) {
	var req dto.StatsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Missing symbol or date", Message: err.Error()})
		return
	}
	st, err := h.uc.SymbolStats(c.Request.Context(), req.Symbol, req.Date)
	if err != nil {
		writeError(c, "Failed to calculate symbol stats", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSymbolStatsResponse(st))
}

// GetSummaryHandler は1日分の全銘柄の統計を騰落率の降順で返します。
//
// エンドポイント例:
// GET /analytics/summary?date=2025-01-14
func (h *AnalyticsHandler) GetSummaryHandler(c *gin.Context) {
	var req dto.SummaryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Missing date", Message: err.Error()})
		return
	}
	sum, err := h.uc.DailySummary(c.Request.Context(), req.Date)
	if err != nil {
		writeError(c, "Failed to build daily summary", err)
		return
	}
	c.JSON(http.StatusOK, dto.DailySummaryResponse{
		Date:         sum.Date,
		Summary:      dto.NewDayItems(sum.Summary, true, false),
		TotalSymbols: len(sum.Summary),
	})
}

// GetRangeHandler は1銘柄の日次統計を期間で返します。
//
// エンドポイント例:
// GET /analytics/range?symbol=RELIANCE&start_date=2025-01-01&end_date=2025-01-14
func (h *AnalyticsHandler) GetRangeHandler(c *gin.Context) {
	var req dto.RangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Missing symbol, start_date, or end_date", Message: err.Error()})
		return
	}
	rng, err := h.uc.DateRange(c.Request.Context(), req.Symbol, req.StartDate, req.EndDate)
	if err != nil {
		writeError(c, "Failed to read date range", err)
		return
	}
	c.JSON(http.StatusOK, dto.DateRangeResponse{
		Symbol:    rng.Symbol,
		StartDate: rng.StartDate,
		EndDate:   rng.EndDate,
		Data:      dto.NewDayItems(rng.Days, false, true),
		NumDays:   len(rng.Days),
	})
}

// GetTopMoversHandler は値上がり上位と値下がり上位を返します。
//
// エンドポイント例:
// GET /analytics/top-movers?date=2025-01-14&limit=5
func (h *AnalyticsHandler) GetTopMoversHandler(c *gin.Context) {
	var req dto.TopMoversRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid query parameters", Message: err.Error()})
		return
	}
	tm, err := h.uc.TopMovers(c.Request.Context(), req.Date, req.Limit)
	if err != nil {
		writeError(c, "Failed to rank movers", err)
		return
	}
	c.JSON(http.StatusOK, dto.TopMoversResponse{
		Date:    tm.Date,
		Gainers: dto.NewMoverItems(tm.Gainers),
		Losers:  dto.NewMoverItems(tm.Losers),
	})
}
