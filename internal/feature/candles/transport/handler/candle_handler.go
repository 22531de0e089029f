// Package handler はcandlesフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain/entity"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/transport/http/dto"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/usecase"
)

// CandlesUsecase はローソク足データ参照のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type CandlesUsecase interface {
	GetOHLCV(ctx context.Context, q usecase.OHLCVQuery) ([]entity.Candle, error)
	Latest(ctx context.Context, symbols []string) (usecase.LatestResult, error)
	Historical(ctx context.Context, symbols []string, from, to string) (map[string][]entity.Candle, error)
	Aggregate(ctx context.Context, symbol, interval, period string) (usecase.Aggregation, error)
}

// CandlesHandler はローソク足データのHTTPリクエストを処理します。
type CandlesHandler struct {
	uc CandlesUsecase
}

// NewCandlesHandler は指定されたusecaseでCandlesHandlerの新しいインスタンスを生成します。
func NewCandlesHandler(uc CandlesUsecase) *CandlesHandler {
	return &CandlesHandler{uc: uc}
}

// GetOHLCVHandler は1銘柄のローソク足データをJSONで返します。
//
// エンドポイント例:
// GET /ohlcv/RELIANCE?from=2025-01-14&to=2025-01-15&interval=15m&limit=100
func (h *CandlesHandler) GetOHLCVHandler(c *gin.Context) {
	symbol := strings.TrimSpace(c.Param("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Missing symbol parameter", Message: "Symbol is required in the path: /ohlcv/{symbol}"})
		return
	}
	var req dto.OHLCVRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid query parameters", Message: err.Error()})
		return
	}

	candles, err := h.uc.GetOHLCV(c.Request.Context(), usecase.OHLCVQuery{
		Symbol:   symbol,
		From:     req.From,
		To:       req.To,
		Interval: req.Interval,
		Limit:    req.Limit,
	})
	if err != nil {
		writeError(c, "Failed to retrieve OHLCV data", err)
		return
	}

	interval := req.Interval
	if interval == "" {
		interval = "5"
	}
	c.JSON(http.StatusOK, dto.OHLCVResponse{
		Symbol:    entity.NormalizeSymbol(symbol),
		Interval:  interval,
		Data:      dto.NewCandleResponses(candles),
		Count:     len(candles),
		Timestamp: timestamp(),
	})
}

// GetLatestHandler は各銘柄の最新ローソク足を返します。
//
// エンドポイント例:
// GET /latest?symbols=RELIANCE,TCS
func (h *CandlesHandler) GetLatestHandler(c *gin.Context) {
	res, err := h.uc.Latest(c.Request.Context(), splitSymbols(c.Query("symbols")))
	if err != nil {
		writeError(c, "Failed to retrieve latest data", err)
		return
	}

	out := dto.LatestResponse{
		Symbols:   make([]string, 0, len(res.Quotes)),
		Data:      make(map[string]dto.LatestItem, len(res.Quotes)),
		Missing:   res.Missing,
		Count:     len(res.Quotes),
		Timestamp: timestamp(),
	}
	for _, q := range res.Quotes {
		out.Symbols = append(out.Symbols, q.Symbol)
		out.Data[q.Symbol] = dto.LatestItem{
			Symbol:       q.Symbol,
			LatestPrice:  q.Candle.Close.InexactFloat64(),
			TotalCandles: q.Count,
			FetchedAt:    q.FetchedAt.UTC().Format(time.RFC3339),
			LastCandle:   dto.NewCandleResponse(q.Candle),
		}
	}
	c.JSON(http.StatusOK, out)
}

// GetHistoricalHandler は複数銘柄の期間データを JSON または CSV で返します。
//
// エンドポイント例:
// GET /historical?symbols=RELIANCE,TCS&from=2025-01-01&to=2025-01-15&format=csv
func (h *CandlesHandler) GetHistoricalHandler(c *gin.Context) {
	var req dto.HistoricalRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid query parameters", Message: err.Error()})
		return
	}
	symbols := splitSymbols(req.Symbols)
	if req.Symbol != "" {
		symbols = []string{req.Symbol}
	}

	data, err := h.uc.Historical(c.Request.Context(), symbols, req.From, req.To)
	if err != nil {
		writeError(c, "Failed to retrieve historical data", err)
		return
	}

	keys := make([]string, 0, len(data))
	for s := range data {
		keys = append(keys, s)
	}
	sort.Strings(keys)

	if strings.EqualFold(req.Format, "csv") {
		body, err := historicalCSV(keys, data)
		if err != nil {
			writeError(c, "Failed to render CSV", err)
			return
		}
		c.Data(http.StatusOK, "text/csv; charset=utf-8", body)
		return
	}

	out := dto.HistoricalResponse{
		Symbols:   keys,
		FromDate:  req.From,
		ToDate:    req.To,
		Data:      make(map[string]dto.SymbolHistory, len(data)),
		Timestamp: timestamp(),
	}
	for _, s := range keys {
		cs := dto.NewCandleResponses(data[s])
		out.Data[s] = dto.SymbolHistory{Symbol: s, Candles: cs, Count: len(cs)}
		out.TotalRecords += len(cs)
	}
	c.JSON(http.StatusOK, out)
}

// GetAggregateHandler は指定期間のデータを interval 幅に集約して返します。
//
// エンドポイント例:
// GET /aggregate?symbol=RELIANCE&interval=1h&period=30d
// GET /alfaquantz/price/get/RELIANCE,1h,30d
func (h *CandlesHandler) GetAggregateHandler(c *gin.Context) {
	var req dto.AggregateRequest
	if params := strings.Trim(c.Param("params"), "/"); params != "" {
		parts := strings.Split(params, ",")
		if len(parts) < 3 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid parameters. Expected format: symbol,interval,period"})
			return
		}
		req.Symbol, req.Interval, req.Period = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2])
	} else if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Missing parameters", Message: err.Error()})
		return
	}

	agg, err := h.uc.Aggregate(c.Request.Context(), req.Symbol, req.Interval, req.Period)
	if err != nil {
		writeError(c, "Failed to aggregate price data", err)
		return
	}
	candles := agg.Candles
	if candles == nil {
		candles = []entity.Candle{}
	}
	c.JSON(http.StatusOK, dto.AggregateResponse{
		SymbolRequested:  agg.SymbolRequested,
		SymbolNormalized: agg.SymbolNormalized,
		Interval:         agg.Interval,
		Period:           agg.Period,
		FromDate:         agg.From,
		ToDate:           agg.To,
		Count:            len(candles),
		Candles:          candles,
		Timestamp:        timestamp(),
	})
}

// writeError はドメインエラーを HTTP ステータスに変換します。
func writeError(c *gin.Context, msg string, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInterval),
		errors.Is(err, domain.ErrInvalidPeriod),
		errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidRange):
		status = http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status >= http.StatusInternalServerError {
		slog.Error(msg, "path", c.FullPath(), "error", err)
	}
	c.JSON(status, dto.ErrorResponse{Error: msg, Message: err.Error()})
}

func historicalCSV(symbols []string, data map[string][]entity.Candle) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"symbol", "timestamp", "datetime", "open", "high", "low", "close", "volume"}); err != nil {
		return nil, err
	}
	for _, s := range symbols {
		for _, cd := range data[s] {
			rec := []string{
				s,
				strconv.FormatInt(cd.Time, 10),
				cd.Start().Format(time.RFC3339),
				cd.Open.String(),
				cd.High.String(),
				cd.Low.String(),
				cd.Close.String(),
				strconv.FormatInt(cd.Volume, 10),
			}
			if err := w.Write(rec); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func splitSymbols(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
