package dto

import (
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/usecase"
)

// StatsRequest は /analytics/stats のクエリパラメータです。
type StatsRequest struct {
	Symbol string `form:"symbol" binding:"required"`
	Date   string `form:"date" binding:"required"`
}

// SummaryRequest は /analytics/summary のクエリパラメータです。
type SummaryRequest struct {
	Date string `form:"date" binding:"required"`
}

// RangeRequest は /analytics/range のクエリパラメータです。
type RangeRequest struct {
	Symbol    string `form:"symbol" binding:"required"`
	StartDate string `form:"start_date" binding:"required"`
	EndDate   string `form:"end_date" binding:"required"`
}

// TopMoversRequest は /analytics/top-movers のクエリパラメータです。
type TopMoversRequest struct {
	Date  string `form:"date" binding:"required"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// StatsResponse は1銘柄1日分の統計です。
type StatsResponse struct {
	Open           float64 `json:"open"`
	Close          float64 `json:"close"`
	High           float64 `json:"high"`
	Low            float64 `json:"low"`
	Volume         int64   `json:"volume"`
	AvgPrice       float64 `json:"avg_price"` // 終値の平均
	PriceChange    float64 `json:"price_change"`
	PriceChangePct float64 `json:"price_change_pct"`
	NumRecords     int     `json:"num_records"`
}

// SymbolStatsResponse は /analytics/stats のレスポンスです。
type SymbolStatsResponse struct {
	Symbol string        `json:"symbol"`
	Date   string        `json:"date"`
	Stats  StatsResponse `json:"stats"`
}

// DayItem は日次サマリーと期間データの1行です。
type DayItem struct {
	Symbol         string  `json:"symbol,omitempty"`
	Date           string  `json:"date,omitempty"`
	Open           float64 `json:"open"`
	Close          float64 `json:"close"`
	High           float64 `json:"high"`
	Low            float64 `json:"low"`
	Volume         int64   `json:"volume"`
	PriceChangePct float64 `json:"price_change_pct"`
}

// DailySummaryResponse は /analytics/summary のレスポンスです。
type DailySummaryResponse struct {
	Date         string    `json:"date"`
	Summary      []DayItem `json:"summary"`
	TotalSymbols int       `json:"total_symbols"`
}

// DateRangeResponse は /analytics/range のレスポンスです。
type DateRangeResponse struct {
	Symbol    string    `json:"symbol"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Data      []DayItem `json:"data"`
	NumDays   int       `json:"num_days"`
}

// MoverItem は値上がり・値下がりランキングの1行です。
type MoverItem struct {
	Symbol         string  `json:"symbol"`
	PriceChangePct float64 `json:"price_change_pct"`
	Close          float64 `json:"close"`
	Volume         int64   `json:"volume"`
}

// TopMoversResponse は /analytics/top-movers のレスポンスです。
type TopMoversResponse struct {
	Date    string      `json:"date"`
	Gainers []MoverItem `json:"gainers"`
	Losers  []MoverItem `json:"losers"`
}

// NewSymbolStatsResponse は usecase.SymbolStats を DTO に変換します。
func NewSymbolStatsResponse(s usecase.SymbolStats) SymbolStatsResponse {
	st := s.Stats
	return SymbolStatsResponse{
		Symbol: s.Symbol,
		Date:   s.Date,
		Stats: StatsResponse{
			Open:           st.Open.InexactFloat64(),
			Close:          st.Close.InexactFloat64(),
			High:           st.High.InexactFloat64(),
			Low:            st.Low.InexactFloat64(),
			Volume:         st.Volume,
			AvgPrice:       st.AvgClose.InexactFloat64(),
			PriceChange:    st.Change.InexactFloat64(),
			PriceChangePct: st.ChangePct.InexactFloat64(),
			NumRecords:     st.Records,
		},
	}
}

// NewDayItems は統計の列を変換します。withSymbol / withDate で出力する識別子を選びます。
func NewDayItems(rows []usecase.SymbolStats, withSymbol, withDate bool) []DayItem {
	out := make([]DayItem, 0, len(rows))
	for _, r := range rows {
		item := DayItem{
			Open:           r.Stats.Open.InexactFloat64(),
			Close:          r.Stats.Close.InexactFloat64(),
			High:           r.Stats.High.InexactFloat64(),
			Low:            r.Stats.Low.InexactFloat64(),
			Volume:         r.Stats.Volume,
			PriceChangePct: r.Stats.ChangePct.InexactFloat64(),
		}
		if withSymbol {
			item.Symbol = r.Symbol
		}
		if withDate {
			item.Date = r.Date
		}
		out = append(out, item)
	}
	return out
}

// NewMoverItems はランキングを変換します。
func NewMoverItems(rows []usecase.SymbolStats) []MoverItem {
	out := make([]MoverItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, MoverItem{
			Symbol:         r.Symbol,
			PriceChangePct: r.Stats.ChangePct.InexactFloat64(),
			Close:          r.Stats.Close.InexactFloat64(),
			Volume:         r.Stats.Volume,
		})
	}
	return out
}
