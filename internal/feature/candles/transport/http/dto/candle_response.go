package dto

import (
	"time"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain/entity"
)

// OHLCVRequest は /ohlcv/:symbol のクエリパラメータです。
type OHLCVRequest struct {
	From     string `form:"from"`
	To       string `form:"to"`
	Interval string `form:"interval"`
	Limit    int    `form:"limit" binding:"omitempty,min=1"`
}

// HistoricalRequest は /historical のクエリパラメータです。
type HistoricalRequest struct {
	Symbol  string `form:"symbol"`
	Symbols string `form:"symbols"`
	From    string `form:"from"`
	To      string `form:"to"`
	Format  string `form:"format" binding:"omitempty,oneof=json csv JSON CSV"`
}

// AggregateRequest は /aggregate のクエリパラメータです。
type AggregateRequest struct {
	Symbol   string `form:"symbol" binding:"required"`
	Interval string `form:"interval" binding:"required"`
	Period   string `form:"period" binding:"required"`
}

// CandleResponse はロウソク足データのレスポンスDTOです。
type CandleResponse struct {
	Timestamp int64   `json:"timestamp"` // バケット開始 (epoch 秒)
	Datetime  string  `json:"datetime"`  // UTC の ISO8601
	Open      float64 `json:"open"`      // 始値
	High      float64 `json:"high"`      // 高値
	Low       float64 `json:"low"`       // 安値
	Close     float64 `json:"close"`     // 終値
	Volume    int64   `json:"volume"`    // 出来高
}

// NewCandleResponse は entity.Candle を DTO に変換します。
func NewCandleResponse(c entity.Candle) CandleResponse {
	return CandleResponse{
		Timestamp: c.Time,
		Datetime:  c.Start().Format(time.RFC3339),
		Open:      c.Open.InexactFloat64(),
		High:      c.High.InexactFloat64(),
		Low:       c.Low.InexactFloat64(),
		Close:     c.Close.InexactFloat64(),
		Volume:    c.Volume,
	}
}

// NewCandleResponses はスライス全体を変換します。空でも nil ではなく空配列を返します。
func NewCandleResponses(cs []entity.Candle) []CandleResponse {
	out := make([]CandleResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, NewCandleResponse(c))
	}
	return out
}

// OHLCVResponse は /ohlcv/:symbol のレスポンスです。
type OHLCVResponse struct {
	Symbol    string           `json:"symbol"`
	Interval  string           `json:"interval"`
	Data      []CandleResponse `json:"data"`
	Count     int              `json:"count"`
	Timestamp string           `json:"timestamp"`
}

// LatestItem は1銘柄の最新値です。
type LatestItem struct {
	Symbol       string         `json:"symbol"`
	LatestPrice  float64        `json:"latest_price"`
	TotalCandles int            `json:"total_candles"`
	FetchedAt    string         `json:"fetched_at"`
	LastCandle   CandleResponse `json:"last_candle"`
}

// LatestResponse は /latest のレスポンスです。
type LatestResponse struct {
	Symbols   []string              `json:"symbols"`
	Data      map[string]LatestItem `json:"data"`
	Missing   []string              `json:"missing,omitempty"`
	Count     int                   `json:"count"`
	Timestamp string                `json:"timestamp"`
}

// SymbolHistory は1銘柄分の期間データです。
type SymbolHistory struct {
	Symbol  string           `json:"symbol"`
	Candles []CandleResponse `json:"candles"`
	Count   int              `json:"count"`
}

// HistoricalResponse は /historical のレスポンスです。
type HistoricalResponse struct {
	Symbols      []string                 `json:"symbols"`
	FromDate     string                   `json:"from_date,omitempty"`
	ToDate       string                   `json:"to_date,omitempty"`
	Data         map[string]SymbolHistory `json:"data"`
	TotalRecords int                      `json:"total_records"`
	Timestamp    string                   `json:"timestamp"`
}

// AggregateResponse は /aggregate のレスポンスです。candles は [ts, o, h, l, c, v] の配列形式です。
type AggregateResponse struct {
	SymbolRequested  string          `json:"symbol_requested"`
	SymbolNormalized string          `json:"symbol_normalized"`
	Interval         string          `json:"interval"`
	Period           string          `json:"period"`
	FromDate         string          `json:"from_date"`
	ToDate           string          `json:"to_date"`
	Count            int             `json:"count"`
	Candles          []entity.Candle `json:"candles"`
	Timestamp        string          `json:"timestamp"`
}

// ErrorResponse はエラー時のレスポンスです。
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
