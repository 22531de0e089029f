package entity

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// DayStats summarizes the candles of one symbol over one session.
type DayStats struct {
	Open      decimal.Decimal // first open
	Close     decimal.Decimal // last close
	High      decimal.Decimal
	Low       decimal.Decimal
	Volume    int64
	AvgClose  decimal.Decimal // mean close, 4 decimal places
	Change    decimal.Decimal // Close - Open
	ChangePct decimal.Decimal // Change / Open * 100, 2 decimal places; zero when Open is zero
	Records   int
}

// CalculateStats summarizes candles ordered by time. ok is false for an empty slice.
func CalculateStats(candles []Candle) (stats DayStats, ok bool) {
	if len(candles) == 0 {
		return DayStats{}, false
	}
	first, last := candles[0], candles[len(candles)-1]
	stats = DayStats{
		Open:    first.Open,
		Close:   last.Close,
		High:    first.High,
		Low:     first.Low,
		Records: len(candles),
	}
	sum := decimal.Zero
	for _, c := range candles {
		stats.High = decimal.Max(stats.High, c.High)
		stats.Low = decimal.Min(stats.Low, c.Low)
		stats.Volume += c.Volume
		sum = sum.Add(c.Close)
	}
	stats.AvgClose = sum.Div(decimal.NewFromInt(int64(len(candles)))).Round(4)
	stats.Change = stats.Close.Sub(stats.Open)
	if !stats.Open.IsZero() {
		stats.ChangePct = stats.Change.Div(stats.Open).Mul(hundred).Round(2)
	}
	return stats, true
}
