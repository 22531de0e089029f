// Package entity defines the core domain entities for the candles feature.
package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BaseGranularity is the finest bucket width fetched from the brokerage (5-minute bars).
const BaseGranularity = 5 * time.Minute

// Candle represents one OHLCV bar.
// Time is the bucket start in seconds since the Unix epoch.
type Candle struct {
	Time   int64
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// Start returns the bucket start as a time.Time in UTC.
func (c Candle) Start() time.Time {
	return time.Unix(c.Time, 0).UTC()
}

// MarshalJSON encodes the candle in the brokerage array form
// [ts, open, high, low, close, volume] with numeric prices.
func (c Candle) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{
		c.Time,
		json.Number(c.Open.String()),
		json.Number(c.High.String()),
		json.Number(c.Low.String()),
		json.Number(c.Close.String()),
		c.Volume,
	})
}

// UnmarshalJSON decodes the array form produced by MarshalJSON and by the brokerage.
// Prices may be JSON numbers or quoted strings. Volume may carry a fractional zero ("1200.0").
func (c *Candle) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("candle: %w", err)
	}
	if len(raw) < 6 {
		return fmt.Errorf("candle: expected 6 fields, got %d", len(raw))
	}

	var ts json.Number
	if err := json.Unmarshal(raw[0], &ts); err != nil {
		return fmt.Errorf("candle timestamp %s: %w", raw[0], err)
	}
	sec, err := decimal.NewFromString(ts.String())
	if err != nil {
		return fmt.Errorf("candle timestamp %q: %w", ts, err)
	}

	prices := make([]decimal.Decimal, 4)
	for i := range prices {
		if err := prices[i].UnmarshalJSON(bytes.TrimSpace(raw[i+1])); err != nil {
			return fmt.Errorf("candle price %d: %w", i, err)
		}
	}

	var vol decimal.Decimal
	if err := vol.UnmarshalJSON(bytes.TrimSpace(raw[5])); err != nil {
		return fmt.Errorf("candle volume: %w", err)
	}
	volume, err := VolumeFromDecimal(vol)
	if err != nil {
		return fmt.Errorf("candle: %w", err)
	}

	*c = Candle{
		Time:   sec.IntPart(),
		Open:   prices[0],
		High:   prices[1],
		Low:    prices[2],
		Close:  prices[3],
		Volume: volume,
	}
	return nil
}

// VolumeFromDecimal converts a decoded volume to a share count.
// Brokerages send volume as a float, so 1200.0 is accepted while 1200.7 and -5 are rejected.
func VolumeFromDecimal(v decimal.Decimal) (int64, error) {
	if !v.IsInteger() {
		return 0, fmt.Errorf("volume %s is not a whole number", v)
	}
	if v.IsNegative() {
		return 0, fmt.Errorf("volume %s is negative", v)
	}
	return v.IntPart(), nil
}

// Valid reports whether the candle passes the basic data quality rules:
// high >= low, volume >= 0 and close > 0.
func (c Candle) Valid() bool {
	return c.High.GreaterThanOrEqual(c.Low) && c.Volume >= 0 && c.Close.IsPositive()
}
