// Package resample aggregates base-granularity candles into coarser epoch-aligned buckets.
package resample

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain/entity"
)

// Resample groups candles of granularity base into buckets of width.
// Bucket start is floor(ts/width)*width. Only buckets with at least one input candle are emitted.
// The input must be strictly increasing by Time; it is never sorted here.
func Resample(candles []entity.Candle, base, width time.Duration) ([]entity.Candle, error) {
	g := int64(base / time.Second)
	w := int64(width / time.Second)
	if g <= 0 || w <= 0 || w%g != 0 {
		return nil, fmt.Errorf("%w: width %s is not a positive multiple of %s", domain.ErrInvalidInterval, width, base)
	}
	for i := 1; i < len(candles); i++ {
		if candles[i].Time <= candles[i-1].Time {
			return nil, fmt.Errorf("%w: timestamp %d at index %d follows %d",
				domain.ErrUnorderedInput, candles[i].Time, i, candles[i-1].Time)
		}
	}

	out := make([]entity.Candle, 0, len(candles))
	if w == g {
		return append(out, candles...), nil
	}

	for _, c := range candles {
		start := floorDiv(c.Time, w) * w
		n := len(out)
		if n > 0 && out[n-1].Time == start {
			cur := &out[n-1]
			if c.High.GreaterThan(cur.High) {
				cur.High = c.High
			}
			if c.Low.LessThan(cur.Low) {
				cur.Low = c.Low
			}
			cur.Close = c.Close
			cur.Volume += c.Volume
			continue
		}
		c.Time = start
		out = append(out, c)
	}
	return out, nil
}

// floorDiv rounds toward negative infinity so pre-epoch timestamps stay aligned.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// ParseInterval parses widths such as "10m", "1h", "1d" or a bare minute count ("15").
func ParseInterval(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("%w: empty interval", domain.ErrInvalidInterval)
	}
	unit := time.Minute
	num := s
	switch s[len(s)-1] {
	case 'm':
		num = s[:len(s)-1]
	case 'h':
		unit = time.Hour
		num = s[:len(s)-1]
	case 'd':
		unit = 24 * time.Hour
		num = s[:len(s)-1]
	}
	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidInterval, s)
	}
	return time.Duration(n) * unit, nil
}

// ParsePeriod parses lookback periods such as "30d", "3m" or "2y".
// A month is 30 days and a year is 365 days.
func ParsePeriod(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidPeriod, s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidPeriod, s)
	}
	day := 24 * time.Hour
	switch s[len(s)-1] {
	case 'd':
		return time.Duration(n) * day, nil
	case 'm':
		return time.Duration(n) * 30 * day, nil
	case 'y':
		return time.Duration(n) * 365 * day, nil
	}
	return 0, fmt.Errorf("%w: unknown unit in %q", domain.ErrInvalidPeriod, s)
}
