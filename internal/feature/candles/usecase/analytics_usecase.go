package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/shopspring/decimal"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain/entity"
)

const (
	// MaxRangeDays は DateRange で指定できる最大日数です。
	MaxRangeDays = 31
	// DefaultMoversLimit は TopMovers の既定件数です。
	DefaultMoversLimit = 10
)

// AnalyticsReader は CSV Writer の出力を読み出します。
// Get は存在しないキーに domain.ErrNotFound を返します。
type AnalyticsReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// SymbolStats は1銘柄1日分の統計です。
type SymbolStats struct {
	Symbol string
	Date   string
	Stats  entity.DayStats
}

// DailySummary は1日分の全銘柄の統計で、騰落率の降順に並びます。
type DailySummary struct {
	Date    string
	Summary []SymbolStats
}

// DateRange は1銘柄の日次統計の列です。データのない日は含みません。
type DateRange struct {
	Symbol    string
	StartDate string
	EndDate   string
	Days      []SymbolStats
}

// TopMovers は1日の値上がり上位と値下がり上位です。
type TopMovers struct {
	Date    string
	Gainers []SymbolStats
	Losers  []SymbolStats
}

// AnalyticsUsecase は分析用 CSV から日次統計を計算するユースケースです。
type AnalyticsUsecase struct {
	store AnalyticsReader
	loc   *time.Location
}

// NewAnalyticsUsecase は新しい AnalyticsUsecase を生成します。
func NewAnalyticsUsecase(store AnalyticsReader, loc *time.Location) *AnalyticsUsecase {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsUsecase{store: store, loc: loc}
}

// SymbolStats は symbol の date (YYYY-MM-DD) の統計を返します。
func (au *AnalyticsUsecase) SymbolStats(ctx context.Context, symbol, date string) (SymbolStats, error) {
	day, err := au.parseDate(date)
	if err != nil {
		return SymbolStats{}, err
	}
	sym := entity.NormalizeSymbol(symbol)
	if sym == "" {
		return SymbolStats{}, fmt.Errorf("%w: symbol is required", domain.ErrNotFound)
	}
	return au.load(ctx, sym, day)
}

// DailySummary は date に CSV がある全銘柄の統計を返します。
// 読めないファイルはログに出してスキップします。
func (au *AnalyticsUsecase) DailySummary(ctx context.Context, date string) (DailySummary, error) {
	day, err := au.parseDate(date)
	if err != nil {
		return DailySummary{}, err
	}
	symbols, err := au.symbolsOn(ctx, date)
	if err != nil {
		return DailySummary{}, err
	}

	out := DailySummary{Date: date, Summary: []SymbolStats{}}
	for _, sym := range symbols {
		st, err := au.load(ctx, sym, day)
		if err != nil {
			if ctx.Err() != nil {
				return DailySummary{}, ctx.Err()
			}
			slog.Warn("skipping unreadable analytics file", "symbol", sym, "date", date, "error", err)
			continue
		}
		out.Summary = append(out.Summary, st)
	}
	if len(out.Summary) == 0 {
		return DailySummary{}, fmt.Errorf("%w: no analytics data for %s", domain.ErrNotFound, date)
	}
	sortByChange(out.Summary, true)
	return out, nil
}

// DateRange は symbol の start から end まで (両端含む) の日次統計を返します。
// 期間は最大 MaxRangeDays 日です。
func (au *AnalyticsUsecase) DateRange(ctx context.Context, symbol, start, end string) (DateRange, error) {
	from, err := au.parseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	to, err := au.parseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	if to.Before(from) {
		return DateRange{}, fmt.Errorf("%w: %s is before %s", domain.ErrInvalidRange, end, start)
	}
	if to.After(from.AddDate(0, 0, MaxRangeDays)) {
		return DateRange{}, fmt.Errorf("%w: range cannot exceed %d days", domain.ErrInvalidRange, MaxRangeDays)
	}
	sym := entity.NormalizeSymbol(symbol)
	if sym == "" {
		return DateRange{}, fmt.Errorf("%w: symbol is required", domain.ErrNotFound)
	}

	out := DateRange{Symbol: entity.CleanSymbol(sym), StartDate: start, EndDate: end, Days: []SymbolStats{}}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		st, err := au.load(ctx, sym, d)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return DateRange{}, err
		}
		out.Days = append(out.Days, st)
	}
	return out, nil
}

// TopMovers は date の騰落率上位 limit 銘柄と下位 limit 銘柄を返します。limit が0以下なら DefaultMoversLimit です。
func (au *AnalyticsUsecase) TopMovers(ctx context.Context, date string, limit int) (TopMovers, error) {
	if limit <= 0 {
		limit = DefaultMoversLimit
	}
	summary, err := au.DailySummary(ctx, date)
	if err != nil {
		return TopMovers{}, err
	}
	n := min(limit, len(summary.Summary))

	gainers := append([]SymbolStats(nil), summary.Summary...)
	sortByChange(gainers, true)
	losers := append([]SymbolStats(nil), summary.Summary...)
	sortByChange(losers, false)
	return TopMovers{Date: date, Gainers: gainers[:n], Losers: losers[:n]}, nil
}

func (au *AnalyticsUsecase) parseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(time.DateOnly, s, au.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidDate, s)
	}
	return d, nil
}

// load は1銘柄1日分の CSV を読み込み統計を計算します。
func (au *AnalyticsUsecase) load(ctx context.Context, symbol string, day time.Time) (SymbolStats, error) {
	key := entity.AnalyticsKey(symbol, day)
	body, err := au.store.Get(ctx, key)
	if err != nil {
		return SymbolStats{}, err
	}
	candles, err := DecodeCSV(body)
	if err != nil {
		return SymbolStats{}, fmt.Errorf("decode %s: %w", key, err)
	}
	stats, ok := entity.CalculateStats(candles)
	if !ok {
		return SymbolStats{}, fmt.Errorf("%w: %s has no rows", domain.ErrNotFound, key)
	}
	return SymbolStats{Symbol: entity.CleanSymbol(symbol), Date: day.Format(time.DateOnly), Stats: stats}, nil
}

// symbolsOn は date のパーティションを持つ銘柄を辞書順で返します。
func (au *AnalyticsUsecase) symbolsOn(ctx context.Context, date string) ([]string, error) {
	keys, err := au.store.List(ctx, entity.AnalyticsPrefix)
	if err != nil {
		return nil, fmt.Errorf("list analytics files: %w", err)
	}
	seen := map[string]struct{}{}
	var symbols []string
	for _, k := range keys {
		sym, d, ok := entity.ParseAnalyticsKey(k)
		if !ok || d != date {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// sortByChange は騰落率で並べ替えます。同率は銘柄名の昇順です。
func sortByChange(s []SymbolStats, desc bool) {
	sort.SliceStable(s, func(i, j int) bool {
		if c := s[i].Stats.ChangePct.Cmp(s[j].Stats.ChangePct); c != 0 {
			return (c > 0) == desc
		}
		return s[i].Symbol < s[j].Symbol
	})
}

// DecodeCSV は EncodeCSV の出力を時刻順のローソク足に戻します。列はヘッダー名で参照します。
func DecodeCSV(body []byte) ([]entity.Candle, error) {
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	r := csv.NewReader(zr)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}
	for _, name := range []string{"timestamp_unix", "open", "high", "low", "close", "volume"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var candles []entity.Candle
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		c, err := candleFromRecord(rec, col)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		candles = append(candles, c)
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Time < candles[j].Time })
	return candles, nil
}

func candleFromRecord(rec []string, col map[string]int) (entity.Candle, error) {
	ts, err := strconv.ParseInt(rec[col["timestamp_unix"]], 10, 64)
	if err != nil {
		return entity.Candle{}, fmt.Errorf("timestamp_unix: %w", err)
	}
	prices := make([]decimal.Decimal, 4)
	for i, name := range []string{"open", "high", "low", "close"} {
		if prices[i], err = decimal.NewFromString(rec[col[name]]); err != nil {
			return entity.Candle{}, fmt.Errorf("%s: %w", name, err)
		}
	}
	vol, err := decimal.NewFromString(rec[col["volume"]])
	if err != nil {
		return entity.Candle{}, fmt.Errorf("volume: %w", err)
	}
	volume, err := entity.VolumeFromDecimal(vol)
	if err != nil {
		return entity.Candle{}, err
	}
	return entity.Candle{Time: ts, Open: prices[0], High: prices[1], Low: prices[2], Close: prices[3], Volume: volume}, nil
}
