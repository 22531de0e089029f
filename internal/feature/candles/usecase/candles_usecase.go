// Package usecase はローソク足データ操作のビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain/entity"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain/resample"
)

const (
	// DefaultRangeDays は from/to 未指定時の取得日数です。
	DefaultRangeDays = 7
	// DefaultLatestSymbols は /latest で銘柄未指定時に返す銘柄数です。
	DefaultLatestSymbols = 10
	// DefaultHistoricalSymbols は /historical で銘柄未指定時に返す銘柄数です。
	DefaultHistoricalSymbols = 5
	// MaxLimit はローソク足の最大返却件数です。
	MaxLimit = 5000
)

// RawStore は生データ (RawFetchDocument) の保存先を抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type RawStore interface {
	// Put はドキュメントを新しいキーで保存し、そのキーを返します。
	Put(ctx context.Context, doc entity.RawFetchDocument) (string, error)
	// ListKeys は from から to (YYYY-MM-DD, 両端含む) のキーを昇順で返します。
	ListKeys(ctx context.Context, from, to string) ([]string, error)
	// Get はキーに対応するドキュメントを読み込みます。
	Get(ctx context.Context, key string) (entity.RawFetchDocument, error)
}

// QueryConfig はクエリサービスの設定です。
type QueryConfig struct {
	Location     *time.Location
	LookbackDays int // 最新ドキュメントを探す日数
	DocsPerDay   int // 1日あたり読み込むドキュメント数の上限
}

// OHLCVQuery は /ohlcv/{symbol} のクエリ条件です。
type OHLCVQuery struct {
	Symbol   string
	From     string
	To       string
	Interval string
	Limit    int
}

// LatestQuote は銘柄ごとの最新ローソク足です。
type LatestQuote struct {
	Symbol    string
	Candle    entity.Candle
	Count     int
	FetchedAt time.Time
}

// LatestResult は /latest の結果です。
type LatestResult struct {
	Quotes    []LatestQuote
	Missing   []string
	FetchedAt time.Time
}

// Aggregation は /aggregate の結果です。
type Aggregation struct {
	SymbolRequested  string
	SymbolNormalized string
	Interval         string
	Period           string
	From             string
	To               string
	Candles          []entity.Candle
}

// CandlesUsecase は Raw Store を読み取り専用で参照するクエリサービスです。
type CandlesUsecase struct {
	raw RawStore
	cfg QueryConfig
	now func() time.Time
}

// NewCandlesUsecase はCandlesUsecaseの新しいインスタンスを生成します。
func NewCandlesUsecase(raw RawStore, cfg QueryConfig) *CandlesUsecase {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 7
	}
	if cfg.DocsPerDay <= 0 {
		cfg.DocsPerDay = 6
	}
	return &CandlesUsecase{raw: raw, cfg: cfg, now: time.Now}
}

// LatestDocument は直近 LookbackDays 日で最も新しい読み込み可能なドキュメントを返します。
func (cu *CandlesUsecase) LatestDocument(ctx context.Context) (entity.RawFetchDocument, error) {
	today := cu.now().In(cu.cfg.Location)
	from := today.AddDate(0, 0, -cu.cfg.LookbackDays).Format(time.DateOnly)
	keys, err := cu.raw.ListKeys(ctx, from, today.Format(time.DateOnly))
	if err != nil {
		return entity.RawFetchDocument{}, fmt.Errorf("list raw documents: %w", err)
	}
	for i := len(keys) - 1; i >= 0; i-- {
		doc, err := cu.raw.Get(ctx, keys[i])
		if err != nil {
			slog.Warn("skipping unreadable raw document", "key", keys[i], "error", err)
			continue
		}
		return doc, nil
	}
	return entity.RawFetchDocument{}, fmt.Errorf("%w: no raw documents since %s", domain.ErrNotFound, from)
}

// GetOHLCV は1銘柄の期間内ローソク足を返します。interval が5分以外の場合はリサンプルします。
func (cu *CandlesUsecase) GetOHLCV(ctx context.Context, q OHLCVQuery) ([]entity.Candle, error) {
	symbol := entity.NormalizeSymbol(q.Symbol)
	from, to, err := cu.window(q.From, q.To)
	if err != nil {
		return nil, err
	}

	var width time.Duration
	if q.Interval != "" {
		if width, err = resample.ParseInterval(q.Interval); err != nil {
			return nil, err
		}
	}

	loaded, err := cu.load(ctx, []string{symbol}, from, to)
	if err != nil {
		return nil, err
	}
	cs := loaded[symbol]
	if len(cs) == 0 {
		return nil, fmt.Errorf("%w: %s between %s and %s", domain.ErrNotFound, symbol, q.From, q.To)
	}

	if width > 0 && width != entity.BaseGranularity {
		if cs, err = resample.Resample(cs, entity.BaseGranularity, width); err != nil {
			return nil, err
		}
	}

	// 直近 limit 件のみ返す
	limit := q.Limit
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if limit > 0 && len(cs) > limit {
		cs = cs[len(cs)-limit:]
	}
	return cs, nil
}

// Latest は最新ドキュメントから各銘柄の最後のローソク足を返します。
// symbols が空の場合は最新ドキュメントの先頭 DefaultLatestSymbols 銘柄を対象にします。
func (cu *CandlesUsecase) Latest(ctx context.Context, symbols []string) (LatestResult, error) {
	doc, err := cu.LatestDocument(ctx)
	if err != nil {
		return LatestResult{}, err
	}

	targets := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if n := entity.NormalizeSymbol(s); n != "" {
			targets = append(targets, n)
		}
	}
	if len(targets) == 0 {
		targets = doc.Symbols()
		if len(targets) > DefaultLatestSymbols {
			targets = targets[:DefaultLatestSymbols]
		}
	}

	out := LatestResult{FetchedAt: doc.FetchedAt}
	for _, s := range targets {
		r, ok := doc.Data[s]
		if !ok || !r.IsOK() || len(r.Candles) == 0 {
			out.Missing = append(out.Missing, s)
			continue
		}
		out.Quotes = append(out.Quotes, LatestQuote{
			Symbol:    s,
			Candle:    r.Candles[len(r.Candles)-1],
			Count:     len(r.Candles),
			FetchedAt: doc.FetchedAt,
		})
	}
	if len(out.Quotes) == 0 {
		return out, fmt.Errorf("%w: no latest data for %v", domain.ErrNotFound, targets)
	}
	return out, nil
}

// Historical は複数銘柄の期間内ローソク足を返します。データの無い銘柄は結果に含めません。
// symbols が空の場合は最新ドキュメントの先頭 DefaultHistoricalSymbols 銘柄を対象にします。
func (cu *CandlesUsecase) Historical(ctx context.Context, symbols []string, from, to string) (map[string][]entity.Candle, error) {
	f, t, err := cu.window(from, to)
	if err != nil {
		return nil, err
	}
	normalized := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if n := entity.NormalizeSymbol(s); n != "" {
			normalized = append(normalized, n)
		}
	}
	if len(normalized) == 0 {
		doc, err := cu.LatestDocument(ctx)
		if err != nil {
			return nil, err
		}
		normalized = doc.Symbols()
		if len(normalized) > DefaultHistoricalSymbols {
			normalized = normalized[:DefaultHistoricalSymbols]
		}
	}
	loaded, err := cu.load(ctx, normalized, f, t)
	if err != nil {
		return nil, err
	}
	for s, cs := range loaded {
		if len(cs) == 0 {
			delete(loaded, s)
		}
	}
	if len(loaded) == 0 {
		return nil, fmt.Errorf("%w: %v between %s and %s", domain.ErrNotFound, normalized, from, to)
	}
	return loaded, nil
}

// Aggregate は [今日 - period, 今日] の5分足を読み込み、interval 幅にリサンプルして返します。
func (cu *CandlesUsecase) Aggregate(ctx context.Context, symbol, interval, period string) (Aggregation, error) {
	width, err := resample.ParseInterval(interval)
	if err != nil {
		return Aggregation{}, err
	}
	span, err := resample.ParsePeriod(period)
	if err != nil {
		return Aggregation{}, err
	}

	now := cu.now().In(cu.cfg.Location)
	from := now.Add(-span).Format(time.DateOnly)
	to := now.Format(time.DateOnly)

	agg := Aggregation{
		SymbolRequested:  symbol,
		SymbolNormalized: entity.NormalizeSymbol(symbol),
		Interval:         interval,
		Period:           period,
		From:             from,
		To:               to,
	}

	f, t, err := cu.window(from, to)
	if err != nil {
		return agg, err
	}
	loaded, err := cu.load(ctx, []string{agg.SymbolNormalized}, f, t)
	if err != nil {
		return agg, err
	}
	cs := loaded[agg.SymbolNormalized]
	if len(cs) == 0 {
		return agg, fmt.Errorf("%w: %s between %s and %s", domain.ErrNotFound, agg.SymbolNormalized, from, to)
	}
	if agg.Candles, err = resample.Resample(cs, entity.BaseGranularity, width); err != nil {
		return agg, err
	}
	return agg, nil
}

// window は YYYY-MM-DD の from/to を市場タイムゾーンの [from 0:00, to 24:00) に変換します。
// 未指定の場合は直近 DefaultRangeDays 日です。
func (cu *CandlesUsecase) window(from, to string) (time.Time, time.Time, error) {
	loc := cu.cfg.Location
	today := cu.now().In(loc)
	end := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)
	if to != "" {
		t, err := time.ParseInLocation(time.DateOnly, to, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: to=%q", domain.ErrInvalidDate, to)
		}
		end = t
	}
	start := end.AddDate(0, 0, -DefaultRangeDays)
	if from != "" {
		f, err := time.ParseInLocation(time.DateOnly, from, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: from=%q", domain.ErrInvalidDate, from)
		}
		start = f
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from %s is after to %s", domain.ErrInvalidDate, from, to)
	}
	return start, end.AddDate(0, 0, 1), nil
}

// load は [from, to) のドキュメントを日付ごとに新しい順に読み込み、銘柄ごとのローソク足を返します。
// 各日、全銘柄が見つかるか DocsPerDay 件読むまで走査します。結果は時刻昇順で重複を含みません。
func (cu *CandlesUsecase) load(ctx context.Context, symbols []string, from, to time.Time) (map[string][]entity.Candle, error) {
	keys, err := cu.raw.ListKeys(ctx, from.Format(time.DateOnly), to.Add(-time.Second).Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("list raw documents: %w", err)
	}

	byDay := map[string][]string{}
	var days []string
	for _, k := range keys {
		d, ok := entity.RawKeyDate(k)
		if !ok {
			continue
		}
		if _, seen := byDay[d]; !seen {
			days = append(days, d)
		}
		byDay[d] = append(byDay[d], k)
	}

	merged := make(map[string]map[int64]entity.Candle, len(symbols))
	for _, s := range symbols {
		merged[s] = map[int64]entity.Candle{}
	}

	for _, d := range days {
		pending := make(map[string]struct{}, len(symbols))
		for _, s := range symbols {
			pending[s] = struct{}{}
		}
		dayKeys := byDay[d]
		scanned := 0
		for i := len(dayKeys) - 1; i >= 0 && len(pending) > 0 && scanned < cu.cfg.DocsPerDay; i-- {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			scanned++
			doc, err := cu.raw.Get(ctx, dayKeys[i])
			if err != nil {
				slog.Warn("skipping unreadable raw document", "key", dayKeys[i], "error", err)
				continue
			}
			for s := range pending {
				r, ok := doc.Data[s]
				if !ok || !r.IsOK() {
					continue
				}
				for _, c := range r.Candles {
					if _, dup := merged[s][c.Time]; !dup {
						merged[s][c.Time] = c
					}
				}
				delete(pending, s)
			}
		}
	}

	lo, hi := from.Unix(), to.Unix()
	out := make(map[string][]entity.Candle, len(symbols))
	for s, byTime := range merged {
		cs := make([]entity.Candle, 0, len(byTime))
		for ts, c := range byTime {
			if ts >= lo && ts < hi {
				cs = append(cs, c)
			}
		}
		sort.Slice(cs, func(i, j int) bool { return cs[i].Time < cs[j].Time })
		out[s] = cs
	}
	return out, nil
}
