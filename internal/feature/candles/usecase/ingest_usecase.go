package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain/entity"
	tokendomain "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/token/domain"
	tokenentity "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/token/domain/entity"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/shared/markethours"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/shared/ratelimiter"
)

// 予算超過後にドキュメントを書き込むための猶予
const finalWriteTimeout = 30 * time.Second

// MarketRepository は株価データを取得するリポジトリのインターフェイスです。
// 外部 API の実装を抽象化します。
type MarketRepository interface {
	GetHistory(ctx context.Context, creds tokenentity.CredentialSet, symbol string, day time.Time) ([]entity.Candle, error)
}

// TokenManager は Fetcher が借用する認証情報の操作です。
type TokenManager interface {
	Load(ctx context.Context) (tokenentity.CredentialSet, error)
	EnsureValidAccessCredential(ctx context.Context, creds tokenentity.CredentialSet) (tokenentity.CredentialSet, error)
	Refresh(ctx context.Context, creds tokenentity.CredentialSet) (tokenentity.CredentialSet, error)
	Invalidate(creds tokenentity.CredentialSet) tokenentity.CredentialSet
}

// Notifier はバッチのサマリーを通知します。
type Notifier interface {
	Notify(ctx context.Context, subject, message string) error
}

// IngestConfig は Fetcher の設定です。
type IngestConfig struct {
	Symbols           []string
	Window            markethours.Window
	CheckTradingHours bool
	Budget            time.Duration // 1回の実行全体の上限時間
	Resolution        string
	Demo              bool // true の場合は取引時間と認証をスキップ
}

// IngestResult は1回の実行結果です。
type IngestResult struct {
	Skipped       bool                  `json:"skipped"`
	Reason        string                `json:"reason,omitempty"`
	Key           string                `json:"key,omitempty"`
	Date          string                `json:"date,omitempty"`
	Requested     int                   `json:"requested"`
	Successful    int                   `json:"successful"`
	Failed        int                   `json:"failed"`
	FailedSymbols []string              `json:"failed_symbols,omitempty"`
	TimedOut      bool                  `json:"timed_out"`
	Results       []entity.SymbolResult `json:"-"`
}

// IngestUsecase は外部APIから5分足を取得し、RawFetchDocument として保存するユースケースです。
type IngestUsecase struct {
	market      MarketRepository
	tokens      TokenManager
	raw         RawStore
	notifier    Notifier
	rateLimiter ratelimiter.Limiter
	cfg         IngestConfig
	now         func() time.Time
	newBackOff  func() backoff.BackOff
}

// NewIngestUsecase は新しい IngestUsecase を作成します。
func NewIngestUsecase(market MarketRepository, tokens TokenManager, raw RawStore, notifier Notifier,
	rateLimiter ratelimiter.Limiter, cfg IngestConfig) *IngestUsecase {
	if cfg.Resolution == "" {
		cfg.Resolution = "5"
	}
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = entity.DefaultSymbols
	}
	return &IngestUsecase{
		market:      market,
		tokens:      tokens,
		raw:         raw,
		notifier:    notifier,
		rateLimiter: rateLimiter,
		cfg:         cfg,
		now:         time.Now,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			return b
		},
	}
}

// Run は全銘柄を順番に取得し、1つの RawFetchDocument を書き込みます。
// 取引時間外は何も呼び出さずに Skipped を返します。
// 1銘柄の失敗でバッチは止めず、結果に記録して次の銘柄へ進みます。
func (iu *IngestUsecase) Run(ctx context.Context) (IngestResult, error) {
	now := iu.now()
	if !iu.cfg.Demo && iu.cfg.CheckTradingHours && !iu.cfg.Window.Contains(now) {
		slog.Info("outside trading hours, skipping fetch", "now", now)
		return IngestResult{Skipped: true, Reason: "outside trading hours"}, nil
	}

	budgetCtx := ctx
	if iu.cfg.Budget > 0 {
		var cancel context.CancelFunc
		budgetCtx, cancel = context.WithTimeout(ctx, iu.cfg.Budget)
		defer cancel()
	}

	loc := time.UTC
	if iu.cfg.Window.Location != nil {
		loc = iu.cfg.Window.Location
	}
	day := now.In(loc)

	creds, credErr := iu.credentials(budgetCtx)
	refreshed := false
	timedOut := false

	results := make([]entity.SymbolResult, 0, len(iu.cfg.Symbols))
	for i, sym := range iu.cfg.Symbols {
		if budgetCtx.Err() != nil {
			timedOut = true
			results = append(results, entity.Failed(sym, entity.ErrorKindBudget, "invocation budget exceeded"))
			continue
		}
		// 認証情報が使えない場合は API を呼ばずに記録する
		if credErr != nil && !errors.Is(credErr, tokendomain.ErrTransient) {
			results = append(results, entity.Failed(sym, entity.ErrorKindAuth, credErr.Error()))
			continue
		}
		if i > 0 {
			if err := iu.rateLimiter.Wait(budgetCtx); err != nil {
				timedOut = true
				results = append(results, entity.Failed(sym, entity.ErrorKindBudget, err.Error()))
				continue
			}
		}

		candles, err := iu.fetchOne(budgetCtx, creds, sym, day)
		// 認証エラーは1回の実行につき1度だけ refresh して、その銘柄を1度だけ再試行する
		if errors.Is(err, domain.ErrAuthExpired) && !iu.cfg.Demo && !refreshed {
			refreshed = true
			fresh, rerr := iu.tokens.Refresh(budgetCtx, iu.tokens.Invalidate(creds))
			if rerr != nil {
				slog.Error("token refresh after auth failure failed", "symbol", sym, "error", rerr)
				credErr = rerr
				results = append(results, entity.Failed(sym, entity.ErrorKindAuth, rerr.Error()))
				continue
			}
			creds, credErr = fresh, nil
			candles, err = iu.fetchOne(budgetCtx, creds, sym, day)
		}

		r := iu.toResult(budgetCtx, sym, candles, err)
		if r.ErrorKind == entity.ErrorKindBudget {
			timedOut = true
		}
		if !r.IsOK() {
			// 1つの銘柄でエラーが発生しても処理を止めずにログに出力し、次の銘柄へ
			slog.Error("failed to fetch symbol", "symbol", sym, "kind", r.ErrorKind, "error", r.Message)
		}
		results = append(results, r)
	}

	doc := entity.NewRawFetchDocument(now.UTC(), day.Format(time.DateOnly), iu.cfg.Resolution, results)
	doc.Metadata.TimedOut = timedOut
	doc.Metadata.Demo = iu.cfg.Demo

	res := IngestResult{
		Date:          doc.Date,
		Requested:     doc.Metadata.TotalSymbolsRequested,
		Successful:    doc.Metadata.SuccessfulSymbols,
		Failed:        len(doc.Metadata.FailedSymbols),
		FailedSymbols: doc.Metadata.FailedSymbols,
		TimedOut:      timedOut,
		Results:       results,
	}

	// 予算を使い切っていても、集めた結果は失わずに書き込む
	writeCtx := budgetCtx
	if budgetCtx.Err() != nil {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), finalWriteTimeout)
		defer cancel()
	}
	key, err := iu.raw.Put(writeCtx, doc)
	if err != nil {
		iu.notify(writeCtx, "Stock Data Ingestion Failed",
			fmt.Sprintf("Could not write raw document for %s: %v\nFetched %d/%d symbols.", doc.Date, err, res.Successful, res.Requested))
		return res, fmt.Errorf("write raw document: %w", err)
	}
	res.Key = key
	slog.Info("raw document written", "key", key, "successful", res.Successful, "failed", res.Failed, "timed_out", timedOut)

	iu.notify(writeCtx, summarySubject(res), summaryMessage(res))

	if timedOut {
		return res, fmt.Errorf("%w: budget %s exceeded, %d of %d symbols not fetched", domain.ErrTimeout, iu.cfg.Budget,
			countKind(results, entity.ErrorKindBudget), res.Requested)
	}
	return res, nil
}

// credentials は実行開始時に有効な access token を用意します。
// 失敗した場合もエラーを返すだけで、判断は呼び出し側で行います。
func (iu *IngestUsecase) credentials(ctx context.Context) (tokenentity.CredentialSet, error) {
	if iu.cfg.Demo {
		return tokenentity.CredentialSet{}, nil
	}
	creds, err := iu.tokens.Load(ctx)
	if err != nil {
		slog.Error("failed to load credentials", "error", err)
		return creds, err
	}
	creds, err = iu.tokens.EnsureValidAccessCredential(ctx, creds)
	if err != nil {
		slog.Error("no valid access credential at start", "error", err)
	}
	return creds, err
}

// fetchOne は1銘柄を取得します。上流タイムアウトに限りバックオフ付きで1回だけ再試行します。
func (iu *IngestUsecase) fetchOne(ctx context.Context, creds tokenentity.CredentialSet, symbol string, day time.Time) ([]entity.Candle, error) {
	op := func() ([]entity.Candle, error) {
		cs, err := iu.market.GetHistory(ctx, creds, symbol, day)
		if err != nil && !errors.Is(err, domain.ErrUpstreamTimeout) {
			return nil, backoff.Permanent(err)
		}
		return cs, err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(iu.newBackOff(), 1), ctx)
	return backoff.RetryWithData(op, b)
}

// toResult は取得結果をタグ付きの SymbolResult に変換します。
func (iu *IngestUsecase) toResult(ctx context.Context, symbol string, candles []entity.Candle, err error) entity.SymbolResult {
	switch {
	case err == nil && len(candles) == 0:
		return entity.Failed(symbol, entity.ErrorKindEmpty, "no candles returned")
	case err == nil:
		return entity.OK(symbol, iu.cfg.Resolution, candles)
	case ctx.Err() != nil:
		return entity.Failed(symbol, entity.ErrorKindBudget, err.Error())
	case errors.Is(err, domain.ErrAuthExpired):
		return entity.Failed(symbol, entity.ErrorKindAuth, err.Error())
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return entity.Failed(symbol, entity.ErrorKindTimeout, err.Error())
	default:
		return entity.Failed(symbol, entity.ErrorKindUpstream, err.Error())
	}
}

func (iu *IngestUsecase) notify(ctx context.Context, subject, message string) {
	if iu.notifier == nil {
		return
	}
	if err := iu.notifier.Notify(ctx, subject, message); err != nil {
		slog.Warn("failed to send notification", "subject", subject, "error", err)
	}
}

func summarySubject(r IngestResult) string {
	switch {
	case r.Successful == 0:
		return "Stock Data Ingestion Failed"
	case r.Failed > 0 || r.TimedOut:
		return "Stock Data Ingestion Partial"
	default:
		return "Stock Data Ingestion Success"
	}
}

func summaryMessage(r IngestResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\nDocument: %s\n", r.Date, r.Key)
	fmt.Fprintf(&b, "Successful: %d/%d\nFailed: %d\n", r.Successful, r.Requested, r.Failed)
	if len(r.FailedSymbols) > 0 {
		fmt.Fprintf(&b, "Failed symbols: %s\n", strings.Join(r.FailedSymbols, ", "))
	}
	if r.TimedOut {
		b.WriteString("Invocation budget exceeded; remaining symbols were not fetched.\n")
	}
	return b.String()
}

func countKind(rs []entity.SymbolResult, kind entity.ErrorKind) int {
	n := 0
	for _, r := range rs {
		if r.ErrorKind == kind {
			n++
		}
	}
	return n
}
