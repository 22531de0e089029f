package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain/entity"
)

// AnalyticsStore は圧縮済み CSV の保存先を抽象化します。同じキーへの書き込みは上書きです。
type AnalyticsStore interface {
	Put(ctx context.Context, key string, body []byte) error
}

// ExportResult は CSV 変換の実行結果です。
type ExportResult struct {
	Date           string   `json:"date"`
	ProcessedFiles int      `json:"processed_files"`
	SkippedFiles   int      `json:"skipped_files"`
	TotalRecords   int      `json:"total_records"`
	DroppedRecords int      `json:"dropped_records"`
	UploadedFiles  int      `json:"uploaded_files"`
	Symbols        []string `json:"symbols"`
	Keys           []string `json:"keys"`
	TimedOut       bool     `json:"timed_out"`
}

// ExportConfig は CSV Writer の設定です。
type ExportConfig struct {
	Location *time.Location
	Budget   time.Duration // 1回の実行全体の上限時間。0 は無制限
}

// ExportUsecase は1日分の RawFetchDocument を銘柄/日付で分割した gzip CSV に変換するユースケースです。
// 同じ入力に対する再実行は同じキーに同じバイト列を書き込みます。
type ExportUsecase struct {
	raw      RawStore
	out      AnalyticsStore
	notifier Notifier
	loc      *time.Location
	budget   time.Duration
	now      func() time.Time
}

// NewExportUsecase は新しい ExportUsecase を生成します。
func NewExportUsecase(raw RawStore, out AnalyticsStore, notifier Notifier, cfg ExportConfig) *ExportUsecase {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &ExportUsecase{raw: raw, out: out, notifier: notifier, loc: loc, budget: cfg.Budget, now: time.Now}
}

// Run は date (YYYY-MM-DD) の生データを変換します。date が空の場合は市場タイムゾーンの「昨日」です。
// 読めないドキュメントはログに出してスキップし、件数を結果に含めます。
// 予算を超えた場合は途中までの件数と domain.ErrTimeout を返し、失敗を通知します。
func (eu *ExportUsecase) Run(ctx context.Context, date string) (ExportResult, error) {
	if date == "" {
		date = eu.now().In(eu.loc).AddDate(0, 0, -1).Format(time.DateOnly)
	}
	day, err := time.ParseInLocation(time.DateOnly, date, eu.loc)
	if err != nil {
		return ExportResult{}, fmt.Errorf("%w: %q", domain.ErrInvalidDate, date)
	}
	res := ExportResult{Date: date, Symbols: []string{}, Keys: []string{}}

	budgetCtx := ctx
	if eu.budget > 0 {
		var cancel context.CancelFunc
		budgetCtx, cancel = context.WithTimeout(ctx, eu.budget)
		defer cancel()
	}

	keys, err := eu.raw.ListKeys(budgetCtx, date, date)
	if err != nil {
		if budgetCtx.Err() != nil {
			return eu.timedOut(ctx, res, "listing raw documents")
		}
		eu.notify(ctx, "Lightweight ETL Failed", fmt.Sprintf("Could not list raw documents for %s: %v", date, err))
		return res, fmt.Errorf("list raw documents: %w", err)
	}
	if len(keys) == 0 {
		slog.Info("no raw documents for date", "date", date)
		return res, nil
	}

	// 銘柄ごとに bucket_start で重複排除 (キー順で後のドキュメントが優先)
	rows := map[string]map[int64]entity.CsvRow{}
	for _, key := range keys {
		if budgetCtx.Err() != nil {
			return eu.timedOut(ctx, res, "reading raw documents")
		}
		doc, err := eu.raw.Get(budgetCtx, key)
		if err != nil {
			if budgetCtx.Err() != nil {
				return eu.timedOut(ctx, res, "reading raw documents")
			}
			slog.Warn("skipping unreadable raw document", "key", key, "error", err)
			res.SkippedFiles++
			continue
		}
		res.ProcessedFiles++
		for sym, r := range doc.Data {
			if !r.IsOK() {
				continue
			}
			if rows[sym] == nil {
				rows[sym] = map[int64]entity.CsvRow{}
			}
			resolution := r.Resolution
			if resolution == "" {
				resolution = doc.Resolution
			}
			for _, c := range r.Candles {
				rows[sym][c.Time] = entity.CsvRow{Symbol: sym, Candle: c, Resolution: resolution, FetchedAt: doc.FetchedAt}
			}
		}
	}

	symbols := make([]string, 0, len(rows))
	for s := range rows {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	for _, sym := range symbols {
		if budgetCtx.Err() != nil {
			return eu.timedOut(ctx, res, "uploading csv files")
		}
		sorted := make([]entity.CsvRow, 0, len(rows[sym]))
		for _, r := range rows[sym] {
			if !r.Candle.Valid() {
				res.DroppedRecords++
				continue
			}
			sorted = append(sorted, r)
		}
		if len(sorted) == 0 {
			continue
		}
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Candle.Time < sorted[j].Candle.Time })

		body, err := EncodeCSV(sorted, eu.loc)
		if err != nil {
			return res, fmt.Errorf("encode %s: %w", sym, err)
		}
		key := entity.AnalyticsKey(sym, day)
		if err := eu.out.Put(budgetCtx, key, body); err != nil {
			if budgetCtx.Err() != nil {
				return eu.timedOut(ctx, res, "uploading csv files")
			}
			eu.notify(ctx, "Lightweight ETL Failed", fmt.Sprintf("Could not upload %s: %v", key, err))
			return res, fmt.Errorf("upload %s: %w", key, err)
		}
		res.UploadedFiles++
		res.TotalRecords += len(sorted)
		res.Symbols = append(res.Symbols, sym)
		res.Keys = append(res.Keys, key)
	}

	slog.Info("csv export finished", "date", date, "processed", res.ProcessedFiles, "skipped", res.SkippedFiles,
		"records", res.TotalRecords, "dropped", res.DroppedRecords, "files", res.UploadedFiles)
	if res.TotalRecords > 0 {
		eu.notify(ctx, "Lightweight ETL Success", fmt.Sprintf(
			"Date: %s\nRaw documents processed: %d (skipped %d)\nRecords: %d (dropped %d)\nCSV files: %d",
			date, res.ProcessedFiles, res.SkippedFiles, res.TotalRecords, res.DroppedRecords, res.UploadedFiles))
	}
	return res, nil
}

// timedOut は予算超過を途中までの件数とともに通知し、domain.ErrTimeout を返します。
// 呼び出し元の ctx が切れていても通知できるよう、猶予付きの別コンテキストを使います。
func (eu *ExportUsecase) timedOut(ctx context.Context, res ExportResult, stage string) (ExportResult, error) {
	res.TimedOut = true
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalWriteTimeout)
	defer cancel()

	slog.Error("csv export timed out", "date", res.Date, "stage", stage, "processed", res.ProcessedFiles,
		"skipped", res.SkippedFiles, "files", res.UploadedFiles)
	eu.notify(notifyCtx, "Lightweight ETL Failed", fmt.Sprintf(
		"Date: %s\nTimed out while %s (budget %s)\nRaw documents processed: %d (skipped %d)\nRecords: %d (dropped %d)\nCSV files uploaded: %d",
		res.Date, stage, eu.budget, res.ProcessedFiles, res.SkippedFiles, res.TotalRecords, res.DroppedRecords, res.UploadedFiles))
	return res, fmt.Errorf("%w: budget %s exceeded while %s, %d csv files uploaded", domain.ErrTimeout, eu.budget, stage, res.UploadedFiles)
}

// EncodeCSV はヘッダー付き CSV を gzip 圧縮して返します。
// gzip ヘッダーの時刻と名前は空のままにするため、出力は入力だけで決まります。
func EncodeCSV(rows []entity.CsvRow, loc *time.Location) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	w := csv.NewWriter(zw)
	if err := w.Write(entity.CSVHeader); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write(r.Record(loc)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (eu *ExportUsecase) notify(ctx context.Context, subject, message string) {
	if eu.notifier == nil {
		return
	}
	if err := eu.notifier.Notify(ctx, subject, message); err != nil {
		slog.Warn("failed to send notification", "subject", subject, "error", err)
	}
}
