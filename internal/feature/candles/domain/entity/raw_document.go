package entity

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RawPrefix is the object key prefix of raw fetch documents.
const RawPrefix = "Raw/Prices/"

// SymbolStatus tags a per-symbol fetch result.
type SymbolStatus string

const (
	StatusOK    SymbolStatus = "ok"
	StatusError SymbolStatus = "error"
)

// ErrorKind classifies a per-symbol failure.
type ErrorKind string

const (
	ErrorKindAuth     ErrorKind = "auth"
	ErrorKindTimeout  ErrorKind = "timeout"
	ErrorKindUpstream ErrorKind = "upstream"
	ErrorKindEmpty    ErrorKind = "empty"
	ErrorKindBudget   ErrorKind = "budget"
)

// SymbolResult is the tagged result of fetching one symbol.
// Candles is set only when Status is StatusOK; ErrorKind and Message only when StatusError.
type SymbolResult struct {
	Symbol       string       `json:"symbol"`
	Status       SymbolStatus `json:"status"`
	Resolution   string       `json:"resolution,omitempty"`
	Candles      []Candle     `json:"candles,omitempty"`
	TotalRecords int          `json:"total_records"`
	ErrorKind    ErrorKind    `json:"error_kind,omitempty"`
	Message      string       `json:"message,omitempty"`
}

// OK builds a successful result.
func OK(symbol, resolution string, candles []Candle) SymbolResult {
	return SymbolResult{
		Symbol:       symbol,
		Status:       StatusOK,
		Resolution:   resolution,
		Candles:      candles,
		TotalRecords: len(candles),
	}
}

// Failed builds a failed result.
func Failed(symbol string, kind ErrorKind, msg string) SymbolResult {
	return SymbolResult{Symbol: symbol, Status: StatusError, ErrorKind: kind, Message: msg}
}

// IsOK reports whether the fetch succeeded.
func (r SymbolResult) IsOK() bool { return r.Status == StatusOK }

// FetchMetadata summarizes one fetch cycle.
type FetchMetadata struct {
	TotalSymbolsRequested int      `json:"total_symbols_requested"`
	SuccessfulSymbols     int      `json:"successful_symbols"`
	FailedSymbols         []string `json:"failed_symbols"`
	SuccessRatePercent    float64  `json:"success_rate_percent"`
	TimedOut              bool     `json:"timed_out"`
	Demo                  bool     `json:"demo,omitempty"`
}

// RawFetchDocument is the immutable JSON document written once per fetch cycle.
type RawFetchDocument struct {
	ID         string                  `json:"id,omitempty"`
	FetchedAt  time.Time               `json:"fetched_at"`
	Date       string                  `json:"date"`
	Resolution string                  `json:"resolution"`
	Data       map[string]SymbolResult `json:"data"`
	Metadata   FetchMetadata           `json:"metadata"`
}

// NewRawFetchDocument assembles a document from per-symbol results and computes its metadata.
func NewRawFetchDocument(fetchedAt time.Time, date, resolution string, results []SymbolResult) RawFetchDocument {
	doc := RawFetchDocument{
		ID:         NewDocumentID(),
		FetchedAt:  fetchedAt,
		Date:       date,
		Resolution: resolution,
		Data:       make(map[string]SymbolResult, len(results)),
	}
	failed := []string{}
	for _, r := range results {
		doc.Data[r.Symbol] = r
		if r.IsOK() {
			doc.Metadata.SuccessfulSymbols++
		} else {
			failed = append(failed, r.Symbol)
		}
	}
	doc.Metadata.TotalSymbolsRequested = len(results)
	doc.Metadata.FailedSymbols = failed
	if len(results) > 0 {
		rate := float64(doc.Metadata.SuccessfulSymbols) / float64(len(results)) * 100
		doc.Metadata.SuccessRatePercent = float64(int64(rate*100+0.5)) / 100
	}
	return doc
}

// Symbols returns the symbols with successful data, sorted.
func (d RawFetchDocument) Symbols() []string {
	out := make([]string, 0, len(d.Data))
	for s, r := range d.Data {
		if r.IsOK() {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// NewDocumentID returns the short random suffix that keeps raw keys unique
// between runs fetched in the same instant.
func NewDocumentID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

const rawKeyTime = "20060102_150405.000000"

// Key returns the object key Raw/Prices/{date}/raw_{YYYYMMDD_HHMMSS.ffffff}_{id}.json.
// The timestamp is the UTC fetch time, so keys of one day sort chronologically.
// Documents without an ID keep the second-resolution legacy name.
func (d RawFetchDocument) Key() string {
	at := d.FetchedAt.UTC()
	if d.ID == "" {
		return fmt.Sprintf("%s%s/raw_%s.json", RawPrefix, d.Date, at.Format("20060102_150405"))
	}
	return fmt.Sprintf("%s%s/raw_%s_%s.json", RawPrefix, d.Date, at.Format(rawKeyTime), d.ID)
}

// RawKeyDate extracts the YYYY-MM-DD partition from a raw document key.
func RawKeyDate(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, RawPrefix)
	if !ok {
		return "", false
	}
	date, _, ok := strings.Cut(rest, "/")
	if !ok || len(date) != len(time.DateOnly) {
		return "", false
	}
	return date, true
}
