package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain/entity"
)

var (
	ErrStore = errors.New("store error")
	ist      = time.FixedZone("IST", 5*3600+30*60)
)

// mockRawStore is an in-memory RawStore. Func fields override the default behaviour.
type mockRawStore struct {
	docs map[string]entity.RawFetchDocument

	PutFunc      func(ctx context.Context, doc entity.RawFetchDocument) (string, error)
	ListKeysFunc func(ctx context.Context, from, to string) ([]string, error)
	GetFunc      func(ctx context.Context, key string) (entity.RawFetchDocument, error)

	PutCalls      int
	ListKeysCalls int
	GetCalls      int
}

func newMockRawStore(docs ...entity.RawFetchDocument) *mockRawStore {
	m := &mockRawStore{docs: map[string]entity.RawFetchDocument{}}
	for _, d := range docs {
		m.docs[d.Key()] = d
	}
	return m
}

func (m *mockRawStore) Put(ctx context.Context, doc entity.RawFetchDocument) (string, error) {
	m.PutCalls++
	if m.PutFunc != nil {
		return m.PutFunc(ctx, doc)
	}
	m.docs[doc.Key()] = doc
	return doc.Key(), nil
}

func (m *mockRawStore) ListKeys(ctx context.Context, from, to string) ([]string, error) {
	m.ListKeysCalls++
	if m.ListKeysFunc != nil {
		return m.ListKeysFunc(ctx, from, to)
	}
	var keys []string
	for k := range m.docs {
		d, ok := entity.RawKeyDate(k)
		if ok && d >= from && d <= to {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *mockRawStore) Get(ctx context.Context, key string) (entity.RawFetchDocument, error) {
	m.GetCalls++
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	d, ok := m.docs[key]
	if !ok {
		return entity.RawFetchDocument{}, domain.ErrNotFound
	}
	return d, nil
}

// mockNotifier records every notification.
type mockNotifier struct {
	NotifyFunc  func(ctx context.Context, subject, message string) error
	NotifyCalls int
	Subjects    []string
	Messages    []string
}

func (m *mockNotifier) Notify(ctx context.Context, subject, message string) error {
	m.NotifyCalls++
	m.Subjects = append(m.Subjects, subject)
	m.Messages = append(m.Messages, message)
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, subject, message)
	}
	return nil
}

// candleAt builds a candle whose prices are derived from base.
func candleAt(ts time.Time, base string, volume int64) entity.Candle {
	b := decimal.RequireFromString(base)
	return entity.Candle{
		Time:   ts.Unix(),
		Open:   b,
		High:   b.Add(decimal.NewFromInt(2)),
		Low:    b.Sub(decimal.NewFromInt(1)),
		Close:  b.Add(decimal.NewFromInt(1)),
		Volume: volume,
	}
}

func istClock(day, hour, min int) time.Time {
	return time.Date(2025, 1, day, hour, min, 0, 0, ist)
}

// queryFixture returns three documents:
//   - 2025-01-14: RELIANCE 09:15, 09:20
//   - 2025-01-15 (older): RELIANCE 09:15, TCS 09:15
//   - 2025-01-15 (newer): RELIANCE 09:15..09:25, TCS failed
func queryFixture() []entity.RawFetchDocument {
	d14 := entity.NewRawFetchDocument(istClock(14, 9, 25).UTC(), "2025-01-14", "5", []entity.SymbolResult{
		entity.OK("NSE:RELIANCE-EQ", "5", []entity.Candle{
			candleAt(istClock(14, 9, 15), "2500", 100),
			candleAt(istClock(14, 9, 20), "2501", 110),
		}),
	})
	older := entity.NewRawFetchDocument(istClock(15, 9, 20).UTC(), "2025-01-15", "5", []entity.SymbolResult{
		entity.OK("NSE:RELIANCE-EQ", "5", []entity.Candle{candleAt(istClock(15, 9, 15), "2510", 10)}),
		entity.OK("NSE:TCS-EQ", "5", []entity.Candle{candleAt(istClock(15, 9, 15), "3900", 20)}),
	})
	newer := entity.NewRawFetchDocument(istClock(15, 9, 30).UTC(), "2025-01-15", "5", []entity.SymbolResult{
		entity.OK("NSE:RELIANCE-EQ", "5", []entity.Candle{
			candleAt(istClock(15, 9, 15), "2512", 120),
			candleAt(istClock(15, 9, 20), "2513", 130),
			candleAt(istClock(15, 9, 25), "2514", 140),
		}),
		entity.Failed("NSE:TCS-EQ", entity.ErrorKindUpstream, "boom"),
	})
	return pinIDs(d14, older, newer)
}

// pinIDs gives fixture documents fixed IDs so that repeated fixture calls yield the same keys.
func pinIDs(docs ...entity.RawFetchDocument) []entity.RawFetchDocument {
	for i := range docs {
		docs[i].ID = fmt.Sprintf("fixture%d", i)
	}
	return docs
}

func newQueryUsecase(store RawStore) *CandlesUsecase {
	cu := NewCandlesUsecase(store, QueryConfig{Location: ist})
	cu.now = func() time.Time { return istClock(15, 12, 0) }
	return cu
}

func TestCandlesUsecase_GetOHLCV(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		query       OHLCVQuery
		expectedErr error
		verify      func(t *testing.T, cs []entity.Candle)
	}{
		{
			name:  "success: merges days in ascending order using the newest document of each day",
			query: OHLCVQuery{Symbol: "reliance", From: "2025-01-14", To: "2025-01-15"},
			verify: func(t *testing.T, cs []entity.Candle) {
				require.Len(t, cs, 5)
				for i := 1; i < len(cs); i++ {
					assert.Less(t, cs[i-1].Time, cs[i].Time)
				}
				// 09:15 on the 15th comes from the newer document
				assert.Equal(t, "2512", cs[2].Open.String())
				assert.Equal(t, int64(120), cs[2].Volume)
			},
		},
		{
			name:  "success: resamples to 10 minute buckets",
			query: OHLCVQuery{Symbol: "NSE:RELIANCE-EQ", From: "2025-01-14", To: "2025-01-15", Interval: "10m"},
			verify: func(t *testing.T, cs []entity.Candle) {
				require.Len(t, cs, 4)
				last := cs[3]
				assert.Equal(t, istClock(15, 9, 20).Unix(), last.Time)
				assert.Equal(t, int64(270), last.Volume)
				assert.Equal(t, "2513", last.Open.String())
				assert.Equal(t, "2515", last.Close.String())
			},
		},
		{
			name:  "success: limit keeps the most recent candles",
			query: OHLCVQuery{Symbol: "RELIANCE", From: "2025-01-14", To: "2025-01-15", Limit: 2},
			verify: func(t *testing.T, cs []entity.Candle) {
				require.Len(t, cs, 2)
				assert.Equal(t, istClock(15, 9, 25).Unix(), cs[1].Time)
			},
		},
		{
			name:  "success: single day window",
			query: OHLCVQuery{Symbol: "RELIANCE", From: "2025-01-14", To: "2025-01-14"},
			verify: func(t *testing.T, cs []entity.Candle) {
				assert.Len(t, cs, 2)
			},
		},
		{
			name:        "error: interval finer than the base granularity",
			query:       OHLCVQuery{Symbol: "RELIANCE", From: "2025-01-14", To: "2025-01-15", Interval: "1m"},
			expectedErr: domain.ErrInvalidInterval,
		},
		{
			name:        "error: malformed interval",
			query:       OHLCVQuery{Symbol: "RELIANCE", Interval: "abc"},
			expectedErr: domain.ErrInvalidInterval,
		},
		{
			name:        "error: unknown symbol",
			query:       OHLCVQuery{Symbol: "INFY", From: "2025-01-14", To: "2025-01-15"},
			expectedErr: domain.ErrNotFound,
		},
		{
			name:        "error: invalid date",
			query:       OHLCVQuery{Symbol: "RELIANCE", From: "14-01-2025"},
			expectedErr: domain.ErrInvalidDate,
		},
		{
			name:        "error: from after to",
			query:       OHLCVQuery{Symbol: "RELIANCE", From: "2025-01-15", To: "2025-01-14"},
			expectedErr: domain.ErrInvalidDate,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cu := newQueryUsecase(newMockRawStore(queryFixture()...))

			cs, err := cu.GetOHLCV(context.Background(), tc.query)

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			tc.verify(t, cs)
		})
	}
}

func TestCandlesUsecase_GetOHLCV_ReadsNewestFirstAndStopsEarly(t *testing.T) {
	t.Parallel()
	store := newMockRawStore(queryFixture()...)
	cu := newQueryUsecase(store)

	_, err := cu.GetOHLCV(context.Background(), OHLCVQuery{Symbol: "RELIANCE", From: "2025-01-15", To: "2025-01-15"})

	require.NoError(t, err)
	assert.Equal(t, 1, store.ListKeysCalls)
	// the newer document already holds RELIANCE so the older one is never read
	assert.Equal(t, 1, store.GetCalls)
}

func TestCandlesUsecase_GetOHLCV_SkipsUnreadableDocuments(t *testing.T) {
	t.Parallel()
	docs := queryFixture()
	store := newMockRawStore(docs...)
	store.GetFunc = func(ctx context.Context, key string) (entity.RawFetchDocument, error) {
		if key == docs[2].Key() {
			return entity.RawFetchDocument{}, errors.New("corrupt json")
		}
		return docs[1], nil
	}
	cu := newQueryUsecase(store)

	cs, err := cu.GetOHLCV(context.Background(), OHLCVQuery{Symbol: "RELIANCE", From: "2025-01-15", To: "2025-01-15"})

	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, "2510", cs[0].Open.String())
}

func TestCandlesUsecase_Historical(t *testing.T) {
	t.Parallel()
	store := newMockRawStore(queryFixture()...)
	cu := newQueryUsecase(store)

	got, err := cu.Historical(context.Background(), []string{"RELIANCE", "tcs", "INFY", " "}, "2025-01-14", "2025-01-15")

	require.NoError(t, err)
	assert.Len(t, got["NSE:RELIANCE-EQ"], 5)
	assert.Len(t, got["NSE:TCS-EQ"], 1)
	_, hasInfy := got["NSE:INFY-EQ"]
	assert.False(t, hasInfy, "symbols without data are omitted")

	t.Run("success: defaults to symbols of the newest document", func(t *testing.T) {
		t.Parallel()
		got, err := newQueryUsecase(newMockRawStore(queryFixture()...)).Historical(context.Background(), nil, "2025-01-14", "2025-01-15")
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Len(t, got["NSE:RELIANCE-EQ"], 5)
	})

	t.Run("error: nothing found", func(t *testing.T) {
		t.Parallel()
		_, err := newQueryUsecase(newMockRawStore(queryFixture()...)).Historical(context.Background(), []string{"INFY"}, "2025-01-14", "2025-01-15")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("error: list failure is propagated", func(t *testing.T) {
		t.Parallel()
		s := newMockRawStore()
		s.ListKeysFunc = func(ctx context.Context, from, to string) ([]string, error) { return nil, ErrStore }
		_, err := newQueryUsecase(s).Historical(context.Background(), []string{"TCS"}, "", "")
		assert.ErrorIs(t, err, ErrStore)
	})
}

func TestCandlesUsecase_Latest(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		symbols     []string
		setupStore  func(s *mockRawStore, docs []entity.RawFetchDocument)
		expectedErr error
		verify      func(t *testing.T, res LatestResult)
	}{
		{
			name:    "success: defaults to symbols of the newest document",
			symbols: nil,
			verify: func(t *testing.T, res LatestResult) {
				require.Len(t, res.Quotes, 1)
				q := res.Quotes[0]
				assert.Equal(t, "NSE:RELIANCE-EQ", q.Symbol)
				assert.Equal(t, 3, q.Count)
				assert.Equal(t, istClock(15, 9, 25).Unix(), q.Candle.Time)
				assert.Empty(t, res.Missing)
			},
		},
		{
			name:    "success: failed symbols are reported as missing",
			symbols: []string{"reliance", "tcs"},
			verify: func(t *testing.T, res LatestResult) {
				require.Len(t, res.Quotes, 1)
				assert.Equal(t, []string{"NSE:TCS-EQ"}, res.Missing)
			},
		},
		{
			name:    "success: unreadable newest document falls back to an older one",
			symbols: []string{"TCS"},
			setupStore: func(s *mockRawStore, docs []entity.RawFetchDocument) {
				s.GetFunc = func(ctx context.Context, key string) (entity.RawFetchDocument, error) {
					if key == docs[2].Key() {
						return entity.RawFetchDocument{}, errors.New("corrupt json")
					}
					return docs[1], nil
				}
			},
			verify: func(t *testing.T, res LatestResult) {
				require.Len(t, res.Quotes, 1)
				assert.Equal(t, "NSE:TCS-EQ", res.Quotes[0].Symbol)
			},
		},
		{
			name:        "error: only missing symbols",
			symbols:     []string{"TCS"},
			expectedErr: domain.ErrNotFound,
		},
		{
			name:    "error: no documents",
			symbols: nil,
			setupStore: func(s *mockRawStore, _ []entity.RawFetchDocument) {
				s.docs = map[string]entity.RawFetchDocument{}
			},
			expectedErr: domain.ErrNotFound,
		},
		{
			name: "error: store failure",
			setupStore: func(s *mockRawStore, _ []entity.RawFetchDocument) {
				s.ListKeysFunc = func(ctx context.Context, from, to string) ([]string, error) { return nil, ErrStore }
			},
			expectedErr: ErrStore,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			docs := queryFixture()
			store := newMockRawStore(docs...)
			if tc.setupStore != nil {
				tc.setupStore(store, docs)
			}
			cu := newQueryUsecase(store)

			res, err := cu.Latest(context.Background(), tc.symbols)

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			tc.verify(t, res)
		})
	}
}

func TestCandlesUsecase_Aggregate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		symbol      string
		interval    string
		period      string
		expectedErr error
		verify      func(t *testing.T, agg Aggregation)
	}{
		{
			name:     "success: hourly buckets over one day",
			symbol:   "reliance",
			interval: "1h",
			period:   "1d",
			verify: func(t *testing.T, agg Aggregation) {
				assert.Equal(t, "reliance", agg.SymbolRequested)
				assert.Equal(t, "NSE:RELIANCE-EQ", agg.SymbolNormalized)
				assert.Equal(t, "2025-01-14", agg.From)
				assert.Equal(t, "2025-01-15", agg.To)
				require.Len(t, agg.Candles, 2)
				assert.Equal(t, int64(210), agg.Candles[0].Volume)
				assert.Equal(t, int64(390), agg.Candles[1].Volume)
				assert.Zero(t, agg.Candles[1].Time%3600)
			},
		},
		{
			name:        "error: invalid period",
			symbol:      "RELIANCE",
			interval:    "1h",
			period:      "7w",
			expectedErr: domain.ErrInvalidPeriod,
		},
		{
			name:        "error: invalid interval",
			symbol:      "RELIANCE",
			interval:    "7x",
			period:      "1d",
			expectedErr: domain.ErrInvalidInterval,
		},
		{
			name:        "error: no data",
			symbol:      "WIPRO",
			interval:    "1h",
			period:      "1d",
			expectedErr: domain.ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cu := newQueryUsecase(newMockRawStore(queryFixture()...))

			agg, err := cu.Aggregate(context.Background(), tc.symbol, tc.interval, tc.period)

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			tc.verify(t, agg)
		})
	}
}
