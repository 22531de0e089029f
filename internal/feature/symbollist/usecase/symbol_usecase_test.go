package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	candledomain "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain"
	candleentity "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain/entity"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/symbollist/domain/entity"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/symbollist/usecase"
)

// mockSymbolSource はSymbolSourceインターフェースのモック実装です。
type mockSymbolSource struct {
	LatestDocumentFunc func(ctx context.Context) (candleentity.RawFetchDocument, error)
}

// LatestDocument はモックのLatestDocument関数を呼び出します。
func (m *mockSymbolSource) LatestDocument(ctx context.Context) (candleentity.RawFetchDocument, error) {
	if m.LatestDocumentFunc != nil {
		return m.LatestDocumentFunc(ctx)
	}
	return candleentity.RawFetchDocument{}, candledomain.ErrNotFound
}

var fetchedAt = time.Date(2025, 1, 15, 4, 0, 5, 0, time.UTC)

func latestDoc() candleentity.RawFetchDocument {
	c := []candleentity.Candle{{Time: 1736912700}}
	return candleentity.NewRawFetchDocument(fetchedAt, "2025-01-15", "5", []candleentity.SymbolResult{
		candleentity.OK("NSE:TCS-EQ", "5", c),
		candleentity.OK("NSE:INFY-EQ", "5", c),
		candleentity.Failed("NSE:ITC-EQ", candleentity.ErrorKindTimeout, "timeout"),
		candleentity.OK("NSE:RELIANCE-EQ", "5", c),
	})
}

// TestNewSymbolUsecase はNewSymbolUsecaseコンストラクタが正しくインスタンスを生成することを検証します。
func TestNewSymbolUsecase(t *testing.T) {
	t.Parallel()

	uc := usecase.NewSymbolUsecase(&mockSymbolSource{})

	assert.NotNil(t, uc, "usecase should not be nil")
}

// TestSymbolUsecase_ListSymbols はListSymbolsメソッドの各種シナリオをテーブル駆動テストで検証します。
func TestSymbolUsecase_ListSymbols(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		limit      int
		mockLatest func(ctx context.Context) (candleentity.RawFetchDocument, error)
		expected   usecase.SymbolList
		wantErr    bool
		errMsg     string
	}{
		{
			name: "success: returns sorted symbols with data",
			mockLatest: func(ctx context.Context) (candleentity.RawFetchDocument, error) {
				return latestDoc(), nil
			},
			expected: usecase.SymbolList{
				Symbols: []entity.Symbol{
					{Code: "NSE:INFY-EQ", Clean: "INFY"},
					{Code: "NSE:RELIANCE-EQ", Clean: "RELIANCE"},
					{Code: "NSE:TCS-EQ", Clean: "TCS"},
				},
				FetchedAt: fetchedAt,
			},
		},
		{
			name:  "success: limit truncates the list",
			limit: 2,
			mockLatest: func(ctx context.Context) (candleentity.RawFetchDocument, error) {
				return latestDoc(), nil
			},
			expected: usecase.SymbolList{
				Symbols: []entity.Symbol{
					{Code: "NSE:INFY-EQ", Clean: "INFY"},
					{Code: "NSE:RELIANCE-EQ", Clean: "RELIANCE"},
				},
				FetchedAt: fetchedAt,
			},
		},
		{
			name: "success: returns empty list when no document exists",
			mockLatest: func(ctx context.Context) (candleentity.RawFetchDocument, error) {
				return candleentity.RawFetchDocument{}, fmt.Errorf("%w: no raw documents", candledomain.ErrNotFound)
			},
			expected: usecase.SymbolList{Symbols: []entity.Symbol{}},
		},
		{
			name: "failure: source returns error",
			mockLatest: func(ctx context.Context) (candleentity.RawFetchDocument, error) {
				return candleentity.RawFetchDocument{}, errors.New("s3 unavailable")
			},
			wantErr: true,
			errMsg:  "s3 unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			uc := usecase.NewSymbolUsecase(&mockSymbolSource{LatestDocumentFunc: tt.mockLatest})

			got, err := uc.ListSymbols(context.Background(), tt.limit)

			if tt.wantErr {
				assert.EqualError(t, err, tt.errMsg)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNewSymbol(t *testing.T) {
	t.Parallel()
	assert.Equal(t, entity.Symbol{Code: "NSE:SBIN-EQ", Clean: "SBIN"}, entity.NewSymbol(" sbin "))
}
