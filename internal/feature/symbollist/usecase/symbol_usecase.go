// Package usecase implements the business logic for symbol-related operations.
package usecase

import (
	"context"
	"errors"
	"time"

	candledomain "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain"
	candleentity "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain/entity"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/symbollist/domain/entity"
)

// SymbolSource returns the newest readable raw document.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider.
type SymbolSource interface {
	LatestDocument(ctx context.Context) (candleentity.RawFetchDocument, error)
}

// SymbolList is the result of ListSymbols. FetchedAt is zero when no document exists.
type SymbolList struct {
	Symbols   []entity.Symbol
	FetchedAt time.Time
}

// SymbolUsecase provides business logic for symbol operations.
type SymbolUsecase struct {
	src SymbolSource
}

// NewSymbolUsecase creates a new SymbolUsecase with the given source.
func NewSymbolUsecase(src SymbolSource) *SymbolUsecase {
	return &SymbolUsecase{src: src}
}

// ListSymbols returns the sorted symbols with data in the newest raw document.
// A positive limit truncates the list. An empty store yields an empty list, not an error.
func (u *SymbolUsecase) ListSymbols(ctx context.Context, limit int) (SymbolList, error) {
	doc, err := u.src.LatestDocument(ctx)
	if errors.Is(err, candledomain.ErrNotFound) {
		return SymbolList{Symbols: []entity.Symbol{}}, nil
	}
	if err != nil {
		return SymbolList{}, err
	}

	codes := doc.Symbols()
	if limit > 0 && len(codes) > limit {
		codes = codes[:limit]
	}
	out := SymbolList{Symbols: make([]entity.Symbol, 0, len(codes)), FetchedAt: doc.FetchedAt}
	for _, c := range codes {
		out.Symbols = append(out.Symbols, entity.NewSymbol(c))
	}
	return out, nil
}
