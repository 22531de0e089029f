// Package entity defines the domain models for the symbollist feature.
package entity

import candles "github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain/entity"

// Symbol is a tradable symbol present in the raw store.
// Code is the brokerage form ("NSE:TCS-EQ") and Clean the bare ticker ("TCS").
type Symbol struct {
	Code  string
	Clean string
}

// NewSymbol builds a Symbol from any accepted spelling of a ticker.
func NewSymbol(s string) Symbol {
	code := candles.NormalizeSymbol(s)
	return Symbol{Code: code, Clean: candles.CleanSymbol(code)}
}
