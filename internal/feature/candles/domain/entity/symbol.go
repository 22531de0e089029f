package entity

import "strings"

const (
	exchangePrefix = "NSE:"
	seriesSuffix   = "-EQ"
)

// DefaultSymbols is the symbol list fetched when none is configured.
var DefaultSymbols = []string{
	"NSE:RELIANCE-EQ",
	"NSE:TCS-EQ",
	"NSE:HDFCBANK-EQ",
	"NSE:INFY-EQ",
	"NSE:ICICIBANK-EQ",
	"NSE:HINDUNILVR-EQ",
	"NSE:KOTAKBANK-EQ",
	"NSE:SBIN-EQ",
	"NSE:BHARTIARTL-EQ",
	"NSE:ITC-EQ",
}

// NormalizeSymbol converts user input such as "reliance" or "NSE:RELIANCE"
// into the brokerage form "NSE:RELIANCE-EQ".
func NormalizeSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, exchangePrefix) {
		s = exchangePrefix + s
	}
	if !strings.HasSuffix(s, seriesSuffix) {
		s += seriesSuffix
	}
	return s
}

// CleanSymbol strips the exchange prefix and series suffix: "NSE:TCS-EQ" -> "TCS".
func CleanSymbol(s string) string {
	s = strings.TrimPrefix(s, exchangePrefix)
	return strings.TrimSuffix(s, seriesSuffix)
}

// ParseSymbols splits a comma separated list and normalizes every entry.
// Empty entries and duplicates are dropped, order is preserved.
func ParseSymbols(csv string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, part := range strings.Split(csv, ",") {
		s := NormalizeSymbol(part)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
