package models

import "strings"

// NormalizeSymbol trims and upper-cases a ticker so "aapl " and "AAPL" match.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
