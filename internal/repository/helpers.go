package repository

import (
	"sort"
	"strings"

	"github.com/RamanBirulia/stock-notebook/internal/models"
)

// SortPurchases orders purchases newest first by purchase date, then by
// creation time.
func SortPurchases(ps []models.Purchase) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if !a.PurchaseDate.Equal(b.PurchaseDate) {
			return a.PurchaseDate.After(b.PurchaseDate)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

// MatchSymbol is the search predicate shared by backends that filter in
// process.
func MatchSymbol(s models.StockSymbol, query string) bool {
	q := strings.TrimSpace(query)
	if q == "" {
		return false
	}
	return strings.HasPrefix(strings.ToUpper(s.Symbol), strings.ToUpper(q)) ||
		strings.Contains(strings.ToLower(s.Name), strings.ToLower(q))
}
