// Package portfolio derives positions and portfolio totals from purchase
// records and current prices.
package portfolio

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/RamanBirulia/stock-notebook/internal/models"
)

// PercentPlaces is the rounding applied to profit/loss percentages.
const PercentPlaces = 4

var hundred = decimal.NewFromInt(100)

// Aggregate groups purchases by symbol and values each group with prices.
//
// Positions are ordered by symbol. A symbol with no entry in prices keeps
// its position with a zero current price and value and PriceAvailable set
// to false; its spend still counts towards the portfolio totals and the
// symbol is listed in MissingPrices. Aggregate has no side effects and
// never reads the clock, so LastUpdated is left for the caller to stamp.
func Aggregate(purchases []models.Purchase, prices map[string]models.PriceQuote) models.PortfolioSummary {
	groups := make(map[string][]models.Purchase)
	for _, p := range purchases {
		symbol := models.NormalizeSymbol(p.Symbol)
		groups[symbol] = append(groups[symbol], p)
	}

	symbols := make([]string, 0, len(groups))
	for symbol := range groups {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	summary := models.PortfolioSummary{
		Positions:     make([]models.Position, 0, len(symbols)),
		MissingPrices: []string{},
		PurchaseCount: len(purchases),
	}
	for _, symbol := range symbols {
		quote, ok := prices[symbol]
		pos := Position(symbol, groups[symbol], quote, ok)
		if !pos.PriceAvailable {
			summary.MissingPrices = append(summary.MissingPrices, symbol)
		}
		summary.TotalSpent = summary.TotalSpent.Add(pos.TotalSpent)
		summary.TotalValue = summary.TotalValue.Add(pos.CurrentValue)
		summary.Positions = append(summary.Positions, pos)
	}

	summary.PositionCount = len(summary.Positions)
	summary.ProfitLoss = summary.TotalValue.Sub(summary.TotalSpent)
	summary.ProfitLossPercentage = Percentage(summary.ProfitLoss, summary.TotalSpent)
	return summary
}

// Position values one symbol's purchases. When hasQuote is false the
// quote is ignored and the position is marked as lacking a price.
func Position(symbol string, purchases []models.Purchase, quote models.PriceQuote, hasQuote bool) models.Position {
	pos := models.Position{
		Symbol:        symbol,
		PurchaseCount: len(purchases),
	}
	for _, p := range purchases {
		pos.TotalQuantity = pos.TotalQuantity.Add(p.Quantity)
		pos.TotalSpent = pos.TotalSpent.Add(p.TotalCost())
		pos.TotalCommission = pos.TotalCommission.Add(p.Commission)
		if pos.FirstPurchaseDate.IsZero() || p.PurchaseDate.Before(pos.FirstPurchaseDate) {
			pos.FirstPurchaseDate = p.PurchaseDate
		}
		if p.PurchaseDate.After(pos.LastPurchaseDate) {
			pos.LastPurchaseDate = p.PurchaseDate
		}
	}

	if pos.TotalQuantity.IsPositive() {
		pos.AveragePrice = pos.TotalSpent.DivRound(pos.TotalQuantity, PercentPlaces)
	}

	if hasQuote {
		pos.PriceAvailable = true
		pos.CurrentPrice = quote.Price
		if !quote.AsOf.IsZero() {
			asOf := quote.AsOf.UTC().Truncate(time.Second)
			pos.PriceAsOf = &asOf
		}
	}
	pos.CurrentValue = pos.TotalQuantity.Mul(pos.CurrentPrice)
	pos.ProfitLoss = pos.CurrentValue.Sub(pos.TotalSpent)
	pos.ProfitLossPercentage = Percentage(pos.ProfitLoss, pos.TotalSpent)
	return pos
}

// Percentage returns profitLoss / spent × 100, or zero when spent is not
// positive.
func Percentage(profitLoss, spent decimal.Decimal) decimal.Decimal {
	if !spent.IsPositive() {
		return decimal.Zero
	}
	return profitLoss.Mul(hundred).DivRound(spent, PercentPlaces)
}
