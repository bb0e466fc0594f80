package client

import (
	"github.com/google/uuid"

	"github.com/RamanBirulia/stock-notebook/internal/models"
)

// The checks below reject payloads that decoded but cannot be right.

func checkAuth(r models.AuthResponse) error {
	if r.Token == "" {
		return malformed("auth response without token")
	}
	return checkUser(r.User)
}

func checkUser(u models.UserInfo) error {
	if u.ID == uuid.Nil || u.Username == "" {
		return malformed("user without id or username")
	}
	return nil
}

func checkPurchase(p models.Purchase) error {
	switch {
	case p.ID == uuid.Nil:
		return malformed("purchase without id")
	case p.Symbol == "":
		return malformed("purchase %s without symbol", p.ID)
	case !p.Quantity.IsPositive():
		return malformed("purchase %s with quantity %s", p.ID, p.Quantity)
	case p.PricePerShare.IsNegative() || p.Commission.IsNegative():
		return malformed("purchase %s with negative amounts", p.ID)
	case p.PurchaseDate.IsZero():
		return malformed("purchase %s without date", p.ID)
	}
	return nil
}

func checkPurchases(ps []models.Purchase) error {
	for _, p := range ps {
		if err := checkPurchase(p); err != nil {
			return err
		}
	}
	return nil
}

func checkPosition(p models.Position) error {
	if p.Symbol == "" {
		return malformed("position without symbol")
	}
	if p.TotalQuantity.IsNegative() || p.TotalSpent.IsNegative() {
		return malformed("position %s with negative totals", p.Symbol)
	}
	return nil
}

func checkSummary(s models.PortfolioSummary) error {
	if s.PositionCount != len(s.Positions) {
		return malformed("summary lists %d positions, counts %d", len(s.Positions), s.PositionCount)
	}
	for _, p := range s.Positions {
		if err := checkPosition(p); err != nil {
			return err
		}
	}
	return nil
}

func checkDetails(symbol string, d models.StockDetails) error {
	if d.Symbol != symbol {
		return malformed("details for %q, asked for %q", d.Symbol, symbol)
	}
	if err := checkPurchases(d.Purchases); err != nil {
		return err
	}
	return checkPosition(d.Position)
}

func checkQuote(symbol string, q models.PriceQuote) error {
	if q.Symbol != symbol {
		return malformed("quote for %q, asked for %q", q.Symbol, symbol)
	}
	if !q.Price.IsPositive() {
		return malformed("quote for %s with price %s", symbol, q.Price)
	}
	return nil
}

func checkChart(symbol string, c models.ChartData) error {
	if c.Symbol != symbol {
		return malformed("chart for %q, asked for %q", c.Symbol, symbol)
	}
	for i, p := range c.PriceData {
		if p.Date.IsZero() || p.Price.IsNegative() {
			return malformed("chart point %d is invalid", i)
		}
		if i > 0 && p.Date.Before(c.PriceData[i-1].Date) {
			return malformed("chart points out of order at %d", i)
		}
	}
	return nil
}

func checkSuggestions(ss []models.SymbolSuggestion) error {
	for i, s := range ss {
		if s.Symbol == "" {
			return malformed("suggestion %d without symbol", i)
		}
	}
	return nil
}

func checkHistory(vs []models.DailyValue) error {
	for i, v := range vs {
		if v.Date.IsZero() {
			return malformed("history entry %d without date", i)
		}
	}
	return nil
}
