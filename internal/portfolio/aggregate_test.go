package portfolio

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/RamanBirulia/stock-notebook/internal/models"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func buy(symbol, qty, price, commission string, day int) models.Purchase {
	return models.Purchase{
		ID:            uuid.New(),
		Symbol:        symbol,
		Quantity:      dec(qty),
		PricePerShare: dec(price),
		Commission:    dec(commission),
		PurchaseDate:  models.NewDate(2024, time.January, day),
	}
}

func quotes(kv ...string) map[string]models.PriceQuote {
	out := make(map[string]models.PriceQuote, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = models.PriceQuote{Symbol: kv[i], Price: dec(kv[i+1])}
	}
	return out
}

func TestAggregateSinglePurchase(t *testing.T) {
	s := Aggregate([]models.Purchase{buy("AAPL", "10", "100", "5", 1)}, quotes("AAPL", "120"))

	if len(s.Positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(s.Positions))
	}
	p := s.Positions[0]
	if !p.TotalSpent.Equal(dec("1005")) {
		t.Errorf("TotalSpent = %s, want 1005", p.TotalSpent)
	}
	if !p.CurrentValue.Equal(dec("1200")) {
		t.Errorf("CurrentValue = %s, want 1200", p.CurrentValue)
	}
	if !p.ProfitLoss.Equal(dec("195")) {
		t.Errorf("ProfitLoss = %s, want 195", p.ProfitLoss)
	}
	if !p.ProfitLossPercentage.Round(2).Equal(dec("19.40")) {
		t.Errorf("ProfitLossPercentage = %s, want ~19.40", p.ProfitLossPercentage)
	}
	if !s.ProfitLossPercentage.Equal(p.ProfitLossPercentage) {
		t.Errorf("summary pct = %s, want %s", s.ProfitLossPercentage, p.ProfitLossPercentage)
	}
}

func TestAggregateAccumulatesSameSymbol(t *testing.T) {
	s := Aggregate([]models.Purchase{
		buy("MSFT", "5", "200", "1", 3),
		buy("MSFT", "5", "210", "1", 7),
	}, quotes("MSFT", "205"))

	if len(s.Positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(s.Positions))
	}
	p := s.Positions[0]
	if !p.TotalQuantity.Equal(dec("10")) {
		t.Errorf("TotalQuantity = %s, want 10", p.TotalQuantity)
	}
	if !p.TotalSpent.Equal(dec("2052")) {
		t.Errorf("TotalSpent = %s, want 2052", p.TotalSpent)
	}
	if !p.CurrentValue.Equal(dec("2050")) {
		t.Errorf("CurrentValue = %s, want 2050", p.CurrentValue)
	}
	if !p.ProfitLoss.Equal(dec("-2")) {
		t.Errorf("ProfitLoss = %s, want -2", p.ProfitLoss)
	}
	if !p.ProfitLossPercentage.Equal(dec("-0.0975")) {
		t.Errorf("ProfitLossPercentage = %s, want -0.0975", p.ProfitLossPercentage)
	}
	if !p.TotalCommission.Equal(dec("2")) {
		t.Errorf("TotalCommission = %s, want 2", p.TotalCommission)
	}
	if p.PurchaseCount != 2 {
		t.Errorf("PurchaseCount = %d, want 2", p.PurchaseCount)
	}
	if p.FirstPurchaseDate.String() != "2024-01-03" || p.LastPurchaseDate.String() != "2024-01-07" {
		t.Errorf("dates = %s..%s, want 2024-01-03..2024-01-07", p.FirstPurchaseDate, p.LastPurchaseDate)
	}
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil, nil)
	if s.Positions == nil || len(s.Positions) != 0 {
		t.Fatalf("Positions = %v, want empty non-nil slice", s.Positions)
	}
	for name, v := range map[string]decimal.Decimal{
		"TotalSpent": s.TotalSpent, "TotalValue": s.TotalValue,
		"ProfitLoss": s.ProfitLoss, "ProfitLossPercentage": s.ProfitLossPercentage,
	} {
		if !v.IsZero() {
			t.Errorf("%s = %s, want 0", name, v)
		}
	}
	if s.PositionCount != 0 || s.PurchaseCount != 0 {
		t.Errorf("counts = %d/%d, want 0/0", s.PositionCount, s.PurchaseCount)
	}
}

func TestAggregateMissingPrice(t *testing.T) {
	s := Aggregate([]models.Purchase{
		buy("AAPL", "1", "100", "0", 1),
		buy("TSLA", "2", "50", "1", 2),
	}, quotes("AAPL", "110"))

	if len(s.Positions) != 2 {
		t.Fatalf("positions = %d, want 2", len(s.Positions))
	}
	tsla := s.Positions[1]
	if tsla.Symbol != "TSLA" || tsla.PriceAvailable {
		t.Fatalf("TSLA = %+v, want PriceAvailable=false", tsla)
	}
	if !tsla.CurrentValue.IsZero() || !tsla.CurrentPrice.IsZero() {
		t.Errorf("TSLA value/price = %s/%s, want 0/0", tsla.CurrentValue, tsla.CurrentPrice)
	}
	if !tsla.ProfitLoss.Equal(dec("-101")) {
		t.Errorf("TSLA ProfitLoss = %s, want -101", tsla.ProfitLoss)
	}
	if len(s.MissingPrices) != 1 || s.MissingPrices[0] != "TSLA" {
		t.Errorf("MissingPrices = %v, want [TSLA]", s.MissingPrices)
	}
	if !s.TotalSpent.Equal(dec("201")) || !s.TotalValue.Equal(dec("110")) {
		t.Errorf("totals = %s/%s, want 201/110", s.TotalSpent, s.TotalValue)
	}
}

func TestAggregateZeroSpendGuard(t *testing.T) {
	s := Aggregate([]models.Purchase{buy("ZERO", "0", "0", "0", 1)}, quotes("ZERO", "10"))
	p := s.Positions[0]
	if !p.ProfitLossPercentage.IsZero() {
		t.Fatalf("ProfitLossPercentage = %s, want 0", p.ProfitLossPercentage)
	}
	if !p.AveragePrice.IsZero() {
		t.Fatalf("AveragePrice = %s, want 0", p.AveragePrice)
	}
	if !s.ProfitLossPercentage.IsZero() {
		t.Fatalf("summary ProfitLossPercentage = %s, want 0", s.ProfitLossPercentage)
	}
}

func TestAggregateNormalizesSymbols(t *testing.T) {
	s := Aggregate([]models.Purchase{
		buy("aapl", "1", "10", "0", 1),
		buy(" AAPL", "1", "10", "0", 2),
	}, quotes("AAPL", "10"))
	if len(s.Positions) != 1 || s.Positions[0].Symbol != "AAPL" {
		t.Fatalf("positions = %+v, want one AAPL", s.Positions)
	}
}

func TestAggregateProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	symbols := []string{"AAPL", "MSFT", "GOOGL", "NVDA", "AMD"}

	for round := 0; round < 50; round++ {
		n := rng.Intn(20)
		purchases := make([]models.Purchase, 0, n)
		for i := 0; i < n; i++ {
			purchases = append(purchases, models.Purchase{
				Symbol:        symbols[rng.Intn(len(symbols))],
				Quantity:      decimal.NewFromInt(int64(rng.Intn(500) + 1)),
				PricePerShare: decimal.New(int64(rng.Intn(100000)+1), -2),
				Commission:    decimal.New(int64(rng.Intn(1000)), -2),
				PurchaseDate:  models.NewDate(2023, time.Month(rng.Intn(12)+1), rng.Intn(28)+1),
			})
		}
		prices := map[string]models.PriceQuote{}
		for _, sym := range symbols[:rng.Intn(len(symbols))+1] {
			prices[sym] = models.PriceQuote{Symbol: sym, Price: decimal.New(int64(rng.Intn(100000)), -2)}
		}

		s := Aggregate(purchases, prices)

		distinct := map[string]bool{}
		wantQty := map[string]decimal.Decimal{}
		wantSpent := map[string]decimal.Decimal{}
		for _, p := range purchases {
			distinct[p.Symbol] = true
			wantQty[p.Symbol] = wantQty[p.Symbol].Add(p.Quantity)
			wantSpent[p.Symbol] = wantSpent[p.Symbol].Add(p.Quantity.Mul(p.PricePerShare).Add(p.Commission))
		}
		if len(s.Positions) != len(distinct) {
			t.Fatalf("round %d: positions = %d, want %d", round, len(s.Positions), len(distinct))
		}

		sumSpent, sumValue := decimal.Zero, decimal.Zero
		for i, pos := range s.Positions {
			if i > 0 && s.Positions[i-1].Symbol >= pos.Symbol {
				t.Fatalf("round %d: positions not ordered by symbol", round)
			}
			if !pos.TotalQuantity.Equal(wantQty[pos.Symbol]) {
				t.Fatalf("round %d %s: quantity = %s, want %s", round, pos.Symbol, pos.TotalQuantity, wantQty[pos.Symbol])
			}
			if !pos.TotalSpent.Equal(wantSpent[pos.Symbol]) {
				t.Fatalf("round %d %s: spent = %s, want %s", round, pos.Symbol, pos.TotalSpent, wantSpent[pos.Symbol])
			}
			sumSpent = sumSpent.Add(pos.TotalSpent)
			sumValue = sumValue.Add(pos.CurrentValue)
		}
		if !s.TotalSpent.Equal(sumSpent) || !s.TotalValue.Equal(sumValue) {
			t.Fatalf("round %d: summary totals %s/%s, want %s/%s", round, s.TotalSpent, s.TotalValue, sumSpent, sumValue)
		}

		shuffled := append([]models.Purchase(nil), purchases...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		again := Aggregate(shuffled, prices)
		assertSameSummary(t, s, again)
		assertSameSummary(t, s, Aggregate(purchases, prices))
	}
}

func assertSameSummary(t *testing.T, a, b models.PortfolioSummary) {
	t.Helper()
	if len(a.Positions) != len(b.Positions) {
		t.Fatalf("position count differs: %d vs %d", len(a.Positions), len(b.Positions))
	}
	for i := range a.Positions {
		pa, pb := a.Positions[i], b.Positions[i]
		if pa.Symbol != pb.Symbol ||
			!pa.TotalQuantity.Equal(pb.TotalQuantity) ||
			!pa.TotalSpent.Equal(pb.TotalSpent) ||
			!pa.CurrentValue.Equal(pb.CurrentValue) ||
			!pa.ProfitLossPercentage.Equal(pb.ProfitLossPercentage) {
			t.Fatalf("position %d differs: %+v vs %+v", i, pa, pb)
		}
	}
	if !a.TotalSpent.Equal(b.TotalSpent) || !a.TotalValue.Equal(b.TotalValue) ||
		!a.ProfitLossPercentage.Equal(b.ProfitLossPercentage) {
		t.Fatalf("summary differs: %s/%s/%s vs %s/%s/%s",
			a.TotalSpent, a.TotalValue, a.ProfitLossPercentage,
			b.TotalSpent, b.TotalValue, b.ProfitLossPercentage)
	}
}
