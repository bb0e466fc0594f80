package price

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/RamanBirulia/stock-notebook/internal/cache"
	"github.com/RamanBirulia/stock-notebook/internal/models"
	"github.com/RamanBirulia/stock-notebook/internal/repository/memstore"
)

var testNow = time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

type fakeProvider struct {
	mu      sync.Mutex
	prices  map[string]string
	chart   []models.PricePoint
	search  []models.SymbolSuggestion
	fail    bool
	fetches atomic.Int32
	charts  atomic.Int32
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Fetch(_ context.Context, symbol string) (decimal.Decimal, error) {
	f.fetches.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prices[symbol]
	if f.fail || !ok {
		return decimal.Zero, ErrNoQuote
	}
	return decimal.RequireFromString(p), nil
}

func (f *fakeProvider) FetchChart(context.Context, string, Period) ([]models.PricePoint, error) {
	f.charts.Add(1)
	if f.fail {
		return nil, ErrUpstream
	}
	return f.chart, nil
}

func (f *fakeProvider) Search(context.Context, string, int) ([]models.SymbolSuggestion, error) {
	if f.fail {
		return nil, ErrUpstream
	}
	return f.search, nil
}

func newTestService(t *testing.T, p *fakeProvider) (*Service, *memstore.Store, cache.Store) {
	t.Helper()
	store := memstore.New()
	c := cache.NewMemoryStore()
	svc := NewService(store, p, c, nil, Options{Now: func() time.Time { return testNow }})
	return svc, store, c
}

func TestQuoteFetchesPersistsAndCaches(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{prices: map[string]string{"AAPL": "190.10"}}
	svc, store, _ := newTestService(t, p)

	q, err := svc.Quote(ctx, " aapl ")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Symbol != "AAPL" || q.Price.String() != "190.1" || q.Source != "fake" {
		t.Fatalf("quote = %+v", q)
	}
	row, err := store.StockDataOn(ctx, "AAPL", models.DateOf(testNow))
	if err != nil || !row.Price.Equal(q.Price) {
		t.Fatalf("stored row = %+v, %v", row, err)
	}

	if _, err := svc.Quote(ctx, "AAPL"); err != nil {
		t.Fatalf("second Quote: %v", err)
	}
	if n := p.fetches.Load(); n != 1 {
		t.Fatalf("provider called %d times, want 1", n)
	}
}

func TestQuoteUsesTodaysStoredRow(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{prices: map[string]string{}}
	svc, store, _ := newTestService(t, p)
	_ = store.UpsertStockData(ctx, models.StockData{
		Symbol: "MSFT", Price: decimal.RequireFromString("410.5"), Date: models.DateOf(testNow), UpdatedAt: testNow,
	})

	q, err := svc.Quote(ctx, "MSFT")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Source != SourceStored || q.Price.String() != "410.5" {
		t.Fatalf("quote = %+v", q)
	}
	if p.fetches.Load() != 0 {
		t.Fatalf("provider should not be called")
	}
}

func TestQuotesOmitsFailures(t *testing.T) {
	p := &fakeProvider{prices: map[string]string{"AAPL": "1", "MSFT": "2"}}
	svc, _, _ := newTestService(t, p)

	got := svc.Quotes(context.Background(), []string{"AAPL", "MSFT", "NOPE"})
	if len(got) != 2 {
		t.Fatalf("got %d quotes, want 2", len(got))
	}
	if _, ok := got["NOPE"]; ok {
		t.Fatalf("failed symbol present")
	}
}

func TestChartFetchesWhenTodayMissing(t *testing.T) {
	ctx := context.Background()
	today := models.DateOf(testNow)
	p := &fakeProvider{chart: []models.PricePoint{
		{Date: today.AddDays(-1), Price: decimal.NewFromInt(10)},
		{Date: today, Price: decimal.NewFromInt(11)},
	}}
	svc, store, _ := newTestService(t, p)
	// A stale row from last week is not enough to skip the provider.
	_ = store.UpsertStockData(ctx, models.StockData{Symbol: "AAPL", Price: decimal.NewFromInt(9), Date: today.AddDays(-7)})

	points, err := svc.Chart(ctx, "AAPL", Period1M)
	if err != nil {
		t.Fatalf("Chart: %v", err)
	}
	if len(points) != 2 || p.charts.Load() != 1 {
		t.Fatalf("points = %d, provider calls = %d", len(points), p.charts.Load())
	}
	rows, _ := store.StockDataRange(ctx, "AAPL", today.AddDays(-30), today)
	if len(rows) != 3 {
		t.Fatalf("stored rows = %d, want 3", len(rows))
	}

	// Cached now.
	if _, err := svc.Chart(ctx, "AAPL", Period1M); err != nil || p.charts.Load() != 1 {
		t.Fatalf("second Chart: err=%v calls=%d", err, p.charts.Load())
	}
	// Another period reads the stored rows, which include today.
	if _, err := svc.Chart(ctx, "AAPL", Period1W); err != nil || p.charts.Load() != 1 {
		t.Fatalf("1W Chart: err=%v calls=%d", err, p.charts.Load())
	}
}

func TestChartFallsBackToStoredRows(t *testing.T) {
	ctx := context.Background()
	today := models.DateOf(testNow)
	p := &fakeProvider{fail: true}
	svc, store, _ := newTestService(t, p)

	if _, err := svc.Chart(ctx, "AAPL", Period1M); !errors.Is(err, ErrUpstream) {
		t.Fatalf("Chart with nothing stored: err = %v", err)
	}

	_ = store.UpsertStockData(ctx, models.StockData{Symbol: "AAPL", Price: decimal.NewFromInt(9), Date: today.AddDays(-3)})
	points, err := svc.Chart(ctx, "AAPL", Period1M)
	if err != nil || len(points) != 1 {
		t.Fatalf("Chart = %d points, %v", len(points), err)
	}
}

func TestChartRejectsUnknownPeriod(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeProvider{})
	if _, err := svc.Chart(context.Background(), "AAPL", Period("2W")); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("err = %v", err)
	}
}

func TestChartDownsamples(t *testing.T) {
	today := models.DateOf(testNow)
	var chart []models.PricePoint
	for i := 100; i >= 0; i-- {
		chart = append(chart, models.PricePoint{Date: today.AddDays(-i), Price: decimal.NewFromInt(int64(i))})
	}
	svc, _, _ := newTestService(t, &fakeProvider{chart: chart})
	points, err := svc.Chart(context.Background(), "AAPL", Period1W)
	if err != nil {
		t.Fatalf("Chart: %v", err)
	}
	if len(points) > Period1W.MaxPoints() {
		t.Fatalf("got %d points, max %d", len(points), Period1W.MaxPoints())
	}
}

func TestSearchMergesAndOrders(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{search: []models.SymbolSuggestion{
		{Symbol: "AMD", Name: "Advanced Micro Devices Inc."},
		{Symbol: "AM", Name: "Antero Midstream"},
		{Symbol: "amzn", Name: "Amazon.com Inc."},
	}}
	svc, store, _ := newTestService(t, p)
	if err := svc.SeedCatalog(ctx); err != nil {
		t.Fatalf("SeedCatalog: %v", err)
	}

	got, err := svc.Search(ctx, "am", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	var symbols []string
	for _, s := range got {
		symbols = append(symbols, s.Symbol)
	}
	want := []string{"AM", "AMD", "AMZN"}
	if len(symbols) != len(want) {
		t.Fatalf("symbols = %v, want %v", symbols, want)
	}
	for i := range want {
		if symbols[i] != want[i] {
			t.Fatalf("symbols = %v, want %v", symbols, want)
		}
	}

	// The provider's new symbol is now stored.
	stored, _ := store.SearchSymbols(ctx, "AM", 10)
	found := false
	for _, s := range stored {
		found = found || s.Symbol == "AM"
	}
	if !found {
		t.Fatalf("AM not stored: %+v", stored)
	}
}

func TestSearchLimitsAndBlank(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{fail: true}
	svc, _, _ := newTestService(t, p)
	_ = svc.SeedCatalog(ctx)

	got, err := svc.Search(ctx, "   ", 5)
	if err != nil || len(got) != 0 || got == nil {
		t.Fatalf("blank Search = %v, %v", got, err)
	}

	got, err = svc.Search(ctx, "inc", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	got, err = svc.Search(ctx, "a", 500)
	if err != nil || len(got) > MaxSearchLimit {
		t.Fatalf("Search over max = %d, %v", len(got), err)
	}
}

func TestRefreshAllAndCacheAdmin(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{prices: map[string]string{"AAPL": "190", "MSFT": "410"}}
	store := memstore.New()
	c := cache.NewMemoryStore()
	svc := NewService(store, p, c, nil, Options{Now: func() time.Time { return testNow }})

	user := uuid.New()
	for _, sym := range []string{"AAPL", "MSFT", "GONE"} {
		_ = store.CreatePurchase(ctx, &models.Purchase{
			ID: uuid.New(), UserID: user, Symbol: sym,
			Quantity: decimal.NewFromInt(1), PricePerShare: decimal.NewFromInt(1),
			PurchaseDate: models.NewDate(2024, 1, 2), CreatedAt: testNow,
		})
	}

	quotes, err := svc.RefreshAll(ctx)
	if err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}
	if len(quotes) != 2 || quotes[0].Symbol != "AAPL" || quotes[1].Symbol != "MSFT" {
		t.Fatalf("quotes = %+v", quotes)
	}

	// Second pass reads stored rows.
	if _, err := svc.RefreshAll(ctx); err != nil {
		t.Fatal(err)
	}
	if n := p.fetches.Load(); n != 4 {
		// two successes once, GONE twice
		t.Fatalf("provider fetches = %d, want 4", n)
	}

	stats, err := svc.CacheStats(ctx)
	if err != nil || stats.PriceEntries != 2 {
		t.Fatalf("stats = %+v, %v", stats, err)
	}
	if n, err := svc.ClearCache(ctx); err != nil || n != 2 {
		t.Fatalf("ClearCache = %d, %v", n, err)
	}
	if n, err := svc.CleanupCache(ctx); err != nil || n != 0 {
		t.Fatalf("CleanupCache = %d, %v", n, err)
	}
}
