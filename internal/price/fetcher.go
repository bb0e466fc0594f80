package price

import (
	"context"
	"hash/crc32"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/RamanBirulia/stock-notebook/internal/models"
)

// Provider abstracts the external market data source.
type Provider interface {
	// Name labels quotes fetched from this provider.
	Name() string
	Fetch(ctx context.Context, symbol string) (decimal.Decimal, error)
	FetchChart(ctx context.Context, symbol string, period Period) ([]models.PricePoint, error)
	Search(ctx context.Context, query string, limit int) ([]models.SymbolSuggestion, error)
}

// RandomFetcher makes up prices for offline development.
type RandomFetcher struct {
	min float64
	max float64
	now func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRandomFetcher(min, max float64) *RandomFetcher {
	return &RandomFetcher{
		min: min,
		max: max,
		now: time.Now,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (f *RandomFetcher) Name() string { return "mock-random" }

func (f *RandomFetcher) Fetch(_ context.Context, symbol string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next(symbol), nil
}

func (f *RandomFetcher) next(symbol string) decimal.Decimal {
	span := f.max - f.min
	value := f.min + f.rnd.Float64()*span
	offset := float64(crc32.ChecksumIEEE([]byte(symbol))%200) / 20.0
	value += offset
	return decimal.NewFromFloat(value).Round(2)
}

// FetchChart returns one point per day of the period's window.
func (f *RandomFetcher) FetchChart(_ context.Context, symbol string, period Period) ([]models.PricePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	from, to := period.Window(models.DateOf(f.now()))
	points := make([]models.PricePoint, 0, period.spec().lookbackDays+1)
	for d := from; !d.After(to); d = d.AddDays(1) {
		points = append(points, models.PricePoint{Date: d, Price: f.next(symbol)})
	}
	return points, nil
}

// Search matches the builtin catalog.
func (f *RandomFetcher) Search(_ context.Context, query string, limit int) ([]models.SymbolSuggestion, error) {
	q := strings.TrimSpace(query)
	out := make([]models.SymbolSuggestion, 0)
	for _, s := range Catalog() {
		if limit > 0 && len(out) >= limit {
			break
		}
		if strings.HasPrefix(strings.ToUpper(s.Symbol), strings.ToUpper(q)) ||
			strings.Contains(strings.ToLower(s.Name), strings.ToLower(q)) {
			out = append(out, s.Suggestion())
		}
	}
	return out, nil
}
