package price

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/RamanBirulia/stock-notebook/internal/cache"
	"github.com/RamanBirulia/stock-notebook/internal/models"
	"github.com/RamanBirulia/stock-notebook/internal/repository"
)

const (
	SourceStored = "stored"

	DefaultSearchLimit = 10
	MaxSearchLimit     = 50

	keyPrice   = "price:"
	keyChart   = "chart:"
	keySymbols = "symbols:"
)

// Store is the slice of persistence the price service needs.
type Store interface {
	repository.StockDataStore
	repository.SymbolStore
	TrackedSymbols(ctx context.Context) ([]string, error)
}

type Options struct {
	PriceTTL    time.Duration
	ChartTTL    time.Duration
	SymbolTTL   time.Duration
	Concurrency int
	Now         func() time.Time
}

func (o Options) withDefaults() Options {
	if o.PriceTTL <= 0 {
		o.PriceTTL = 5 * time.Minute
	}
	if o.ChartTTL <= 0 {
		o.ChartTTL = 30 * time.Minute
	}
	if o.SymbolTTL <= 0 {
		o.SymbolTTL = 24 * time.Hour
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type Service struct {
	store    Store
	provider Provider
	cache    cache.Store
	log      *zap.Logger
	opts     Options

	flight singleflight.Group
}

func NewService(store Store, provider Provider, c cache.Store, log *zap.Logger, opts Options) *Service {
	if c == nil {
		c = cache.NewMemoryStore()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    store,
		provider: provider,
		cache:    c,
		log:      log,
		opts:     opts.withDefaults(),
	}
}

func (s *Service) today() models.Date { return models.DateOf(s.opts.Now()) }

// Quote returns the current price for symbol: cache, then today's stored
// row, then the provider. Fresh provider quotes are stored for today.
func (s *Service) Quote(ctx context.Context, symbol string) (models.PriceQuote, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return models.PriceQuote{}, ErrNoQuote
	}

	var quote models.PriceQuote
	key := keyPrice + symbol
	if ok, err := cache.GetJSON(ctx, s.cache, key, &quote); err != nil {
		s.log.Warn("price cache read failed", zap.String("symbol", symbol), zap.Error(err))
	} else if ok {
		return quote, nil
	}

	row, err := s.store.StockDataOn(ctx, symbol, s.today())
	switch {
	case err == nil:
		quote = models.PriceQuote{Symbol: symbol, Price: row.Price, Source: SourceStored, AsOf: row.UpdatedAt}
	case errors.Is(err, repository.ErrNotFound):
		quote, err = s.fetchAndPersist(ctx, symbol)
		if err != nil {
			return models.PriceQuote{}, err
		}
	default:
		s.log.Warn("stock data read failed", zap.String("symbol", symbol), zap.Error(err))
		quote, err = s.fetchAndPersist(ctx, symbol)
		if err != nil {
			return models.PriceQuote{}, err
		}
	}

	s.cacheSet(ctx, key, quote, s.opts.PriceTTL)
	return quote, nil
}

// Quotes looks up several symbols concurrently. Symbols that fail are
// logged and left out of the result.
func (s *Service) Quotes(ctx context.Context, symbols []string) map[string]models.PriceQuote {
	var (
		mu  sync.Mutex
		out = make(map[string]models.PriceQuote, len(symbols))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for _, symbol := range symbols {
		symbol := models.NormalizeSymbol(symbol)
		g.Go(func() error {
			q, err := s.Quote(gctx, symbol)
			if err != nil {
				s.log.Warn("quote unavailable", zap.String("symbol", symbol), zap.Error(err))
				return nil
			}
			mu.Lock()
			out[symbol] = q
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Service) fetchAndPersist(ctx context.Context, symbol string) (models.PriceQuote, error) {
	if s.provider == nil {
		return models.PriceQuote{}, errors.New("no price provider configured")
	}
	v, err, _ := s.flight.Do(keyPrice+symbol, func() (any, error) {
		price, err := s.provider.Fetch(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", symbol, err)
		}
		now := s.opts.Now().UTC()
		row := models.StockData{Symbol: symbol, Price: price, Date: models.DateOf(now), UpdatedAt: now}
		if err := s.store.UpsertStockData(ctx, row); err != nil {
			s.log.Warn("stock data write failed", zap.String("symbol", symbol), zap.Error(err))
		}
		return models.PriceQuote{Symbol: symbol, Price: price, Source: s.provider.Name(), AsOf: now}, nil
	})
	if err != nil {
		return models.PriceQuote{}, err
	}
	return v.(models.PriceQuote), nil
}

// Chart returns the price series for symbol over period. Stored rows are
// used when they already include today; otherwise the provider is asked
// and its series stored. When the provider fails, whatever is stored is
// returned instead.
func (s *Service) Chart(ctx context.Context, symbol string, period Period) ([]models.PricePoint, error) {
	symbol = models.NormalizeSymbol(symbol)
	if _, ok := periods[period]; !ok {
		return nil, fmt.Errorf("%w %q", ErrInvalidPeriod, period)
	}

	var points []models.PricePoint
	key := keyChart + symbol + ":" + string(period)
	if ok, err := cache.GetJSON(ctx, s.cache, key, &points); err != nil {
		s.log.Warn("chart cache read failed", zap.String("symbol", symbol), zap.Error(err))
	} else if ok {
		return points, nil
	}

	today := s.today()
	from, to := period.Window(today)
	rows, err := s.store.StockDataRange(ctx, symbol, from, to)
	if err != nil {
		s.log.Warn("stock data range failed", zap.String("symbol", symbol), zap.Error(err))
		rows = nil
	}

	if hasDay(rows, today) {
		points = rowsToPoints(rows)
	} else {
		points, err = s.fetchChart(ctx, symbol, period)
		if err != nil {
			if len(rows) == 0 {
				return nil, err
			}
			s.log.Warn("chart provider failed, serving stored rows",
				zap.String("symbol", symbol), zap.String("period", string(period)), zap.Error(err))
			points = rowsToPoints(rows)
		}
	}

	points = Downsample(points, period.MaxPoints())
	s.cacheSet(ctx, key, points, s.opts.ChartTTL)
	return points, nil
}

func (s *Service) fetchChart(ctx context.Context, symbol string, period Period) ([]models.PricePoint, error) {
	if s.provider == nil {
		return nil, errors.New("no price provider configured")
	}
	v, err, _ := s.flight.Do(keyChart+symbol+":"+string(period), func() (any, error) {
		points, err := s.provider.FetchChart(ctx, symbol, period)
		if err != nil {
			return nil, fmt.Errorf("chart %s: %w", symbol, err)
		}
		now := s.opts.Now().UTC()
		rows := make([]models.StockData, 0, len(points))
		for _, p := range points {
			rows = append(rows, models.StockData{Symbol: symbol, Price: p.Price, Volume: p.Volume, Date: p.Date, UpdatedAt: now})
		}
		if len(rows) > 0 {
			if err := s.store.UpsertStockDataBatch(ctx, rows); err != nil {
				s.log.Warn("stock data batch write failed", zap.String("symbol", symbol), zap.Error(err))
			}
		}
		return points, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.PricePoint), nil
}

func hasDay(rows []models.StockData, day models.Date) bool {
	for _, r := range rows {
		if r.Date.Equal(day) {
			return true
		}
	}
	return false
}

func rowsToPoints(rows []models.StockData) []models.PricePoint {
	out := make([]models.PricePoint, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.PricePoint{Date: r.Date, Price: r.Price, Volume: r.Volume})
	}
	return out
}

// Search suggests symbols for query. Stored symbols come first; the
// provider fills up to limit. An exact symbol match sorts first.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.SymbolSuggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.SymbolSuggestion{}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	var out []models.SymbolSuggestion
	key := keySymbols + strings.ToLower(query) + ":" + strconv.Itoa(limit)
	if ok, err := cache.GetJSON(ctx, s.cache, key, &out); err != nil {
		s.log.Warn("symbol cache read failed", zap.Error(err))
	} else if ok {
		return out, nil
	}

	stored, err := s.store.SearchSymbols(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search symbols: %w", err)
	}
	seen := make(map[string]bool, limit)
	out = make([]models.SymbolSuggestion, 0, limit)
	for _, sym := range stored {
		seen[models.NormalizeSymbol(sym.Symbol)] = true
		out = append(out, sym.Suggestion())
	}

	if len(out) < limit && s.provider != nil {
		remote, err := s.provider.Search(ctx, query, limit-len(out))
		if err != nil {
			s.log.Warn("provider symbol search failed", zap.String("query", query), zap.Error(err))
		}
		var fresh []models.StockSymbol
		for _, r := range remote {
			sym := models.NormalizeSymbol(r.Symbol)
			if sym == "" || seen[sym] || len(out) >= limit {
				continue
			}
			seen[sym] = true
			r.Symbol = sym
			out = append(out, r)
			fresh = append(fresh, models.StockSymbol{
				Symbol: sym, Name: r.Name, Exchange: r.Exchange, AssetType: r.AssetType, Status: "Active",
			})
		}
		if len(fresh) > 0 {
			if err := s.store.UpsertSymbols(ctx, fresh); err != nil {
				s.log.Warn("symbol write failed", zap.Error(err))
			}
		}
	}

	exact := models.NormalizeSymbol(query)
	sort.SliceStable(out, func(i, j int) bool {
		ei, ej := out[i].Symbol == exact, out[j].Symbol == exact
		if ei != ej {
			return ei
		}
		return out[i].Symbol < out[j].Symbol
	})

	s.cacheSet(ctx, key, out, s.opts.SymbolTTL)
	return out, nil
}

// SeedCatalog stores the builtin symbol list.
func (s *Service) SeedCatalog(ctx context.Context) error {
	return s.store.UpsertSymbols(ctx, Catalog())
}

// RefreshAll fetches today's price for every tracked symbol that does not
// have one yet. Failures are logged; the quotes that succeeded are
// returned.
func (s *Service) RefreshAll(ctx context.Context) ([]models.PriceQuote, error) {
	symbols, err := s.store.TrackedSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("tracked symbols: %w", err)
	}

	today := s.today()
	var (
		mu     sync.Mutex
		quotes = make([]models.PriceQuote, 0, len(symbols))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for _, symbol := range symbols {
		symbol := models.NormalizeSymbol(symbol)
		g.Go(func() error {
			var q models.PriceQuote
			row, err := s.store.StockDataOn(gctx, symbol, today)
			if err == nil {
				q = models.PriceQuote{Symbol: symbol, Price: row.Price, Source: SourceStored, AsOf: row.UpdatedAt}
			} else {
				q, err = s.fetchAndPersist(gctx, symbol)
				if err != nil {
					s.log.Warn("price refresh failed", zap.String("symbol", symbol), zap.Error(err))
					return nil
				}
				s.cacheSet(gctx, keyPrice+symbol, q, s.opts.PriceTTL)
			}
			mu.Lock()
			quotes = append(quotes, q)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Symbol < quotes[j].Symbol })
	return quotes, nil
}

func (s *Service) CacheStats(ctx context.Context) (models.CacheStats, error) {
	stats := models.CacheStats{Timestamp: s.opts.Now().UTC()}
	var err error
	if stats.PriceEntries, err = s.cache.Count(ctx, keyPrice); err != nil {
		return stats, err
	}
	if stats.ChartEntries, err = s.cache.Count(ctx, keyChart); err != nil {
		return stats, err
	}
	if stats.SymbolEntries, err = s.cache.Count(ctx, keySymbols); err != nil {
		return stats, err
	}
	return stats, nil
}

// ClearCache drops every cached entry and returns how many were removed.
func (s *Service) ClearCache(ctx context.Context) (int, error) {
	return s.cache.DeletePrefix(ctx, "")
}

func (s *Service) CleanupCache(ctx context.Context) (int, error) {
	return s.cache.Cleanup(ctx)
}

func (s *Service) cacheSet(ctx context.Context, key string, v any, ttl time.Duration) {
	if err := cache.SetJSON(ctx, s.cache, key, v, ttl); err != nil {
		s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
