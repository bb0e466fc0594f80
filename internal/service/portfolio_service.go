package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RamanBirulia/stock-notebook/internal/models"
	"github.com/RamanBirulia/stock-notebook/internal/portfolio"
	"github.com/RamanBirulia/stock-notebook/internal/price"
	"github.com/RamanBirulia/stock-notebook/internal/repository"
)

// Prices is what the portfolio needs from the price service.
type Prices interface {
	Quotes(ctx context.Context, symbols []string) map[string]models.PriceQuote
	Chart(ctx context.Context, symbol string, period price.Period) ([]models.PricePoint, error)
}

type PortfolioStore interface {
	ListPurchases(ctx context.Context, f repository.PurchaseFilter) ([]models.Purchase, error)
	repository.HoldingStore
}

type PortfolioService struct {
	store  PortfolioStore
	prices Prices
	log    *zap.Logger
	now    func() time.Time
}

func NewPortfolioService(store PortfolioStore, prices Prices, log *zap.Logger) *PortfolioService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PortfolioService{store: store, prices: prices, log: log, now: time.Now}
}

// Summary values every position the user holds at current prices.
func (s *PortfolioService) Summary(ctx context.Context, userID uuid.UUID) (models.PortfolioSummary, error) {
	purchases, err := s.store.ListPurchases(ctx, repository.PurchaseFilter{UserID: userID})
	if err != nil {
		return models.PortfolioSummary{}, storeErr("portfolio", err)
	}
	return s.aggregate(ctx, purchases), nil
}

// StockDetails returns the user's purchases of one symbol with the
// resulting position. A symbol the user never bought is ErrNotFound.
func (s *PortfolioService) StockDetails(ctx context.Context, userID uuid.UUID, symbol string) (models.StockDetails, error) {
	symbol = models.NormalizeSymbol(symbol)
	purchases, err := s.store.ListPurchases(ctx, repository.PurchaseFilter{UserID: userID, Symbol: symbol})
	if err != nil {
		return models.StockDetails{}, storeErr("stock details", err)
	}
	if len(purchases) == 0 {
		return models.StockDetails{}, fmt.Errorf("no purchases of %s: %w", symbol, ErrNotFound)
	}
	summary := s.aggregate(ctx, purchases)
	return models.StockDetails{
		Symbol:    symbol,
		Purchases: purchases,
		Position:  summary.Positions[0],
	}, nil
}

// Chart combines the price series with the user's own buys of symbol.
func (s *PortfolioService) Chart(ctx context.Context, userID uuid.UUID, symbol string, period price.Period) (models.ChartData, error) {
	symbol = models.NormalizeSymbol(symbol)
	series, err := s.prices.Chart(ctx, symbol, period)
	if err != nil {
		return models.ChartData{}, err
	}
	purchases, err := s.store.ListPurchases(ctx, repository.PurchaseFilter{UserID: userID, Symbol: symbol})
	if err != nil {
		return models.ChartData{}, storeErr("chart purchases", err)
	}

	points := make([]models.PurchasePoint, 0, len(purchases))
	for i := len(purchases) - 1; i >= 0; i-- {
		points = append(points, models.PurchasePoint{Date: purchases[i].PurchaseDate, Price: purchases[i].PricePerShare})
	}
	if series == nil {
		series = []models.PricePoint{}
	}
	return models.ChartData{
		Symbol:         symbol,
		Period:         string(period),
		PriceData:      series,
		PurchasePoints: points,
	}, nil
}

// History lists stored end of day valuations before today.
func (s *PortfolioService) History(ctx context.Context, userID uuid.UUID) ([]models.DailyValue, error) {
	values, err := s.store.DailyValues(ctx, userID, models.DateOf(s.now()))
	if err != nil {
		return nil, storeErr("history", err)
	}
	if values == nil {
		values = []models.DailyValue{}
	}
	return values, nil
}

// Snapshot stores the user's current valuation for day.
func (s *PortfolioService) Snapshot(ctx context.Context, userID uuid.UUID, day models.Date) (models.DailyValue, error) {
	summary, err := s.Summary(ctx, userID)
	if err != nil {
		return models.DailyValue{}, err
	}
	if len(summary.Positions) > 0 && len(summary.MissingPrices) == len(summary.Positions) {
		return models.DailyValue{}, ErrNoPrices
	}
	v := models.DailyValue{Date: day, TotalValue: summary.TotalValue.Round(2), TotalSpent: summary.TotalSpent.Round(2)}
	if err := s.store.UpsertDailyValue(ctx, userID, v); err != nil {
		return models.DailyValue{}, storeErr("snapshot", err)
	}
	if len(summary.MissingPrices) > 0 {
		s.log.Warn("snapshot taken with missing prices",
			zap.String("user_id", userID.String()), zap.Strings("symbols", summary.MissingPrices))
	}
	return v, nil
}

func (s *PortfolioService) aggregate(ctx context.Context, purchases []models.Purchase) models.PortfolioSummary {
	seen := make(map[string]bool)
	symbols := make([]string, 0)
	for _, p := range purchases {
		sym := models.NormalizeSymbol(p.Symbol)
		if !seen[sym] {
			seen[sym] = true
			symbols = append(symbols, sym)
		}
	}
	var quotes map[string]models.PriceQuote
	if len(symbols) > 0 {
		quotes = s.prices.Quotes(ctx, symbols)
	}
	summary := portfolio.Aggregate(purchases, quotes)
	summary.LastUpdated = s.now().UTC()
	return summary
}
