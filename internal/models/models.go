package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

func (u User) Info() UserInfo {
	return UserInfo{ID: u.ID, Username: u.Username, LastLogin: u.LastLogin}
}

type UserInfo struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

type AuthResponse struct {
	User         UserInfo  `json:"user"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Purchase is a single buy transaction owned by a user.
type Purchase struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"userId"`
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	PricePerShare decimal.Decimal `json:"pricePerShare"`
	Commission    decimal.Decimal `json:"commission"`
	PurchaseDate  Date            `json:"purchaseDate"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// TotalCost is quantity × price per share plus commission.
func (p Purchase) TotalCost() decimal.Decimal {
	return p.Quantity.Mul(p.PricePerShare).Add(p.Commission)
}

type PriceQuote struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Source string          `json:"source"`
	AsOf   time.Time       `json:"asOf"`
}

type PricePoint struct {
	Date   Date            `json:"date"`
	Price  decimal.Decimal `json:"price"`
	Volume *int64          `json:"volume,omitempty"`
}

type PurchasePoint struct {
	Date  Date            `json:"date"`
	Price decimal.Decimal `json:"price"`
}

type ChartData struct {
	Symbol         string          `json:"symbol"`
	Period         string          `json:"period"`
	PriceData      []PricePoint    `json:"priceData"`
	PurchasePoints []PurchasePoint `json:"purchasePoints"`
}

// StockData is one stored daily price row for a symbol.
type StockData struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Volume    *int64          `json:"volume,omitempty"`
	Date      Date            `json:"date"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type StockSymbol struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	Exchange  string `json:"exchange"`
	AssetType string `json:"assetType"`
	IPODate   string `json:"ipoDate,omitempty"`
	Status    string `json:"status"`
}

func (s StockSymbol) Suggestion() SymbolSuggestion {
	return SymbolSuggestion{Symbol: s.Symbol, Name: s.Name, Exchange: s.Exchange, AssetType: s.AssetType}
}

type SymbolSuggestion struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	Exchange  string `json:"exchange"`
	AssetType string `json:"assetType"`
}

// Position is derived from all purchases of one symbol; it is never stored.
type Position struct {
	Symbol               string          `json:"symbol"`
	TotalQuantity        decimal.Decimal `json:"totalQuantity"`
	AveragePrice         decimal.Decimal `json:"averagePrice"`
	TotalSpent           decimal.Decimal `json:"totalSpent"`
	TotalCommission      decimal.Decimal `json:"totalCommission"`
	CurrentPrice         decimal.Decimal `json:"currentPrice"`
	CurrentValue         decimal.Decimal `json:"currentValue"`
	ProfitLoss           decimal.Decimal `json:"profitLoss"`
	ProfitLossPercentage decimal.Decimal `json:"profitLossPercentage"`
	PriceAvailable       bool            `json:"priceAvailable"`
	PriceAsOf            *time.Time      `json:"priceAsOf,omitempty"`
	PurchaseCount        int             `json:"purchaseCount"`
	FirstPurchaseDate    Date            `json:"firstPurchaseDate"`
	LastPurchaseDate     Date            `json:"lastPurchaseDate"`
}

type PortfolioSummary struct {
	Positions            []Position      `json:"positions"`
	TotalSpent           decimal.Decimal `json:"totalSpent"`
	TotalValue           decimal.Decimal `json:"totalValue"`
	ProfitLoss           decimal.Decimal `json:"profitLoss"`
	ProfitLossPercentage decimal.Decimal `json:"profitLossPercentage"`
	PositionCount        int             `json:"positionCount"`
	PurchaseCount        int             `json:"purchaseCount"`
	MissingPrices        []string        `json:"missingPrices"`
	LastUpdated          time.Time       `json:"lastUpdated"`
}

type StockDetails struct {
	Symbol    string     `json:"symbol"`
	Purchases []Purchase `json:"purchases"`
	Position  Position   `json:"position"`
}

// DailyValue is a stored end-of-day valuation of one user's portfolio.
type DailyValue struct {
	Date       Date            `json:"date"`
	TotalValue decimal.Decimal `json:"totalValue"`
	TotalSpent decimal.Decimal `json:"totalSpent"`
}

type CacheStats struct {
	PriceEntries  int       `json:"priceCacheEntries"`
	ChartEntries  int       `json:"chartCacheEntries"`
	SymbolEntries int       `json:"symbolCacheEntries"`
	Timestamp     time.Time `json:"timestamp"`
}
