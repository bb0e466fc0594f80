// Package repository defines the persistence contracts. Backends live in
// the memstore, mongostore and pgstore subpackages.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/RamanBirulia/stock-notebook/internal/models"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrUsernameTaken = errors.New("username already taken")
)

// PurchaseFilter narrows ListPurchases. Zero fields are ignored; From and
// To are inclusive.
type PurchaseFilter struct {
	UserID uuid.UUID
	Symbol string
	From   models.Date
	To     models.Date
	Limit  int
}

// Match reports whether p passes the filter, ignoring Limit.
func (f PurchaseFilter) Match(p models.Purchase) bool {
	if f.UserID != uuid.Nil && p.UserID != f.UserID {
		return false
	}
	if f.Symbol != "" && p.Symbol != models.NormalizeSymbol(f.Symbol) {
		return false
	}
	if !f.From.IsZero() && p.PurchaseDate.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && p.PurchaseDate.After(f.To) {
		return false
	}
	return true
}

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByID(ctx context.Context, id uuid.UUID) (models.User, error)
	UserByUsername(ctx context.Context, username string) (models.User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

// PurchaseStore keeps purchase records. Reads and writes that take a
// userID only see that user's purchases.
type PurchaseStore interface {
	CreatePurchase(ctx context.Context, p *models.Purchase) error
	PurchaseByID(ctx context.Context, userID, id uuid.UUID) (models.Purchase, error)
	UpdatePurchase(ctx context.Context, p *models.Purchase) error
	DeletePurchase(ctx context.Context, userID, id uuid.UUID) error
	// ListPurchases orders by purchase date then creation time, newest first.
	ListPurchases(ctx context.Context, f PurchaseFilter) ([]models.Purchase, error)
	UserSymbols(ctx context.Context, userID uuid.UUID) ([]string, error)
	TrackedSymbols(ctx context.Context) ([]string, error)
	PurchaseOwners(ctx context.Context) ([]uuid.UUID, error)
}

// StockDataStore keeps one price row per symbol and day.
type StockDataStore interface {
	UpsertStockData(ctx context.Context, row models.StockData) error
	UpsertStockDataBatch(ctx context.Context, rows []models.StockData) error
	StockDataOn(ctx context.Context, symbol string, date models.Date) (models.StockData, error)
	// StockDataRange returns rows with from <= date <= to, oldest first.
	StockDataRange(ctx context.Context, symbol string, from, to models.Date) ([]models.StockData, error)
}

type SymbolStore interface {
	UpsertSymbols(ctx context.Context, symbols []models.StockSymbol) error
	// SearchSymbols matches a symbol prefix or a name substring, ignoring
	// case, ordered by symbol.
	SearchSymbols(ctx context.Context, query string, limit int) ([]models.StockSymbol, error)
}

// HoldingStore keeps end of day portfolio valuations.
type HoldingStore interface {
	UpsertDailyValue(ctx context.Context, userID uuid.UUID, v models.DailyValue) error
	// DailyValues returns values strictly before the given day, oldest first.
	DailyValues(ctx context.Context, userID uuid.UUID, before models.Date) ([]models.DailyValue, error)
}

type Store interface {
	UserStore
	PurchaseStore
	StockDataStore
	SymbolStore
	HoldingStore

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
