// Package memstore is an in-process repository.Store used by tests and
// local development (DATABASE_URL=memory://).
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RamanBirulia/stock-notebook/internal/models"
	"github.com/RamanBirulia/stock-notebook/internal/repository"
)

type stockKey struct {
	symbol string
	date   models.Date
}

type holdingKey struct {
	userID uuid.UUID
	date   models.Date
}

type Store struct {
	mu        sync.RWMutex
	users     map[uuid.UUID]models.User
	usernames map[string]uuid.UUID
	purchases map[uuid.UUID]models.Purchase
	stock     map[stockKey]models.StockData
	symbols   map[string]models.StockSymbol
	holdings  map[holdingKey]models.DailyValue
	now       func() time.Time
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:     make(map[uuid.UUID]models.User),
		usernames: make(map[string]uuid.UUID),
		purchases: make(map[uuid.UUID]models.Purchase),
		stock:     make(map[stockKey]models.StockData),
		symbols:   make(map[string]models.StockSymbol),
		holdings:  make(map[holdingKey]models.DailyValue),
		now:       time.Now,
	}
}

func (s *Store) Ping(context.Context) error  { return nil }
func (s *Store) Close(context.Context) error { return nil }

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.Username)
	if _, taken := s.usernames[key]; taken {
		return repository.ErrUsernameTaken
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	s.users[u.ID] = *u
	s.usernames[key] = u.ID
	return nil
}

func (s *Store) UserByID(_ context.Context, id uuid.UUID) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *Store) UserByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernames[strings.ToLower(username)]
	if !ok {
		return models.User{}, repository.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	at = at.UTC()
	u.LastLogin = &at
	s.users[id] = u
	return nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	s.users[id] = u
	return nil
}

func (s *Store) CreatePurchase(_ context.Context, p *models.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	p.Symbol = models.NormalizeSymbol(p.Symbol)
	s.purchases[p.ID] = *p
	return nil
}

func (s *Store) PurchaseByID(_ context.Context, userID, id uuid.UUID) (models.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.purchases[id]
	if !ok || p.UserID != userID {
		return models.Purchase{}, repository.ErrNotFound
	}
	return p, nil
}

func (s *Store) UpdatePurchase(_ context.Context, p *models.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.purchases[p.ID]
	if !ok || cur.UserID != p.UserID {
		return repository.ErrNotFound
	}
	p.CreatedAt = cur.CreatedAt
	p.Symbol = models.NormalizeSymbol(p.Symbol)
	s.purchases[p.ID] = *p
	return nil
}

func (s *Store) DeletePurchase(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.purchases[id]
	if !ok || p.UserID != userID {
		return repository.ErrNotFound
	}
	delete(s.purchases, id)
	return nil
}

func (s *Store) ListPurchases(_ context.Context, f repository.PurchaseFilter) ([]models.Purchase, error) {
	s.mu.RLock()
	out := make([]models.Purchase, 0)
	for _, p := range s.purchases {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	s.mu.RUnlock()

	repository.SortPurchases(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) UserSymbols(_ context.Context, userID uuid.UUID) ([]string, error) {
	return s.distinctSymbols(func(p models.Purchase) bool { return p.UserID == userID }), nil
}

func (s *Store) TrackedSymbols(context.Context) ([]string, error) {
	return s.distinctSymbols(func(models.Purchase) bool { return true }), nil
}

func (s *Store) distinctSymbols(keep func(models.Purchase) bool) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, p := range s.purchases {
		if keep(p) {
			seen[p.Symbol] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for sym := range seen {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func (s *Store) PurchaseOwners(context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[uuid.UUID]struct{})
	for _, p := range s.purchases {
		seen[p.UserID] = struct{}{}
	}
	out := make([]uuid.UUID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (s *Store) UpsertStockData(ctx context.Context, row models.StockData) error {
	return s.UpsertStockDataBatch(ctx, []models.StockData{row})
}

func (s *Store) UpsertStockDataBatch(_ context.Context, rows []models.StockData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		row.Symbol = models.NormalizeSymbol(row.Symbol)
		if row.UpdatedAt.IsZero() {
			row.UpdatedAt = s.now().UTC()
		}
		s.stock[stockKey{row.Symbol, row.Date}] = row
	}
	return nil
}

func (s *Store) StockDataOn(_ context.Context, symbol string, date models.Date) (models.StockData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.stock[stockKey{models.NormalizeSymbol(symbol), date}]
	if !ok {
		return models.StockData{}, repository.ErrNotFound
	}
	return row, nil
}

func (s *Store) StockDataRange(_ context.Context, symbol string, from, to models.Date) ([]models.StockData, error) {
	symbol = models.NormalizeSymbol(symbol)
	s.mu.RLock()
	out := make([]models.StockData, 0)
	for k, row := range s.stock {
		if k.symbol != symbol || k.date.Before(from) || k.date.After(to) {
			continue
		}
		out = append(out, row)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) UpsertSymbols(_ context.Context, symbols []models.StockSymbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sym := range symbols {
		sym.Symbol = models.NormalizeSymbol(sym.Symbol)
		s.symbols[sym.Symbol] = sym
	}
	return nil
}

func (s *Store) SearchSymbols(_ context.Context, query string, limit int) ([]models.StockSymbol, error) {
	s.mu.RLock()
	out := make([]models.StockSymbol, 0)
	for _, sym := range s.symbols {
		if repository.MatchSymbol(sym, query) {
			out = append(out, sym)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpsertDailyValue(_ context.Context, userID uuid.UUID, v models.DailyValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holdings[holdingKey{userID, v.Date}] = v
	return nil
}

func (s *Store) DailyValues(_ context.Context, userID uuid.UUID, before models.Date) ([]models.DailyValue, error) {
	s.mu.RLock()
	out := make([]models.DailyValue, 0)
	for k, v := range s.holdings {
		if k.userID == userID && k.date.Before(before) {
			out = append(out, v)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
