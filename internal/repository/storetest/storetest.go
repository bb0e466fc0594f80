// Package storetest holds behaviour checks shared by every
// repository.Store backend.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/RamanBirulia/stock-notebook/internal/models"
	"github.com/RamanBirulia/stock-notebook/internal/repository"
)

// Run exercises a fresh store produced by newStore for each subtest.
func Run(t *testing.T, newStore func(t *testing.T) repository.Store) {
	t.Helper()
	tests := []struct {
		name string
		fn   func(t *testing.T, s repository.Store)
	}{
		{"Users", testUsers},
		{"PurchasesScopedToOwner", testPurchaseOwnership},
		{"ListPurchasesFilterAndOrder", testListPurchases},
		{"Symbols", testSymbols},
		{"StockData", testStockData},
		{"DailyValues", testDailyValues},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mustUser(t *testing.T, s repository.Store, name string) models.User {
	t.Helper()
	u := models.User{Username: name, PasswordHash: "hash"}
	if err := s.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("CreateUser(%s): %v", name, err)
	}
	return u
}

func mustPurchase(t *testing.T, s repository.Store, userID uuid.UUID, symbol string, day int, createdAt time.Time) models.Purchase {
	t.Helper()
	p := models.Purchase{
		UserID:        userID,
		Symbol:        symbol,
		Quantity:      dec("2"),
		PricePerShare: dec("10.5"),
		Commission:    dec("1"),
		PurchaseDate:  models.NewDate(2024, time.March, day),
		CreatedAt:     createdAt,
	}
	if err := s.CreatePurchase(context.Background(), &p); err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}
	return p
}

func testUsers(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "alice")
	if u.ID == uuid.Nil {
		t.Fatalf("CreateUser did not assign an id")
	}

	dup := models.User{Username: "alice", PasswordHash: "x"}
	if err := s.CreateUser(ctx, &dup); !errors.Is(err, repository.ErrUsernameTaken) {
		t.Fatalf("duplicate username: err = %v, want ErrUsernameTaken", err)
	}

	got, err := s.UserByUsername(ctx, "alice")
	if err != nil || got.ID != u.ID {
		t.Fatalf("UserByUsername = %+v, %v", got, err)
	}
	if _, err := s.UserByUsername(ctx, "bob"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing user: err = %v, want ErrNotFound", err)
	}

	at := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)
	if err := s.TouchLastLogin(ctx, u.ID, at); err != nil {
		t.Fatalf("TouchLastLogin: %v", err)
	}
	if err := s.UpdatePasswordHash(ctx, u.ID, "new-hash"); err != nil {
		t.Fatalf("UpdatePasswordHash: %v", err)
	}
	got, err = s.UserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("UserByID: %v", err)
	}
	if got.PasswordHash != "new-hash" {
		t.Fatalf("hash = %q, want new-hash", got.PasswordHash)
	}
	if got.LastLogin == nil || !got.LastLogin.Equal(at) {
		t.Fatalf("last login = %v, want %v", got.LastLogin, at)
	}
	if err := s.TouchLastLogin(ctx, uuid.New(), at); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("touch unknown user: err = %v, want ErrNotFound", err)
	}
}

func testPurchaseOwnership(t *testing.T, s repository.Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	p := mustPurchase(t, s, alice.ID, "aapl", 1, time.Time{})

	if p.Symbol != "AAPL" {
		t.Fatalf("symbol = %q, want AAPL", p.Symbol)
	}
	if _, err := s.PurchaseByID(ctx, bob.ID, p.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("foreign read: err = %v, want ErrNotFound", err)
	}

	foreign := p
	foreign.UserID = bob.ID
	if err := s.UpdatePurchase(ctx, &foreign); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("foreign update: err = %v, want ErrNotFound", err)
	}
	if err := s.DeletePurchase(ctx, bob.ID, p.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("foreign delete: err = %v, want ErrNotFound", err)
	}

	p.Quantity = dec("7")
	if err := s.UpdatePurchase(ctx, &p); err != nil {
		t.Fatalf("UpdatePurchase: %v", err)
	}
	got, err := s.PurchaseByID(ctx, alice.ID, p.ID)
	if err != nil {
		t.Fatalf("PurchaseByID: %v", err)
	}
	if !got.Quantity.Equal(dec("7")) || !got.PricePerShare.Equal(dec("10.5")) {
		t.Fatalf("updated purchase = %+v", got)
	}
	if got.PurchaseDate.String() != "2024-03-01" {
		t.Fatalf("purchase date = %s, want 2024-03-01", got.PurchaseDate)
	}

	if err := s.DeletePurchase(ctx, alice.ID, p.ID); err != nil {
		t.Fatalf("DeletePurchase: %v", err)
	}
	if _, err := s.PurchaseByID(ctx, alice.ID, p.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("after delete: err = %v, want ErrNotFound", err)
	}
}

func testListPurchases(t *testing.T, s repository.Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	base := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)

	mustPurchase(t, s, alice.ID, "AAPL", 5, base)
	second := mustPurchase(t, s, alice.ID, "MSFT", 10, base.Add(time.Minute))
	third := mustPurchase(t, s, alice.ID, "AAPL", 10, base.Add(2*time.Minute))
	mustPurchase(t, s, bob.ID, "TSLA", 8, base)

	all, err := s.ListPurchases(ctx, repository.PurchaseFilter{UserID: alice.ID})
	if err != nil {
		t.Fatalf("ListPurchases: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].ID != third.ID || all[1].ID != second.ID {
		t.Fatalf("order = %s,%s,%s; want newest date first, then newest created", all[0].Symbol, all[1].Symbol, all[2].Symbol)
	}

	aapl, _ := s.ListPurchases(ctx, repository.PurchaseFilter{UserID: alice.ID, Symbol: "aapl"})
	if len(aapl) != 2 {
		t.Fatalf("symbol filter len = %d, want 2", len(aapl))
	}

	ranged, _ := s.ListPurchases(ctx, repository.PurchaseFilter{
		UserID: alice.ID,
		From:   models.NewDate(2024, time.March, 6),
		To:     models.NewDate(2024, time.March, 10),
	})
	if len(ranged) != 2 {
		t.Fatalf("range len = %d, want 2", len(ranged))
	}

	limited, _ := s.ListPurchases(ctx, repository.PurchaseFilter{UserID: alice.ID, Limit: 1})
	if len(limited) != 1 || limited[0].ID != third.ID {
		t.Fatalf("limited = %+v, want only the newest", limited)
	}

	syms, err := s.UserSymbols(ctx, alice.ID)
	if err != nil || len(syms) != 2 || syms[0] != "AAPL" || syms[1] != "MSFT" {
		t.Fatalf("UserSymbols = %v, %v", syms, err)
	}
	tracked, _ := s.TrackedSymbols(ctx)
	if len(tracked) != 3 {
		t.Fatalf("TrackedSymbols = %v, want 3 symbols", tracked)
	}
	owners, _ := s.PurchaseOwners(ctx)
	if len(owners) != 2 {
		t.Fatalf("PurchaseOwners = %v, want 2", owners)
	}
}

func testSymbols(t *testing.T, s repository.Store) {
	ctx := context.Background()
	err := s.UpsertSymbols(ctx, []models.StockSymbol{
		{Symbol: "AAPL", Name: "Apple Inc.", Exchange: "NASDAQ", AssetType: "Stock", Status: "Active"},
		{Symbol: "AMD", Name: "Advanced Micro Devices", Exchange: "NASDAQ", AssetType: "Stock", Status: "Active"},
		{Symbol: "MSFT", Name: "Microsoft Corporation", Exchange: "NASDAQ", AssetType: "Stock", Status: "Active"},
	})
	if err != nil {
		t.Fatalf("UpsertSymbols: %v", err)
	}

	got, err := s.SearchSymbols(ctx, "a", 10)
	if err != nil {
		t.Fatalf("SearchSymbols: %v", err)
	}
	if len(got) != 2 || got[0].Symbol != "AAPL" || got[1].Symbol != "AMD" {
		t.Fatalf("prefix search = %+v", got)
	}
	got, _ = s.SearchSymbols(ctx, "micro", 10)
	if len(got) != 2 {
		t.Fatalf("name search = %+v, want AMD and MSFT", got)
	}
	got, _ = s.SearchSymbols(ctx, "a", 1)
	if len(got) != 1 {
		t.Fatalf("limit ignored: %+v", got)
	}
}

func testStockData(t *testing.T, s repository.Store) {
	ctx := context.Background()
	vol := int64(1000)
	rows := []models.StockData{
		{Symbol: "AAPL", Price: dec("100"), Date: models.NewDate(2024, time.March, 1)},
		{Symbol: "AAPL", Price: dec("101"), Date: models.NewDate(2024, time.March, 2), Volume: &vol},
		{Symbol: "AAPL", Price: dec("102"), Date: models.NewDate(2024, time.March, 3)},
		{Symbol: "MSFT", Price: dec("400"), Date: models.NewDate(2024, time.March, 2)},
	}
	if err := s.UpsertStockDataBatch(ctx, rows); err != nil {
		t.Fatalf("UpsertStockDataBatch: %v", err)
	}
	if err := s.UpsertStockData(ctx, models.StockData{Symbol: "AAPL", Price: dec("111"), Date: models.NewDate(2024, time.March, 3)}); err != nil {
		t.Fatalf("UpsertStockData: %v", err)
	}

	row, err := s.StockDataOn(ctx, "AAPL", models.NewDate(2024, time.March, 3))
	if err != nil || !row.Price.Equal(dec("111")) {
		t.Fatalf("StockDataOn = %+v, %v; want overwritten price 111", row, err)
	}
	if _, err := s.StockDataOn(ctx, "AAPL", models.NewDate(2024, time.March, 9)); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing row: err = %v, want ErrNotFound", err)
	}

	got, err := s.StockDataRange(ctx, "AAPL", models.NewDate(2024, time.March, 2), models.NewDate(2024, time.March, 3))
	if err != nil {
		t.Fatalf("StockDataRange: %v", err)
	}
	if len(got) != 2 || got[0].Date.String() != "2024-03-02" || got[1].Date.String() != "2024-03-03" {
		t.Fatalf("range = %+v", got)
	}
	if got[0].Volume == nil || *got[0].Volume != 1000 {
		t.Fatalf("volume not kept: %+v", got[0])
	}
}

func testDailyValues(t *testing.T, s repository.Store) {
	ctx := context.Background()
	user := uuid.New()
	for day, value := range map[int]string{1: "100", 2: "110", 3: "120"} {
		err := s.UpsertDailyValue(ctx, user, models.DailyValue{
			Date:       models.NewDate(2024, time.March, day),
			TotalValue: dec(value),
			TotalSpent: dec("90"),
		})
		if err != nil {
			t.Fatalf("UpsertDailyValue: %v", err)
		}
	}
	err := s.UpsertDailyValue(ctx, user, models.DailyValue{Date: models.NewDate(2024, time.March, 2), TotalValue: dec("115"), TotalSpent: dec("90")})
	if err != nil {
		t.Fatalf("UpsertDailyValue overwrite: %v", err)
	}

	got, err := s.DailyValues(ctx, user, models.NewDate(2024, time.March, 3))
	if err != nil {
		t.Fatalf("DailyValues: %v", err)
	}
	if len(got) != 2 || !got[1].TotalValue.Equal(dec("115")) {
		t.Fatalf("DailyValues = %+v", got)
	}
	other, _ := s.DailyValues(ctx, uuid.New(), models.NewDate(2030, time.January, 1))
	if len(other) != 0 {
		t.Fatalf("foreign values leaked: %+v", other)
	}
}
