package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/RamanBirulia/stock-notebook/internal/auth"
	"github.com/RamanBirulia/stock-notebook/internal/models"
	"github.com/RamanBirulia/stock-notebook/internal/price"
	"github.com/RamanBirulia/stock-notebook/internal/repository/memstore"
	"github.com/RamanBirulia/stock-notebook/internal/validate"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func init() { auth.Cost = bcrypt.MinCost }

func clock() time.Time { return testNow }

func testTokens() auth.JWT {
	return auth.JWT{
		Secret:     []byte("service-test-secret-123"),
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
		Now:        clock,
	}
}

type fakePrices struct {
	quotes map[string]models.PriceQuote
	chart  []models.PricePoint
	err    error
}

func (f fakePrices) Quotes(_ context.Context, symbols []string) map[string]models.PriceQuote {
	out := make(map[string]models.PriceQuote)
	for _, s := range symbols {
		if q, ok := f.quotes[s]; ok {
			out[s] = q
		}
	}
	return out
}

func (f fakePrices) Chart(context.Context, string, price.Period) ([]models.PricePoint, error) {
	return f.chart, f.err
}

func quote(symbol, p string) models.PriceQuote {
	return models.PriceQuote{Symbol: symbol, Price: decimal.RequireFromString(p), Source: "test", AsOf: testNow}
}

func purchaseInput(symbol, qty, px string, day models.Date) validate.PurchaseInput {
	return validate.PurchaseInput{
		Symbol:        symbol,
		Quantity:      decimal.RequireFromString(qty),
		PricePerShare: decimal.RequireFromString(px),
		PurchaseDate:  day,
	}
}

func newPurchases(store *memstore.Store) *PurchaseService {
	s := NewPurchaseService(store, validate.New(clock), nil)
	s.now = clock
	return s
}

func TestAuthRegisterLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(memstore.New(), testTokens(), validate.New(clock), nil)

	resp, err := svc.Register(ctx, validate.RegisterInput{Username: " Alice ", Password: "secret1", ConfirmPassword: "secret1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.User.Username != "alice" || resp.Token == "" || resp.RefreshToken == "" {
		t.Fatalf("resp = %+v", resp)
	}
	if !resp.ExpiresAt.Equal(testNow.Add(time.Hour)) {
		t.Fatalf("expiresAt = %v", resp.ExpiresAt)
	}

	if _, err := svc.Register(ctx, validate.RegisterInput{Username: "alice", Password: "another"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate Register err = %v, want ErrConflict", err)
	}
	if _, err := svc.Register(ctx, validate.RegisterInput{Username: "al", Password: "x"}); !validate.IsValidation(err) {
		t.Fatalf("short Register err = %v, want validation", err)
	}

	login, err := svc.Login(ctx, validate.LoginInput{Username: "ALICE", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.User.LastLogin == nil {
		t.Fatalf("last login not set")
	}
	for _, in := range []validate.LoginInput{
		{Username: "alice", Password: "wrong"},
		{Username: "nobody", Password: "secret1"},
	} {
		if _, err := svc.Login(ctx, in); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("Login(%s) err = %v, want ErrUnauthorized", in.Username, err)
		}
	}

	me, err := svc.Me(ctx, resp.User.ID)
	if err != nil || me.Username != "alice" {
		t.Fatalf("Me = %+v, %v", me, err)
	}
	if _, err := svc.Me(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Me(unknown) err = %v", err)
	}
}

func TestAuthRefreshAndChangePassword(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(memstore.New(), testTokens(), validate.New(clock), nil)
	resp, err := svc.Register(ctx, validate.RegisterInput{Username: "bob", Password: "secret1"})
	if err != nil {
		t.Fatal(err)
	}

	again, err := svc.Refresh(ctx, resp.RefreshToken)
	if err != nil || again.Token == "" {
		t.Fatalf("Refresh = %+v, %v", again, err)
	}
	if _, err := svc.Refresh(ctx, resp.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Refresh(access token) err = %v", err)
	}

	err = svc.ChangePassword(ctx, resp.User.ID, validate.ChangePasswordInput{CurrentPassword: "nope12", NewPassword: "secret2"})
	if !validate.IsValidation(err) {
		t.Fatalf("wrong current password err = %v", err)
	}
	err = svc.ChangePassword(ctx, resp.User.ID, validate.ChangePasswordInput{CurrentPassword: "secret1", NewPassword: "secret2", ConfirmPassword: "secret2"})
	if err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := svc.Login(ctx, validate.LoginInput{Username: "bob", Password: "secret1"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("old password still accepted: %v", err)
	}
	if _, err := svc.Login(ctx, validate.LoginInput{Username: "bob", Password: "secret2"}); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}

func TestPurchaseLifecycle(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := newPurchases(store)
	alice, bob := uuid.New(), uuid.New()

	p, err := svc.Create(ctx, alice, purchaseInput(" aapl", "10", "150.00", models.NewDate(2024, 1, 2)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Symbol != "AAPL" || !p.Commission.IsZero() || !p.CreatedAt.Equal(testNow) {
		t.Fatalf("purchase = %+v", p)
	}

	if _, err := svc.Create(ctx, alice, purchaseInput("AAPL", "0", "150", models.NewDate(2024, 1, 2))); !validate.IsValidation(err) {
		t.Fatalf("zero quantity err = %v", err)
	}
	if _, err := svc.Create(ctx, alice, purchaseInput("AAPL", "1", "150", models.NewDate(2024, 7, 1))); !validate.IsValidation(err) {
		t.Fatalf("future date err = %v", err)
	}

	if _, err := svc.Get(ctx, bob, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get by other user err = %v", err)
	}
	if err := svc.Delete(ctx, bob, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete by other user err = %v", err)
	}

	upd, err := svc.Update(ctx, alice, p.ID, purchaseInput("MSFT", "5", "300", models.NewDate(2024, 2, 1)))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if upd.ID != p.ID || upd.Symbol != "MSFT" || !upd.CreatedAt.Equal(p.CreatedAt) {
		t.Fatalf("updated = %+v", upd)
	}

	if err := svc.Delete(ctx, alice, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	list, err := svc.List(ctx, alice)
	if err != nil || list == nil || len(list) != 0 {
		t.Fatalf("List after delete = %v, %v", list, err)
	}
}

func TestPurchaseQueries(t *testing.T) {
	ctx := context.Background()
	svc := newPurchases(memstore.New())
	user := uuid.New()
	for i, sym := range []string{"AAPL", "MSFT", "AAPL", "NVDA"} {
		if _, err := svc.Create(ctx, user, purchaseInput(sym, "1", "10", models.NewDate(2024, 1, 1+i))); err != nil {
			t.Fatal(err)
		}
	}

	aapl, err := svc.BySymbol(ctx, user, "aapl")
	if err != nil || len(aapl) != 2 {
		t.Fatalf("BySymbol = %d, %v", len(aapl), err)
	}

	rng, err := svc.DateRange(ctx, user, models.NewDate(2024, 1, 2), models.NewDate(2024, 1, 3))
	if err != nil || len(rng) != 2 {
		t.Fatalf("DateRange = %d, %v", len(rng), err)
	}
	if _, err := svc.DateRange(ctx, user, models.NewDate(2024, 2, 1), models.NewDate(2024, 1, 1)); !validate.IsValidation(err) {
		t.Fatalf("inverted DateRange err = %v", err)
	}

	recent, err := svc.Recent(ctx, user, 2)
	if err != nil || len(recent) != 2 || recent[0].Symbol != "NVDA" {
		t.Fatalf("Recent = %+v, %v", recent, err)
	}
	if all, _ := svc.Recent(ctx, user, 1000); len(all) != 4 {
		t.Fatalf("Recent(1000) = %d", len(all))
	}

	symbols, err := svc.Symbols(ctx, user)
	if err != nil || len(symbols) != 3 {
		t.Fatalf("Symbols = %v, %v", symbols, err)
	}
}

func TestPortfolioSummaryAndDetails(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	purchases := newPurchases(store)
	user := uuid.New()
	_, _ = purchases.Create(ctx, user, purchaseInput("AAPL", "10", "150", models.NewDate(2024, 1, 2)))
	_, _ = purchases.Create(ctx, user, purchaseInput("TSLA", "2", "200", models.NewDate(2024, 1, 3)))

	svc := NewPortfolioService(store, fakePrices{quotes: map[string]models.PriceQuote{"AAPL": quote("AAPL", "160")}}, nil)
	svc.now = clock

	sum, err := svc.Summary(ctx, user)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.PositionCount != 2 || !sum.TotalSpent.Equal(decimal.NewFromInt(1900)) || !sum.TotalValue.Equal(decimal.NewFromInt(1600)) {
		t.Fatalf("summary = %+v", sum)
	}
	if len(sum.MissingPrices) != 1 || sum.MissingPrices[0] != "TSLA" || !sum.LastUpdated.Equal(testNow) {
		t.Fatalf("missing = %v, lastUpdated = %v", sum.MissingPrices, sum.LastUpdated)
	}

	empty, err := svc.Summary(ctx, uuid.New())
	if err != nil || len(empty.Positions) != 0 || empty.Positions == nil {
		t.Fatalf("empty summary = %+v, %v", empty, err)
	}

	det, err := svc.StockDetails(ctx, user, "aapl")
	if err != nil {
		t.Fatalf("StockDetails: %v", err)
	}
	if det.Position.Symbol != "AAPL" || len(det.Purchases) != 1 || !det.Position.ProfitLoss.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("details = %+v", det)
	}
	if _, err := svc.StockDetails(ctx, user, "MSFT"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("StockDetails(not held) err = %v", err)
	}
}

func TestPortfolioChartSnapshotHistory(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	purchases := newPurchases(store)
	user := uuid.New()
	_, _ = purchases.Create(ctx, user, purchaseInput("AAPL", "1", "100", models.NewDate(2024, 1, 2)))
	_, _ = purchases.Create(ctx, user, purchaseInput("AAPL", "1", "120", models.NewDate(2024, 3, 2)))

	series := []models.PricePoint{{Date: models.NewDate(2024, 6, 14), Price: decimal.NewFromInt(130)}}
	svc := NewPortfolioService(store, fakePrices{
		quotes: map[string]models.PriceQuote{"AAPL": quote("AAPL", "130")},
		chart:  series,
	}, nil)
	svc.now = clock

	chart, err := svc.Chart(ctx, user, "AAPL", price.Period1Y)
	if err != nil {
		t.Fatalf("Chart: %v", err)
	}
	if chart.Period != "1Y" || len(chart.PriceData) != 1 || len(chart.PurchasePoints) != 2 {
		t.Fatalf("chart = %+v", chart)
	}
	if chart.PurchasePoints[0].Date.String() != "2024-01-02" {
		t.Fatalf("purchase points not oldest first: %+v", chart.PurchasePoints)
	}

	yesterday := models.DateOf(testNow).AddDays(-1)
	v, err := svc.Snapshot(ctx, user, yesterday)
	if err != nil || !v.TotalValue.Equal(decimal.NewFromInt(260)) || !v.TotalSpent.Equal(decimal.NewFromInt(220)) {
		t.Fatalf("Snapshot = %+v, %v", v, err)
	}
	if _, err := svc.Snapshot(ctx, user, models.DateOf(testNow)); err != nil {
		t.Fatal(err)
	}

	hist, err := svc.History(ctx, user)
	if err != nil || len(hist) != 1 || !hist[0].Date.Equal(yesterday) {
		t.Fatalf("History = %+v, %v", hist, err)
	}
}

func TestSnapshotSkipsWhenNoPriceIsKnown(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	purchases := newPurchases(store)
	user := uuid.New()
	_, _ = purchases.Create(ctx, user, purchaseInput("AAPL", "1", "100", models.NewDate(2024, 1, 2)))
	_, _ = purchases.Create(ctx, user, purchaseInput("MSFT", "2", "300", models.NewDate(2024, 1, 3)))

	svc := NewPortfolioService(store, fakePrices{}, nil)
	svc.now = clock
	day := models.DateOf(testNow).AddDays(-1)
	if _, err := svc.Snapshot(ctx, user, day); !errors.Is(err, ErrNoPrices) {
		t.Fatalf("Snapshot err = %v, want ErrNoPrices", err)
	}
	if hist, err := svc.History(ctx, user); err != nil || len(hist) != 0 {
		t.Fatalf("History = %+v, %v", hist, err)
	}

	svc = NewPortfolioService(store, fakePrices{quotes: map[string]models.PriceQuote{"AAPL": quote("AAPL", "110")}}, nil)
	svc.now = clock
	v, err := svc.Snapshot(ctx, user, day)
	if err != nil || !v.TotalValue.Equal(decimal.NewFromInt(110)) || !v.TotalSpent.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("partial Snapshot = %+v, %v", v, err)
	}
}
