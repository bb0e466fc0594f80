package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/RamanBirulia/stock-notebook/internal/client"
	"github.com/RamanBirulia/stock-notebook/internal/i18n"
	"github.com/RamanBirulia/stock-notebook/internal/localstore"
	"github.com/RamanBirulia/stock-notebook/internal/models"
	"github.com/RamanBirulia/stock-notebook/internal/session"
	"github.com/RamanBirulia/stock-notebook/internal/theme"
)

type fixedDetector bool

func (d fixedDetector) PrefersDark() bool { return bool(d) }

type testApp struct {
	*App
	out, err *bytes.Buffer
	hits     *atomic.Int32
	store    *localstore.MemoryStore
}

func newTestApp(t *testing.T, handler http.Handler) *testApp {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	store := localstore.NewMemoryStore()
	sess := session.New(store, nil)
	th, err := theme.New(store, fixedDetector(false))
	if err != nil {
		t.Fatal(err)
	}
	loc := i18n.New(i18n.EmbeddedLoader{}, store)
	loc.Start(context.Background(), "en")

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	app := &App{
		Client:   client.New(sess, client.Options{BaseURL: srv.URL}),
		Session:  sess,
		Theme:    th,
		Lang:     loc,
		Store:    store,
		Currency: "USD",
		Plain:    true,
		In:       strings.NewReader(""),
		Out:      out,
		Err:      errOut,
	}
	return &testApp{App: app, out: out, err: errOut, hits: &hits, store: store}
}

func (ta *testApp) signIn(t *testing.T) {
	t.Helper()
	user := models.UserInfo{ID: uuid.New(), Username: "alice"}
	if err := ta.Session.SignIn(models.AuthResponse{User: user, Token: "tok"}); err != nil {
		t.Fatal(err)
	}
}

func run(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return cmd.Execute(context.Background(), fs)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func english(t *testing.T) translator {
	t.Helper()
	loc := i18n.New(i18n.EmbeddedLoader{}, localstore.NewMemoryStore())
	loc.Start(context.Background(), "en")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := loc.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	return loc.T
}

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		in, code, want string
	}{
		{"1234.5", "USD", "$1,234.50"},
		{"-3.456", "USD", "-$3.46"},
		{"0", "usd", "$0.00"},
		{"10", "ZZZ", "$10.00"},
	}
	for _, tc := range cases {
		if got := formatMoney(decimal.RequireFromString(tc.in), tc.code); got != tc.want {
			t.Fatalf("formatMoney(%s, %s) = %q, want %q", tc.in, tc.code, got, tc.want)
		}
	}
	if got := signedMoney(decimal.NewFromInt(5), "USD"); got != "+$5.00" {
		t.Fatalf("signed = %q", got)
	}
	if got := formatPercent(decimal.RequireFromString("-2.5")); got != "-2.50%" {
		t.Fatalf("percent = %q", got)
	}
}

func TestSparkline(t *testing.T) {
	vals := []decimal.Decimal{decimal.NewFromInt(1), decimal.NewFromInt(2), decimal.NewFromInt(3)}
	if got := sparkline(vals); got != "▁▅█" {
		t.Fatalf("sparkline = %q", got)
	}
	flat := []decimal.Decimal{decimal.NewFromInt(4), decimal.NewFromInt(4)}
	if got := sparkline(flat); got != "▁▁" {
		t.Fatalf("flat sparkline = %q", got)
	}
	if sparkline(nil) != "" {
		t.Fatalf("empty sparkline not empty")
	}
}

func TestSampleIndexes(t *testing.T) {
	idx := sampleIndexes(30, 12)
	if len(idx) != 12 || idx[0] != 0 || idx[11] != 29 {
		t.Fatalf("idx = %v", idx)
	}
	if got := sampleIndexes(3, 12); len(got) != 3 {
		t.Fatalf("short = %v", got)
	}
}

func TestDashboardMarkdown(t *testing.T) {
	tr := english(t)
	s := models.PortfolioSummary{
		Positions: []models.Position{
			{Symbol: "AAPL", TotalQuantity: decimal.NewFromInt(10), TotalSpent: decimal.RequireFromString("1502.5"),
				CurrentPrice: decimal.NewFromInt(160), CurrentValue: decimal.NewFromInt(1600),
				ProfitLoss: decimal.RequireFromString("97.5"), ProfitLossPercentage: decimal.RequireFromString("6.4892"),
				PriceAvailable: true},
			{Symbol: "ZZZZ", TotalQuantity: decimal.NewFromInt(1), TotalSpent: decimal.NewFromInt(10)},
		},
		TotalSpent:    decimal.RequireFromString("1512.5"),
		TotalValue:    decimal.NewFromInt(1600),
		ProfitLoss:    decimal.RequireFromString("87.5"),
		PositionCount: 2,
		MissingPrices: []string{"ZZZZ"},
	}
	md := dashboardMarkdown(tr, s, "USD")
	for _, want := range []string{"# Portfolio Dashboard", "$1,502.50", "+$97.50 (+6.49%)", "2 stocks", "No current price for: ZZZZ", "| ZZZZ | 1 | $10.00 | — |"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}

	empty := dashboardMarkdown(tr, models.PortfolioSummary{}, "USD")
	if !strings.Contains(empty, "Your portfolio is empty") {
		t.Fatalf("empty markdown:\n%s", empty)
	}
}

func TestChartMarkdownMarksPurchases(t *testing.T) {
	tr := english(t)
	d1, d2 := models.NewDate(2024, time.June, 3), models.NewDate(2024, time.June, 4)
	cd := models.ChartData{
		Symbol: "AAPL", Period: "1M",
		PriceData: []models.PricePoint{
			{Date: d1, Price: decimal.NewFromInt(100)},
			{Date: d2, Price: decimal.NewFromInt(110)},
		},
		PurchasePoints: []models.PurchasePoint{{Date: d2, Price: decimal.NewFromInt(108)}},
	}
	md := chartMarkdown(tr, cd, "USD")
	if !strings.Contains(md, "| 2024-06-04 | $110.00 | ● |") || !strings.Contains(md, "| 2024-06-03 | $100.00 |  |") {
		t.Fatalf("chart markdown:\n%s", md)
	}
}

func TestBuyRejectsBadInputLocally(t *testing.T) {
	ta := newTestApp(t, http.NotFoundHandler())
	ta.signIn(t)

	status := run(t, &buyCmd{app: ta.App}, "-s", "AAPL", "-q", "ten", "-price", "100")
	if status != subcommands.ExitUsageError {
		t.Fatalf("status = %v", status)
	}
	if !strings.Contains(ta.err.String(), "quantity") {
		t.Fatalf("stderr = %q", ta.err.String())
	}
	status = run(t, &buyCmd{app: ta.App}, "-s", "AAPL", "-q", "1", "-price", "100", "-d", "2999-01-01")
	if status != subcommands.ExitUsageError {
		t.Fatalf("future date status = %v", status)
	}
	if ta.hits.Load() != 0 {
		t.Fatalf("server was called")
	}
}

func TestBuyRecordsPurchase(t *testing.T) {
	ta := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["symbol"] != "MSFT" {
			t.Errorf("symbol = %v", in["symbol"])
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, models.Purchase{
			ID: uuid.New(), Symbol: "MSFT", Quantity: decimal.NewFromInt(3),
			PricePerShare: decimal.RequireFromString("410.1"), PurchaseDate: models.NewDate(2024, time.March, 1),
		})
	}))
	ta.signIn(t)

	status := run(t, &buyCmd{app: ta.App}, "-s", "msft", "-q", "3", "-price", "410.10", "-d", "2024-03-01")
	if status != subcommands.ExitSuccess {
		t.Fatalf("status = %v, stderr = %q", status, ta.err.String())
	}
	if got := ta.out.String(); !strings.Contains(got, "Recorded 3 MSFT at $410.10") {
		t.Fatalf("stdout = %q", got)
	}
}

func TestDashboardCommand(t *testing.T) {
	ta := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/dashboard" || r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, `{"error":"unexpected"}`, http.StatusBadRequest)
			return
		}
		writeJSON(w, models.PortfolioSummary{Positions: []models.Position{}, MissingPrices: []string{}})
	}))
	ta.signIn(t)

	if status := run(t, &dashboardCmd{app: ta.App}); status != subcommands.ExitSuccess {
		t.Fatalf("status = %v, stderr = %q", status, ta.err.String())
	}
	if !strings.Contains(ta.out.String(), "Your portfolio is empty") {
		t.Fatalf("stdout = %q", ta.out.String())
	}
}

func TestWhoamiOfflineWithoutSession(t *testing.T) {
	ta := newTestApp(t, http.NotFoundHandler())
	if status := run(t, &whoamiCmd{app: ta.App}, "-offline"); status != subcommands.ExitFailure {
		t.Fatalf("status = %v", status)
	}
	if !strings.Contains(ta.err.String(), "Not signed in") {
		t.Fatalf("stderr = %q", ta.err.String())
	}
}

func TestThemeCommand(t *testing.T) {
	ta := newTestApp(t, http.NotFoundHandler())

	if status := run(t, &themeCmd{app: ta.App}, "dark"); status != subcommands.ExitSuccess {
		t.Fatalf("status = %v", status)
	}
	if got := ta.out.String(); !strings.Contains(got, "Theme: dark (showing dark)") {
		t.Fatalf("stdout = %q", got)
	}
	if v, _, _ := ta.store.Get(localstore.KeyTheme); v != "dark" {
		t.Fatalf("stored theme = %q", v)
	}
	if status := run(t, &themeCmd{app: ta.App}, "sepia"); status != subcommands.ExitUsageError {
		t.Fatalf("bad mode status = %v", status)
	}
}

func TestLangCommand(t *testing.T) {
	ta := newTestApp(t, http.NotFoundHandler())

	if status := run(t, &langCmd{app: ta.App}, "es"); status != subcommands.ExitSuccess {
		t.Fatalf("status = %v, stderr = %q", status, ta.err.String())
	}
	if got := ta.out.String(); !strings.Contains(got, "Idioma cambiado a Español") {
		t.Fatalf("stdout = %q", got)
	}
	if v, _, _ := ta.store.Get(localstore.KeyLanguage); v != "es" {
		t.Fatalf("stored language = %q", v)
	}
	if status := run(t, &langCmd{app: ta.App}, "fr"); status != subcommands.ExitUsageError {
		t.Fatalf("unsupported status = %v", status)
	}
}

func TestSearchCommand(t *testing.T) {
	ta := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []models.SymbolSuggestion{{Symbol: "AAPL", Name: "Apple Inc.", Exchange: "NASDAQ"}})
	}))
	ta.signIn(t)

	if status := run(t, &searchCmd{app: ta.App}, "apple"); status != subcommands.ExitSuccess {
		t.Fatalf("status = %v, stderr = %q", status, ta.err.String())
	}
	if got := ta.out.String(); !strings.Contains(got, "| AAPL | Apple Inc. | NASDAQ |") {
		t.Fatalf("stdout = %q", got)
	}
	if status := run(t, &searchCmd{app: ta.App}); status != subcommands.ExitUsageError {
		t.Fatalf("empty query status = %v", status)
	}
}

func TestWatchStopsAfterCount(t *testing.T) {
	ta := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, models.PriceQuote{Symbol: "AAPL", Price: decimal.RequireFromString("190.25")})
	}))
	ta.signIn(t)

	status := run(t, &watchCmd{app: ta.App}, "-every", "10ms", "-n", "2", "aapl")
	if status != subcommands.ExitSuccess {
		t.Fatalf("status = %v, stderr = %q", status, ta.err.String())
	}
	if got := strings.Count(ta.out.String(), "AAPL  $190.25"); got != 2 {
		t.Fatalf("updates = %d, stdout = %q", got, ta.out.String())
	}
}

func TestLoginReadsPipedPassword(t *testing.T) {
	ta := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["username"] != "alice" || in["password"] != "secret1" {
			http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
			return
		}
		writeJSON(w, models.AuthResponse{User: models.UserInfo{ID: uuid.New(), Username: "alice"}, Token: "tok"})
	}))
	ta.In = strings.NewReader("secret1\n")

	if status := run(t, &loginCmd{app: ta.App}, "-u", "alice"); status != subcommands.ExitSuccess {
		t.Fatalf("status = %v, stderr = %q", status, ta.err.String())
	}
	if !strings.Contains(ta.err.String(), "Password: ") {
		t.Fatalf("no prompt shown: %q", ta.err.String())
	}
	if !strings.Contains(ta.out.String(), "Signed in as alice") {
		t.Fatalf("stdout = %q", ta.out.String())
	}
	if tok, err := ta.Session.Token(); err != nil || tok != "tok" {
		t.Fatalf("session token = %q, %v", tok, err)
	}
}
