package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/RamanBirulia/stock-notebook/internal/models"
	"github.com/RamanBirulia/stock-notebook/internal/price"
)

func (c *Client) Stock(ctx context.Context, symbol string) (models.StockDetails, error) {
	sym, err := symbolArg(symbol)
	if err != nil {
		return models.StockDetails{}, err
	}
	var d models.StockDetails
	req := request{method: http.MethodGet, path: "/api/stock/" + url.PathEscape(sym), auth: true}
	err = c.query(ctx, stockTag(sym), req, c.ttl, &d, func() error { return checkDetails(sym, d) })
	return d, err
}

func (c *Client) StockPrice(ctx context.Context, symbol string) (models.PriceQuote, error) {
	sym, err := symbolArg(symbol)
	if err != nil {
		return models.PriceQuote{}, err
	}
	var q models.PriceQuote
	err = c.query(ctx, stockTag(sym), priceRequest(sym), c.ttl, &q, func() error { return checkQuote(sym, q) })
	return q, err
}

// freshPrice skips the cache but refreshes it.
func (c *Client) freshPrice(ctx context.Context, sym string) (models.PriceQuote, error) {
	req := priceRequest(sym)
	_ = c.cache.Delete(ctx, stockTag(sym).key(req.target()))
	var q models.PriceQuote
	err := c.query(ctx, stockTag(sym), req, c.ttl, &q, func() error { return checkQuote(sym, q) })
	return q, err
}

func priceRequest(sym string) request {
	return request{method: http.MethodGet, path: "/api/stock/" + url.PathEscape(sym) + "/price", auth: true}
}

func (c *Client) Chart(ctx context.Context, symbol string, period price.Period) (models.ChartData, error) {
	sym, err := symbolArg(symbol)
	if err != nil {
		return models.ChartData{}, err
	}
	p, err := price.ParsePeriod(string(period))
	if err != nil {
		return models.ChartData{}, err
	}
	q := url.Values{}
	q.Set("period", string(p))
	var cd models.ChartData
	req := request{method: http.MethodGet, path: "/api/stock/" + url.PathEscape(sym) + "/chart", query: q, auth: true}
	err = c.query(ctx, stockTag(sym), req, c.chartTTL, &cd, func() error { return checkChart(sym, cd) })
	return cd, err
}

// SearchSymbols returns no results for a blank query without asking the
// server.
func (c *Client) SearchSymbols(ctx context.Context, q string, limit int) ([]models.SymbolSuggestion, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []models.SymbolSuggestion{}, nil
	}
	params := url.Values{}
	params.Set("q", q)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var out []models.SymbolSuggestion
	req := request{method: http.MethodGet, path: "/api/symbols/search", query: params, auth: true}
	if err := c.query(ctx, tagOf(TagSearch), req, c.ttl, &out, func() error { return checkSuggestions(out) }); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.SymbolSuggestion{}
	}
	return out, nil
}

// CacheOpResult is the answer to the admin cache operations.
type CacheOpResult struct {
	Message   string    `json:"message"`
	Removed   int       `json:"removed"`
	Timestamp time.Time `json:"timestamp"`
}

func adminRequest(method, path, adminToken string) request {
	return request{method: method, path: "/api/admin" + path, header: map[string]string{"X-Admin-Token": adminToken}}
}

func (c *Client) CacheStats(ctx context.Context, adminToken string) (models.CacheStats, error) {
	var st models.CacheStats
	err := c.call(ctx, adminRequest(http.MethodGet, "/cache/stats", adminToken), &st)
	return st, err
}

func (c *Client) ClearServerCache(ctx context.Context, adminToken string) (CacheOpResult, error) {
	var res CacheOpResult
	err := c.call(ctx, adminRequest(http.MethodPost, "/cache/clear", adminToken), &res)
	return res, err
}

func (c *Client) CleanupServerCache(ctx context.Context, adminToken string) (CacheOpResult, error) {
	var res CacheOpResult
	err := c.call(ctx, adminRequest(http.MethodPost, "/cache/cleanup", adminToken), &res)
	return res, err
}
