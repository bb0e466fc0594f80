package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/RamanBirulia/stock-notebook/internal/models"
	"github.com/RamanBirulia/stock-notebook/internal/validate"
)

func (c *Client) CreatePurchase(ctx context.Context, in validate.PurchaseInput) (models.Purchase, error) {
	if err := c.val.Purchase(&in); err != nil {
		return models.Purchase{}, err
	}
	var p models.Purchase
	if err := c.call(ctx, request{method: http.MethodPost, path: "/api/purchases", body: in, auth: true}, &p); err != nil {
		return models.Purchase{}, err
	}
	c.Invalidate(ctx, purchaseWrites...)
	return p, checkPurchase(p)
}

func (c *Client) UpdatePurchase(ctx context.Context, id uuid.UUID, in validate.PurchaseInput) (models.Purchase, error) {
	if id == uuid.Nil {
		return models.Purchase{}, errNoID
	}
	if err := c.val.Purchase(&in); err != nil {
		return models.Purchase{}, err
	}
	var p models.Purchase
	if err := c.call(ctx, request{method: http.MethodPut, path: "/api/purchases/" + id.String(), body: in, auth: true}, &p); err != nil {
		return models.Purchase{}, err
	}
	c.Invalidate(ctx, purchaseWrites...)
	return p, checkPurchase(p)
}

func (c *Client) DeletePurchase(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return errNoID
	}
	if err := c.call(ctx, request{method: http.MethodDelete, path: "/api/purchases/" + id.String(), auth: true}, nil); err != nil {
		return err
	}
	c.Invalidate(ctx, purchaseWrites...)
	return nil
}

func (c *Client) Purchases(ctx context.Context) ([]models.Purchase, error) {
	return c.purchaseList(ctx, request{path: "/api/purchases"})
}

func (c *Client) RecentPurchases(ctx context.Context, limit int) ([]models.Purchase, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.purchaseList(ctx, request{path: "/api/purchases/recent", query: q})
}

// PurchasesBetween lists purchases dated within [from, to].
func (c *Client) PurchasesBetween(ctx context.Context, from, to models.Date) ([]models.Purchase, error) {
	if from.IsZero() {
		return nil, validate.FieldError("startDate", "is required")
	}
	if to.IsZero() {
		return nil, validate.FieldError("endDate", "is required")
	}
	if from.After(to) {
		return nil, validate.FieldError("startDate", "must not be after endDate")
	}
	q := url.Values{}
	q.Set("startDate", from.String())
	q.Set("endDate", to.String())
	return c.purchaseList(ctx, request{path: "/api/purchases/date-range", query: q})
}

func (c *Client) PurchasesBySymbol(ctx context.Context, symbol string) ([]models.Purchase, error) {
	sym, err := symbolArg(symbol)
	if err != nil {
		return nil, err
	}
	return c.purchaseList(ctx, request{path: "/api/purchases/symbol/" + url.PathEscape(sym)})
}

func (c *Client) Purchase(ctx context.Context, id uuid.UUID) (models.Purchase, error) {
	if id == uuid.Nil {
		return models.Purchase{}, errNoID
	}
	var p models.Purchase
	req := request{method: http.MethodGet, path: "/api/purchases/" + id.String(), auth: true}
	err := c.query(ctx, tagOf(TagPurchase), req, c.ttl, &p, func() error { return checkPurchase(p) })
	return p, err
}

func (c *Client) PurchaseSymbols(ctx context.Context) ([]string, error) {
	var out []string
	req := request{method: http.MethodGet, path: "/api/purchases/symbols", auth: true}
	if err := c.query(ctx, tagOf(TagPurchase), req, c.ttl, &out, noCheck); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (c *Client) purchaseList(ctx context.Context, req request) ([]models.Purchase, error) {
	req.method, req.auth = http.MethodGet, true
	var out []models.Purchase
	if err := c.query(ctx, tagOf(TagPurchase), req, c.ttl, &out, func() error { return checkPurchases(out) }); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Purchase{}
	}
	return out, nil
}

func (c *Client) Dashboard(ctx context.Context) (models.PortfolioSummary, error) {
	var s models.PortfolioSummary
	req := request{method: http.MethodGet, path: "/api/dashboard", auth: true}
	err := c.query(ctx, tagOf(TagDashboard), req, c.ttl, &s, func() error { return checkSummary(s) })
	return s, err
}

func (c *Client) History(ctx context.Context) ([]models.DailyValue, error) {
	var out []models.DailyValue
	req := request{method: http.MethodGet, path: "/api/portfolio/history", auth: true}
	if err := c.query(ctx, tagOf(TagDashboard), req, c.ttl, &out, func() error { return checkHistory(out) }); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.DailyValue{}
	}
	return out, nil
}
