// Package client talks to the stock-notebook API on behalf of a signed-in
// user. Reads go through a short-lived query cache; writes invalidate the
// cached reads they affect.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/RamanBirulia/stock-notebook/internal/cache"
	"github.com/RamanBirulia/stock-notebook/internal/models"
	"github.com/RamanBirulia/stock-notebook/internal/validate"
)

const (
	DefaultBaseURL  = "http://localhost:8080"
	DefaultTTL      = 5 * time.Minute
	DefaultChartTTL = 10 * time.Minute

	maxBody = 4 << 20
)

// Session supplies the bearer token and is told about sign-in results
// and rejected tokens.
type Session interface {
	Token() (string, error)
	SignIn(resp models.AuthResponse) error
	Logout() error
	Invalidate() error
}

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// Cache holds query results. Defaults to an in-process store.
	Cache     cache.Store
	TTL       time.Duration
	ChartTTL  time.Duration
	Validator *validate.Validator
}

type Client struct {
	base     string
	http     *http.Client
	session  Session
	cache    cache.Store
	ttl      time.Duration
	chartTTL time.Duration
	val      *validate.Validator
	group    singleflight.Group
}

func New(sess Session, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewMemoryStore()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.ChartTTL <= 0 {
		opts.ChartTTL = DefaultChartTTL
	}
	if opts.Validator == nil {
		opts.Validator = validate.Default
	}
	return &Client{
		base:     strings.TrimRight(opts.BaseURL, "/"),
		http:     opts.HTTPClient,
		session:  sess,
		cache:    opts.Cache,
		ttl:      opts.TTL,
		chartTTL: opts.ChartTTL,
		val:      opts.Validator,
	}
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// auth attaches the session token; the call fails early without one.
	auth   bool
	header map[string]string
}

func (r request) target() string {
	if len(r.query) == 0 {
		return r.path
	}
	return r.path + "?" + r.query.Encode()
}

type errorBody struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

// do sends req and returns the body of a 2xx response. A 401 ends the
// session and drops every cached query.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.method, c.base+req.target(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	hreq.Header.Set("Accept", "application/json")
	if body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.header {
		hreq.Header.Set(k, v)
	}
	if req.auth {
		tok, err := c.session.Token()
		if err != nil {
			return nil, err
		}
		hreq.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return b, nil
	}
	apiErr := &APIError{Status: resp.StatusCode}
	var eb errorBody
	if json.Unmarshal(b, &eb) == nil {
		apiErr.Message, apiErr.Details = eb.Error, eb.Details
	} else {
		apiErr.Message = strings.TrimSpace(string(b))
	}
	if resp.StatusCode == http.StatusUnauthorized {
		_ = c.session.Invalidate()
		_, _ = c.cache.DeletePrefix(ctx, "")
	}
	return nil, apiErr
}

// call runs an uncached request and decodes the answer into dst when dst
// is not nil.
func (c *Client) call(ctx context.Context, req request, dst any) error {
	b, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if dst == nil {
		return nil
	}
	return decode(b, dst)
}

// query serves a GET from the cache or the network. Concurrent calls for
// the same key share one request. Only bodies that pass check are cached.
func (c *Client) query(ctx context.Context, t Tag, req request, ttl time.Duration, dst any, check func() error) error {
	key := t.key(req.target())
	if b, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		if decode(b, dst) == nil && check() == nil {
			return nil
		}
		_ = c.cache.Delete(ctx, key)
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.do(ctx, req)
	})
	if err != nil {
		return err
	}
	b := v.([]byte)
	if err := decode(b, dst); err != nil {
		return err
	}
	if err := check(); err != nil {
		return err
	}
	_ = c.cache.Set(ctx, key, b, ttl)
	return nil
}

func decode(b []byte, dst any) error {
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func noCheck() error { return nil }

// Invalidate drops cached queries carrying any of the tags.
func (c *Client) Invalidate(ctx context.Context, tags ...Tag) {
	for _, t := range tags {
		_, _ = c.cache.DeletePrefix(ctx, t.prefix())
	}
}

// Reset drops every cached query.
func (c *Client) Reset(ctx context.Context) {
	_, _ = c.cache.DeletePrefix(ctx, "")
}

func symbolArg(s string) (string, error) {
	sym := models.NormalizeSymbol(s)
	if sym == "" {
		return "", validate.FieldError("symbol", "is required")
	}
	if len(sym) > 10 {
		return "", validate.FieldError("symbol", "must be at most 10 characters")
	}
	return sym, nil
}

var errNoID = errors.New("purchase id is required")
