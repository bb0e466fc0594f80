package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/RamanBirulia/stock-notebook/internal/models"
)

const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

var (
	ErrNoQuote  = errors.New("no quote available")
	ErrUpstream = errors.New("market data provider error")
)

// YahooClient reads the public v8 chart and v1 search endpoints.
type YahooClient struct {
	baseURL string
	cli     *http.Client
}

func NewYahooClient(baseURL string, timeout time.Duration) *YahooClient {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &YahooClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		cli:     &http.Client{Timeout: timeout},
	}
}

func (c *YahooClient) Name() string { return "yahoo" }

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type searchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
		ExchDisp  string `json:"exchDisp"`
		TypeDisp  string `json:"typeDisp"`
		QuoteType string `json:"quoteType"`
	} `json:"quotes"`
}

func (c *YahooClient) get(ctx context.Context, path string, query url.Values, dst any) error {
	u := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "stock-notebook/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.cli.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNoQuote
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: http %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}
	return nil
}

func (c *YahooClient) chart(ctx context.Context, symbol, rng, interval string) (*chartResponse, error) {
	var raw chartResponse
	q := url.Values{"range": {rng}, "interval": {interval}}
	path := "/v8/finance/chart/" + url.PathEscape(models.NormalizeSymbol(symbol))
	if err := c.get(ctx, path, q, &raw); err != nil {
		return nil, err
	}
	if raw.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s %s", ErrNoQuote, raw.Chart.Error.Code, raw.Chart.Error.Description)
	}
	if len(raw.Chart.Result) == 0 {
		return nil, ErrNoQuote
	}
	return &raw, nil
}

func (c *YahooClient) Fetch(ctx context.Context, symbol string) (decimal.Decimal, error) {
	raw, err := c.chart(ctx, symbol, "1d", "1m")
	if err != nil {
		return decimal.Zero, err
	}
	r := raw.Chart.Result[0]
	price := r.Meta.RegularMarketPrice

	// Fallback: last non-null close if meta is missing.
	if price <= 0 && len(r.Indicators.Quote) > 0 {
		closes := r.Indicators.Quote[0].Close
		for i := len(closes) - 1; i >= 0; i-- {
			if closes[i] != nil && *closes[i] > 0 {
				price = *closes[i]
				break
			}
		}
	}
	if price <= 0 {
		return decimal.Zero, ErrNoQuote
	}
	return decimal.NewFromFloat(price), nil
}

// FetchChart returns closes oldest first. Points with a null close are
// skipped.
func (c *YahooClient) FetchChart(ctx context.Context, symbol string, period Period) ([]models.PricePoint, error) {
	spec := period.spec()
	raw, err := c.chart(ctx, symbol, spec.yahooRange, spec.yahooInterval)
	if err != nil {
		return nil, err
	}
	r := raw.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 {
		return nil, ErrNoQuote
	}
	q := r.Indicators.Quote[0]

	points := make([]models.PricePoint, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		p := models.PricePoint{
			Date:  models.DateOf(time.Unix(ts, 0)),
			Price: decimal.NewFromFloat(*q.Close[i]),
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			v := *q.Volume[i]
			p.Volume = &v
		}
		points = append(points, p)
	}
	return points, nil
}

// Search returns equities only, named by long name or else short name.
func (c *YahooClient) Search(ctx context.Context, query string, limit int) ([]models.SymbolSuggestion, error) {
	if limit <= 0 {
		limit = 10
	}
	var raw searchResponse
	q := url.Values{
		"q":           {query},
		"quotesCount": {strconv.Itoa(limit)},
		"newsCount":   {"0"},
	}
	if err := c.get(ctx, "/v1/finance/search", q, &raw); err != nil {
		return nil, err
	}
	out := make([]models.SymbolSuggestion, 0, len(raw.Quotes))
	for _, quote := range raw.Quotes {
		if quote.QuoteType != "EQUITY" {
			continue
		}
		name := quote.LongName
		if name == "" {
			name = quote.ShortName
		}
		out = append(out, models.SymbolSuggestion{
			Symbol:    quote.Symbol,
			Name:      name,
			Exchange:  quote.ExchDisp,
			AssetType: quote.TypeDisp,
		})
	}
	return out, nil
}
