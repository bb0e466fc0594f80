package price

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const chartBody = `{"chart":{"result":[{
  "meta":{"regularMarketPrice":189.25},
  "timestamp":[1704067200,1704153600,1704240000],
  "indicators":{"quote":[{"close":[185.5,null,187.75],"volume":[1000,2000,null]}]}
}],"error":null}}`

const searchBody = `{"quotes":[
  {"symbol":"AAPL","shortname":"Apple","longname":"Apple Inc.","exchDisp":"NASDAQ","typeDisp":"Equity","quoteType":"EQUITY"},
  {"symbol":"AAPL.MX","shortname":"APPLE INC","exchDisp":"Mexico","typeDisp":"Equity","quoteType":"EQUITY"},
  {"symbol":"AAPLX","shortname":"Some Fund","quoteType":"MUTUALFUND"}
]}`

func yahooServer(t *testing.T, handler http.HandlerFunc) *YahooClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewYahooClient(srv.URL, time.Second)
}

func TestYahooFetch(t *testing.T) {
	var gotPath, gotQuery string
	c := yahooServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("missing User-Agent")
		}
		_, _ = w.Write([]byte(chartBody))
	})

	price, err := c.Fetch(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if price.String() != "189.25" {
		t.Fatalf("price = %s", price)
	}
	if gotPath != "/v8/finance/chart/AAPL" || gotQuery != "interval=1m&range=1d" {
		t.Fatalf("request = %s?%s", gotPath, gotQuery)
	}
}

func TestYahooFetchFallsBackToLastClose(t *testing.T) {
	c := yahooServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{},"timestamp":[1,2],
		  "indicators":{"quote":[{"close":[10.5,null]}]}}]}}`))
	})
	price, err := c.Fetch(context.Background(), "X")
	if err != nil || price.String() != "10.5" {
		t.Fatalf("Fetch = %s, %v", price, err)
	}
}

func TestYahooErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"not found", http.StatusNotFound, `{}`, ErrNoQuote},
		{"server error", http.StatusBadGateway, `oops`, ErrUpstream},
		{"chart error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, ErrNoQuote},
		{"empty result", http.StatusOK, `{"chart":{"result":[]}}`, ErrNoQuote},
		{"bad json", http.StatusOK, `{`, ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := yahooServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			if _, err := c.Fetch(context.Background(), "ZZZZ"); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestYahooFetchChart(t *testing.T) {
	var gotQuery string
	c := yahooServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(chartBody))
	})
	points, err := c.FetchChart(context.Background(), "AAPL", Period1Y)
	if err != nil {
		t.Fatalf("FetchChart: %v", err)
	}
	if gotQuery != "interval=1d&range=1y" {
		t.Fatalf("query = %s", gotQuery)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2 (null close skipped)", len(points))
	}
	if points[0].Date.String() != "2024-01-01" || points[0].Price.String() != "185.5" {
		t.Fatalf("first point = %+v", points[0])
	}
	if points[0].Volume == nil || *points[0].Volume != 1000 {
		t.Fatalf("first volume = %v", points[0].Volume)
	}
	if points[1].Date.String() != "2024-01-03" || points[1].Volume != nil {
		t.Fatalf("second point = %+v", points[1])
	}
}

func TestYahooSearch(t *testing.T) {
	var gotQuery string
	c := yahooServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/finance/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(searchBody))
	})
	got, err := c.Search(context.Background(), "apple", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotQuery != "newsCount=0&q=apple&quotesCount=5" {
		t.Fatalf("query = %s", gotQuery)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want equities only: %+v", len(got), got)
	}
	if got[0].Name != "Apple Inc." || got[1].Name != "APPLE INC" {
		t.Fatalf("names = %q, %q", got[0].Name, got[1].Name)
	}
}
