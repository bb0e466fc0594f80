package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/RamanBirulia/stock-notebook/internal/price"
)

type cacheOpResponse struct {
	Message   string    `json:"message"`
	Removed   int       `json:"removed"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handler) handleStockDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.portfolioSvc.StockDetails(r.Context(), userID(r), chi.URLParam(r, "symbol"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, details)
}

func (h *Handler) handleStockPrice(w http.ResponseWriter, r *http.Request) {
	q, err := h.priceSvc.Quote(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, q)
}

func (h *Handler) handleStockChart(w http.ResponseWriter, r *http.Request) {
	period, err := price.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	chart, err := h.portfolioSvc.Chart(r.Context(), userID(r), chi.URLParam(r, "symbol"), period)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, chart)
}

func (h *Handler) handleSymbolSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.badRequest(w, r, "limit must be an integer")
			return
		}
		limit = n
	}
	results, err := h.priceSvc.Search(r.Context(), q.Get("q"), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, results)
}

func (h *Handler) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.priceSvc.CacheStats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}

func (h *Handler) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	n, err := h.priceSvc.ClearCache(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, cacheOpResponse{Message: "cache cleared", Removed: n, Timestamp: time.Now().UTC()})
}

func (h *Handler) handleCacheCleanup(w http.ResponseWriter, r *http.Request) {
	n, err := h.priceSvc.CleanupCache(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, cacheOpResponse{Message: "expired entries removed", Removed: n, Timestamp: time.Now().UTC()})
}
