package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/RamanBirulia/stock-notebook/internal/models"
	"github.com/RamanBirulia/stock-notebook/internal/validate"
)

func (h *Handler) handleCreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req validate.PurchaseInput
	if err := readJSON(r, &req); err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	p, err := h.purchaseSvc.Create(r.Context(), userID(r), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, p)
}

func (h *Handler) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	ps, err := h.purchaseSvc.List(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, ps)
}

func (h *Handler) handleRecentPurchases(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.badRequest(w, r, "limit must be an integer")
			return
		}
		limit = n
	}
	ps, err := h.purchaseSvc.Recent(r.Context(), userID(r), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, ps)
}

func (h *Handler) handlePurchaseSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.purchaseSvc.Symbols(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, symbols)
}

func (h *Handler) handlePurchasesByDate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := optionalDate(q.Get("startDate"))
	if err != nil {
		h.fail(w, r, validate.FieldError("startDate", err.Error()))
		return
	}
	to, err := optionalDate(q.Get("endDate"))
	if err != nil {
		h.fail(w, r, validate.FieldError("endDate", err.Error()))
		return
	}
	ps, err := h.purchaseSvc.DateRange(r.Context(), userID(r), from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, ps)
}

func (h *Handler) handlePurchasesBySymbol(w http.ResponseWriter, r *http.Request) {
	ps, err := h.purchaseSvc.BySymbol(r.Context(), userID(r), chi.URLParam(r, "symbol"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, ps)
}

func (h *Handler) handleGetPurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := h.purchaseID(w, r)
	if !ok {
		return
	}
	p, err := h.purchaseSvc.Get(r.Context(), userID(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, p)
}

func (h *Handler) handleUpdatePurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := h.purchaseID(w, r)
	if !ok {
		return
	}
	var req validate.PurchaseInput
	if err := readJSON(r, &req); err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	p, err := h.purchaseSvc.Update(r.Context(), userID(r), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, p)
}

func (h *Handler) handleDeletePurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := h.purchaseID(w, r)
	if !ok {
		return
	}
	if err := h.purchaseSvc.Delete(r.Context(), userID(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	render.NoContent(w, r)
}

func (h *Handler) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	summary, err := h.portfolioSvc.Summary(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	values, err := h.portfolioSvc.History(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, values)
}

func (h *Handler) purchaseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.badRequest(w, r, "invalid purchase id")
		return uuid.Nil, false
	}
	return id, true
}

func optionalDate(s string) (models.Date, error) {
	if s == "" {
		return models.Date{}, nil
	}
	return models.ParseDate(s)
}
