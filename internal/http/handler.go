package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RamanBirulia/stock-notebook/internal/auth"
	"github.com/RamanBirulia/stock-notebook/internal/price"
	"github.com/RamanBirulia/stock-notebook/internal/service"
	"github.com/RamanBirulia/stock-notebook/internal/validate"
)

type Options struct {
	Auth      *service.AuthService
	Purchases *service.PurchaseService
	Portfolio *service.PortfolioService
	Prices    *price.Service
	Tokens    auth.JWT

	// AdminToken enables the /api/admin routes when set.
	AdminToken string
	// AllowedOrigin is echoed in CORS responses. Empty disables CORS.
	AllowedOrigin string
	// Ping reports storage health on /health.
	Ping func(ctx context.Context) error
	Log  *zap.Logger
}

// Handler wires all REST endpoints.
type Handler struct {
	authSvc      *service.AuthService
	purchaseSvc  *service.PurchaseService
	portfolioSvc *service.PortfolioService
	priceSvc     *price.Service
	tokens       auth.JWT

	adminToken string
	origin     string
	ping       func(ctx context.Context) error
	log        *zap.Logger
}

func NewHandler(opts Options) *Handler {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		authSvc:      opts.Auth,
		purchaseSvc:  opts.Purchases,
		portfolioSvc: opts.Portfolio,
		priceSvc:     opts.Prices,
		tokens:       opts.Tokens,
		adminToken:   opts.AdminToken,
		origin:       opts.AllowedOrigin,
		ping:         opts.Ping,
		log:          log,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(corsPolicy(h.origin))

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.handleRegister)
		r.Post("/auth/login", h.handleLogin)
		r.Post("/auth/refresh", h.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(h.tokens))

			r.Get("/auth/me", h.handleMe)
			r.Post("/auth/logout", h.handleLogout)
			r.Post("/auth/change-password", h.handleChangePassword)

			r.Route("/purchases", func(r chi.Router) {
				r.Post("/", h.handleCreatePurchase)
				r.Get("/", h.handleListPurchases)
				r.Get("/recent", h.handleRecentPurchases)
				r.Get("/symbols", h.handlePurchaseSymbols)
				r.Get("/date-range", h.handlePurchasesByDate)
				r.Get("/portfolio", h.handlePortfolio)
				r.Get("/symbol/{symbol}", h.handlePurchasesBySymbol)
				r.Get("/{id}", h.handleGetPurchase)
				r.Put("/{id}", h.handleUpdatePurchase)
				r.Delete("/{id}", h.handleDeletePurchase)
			})

			r.Get("/dashboard", h.handlePortfolio)
			r.Get("/portfolio/history", h.handleHistory)

			r.Get("/stock/{symbol}", h.handleStockDetails)
			r.Get("/stock/{symbol}/price", h.handleStockPrice)
			r.Get("/stock/{symbol}/chart", h.handleStockChart)
			r.Get("/symbols/search", h.handleSymbolSearch)
		})

		if h.adminToken != "" {
			r.Route("/admin", func(r chi.Router) {
				r.Use(adminOnly(h.adminToken))
				r.Get("/cache/stats", h.handleCacheStats)
				r.Post("/cache/clear", h.handleCacheClear)
				r.Post("/cache/cleanup", h.handleCacheCleanup)
			})
		}
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			h.log.Warn("health check failed", zap.Error(err))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, map[string]string{"status": "degraded", "database": "unavailable"})
			return
		}
	}
	render.JSON(w, r, map[string]string{"status": "ok"})
}

type errorBody struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func errorResponse(msg string) errorBody {
	return errorBody{Error: msg}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusCodeForErr(err)
	body := errorResponse(err.Error())

	var verr *validate.Error
	if errors.As(err, &verr) {
		body = errorBody{Error: "validation failed", Details: verr.Fields}
	}
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		body.Error = service.ErrUnauthorized.Error()
	case status >= http.StatusInternalServerError:
		h.log.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		if status == http.StatusInternalServerError {
			body.Error = "internal server error"
		}
	}

	render.Status(r, status)
	render.JSON(w, r, body)
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, errorResponse(msg))
}

func statusCodeForErr(err error) int {
	var verr *validate.Error
	switch {
	case errors.As(err, &verr), errors.Is(err, price.ErrInvalidPeriod):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrNotFound), errors.Is(err, price.ErrNoQuote):
		return http.StatusNotFound
	case errors.Is(err, price.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// userID is only called behind auth.Middleware.
func userID(r *http.Request) uuid.UUID {
	id, _ := auth.UserID(r.Context())
	return id
}
