package http

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/RamanBirulia/stock-notebook/internal/validate"
)

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req validate.RegisterInput
	if err := readJSON(r, &req); err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	resp, err := h.authSvc.Register(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req validate.LoginInput
	if err := readJSON(r, &req); err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	resp, err := h.authSvc.Login(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := readJSON(r, &req); err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	if req.RefreshToken == "" {
		h.fail(w, r, validate.FieldError("refreshToken", "is required"))
		return
	}
	resp, err := h.authSvc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	info, err := h.authSvc.Me(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, info)
}

// Tokens are stateless; logging out is the client dropping its token.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, messageResponse{Message: "logged out"})
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req validate.ChangePasswordInput
	if err := readJSON(r, &req); err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	if err := h.authSvc.ChangePassword(r.Context(), userID(r), req); err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, messageResponse{Message: "password updated"})
}
