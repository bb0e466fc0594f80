package client

import (
	"context"
	"net/http"

	"github.com/RamanBirulia/stock-notebook/internal/models"
	"github.com/RamanBirulia/stock-notebook/internal/validate"
)

func (c *Client) Register(ctx context.Context, in validate.RegisterInput) (models.AuthResponse, error) {
	if err := c.val.Register(&in); err != nil {
		return models.AuthResponse{}, err
	}
	return c.authenticate(ctx, request{method: http.MethodPost, path: "/api/auth/register", body: in})
}

func (c *Client) Login(ctx context.Context, in validate.LoginInput) (models.AuthResponse, error) {
	if err := c.val.Login(&in); err != nil {
		return models.AuthResponse{}, err
	}
	return c.authenticate(ctx, request{method: http.MethodPost, path: "/api/auth/login", body: in})
}

// Refresh trades a refresh token for a new token pair and signs in with it.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (models.AuthResponse, error) {
	if refreshToken == "" {
		return models.AuthResponse{}, validate.FieldError("refreshToken", "is required")
	}
	body := map[string]string{"refreshToken": refreshToken}
	return c.authenticate(ctx, request{method: http.MethodPost, path: "/api/auth/refresh", body: body})
}

func (c *Client) authenticate(ctx context.Context, req request) (models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.call(ctx, req, &resp); err != nil {
		return models.AuthResponse{}, err
	}
	if err := checkAuth(resp); err != nil {
		return models.AuthResponse{}, err
	}
	// cached queries belong to whoever was signed in before
	c.Reset(ctx)
	if err := c.session.SignIn(resp); err != nil {
		return models.AuthResponse{}, err
	}
	return resp, nil
}

// Logout tells the server when a token is held, then clears local state
// regardless of the answer.
func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.session.Token(); err == nil {
		_ = c.call(ctx, request{method: http.MethodPost, path: "/api/auth/logout", auth: true}, nil)
	}
	c.Reset(ctx)
	return c.session.Logout()
}

func (c *Client) Me(ctx context.Context) (models.UserInfo, error) {
	var u models.UserInfo
	if err := c.call(ctx, request{method: http.MethodGet, path: "/api/auth/me", auth: true}, &u); err != nil {
		return models.UserInfo{}, err
	}
	return u, checkUser(u)
}

func (c *Client) ChangePassword(ctx context.Context, in validate.ChangePasswordInput) error {
	if err := c.val.ChangePassword(&in); err != nil {
		return err
	}
	return c.call(ctx, request{method: http.MethodPost, path: "/api/auth/change-password", body: in, auth: true}, nil)
}

func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, request{method: http.MethodGet, path: "/health"}, nil)
}
