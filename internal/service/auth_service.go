package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RamanBirulia/stock-notebook/internal/auth"
	"github.com/RamanBirulia/stock-notebook/internal/models"
	"github.com/RamanBirulia/stock-notebook/internal/repository"
	"github.com/RamanBirulia/stock-notebook/internal/validate"
)

type AuthService struct {
	users  repository.UserStore
	tokens auth.JWT
	val    *validate.Validator
	log    *zap.Logger
	now    func() time.Time
}

func NewAuthService(users repository.UserStore, tokens auth.JWT, val *validate.Validator, log *zap.Logger) *AuthService {
	if val == nil {
		val = validate.Default
	}
	if log == nil {
		log = zap.NewNop()
	}
	now := tokens.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{users: users, tokens: tokens, val: val, log: log, now: now}
}

func (s *AuthService) Register(ctx context.Context, in validate.RegisterInput) (models.AuthResponse, error) {
	if err := s.val.Register(&in); err != nil {
		return models.AuthResponse{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.AuthResponse{}, err
	}
	now := s.now().UTC()
	user := models.User{
		ID:           uuid.New(),
		Username:     in.Username,
		PasswordHash: hash,
		CreatedAt:    now,
		LastLogin:    &now,
	}
	if err := s.users.CreateUser(ctx, &user); err != nil {
		return models.AuthResponse{}, storeErr("register", err)
	}
	s.log.Info("user registered", zap.String("user_id", user.ID.String()), zap.String("username", user.Username))
	return s.issue(user)
}

// Login never reveals whether the username or the password was wrong.
func (s *AuthService) Login(ctx context.Context, in validate.LoginInput) (models.AuthResponse, error) {
	if err := s.val.Login(&in); err != nil {
		return models.AuthResponse{}, err
	}
	user, err := s.users.UserByUsername(ctx, in.Username)
	if errors.Is(err, repository.ErrNotFound) {
		return models.AuthResponse{}, ErrUnauthorized
	}
	if err != nil {
		return models.AuthResponse{}, storeErr("login", err)
	}
	if err := auth.CheckPassword(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return models.AuthResponse{}, ErrUnauthorized
		}
		return models.AuthResponse{}, err
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn("touch last login failed", zap.String("user_id", user.ID.String()), zap.Error(err))
	} else {
		user.LastLogin = &now
	}
	return s.issue(user)
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (models.UserInfo, error) {
	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return models.UserInfo{}, storeErr("me", err)
	}
	return user.Info(), nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, in validate.ChangePasswordInput) error {
	if err := s.val.ChangePassword(&in); err != nil {
		return err
	}
	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return storeErr("change password", err)
	}
	if err := auth.CheckPassword(user.PasswordHash, in.CurrentPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return validate.FieldError("currentPassword", "is incorrect")
		}
		return err
	}
	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	return storeErr("change password", s.users.UpdatePasswordHash(ctx, userID, hash))
}

// Refresh exchanges a refresh token for a new token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (models.AuthResponse, error) {
	claims, err := s.tokens.Verify(refreshToken, auth.Refresh)
	if err != nil {
		return models.AuthResponse{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	id, _ := claims.UserUUID()
	user, err := s.users.UserByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return models.AuthResponse{}, ErrUnauthorized
	}
	if err != nil {
		return models.AuthResponse{}, storeErr("refresh", err)
	}
	return s.issue(user)
}

func (s *AuthService) issue(user models.User) (models.AuthResponse, error) {
	access, expiresAt, err := s.tokens.Sign(user, auth.Access)
	if err != nil {
		return models.AuthResponse{}, err
	}
	refresh, _, err := s.tokens.Sign(user, auth.Refresh)
	if err != nil {
		return models.AuthResponse{}, err
	}
	return models.AuthResponse{
		User:         user.Info(),
		Token:        access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}, nil
}
