package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/RamanBirulia/stock-notebook/internal/models"
)

const issuer = "stock-notebook"

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
)

// TokenKind separates short lived access tokens from refresh tokens.
type TokenKind string

const (
	Access  TokenKind = "access"
	Refresh TokenKind = "refresh"
)

type Claims struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	Type     TokenKind `json:"typ"`

	jwt.RegisteredClaims
}

func (c Claims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// JWT signs and verifies HS256 tokens.
type JWT struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

func (j JWT) now() time.Time {
	if j.Now != nil {
		return j.Now().UTC()
	}
	return time.Now().UTC()
}

func (j JWT) ttl(kind TokenKind) time.Duration {
	if kind == Refresh {
		return j.RefreshTTL
	}
	return j.AccessTTL
}

func (j JWT) Sign(user models.User, kind TokenKind) (token string, expiresAt time.Time, err error) {
	now := j.now()
	expiresAt = now.Add(j.ttl(kind))
	claims := Claims{
		UserID:   user.ID.String(),
		Username: user.Username,
		Type:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(j.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return s, expiresAt, nil
}

// Verify checks signature, expiry and that the token is of the wanted kind.
func (j JWT) Verify(token string, kind TokenKind) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return j.Secret, nil
	}, jwt.WithTimeFunc(j.now), jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if c.Type != kind {
		return Claims{}, ErrWrongTokenType
	}
	if _, err := c.UserUUID(); err != nil {
		return Claims{}, fmt.Errorf("%w: bad user id", ErrInvalidToken)
	}
	return *c, nil
}
