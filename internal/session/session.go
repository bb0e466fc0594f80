// Package session tracks whether the client holds a usable bearer token.
//
// The expiry check here is local and advisory: the token's embedded exp
// claim is read without verifying the signature. The server still
// rejects expired or forged tokens, and any 401 it returns ends the
// session through Invalidate.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/RamanBirulia/stock-notebook/internal/auth"
	"github.com/RamanBirulia/stock-notebook/internal/localstore"
	"github.com/RamanBirulia/stock-notebook/internal/models"
)

var (
	ErrNoSession = errors.New("not signed in")

	errTokenExpired = errors.New("token expired")
)

type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Reason says why a transition happened.
type Reason string

const (
	ReasonRestored    Reason = "restored"
	ReasonSignedIn    Reason = "signed-in"
	ReasonLoggedOut   Reason = "logged-out"
	ReasonExpired     Reason = "expired"
	ReasonInvalidated Reason = "invalidated"
)

type Snapshot struct {
	State     State
	User      models.UserInfo
	Token     string
	ExpiresAt time.Time
}

type Manager struct {
	store localstore.Store
	now   func() time.Time

	mu     sync.Mutex
	cur    Snapshot
	subs   map[int]func(Snapshot, Reason)
	nextID int
}

func New(store localstore.Store, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{store: store, now: now, subs: make(map[int]func(Snapshot, Reason))}
}

// Restore reads the persisted token and signs in with it when it has not
// expired. A stored token that is unreadable or expired is removed.
func (m *Manager) Restore() (Snapshot, error) {
	tok, ok, err := m.store.Get(localstore.KeyAuthToken)
	if err != nil {
		return m.Current(), fmt.Errorf("read stored token: %w", err)
	}
	if !ok || tok == "" {
		return m.Current(), nil
	}
	snap, err := m.decode(tok)
	if err != nil {
		_ = m.store.Delete(localstore.KeyAuthToken)
		m.transition(Snapshot{}, ReasonExpired)
		return Snapshot{}, nil
	}
	m.transition(snap, ReasonRestored)
	return snap, nil
}

// SignIn stores the token from a successful login or registration.
func (m *Manager) SignIn(resp models.AuthResponse) error {
	if resp.Token == "" {
		return errors.New("auth response without token")
	}
	snap := Snapshot{State: Authenticated, User: resp.User, Token: resp.Token, ExpiresAt: resp.ExpiresAt}
	decoded, err := m.decode(resp.Token)
	switch {
	case err == nil:
		snap.ExpiresAt = decoded.ExpiresAt
	case errors.Is(err, errTokenExpired):
		return err
	case !resp.ExpiresAt.IsZero() && !m.now().Before(resp.ExpiresAt):
		return fmt.Errorf("token already expired: %w", err)
	}
	if err := m.store.Set(localstore.KeyAuthToken, resp.Token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	m.transition(snap, ReasonSignedIn)
	return nil
}

func (m *Manager) Logout() error {
	return m.clear(ReasonLoggedOut)
}

// Invalidate ends the session after the server rejected the token.
func (m *Manager) Invalidate() error {
	return m.clear(ReasonInvalidated)
}

// Token returns the bearer token if the session is still live. A token
// found to be expired ends the session.
func (m *Manager) Token() (string, error) {
	snap := m.Current()
	if snap.State != Authenticated {
		return "", ErrNoSession
	}
	if !snap.ExpiresAt.IsZero() && !m.now().Before(snap.ExpiresAt) {
		_ = m.clear(ReasonExpired)
		return "", ErrNoSession
	}
	return snap.Token, nil
}

func (m *Manager) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}

// Subscribe calls fn after every state change until the returned
// function is called.
func (m *Manager) Subscribe(fn func(Snapshot, Reason)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *Manager) clear(reason Reason) error {
	err := m.store.Delete(localstore.KeyAuthToken)
	m.transition(Snapshot{}, reason)
	return err
}

func (m *Manager) transition(next Snapshot, reason Reason) {
	m.mu.Lock()
	prev := m.cur
	m.cur = next
	changed := prev.State != next.State || prev.Token != next.Token
	subs := make([]func(Snapshot, Reason), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range subs {
		fn(next, reason)
	}
}

// decode reads user and expiry from an unverified token.
func (m *Manager) decode(tok string) (Snapshot, error) {
	var claims auth.Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return Snapshot{}, err
	}
	if claims.ExpiresAt == nil {
		return Snapshot{}, errors.New("token has no expiry")
	}
	exp := claims.ExpiresAt.Time
	if !m.now().Before(exp) {
		return Snapshot{}, errTokenExpired
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("token user id: %w", err)
	}
	return Snapshot{
		State:     Authenticated,
		User:      models.UserInfo{ID: id, Username: claims.Username},
		Token:     tok,
		ExpiresAt: exp,
	}, nil
}
