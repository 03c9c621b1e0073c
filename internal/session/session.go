// Package session keeps the authenticated operator between CLI invocations.
//
// A session is a bearer token plus the cached user record. The two halves are
// stored separately and are only ever valid together: if either is missing or
// unreadable the whole session is discarded.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/Multiverse88/Dentalpro/internal/domain/dental"
)

const (
	TokenKey = "dentalAppAuthToken"
	UserKey  = "dentalAppAuthUser"

	DefaultTTL = 12 * time.Hour
)

// ErrNotFound is returned by a Store when a key is absent or expired.
var ErrNotFound = errors.New("session key not found")

// Store persists raw session values with an expiry.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type Session struct {
	Token string
	User  dental.User
}

// Manager reads and writes sessions through a Store and remembers the
// current one.
type Manager struct {
	store  Store
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger

	mu      sync.RWMutex
	current Session
}

// Option configures a Manager.
type Option func(*Manager)

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithClock overrides the time source used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Restore returns the stored session. Any problem with the stored values,
// including a store failure, is reported as no session; inconsistent values
// are removed.
func (m *Manager) Restore(ctx context.Context) (Session, bool) {
	token, terr := m.store.Get(ctx, TokenKey)
	raw, uerr := m.store.Get(ctx, UserKey)
	if terr != nil || uerr != nil {
		if !errors.Is(terr, ErrNotFound) && terr != nil {
			m.logger.Warn().Err(terr).Msg("session token unreadable")
		}
		if !errors.Is(uerr, ErrNotFound) && uerr != nil {
			m.logger.Warn().Err(uerr).Msg("session user unreadable")
		}
		if terr == nil || uerr == nil {
			m.discard(ctx)
		}
		m.setCurrent(Session{})
		return Session{}, false
	}
	if token == "" {
		m.discard(ctx)
		return Session{}, false
	}

	var user dental.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		m.logger.Warn().Err(err).Msg("discarding session with malformed user record")
		m.discard(ctx)
		return Session{}, false
	}
	if expired(token, m.now()) {
		m.logger.Info().Str("user", user.Email).Msg("discarding expired session")
		m.discard(ctx)
		return Session{}, false
	}
	s := Session{Token: token, User: user}
	m.setCurrent(s)
	return s, true
}

// Current returns the session last restored or saved.
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.current.Token != ""
}

// Token returns the current bearer token, or "" when logged out.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Token
}

func (m *Manager) setCurrent(s Session) {
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
}

// Save stores both halves of s with the manager's TTL.
func (m *Manager) Save(ctx context.Context, s Session) error {
	if s.Token == "" {
		return fmt.Errorf("save session: empty token")
	}
	raw, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("save session: encode user: %w", err)
	}
	if err := m.store.Set(ctx, TokenKey, s.Token, m.ttl); err != nil {
		return fmt.Errorf("save session token: %w", err)
	}
	if err := m.store.Set(ctx, UserKey, string(raw), m.ttl); err != nil {
		m.discard(ctx)
		return fmt.Errorf("save session user: %w", err)
	}
	m.setCurrent(s)
	return nil
}

// Clear removes both halves of the session.
func (m *Manager) Clear(ctx context.Context) error {
	m.setCurrent(Session{})
	if err := m.store.Delete(ctx, TokenKey, UserKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (m *Manager) discard(ctx context.Context) {
	m.setCurrent(Session{})
	if err := m.store.Delete(ctx, TokenKey, UserKey); err != nil {
		m.logger.Warn().Err(err).Msg("failed to discard session")
	}
}

// expired reports whether token is a JWT whose exp has passed. Opaque tokens
// never expire client side.
func expired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time)
}
