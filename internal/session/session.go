// Package session holds the per-visitor dashboard context: the active donor
// table and the control values. Nothing here is global; every computation
// receives its session explicitly.
package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"donorboard/internal/analytics"
	"donorboard/internal/core"

	"github.com/google/uuid"
)

// CookieName carries the session ID.
const CookieName = "donorboard_session"

var ErrNotFound = errors.New("session not found")

// Session is one visitor's dashboard state. Table is nil until an upload
// succeeds; in fixed-source mode it stays nil and the shared table is used.
type Session struct {
	ID        string
	Table     *core.Table
	Params    analytics.Params
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a session with default control values.
func New() *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Params:    analytics.DefaultParams(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a copy safe to mutate. The table itself is immutable and
// shared.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Store persists sessions between requests.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// Manager binds sessions to requests via a cookie.
type Manager struct {
	store  Store
	ttl    time.Duration
	secure bool
}

// NewManager creates a cookie-based session manager.
func NewManager(store Store, ttl time.Duration, secure bool) *Manager {
	return &Manager{store: store, ttl: ttl, secure: secure}
}

// Load returns the request's session, creating and setting a new one when the
// cookie is absent, malformed or expired.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if c, err := r.Cookie(CookieName); err == nil {
		if _, perr := uuid.Parse(c.Value); perr == nil {
			s, err := m.store.Get(r.Context(), c.Value)
			if err == nil {
				return s, nil
			}
			if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
		}
	}

	s := New()
	if err := m.store.Save(r.Context(), s); err != nil {
		return nil, err
	}
	http.SetCookie(w, m.cookie(s.ID))
	return s, nil
}

// Save stamps and stores the session.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	s.UpdatedAt = time.Now()
	return m.store.Save(ctx, s)
}

// Store returns the backing store.
func (m *Manager) Store() Store {
	return m.store
}

func (m *Manager) cookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
