package session

import (
	"context"
	"log/slog"
	"time"

	"donorboard/internal/cache"
	"donorboard/internal/log"
)

// MemoryStore keeps sessions in a bounded LRU with idle expiry.
type MemoryStore struct {
	sessions *cache.LRUCache[*Session]
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore holds up to size sessions, each expiring ttl after its last
// save.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	c := cache.NewLRUCache[*Session](size, ttl)
	c.OnEvict(func(id string, _ *Session) {
		slog.Debug("Session evicted",
			log.FieldComponent, log.ComponentSession,
			log.FieldSessionID, id)
	})
	return &MemoryStore{sessions: c}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s, ok := m.sessions.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.sessions.Set(s.ID, s.Clone())
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.sessions.Delete(id)
	return nil
}

// Cache exposes the underlying LRU for cleanup registration and stats.
func (m *MemoryStore) Cache() *cache.LRUCache[*Session] {
	return m.sessions
}
