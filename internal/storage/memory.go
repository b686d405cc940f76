package storage

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/session"
)

// MemoryBackend — in-memory LRU пространств сессий с TTL.
// Данные живут только в памяти экземпляра, поэтому бэкенд подходит
// для одной реплики или sticky-сессий.
type MemoryBackend struct {
	// mu сериализует read-modify-write пространства сессии.
	mu    sync.Mutex
	cache *expirable.LRU[string, map[string]string]
}

// NewMemoryBackend создаёт LRU на maxSessions сессий.
// ttl отсчитывается от последней записи в пространство.
func NewMemoryBackend(maxSessions int, ttl time.Duration) *MemoryBackend {
	return &MemoryBackend{
		cache: expirable.NewLRU[string, map[string]string](maxSessions, nil, ttl),
	}
}

// Name возвращает "memory".
func (b *MemoryBackend) Name() string {
	return "memory"
}

// For возвращает пространство сессии sessionID.
func (b *MemoryBackend) For(sessionID string) session.Storage {
	return &memoryStorage{backend: b, sid: sessionID}
}

// Len — текущее количество сессий.
func (b *MemoryBackend) Len() int {
	return b.cache.Len()
}

type memoryStorage struct {
	backend *MemoryBackend
	sid     string
}

func (s *memoryStorage) Load(_ context.Context) (map[string]string, error) {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()

	entries, ok := s.backend.cache.Get(s.sid)
	if !ok {
		loadsTotal.WithLabelValues("memory", "miss").Inc()
		return map[string]string{}, nil
	}
	loadsTotal.WithLabelValues("memory", "hit").Inc()
	return maps.Clone(entries), nil
}

// Apply строит новую карту и подменяет её целиком:
// читатели никогда не видят частично применённую мутацию.
func (s *memoryStorage) Apply(_ context.Context, m session.Mutation) error {
	if m.IsEmpty() {
		return nil
	}
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()

	current, _ := s.backend.cache.Peek(s.sid)
	next := make(map[string]string, len(current)+len(m.Set))
	maps.Copy(next, current)
	maps.Copy(next, m.Set)
	for _, key := range m.Delete {
		delete(next, key)
	}

	if len(next) == 0 {
		s.backend.cache.Remove(s.sid)
	} else {
		s.backend.cache.Add(s.sid, next)
	}
	writesTotal.WithLabelValues("memory", "apply").Inc()
	return nil
}

func (s *memoryStorage) Clear(_ context.Context) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()

	s.backend.cache.Remove(s.sid)
	writesTotal.WithLabelValues("memory", "clear").Inc()
	return nil
}
