package session

import (
	"context"
	"sync"
	"time"

	"github.com/chamu-dev/chamu/internal/domain"
)

// Memory is an in-process Store used in tests and in redis-less deployments.
type Memory struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	ranking   domain.PreferenceRanking
	expiresAt time.Time
}

// NewMemory constructs an in-memory store with the given entry TTL.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, entries: make(map[string]memoryEntry)}
}

// SaveRanking stores a copy of the ranking under the token.
func (m *Memory) SaveRanking(_ context.Context, token string, ranking domain.PreferenceRanking) error {
	cloned := make(domain.PreferenceRanking, len(ranking))
	for rank, criterionID := range ranking {
		cloned[rank] = criterionID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[token] = memoryEntry{ranking: cloned, expiresAt: time.Now().Add(m.ttl)}
	return nil
}

// Ranking returns the ranking stored for the token, or ErrNotFound.
func (m *Memory) Ranking(_ context.Context, token string) (domain.PreferenceRanking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[token]
	if !ok {
		return nil, ErrNotFound
	}
	if time.Now().After(entry.expiresAt) {
		delete(m.entries, token)
		return nil, ErrNotFound
	}
	return entry.ranking, nil
}

// Clear discards the token's ranking.
func (m *Memory) Clear(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, token)
	return nil
}
