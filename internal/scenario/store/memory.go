package store

import (
	"context"
	"sync"
	"time"

	"github.com/locafrota/fleetsla/internal/clock"
	"github.com/locafrota/fleetsla/internal/scenario/domain"
	"github.com/locafrota/fleetsla/internal/sla"
)

type memoryEntry struct {
	set       domain.Set
	expiresAt time.Time
}

// memoryStore is the default backend. Expired entries linger until read or
// until the scheduler's purge job sweeps them.
type memoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	clock clock.Clock
	sets  map[string]memoryEntry
}

func newMemoryStore(ttl time.Duration, clk clock.Clock) *memoryStore {
	return &memoryStore{
		ttl:   ttl,
		clock: clk,
		sets:  make(map[string]memoryEntry),
	}
}

func (s *memoryStore) Get(_ context.Context, sessionID string) (*domain.Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sets[sessionID]
	if !ok {
		return nil, nil
	}
	if !s.clock.Now().Before(entry.expiresAt) {
		delete(s.sets, sessionID)
		return nil, nil
	}

	out := copySet(entry.set)
	return &out, nil
}

func (s *memoryStore) Save(_ context.Context, set *domain.Set) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sets[set.SessionID] = memoryEntry{
		set:       copySet(*set),
		expiresAt: s.clock.Now().Add(s.ttl),
	}
	return nil
}

func (s *memoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sets, sessionID)
	return nil
}

func (s *memoryStore) PurgeExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	purged := 0
	for sessionID, entry := range s.sets {
		if !now.Before(entry.expiresAt) {
			delete(s.sets, sessionID)
			purged++
		}
	}
	return purged, nil
}

// copySet detaches the scenarios slice so callers and the store never share
// backing arrays.
func copySet(set domain.Set) domain.Set {
	out := set
	out.Scenarios = make([]sla.Scenario, len(set.Scenarios))
	copy(out.Scenarios, set.Scenarios)
	return out
}
