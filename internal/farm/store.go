package farm

import (
	"sync"

	"github.com/mamadbah2/herdwise/internal/domain/models"
)

// Store owns the current snapshot. All mutations go through Dispatch.
type Store struct {
	mu       sync.RWMutex
	snapshot models.Snapshot
}

// NewStore seeds a store with initial collections; stats are recomputed.
func NewStore(initial models.Snapshot) *Store {
	initial.Stats = ComputeStats(initial)
	return &Store{snapshot: initial}
}

// Dispatch applies action and returns the snapshots before and after it.
func (s *Store) Dispatch(action Action) (before, after models.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before = s.snapshot
	s.snapshot = Apply(before, action)
	return before, s.snapshot
}

// Snapshot returns the current snapshot. Callers must treat it as read-only.
func (s *Store) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}
