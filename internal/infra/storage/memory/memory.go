package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/vietddude/netfailover/internal/core/domain"
)

// DefaultMaxEntries bounds an AttemptStore created with a non-positive size.
const DefaultMaxEntries = 1000

// AttemptStore keeps the most recent attempts in process memory. It is the
// journal of short-lived commands that have no Redis or PostgreSQL backend.
type AttemptStore struct {
	mu         sync.RWMutex
	maxEntries int
	attempts   []domain.Attempt
}

func NewAttemptStore(maxEntries int) *AttemptStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &AttemptStore{maxEntries: maxEntries}
}

// Record appends a, dropping the oldest attempt once the store is full.
func (s *AttemptStore) Record(_ context.Context, a domain.Attempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.attempts) == s.maxEntries {
		s.attempts = slices.Delete(s.attempts, 0, 1)
	}
	s.attempts = append(s.attempts, a)
}

// All returns every stored attempt in the order recorded.
func (s *AttemptStore) All() []domain.Attempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.attempts)
}

// Recent returns up to n attempts, newest first.
func (s *AttemptStore) Recent(_ context.Context, n int) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n = min(n, len(s.attempts))
	out := make([]domain.Attempt, 0, n)
	for i := len(s.attempts) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.attempts[i])
	}
	return out, nil
}

// Execution returns the attempts of one execution in order.
func (s *AttemptStore) Execution(_ context.Context, id string) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Attempt
	for _, a := range s.attempts {
		if a.ExecutionID == id {
			out = append(out, a)
		}
	}
	return out, nil
}
