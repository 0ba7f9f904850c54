package idempotency

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store. Suitable for single-instance
// deployments; recorded results are lost on restart. For anything that has
// to survive restarts or scale horizontally, use RedisStore.
type MemoryStore[T any] struct {
	mu       sync.Mutex
	results  map[string]*T
	inFlight map[string]chan struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore[T any]() *MemoryStore[T] {
	return &MemoryStore[T]{
		results:  make(map[string]*T),
		inFlight: make(map[string]chan struct{}),
	}
}

// CheckAndMark atomically checks for a recorded result or in-flight task and
// reserves the key otherwise.
func (s *MemoryStore[T]) CheckAndMark(_ context.Context, key string) (Status, *T, chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if result, ok := s.results[key]; ok {
		return StatusProcessed, result, nil, nil
	}

	if done, ok := s.inFlight[key]; ok {
		return StatusInFlight, nil, done, nil
	}

	done := make(chan struct{})
	s.inFlight[key] = done
	return StatusNotFound, nil, done, nil
}

// WaitForResult waits for the in-flight task to resolve, then reports the
// recorded result, if any.
func (s *MemoryStore[T]) WaitForResult(ctx context.Context, key string, done chan struct{}) (*T, error) {
	select {
	case <-done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.results[key], nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Complete records the result, releases the slot and wakes waiters.
func (s *MemoryStore[T]) Complete(_ context.Context, key string, result *T, done chan struct{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// First completion wins; results are never replaced or removed.
	if _, ok := s.results[key]; !ok {
		s.results[key] = result
	}
	delete(s.inFlight, key)
	close(done)
	return nil
}

// Fail releases the slot without recording a result.
func (s *MemoryStore[T]) Fail(_ context.Context, key string, done chan struct{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, key)
	close(done)
	return nil
}

var _ Store[struct{}] = (*MemoryStore[struct{}])(nil)
