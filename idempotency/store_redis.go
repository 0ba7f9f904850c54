package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis, for deployments where processed
// payments must survive restarts and be shared across instances.
//
// Layout:
//   - <prefix><key>            permanent JSON record of the result
//   - <prefix><key>:inflight   reservation marker with TTL (SET NX)
//
// Reservation is an atomic SET NX, so two instances racing on the same key
// agree on a single owner. Waiters in the owning process are woken through
// an in-process done channel; waiters in other processes poll for the
// result record or the reservation's disappearance.
type RedisStore[T any] struct {
	client *goredis.Client
	cfg    redisConfig

	mu       sync.Mutex
	inFlight map[string]chan struct{}
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore[T any](client *goredis.Client, opts ...RedisOption) *RedisStore[T] {
	cfg := redisConfig{
		prefix:       "mintgate:processed:",
		reserveTTL:   15 * time.Minute,
		pollInterval: 250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &RedisStore[T]{
		client:   client,
		cfg:      cfg,
		inFlight: make(map[string]chan struct{}),
	}
}

func (s *RedisStore[T]) resultKey(key string) string {
	return s.cfg.prefix + key
}

func (s *RedisStore[T]) reserveKey(key string) string {
	return s.cfg.prefix + key + ":inflight"
}

// CheckAndMark checks for a recorded result, then attempts an atomic
// reservation via SET NX. A reservation won for an already-completed key
// is released and reported as processed.
func (s *RedisStore[T]) CheckAndMark(ctx context.Context, key string) (Status, *T, chan struct{}, error) {
	result, err := s.getResult(ctx, key)
	if err != nil {
		return StatusNotFound, nil, nil, err
	}
	if result != nil {
		return StatusProcessed, result, nil, nil
	}

	acquired, err := s.client.SetNX(ctx, s.reserveKey(key), "1", s.cfg.reserveTTL).Result()
	if err != nil {
		return StatusNotFound, nil, nil, fmt.Errorf("redis reserve: %w", err)
	}

	if acquired {
		// A completion may have landed between the result read and the
		// reservation: the owner records the result first and drops its
		// reservation second, so the freed slot can be won for a key that
		// is already completed. Results are permanent, so a re-read after
		// winning the reservation is authoritative.
		result, err := s.getResult(ctx, key)
		if err != nil || result != nil {
			// Best-effort release; the TTL bounds a failed delete.
			s.client.Del(ctx, s.reserveKey(key))
			if err != nil {
				return StatusNotFound, nil, nil, err
			}
			return StatusProcessed, result, nil, nil
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		done := make(chan struct{})
		s.inFlight[key] = done
		return StatusNotFound, nil, done, nil
	}

	// Reserved by someone. If it's a task in this process we can hand out
	// its done channel; otherwise waiters poll.
	s.mu.Lock()
	defer s.mu.Unlock()
	if done, ok := s.inFlight[key]; ok {
		return StatusInFlight, nil, done, nil
	}
	return StatusInFlight, nil, nil, nil
}

// WaitForResult waits for the owner of key to resolve. A nil done channel
// means the owner is remote and resolution is observed through Redis.
func (s *RedisStore[T]) WaitForResult(ctx context.Context, key string, done chan struct{}) (*T, error) {
	if done != nil {
		select {
		case <-done:
			return s.getResult(ctx, key)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	ticker := time.NewTicker(s.cfg.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			result, err := s.getResult(ctx, key)
			if err != nil {
				return nil, err
			}
			if result != nil {
				return result, nil
			}
			held, err := s.client.Exists(ctx, s.reserveKey(key)).Result()
			if err != nil {
				return nil, fmt.Errorf("redis exists: %w", err)
			}
			if held == 0 {
				// Owner failed or its reservation expired.
				return nil, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Complete records the result permanently, drops the reservation and wakes
// local waiters. Local waiters are woken even if Redis fails; the
// reservation TTL bounds the damage of a failed release.
func (s *RedisStore[T]) Complete(ctx context.Context, key string, result *T, done chan struct{}) error {
	defer s.release(key, done)

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	// SETNX keeps the first recorded result if a duplicate ever lands.
	if err := s.client.SetNX(ctx, s.resultKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("redis record result: %w", err)
	}
	if err := s.client.Del(ctx, s.reserveKey(key)).Err(); err != nil {
		return fmt.Errorf("redis release reservation: %w", err)
	}
	return nil
}

// Fail drops the reservation without recording a result.
func (s *RedisStore[T]) Fail(ctx context.Context, key string, done chan struct{}) error {
	defer s.release(key, done)

	if err := s.client.Del(ctx, s.reserveKey(key)).Err(); err != nil {
		return fmt.Errorf("redis release reservation: %w", err)
	}
	return nil
}

func (s *RedisStore[T]) release(key string, done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)
	close(done)
}

func (s *RedisStore[T]) getResult(ctx context.Context, key string) (*T, error) {
	data, err := s.client.Get(ctx, s.resultKey(key)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get result: %w", err)
	}
	result := new(T)
	if err := json.Unmarshal(data, result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return result, nil
}

var _ Store[struct{}] = (*RedisStore[struct{}])(nil)
