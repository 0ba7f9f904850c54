// Package idempotency enforces at-most-once processing per payment
// identifier.
//
// A claim is Reserved by the first task that calls CheckAndMark, which takes
// an exclusive per-key slot. Concurrent tasks for the same key observe the
// in-flight slot and wait on its done channel; once the owner resolves they
// re-check for a recorded result. A result is recorded only after the mint
// confirms, so a failed attempt leaves the key eligible for retry.
//
// Recorded results are permanent for the lifetime of the store: repeating a
// completed claim returns the original result instead of minting again.
package idempotency

import "context"

// Status is the outcome of checking the store for a key.
type Status int

const (
	// StatusNotFound means no recorded result and no in-flight task.
	// The caller now owns the in-flight slot and must resolve it with
	// Complete or Fail.
	StatusNotFound Status = iota
	// StatusProcessed means a result was recorded by a prior completion.
	StatusProcessed
	// StatusInFlight means another task is currently processing this key.
	StatusInFlight
)

// Store tracks processed payments keyed by transaction hash.
// Implementations must be safe for concurrent use.
//
// T is the result type recorded on completion.
type Store[T any] interface {
	// CheckAndMark atomically checks the store and reserves the key if it
	// is neither processed nor in flight.
	//
	// Returns:
	//   - StatusProcessed + result: already completed, use the recorded result
	//   - StatusInFlight + done: another task owns the key; wait on done.
	//     done may be nil when the owner is another process.
	//   - StatusNotFound + done: this task now owns the key; the same done
	//     channel must be passed to Complete or Fail.
	CheckAndMark(ctx context.Context, key string) (Status, *T, chan struct{}, error)

	// WaitForResult blocks until the in-flight task for key resolves,
	// respecting context cancellation. Returns the recorded result if the
	// task completed, or nil if it failed and the key is retryable again.
	WaitForResult(ctx context.Context, key string, done chan struct{}) (*T, error)

	// Complete records the result for key, releases the in-flight slot and
	// wakes waiters. Recording the same key twice is a no-op for the
	// membership; the first recorded result wins.
	Complete(ctx context.Context, key string, result *T, done chan struct{}) error

	// Fail releases the in-flight slot without recording a result, waking
	// waiters so the key can be retried.
	Fail(ctx context.Context, key string, done chan struct{}) error
}
