package mintgate

import "context"

// SubmitQueue serializes mint submissions from the single signing identity.
// The identity's outbound calls share one on-chain nonce sequence; two
// concurrent submissions can collide on a nonce slot or be reordered by the
// network, so at most one mint call may be outstanding at a time. Waiters
// are served in arrival order.
type SubmitQueue struct {
	slot chan struct{}
}

// NewSubmitQueue creates a queue with a single execution slot.
func NewSubmitQueue() *SubmitQueue {
	return &SubmitQueue{slot: make(chan struct{}, 1)}
}

// Acquire blocks until the slot is free or ctx expires.
func (q *SubmitQueue) Acquire(ctx context.Context) error {
	select {
	case q.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees the slot. Must be called exactly once per successful Acquire.
func (q *SubmitQueue) Release() {
	select {
	case <-q.slot:
	default:
		panic("mintgate: Release without Acquire")
	}
}
