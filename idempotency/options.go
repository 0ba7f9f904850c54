package idempotency

import "time"

// redisConfig holds RedisStore settings.
type redisConfig struct {
	prefix       string
	reserveTTL   time.Duration
	pollInterval time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*redisConfig)

// WithKeyPrefix sets the Redis key namespace.
//
// Default: "mintgate:processed:"
func WithKeyPrefix(prefix string) RedisOption {
	return func(c *redisConfig) {
		c.prefix = prefix
	}
}

// WithReservationTTL bounds how long an in-flight reservation is honored.
// If the owning process dies mid-mint, the reservation expires and the key
// becomes claimable again. Set it comfortably above the confirmation
// timeout so a live owner never loses its slot.
//
// Default: 15 minutes
func WithReservationTTL(ttl time.Duration) RedisOption {
	return func(c *redisConfig) {
		c.reserveTTL = ttl
	}
}

// WithPollInterval sets how often waiters in other processes poll for the
// owner's resolution. Waiters in the owning process are woken directly and
// never poll.
//
// Default: 250ms
func WithPollInterval(d time.Duration) RedisOption {
	return func(c *redisConfig) {
		c.pollInterval = d
	}
}
