package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which events were already handled
type IdempotencyStore interface {
	// MarkProcessed returns true if the event was newly marked, false if it
	// had already been marked
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	// Forget removes the mark so a failed event can be handled again on redelivery
	Forget(ctx context.Context, eventID string) error
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
