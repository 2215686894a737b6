package presence

import (
	"context"
	"time"
)

// Store tracks which users are online.
type Store interface {
	MarkOnline(ctx context.Context, userID string, ttl time.Duration) error
	MarkOffline(ctx context.Context, userID string) error
	// Online returns the subset of userIDs currently online.
	Online(ctx context.Context, userIDs []string) (map[string]bool, error)
}
