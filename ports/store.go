package ports

import (
	"context"
	"time"
)

// Store is the swappable persistence backend for session grants. Keys are
// namespaced by the caller; implementations must return core.ErrNotFound for
// absent keys. A zero ttl means no expiry.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
