// Package session owns the per-origin grant table. All grant mutation goes
// through this package; other components only read or request changes here.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Osamakahen/freo-wallet-sub001/core"
	"github.com/Osamakahen/freo-wallet-sub001/ports"
)

const keyPrefix = "freo:session:"

// Store is the durable, queryable grant table. At most one grant exists per
// origin; last write wins. Expiry is checked lazily at read time.
type Store struct {
	kv       ports.Store
	lifetime time.Duration
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLifetime overrides the grant lifetime policy.
func WithLifetime(d time.Duration) Option {
	return func(s *Store) { s.lifetime = d }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a grant table over the given persistence backend.
func NewStore(kv ports.Store, opts ...Option) *Store {
	s := &Store{
		kv:       kv,
		lifetime: core.DefaultSessionLifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the grant for the origin. An expired grant is logically
// absent: it is dropped from the backend and core.ErrNotFound is returned.
func (s *Store) Get(ctx context.Context, origin string) (core.SessionGrant, error) {
	origin, err := core.NormalizeOrigin(origin)
	if err != nil {
		return core.SessionGrant{}, err
	}
	return s.get(ctx, origin)
}

// Create replaces any existing grant for the origin. Grants start with
// autoConnect enabled and expire after the configured lifetime.
func (s *Store) Create(ctx context.Context, origin, address, chainID string, scopes map[string]bool) (core.SessionGrant, error) {
	origin, err := core.NormalizeOrigin(origin)
	if err != nil {
		return core.SessionGrant{}, err
	}
	if scopes == nil {
		scopes = map[string]bool{}
	}

	now := s.now()
	grant := core.SessionGrant{
		ID:          uuid.New().String(),
		Origin:      origin,
		Address:     address,
		ChainID:     chainID,
		Permissions: scopes,
		AutoConnect: true,
		CreatedAt:   now.UnixMilli(),
		ExpiresAt:   now.Add(s.lifetime).UnixMilli(),
	}
	if err := s.put(ctx, grant); err != nil {
		return core.SessionGrant{}, err
	}
	return grant, nil
}

// UpdateNetwork switches the grant's chain in place; expiry does not reset.
// A switch for an unconnected origin is a no-op, not an error.
func (s *Store) UpdateNetwork(ctx context.Context, origin, chainID string) error {
	return s.mutate(ctx, origin, func(g *core.SessionGrant) {
		g.ChainID = chainID
	})
}

// SetAutoConnect toggles the auto-connect flag without touching expiry.
func (s *Store) SetAutoConnect(ctx context.Context, origin string, on bool) error {
	return s.mutate(ctx, origin, func(g *core.SessionGrant) {
		g.AutoConnect = on
	})
}

// Remove deletes the grant. Idempotent.
func (s *Store) Remove(ctx context.Context, origin string) error {
	origin, err := core.NormalizeOrigin(origin)
	if err != nil {
		return err
	}
	if err := s.kv.Remove(ctx, keyPrefix+origin); err != nil {
		return fmt.Errorf("%w: remove session: %v", core.ErrStoreOperationFailed, err)
	}
	return nil
}

// ShouldAutoConnect reports whether a non-expired grant exists with its
// auto-connect flag set.
func (s *Store) ShouldAutoConnect(ctx context.Context, origin string) bool {
	grant, err := s.Get(ctx, origin)
	return err == nil && grant.AutoConnect
}

func (s *Store) get(ctx context.Context, origin string) (core.SessionGrant, error) {
	raw, err := s.kv.Get(ctx, keyPrefix+origin)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.SessionGrant{}, core.ErrNotFound
		}
		return core.SessionGrant{}, fmt.Errorf("%w: get session: %v", core.ErrStoreOperationFailed, err)
	}

	var grant core.SessionGrant
	if err := json.Unmarshal([]byte(raw), &grant); err != nil {
		return core.SessionGrant{}, fmt.Errorf("%w: corrupt session record: %v", core.ErrStoreOperationFailed, err)
	}
	if grant.Expired(s.now()) {
		// Lazy sweep. Removal failure is ignored: the record is already
		// logically absent.
		_ = s.kv.Remove(ctx, keyPrefix+origin)
		return core.SessionGrant{}, core.ErrNotFound
	}
	return grant, nil
}

func (s *Store) put(ctx context.Context, grant core.SessionGrant) error {
	raw, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}
	ttl := time.UnixMilli(grant.ExpiresAt).Sub(s.now())
	if err := s.kv.Set(ctx, keyPrefix+grant.Origin, string(raw), ttl); err != nil {
		return fmt.Errorf("%w: put session: %v", core.ErrStoreOperationFailed, err)
	}
	return nil
}

func (s *Store) mutate(ctx context.Context, origin string, fn func(*core.SessionGrant)) error {
	origin, err := core.NormalizeOrigin(origin)
	if err != nil {
		return err
	}
	grant, err := s.get(ctx, origin)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return err
	}
	fn(&grant)
	return s.put(ctx, grant)
}
