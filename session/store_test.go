package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Osamakahen/freo-wallet-sub001/adapters/store"
	"github.com/Osamakahen/freo-wallet-sub001/core"
	"github.com/Osamakahen/freo-wallet-sub001/session"
)

const (
	testOrigin  = "https://dapp.test"
	testAccount = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestStore(opts ...session.Option) (*session.Store, *fakeClock) {
	clk := &fakeClock{t: time.Now()}
	opts = append([]session.Option{session.WithClock(clk.Now)}, opts...)
	return session.NewStore(store.NewMemoryStore(), opts...), clk
}

func TestCreateAndGet(t *testing.T) {
	s, clk := newTestStore()
	ctx := context.Background()

	grant, err := s.Create(ctx, testOrigin, testAccount, "0x1", map[string]bool{"eth_accounts": true})
	require.NoError(t, err)
	assert.NotEmpty(t, grant.ID)
	assert.Equal(t, testOrigin, grant.Origin)
	assert.True(t, grant.AutoConnect)
	assert.Equal(t, clk.Now().Add(core.DefaultSessionLifetime).UnixMilli(), grant.ExpiresAt)

	got, err := s.Get(ctx, testOrigin)
	require.NoError(t, err)
	assert.Equal(t, grant, got)
	assert.True(t, got.HasPermission("eth_accounts"))
	assert.False(t, got.HasPermission("eth_sendTransaction"))
}

func TestGetUnknownOrigin(t *testing.T) {
	s, _ := newTestStore()

	_, err := s.Get(context.Background(), "https://unknown.test")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestGetNormalizesOrigin(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	_, err := s.Create(ctx, "HTTPS://DApp.Test:443", testAccount, "0x1", nil)
	require.NoError(t, err)

	got, err := s.Get(ctx, testOrigin)
	require.NoError(t, err)
	assert.Equal(t, testOrigin, got.Origin)
}

func TestExpiredGrantIsAbsent(t *testing.T) {
	s, clk := newTestStore(session.WithLifetime(time.Hour))
	ctx := context.Background()

	_, err := s.Create(ctx, testOrigin, testAccount, "0x1", nil)
	require.NoError(t, err)

	clk.Advance(time.Hour - time.Second)
	_, err = s.Get(ctx, testOrigin)
	require.NoError(t, err)

	clk.Advance(2 * time.Second)
	_, err = s.Get(ctx, testOrigin)
	require.ErrorIs(t, err, core.ErrNotFound)
	assert.False(t, s.ShouldAutoConnect(ctx, testOrigin))
}

func TestCreateReplacesExisting(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	first, err := s.Create(ctx, testOrigin, testAccount, "0x1", nil)
	require.NoError(t, err)
	second, err := s.Create(ctx, testOrigin, testAccount, "0x89", nil)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	got, err := s.Get(ctx, testOrigin)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, "0x89", got.ChainID)
}

func TestSetAutoConnect(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	_, err := s.Create(ctx, testOrigin, testAccount, "0x1", nil)
	require.NoError(t, err)
	require.True(t, s.ShouldAutoConnect(ctx, testOrigin))

	require.NoError(t, s.SetAutoConnect(ctx, testOrigin, false))
	assert.False(t, s.ShouldAutoConnect(ctx, testOrigin))

	// The grant itself survives; only the flag changed.
	got, err := s.Get(ctx, testOrigin)
	require.NoError(t, err)
	assert.False(t, got.AutoConnect)
}

func TestUpdateNetworkKeepsExpiry(t *testing.T) {
	s, clk := newTestStore()
	ctx := context.Background()

	grant, err := s.Create(ctx, testOrigin, testAccount, "0x1", nil)
	require.NoError(t, err)

	clk.Advance(time.Minute)
	require.NoError(t, s.UpdateNetwork(ctx, testOrigin, "0x89"))

	got, err := s.Get(ctx, testOrigin)
	require.NoError(t, err)
	assert.Equal(t, "0x89", got.ChainID)
	assert.Equal(t, grant.ExpiresAt, got.ExpiresAt)
}

func TestUpdateNetworkUnconnectedOrigin(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.UpdateNetwork(ctx, testOrigin, "0x89"))
	_, err := s.Get(ctx, testOrigin)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestRemoveIsIdempotent(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	_, err := s.Create(ctx, testOrigin, testAccount, "0x1", nil)
	require.NoError(t, err)

	require.NoError(t, s.Remove(ctx, testOrigin))
	_, err = s.Get(ctx, testOrigin)
	require.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, s.Remove(ctx, testOrigin))
}
