package provider_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Osamakahen/freo-wallet-sub001/bridge"
	"github.com/Osamakahen/freo-wallet-sub001/core"
	"github.com/Osamakahen/freo-wallet-sub001/provider"
)

const testOrigin = "https://dapp.test"

type handlerFunc func(ctx context.Context, origin string, req core.RPCRequest) (any, error)

func (f handlerFunc) Dispatch(ctx context.Context, origin string, req core.RPCRequest) (any, error) {
	return f(ctx, origin, req)
}

type recordingListener struct {
	mu     sync.Mutex
	events []core.WalletEvent
}

func (l *recordingListener) OnWalletEvent(event core.WalletEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *recordingListener) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

func newTestProvider(t *testing.T, h handlerFunc) (*provider.Provider, *bridge.Bridge) {
	t.Helper()
	b := bridge.New(h)
	t.Cleanup(b.Close)
	p, err := provider.New(b, testOrigin)
	require.NoError(t, err)
	return p, b
}

func TestRequestForwardsMethodAndParams(t *testing.T) {
	p, _ := newTestProvider(t, func(ctx context.Context, origin string, req core.RPCRequest) (any, error) {
		assert.Equal(t, testOrigin, origin)
		assert.Equal(t, "personal_sign", req.Method)
		var msg string
		if err := req.Param(0, &msg); err != nil {
			return nil, err
		}
		return "0xsigned:" + msg, nil
	})

	result, err := p.Request(context.Background(), provider.RequestArgs{
		Method: "personal_sign",
		Params: []any{"hello", "0xabc"},
	})
	require.NoError(t, err)
	assert.Equal(t, "0xsigned:hello", result)
}

func TestRequestErrorsAreStructured(t *testing.T) {
	p, _ := newTestProvider(t, func(ctx context.Context, origin string, req core.RPCRequest) (any, error) {
		return nil, core.ErrNotConnected
	})

	_, err := p.Request(context.Background(), provider.RequestArgs{Method: "eth_blockNumber"})
	require.Error(t, err)
	var rpcErr *core.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, core.CodeUnauthorized, rpcErr.Code)
}

func TestConnectRetriesTransientFailures(t *testing.T) {
	var mu sync.Mutex
	var calls int
	p, _ := newTestProvider(t, func(ctx context.Context, origin string, req core.RPCRequest) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 3 {
			return nil, core.ErrBridgeUnavailable
		}
		return []string{"0xabc"}, nil
	})

	accounts, err := p.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0xabc"}, accounts)
	mu.Lock()
	assert.Equal(t, 3, calls)
	mu.Unlock()
}

func TestConnectStopsOnUserRejection(t *testing.T) {
	var mu sync.Mutex
	var calls int
	p, _ := newTestProvider(t, func(ctx context.Context, origin string, req core.RPCRequest) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil, core.ErrUserRejected
	})

	_, err := p.Connect(context.Background())
	var rpcErr *core.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, core.CodeUserRejected, rpcErr.Code)
	mu.Lock()
	assert.Equal(t, 1, calls, "a rejection must not be retried")
	mu.Unlock()
}

func TestConnectGivesUpAfterThreeAttempts(t *testing.T) {
	var mu sync.Mutex
	var calls int
	p, _ := newTestProvider(t, func(ctx context.Context, origin string, req core.RPCRequest) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil, core.ErrBridgeUnavailable
	})

	_, err := p.Connect(context.Background())
	var rpcErr *core.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, core.CodeDisconnected, rpcErr.Code)
	mu.Lock()
	assert.Equal(t, 3, calls)
	mu.Unlock()
}

func TestEventsUpdateCachedState(t *testing.T) {
	p, b := newTestProvider(t, func(ctx context.Context, origin string, req core.RPCRequest) (any, error) {
		return nil, nil
	})

	b.Broadcast(core.AccountsChangedEvent(testOrigin, []string{"0xabc"}))
	b.Broadcast(core.ChainChangedEvent(testOrigin, "0x89"))
	require.Eventually(t, func() bool {
		return p.SelectedAddress() == "0xabc" && p.ChainID() == "0x89"
	}, time.Second, 5*time.Millisecond)

	b.Broadcast(core.DisconnectEvent(testOrigin, "session closed"))
	require.Eventually(t, func() bool {
		return p.SelectedAddress() == ""
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "0x89", p.ChainID(), "disconnect clears the address, not the chain")
}

func TestListenerRegistrationDeduplicates(t *testing.T) {
	p, b := newTestProvider(t, func(ctx context.Context, origin string, req core.RPCRequest) (any, error) {
		return nil, nil
	})

	l := &recordingListener{}
	p.On(core.EventChainChanged, l)
	p.On(core.EventChainChanged, l) // same listener, fires once

	b.Broadcast(core.ChainChangedEvent(testOrigin, "0x89"))
	require.Eventually(t, func() bool { return l.count() == 1 }, time.Second, 5*time.Millisecond)

	p.RemoveListener(core.EventChainChanged, l)
	b.Broadcast(core.ChainChangedEvent(testOrigin, "0x1"))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, l.count(), "removed listener must stop receiving")
}

func TestCloseStopsEventConsumption(t *testing.T) {
	p, b := newTestProvider(t, func(ctx context.Context, origin string, req core.RPCRequest) (any, error) {
		return nil, nil
	})

	p.Close()
	// Broadcasting after close must not panic or hang.
	b.Broadcast(core.ChainChangedEvent(testOrigin, "0x89"))
	assert.Empty(t, p.ChainID())
}
