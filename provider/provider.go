// Package provider is the page-visible EIP-1193 facade. It queues requests
// through the bridge and re-emits inbound events to local listeners.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Osamakahen/freo-wallet-sub001/bridge"
	"github.com/Osamakahen/freo-wallet-sub001/core"
)

// Listener receives provider events. Registration is de-duplicated by
// listener identity, so the same listener added twice fires once.
type Listener interface {
	OnWalletEvent(event core.WalletEvent)
}

// RequestArgs is the EIP-1193 request object.
type RequestArgs struct {
	Method string `json:"method"`
	Params []any  `json:"params,omitempty"`
}

// Provider is one origin's injected provider. Its selectedAddress/chainId
// cache changes only in reaction to bridge-delivered events, never
// speculatively.
type Provider struct {
	pctx *bridge.PageContext
	br   *bridge.Bridge
	log  zerolog.Logger

	mu              sync.RWMutex
	listeners       map[string]map[Listener]struct{}
	selectedAddress string
	chainID         string

	done chan struct{}
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the provider logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Provider) { p.log = log }
}

// New attaches a provider for the given origin and starts consuming its
// event stream.
func New(br *bridge.Bridge, origin string, opts ...Option) (*Provider, error) {
	pctx, err := br.Attach(origin)
	if err != nil {
		return nil, err
	}
	p := &Provider{
		pctx:      pctx,
		br:        br,
		log:       zerolog.Nop(),
		listeners: make(map[string]map[Listener]struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.consumeEvents()
	return p, nil
}

// Request is the sole EIP-1193 entry point. Failures are always structured
// *core.RPCError values, never opaque strings.
func (p *Provider) Request(ctx context.Context, args RequestArgs) (any, error) {
	params := make([]json.RawMessage, 0, len(args.Params))
	for i, param := range args.Params {
		raw, err := json.Marshal(param)
		if err != nil {
			return nil, core.AsRPCError(fmt.Errorf("%w: param %d: %v", core.ErrInvalidParams, i, err))
		}
		params = append(params, raw)
	}

	result, err := p.br.Request(ctx, p.pctx, args.Method, params)
	if err != nil {
		return nil, core.AsRPCError(err)
	}
	return result, nil
}

// Connect runs the bounded connect handshake: up to three
// eth_requestAccounts attempts with backoff, surfaced as terminal failure
// after the last. A user rejection is terminal immediately.
func (p *Provider) Connect(ctx context.Context) ([]string, error) {
	const attempts = 3
	delay := 250 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := p.Request(ctx, RequestArgs{Method: "eth_requestAccounts"})
		if err == nil {
			return toAccounts(result), nil
		}
		lastErr = err

		var rpcErr *core.RPCError
		if errors.As(err, &rpcErr) && rpcErr.Code == core.CodeUserRejected {
			return nil, err
		}
		p.log.Debug().Err(err).Int("attempt", attempt).Msg("connect attempt failed")

		select {
		case <-ctx.Done():
			return nil, core.AsRPCError(core.ErrBridgeUnavailable)
		case <-time.After(delay):
			delay *= 2
		}
	}
	return nil, lastErr
}

// On registers a listener for an event name.
func (p *Provider) On(event string, l Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listeners[event] == nil {
		p.listeners[event] = make(map[Listener]struct{})
	}
	p.listeners[event][l] = struct{}{}
}

// RemoveListener unregisters a listener. Unknown listeners are a no-op.
func (p *Provider) RemoveListener(event string, l Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.listeners[event], l)
}

// SelectedAddress returns the cached connected address, empty when
// disconnected.
func (p *Provider) SelectedAddress() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.selectedAddress
}

// ChainID returns the cached hex chain id.
func (p *Provider) ChainID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.chainID
}

// Close detaches the provider from the bridge.
func (p *Provider) Close() {
	p.pctx.Close()
	<-p.done
}

func (p *Provider) consumeEvents() {
	defer close(p.done)
	for event := range p.pctx.Events() {
		p.applyEvent(event)
		for _, l := range p.snapshotListeners(event.Name) {
			l.OnWalletEvent(event)
		}
	}
}

func (p *Provider) applyEvent(event core.WalletEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch event.Name {
	case core.EventAccountsChanged:
		if len(event.Accounts) > 0 {
			p.selectedAddress = event.Accounts[0]
		} else {
			p.selectedAddress = ""
		}
	case core.EventChainChanged:
		p.chainID = event.ChainID
	case core.EventDisconnect:
		p.selectedAddress = ""
	}
}

func (p *Provider) snapshotListeners(event string) []Listener {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Listener, 0, len(p.listeners[event]))
	for l := range p.listeners[event] {
		out = append(out, l)
	}
	return out
}

func toAccounts(result any) []string {
	switch v := result.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
