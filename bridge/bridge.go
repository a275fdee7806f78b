// Package bridge moves requests and events across the trust boundary
// between untrusted page contexts and the privileged dispatcher.
package bridge

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Osamakahen/freo-wallet-sub001/core"
	"github.com/Osamakahen/freo-wallet-sub001/ports"
)

// Handler is the privileged dispatcher the bridge routes into.
type Handler interface {
	Dispatch(ctx context.Context, origin string, req core.RPCRequest) (any, error)
}

// Sender describes where a request physically arrived from. Origin is the
// browsing context's own address as observed by the transport, never a
// value the page supplied.
type Sender struct {
	Origin string
	// Privileged marks background-to-background callers that may assert an
	// origin in the envelope instead.
	Privileged bool
}

// Response is the exactly-once terminal answer for one correlation id.
type Response struct {
	ID     string         `json:"id"`
	Result any            `json:"result,omitempty"`
	Error  *core.RPCError `json:"error,omitempty"`
}

// PageContext is one page-level consumer attached to the bridge. Events for
// its origin arrive on Events; Close detaches and releases it.
type PageContext struct {
	id     string
	origin string
	events chan core.WalletEvent
	bridge *Bridge
	once   sync.Once
}

// Origin returns the context's authoritative origin.
func (c *PageContext) Origin() string { return c.origin }

// Events is the stream of wallet events for this context's origin.
func (c *PageContext) Events() <-chan core.WalletEvent { return c.events }

// Close detaches the context and ends its event stream. Idempotent.
func (c *PageContext) Close() {
	c.once.Do(func() {
		c.bridge.remove(c)
		close(c.events)
	})
}

type pending struct {
	once    sync.Once
	respond func(Response)
}

func (p *pending) resolve(resp Response) {
	p.once.Do(func() { p.respond(resp) })
}

// Bridge routes inbound envelopes to the dispatcher and fans events out to
// every attached context of the event's origin, never across origins.
type Bridge struct {
	handler   Handler
	publisher ports.EventPublisher
	log       zerolog.Logger

	mu       sync.Mutex
	closed   bool
	contexts map[string]map[string]*PageContext // origin -> context id
	inflight map[string]*pending
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithPublisher mirrors broadcast events to an out-of-process publisher.
func WithPublisher(pub ports.EventPublisher) Option {
	return func(b *Bridge) { b.publisher = pub }
}

// WithLogger sets the bridge logger.
func WithLogger(log zerolog.Logger) Option {
	return func(b *Bridge) { b.log = log }
}

// New creates a bridge over the given dispatcher.
func New(handler Handler, opts ...Option) *Bridge {
	b := &Bridge{
		handler:  handler,
		log:      zerolog.Nop(),
		contexts: make(map[string]map[string]*PageContext),
		inflight: make(map[string]*pending),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach registers a page context for an origin. The origin comes from the
// transport, not from page-supplied data.
func (b *Bridge) Attach(origin string) (*PageContext, error) {
	normalized, err := core.NormalizeOrigin(origin)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, core.ErrBridgeUnavailable
	}

	pctx := &PageContext{
		id:     uuid.New().String(),
		origin: normalized,
		events: make(chan core.WalletEvent, 16),
		bridge: b,
	}
	if b.contexts[normalized] == nil {
		b.contexts[normalized] = make(map[string]*PageContext)
	}
	b.contexts[normalized][pctx.id] = pctx
	return pctx, nil
}

func (b *Bridge) remove(pctx *PageContext) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if byID, ok := b.contexts[pctx.origin]; ok {
		delete(byID, pctx.id)
		if len(byID) == 0 {
			delete(b.contexts, pctx.origin)
		}
	}
}

// Submit routes one envelope into the dispatcher and delivers exactly one
// terminal response through respond. A duplicate correlation id is
// discarded without a second dispatcher invocation; Submit returns false
// and respond is never called for it.
func (b *Bridge) Submit(ctx context.Context, env Envelope, sender Sender, respond func(Response)) bool {
	if err := env.Validate(); err != nil {
		respond(Response{ID: env.ID, Error: core.AsRPCError(err)})
		return true
	}

	origin := sender.Origin
	if sender.Privileged && env.Origin != "" {
		origin = env.Origin
	}

	id := env.ID
	if id == "" {
		id = uuid.New().String()
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		respond(Response{ID: id, Error: core.AsRPCError(core.ErrBridgeUnavailable)})
		return true
	}
	if _, dup := b.inflight[id]; dup {
		b.mu.Unlock()
		b.log.Debug().Str("id", id).Msg("duplicate request id discarded")
		return false
	}
	p := &pending{respond: respond}
	b.inflight[id] = p
	b.mu.Unlock()

	result, err := b.handler.Dispatch(ctx, origin, core.RPCRequest{Method: env.Method, Params: env.Params})

	b.mu.Lock()
	delete(b.inflight, id)
	b.mu.Unlock()

	if err != nil {
		p.resolve(Response{ID: id, Error: core.AsRPCError(err)})
		return true
	}
	p.resolve(Response{ID: id, Result: result})
	return true
}

// Request is the blocking form used by in-process consumers: it submits on
// behalf of an attached context and waits for the terminal response.
func (b *Bridge) Request(ctx context.Context, pctx *PageContext, method string, params []json.RawMessage) (any, error) {
	respCh := make(chan Response, 1)
	env := Envelope{Target: TargetBackground, Method: method, Params: params}
	go b.Submit(ctx, env, Sender{Origin: pctx.origin}, func(resp Response) {
		respCh <- resp
	})

	select {
	case resp := <-respCh:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-ctx.Done():
		// The caller navigated away or timed out; the eventual response is
		// dropped into the buffered channel and collected.
		return nil, core.ErrBridgeUnavailable
	}
}

// Broadcast fans an event out to every context of the event's origin and
// mirrors it to the publisher. Implements ports.EventSink.
func (b *Bridge) Broadcast(event core.WalletEvent) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	// Sends stay under the lock so a context cannot be detached (and its
	// channel closed) mid fan-out. Sends never block.
	for _, pctx := range b.contexts[event.Origin] {
		select {
		case pctx.events <- event:
		default:
			// A stalled consumer must not block fan-out to its siblings.
			b.log.Warn().Str("origin", event.Origin).Msg("dropping event for slow context")
		}
	}
	b.mu.Unlock()

	if b.publisher != nil {
		if err := b.publisher.PublishWalletEvent(context.Background(), event); err != nil {
			b.log.Warn().Err(err).Str("origin", event.Origin).Msg("failed to publish wallet event")
		}
	}
}

// Close tears the bridge down: every in-flight request fails with
// core.ErrBridgeUnavailable instead of hanging, and all contexts detach.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	inflight := make([]*pending, 0, len(b.inflight))
	for id, p := range b.inflight {
		inflight = append(inflight, p)
		delete(b.inflight, id)
	}
	contexts := make([]*PageContext, 0)
	for _, byID := range b.contexts {
		for _, pctx := range byID {
			contexts = append(contexts, pctx)
		}
	}
	b.mu.Unlock()

	for _, p := range inflight {
		p.resolve(Response{Error: core.AsRPCError(core.ErrBridgeUnavailable)})
	}
	for _, pctx := range contexts {
		pctx.Close()
	}
}
