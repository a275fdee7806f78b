// Package service hosts the permission/method dispatcher, the central state
// machine between page-context requests and the key store.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Osamakahen/freo-wallet-sub001/config"
	"github.com/Osamakahen/freo-wallet-sub001/core"
	"github.com/Osamakahen/freo-wallet-sub001/keystore"
	"github.com/Osamakahen/freo-wallet-sub001/ports"
	"github.com/Osamakahen/freo-wallet-sub001/session"
)

// Scopes granted on first connection approval.
var defaultScopes = map[string]bool{
	"eth_accounts": true,
	"eth_chainId":  true,
}

// ConnectionStatus is the freo_getConnectionStatus result.
type ConnectionStatus struct {
	Connected   bool   `json:"connected"`
	Address     string `json:"address,omitempty"`
	ChainID     string `json:"chainId"`
	AutoConnect bool   `json:"autoConnect"`
	Unlocked    bool   `json:"unlocked"`
}

// Dispatcher classifies every inbound (origin, method, params) tuple and
// enforces the matching policy: silent read, session-required, or
// user-confirmed signing. Requests for the same origin are serialized in
// arrival order; different origins never contend.
type Dispatcher struct {
	keys     *keystore.KeyStore
	sessions *session.Store
	chains   *config.ChainRegistry
	approver ports.Approver
	network  ports.NetworkAdapter
	events   ports.EventSink
	log      zerolog.Logger

	defaultChain    string
	approvalTimeout time.Duration

	mu          sync.Mutex
	originLocks map[string]*sync.Mutex
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(log zerolog.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

// WithDefaultChain sets the chain reported to unconnected origins.
func WithDefaultChain(chainID string) Option {
	return func(d *Dispatcher) { d.defaultChain = chainID }
}

// WithApprovalTimeout bounds how long approval prompts may stay open.
func WithApprovalTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.approvalTimeout = timeout }
}

// NewDispatcher creates a dispatcher. Call BindEvents before serving so
// chain/account changes reach page contexts.
func NewDispatcher(
	keys *keystore.KeyStore,
	sessions *session.Store,
	chains *config.ChainRegistry,
	approver ports.Approver,
	network ports.NetworkAdapter,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		keys:            keys,
		sessions:        sessions,
		chains:          chains,
		approver:        approver,
		network:         network,
		log:             zerolog.Nop(),
		defaultChain:    "0x1",
		approvalTimeout: 2 * time.Minute,
		originLocks:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// BindEvents attaches the event sink (the bridge). Set once at wiring time.
func (d *Dispatcher) BindEvents(sink ports.EventSink) {
	d.events = sink
}

// Dispatch resolves one request for an origin. The caller-asserted origin
// must already be authoritative (the bridge's job).
func (d *Dispatcher) Dispatch(ctx context.Context, origin string, req core.RPCRequest) (any, error) {
	origin, err := core.NormalizeOrigin(origin)
	if err != nil {
		return nil, err
	}

	lock := d.originLock(origin)
	lock.Lock()
	defer lock.Unlock()

	d.log.Debug().Str("origin", origin).Str("method", req.Method).Msg("dispatching request")

	switch req.Method {
	case "eth_requestAccounts", "eth_accounts":
		return d.handleRequestAccounts(ctx, origin)
	case "eth_chainId":
		return d.handleChainID(ctx, origin)
	case "freo_getConnectionStatus":
		return d.handleConnectionStatus(ctx, origin)
	case "wallet_switchEthereumChain":
		return d.handleSwitchChain(ctx, origin, req)
	case "wallet_addEthereumChain":
		return d.handleAddChain(ctx, origin, req)
	case "personal_sign", "eth_sign":
		return d.handleSignMessage(ctx, origin, req)
	case "eth_signTypedData_v4":
		return d.handleSignTypedData(ctx, origin, req)
	case "eth_signTransaction":
		return d.handleSignTransaction(ctx, origin, req, false)
	case "eth_sendTransaction":
		return d.handleSignTransaction(ctx, origin, req, true)
	case "freo_disconnectSession":
		return d.handleDisconnect(ctx, origin)
	default:
		return d.handlePassthrough(ctx, origin, req)
	}
}

// handleRequestAccounts serves the session-bootstrap class. A non-expired,
// auto-connectable session answers silently; otherwise the approval
// collaborator selects an account and a session is created.
func (d *Dispatcher) handleRequestAccounts(ctx context.Context, origin string) (any, error) {
	grant, err := d.sessions.Get(ctx, origin)
	if err == nil && grant.AutoConnect {
		return []string{grant.Address}, nil
	}

	candidate := ""
	if addr, err := d.keys.Address(); err == nil {
		candidate = addr.Hex()
	}

	var address string
	err = d.withApprovalTimeout(ctx, func(actx context.Context) error {
		var aerr error
		address, aerr = d.approver.ApproveConnection(actx, origin, candidate)
		return aerr
	})
	if err != nil {
		return nil, err
	}

	grant, err = d.sessions.Create(ctx, origin, address, d.defaultChain, cloneScopes(defaultScopes))
	if err != nil {
		return nil, err
	}
	d.broadcast(core.AccountsChangedEvent(origin, []string{grant.Address}))
	d.log.Info().Str("origin", origin).Str("address", grant.Address).Msg("session created")
	return []string{grant.Address}, nil
}

// handleChainID is a silent read: the session chain if connected, the
// documented default otherwise.
func (d *Dispatcher) handleChainID(ctx context.Context, origin string) (any, error) {
	if grant, err := d.sessions.Get(ctx, origin); err == nil {
		return grant.ChainID, nil
	}
	return d.defaultChain, nil
}

func (d *Dispatcher) handleConnectionStatus(ctx context.Context, origin string) (any, error) {
	status := ConnectionStatus{
		ChainID:  d.defaultChain,
		Unlocked: d.keys.Unlocked(),
	}
	if grant, err := d.sessions.Get(ctx, origin); err == nil {
		status.Connected = true
		status.Address = grant.Address
		status.ChainID = grant.ChainID
		status.AutoConnect = grant.AutoConnect
	}
	return status, nil
}

type switchChainParams struct {
	ChainID string `json:"chainId"`
}

// handleSwitchChain validates the target against the supported set before
// mutating anything. Applied in arrival order; last write wins and every
// context of the origin sees the final state.
func (d *Dispatcher) handleSwitchChain(ctx context.Context, origin string, req core.RPCRequest) (any, error) {
	var params switchChainParams
	if err := req.Param(0, &params); err != nil {
		return nil, err
	}
	if !d.chains.Supported(params.ChainID) {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedChain, params.ChainID)
	}

	if err := d.sessions.UpdateNetwork(ctx, origin, params.ChainID); err != nil {
		return nil, err
	}
	if _, err := d.sessions.Get(ctx, origin); err == nil {
		d.broadcast(core.ChainChangedEvent(origin, params.ChainID))
	}
	d.log.Info().Str("origin", origin).Str("chain", params.ChainID).Msg("network switched")
	return nil, nil
}

// handleAddChain registers a new chain definition and then switches to it.
func (d *Dispatcher) handleAddChain(ctx context.Context, origin string, req core.RPCRequest) (any, error) {
	var chain config.Chain
	if err := req.Param(0, &chain); err != nil {
		return nil, err
	}
	if err := chain.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidParams, err)
	}
	if err := d.chains.Add(chain); err != nil {
		return nil, err
	}

	if err := d.sessions.UpdateNetwork(ctx, origin, chain.ChainID); err != nil {
		return nil, err
	}
	if _, err := d.sessions.Get(ctx, origin); err == nil {
		d.broadcast(core.ChainChangedEvent(origin, chain.ChainID))
	}
	d.log.Info().Str("origin", origin).Str("chain", chain.ChainID).Msg("chain added")
	return nil, nil
}

// handleDisconnect always succeeds: the session is removed and every
// context of the origin is told to disconnect.
func (d *Dispatcher) handleDisconnect(ctx context.Context, origin string) (any, error) {
	if err := d.sessions.Remove(ctx, origin); err != nil {
		return nil, err
	}
	d.broadcast(core.DisconnectEvent(origin, "session closed"))
	d.log.Info().Str("origin", origin).Msg("session disconnected")
	return true, nil
}

// handlePassthrough forwards anything the dispatcher does not own to the
// chain adapter, gated on a live session.
func (d *Dispatcher) handlePassthrough(ctx context.Context, origin string, req core.RPCRequest) (any, error) {
	grant, err := d.sessions.Get(ctx, origin)
	if err != nil {
		return nil, core.ErrNotConnected
	}
	return d.network.Request(ctx, grant.ChainID, req.Method, req.Params)
}

// requireSigningSession is the shared prelude for confirmation-required
// methods: a live session first, then an unlocked key store.
func (d *Dispatcher) requireSigningSession(ctx context.Context, origin string) (core.SessionGrant, error) {
	grant, err := d.sessions.Get(ctx, origin)
	if err != nil {
		return core.SessionGrant{}, core.ErrNotConnected
	}
	if !d.keys.Unlocked() {
		return core.SessionGrant{}, core.ErrLocked
	}
	return grant, nil
}

// confirm runs the signing approval and re-validates the session
// afterwards: a disconnect or expiry may have fired while the prompt was
// open.
func (d *Dispatcher) confirm(ctx context.Context, origin string, summary ports.SigningSummary) error {
	err := d.withApprovalTimeout(ctx, func(actx context.Context) error {
		return d.approver.ApproveSigning(actx, summary)
	})
	if err != nil {
		return err
	}
	if _, err := d.sessions.Get(ctx, origin); err != nil {
		return core.ErrNotConnected
	}
	if !d.keys.Unlocked() {
		return core.ErrLocked
	}
	return nil
}

func (d *Dispatcher) withApprovalTimeout(ctx context.Context, fn func(context.Context) error) error {
	actx, cancel := context.WithTimeout(ctx, d.approvalTimeout)
	defer cancel()

	if err := fn(actx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return core.ErrUserRejected
		}
		return err
	}
	return nil
}

func (d *Dispatcher) broadcast(event core.WalletEvent) {
	if d.events == nil {
		return
	}
	d.events.Broadcast(event)
}

func (d *Dispatcher) originLock(origin string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	lock, ok := d.originLocks[origin]
	if !ok {
		lock = &sync.Mutex{}
		d.originLocks[origin] = lock
	}
	return lock
}

func cloneScopes(scopes map[string]bool) map[string]bool {
	out := make(map[string]bool, len(scopes))
	for k, v := range scopes {
		out[k] = v
	}
	return out
}

func sameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}
