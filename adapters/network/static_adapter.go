package network

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Osamakahen/freo-wallet-sub001/ports"
)

// StaticAdapter is a NetworkAdapter that never talks to a chain. It hashes
// submitted transactions locally and answers pass-through reads from a
// fixed table. It stands in for a real chain adapter in tests and offline
// runs.
type StaticAdapter struct {
	mu        sync.RWMutex
	responses map[string]any
}

// NewStaticAdapter creates an adapter with a default read table.
func NewStaticAdapter() *StaticAdapter {
	return &StaticAdapter{
		responses: map[string]any{
			"eth_blockNumber": "0x0",
			"eth_gasPrice":    "0x3b9aca00",
		},
	}
}

var _ ports.NetworkAdapter = (*StaticAdapter)(nil)

// SetResponse overrides the canned result for a method.
func (a *StaticAdapter) SetResponse(method string, result any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.responses[method] = result
}

// SendRawTransaction returns the keccak hash of the raw bytes, which is the
// hash the chain would report for the same payload.
func (a *StaticAdapter) SendRawTransaction(ctx context.Context, chainID string, rawTx []byte) (string, error) {
	return hexutil.Encode(crypto.Keccak256(rawTx)), nil
}

// Request serves a method from the read table.
func (a *StaticAdapter) Request(ctx context.Context, chainID, method string, params []json.RawMessage) (any, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	result, ok := a.responses[method]
	if !ok {
		return nil, fmt.Errorf("method %s not supported by static adapter", method)
	}
	return result, nil
}
