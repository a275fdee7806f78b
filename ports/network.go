package ports

import (
	"context"
	"encoding/json"
)

// NetworkAdapter is the chain-facing collaborator. The broker treats
// payloads as opaque: the adapter prepares transactions upstream and
// submits signed bytes downstream.
type NetworkAdapter interface {
	// SendRawTransaction submits a signed RLP-encoded transaction and
	// returns the transaction hash.
	SendRawTransaction(ctx context.Context, chainID string, rawTx []byte) (string, error)

	// Request services any method the dispatcher does not own itself.
	Request(ctx context.Context, chainID, method string, params []json.RawMessage) (any, error)
}
