package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/shopspring/decimal"

	"github.com/Osamakahen/freo-wallet-sub001/core"
	"github.com/Osamakahen/freo-wallet-sub001/ports"
)

// handleSignMessage serves personal_sign and eth_sign. Both produce an
// EIP-191 personal-message signature; they differ only in param order.
func (d *Dispatcher) handleSignMessage(ctx context.Context, origin string, req core.RPCRequest) (any, error) {
	grant, err := d.requireSigningSession(ctx, origin)
	if err != nil {
		return nil, err
	}

	var rawMessage, address string
	switch req.Method {
	case "eth_sign":
		if err := req.Param(0, &address); err != nil {
			return nil, err
		}
		if err := req.Param(1, &rawMessage); err != nil {
			return nil, err
		}
	default: // personal_sign
		if err := req.Param(0, &rawMessage); err != nil {
			return nil, err
		}
		if err := req.Param(1, &address); err != nil {
			return nil, err
		}
	}
	if !sameAddress(address, grant.Address) {
		return nil, fmt.Errorf("%w: address %s does not match session", core.ErrInvalidParams, address)
	}

	message := decodeMessageBytes(rawMessage)
	summary := ports.SigningSummary{
		Origin:  origin,
		Method:  req.Method,
		From:    grant.Address,
		Preview: previewText(message),
	}
	if err := d.confirm(ctx, origin, summary); err != nil {
		return nil, err
	}

	sig, err := d.keys.SignMessage(message)
	if err != nil {
		return nil, err
	}
	return hexutil.Encode(sig), nil
}

// handleSignTypedData serves eth_signTypedData_v4.
func (d *Dispatcher) handleSignTypedData(ctx context.Context, origin string, req core.RPCRequest) (any, error) {
	grant, err := d.requireSigningSession(ctx, origin)
	if err != nil {
		return nil, err
	}

	var address string
	if err := req.Param(0, &address); err != nil {
		return nil, err
	}
	if !sameAddress(address, grant.Address) {
		return nil, fmt.Errorf("%w: address %s does not match session", core.ErrInvalidParams, address)
	}

	typedData, err := decodeTypedDataParam(req, 1)
	if err != nil {
		return nil, err
	}

	summary := ports.SigningSummary{
		Origin:  origin,
		Method:  req.Method,
		From:    grant.Address,
		Preview: fmt.Sprintf("%s (%s)", typedData.Domain.Name, typedData.PrimaryType),
	}
	if err := d.confirm(ctx, origin, summary); err != nil {
		return nil, err
	}

	sig, err := d.keys.SignTypedData(typedData)
	if err != nil {
		return nil, err
	}
	return hexutil.Encode(sig), nil
}

// handleSignTransaction serves eth_signTransaction and, with submit set,
// eth_sendTransaction. The payload is trusted as prepared by the chain
// adapter; the broker only signs and forwards.
func (d *Dispatcher) handleSignTransaction(ctx context.Context, origin string, req core.RPCRequest, submit bool) (any, error) {
	grant, err := d.requireSigningSession(ctx, origin)
	if err != nil {
		return nil, err
	}

	var fields txFields
	if err := req.Param(0, &fields); err != nil {
		return nil, err
	}
	if fields.From != "" && !sameAddress(fields.From, grant.Address) {
		return nil, fmt.Errorf("%w: from %s does not match session", core.ErrInvalidParams, fields.From)
	}

	chainID, err := hexutil.DecodeBig(grant.ChainID)
	if err != nil {
		return nil, fmt.Errorf("%w: session chain id %q", core.ErrInvalidParams, grant.ChainID)
	}
	tx, err := fields.assemble(chainID)
	if err != nil {
		return nil, err
	}

	summary := ports.SigningSummary{
		Origin:     origin,
		Method:     req.Method,
		From:       grant.Address,
		To:         fields.toSummary(),
		ValueEther: weiToEther(tx.Value()),
		Preview:    fmt.Sprintf("tx to %s on %s", fields.toSummary(), grant.ChainID),
	}
	if err := d.confirm(ctx, origin, summary); err != nil {
		return nil, err
	}

	signed, err := d.keys.SignTx(tx, chainID)
	if err != nil {
		return nil, err
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode signed transaction: %w", err)
	}

	if !submit {
		return hexutil.Encode(raw), nil
	}
	hash, err := d.network.SendRawTransaction(ctx, grant.ChainID, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to submit transaction: %w", err)
	}
	return hash, nil
}

// decodeMessageBytes accepts either 0x-hex or plain text message params.
func decodeMessageBytes(raw string) []byte {
	if strings.HasPrefix(raw, "0x") {
		if b, err := hexutil.Decode(raw); err == nil {
			return b
		}
	}
	return []byte(raw)
}

// decodeTypedDataParam accepts the typed data either as a JSON object or as
// a string-encoded JSON document, both of which appear in the wild.
func decodeTypedDataParam(req core.RPCRequest, i int) (apitypes.TypedData, error) {
	var typedData apitypes.TypedData
	if err := req.Param(i, &typedData); err == nil {
		return typedData, nil
	}
	var encoded string
	if err := req.Param(i, &encoded); err != nil {
		return apitypes.TypedData{}, err
	}
	if err := json.Unmarshal([]byte(encoded), &typedData); err != nil {
		return apitypes.TypedData{}, fmt.Errorf("%w: typed data: %v", core.ErrInvalidParams, err)
	}
	return typedData, nil
}

func previewText(message []byte) string {
	const max = 120
	text := string(message)
	if len(text) > max {
		return text[:max] + "…"
	}
	return text
}

func weiToEther(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -18)
}
