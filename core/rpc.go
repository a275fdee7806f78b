package core

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EIP-1193 / EIP-1474 error codes surfaced to dApps.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeUnrecognizedChain = 4902
	CodeInvalidParams     = -32602
	CodeInternal          = -32603
)

// RPCError is the structured error delivered across the bridge and rejected
// from the provider facade. dApps special-case Code, so it must distinguish
// user rejection from technical failure.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// AsRPCError converts any error into its wire form. Known domain errors map
// to their EIP-1193 codes; everything else is an internal error.
func AsRPCError(err error) *RPCError {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	code := CodeInternal
	switch {
	case errors.Is(err, ErrUserRejected):
		code = CodeUserRejected
	case errors.Is(err, ErrLocked), errors.Is(err, ErrNotConnected):
		code = CodeUnauthorized
	case errors.Is(err, ErrUnsupportedChain):
		code = CodeUnrecognizedChain
	case errors.Is(err, ErrBridgeUnavailable):
		code = CodeDisconnected
	case errors.Is(err, ErrInvalidParams), errors.Is(err, ErrInvalidOrigin):
		code = CodeInvalidParams
	}
	return &RPCError{Code: code, Message: err.Error()}
}

// RPCRequest is one inbound (method, params) call as decoded at the
// privileged boundary. Params stay raw until the owning handler decodes them.
type RPCRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params,omitempty"`
}

// Param decodes the i-th positional param into v.
func (r RPCRequest) Param(i int, v any) error {
	if i >= len(r.Params) {
		return fmt.Errorf("%w: missing param %d for %s", ErrInvalidParams, i, r.Method)
	}
	if err := json.Unmarshal(r.Params[i], v); err != nil {
		return fmt.Errorf("%w: param %d for %s: %v", ErrInvalidParams, i, r.Method, err)
	}
	return nil
}
