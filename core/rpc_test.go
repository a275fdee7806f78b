package core

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsRPCErrorCodes(t *testing.T) {
	cases := map[error]int{
		ErrUserRejected:      CodeUserRejected,
		ErrLocked:            CodeUnauthorized,
		ErrNotConnected:      CodeUnauthorized,
		ErrUnsupportedChain:  CodeUnrecognizedChain,
		ErrBridgeUnavailable: CodeDisconnected,
		ErrInvalidParams:     CodeInvalidParams,
		ErrInvalidOrigin:     CodeInvalidParams,
	}
	for err, code := range cases {
		assert.Equal(t, code, AsRPCError(err).Code, err.Error())
	}

	// Wrapped errors keep their code, unknown ones are internal.
	wrapped := fmt.Errorf("context: %w", ErrUnsupportedChain)
	assert.Equal(t, CodeUnrecognizedChain, AsRPCError(wrapped).Code)
	assert.Equal(t, CodeInternal, AsRPCError(fmt.Errorf("disk on fire")).Code)
}

func TestAsRPCErrorPassesThrough(t *testing.T) {
	original := &RPCError{Code: 4200, Message: "nope"}
	assert.Same(t, original, AsRPCError(original))
	assert.Same(t, original, AsRPCError(fmt.Errorf("wrapped: %w", original)))
}

func TestRequestParam(t *testing.T) {
	req := RPCRequest{
		Method: "personal_sign",
		Params: []json.RawMessage{
			json.RawMessage(`"hello"`),
			json.RawMessage(`{"chainId":"0x1"}`),
		},
	}

	var msg string
	require.NoError(t, req.Param(0, &msg))
	assert.Equal(t, "hello", msg)

	var obj struct {
		ChainID string `json:"chainId"`
	}
	require.NoError(t, req.Param(1, &obj))
	assert.Equal(t, "0x1", obj.ChainID)

	require.ErrorIs(t, req.Param(2, &msg), ErrInvalidParams)
	var n int
	require.ErrorIs(t, req.Param(0, &n), ErrInvalidParams)
}
