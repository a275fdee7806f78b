package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Osamakahen/freo-wallet-sub001/bridge"
	"github.com/Osamakahen/freo-wallet-sub001/core"
)

// rpcCall is a JSON-RPC 2.0 single request. The embedded origin is honored
// only for privileged senders; everyone else is pinned to the Origin
// header, which the page cannot forge for a foreign origin.
type rpcCall struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      any               `json:"id"`
	Method  string            `json:"method" binding:"required"`
	Params  []json.RawMessage `json:"params,omitempty"`
	Origin  string            `json:"origin,omitempty"`
}

type rpcResult struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result"`
}

type rpcFailure struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      any            `json:"id"`
	Error   *core.RPCError `json:"error"`
}

// RPCHandlers exposes the bridge over HTTP.
type RPCHandlers struct {
	bridge *bridge.Bridge
	log    zerolog.Logger
}

// NewRPCHandlers creates the handler set.
func NewRPCHandlers(b *bridge.Bridge, log zerolog.Logger) *RPCHandlers {
	return &RPCHandlers{bridge: b, log: log}
}

// RPC handles POST /rpc.
func (h *RPCHandlers) RPC(c *gin.Context) {
	var call rpcCall
	if err := c.ShouldBindJSON(&call); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	sender := bridge.Sender{
		Origin:     c.GetHeader("Origin"),
		Privileged: c.GetBool(privilegedKey),
	}
	if sender.Origin == "" && !sender.Privileged {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing origin"})
		return
	}

	env := bridge.Envelope{
		Target: bridge.TargetBackground,
		Method: call.Method,
		Params: call.Params,
		Origin: call.Origin,
	}

	respCh := make(chan bridge.Response, 1)
	accepted := h.bridge.Submit(c.Request.Context(), env, sender, func(r bridge.Response) {
		respCh <- r
	})
	if !accepted {
		c.JSON(http.StatusOK, rpcFailure{JSONRPC: "2.0", ID: call.ID, Error: &core.RPCError{
			Code:    core.CodeInvalidParams,
			Message: "duplicate request id",
		}})
		return
	}
	resp := <-respCh

	if resp.Error != nil {
		h.log.Debug().Str("method", call.Method).Int("code", resp.Error.Code).Msg("rpc call failed")
		c.JSON(http.StatusOK, rpcFailure{JSONRPC: "2.0", ID: call.ID, Error: resp.Error})
		return
	}
	c.JSON(http.StatusOK, rpcResult{JSONRPC: "2.0", ID: call.ID, Result: resp.Result})
}

// Health handles GET /healthz.
func (h *RPCHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
