package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Recognized message targets. The message channel is shared with unrelated
// scripts, so anything without one of these targets is silently ignored.
const (
	TargetBackground    = "background"
	TargetContentScript = "content-script"
	TargetProvider      = "provider"
)

var ErrInvalidEnvelope = errors.New("bridge: invalid envelope")

// Envelope is the cross-context message shape. Params stay raw until the
// dispatcher's method handler decodes them.
type Envelope struct {
	Target string            `json:"target"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params,omitempty"`
	// Origin is caller-asserted and only honored for privileged senders.
	Origin string `json:"origin,omitempty"`
	ID     string `json:"id,omitempty"`
}

// Validate checks a recognized envelope is complete.
func (e Envelope) Validate() error {
	switch e.Target {
	case TargetBackground, TargetContentScript, TargetProvider:
	default:
		return fmt.Errorf("%w: unknown target %q", ErrInvalidEnvelope, e.Target)
	}
	if strings.TrimSpace(e.Method) == "" {
		return fmt.Errorf("%w: missing method", ErrInvalidEnvelope)
	}
	return nil
}

// DecodeEnvelope parses raw bytes from the shared channel. The second
// return is false when the message is not addressed to us (malformed, or an
// unrecognized target): ignore, don't error.
func DecodeEnvelope(raw []byte) (Envelope, bool) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, false
	}
	switch env.Target {
	case TargetBackground, TargetContentScript, TargetProvider:
		return env, true
	default:
		return Envelope{}, false
	}
}
