package ports

import (
	"context"

	"github.com/Osamakahen/freo-wallet-sub001/core"
)

// EventSink receives wallet events for fan-out to the page contexts of the
// event's origin. The bridge implements this for the dispatcher.
type EventSink interface {
	Broadcast(event core.WalletEvent)
}

// EventPublisher publishes wallet events for out-of-process consumers.
type EventPublisher interface {
	PublishWalletEvent(ctx context.Context, event core.WalletEvent) error
}
