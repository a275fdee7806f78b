package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/Osamakahen/freo-wallet-sub001/core"
	"github.com/Osamakahen/freo-wallet-sub001/ports"
)

// WalletEventsTopic is the topic wallet events are published on.
const WalletEventsTopic = "freo.wallet.events"

// originMetadataKey carries the event origin so subscribers can route
// without decoding the payload.
const originMetadataKey = "origin"

// WatermillPublisher implements the EventPublisher port over one or more
// watermill publishers (in-process bus, plus an optional cross-instance
// stream).
type WatermillPublisher struct {
	publishers []message.Publisher
	topic      string
}

// NewWatermillPublisher creates a publisher fanning out to all given
// watermill publishers.
func NewWatermillPublisher(pubs ...message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publishers: pubs, topic: WalletEventsTopic}
}

// PublishWalletEvent publishes a wallet event to every configured publisher.
func (p *WatermillPublisher) PublishWalletEvent(ctx context.Context, event core.WalletEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	for _, pub := range p.publishers {
		msg := message.NewMessage(uuid.New().String(), payload)
		msg.Metadata.Set(originMetadataKey, event.Origin)
		if err := pub.Publish(p.topic, msg); err != nil {
			return fmt.Errorf("failed to publish event: %w", err)
		}
	}
	return nil
}

// DecodeWalletEvent decodes a watermill message back into a wallet event.
func DecodeWalletEvent(msg *message.Message) (core.WalletEvent, error) {
	var event core.WalletEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return core.WalletEvent{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}
