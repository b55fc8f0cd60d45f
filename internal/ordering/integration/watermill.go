package integration

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// WatermillBroker adapts any Watermill publisher to the Broker port.
// Production wiring uses the NATS JetStream publisher; tests use the
// in-memory GoChannel pub/sub.
type WatermillBroker struct {
	pub message.Publisher
}

func NewWatermillBroker(pub message.Publisher) *WatermillBroker {
	return &WatermillBroker{pub: pub}
}

func (b *WatermillBroker) Publish(ctx context.Context, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	msg := message.NewMessage(uuid.NewString(), body)
	msg.SetContext(ctx)
	return b.pub.Publish(topic, msg)
}

var _ Broker = (*WatermillBroker)(nil)
