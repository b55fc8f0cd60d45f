package integration

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eshopd/ordering/internal/ordering/domain"
	"github.com/eshopd/ordering/internal/ordering/outbox"
	"github.com/eshopd/ordering/internal/ordering/unitofwork"
)

// translate maps a domain event to its outbound topic and payload. The
// switch is over concrete variants — adding an event kind without a case
// here means the event stays internal, on purpose.
func translate(event domain.DomainEvent) (topic string, payload any, ok bool) {
	env := Envelope{
		EventID:    uuid.NewString(),
		OrderID:    event.AggregateID(),
		OccurredAt: time.Now().UTC(),
	}

	switch e := event.(type) {
	case domain.OrderCreated:
		return TopicOrderCreated, OrderCreatedEvent{
			Envelope:    env,
			CustomerID:  e.CustomerID,
			TotalAmount: e.TotalAmount,
			Status:      string(e.Status),
		}, true
	case domain.OrderItemAdded:
		return TopicOrderItemAdded, OrderItemAddedEvent{
			Envelope:      env,
			CatalogItemID: e.CatalogItemID,
			ProductName:   e.ProductName,
			UnitPrice:     e.UnitPrice,
			Quantity:      e.Quantity,
		}, true
	case domain.OrderItemRemoved:
		return TopicOrderItemRemoved, OrderItemRemovedEvent{
			Envelope:      env,
			CatalogItemID: e.CatalogItemID,
		}, true
	case domain.OrderItemQuantityUpdated:
		return TopicOrderItemQtyUpdated, OrderItemQuantityUpdatedEvent{
			Envelope:      env,
			CatalogItemID: e.CatalogItemID,
			OldQuantity:   e.OldQuantity,
			NewQuantity:   e.NewQuantity,
		}, true
	case domain.OrderItemDiscountApplied:
		return TopicOrderItemDiscounted, OrderItemDiscountAppliedEvent{
			Envelope:      env,
			CatalogItemID: e.CatalogItemID,
			Discount:      e.Discount,
		}, true
	case domain.OrderSubmitted:
		return TopicOrderSubmitted, OrderSubmittedEvent{
			Envelope:    env,
			CustomerID:  e.CustomerID,
			TotalAmount: e.TotalAmount,
		}, true
	case domain.OrderShipped:
		return TopicOrderShipped, OrderShippedEvent{Envelope: env}, true
	case domain.OrderDelivered:
		return TopicOrderDelivered, OrderDeliveredEvent{
			Envelope:    env,
			DeliveredAt: e.DeliveredAt,
		}, true
	case domain.OrderCancelled:
		return TopicOrderCancelled, OrderCancelledEvent{
			Envelope:       env,
			PreviousStatus: string(e.PreviousStatus),
			Reason:         e.Reason,
		}, true
	case domain.OrderStatusChanged:
		return TopicOrderStatusChanged, OrderStatusChangedEvent{
			Envelope:  env,
			OldStatus: string(e.PreviousStatus),
			NewStatus: string(e.NewStatus),
		}, true
	default:
		return "", nil, false
	}
}

// Translator publishes the integration counterpart of one domain-event
// kind. Publish failures are logged and swallowed: order persistence is the
// source of truth, downstream notification on this path is best-effort.
// The outbox path exists for deployments that cannot accept that gap.
type Translator struct {
	kind   string
	broker Broker
	logger *slog.Logger
}

func NewTranslator(kind string, broker Broker, logger *slog.Logger) *Translator {
	return &Translator{kind: kind, broker: broker, logger: logger}
}

func (t *Translator) Handle(ctx context.Context, event domain.DomainEvent) error {
	topic, payload, ok := translate(event)
	if !ok || event.Kind() != t.kind {
		t.logger.WarnContext(ctx, "translator received unexpected event", "expected", t.kind, "got", event.Kind())
		return nil
	}
	if err := t.broker.Publish(ctx, topic, payload); err != nil {
		t.logger.ErrorContext(ctx, "integration event publish failed",
			"topic", topic,
			"order_id", event.AggregateID(),
			"error", err,
		)
	}
	return nil
}

// RegisterAll wires one translator per domain-event kind into the dispatcher.
func RegisterAll(d *unitofwork.Dispatcher, broker Broker, logger *slog.Logger) error {
	kinds := []string{
		domain.KindOrderCreated,
		domain.KindOrderItemAdded,
		domain.KindOrderItemRemoved,
		domain.KindOrderItemQuantityUpdated,
		domain.KindOrderItemDiscountApplied,
		domain.KindOrderSubmitted,
		domain.KindOrderShipped,
		domain.KindOrderDelivered,
		domain.KindOrderCancelled,
		domain.KindOrderStatusChanged,
	}
	for _, kind := range kinds {
		if err := d.Register(kind, NewTranslator(kind, broker, logger)); err != nil {
			return err
		}
	}
	return nil
}

// EncodeOutbox is the unitofwork.OutboxEncoder for this event set: the same
// topics and payloads the translators publish, serialized for the outbox
// table so the relay can forward them verbatim.
func EncodeOutbox(event domain.DomainEvent) (outbox.Row, bool, error) {
	topic, payload, ok := translate(event)
	if !ok {
		return outbox.Row{}, false, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return outbox.Row{}, false, err
	}
	return outbox.Row{
		ID:        uuid.NewString(),
		Topic:     topic,
		Payload:   body,
		CreatedAt: time.Now().UTC(),
	}, true, nil
}

var _ unitofwork.Handler = (*Translator)(nil)
var _ unitofwork.OutboxEncoder = EncodeOutbox
