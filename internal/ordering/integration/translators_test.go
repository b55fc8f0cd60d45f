package integration

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshopd/ordering/internal/ordering/domain"
	"github.com/eshopd/ordering/internal/ordering/unitofwork"
)

type captureBroker struct {
	topics   []string
	payloads []any
	err      error
}

func (b *captureBroker) Publish(_ context.Context, topic string, payload any) error {
	if b.err != nil {
		return b.err
	}
	b.topics = append(b.topics, topic)
	b.payloads = append(b.payloads, payload)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestTranslateCoversEveryKind(t *testing.T) {
	events := []domain.DomainEvent{
		domain.OrderCreated{OrderID: "o-1", CustomerID: "c-1", TotalAmount: 0, Status: domain.StatusInitial},
		domain.OrderItemAdded{OrderID: "o-1", CatalogItemID: "sku-1", ProductName: "Keyboard", UnitPrice: 50, Quantity: 2},
		domain.OrderItemRemoved{OrderID: "o-1", CatalogItemID: "sku-1"},
		domain.OrderItemQuantityUpdated{OrderID: "o-1", CatalogItemID: "sku-1", OldQuantity: 2, NewQuantity: 5},
		domain.OrderItemDiscountApplied{OrderID: "o-1", CatalogItemID: "sku-1", Discount: 0.1},
		domain.OrderSubmitted{OrderID: "o-1", CustomerID: "c-1", TotalAmount: 100},
		domain.OrderShipped{OrderID: "o-1"},
		domain.OrderDelivered{OrderID: "o-1", DeliveredAt: time.Now().UTC()},
		domain.OrderCancelled{OrderID: "o-1", PreviousStatus: domain.StatusPending, Reason: "nope"},
		domain.OrderStatusChanged{OrderID: "o-1", PreviousStatus: domain.StatusInitial, NewStatus: domain.StatusPending},
	}
	wantTopics := []string{
		TopicOrderCreated,
		TopicOrderItemAdded,
		TopicOrderItemRemoved,
		TopicOrderItemQtyUpdated,
		TopicOrderItemDiscounted,
		TopicOrderSubmitted,
		TopicOrderShipped,
		TopicOrderDelivered,
		TopicOrderCancelled,
		TopicOrderStatusChanged,
	}

	for i, event := range events {
		topic, payload, ok := translate(event)
		require.True(t, ok, "event %T must translate", event)
		assert.Equal(t, wantTopics[i], topic)
		assert.NotNil(t, payload)
	}
}

func TestTranslatePayloadFields(t *testing.T) {
	topic, payload, ok := translate(domain.OrderCancelled{
		OrderID:        "o-1",
		PreviousStatus: domain.StatusShipped,
		Reason:         "damaged in transit",
	})
	require.True(t, ok)
	assert.Equal(t, TopicOrderCancelled, topic)

	cancelled, ok := payload.(OrderCancelledEvent)
	require.True(t, ok)
	assert.Equal(t, "o-1", cancelled.OrderID)
	assert.Equal(t, string(domain.StatusShipped), cancelled.PreviousStatus)
	assert.Equal(t, "damaged in transit", cancelled.Reason)
	assert.NotEmpty(t, cancelled.EventID)
	assert.False(t, cancelled.OccurredAt.IsZero())
}

func TestTranslatorPublishes(t *testing.T) {
	broker := &captureBroker{}
	tr := NewTranslator(domain.KindOrderShipped, broker, testLogger())

	err := tr.Handle(context.Background(), domain.OrderShipped{OrderID: "o-1"})
	require.NoError(t, err)
	require.Len(t, broker.topics, 1)
	assert.Equal(t, TopicOrderShipped, broker.topics[0])
}

func TestTranslatorSwallowsPublishFailure(t *testing.T) {
	broker := &captureBroker{err: errors.New("broker down")}
	tr := NewTranslator(domain.KindOrderShipped, broker, testLogger())

	// A broker outage must not surface as a command failure.
	err := tr.Handle(context.Background(), domain.OrderShipped{OrderID: "o-1"})
	assert.NoError(t, err)
}

func TestRegisterAllRoutesEveryKind(t *testing.T) {
	d := unitofwork.NewDispatcher(testLogger())
	broker := &captureBroker{}
	require.NoError(t, RegisterAll(d, broker, testLogger()))

	// A second registration collides on every kind.
	assert.Error(t, RegisterAll(d, broker, testLogger()))

	require.NoError(t, d.Dispatch(context.Background(), domain.OrderSubmitted{OrderID: "o-1", CustomerID: "c-1", TotalAmount: 42}))
	require.Len(t, broker.topics, 1)
	assert.Equal(t, TopicOrderSubmitted, broker.topics[0])

	submitted, ok := broker.payloads[0].(OrderSubmittedEvent)
	require.True(t, ok)
	assert.Equal(t, 42.0, submitted.TotalAmount)
}

func TestEncodeOutbox(t *testing.T) {
	row, ok, err := EncodeOutbox(domain.OrderDelivered{
		OrderID:     "o-1",
		DeliveredAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, row.ID)
	assert.Equal(t, TopicOrderDelivered, row.Topic)
	assert.False(t, row.CreatedAt.IsZero())

	var payload OrderDeliveredEvent
	require.NoError(t, json.Unmarshal(row.Payload, &payload))
	assert.Equal(t, "o-1", payload.OrderID)
	assert.Equal(t, 2026, payload.DeliveredAt.Year())
}

type internalOnlyEvent struct{}

func (internalOnlyEvent) Kind() string        { return "InternalOnly" }
func (internalOnlyEvent) AggregateID() string { return "o-1" }

func TestEncodeOutboxSkipsUnknownEvent(t *testing.T) {
	_, ok, err := EncodeOutbox(internalOnlyEvent{})
	require.NoError(t, err)
	assert.False(t, ok)
}
