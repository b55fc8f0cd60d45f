// Package integration translates domain events into the integration events
// other services consume. Payloads carry only externally meaningful fields;
// internal object references never cross this boundary.
package integration

import (
	"context"
	"time"
)

// Broker is the message-broker port the translators publish through.
// Implementations: the Watermill NATS publisher (direct, best-effort) and
// the transactional outbox (durable, relayed).
type Broker interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Topic names, one per integration event. Consumers subscribe by topic.
const (
	TopicOrderCreated        = "ordering.order-created"
	TopicOrderItemAdded      = "ordering.order-item-added"
	TopicOrderItemRemoved    = "ordering.order-item-removed"
	TopicOrderItemQtyUpdated = "ordering.order-item-quantity-updated"
	TopicOrderItemDiscounted = "ordering.order-item-discount-applied"
	TopicOrderSubmitted      = "ordering.order-submitted"
	TopicOrderShipped        = "ordering.order-shipped"
	TopicOrderDelivered      = "ordering.order-delivered"
	TopicOrderCancelled      = "ordering.order-cancelled"
	TopicOrderStatusChanged  = "ordering.order-status-changed"
)

// Envelope fields shared by every integration event.
type Envelope struct {
	EventID    string    `json:"event_id"`
	OrderID    string    `json:"order_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

type OrderCreatedEvent struct {
	Envelope
	CustomerID  string  `json:"customer_id"`
	TotalAmount float64 `json:"total_amount"`
	Status      string  `json:"status"`
}

type OrderItemAddedEvent struct {
	Envelope
	CatalogItemID string  `json:"catalog_item_id"`
	ProductName   string  `json:"product_name"`
	UnitPrice     float64 `json:"unit_price"`
	Quantity      int     `json:"quantity"`
}

type OrderItemRemovedEvent struct {
	Envelope
	CatalogItemID string `json:"catalog_item_id"`
}

type OrderItemQuantityUpdatedEvent struct {
	Envelope
	CatalogItemID string `json:"catalog_item_id"`
	OldQuantity   int    `json:"old_quantity"`
	NewQuantity   int    `json:"new_quantity"`
}

type OrderItemDiscountAppliedEvent struct {
	Envelope
	CatalogItemID string  `json:"catalog_item_id"`
	Discount      float64 `json:"discount"`
}

type OrderSubmittedEvent struct {
	Envelope
	CustomerID  string  `json:"customer_id"`
	TotalAmount float64 `json:"total_amount"`
}

type OrderShippedEvent struct {
	Envelope
}

type OrderDeliveredEvent struct {
	Envelope
	DeliveredAt time.Time `json:"delivered_at"`
}

type OrderCancelledEvent struct {
	Envelope
	PreviousStatus string `json:"previous_status"`
	Reason         string `json:"reason,omitempty"`
}

type OrderStatusChangedEvent struct {
	Envelope
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}
