package domain

import "time"

// Event kind names. Handlers are registered against these, and the
// dispatcher matches on the concrete struct type — there is no
// reflection-based discovery of event-bearing properties.
const (
	KindOrderCreated             = "OrderCreated"
	KindOrderItemAdded           = "OrderItemAdded"
	KindOrderItemRemoved         = "OrderItemRemoved"
	KindOrderItemQuantityUpdated = "OrderItemQuantityUpdated"
	KindOrderItemDiscountApplied = "OrderItemDiscountApplied"
	KindOrderSubmitted           = "OrderSubmitted"
	KindOrderShipped             = "OrderShipped"
	KindOrderDelivered           = "OrderDelivered"
	KindOrderCancelled           = "OrderCancelled"
	KindOrderStatusChanged       = "OrderStatusChanged"
)

// DomainEvent is an in-memory record of something an aggregate did,
// buffered for dispatch after the surrounding transaction commits.
// The variant set is closed: every implementation lives in this file.
type DomainEvent interface {
	Kind() string
	AggregateID() string
}

type OrderCreated struct {
	OrderID     string
	CustomerID  string
	TotalAmount float64
	Status      Status
	Actor       string
}

func (e OrderCreated) Kind() string        { return KindOrderCreated }
func (e OrderCreated) AggregateID() string { return e.OrderID }

type OrderItemAdded struct {
	OrderID       string
	ItemID        string
	CatalogItemID string
	ProductName   string
	UnitPrice     float64
	Quantity      int // quantity added by this call, not the merged line total
	Actor         string
}

func (e OrderItemAdded) Kind() string        { return KindOrderItemAdded }
func (e OrderItemAdded) AggregateID() string { return e.OrderID }

type OrderItemRemoved struct {
	OrderID       string
	ItemID        string
	CatalogItemID string
	Actor         string
}

func (e OrderItemRemoved) Kind() string        { return KindOrderItemRemoved }
func (e OrderItemRemoved) AggregateID() string { return e.OrderID }

type OrderItemQuantityUpdated struct {
	OrderID       string
	ItemID        string
	CatalogItemID string
	OldQuantity   int
	NewQuantity   int
	Actor         string
}

func (e OrderItemQuantityUpdated) Kind() string        { return KindOrderItemQuantityUpdated }
func (e OrderItemQuantityUpdated) AggregateID() string { return e.OrderID }

type OrderItemDiscountApplied struct {
	OrderID       string
	ItemID        string
	CatalogItemID string
	Discount      float64
	Actor         string
}

func (e OrderItemDiscountApplied) Kind() string        { return KindOrderItemDiscountApplied }
func (e OrderItemDiscountApplied) AggregateID() string { return e.OrderID }

type OrderSubmitted struct {
	OrderID     string
	CustomerID  string
	TotalAmount float64
	Actor       string
}

func (e OrderSubmitted) Kind() string        { return KindOrderSubmitted }
func (e OrderSubmitted) AggregateID() string { return e.OrderID }

type OrderShipped struct {
	OrderID string
	Actor   string
}

func (e OrderShipped) Kind() string        { return KindOrderShipped }
func (e OrderShipped) AggregateID() string { return e.OrderID }

type OrderDelivered struct {
	OrderID     string
	DeliveredAt time.Time
	Actor       string
}

func (e OrderDelivered) Kind() string        { return KindOrderDelivered }
func (e OrderDelivered) AggregateID() string { return e.OrderID }

type OrderCancelled struct {
	OrderID        string
	PreviousStatus Status
	Reason         string
	Actor          string
}

func (e OrderCancelled) Kind() string        { return KindOrderCancelled }
func (e OrderCancelled) AggregateID() string { return e.OrderID }

type OrderStatusChanged struct {
	OrderID        string
	PreviousStatus Status
	NewStatus      Status
	Actor          string
}

func (e OrderStatusChanged) Kind() string        { return KindOrderStatusChanged }
func (e OrderStatusChanged) AggregateID() string { return e.OrderID }
