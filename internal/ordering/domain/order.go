package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusInitial    Status = "INITIAL"
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// Order is the aggregate root. It owns its line items, enforces the status
// state machine, keeps totalAmount equal to the sum of line totals, and
// buffers domain events for the unit of work to dispatch after commit.
// All modification goes through its methods; every mutator takes the acting
// principal explicitly so there is no ambient "system" default.
//
// An Order is not safe for concurrent mutation. Callers must guarantee
// single-writer access per instance within one unit of work.
type Order struct {
	EventBuffer

	id              string
	customerID      string
	status          Status
	totalAmount     float64
	orderDate       time.Time
	deliveryDate    *time.Time
	shippingAddress string
	billingAddress  string
	paymentMethod   string
	customerEmail   string
	customerPhone   string
	cancelReason    string
	items           []*OrderItem
	updatedBy       string
	updatedAt       time.Time
}

// NewOrder creates an order in StatusInitial and raises OrderCreated.
// It is the only way to bring a new aggregate into existence.
func NewOrder(actor, customerID, shippingAddress, billingAddress, paymentMethod, customerEmail, customerPhone string) (*Order, error) {
	switch {
	case actor == "":
		return nil, errValidation("actor", "must not be empty")
	case customerID == "":
		return nil, errValidation("customerId", "must not be empty")
	case shippingAddress == "":
		return nil, errValidation("shippingAddress", "must not be empty")
	case billingAddress == "":
		return nil, errValidation("billingAddress", "must not be empty")
	case paymentMethod == "":
		return nil, errValidation("paymentMethod", "must not be empty")
	case customerEmail == "":
		return nil, errValidation("customerEmail", "must not be empty")
	}

	now := time.Now().UTC()
	o := &Order{
		id:              uuid.NewString(),
		customerID:      customerID,
		status:          StatusInitial,
		orderDate:       now,
		shippingAddress: shippingAddress,
		billingAddress:  billingAddress,
		paymentMethod:   paymentMethod,
		customerEmail:   customerEmail,
		customerPhone:   customerPhone,
		updatedBy:       actor,
		updatedAt:       now,
	}

	o.raise(OrderCreated{
		OrderID:     o.id,
		CustomerID:  o.customerID,
		TotalAmount: o.totalAmount,
		Status:      o.status,
		Actor:       actor,
	})
	return o, nil
}

// AddItem appends a new line item, or increments the quantity of an
// existing line with the same catalog item id. Legal in INITIAL or PENDING;
// an INITIAL order becomes PENDING on its first successful item mutation.
func (o *Order) AddItem(actor, catalogItemID, productName, pictureURL string, unitPrice float64, quantity int) error {
	if err := o.requireStatus("AddItem", StatusInitial, StatusPending); err != nil {
		return err
	}
	if err := validateItem(productName, unitPrice, quantity, 0); err != nil {
		return err
	}

	var item *OrderItem
	if existing := o.findItem(catalogItemID); existing != nil {
		if err := existing.addQuantity(quantity); err != nil {
			return err
		}
		item = existing
	} else {
		created, err := newOrderItem(o.id, catalogItemID, productName, pictureURL, unitPrice, quantity, 0)
		if err != nil {
			return err
		}
		o.items = append(o.items, created)
		item = created
	}

	o.recalculateTotal()
	o.touch(actor)
	o.raise(OrderItemAdded{
		OrderID:       o.id,
		ItemID:        item.id,
		CatalogItemID: catalogItemID,
		ProductName:   item.productName,
		UnitPrice:     item.unitPrice,
		Quantity:      quantity,
		Actor:         actor,
	})
	o.promoteToPending(actor)
	return nil
}

// RemoveItem deletes the line item for the given catalog item id.
func (o *Order) RemoveItem(actor, catalogItemID string) error {
	if err := o.requireStatus("RemoveItem", StatusInitial, StatusPending); err != nil {
		return err
	}
	for idx, item := range o.items {
		if item.catalogItemID != catalogItemID {
			continue
		}
		o.items = append(o.items[:idx], o.items[idx+1:]...)
		o.recalculateTotal()
		o.touch(actor)
		o.raise(OrderItemRemoved{
			OrderID:       o.id,
			ItemID:        item.id,
			CatalogItemID: catalogItemID,
			Actor:         actor,
		})
		o.promoteToPending(actor)
		return nil
	}
	return errNotFound("order item", catalogItemID)
}

// UpdateItemQuantity replaces the quantity of an existing line item.
func (o *Order) UpdateItemQuantity(actor, catalogItemID string, quantity int) error {
	if err := o.requireStatus("UpdateItemQuantity", StatusInitial, StatusPending); err != nil {
		return err
	}
	item := o.findItem(catalogItemID)
	if item == nil {
		return errNotFound("order item", catalogItemID)
	}
	old := item.quantity
	if err := item.updateQuantity(quantity); err != nil {
		return err
	}

	o.recalculateTotal()
	o.touch(actor)
	o.raise(OrderItemQuantityUpdated{
		OrderID:       o.id,
		ItemID:        item.id,
		CatalogItemID: catalogItemID,
		OldQuantity:   old,
		NewQuantity:   quantity,
		Actor:         actor,
	})
	o.promoteToPending(actor)
	return nil
}

// ApplyItemDiscount sets the discount fraction on an existing line item.
func (o *Order) ApplyItemDiscount(actor, catalogItemID string, discount float64) error {
	if err := o.requireStatus("ApplyItemDiscount", StatusInitial, StatusPending); err != nil {
		return err
	}
	item := o.findItem(catalogItemID)
	if item == nil {
		return errNotFound("order item", catalogItemID)
	}
	if err := item.applyDiscount(discount); err != nil {
		return err
	}

	o.recalculateTotal()
	o.touch(actor)
	o.raise(OrderItemDiscountApplied{
		OrderID:       o.id,
		ItemID:        item.id,
		CatalogItemID: catalogItemID,
		Discount:      discount,
		Actor:         actor,
	})
	o.promoteToPending(actor)
	return nil
}

// Submit moves a PENDING order with at least one item to PROCESSING.
func (o *Order) Submit(actor string) error {
	if err := o.requireStatus("Submit", StatusPending); err != nil {
		return err
	}
	if len(o.items) == 0 {
		return errValidation("items", "order must have at least one item")
	}

	prev := o.status
	o.status = StatusProcessing
	o.touch(actor)
	o.raise(OrderSubmitted{
		OrderID:     o.id,
		CustomerID:  o.customerID,
		TotalAmount: o.totalAmount,
		Actor:       actor,
	})
	o.raiseStatusChanged(prev, actor)
	return nil
}

// MarkAsShipped moves a PROCESSING order to SHIPPED.
func (o *Order) MarkAsShipped(actor string) error {
	if err := o.requireStatus("MarkAsShipped", StatusProcessing); err != nil {
		return err
	}

	prev := o.status
	o.status = StatusShipped
	o.touch(actor)
	o.raise(OrderShipped{OrderID: o.id, Actor: actor})
	o.raiseStatusChanged(prev, actor)
	return nil
}

// MarkAsDelivered moves a SHIPPED order to DELIVERED and stamps the
// delivery date. No other operation ever sets deliveryDate.
func (o *Order) MarkAsDelivered(actor string) error {
	if err := o.requireStatus("MarkAsDelivered", StatusShipped); err != nil {
		return err
	}

	prev := o.status
	now := time.Now().UTC()
	o.status = StatusDelivered
	o.deliveryDate = &now
	o.touch(actor)
	o.raise(OrderDelivered{OrderID: o.id, DeliveredAt: now, Actor: actor})
	o.raiseStatusChanged(prev, actor)
	return nil
}

// Cancel moves the order to CANCELLED with an optional reason. Legal from
// any non-terminal status; DELIVERED and CANCELLED are terminal.
func (o *Order) Cancel(actor, reason string) error {
	if err := o.requireStatus("Cancel", StatusInitial, StatusPending, StatusProcessing, StatusShipped); err != nil {
		return err
	}

	prev := o.status
	o.status = StatusCancelled
	o.cancelReason = reason
	o.touch(actor)
	o.raise(OrderCancelled{
		OrderID:        o.id,
		PreviousStatus: prev,
		Reason:         reason,
		Actor:          actor,
	})
	o.raiseStatusChanged(prev, actor)
	return nil
}

// requireStatus is the first check of every mutator.
func (o *Order) requireStatus(op string, allowed ...Status) error {
	for _, s := range allowed {
		if o.status == s {
			return nil
		}
	}
	return &StateConflictError{Op: op, Current: o.status, Required: allowed}
}

// promoteToPending performs the implicit INITIAL → PENDING transition after
// a successful item mutation, announced via a StatusChanged event so the
// ordering rule "content event first, status event second" holds.
func (o *Order) promoteToPending(actor string) {
	if o.status != StatusInitial {
		return
	}
	o.status = StatusPending
	o.raiseStatusChanged(StatusInitial, actor)
}

func (o *Order) raiseStatusChanged(prev Status, actor string) {
	o.raise(OrderStatusChanged{
		OrderID:        o.id,
		PreviousStatus: prev,
		NewStatus:      o.status,
		Actor:          actor,
	})
}

func (o *Order) recalculateTotal() {
	total := 0.0
	for _, item := range o.items {
		total += item.Total()
	}
	o.totalAmount = total
}

func (o *Order) touch(actor string) {
	o.updatedBy = actor
	o.updatedAt = time.Now().UTC()
}

func (o *Order) findItem(catalogItemID string) *OrderItem {
	for _, item := range o.items {
		if item.catalogItemID == catalogItemID {
			return item
		}
	}
	return nil
}

func (o *Order) ID() string              { return o.id }
func (o *Order) CustomerID() string      { return o.customerID }
func (o *Order) Status() Status          { return o.status }
func (o *Order) TotalAmount() float64    { return o.totalAmount }
func (o *Order) OrderDate() time.Time    { return o.orderDate }
func (o *Order) ShippingAddress() string { return o.shippingAddress }
func (o *Order) BillingAddress() string  { return o.billingAddress }
func (o *Order) PaymentMethod() string   { return o.paymentMethod }
func (o *Order) CustomerEmail() string   { return o.customerEmail }
func (o *Order) CustomerPhone() string   { return o.customerPhone }
func (o *Order) CancelReason() string    { return o.cancelReason }
func (o *Order) UpdatedBy() string       { return o.updatedBy }
func (o *Order) UpdatedAt() time.Time    { return o.updatedAt }

// DeliveryDate returns the delivery timestamp; set iff status is DELIVERED.
func (o *Order) DeliveryDate() (time.Time, bool) {
	if o.deliveryDate == nil {
		return time.Time{}, false
	}
	return *o.deliveryDate, true
}

// Items returns a copy of the line item slice. The pointed-to items remain
// owned by the order; callers must not mutate them (they cannot — every
// item mutator is unexported).
func (o *Order) Items() []*OrderItem {
	out := make([]*OrderItem, len(o.items))
	copy(out, o.items)
	return out
}
