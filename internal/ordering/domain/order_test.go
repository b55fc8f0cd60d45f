package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const actor = "alice"

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	o, err := NewOrder(actor, "cust-1", "1 Ship St", "2 Bill Ave", "card", "alice@example.com", "+1-555-0100")
	require.NoError(t, err)
	return o
}

func kindsOf(events []DomainEvent) []string {
	kinds := make([]string, len(events))
	for i, e := range events {
		kinds[i] = e.Kind()
	}
	return kinds
}

func TestNewOrder(t *testing.T) {
	o := newTestOrder(t)

	assert.NotEmpty(t, o.ID())
	assert.Equal(t, StatusInitial, o.Status())
	assert.Equal(t, "cust-1", o.CustomerID())
	assert.Zero(t, o.TotalAmount())
	assert.Empty(t, o.Items())
	assert.Equal(t, actor, o.UpdatedBy())

	events := o.Events()
	require.Len(t, events, 1)
	created, ok := events[0].(OrderCreated)
	require.True(t, ok)
	assert.Equal(t, o.ID(), created.OrderID)
	assert.Equal(t, StatusInitial, created.Status)
	assert.Equal(t, actor, created.Actor)
}

func TestNewOrderValidation(t *testing.T) {
	cases := []struct {
		name string
		fn   func() (*Order, error)
	}{
		{"empty actor", func() (*Order, error) {
			return NewOrder("", "c", "s", "b", "card", "a@b.com", "")
		}},
		{"empty customer", func() (*Order, error) {
			return NewOrder(actor, "", "s", "b", "card", "a@b.com", "")
		}},
		{"empty shipping address", func() (*Order, error) {
			return NewOrder(actor, "c", "", "b", "card", "a@b.com", "")
		}},
		{"empty billing address", func() (*Order, error) {
			return NewOrder(actor, "c", "s", "", "card", "a@b.com", "")
		}},
		{"empty payment method", func() (*Order, error) {
			return NewOrder(actor, "c", "s", "b", "", "a@b.com", "")
		}},
		{"empty email", func() (*Order, error) {
			return NewOrder(actor, "c", "s", "b", "card", "", "")
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o, err := tc.fn()
			assert.Nil(t, o)
			assert.True(t, IsValidation(err))
		})
	}

	// Phone is optional.
	o, err := NewOrder(actor, "c", "s", "b", "card", "a@b.com", "")
	require.NoError(t, err)
	assert.Empty(t, o.CustomerPhone())
}

func TestAddItemPromotesInitialToPending(t *testing.T) {
	o := newTestOrder(t)
	o.Drain()

	require.NoError(t, o.AddItem(actor, "sku-1", "Keyboard", "", 50, 2))

	assert.Equal(t, StatusPending, o.Status())
	assert.InDelta(t, 100, o.TotalAmount(), 1e-9)

	// Content event first, then the implicit status transition.
	assert.Equal(t, []string{KindOrderItemAdded, KindOrderStatusChanged}, kindsOf(o.Events()))
	events := o.Events()
	sc := events[1].(OrderStatusChanged)
	assert.Equal(t, StatusInitial, sc.PreviousStatus)
	assert.Equal(t, StatusPending, sc.NewStatus)
}

func TestAddItemMergesSameCatalogItem(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.AddItem(actor, "sku-1", "Keyboard", "", 50, 2))
	require.NoError(t, o.AddItem(actor, "sku-1", "Keyboard", "", 50, 3))

	items := o.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity())
	assert.InDelta(t, 250, o.TotalAmount(), 1e-9)
}

func TestAddItemValidation(t *testing.T) {
	o := newTestOrder(t)

	assert.True(t, IsValidation(o.AddItem(actor, "sku-1", "", "", 10, 1)))
	assert.True(t, IsValidation(o.AddItem(actor, "sku-1", "Keyboard", "", -1, 1)))
	assert.True(t, IsValidation(o.AddItem(actor, "sku-1", "Keyboard", "", 10, 0)))

	// Failed adds leave the order untouched.
	assert.Equal(t, StatusInitial, o.Status())
	assert.Empty(t, o.Items())
	assert.Equal(t, []string{KindOrderCreated}, kindsOf(o.Events()))
}

func TestRemoveItem(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.AddItem(actor, "sku-1", "Keyboard", "", 50, 2))
	require.NoError(t, o.AddItem(actor, "sku-2", "Mouse", "", 20, 1))
	o.Drain()

	require.NoError(t, o.RemoveItem(actor, "sku-1"))
	require.Len(t, o.Items(), 1)
	assert.Equal(t, "sku-2", o.Items()[0].CatalogItemID())
	assert.InDelta(t, 20, o.TotalAmount(), 1e-9)
	assert.Equal(t, []string{KindOrderItemRemoved}, kindsOf(o.Events()))

	err := o.RemoveItem(actor, "sku-missing")
	assert.True(t, IsNotFound(err))
}

func TestUpdateItemQuantity(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.AddItem(actor, "sku-1", "Keyboard", "", 50, 2))
	o.Drain()

	require.NoError(t, o.UpdateItemQuantity(actor, "sku-1", 5))
	assert.Equal(t, 5, o.Items()[0].Quantity())
	assert.InDelta(t, 250, o.TotalAmount(), 1e-9)

	events := o.Events()
	require.Len(t, events, 1)
	upd := events[0].(OrderItemQuantityUpdated)
	assert.Equal(t, 2, upd.OldQuantity)
	assert.Equal(t, 5, upd.NewQuantity)

	assert.True(t, IsValidation(o.UpdateItemQuantity(actor, "sku-1", 0)))
	assert.True(t, IsNotFound(o.UpdateItemQuantity(actor, "sku-missing", 3)))
	assert.Equal(t, 5, o.Items()[0].Quantity())
}

func TestApplyItemDiscount(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.AddItem(actor, "sku-1", "Keyboard", "", 100, 2))

	require.NoError(t, o.ApplyItemDiscount(actor, "sku-1", 0.10))

	item := o.Items()[0]
	assert.InDelta(t, 200, item.Subtotal(), 1e-9)
	assert.InDelta(t, 20, item.DiscountAmount(), 1e-9)
	assert.InDelta(t, 180, item.Total(), 1e-9)
	assert.InDelta(t, 180, o.TotalAmount(), 1e-9)

	assert.True(t, IsValidation(o.ApplyItemDiscount(actor, "sku-1", 1.5)))
	assert.True(t, IsValidation(o.ApplyItemDiscount(actor, "sku-1", -0.1)))
	assert.True(t, IsNotFound(o.ApplyItemDiscount(actor, "sku-missing", 0.1)))
	assert.InDelta(t, 180, o.TotalAmount(), 1e-9)
}

func TestSubmit(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.AddItem(actor, "sku-1", "Keyboard", "", 50, 2))
	o.Drain()

	require.NoError(t, o.Submit(actor))
	assert.Equal(t, StatusProcessing, o.Status())
	assert.Equal(t, []string{KindOrderSubmitted, KindOrderStatusChanged}, kindsOf(o.Events()))
}

func TestSubmitRequiresItems(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.AddItem(actor, "sku-1", "Keyboard", "", 50, 1))
	require.NoError(t, o.RemoveItem(actor, "sku-1"))
	require.Equal(t, StatusPending, o.Status())

	err := o.Submit(actor)
	assert.True(t, IsValidation(err))
	assert.Equal(t, StatusPending, o.Status())
}

func TestSubmitRequiresPending(t *testing.T) {
	o := newTestOrder(t)
	err := o.Submit(actor)
	require.True(t, IsStateConflict(err))

	var conflict *StateConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "Submit", conflict.Op)
	assert.Equal(t, StatusInitial, conflict.Current)
}

func TestFullLifecycle(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.AddItem(actor, "sku-1", "Keyboard", "", 50, 2))
	require.NoError(t, o.Submit(actor))
	require.NoError(t, o.MarkAsShipped(actor))

	_, set := o.DeliveryDate()
	assert.False(t, set)

	before := time.Now().UTC()
	require.NoError(t, o.MarkAsDelivered(actor))
	assert.Equal(t, StatusDelivered, o.Status())

	delivered, set := o.DeliveryDate()
	require.True(t, set)
	assert.False(t, delivered.Before(before))

	// DELIVERED is terminal.
	assert.True(t, IsStateConflict(o.Cancel(actor, "too late")))
	assert.True(t, IsStateConflict(o.MarkAsShipped(actor)))
	assert.True(t, IsStateConflict(o.AddItem(actor, "sku-2", "Mouse", "", 20, 1)))
}

func TestCancel(t *testing.T) {
	from := []struct {
		name  string
		setup func(t *testing.T) *Order
	}{
		{"initial", func(t *testing.T) *Order {
			return newTestOrder(t)
		}},
		{"pending", func(t *testing.T) *Order {
			o := newTestOrder(t)
			require.NoError(t, o.AddItem(actor, "sku-1", "Keyboard", "", 50, 1))
			return o
		}},
		{"processing", func(t *testing.T) *Order {
			o := newTestOrder(t)
			require.NoError(t, o.AddItem(actor, "sku-1", "Keyboard", "", 50, 1))
			require.NoError(t, o.Submit(actor))
			return o
		}},
		{"shipped", func(t *testing.T) *Order {
			o := newTestOrder(t)
			require.NoError(t, o.AddItem(actor, "sku-1", "Keyboard", "", 50, 1))
			require.NoError(t, o.Submit(actor))
			require.NoError(t, o.MarkAsShipped(actor))
			return o
		}},
	}
	for _, tc := range from {
		t.Run(tc.name, func(t *testing.T) {
			o := tc.setup(t)
			prev := o.Status()
			o.Drain()

			require.NoError(t, o.Cancel(actor, "changed my mind"))
			assert.Equal(t, StatusCancelled, o.Status())
			assert.Equal(t, "changed my mind", o.CancelReason())

			events := o.Events()
			require.Len(t, events, 2)
			cancelled := events[0].(OrderCancelled)
			assert.Equal(t, prev, cancelled.PreviousStatus)
			assert.Equal(t, "changed my mind", cancelled.Reason)

			// CANCELLED is terminal.
			assert.True(t, IsStateConflict(o.Cancel(actor, "again")))
			assert.True(t, IsStateConflict(o.Submit(actor)))
		})
	}
}

func TestItemMutationsRejectedAfterSubmit(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.AddItem(actor, "sku-1", "Keyboard", "", 50, 2))
	require.NoError(t, o.Submit(actor))

	assert.True(t, IsStateConflict(o.AddItem(actor, "sku-2", "Mouse", "", 20, 1)))
	assert.True(t, IsStateConflict(o.RemoveItem(actor, "sku-1")))
	assert.True(t, IsStateConflict(o.UpdateItemQuantity(actor, "sku-1", 3)))
	assert.True(t, IsStateConflict(o.ApplyItemDiscount(actor, "sku-1", 0.1)))
	assert.InDelta(t, 100, o.TotalAmount(), 1e-9)
}

func TestTotalAmountTracksItems(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.AddItem(actor, "sku-1", "Keyboard", "", 50, 2))  // 100
	require.NoError(t, o.AddItem(actor, "sku-2", "Mouse", "", 20, 3))    // 60
	require.NoError(t, o.ApplyItemDiscount(actor, "sku-2", 0.5))         // 30
	require.NoError(t, o.UpdateItemQuantity(actor, "sku-1", 1))          // 50

	sum := 0.0
	for _, item := range o.Items() {
		sum += item.Total()
	}
	assert.InDelta(t, sum, o.TotalAmount(), 1e-9)
	assert.InDelta(t, 80, o.TotalAmount(), 1e-9)
}

func TestActorIsRecordedOnEveryMutation(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.AddItem("bob", "sku-1", "Keyboard", "", 50, 1))
	assert.Equal(t, "bob", o.UpdatedBy())

	require.NoError(t, o.Submit("carol"))
	assert.Equal(t, "carol", o.UpdatedBy())

	for _, e := range o.Events() {
		switch ev := e.(type) {
		case OrderCreated:
			assert.Equal(t, actor, ev.Actor)
		case OrderItemAdded:
			assert.Equal(t, "bob", ev.Actor)
		case OrderSubmitted:
			assert.Equal(t, "carol", ev.Actor)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.AddItem(actor, "sku-1", "Keyboard", "", 50, 2))
	require.NoError(t, o.ApplyItemDiscount(actor, "sku-1", 0.25))
	require.NoError(t, o.Submit(actor))

	restored := Reconstruct(o.Snapshot())

	assert.Equal(t, o.ID(), restored.ID())
	assert.Equal(t, o.Status(), restored.Status())
	assert.InDelta(t, o.TotalAmount(), restored.TotalAmount(), 1e-9)
	require.Len(t, restored.Items(), 1)
	assert.Equal(t, 0.25, restored.Items()[0].Discount())

	// Rebuilt aggregates start with an empty buffer.
	assert.Empty(t, restored.Events())

	// And stay fully operable.
	require.NoError(t, restored.MarkAsShipped(actor))
	assert.Equal(t, []string{KindOrderShipped, KindOrderStatusChanged}, kindsOf(restored.Events()))
}
