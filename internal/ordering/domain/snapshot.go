package domain

import "time"

// Snapshot is the persistence shape of an Order. Repository adapters use it
// to store and rebuild aggregates without reaching into private fields.
// It must never be used by the application layer to mutate state.
type Snapshot struct {
	ID              string
	CustomerID      string
	Status          Status
	TotalAmount     float64
	OrderDate       time.Time
	DeliveryDate    *time.Time
	ShippingAddress string
	BillingAddress  string
	PaymentMethod   string
	CustomerEmail   string
	CustomerPhone   string
	CancelReason    string
	UpdatedBy       string
	UpdatedAt       time.Time
	Items           []ItemSnapshot
}

// ItemSnapshot is the persistence shape of an OrderItem.
type ItemSnapshot struct {
	ID            string
	OrderID       string
	CatalogItemID string
	ProductName   string
	PictureURL    string
	UnitPrice     float64
	Quantity      int
	Discount      float64
}

// Snapshot captures the order for persistence. The event buffer is not part
// of the snapshot: buffered events live and die with the in-memory instance.
func (o *Order) Snapshot() Snapshot {
	var delivery *time.Time
	if o.deliveryDate != nil {
		d := *o.deliveryDate
		delivery = &d
	}
	items := make([]ItemSnapshot, len(o.items))
	for i, item := range o.items {
		items[i] = ItemSnapshot{
			ID:            item.id,
			OrderID:       item.orderID,
			CatalogItemID: item.catalogItemID,
			ProductName:   item.productName,
			PictureURL:    item.pictureURL,
			UnitPrice:     item.unitPrice,
			Quantity:      item.quantity,
			Discount:      item.discount,
		}
	}
	return Snapshot{
		ID:              o.id,
		CustomerID:      o.customerID,
		Status:          o.status,
		TotalAmount:     o.totalAmount,
		OrderDate:       o.orderDate,
		DeliveryDate:    delivery,
		ShippingAddress: o.shippingAddress,
		BillingAddress:  o.billingAddress,
		PaymentMethod:   o.paymentMethod,
		CustomerEmail:   o.customerEmail,
		CustomerPhone:   o.customerPhone,
		CancelReason:    o.cancelReason,
		UpdatedBy:       o.updatedBy,
		UpdatedAt:       o.updatedAt,
		Items:           items,
	}
}

// Reconstruct rebuilds an aggregate from a snapshot with an empty event
// buffer. Repository use only.
func Reconstruct(s Snapshot) *Order {
	var delivery *time.Time
	if s.DeliveryDate != nil {
		d := *s.DeliveryDate
		delivery = &d
	}
	items := make([]*OrderItem, len(s.Items))
	for i, is := range s.Items {
		items[i] = &OrderItem{
			id:            is.ID,
			orderID:       is.OrderID,
			catalogItemID: is.CatalogItemID,
			productName:   is.ProductName,
			pictureURL:    is.PictureURL,
			unitPrice:     is.UnitPrice,
			quantity:      is.Quantity,
			discount:      is.Discount,
		}
	}
	return &Order{
		id:              s.ID,
		customerID:      s.CustomerID,
		status:          s.Status,
		totalAmount:     s.TotalAmount,
		orderDate:       s.OrderDate,
		deliveryDate:    delivery,
		shippingAddress: s.ShippingAddress,
		billingAddress:  s.BillingAddress,
		paymentMethod:   s.PaymentMethod,
		customerEmail:   s.CustomerEmail,
		customerPhone:   s.CustomerPhone,
		cancelReason:    s.CancelReason,
		updatedBy:       s.UpdatedBy,
		updatedAt:       s.UpdatedAt,
		items:           items,
	}
}
