package domain

import "github.com/google/uuid"

// OrderItem is a line item owned exclusively by one Order. It holds only the
// owning order's id — navigation back to the order is a repository lookup,
// never a held reference.
type OrderItem struct {
	id            string
	orderID       string
	catalogItemID string
	productName   string
	pictureURL    string
	unitPrice     float64
	quantity      int
	discount      float64
}

func newOrderItem(orderID, catalogItemID, productName, pictureURL string, unitPrice float64, quantity int, discount float64) (*OrderItem, error) {
	if err := validateItem(productName, unitPrice, quantity, discount); err != nil {
		return nil, err
	}
	return &OrderItem{
		id:            uuid.NewString(),
		orderID:       orderID,
		catalogItemID: catalogItemID,
		productName:   productName,
		pictureURL:    pictureURL,
		unitPrice:     unitPrice,
		quantity:      quantity,
		discount:      discount,
	}, nil
}

func validateItem(productName string, unitPrice float64, quantity int, discount float64) error {
	if productName == "" {
		return errValidation("productName", "must not be empty")
	}
	if unitPrice < 0 {
		return errValidation("unitPrice", "must not be negative")
	}
	if quantity <= 0 {
		return errValidation("quantity", "must be positive")
	}
	if discount < 0 || discount > 1 {
		return errValidation("discount", "must be in [0,1]")
	}
	return nil
}

// addQuantity merges a repeated AddItem for the same catalog item.
func (i *OrderItem) addQuantity(qty int) error {
	if qty <= 0 {
		return errValidation("quantity", "must be positive")
	}
	i.quantity += qty
	return nil
}

func (i *OrderItem) updateQuantity(qty int) error {
	if qty <= 0 {
		return errValidation("quantity", "must be positive")
	}
	i.quantity = qty
	return nil
}

func (i *OrderItem) applyDiscount(discount float64) error {
	if discount < 0 || discount > 1 {
		return errValidation("discount", "must be in [0,1]")
	}
	i.discount = discount
	return nil
}

func (i *OrderItem) ID() string            { return i.id }
func (i *OrderItem) OrderID() string       { return i.orderID }
func (i *OrderItem) CatalogItemID() string { return i.catalogItemID }
func (i *OrderItem) ProductName() string   { return i.productName }
func (i *OrderItem) PictureURL() string    { return i.pictureURL }
func (i *OrderItem) UnitPrice() float64    { return i.unitPrice }
func (i *OrderItem) Quantity() int         { return i.quantity }
func (i *OrderItem) Discount() float64     { return i.discount }

// Subtotal is unitPrice × quantity, derived on every read.
func (i *OrderItem) Subtotal() float64 {
	return i.unitPrice * float64(i.quantity)
}

// DiscountAmount is the absolute amount taken off the subtotal.
func (i *OrderItem) DiscountAmount() float64 {
	return i.Subtotal() * i.discount
}

// Total is the discounted line total.
func (i *OrderItem) Total() float64 {
	return i.Subtotal() - i.DiscountAmount()
}
