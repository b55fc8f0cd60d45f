package app

import (
	"time"

	"github.com/eshopd/ordering/internal/ordering/domain"
)

// OrderView is the read model returned by queries and cached in redis.
type OrderView struct {
	ID              string          `json:"id"`
	CustomerID      string          `json:"customer_id"`
	Status          string          `json:"status"`
	TotalAmount     float64         `json:"total_amount"`
	OrderDate       time.Time       `json:"order_date"`
	DeliveryDate    *time.Time      `json:"delivery_date,omitempty"`
	ShippingAddress string          `json:"shipping_address"`
	BillingAddress  string          `json:"billing_address"`
	PaymentMethod   string          `json:"payment_method"`
	CustomerEmail   string          `json:"customer_email"`
	CustomerPhone   string          `json:"customer_phone,omitempty"`
	CancelReason    string          `json:"cancel_reason,omitempty"`
	Items           []OrderItemView `json:"items"`
	UpdatedBy       string          `json:"updated_by"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type OrderItemView struct {
	ID            string  `json:"id"`
	CatalogItemID string  `json:"catalog_item_id"`
	ProductName   string  `json:"product_name"`
	PictureURL    string  `json:"picture_url,omitempty"`
	UnitPrice     float64 `json:"unit_price"`
	Quantity      int     `json:"quantity"`
	Discount      float64 `json:"discount"`
	Total         float64 `json:"total"`
}

func viewFromOrder(o *domain.Order) OrderView {
	items := make([]OrderItemView, 0, len(o.Items()))
	for _, item := range o.Items() {
		items = append(items, OrderItemView{
			ID:            item.ID(),
			CatalogItemID: item.CatalogItemID(),
			ProductName:   item.ProductName(),
			PictureURL:    item.PictureURL(),
			UnitPrice:     item.UnitPrice(),
			Quantity:      item.Quantity(),
			Discount:      item.Discount(),
			Total:         item.Total(),
		})
	}

	view := OrderView{
		ID:              o.ID(),
		CustomerID:      o.CustomerID(),
		Status:          string(o.Status()),
		TotalAmount:     o.TotalAmount(),
		OrderDate:       o.OrderDate(),
		ShippingAddress: o.ShippingAddress(),
		BillingAddress:  o.BillingAddress(),
		PaymentMethod:   o.PaymentMethod(),
		CustomerEmail:   o.CustomerEmail(),
		CustomerPhone:   o.CustomerPhone(),
		CancelReason:    o.CancelReason(),
		Items:           items,
		UpdatedBy:       o.UpdatedBy(),
		UpdatedAt:       o.UpdatedAt(),
	}
	if d, ok := o.DeliveryDate(); ok {
		view.DeliveryDate = &d
	}
	return view
}

func viewsFromOrders(orders []*domain.Order) []OrderView {
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, viewFromOrder(o))
	}
	return views
}
