package httpx

type CreateOrderRequest struct {
	CustomerID      string `json:"customer_id" validate:"required"`
	ShippingAddress string `json:"shipping_address" validate:"required"`
	BillingAddress  string `json:"billing_address" validate:"required"`
	PaymentMethod   string `json:"payment_method" validate:"required"`
	CustomerEmail   string `json:"customer_email" validate:"required,email"`
	CustomerPhone   string `json:"customer_phone,omitempty" validate:"omitempty"`
}

type AddItemRequest struct {
	CatalogItemID string  `json:"catalog_item_id" validate:"required"`
	ProductName   string  `json:"product_name" validate:"required"`
	PictureURL    string  `json:"picture_url,omitempty"`
	UnitPrice     float64 `json:"unit_price" validate:"gte=0"`
	Quantity      int     `json:"quantity" validate:"gt=0"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}

type ApplyDiscountRequest struct {
	Discount float64 `json:"discount" validate:"gte=0,lte=1"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

type CreateOrderResponse struct {
	ID string `json:"id"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
