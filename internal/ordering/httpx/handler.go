package httpx

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/eshopd/ordering/internal/ordering/app"
	"github.com/eshopd/ordering/internal/ordering/domain"
	"github.com/eshopd/ordering/internal/ordering/httpx/middlewares"
)

// Handler translates HTTP requests into order commands and queries.
type Handler struct {
	service  *app.Service
	validate *validator.Validate
}

func NewHandler(service *app.Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.service.CreateOrder(r.Context(), app.CreateOrderCommand{
		Actor:           middlewares.ActorFromContext(r.Context()),
		CustomerID:      req.CustomerID,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PaymentMethod:   req.PaymentMethod,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.service.AddItem(r.Context(), app.AddItemCommand{
		Actor:         middlewares.ActorFromContext(r.Context()),
		OrderID:       chi.URLParam(r, "id"),
		CatalogItemID: req.CatalogItemID,
		ProductName:   req.ProductName,
		PictureURL:    req.PictureURL,
		UnitPrice:     req.UnitPrice,
		Quantity:      req.Quantity,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	err := h.service.RemoveItem(r.Context(),
		middlewares.ActorFromContext(r.Context()),
		chi.URLParam(r, "id"),
		chi.URLParam(r, "catalogItemID"),
	)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.service.UpdateItemQuantity(r.Context(),
		middlewares.ActorFromContext(r.Context()),
		chi.URLParam(r, "id"),
		chi.URLParam(r, "catalogItemID"),
		req.Quantity,
	)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ApplyItemDiscount(w http.ResponseWriter, r *http.Request) {
	var req ApplyDiscountRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.service.ApplyItemDiscount(r.Context(),
		middlewares.ActorFromContext(r.Context()),
		chi.URLParam(r, "id"),
		chi.URLParam(r, "catalogItemID"),
		req.Discount,
	)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Submit)
}

func (h *Handler) Ship(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.MarkAsShipped)
}

func (h *Handler) Deliver(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.MarkAsDelivered)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if r.ContentLength > 0 {
		if !h.decode(w, r, &req) {
			return
		}
	}

	err := h.service.Cancel(r.Context(),
		middlewares.ActorFromContext(r.Context()),
		chi.URLParam(r, "id"),
		req.Reason,
	)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ListOrders filters by customer_id or status; exactly one is required.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer_id")
	status := r.URL.Query().Get("status")

	switch {
	case customerID != "" && status == "":
		views, err := h.service.GetByCustomerID(r.Context(), customerID)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
	case status != "" && customerID == "":
		views, err := h.service.GetByStatus(r.Context(), domain.Status(status))
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
	default:
		writeError(w, http.StatusBadRequest, "invalid_query", "provide exactly one of customer_id or status")
	}
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actor, orderID string) error) {
	err := fn(r.Context(),
		middlewares.ActorFromContext(r.Context()),
		chi.URLParam(r, "id"),
	)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case domain.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case domain.IsStateConflict(err):
		writeError(w, http.StatusConflict, "state_conflict", err.Error())
	default:
		slog.ErrorContext(r.Context(), "command failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}
