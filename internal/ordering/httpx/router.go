package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/eshopd/ordering/internal/ordering/httpx/middlewares"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachActor)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", handler.CreateOrder)
		r.Get("/", handler.ListOrders)
		r.Get("/{id}", handler.GetOrderByID)

		r.Post("/{id}/items", handler.AddItem)
		r.Delete("/{id}/items/{catalogItemID}", handler.RemoveItem)
		r.Put("/{id}/items/{catalogItemID}/quantity", handler.UpdateItemQuantity)
		r.Put("/{id}/items/{catalogItemID}/discount", handler.ApplyItemDiscount)

		r.Post("/{id}/submit", handler.Submit)
		r.Post("/{id}/ship", handler.Ship)
		r.Post("/{id}/deliver", handler.Deliver)
		r.Post("/{id}/cancel", handler.Cancel)
	})
	return r
}
