// Package app is the command/query layer over the order aggregate. Each
// command loads the aggregate, mutates it through its own methods, and
// saves it through a fresh unit of work, so persistence and event dispatch
// stay scoped to one logical request.
package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/eshopd/ordering/internal/ordering/domain"
	"github.com/eshopd/ordering/internal/ordering/unitofwork"
	"github.com/eshopd/ordering/internal/pkg/cache"
)

const cacheTTL = 5 * time.Minute

// UnitOfWorkFactory creates the per-request unit of work.
type UnitOfWorkFactory func() *unitofwork.UnitOfWork

type Service struct {
	repo   domain.Repository
	newUoW UnitOfWorkFactory
	cache  cache.Cache
	logger *slog.Logger
}

func NewService(repo domain.Repository, newUoW UnitOfWorkFactory, c cache.Cache, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		newUoW: newUoW,
		cache:  c,
		logger: logger,
	}
}

type CreateOrderCommand struct {
	Actor           string
	CustomerID      string
	ShippingAddress string
	BillingAddress  string
	PaymentMethod   string
	CustomerEmail   string
	CustomerPhone   string
}

type AddItemCommand struct {
	Actor         string
	OrderID       string
	CatalogItemID string
	ProductName   string
	PictureURL    string
	UnitPrice     float64
	Quantity      int
}

func (s *Service) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (OrderView, error) {
	order, err := domain.NewOrder(cmd.Actor, cmd.CustomerID, cmd.ShippingAddress, cmd.BillingAddress,
		cmd.PaymentMethod, cmd.CustomerEmail, cmd.CustomerPhone)
	if err != nil {
		return OrderView{}, err
	}

	uow := s.newUoW()
	uow.Register(order)
	if err := uow.SaveChanges(ctx); err != nil {
		return OrderView{}, err
	}

	s.logger.InfoContext(ctx, "order created", "order_id", order.ID(), "customer_id", cmd.CustomerID, "actor", cmd.Actor)
	return viewFromOrder(order), nil
}

func (s *Service) AddItem(ctx context.Context, cmd AddItemCommand) error {
	return s.mutate(ctx, cmd.OrderID, func(o *domain.Order) error {
		return o.AddItem(cmd.Actor, cmd.CatalogItemID, cmd.ProductName, cmd.PictureURL, cmd.UnitPrice, cmd.Quantity)
	})
}

func (s *Service) RemoveItem(ctx context.Context, actor, orderID, catalogItemID string) error {
	return s.mutate(ctx, orderID, func(o *domain.Order) error {
		return o.RemoveItem(actor, catalogItemID)
	})
}

func (s *Service) UpdateItemQuantity(ctx context.Context, actor, orderID, catalogItemID string, quantity int) error {
	return s.mutate(ctx, orderID, func(o *domain.Order) error {
		return o.UpdateItemQuantity(actor, catalogItemID, quantity)
	})
}

func (s *Service) ApplyItemDiscount(ctx context.Context, actor, orderID, catalogItemID string, discount float64) error {
	return s.mutate(ctx, orderID, func(o *domain.Order) error {
		return o.ApplyItemDiscount(actor, catalogItemID, discount)
	})
}

func (s *Service) Submit(ctx context.Context, actor, orderID string) error {
	return s.mutate(ctx, orderID, func(o *domain.Order) error {
		return o.Submit(actor)
	})
}

func (s *Service) MarkAsShipped(ctx context.Context, actor, orderID string) error {
	return s.mutate(ctx, orderID, func(o *domain.Order) error {
		return o.MarkAsShipped(actor)
	})
}

func (s *Service) MarkAsDelivered(ctx context.Context, actor, orderID string) error {
	return s.mutate(ctx, orderID, func(o *domain.Order) error {
		return o.MarkAsDelivered(actor)
	})
}

func (s *Service) Cancel(ctx context.Context, actor, orderID, reason string) error {
	return s.mutate(ctx, orderID, func(o *domain.Order) error {
		return o.Cancel(actor, reason)
	})
}

// mutate is the load-mutate-save cycle shared by every order command. The
// domain mutator runs before any persistence, so validation and state
// conflicts leave both the store and the cache untouched.
func (s *Service) mutate(ctx context.Context, orderID string, fn func(*domain.Order) error) error {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := fn(order); err != nil {
		return err
	}

	uow := s.newUoW()
	uow.Register(order)
	if err := uow.SaveChanges(ctx); err != nil {
		return err
	}

	s.invalidate(ctx, orderID)
	return nil
}

// GetByID reads through the redis cache.
func (s *Service) GetByID(ctx context.Context, orderID string) (OrderView, error) {
	key := s.cache.GenerateKey("get_order", orderID)
	if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
		var view OrderView
		if err := json.Unmarshal([]byte(cached), &view); err == nil {
			return view, nil
		}
	}

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return OrderView{}, err
	}
	view := viewFromOrder(order)

	if body, err := json.Marshal(view); err == nil {
		if err := s.cache.Set(ctx, key, string(body), cacheTTL); err != nil {
			s.logger.WarnContext(ctx, "order cache set failed", "order_id", orderID, "error", err)
		}
	}
	return view, nil
}

func (s *Service) GetByCustomerID(ctx context.Context, customerID string) ([]OrderView, error) {
	orders, err := s.repo.GetByCustomerID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return viewsFromOrders(orders), nil
}

func (s *Service) GetByStatus(ctx context.Context, status domain.Status) ([]OrderView, error) {
	orders, err := s.repo.GetByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	return viewsFromOrders(orders), nil
}

func (s *Service) invalidate(ctx context.Context, orderID string) {
	key := s.cache.GenerateKey("get_order", orderID)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "order cache invalidation failed", "order_id", orderID, "error", err)
	}
}
