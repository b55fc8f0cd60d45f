package unitofwork

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eshopd/ordering/internal/ordering/domain"
)

// Handler consumes one domain event kind. Exactly one handler may be
// registered per kind.
type Handler interface {
	Handle(ctx context.Context, event domain.DomainEvent) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, event domain.DomainEvent) error

func (f HandlerFunc) Handle(ctx context.Context, event domain.DomainEvent) error {
	return f(ctx, event)
}

// Dispatcher routes drained domain events to the handler registered for
// their kind. Registration is done at wiring time; Dispatch is called by
// the unit of work only after a successful commit.
type Dispatcher struct {
	handlers map[string]Handler
	logger   *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Register binds a handler to an event kind. A second registration for the
// same kind is a wiring bug and fails loudly.
func (d *Dispatcher) Register(kind string, h Handler) error {
	if _, exists := d.handlers[kind]; exists {
		return fmt.Errorf("dispatcher: handler already registered for %s", kind)
	}
	d.handlers[kind] = h
	return nil
}

// Dispatch routes a single event. An unregistered kind is not an error:
// not every event needs an outbound effect.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.DomainEvent) error {
	h, ok := d.handlers[event.Kind()]
	if !ok {
		d.logger.DebugContext(ctx, "no handler for event kind", "kind", event.Kind(), "order_id", event.AggregateID())
		return nil
	}
	return h.Handle(ctx, event)
}
