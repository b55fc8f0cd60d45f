// Package unitofwork coordinates "persist" and "announce" for one logical
// operation: aggregate state is flushed to the store first, and only after
// the store commit succeeds are the aggregates' buffered events drained and
// dispatched. A failed flush discards mutations and events together.
package unitofwork

import (
	"context"
	"errors"
	"log/slog"

	"github.com/eshopd/ordering/internal/ordering/domain"
	"github.com/eshopd/ordering/internal/ordering/outbox"
)

// Tx is one store transaction.
type Tx interface {
	SaveOrder(ctx context.Context, order *domain.Order) error
	AppendOutbox(ctx context.Context, row outbox.Row) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxStore opens store transactions. Implemented by the sqlite and postgres
// adapters.
type TxStore interface {
	Begin(ctx context.Context) (Tx, error)
}

// OutboxEncoder turns a domain event into an outbox row. ok=false means the
// event has no outbound integration counterpart and should be dispatched
// in-process instead.
type OutboxEncoder func(event domain.DomainEvent) (row outbox.Row, ok bool, err error)

// ErrNoTransaction is returned by Commit/Rollback without a matching Begin.
var ErrNoTransaction = errors.New("unitofwork: no transaction in progress")

// ErrTransactionOpen is returned by Begin when a transaction is already open.
var ErrTransactionOpen = errors.New("unitofwork: transaction already in progress")

// UnitOfWork is scoped to a single logical request. It is not safe for
// concurrent use; create one per command.
type UnitOfWork struct {
	store      TxStore
	dispatcher *Dispatcher
	logger     *slog.Logger
	encode     OutboxEncoder

	registered []*domain.Order
	tx         Tx
}

// Option configures a UnitOfWork.
type Option func(*UnitOfWork)

// WithOutbox routes encodable events into the store outbox inside the same
// transaction as the aggregate, instead of dispatching them in-process.
func WithOutbox(encode OutboxEncoder) Option {
	return func(u *UnitOfWork) { u.encode = encode }
}

func New(store TxStore, dispatcher *Dispatcher, logger *slog.Logger, opts ...Option) *UnitOfWork {
	u := &UnitOfWork{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Register adds an aggregate to the current unit of work. Registering the
// same instance twice is harmless but flushes it twice; callers register
// each loaded aggregate once.
func (u *UnitOfWork) Register(order *domain.Order) {
	u.registered = append(u.registered, order)
}

// SaveChanges flushes every registered aggregate. Without an explicit
// transaction it begins, flushes, commits and then drains-and-dispatches.
// Inside an explicit transaction it only flushes; CommitTransaction
// performs the commit and dispatch.
func (u *UnitOfWork) SaveChanges(ctx context.Context) error {
	if u.tx != nil {
		return u.flush(ctx, u.tx)
	}

	tx, err := u.store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := u.flush(ctx, tx); err != nil {
		u.rollback(ctx, tx)
		return err
	}
	if err := u.appendOutbox(ctx, tx); err != nil {
		u.rollback(ctx, tx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	u.dispatch(ctx)
	return nil
}

// BeginTransaction opens an explicit transaction for command handlers that
// span multiple aggregate saves.
func (u *UnitOfWork) BeginTransaction(ctx context.Context) error {
	if u.tx != nil {
		return ErrTransactionOpen
	}
	tx, err := u.store.Begin(ctx)
	if err != nil {
		return err
	}
	u.tx = tx
	return nil
}

// CommitTransaction commits the store write and then runs the
// drain-and-dispatch sequence for every registered aggregate.
func (u *UnitOfWork) CommitTransaction(ctx context.Context) error {
	if u.tx == nil {
		return ErrNoTransaction
	}
	tx := u.tx
	u.tx = nil

	if err := u.appendOutbox(ctx, tx); err != nil {
		u.rollback(ctx, tx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	u.dispatch(ctx)
	return nil
}

// RollbackTransaction discards the store changes. Buffers are not cleared
// here: the aggregates are abandoned with their events still inside.
func (u *UnitOfWork) RollbackTransaction(ctx context.Context) error {
	if u.tx == nil {
		return ErrNoTransaction
	}
	tx := u.tx
	u.tx = nil
	u.registered = nil
	return tx.Rollback(ctx)
}

func (u *UnitOfWork) flush(ctx context.Context, tx Tx) error {
	for _, order := range u.registered {
		if err := tx.SaveOrder(ctx, order); err != nil {
			return err
		}
	}
	return nil
}

// appendOutbox writes the integration counterparts of buffered events into
// the transaction, so that aggregate state and outbound notifications
// commit or fail as one. Events are only peeked here; draining still
// happens post-commit.
func (u *UnitOfWork) appendOutbox(ctx context.Context, tx Tx) error {
	if u.encode == nil {
		return nil
	}
	for _, order := range u.registered {
		for _, event := range order.Events() {
			row, ok, err := u.encode(event)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := tx.AppendOutbox(ctx, row); err != nil {
				return err
			}
		}
	}
	return nil
}

// dispatch drains every registered aggregate and routes events in the order
// collected. Handler failures are logged and skipped: the store write is
// already committed and is the source of truth; notification is best-effort
// on this path.
func (u *UnitOfWork) dispatch(ctx context.Context) {
	registered := u.registered
	u.registered = nil

	for _, order := range registered {
		for _, event := range order.Drain() {
			if u.encode != nil {
				if _, ok, err := u.encode(event); err == nil && ok {
					// Already durably queued in the outbox; the relay owns it.
					continue
				}
			}
			if err := u.dispatcher.Dispatch(ctx, event); err != nil {
				u.logger.ErrorContext(ctx, "event handler failed",
					"kind", event.Kind(),
					"order_id", event.AggregateID(),
					"error", err,
				)
			}
		}
	}
}

func (u *UnitOfWork) rollback(ctx context.Context, tx Tx) {
	if err := tx.Rollback(ctx); err != nil {
		u.logger.ErrorContext(ctx, "transaction rollback failed", "error", err)
	}
}
