// Package postgres provides the pgx-backed order store for deployments
// that outgrow the embedded SQLite store. It implements the same
// repository and unit-of-work contracts.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eshopd/ordering/internal/ordering/domain"
	"github.com/eshopd/ordering/internal/ordering/outbox"
	"github.com/eshopd/ordering/internal/ordering/unitofwork"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the tables if they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS orders (
  id               text PRIMARY KEY,
  customer_id      text NOT NULL,
  status           text NOT NULL,
  total_amount     double precision NOT NULL,
  order_date       timestamptz NOT NULL,
  delivery_date    timestamptz,
  shipping_address text NOT NULL,
  billing_address  text NOT NULL,
  payment_method   text NOT NULL,
  customer_email   text NOT NULL,
  customer_phone   text NOT NULL DEFAULT '',
  cancel_reason    text NOT NULL DEFAULT '',
  updated_by       text NOT NULL,
  updated_at       timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders(customer_id);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

CREATE TABLE IF NOT EXISTS order_items (
  id              text PRIMARY KEY,
  order_id        text NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  catalog_item_id text NOT NULL,
  product_name    text NOT NULL,
  picture_url     text NOT NULL DEFAULT '',
  unit_price      double precision NOT NULL,
  quantity        integer NOT NULL,
  discount        double precision NOT NULL DEFAULT 0,
  position        integer NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id, position);

CREATE TABLE IF NOT EXISTS outbox (
  id           text PRIMARY KEY,
  topic        text NOT NULL,
  payload      bytea NOT NULL,
  attempts     integer NOT NULL DEFAULT 0,
  last_error   text NOT NULL DEFAULT '',
  published_at timestamptz,
  created_at   timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(created_at) WHERE published_at IS NULL;
`)
	return err
}

func (s *Store) Begin(ctx context.Context) (unitofwork.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin: %w", err)
	}
	return &storeTx{tx: tx}, nil
}

const orderSelect = `
	SELECT id, customer_id, status, total_amount, order_date, delivery_date,
	       shipping_address, billing_address, payment_method,
	       customer_email, customer_phone, cancel_reason, updated_by, updated_at
	FROM   orders`

func (s *Store) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	snap, err := scanOrder(s.pool.QueryRow(ctx, orderSelect+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "order", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get order %q: %w", id, err)
	}
	if err := s.loadItems(ctx, &snap); err != nil {
		return nil, err
	}
	return domain.Reconstruct(snap), nil
}

func (s *Store) GetByCustomerID(ctx context.Context, customerID string) ([]*domain.Order, error) {
	return s.queryOrders(ctx, orderSelect+` WHERE customer_id = $1 ORDER BY order_date`, customerID)
}

func (s *Store) GetByStatus(ctx context.Context, status domain.Status) ([]*domain.Order, error) {
	return s.queryOrders(ctx, orderSelect+` WHERE status = $1 ORDER BY order_date`, string(status))
}

func (s *Store) queryOrders(ctx context.Context, q string, arg any) ([]*domain.Order, error) {
	rows, err := s.pool.Query(ctx, q, arg)
	if err != nil {
		return nil, fmt.Errorf("postgres: query orders: %w", err)
	}
	defer rows.Close()

	var snaps []domain.Snapshot
	for rows.Next() {
		snap, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan order: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	orders := make([]*domain.Order, 0, len(snaps))
	for i := range snaps {
		if err := s.loadItems(ctx, &snaps[i]); err != nil {
			return nil, err
		}
		orders = append(orders, domain.Reconstruct(snaps[i]))
	}
	return orders, nil
}

func (s *Store) loadItems(ctx context.Context, snap *domain.Snapshot) error {
	const q = `
		SELECT id, order_id, catalog_item_id, product_name, picture_url,
		       unit_price, quantity, discount
		FROM   order_items
		WHERE  order_id = $1
		ORDER  BY position`

	rows, err := s.pool.Query(ctx, q, snap.ID)
	if err != nil {
		return fmt.Errorf("postgres: query items for %q: %w", snap.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.ItemSnapshot
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.CatalogItemID,
			&item.ProductName,
			&item.PictureURL,
			&item.UnitPrice,
			&item.Quantity,
			&item.Discount,
		); err != nil {
			return fmt.Errorf("postgres: scan item: %w", err)
		}
		snap.Items = append(snap.Items, item)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := row.Scan(
		&snap.ID,
		&snap.CustomerID,
		&snap.Status,
		&snap.TotalAmount,
		&snap.OrderDate,
		&snap.DeliveryDate,
		&snap.ShippingAddress,
		&snap.BillingAddress,
		&snap.PaymentMethod,
		&snap.CustomerEmail,
		&snap.CustomerPhone,
		&snap.CancelReason,
		&snap.UpdatedBy,
		&snap.UpdatedAt,
	)
	return snap, err
}

var (
	_ domain.Repository  = (*Store)(nil)
	_ unitofwork.TxStore = (*Store)(nil)
	_ outbox.Store       = (*Store)(nil)
)
