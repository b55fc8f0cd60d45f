// Package sqlite provides the SQLite-backed order store: repository reads,
// unit-of-work transactions, and the outbox table.
//
// WAL mode is enabled on Open so that readers never block writers and vice
// versa — the outbox relay reads while request handlers write.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eshopd/ordering/internal/ordering/domain"
	"github.com/eshopd/ordering/internal/ordering/unitofwork"

	// Register the pure-Go SQLite driver. modernc.org/sqlite avoids CGO,
	// keeping Docker (Alpine) builds simple.
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id               TEXT PRIMARY KEY,
    customer_id      TEXT NOT NULL,
    status           TEXT NOT NULL,
    total_amount     REAL NOT NULL,
    order_date       TEXT NOT NULL,
    delivery_date    TEXT,
    shipping_address TEXT NOT NULL,
    billing_address  TEXT NOT NULL,
    payment_method   TEXT NOT NULL,
    customer_email   TEXT NOT NULL,
    customer_phone   TEXT NOT NULL DEFAULT '',
    cancel_reason    TEXT NOT NULL DEFAULT '',
    updated_by       TEXT NOT NULL,
    updated_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders(customer_id);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

CREATE TABLE IF NOT EXISTS order_items (
    id              TEXT PRIMARY KEY,
    order_id        TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    catalog_item_id TEXT NOT NULL,
    product_name    TEXT NOT NULL,
    picture_url     TEXT NOT NULL DEFAULT '',
    unit_price      REAL NOT NULL,
    quantity        INTEGER NOT NULL,
    discount        REAL NOT NULL DEFAULT 0,
    position        INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id, position);

-- Outbound integration events, written in the same transaction as the
-- order they describe. Rows are marked published only after broker
-- acknowledgment.
CREATE TABLE IF NOT EXISTS outbox (
    id           TEXT PRIMARY KEY,
    topic        TEXT NOT NULL,
    payload      BLOB NOT NULL,
    attempts     INTEGER NOT NULL DEFAULT 0,
    last_error   TEXT NOT NULL DEFAULT '',
    published_at TEXT,
    created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(created_at) WHERE published_at IS NULL;
`

// Store implements domain.Repository, unitofwork.TxStore and outbox.Store
// over one SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Begin opens a unit-of-work transaction.
func (s *Store) Begin(ctx context.Context) (unitofwork.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin: %w", err)
	}
	return &storeTx{tx: tx}, nil
}

// GetByID loads one aggregate or returns a domain NotFoundError.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	const q = orderSelect + ` WHERE id = ?`

	snap, err := scanOrder(s.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, &domain.NotFoundError{Kind: "order", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get order %q: %w", id, err)
	}
	if err := s.loadItems(ctx, &snap); err != nil {
		return nil, err
	}
	return domain.Reconstruct(snap), nil
}

func (s *Store) GetByCustomerID(ctx context.Context, customerID string) ([]*domain.Order, error) {
	const q = orderSelect + ` WHERE customer_id = ? ORDER BY order_date`
	return s.queryOrders(ctx, q, customerID)
}

func (s *Store) GetByStatus(ctx context.Context, status domain.Status) ([]*domain.Order, error) {
	const q = orderSelect + ` WHERE status = ? ORDER BY order_date`
	return s.queryOrders(ctx, q, string(status))
}

const orderSelect = `
	SELECT id, customer_id, status, total_amount, order_date, delivery_date,
	       shipping_address, billing_address, payment_method,
	       customer_email, customer_phone, cancel_reason, updated_by, updated_at
	FROM   orders`

func (s *Store) queryOrders(ctx context.Context, q string, arg any) ([]*domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query orders: %w", err)
	}
	defer rows.Close()

	var snaps []domain.Snapshot
	for rows.Next() {
		snap, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan order: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate orders: %w", err)
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
		WHERE  order_id = ?
		ORDER  BY position`

	rows, err := s.db.QueryContext(ctx, q, snap.ID)
	if err != nil {
		return fmt.Errorf("sqlite: query items for %q: %w", snap.ID, err)
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
			return fmt.Errorf("sqlite: scan item: %w", err)
		}
		snap.Items = append(snap.Items, item)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Snapshot, error) {
	var snap domain.Snapshot
	var orderDate, updatedAt string
	var deliveryDate sql.NullString
	if err := row.Scan(
		&snap.ID,
		&snap.CustomerID,
		&snap.Status,
		&snap.TotalAmount,
		&orderDate,
		&deliveryDate,
		&snap.ShippingAddress,
		&snap.BillingAddress,
		&snap.PaymentMethod,
		&snap.CustomerEmail,
		&snap.CustomerPhone,
		&snap.CancelReason,
		&snap.UpdatedBy,
		&updatedAt,
	); err != nil {
		return domain.Snapshot{}, err
	}

	var err error
	if snap.OrderDate, err = parseRFC3339(orderDate); err != nil {
		return domain.Snapshot{}, err
	}
	if snap.UpdatedAt, err = parseRFC3339(updatedAt); err != nil {
		return domain.Snapshot{}, err
	}
	if deliveryDate.Valid {
		d, err := parseRFC3339(deliveryDate.String)
		if err != nil {
			return domain.Snapshot{}, err
		}
		snap.DeliveryDate = &d
	}
	return snap, nil
}

var (
	_ domain.Repository  = (*Store)(nil)
	_ unitofwork.TxStore = (*Store)(nil)
)
