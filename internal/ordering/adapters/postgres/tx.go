package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/eshopd/ordering/internal/ordering/domain"
	"github.com/eshopd/ordering/internal/ordering/outbox"
	"github.com/eshopd/ordering/internal/ordering/unitofwork"
)

type storeTx struct {
	tx pgx.Tx
}

func (t *storeTx) SaveOrder(ctx context.Context, order *domain.Order) error {
	snap := order.Snapshot()

	const upsert = `
		INSERT INTO orders
			(id, customer_id, status, total_amount, order_date, delivery_date,
			 shipping_address, billing_address, payment_method,
			 customer_email, customer_phone, cancel_reason, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			status           = EXCLUDED.status,
			total_amount     = EXCLUDED.total_amount,
			delivery_date    = EXCLUDED.delivery_date,
			shipping_address = EXCLUDED.shipping_address,
			billing_address  = EXCLUDED.billing_address,
			cancel_reason    = EXCLUDED.cancel_reason,
			updated_by       = EXCLUDED.updated_by,
			updated_at       = EXCLUDED.updated_at`

	if _, err := t.tx.Exec(ctx, upsert,
		snap.ID,
		snap.CustomerID,
		string(snap.Status),
		snap.TotalAmount,
		snap.OrderDate,
		snap.DeliveryDate,
		snap.ShippingAddress,
		snap.BillingAddress,
		snap.PaymentMethod,
		snap.CustomerEmail,
		snap.CustomerPhone,
		snap.CancelReason,
		snap.UpdatedBy,
		snap.UpdatedAt,
	); err != nil {
		return fmt.Errorf("postgres: save order %q: %w", snap.ID, err)
	}

	if _, err := t.tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, snap.ID); err != nil {
		return fmt.Errorf("postgres: clear items for %q: %w", snap.ID, err)
	}

	const insertItem = `
		INSERT INTO order_items
			(id, order_id, catalog_item_id, product_name, picture_url,
			 unit_price, quantity, discount, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for pos, item := range snap.Items {
		if _, err := t.tx.Exec(ctx, insertItem,
			item.ID,
			item.OrderID,
			item.CatalogItemID,
			item.ProductName,
			item.PictureURL,
			item.UnitPrice,
			item.Quantity,
			item.Discount,
			pos,
		); err != nil {
			return fmt.Errorf("postgres: save item %q: %w", item.ID, err)
		}
	}
	return nil
}

func (t *storeTx) AppendOutbox(ctx context.Context, row outbox.Row) error {
	const q = `
		INSERT INTO outbox (id, topic, payload, attempts, last_error, created_at)
		VALUES ($1, $2, $3, 0, '', $4)`

	if _, err := t.tx.Exec(ctx, q, row.ID, row.Topic, row.Payload, row.CreatedAt); err != nil {
		return fmt.Errorf("postgres: append outbox row %q: %w", row.ID, err)
	}
	return nil
}

func (t *storeTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *storeTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// NextBatch returns unpublished outbox rows, oldest first.
func (s *Store) NextBatch(ctx context.Context, limit int) ([]outbox.Row, error) {
	const q = `
		SELECT id, topic, payload, attempts, last_error, created_at
		FROM   outbox
		WHERE  published_at IS NULL
		ORDER  BY created_at, id
		LIMIT  $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: query outbox: %w", err)
	}
	defer rows.Close()

	var out []outbox.Row
	for rows.Next() {
		var row outbox.Row
		if err := rows.Scan(&row.ID, &row.Topic, &row.Payload, &row.Attempts, &row.LastError, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan outbox row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Store) MarkPublished(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET published_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	return err
}

func (s *Store) MarkFailed(ctx context.Context, id string, cause string) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET attempts = attempts + 1, last_error = $1 WHERE id = $2`, cause, id)
	return err
}

var _ unitofwork.Tx = (*storeTx)(nil)
