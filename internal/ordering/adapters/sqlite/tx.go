package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eshopd/ordering/internal/ordering/domain"
	"github.com/eshopd/ordering/internal/ordering/outbox"
	"github.com/eshopd/ordering/internal/ordering/unitofwork"
)

// storeTx is one unit-of-work transaction.
type storeTx struct {
	tx *sql.Tx
}

// SaveOrder upserts the order row and rewrites its line items. Items are
// replaced wholesale: the aggregate is small and owns them exclusively, so
// diffing rows buys nothing.
func (t *storeTx) SaveOrder(ctx context.Context, order *domain.Order) error {
	snap := order.Snapshot()

	const upsert = `
		INSERT INTO orders
			(id, customer_id, status, total_amount, order_date, delivery_date,
			 shipping_address, billing_address, payment_method,
			 customer_email, customer_phone, cancel_reason, updated_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status          = excluded.status,
			total_amount    = excluded.total_amount,
			delivery_date   = excluded.delivery_date,
			shipping_address = excluded.shipping_address,
			billing_address  = excluded.billing_address,
			cancel_reason   = excluded.cancel_reason,
			updated_by      = excluded.updated_by,
			updated_at      = excluded.updated_at`

	var delivery any
	if snap.DeliveryDate != nil {
		delivery = formatRFC3339(*snap.DeliveryDate)
	}

	if _, err := t.tx.ExecContext(ctx, upsert,
		snap.ID,
		snap.CustomerID,
		string(snap.Status),
		snap.TotalAmount,
		formatRFC3339(snap.OrderDate),
		delivery,
		snap.ShippingAddress,
		snap.BillingAddress,
		snap.PaymentMethod,
		snap.CustomerEmail,
		snap.CustomerPhone,
		snap.CancelReason,
		snap.UpdatedBy,
		formatRFC3339(snap.UpdatedAt),
	); err != nil {
		return fmt.Errorf("sqlite: save order %q: %w", snap.ID, err)
	}

	if _, err := t.tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, snap.ID); err != nil {
		return fmt.Errorf("sqlite: clear items for %q: %w", snap.ID, err)
	}

	const insertItem = `
		INSERT INTO order_items
			(id, order_id, catalog_item_id, product_name, picture_url,
			 unit_price, quantity, discount, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for pos, item := range snap.Items {
		if _, err := t.tx.ExecContext(ctx, insertItem,
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
			return fmt.Errorf("sqlite: save item %q: %w", item.ID, err)
		}
	}
	return nil
}

// AppendOutbox inserts one outbound event row inside the transaction.
func (t *storeTx) AppendOutbox(ctx context.Context, row outbox.Row) error {
	const q = `
		INSERT INTO outbox (id, topic, payload, attempts, last_error, created_at)
		VALUES (?, ?, ?, 0, '', ?)`

	if _, err := t.tx.ExecContext(ctx, q, row.ID, row.Topic, row.Payload, formatRFC3339(row.CreatedAt)); err != nil {
		return fmt.Errorf("sqlite: append outbox row %q: %w", row.ID, err)
	}
	return nil
}

func (t *storeTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func (t *storeTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("sqlite: rollback: %w", err)
	}
	return nil
}

var _ unitofwork.Tx = (*storeTx)(nil)
