package purchasing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestor-comercial/gestor/internal/ledger"
	"github.com/gestor-comercial/gestor/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence. Orders live as a
// credit_documents row of kind COMPRA plus lifecycle columns in
// purchase_orders keyed by the document id.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	NextOrderNumber(ctx context.Context) (string, error)
	CreateOrder(ctx context.Context, order PurchaseOrder) (int64, error)
	InsertItem(ctx context.Context, item OrderItem) (int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status OrderStatus) error
	UpdateLogistics(ctx context.Context, orderID int64, logistics LogisticsStatus) error
	SetItemReceivedQty(ctx context.Context, itemID int64, qty float64) error
	DeleteOrder(ctx context.Context, orderID int64) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const orderSelect = `
SELECT d.id, d.number, d.counterparty_id, d.issued_at, d.term,
       po.subtotal, po.tax_amount, d.total, po.status, po.logistics
FROM credit_documents d
JOIN purchase_orders po ON po.document_id = d.id`

// GetOrder returns one order with its items.
func (r *Repository) GetOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	var order PurchaseOrder
	err := r.pool.QueryRow(ctx, orderSelect+` WHERE d.id=$1`, id).Scan(
		&order.ID, &order.Number, &order.SupplierID, &order.IssuedAt, &order.Term,
		&order.Subtotal, &order.TaxAmount, &order.Total, &order.Status, &order.Logistics)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	items, err := r.listItems(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	order.Items = items
	return order, nil
}

// ListOrders returns orders newest first, optionally filtered by status.
func (r *Repository) ListOrders(ctx context.Context, status OrderStatus) ([]PurchaseOrder, error) {
	query := orderSelect + ` ORDER BY d.issued_at DESC, d.id DESC`
	args := []any{}
	if status != "" {
		query = orderSelect + ` WHERE po.status=$1 ORDER BY d.issued_at DESC, d.id DESC`
		args = append(args, string(status))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []PurchaseOrder
	for rows.Next() {
		var order PurchaseOrder
		if err := rows.Scan(
			&order.ID, &order.Number, &order.SupplierID, &order.IssuedAt, &order.Term,
			&order.Subtotal, &order.TaxAmount, &order.Total, &order.Status, &order.Logistics); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range orders {
		items, err := r.listItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (r *Repository) listItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, product_id, name, COALESCE(sku,''), COALESCE(batch,''), expected_qty, unit_cost, tax_amount, received_qty
		 FROM purchase_order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.SKU, &item.Batch,
			&item.ExpectedQty, &item.UnitCost, &item.TaxAmount, &item.ReceivedQty); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (t *txRepo) NextOrderNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, `SELECT nextval('purchase_order_number_seq')`).Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("OC-%06d", seq), nil
}

func (t *txRepo) CreateOrder(ctx context.Context, order PurchaseOrder) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO credit_documents (kind, number, counterparty_id, issued_at, term, total, paid_amount)
		 VALUES ($1, $2, $3, $4, $5, $6, 0) RETURNING id`,
		string(ledger.KindPurchase), order.Number, order.SupplierID, order.IssuedAt, string(order.Term), order.Total).Scan(&id)
	if err != nil {
		return 0, err
	}
	_, err = t.tx.Exec(ctx,
		`INSERT INTO purchase_orders (document_id, subtotal, tax_amount, status, logistics)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, order.Subtotal, order.TaxAmount, string(order.Status), string(order.Logistics))
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (t *txRepo) InsertItem(ctx context.Context, item OrderItem) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO purchase_order_items (order_id, product_id, name, sku, batch, expected_qty, unit_cost, tax_amount)
		 VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''), $6, $7, $8) RETURNING id`,
		item.OrderID, item.ProductID, item.Name, item.SKU, item.Batch, item.ExpectedQty, item.UnitCost, item.TaxAmount).Scan(&id)
	return id, err
}

func (t *txRepo) UpdateStatus(ctx context.Context, orderID int64, status OrderStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status=$2 WHERE document_id=$1`, orderID, string(status))
	return err
}

func (t *txRepo) UpdateLogistics(ctx context.Context, orderID int64, logistics LogisticsStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET logistics=$2 WHERE document_id=$1`, orderID, string(logistics))
	return err
}

func (t *txRepo) SetItemReceivedQty(ctx context.Context, itemID int64, qty float64) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_order_items SET received_qty=$2 WHERE id=$1`, itemID, qty)
	return err
}

func (t *txRepo) DeleteOrder(ctx context.Context, orderID int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM purchase_order_items WHERE order_id=$1`, orderID); err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM purchase_orders WHERE document_id=$1`, orderID); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `DELETE FROM credit_documents WHERE id=$1`, orderID)
	return err
}
