package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestor-comercial/gestor/internal/platform/db"
)

// Repository defines ledger data access.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetDocument(ctx context.Context, id int64) (CreditDocument, error)
	ListDocuments(ctx context.Context, direction PaymentDirection, counterpartyID int64) ([]CreditDocument, error)

	GetPayment(ctx context.Context, id int64) (PaymentRecord, error)
	ListPayments(ctx context.Context, direction PaymentDirection) ([]PaymentRecord, error)
}

// TxRepository exposes the operations of one atomic payment commit.
type TxRepository interface {
	CreatePayment(ctx context.Context, record PaymentRecord) (int64, error)
	InsertAllocation(ctx context.Context, alloc Allocation) error
	AddToPaidAmount(ctx context.Context, documentID int64, amount float64) error
	GeneratePaymentNumber(ctx context.Context, direction PaymentDirection) (string, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
}

const documentColumns = `id, kind, number, counterparty_id, issued_at, term, total, paid_amount`

func (r *pgRepository) GetDocument(ctx context.Context, id int64) (CreditDocument, error) {
	var doc CreditDocument
	err := r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM credit_documents WHERE id=$1`, id).
		Scan(&doc.ID, &doc.Kind, &doc.Number, &doc.CounterpartyID, &doc.IssuedAt, &doc.Term, &doc.Total, &doc.PaidAmount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CreditDocument{}, ErrNotFound
		}
		return CreditDocument{}, err
	}
	return doc, nil
}

func (r *pgRepository) ListDocuments(ctx context.Context, direction PaymentDirection, counterpartyID int64) ([]CreditDocument, error) {
	kind := KindSale
	if direction == DirectionPayable {
		kind = KindPurchase
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM credit_documents WHERE kind=$1 AND counterparty_id=$2 ORDER BY issued_at, id`,
		string(kind), counterpartyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []CreditDocument
	for rows.Next() {
		var doc CreditDocument
		if err := rows.Scan(&doc.ID, &doc.Kind, &doc.Number, &doc.CounterpartyID, &doc.IssuedAt, &doc.Term, &doc.Total, &doc.PaidAmount); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

const paymentColumns = `id, number, direction, counterparty_id, counterparty_name, amount, method, COALESCE(reference,''), paid_at, created_at`

func (r *pgRepository) GetPayment(ctx context.Context, id int64) (PaymentRecord, error) {
	var rec PaymentRecord
	err := r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payment_records WHERE id=$1`, id).
		Scan(&rec.ID, &rec.Number, &rec.Direction, &rec.CounterpartyID, &rec.CounterpartyName, &rec.Amount, &rec.Method, &rec.Reference, &rec.PaidAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentRecord{}, ErrNotFound
		}
		return PaymentRecord{}, err
	}
	allocs, err := r.listAllocations(ctx, id)
	if err != nil {
		return PaymentRecord{}, err
	}
	rec.Allocations = allocs
	return rec, nil
}

func (r *pgRepository) ListPayments(ctx context.Context, direction PaymentDirection) ([]PaymentRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+paymentColumns+` FROM payment_records WHERE direction=$1 ORDER BY paid_at DESC, id DESC`,
		string(direction))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []PaymentRecord
	for rows.Next() {
		var rec PaymentRecord
		if err := rows.Scan(&rec.ID, &rec.Number, &rec.Direction, &rec.CounterpartyID, &rec.CounterpartyName, &rec.Amount, &rec.Method, &rec.Reference, &rec.PaidAt, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range records {
		allocs, err := r.listAllocations(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Allocations = allocs
	}
	return records, nil
}

func (r *pgRepository) listAllocations(ctx context.Context, paymentID int64) ([]Allocation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, payment_id, document_id, amount FROM payment_allocations WHERE payment_id=$1 ORDER BY id`,
		paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var allocs []Allocation
	for rows.Next() {
		var alloc Allocation
		if err := rows.Scan(&alloc.ID, &alloc.PaymentID, &alloc.DocumentID, &alloc.Amount); err != nil {
			return nil, err
		}
		allocs = append(allocs, alloc)
	}
	return allocs, rows.Err()
}

type pgTxRepository struct {
	tx pgx.Tx
}

func (t *pgTxRepository) CreatePayment(ctx context.Context, record PaymentRecord) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO payment_records (number, direction, counterparty_id, counterparty_name, amount, method, reference, paid_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7,''), $8, NOW()) RETURNING id`,
		record.Number, string(record.Direction), record.CounterpartyID, record.CounterpartyName,
		record.Amount, record.Method, record.Reference, record.PaidAt).Scan(&id)
	return id, err
}

func (t *pgTxRepository) InsertAllocation(ctx context.Context, alloc Allocation) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO payment_allocations (payment_id, document_id, amount) VALUES ($1, $2, $3)`,
		alloc.PaymentID, alloc.DocumentID, alloc.Amount)
	return err
}

func (t *pgTxRepository) AddToPaidAmount(ctx context.Context, documentID int64, amount float64) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE credit_documents SET paid_amount = paid_amount + $2 WHERE id=$1`,
		documentID, amount)
	return err
}

func (t *pgTxRepository) GeneratePaymentNumber(ctx context.Context, direction PaymentDirection) (string, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, `SELECT nextval('payment_number_seq')`).Scan(&seq); err != nil {
		return "", err
	}
	prefix := "COBRO"
	if direction == DirectionPayable {
		prefix = "PAGO"
	}
	return fmt.Sprintf("%s-%06d", prefix, seq), nil
}
