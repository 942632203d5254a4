package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gestor-comercial/gestor/internal/directory"
)

type memoryLedgerRepo struct {
	documents      map[int64]*CreditDocument
	payments       map[int64]*PaymentRecord
	nextPaymentID  int64
	paymentCounter int64
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{
		documents: make(map[int64]*CreditDocument),
		payments:  make(map[int64]*PaymentRecord),
	}
}

func (r *memoryLedgerRepo) addDocument(doc CreditDocument) {
	copied := doc
	r.documents[doc.ID] = &copied
}

func (r *memoryLedgerRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryLedgerRepo) GetDocument(ctx context.Context, id int64) (CreditDocument, error) {
	doc, ok := r.documents[id]
	if !ok {
		return CreditDocument{}, ErrNotFound
	}
	return *doc, nil
}

func (r *memoryLedgerRepo) ListDocuments(ctx context.Context, direction PaymentDirection, counterpartyID int64) ([]CreditDocument, error) {
	var docs []CreditDocument
	for _, doc := range r.documents {
		if doc.Direction() == direction && doc.CounterpartyID == counterpartyID {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

func (r *memoryLedgerRepo) GetPayment(ctx context.Context, id int64) (PaymentRecord, error) {
	p, ok := r.payments[id]
	if !ok {
		return PaymentRecord{}, ErrNotFound
	}
	return *p, nil
}

func (r *memoryLedgerRepo) ListPayments(ctx context.Context, direction PaymentDirection) ([]PaymentRecord, error) {
	var records []PaymentRecord
	for _, p := range r.payments {
		if p.Direction == direction {
			records = append(records, *p)
		}
	}
	return records, nil
}

func (r *memoryLedgerRepo) CreatePayment(ctx context.Context, record PaymentRecord) (int64, error) {
	r.nextPaymentID++
	copied := record
	copied.ID = r.nextPaymentID
	r.payments[copied.ID] = &copied
	return copied.ID, nil
}

func (r *memoryLedgerRepo) InsertAllocation(ctx context.Context, alloc Allocation) error {
	p, ok := r.payments[alloc.PaymentID]
	if !ok {
		return ErrNotFound
	}
	p.Allocations = append(p.Allocations, alloc)
	return nil
}

func (r *memoryLedgerRepo) AddToPaidAmount(ctx context.Context, documentID int64, amount float64) error {
	doc, ok := r.documents[documentID]
	if !ok {
		return ErrNotFound
	}
	doc.PaidAmount += amount
	return nil
}

func (r *memoryLedgerRepo) GeneratePaymentNumber(ctx context.Context, direction PaymentDirection) (string, error) {
	r.paymentCounter++
	return fmt.Sprintf("%s-%06d", direction, r.paymentCounter), nil
}

type stubDirectory struct {
	clients   map[int64]string
	suppliers map[int64]string
}

func (d stubDirectory) GetClient(ctx context.Context, id int64) (directory.Client, error) {
	name, ok := d.clients[id]
	if !ok {
		return directory.Client{}, directory.ErrNotFound
	}
	return directory.Client{ID: id, Name: name}, nil
}

func (d stubDirectory) GetSupplier(ctx context.Context, id int64) (directory.Supplier, error) {
	name, ok := d.suppliers[id]
	if !ok {
		return directory.Supplier{}, directory.ErrNotFound
	}
	return directory.Supplier{ID: id, Name: name}, nil
}

func newLedgerService(repo *memoryLedgerRepo) *Service {
	dir := stubDirectory{
		clients:   map[int64]string{1: "Comercializadora del Valle"},
		suppliers: map[int64]string{7: "Distribuidora Norte"},
	}
	return NewService(repo, dir, nil)
}

func TestDocumentBalanceClampsDust(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	repo.addDocument(CreditDocument{ID: 1, Kind: KindSale, CounterpartyID: 1, Term: TermCredit, Total: 100, PaidAmount: 99.995})
	svc := newLedgerService(repo)

	balance, err := svc.DocumentBalance(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 0.0, balance)
}

func TestDocumentBalanceKeepsOverApplication(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	repo.addDocument(CreditDocument{ID: 1, Kind: KindSale, CounterpartyID: 1, Term: TermCredit, Total: 100, PaidAmount: 150})
	svc := newLedgerService(repo)

	balance, err := svc.DocumentBalance(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, -50.0, balance)
}

func TestEntityBalanceSkipsImmediateTerm(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	repo.addDocument(CreditDocument{ID: 1, Kind: KindSale, CounterpartyID: 1, Term: TermCredit, Total: 500, PaidAmount: 100})
	repo.addDocument(CreditDocument{ID: 2, Kind: KindSale, CounterpartyID: 1, Term: TermCredit, Total: 300})
	repo.addDocument(CreditDocument{ID: 3, Kind: KindSale, CounterpartyID: 1, Term: TermImmediate, Total: 999})
	svc := newLedgerService(repo)

	balance, err := svc.EntityBalance(ctx, DirectionReceivable, 1)
	require.NoError(t, err)
	require.Equal(t, 700.0, balance)
}

func TestPendingDocumentsOrderedOldestFirst(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	old := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	repo.addDocument(CreditDocument{ID: 5, Kind: KindSale, CounterpartyID: 1, IssuedAt: recent, Term: TermCredit, Total: 200})
	repo.addDocument(CreditDocument{ID: 3, Kind: KindSale, CounterpartyID: 1, IssuedAt: old, Term: TermCredit, Total: 100})
	repo.addDocument(CreditDocument{ID: 4, Kind: KindSale, CounterpartyID: 1, IssuedAt: old, Term: TermCredit, Total: 50, PaidAmount: 50})
	repo.addDocument(CreditDocument{ID: 6, Kind: KindSale, CounterpartyID: 1, IssuedAt: old, Term: TermImmediate, Total: 80})
	svc := newLedgerService(repo)

	pending, err := svc.PendingDocuments(ctx, DirectionReceivable, 1)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, int64(3), pending[0].ID)
	require.Equal(t, int64(5), pending[1].ID)
}

func TestPendingDocumentsTiesBreakByID(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	sameDay := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	repo.addDocument(CreditDocument{ID: 9, Kind: KindSale, CounterpartyID: 1, IssuedAt: sameDay, Term: TermCredit, Total: 10})
	repo.addDocument(CreditDocument{ID: 2, Kind: KindSale, CounterpartyID: 1, IssuedAt: sameDay, Term: TermCredit, Total: 10})
	svc := newLedgerService(repo)

	pending, err := svc.PendingDocuments(ctx, DirectionReceivable, 1)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, int64(2), pending[0].ID)
	require.Equal(t, int64(9), pending[1].ID)
}

func TestApplyPaymentDistributesAcrossDocuments(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	repo.addDocument(CreditDocument{ID: 1, Kind: KindSale, CounterpartyID: 1, Term: TermCredit, Total: 300})
	repo.addDocument(CreditDocument{ID: 2, Kind: KindSale, CounterpartyID: 1, Term: TermCredit, Total: 200})
	svc := newLedgerService(repo)

	record, err := svc.ApplyPayment(ctx, ApplyPaymentInput{
		Direction:      DirectionReceivable,
		CounterpartyID: 1,
		Amount:         400,
		Method:         "transferencia",
		Allocations: []AllocationInput{
			{DocumentID: 1, Amount: 300},
			{DocumentID: 2, Amount: 100},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "COBRO-000001", record.Number)
	require.Equal(t, "Comercializadora del Valle", record.CounterpartyName)
	require.Equal(t, 400.0, record.AllocatedTotal())
	require.Equal(t, 0.0, record.Unallocated())

	require.Equal(t, 0.0, repo.documents[1].Balance())
	require.Equal(t, 100.0, repo.documents[2].Balance())
}

func TestApplyPaymentKeepsRemainderOnAccount(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	repo.addDocument(CreditDocument{ID: 1, Kind: KindSale, CounterpartyID: 1, Term: TermCredit, Total: 300})
	svc := newLedgerService(repo)

	record, err := svc.ApplyPayment(ctx, ApplyPaymentInput{
		Direction:      DirectionReceivable,
		CounterpartyID: 1,
		Amount:         500,
		Allocations:    []AllocationInput{{DocumentID: 1, Amount: 300}},
	})
	require.NoError(t, err)
	require.Equal(t, 200.0, record.Unallocated())
	require.Equal(t, 0.0, repo.documents[1].Balance())
}

func TestApplyPaymentRejectsOverAllocation(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	repo.addDocument(CreditDocument{ID: 1, Kind: KindSale, CounterpartyID: 1, Term: TermCredit, Total: 300})
	svc := newLedgerService(repo)

	_, err := svc.ApplyPayment(ctx, ApplyPaymentInput{
		Direction:      DirectionReceivable,
		CounterpartyID: 1,
		Amount:         100,
		Allocations:    []AllocationInput{{DocumentID: 1, Amount: 150}},
	})
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, 0.0, repo.documents[1].PaidAmount)
	require.Empty(t, repo.payments)
}

func TestApplyPaymentRejectsNonPositiveAllocation(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	svc := newLedgerService(repo)

	_, err := svc.ApplyPayment(ctx, ApplyPaymentInput{
		Direction:      DirectionReceivable,
		CounterpartyID: 1,
		Amount:         100,
		Allocations:    []AllocationInput{{DocumentID: 1, Amount: 0}},
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestApplyPaymentRejectsUnknownCounterparty(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	svc := newLedgerService(repo)

	_, err := svc.ApplyPayment(ctx, ApplyPaymentInput{
		Direction:      DirectionReceivable,
		CounterpartyID: 42,
		Amount:         100,
	})
	require.ErrorIs(t, err, ErrUnknownCounterparty)
}

func TestApplyPaymentDropsUnknownDocuments(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	repo.addDocument(CreditDocument{ID: 1, Kind: KindSale, CounterpartyID: 1, Term: TermCredit, Total: 300})
	svc := newLedgerService(repo)

	record, err := svc.ApplyPayment(ctx, ApplyPaymentInput{
		Direction:      DirectionReceivable,
		CounterpartyID: 1,
		Amount:         400,
		Allocations: []AllocationInput{
			{DocumentID: 1, Amount: 200},
			{DocumentID: 999, Amount: 100},
		},
	})
	require.NoError(t, err)
	require.Len(t, record.Allocations, 1)
	require.Equal(t, 200.0, record.AllocatedTotal())
	require.Equal(t, 200.0, record.Unallocated())
}

func TestApplyPaymentAllowsOverApplicationPerDocument(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	repo.addDocument(CreditDocument{ID: 1, Kind: KindSale, CounterpartyID: 1, Term: TermCredit, Total: 100})
	svc := newLedgerService(repo)

	_, err := svc.ApplyPayment(ctx, ApplyPaymentInput{
		Direction:      DirectionReceivable,
		CounterpartyID: 1,
		Amount:         250,
		Allocations:    []AllocationInput{{DocumentID: 1, Amount: 250}},
	})
	require.NoError(t, err)
	require.Equal(t, -150.0, repo.documents[1].Balance())
}

func TestApplyPaymentPayableUsesSupplierNumbering(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryLedgerRepo()
	repo.addDocument(CreditDocument{ID: 1, Kind: KindPurchase, CounterpartyID: 7, Term: TermCredit, Total: 300})
	svc := newLedgerService(repo)

	record, err := svc.ApplyPayment(ctx, ApplyPaymentInput{
		Direction:      DirectionPayable,
		CounterpartyID: 7,
		Amount:         300,
		Allocations:    []AllocationInput{{DocumentID: 1, Amount: 300}},
	})
	require.NoError(t, err)
	require.Equal(t, "PAGO-000001", record.Number)
	require.Equal(t, "Distribuidora Norte", record.CounterpartyName)
}
