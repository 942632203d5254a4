package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gestor-comercial/gestor/internal/directory"
	"github.com/gestor-comercial/gestor/internal/shared"
)

// DirectoryPort resolves counterparties for payment validation.
type DirectoryPort interface {
	GetClient(ctx context.Context, id int64) (directory.Client, error)
	GetSupplier(ctx context.Context, id int64) (directory.Supplier, error)
}

// AuditPort records committed mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service exposes the balance calculator and the payment allocator. Reads are
// pure; ApplyPayment is the only mutator and commits atomically.
type Service struct {
	repo      Repository
	directory DirectoryPort
	audit     AuditPort
}

// NewService constructs the ledger service.
func NewService(repo Repository, dir DirectoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, directory: dir, audit: audit}
}

// DocumentBalance returns the clamped outstanding balance for one document.
func (s *Service) DocumentBalance(ctx context.Context, documentID int64) (float64, error) {
	doc, err := s.repo.GetDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}
	return doc.Balance(), nil
}

// EntityBalance aggregates outstanding credit balances for a counterparty in
// one direction.
func (s *Service) EntityBalance(ctx context.Context, direction PaymentDirection, counterpartyID int64) (float64, error) {
	docs, err := s.repo.ListDocuments(ctx, direction, counterpartyID)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, doc := range docs {
		if doc.Term != TermCredit {
			continue
		}
		total += doc.Balance()
	}
	return total, nil
}

// PendingDocuments lists credit documents with an open balance, oldest first.
func (s *Service) PendingDocuments(ctx context.Context, direction PaymentDirection, counterpartyID int64) ([]CreditDocument, error) {
	docs, err := s.repo.ListDocuments(ctx, direction, counterpartyID)
	if err != nil {
		return nil, err
	}
	pending := make([]CreditDocument, 0, len(docs))
	for _, doc := range docs {
		if doc.Pending() {
			pending = append(pending, doc)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].IssuedAt.Equal(pending[j].IssuedAt) {
			return pending[i].ID < pending[j].ID
		}
		return pending[i].IssuedAt.Before(pending[j].IssuedAt)
	})
	return pending, nil
}

// AllocationInput assigns part of a payment to a document.
type AllocationInput struct {
	DocumentID int64   `json:"document_id" validate:"required"`
	Amount     float64 `json:"amount" validate:"gt=0"`
}

// ApplyPaymentInput describes a payment command.
type ApplyPaymentInput struct {
	Direction      PaymentDirection  `json:"direction" validate:"required,oneof=COBRO PAGO"`
	CounterpartyID int64             `json:"counterparty_id" validate:"required"`
	Amount         float64           `json:"amount" validate:"gt=0"`
	Method         string            `json:"method"`
	Reference      string            `json:"reference"`
	PaidAt         time.Time         `json:"paid_at"`
	Allocations    []AllocationInput `json:"allocations" validate:"dive"`
}

// ApplyPayment validates and commits a payment, distributing it across the
// referenced documents. Validation failures leave state untouched; the record
// and every paid-amount increment commit as one unit.
//
// Carried over from the source system: an allocation is not capped at its
// document's remaining balance and the document is not required to belong to
// the payment's counterparty. Over-application produces a negative balance.
func (s *Service) ApplyPayment(ctx context.Context, input ApplyPaymentInput) (PaymentRecord, error) {
	if input.Direction != DirectionReceivable && input.Direction != DirectionPayable {
		return PaymentRecord{}, fmt.Errorf("%w: direction", ErrValidation)
	}
	if input.CounterpartyID == 0 {
		return PaymentRecord{}, fmt.Errorf("%w: counterparty required", ErrValidation)
	}
	if input.Amount <= 0 {
		return PaymentRecord{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	var allocated float64
	for _, alloc := range input.Allocations {
		if alloc.Amount <= 0 {
			return PaymentRecord{}, fmt.Errorf("%w: allocation amount must be positive", ErrValidation)
		}
		allocated += alloc.Amount
	}
	if allocated > input.Amount {
		return PaymentRecord{}, fmt.Errorf("%w: allocations exceed payment amount", ErrValidation)
	}

	name, err := s.resolveCounterparty(ctx, input.Direction, input.CounterpartyID)
	if err != nil {
		return PaymentRecord{}, err
	}

	// Allocations referencing unknown documents are dropped silently rather
	// than failing the command.
	kept := make([]AllocationInput, 0, len(input.Allocations))
	for _, alloc := range input.Allocations {
		if _, err := s.repo.GetDocument(ctx, alloc.DocumentID); err != nil {
			continue
		}
		kept = append(kept, alloc)
	}

	if input.PaidAt.IsZero() {
		input.PaidAt = time.Now()
	}

	record := PaymentRecord{
		Direction:        input.Direction,
		CounterpartyID:   input.CounterpartyID,
		CounterpartyName: name,
		Amount:           input.Amount,
		Method:           input.Method,
		Reference:        input.Reference,
		PaidAt:           input.PaidAt,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.GeneratePaymentNumber(ctx, input.Direction)
		if err != nil {
			return err
		}
		record.Number = number

		paymentID, err := tx.CreatePayment(ctx, record)
		if err != nil {
			return err
		}
		record.ID = paymentID

		for _, alloc := range kept {
			entry := Allocation{PaymentID: paymentID, DocumentID: alloc.DocumentID, Amount: alloc.Amount}
			if err := tx.InsertAllocation(ctx, entry); err != nil {
				return err
			}
			if err := tx.AddToPaidAmount(ctx, alloc.DocumentID, alloc.Amount); err != nil {
				return err
			}
			record.Allocations = append(record.Allocations, entry)
		}
		return nil
	})
	if err != nil {
		return PaymentRecord{}, err
	}

	s.recordAudit(ctx, "PAYMENT_APPLY", record.ID, map[string]any{
		"number":    record.Number,
		"direction": string(record.Direction),
		"amount":    record.Amount,
		"allocated": record.AllocatedTotal(),
	})
	return record, nil
}

// GetPayment returns one payment with its allocations.
func (s *Service) GetPayment(ctx context.Context, id int64) (PaymentRecord, error) {
	return s.repo.GetPayment(ctx, id)
}

// ListPayments returns payments for a direction, newest first.
func (s *Service) ListPayments(ctx context.Context, direction PaymentDirection) ([]PaymentRecord, error) {
	return s.repo.ListPayments(ctx, direction)
}

func (s *Service) resolveCounterparty(ctx context.Context, direction PaymentDirection, id int64) (string, error) {
	if direction == DirectionReceivable {
		client, err := s.directory.GetClient(ctx, id)
		if err != nil {
			return "", fmt.Errorf("%w: client %d", ErrUnknownCounterparty, id)
		}
		return client.Name, nil
	}
	supplier, err := s.directory.GetSupplier(ctx, id)
	if err != nil {
		return "", fmt.Errorf("%w: supplier %d", ErrUnknownCounterparty, id)
	}
	return supplier.Name, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "ledger", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
