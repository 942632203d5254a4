package purchasing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gestor-comercial/gestor/internal/directory"
	"github.com/gestor-comercial/gestor/internal/ledger"
	"github.com/gestor-comercial/gestor/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, id int64) (PurchaseOrder, error)
	ListOrders(ctx context.Context, status OrderStatus) ([]PurchaseOrder, error)
}

// DirectoryPort resolves suppliers for order creation.
type DirectoryPort interface {
	GetSupplier(ctx context.Context, id int64) (directory.Supplier, error)
}

// AuditPort records committed mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards at-most-once dispatch of notifications.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service drives the purchase order lifecycle. Commands run one at a time and
// commit their full write set atomically; reads are side-effect free.
type Service struct {
	repo        RepositoryPort
	directory   DirectoryPort
	audit       AuditPort
	notifier    Notifier
	idempotency IdempotencyPort
}

// NewService constructs the purchasing service.
func NewService(repo RepositoryPort, dir DirectoryPort, audit AuditPort, notifier Notifier, idem IdempotencyPort) *Service {
	return &Service{repo: repo, directory: dir, audit: audit, notifier: notifier, idempotency: idem}
}

// OrderItemInput describes one expected line. TaxAmount arrives precomputed
// from the pricing collaborator.
type OrderItemInput struct {
	ProductID int64   `json:"product_id" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	SKU       string  `json:"sku"`
	Batch     string  `json:"batch"`
	Qty       float64 `json:"qty" validate:"gt=0"`
	UnitCost  float64 `json:"unit_cost" validate:"gte=0"`
	TaxAmount float64 `json:"tax_amount" validate:"gte=0"`
}

// CreateOrderInput describes order creation.
type CreateOrderInput struct {
	SupplierID int64              `json:"supplier_id" validate:"required"`
	Term       ledger.PaymentTerm `json:"term" validate:"required,oneof=CREDITO CONTADO"`
	IssuedAt   time.Time          `json:"issued_at"`
	Items      []OrderItemInput   `json:"items" validate:"min=1,dive"`
}

// ReceivedItemInput carries a physically counted quantity for one line.
type ReceivedItemInput struct {
	ItemID int64   `json:"item_id" validate:"required"`
	Qty    float64 `json:"qty" validate:"gte=0"`
}

// CreateOrder persists a new order with a sequential number, totals computed
// from its lines and the initial PENDIENTE / N/A states.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (PurchaseOrder, error) {
	if len(input.Items) == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: at least one item required", ErrValidation)
	}
	if input.Term != ledger.TermCredit && input.Term != ledger.TermImmediate {
		return PurchaseOrder{}, fmt.Errorf("%w: term", ErrValidation)
	}
	if _, err := s.directory.GetSupplier(ctx, input.SupplierID); err != nil {
		return PurchaseOrder{}, fmt.Errorf("%w: supplier %d", ErrValidation, input.SupplierID)
	}
	if input.IssuedAt.IsZero() {
		input.IssuedAt = time.Now()
	}

	order := PurchaseOrder{
		SupplierID: input.SupplierID,
		IssuedAt:   input.IssuedAt,
		Term:       input.Term,
		Status:     OrderStatusPending,
		Logistics:  LogisticsNone,
	}
	for _, item := range input.Items {
		if item.ProductID == 0 || item.Qty <= 0 {
			return PurchaseOrder{}, fmt.Errorf("%w: item product and qty required", ErrValidation)
		}
		order.Subtotal += item.Qty * item.UnitCost
		order.TaxAmount += item.TaxAmount
	}
	order.Total = order.Subtotal + order.TaxAmount

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextOrderNumber(ctx)
		if err != nil {
			return err
		}
		order.Number = number

		orderID, err := tx.CreateOrder(ctx, order)
		if err != nil {
			return err
		}
		order.ID = orderID

		for _, item := range input.Items {
			line := OrderItem{
				OrderID:     orderID,
				ProductID:   item.ProductID,
				Name:        item.Name,
				SKU:         item.SKU,
				Batch:       item.Batch,
				ExpectedQty: item.Qty,
				UnitCost:    item.UnitCost,
				TaxAmount:   item.TaxAmount,
			}
			id, err := tx.InsertItem(ctx, line)
			if err != nil {
				return err
			}
			line.ID = id
			order.Items = append(order.Items, line)
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}

	s.recordAudit(ctx, "PO_CREATE", order.ID, map[string]any{"number": order.Number, "total": order.Total})
	return order, nil
}

// RequestLogistics moves logistics from N/A to SOLICITADA. Calls from any
// other logistics state, or with an unknown order id, are explicit no-ops.
func (s *Service) RequestLogistics(ctx context.Context, orderID int64) error {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if order.Logistics != LogisticsNone {
		return nil
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateLogistics(ctx, orderID, LogisticsRequested)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "PO_LOGISTICS_REQUEST", orderID, map[string]any{"number": order.Number})
	return nil
}

// AdvanceLogistics moves logistics from SOLICITADA to EN_CAMINO. Any other
// starting state is a no-op.
func (s *Service) AdvanceLogistics(ctx context.Context, orderID int64) error {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if order.Logistics != LogisticsRequested {
		return nil
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateLogistics(ctx, orderID, LogisticsInTransit)
	})
}

// NotifyLogistics emits the outbound logistics message for an order. Stored
// state does not change; the idempotency key keeps one dispatch per order and
// logistics state.
func (s *Service) NotifyLogistics(ctx context.Context, orderID int64) error {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	supplierName := ""
	if supplier, err := s.directory.GetSupplier(ctx, order.SupplierID); err == nil {
		supplierName = supplier.Name
	}

	key := uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("LOGISTICA:%d:%s", order.ID, order.Logistics))).String()
	inserted := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "purchasing.logistics"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return nil
			}
			return err
		}
		inserted = true
	}

	notice := LogisticsNotice{
		OrderID:      order.ID,
		OrderNumber:  order.Number,
		SupplierID:   order.SupplierID,
		SupplierName: supplierName,
		Status:       string(order.Logistics),
		Total:        order.Total,
		RequestedAt:  time.Now(),
	}
	if s.notifier == nil {
		return errors.New("purchasing: notifier not configured")
	}
	if err := s.notifier.EnqueueLogisticsNotice(notice); err != nil {
		if inserted {
			_ = s.idempotency.Delete(ctx, key)
		}
		return err
	}
	return nil
}

// ConfirmReception records received quantities, then unconditionally completes
// the order and marks logistics delivered. Discrepancies are reported for
// visibility but never block completion.
func (s *Service) ConfirmReception(ctx context.Context, orderID int64, received []ReceivedItemInput) (PurchaseOrder, ReceptionSummary, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return PurchaseOrder{}, ReceptionSummary{}, err
	}

	counted := make(map[int64]float64, len(received))
	for _, item := range received {
		if item.Qty < 0 {
			return PurchaseOrder{}, ReceptionSummary{}, fmt.Errorf("%w: received qty must not be negative", ErrValidation)
		}
		counted[item.ItemID] = item.Qty
	}

	// Entries for unknown item ids are filtered out; lines without a counted
	// quantity default to their expected quantity.
	for i := range order.Items {
		qty, ok := counted[order.Items[i].ID]
		if !ok {
			qty = order.Items[i].ExpectedQty
		}
		value := qty
		order.Items[i].ReceivedQty = &value
	}

	summary := Reconcile(order.Items)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, item := range order.Items {
			if err := tx.SetItemReceivedQty(ctx, item.ID, *item.ReceivedQty); err != nil {
				return err
			}
		}
		if err := tx.UpdateStatus(ctx, orderID, OrderStatusCompleted); err != nil {
			return err
		}
		return tx.UpdateLogistics(ctx, orderID, LogisticsDelivered)
	})
	if err != nil {
		return PurchaseOrder{}, ReceptionSummary{}, err
	}

	order.Status = OrderStatusCompleted
	order.Logistics = LogisticsDelivered

	s.recordAudit(ctx, "PO_RECEIVE", orderID, map[string]any{
		"number":         order.Number,
		"discrepancies":  summary.DiscrepantCount(),
		"total_expected": summary.TotalExpected,
		"total_received": summary.TotalReceived,
	})
	return order, summary, nil
}

// CancelOrder terminates a pending order. Unknown ids are no-ops; completed
// or already cancelled orders reject the transition.
func (s *Service) CancelOrder(ctx context.Context, orderID int64) error {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if order.Status != OrderStatusPending {
		return ErrInvalidState
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, orderID, OrderStatusCancelled)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "PO_CANCEL", orderID, map[string]any{"number": order.Number})
	return nil
}

// DeleteOrder removes an order and its items. The boundary is responsible for
// confirming the irreversible removal with the user; unknown ids are no-ops.
func (s *Service) DeleteOrder(ctx context.Context, orderID int64) error {
	_, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.DeleteOrder(ctx, orderID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "PO_DELETE", orderID, nil)
	return nil
}

// GetOrder returns one order with its items.
func (s *Service) GetOrder(ctx context.Context, orderID int64) (PurchaseOrder, error) {
	return s.repo.GetOrder(ctx, orderID)
}

// ListOrders returns orders, optionally filtered by status.
func (s *Service) ListOrders(ctx context.Context, status OrderStatus) ([]PurchaseOrder, error) {
	return s.repo.ListOrders(ctx, status)
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "purchasing", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
