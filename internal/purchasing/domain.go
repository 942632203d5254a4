package purchasing

import (
	"errors"
	"time"

	"github.com/gestor-comercial/gestor/internal/ledger"
)

// OrderStatus is the completion state of a purchase order. PENDIENTE moves to
// COMPLETADO or CANCELADO; both are terminal.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDIENTE"
	OrderStatusCompleted OrderStatus = "COMPLETADO"
	OrderStatusCancelled OrderStatus = "CANCELADO"
)

// LogisticsStatus tracks the transport sub-state, orthogonal to OrderStatus.
type LogisticsStatus string

const (
	LogisticsNone      LogisticsStatus = "N/A"
	LogisticsRequested LogisticsStatus = "SOLICITADA"
	LogisticsInTransit LogisticsStatus = "EN_CAMINO"
	LogisticsDelivered LogisticsStatus = "ENTREGADO"
)

// PurchaseOrder is the purchasing view over a credit document of kind COMPRA.
type PurchaseOrder struct {
	ID         int64
	Number     string
	SupplierID int64
	IssuedAt   time.Time
	Term       ledger.PaymentTerm
	Subtotal   float64
	TaxAmount  float64
	Total      float64
	Status     OrderStatus
	Logistics  LogisticsStatus
	Items      []OrderItem
}

// OrderItem is one expected line of a purchase order. ReceivedQty stays nil
// until reception runs; re-running reception overwrites it.
type OrderItem struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	Name        string
	SKU         string
	Batch       string
	ExpectedQty float64
	UnitCost    float64
	TaxAmount   float64
	ReceivedQty *float64
}

var (
	// ErrNotFound indicates the order does not exist.
	ErrNotFound = errors.New("purchasing: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("purchasing: invalid input")
	// ErrInvalidState occurs when an action violates the status workflow.
	ErrInvalidState = errors.New("purchasing: invalid state transition")
)
