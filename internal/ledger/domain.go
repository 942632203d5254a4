package ledger

import (
	"errors"
	"math"
	"time"
)

// DocumentKind tags the credit-document variants.
type DocumentKind string

const (
	KindSale     DocumentKind = "VENTA"
	KindPurchase DocumentKind = "COMPRA"
)

// PaymentTerm distinguishes credit sales from immediate settlement.
type PaymentTerm string

const (
	TermCredit    PaymentTerm = "CREDITO"
	TermImmediate PaymentTerm = "CONTADO"
)

// PaymentDirection separates money collected from clients and money paid to
// suppliers.
type PaymentDirection string

const (
	DirectionReceivable PaymentDirection = "COBRO"
	DirectionPayable    PaymentDirection = "PAGO"
)

// balanceEpsilon absorbs float dust so a fully paid document never shows as
// pending.
const balanceEpsilon = 0.01

// CreditDocument is the tagged union over sales and purchase orders that the
// ledger operates on. PaidAmount is a cache maintained by ApplyPayment; it
// always equals the sum of allocations referencing the document.
type CreditDocument struct {
	ID             int64
	Kind           DocumentKind
	Number         string
	CounterpartyID int64
	IssuedAt       time.Time
	Term           PaymentTerm
	Total          float64
	PaidAmount     float64
}

// Direction derives the payment direction from the document kind.
func (d CreditDocument) Direction() PaymentDirection {
	if d.Kind == KindPurchase {
		return DirectionPayable
	}
	return DirectionReceivable
}

// Balance returns total minus paid, clamped to zero within the tolerance.
// Over-applied documents keep their negative balance.
func (d CreditDocument) Balance() float64 {
	balance := d.Total - d.PaidAmount
	if math.Abs(balance) <= balanceEpsilon {
		return 0
	}
	return balance
}

// Pending reports whether the document still awaits payment. Only credit-term
// documents participate in the ledger.
func (d CreditDocument) Pending() bool {
	return d.Term == TermCredit && d.Balance() > balanceEpsilon
}

// PaymentRecord captures one payment and how it was distributed. Records are
// immutable once committed; there is no edit or delete path.
type PaymentRecord struct {
	ID               int64
	Number           string
	Direction        PaymentDirection
	CounterpartyID   int64
	CounterpartyName string
	Amount           float64
	Method           string
	Reference        string
	PaidAt           time.Time
	Allocations      []Allocation
	CreatedAt        time.Time
}

// AllocatedTotal sums the amounts applied to documents.
func (p PaymentRecord) AllocatedTotal() float64 {
	var total float64
	for _, alloc := range p.Allocations {
		total += alloc.Amount
	}
	return total
}

// Unallocated is the payment-on-account remainder not tied to any document.
func (p PaymentRecord) Unallocated() float64 {
	return p.Amount - p.AllocatedTotal()
}

// Allocation assigns a portion of a payment to a specific document.
type Allocation struct {
	ID         int64
	PaymentID  int64
	DocumentID int64
	Amount     float64
}

var (
	// ErrNotFound indicates a missing document or payment.
	ErrNotFound = errors.New("ledger: not found")
	// ErrValidation indicates the command was rejected before any mutation.
	ErrValidation = errors.New("ledger: invalid input")
	// ErrUnknownCounterparty indicates the entity could not be resolved.
	ErrUnknownCounterparty = errors.New("ledger: unknown counterparty")
)
