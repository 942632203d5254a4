package directory

import (
	"errors"
	"time"
)

// Client is a counterparty that owes the business (receivable side).
type Client struct {
	ID        int64
	Name      string
	RFC       string
	Email     string
	Phone     string
	CreatedAt time.Time
}

// Supplier is a counterparty the business owes (payable side).
type Supplier struct {
	ID        int64
	Name      string
	RFC       string
	Email     string
	Phone     string
	CreatedAt time.Time
}

var (
	// ErrNotFound indicates the counterparty does not exist.
	ErrNotFound = errors.New("directory: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("directory: invalid input")
)
