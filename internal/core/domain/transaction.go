package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes course payments from balance deposits.
type TransactionType string

const (
	TransactionPayment TransactionType = "payment"
	TransactionDeposit TransactionType = "deposit"
)

// Label is the human readable name shown in the transaction history.
func (t TransactionType) Label() string {
	switch t {
	case TransactionPayment:
		return "Payment"
	case TransactionDeposit:
		return "Deposit"
	default:
		return string(t)
	}
}

// Transaction is a read-only billing record. ExpiresAt is set for rent
// payments only.
type Transaction struct {
	ID         int64           `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	Type       TransactionType `json:"type"        validate:"required"`
	CourseCode string          `json:"course_code,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
}

// TransactionFilter narrows GET /transactions. Zero values are omitted from
// the query.
type TransactionFilter struct {
	Type        TransactionType
	CourseCode  string
	SkipExpired bool
}
