package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ExpenseStatusPending  = "pending"
	ExpenseStatusApproved = "approved"
	ExpenseStatusRejected = "rejected"
)

var OpenExpenseStatuses = []string{ExpenseStatusPending, ExpenseStatusApproved}

// Expense is an outgoing cost awaiting a matching bank debit.
// Amount is stored positive.
type Expense struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Vendor               string          `gorm:"index" json:"vendor"`
	Category             string          `json:"category"`
	Amount               decimal.Decimal `gorm:"type:numeric(14,2)" json:"amount"`
	Status               string          `gorm:"index" json:"status"`
	ExpenseDate          time.Time       `json:"expense_date"`
	MatchedTransactionID *uuid.UUID      `gorm:"type:uuid;index" json:"matched_transaction_id,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}

func (e Expense) IsOpen() bool {
	return e.MatchedTransactionID == nil && containsStatus(OpenExpenseStatuses, e.Status)
}
