package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TransactionStatus is the reconciliation state of a bank transaction.
type TransactionStatus string

const (
	TransactionPending TransactionStatus = "pending"
	TransactionMatched TransactionStatus = "matched"
	TransactionIgnored TransactionStatus = "ignored"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionPending, TransactionMatched, TransactionIgnored:
		return true
	}
	return false
}

// BankTransaction is one statement line. Amount is signed: positive is a
// credit (money in), negative a debit (money out). A matched transaction
// carries exactly one of the Matched*ID references; pending and ignored
// carry none.
type BankTransaction struct {
	ID               uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ImportBatchID    *uuid.UUID        `gorm:"type:uuid;index" json:"import_batch_id,omitempty"`
	TransactionDate  time.Time         `gorm:"column:transaction_date" json:"date"`
	Description      string            `json:"description"`
	Amount           decimal.Decimal   `gorm:"type:numeric(14,2);index" json:"amount"`
	ReferenceNumber  string            `json:"reference"`
	Status           TransactionStatus `gorm:"index" json:"status"`
	MatchedInvoiceID *uuid.UUID        `gorm:"type:uuid" json:"matched_invoice_id,omitempty"`
	MatchedExpenseID *uuid.UUID        `gorm:"type:uuid" json:"matched_expense_id,omitempty"`
	MatchedPaymentID *uuid.UUID        `gorm:"type:uuid" json:"matched_payment_id,omitempty"`
	ConfidenceScore  int               `json:"confidence_score"`
	MatchDetails     datatypes.JSON    `json:"match_details,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (t BankTransaction) IsCredit() bool { return t.Amount.IsPositive() }
func (t BankTransaction) IsDebit() bool  { return t.Amount.IsNegative() }

// MatchedRef returns the reference held by the transaction. The second
// result is false when no reference is set.
func (t BankTransaction) MatchedRef() (MatchRef, bool) {
	switch {
	case t.MatchedInvoiceID != nil:
		return MatchRef{Type: TargetInvoice, ID: *t.MatchedInvoiceID}, true
	case t.MatchedExpenseID != nil:
		return MatchRef{Type: TargetExpense, ID: *t.MatchedExpenseID}, true
	case t.MatchedPaymentID != nil:
		return MatchRef{Type: TargetPayment, ID: *t.MatchedPaymentID}, true
	}
	return MatchRef{}, false
}

// RefCount is the number of Matched*ID fields set.
func (t BankTransaction) RefCount() int {
	n := 0
	for _, id := range []*uuid.UUID{t.MatchedInvoiceID, t.MatchedExpenseID, t.MatchedPaymentID} {
		if id != nil {
			n++
		}
	}
	return n
}
