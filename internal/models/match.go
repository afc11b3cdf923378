package models

import (
	"fmt"

	"github.com/google/uuid"
)

// TargetType is the kind of record a bank transaction can be reconciled to.
type TargetType string

const (
	TargetInvoice TargetType = "invoice"
	TargetExpense TargetType = "expense"
	TargetPayment TargetType = "payment"
)

func (t TargetType) Valid() bool {
	switch t {
	case TargetInvoice, TargetExpense, TargetPayment:
		return true
	}
	return false
}

// AcceptsCredit reports whether the target type is reconciled against
// money coming in. Expenses take debits, the rest take credits.
func (t TargetType) AcceptsCredit() bool {
	return t == TargetInvoice || t == TargetPayment
}

// MatchRef points a transaction at one reconciliation target.
type MatchRef struct {
	Type TargetType `json:"type"`
	ID   uuid.UUID  `json:"id"`
}

func (r MatchRef) IsZero() bool {
	return r.Type == "" && r.ID == uuid.Nil
}

func (r MatchRef) String() string {
	return fmt.Sprintf("%s:%s", r.Type, r.ID)
}
