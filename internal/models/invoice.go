package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusSent      = "sent"
	InvoiceStatusOverdue   = "overdue"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusCancelled = "cancelled"
)

// OpenInvoiceStatuses are the statuses an invoice can be reconciled from.
var OpenInvoiceStatuses = []string{InvoiceStatusSent, InvoiceStatusOverdue}

type Invoice struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceNumber        string          `gorm:"uniqueIndex" json:"invoice_number"`
	CustomerName         string          `gorm:"index" json:"customer_name"`
	CustomerEmail        string          `json:"customer_email"`
	Amount               decimal.Decimal `gorm:"type:numeric(14,2)" json:"amount"`
	Status               string          `gorm:"index" json:"status"`
	DueDate              time.Time       `json:"due_date"`
	MatchedTransactionID *uuid.UUID      `gorm:"type:uuid;index" json:"matched_transaction_id,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}

// IsOpen reports whether the invoice can still receive a bank transaction.
func (i Invoice) IsOpen() bool {
	return i.MatchedTransactionID == nil && containsStatus(OpenInvoiceStatuses, i.Status)
}

func containsStatus(statuses []string, status string) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
