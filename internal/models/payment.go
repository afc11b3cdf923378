package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentStatusReceived = "received"
	PaymentStatusVoid     = "void"
)

var OpenPaymentStatuses = []string{PaymentStatusReceived}

// Payment is an incoming payment recorded outside an invoice (card
// processor payout, cash deposit) that should show up as a bank credit.
type Payment struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Payer                string          `gorm:"index" json:"payer"`
	Reference            string          `json:"reference"`
	Amount               decimal.Decimal `gorm:"type:numeric(14,2)" json:"amount"`
	Status               string          `gorm:"index" json:"status"`
	ReceivedAt           time.Time       `json:"received_at"`
	MatchedTransactionID *uuid.UUID      `gorm:"type:uuid;index" json:"matched_transaction_id,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}

func (p Payment) IsOpen() bool {
	return p.MatchedTransactionID == nil && containsStatus(OpenPaymentStatuses, p.Status)
}
