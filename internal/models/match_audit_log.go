package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	AuditActionMatch    = "match"
	AuditActionUnmatch  = "unmatch"
	AuditActionIgnore   = "ignore"
	AuditActionUnignore = "unignore"
)

// MatchAuditLog records every reconciliation decision on a transaction.
type MatchAuditLog struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID  uuid.UUID         `gorm:"type:uuid;index" json:"transaction_id"`
	Action         string            `json:"action"`
	FromStatus     TransactionStatus `json:"from_status"`
	ToStatus       TransactionStatus `json:"to_status"`
	PreviousTarget string            `json:"previous_target,omitempty"`
	NewTarget      string            `json:"new_target,omitempty"`
	Details        datatypes.JSON    `json:"details,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}
