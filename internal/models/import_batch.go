package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ImportProcessing = "processing"
	ImportCompleted  = "completed"
	ImportFailed     = "failed"
)

// ImportBatch tracks one uploaded bank statement.
type ImportBatch struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Filename      string     `json:"filename"`
	TotalRows     int        `json:"total_rows"`
	ImportedCount int        `json:"imported_count"`
	SkippedCount  int        `json:"skipped_count"`
	Status        string     `json:"status"`
	Error         string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
