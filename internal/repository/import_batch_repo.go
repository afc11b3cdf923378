package repository

import (
	"context"
	"time"

	"crm-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ImportBatchRepository struct {
	db *gorm.DB
}

func NewImportBatchRepository(db *gorm.DB) *ImportBatchRepository {
	return &ImportBatchRepository{db: db}
}

func (r *ImportBatchRepository) Create(ctx context.Context, batch *models.ImportBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *ImportBatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ImportBatch, error) {
	var batch models.ImportBatch
	if err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

// UpdateProgress records the running counts of a batch still processing.
func (r *ImportBatchRepository) UpdateProgress(ctx context.Context, id uuid.UUID, imported, skipped int) error {
	return r.db.WithContext(ctx).Model(&models.ImportBatch{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"imported_count": imported,
			"skipped_count":  skipped,
		}).Error
}

// Complete closes the batch as completed, or failed when failure is non-empty.
func (r *ImportBatchRepository) Complete(ctx context.Context, id uuid.UUID, imported, skipped int, failure string) error {
	status := models.ImportCompleted
	if failure != "" {
		status = models.ImportFailed
	}
	return r.db.WithContext(ctx).Model(&models.ImportBatch{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"imported_count": imported,
			"skipped_count":  skipped,
			"total_rows":     imported + skipped,
			"status":         status,
			"error":          failure,
			"completed_at":   time.Now().UTC(),
		}).Error
}
