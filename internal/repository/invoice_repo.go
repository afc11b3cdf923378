package repository

import (
	"context"

	"crm-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Create inserts the invoice. A duplicate invoice number is ignored and
// reported as created=false.
func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "invoice_number"}}, DoNothing: true}).
		Create(inv)
	return result.RowsAffected > 0, result.Error
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// FindOpenInBand returns unclaimed sent or overdue invoices whose amount
// lies in [low, high].
func (r *InvoiceRepository) FindOpenInBand(ctx context.Context, low, high decimal.Decimal) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Where("status IN ?", models.OpenInvoiceStatuses).
		Where("matched_transaction_id IS NULL").
		Where("amount BETWEEN ? AND ?", low, high).
		Order("due_date DESC").
		Find(&invoices).Error
	return invoices, err
}
