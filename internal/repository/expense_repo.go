package repository

import (
	"context"

	"crm-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Create(ctx context.Context, exp *models.Expense) error {
	return r.db.WithContext(ctx).Create(exp).Error
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Expense, error) {
	var expense models.Expense
	if err := r.db.WithContext(ctx).First(&expense, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

func (r *ExpenseRepository) FindOpenInBand(ctx context.Context, low, high decimal.Decimal) ([]models.Expense, error) {
	var expenses []models.Expense
	err := r.db.WithContext(ctx).
		Where("status IN ?", models.OpenExpenseStatuses).
		Where("matched_transaction_id IS NULL").
		Where("amount BETWEEN ? AND ?", low, high).
		Order("expense_date DESC").
		Find(&expenses).Error
	return expenses, err
}
