package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BankTransactionRepository struct {
	db *gorm.DB
}

func NewBankTransactionRepository(db *gorm.DB) *BankTransactionRepository {
	return &BankTransactionRepository{db: db}
}

func (r *BankTransactionRepository) Create(ctx context.Context, tx *models.BankTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *BankTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error) {
	var tx models.BankTransaction
	if err := r.db.WithContext(ctx).First(&tx, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

// List returns transactions newest first. An empty status returns all.
func (r *BankTransactionRepository) List(ctx context.Context, status models.TransactionStatus, limit int) ([]models.BankTransaction, error) {
	var txs []models.BankTransaction
	query := r.db.WithContext(ctx).Order("transaction_date DESC").Order("id ASC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&txs).Error
	return txs, err
}

// ApplyMatch persists a pending -> matched transition. The target is
// claimed with a conditional update so that of two concurrent matches for
// the same target exactly one succeeds; the loser gets InvalidMatchError
// and nothing is written.
func (r *BankTransactionRepository) ApplyMatch(ctx context.Context, matched models.BankTransaction, audit models.MatchAuditLog) error {
	ref, ok := matched.MatchedRef()
	if !ok || matched.Status != models.TransactionMatched {
		return fmt.Errorf("apply match: transaction %s carries no match", matched.ID)
	}

	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := claimTarget(db, ref, matched.ID); err != nil {
			return err
		}

		result := db.Model(&models.BankTransaction{}).
			Where("id = ? AND status = ?", matched.ID, models.TransactionPending).
			Updates(map[string]interface{}{
				"status":             matched.Status,
				"matched_invoice_id": matched.MatchedInvoiceID,
				"matched_expense_id": matched.MatchedExpenseID,
				"matched_payment_id": matched.MatchedPaymentID,
				"confidence_score":   matched.ConfidenceScore,
				"match_details":      matched.MatchDetails,
				"updated_at":         time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return &models.InvalidMatchError{TransactionID: matched.ID, Reason: "transaction is no longer pending"}
		}

		return db.Create(&audit).Error
	})
}

// ApplyUnmatch persists a matched -> pending transition and releases the
// target the transaction held.
func (r *BankTransactionRepository) ApplyUnmatch(ctx context.Context, before models.BankTransaction, audit models.MatchAuditLog) error {
	ref, ok := before.MatchedRef()
	if !ok {
		return &models.InvalidMatchError{TransactionID: before.ID, Reason: "transaction holds no reference"}
	}

	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		result := db.Model(&models.BankTransaction{}).
			Where("id = ? AND status = ?", before.ID, models.TransactionMatched).
			Updates(map[string]interface{}{
				"status":             models.TransactionPending,
				"matched_invoice_id": nil,
				"matched_expense_id": nil,
				"matched_payment_id": nil,
				"confidence_score":   0,
				"match_details":      nil,
				"updated_at":         time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return &models.InvalidMatchError{TransactionID: before.ID, Reason: "transaction is no longer matched"}
		}

		if err := releaseTarget(db, ref, before.ID); err != nil {
			return err
		}
		return db.Create(&audit).Error
	})
}

// ApplyStatus persists a status change that involves no target, such as
// ignore and unignore. The write only lands if the stored status still
// equals from.
func (r *BankTransactionRepository) ApplyStatus(ctx context.Context, id uuid.UUID, from, to models.TransactionStatus, audit models.MatchAuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		result := db.Model(&models.BankTransaction{}).
			Where("id = ? AND status = ?", id, from).
			Updates(map[string]interface{}{
				"status":     to,
				"updated_at": time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return &models.InvalidMatchError{TransactionID: id, Reason: "transaction is no longer " + string(from)}
		}
		return db.Create(&audit).Error
	})
}

func claimTarget(db *gorm.DB, ref models.MatchRef, txID uuid.UUID) error {
	model, openStatuses, err := targetTable(ref.Type)
	if err != nil {
		return err
	}

	result := db.Model(model).
		Where("id = ?", ref.ID).
		Where("matched_transaction_id IS NULL").
		Where("status IN ?", openStatuses).
		Update("matched_transaction_id", txID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &models.InvalidMatchError{TransactionID: txID, Reason: fmt.Sprintf("%s %s is not open", ref.Type, ref.ID)}
	}
	return nil
}

func releaseTarget(db *gorm.DB, ref models.MatchRef, txID uuid.UUID) error {
	model, _, err := targetTable(ref.Type)
	if err != nil {
		return err
	}

	result := db.Model(model).
		Where("id = ? AND matched_transaction_id = ?", ref.ID, txID).
		Update("matched_transaction_id", nil)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("release %s: not held by transaction %s", ref, txID)
	}
	return nil
}

func targetTable(t models.TargetType) (interface{}, []string, error) {
	switch t {
	case models.TargetInvoice:
		return &models.Invoice{}, models.OpenInvoiceStatuses, nil
	case models.TargetExpense:
		return &models.Expense{}, models.OpenExpenseStatuses, nil
	case models.TargetPayment:
		return &models.Payment{}, models.OpenPaymentStatuses, nil
	}
	return nil, nil, errors.New("unknown target type " + string(t))
}
