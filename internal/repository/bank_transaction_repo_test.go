package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"crm-reconciliation-backend/internal/lifecycle"
	"crm-reconciliation-backend/internal/models"
	"crm-reconciliation-backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var txDate = time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)

func seedTx(t *testing.T, db *gorm.DB, amount string) models.BankTransaction {
	t.Helper()
	tx := models.BankTransaction{
		ID:              uuid.New(),
		TransactionDate: txDate,
		Description:     "SEPA CREDIT ACME BV",
		Amount:          decimal.RequireFromString(amount),
		Status:          models.TransactionPending,
	}
	require.NoError(t, NewBankTransactionRepository(db).Create(context.Background(), &tx))
	return tx
}

func seedInvoice(t *testing.T, db *gorm.DB, number, amount string) models.Invoice {
	t.Helper()
	inv := models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: number,
		CustomerName:  "Acme BV",
		Amount:        decimal.RequireFromString(amount),
		Status:        models.InvoiceStatusSent,
		DueDate:       txDate,
	}
	created, err := NewInvoiceRepository(db).Create(context.Background(), &inv)
	require.NoError(t, err)
	require.True(t, created)
	return inv
}

func matchAudit(tx models.BankTransaction, ref models.MatchRef) models.MatchAuditLog {
	return models.MatchAuditLog{
		ID:            uuid.New(),
		TransactionID: tx.ID,
		Action:        models.AuditActionMatch,
		FromStatus:    models.TransactionPending,
		ToStatus:      models.TransactionMatched,
		NewTarget:     ref.String(),
	}
}

func TestApplyMatch_ClaimsTarget(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBankTransactionRepository(db)
	ctx := context.Background()

	tx := seedTx(t, db, "1500")
	inv := seedInvoice(t, db, "INV-1", "1500")
	ref := models.MatchRef{Type: models.TargetInvoice, ID: inv.ID}

	matched, err := lifecycle.Match(tx, ref)
	require.NoError(t, err)
	matched.ConfidenceScore = 100

	require.NoError(t, repo.ApplyMatch(ctx, matched, matchAudit(tx, ref)))

	stored, err := repo.GetByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionMatched, stored.Status)
	require.NotNil(t, stored.MatchedInvoiceID)
	assert.Equal(t, inv.ID, *stored.MatchedInvoiceID)
	assert.Equal(t, 100, stored.ConfidenceScore)
	assert.NoError(t, lifecycle.CheckInvariant(*stored))

	storedInv, err := NewInvoiceRepository(db).GetByID(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, storedInv.MatchedTransactionID)
	assert.Equal(t, tx.ID, *storedInv.MatchedTransactionID)

	var audits int64
	require.NoError(t, db.Model(&models.MatchAuditLog{}).Where("transaction_id = ?", tx.ID).Count(&audits).Error)
	assert.Equal(t, int64(1), audits)
}

func TestApplyMatch_ConcurrentMatchesOnOneTarget(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBankTransactionRepository(db)
	ctx := context.Background()

	inv := seedInvoice(t, db, "INV-RACE", "200")
	ref := models.MatchRef{Type: models.TargetInvoice, ID: inv.ID}
	first := seedTx(t, db, "200")
	second := seedTx(t, db, "200")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, tx := range []models.BankTransaction{first, second} {
		wg.Add(1)
		go func(i int, tx models.BankTransaction) {
			defer wg.Done()
			matched, err := lifecycle.Match(tx, ref)
			if err != nil {
				errs[i] = err
				return
			}
			errs[i] = repo.ApplyMatch(ctx, matched, matchAudit(tx, ref))
		}(i, tx)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		var merr *models.InvalidMatchError
		require.True(t, errors.As(err, &merr), "loser must get InvalidMatchError, got %v", err)
		losses++
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)

	var holders int64
	require.NoError(t, db.Model(&models.BankTransaction{}).Where("matched_invoice_id = ?", inv.ID).Count(&holders).Error)
	assert.Equal(t, int64(1), holders, "at most one transaction may hold the target")

	var pending int64
	require.NoError(t, db.Model(&models.BankTransaction{}).Where("status = ?", models.TransactionPending).Count(&pending).Error)
	assert.Equal(t, int64(1), pending, "the loser stays pending")
}

func TestApplyMatch_FailureLeavesBothSidesUnchanged(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBankTransactionRepository(db)
	ctx := context.Background()

	tx := seedTx(t, db, "300")
	inv := seedInvoice(t, db, "INV-1", "300")
	ref := models.MatchRef{Type: models.TargetInvoice, ID: inv.ID}

	// The stored row is ignored; the caller still holds a stale pending copy.
	require.NoError(t, repo.ApplyStatus(ctx, tx.ID, models.TransactionPending, models.TransactionIgnored, models.MatchAuditLog{
		ID: uuid.New(), TransactionID: tx.ID, Action: models.AuditActionIgnore,
	}))

	matched, err := lifecycle.Match(tx, ref)
	require.NoError(t, err)
	err = repo.ApplyMatch(ctx, matched, matchAudit(tx, ref))

	var merr *models.InvalidMatchError
	require.True(t, errors.As(err, &merr))

	storedInv, err := NewInvoiceRepository(db).GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Nil(t, storedInv.MatchedTransactionID, "claim rolled back with the failed transaction update")

	stored, err := repo.GetByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionIgnored, stored.Status)
	assert.Equal(t, 0, stored.RefCount())
}

func TestApplyMatch_ClosedTarget(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBankTransactionRepository(db)
	ctx := context.Background()

	tx := seedTx(t, db, "80")
	inv := seedInvoice(t, db, "INV-PAID", "80")
	require.NoError(t, db.Model(&models.Invoice{}).Where("id = ?", inv.ID).Update("status", models.InvoiceStatusPaid).Error)

	ref := models.MatchRef{Type: models.TargetInvoice, ID: inv.ID}
	matched, err := lifecycle.Match(tx, ref)
	require.NoError(t, err)

	err = repo.ApplyMatch(ctx, matched, matchAudit(tx, ref))
	var merr *models.InvalidMatchError
	assert.True(t, errors.As(err, &merr))
}

func TestApplyUnmatch_ReleasesTarget(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBankTransactionRepository(db)
	ctx := context.Background()

	tx := seedTx(t, db, "42")
	inv := seedInvoice(t, db, "INV-1", "42")
	ref := models.MatchRef{Type: models.TargetInvoice, ID: inv.ID}
	matched, err := lifecycle.Match(tx, ref)
	require.NoError(t, err)
	require.NoError(t, repo.ApplyMatch(ctx, matched, matchAudit(tx, ref)))

	require.NoError(t, repo.ApplyUnmatch(ctx, matched, models.MatchAuditLog{
		ID: uuid.New(), TransactionID: tx.ID, Action: models.AuditActionUnmatch, PreviousTarget: ref.String(),
	}))

	stored, err := repo.GetByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionPending, stored.Status)
	assert.Equal(t, 0, stored.RefCount())

	storedInv, err := NewInvoiceRepository(db).GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Nil(t, storedInv.MatchedTransactionID)

	// the released invoice can be claimed by another transaction
	other := seedTx(t, db, "42")
	rematched, err := lifecycle.Match(other, ref)
	require.NoError(t, err)
	assert.NoError(t, repo.ApplyMatch(ctx, rematched, matchAudit(other, ref)))
}

func TestApplyStatus_StaleFromStatus(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBankTransactionRepository(db)
	ctx := context.Background()

	tx := seedTx(t, db, "-10")
	err := repo.ApplyStatus(ctx, tx.ID, models.TransactionIgnored, models.TransactionPending, models.MatchAuditLog{ID: uuid.New(), TransactionID: tx.ID})

	var merr *models.InvalidMatchError
	assert.True(t, errors.As(err, &merr))
}

func TestList_FiltersByStatus(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBankTransactionRepository(db)
	ctx := context.Background()

	a := seedTx(t, db, "1")
	seedTx(t, db, "2")
	require.NoError(t, repo.ApplyStatus(ctx, a.ID, models.TransactionPending, models.TransactionIgnored, models.MatchAuditLog{ID: uuid.New(), TransactionID: a.ID}))

	all, err := repo.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	ignored, err := repo.List(ctx, models.TransactionIgnored, 0)
	require.NoError(t, err)
	require.Len(t, ignored, 1)
	assert.Equal(t, a.ID, ignored[0].ID)
}

func TestFindOpenInBand(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	inBand := seedInvoice(t, db, "INV-IN", "950")
	seedInvoice(t, db, "INV-LOW", "500")
	claimed := seedInvoice(t, db, "INV-CLAIMED", "1000")
	require.NoError(t, db.Model(&models.Invoice{}).Where("id = ?", claimed.ID).Update("matched_transaction_id", uuid.New()).Error)

	got, err := NewInvoiceRepository(db).FindOpenInBand(ctx, decimal.NewFromInt(900), decimal.NewFromInt(1100))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inBand.ID, got[0].ID)
}
