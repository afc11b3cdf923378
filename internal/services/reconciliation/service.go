package reconciliation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"crm-reconciliation-backend/internal/apperr"
	"crm-reconciliation-backend/internal/lifecycle"
	"crm-reconciliation-backend/internal/logger"
	"crm-reconciliation-backend/internal/models"
	"crm-reconciliation-backend/internal/repository"
	"crm-reconciliation-backend/internal/services/matching"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const recordTransaction = "bank_transaction"

type ReconciliationService struct {
	transactionRepo *repository.BankTransactionRepository
	invoiceRepo     *repository.InvoiceRepository
	expenseRepo     *repository.ExpenseRepository
	paymentRepo     *repository.PaymentRepository
	batchRepo       *repository.ImportBatchRepository
	matcher         *matching.Matcher
	log             *logger.Logger

	// imports tracks background statement imports so shutdown can wait.
	imports sync.WaitGroup
}

type Repositories struct {
	Transactions *repository.BankTransactionRepository
	Invoices     *repository.InvoiceRepository
	Expenses     *repository.ExpenseRepository
	Payments     *repository.PaymentRepository
	Batches      *repository.ImportBatchRepository
}

func NewReconciliationService(repos Repositories, matcher *matching.Matcher, log *logger.Logger) *ReconciliationService {
	return &ReconciliationService{
		transactionRepo: repos.Transactions,
		invoiceRepo:     repos.Invoices,
		expenseRepo:     repos.Expenses,
		paymentRepo:     repos.Payments,
		batchRepo:       repos.Batches,
		matcher:         matcher,
		log:             log,
	}
}

// matchDetails is persisted on the transaction and the audit row when a
// match is accepted.
type matchDetails struct {
	TargetType      models.TargetType `json:"targetType"`
	TargetID        uuid.UUID         `json:"targetId"`
	Label           string            `json:"label"`
	TargetAmount    decimal.Decimal   `json:"targetAmount"`
	TargetDate      time.Time         `json:"targetDate"`
	AmountDelta     decimal.Decimal   `json:"amountDelta"`
	Confidence      int               `json:"confidence"`
	WithinTolerance bool              `json:"withinTolerance"`
	MatchedAt       time.Time         `json:"matchedAt"`
}

// ListTransactions filters by status. An empty status or "all" lists
// every transaction.
func (s *ReconciliationService) ListTransactions(ctx context.Context, status string, limit int) ([]models.BankTransaction, error) {
	var filter models.TransactionStatus
	if status != "" && status != "all" {
		filter = models.TransactionStatus(status)
		if !filter.Valid() {
			return nil, &models.ValidationError{Field: "status", Reason: "must be one of pending, matched, ignored, all"}
		}
	}

	txs, err := s.transactionRepo.List(ctx, filter, limit)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []models.BankTransaction{}
	}
	return txs, nil
}

func (s *ReconciliationService) GetTransaction(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error) {
	tx, err := s.transactionRepo.GetByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, apperr.NotFound("transaction not found").WithOp("reconciliation.GetTransaction")
	}
	return tx, err
}

// Suggestions ranks the open targets for a pending transaction. Only
// targets inside the amount band the matcher can accept are loaded.
func (s *ReconciliationService) Suggestions(ctx context.Context, id uuid.UUID) ([]matching.MatchCandidate, error) {
	tx, err := s.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Status != models.TransactionPending {
		return nil, &models.InvalidMatchError{TransactionID: tx.ID, Reason: "suggestions are only offered for pending transactions"}
	}
	if err := matching.ValidateTransaction(*tx); err != nil {
		return nil, err
	}

	pool, err := s.loadPool(ctx, *tx)
	if err != nil {
		return nil, err
	}
	return s.matcher.Suggest(*tx, pool)
}

// Match reconciles a pending transaction to one target. The target must
// exist, be open and sit on the transaction's side of the ledger. If
// another transaction claims the target first, InvalidMatchError is
// returned and nothing changes.
func (s *ReconciliationService) Match(ctx context.Context, id uuid.UUID, ref models.MatchRef) (*models.BankTransaction, error) {
	tx, err := s.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	matched, err := lifecycle.Match(*tx, ref)
	if err != nil {
		return nil, err
	}

	pool, err := s.loadTarget(ctx, ref)
	if err != nil {
		return nil, err
	}
	candidate, ok := s.matcher.Assess(*tx, ref, pool)
	if !ok {
		return nil, &models.InvalidMatchError{TransactionID: tx.ID, Reason: fmt.Sprintf("%s %s does not exist or is not open", ref.Type, ref.ID)}
	}

	_, within := s.matcher.Confidence(tx.Amount, tx.TransactionDate, candidate.TargetAmount, candidate.TargetDate)
	details, err := json.Marshal(matchDetails{
		TargetType:      candidate.TargetType,
		TargetID:        candidate.TargetID,
		Label:           candidate.Label,
		TargetAmount:    candidate.TargetAmount,
		TargetDate:      candidate.TargetDate,
		AmountDelta:     candidate.AmountDelta,
		Confidence:      candidate.Confidence,
		WithinTolerance: within,
		MatchedAt:       time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	matched.ConfidenceScore = candidate.Confidence
	matched.MatchDetails = datatypes.JSON(details)

	audit := newAudit(*tx, matched, models.AuditActionMatch)
	audit.NewTarget = ref.String()
	audit.Details = datatypes.JSON(details)

	if err := s.transactionRepo.ApplyMatch(ctx, matched, audit); err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Decision(recordTransaction, id.String(), models.AuditActionMatch, string(tx.Status), string(matched.Status))
	return s.GetTransaction(ctx, id)
}

// Unmatch returns a matched transaction to pending and releases its target.
func (s *ReconciliationService) Unmatch(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error) {
	tx, err := s.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	pending, err := lifecycle.Unmatch(*tx)
	if err != nil {
		return nil, err
	}

	audit := newAudit(*tx, pending, models.AuditActionUnmatch)
	if ref, ok := tx.MatchedRef(); ok {
		audit.PreviousTarget = ref.String()
	}

	if err := s.transactionRepo.ApplyUnmatch(ctx, *tx, audit); err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Decision(recordTransaction, id.String(), models.AuditActionUnmatch, string(tx.Status), string(pending.Status))
	return s.GetTransaction(ctx, id)
}

func (s *ReconciliationService) Ignore(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error) {
	return s.applyStatus(ctx, id, models.AuditActionIgnore, lifecycle.Ignore)
}

func (s *ReconciliationService) Unignore(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error) {
	return s.applyStatus(ctx, id, models.AuditActionUnignore, lifecycle.Unignore)
}

type statusTransition func(models.BankTransaction) (models.BankTransaction, bool, error)

func (s *ReconciliationService) applyStatus(ctx context.Context, id uuid.UUID, action string, transition statusTransition) (*models.BankTransaction, error) {
	tx, err := s.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	next, changed, err := transition(*tx)
	if err != nil {
		return nil, err
	}
	if !changed {
		return tx, nil
	}

	if err := s.transactionRepo.ApplyStatus(ctx, tx.ID, tx.Status, next.Status, newAudit(*tx, next, action)); err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Decision(recordTransaction, id.String(), action, string(tx.Status), string(next.Status))
	return &next, nil
}

// loadPool fetches the open targets whose amount could fall inside the
// matcher's tolerance of tx. The engine still applies the exact rules.
func (s *ReconciliationService) loadPool(ctx context.Context, tx models.BankTransaction) (matching.CandidatePool, error) {
	policy := s.matcher.Policy()
	abs := tx.Amount.Abs()
	spread := abs.Mul(decimal.NewFromFloat(policy.Tolerance))
	low := abs.Sub(spread).Sub(policy.AmountEpsilon)
	high := abs.Add(spread).Add(policy.AmountEpsilon)

	var pool matching.CandidatePool
	var err error
	if tx.IsCredit() {
		if pool.Invoices, err = s.invoiceRepo.FindOpenInBand(ctx, low, high); err != nil {
			return pool, err
		}
		pool.Payments, err = s.paymentRepo.FindOpenInBand(ctx, low, high)
		return pool, err
	}
	pool.Expenses, err = s.expenseRepo.FindOpenInBand(ctx, low, high)
	return pool, err
}

// loadTarget returns a pool holding only ref's record. A missing record
// yields an empty pool.
func (s *ReconciliationService) loadTarget(ctx context.Context, ref models.MatchRef) (matching.CandidatePool, error) {
	var pool matching.CandidatePool
	switch ref.Type {
	case models.TargetInvoice:
		inv, err := s.invoiceRepo.GetByID(ctx, ref.ID)
		if err != nil {
			return pool, ignoreNotFound(err)
		}
		pool.Invoices = []models.Invoice{*inv}
	case models.TargetExpense:
		exp, err := s.expenseRepo.GetByID(ctx, ref.ID)
		if err != nil {
			return pool, ignoreNotFound(err)
		}
		pool.Expenses = []models.Expense{*exp}
	case models.TargetPayment:
		pay, err := s.paymentRepo.GetByID(ctx, ref.ID)
		if err != nil {
			return pool, ignoreNotFound(err)
		}
		pool.Payments = []models.Payment{*pay}
	}
	return pool, nil
}

func ignoreNotFound(err error) error {
	if repository.IsNotFound(err) {
		return nil
	}
	return err
}

func newAudit(before, after models.BankTransaction, action string) models.MatchAuditLog {
	return models.MatchAuditLog{
		ID:            uuid.New(),
		TransactionID: before.ID,
		Action:        action,
		FromStatus:    before.Status,
		ToStatus:      after.Status,
		CreatedAt:     time.Now().UTC(),
	}
}

// Wait blocks until background imports have finished.
func (s *ReconciliationService) Wait() {
	s.imports.Wait()
}
