package lifecycle

import (
	"crm-reconciliation-backend/internal/models"

	"github.com/google/uuid"
)

// Match moves a pending transaction to matched and records ref. It only
// validates the transaction side; confirming that the target is still open
// has to happen atomically in the store when the match is written.
func Match(tx models.BankTransaction, ref models.MatchRef) (models.BankTransaction, error) {
	if tx.Status != models.TransactionPending {
		return tx, invalidMatch(tx, "transaction is "+string(tx.Status)+", only pending transactions can be matched")
	}
	if !ref.Type.Valid() || ref.ID == uuid.Nil {
		return tx, invalidMatch(tx, "a single invoice, expense or payment reference is required")
	}
	if err := CheckDirection(tx, ref.Type); err != nil {
		return tx, err
	}

	tx.Status = models.TransactionMatched
	tx.MatchedInvoiceID, tx.MatchedExpenseID, tx.MatchedPaymentID = nil, nil, nil
	id := ref.ID
	switch ref.Type {
	case models.TargetInvoice:
		tx.MatchedInvoiceID = &id
	case models.TargetExpense:
		tx.MatchedExpenseID = &id
	case models.TargetPayment:
		tx.MatchedPaymentID = &id
	}
	return tx, nil
}

// Unmatch reverts a matched transaction to pending and clears its reference.
func Unmatch(tx models.BankTransaction) (models.BankTransaction, error) {
	if tx.Status != models.TransactionMatched {
		return tx, invalidMatch(tx, "transaction is not matched")
	}
	tx.Status = models.TransactionPending
	tx.MatchedInvoiceID, tx.MatchedExpenseID, tx.MatchedPaymentID = nil, nil, nil
	tx.ConfidenceScore = 0
	tx.MatchDetails = nil
	return tx, nil
}

// Ignore parks a transaction. Ignoring an ignored transaction is a no-op;
// a matched one must be unmatched first.
func Ignore(tx models.BankTransaction) (models.BankTransaction, bool, error) {
	switch tx.Status {
	case models.TransactionIgnored:
		return tx, false, nil
	case models.TransactionPending:
		tx.Status = models.TransactionIgnored
		return tx, true, nil
	default:
		return tx, false, invalidMatch(tx, "transaction is "+string(tx.Status)+", unmatch it before ignoring")
	}
}

// Unignore returns an ignored transaction to pending.
func Unignore(tx models.BankTransaction) (models.BankTransaction, bool, error) {
	switch tx.Status {
	case models.TransactionPending:
		return tx, false, nil
	case models.TransactionIgnored:
		tx.Status = models.TransactionPending
		return tx, true, nil
	default:
		return tx, false, invalidMatch(tx, "transaction is "+string(tx.Status)+", only ignored transactions can be unignored")
	}
}

// CheckDirection rejects targets on the wrong side of the ledger: credits
// reconcile to invoices and payments, debits to expenses.
func CheckDirection(tx models.BankTransaction, targetType models.TargetType) error {
	if tx.IsCredit() && !targetType.AcceptsCredit() {
		return invalidMatch(tx, "a credit cannot be matched to target type "+string(targetType))
	}
	if tx.IsDebit() && targetType.AcceptsCredit() {
		return invalidMatch(tx, "a debit cannot be matched to target type "+string(targetType))
	}
	return nil
}

// CheckInvariant reports whether the status and reference fields agree.
func CheckInvariant(tx models.BankTransaction) error {
	refs := tx.RefCount()
	switch {
	case tx.Status == models.TransactionMatched && refs != 1:
		return &models.ValidationError{Field: "matchedRef", Reason: "matched transaction must hold exactly one reference"}
	case tx.Status != models.TransactionMatched && refs != 0:
		return &models.ValidationError{Field: "matchedRef", Reason: string(tx.Status) + " transaction must not hold a reference"}
	}
	return nil
}

func invalidMatch(tx models.BankTransaction, reason string) *models.InvalidMatchError {
	return &models.InvalidMatchError{TransactionID: tx.ID, Reason: reason}
}
