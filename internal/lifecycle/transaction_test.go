package lifecycle

import (
	"errors"
	"testing"

	"crm-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingTx(amount int64) models.BankTransaction {
	return models.BankTransaction{
		ID:     uuid.New(),
		Amount: decimal.NewFromInt(amount),
		Status: models.TransactionPending,
	}
}

func requireInvalidMatch(t *testing.T, err error) {
	t.Helper()
	var merr *models.InvalidMatchError
	require.Error(t, err)
	require.True(t, errors.As(err, &merr), "want InvalidMatchError, got %T: %v", err, err)
}

func TestMatch_SetsExactlyOneRef(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		ref    models.MatchRef
	}{
		{name: "credit to invoice", amount: 100, ref: models.MatchRef{Type: models.TargetInvoice, ID: uuid.New()}},
		{name: "credit to payment", amount: 100, ref: models.MatchRef{Type: models.TargetPayment, ID: uuid.New()}},
		{name: "debit to expense", amount: -100, ref: models.MatchRef{Type: models.TargetExpense, ID: uuid.New()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Match(pendingTx(tt.amount), tt.ref)

			require.NoError(t, err)
			assert.Equal(t, models.TransactionMatched, got.Status)
			ref, ok := got.MatchedRef()
			require.True(t, ok)
			assert.Equal(t, tt.ref, ref)
			assert.Equal(t, 1, got.RefCount())
			assert.NoError(t, CheckInvariant(got))
		})
	}
}

func TestMatch_RejectsAlreadyMatched(t *testing.T) {
	matched, err := Match(pendingTx(100), models.MatchRef{Type: models.TargetInvoice, ID: uuid.New()})
	require.NoError(t, err)

	got, err := Match(matched, models.MatchRef{Type: models.TargetInvoice, ID: uuid.New()})

	requireInvalidMatch(t, err)
	assert.Equal(t, matched, got, "a failed match leaves the transaction unchanged")
}

func TestMatch_RejectsIgnored(t *testing.T) {
	tx := pendingTx(100)
	tx.Status = models.TransactionIgnored

	_, err := Match(tx, models.MatchRef{Type: models.TargetInvoice, ID: uuid.New()})
	requireInvalidMatch(t, err)
}

func TestMatch_RejectsBadReference(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		ref    models.MatchRef
	}{
		{name: "empty", amount: 100, ref: models.MatchRef{}},
		{name: "unknown type", amount: 100, ref: models.MatchRef{Type: "refund", ID: uuid.New()}},
		{name: "nil id", amount: 100, ref: models.MatchRef{Type: models.TargetInvoice}},
		{name: "debit to invoice", amount: -100, ref: models.MatchRef{Type: models.TargetInvoice, ID: uuid.New()}},
		{name: "debit to payment", amount: -100, ref: models.MatchRef{Type: models.TargetPayment, ID: uuid.New()}},
		{name: "credit to expense", amount: 100, ref: models.MatchRef{Type: models.TargetExpense, ID: uuid.New()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := pendingTx(tt.amount)
			got, err := Match(tx, tt.ref)
			requireInvalidMatch(t, err)
			assert.Equal(t, tx, got)
		})
	}
}

func TestUnmatch(t *testing.T) {
	matched, err := Match(pendingTx(-40), models.MatchRef{Type: models.TargetExpense, ID: uuid.New()})
	require.NoError(t, err)
	matched.ConfidenceScore = 95

	got, err := Unmatch(matched)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionPending, got.Status)
	assert.Equal(t, 0, got.RefCount())
	assert.Equal(t, 0, got.ConfidenceScore)
	assert.NoError(t, CheckInvariant(got))

	_, err = Unmatch(got)
	requireInvalidMatch(t, err)
}

func TestIgnore(t *testing.T) {
	tx := pendingTx(100)

	ignored, changed, err := Ignore(tx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.TransactionIgnored, ignored.Status)

	again, changed, err := Ignore(ignored)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, ignored, again)

	matched, err := Match(tx, models.MatchRef{Type: models.TargetInvoice, ID: uuid.New()})
	require.NoError(t, err)
	got, changed, err := Ignore(matched)
	requireInvalidMatch(t, err)
	assert.False(t, changed)
	assert.Equal(t, matched, got)
}

func TestUnignore(t *testing.T) {
	tx := pendingTx(100)
	tx.Status = models.TransactionIgnored

	restored, changed, err := Unignore(tx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.TransactionPending, restored.Status)

	_, changed, err = Unignore(restored)
	require.NoError(t, err)
	assert.False(t, changed)

	matched, err := Match(restored, models.MatchRef{Type: models.TargetPayment, ID: uuid.New()})
	require.NoError(t, err)
	_, _, err = Unignore(matched)
	requireInvalidMatch(t, err)
}

func TestCheckInvariant(t *testing.T) {
	id := uuid.New()

	pendingWithRef := pendingTx(10)
	pendingWithRef.MatchedInvoiceID = &id
	assert.Error(t, CheckInvariant(pendingWithRef))

	matchedWithoutRef := pendingTx(10)
	matchedWithoutRef.Status = models.TransactionMatched
	assert.Error(t, CheckInvariant(matchedWithoutRef))

	matchedTwice := matchedWithoutRef
	matchedTwice.MatchedInvoiceID = &id
	matchedTwice.MatchedPaymentID = &id
	assert.Error(t, CheckInvariant(matchedTwice))
}
