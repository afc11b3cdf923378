package matching

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"crm-reconciliation-backend/internal/config"
	"crm-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func makeTx(amount string, date time.Time) models.BankTransaction {
	return models.BankTransaction{
		ID:              uuid.New(),
		Amount:          decimal.RequireFromString(amount),
		TransactionDate: date,
		Status:          models.TransactionPending,
	}
}

func makeInvoice(number, amount string, due time.Time) models.Invoice {
	return models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: number,
		CustomerName:  "Acme BV",
		Amount:        decimal.RequireFromString(amount),
		Status:        models.InvoiceStatusSent,
		DueDate:       due,
	}
}

func makeExpense(vendor, amount string, date time.Time) models.Expense {
	return models.Expense{
		ID:          uuid.New(),
		Vendor:      vendor,
		Amount:      decimal.RequireFromString(amount),
		Status:      models.ExpenseStatusApproved,
		ExpenseDate: date,
	}
}

func makePayment(payer, amount string, date time.Time) models.Payment {
	return models.Payment{
		ID:         uuid.New(),
		Payer:      payer,
		Amount:     decimal.RequireFromString(amount),
		Status:     models.PaymentStatusReceived,
		ReceivedAt: date,
	}
}

func TestSuggest_ExactMatchSameDayIsCapped(t *testing.T) {
	tx := makeTx("1500", day)
	inv := makeInvoice("INV-1", "1500", day)

	got, err := Suggest(tx, CandidatePool{Invoices: []models.Invoice{inv}})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 100, got[0].Confidence)
	assert.Equal(t, models.TargetInvoice, got[0].TargetType)
	assert.Equal(t, inv.ID, got[0].TargetID)
	assert.True(t, got[0].AmountDelta.IsZero())
	assert.Equal(t, "Invoice INV-1 (Acme BV)", got[0].Label)
}

func TestSuggest_ExactMatchOutsideDateWindow(t *testing.T) {
	tx := makeTx("1500", day)
	inv := makeInvoice("INV-1", "1500", day.AddDate(0, 0, -40))

	got, err := Suggest(tx, CandidatePool{Invoices: []models.Invoice{inv}})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 95, got[0].Confidence, "no boost outside the window, but not excluded")
}

func TestSuggest_WithinEpsilonIsExact(t *testing.T) {
	tx := makeTx("1000.00", day.AddDate(0, 0, 30))
	inv := makeInvoice("INV-1", "1000.01", day)

	got, err := Suggest(tx, CandidatePool{Invoices: []models.Invoice{inv}})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 95, got[0].Confidence)
}

func TestSuggest_ToleranceDecay(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   int
		found  bool
	}{
		{name: "half the tolerance", amount: "950", want: 55 + 5, found: true},
		{name: "at the boundary", amount: "900", want: 40 + 5, found: true},
		{name: "above the transaction", amount: "1050", want: 55 + 5, found: true},
		{name: "small difference", amount: "999", want: 70 + 5, found: true},
		{name: "just past the boundary", amount: "899.99", found: false},
		{name: "far off", amount: "500", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := makeTx("1000", day)
			inv := makeInvoice("INV-1", tt.amount, day.AddDate(0, 0, 3))

			got, err := Suggest(tx, CandidatePool{Invoices: []models.Invoice{inv}})
			require.NoError(t, err)

			if !tt.found {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Confidence)
		})
	}
}

func TestSuggest_DebitAgainstInvoicesOnlyIsEmpty(t *testing.T) {
	tx := makeTx("-250", day)
	pool := CandidatePool{Invoices: []models.Invoice{
		makeInvoice("INV-1", "250", day),
		makeInvoice("INV-2", "250", day),
	}}

	got, err := Suggest(tx, pool)

	require.NoError(t, err)
	assert.NotNil(t, got, "no suggestion is an empty list, not nil")
	assert.Empty(t, got)
}

func TestSuggest_SignPartitioning(t *testing.T) {
	pool := CandidatePool{
		Invoices: []models.Invoice{makeInvoice("INV-1", "250", day)},
		Expenses: []models.Expense{makeExpense("Office Depot", "250", day)},
		Payments: []models.Payment{makePayment("Stripe", "250", day)},
	}

	t.Run("credit", func(t *testing.T) {
		got, err := Suggest(makeTx("250", day), pool)
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, c := range got {
			assert.NotEqual(t, models.TargetExpense, c.TargetType)
		}
	})

	t.Run("debit", func(t *testing.T) {
		got, err := Suggest(makeTx("-250", day), pool)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, models.TargetExpense, got[0].TargetType)
		assert.Equal(t, "Expense: Office Depot", got[0].Label)
	})
}

func TestSuggest_SkipsClosedTargets(t *testing.T) {
	paid := makeInvoice("INV-PAID", "100", day)
	paid.Status = models.InvoiceStatusPaid

	claimed := makeInvoice("INV-CLAIMED", "100", day)
	other := uuid.New()
	claimed.MatchedTransactionID = &other

	voided := makePayment("Stripe", "100", day)
	voided.Status = models.PaymentStatusVoid

	got, err := Suggest(makeTx("100", day), CandidatePool{
		Invoices: []models.Invoice{paid, claimed},
		Payments: []models.Payment{voided},
	})

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSuggest_TieBreaks(t *testing.T) {
	tx := makeTx("100", day)

	exact := makeInvoice("INV-EXACT", "100.00", day.AddDate(0, 0, -2))
	cent := makeInvoice("INV-CENT", "100.01", day.AddDate(0, 0, -1))
	recent := makeInvoice("INV-RECENT", "100.00", day.AddDate(0, 0, 1))

	got, err := Suggest(tx, CandidatePool{Invoices: []models.Invoice{cent, exact, recent}})

	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, c := range got {
		assert.Equal(t, 100, c.Confidence)
	}
	// equal confidence: smaller delta first, then the more recent date
	assert.Equal(t, recent.ID, got[0].TargetID)
	assert.Equal(t, exact.ID, got[1].TargetID)
	assert.Equal(t, cent.ID, got[2].TargetID)
}

func TestSuggest_Limit(t *testing.T) {
	var invoices []models.Invoice
	for i := 0; i < 8; i++ {
		invoices = append(invoices, makeInvoice("INV", "100", day.AddDate(0, 0, -i)))
	}

	got, err := Suggest(makeTx("100", day), CandidatePool{Invoices: invoices})
	require.NoError(t, err)
	assert.Len(t, got, 5)

	narrow := NewMatcher(Policy{
		AmountEpsilon:   decimal.NewFromFloat(0.01),
		ExactConfidence: 95,
		Limit:           2,
	})
	got, err = narrow.Suggest(makeTx("100", day), CandidatePool{Invoices: invoices})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSuggest_ZeroToleranceOnlyExact(t *testing.T) {
	policy := DefaultPolicy()
	policy.Tolerance = 0
	m := NewMatcher(policy)

	got, err := m.Suggest(makeTx("100", day), CandidatePool{Invoices: []models.Invoice{
		makeInvoice("INV-1", "100", day),
		makeInvoice("INV-2", "99", day),
	}})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Invoice INV-1 (Acme BV)", got[0].Label)
}

func TestSuggest_RejectsInvalidTransaction(t *testing.T) {
	tests := []struct {
		name  string
		tx    models.BankTransaction
		field string
	}{
		{name: "missing id", tx: models.BankTransaction{Amount: decimal.NewFromInt(10)}, field: "id"},
		{name: "missing amount", tx: models.BankTransaction{ID: uuid.New()}, field: "amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Suggest(tt.tx, CandidatePool{})

			assert.Nil(t, got)
			var verr *models.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestSuggest_DoesNotMutateInputs(t *testing.T) {
	tx := makeTx("500", day)
	pool := CandidatePool{
		Invoices: []models.Invoice{makeInvoice("INV-2", "480", day), makeInvoice("INV-1", "500", day)},
		Payments: []models.Payment{makePayment("Adyen", "500", day)},
	}
	txBefore := tx
	invoicesBefore := append([]models.Invoice(nil), pool.Invoices...)
	paymentsBefore := append([]models.Payment(nil), pool.Payments...)

	_, err := Suggest(tx, pool)
	require.NoError(t, err)

	assert.Equal(t, txBefore, tx)
	assert.Equal(t, invoicesBefore, pool.Invoices)
	assert.Equal(t, paymentsBefore, pool.Payments)
}

func TestSuggest_RandomPoolsHoldInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		pool := CandidatePool{}
		n := rng.Intn(12)
		for i := 0; i < n; i++ {
			amount := decimal.NewFromInt(int64(800 + rng.Intn(400)))
			due := day.AddDate(0, 0, rng.Intn(60)-30)
			pool.Invoices = append(pool.Invoices, models.Invoice{ID: uuid.New(), Amount: amount, Status: models.InvoiceStatusOverdue, DueDate: due})
			pool.Expenses = append(pool.Expenses, models.Expense{ID: uuid.New(), Amount: amount, Status: models.ExpenseStatusPending, ExpenseDate: due})
			pool.Payments = append(pool.Payments, models.Payment{ID: uuid.New(), Amount: amount, Status: models.PaymentStatusReceived, ReceivedAt: due})
		}

		amount := int64(900 + rng.Intn(200))
		if rng.Intn(2) == 0 {
			amount = -amount
		}
		tx := models.BankTransaction{ID: uuid.New(), Amount: decimal.NewFromInt(amount), TransactionDate: day}

		got, err := Suggest(tx, pool)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(got), DefaultPolicy().Limit)

		for i, c := range got {
			assert.GreaterOrEqual(t, c.Confidence, 0)
			assert.LessOrEqual(t, c.Confidence, 100)
			if amount > 0 {
				assert.NotEqual(t, models.TargetExpense, c.TargetType)
			} else {
				assert.Equal(t, models.TargetExpense, c.TargetType)
			}
			if i > 0 {
				assert.LessOrEqual(t, c.Confidence, got[i-1].Confidence, "confidences must be non-increasing")
			}
		}
	}
}

func TestCalendarDaysBetween(t *testing.T) {
	late := time.Date(2025, 3, 14, 23, 59, 0, 0, time.UTC)
	early := time.Date(2025, 3, 15, 0, 1, 0, 0, time.UTC)

	assert.Equal(t, 1, calendarDaysBetween(late, early))
	assert.Equal(t, 15, calendarDaysBetween(day, day.AddDate(0, 0, 15)))
	assert.Equal(t, 15, calendarDaysBetween(day.AddDate(0, 0, 15), day))
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.MatchingConfig{Tolerance: 0.05, DateWindowDays: 3, Limit: 10})

	assert.InDelta(t, 0.05, p.Tolerance, 1e-9)
	assert.Equal(t, 3, p.DateWindowDays)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, DefaultPolicy().ExactConfidence, p.ExactConfidence)
	assert.True(t, p.AmountEpsilon.Equal(decimal.NewFromFloat(0.01)))
}

func TestAssess(t *testing.T) {
	tx := makeTx("1000", day)
	exact := makeInvoice("INV-1", "1000", day)
	far := makeInvoice("INV-2", "500", day)
	expense := makeExpense("Hetzner", "1000", day)
	pool := CandidatePool{Invoices: []models.Invoice{exact, far}, Expenses: []models.Expense{expense}}

	got, err := Suggest(tx, pool)
	require.NoError(t, err)
	require.Len(t, got, 1, "the far invoice is never suggested")

	m := NewMatcher(DefaultPolicy())

	c, found := m.Assess(tx, models.MatchRef{Type: models.TargetInvoice, ID: exact.ID}, pool)
	require.True(t, found)
	assert.Equal(t, 100, c.Confidence)
	assert.Equal(t, "Invoice INV-1 (Acme BV)", c.Label)

	c, found = m.Assess(tx, models.MatchRef{Type: models.TargetInvoice, ID: far.ID}, pool)
	require.True(t, found)
	assert.Equal(t, 0, c.Confidence)
	assert.True(t, c.AmountDelta.Equal(decimal.NewFromInt(500)))

	_, found = m.Assess(tx, models.MatchRef{Type: models.TargetExpense, ID: expense.ID}, pool)
	assert.False(t, found, "expenses are not on the credit side")

	_, found = m.Assess(tx, models.MatchRef{Type: models.TargetInvoice, ID: uuid.New()}, pool)
	assert.False(t, found)
}
