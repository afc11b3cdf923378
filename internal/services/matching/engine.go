// Package matching proposes reconciliation targets for bank transactions.
//
// Matching is read-only: Suggest takes a snapshot of one transaction and
// the open candidate pool and returns ranked candidates without touching
// either. Persisting the chosen match is the caller's job.
package matching

import (
	"fmt"
	"math"
	"sort"
	"time"

	"crm-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CandidatePool is the set of open targets a transaction may match.
type CandidatePool struct {
	Invoices []models.Invoice
	Expenses []models.Expense
	Payments []models.Payment
}

// MatchCandidate is one proposed target with the matcher's confidence.
type MatchCandidate struct {
	TargetType   models.TargetType `json:"targetType"`
	TargetID     uuid.UUID         `json:"targetId"`
	Label        string            `json:"label"`
	TargetAmount decimal.Decimal   `json:"targetAmount"`
	TargetDate   time.Time         `json:"targetDate"`
	AmountDelta  decimal.Decimal   `json:"amountDelta"`
	Confidence   int               `json:"confidence"`
}

func (c MatchCandidate) Ref() models.MatchRef {
	return models.MatchRef{Type: c.TargetType, ID: c.TargetID}
}

// target is the type-independent view of an invoice, expense or payment.
type target struct {
	typ    models.TargetType
	id     uuid.UUID
	label  string
	amount decimal.Decimal
	date   time.Time
}

type Matcher struct {
	policy Policy
}

func NewMatcher(policy Policy) *Matcher {
	return &Matcher{policy: policy}
}

func (m *Matcher) Policy() Policy {
	return m.policy
}

var defaultMatcher = NewMatcher(DefaultPolicy())

// Suggest runs the default policy.
func Suggest(tx models.BankTransaction, pool CandidatePool) ([]MatchCandidate, error) {
	return defaultMatcher.Suggest(tx, pool)
}

// Suggest returns at most Policy.Limit candidates for tx, best first.
//
// Credits are only offered invoices and payments, debits only expenses.
// Candidates outside the amount tolerance are dropped. An empty, non-nil
// slice means there is no suggestion; it is not an error.
func (m *Matcher) Suggest(tx models.BankTransaction, pool CandidatePool) ([]MatchCandidate, error) {
	if err := ValidateTransaction(tx); err != nil {
		return nil, err
	}

	candidates := make([]MatchCandidate, 0)
	for _, t := range targetsFor(tx, pool) {
		confidence, ok := m.Confidence(tx.Amount, tx.TransactionDate, t.amount, t.date)
		if !ok {
			continue
		}
		candidates = append(candidates, MatchCandidate{
			TargetType:   t.typ,
			TargetID:     t.id,
			Label:        t.label,
			TargetAmount: t.amount,
			TargetDate:   t.date,
			AmountDelta:  tx.Amount.Abs().Sub(t.amount).Abs(),
			Confidence:   confidence,
		})
	}

	sortCandidates(candidates)

	if m.policy.Limit > 0 && len(candidates) > m.policy.Limit {
		candidates = candidates[:m.policy.Limit]
	}
	return candidates, nil
}

// Confidence scores one target against a transaction amount and date. The
// second result is false when the target falls outside the tolerance and
// must not be offered.
func (m *Matcher) Confidence(txAmount decimal.Decimal, txDate time.Time, targetAmount decimal.Decimal, targetDate time.Time) (int, bool) {
	p := m.policy
	absTx := txAmount.Abs()
	if absTx.IsZero() || !targetAmount.IsPositive() {
		return 0, false
	}

	delta := absTx.Sub(targetAmount).Abs()

	var confidence int
	switch {
	case delta.LessThanOrEqual(p.AmountEpsilon):
		confidence = p.ExactConfidence
	case p.Tolerance > 0:
		relative := delta.Div(absTx).InexactFloat64()
		if relative > p.Tolerance {
			return 0, false
		}
		span := float64(p.ToleranceConfidence - p.ToleranceFloor)
		confidence = int(math.Round(float64(p.ToleranceConfidence) - span*relative/p.Tolerance))
	default:
		return 0, false
	}

	if calendarDaysBetween(txDate, targetDate) <= p.DateWindowDays {
		confidence += p.DateBoost
	}

	return clampConfidence(confidence), true
}

// Assess scores a target the user picked by hand. Unlike Suggest it does
// not drop targets outside the tolerance; those get confidence 0. ok is
// false when ref is not an open target on the transaction's side of pool.
func (m *Matcher) Assess(tx models.BankTransaction, ref models.MatchRef, pool CandidatePool) (MatchCandidate, bool) {
	for _, t := range targetsFor(tx, pool) {
		if t.typ != ref.Type || t.id != ref.ID {
			continue
		}
		confidence, within := m.Confidence(tx.Amount, tx.TransactionDate, t.amount, t.date)
		if !within {
			confidence = 0
		}
		return MatchCandidate{
			TargetType:   t.typ,
			TargetID:     t.id,
			Label:        t.label,
			TargetAmount: t.amount,
			TargetDate:   t.date,
			AmountDelta:  tx.Amount.Abs().Sub(t.amount).Abs(),
			Confidence:   confidence,
		}, true
	}
	return MatchCandidate{}, false
}

// ValidateTransaction rejects transactions the matcher cannot reason about.
func ValidateTransaction(tx models.BankTransaction) error {
	if tx.ID == uuid.Nil {
		return &models.ValidationError{Field: "id", Reason: "is required"}
	}
	if tx.Amount.IsZero() {
		return &models.ValidationError{Field: "amount", Reason: "is required and must be non-zero"}
	}
	return nil
}

func targetsFor(tx models.BankTransaction, pool CandidatePool) []target {
	var targets []target

	if tx.IsCredit() {
		for _, inv := range pool.Invoices {
			if !inv.IsOpen() {
				continue
			}
			targets = append(targets, target{
				typ:    models.TargetInvoice,
				id:     inv.ID,
				label:  fmt.Sprintf("Invoice %s (%s)", inv.InvoiceNumber, inv.CustomerName),
				amount: inv.Amount,
				date:   inv.DueDate,
			})
		}
		for _, pay := range pool.Payments {
			if !pay.IsOpen() {
				continue
			}
			targets = append(targets, target{
				typ:    models.TargetPayment,
				id:     pay.ID,
				label:  paymentLabel(pay),
				amount: pay.Amount,
				date:   pay.ReceivedAt,
			})
		}
		return targets
	}

	for _, exp := range pool.Expenses {
		if !exp.IsOpen() {
			continue
		}
		targets = append(targets, target{
			typ:    models.TargetExpense,
			id:     exp.ID,
			label:  expenseLabel(exp),
			amount: exp.Amount,
			date:   exp.ExpenseDate,
		})
	}
	return targets
}

func paymentLabel(p models.Payment) string {
	if p.Reference == "" {
		return "Payment from " + p.Payer
	}
	return fmt.Sprintf("Payment from %s (%s)", p.Payer, p.Reference)
}

func expenseLabel(e models.Expense) string {
	if e.Category == "" {
		return "Expense: " + e.Vendor
	}
	return fmt.Sprintf("Expense: %s (%s)", e.Vendor, e.Category)
}

// sortCandidates orders by confidence desc, amount delta asc, target date
// desc, and finally target ID so equal candidates have a stable order.
func sortCandidates(candidates []MatchCandidate) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if c := a.AmountDelta.Cmp(b.AmountDelta); c != 0 {
			return c < 0
		}
		if !a.TargetDate.Equal(b.TargetDate) {
			return a.TargetDate.After(b.TargetDate)
		}
		return a.TargetID.String() < b.TargetID.String()
	})
}

func calendarDaysBetween(a, b time.Time) int {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)

	days := int(da.Sub(db).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
