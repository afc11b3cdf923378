package reconciliation

import (
	"context"
	"strings"
	"time"

	"crm-reconciliation-backend/internal/apperr"
	"crm-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceInput struct {
	InvoiceNumber string
	CustomerName  string
	CustomerEmail string
	Amount        decimal.Decimal
	Status        string
	DueDate       time.Time
}

type ExpenseInput struct {
	Vendor      string
	Category    string
	Amount      decimal.Decimal
	Status      string
	ExpenseDate time.Time
}

type PaymentInput struct {
	Payer      string
	Reference  string
	Amount     decimal.Decimal
	Status     string
	ReceivedAt time.Time
}

var (
	invoiceStatuses = []string{models.InvoiceStatusDraft, models.InvoiceStatusSent, models.InvoiceStatusOverdue, models.InvoiceStatusPaid, models.InvoiceStatusCancelled}
	expenseStatuses = []string{models.ExpenseStatusPending, models.ExpenseStatusApproved, models.ExpenseStatusRejected}
	paymentStatuses = []string{models.PaymentStatusReceived, models.PaymentStatusVoid}
)

// CreateInvoice stores an invoice. A missing number is generated; a
// duplicate number is a conflict.
func (s *ReconciliationService) CreateInvoice(ctx context.Context, in InvoiceInput) (*models.Invoice, error) {
	status, err := targetStatus(in.Status, models.InvoiceStatusSent, invoiceStatuses)
	if err != nil {
		return nil, err
	}
	if err := requireTarget(in.CustomerName, "customerName", in.Amount); err != nil {
		return nil, err
	}

	number := strings.TrimSpace(in.InvoiceNumber)
	if number == "" {
		number = uuid.NewString()
	}

	inv := &models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: number,
		CustomerName:  strings.TrimSpace(in.CustomerName),
		CustomerEmail: strings.TrimSpace(in.CustomerEmail),
		Amount:        in.Amount,
		Status:        status,
		DueDate:       in.DueDate.UTC(),
	}

	created, err := s.invoiceRepo.Create(ctx, inv)
	if err != nil {
		s.log.DatabaseError("invoice.create", err)
		return nil, err
	}
	if !created {
		return nil, apperr.Conflict("invoice number already exists").WithDetails(map[string]string{"invoiceNumber": number})
	}
	return inv, nil
}

func (s *ReconciliationService) CreateExpense(ctx context.Context, in ExpenseInput) (*models.Expense, error) {
	status, err := targetStatus(in.Status, models.ExpenseStatusApproved, expenseStatuses)
	if err != nil {
		return nil, err
	}
	if err := requireTarget(in.Vendor, "vendor", in.Amount); err != nil {
		return nil, err
	}

	exp := &models.Expense{
		ID:          uuid.New(),
		Vendor:      strings.TrimSpace(in.Vendor),
		Category:    strings.TrimSpace(in.Category),
		Amount:      in.Amount,
		Status:      status,
		ExpenseDate: in.ExpenseDate.UTC(),
	}
	if err := s.expenseRepo.Create(ctx, exp); err != nil {
		s.log.DatabaseError("expense.create", err)
		return nil, err
	}
	return exp, nil
}

func (s *ReconciliationService) CreatePayment(ctx context.Context, in PaymentInput) (*models.Payment, error) {
	status, err := targetStatus(in.Status, models.PaymentStatusReceived, paymentStatuses)
	if err != nil {
		return nil, err
	}
	if err := requireTarget(in.Payer, "payer", in.Amount); err != nil {
		return nil, err
	}

	pay := &models.Payment{
		ID:         uuid.New(),
		Payer:      strings.TrimSpace(in.Payer),
		Reference:  strings.TrimSpace(in.Reference),
		Amount:     in.Amount,
		Status:     status,
		ReceivedAt: in.ReceivedAt.UTC(),
	}
	if err := s.paymentRepo.Create(ctx, pay); err != nil {
		s.log.DatabaseError("payment.create", err)
		return nil, err
	}
	return pay, nil
}

func targetStatus(status, fallback string, allowed []string) (string, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return fallback, nil
	}
	for _, s := range allowed {
		if s == status {
			return status, nil
		}
	}
	return "", &models.ValidationError{Field: "status", Reason: "must be one of " + strings.Join(allowed, ", ")}
}

// requireTarget checks the fields every target needs. Target amounts are
// stored positive; the transaction sign decides the side.
func requireTarget(name, field string, amount decimal.Decimal) error {
	if strings.TrimSpace(name) == "" {
		return &models.ValidationError{Field: field, Reason: "is required"}
	}
	if !amount.IsPositive() {
		return &models.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	return nil
}
