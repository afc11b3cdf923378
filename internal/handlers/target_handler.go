package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"crm-reconciliation-backend/internal/httpkit"
	"crm-reconciliation-backend/internal/logger"
	"crm-reconciliation-backend/internal/models"
	service "crm-reconciliation-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// dateLayouts are accepted for target dates: ISO first, then the
// dd-mm-yyyy form the invoice screens send.
var dateLayouts = []string{"2006-01-02", "02-01-2006"}

// TargetHandler creates the invoices, expenses and payments bank
// transactions are reconciled against.
type TargetHandler struct {
	service *service.ReconciliationService
	log     *logger.Logger
}

func NewTargetHandler(s *service.ReconciliationService, log *logger.Logger) *TargetHandler {
	return &TargetHandler{service: s, log: log}
}

type createInvoiceRequest struct {
	InvoiceNumber string          `json:"invoiceNumber" binding:"omitempty,max=64"`
	CustomerName  string          `json:"customerName" binding:"required,max=200"`
	CustomerEmail string          `json:"customerEmail" binding:"omitempty,email"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	DueDate       string          `json:"dueDate" binding:"required"`
}

type createExpenseRequest struct {
	Vendor      string          `json:"vendor" binding:"required,max=200"`
	Category    string          `json:"category" binding:"omitempty,max=100"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	ExpenseDate string          `json:"expenseDate" binding:"required"`
}

type createPaymentRequest struct {
	Payer      string          `json:"payer" binding:"required,max=200"`
	Reference  string          `json:"reference" binding:"omitempty,max=100"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	ReceivedAt string          `json:"receivedAt" binding:"required"`
}

func (h *TargetHandler) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.BindError(c, err)
		return
	}
	due, err := parseDate("dueDate", req.DueDate)
	if httpkit.HandleError(c, h.log, err) {
		return
	}

	inv, err := h.service.CreateInvoice(c.Request.Context(), service.InvoiceInput{
		InvoiceNumber: req.InvoiceNumber,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Amount:        req.Amount,
		Status:        req.Status,
		DueDate:       due,
	})
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, inv)
}

func (h *TargetHandler) CreateExpense(c *gin.Context) {
	var req createExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.BindError(c, err)
		return
	}
	date, err := parseDate("expenseDate", req.ExpenseDate)
	if httpkit.HandleError(c, h.log, err) {
		return
	}

	exp, err := h.service.CreateExpense(c.Request.Context(), service.ExpenseInput{
		Vendor:      req.Vendor,
		Category:    req.Category,
		Amount:      req.Amount,
		Status:      req.Status,
		ExpenseDate: date,
	})
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, exp)
}

func (h *TargetHandler) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.BindError(c, err)
		return
	}
	received, err := parseDate("receivedAt", req.ReceivedAt)
	if httpkit.HandleError(c, h.log, err) {
		return
	}

	pay, err := h.service.CreatePayment(c.Request.Context(), service.PaymentInput{
		Payer:      req.Payer,
		Reference:  req.Reference,
		Amount:     req.Amount,
		Status:     req.Status,
		ReceivedAt: received,
	})
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, pay)
}

func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, &models.ValidationError{Field: field, Reason: fmt.Sprintf("invalid date %q, expected yyyy-mm-dd", value)}
}
