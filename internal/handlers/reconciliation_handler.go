package handler

import (
	"context"
	"net/http"
	"strconv"

	"crm-reconciliation-backend/internal/httpkit"
	"crm-reconciliation-backend/internal/logger"
	"crm-reconciliation-backend/internal/models"
	service "crm-reconciliation-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReconciliationHandler struct {
	service *service.ReconciliationService
	log     *logger.Logger
}

func NewReconciliationHandler(s *service.ReconciliationService, log *logger.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{service: s, log: log}
}

// matchRequest names the target by exactly one of its id fields.
type matchRequest struct {
	InvoiceID *uuid.UUID `json:"invoiceId"`
	ExpenseID *uuid.UUID `json:"expenseId"`
	PaymentID *uuid.UUID `json:"paymentId"`
}

// ref returns the zero MatchRef unless exactly one id is set, which the
// service rejects as an invalid match.
func (r matchRequest) ref() models.MatchRef {
	var refs []models.MatchRef
	if r.InvoiceID != nil {
		refs = append(refs, models.MatchRef{Type: models.TargetInvoice, ID: *r.InvoiceID})
	}
	if r.ExpenseID != nil {
		refs = append(refs, models.MatchRef{Type: models.TargetExpense, ID: *r.ExpenseID})
	}
	if r.PaymentID != nil {
		refs = append(refs, models.MatchRef{Type: models.TargetPayment, ID: *r.PaymentID})
	}
	if len(refs) != 1 {
		return models.MatchRef{}
	}
	return refs[0]
}

func (h *ReconciliationHandler) ListTransactions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httpkit.Error(c, http.StatusBadRequest, "invalid limit", nil)
			return
		}
		limit = n
	}

	items, err := h.service.ListTransactions(c.Request.Context(), c.Query("status"), limit)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.List(c, items, len(items))
}

func (h *ReconciliationHandler) GetTransaction(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	tx, err := h.service.GetTransaction(c.Request.Context(), id)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, tx)
}

func (h *ReconciliationHandler) Suggestions(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	candidates, err := h.service.Suggestions(c.Request.Context(), id)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.List(c, candidates, len(candidates))
}

func (h *ReconciliationHandler) Match(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.BindError(c, err)
		return
	}

	tx, err := h.service.Match(c.Request.Context(), id, req.ref())
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, tx)
}

func (h *ReconciliationHandler) Unmatch(c *gin.Context) {
	h.transition(c, h.service.Unmatch)
}

func (h *ReconciliationHandler) Ignore(c *gin.Context) {
	h.transition(c, h.service.Ignore)
}

func (h *ReconciliationHandler) Unignore(c *gin.Context) {
	h.transition(c, h.service.Unignore)
}

func (h *ReconciliationHandler) transition(c *gin.Context, apply func(context.Context, uuid.UUID) (*models.BankTransaction, error)) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	tx, err := apply(c.Request.Context(), id)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, tx)
}

// Upload accepts a CSV bank statement and imports it in the background.
func (h *ReconciliationHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "file required", nil)
		return
	}
	defer file.Close()

	batch, err := h.service.StartImport(c.Request.Context(), header.Filename, file)
	if httpkit.HandleError(c, h.log, err) {
		return
	}

	httpkit.JSON(c, http.StatusAccepted, gin.H{
		"batchId": batch.ID.String(),
		"status":  batch.Status,
	})
}

func (h *ReconciliationHandler) GetBatch(c *gin.Context) {
	id, ok := parseID(c, "batchId")
	if !ok {
		return
	}
	batch, err := h.service.GetBatch(c.Request.Context(), id)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, batch)
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid "+param, nil)
		return uuid.Nil, false
	}
	return id, true
}
