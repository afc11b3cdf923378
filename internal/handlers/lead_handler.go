package handler

import (
	"net/http"

	"crm-reconciliation-backend/internal/httpkit"
	"crm-reconciliation-backend/internal/logger"
	"crm-reconciliation-backend/internal/models"
	"crm-reconciliation-backend/internal/services/leads"

	"github.com/gin-gonic/gin"
)

type LeadHandler struct {
	service *leads.Service
	log     *logger.Logger
}

func NewLeadHandler(s *leads.Service, log *logger.Logger) *LeadHandler {
	return &LeadHandler{service: s, log: log}
}

type createLeadRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Email       string `json:"email" binding:"omitempty,email,max=254"`
	Phone       string `json:"phone" binding:"omitempty,max=40"`
	Company     string `json:"company" binding:"omitempty,max=200"`
	Title       string `json:"title" binding:"omitempty,max=200"`
	LinkedInURL string `json:"linkedinUrl" binding:"omitempty,url"`
	Source      string `json:"source" binding:"omitempty,lead_source"`
}

// updateLeadRequest is a partial update. A score sent by the client is
// not part of the request; it is always recomputed.
type updateLeadRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=200"`
	Email       *string `json:"email" binding:"omitempty,email,max=254"`
	Phone       *string `json:"phone" binding:"omitempty,max=40"`
	Company     *string `json:"company" binding:"omitempty,max=200"`
	Title       *string `json:"title" binding:"omitempty,max=200"`
	LinkedInURL *string `json:"linkedinUrl" binding:"omitempty,url"`
	Source      *string `json:"source" binding:"omitempty,lead_source"`
	Status      *string `json:"status" binding:"omitempty,lead_status"`
}

func (r updateLeadRequest) input() leads.UpdateInput {
	in := leads.UpdateInput{
		Name:        r.Name,
		Email:       r.Email,
		Phone:       r.Phone,
		Company:     r.Company,
		Title:       r.Title,
		LinkedInURL: r.LinkedInURL,
	}
	if r.Source != nil {
		source := models.LeadSource(*r.Source)
		in.Source = &source
	}
	if r.Status != nil {
		status := models.LeadStatus(*r.Status)
		in.Status = &status
	}
	return in
}

func (h *LeadHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), c.Query("status"))
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.List(c, items, len(items))
}

func (h *LeadHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	lead, err := h.service.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *LeadHandler) Create(c *gin.Context) {
	var req createLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.BindError(c, err)
		return
	}

	lead, err := h.service.Create(c.Request.Context(), leads.CreateInput{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Company:     req.Company,
		Title:       req.Title,
		LinkedInURL: req.LinkedInURL,
		Source:      models.LeadSource(req.Source),
	})
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, lead)
}

func (h *LeadHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.BindError(c, err)
		return
	}

	lead, err := h.service.Update(c.Request.Context(), id, req.input())
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *LeadHandler) Convert(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	lead, contact, err := h.service.Convert(c.Request.Context(), id)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, gin.H{"lead": lead, "contact": contact})
}
