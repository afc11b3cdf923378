// Package httpkit provides HTTP response helpers and middleware.
package httpkit

import (
	"errors"
	"net/http"

	"crm-reconciliation-backend/internal/apperr"
	"crm-reconciliation-backend/internal/logger"
	"crm-reconciliation-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// ListResponse wraps a collection.
type ListResponse struct {
	Items interface{} `json:"items"`
	Count int         `json:"count"`
}

func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

func List(c *gin.Context, items interface{}, count int) {
	c.JSON(http.StatusOK, ListResponse{Items: items, Count: count})
}

func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// HandleError maps err to an HTTP response. Typed *apperr.Error values use
// their Kind; bare domain errors are mapped directly. Anything else is a
// 500 and is logged. Returns false when err is nil.
func HandleError(c *gin.Context, log *logger.Logger, err error) bool {
	if err == nil {
		return false
	}

	status, body := classify(err)
	if status >= http.StatusInternalServerError && log != nil {
		log.WithContext(c.Request.Context()).HTTPError(c.Request.Method, c.Request.URL.Path, status, err, c.ClientIP())
	}
	c.AbortWithStatusJSON(status, body)
	return true
}

// BindError renders a request binding failure as 400 with per-field details.
func BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		Error(c, http.StatusBadRequest, "invalid request", fields)
		return
	}
	Error(c, http.StatusBadRequest, "invalid request body", err.Error())
}

func classify(err error) (int, ErrorResponse) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus()
		msg := appErr.Message
		if status >= http.StatusInternalServerError {
			msg = "internal server error"
		}
		return status, ErrorResponse{Error: msg, Details: appErr.Details}
	}

	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, ErrorResponse{Error: validationErr.Error()}
	}
	var matchErr *models.InvalidMatchError
	if errors.As(err, &matchErr) {
		return http.StatusConflict, ErrorResponse{Error: matchErr.Error()}
	}
	var convErr *models.AlreadyConvertedError
	if errors.As(err, &convErr) {
		return http.StatusConflict, ErrorResponse{Error: convErr.Error()}
	}

	return http.StatusInternalServerError, ErrorResponse{Error: "internal server error"}
}
