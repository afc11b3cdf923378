package httpkit

import (
	"fmt"

	"crm-reconciliation-backend/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the lead enum tags to gin's binding validator.
// Must run before routes are served.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	if err := v.RegisterValidation("lead_source", func(fl validator.FieldLevel) bool {
		return models.LeadSource(fl.Field().String()).Valid()
	}); err != nil {
		return err
	}
	return v.RegisterValidation("lead_status", func(fl validator.FieldLevel) bool {
		return models.LeadStatus(fl.Field().String()).Valid()
	})
}
