package models

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidationError reports malformed input to scoring, matching or a
// status transition.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// InvalidMatchError reports an illegal bank transaction transition or a
// lost race for a reconciliation target.
type InvalidMatchError struct {
	TransactionID uuid.UUID
	Reason        string
}

func (e *InvalidMatchError) Error() string {
	return fmt.Sprintf("invalid match for transaction %s: %s", e.TransactionID, e.Reason)
}

// AlreadyConvertedError reports an operation on a lead that has already
// been converted to a contact.
type AlreadyConvertedError struct {
	LeadID uuid.UUID
}

func (e *AlreadyConvertedError) Error() string {
	return fmt.Sprintf("lead %s has already been converted", e.LeadID)
}
