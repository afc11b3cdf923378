// Package lifecycle holds the status machines for leads and bank
// transactions. Transitions take a record by value and return the updated
// copy, so a rejected transition never leaves a half-changed record behind.
package lifecycle

import (
	"time"

	"crm-reconciliation-backend/internal/models"

	"github.com/google/uuid"
)

// leadTransitions lists the allowed moves. Every status may move to every
// other; the table exists so a future restriction has one place to go.
var leadTransitions = map[models.LeadStatus]map[models.LeadStatus]bool{
	models.LeadNew:         {models.LeadContacted: true, models.LeadQualified: true, models.LeadUnqualified: true},
	models.LeadContacted:   {models.LeadNew: true, models.LeadQualified: true, models.LeadUnqualified: true},
	models.LeadQualified:   {models.LeadNew: true, models.LeadContacted: true, models.LeadUnqualified: true},
	models.LeadUnqualified: {models.LeadNew: true, models.LeadContacted: true, models.LeadQualified: true},
}

// TransitionLead moves lead to target. Moving to the current status is a
// successful no-op and reports changed=false. The score is never touched.
func TransitionLead(lead models.Lead, target models.LeadStatus) (models.Lead, bool, error) {
	if lead.IsConverted() {
		return lead, false, &models.AlreadyConvertedError{LeadID: lead.ID}
	}
	if !target.Valid() {
		return lead, false, &models.ValidationError{Field: "status", Reason: "must be one of new, contacted, qualified, unqualified"}
	}

	current := lead.Status
	if current == "" {
		current = models.LeadNew
	}
	if current == target {
		lead.Status = current
		return lead, false, nil
	}
	if !leadTransitions[current][target] {
		return lead, false, &models.ValidationError{Field: "status", Reason: "cannot move from " + string(current) + " to " + string(target)}
	}

	lead.Status = target
	return lead, true, nil
}

// ConvertLead marks the lead as converted into contactID. It is one-way:
// converting again, or transitioning afterwards, fails with
// AlreadyConvertedError.
func ConvertLead(lead models.Lead, contactID uuid.UUID, at time.Time) (models.Lead, error) {
	if lead.IsConverted() {
		return lead, &models.AlreadyConvertedError{LeadID: lead.ID}
	}
	if contactID == uuid.Nil {
		return lead, &models.ValidationError{Field: "contactId", Reason: "is required"}
	}

	converted := at.UTC()
	lead.ConvertedAt = &converted
	lead.ContactID = &contactID
	return lead, nil
}
