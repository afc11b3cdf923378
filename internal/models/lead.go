package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// LeadSource is where a lead came from.
type LeadSource string

const (
	SourceWebsite  LeadSource = "website"
	SourceReferral LeadSource = "referral"
	SourceSocial   LeadSource = "social"
	SourceAds      LeadSource = "ads"
	SourceEmail    LeadSource = "email"
	SourceOther    LeadSource = "other"
)

var LeadSources = []LeadSource{SourceWebsite, SourceReferral, SourceSocial, SourceAds, SourceEmail, SourceOther}

func (s LeadSource) Valid() bool {
	for _, known := range LeadSources {
		if s == known {
			return true
		}
	}
	return false
}

// LeadStatus is the qualification state of a lead.
type LeadStatus string

const (
	LeadNew         LeadStatus = "new"
	LeadContacted   LeadStatus = "contacted"
	LeadQualified   LeadStatus = "qualified"
	LeadUnqualified LeadStatus = "unqualified"
)

var LeadStatuses = []LeadStatus{LeadNew, LeadContacted, LeadQualified, LeadUnqualified}

func (s LeadStatus) Valid() bool {
	for _, known := range LeadStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ContactFields flags which contact details are present on a lead.
type ContactFields struct {
	Email       bool `json:"email"`
	Phone       bool `json:"phone"`
	Company     bool `json:"company"`
	Title       bool `json:"title"`
	LinkedInURL bool `json:"linkedinUrl"`
}

// Lead is a prospective contact before conversion. Score is derived from
// the contact fields and source and is recomputed whenever they change.
type Lead struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string     `json:"name"`
	Email       string     `gorm:"index" json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Company     string     `json:"company,omitempty"`
	Title       string     `json:"title,omitempty"`
	LinkedInURL string     `gorm:"column:linkedin_url" json:"linkedinUrl,omitempty"`
	Source      LeadSource `gorm:"index" json:"source"`
	Score       int        `json:"score"`
	Status      LeadStatus `gorm:"index" json:"status"`
	ConvertedAt *time.Time `gorm:"index" json:"convertedAt,omitempty"`
	ContactID   *uuid.UUID `gorm:"type:uuid" json:"contactId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ContactFields derives presence flags. Blank strings count as absent.
func (l Lead) ContactFields() ContactFields {
	return ContactFields{
		Email:       present(l.Email),
		Phone:       present(l.Phone),
		Company:     present(l.Company),
		Title:       present(l.Title),
		LinkedInURL: present(l.LinkedInURL),
	}
}

func (l Lead) IsConverted() bool {
	return l.ConvertedAt != nil
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}
