package models

import (
	"time"

	"github.com/google/uuid"
)

// Contact is the record a lead becomes once converted.
type Contact struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LeadID      uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"leadId"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Company     string    `json:"company,omitempty"`
	Title       string    `json:"title,omitempty"`
	LinkedInURL string    `gorm:"column:linkedin_url" json:"linkedinUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
