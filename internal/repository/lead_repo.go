package repository

import (
	"context"
	"errors"
	"time"

	"crm-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LeadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

func (r *LeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	return r.db.WithContext(ctx).Create(lead).Error
}

// GetByID returns the lead, including converted ones so that callers can
// report AlreadyConvertedError.
func (r *LeadRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	if err := r.db.WithContext(ctx).First(&lead, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

// List returns the unconverted lead pool, highest score first.
func (r *LeadRepository) List(ctx context.Context, status models.LeadStatus) ([]models.Lead, error) {
	var leads []models.Lead
	query := r.db.WithContext(ctx).
		Where("converted_at IS NULL").
		Order("score DESC").
		Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Find(&leads).Error
	return leads, err
}

// Update writes the editable fields of an unconverted lead. A lead
// converted in the meantime is left alone and AlreadyConvertedError returned.
func (r *LeadRepository) Update(ctx context.Context, lead *models.Lead) error {
	lead.UpdatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&models.Lead{}).
		Where("id = ? AND converted_at IS NULL", lead.ID).
		Updates(map[string]interface{}{
			"name":         lead.Name,
			"email":        lead.Email,
			"phone":        lead.Phone,
			"company":      lead.Company,
			"title":        lead.Title,
			"linkedin_url": lead.LinkedInURL,
			"source":       lead.Source,
			"score":        lead.Score,
			"status":       lead.Status,
			"updated_at":   lead.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.missingOrConverted(ctx, lead.ID)
	}
	return nil
}

// Convert stores the contact and marks the lead converted in one
// transaction. Only the first conversion of a lead can succeed.
func (r *LeadRepository) Convert(ctx context.Context, lead *models.Lead, contact *models.Contact) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		result := db.Model(&models.Lead{}).
			Where("id = ? AND converted_at IS NULL", lead.ID).
			Updates(map[string]interface{}{
				"converted_at": lead.ConvertedAt,
				"contact_id":   lead.ContactID,
				"updated_at":   time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return &models.AlreadyConvertedError{LeadID: lead.ID}
		}
		return db.Create(contact).Error
	})
}

func (r *LeadRepository) missingOrConverted(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Lead{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return &models.AlreadyConvertedError{LeadID: id}
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
