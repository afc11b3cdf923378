// Package leads manages the lead pool: capture, qualification and
// conversion into contacts.
package leads

import (
	"context"
	"strings"
	"time"

	"crm-reconciliation-backend/internal/apperr"
	"crm-reconciliation-backend/internal/lifecycle"
	"crm-reconciliation-backend/internal/logger"
	"crm-reconciliation-backend/internal/models"
	"crm-reconciliation-backend/internal/phone"
	"crm-reconciliation-backend/internal/repository"
	"crm-reconciliation-backend/internal/scoring"

	"github.com/google/uuid"
)

const recordLead = "lead"

// CreateInput holds the fields of a new lead.
type CreateInput struct {
	Name        string
	Email       string
	Phone       string
	Company     string
	Title       string
	LinkedInURL string
	Source      models.LeadSource
}

// UpdateInput holds an edit. Nil fields are left unchanged; an empty
// string clears the field.
type UpdateInput struct {
	Name        *string
	Email       *string
	Phone       *string
	Company     *string
	Title       *string
	LinkedInURL *string
	Source      *models.LeadSource
	Status      *models.LeadStatus
}

type Service struct {
	repo        *repository.LeadRepository
	scorer      *scoring.Scorer
	phoneRegion string
	log         *logger.Logger
	now         func() time.Time
}

func NewService(repo *repository.LeadRepository, scorer *scoring.Scorer, phoneRegion string, log *logger.Logger) *Service {
	return &Service{
		repo:        repo,
		scorer:      scorer,
		phoneRegion: phoneRegion,
		log:         log,
		now:         time.Now,
	}
}

// List returns unconverted leads, optionally filtered by status.
func (s *Service) List(ctx context.Context, status string) ([]models.Lead, error) {
	filter := models.LeadStatus(strings.TrimSpace(status))
	if filter != "" && !filter.Valid() {
		return nil, &models.ValidationError{Field: "status", Reason: "must be one of new, contacted, qualified, unqualified"}
	}

	leads, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if leads == nil {
		leads = []models.Lead{}
	}
	return leads, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, apperr.NotFound("lead not found").WithOp("leads.Get")
	}
	return lead, err
}

// Create stores a new lead in status new with its computed score.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Lead, error) {
	source := in.Source
	if source == "" {
		source = models.SourceOther
	}
	if !source.Valid() {
		return nil, &models.ValidationError{Field: "source", Reason: "must be one of website, referral, social, ads, email, other"}
	}

	now := s.now().UTC()
	lead := models.Lead{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(in.Name),
		Email:       normalizeEmail(in.Email),
		Phone:       phone.NormalizeE164(in.Phone, s.phoneRegion),
		Company:     strings.TrimSpace(in.Company),
		Title:       strings.TrimSpace(in.Title),
		LinkedInURL: strings.TrimSpace(in.LinkedInURL),
		Source:      source,
		Status:      models.LeadNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if lead.Name == "" {
		return nil, &models.ValidationError{Field: "name", Reason: "is required"}
	}
	lead.Score = s.scorer.Score(lead.ContactFields(), lead.Source)

	if err := s.repo.Create(ctx, &lead); err != nil {
		s.log.DatabaseError("lead.create", err)
		return nil, err
	}
	return &lead, nil
}

// Update applies field edits and an optional status change. The score is
// recomputed from the resulting fields; it cannot be set directly.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*models.Lead, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.IsConverted() {
		return nil, &models.AlreadyConvertedError{LeadID: current.ID}
	}

	lead := *current
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, &models.ValidationError{Field: "name", Reason: "must not be blank"}
		}
		lead.Name = name
	}
	if in.Email != nil {
		lead.Email = normalizeEmail(*in.Email)
	}
	if in.Phone != nil {
		lead.Phone = phone.NormalizeE164(*in.Phone, s.phoneRegion)
	}
	if in.Company != nil {
		lead.Company = strings.TrimSpace(*in.Company)
	}
	if in.Title != nil {
		lead.Title = strings.TrimSpace(*in.Title)
	}
	if in.LinkedInURL != nil {
		lead.LinkedInURL = strings.TrimSpace(*in.LinkedInURL)
	}
	if in.Source != nil {
		if !in.Source.Valid() {
			return nil, &models.ValidationError{Field: "source", Reason: "must be one of website, referral, social, ads, email, other"}
		}
		lead.Source = *in.Source
	}

	statusChanged := false
	if in.Status != nil {
		lead, statusChanged, err = lifecycle.TransitionLead(lead, *in.Status)
		if err != nil {
			return nil, err
		}
	}

	lead.Score = s.scorer.Score(lead.ContactFields(), lead.Source)

	if err := s.repo.Update(ctx, &lead); err != nil {
		return nil, err
	}

	if statusChanged {
		s.log.WithContext(ctx).Decision(recordLead, id.String(), "transition", string(current.Status), string(lead.Status))
	}
	return &lead, nil
}

// Convert turns the lead into a contact. It succeeds once per lead.
func (s *Service) Convert(ctx context.Context, id uuid.UUID) (*models.Lead, *models.Contact, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	now := s.now().UTC()
	contact := models.Contact{
		ID:          uuid.New(),
		LeadID:      current.ID,
		Name:        current.Name,
		Email:       current.Email,
		Phone:       current.Phone,
		Company:     current.Company,
		Title:       current.Title,
		LinkedInURL: current.LinkedInURL,
		CreatedAt:   now,
	}

	converted, err := lifecycle.ConvertLead(*current, contact.ID, now)
	if err != nil {
		return nil, nil, err
	}

	if err := s.repo.Convert(ctx, &converted, &contact); err != nil {
		return nil, nil, err
	}

	s.log.WithContext(ctx).Decision(recordLead, id.String(), "convert", string(current.Status), "converted")
	return &converted, &contact, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
