// Package scoring computes lead qualification scores.
//
// The score is an additive heuristic over contact-field presence and lead
// source. It is a pure function of its inputs: the same fields and source
// always produce the same score, and adding a field never lowers it.
package scoring

import "crm-reconciliation-backend/internal/models"

const (
	MinScore = 0
	MaxScore = 100
)

// Weights are the per-signal contributions on top of Base.
type Weights struct {
	Base        int
	Email       int
	Phone       int
	Company     int
	Title       int
	LinkedInURL int
	Referral    int
}

func DefaultWeights() Weights {
	return Weights{
		Base:        30,
		Email:       15,
		Phone:       15,
		Company:     10,
		Title:       10,
		LinkedInURL: 10,
		Referral:    10,
	}
}

// Scorer scores leads with a fixed set of weights.
type Scorer struct {
	weights Weights
}

func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

var defaultScorer = NewScorer(DefaultWeights())

// Score scores with DefaultWeights.
func Score(fields models.ContactFields, source models.LeadSource) int {
	return defaultScorer.Score(fields, source)
}

// ScoreLead scores a lead record from its current fields.
func ScoreLead(lead models.Lead) int {
	return Score(lead.ContactFields(), lead.Source)
}

// Score returns the qualification score in [MinScore, MaxScore]. Absent
// fields and unknown sources contribute nothing.
func (s *Scorer) Score(fields models.ContactFields, source models.LeadSource) int {
	w := s.weights
	score := w.Base

	if fields.Email {
		score += w.Email
	}
	if fields.Phone {
		score += w.Phone
	}
	if fields.Company {
		score += w.Company
	}
	if fields.Title {
		score += w.Title
	}
	if fields.LinkedInURL {
		score += w.LinkedInURL
	}
	if source == models.SourceReferral {
		score += w.Referral
	}

	return clamp(score)
}

func clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
