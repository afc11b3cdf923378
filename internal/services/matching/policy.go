package matching

import (
	"crm-reconciliation-backend/internal/config"

	"github.com/shopspring/decimal"
)

// Policy holds the matcher's numeric constants. They were tuned against
// sample data rather than a documented backend rule, so every one of them
// is overridable.
type Policy struct {
	// AmountEpsilon is the largest delta still treated as an exact match.
	AmountEpsilon decimal.Decimal
	// Tolerance is the largest relative amount difference (delta divided
	// by the transaction amount) a candidate may have.
	Tolerance float64
	// ExactConfidence is the starting confidence of an exact match.
	ExactConfidence int
	// ToleranceConfidence is the starting confidence of a near match with
	// a vanishing difference. It decays linearly to ToleranceFloor at the
	// tolerance boundary.
	ToleranceConfidence int
	ToleranceFloor      int
	// DateWindowDays is the +/- window, in calendar days, that earns DateBoost.
	DateWindowDays int
	DateBoost      int
	// Limit caps the number of returned candidates.
	Limit int
}

func DefaultPolicy() Policy {
	return Policy{
		AmountEpsilon:       decimal.NewFromFloat(0.01),
		Tolerance:           0.10,
		ExactConfidence:     95,
		ToleranceConfidence: 70,
		ToleranceFloor:      40,
		DateWindowDays:      15,
		DateBoost:           5,
		Limit:               5,
	}
}

// PolicyFromConfig overlays the non-zero configured values on DefaultPolicy.
func PolicyFromConfig(cfg config.MatchingConfig) Policy {
	p := DefaultPolicy()
	if cfg.AmountEpsilon > 0 {
		p.AmountEpsilon = decimal.NewFromFloat(cfg.AmountEpsilon)
	}
	if cfg.Tolerance > 0 {
		p.Tolerance = cfg.Tolerance
	}
	if cfg.ExactConfidence > 0 {
		p.ExactConfidence = cfg.ExactConfidence
	}
	if cfg.ToleranceConfidence > 0 {
		p.ToleranceConfidence = cfg.ToleranceConfidence
	}
	if cfg.ToleranceFloor > 0 {
		p.ToleranceFloor = cfg.ToleranceFloor
	}
	if cfg.DateWindowDays > 0 {
		p.DateWindowDays = cfg.DateWindowDays
	}
	if cfg.DateBoost > 0 {
		p.DateBoost = cfg.DateBoost
	}
	if cfg.Limit > 0 {
		p.Limit = cfg.Limit
	}
	return p
}
