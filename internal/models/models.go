// Package models holds the persisted records and the domain error types
// shared by the scoring, matching and lifecycle packages.
package models

// All lists every model for auto-migration.
func All() []interface{} {
	return []interface{}{
		&Lead{},
		&Contact{},
		&Invoice{},
		&Expense{},
		&Payment{},
		&BankTransaction{},
		&ImportBatch{},
		&MatchAuditLog{},
	}
}
