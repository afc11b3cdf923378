package main

import (
	"encoding/json"
	"fmt"
	"os"

	"crm-reconciliation-backend/internal/models"
	"crm-reconciliation-backend/internal/services/matching"

	"github.com/spf13/cobra"
)

// snapshot is one transaction and the candidate pool it is matched against.
type snapshot struct {
	Transaction models.BankTransaction `json:"transaction"`
	Invoices    []models.Invoice       `json:"invoices"`
	Expenses    []models.Expense       `json:"expenses"`
	Payments    []models.Payment       `json:"payments"`
}

func suggestCmd() *cobra.Command {
	var (
		path      string
		tolerance float64
		window    int
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Rank match candidates for a transaction snapshot",
		Long: `Reads a JSON snapshot holding a "transaction" and its "invoices",
"expenses" and "payments", and prints the ranked candidates as JSON.`,
		Example: `  reconctl suggest --snapshot tx.json --tolerance 0.05`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read snapshot: %w", err)
			}

			var snap snapshot
			if err := json.Unmarshal(data, &snap); err != nil {
				return fmt.Errorf("failed to parse snapshot: %w", err)
			}

			policy := matching.DefaultPolicy()
			if cmd.Flags().Changed("tolerance") {
				policy.Tolerance = tolerance
			}
			if cmd.Flags().Changed("window") {
				policy.DateWindowDays = window
			}
			if cmd.Flags().Changed("limit") {
				policy.Limit = limit
			}

			candidates, err := matching.NewMatcher(policy).Suggest(snap.Transaction, matching.CandidatePool{
				Invoices: snap.Invoices,
				Expenses: snap.Expenses,
				Payments: snap.Payments,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(candidates)
		},
	}

	cmd.Flags().StringVar(&path, "snapshot", "", "path to the JSON snapshot")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0.10, "relative amount tolerance")
	cmd.Flags().IntVar(&window, "window", 15, "date window in days")
	cmd.Flags().IntVar(&limit, "limit", 5, "maximum candidates")
	_ = cmd.MarkFlagRequired("snapshot")

	return cmd
}
