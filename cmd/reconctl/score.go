package main

import (
	"fmt"

	"crm-reconciliation-backend/internal/models"
	"crm-reconciliation-backend/internal/scoring"

	"github.com/spf13/cobra"
)

func scoreCmd() *cobra.Command {
	var (
		fields models.ContactFields
		source string
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a lead from its contact fields and source",
		Example: `  reconctl score --email --phone --source referral
  reconctl score --company --title --linkedin`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			leadSource := models.LeadSource(source)
			if !leadSource.Valid() {
				return fmt.Errorf("unknown source %q", source)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), scoring.Score(fields, leadSource))
			return err
		},
	}

	cmd.Flags().BoolVar(&fields.Email, "email", false, "lead has an email address")
	cmd.Flags().BoolVar(&fields.Phone, "phone", false, "lead has a phone number")
	cmd.Flags().BoolVar(&fields.Company, "company", false, "lead has a company")
	cmd.Flags().BoolVar(&fields.Title, "title", false, "lead has a job title")
	cmd.Flags().BoolVar(&fields.LinkedInURL, "linkedin", false, "lead has a LinkedIn URL")
	cmd.Flags().StringVar(&source, "source", string(models.SourceOther), "lead source (website, referral, social, ads, email, other)")

	return cmd
}
