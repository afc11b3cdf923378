package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reconctl",
		Short: "Offline lead scoring and reconciliation matching",
		Long: `reconctl runs the lead scorer and the reconciliation matcher against
local input without a database, for checking scores and candidate rankings
before changing the matcher policy.`,
		SilenceUsage: true,
	}

	root.AddCommand(scoreCmd())
	root.AddCommand(suggestCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
