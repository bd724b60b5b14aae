package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "openlet",
		Short: "Operator tools for the quiz generation pipeline",
		Long: `openlet inspects and repairs the quiz generation pipeline outside the API process.`,
		SilenceUsage: true,
	}

	root.AddCommand(newParseCmd(), newRedispatchCmd(), newMigrateCmd())
	return root
}
