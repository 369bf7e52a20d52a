package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "concord",
	Short: "Contract consistency verifier and repairer for generated projects",
	Long: `Concord verifies that the files of a generated multi-file project agree
with each other and with their specification: every invoked channel has a
handler, parameter shapes line up across the process boundary, and scripts
only query markup elements that exist.

Inconsistencies are repaired in two passes: deterministic rule-based fixes
first, then a single bounded model call for whatever survives. Anything
still broken after that is reported for manual repair.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(versionCmd)
}
