package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sastbridge",
	Short: "Multi-engine static analysis orchestrator",
	Long: `sastbridge runs several static analysis engines against a project,
normalizes their findings, optionally augments them with call-graph
reachability evidence and LLM patch verification, and writes SARIF
2.1.0 reports.`,
}

var DebugMode bool

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&DebugMode, "debug", false, "Enable debug logging")
}
