// Package cmd implements the quorum CLI: a thin cobra layer over
// internal/supervisor. It runs one phase or one implementation layer per
// invocation rather than driving the whole iteration lifecycle
// unattended — the human operator stays in the loop between phases.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	appVersion string
	appCommit  string
	appDate    string
)

var rootCmd = &cobra.Command{
	Use:   "quorum",
	Short: "Multi-agent iteration orchestrator",
	Long: `quorum drives a multi-agent software-engineering iteration through
refinement, planning, pre-code-review, implementation, and code-review,
pausing at each phase boundary for the operator's next command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion injects build-time version info, called from main.
func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .team/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto", "log format (auto, text, json)")
}
