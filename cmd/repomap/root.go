package main

import (
	"github.com/spf13/cobra"

	"repomap/internal/version"
)

var (
	// rootFlag overrides the repository root (default: current directory).
	rootFlag string
	// logLevelFlag overrides the configured log level.
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "repomap",
	Short: "repomap - repository context maps for coding agents",
	Long: `repomap extracts definitions and references from a repository, ranks files
by their relevance to the current conversation and renders a token-budgeted
map of the most important symbols. It runs standalone or as a prompt hook.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("repomap version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "",
		"Repository root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error (default: from config)")
}
