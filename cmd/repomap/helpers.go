package main

import (
	"context"
	"fmt"
	"os"

	"repomap/internal/config"
	"repomap/internal/engine"
	"repomap/internal/logging"
)

// mustRepoRoot resolves the repository root from --root or the current
// directory, exiting on failure.
func mustRepoRoot() string {
	if rootFlag != "" {
		return rootFlag
	}
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cwd
}

// loadConfigOrDefaults loads .repomap/config.json, falling back to the
// defaults when the file is missing or invalid.
func loadConfigOrDefaults(repoRoot string, logger *logging.Logger) *config.Config {
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		logger.Warn("Failed to load config, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		cfg = config.DefaultConfig()
	}
	return cfg
}

// bootstrapLogger logs config loading problems before the configured
// logger exists.
func bootstrapLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{
		Format: logging.HumanFormat,
		Level:  logging.WarnLevel,
	})
}

// newLogger builds the command logger from the config and --log-level.
func newLogger(cfg *config.Config) *logging.Logger {
	level := logging.LogLevel(cfg.Logging.Level)
	if logLevelFlag != "" {
		level = logging.LogLevel(logLevelFlag)
	}
	return logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  level,
	})
}

// newEngine wires the config, logger and engine for one command run.
// Callers own the engine and should Close it.
func newEngine() (*engine.Engine, *config.Config, *logging.Logger) {
	root := mustRepoRoot()
	cfg := loadConfigOrDefaults(root, bootstrapLogger())
	logger := newLogger(cfg)
	return engine.New(root, cfg, logger), cfg, logger
}

// newContext creates the context for command execution.
func newContext() context.Context {
	return context.Background()
}
