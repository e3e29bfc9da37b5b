package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/MBifolco/gotg-sub000/internal/config"
	"github.com/MBifolco/gotg-sub000/internal/logging"
	"github.com/MBifolco/gotg-sub000/internal/project"
	"github.com/MBifolco/gotg-sub000/internal/supervisor"
)

// buildSupervisor loads configuration from the usual precedence chain,
// builds a logger from it, and wires a supervisor rooted at the current
// directory. Every subcommand but init and version calls through here.
func buildSupervisor() (*supervisor.Supervisor, error) {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	root := loader.ProjectDir()
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
	}
	store := project.New(root)

	return supervisor.New(store, cfg, logger), nil
}

// resolveIterationID returns explicit if non-empty, otherwise the
// project's current iteration, the shape every per-iteration subcommand
// needs for its optional [iteration-id] argument.
func resolveIterationID(s *supervisor.Supervisor, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	return s.CurrentIterationID()
}

// OutputJSON writes v to stdout as indented JSON.
func OutputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// TruncateString collapses newlines and truncates s to maxLen, for
// single-line table output.
func TruncateString(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
