package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MBifolco/gotg-sub000/internal/config"
	"github.com/MBifolco/gotg-sub000/internal/core"
	"github.com/MBifolco/gotg-sub000/internal/project"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new quorum project",
	Long: `Initialize a new quorum project in the current directory.
Creates .team/config.yaml and a starter team.json roster.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing configuration")
}

func runInit(_ *cobra.Command, _ []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}
	store := project.New(cwd)

	if _, err := os.Stat(store.TeamDir()); err == nil && !initForce {
		if _, statErr := os.Stat(filepath.Join(store.TeamDir(), "config.yaml")); statErr == nil {
			return fmt.Errorf("project already initialized at .team/, use --force to overwrite")
		}
	}

	if err := os.MkdirAll(store.TeamDir(), 0o750); err != nil {
		return fmt.Errorf("creating .team directory: %w", err)
	}
	configPath := filepath.Join(store.TeamDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(config.DefaultConfigYAML), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if _, err := os.Stat(store.TeamPath()); err != nil || initForce {
		team := &core.TeamConfig{
			Model: core.ModelConfig{
				Provider: core.ProviderAnthropic,
				Model:    "claude-sonnet-4-5",
				APIKey:   "$ANTHROPIC_API_KEY",
			},
			Agents: []core.Agent{
				{Name: "alice", Role: "implementer", SystemPrompt: "You write the code for tasks assigned to you."},
				{Name: "bob", Role: "reviewer", SystemPrompt: "You review code and raise concerns before merge."},
			},
			Coach:      &core.Coach{Name: "coach", Role: "facilitator"},
			FileAccess: core.DefaultFileAccessConfig(),
			Worktrees:  core.WorktreeConfig{Enabled: true},
		}
		if err := store.SaveTeam(team); err != nil {
			return fmt.Errorf("writing team.json: %w", err)
		}
	}

	if err := store.EnsureGitignore(); err != nil {
		return fmt.Errorf("updating .gitignore: %w", err)
	}

	if _, err := config.EnsureGlobalConfigFile(); err != nil {
		fmt.Printf("Warning: could not create user config: %v\n", err)
	}

	fmt.Println("Initialized quorum project in", cwd)
	fmt.Println("Edit .team/team.json to configure your agent roster, then run `quorum new`.")
	return nil
}
