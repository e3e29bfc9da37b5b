package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources:
// CLI flags (bound via viper.BindPFlag) > QUORUM_-prefixed environment
// variables > project-local .team/config.yaml > user config
// (~/.config/quorum/config.yaml) > built-in defaults.
type Loader struct {
	v            *viper.Viper
	configFile   string
	envPrefix    string
	projectDir   string
	resolvePaths bool
	mu           sync.Mutex
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:            viper.New(),
		envPrefix:    "QUORUM",
		resolvePaths: true,
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance,
// allowing integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v, envPrefix: "QUORUM", resolvePaths: true}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper { return l.v }

// Load loads configuration from all sources and unmarshals it into Config.
func (l *Loader) Load() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".team")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "quorum"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	projectDir := ""
	if configPath := l.v.ConfigFileUsed(); configPath != "" {
		if absConfigPath, err := filepath.Abs(configPath); err == nil {
			configDir := filepath.Dir(absConfigPath)
			if filepath.Base(configDir) == ".team" {
				projectDir = filepath.Dir(configDir)
			} else {
				projectDir = configDir
			}
		}
	}
	if projectDir == "" {
		projectDir, _ = os.Getwd()
	}
	l.projectDir = projectDir
	if l.resolvePaths {
		l.resolveAbsolutePaths(&cfg, projectDir)
	}

	return &cfg, nil
}

// ProjectDir returns the resolved project root directory, available after
// Load has been called.
func (l *Loader) ProjectDir() string { return l.projectDir }

func (l *Loader) resolveAbsolutePaths(cfg *Config, baseDir string) {
	if cfg.Git.WorktreeDir != "" {
		cfg.Git.WorktreeDir = resolvePathRelativeTo(cfg.Git.WorktreeDir, baseDir)
	}
}

func resolvePathRelativeTo(path, baseDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	l.v.SetDefault("model.provider", "anthropic")
	l.v.SetDefault("model.model", "")
	l.v.SetDefault("model.base_url", "")

	l.v.SetDefault("git.worktree_dir", ".worktrees")
	l.v.SetDefault("git.auto_clean", true)

	l.v.SetDefault("file_access.max_file_size_bytes", 1_048_576)
	l.v.SetDefault("file_access.max_files_per_turn", 10)
	l.v.SetDefault("file_access.enable_approvals", false)

	l.v.SetDefault("checkpoint.auto_every", 1)
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	if l.configFile != "" {
		return l.configFile
	}
	return l.v.ConfigFileUsed()
}

// Get returns a configuration value by key.
func (l *Loader) Get(key string) interface{} { return l.v.Get(key) }

// Set sets a configuration value, taking precedence over file/env/defaults.
func (l *Loader) Set(key string, value interface{}) { l.v.Set(key, value) }

// IsSet checks if a key has been explicitly set.
func (l *Loader) IsSet(key string) bool { return l.v.IsSet(key) }

// AllSettings returns all settings as a map.
func (l *Loader) AllSettings() map[string]interface{} { return l.v.AllSettings() }

// Validate checks configuration consistency.
func Validate(cfg *Config) error {
	switch cfg.Model.Provider {
	case "ollama", "openai", "anthropic", "":
	default:
		return fmt.Errorf("model.provider: unrecognized provider %q", cfg.Model.Provider)
	}
	if cfg.FileAccess.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("file_access.max_file_size_bytes must be positive")
	}
	return nil
}
