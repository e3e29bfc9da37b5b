package core

// ModelProvider enumerates the supported model backends.
type ModelProvider string

const (
	ProviderOllama    ModelProvider = "ollama"
	ProviderOpenAI    ModelProvider = "openai"
	ProviderAnthropic ModelProvider = "anthropic"
)

// ModelConfig describes which backend and model an iteration's agents talk
// to. APIKey values starting with "$NAME" resolve from the project's .env
// file first, then the process environment (see internal/config).
type ModelConfig struct {
	Provider ModelProvider `yaml:"provider" json:"provider"`
	BaseURL  string        `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Model    string        `yaml:"model" json:"model"`
	APIKey   string        `yaml:"api_key,omitempty" json:"api_key,omitempty"`
}

// FileAccessConfig is the writable-path policy consumed by the file
// mediator (internal/filemediator).
type FileAccessConfig struct {
	WritablePaths    []string `yaml:"writable_paths" json:"writable_paths"`
	ProtectedPaths   []string `yaml:"protected_paths" json:"protected_paths"`
	MaxFileSizeBytes int64    `yaml:"max_file_size_bytes" json:"max_file_size_bytes"`
	MaxFilesPerTurn  int      `yaml:"max_files_per_turn" json:"max_files_per_turn"`
	EnableApprovals  bool     `yaml:"enable_approvals" json:"enable_approvals"`
}

// DefaultFileAccessConfig returns team.json's documented defaults.
func DefaultFileAccessConfig() FileAccessConfig {
	return FileAccessConfig{
		MaxFileSizeBytes: 1_048_576,
		MaxFilesPerTurn:  10,
		EnableApprovals:  false,
	}
}

// WorktreeConfig toggles per-agent sandbox isolation.
type WorktreeConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// TeamConfig is the root team.json configuration object: model, agent
// roster, optional coach, file-access policy, worktree policy, and
// streaming opt-in.
type TeamConfig struct {
	Model      ModelConfig      `yaml:"model" json:"model"`
	Agents     []Agent          `yaml:"agents" json:"agents"`
	Coach      *Coach           `yaml:"coach,omitempty" json:"coach,omitempty"`
	FileAccess FileAccessConfig `yaml:"file_access" json:"file_access"`
	Worktrees  WorktreeConfig   `yaml:"worktrees" json:"worktrees"`
	Streaming  bool             `yaml:"streaming" json:"streaming"`
}

// Validate checks the team configuration's structural invariants.
func (t *TeamConfig) Validate() error {
	if err := ValidateRoster(t.Agents); err != nil {
		return err
	}
	if t.Model.Model == "" {
		return ErrValidation("MODEL_REQUIRED", "team.json must specify model.model")
	}
	switch t.Model.Provider {
	case ProviderOllama, ProviderOpenAI, ProviderAnthropic:
	default:
		return ErrValidation("INVALID_PROVIDER", "unrecognized model provider: "+string(t.Model.Provider))
	}
	return nil
}

// AgentNames returns the stable, ordered list of agent names, used by the
// session engine to fix rotation order.
func (t *TeamConfig) AgentNames() []string {
	names := make([]string, len(t.Agents))
	for i, a := range t.Agents {
		names[i] = a.Name
	}
	return names
}
