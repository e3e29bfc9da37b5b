package config

// Config holds all application configuration, loaded in precedence order
// (CLI flags > QUORUM_-prefixed environment variables > project-local
// .team/config.yaml > user config > built-in defaults).
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Model      ModelDefaults    `mapstructure:"model"`
	Git        GitConfig        `mapstructure:"git"`
	FileAccess FileAccessConfig `mapstructure:"file_access"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
}

// LogConfig configures structured logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// ModelDefaults seeds a newly initialized team.json's model block when one
// isn't supplied on the command line.
type ModelDefaults struct {
	Provider string `mapstructure:"provider"`
	BaseURL  string `mapstructure:"base_url"`
	Model    string `mapstructure:"model"`
}

// GitConfig configures the sandbox/merge layer's worktree behavior.
type GitConfig struct {
	WorktreeDir string `mapstructure:"worktree_dir"`
	AutoClean   bool   `mapstructure:"auto_clean"`
}

// FileAccessConfig seeds the default file-mediator policy for newly
// initialized teams; per-team overrides live in team.json itself.
type FileAccessConfig struct {
	MaxFileSizeBytes int64 `mapstructure:"max_file_size_bytes"`
	MaxFilesPerTurn  int   `mapstructure:"max_files_per_turn"`
	EnableApprovals  bool  `mapstructure:"enable_approvals"`
}

// CheckpointConfig configures automatic checkpoint behavior.
type CheckpointConfig struct {
	AutoEvery int `mapstructure:"auto_every"`
}
