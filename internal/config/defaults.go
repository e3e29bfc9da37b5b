package config

// DefaultConfigYAML is the config.yaml content written by `quorum init`
// when no project configuration exists yet.
const DefaultConfigYAML = `# Quorum configuration
# Precedence: CLI flags > QUORUM_-prefixed env vars > this file > user config > defaults.

log:
  level: info
  format: auto

model:
  provider: anthropic
  model: ""

git:
  worktree_dir: .worktrees
  auto_clean: true

file_access:
  max_file_size_bytes: 1048576
  max_files_per_turn: 10
  enable_approvals: false

checkpoint:
  auto_every: 1
`
