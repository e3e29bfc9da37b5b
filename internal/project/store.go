// Package project lays out one project's on-disk state under its .team/
// directory: team.json, iteration.json, and the per-iteration artifacts
// (conversation log, tasks, scope summary, approvals, resumable state,
// checkpoints). There is no server process to share state across, so a
// single project directory is the whole registry.
package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MBifolco/gotg-sub000/internal/config"
	"github.com/MBifolco/gotg-sub000/internal/core"
)

// Store owns the .team/ directory layout for one project root.
type Store struct {
	root string
	mu   sync.Mutex
}

// New creates a store rooted at the given project directory.
func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the project's root directory.
func (s *Store) Root() string { return s.root }

// TeamDir is the project's .team/ directory.
func (s *Store) TeamDir() string { return filepath.Join(s.root, ".team") }

// TeamPath is team.json's path.
func (s *Store) TeamPath() string { return filepath.Join(s.TeamDir(), "team.json") }

// IterationsPath is iteration.json's path.
func (s *Store) IterationsPath() string { return filepath.Join(s.TeamDir(), "iteration.json") }

// IterationDir is one iteration's artifact directory.
func (s *Store) IterationDir(id string) string {
	return filepath.Join(s.TeamDir(), "iterations", id)
}

// GroomingDir is one grooming session's artifact directory.
func (s *Store) GroomingDir(slug string) string {
	return filepath.Join(s.TeamDir(), "grooming", slug)
}

// WorktreeDir is the project's worktree root.
func (s *Store) WorktreeDir() string { return filepath.Join(s.root, ".worktrees") }

func (s *Store) ConversationLogPath(iterID string) string {
	return filepath.Join(s.IterationDir(iterID), "conversation.jsonl")
}

func (s *Store) DebugLogPath(iterID string) string {
	return filepath.Join(s.IterationDir(iterID), "debug.jsonl")
}

func (s *Store) TasksPath(iterID string) string {
	return filepath.Join(s.IterationDir(iterID), "tasks.json")
}

func (s *Store) TasksRawPath(iterID string) string {
	return filepath.Join(s.IterationDir(iterID), "tasks.raw.txt")
}

func (s *Store) ScopeSummaryPath(iterID string) string {
	return filepath.Join(s.IterationDir(iterID), "scope_summary.md")
}

func (s *Store) ApprovalsPath(iterID string) string {
	return filepath.Join(s.IterationDir(iterID), "approvals.json")
}

func (s *Store) ResumableStatePath(iterID string) string {
	return filepath.Join(s.IterationDir(iterID), "implementation_state.json")
}

func (s *Store) CheckpointsDir(iterID string) string {
	return filepath.Join(s.IterationDir(iterID), "checkpoints")
}

// managedGitignoreEntries are the lines every quorum project's .gitignore
// must carry so iteration state, worktrees, and secrets never reach the
// repository history.
var managedGitignoreEntries = []string{"/.team/", "/.worktrees/", ".env"}

// EnsureGitignore appends any missing managed entries to the project's
// .gitignore, creating the file if needed. Existing content is preserved.
func (s *Store) EnsureGitignore() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.root, ".gitignore")
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	have := make(map[string]bool)
	for _, line := range strings.Split(string(existing), "\n") {
		have[strings.TrimSpace(line)] = true
	}

	var missing []string
	for _, entry := range managedGitignoreEntries {
		if !have[entry] {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	content := string(existing)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += strings.Join(missing, "\n") + "\n"
	return config.AtomicWrite(path, []byte(content))
}

// LoadTeam reads and validates team.json.
func (s *Store) LoadTeam() (*core.TeamConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.TeamPath())
	if err != nil {
		return nil, err
	}
	var team core.TeamConfig
	if err := json.Unmarshal(data, &team); err != nil {
		return nil, core.ErrValidation("TEAM_CONFIG_CORRUPT", "team.json is not valid JSON: "+err.Error())
	}
	if err := team.Validate(); err != nil {
		return nil, err
	}
	return &team, nil
}

// SaveTeam writes team.json atomically.
func (s *Store) SaveTeam(team *core.TeamConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.TeamPath(), team)
}

// IterationsFile is iteration.json's shape: the registry of every iteration
// in the project plus the currently active one.
type IterationsFile struct {
	Iterations []*core.Iteration `json:"iterations"`
	Current    string            `json:"current,omitempty"`
}

// LoadIterations reads iteration.json, returning an empty registry if it
// does not exist yet (a freshly initialized project).
func (s *Store) LoadIterations() (*IterationsFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.IterationsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &IterationsFile{}, nil
		}
		return nil, err
	}
	var file IterationsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, core.ErrValidation("ITERATIONS_CORRUPT", "iteration.json is not valid JSON: "+err.Error())
	}
	return &file, nil
}

// SaveIterations writes iteration.json atomically.
func (s *Store) SaveIterations(file *IterationsFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.IterationsPath(), file)
}

// FindIteration looks up one iteration by id within iteration.json.
func (s *Store) FindIteration(id string) (*core.Iteration, error) {
	file, err := s.LoadIterations()
	if err != nil {
		return nil, err
	}
	for _, it := range file.Iterations {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, core.ErrNotFound("iteration", id)
}

// UpsertIteration inserts or replaces one iteration entry in iteration.json.
func (s *Store) UpsertIteration(it *core.Iteration) error {
	file, err := s.LoadIterations()
	if err != nil {
		return err
	}
	replaced := false
	for i, existing := range file.Iterations {
		if existing.ID == it.ID {
			file.Iterations[i] = it
			replaced = true
			break
		}
	}
	if !replaced {
		file.Iterations = append(file.Iterations, it)
	}
	return s.SaveIterations(file)
}

// LoadTasks reads an iteration's tasks.json, returning nil before planning.
func (s *Store) LoadTasks(iterID string) ([]*core.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.TasksPath(iterID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var tasks []*core.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, core.ErrValidation("TASKS_CORRUPT", "tasks.json is not valid JSON: "+err.Error())
	}
	return tasks, nil
}

// SaveTasks writes tasks.json atomically. Every phase transition and every
// task status mutation during implementation calls through here, honoring
// the whole-file-replacement persistence model.
func (s *Store) SaveTasks(iterID string, tasks []*core.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.TasksPath(iterID), tasks)
}

// SaveTasksRaw saves the planner's unparseable raw output to a sidecar file
// for operator inspection, per the dependency-cycle open question.
func (s *Store) SaveTasksRaw(iterID, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.IterationDir(iterID), 0o750); err != nil {
		return err
	}
	return config.AtomicWrite(s.TasksRawPath(iterID), []byte(raw))
}

// SaveScopeSummary writes the refinement phase's scope-summary artifact.
func (s *Store) SaveScopeSummary(iterID, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.IterationDir(iterID), 0o750); err != nil {
		return err
	}
	return config.AtomicWrite(s.ScopeSummaryPath(iterID), []byte(summary))
}

func writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return config.AtomicWrite(path, data)
}
