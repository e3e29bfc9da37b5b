// Package supervisor wires the session engine, phase controller,
// implementation executor, file mediator, and sandbox/merge layer together
// against one project's on-disk state (internal/project). It is the sole
// consumer of the event streams internal/engine and internal/executor
// produce: those packages only ever return a channel, and every line this
// package's drivers pull off it is translated into exactly one disk write.
package supervisor

import (
	"fmt"

	"github.com/MBifolco/gotg-sub000/internal/checkpoint"
	"github.com/MBifolco/gotg-sub000/internal/config"
	"github.com/MBifolco/gotg-sub000/internal/convlog"
	"github.com/MBifolco/gotg-sub000/internal/core"
	"github.com/MBifolco/gotg-sub000/internal/filemediator"
	"github.com/MBifolco/gotg-sub000/internal/logging"
	"github.com/MBifolco/gotg-sub000/internal/model"
	"github.com/MBifolco/gotg-sub000/internal/project"
	"github.com/MBifolco/gotg-sub000/internal/vcs"
)

// Supervisor drives one project's iterations. It owns no state beyond what
// internal/project persists, so it is cheap to reconstruct on every CLI
// invocation.
type Supervisor struct {
	Store  *project.Store
	Cfg    *config.Config
	Logger *logging.Logger
}

// New creates a supervisor rooted at store's project directory.
func New(store *project.Store, cfg *config.Config, logger *logging.Logger) *Supervisor {
	return &Supervisor{Store: store, Cfg: cfg, Logger: logger}
}

// roster resolves every agent's and the coach's model client from
// team.json, applying the project's .env api-key convention once per run
// rather than once per agent.
type roster struct {
	team    *core.TeamConfig
	clients map[string]model.Client
}

func (s *Supervisor) buildRoster(team *core.TeamConfig) (*roster, error) {
	apiKey := config.ResolveAPIKey(team.Model.APIKey, s.Store.Root())
	defaults := config.ModelDefaults{
		Provider: string(team.Model.Provider),
		BaseURL:  team.Model.BaseURL,
		Model:    team.Model.Model,
	}

	clients := make(map[string]model.Client, len(team.Agents)+1)
	for _, a := range team.Agents {
		c, err := model.NewClientFromConfig(defaults, apiKey, s.Logger)
		if err != nil {
			return nil, fmt.Errorf("building model client for %s: %w", a.Name, err)
		}
		clients[a.Name] = c
	}
	if team.Coach != nil {
		c, err := model.NewClientFromConfig(defaults, apiKey, s.Logger)
		if err != nil {
			return nil, fmt.Errorf("building model client for coach %s: %w", team.Coach.Name, err)
		}
		clients[team.Coach.Name] = c
	}
	return &roster{team: team, clients: clients}, nil
}

func accessPolicy(team *core.TeamConfig) core.FileAccessConfig {
	access := team.FileAccess
	if access.MaxFileSizeBytes == 0 {
		access = core.DefaultFileAccessConfig()
		access.EnableApprovals = team.FileAccess.EnableApprovals
		access.WritablePaths = team.FileAccess.WritablePaths
		access.ProtectedPaths = team.FileAccess.ProtectedPaths
	}
	return access
}

func (s *Supervisor) approvals(iterID string) (*filemediator.ApprovalStore, error) {
	return filemediator.NewApprovalStore(s.Store.ApprovalsPath(iterID))
}

func (s *Supervisor) checkpointManager(iterID string, it *core.Iteration) *checkpoint.Manager {
	return checkpoint.New(s.Store.IterationDir(iterID), func(trigger core.CheckpointTrigger) core.CheckpointMeta {
		return core.CheckpointMeta{
			Phase:       it.Phase,
			Status:      it.Status,
			MaxTurns:    it.MaxTurns,
			Description: it.Description,
			Trigger:     trigger,
		}
	})
}

func (s *Supervisor) convlog(iterID string) *convlog.Log {
	return convlog.New(s.Store.ConversationLogPath(iterID))
}

func (s *Supervisor) debugLog(iterID string) *convlog.DebugLog {
	return convlog.NewDebugLog(s.Store.DebugLogPath(iterID))
}

// vcsClient opens the project's git repository, returning nil (not an
// error) when worktrees are disabled for this team, since most commands
// function without one.
func (s *Supervisor) vcsClient(team *core.TeamConfig) (*vcs.Client, error) {
	if !team.Worktrees.Enabled {
		return nil, nil
	}
	return vcs.NewClient(s.Store.Root())
}

// LoadIteration loads one iteration and its tasks together, the shape
// nearly every command needs.
func (s *Supervisor) LoadIteration(iterID string) (*core.Iteration, []*core.Task, error) {
	it, err := s.Store.FindIteration(iterID)
	if err != nil {
		return nil, nil, err
	}
	tasks, err := s.Store.LoadTasks(iterID)
	if err != nil {
		return nil, nil, err
	}
	return it, tasks, nil
}

// CurrentIterationID returns the project's active iteration id.
func (s *Supervisor) CurrentIterationID() (string, error) {
	file, err := s.Store.LoadIterations()
	if err != nil {
		return "", err
	}
	if file.Current == "" {
		return "", core.ErrNotFound("iteration", "no current iteration; run `quorum new` first")
	}
	return file.Current, nil
}
