package supervisor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/MBifolco/gotg-sub000/internal/convlog"
	"github.com/MBifolco/gotg-sub000/internal/core"
	"github.com/MBifolco/gotg-sub000/internal/engine"
	"github.com/MBifolco/gotg-sub000/internal/events"
	"github.com/MBifolco/gotg-sub000/internal/executor"
	"github.com/MBifolco/gotg-sub000/internal/filemediator"
	"github.com/MBifolco/gotg-sub000/internal/phasectl"
	"github.com/MBifolco/gotg-sub000/internal/vcs"
)

// phaseInstructions supplies the per-phase system-prompt addendum the
// engine weaves into every agent's reconstructed prompt.
var phaseInstructions = map[core.Phase]string{
	core.PhaseRefinement:    "Discuss and refine the requirements for this iteration. The coach will signal when refinement is complete.",
	core.PhasePreCodeReview: "Confirm the task list and raise any concerns before implementation begins.",
	core.PhaseCodeReview:    "Review the merged diff for this layer and flag any issues before the next layer begins.",
}

// PMQuestion carries a coach ask_pm request out to the operator.
type PMQuestion struct {
	Question     string
	ResponseType string
	Options      []string
}

// Outcome summarizes what one Run call did, for the CLI to print.
type Outcome struct {
	Phase         core.Phase
	SessionTurns  int
	LayerComplete bool
	Blocked       []string
	PausedForApproval bool
	PendingCount  int
	// PhaseComplete is set when the coach signaled the phase is ready to
	// advance; the operator follows up with `advance`.
	PhaseComplete bool
	// PMQuestion is set when the coach asked the product manager for a
	// decision or feedback; the session halted awaiting the answer.
	PMQuestion *PMQuestion
}

// Run drives the iteration's current phase one session (or one
// implementation layer) forward and stops at the next natural boundary: an
// engine SessionComplete/PauseForApprovals, or an executor LayerComplete/
// SessionComplete/approval pause. It never itself advances the phase
// machine beyond the implementation -> code-review transition, which has
// no human decision point.
func (s *Supervisor) Run(ctx context.Context, iterID string) (*Outcome, error) {
	it, tasks, err := s.LoadIteration(iterID)
	if err != nil {
		return nil, err
	}
	if it.Status == core.IterationPending {
		if err := it.Start(); err != nil {
			return nil, err
		}
		if err := s.Store.UpsertIteration(it); err != nil {
			return nil, err
		}
	}

	team, err := s.Store.LoadTeam()
	if err != nil {
		return nil, err
	}

	if err := s.settleApprovals(ctx, iterID); err != nil {
		return nil, err
	}

	if it.Phase.UsesExecutor() {
		return s.runImplementationLayer(ctx, iterID, it, tasks, team)
	}
	return s.runEngineSession(ctx, iterID, it, tasks, team)
}

func (s *Supervisor) runEngineSession(ctx context.Context, iterID string, it *core.Iteration, tasks []*core.Task, team *core.TeamConfig) (*Outcome, error) {
	r, err := s.buildRoster(team)
	if err != nil {
		return nil, err
	}
	approvals, err := s.approvals(iterID)
	if err != nil {
		return nil, err
	}
	mediator := filemediator.New(s.Store.Root(), accessPolicy(team), approvals)

	agents := make([]engine.AgentClient, len(team.Agents))
	for i, a := range team.Agents {
		agents[i] = engine.AgentClient{Agent: a, Model: r.clients[a.Name], Mediator: mediator, Streaming: team.Streaming}
	}
	var coach *engine.AgentClient
	if team.Coach != nil {
		coach = &engine.AgentClient{
			Agent:     core.Agent{Name: team.Coach.Name, Role: team.Coach.Role},
			Model:     r.clients[team.Coach.Name],
			Mediator:  mediator,
			Streaming: team.Streaming,
		}
	}

	log := s.convlog(iterID)
	prior, err := log.ReadAll()
	if err != nil {
		return nil, err
	}
	scope, _ := readOptional(s.Store.ScopeSummaryPath(iterID))
	taskSummary := summarizeTasks(tasks)
	diffSummary := ""
	if it.Phase == core.PhaseCodeReview && team.Worktrees.Enabled {
		diffSummary = s.layerDiffSummary(ctx, it)
	}

	eng := engine.New(engine.Config{
		IterationID:       iterID,
		Phase:             it.Phase,
		Description:       it.Description,
		BaseSystemPrompt:  "You are a participant in a structured multi-agent software iteration.",
		PhaseInstructions: phaseInstructions[it.Phase],
		ScopeSummary:      scope,
		TaskListSummary:   taskSummary,
		DiffSummary:       diffSummary,
		MaxTurns:          it.MaxTurns,
		Agents:            agents,
		Coach:             coach,
		Approvals:         approvals,
		PriorMessages:     convlog.CurrentPhaseSegment(prior),
	})

	out := &Outcome{Phase: it.Phase}
	for ev := range eng.Run(ctx) {
		switch e := ev.(type) {
		case events.AppendMessage:
			if msg, ok := e.Message.(core.Message); ok {
				if err := log.Append(msg); err != nil {
					return nil, err
				}
			}
		case events.AppendDebug:
			_ = s.debugLog(iterID).Append(e.Record)
		case events.PauseForApprovals:
			out.PausedForApproval = true
			out.PendingCount = e.PendingCount
		case events.PhaseCompleteSignaled:
			out.PhaseComplete = true
		case events.CoachAskedPM:
			out.PMQuestion = &PMQuestion{
				Question:     e.Question,
				ResponseType: string(e.ResponseType),
				Options:      e.Options,
			}
		case events.SessionComplete:
			out.SessionTurns = e.TotalAgentTurns
		}
	}
	return out, nil
}

func (s *Supervisor) runImplementationLayer(ctx context.Context, iterID string, it *core.Iteration, tasks []*core.Task, team *core.TeamConfig) (*Outcome, error) {
	r, err := s.buildRoster(team)
	if err != nil {
		return nil, err
	}
	approvals, err := s.approvals(iterID)
	if err != nil {
		return nil, err
	}
	gitClient, err := s.vcsClient(team)
	if err != nil {
		return nil, err
	}
	var wm *vcs.WorktreeManager
	if gitClient != nil {
		wm = vcs.NewWorktreeManager(gitClient)
	}

	baseMediator := filemediator.New(s.Store.Root(), accessPolicy(team), approvals)
	layer := 0
	if it.CurrentLayer != nil {
		layer = *it.CurrentLayer
	}

	agents := make([]executor.AgentClient, len(team.Agents))
	for i, a := range team.Agents {
		agents[i] = executor.AgentClient{Agent: a, Model: r.clients[a.Name]}
	}

	mediatorFor := func(agentName string) *filemediator.Mediator {
		if wm == nil {
			return baseMediator
		}
		wt, err := wm.EnsureWorktree(ctx, agentName, layer, "main")
		if err != nil {
			return baseMediator
		}
		return baseMediator.WithRoot(wt.Path)
	}
	autoCommit := func(agentName string) (bool, error) {
		if wm == nil {
			return false, nil
		}
		wt, err := wm.EnsureWorktree(ctx, agentName, layer, "main")
		if err != nil {
			return false, err
		}
		return wm.AutoCommit(ctx, wt)
	}

	exec := executor.New(executor.Config{
		IterationID:        iterID,
		Layer:              layer,
		ProjectDescription: it.Description,
		Tasks:              tasks,
		Agents:             agents,
		MaxToolRounds:      executor.HardRoundCeiling,
		Approvals:          approvals,
		MediatorFor:        mediatorFor,
		ResumableFor:       s.Store.ResumableFor(iterID),
		PersistResumable:   s.Store.PersistResumable(iterID),
		ClearResumable:     s.Store.ClearResumable(iterID),
		PersistTasks:       func(t []*core.Task) error { return s.Store.SaveTasks(iterID, t) },
		AutoCommit:         autoCommit,
	})

	log := s.convlog(iterID)
	out := &Outcome{Phase: it.Phase}
	for ev := range exec.Run(ctx) {
		switch e := ev.(type) {
		case events.AppendMessage:
			if msg, ok := e.Message.(core.Message); ok {
				if err := log.Append(msg); err != nil {
					return nil, err
				}
			}
		case events.AppendDebug:
			_ = s.debugLog(iterID).Append(e.Record)
		case events.TaskBlocked:
			out.Blocked = append(out.Blocked, e.TaskIDs...)
		case events.LayerComplete:
			out.LayerComplete = true
		case events.SessionComplete:
		}
	}

	if out.LayerComplete {
		ctrl := s.controllerFor(iterID, it, tasks)
		// Next layer's worktrees are created lazily by mediatorFor on first
		// write, so there is nothing to pre-provision here.
		noopSetup := phasectl.WorktreeSetup(func() error { return nil })
		if err := ctrl.CompleteLayer(noopSetup); err != nil {
			return out, err
		}
		if err := s.Store.UpsertIteration(it); err != nil {
			return out, err
		}
	}

	return out, nil
}

// layerDiffSummary condenses the current layer's branch diffs into the
// stat lines code-review participants discuss. Diff failures degrade to an
// empty summary rather than blocking the session.
func (s *Supervisor) layerDiffSummary(ctx context.Context, it *core.Iteration) string {
	layer := 0
	if it.CurrentLayer != nil {
		layer = *it.CurrentLayer
	}
	diffs, err := s.DiffLayer(ctx, layer)
	if err != nil {
		return ""
	}
	var b strings.Builder
	for _, d := range diffs {
		if d.Empty {
			continue
		}
		fmt.Fprintf(&b, "branch %s: %d file(s), +%d/-%d\n%s\n", d.Branch, len(d.Files), d.Insertions, d.Deletions, d.Stat)
	}
	return b.String()
}

// settleApprovals replays any approved-but-unapplied writes against the
// requester's mediator and injects the outcome of undelivered denials into
// the conversation log as system messages, so the agent learns both on its
// next turn.
func (s *Supervisor) settleApprovals(ctx context.Context, iterID string) error {
	approvals, err := s.approvals(iterID)
	if err != nil {
		return err
	}
	for _, req := range approvals.UnappliedApprovals() {
		mediator, err := s.mediatorForApproval(ctx, iterID, req.Agent, approvals)
		if err != nil {
			return err
		}
		if err := mediator.ApplyApprovedWrite(req.Path, []byte(req.Content)); err != nil {
			return err
		}
		if err := approvals.MarkApplied(req.ID); err != nil {
			return err
		}
	}

	log := s.convlog(iterID)
	for _, req := range approvals.UninjectedDenials() {
		msg := core.Message{
			From:      core.SpeakerSystem,
			Iteration: iterID,
			Content:   fmt.Sprintf("Write to %s by %s was denied: %s", req.Path, req.Agent, req.DenialReason),
		}
		if err := log.Append(msg); err != nil {
			return err
		}
		if err := approvals.MarkInjected(req.ID); err != nil {
			return err
		}
	}
	return nil
}

func summarizeTasks(tasks []*core.Task) string {
	if len(tasks) == 0 {
		return ""
	}
	summary := ""
	for _, t := range tasks {
		summary += fmt.Sprintf("- [%s] layer %d, assigned %s, status %s: %s\n", t.ID, t.Layer, t.AssignedTo, t.Status, t.Description)
	}
	return summary
}

// readOptional reads path, returning an empty string (not an error) when it
// does not exist yet, since the scope summary only appears after refinement.
func readOptional(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}
