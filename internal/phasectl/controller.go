// Package phasectl drives the iteration lifecycle's finite state machine:
//
//	pending -> refinement -> planning -> pre-code-review -> implementation <-> code-review -> done
//
// Each transition validates its preconditions, mutates the iteration and
// task state, writes a phase-boundary log entry, and triggers a checkpoint
// before returning, per the invariant that every transition is durable.
package phasectl

import (
	"context"
	"fmt"

	"github.com/MBifolco/gotg-sub000/internal/core"
	"github.com/MBifolco/gotg-sub000/internal/dag"
)

// Checkpointer captures the iteration's current on-disk state. The phase
// controller calls it after every transition; internal/checkpoint supplies
// the concrete implementation.
type Checkpointer interface {
	Checkpoint(trigger core.CheckpointTrigger) error
}

// BoundaryWriter appends a phase-boundary message to the conversation log.
type BoundaryWriter interface {
	WritePhaseBoundary(from, to core.Phase) error
}

// Summarizer produces the scope-summary artifact from the refinement
// segment of the log. Callers typically implement this with a one-shot
// coach model call.
type Summarizer func(ctx context.Context) (string, error)

// Planner produces the raw (possibly code-fenced) JSON task list from the
// planning segment of the log. Callers typically implement this with a
// one-shot coach model call.
type Planner func(ctx context.Context) (string, error)

// WorktreeSetup prepares isolated worktrees for the next round of the
// implementation/code-review cycle. A no-op func is valid when worktrees
// are disabled.
type WorktreeSetup func() error

// Controller owns one iteration's phase and task state and the transition
// procedures between phases.
type Controller struct {
	Iteration *core.Iteration
	Tasks     []*core.Task

	checkpoints Checkpointer
	boundary    BoundaryWriter

	// persistScope and persistTasks save artifacts to disk; both are
	// optional so the controller is usable in tests without a filesystem.
	persistScope func(summary string) error
	persistTasks func(tasks []*core.Task) error
	persistRaw   func(raw string) error

	ScopeSummary string
}

// New creates a controller for the given iteration and its (possibly
// empty, pre-planning) task set.
func New(iteration *core.Iteration, tasks []*core.Task, checkpoints Checkpointer, boundary BoundaryWriter) *Controller {
	return &Controller{Iteration: iteration, Tasks: tasks, checkpoints: checkpoints, boundary: boundary}
}

// WithPersistence wires callbacks that write the scope summary, the parsed
// task list, and (on a planning failure) the raw unparsed planner output to
// disk. All three are optional.
func (c *Controller) WithPersistence(scope func(string) error, tasks func([]*core.Task) error, raw func(string) error) *Controller {
	c.persistScope = scope
	c.persistTasks = tasks
	c.persistRaw = raw
	return c
}

// AdvanceToPlanning runs refinement -> planning: the coach is re-invoked as
// a one-shot summarizer and its output is stored as the scope_summary
// artifact that subsequent phase prompts include.
func (c *Controller) AdvanceToPlanning(ctx context.Context, summarize Summarizer) error {
	if err := c.checkPreconditions(core.PhaseRefinement); err != nil {
		return err
	}
	summary, err := summarize(ctx)
	if err != nil {
		return core.ErrPhaseTransition("SUMMARIZER_FAILED", "refinement summarizer failed: "+err.Error())
	}
	c.ScopeSummary = summary
	if c.persistScope != nil {
		if err := c.persistScope(summary); err != nil {
			return err
		}
	}
	return c.transition(core.PhaseRefinement, core.PhasePlanning)
}

// AdvanceToPreCodeReview runs planning -> pre-code-review: the coach emits a
// JSON task list, which is parsed (tolerant of a surrounding code fence),
// laid out into dependency layers via a topological sort, and persisted. A
// parse failure or dependency cycle is non-recoverable: the raw output is
// saved to a sidecar file for operator inspection and the phase does not
// advance.
func (c *Controller) AdvanceToPreCodeReview(ctx context.Context, plan Planner) error {
	if err := c.checkPreconditions(core.PhasePlanning); err != nil {
		return err
	}
	raw, err := plan(ctx)
	if err != nil {
		return core.ErrPhaseTransition("PLANNER_FAILED", "planning coach failed: "+err.Error())
	}

	tasks, err := ParseTaskList(raw)
	if err != nil {
		c.saveRawOnFailure(raw)
		return err
	}
	if err := dag.ComputeLayers(tasks); err != nil {
		c.saveRawOnFailure(raw)
		return err
	}

	c.Tasks = tasks
	if c.persistTasks != nil {
		if err := c.persistTasks(tasks); err != nil {
			return err
		}
	}
	return c.transition(core.PhasePlanning, core.PhasePreCodeReview)
}

func (c *Controller) saveRawOnFailure(raw string) {
	if c.persistRaw != nil {
		_ = c.persistRaw(raw)
	}
}

// AdvanceToImplementation runs pre-code-review -> implementation: every
// task must have an assignee before work can start; an unassigned task is a
// hard stop returned to the supervisor for correction. Sets current_layer
// to 0.
func (c *Controller) AdvanceToImplementation() error {
	if err := c.checkPreconditions(core.PhasePreCodeReview); err != nil {
		return err
	}
	for _, t := range c.Tasks {
		if t.AssignedTo == "" {
			return core.ErrPhaseTransition("UNASSIGNED_TASK", fmt.Sprintf("task %s has no assignee", t.ID))
		}
	}
	c.Iteration.SetLayer(0)
	return c.transition(core.PhasePreCodeReview, core.PhaseImplementation)
}

// CompleteLayer runs implementation -> code-review. Called by the
// implementation executor once it reports the current layer complete. Runs
// the worktree setup hook for the next cycle round before transitioning.
func (c *Controller) CompleteLayer(setup WorktreeSetup) error {
	if err := c.checkPreconditions(core.PhaseImplementation); err != nil {
		return err
	}
	if setup != nil {
		if err := setup(); err != nil {
			return core.ErrPhaseTransition("WORKTREE_SETUP_FAILED", "worktree setup for next layer failed: "+err.Error())
		}
	}
	return c.transition(core.PhaseImplementation, core.PhaseCodeReview)
}

// AdvanceLayerOrComplete runs code-review -> {implementation, done}.
// Advancing past code-review requires every task with layer <=
// current_layer to be done. It advances current_layer; if a deeper layer
// still has tasks, it returns to implementation, otherwise it completes the
// iteration. Returns true when the iteration reached done.
func (c *Controller) AdvanceLayerOrComplete() (bool, error) {
	if err := c.checkPreconditions(core.PhaseCodeReview); err != nil {
		return false, err
	}
	current := currentLayer(c.Iteration)
	if !c.allDoneThroughLayer(current) {
		return false, core.ErrPhaseTransition("LAYER_INCOMPLETE", fmt.Sprintf("tasks at or before layer %d are not all done", current))
	}

	next := current + 1
	if c.hasTasksAtOrBeyond(next) {
		c.Iteration.SetLayer(next)
		if err := c.transition(core.PhaseCodeReview, core.PhaseImplementation); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := c.transition(core.PhaseCodeReview, core.PhaseDone); err != nil {
		return false, err
	}
	if err := c.Iteration.Complete(); err != nil {
		return false, err
	}
	return true, nil
}

func currentLayer(it *core.Iteration) int {
	if it.CurrentLayer == nil {
		return 0
	}
	return *it.CurrentLayer
}

func (c *Controller) allDoneThroughLayer(layer int) bool {
	for _, t := range c.Tasks {
		if t.Layer <= layer && t.Status != core.TaskStatusDone {
			return false
		}
	}
	return true
}

func (c *Controller) hasTasksAtOrBeyond(layer int) bool {
	for _, t := range c.Tasks {
		if t.Layer >= layer {
			return true
		}
	}
	return false
}

// checkPreconditions enforces the "advancing requires status == in-progress"
// invariant and that the controller is in the expected source phase.
func (c *Controller) checkPreconditions(expected core.Phase) error {
	if c.Iteration.Status != core.IterationInProgress {
		return core.ErrPhaseTransition("ITERATION_NOT_IN_PROGRESS", "iteration is not in-progress")
	}
	if c.Iteration.Phase != expected {
		return core.ErrPhaseTransition("UNEXPECTED_PHASE", fmt.Sprintf("expected phase %s, got %s", expected, c.Iteration.Phase))
	}
	return nil
}

// transition mutates the iteration's phase and runs the durability
// invariant: write a phase-boundary message, then checkpoint, before
// returning control to the caller.
func (c *Controller) transition(from, to core.Phase) error {
	c.Iteration.Phase = to
	if c.boundary != nil {
		if err := c.boundary.WritePhaseBoundary(from, to); err != nil {
			return err
		}
	}
	if c.checkpoints != nil {
		if err := c.checkpoints.Checkpoint(core.CheckpointAuto); err != nil {
			return err
		}
	}
	return nil
}
