// Package executor is the implementation phase's per-layer dispatcher:
// it runs each assigned agent through a bounded tool-call loop,
// validates task-completion claims against a drift check, and persists
// round-by-round state so a crashed process can resume on the current
// agent's current round. It is a peer of internal/engine, not a caller of
// it — the implementation phase rejects the rotation model in favor of
// sequential per-agent dispatch within a layer.
package executor

import (
	"context"
	"sort"

	"github.com/MBifolco/gotg-sub000/internal/core"
	"github.com/MBifolco/gotg-sub000/internal/dag"
	"github.com/MBifolco/gotg-sub000/internal/events"
	"github.com/MBifolco/gotg-sub000/internal/filemediator"
	"github.com/MBifolco/gotg-sub000/internal/model"
)

// HardRoundCeiling is the absolute maximum tool-call rounds an agent gets
// in one layer, regardless of configuration.
const HardRoundCeiling = 25

// AgentClient pairs an agent's identity with the model client driving its
// implementation loop.
type AgentClient struct {
	Agent core.Agent
	Model model.Client
}

// Config configures one layer's implementation run.
type Config struct {
	IterationID         string
	Layer               int
	ProjectDescription  string
	Tasks               []*core.Task
	Agents              []AgentClient
	MaxToolRounds        int // default: phase turn limit; hard ceiling HardRoundCeiling
	Approvals           *filemediator.ApprovalStore

	// MediatorFor resolves the file mediator for one agent's writes,
	// routing approved writes into the requester's worktree so per-agent
	// isolation holds.
	MediatorFor func(agentName string) *filemediator.Mediator

	// ResumableFor returns the persisted resumable state for one agent, or
	// nil if none exists.
	ResumableFor func(agentName string) *core.ResumableState
	// PersistResumable writes resumable state atomically after each round.
	PersistResumable func(*core.ResumableState) error
	// ClearResumable invalidates resumable state on clean exit.
	ClearResumable func(agentName string) error

	// PersistTasks saves the task list after any status mutation
	// (completion, block, or drift revert).
	PersistTasks func([]*core.Task) error

	// AutoCommit commits a dirty worktree at layer end.
	AutoCommit func(agentName string) (bool, error)
}

// Executor drives one layer of the implementation phase to completion.
type Executor struct {
	cfg Config
}

// New creates an executor for the given layer configuration.
func New(cfg Config) *Executor {
	if cfg.MaxToolRounds <= 0 || cfg.MaxToolRounds > HardRoundCeiling {
		cfg.MaxToolRounds = HardRoundCeiling
	}
	return &Executor{cfg: cfg}
}

// Run drives the layer, returning a channel of events closed when the
// layer run stops (LayerComplete, SessionComplete, or an approval pause).
func (e *Executor) Run(ctx context.Context) <-chan events.Event {
	out := make(chan events.Event, 8)
	go e.drive(ctx, out)
	return out
}

func (e *Executor) drive(ctx context.Context, out chan<- events.Event) {
	defer close(out)

	send := func(ev events.Event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	layerTasks := filterLayer(e.cfg.Tasks, e.cfg.Layer)
	if len(layerTasks) == 0 {
		send(events.SessionComplete{Base: events.NewBase(events.TypeSessionComplete, e.cfg.IterationID)})
		return
	}

	activeAgents := e.activeAgentsInOrder(layerTasks)
	if len(activeAgents) == 0 {
		e.finishLayer(layerTasks, activeAgents, send)
		return
	}

	for _, ac := range activeAgents {
		paused, err := e.runAgent(ctx, ac, layerTasks, out, send)
		if err != nil {
			send(events.AppendMessage{
				Base: events.NewBase(events.TypeAppendMessage, e.cfg.IterationID),
				Message: core.Message{
					From:      core.SpeakerSystem,
					Iteration: e.cfg.IterationID,
					Content:   "agent " + ac.Agent.Name + " failed: " + err.Error(),
				},
			})
			return
		}
		if paused {
			return
		}
	}

	e.finishLayer(filterLayer(e.cfg.Tasks, e.cfg.Layer), activeAgents, send)
}

// finishLayer emits LayerComplete (with opportunistic auto-commit) when
// every layer task is done, or SessionComplete otherwise — there being
// nothing left this run can do (remaining tasks are blocked).
func (e *Executor) finishLayer(layerTasks []*core.Task, ranAgents []AgentClient, send func(events.Event) bool) {
	if !allDone(layerTasks) {
		send(events.SessionComplete{Base: events.NewBase(events.TypeSessionComplete, e.cfg.IterationID)})
		return
	}
	if e.cfg.AutoCommit != nil {
		for _, ac := range ranAgents {
			_, _ = e.cfg.AutoCommit(ac.Agent.Name)
		}
	}
	send(events.LayerComplete{
		Base:         events.NewBase(events.TypeLayerComplete, e.cfg.IterationID),
		Layer:        e.cfg.Layer,
		CompletedIDs: idsOf(layerTasks),
	})
}

// activeAgentsInOrder returns, in the roster order given to Config, every
// agent with at least one ready (non-done, non-blocked) task in this layer.
func (e *Executor) activeAgentsInOrder(layerTasks []*core.Task) []AgentClient {
	active := make(map[string]bool)
	for _, t := range dag.ReadyTasks(layerTasks, e.cfg.Layer) {
		active[t.AssignedTo] = true
	}
	var out []AgentClient
	for _, ac := range e.cfg.Agents {
		if active[ac.Agent.Name] {
			out = append(out, ac)
		}
	}
	return out
}

func filterLayer(tasks []*core.Task, layer int) []*core.Task {
	out := make([]*core.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Layer == layer {
			out = append(out, t)
		}
	}
	return out
}

func tasksForAgent(tasks []*core.Task, agentName string) []*core.Task {
	out := make([]*core.Task, 0)
	for _, t := range tasks {
		if t.AssignedTo == agentName {
			out = append(out, t)
		}
	}
	return out
}

func allDone(tasks []*core.Task) bool {
	for _, t := range tasks {
		if t.Status != core.TaskStatusDone {
			return false
		}
	}
	return true
}

func idsOf(tasks []*core.Task) []string {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, string(t.ID))
	}
	sort.Strings(ids)
	return ids
}
