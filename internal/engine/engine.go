// Package engine drives a multi-agent conversation forward one turn at a
// time, emitting a strictly ordered event stream. It performs no I/O of
// its own beyond what its injected collaborators (model client, file
// mediator, conversation log reader) do.
package engine

import (
	"context"
	"fmt"

	"github.com/MBifolco/gotg-sub000/internal/convlog"
	"github.com/MBifolco/gotg-sub000/internal/core"
	"github.com/MBifolco/gotg-sub000/internal/events"
	"github.com/MBifolco/gotg-sub000/internal/filemediator"
	"github.com/MBifolco/gotg-sub000/internal/model"
)

// AgentClient pairs an agent's identity with the model client it talks to
// and the mediator enforcing its file-access policy.
type AgentClient struct {
	Agent     core.Agent
	Model     model.Client
	Mediator  *filemediator.Mediator
	Streaming bool
}

// Config configures one engine run.
type Config struct {
	IterationID    string
	Phase          core.Phase
	Description    string
	BaseSystemPrompt string
	PhaseInstructions string
	ScopeSummary   string
	TaskListSummary string
	DiffSummary    string
	MaxTurns       int
	Agents         []AgentClient
	Coach          *AgentClient
	Approvals      *filemediator.ApprovalStore
	// Log supplies the prior segment used for turn-count recovery and
	// prompt reconstruction; the engine never reads or writes it directly.
	PriorMessages []core.Message
}

// Engine drives one session from Config to a stop condition.
type Engine struct {
	cfg       Config
	agentNames []string
}

// New creates an engine for the given configuration.
func New(cfg Config) *Engine {
	names := make([]string, len(cfg.Agents))
	for i, a := range cfg.Agents {
		names[i] = a.Agent.Name
	}
	return &Engine{cfg: cfg, agentNames: names}
}

// Run drives the session, returning a channel of events closed when the
// engine stops. The caller pumps the channel; abandoning it (letting ctx
// expire or simply stopping the receive loop) cancels the session with no
// compensating action — the next run recovers turn count from the log.
func (e *Engine) Run(ctx context.Context) <-chan events.Event {
	out := make(chan events.Event, 8)
	go e.drive(ctx, out)
	return out
}

func (e *Engine) drive(ctx context.Context, out chan<- events.Event) {
	defer close(out)

	turn := recoverTurnCount(e.cfg.PriorMessages, e.agentNames)
	totalTurns := turn

	send := func(ev events.Event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !send(events.SessionStarted{
		Base:         events.NewBase(events.TypeSessionStarted, e.cfg.IterationID),
		Phase:        string(e.cfg.Phase),
		Participants: e.agentNames,
		Turn:         turn,
		MaxTurns:     e.cfg.MaxTurns,
	}) {
		return
	}

	messages := append([]core.Message{}, e.cfg.PriorMessages...)

	for turn < e.cfg.MaxTurns {
		agentClient := e.cfg.Agents[turn%len(e.cfg.Agents)]

		halted, newMessages, err := e.runAgentTurn(ctx, agentClient, messages, out, send)
		if err != nil {
			send(events.AppendMessage{
				Base:    events.NewBase(events.TypeAppendMessage, e.cfg.IterationID),
				Message: core.Message{From: core.SpeakerSystem, Iteration: e.cfg.IterationID, Content: fmt.Sprintf("agent %s failed: %s", agentClient.Agent.Name, err)},
			})
			return
		}
		messages = append(messages, newMessages...)
		turn++
		totalTurns++

		if halted {
			return
		}

		if e.cfg.Approvals != nil && len(e.cfg.Approvals.Pending()) > 0 {
			send(events.PauseForApprovals{
				Base:         events.NewBase(events.TypePauseForApprovals, e.cfg.IterationID),
				PendingCount: len(e.cfg.Approvals.Pending()),
			})
			return
		}

		if turn%len(e.cfg.Agents) == 0 && e.cfg.Coach != nil {
			coachHalted, coachMessages, err := e.runCoachTurn(ctx, messages, out, send)
			if err != nil {
				return
			}
			messages = append(messages, coachMessages...)
			if coachHalted {
				return
			}
		}
	}

	send(events.SessionComplete{
		Base:            events.NewBase(events.TypeSessionComplete, e.cfg.IterationID),
		TotalAgentTurns: totalTurns,
	})
}

// recoverTurnCount counts only messages whose sender is in the agent set;
// coach and system messages are excluded per the turn-count recovery rule.
func recoverTurnCount(messages []core.Message, agentNames []string) int {
	agentSet := make(map[string]bool, len(agentNames))
	for _, name := range agentNames {
		agentSet[name] = true
	}
	count := 0
	for _, m := range messages {
		if agentSet[m.From] {
			count++
		}
	}
	return count
}

func (e *Engine) buildPromptContext(agentName string, teammates []string) convlog.PromptContext {
	return convlog.PromptContext{
		BaseSystemPrompt:     e.cfg.BaseSystemPrompt,
		AgentName:            agentName,
		Teammates:            teammates,
		PhaseInstructions:    e.cfg.PhaseInstructions,
		ScopeSummary:         e.cfg.ScopeSummary,
		TaskListSummary:      e.cfg.TaskListSummary,
		DiffSummary:          e.cfg.DiffSummary,
		IterationDescription: e.cfg.Description,
	}
}

func teammatesExcluding(names []string, self string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != self {
			out = append(out, n)
		}
	}
	return out
}
