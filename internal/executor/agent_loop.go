package executor

import (
	"context"
	"fmt"

	"github.com/MBifolco/gotg-sub000/internal/core"
	"github.com/MBifolco/gotg-sub000/internal/events"
	"github.com/MBifolco/gotg-sub000/internal/filemediator"
	"github.com/MBifolco/gotg-sub000/internal/model"
)

const (
	reminderEveryRounds    = 5
	reminderAfterWrites    = 3
	readOnlyStreakThreshold = 2
)

// loopState is the agent loop's in-flight bookkeeping, mirrored to
// core.ResumableState at the end of every round.
type loopState struct {
	messages            []model.Message
	round               int
	readOnlyStreak      int
	writesSinceReminder int
	hadToolActivity     bool
	nudgeIssued         bool
	writtenFiles        map[string]string
}

// runAgent runs one agent's bounded tool-call loop for this layer, resuming
// from persisted state when present. It returns true if the loop ended on
// an approval pause.
func (e *Executor) runAgent(ctx context.Context, ac AgentClient, layerTasks []*core.Task, out chan<- events.Event, send func(events.Event) bool) (bool, error) {
	agentName := ac.Agent.Name
	mediator := e.cfg.MediatorFor(agentName)
	myTasks := tasksForAgent(layerTasks, agentName)
	tools := standardTools()

	st := e.restoreOrSeedState(agentName, myTasks)

	for st.round < e.cfg.MaxToolRounds {
		mediator.ResetTurn()
		send(events.AppendDebug{
			Base:   events.NewBase(events.TypeAppendDebug, e.cfg.IterationID),
			Record: map[string]interface{}{"agent": agentName, "layer": e.cfg.Layer, "round": st.round, "messages": st.messages},
		})

		round, err := ac.Model.Complete(ctx, st.messages, tools, model.CacheControl{System: true, PenultimateIndex: len(st.messages) - 2})
		if err != nil {
			return false, err
		}
		round = model.ApplyTruncation(round)
		st.messages = append(st.messages, model.Message{Role: "assistant", Content: round.Content})

		if len(round.ToolCalls) == 0 {
			stillPending := anyActive(myTasks)
			if !stillPending {
				break
			}
			if st.nudgeIssued || !st.hadToolActivity {
				break
			}
			st.nudgeIssued = true
			st.messages = append(st.messages, model.Message{Role: "user", Content: "You still have pending tasks. Use a tool or call report_blocked."})
			st.round++
			e.persist(agentName, st)
			continue
		}

		roundReadOnly := true
		var resultLines string
		for _, call := range round.ToolCalls {
			result, status, byteCount, path, outcome := e.executeTool(mediator, agentName, layerTasks, call)
			send(events.ToolCallProgress{
				Base:      events.NewBase(events.TypeToolCallProgress, e.cfg.IterationID),
				Agent:     agentName,
				Tool:      call.Name,
				Path:      path,
				Status:    status,
				ByteCount: byteCount,
			})
			resultLines += fmt.Sprintf("[%s] %s\n", call.Name, result)
			st.hadToolActivity = true

			if !filemediator.ReadOnlyTools[call.Name] {
				roundReadOnly = false
			}
			if outcome.isWrite {
				st.writesSinceReminder++
				st.writtenFiles[outcome.writtenPath] = outcome.writtenContent
			}
			if len(outcome.blockedIDs) > 0 {
				send(events.TaskBlocked{
					Base:    events.NewBase(events.TypeTaskBlocked, e.cfg.IterationID),
					Agent:   agentName,
					Layer:   e.cfg.Layer,
					TaskIDs: outcome.blockedIDs,
					Reason:  outcome.blockedReason,
				})
				e.persistTasks()
			}
			if len(outcome.completedIDs) > 0 {
				e.persistTasks()
				send(events.AppendMessage{
					Base: events.NewBase(events.TypeAppendMessage, e.cfg.IterationID),
					Message: core.Message{From: agentName, Iteration: e.cfg.IterationID, Content: fmt.Sprintf("completed %v", outcome.completedIDs)},
				})
				if reverted := e.runDriftCheck(ctx, ac, myTasks, outcome.completedIDs, st.writtenFiles, send); reverted != "" {
					resultLines += reverted + "\n"
				}
			}
		}

		if roundReadOnly {
			st.readOnlyStreak++
		} else {
			st.readOnlyStreak = 0
		}

		st.messages = append(st.messages, model.Message{Role: "user", Content: resultLines})

		if st.readOnlyStreak >= readOnlyStreakThreshold {
			st.messages = append(st.messages, model.Message{Role: "user", Content: "Stop browsing: write a file or call report_blocked."})
		}

		st.round++
		if st.round%reminderEveryRounds == 0 || st.writesSinceReminder >= reminderAfterWrites {
			st.messages = append(st.messages, model.Message{Role: "user", Content: buildConstraintReminder(myTasks)})
			st.writesSinceReminder = 0
		}

		if e.cfg.Approvals != nil && len(e.cfg.Approvals.Pending()) > 0 {
			e.persist(agentName, st)
			send(events.PauseForApprovals{Base: events.NewBase(events.TypePauseForApprovals, e.cfg.IterationID), PendingCount: len(e.cfg.Approvals.Pending())})
			return true, nil
		}

		if !anyActive(myTasks) {
			break
		}

		e.persist(agentName, st)
	}

	if e.cfg.ClearResumable != nil {
		_ = e.cfg.ClearResumable(agentName)
	}
	return false, nil
}

func (e *Executor) restoreOrSeedState(agentName string, myTasks []*core.Task) *loopState {
	if e.cfg.ResumableFor != nil {
		if saved := e.cfg.ResumableFor(agentName); saved != nil && saved.Agent == agentName {
			return &loopState{
				messages:            fromTranscript(saved.Messages),
				round:               saved.Round,
				readOnlyStreak:      saved.ReadOnlyStreak,
				writesSinceReminder: saved.WritesSinceReminder,
				hadToolActivity:     saved.HadToolActivity,
				nudgeIssued:         saved.NudgeIssued,
				writtenFiles:        make(map[string]string),
			}
		}
	}
	return &loopState{
		messages:     buildImplementationPrompt(agentName, e.cfg.ProjectDescription, myTasks),
		writtenFiles: make(map[string]string),
	}
}

func (e *Executor) persist(agentName string, st *loopState) {
	if e.cfg.PersistResumable == nil {
		return
	}
	_ = e.cfg.PersistResumable(&core.ResumableState{
		Layer:               e.cfg.Layer,
		Agent:               agentName,
		Messages:            toTranscript(st.messages),
		Round:               st.round,
		ReadOnlyStreak:       st.readOnlyStreak,
		WritesSinceReminder: st.writesSinceReminder,
		HadToolActivity:     st.hadToolActivity,
		NudgeIssued:         st.nudgeIssued,
	})
}

func (e *Executor) persistTasks() {
	if e.cfg.PersistTasks != nil {
		_ = e.cfg.PersistTasks(e.cfg.Tasks)
	}
}

// runDriftCheck verifies the just-completed tasks against the files
// written for them, reverting to pending any task with a reported
// anti-pattern violation and returning the literal revert notice to
// surface into the same loop, or "" when nothing was reverted.
func (e *Executor) runDriftCheck(ctx context.Context, ac AgentClient, myTasks []*core.Task, completedIDs []string, writtenFiles map[string]string, send func(events.Event) bool) string {
	completed := make([]*core.Task, 0, len(completedIDs))
	for _, id := range completedIDs {
		if t := taskByID(myTasks, core.TaskID(id)); t != nil {
			completed = append(completed, t)
		}
	}
	if len(completed) == 0 {
		return ""
	}

	findings, err := checkDrift(ctx, ac.Model, writtenFiles, completed)
	if err != nil {
		return ""
	}

	var violated []DriftFinding
	for _, f := range findings {
		if !f.Violated() {
			continue
		}
		if t := taskByID(myTasks, core.TaskID(f.TaskID)); t != nil {
			t.MarkPending()
			violated = append(violated, f)
		}
	}
	if len(violated) == 0 {
		return ""
	}
	e.persistTasks()
	notice := formatDriftRevert(violated)
	send(events.AppendMessage{
		Base:    events.NewBase(events.TypeAppendMessage, e.cfg.IterationID),
		Message: core.Message{From: core.SpeakerSystem, Iteration: e.cfg.IterationID, Content: notice},
	})
	return notice
}

func anyActive(tasks []*core.Task) bool {
	for _, t := range tasks {
		if t.IsActive() {
			return true
		}
	}
	return false
}
