package executor

import (
	"fmt"

	"github.com/MBifolco/gotg-sub000/internal/core"
	"github.com/MBifolco/gotg-sub000/internal/events"
	"github.com/MBifolco/gotg-sub000/internal/filemediator"
	"github.com/MBifolco/gotg-sub000/internal/model"
)

// toolOutcome carries the bookkeeping one executed tool call feeds back
// into the agent loop: write tracking for drift checks, and task status
// mutations for complete_tasks/report_blocked.
type toolOutcome struct {
	isWrite        bool
	writtenPath    string
	writtenContent string
	completedIDs   []string
	blockedIDs     []string
	blockedReason  string
}

// executeTool runs one tool call through the file mediator or the two
// terminal tools, returning the model-visible result text alongside the
// bookkeeping the loop needs.
func (e *Executor) executeTool(mediator *filemediator.Mediator, agentName string, layerTasks []*core.Task, call model.ToolCall) (result string, status events.ToolCallStatus, byteCount int, path string, outcome toolOutcome) {
	switch call.Name {
	case filemediator.ToolFileRead:
		path, _ = call.Input["path"].(string)
		data, err := mediator.ReadFile(path)
		if err != nil {
			return err.Error(), events.ToolCallError, 0, path, outcome
		}
		return string(data), events.ToolCallOK, len(data), path, outcome

	case filemediator.ToolFileList:
		path, _ = call.Input["path"].(string)
		entries, err := mediator.ListDir(path)
		if err != nil {
			return err.Error(), events.ToolCallError, 0, path, outcome
		}
		names := make([]string, len(entries))
		for i, ent := range entries {
			names[i] = ent.Name()
		}
		return fmt.Sprintf("%v", names), events.ToolCallOK, 0, path, outcome

	case filemediator.ToolFileWrite:
		path, _ = call.Input["path"].(string)
		content, _ := call.Input["content"].(string)
		wr, err := mediator.WriteFile(agentName, path, []byte(content))
		if err != nil {
			return err.Error(), events.ToolCallError, 0, path, outcome
		}
		if wr.Outcome == filemediator.WritePendingApproval {
			return fmt.Sprintf("Pending approval [%s]: write to %s", wr.ApprovalID, path), events.ToolCallPendingApproval, len(content), path, outcome
		}
		outcome.isWrite = true
		outcome.writtenPath = path
		outcome.writtenContent = content
		return "write applied", events.ToolCallOK, len(content), path, outcome

	case toolCompleteTasks:
		return e.execCompleteTasks(agentName, layerTasks, call)

	case toolReportBlocked:
		return e.execReportBlocked(agentName, layerTasks, call)

	default:
		return "unrecognized tool: " + call.Name, events.ToolCallError, 0, "", outcome
	}
}

func (e *Executor) execCompleteTasks(agentName string, layerTasks []*core.Task, call model.ToolCall) (string, events.ToolCallStatus, int, string, toolOutcome) {
	ids := stringList(call.Input["task_ids"])
	summary, _ := call.Input["summary"].(string)

	owned, err := validateOwnedIDs(toolCompleteTasks, layerTasks, agentName, e.cfg.Layer, ids)
	if err != nil {
		return err.Error(), events.ToolCallError, 0, "", toolOutcome{}
	}

	var completed []string
	for _, t := range owned {
		t.MarkDone(agentName, summary)
		completed = append(completed, string(t.ID))
	}
	return fmt.Sprintf("marked done: %v", completed), events.ToolCallOK, 0, "", toolOutcome{completedIDs: completed}
}

func (e *Executor) execReportBlocked(agentName string, layerTasks []*core.Task, call model.ToolCall) (string, events.ToolCallStatus, int, string, toolOutcome) {
	ids := stringList(call.Input["task_ids"])
	reason, _ := call.Input["reason"].(string)

	owned, err := validateOwnedIDs(toolReportBlocked, layerTasks, agentName, e.cfg.Layer, ids)
	if err != nil {
		return err.Error(), events.ToolCallError, 0, "", toolOutcome{}
	}

	var blocked []string
	for _, t := range owned {
		t.MarkBlocked(agentName, reason)
		blocked = append(blocked, string(t.ID))
	}
	return fmt.Sprintf("marked blocked: %v", blocked), events.ToolCallOK, 0, "", toolOutcome{blockedIDs: blocked, blockedReason: reason}
}
