package executor

import (
	"github.com/MBifolco/gotg-sub000/internal/core"
	"github.com/MBifolco/gotg-sub000/internal/filemediator"
	"github.com/MBifolco/gotg-sub000/internal/model"
)

const (
	toolCompleteTasks = "complete_tasks"
	toolReportBlocked = "report_blocked"
)

// standardTools returns the file tools every agent has, plus the two
// terminal tools synthesized for the implementation phase.
func standardTools() []model.ToolSchema {
	tools := filemediator.ToolSchemas()
	return append(tools, completeTasksTool(), reportBlockedTool())
}

func completeTasksTool() model.ToolSchema {
	return model.ToolSchema{
		Name:        toolCompleteTasks,
		Description: "Mark one or more of your assigned tasks in this layer as done.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"task_ids": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				"summary":  map[string]interface{}{"type": "string"},
			},
			"required": []string{"task_ids", "summary"},
		},
	}
}

func reportBlockedTool() model.ToolSchema {
	return model.ToolSchema{
		Name:        toolReportBlocked,
		Description: "Report that one or more of your assigned tasks cannot proceed.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"task_ids": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				"reason":   map[string]interface{}{"type": "string"},
			},
			"required": []string{"task_ids", "reason"},
		},
	}
}

// stringList extracts a []string from a decoded JSON tool-call input field
// that may arrive as []interface{} (from JSON) or []string (from tests
// constructing calls directly).
func stringList(v interface{}) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// taskByID looks up a task by id within the layer's task set.
func taskByID(tasks []*core.Task, id core.TaskID) *core.Task {
	for _, t := range tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// validateOwnedIDs checks every requested id belongs to this layer and this
// agent, returning the subset of tasks that still need the requested
// transition (already-done tasks are silently skipped, which keeps the
// call idempotent on replay).
func validateOwnedIDs(tool string, tasks []*core.Task, agentName string, layer int, ids []string) ([]*core.Task, error) {
	if len(ids) == 0 {
		return nil, core.ErrToolMalformed(tool, "task_ids must not be empty")
	}
	var owned []*core.Task
	for _, rawID := range ids {
		id := core.TaskID(rawID)
		t := taskByID(tasks, id)
		if t == nil {
			return nil, core.ErrToolMalformed(tool, "unknown task id: "+rawID)
		}
		if t.AssignedTo != agentName || t.Layer != layer {
			return nil, core.ErrToolMalformed(tool, "task "+rawID+" is not assigned to "+agentName+" in this layer")
		}
		if t.Status == core.TaskStatusDone {
			continue
		}
		owned = append(owned, t)
	}
	return owned, nil
}
