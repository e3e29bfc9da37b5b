package phasectl

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/MBifolco/gotg-sub000/internal/core"
)

// codeFencePattern strips a single leading/trailing markdown code fence
// (with an optional language tag) from a coach response, tolerating the
// common case where the model wraps JSON in ```json ... ``` even when
// asked for raw output.
var codeFencePattern = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*\\s*\n(.*?)\n?```\\s*$")

// taskListEntry mirrors the planning coach's JSON task record shape.
type taskListEntry struct {
	ID           string   `json:"id"`
	Description  string   `json:"description"`
	DoneCriteria string   `json:"done_criteria"`
	DependsOn    []string `json:"depends_on"`
	Approach     string   `json:"approach"`
	AntiPatterns []string `json:"anti_patterns"`
	Notes        string   `json:"notes"`
}

// ParseTaskList parses a coach-produced JSON task list, tolerant of a
// surrounding markdown code fence. It returns core.Task values with Layer
// left at zero; callers run dag.ComputeLayers afterward.
func ParseTaskList(raw string) ([]*core.Task, error) {
	cleaned := strings.TrimSpace(raw)
	if m := codeFencePattern.FindStringSubmatch(cleaned); m != nil {
		cleaned = strings.TrimSpace(m[1])
	}

	var entries []taskListEntry
	if err := json.Unmarshal([]byte(cleaned), &entries); err != nil {
		return nil, core.ErrValidation("TASK_LIST_UNPARSEABLE", "planning output is not valid JSON: "+err.Error())
	}

	tasks := make([]*core.Task, 0, len(entries))
	for _, e := range entries {
		deps := make([]core.TaskID, len(e.DependsOn))
		for i, d := range e.DependsOn {
			deps[i] = core.TaskID(d)
		}
		task := core.NewTask(core.TaskID(e.ID), e.Description, e.DoneCriteria, deps...)
		task.Approach = e.Approach
		task.AntiPatterns = e.AntiPatterns
		task.Notes = e.Notes
		if err := task.Validate(); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
