package core

// TaskID uniquely identifies a task within an iteration.
type TaskID string

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusDone    TaskStatus = "done"
	TaskStatusBlocked TaskStatus = "blocked"
)

// Task is a planning-phase output: a unit of implementation work assigned
// to one agent within one dependency layer. Layer is derived by
// compute_layers (see dag.go) and is never set directly by callers outside
// the phase controller.
type Task struct {
	ID           TaskID     `json:"id"`
	Description  string     `json:"description"`
	DoneCriteria string     `json:"done_criteria"`
	DependsOn    []TaskID   `json:"depends_on"`
	AssignedTo   string     `json:"assigned_to,omitempty"`
	Status       TaskStatus `json:"status"`
	Layer        int        `json:"layer"`

	Approach     string   `json:"approach,omitempty"`
	AntiPatterns []string `json:"anti_patterns,omitempty"`
	Notes        string   `json:"notes,omitempty"`

	CompletionSummary string `json:"completion_summary,omitempty"`
	CompletedBy       string `json:"completed_by,omitempty"`
	BlockedReason     string `json:"blocked_reason,omitempty"`
	BlockedBy         string `json:"blocked_by,omitempty"`
}

// NewTask creates a new pending task.
func NewTask(id TaskID, description, doneCriteria string, deps ...TaskID) *Task {
	return &Task{
		ID:           id,
		Description:  description,
		DoneCriteria: doneCriteria,
		DependsOn:    deps,
		Status:       TaskStatusPending,
	}
}

// MarkDone transitions the task to done, retaining a completion summary per
// the data-model invariant that done tasks retain it.
func (t *Task) MarkDone(completedBy, summary string) {
	t.Status = TaskStatusDone
	t.CompletedBy = completedBy
	t.CompletionSummary = summary
	t.BlockedReason = ""
	t.BlockedBy = ""
}

// MarkPending reverts a task to pending. Used when a drift check reverts a
// completion claim.
func (t *Task) MarkPending() {
	t.Status = TaskStatusPending
	t.CompletionSummary = ""
	t.CompletedBy = ""
}

// MarkBlocked transitions the task to blocked, retaining the reason per the
// data-model invariant that blocked tasks retain it.
func (t *Task) MarkBlocked(blockedBy, reason string) {
	t.Status = TaskStatusBlocked
	t.BlockedBy = blockedBy
	t.BlockedReason = reason
}

// IsActive reports whether the task still needs work from its assignee
// (neither done nor blocked).
func (t *Task) IsActive() bool {
	return t.Status == TaskStatusPending
}

// Validate checks structural task invariants.
func (t *Task) Validate() error {
	if t.ID == "" {
		return ErrValidation("TASK_ID_REQUIRED", "task ID cannot be empty")
	}
	if t.Description == "" {
		return ErrValidation("TASK_DESCRIPTION_REQUIRED", "task "+string(t.ID)+" has no description")
	}
	return nil
}
