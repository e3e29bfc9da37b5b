package supervisor

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/MBifolco/gotg-sub000/internal/core"
)

// NewIteration creates, persists, and marks current a new iteration.
func (s *Supervisor) NewIteration(description string, maxTurns int) (*core.Iteration, error) {
	id := fmt.Sprintf("iter-%s", uuid.New().String()[:8])
	it := core.NewIteration(id, description, maxTurns)
	if err := s.Store.UpsertIteration(it); err != nil {
		return nil, err
	}
	file, err := s.Store.LoadIterations()
	if err != nil {
		return nil, err
	}
	file.Current = id
	if err := s.Store.SaveIterations(file); err != nil {
		return nil, err
	}
	return it, nil
}

// AppendHumanMessage appends the product manager's reply to the
// conversation log. Human messages do not consume a turn slot, so the next
// run resumes with the same agent rotation.
func (s *Supervisor) AppendHumanMessage(iterID, content string) error {
	return s.convlog(iterID).Append(core.Message{
		From:      core.SpeakerHuman,
		Iteration: iterID,
		Content:   content,
	})
}

// Status summarizes one iteration's progress for the `status` command.
type Status struct {
	Iteration *core.Iteration
	Tasks     []*core.Task
	Pending   int
	Done      int
	Blocked   int
}

// StatusFor builds a Status summary for one iteration.
func (s *Supervisor) StatusFor(iterID string) (*Status, error) {
	it, tasks, err := s.LoadIteration(iterID)
	if err != nil {
		return nil, err
	}
	st := &Status{Iteration: it, Tasks: tasks}
	for _, t := range tasks {
		switch t.Status {
		case core.TaskStatusPending:
			st.Pending++
		case core.TaskStatusDone:
			st.Done++
		case core.TaskStatusBlocked:
			st.Blocked++
		}
	}
	return st, nil
}
