package executor

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MBifolco/gotg-sub000/internal/core"
	"github.com/MBifolco/gotg-sub000/internal/events"
	"github.com/MBifolco/gotg-sub000/internal/filemediator"
	"github.com/MBifolco/gotg-sub000/internal/model"
)

// scriptedClient returns one *model.Round per call to Complete, advancing
// through a fixed script and repeating the last entry once exhausted.
type scriptedClient struct {
	rounds []model.Round
	calls  int
}

func (s *scriptedClient) next() *model.Round {
	i := s.calls
	if i >= len(s.rounds) {
		i = len(s.rounds) - 1
	}
	s.calls++
	r := s.rounds[i]
	return &r
}

func (s *scriptedClient) Complete(_ context.Context, _ []model.Message, _ []model.ToolSchema, _ model.CacheControl) (*model.Round, error) {
	return s.next(), nil
}

func (s *scriptedClient) Stream(_ context.Context, _ []model.Message, _ []model.ToolSchema, _ model.CacheControl) (<-chan model.StreamChunk, error) {
	ch := make(chan model.StreamChunk, 1)
	r := s.next()
	ch <- model.StreamChunk{Done: true, Final: r}
	close(ch)
	return ch, nil
}

func (s *scriptedClient) CompleteAgentic(_ context.Context, _ []model.Message, _ []model.ToolSchema, _ model.ToolExecutor) (*model.AgenticResult, error) {
	r := s.next()
	return &model.AgenticResult{Text: r.Content}, nil
}

func drainEvents(t *testing.T, ch <-chan events.Event) []events.Event {
	t.Helper()
	var out []events.Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func testMediator(t *testing.T) *filemediator.Mediator {
	t.Helper()
	return filemediator.New(t.TempDir(), core.DefaultFileAccessConfig(), nil)
}

func baseConfig(t *testing.T, agents []AgentClient, tasks []*core.Task) Config {
	t.Helper()
	mediators := map[string]*filemediator.Mediator{}
	for _, ac := range agents {
		mediators[ac.Agent.Name] = testMediator(t)
	}
	return Config{
		IterationID:        "iter-1",
		Layer:              1,
		ProjectDescription: "build the widget",
		Tasks:              tasks,
		Agents:             agents,
		MaxToolRounds:      5,
		MediatorFor: func(agent string) *filemediator.Mediator {
			return mediators[agent]
		},
		PersistTasks: func([]*core.Task) error { return nil },
	}
}

func TestRun_NoLayerTasks_EmitsSessionComplete(t *testing.T) {
	cfg := baseConfig(t, nil, nil)
	cfg.Layer = 9
	e := New(cfg)

	out := drainEvents(t, e.Run(context.Background()))

	require.Len(t, out, 1)
	assert.Equal(t, events.TypeSessionComplete, out[0].EventType())
}

func TestRun_AgentCompletesTask_EmitsLayerComplete(t *testing.T) {
	task := core.NewTask("t1", "write the widget", "widget.go exists")
	task.AssignedTo = "alice"
	task.Layer = 1

	client := &scriptedClient{rounds: []model.Round{
		{
			Content:    "writing now",
			ToolCalls:  []model.ToolCall{{Name: filemediator.ToolFileWrite, Input: map[string]interface{}{"path": "widget.go", "content": "package widget"}}},
			StopReason: model.StopToolUse,
		},
		{
			Content:    "done",
			ToolCalls:  []model.ToolCall{{Name: toolCompleteTasks, Input: map[string]interface{}{"task_ids": []interface{}{"t1"}, "summary": "wrote it"}}},
			StopReason: model.StopToolUse,
		},
	}}

	agent := AgentClient{Agent: core.Agent{Name: "alice", Role: "engineer"}, Model: client}
	cfg := baseConfig(t, []AgentClient{agent}, []*core.Task{task})

	e := New(cfg)
	out := drainEvents(t, e.Run(context.Background()))

	require.NotEmpty(t, out)
	last := out[len(out)-1]
	require.Equal(t, events.TypeLayerComplete, last.EventType())
	lc := last.(events.LayerComplete)
	assert.Equal(t, []string{"t1"}, lc.CompletedIDs)
	assert.Equal(t, core.TaskStatusDone, task.Status)
}

func TestRun_ReportBlocked_EmitsTaskBlockedAndSessionComplete(t *testing.T) {
	task := core.NewTask("t1", "write the widget", "widget.go exists")
	task.AssignedTo = "alice"
	task.Layer = 1

	client := &scriptedClient{rounds: []model.Round{
		{
			Content:    "blocked",
			ToolCalls:  []model.ToolCall{{Name: toolReportBlocked, Input: map[string]interface{}{"task_ids": []interface{}{"t1"}, "reason": "missing dependency"}}},
			StopReason: model.StopToolUse,
		},
	}}

	agent := AgentClient{Agent: core.Agent{Name: "alice", Role: "engineer"}, Model: client}
	cfg := baseConfig(t, []AgentClient{agent}, []*core.Task{task})

	e := New(cfg)
	out := drainEvents(t, e.Run(context.Background()))

	var sawBlocked, sawSessionComplete bool
	for _, ev := range out {
		switch tev := ev.(type) {
		case events.TaskBlocked:
			sawBlocked = true
			assert.Equal(t, []string{"t1"}, tev.TaskIDs)
			assert.Equal(t, "missing dependency", tev.Reason)
		case events.SessionComplete:
			sawSessionComplete = true
		}
	}
	assert.True(t, sawBlocked)
	assert.True(t, sawSessionComplete)
	assert.Equal(t, core.TaskStatusBlocked, task.Status)
}

func TestRun_DriftCheckRevertsCompletion(t *testing.T) {
	task := core.NewTask("t1", "write the widget", "widget.go exists")
	task.AssignedTo = "alice"
	task.Layer = 1
	task.AntiPatterns = []string{"Do not use eval"}

	implClient := &scriptedClient{rounds: []model.Round{
		{
			Content:    "writing now",
			ToolCalls:  []model.ToolCall{{Name: filemediator.ToolFileWrite, Input: map[string]interface{}{"path": "widget.go", "content": "eval(x)"}}},
			StopReason: model.StopToolUse,
		},
		{
			Content:   "done",
			ToolCalls: []model.ToolCall{{Name: toolCompleteTasks, Input: map[string]interface{}{"task_ids": []interface{}{"t1"}, "summary": "wrote it"}}},
			StopReason: model.StopToolUse,
		},
		{
			Content:    "trying again",
			ToolCalls:  []model.ToolCall{{Name: toolReportBlocked, Input: map[string]interface{}{"task_ids": []interface{}{"t1"}, "reason": "need guidance after revert"}}},
			StopReason: model.StopToolUse,
		},
	}}

	agent := AgentClient{
		Agent: core.Agent{Name: "alice", Role: "engineer"},
		Model: &driftingClient{impl: implClient, driftFinding: `[{"task_id":"t1","approach_ok":true,"anti_pattern_violations":["used eval"],"done_criteria_ok":false,"notes":"violates anti-pattern"}]`},
	}
	cfg := baseConfig(t, []AgentClient{agent}, []*core.Task{task})

	e := New(cfg)
	out := drainEvents(t, e.Run(context.Background()))

	var sawRevertNotice bool
	for _, ev := range out {
		if am, ok := ev.(events.AppendMessage); ok {
			if msg, ok := am.Message.(core.Message); ok && strings.HasPrefix(msg.Content, driftRevertMessage) {
				sawRevertNotice = true
			}
		}
	}
	assert.True(t, sawRevertNotice, "expected the drift revert notice to surface in the conversation log")
	assert.Equal(t, core.TaskStatusBlocked, task.Status)
}

// driftingClient routes the implementation rounds to impl, and the one-shot
// drift-check call (system-role "verifier" prompt, no tools offered) to a
// scripted finding.
type driftingClient struct {
	impl         *scriptedClient
	driftFinding string
}

func (d *driftingClient) Complete(ctx context.Context, messages []model.Message, tools []model.ToolSchema, cache model.CacheControl) (*model.Round, error) {
	if tools == nil && len(messages) > 0 && messages[0].Role == "system" {
		return &model.Round{Content: d.driftFinding, StopReason: model.StopEndTurn}, nil
	}
	return d.impl.Complete(ctx, messages, tools, cache)
}

func (d *driftingClient) Stream(ctx context.Context, messages []model.Message, tools []model.ToolSchema, cache model.CacheControl) (<-chan model.StreamChunk, error) {
	return d.impl.Stream(ctx, messages, tools, cache)
}

func (d *driftingClient) CompleteAgentic(ctx context.Context, messages []model.Message, tools []model.ToolSchema, exec model.ToolExecutor) (*model.AgenticResult, error) {
	return d.impl.CompleteAgentic(ctx, messages, tools, exec)
}

func TestRun_PendingApprovals_PausesAndPersistsResumable(t *testing.T) {
	task := core.NewTask("t1", "write the widget", "widget.go exists")
	task.AssignedTo = "alice"
	task.Layer = 1

	client := &scriptedClient{rounds: []model.Round{
		{
			Content:    "writing now",
			ToolCalls:  []model.ToolCall{{Name: filemediator.ToolFileWrite, Input: map[string]interface{}{"path": "widget.go", "content": "package widget"}}},
			StopReason: model.StopToolUse,
		},
	}}

	agent := AgentClient{Agent: core.Agent{Name: "alice", Role: "engineer"}, Model: client}
	cfg := baseConfig(t, []AgentClient{agent}, []*core.Task{task})

	approvals, err := filemediator.NewApprovalStore(t.TempDir() + "/approvals.json")
	require.NoError(t, err)
	cfg.Approvals = approvals

	var persisted *core.ResumableState
	cfg.PersistResumable = func(st *core.ResumableState) error {
		persisted = st
		return nil
	}
	cfg.MediatorFor = func(agent string) *filemediator.Mediator {
		return filemediator.New(t.TempDir(), core.FileAccessConfig{WritablePaths: []string{}, EnableApprovals: true}, approvals)
	}

	e := New(cfg)
	out := drainEvents(t, e.Run(context.Background()))

	var sawPause bool
	for _, ev := range out {
		if _, ok := ev.(events.PauseForApprovals); ok {
			sawPause = true
		}
	}
	assert.True(t, sawPause)
	require.NotNil(t, persisted)
	assert.Equal(t, "alice", persisted.Agent)
}

func TestRunAgent_ResumesFromPersistedState(t *testing.T) {
	task := core.NewTask("t1", "write the widget", "widget.go exists")
	task.AssignedTo = "alice"
	task.Layer = 1

	client := &scriptedClient{rounds: []model.Round{
		{
			Content:    "done",
			ToolCalls:  []model.ToolCall{{Name: toolCompleteTasks, Input: map[string]interface{}{"task_ids": []interface{}{"t1"}, "summary": "wrote it"}}},
			StopReason: model.StopToolUse,
		},
	}}

	agent := AgentClient{Agent: core.Agent{Name: "alice", Role: "engineer"}, Model: client}
	cfg := baseConfig(t, []AgentClient{agent}, []*core.Task{task})

	saved := &core.ResumableState{
		Layer: 1,
		Agent: "alice",
		Messages: []core.TranscriptEntry{
			{Role: "system", Content: "You are an autonomous implementation agent."},
			{Role: "user", Content: "resume where you left off"},
		},
		Round: 3,
	}
	cfg.ResumableFor = func(agent string) *core.ResumableState {
		if agent == "alice" {
			return saved
		}
		return nil
	}
	var cleared bool
	cfg.ClearResumable = func(agent string) error {
		cleared = true
		return nil
	}

	e := New(cfg)
	out := drainEvents(t, e.Run(context.Background()))

	require.NotEmpty(t, out)
	assert.Equal(t, events.TypeLayerComplete, out[len(out)-1].EventType())
	assert.True(t, cleared)
	assert.Equal(t, 1, client.calls)
}
