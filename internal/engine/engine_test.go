package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MBifolco/gotg-sub000/internal/core"
	"github.com/MBifolco/gotg-sub000/internal/events"
	"github.com/MBifolco/gotg-sub000/internal/filemediator"
	"github.com/MBifolco/gotg-sub000/internal/model"
)

// stubClient returns a fixed round with no tool calls on every Complete.
type stubClient struct {
	content string
}

func (s *stubClient) Complete(_ context.Context, _ []model.Message, _ []model.ToolSchema, _ model.CacheControl) (*model.Round, error) {
	return &model.Round{Content: s.content, StopReason: model.StopEndTurn}, nil
}

func (s *stubClient) Stream(_ context.Context, _ []model.Message, _ []model.ToolSchema, _ model.CacheControl) (<-chan model.StreamChunk, error) {
	ch := make(chan model.StreamChunk, 1)
	ch <- model.StreamChunk{Done: true, Final: &model.Round{Content: s.content}}
	close(ch)
	return ch, nil
}

func (s *stubClient) CompleteAgentic(_ context.Context, _ []model.Message, _ []model.ToolSchema, _ model.ToolExecutor) (*model.AgenticResult, error) {
	return &model.AgenticResult{Text: s.content}, nil
}

func newTestAgentClient(name, content string) AgentClient {
	mediator := filemediator.New(".", core.DefaultFileAccessConfig(), nil)
	return AgentClient{
		Agent:    core.Agent{Name: name, Role: "engineer"},
		Model:    &stubClient{content: content},
		Mediator: mediator,
	}
}

func drainEvents(t *testing.T, ch <-chan events.Event) []events.Event {
	t.Helper()
	var out []events.Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestEngine_Run_TwoAgentsNoCoach_CompletesAtMaxTurns(t *testing.T) {
	cfg := Config{
		IterationID: "iter-1",
		Phase:       core.PhaseRefinement,
		Description: "build the widget",
		MaxTurns:    2,
		Agents: []AgentClient{
			newTestAgentClient("alice", "alice's thoughts"),
			newTestAgentClient("bob", "bob's thoughts"),
		},
	}
	e := New(cfg)

	out := drainEvents(t, e.Run(context.Background()))

	require.NotEmpty(t, out)
	assert.Equal(t, events.TypeSessionStarted, out[0].EventType())
	assert.Equal(t, events.TypeSessionComplete, out[len(out)-1].EventType())

	last := out[len(out)-1].(events.SessionComplete)
	assert.Equal(t, 2, last.TotalAgentTurns)
}

func TestEngine_Run_CoachInjectedAfterFullRotation(t *testing.T) {
	coach := newTestAgentClient("coach", "coach insight")
	cfg := Config{
		IterationID: "iter-1",
		Phase:       core.PhaseRefinement,
		Description: "build the widget",
		MaxTurns:    2,
		Agents: []AgentClient{
			newTestAgentClient("alice", "alice's thoughts"),
			newTestAgentClient("bob", "bob's thoughts"),
		},
		Coach: &coach,
	}
	e := New(cfg)

	out := drainEvents(t, e.Run(context.Background()))

	var sawCoachMessage bool
	for _, ev := range out {
		if appended, ok := ev.(events.AppendMessage); ok {
			if msg, ok := appended.Message.(core.Message); ok && msg.From == core.SpeakerCoach {
				sawCoachMessage = true
			}
		}
	}
	assert.True(t, sawCoachMessage)
}

// signalingCoach answers its first turn with signal_phase_complete.
type signalingCoach struct {
	stubClient
}

func (s *signalingCoach) CompleteAgentic(_ context.Context, _ []model.Message, _ []model.ToolSchema, _ model.ToolExecutor) (*model.AgenticResult, error) {
	return &model.AgenticResult{
		Text: "Done.",
		Traces: []model.ToolTrace{{
			Tool:  "signal_phase_complete",
			Input: map[string]interface{}{"summary": "scope agreed"},
		}},
	}, nil
}

func TestEngine_Run_CoachSignalHaltsAfterLoggingCoachMessage(t *testing.T) {
	coach := AgentClient{
		Agent:    core.Agent{Name: "coach", Role: "facilitator"},
		Model:    &signalingCoach{},
		Mediator: filemediator.New(".", core.DefaultFileAccessConfig(), nil),
	}
	cfg := Config{
		IterationID: "iter-1",
		Phase:       core.PhaseRefinement,
		Description: "build the widget",
		MaxTurns:    10,
		Agents: []AgentClient{
			newTestAgentClient("a1", "response 1"),
			newTestAgentClient("a2", "response 2"),
		},
		Coach: &coach,
	}
	out := drainEvents(t, New(cfg).Run(context.Background()))

	var senders []string
	signalIndex, coachMsgIndex := -1, -1
	for i, ev := range out {
		switch e := ev.(type) {
		case events.AppendMessage:
			if msg, ok := e.Message.(core.Message); ok {
				senders = append(senders, msg.From)
				if msg.From == core.SpeakerCoach {
					coachMsgIndex = i
					assert.Equal(t, "Done.", msg.Content)
				}
			}
		case events.PhaseCompleteSignaled:
			signalIndex = i
			assert.Equal(t, string(core.PhaseRefinement), e.Phase)
		}
	}

	assert.Equal(t, []string{"a1", "a2", core.SpeakerCoach}, senders)
	require.GreaterOrEqual(t, coachMsgIndex, 0)
	require.GreaterOrEqual(t, signalIndex, 0)
	assert.Less(t, coachMsgIndex, signalIndex, "coach message must be appended before the signal")
}

func TestRecoverTurnCount_ExcludesCoachAndSystemMessages(t *testing.T) {
	messages := []core.Message{
		{From: "alice", Content: "a"},
		{From: "coach", Content: "c"},
		{From: "bob", Content: "b"},
		{From: "system", Content: "s"},
	}

	count := recoverTurnCount(messages, []string{"alice", "bob"})

	assert.Equal(t, 2, count)
}

func TestTeammatesExcluding_RemovesSelf(t *testing.T) {
	out := teammatesExcluding([]string{"alice", "bob", "carol"}, "bob")

	assert.Equal(t, []string{"alice", "carol"}, out)
}
