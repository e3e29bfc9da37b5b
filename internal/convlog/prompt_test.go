package convlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MBifolco/gotg-sub000/internal/core"
)

func TestTranslateAndConsolidate_ConsecutiveNonSelfMessagesFold(t *testing.T) {
	segment := []core.Message{
		{From: "alice", Content: "first point"},
		{From: "bob", Content: "second point"},
		{From: "carol", Content: "my own turn"},
	}

	out := translateAndConsolidate(segment, "carol")

	require.Len(t, out, 2)
	assert.Equal(t, "user", out[0].Role)
	assert.Contains(t, out[0].Content, "[alice] add the following to the conversation:\nfirst point")
	assert.Contains(t, out[0].Content, "[bob] add the following to the conversation:\nsecond point")
	assert.Equal(t, "assistant", out[1].Role)
	assert.Equal(t, "my own turn", out[1].Content)
}

func TestTranslateAndConsolidate_ExactPrefixString(t *testing.T) {
	segment := []core.Message{{From: "coach", Content: "summary"}}

	out := translateAndConsolidate(segment, "alice")

	require.Len(t, out, 1)
	assert.Equal(t, "[coach] add the following to the conversation:\nsummary", out[0].Content)
}

func TestFilterForAgent_DropsPassTurnMessages(t *testing.T) {
	segment := []core.Message{
		{From: "alice", Content: "visible"},
		{From: "bob", Content: "hidden", PassTurn: true},
	}

	out := filterForAgent(segment, "carol")

	require.Len(t, out, 1)
	assert.Equal(t, "visible", out[0].Content)
}

func TestBuildPrompt_SeedsWhenSegmentEmpty(t *testing.T) {
	ctx := PromptContext{
		BaseSystemPrompt:     "be a good teammate",
		AgentName:            "alice",
		IterationDescription: "build the widget",
	}

	out := BuildPrompt(ctx, nil)

	require.Len(t, out, 2)
	assert.Equal(t, "system", out[0].Role)
	assert.Equal(t, "user", out[1].Role)
	assert.Equal(t, "The task is: build the widget. What are your initial thoughts?", out[1].Content)
}

func TestBuildPrompt_SkipsSeedWhenTranscriptExists(t *testing.T) {
	ctx := PromptContext{AgentName: "alice", IterationDescription: "build the widget"}
	segment := []core.Message{{From: "bob", Content: "hi"}}

	out := BuildPrompt(ctx, segment)

	require.Len(t, out, 2)
	assert.Equal(t, "system", out[0].Role)
	assert.Equal(t, "user", out[1].Role)
	assert.Contains(t, out[1].Content, "hi")
}

func TestCurrentPhaseSegment_KeepsOnlyAfterLastBoundary(t *testing.T) {
	messages := []core.Message{
		{From: "alice", Content: "refinement talk"},
		{From: "system", PhaseBoundary: true, FromPhase: "refinement", ToPhase: "planning"},
		{From: "bob", Content: "planning talk"},
	}

	segment := CurrentPhaseSegment(messages)

	require.Len(t, segment, 1)
	assert.Equal(t, "planning talk", segment[0].Content)
}

func TestCurrentPhaseSegment_ReturnsAllWhenNoBoundary(t *testing.T) {
	messages := []core.Message{{From: "alice", Content: "a"}, {From: "bob", Content: "b"}}

	segment := CurrentPhaseSegment(messages)

	assert.Len(t, segment, 2)
}
