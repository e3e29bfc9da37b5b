package model

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MBifolco/gotg-sub000/internal/config"
)

func TestToOpenAIMessages_RoleMapping(t *testing.T) {
	in := []Message{
		{Role: "system", Content: "be helpful"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
		{Role: "tool", Content: "result", ToolCallID: "call_1"},
	}

	out := toOpenAIMessages(in)

	require.Len(t, out, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, out[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, out[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, out[2].Role)
	assert.Equal(t, openai.ChatMessageRoleTool, out[3].Role)
	assert.Equal(t, "call_1", out[3].ToolCallID)
}

func TestToOpenAITools(t *testing.T) {
	tools := []ToolSchema{
		{Name: "file_read", Description: "reads a file", InputSchema: map[string]interface{}{"type": "object"}},
	}

	out := toOpenAITools(tools)

	require.Len(t, out, 1)
	assert.Equal(t, openai.ToolTypeFunction, out[0].Type)
	assert.Equal(t, "file_read", out[0].Function.Name)
}

func TestFromOpenAIFinishReason(t *testing.T) {
	cases := map[openai.FinishReason]StopReason{
		openai.FinishReasonToolCalls: StopToolUse,
		openai.FinishReasonLength:    StopMaxTokens,
		openai.FinishReasonStop:      StopEndTurn,
	}
	for in, want := range cases {
		assert.Equal(t, want, fromOpenAIFinishReason(in))
	}
}

func TestMergeToolCallDeltas_AccumulatesFragments(t *testing.T) {
	idx0 := 0
	deltas := []openai.ToolCall{
		{Index: &idx0, ID: "call_1", Type: openai.ToolTypeFunction, Function: openai.FunctionCall{Name: "file_", Arguments: `{"pa`}},
		{Index: &idx0, Function: openai.FunctionCall{Name: "write", Arguments: `th":"a.go"}`}},
	}

	acc := mergeToolCallDeltas(nil, deltas)

	require.Len(t, acc, 1)
	assert.Equal(t, "call_1", acc[0].ID)
	assert.Equal(t, "file_write", acc[0].Function.Name)
	assert.Equal(t, `{"path":"a.go"}`, acc[0].Function.Arguments)
}

func TestApplyTruncation_DropsToolCallsOnMaxTokens(t *testing.T) {
	in := &Round{
		StopReason: StopMaxTokens,
		ToolCalls:  []ToolCall{{ID: "1", Name: "file_write"}},
	}

	out := ApplyTruncation(in)

	assert.Empty(t, out.ToolCalls)
	assert.NotEmpty(t, out.Content)
}

func TestApplyTruncation_LeavesNormalRoundsUnchanged(t *testing.T) {
	in := &Round{
		StopReason: StopToolUse,
		ToolCalls:  []ToolCall{{ID: "1", Name: "file_write"}},
		Content:    "doing work",
	}

	out := ApplyTruncation(in)

	assert.Len(t, out.ToolCalls, 1)
	assert.Equal(t, "doing work", out.Content)
}

func TestNewClientFromConfig_UnknownProvider(t *testing.T) {
	_, err := NewClientFromConfig(config.ModelDefaults{Provider: "bogus"}, "", nil)
	assert.Error(t, err)
}
