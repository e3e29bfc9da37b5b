// Package model defines the narrow model-client capability surface used by
// the session engine and implementation executor, and its two concrete
// provider adapters (Anthropic, OpenAI-compatible).
package model

import "context"

// ToolSchema describes one callable tool exposed to the model.
type ToolSchema struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// ToolCall is one tool invocation the model requested.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]interface{}
}

// StopReason enumerates why a round ended.
type StopReason string

const (
	StopEndTurn      StopReason = "end_turn"
	StopToolUse      StopReason = "tool_use"
	StopMaxTokens    StopReason = "max_tokens"
	StopStopSequence StopReason = "stop_sequence"
)

// Continuation is an opaque, provider-tagged handle a caller passes back
// unmodified to extend a conversation without re-serializing the prior
// assistant turn.
type Continuation struct {
	Provider string
	Raw      interface{}
}

// Round is the result of a single completion round.
type Round struct {
	Content      string
	ToolCalls    []ToolCall
	StopReason   StopReason
	Continuation Continuation
}

// Message is one entry in the prompt passed to Complete/Stream/CompleteAgentic.
type Message struct {
	Role    string // "system", "user", "assistant", "tool"
	Content string
	// ToolCallID links a "tool" role message to the ToolCall it answers.
	ToolCallID string
}

// CacheControl marks which prompt entries are stable prefixes eligible for
// provider-side prompt caching: the system block and the penultimate
// message, the two parts that survive unchanged across turns.
type CacheControl struct {
	System           bool
	PenultimateIndex int // -1 when not applicable
}

// StreamChunk is one delta from a streaming round.
type StreamChunk struct {
	Text string
	Done bool
	// Final is populated only on the chunk where Done is true.
	Final *Round
}

// ToolExecutor runs one tool call during an agentic loop and returns its
// result text.
type ToolExecutor func(ctx context.Context, call ToolCall) (string, error)

// ToolTrace records one executed tool call inside an agentic loop.
type ToolTrace struct {
	Tool   string
	Input  map[string]interface{}
	Result string
}

// AgenticResult is the outcome of a bounded internal tool-call loop.
type AgenticResult struct {
	Text   string
	Traces []ToolTrace
}

// Client is the capability surface every provider adapter implements.
type Client interface {
	// Complete runs one non-streaming round.
	Complete(ctx context.Context, messages []Message, tools []ToolSchema, cache CacheControl) (*Round, error)

	// Stream runs one streaming round, returning a channel of deltas
	// terminated by a chunk with Done=true and Final populated. If the
	// transport fails before any delta is produced, the implementation
	// falls back to Complete and emits its result as a single Done chunk.
	Stream(ctx context.Context, messages []Message, tools []ToolSchema, cache CacheControl) (<-chan StreamChunk, error)

	// CompleteAgentic runs a bounded internal tool-call loop (ceiling 10
	// rounds), invoking exec for each requested tool call.
	CompleteAgentic(ctx context.Context, messages []Message, tools []ToolSchema, exec ToolExecutor) (*AgenticResult, error)
}

// MaxAgenticRounds is the hard ceiling on CompleteAgentic's internal loop.
const MaxAgenticRounds = 10

// ApplyTruncation implements the truncated-response contract: when a round
// stopped on max_tokens with declared tool calls, the calls are discarded
// since their arguments may be malformed, and empty content is replaced
// with a synthesized note.
func ApplyTruncation(r *Round) *Round {
	if r.StopReason != StopMaxTokens || len(r.ToolCalls) == 0 {
		return r
	}
	out := *r
	out.ToolCalls = nil
	if out.Content == "" {
		out.Content = "[response truncated before any content was produced]"
	}
	return &out
}
