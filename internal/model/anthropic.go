package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/MBifolco/gotg-sub000/internal/logging"
)

// AnthropicConfig configures an AnthropicClient.
type AnthropicConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// AnthropicClient implements Client against the Anthropic Messages API.
type AnthropicClient struct {
	cfg    AnthropicConfig
	client anthropic.Client
	logger *logging.Logger
}

// NewAnthropicClient builds a client from the given configuration.
func NewAnthropicClient(cfg AnthropicConfig, logger *logging.Logger) *AnthropicClient {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	return &AnthropicClient{
		cfg:    cfg,
		client: anthropic.NewClient(opts...),
		logger: logger,
	}
}

func toAnthropicMessages(messages []Message) (system string, turns []anthropic.MessageParam) {
	for _, m := range messages {
		switch m.Role {
		case "system":
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case "user":
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case "assistant":
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case "tool":
			turns = append(turns, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false),
			))
		}
	}
	return system, turns
}

func toAnthropicTools(tools []ToolSchema) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, anthropic.ToolUnionParamOfTool(
			anthropic.ToolInputSchemaParam{
				Properties: t.InputSchema["properties"],
			},
			t.Name,
		))
	}
	return out
}

func fromAnthropicStopReason(r anthropic.MessageStopReason) StopReason {
	switch r {
	case anthropic.MessageStopReasonToolUse:
		return StopToolUse
	case anthropic.MessageStopReasonMaxTokens:
		return StopMaxTokens
	case anthropic.MessageStopReasonStopSequence:
		return StopStopSequence
	default:
		return StopEndTurn
	}
}

func (c *AnthropicClient) newParams(messages []Message, tools []ToolSchema) anthropic.MessageNewParams {
	system, turns := toAnthropicMessages(messages)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: c.cfg.MaxTokens,
		Messages:  turns,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = toAnthropicTools(tools)
	}
	return params
}

// Complete runs one non-streaming round against the Messages API.
func (c *AnthropicClient) Complete(ctx context.Context, messages []Message, tools []ToolSchema, _ CacheControl) (*Round, error) {
	resp, err := c.client.Messages.New(ctx, c.newParams(messages, tools))
	if err != nil {
		return nil, fmt.Errorf("anthropic: complete: %w", err)
	}
	return anthropicRoundFromResponse(resp), nil
}

func anthropicRoundFromResponse(resp *anthropic.Message) *Round {
	round := &Round{
		StopReason:   fromAnthropicStopReason(resp.StopReason),
		Continuation: Continuation{Provider: "anthropic", Raw: resp},
	}
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			round.Content += variant.Text
		case anthropic.ToolUseBlock:
			input := map[string]interface{}{}
			_ = json.Unmarshal(variant.Input, &input)
			round.ToolCalls = append(round.ToolCalls, ToolCall{
				ID:    variant.ID,
				Name:  variant.Name,
				Input: input,
			})
		}
	}
	return ApplyTruncation(round)
}

// Stream runs one streaming round, falling back to Complete if the
// transport fails before any delta arrives.
func (c *AnthropicClient) Stream(ctx context.Context, messages []Message, tools []ToolSchema, cache CacheControl) (<-chan StreamChunk, error) {
	out := make(chan StreamChunk, 16)
	stream := c.client.Messages.NewStreaming(ctx, c.newParams(messages, tools))

	go func() {
		defer close(out)
		message := anthropic.Message{}
		sawDelta := false

		for stream.Next() {
			event := stream.Current()
			if err := message.Accumulate(event); err != nil {
				c.logger.Error("anthropic stream accumulate failed", "error", err)
				break
			}
			if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
				if text := delta.Delta.Text; text != "" {
					sawDelta = true
					out <- StreamChunk{Text: text}
				}
			}
		}

		if err := stream.Err(); err != nil && !sawDelta {
			round, fbErr := c.Complete(ctx, messages, tools, cache)
			if fbErr != nil {
				c.logger.Error("anthropic stream fallback failed", "error", fbErr)
				return
			}
			out <- StreamChunk{Done: true, Final: round}
			return
		}

		final := anthropicRoundFromResponse(&message)
		out <- StreamChunk{Done: true, Final: final}
	}()

	return out, nil
}

// CompleteAgentic runs a bounded internal tool-call loop, executing each
// requested tool call via exec and feeding its result back as the next
// round's tool message, up to MaxAgenticRounds.
func (c *AnthropicClient) CompleteAgentic(ctx context.Context, messages []Message, tools []ToolSchema, exec ToolExecutor) (*AgenticResult, error) {
	result := &AgenticResult{}
	history := append([]Message{}, messages...)

	for round := 0; round < MaxAgenticRounds; round++ {
		r, err := c.Complete(ctx, history, tools, CacheControl{})
		if err != nil {
			return nil, err
		}
		if r.Content != "" {
			result.Text = r.Content
		}
		if len(r.ToolCalls) == 0 {
			return result, nil
		}
		for _, call := range r.ToolCalls {
			out, err := exec(ctx, call)
			if err != nil {
				out = fmt.Sprintf("error: %s", err)
			}
			result.Traces = append(result.Traces, ToolTrace{Tool: call.Name, Input: call.Input, Result: out})
			history = append(history, Message{Role: "assistant", Content: r.Content})
			history = append(history, Message{Role: "tool", Content: out, ToolCallID: call.ID})
		}
	}
	return nil, errors.New("anthropic: agentic loop exceeded round ceiling")
}
