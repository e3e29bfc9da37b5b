package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/MBifolco/gotg-sub000/internal/logging"
)

// OpenAIConfig configures an OpenAIClient. Setting BaseURL to an Ollama
// instance's OpenAI-compatible endpoint (e.g. http://localhost:11434/v1)
// lets the same adapter drive local models.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

// OpenAIClient implements Client against the Chat Completions API.
type OpenAIClient struct {
	cfg    OpenAIConfig
	client *openai.Client
	logger *logging.Logger
}

// NewOpenAIClient builds a client from the given configuration.
func NewOpenAIClient(cfg OpenAIConfig, logger *logging.Logger) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger,
	}
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{Content: m.Content}
		switch m.Role {
		case "system":
			msg.Role = openai.ChatMessageRoleSystem
		case "user":
			msg.Role = openai.ChatMessageRoleUser
		case "assistant":
			msg.Role = openai.ChatMessageRoleAssistant
		case "tool":
			msg.Role = openai.ChatMessageRoleTool
			msg.ToolCallID = m.ToolCallID
		}
		out = append(out, msg)
	}
	return out
}

func toOpenAITools(tools []ToolSchema) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	return out
}

func fromOpenAIFinishReason(r openai.FinishReason) StopReason {
	switch r {
	case openai.FinishReasonToolCalls, openai.FinishReasonFunctionCall:
		return StopToolUse
	case openai.FinishReasonLength:
		return StopMaxTokens
	default:
		return StopEndTurn
	}
}

func (c *OpenAIClient) request(messages []Message, tools []ToolSchema, stream bool) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    toOpenAIMessages(messages),
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Stream:      stream,
	}
	if len(tools) > 0 {
		req.Tools = toOpenAITools(tools)
	}
	return req
}

// Complete runs one non-streaming round.
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, tools []ToolSchema, _ CacheControl) (*Round, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.request(messages, tools, false))
	if err != nil {
		return nil, fmt.Errorf("openai: complete: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: complete: no choices returned")
	}
	return openAIRoundFromChoice(resp.Choices[0]), nil
}

func openAIRoundFromChoice(choice openai.ChatCompletionChoice) *Round {
	round := &Round{
		Content:      choice.Message.Content,
		StopReason:   fromOpenAIFinishReason(choice.FinishReason),
		Continuation: Continuation{Provider: "openai", Raw: choice},
	}
	for _, tc := range choice.Message.ToolCalls {
		input := map[string]interface{}{}
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &input)
		round.ToolCalls = append(round.ToolCalls, ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: input,
		})
	}
	return ApplyTruncation(round)
}

// Stream runs one streaming round, falling back to Complete if the
// transport fails before any delta arrives.
func (c *OpenAIClient) Stream(ctx context.Context, messages []Message, tools []ToolSchema, cache CacheControl) (<-chan StreamChunk, error) {
	out := make(chan StreamChunk, 16)
	stream, err := c.client.CreateChatCompletionStream(ctx, c.request(messages, tools, true))
	if err != nil {
		round, fbErr := c.Complete(ctx, messages, tools, cache)
		if fbErr != nil {
			return nil, fmt.Errorf("openai: stream: %w (fallback failed: %v)", err, fbErr)
		}
		close(out)
		fallback := make(chan StreamChunk, 1)
		fallback <- StreamChunk{Done: true, Final: round}
		close(fallback)
		return fallback, nil
	}

	go func() {
		defer close(out)
		defer stream.Close()

		var content string
		var toolCalls []openai.ToolCall
		var finish openai.FinishReason
		sawDelta := false

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				if !sawDelta {
					round, fbErr := c.Complete(ctx, messages, tools, cache)
					if fbErr != nil {
						c.logger.Error("openai stream fallback failed", "error", fbErr)
						return
					}
					out <- StreamChunk{Done: true, Final: round}
					return
				}
				c.logger.Error("openai stream interrupted", "error", err)
				break
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta
			if delta.Content != "" {
				sawDelta = true
				content += delta.Content
				out <- StreamChunk{Text: delta.Content}
			}
			toolCalls = mergeToolCallDeltas(toolCalls, delta.ToolCalls)
			if resp.Choices[0].FinishReason != "" {
				finish = resp.Choices[0].FinishReason
			}
		}

		final := &Round{
			Content:    content,
			StopReason: fromOpenAIFinishReason(finish),
		}
		for _, tc := range toolCalls {
			input := map[string]interface{}{}
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &input)
			final.ToolCalls = append(final.ToolCalls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Input: input})
		}
		out <- StreamChunk{Done: true, Final: ApplyTruncation(final)}
	}()

	return out, nil
}

// mergeToolCallDeltas accumulates the streamed fragments of tool-call
// arguments, which OpenAI delivers incrementally by index.
func mergeToolCallDeltas(acc []openai.ToolCall, deltas []openai.ToolCall) []openai.ToolCall {
	for _, d := range deltas {
		idx := d.Index
		if idx == nil {
			continue
		}
		for len(acc) <= *idx {
			acc = append(acc, openai.ToolCall{})
		}
		if d.ID != "" {
			acc[*idx].ID = d.ID
		}
		if d.Type != "" {
			acc[*idx].Type = d.Type
		}
		acc[*idx].Function.Name += d.Function.Name
		acc[*idx].Function.Arguments += d.Function.Arguments
	}
	return acc
}

// CompleteAgentic runs a bounded internal tool-call loop, up to MaxAgenticRounds.
func (c *OpenAIClient) CompleteAgentic(ctx context.Context, messages []Message, tools []ToolSchema, exec ToolExecutor) (*AgenticResult, error) {
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
	return nil, errors.New("openai: agentic loop exceeded round ceiling")
}
