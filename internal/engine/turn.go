package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MBifolco/gotg-sub000/internal/convlog"
	"github.com/MBifolco/gotg-sub000/internal/core"
	"github.com/MBifolco/gotg-sub000/internal/events"
	"github.com/MBifolco/gotg-sub000/internal/filemediator"
	"github.com/MBifolco/gotg-sub000/internal/model"
)

const (
	toolPassTurn            = "pass_turn"
	toolSignalPhaseComplete = "signal_phase_complete"
	toolAskPM               = "ask_pm"
)

// turnOutcome carries what an agent turn produced back to drive.
type turnOutcome struct {
	passed       bool
	passReason   string
	finalContent string
}

// runAgentTurn builds the prompt, runs the agentic loop with the standard
// file tools plus pass_turn, executes tool calls through the mediator, and
// emits the turn's events per the five-step per-turn sequence.
func (e *Engine) runAgentTurn(ctx context.Context, client AgentClient, history []core.Message, out chan<- events.Event, send func(events.Event) bool) (bool, []core.Message, error) {
	client.Mediator.ResetTurn()
	segment := convlog.CurrentPhaseSegment(history)
	promptCtx := e.buildPromptContext(client.Agent.Name, teammatesExcluding(e.agentNames, client.Agent.Name))
	prompt := convlog.BuildPrompt(promptCtx, segment)

	send(events.AppendDebug{
		Base:   events.NewBase(events.TypeAppendDebug, e.cfg.IterationID),
		Record: map[string]interface{}{"agent": client.Agent.Name, "prompt": prompt},
	})

	tools := append(filemediator.ToolSchemas(), passTurnTool())
	turnID := uuid.NewString()

	var appended []core.Message
	outcome := turnOutcome{}

	textResult, toolTraces, err := runStreamedAgentic(ctx, client, prompt, tools, turnID, e.cfg.IterationID, out, send)
	if err != nil {
		return false, nil, err
	}
	outcome.finalContent = textResult

	for _, trace := range toolTraces {
		switch trace.Tool {
		case toolPassTurn:
			outcome.passed = true
			if reason, ok := trace.Input["reason"].(string); ok {
				outcome.passReason = reason
			}
		}
		send(events.AppendMessage{
			Base: events.NewBase(events.TypeAppendMessage, e.cfg.IterationID),
			Message: core.Message{
				From:      client.Agent.Name,
				Iteration: e.cfg.IterationID,
				Content:   fmt.Sprintf("[tool:%s] %s", trace.Tool, trace.Result),
			},
		})
	}

	if outcome.passed {
		msg := core.Message{
			From:      core.SpeakerSystem,
			Iteration: e.cfg.IterationID,
			Content:   fmt.Sprintf("(agent passes: %s)", outcome.passReason),
			PassTurn:  true,
		}
		send(events.AppendMessage{Base: events.NewBase(events.TypeAppendMessage, e.cfg.IterationID), Message: msg})
		appended = append(appended, msg)
		return false, appended, nil
	}

	msg := core.Message{From: client.Agent.Name, Iteration: e.cfg.IterationID, Content: outcome.finalContent}
	send(events.AppendMessage{Base: events.NewBase(events.TypeAppendMessage, e.cfg.IterationID), Message: msg})
	appended = append(appended, msg)
	return false, appended, nil
}

// runCoachTurn runs the coach's discussion-shaped turn with its two
// exclusive tools, halting the engine when either fires.
func (e *Engine) runCoachTurn(ctx context.Context, history []core.Message, out chan<- events.Event, send func(events.Event) bool) (bool, []core.Message, error) {
	coach := e.cfg.Coach
	segment := convlog.CurrentPhaseSegment(history)
	promptCtx := e.buildPromptContext(coach.Agent.Name, e.agentNames)
	prompt := convlog.BuildPrompt(promptCtx, segment)

	send(events.AppendDebug{
		Base:   events.NewBase(events.TypeAppendDebug, e.cfg.IterationID),
		Record: map[string]interface{}{"agent": coach.Agent.Name, "prompt": prompt},
	})

	tools := []model.ToolSchema{signalPhaseCompleteTool(), askPMTool()}
	turnID := uuid.NewString()

	text, traces, err := runStreamedAgentic(ctx, *coach, prompt, tools, turnID, e.cfg.IterationID, out, send)
	if err != nil {
		return false, nil, err
	}

	var appended []core.Message
	for _, trace := range traces {
		switch trace.Tool {
		case toolSignalPhaseComplete:
			summary, _ := trace.Input["summary"].(string)
			if text == "" {
				text = fmt.Sprintf("(phase marked complete: %s)", summary)
			}
			msg := core.Message{From: core.SpeakerCoach, Iteration: e.cfg.IterationID, Content: text}
			send(events.AppendMessage{Base: events.NewBase(events.TypeAppendMessage, e.cfg.IterationID), Message: msg})
			send(events.PhaseCompleteSignaled{Base: events.NewBase(events.TypePhaseCompleteSignal, e.cfg.IterationID), Phase: string(e.cfg.Phase)})
			return true, append(appended, msg), nil

		case toolAskPM:
			question, _ := trace.Input["question"].(string)
			responseType, _ := trace.Input["response_type"].(string)
			var options []string
			if raw, ok := trace.Input["options"].([]interface{}); ok {
				for _, o := range raw {
					if s, ok := o.(string); ok {
						options = append(options, s)
					}
				}
			}
			if text == "" {
				text = fmt.Sprintf("(coach asks: %s)", question)
			}
			msg := core.Message{From: core.SpeakerCoach, Iteration: e.cfg.IterationID, Content: text}
			send(events.AppendMessage{Base: events.NewBase(events.TypeAppendMessage, e.cfg.IterationID), Message: msg})
			send(events.CoachAskedPM{
				Base:         events.NewBase(events.TypeCoachAskedPM, e.cfg.IterationID),
				Question:     question,
				ResponseType: events.PMResponseType(responseType),
				Options:      options,
			})
			return true, append(appended, msg), nil
		}
	}

	if text != "" {
		msg := core.Message{From: core.SpeakerCoach, Iteration: e.cfg.IterationID, Content: text}
		send(events.AppendMessage{Base: events.NewBase(events.TypeAppendMessage, e.cfg.IterationID), Message: msg})
		appended = append(appended, msg)
	}
	return false, appended, nil
}

// runStreamedAgentic drives one model turn, preferring the streaming shape
// when the agent opts in, and executing any tool calls through the file
// mediator before returning the accumulated text and tool traces.
func runStreamedAgentic(ctx context.Context, client AgentClient, prompt []model.Message, tools []model.ToolSchema, turnID, iterationID string, out chan<- events.Event, send func(events.Event) bool) (string, []model.ToolTrace, error) {
	exec := func(ctx context.Context, call model.ToolCall) (string, error) {
		result, status, byteCount, path := executeFileTool(client.Mediator, client.Agent.Name, call)
		send(events.ToolCallProgress{
			Base:      events.NewBase(events.TypeToolCallProgress, iterationID),
			Agent:     client.Agent.Name,
			Tool:      call.Name,
			Path:      path,
			Status:    status,
			ByteCount: byteCount,
		})
		return result, nil
	}

	if client.Streaming {
		chunks, err := client.Model.Stream(ctx, prompt, tools, model.CacheControl{System: true, PenultimateIndex: len(prompt) - 2})
		if err != nil {
			return "", nil, err
		}
		var text string
		var final *model.Round
		for chunk := range chunks {
			if chunk.Text != "" {
				text += chunk.Text
				send(events.TextDelta{Base: events.NewBase(events.TypeTextDelta, iterationID), Agent: client.Agent.Name, TurnID: turnID, Chunk: chunk.Text})
			}
			if chunk.Done {
				final = chunk.Final
			}
		}
		send(events.AgentTurnComplete{Base: events.NewBase(events.TypeAgentTurnComplete, iterationID), Agent: client.Agent.Name, TurnID: turnID, Content: text})
		if final == nil {
			return text, nil, nil
		}
		var traces []model.ToolTrace
		for _, call := range final.ToolCalls {
			result, err := exec(ctx, call)
			if err != nil {
				result = fmt.Sprintf("error: %s", err)
			}
			traces = append(traces, model.ToolTrace{Tool: call.Name, Input: call.Input, Result: result})
		}
		return text, traces, nil
	}

	result, err := client.Model.CompleteAgentic(ctx, prompt, tools, exec)
	if err != nil {
		return "", nil, err
	}
	send(events.AgentTurnComplete{Base: events.NewBase(events.TypeAgentTurnComplete, iterationID), Agent: client.Agent.Name, TurnID: turnID, Content: result.Text})
	return result.Text, result.Traces, nil
}

func executeFileTool(mediator *filemediator.Mediator, agent string, call model.ToolCall) (result string, status events.ToolCallStatus, byteCount int, path string) {
	path, _ = call.Input["path"].(string)

	switch call.Name {
	case filemediator.ToolFileRead:
		data, err := mediator.ReadFile(path)
		if err != nil {
			return err.Error(), events.ToolCallError, 0, path
		}
		return string(data), events.ToolCallOK, len(data), path

	case filemediator.ToolFileList:
		entries, err := mediator.ListDir(path)
		if err != nil {
			return err.Error(), events.ToolCallError, 0, path
		}
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		return fmt.Sprintf("%v", names), events.ToolCallOK, 0, path

	case filemediator.ToolFileWrite:
		content, _ := call.Input["content"].(string)
		wr, err := mediator.WriteFile(agent, path, []byte(content))
		if err != nil {
			return err.Error(), events.ToolCallError, 0, path
		}
		if wr.Outcome == filemediator.WritePendingApproval {
			return fmt.Sprintf("Pending approval [%s]: write to %s", wr.ApprovalID, path), events.ToolCallPendingApproval, len(content), path
		}
		return "write applied", events.ToolCallOK, len(content), path

	case toolPassTurn:
		return "turn passed", events.ToolCallOK, 0, ""

	default:
		return "unrecognized tool: " + call.Name, events.ToolCallError, 0, path
	}
}

func passTurnTool() model.ToolSchema {
	return model.ToolSchema{
		Name:        toolPassTurn,
		Description: "Voluntarily pass this turn with a reason.",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"reason": map[string]interface{}{"type": "string"}},
			"required":   []string{"reason"},
		},
	}
}

func signalPhaseCompleteTool() model.ToolSchema {
	return model.ToolSchema{
		Name:        toolSignalPhaseComplete,
		Description: "Signal that the current phase is ready to advance.",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"summary": map[string]interface{}{"type": "string"}},
			"required":   []string{"summary"},
		},
	}
}

func askPMTool() model.ToolSchema {
	return model.ToolSchema{
		Name:        toolAskPM,
		Description: "Ask the human product manager a question or request a decision.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"question":      map[string]interface{}{"type": "string"},
				"response_type": map[string]interface{}{"type": "string", "enum": []string{"feedback", "decision"}},
				"options":       map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
			},
			"required": []string{"question", "response_type"},
		},
	}
}
