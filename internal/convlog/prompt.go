package convlog

import (
	"fmt"
	"strings"

	"github.com/MBifolco/gotg-sub000/internal/core"
	"github.com/MBifolco/gotg-sub000/internal/model"
)

// speakerPrefix is the literal wrapper applied to every non-self message
// folded into an agent's prompt. The exact text is load-bearing: agents and
// prompt-reconstruction tests depend on it verbatim.
const speakerPrefix = "%s add the following to the conversation:\n"

// PromptContext carries the material injected ahead of the reconstructed
// transcript: the base system prompt, the agent's identity, its teammates,
// phase instructions, and any artifacts accumulated by the phase
// controller (scope summary, task list, diff summary).
type PromptContext struct {
	BaseSystemPrompt   string
	AgentName          string
	Teammates          []string
	PhaseInstructions  string
	ScopeSummary       string
	TaskListSummary    string
	DiffSummary        string
	IterationDescription string
}

// BuildPrompt reconstructs the full message list for one agent's next turn
// from the log segment, per the five-step procedure: filter pass_turn
// messages and the agent's own post-translation entries, translate and
// consolidate the remainder, prepend the system entry, and seed the
// conversation if it is still empty.
func BuildPrompt(ctx PromptContext, segment []core.Message) []model.Message {
	messages := make([]model.Message, 0, len(segment)+2)
	messages = append(messages, model.Message{Role: "system", Content: buildSystemEntry(ctx)})

	filtered := filterForAgent(segment, ctx.AgentName)
	transcript := translateAndConsolidate(filtered, ctx.AgentName)
	messages = append(messages, transcript...)

	if len(transcript) == 0 {
		messages = append(messages, model.Message{
			Role:    "user",
			Content: fmt.Sprintf("The task is: %s. What are your initial thoughts?", ctx.IterationDescription),
		})
	}

	return messages
}

// filterForAgent drops pass_turn messages; the agent's own messages are
// kept here (they become assistant-role entries in translation) but are
// excluded from consolidation with other speakers.
func filterForAgent(segment []core.Message, _ string) []core.Message {
	out := make([]core.Message, 0, len(segment))
	for _, m := range segment {
		if m.PassTurn {
			continue
		}
		out = append(out, m)
	}
	return out
}

// translateAndConsolidate implements steps 2-3 of prompt reconstruction:
// translate each message to assistant/user role, then fold consecutive
// non-self messages into one user entry joined by a blank line.
func translateAndConsolidate(messages []core.Message, agentName string) []model.Message {
	var out []model.Message
	var pending []string

	flush := func() {
		if len(pending) == 0 {
			return
		}
		out = append(out, model.Message{Role: "user", Content: strings.Join(pending, "\n\n")})
		pending = nil
	}

	for _, m := range messages {
		if m.From == agentName {
			flush()
			out = append(out, model.Message{Role: "assistant", Content: m.Content})
			continue
		}
		pending = append(pending, fmt.Sprintf(speakerPrefix, "["+m.From+"]")+m.Content)
	}
	flush()
	return out
}

func buildSystemEntry(ctx PromptContext) string {
	var b strings.Builder
	b.WriteString(ctx.BaseSystemPrompt)
	b.WriteString("\n\nYou are: ")
	b.WriteString(ctx.AgentName)
	if len(ctx.Teammates) > 0 {
		b.WriteString("\nTeammates: ")
		b.WriteString(strings.Join(ctx.Teammates, ", "))
	}
	if ctx.PhaseInstructions != "" {
		b.WriteString("\n\n")
		b.WriteString(ctx.PhaseInstructions)
	}
	if ctx.ScopeSummary != "" {
		b.WriteString("\n\nScope summary:\n")
		b.WriteString(ctx.ScopeSummary)
	}
	if ctx.TaskListSummary != "" {
		b.WriteString("\n\nTask list:\n")
		b.WriteString(ctx.TaskListSummary)
	}
	if ctx.DiffSummary != "" {
		b.WriteString("\n\nDiff summary:\n")
		b.WriteString(ctx.DiffSummary)
	}
	return b.String()
}
