package executor

import (
	"fmt"
	"strings"

	"github.com/MBifolco/gotg-sub000/internal/core"
	"github.com/MBifolco/gotg-sub000/internal/model"
)

// doubleNegativePrefixes are stripped from an anti-pattern string before it
// is rendered under a "DO NOT" header, since the header already supplies
// the negation.
var doubleNegativePrefixes = []string{"do not ", "don't ", "never ", "avoid "}

func stripDoubleNegative(s string) string {
	lower := strings.ToLower(s)
	for _, prefix := range doubleNegativePrefixes {
		if strings.HasPrefix(lower, prefix) {
			rest := s[len(prefix):]
			if rest == "" {
				return s
			}
			return strings.ToUpper(rest[:1]) + rest[1:]
		}
	}
	return s
}

// buildImplementationPrompt constructs the implementation-phase prompt for
// one agent: identity, project description, and one ordered block per
// assigned task. Distinct from the discussion prompt built by
// internal/convlog — there are no teammates and no process norms here, just
// the work itself.
func buildImplementationPrompt(agentName, projectDescription string, tasks []*core.Task) []model.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, implementing the assigned tasks below for this project:\n%s\n", agentName, projectDescription)

	for _, t := range tasks {
		b.WriteString("\n---\n")
		fmt.Fprintf(&b, "TASK %s\n", t.ID)
		fmt.Fprintf(&b, "DESCRIPTION: %s\n", t.Description)
		if t.Approach != "" {
			fmt.Fprintf(&b, "APPROACH: %s\n", t.Approach)
		}
		if len(t.AntiPatterns) > 0 {
			b.WriteString("DO NOT:\n")
			for _, ap := range t.AntiPatterns {
				fmt.Fprintf(&b, "  - %s\n", stripDoubleNegative(ap))
			}
		}
		fmt.Fprintf(&b, "DONE WHEN: %s\n", t.DoneCriteria)
		if t.Notes != "" {
			fmt.Fprintf(&b, "FILES TO CREATE: %s\n", t.Notes)
		}
	}

	b.WriteString("\n---\nUse file_read/file_list/file_write to do the work, then call complete_tasks with the ids you finished, or report_blocked if you cannot proceed.")

	return []model.Message{
		{Role: "system", Content: "You are an autonomous implementation agent. Work only within the tasks assigned to you below."},
		{Role: "user", Content: b.String()},
	}
}

// buildConstraintReminder assembles a concise reminder from the APPROACH /
// DO NOT / DONE WHEN of tasks still pending, injected every five rounds or
// after three writes since the last reminder.
func buildConstraintReminder(tasks []*core.Task) string {
	var b strings.Builder
	b.WriteString("Reminder of your remaining constraints:\n")
	for _, t := range tasks {
		if !t.IsActive() {
			continue
		}
		fmt.Fprintf(&b, "- %s: done when %s", t.ID, t.DoneCriteria)
		if t.Approach != "" {
			fmt.Fprintf(&b, "; approach: %s", t.Approach)
		}
		if len(t.AntiPatterns) > 0 {
			stripped := make([]string, len(t.AntiPatterns))
			for i, ap := range t.AntiPatterns {
				stripped[i] = stripDoubleNegative(ap)
			}
			fmt.Fprintf(&b, "; do not: %s", strings.Join(stripped, "; "))
		}
		b.WriteString("\n")
	}
	return b.String()
}
