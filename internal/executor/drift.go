package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/MBifolco/gotg-sub000/internal/core"
	"github.com/MBifolco/gotg-sub000/internal/model"
)

// driftCodeFence tolerates a surrounding markdown code fence around the
// drift checker's JSON response, mirroring the planning coach's tolerance
// in internal/phasectl.
var driftCodeFence = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*\\s*\n(.*?)\n?```\\s*$")

// DriftFinding is one task's verification result from a drift check.
type DriftFinding struct {
	TaskID                string   `json:"task_id"`
	ApproachOK            bool     `json:"approach_ok"`
	AntiPatternViolations []string `json:"anti_pattern_violations"`
	DoneCriteriaOK        bool     `json:"done_criteria_ok"`
	Notes                 string   `json:"notes"`
}

// Violated reports whether this finding's task should revert to pending.
func (f DriftFinding) Violated() bool {
	return len(f.AntiPatternViolations) > 0
}

// checkDrift submits the files written while completing tasks, plus the
// task specs themselves, to the model in a one-shot verification call.
// Invoked after every successful complete_tasks.
func checkDrift(ctx context.Context, client model.Client, writtenFiles map[string]string, tasks []*core.Task) ([]DriftFinding, error) {
	prompt := buildDriftPrompt(writtenFiles, tasks)
	round, err := client.Complete(ctx, prompt, nil, model.CacheControl{})
	if err != nil {
		return nil, err
	}
	return parseDriftFindings(round.Content)
}

func buildDriftPrompt(writtenFiles map[string]string, tasks []*core.Task) []model.Message {
	var b strings.Builder
	b.WriteString("Verify the following completed tasks against the files written for them. ")
	b.WriteString("Respond with a JSON array, one object per task: ")
	b.WriteString(`{"task_id","approach_ok","anti_pattern_violations","done_criteria_ok","notes"}.`)
	b.WriteString("\n\nTasks:\n")
	for _, t := range tasks {
		fmt.Fprintf(&b, "- %s: %s (approach: %s; anti-patterns: %v; done when: %s)\n",
			t.ID, t.Description, t.Approach, t.AntiPatterns, t.DoneCriteria)
	}
	b.WriteString("\nFiles written:\n")
	for path, content := range writtenFiles {
		fmt.Fprintf(&b, "--- %s ---\n%s\n", path, content)
	}
	return []model.Message{
		{Role: "system", Content: "You are a code-review verifier checking for constraint drift."},
		{Role: "user", Content: b.String()},
	}
}

func parseDriftFindings(raw string) ([]DriftFinding, error) {
	cleaned := strings.TrimSpace(raw)
	if m := driftCodeFence.FindStringSubmatch(cleaned); m != nil {
		cleaned = strings.TrimSpace(m[1])
	}
	var findings []DriftFinding
	if err := json.Unmarshal([]byte(cleaned), &findings); err != nil {
		return nil, core.ErrValidation("DRIFT_RESPONSE_UNPARSEABLE", "drift check response is not valid JSON: "+err.Error())
	}
	return findings, nil
}

// driftRevertMessage is the literal prefix of the surfaced tool result so
// the agent can recognize a revert mid-loop.
const driftRevertMessage = "Drift detected — completion reverted"

func formatDriftRevert(findings []DriftFinding) string {
	var b strings.Builder
	b.WriteString(driftRevertMessage)
	for _, f := range findings {
		if !f.Violated() {
			continue
		}
		fmt.Fprintf(&b, "\n- %s: %s", f.TaskID, strings.Join(f.AntiPatternViolations, "; "))
	}
	return b.String()
}
