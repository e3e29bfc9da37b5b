package vcs

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/MBifolco/gotg-sub000/internal/core"
	"github.com/MBifolco/gotg-sub000/internal/model"
)

// aiFencePattern strips a single surrounding markdown code fence from the
// model's resolution reply, same tolerance as the planning parser.
var aiFencePattern = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*\\s*\n(.*?)\n?```\\s*$")

// AIResolution is the model's answer for one conflicted file.
type AIResolution struct {
	Content     string `json:"content"`
	Explanation string `json:"explanation"`
}

// StageContents returns the three merge stages of a conflicted path: the
// common ancestor, our side, and their side. A missing stage (add/add
// conflicts have no base) comes back as an empty string rather than an
// error.
func (m *WorktreeManager) StageContents(ctx context.Context, path string) (base, ours, theirs string, err error) {
	readStage := func(n int) string {
		out, _, runErr := m.git.runAllowFail(ctx, "show", fmt.Sprintf(":%d:%s", n, path))
		if runErr != nil {
			return ""
		}
		return out
	}
	return readStage(1), readStage(2), readStage(3), nil
}

// ResolveConflictAI resolves one conflicted file with a single model call
// carrying the base, ours, and theirs stage contents plus whatever task
// context the caller has for the file. The resolved content is written to
// the path and staged; the explanation is returned for the supervisor to
// show the human.
func (m *WorktreeManager) ResolveConflictAI(ctx context.Context, client model.Client, path, taskContext string) (*AIResolution, error) {
	base, ours, theirs, err := m.StageContents(ctx, path)
	if err != nil {
		return nil, err
	}

	prompt := []model.Message{
		{Role: "system", Content: "You resolve git merge conflicts. Reply with a JSON object {\"content\": \"<full resolved file>\", \"explanation\": \"<one paragraph>\"} and nothing else."},
		{Role: "user", Content: buildResolutionRequest(path, taskContext, base, ours, theirs)},
	}

	round, err := client.Complete(ctx, prompt, nil, model.CacheControl{PenultimateIndex: -1})
	if err != nil {
		return nil, err
	}
	round = model.ApplyTruncation(round)

	resolution, err := parseAIResolution(round.Content)
	if err != nil {
		return nil, err
	}
	if err := m.WriteResolvedContent(ctx, path, []byte(resolution.Content)); err != nil {
		return nil, err
	}
	return resolution, nil
}

func buildResolutionRequest(path, taskContext, base, ours, theirs string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Resolve the merge conflict in %s.\n\n", path)
	if taskContext != "" {
		fmt.Fprintf(&b, "Task context:\n%s\n\n", taskContext)
	}
	fmt.Fprintf(&b, "=== BASE (common ancestor) ===\n%s\n\n", base)
	fmt.Fprintf(&b, "=== OURS (main) ===\n%s\n\n", ours)
	fmt.Fprintf(&b, "=== THEIRS (branch) ===\n%s\n", theirs)
	return b.String()
}

func parseAIResolution(raw string) (*AIResolution, error) {
	cleaned := strings.TrimSpace(raw)
	if m := aiFencePattern.FindStringSubmatch(cleaned); m != nil {
		cleaned = strings.TrimSpace(m[1])
	}
	var resolution AIResolution
	if err := json.Unmarshal([]byte(cleaned), &resolution); err != nil {
		return nil, core.ErrValidation("AI_RESOLUTION_UNPARSEABLE", "conflict resolution reply is not valid JSON: "+err.Error())
	}
	if resolution.Content == "" {
		return nil, core.ErrValidation("AI_RESOLUTION_EMPTY", "conflict resolution reply carries no content")
	}
	return &resolution, nil
}
