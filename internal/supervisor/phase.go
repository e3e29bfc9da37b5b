package supervisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/MBifolco/gotg-sub000/internal/convlog"
	"github.com/MBifolco/gotg-sub000/internal/core"
	"github.com/MBifolco/gotg-sub000/internal/model"
	"github.com/MBifolco/gotg-sub000/internal/phasectl"
)

const summarizeInstruction = "Summarize the refinement discussion above into a concise scope summary " +
	"future phases can rely on as the agreed requirements. Respond with the summary only."

const planInstruction = "Produce the dependency-ordered task list for this iteration as a raw JSON array " +
	"of objects with fields id, description, done_criteria, depends_on, approach, anti_patterns, notes. " +
	"Respond with the JSON array only, no surrounding prose."

// controllerFor builds a phasectl.Controller for one iteration, wired to
// this project's checkpoint manager and conversation log.
func (s *Supervisor) controllerFor(iterID string, it *core.Iteration, tasks []*core.Task) *phasectl.Controller {
	boundary := &boundaryWriter{log: s.convlog(iterID), iterID: iterID}
	ctrl := phasectl.New(it, tasks, s.checkpointManager(iterID, it), boundary)
	ctrl.WithPersistence(
		func(summary string) error { return s.Store.SaveScopeSummary(iterID, summary) },
		func(tasks []*core.Task) error { return s.Store.SaveTasks(iterID, tasks) },
		func(raw string) error { return s.Store.SaveTasksRaw(iterID, raw) },
	)
	return ctrl
}

// coachSummarizer returns a phasectl.Summarizer that asks the coach (or the
// first agent, if the team has no coach) to condense the refinement
// segment of the log into a scope summary.
func (s *Supervisor) coachSummarizer(iterID string, team *core.TeamConfig, r *roster) phasectl.Summarizer {
	return func(ctx context.Context) (string, error) {
		return s.oneShotCoachCall(ctx, iterID, team, r, summarizeInstruction)
	}
}

// coachPlanner returns a phasectl.Planner that asks the coach to produce
// the raw task-list JSON from the planning segment of the log.
func (s *Supervisor) coachPlanner(iterID string, team *core.TeamConfig, r *roster) phasectl.Planner {
	return func(ctx context.Context) (string, error) {
		return s.oneShotCoachCall(ctx, iterID, team, r, planInstruction)
	}
}

func (s *Supervisor) oneShotCoachCall(ctx context.Context, iterID string, team *core.TeamConfig, r *roster, instruction string) (string, error) {
	name := coachName(team)
	client, ok := r.clients[name]
	if !ok {
		return "", core.ErrInternal("no model client for "+name, nil)
	}

	messages, err := s.convlog(iterID).ReadAll()
	if err != nil {
		return "", err
	}
	segment := convlog.CurrentPhaseSegment(messages)

	prompt := []model.Message{
		{Role: "system", Content: "You are " + name + ", facilitating a multi-agent development iteration."},
		{Role: "user", Content: transcriptText(segment) + "\n\n" + instruction},
	}
	round, err := client.Complete(ctx, prompt, nil, model.CacheControl{PenultimateIndex: -1})
	if err != nil {
		return "", core.ErrTransport(err.Error())
	}
	round = model.ApplyTruncation(round)
	return round.Content, nil
}

func coachName(team *core.TeamConfig) string {
	if team.Coach != nil {
		return team.Coach.Name
	}
	return team.Agents[0].Name
}

func transcriptText(segment []core.Message) string {
	var b strings.Builder
	for _, m := range segment {
		if m.PassTurn {
			continue
		}
		fmt.Fprintf(&b, "[%s]: %s\n\n", m.From, m.Content)
	}
	return b.String()
}

// autoAssign assigns every unassigned task to an agent round-robin in
// roster order, so the pre-code-review assignee check has a sensible
// default to correct rather than a hard stop on every fresh plan.
func autoAssign(tasks []*core.Task, team *core.TeamConfig) {
	if len(team.Agents) == 0 {
		return
	}
	i := 0
	for _, t := range tasks {
		if t.AssignedTo != "" {
			continue
		}
		t.AssignedTo = team.Agents[i%len(team.Agents)].Name
		i++
	}
}
