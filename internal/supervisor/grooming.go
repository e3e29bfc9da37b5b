package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/MBifolco/gotg-sub000/internal/convlog"
	"github.com/MBifolco/gotg-sub000/internal/core"
	"github.com/MBifolco/gotg-sub000/internal/engine"
	"github.com/MBifolco/gotg-sub000/internal/events"
	"github.com/MBifolco/gotg-sub000/internal/filemediator"
)

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// GroomingSlug derives a filesystem-safe slug from a topic, suffixed with
// a short random component so repeated sessions on the same topic never
// collide.
func GroomingSlug(topic string) string {
	slug := slugUnsafe.ReplaceAllString(strings.ToLower(topic), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 40 {
		slug = slug[:40]
	}
	if slug == "" {
		slug = "session"
	}
	return slug + "-" + uuid.NewString()[:8]
}

// GroomingOutcome summarizes one grooming session run.
type GroomingOutcome struct {
	Slug         string
	SessionTurns int
}

// RunGrooming drives an independent, iteration-agnostic refinement
// conversation under .team/grooming/<slug>/. It reuses the session engine
// and the conversation-log machinery but no phase controller, task store,
// or approval funnel: grooming sessions only ever read the project.
func (s *Supervisor) RunGrooming(ctx context.Context, slug, topic string, maxTurns int) (*GroomingOutcome, error) {
	team, err := s.Store.LoadTeam()
	if err != nil {
		return nil, err
	}
	r, err := s.buildRoster(team)
	if err != nil {
		return nil, err
	}

	dir := s.Store.GroomingDir(slug)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating grooming directory: %w", err)
	}
	log := convlog.New(filepath.Join(dir, "conversation.jsonl"))
	debug := convlog.NewDebugLog(filepath.Join(dir, "debug.jsonl"))

	// Read-only policy: no writable paths configured and no approval
	// store, so every write attempt is rejected outright.
	access := accessPolicy(team)
	access.WritablePaths = nil
	access.EnableApprovals = false
	mediator := filemediator.New(s.Store.Root(), access, nil)

	agents := make([]engine.AgentClient, len(team.Agents))
	for i, a := range team.Agents {
		agents[i] = engine.AgentClient{Agent: a, Model: r.clients[a.Name], Mediator: mediator, Streaming: team.Streaming}
	}
	var coach *engine.AgentClient
	if team.Coach != nil {
		coach = &engine.AgentClient{
			Agent:     core.Agent{Name: team.Coach.Name, Role: team.Coach.Role},
			Model:     r.clients[team.Coach.Name],
			Mediator:  mediator,
			Streaming: team.Streaming,
		}
	}

	prior, err := log.ReadAll()
	if err != nil {
		return nil, err
	}

	sessionID := "grooming/" + slug
	eng := engine.New(engine.Config{
		IterationID:       sessionID,
		Phase:             core.PhaseRefinement,
		Description:       topic,
		BaseSystemPrompt:  "You are a participant in a grooming session exploring a future piece of work.",
		PhaseInstructions: "Discuss the topic freely and surface open questions; nothing here is committed to an iteration yet.",
		MaxTurns:          maxTurns,
		Agents:            agents,
		Coach:             coach,
		PriorMessages:     prior,
	})

	out := &GroomingOutcome{Slug: slug}
	for ev := range eng.Run(ctx) {
		switch e := ev.(type) {
		case events.AppendMessage:
			if msg, ok := e.Message.(core.Message); ok {
				if err := log.Append(msg); err != nil {
					return nil, err
				}
			}
		case events.AppendDebug:
			_ = debug.Append(e.Record)
		case events.SessionComplete:
			out.SessionTurns = e.TotalAgentTurns
		}
	}
	return out, nil
}

// ListGroomingSessions returns the slugs of every grooming session on disk.
func (s *Supervisor) ListGroomingSessions() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.Store.TeamDir(), "grooming"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var slugs []string
	for _, e := range entries {
		if e.IsDir() {
			slugs = append(slugs, e.Name())
		}
	}
	return slugs, nil
}
