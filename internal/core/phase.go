package core

import "fmt"

// Phase represents the current lifecycle stage of an iteration.
type Phase string

const (
	PhasePending        Phase = "pending"
	PhaseRefinement     Phase = "refinement"
	PhasePlanning       Phase = "planning"
	PhasePreCodeReview  Phase = "pre-code-review"
	PhaseImplementation Phase = "implementation"
	PhaseCodeReview     Phase = "code-review"
	PhaseDone           Phase = "done"
)

// AllPhases returns every phase in lifecycle order.
func AllPhases() []Phase {
	return []Phase{PhasePending, PhaseRefinement, PhasePlanning, PhasePreCodeReview, PhaseImplementation, PhaseCodeReview, PhaseDone}
}

// PhaseOrder returns the numeric order of a phase (0-indexed), or -1 for an
// unrecognized phase. Implementation and code-review share an order since
// they form a cycle rather than a strict sequence.
func PhaseOrder(p Phase) int {
	switch p {
	case PhasePending:
		return 0
	case PhaseRefinement:
		return 1
	case PhasePlanning:
		return 2
	case PhasePreCodeReview:
		return 3
	case PhaseImplementation:
		return 4
	case PhaseCodeReview:
		return 5
	case PhaseDone:
		return 6
	default:
		return -1
	}
}

// NextPhase returns the phase that directly follows p in the linear part of
// the lifecycle graph. For Implementation and CodeReview, which cycle on
// layer advancement, callers must use the phase-controller transition logic
// instead (see phasectl) rather than this simple successor.
func NextPhase(p Phase) Phase {
	switch p {
	case PhasePending:
		return PhaseRefinement
	case PhaseRefinement:
		return PhasePlanning
	case PhasePlanning:
		return PhasePreCodeReview
	case PhasePreCodeReview:
		return PhaseImplementation
	case PhaseImplementation:
		return PhaseCodeReview
	case PhaseCodeReview:
		return PhaseDone
	default:
		return ""
	}
}

// ValidPhase reports whether p is a recognized phase.
func ValidPhase(p Phase) bool {
	return PhaseOrder(p) >= 0
}

// ParsePhase converts a string to a Phase with validation.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !ValidPhase(p) {
		return "", fmt.Errorf("invalid phase: %s", s)
	}
	return p, nil
}

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// UsesExecutor reports whether this phase is driven by the implementation
// executor rather than the session engine.
func (p Phase) UsesExecutor() bool {
	return p == PhaseImplementation
}

// Description returns a human-readable description of the phase.
func (p Phase) Description() string {
	switch p {
	case PhasePending:
		return "iteration created, not yet started"
	case PhaseRefinement:
		return "free discussion to refine requirements"
	case PhasePlanning:
		return "produce a dependency-ordered task list"
	case PhasePreCodeReview:
		return "assign tasks before implementation begins"
	case PhaseImplementation:
		return "agents implement the current layer's tasks"
	case PhaseCodeReview:
		return "review and merge the current layer"
	case PhaseDone:
		return "iteration complete"
	default:
		return "unknown phase"
	}
}
