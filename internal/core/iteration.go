package core

// IterationStatus is the lifecycle status of an iteration. Status
// transitions are monotonic: pending -> in-progress -> done.
type IterationStatus string

const (
	IterationPending    IterationStatus = "pending"
	IterationInProgress IterationStatus = "in-progress"
	IterationDone       IterationStatus = "done"
)

// Iteration is the unit of work: one structured lifecycle run from
// refinement through code review.
type Iteration struct {
	ID           string          `json:"id"`
	Description  string          `json:"description"`
	Status       IterationStatus `json:"status"`
	Phase        Phase           `json:"phase"`
	MaxTurns     int             `json:"max_turns"`
	CurrentLayer *int            `json:"current_layer,omitempty"`
}

// NewIteration creates a new pending iteration in the refinement phase's
// predecessor state.
func NewIteration(id, description string, maxTurns int) *Iteration {
	return &Iteration{
		ID:          id,
		Description: description,
		Status:      IterationPending,
		Phase:       PhasePending,
		MaxTurns:    maxTurns,
	}
}

// Start transitions the iteration into refinement. Status transitions are
// monotonic, so Start is only valid from pending.
func (it *Iteration) Start() error {
	if it.Status != IterationPending {
		return ErrValidation("INVALID_ITERATION_STATE", "cannot start iteration in status "+string(it.Status))
	}
	it.Status = IterationInProgress
	it.Phase = PhaseRefinement
	return nil
}

// Complete transitions the iteration to done. Only valid from in-progress,
// and only once the phase controller has advanced the phase to done.
func (it *Iteration) Complete() error {
	if it.Status != IterationInProgress {
		return ErrValidation("INVALID_ITERATION_STATE", "cannot complete iteration in status "+string(it.Status))
	}
	if it.Phase != PhaseDone {
		return ErrPhaseTransition("PHASE_NOT_DONE", "cannot complete iteration while phase is "+string(it.Phase))
	}
	it.Status = IterationDone
	return nil
}

// SetLayer sets the current implementation layer. Current layer is only
// ever incremented through phase transitions; this setter is for the phase
// controller's exclusive use.
func (it *Iteration) SetLayer(layer int) {
	it.CurrentLayer = &layer
}

// Agent is a named participant in an iteration.
type Agent struct {
	Name         string `json:"name"`
	Role         string `json:"role"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// Coach is the optional facilitator. When present it speaks once per full
// agent rotation and holds exclusive access to the phase-advance and
// ask-PM tools.
type Coach struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// ValidateRoster checks the data-model invariant that an iteration has at
// least two agents with stable, unique names.
func ValidateRoster(agents []Agent) error {
	if len(agents) < 2 {
		return ErrValidation("INSUFFICIENT_AGENTS", "an iteration requires at least two agents")
	}
	seen := make(map[string]bool, len(agents))
	for _, a := range agents {
		if a.Name == "" {
			return ErrValidation("AGENT_NAME_REQUIRED", "agent name cannot be empty")
		}
		if seen[a.Name] {
			return ErrValidation("DUPLICATE_AGENT_NAME", "duplicate agent name: "+a.Name)
		}
		seen[a.Name] = true
	}
	return nil
}
