package supervisor

import (
	"context"

	"github.com/MBifolco/gotg-sub000/internal/core"
)

// Advance runs the phase-controller transition out of the iteration's
// current phase. Refinement and planning invoke a one-shot coach call;
// pre-code-review auto-assigns any unassigned tasks before checking
// preconditions; code-review requires the caller to have already merged
// the layer's branches (see Merge) before calling this.
func (s *Supervisor) Advance(ctx context.Context, iterID string) (core.Phase, error) {
	it, tasks, err := s.LoadIteration(iterID)
	if err != nil {
		return "", err
	}
	team, err := s.Store.LoadTeam()
	if err != nil {
		return "", err
	}
	r, err := s.buildRoster(team)
	if err != nil {
		return "", err
	}
	ctrl := s.controllerFor(iterID, it, tasks)

	switch it.Phase {
	case core.PhaseRefinement:
		if err := ctrl.AdvanceToPlanning(ctx, s.coachSummarizer(iterID, team, r)); err != nil {
			return it.Phase, err
		}
	case core.PhasePlanning:
		if err := ctrl.AdvanceToPreCodeReview(ctx, s.coachPlanner(iterID, team, r)); err != nil {
			return it.Phase, err
		}
	case core.PhasePreCodeReview:
		autoAssign(ctrl.Tasks, team)
		if err := s.Store.SaveTasks(iterID, ctrl.Tasks); err != nil {
			return it.Phase, err
		}
		if err := ctrl.AdvanceToImplementation(); err != nil {
			return it.Phase, err
		}
	case core.PhaseCodeReview:
		if _, err := ctrl.AdvanceLayerOrComplete(); err != nil {
			return it.Phase, err
		}
	default:
		return it.Phase, core.ErrPhaseTransition("NO_MANUAL_ADVANCE", "phase "+string(it.Phase)+" does not advance via this command")
	}

	if err := s.Store.UpsertIteration(ctrl.Iteration); err != nil {
		return ctrl.Iteration.Phase, err
	}
	return ctrl.Iteration.Phase, nil
}
