package supervisor

import (
	"github.com/MBifolco/gotg-sub000/internal/convlog"
	"github.com/MBifolco/gotg-sub000/internal/core"
)

// boundaryWriter implements phasectl.BoundaryWriter against one iteration's
// conversation log.
type boundaryWriter struct {
	log   *convlog.Log
	iterID string
}

func (b *boundaryWriter) WritePhaseBoundary(from, to core.Phase) error {
	return b.log.Append(core.Message{
		From:          core.SpeakerSystem,
		Iteration:     b.iterID,
		Content:       "phase advanced from " + string(from) + " to " + string(to),
		PhaseBoundary: true,
		FromPhase:     string(from),
		ToPhase:       string(to),
	})
}
