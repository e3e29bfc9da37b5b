package supervisor

import "github.com/MBifolco/gotg-sub000/internal/core"

// ListCheckpoints returns every checkpoint recorded for one iteration.
func (s *Supervisor) ListCheckpoints(iterID string) ([]core.CheckpointMeta, error) {
	it, _, err := s.LoadIteration(iterID)
	if err != nil {
		return nil, err
	}
	return s.checkpointManager(iterID, it).List()
}

// RestoreCheckpoint rolls one iteration's artifact directory back to
// checkpoint n.
func (s *Supervisor) RestoreCheckpoint(iterID string, n int) error {
	it, _, err := s.LoadIteration(iterID)
	if err != nil {
		return err
	}
	return s.checkpointManager(iterID, it).Restore(n)
}
