package project

import (
	"encoding/json"
	"os"

	"github.com/MBifolco/gotg-sub000/internal/core"
)

// resumableFile is implementation_state.json's on-disk shape: one entry per
// agent with in-flight round state, keyed by agent name.
type resumableFile struct {
	Agents map[string]*core.ResumableState `json:"agents"`
}

// ResumableFor returns a func suitable for executor.Config.ResumableFor,
// reading implementation_state.json fresh on every call since the
// implementation executor only calls it once per agent per layer run.
func (s *Store) ResumableFor(iterID string) func(agent string) *core.ResumableState {
	return func(agent string) *core.ResumableState {
		file, err := s.loadResumable(iterID)
		if err != nil {
			return nil
		}
		return file.Agents[agent]
	}
}

// PersistResumable returns a func suitable for executor.Config.
// PersistResumable, merging one agent's state into the shared file under a
// lock so concurrent layers (not expected, but cheap to guard) don't clobber
// each other.
func (s *Store) PersistResumable(iterID string) func(*core.ResumableState) error {
	return func(st *core.ResumableState) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		file, err := s.loadResumableLocked(iterID)
		if err != nil {
			return err
		}
		file.Agents[st.Agent] = st
		return writeJSON(s.ResumableStatePath(iterID), file)
	}
}

// ClearResumable returns a func suitable for executor.Config.ClearResumable.
func (s *Store) ClearResumable(iterID string) func(agent string) error {
	return func(agent string) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		file, err := s.loadResumableLocked(iterID)
		if err != nil {
			return err
		}
		if _, ok := file.Agents[agent]; !ok {
			return nil
		}
		delete(file.Agents, agent)
		return writeJSON(s.ResumableStatePath(iterID), file)
	}
}

func (s *Store) loadResumable(iterID string) (*resumableFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadResumableLocked(iterID)
}

// loadResumableLocked assumes the caller already holds s.mu.
func (s *Store) loadResumableLocked(iterID string) (*resumableFile, error) {
	data, err := os.ReadFile(s.ResumableStatePath(iterID))
	if err != nil {
		if os.IsNotExist(err) {
			return &resumableFile{Agents: make(map[string]*core.ResumableState)}, nil
		}
		return nil, err
	}
	var file resumableFile
	if err := json.Unmarshal(data, &file); err != nil {
		// Corrupt resumable state is treated as no state per the checkpoint
		// / state corruption disposition, not a hard error.
		return &resumableFile{Agents: make(map[string]*core.ResumableState)}, nil
	}
	if file.Agents == nil {
		file.Agents = make(map[string]*core.ResumableState)
	}
	return &file, nil
}
