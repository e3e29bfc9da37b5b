// Package checkpoint implements the directory-copy snapshot mechanism
// described for iteration state: whole-file copies under
// checkpoints/<N>/, a state.json metadata sidecar, and restore-by-
// replacement. It satisfies internal/phasectl's Checkpointer interface.
package checkpoint

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/MBifolco/gotg-sub000/internal/config"
	"github.com/MBifolco/gotg-sub000/internal/core"
)

// excludedFromCheckpoint names paths, relative to the iteration directory,
// never copied into a checkpoint: the debug log, the in-flight resumable
// implementation state, and the checkpoints directory itself to avoid
// infinite nesting.
var excludedFromCheckpoint = map[string]bool{
	"debug.jsonl":               true,
	"implementation_state.json": true,
	"checkpoints":               true,
}

// Manager checkpoints a single iteration directory.
type Manager struct {
	iterDir string
	meta    func(trigger core.CheckpointTrigger) core.CheckpointMeta
}

// New creates a checkpoint manager for the given iteration directory. meta
// is called at checkpoint time to capture the iteration's current phase,
// status, and turn count.
func New(iterDir string, meta func(core.CheckpointTrigger) core.CheckpointMeta) *Manager {
	return &Manager{iterDir: iterDir, meta: meta}
}

func (m *Manager) checkpointsDir() string {
	return filepath.Join(m.iterDir, "checkpoints")
}

func (m *Manager) checkpointDir(n int) string {
	return filepath.Join(m.checkpointsDir(), strconv.Itoa(n))
}

// Checkpoint copies the iteration directory's current state into the next
// numbered checkpoint slot and writes its state.json metadata.
func (m *Manager) Checkpoint(trigger core.CheckpointTrigger) error {
	n, err := m.nextNumber()
	if err != nil {
		return err
	}
	dest := m.checkpointDir(n)
	if err := copyTree(m.iterDir, dest, excludedFromCheckpoint); err != nil {
		return err
	}

	meta := core.CheckpointMeta{Number: n, Trigger: trigger}
	if m.meta != nil {
		full := m.meta(trigger)
		full.Number = n
		full.Trigger = trigger
		meta = full
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return config.AtomicWrite(filepath.Join(dest, "state.json"), data)
}

// List returns every checkpoint's metadata, ordered by number.
func (m *Manager) List() ([]core.CheckpointMeta, error) {
	entries, err := os.ReadDir(m.checkpointsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var metas []core.CheckpointMeta
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		meta, err := m.readMeta(n)
		if err != nil {
			return nil, core.ErrCheckpointCorrupt("checkpoint "+e.Name()+" state.json is unreadable", err)
		}
		metas = append(metas, meta)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Number < metas[j].Number })
	return metas, nil
}

func (m *Manager) readMeta(n int) (core.CheckpointMeta, error) {
	data, err := os.ReadFile(filepath.Join(m.checkpointDir(n), "state.json"))
	if err != nil {
		return core.CheckpointMeta{}, err
	}
	var meta core.CheckpointMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return core.CheckpointMeta{}, err
	}
	return meta, nil
}

// Restore replaces the iteration directory's current files with checkpoint
// n's copies, leaving the checkpoints/ subtree itself untouched.
func (m *Manager) Restore(n int) error {
	src := m.checkpointDir(n)
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return core.ErrNotFound("checkpoint", strconv.Itoa(n))
		}
		return err
	}

	if err := clearTreeExcept(m.iterDir, map[string]bool{"checkpoints": true}); err != nil {
		return err
	}
	return copyTree(src, m.iterDir, map[string]bool{"state.json": true})
}

func (m *Manager) nextNumber() (int, error) {
	entries, err := os.ReadDir(m.checkpointsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return 1, nil
		}
		return 0, err
	}
	max := 0
	for _, e := range entries {
		if n, err := strconv.Atoi(e.Name()); err == nil && n > max {
			max = n
		}
	}
	return max + 1, nil
}

// copyTree copies every regular file under src into dest, preserving
// relative paths, skipping any top-level entry named in exclude.
func copyTree(src, dest string, exclude map[string]bool) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if exclude[firstSegment(rel)] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return os.MkdirAll(filepath.Join(dest, rel), 0o750)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return config.AtomicWrite(filepath.Join(dest, rel), data)
	})
}

func firstSegment(rel string) string {
	for i := 0; i < len(rel); i++ {
		if rel[i] == filepath.Separator {
			return rel[:i]
		}
	}
	return rel
}

// clearTreeExcept removes every top-level entry of dir except those named
// in keep, used before a restore so stale files from the current state
// don't linger alongside the checkpoint's copies.
func clearTreeExcept(dir string, keep map[string]bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if keep[e.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
