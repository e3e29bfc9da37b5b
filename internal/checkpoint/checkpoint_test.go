package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MBifolco/gotg-sub000/internal/core"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestCheckpoint_ExcludesDebugLog_AndRestoresState(t *testing.T) {
	iterDir := t.TempDir()
	writeFile(t, filepath.Join(iterDir, "conversation.jsonl"), `{"from":"a1"}`)
	writeFile(t, filepath.Join(iterDir, "debug.jsonl"), `{"trace":"noisy"}`)
	writeFile(t, filepath.Join(iterDir, "tasks.json"), `[]`)

	m := New(iterDir, func(trigger core.CheckpointTrigger) core.CheckpointMeta {
		return core.CheckpointMeta{Phase: core.PhaseImplementation, Status: core.IterationInProgress, TurnCount: 3}
	})

	require.NoError(t, m.Checkpoint(core.CheckpointAuto))

	_, err := os.Stat(filepath.Join(iterDir, "checkpoints", "1", "debug.jsonl"))
	assert.True(t, os.IsNotExist(err), "debug.jsonl must not be copied into a checkpoint")

	data, err := os.ReadFile(filepath.Join(iterDir, "checkpoints", "1", "conversation.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, `{"from":"a1"}`, string(data))

	metas, err := m.List()
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, 1, metas[0].Number)
	assert.Equal(t, core.CheckpointAuto, metas[0].Trigger)
	assert.Equal(t, 3, metas[0].TurnCount)
}

func TestCheckpoint_Restore_ReplacesMutatedFiles(t *testing.T) {
	iterDir := t.TempDir()
	writeFile(t, filepath.Join(iterDir, "tasks.json"), `[{"id":"t1"}]`)

	m := New(iterDir, func(core.CheckpointTrigger) core.CheckpointMeta { return core.CheckpointMeta{} })
	require.NoError(t, m.Checkpoint(core.CheckpointManual))

	writeFile(t, filepath.Join(iterDir, "tasks.json"), `[{"id":"t1"},{"id":"t2"}]`)
	writeFile(t, filepath.Join(iterDir, "scratch.txt"), "leftover")

	require.NoError(t, m.Restore(1))

	data, err := os.ReadFile(filepath.Join(iterDir, "tasks.json"))
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"t1"}]`, string(data))

	_, err = os.Stat(filepath.Join(iterDir, "scratch.txt"))
	assert.True(t, os.IsNotExist(err), "restore should remove files absent from the checkpoint")
}

func TestCheckpoint_Checkpoint_NumbersIncrementally(t *testing.T) {
	iterDir := t.TempDir()
	writeFile(t, filepath.Join(iterDir, "tasks.json"), `[]`)

	m := New(iterDir, func(core.CheckpointTrigger) core.CheckpointMeta { return core.CheckpointMeta{} })
	require.NoError(t, m.Checkpoint(core.CheckpointAuto))
	require.NoError(t, m.Checkpoint(core.CheckpointAuto))

	metas, err := m.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, 1, metas[0].Number)
	assert.Equal(t, 2, metas[1].Number)
}
