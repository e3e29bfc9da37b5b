package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MBifolco/gotg-sub000/internal/core"
)

func TestEnsureGitignore_CreatesManagedFile(t *testing.T) {
	s := New(t.TempDir())

	require.NoError(t, s.EnsureGitignore())

	data, err := os.ReadFile(filepath.Join(s.Root(), ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "/.team/")
	assert.Contains(t, string(data), "/.worktrees/")
	assert.Contains(t, string(data), ".env")
}

func TestEnsureGitignore_PreservesExistingEntries(t *testing.T) {
	s := New(t.TempDir())
	path := filepath.Join(s.Root(), ".gitignore")
	require.NoError(t, os.WriteFile(path, []byte("node_modules/\n/.team/\n"), 0o640))

	require.NoError(t, s.EnsureGitignore())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "node_modules/")
	assert.Equal(t, 1, countOccurrences(string(data), "/.team/"))
	assert.Contains(t, string(data), "/.worktrees/")
}

func TestEnsureGitignore_IdempotentOnSecondRun(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.EnsureGitignore())
	first, err := os.ReadFile(filepath.Join(s.Root(), ".gitignore"))
	require.NoError(t, err)

	require.NoError(t, s.EnsureGitignore())
	second, err := os.ReadFile(filepath.Join(s.Root(), ".gitignore"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}

func TestTasks_RoundTrip(t *testing.T) {
	s := New(t.TempDir())
	task := core.NewTask("t1", "build it", "it builds", "t0")
	task.AssignedTo = "alice"
	task.Layer = 1
	// t0 only exists as a dependency reference here; persistence does not
	// validate graph closure, the phase controller does.
	require.NoError(t, s.SaveTasks("iter-1", []*core.Task{task}))

	loaded, err := s.LoadTasks("iter-1")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, task.ID, loaded[0].ID)
	assert.Equal(t, "alice", loaded[0].AssignedTo)
	assert.Equal(t, 1, loaded[0].Layer)
}

func TestLoadTasks_NilBeforePlanning(t *testing.T) {
	s := New(t.TempDir())

	tasks, err := s.LoadTasks("iter-1")

	require.NoError(t, err)
	assert.Nil(t, tasks)
}

func TestResumable_PersistRestoreClear(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, os.MkdirAll(s.IterationDir("iter-1"), 0o750))

	st := &core.ResumableState{
		Layer: 0,
		Agent: "alice",
		Round: 3,
		Messages: []core.TranscriptEntry{
			{Role: "user", Content: "do the work"},
		},
		HadToolActivity: true,
	}
	require.NoError(t, s.PersistResumable("iter-1")(st))

	restored := s.ResumableFor("iter-1")("alice")
	require.NotNil(t, restored)
	assert.Equal(t, 3, restored.Round)
	assert.True(t, restored.HadToolActivity)

	require.NoError(t, s.ClearResumable("iter-1")("alice"))
	assert.Nil(t, s.ResumableFor("iter-1")("alice"))
}

func TestResumable_CorruptStateTreatedAsFresh(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, os.MkdirAll(s.IterationDir("iter-1"), 0o750))
	require.NoError(t, os.WriteFile(s.ResumableStatePath("iter-1"), []byte("not json"), 0o640))

	assert.Nil(t, s.ResumableFor("iter-1")("alice"))
}
