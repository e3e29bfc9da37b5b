package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	teamDir := filepath.Join(root, ".team")
	require.NoError(t, os.MkdirAll(filepath.Join(teamDir, "iterations", "iter-1"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(teamDir, "team.json"), []byte(`{"agents": []}`), 0o640))
	require.NoError(t, os.WriteFile(filepath.Join(teamDir, "iteration.json"), []byte(`{
		"iterations": [{"id": "iter-1", "description": "build it", "status": "in-progress", "phase": "planning"}],
		"current": "iter-1"
	}`), 0o640))
	require.NoError(t, os.WriteFile(filepath.Join(teamDir, "iterations", "iter-1", "conversation.jsonl"), []byte(`{"from":"alice","content":"hi"}`+"\n"), 0o640))
	return root
}

func TestExportImport_RoundTrip(t *testing.T) {
	src := seedProject(t)
	archive := filepath.Join(t.TempDir(), "snap.tar.gz")

	exported, err := Export(&ExportOptions{ProjectRoot: src, OutputPath: archive})
	require.NoError(t, err)
	require.Len(t, exported.Manifest.Files, 3)

	dst := t.TempDir()
	report, err := Import(&ImportOptions{InputPath: archive, ProjectRoot: dst})
	require.NoError(t, err)
	assert.Equal(t, 3, report.RestoredFiles)

	restored, err := os.ReadFile(filepath.Join(dst, ".team", "iterations", "iter-1", "conversation.jsonl"))
	require.NoError(t, err)
	original, err := os.ReadFile(filepath.Join(src, ".team", "iterations", "iter-1", "conversation.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestExport_WritesRegistrySummary(t *testing.T) {
	src := seedProject(t)
	archive := filepath.Join(t.TempDir(), "snap.tar.gz")

	_, err := Export(&ExportOptions{ProjectRoot: src, OutputPath: archive})
	require.NoError(t, err)

	report, err := Import(&ImportOptions{InputPath: archive, ProjectRoot: t.TempDir(), DryRun: true})
	require.NoError(t, err)
	require.NotNil(t, report.Registry)
	assert.Equal(t, "iter-1", report.Registry.Current)
	require.Len(t, report.Registry.Iterations, 1)
	assert.Equal(t, "planning", report.Registry.Iterations[0].Phase)
}

func TestImport_ConflictSkipLeavesExistingFile(t *testing.T) {
	src := seedProject(t)
	archive := filepath.Join(t.TempDir(), "snap.tar.gz")
	_, err := Export(&ExportOptions{ProjectRoot: src, OutputPath: archive})
	require.NoError(t, err)

	dst := seedProject(t)
	existing := filepath.Join(dst, ".team", "team.json")
	require.NoError(t, os.WriteFile(existing, []byte(`{"agents": [{"name": "keep-me"}]}`), 0o640))

	report, err := Import(&ImportOptions{InputPath: archive, ProjectRoot: dst, ConflictPolicy: ConflictSkip})
	require.NoError(t, err)
	assert.Equal(t, 3, report.SkippedFiles)

	kept, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Contains(t, string(kept), "keep-me")
}

func TestImport_ReplaceModeClearsDestinationTree(t *testing.T) {
	src := seedProject(t)
	archive := filepath.Join(t.TempDir(), "snap.tar.gz")
	_, err := Export(&ExportOptions{ProjectRoot: src, OutputPath: archive})
	require.NoError(t, err)

	dst := seedProject(t)
	stale := filepath.Join(dst, ".team", "iterations", "iter-9", "conversation.jsonl")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o750))
	require.NoError(t, os.WriteFile(stale, []byte(`{"from":"bob","content":"old"}`+"\n"), 0o640))

	report, err := Import(&ImportOptions{InputPath: archive, ProjectRoot: dst, Mode: ImportModeReplace})
	require.NoError(t, err)
	assert.Equal(t, ImportModeReplace, report.Mode)
	assert.Equal(t, 3, report.RestoredFiles)

	_, statErr := os.Stat(stale)
	assert.True(t, os.IsNotExist(statErr))
}

func TestImport_RejectsUnknownMode(t *testing.T) {
	_, err := Import(&ImportOptions{InputPath: "whatever.tar.gz", ProjectRoot: t.TempDir(), Mode: "sideways"})

	require.Error(t, err)
}

func TestImport_ConflictFailStopsOnFirstConflict(t *testing.T) {
	src := seedProject(t)
	archive := filepath.Join(t.TempDir(), "snap.tar.gz")
	_, err := Export(&ExportOptions{ProjectRoot: src, OutputPath: archive})
	require.NoError(t, err)

	_, err = Import(&ImportOptions{InputPath: archive, ProjectRoot: src, ConflictPolicy: ConflictFail})
	require.Error(t, err)
}

func TestValidateSnapshot_ReturnsManifest(t *testing.T) {
	src := seedProject(t)
	archive := filepath.Join(t.TempDir(), "snap.tar.gz")
	_, err := Export(&ExportOptions{ProjectRoot: src, OutputPath: archive})
	require.NoError(t, err)

	manifest, err := ValidateSnapshot(archive)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, manifest.Version)
	assert.Len(t, manifest.Files, 3)
}

func TestCleanArchivePath_RejectsTraversal(t *testing.T) {
	_, err := cleanArchivePath("../escape")
	require.Error(t, err)

	_, err = cleanArchivePath("/abs/path")
	require.Error(t, err)
}
