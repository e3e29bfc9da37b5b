package filemediator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MBifolco/gotg-sub000/internal/core"
)

func newTestMediator(t *testing.T, access core.FileAccessConfig) (*Mediator, string) {
	t.Helper()
	root := t.TempDir()
	return New(root, access, nil), root
}

func TestReadFile_DeniesEnvFiles(t *testing.T) {
	m, root := newTestMediator(t, core.DefaultFileAccessConfig())
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("SECRET=1"), 0o600))

	_, err := m.ReadFile(".env")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "READ_DENIED")
}

func TestReadFile_DeniesTeamDir(t *testing.T) {
	m, root := newTestMediator(t, core.DefaultFileAccessConfig())
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".team"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".team", "team.json"), []byte("{}"), 0o600))

	_, err := m.ReadFile(".team/team.json")

	require.Error(t, err)
}

func TestReadFile_AllowsOrdinaryPath(t *testing.T) {
	m, root := newTestMediator(t, core.DefaultFileAccessConfig())
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0o600))

	data, err := m.ReadFile("main.go")

	require.NoError(t, err)
	assert.Equal(t, "package main", string(data))
}

func TestContainmentCheck_RejectsAbsolutePath(t *testing.T) {
	_, err := containmentCheck(t.TempDir(), "/etc/passwd")
	require.Error(t, err)
}

func TestContainmentCheck_RejectsDotDotSegment(t *testing.T) {
	_, err := containmentCheck(t.TempDir(), "../escape.txt")
	require.Error(t, err)
}

func TestWriteFile_DeniesOutsideWritablePaths(t *testing.T) {
	access := core.DefaultFileAccessConfig()
	access.WritablePaths = []string{"src/**"}
	m, _ := newTestMediator(t, access)

	_, err := m.WriteFile("alice", "other/file.go", []byte("x"))

	require.Error(t, err)
}

func TestWriteFile_AllowsMatchingGlob(t *testing.T) {
	access := core.DefaultFileAccessConfig()
	access.WritablePaths = []string{"src/**"}
	m, root := newTestMediator(t, access)

	result, err := m.WriteFile("alice", "src/pkg/file.go", []byte("package pkg"))

	require.NoError(t, err)
	assert.Equal(t, WriteApplied, result.Outcome)
	data, readErr := os.ReadFile(filepath.Join(root, "src", "pkg", "file.go"))
	require.NoError(t, readErr)
	assert.Equal(t, "package pkg", string(data))
}

func TestWriteFile_FunnelsToApprovalWhenEnabled(t *testing.T) {
	access := core.DefaultFileAccessConfig()
	access.WritablePaths = []string{"src/**"}
	access.EnableApprovals = true
	root := t.TempDir()
	store, err := NewApprovalStore(filepath.Join(root, "approvals.json"))
	require.NoError(t, err)
	m := New(root, access, store)

	result, err := m.WriteFile("alice", "docs/readme.md", []byte("hi"))

	require.NoError(t, err)
	assert.Equal(t, WritePendingApproval, result.Outcome)
	assert.NotEmpty(t, result.ApprovalID)
	assert.Len(t, store.Pending(), 1)
}

func TestWriteFile_RejectsOversizedContent(t *testing.T) {
	access := core.DefaultFileAccessConfig()
	access.MaxFileSizeBytes = 4
	access.WritablePaths = []string{"*"}
	m, _ := newTestMediator(t, access)

	_, err := m.WriteFile("alice", "big.txt", []byte("too big"))

	require.Error(t, err)
}

func TestWriteFile_EnforcesWritesPerTurnLimit(t *testing.T) {
	access := core.DefaultFileAccessConfig()
	access.WritablePaths = []string{"src/**"}
	access.MaxFilesPerTurn = 2
	m, _ := newTestMediator(t, access)

	_, err := m.WriteFile("alice", "src/a.go", []byte("a"))
	require.NoError(t, err)
	_, err = m.WriteFile("alice", "src/b.go", []byte("b"))
	require.NoError(t, err)

	_, err = m.WriteFile("alice", "src/c.go", []byte("c"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOO_MANY_WRITES")

	m.ResetTurn()
	_, err = m.WriteFile("alice", "src/c.go", []byte("c"))
	require.NoError(t, err)
}

func TestWithRoot_FallsBackToOriginalRootOnMiss(t *testing.T) {
	access := core.DefaultFileAccessConfig()
	mainRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(mainRoot, "committed.go"), []byte("package main"), 0o600))
	m := New(mainRoot, access, nil)

	worktreeRoot := t.TempDir()
	wt := m.WithRoot(worktreeRoot)

	data, err := wt.ReadFile("committed.go")

	require.NoError(t, err)
	assert.Equal(t, "package main", string(data))
}

func TestIsDeniedReadPath_EnvPatterns(t *testing.T) {
	assert.True(t, isDeniedReadPath(".env"))
	assert.True(t, isDeniedReadPath(".env.local"))
	assert.True(t, isDeniedReadPath("config.env"))
	assert.False(t, isDeniedReadPath("srcenv.py"))
}

func TestMatchesAny_DoubleStarGlob(t *testing.T) {
	assert.True(t, matchesAny("src/pkg/deep/file.go", []string{"src/**"}))
	assert.False(t, matchesAny("other/file.go", []string{"src/**"}))
}

func TestMatchesAny_BasenamePattern(t *testing.T) {
	assert.True(t, matchesAny("anywhere/deep/file_test.go", []string{"*_test.go"}))
}
