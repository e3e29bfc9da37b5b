package filemediator

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MBifolco/gotg-sub000/internal/core"
)

func TestApprovalStore_RequestThenApprove(t *testing.T) {
	store, err := NewApprovalStore(filepath.Join(t.TempDir(), "approvals.json"))
	require.NoError(t, err)

	req := store.Request("alice", "docs/readme.md", []byte("hello"))
	assert.Equal(t, core.ApprovalPending, req.Status)
	assert.Len(t, store.Pending(), 1)

	approved, err := store.Approve(req.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ApprovalApproved, approved.Status)
	assert.Empty(t, store.Pending())
}

func TestApprovalStore_DenyRecordsReason(t *testing.T) {
	store, err := NewApprovalStore(filepath.Join(t.TempDir(), "approvals.json"))
	require.NoError(t, err)

	req := store.Request("bob", "docs/readme.md", []byte("hello"))
	denied, err := store.Deny(req.ID, "not needed")
	require.NoError(t, err)
	assert.Equal(t, core.ApprovalDenied, denied.Status)
	assert.Equal(t, "not needed", denied.DenialReason)
}

func TestApprovalStore_PersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "approvals.json")
	store, err := NewApprovalStore(path)
	require.NoError(t, err)
	store.Request("alice", "a.go", []byte("x"))

	reloaded, err := NewApprovalStore(path)
	require.NoError(t, err)
	assert.Len(t, reloaded.Pending(), 1)
}

func TestApprovalStore_SequentialIDsSurviveReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "approvals.json")
	store, err := NewApprovalStore(path)
	require.NoError(t, err)
	store.Request("alice", "a.go", []byte("x"))
	store.Request("alice", "b.go", []byte("y"))

	reloaded, err := NewApprovalStore(path)
	require.NoError(t, err)
	third := reloaded.Request("alice", "c.go", []byte("z"))

	assert.Equal(t, "approval-2", third.ID)
}

func TestApprovalStore_ApproveUnknownIDFails(t *testing.T) {
	store, err := NewApprovalStore(filepath.Join(t.TempDir(), "approvals.json"))
	require.NoError(t, err)

	_, err = store.Approve("approval-999")
	require.Error(t, err)
}
