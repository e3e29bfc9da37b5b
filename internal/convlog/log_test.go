package convlog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MBifolco/gotg-sub000/internal/core"
)

func TestLog_AppendAndReadAll_PreservesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversation.jsonl")
	log := New(path)

	require.NoError(t, log.Append(core.Message{From: "alice", Content: "first"}))
	require.NoError(t, log.Append(core.Message{From: "bob", Content: "second"}))

	messages, err := log.ReadAll()
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "second", messages[1].Content)
}

func TestLog_ReadAll_MissingFileReturnsEmpty(t *testing.T) {
	log := New(filepath.Join(t.TempDir(), "missing.jsonl"))

	messages, err := log.ReadAll()
	require.NoError(t, err)
	assert.Nil(t, messages)
}

func TestDebugLog_Append_WritesJSONLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.jsonl")
	debug := NewDebugLog(path)

	require.NoError(t, debug.Append(map[string]string{"prompt": "hello"}))
}
