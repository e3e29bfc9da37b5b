package vcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumstat(t *testing.T) {
	numstat := "10\t2\tsrc/m.py\n3\t0\tsrc/util.py\n"

	files, insertions, deletions := parseNumstat(numstat)

	assert.Equal(t, []string{"src/m.py", "src/util.py"}, files)
	assert.Equal(t, 13, insertions)
	assert.Equal(t, 2, deletions)
}

func TestParseNumstat_EmptyDiff(t *testing.T) {
	files, insertions, deletions := parseNumstat("")

	assert.Empty(t, files)
	assert.Zero(t, insertions)
	assert.Zero(t, deletions)
}

func TestSplitLines_DropsTrailingNewline(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitLines("a\nb\n"))
	assert.Equal(t, []string{"a", "b"}, splitLines("a\nb"))
}

func TestTrimBranchRef(t *testing.T) {
	assert.Equal(t, "alice/layer-0", trimBranchRef("refs/heads/alice/layer-0"))
	assert.Equal(t, "alice/layer-0", trimBranchRef("alice/layer-0"))
}

func TestParseAIResolution_PlainJSON(t *testing.T) {
	res, err := parseAIResolution(`{"content": "merged body", "explanation": "kept both changes"}`)

	require.NoError(t, err)
	assert.Equal(t, "merged body", res.Content)
	assert.Equal(t, "kept both changes", res.Explanation)
}

func TestParseAIResolution_ToleratesCodeFence(t *testing.T) {
	res, err := parseAIResolution("```json\n{\"content\": \"merged\", \"explanation\": \"why\"}\n```")

	require.NoError(t, err)
	assert.Equal(t, "merged", res.Content)
}

func TestParseAIResolution_RejectsEmptyContent(t *testing.T) {
	_, err := parseAIResolution(`{"content": "", "explanation": "nothing"}`)

	require.Error(t, err)
}

func TestParseAIResolution_RejectsNonJSON(t *testing.T) {
	_, err := parseAIResolution("I resolved it, trust me.")

	require.Error(t, err)
}
