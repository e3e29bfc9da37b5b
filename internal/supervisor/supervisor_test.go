package supervisor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MBifolco/gotg-sub000/internal/core"
)

func TestGroomingSlug_SanitizesTopic(t *testing.T) {
	slug := GroomingSlug("Add OAuth2 login!")

	assert.True(t, strings.HasPrefix(slug, "add-oauth2-login-"))
	assert.NotContains(t, slug, " ")
	assert.NotContains(t, slug, "!")
}

func TestGroomingSlug_UniquePerCall(t *testing.T) {
	assert.NotEqual(t, GroomingSlug("same topic"), GroomingSlug("same topic"))
}

func TestSummarizeTasks_OneLinePerTask(t *testing.T) {
	task := core.NewTask("t1", "build the parser", "parses")
	task.AssignedTo = "alice"
	task.Layer = 1

	summary := summarizeTasks([]*core.Task{task})

	assert.Contains(t, summary, "[t1]")
	assert.Contains(t, summary, "layer 1")
	assert.Contains(t, summary, "alice")
}

func TestSummarizeTasks_EmptyTasks(t *testing.T) {
	assert.Empty(t, summarizeTasks(nil))
}
