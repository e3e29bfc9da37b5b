package phasectl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MBifolco/gotg-sub000/internal/core"
)

type recordingBoundary struct {
	boundaries [][2]core.Phase
}

func (r *recordingBoundary) WritePhaseBoundary(from, to core.Phase) error {
	r.boundaries = append(r.boundaries, [2]core.Phase{from, to})
	return nil
}

type countingCheckpointer struct {
	count int
}

func (c *countingCheckpointer) Checkpoint(core.CheckpointTrigger) error {
	c.count++
	return nil
}

func startedIteration(phase core.Phase) *core.Iteration {
	it := core.NewIteration("iter-1", "build the widget", 10)
	_ = it.Start()
	it.Phase = phase
	return it
}

func TestAdvanceToPlanning_StoresScopeSummaryAndTransitions(t *testing.T) {
	it := startedIteration(core.PhaseRefinement)
	boundary := &recordingBoundary{}
	checkpoints := &countingCheckpointer{}
	var persisted string
	c := New(it, nil, checkpoints, boundary).
		WithPersistence(func(s string) error { persisted = s; return nil }, nil, nil)

	err := c.AdvanceToPlanning(context.Background(), func(context.Context) (string, error) {
		return "the scope", nil
	})

	require.NoError(t, err)
	assert.Equal(t, core.PhasePlanning, it.Phase)
	assert.Equal(t, "the scope", persisted)
	assert.Equal(t, [][2]core.Phase{{core.PhaseRefinement, core.PhasePlanning}}, boundary.boundaries)
	assert.Equal(t, 1, checkpoints.count)
}

func TestAdvanceToPlanning_RequiresInProgressIteration(t *testing.T) {
	it := core.NewIteration("iter-1", "d", 10)
	c := New(it, nil, nil, nil)

	err := c.AdvanceToPlanning(context.Background(), func(context.Context) (string, error) {
		return "", nil
	})

	require.Error(t, err)
}

func TestAdvanceToPreCodeReview_ParsesAndLayersTasks(t *testing.T) {
	it := startedIteration(core.PhasePlanning)
	c := New(it, nil, nil, &recordingBoundary{})

	raw := "```json\n" + `[
		{"id": "t1", "description": "base", "done_criteria": "ok", "depends_on": []},
		{"id": "t2", "description": "next", "done_criteria": "ok", "depends_on": ["t1"]}
	]` + "\n```"
	err := c.AdvanceToPreCodeReview(context.Background(), func(context.Context) (string, error) {
		return raw, nil
	})

	require.NoError(t, err)
	assert.Equal(t, core.PhasePreCodeReview, it.Phase)
	require.Len(t, c.Tasks, 2)
	assert.Equal(t, 0, c.Tasks[0].Layer)
	assert.Equal(t, 1, c.Tasks[1].Layer)
}

func TestAdvanceToPreCodeReview_CycleSavesRawAndStaysOnPlanning(t *testing.T) {
	it := startedIteration(core.PhasePlanning)
	var savedRaw string
	c := New(it, nil, nil, &recordingBoundary{}).
		WithPersistence(nil, nil, func(raw string) error { savedRaw = raw; return nil })

	raw := `[
		{"id": "t1", "description": "a", "done_criteria": "ok", "depends_on": ["t2"]},
		{"id": "t2", "description": "b", "done_criteria": "ok", "depends_on": ["t1"]}
	]`
	err := c.AdvanceToPreCodeReview(context.Background(), func(context.Context) (string, error) {
		return raw, nil
	})

	require.Error(t, err)
	assert.Equal(t, core.PhasePlanning, it.Phase)
	assert.Equal(t, raw, savedRaw)
}

func TestAdvanceToImplementation_UnassignedTaskIsAHardStop(t *testing.T) {
	it := startedIteration(core.PhasePreCodeReview)
	tasks := []*core.Task{core.NewTask("t1", "a", "ok")}
	c := New(it, tasks, nil, &recordingBoundary{})

	err := c.AdvanceToImplementation()

	require.Error(t, err)
	assert.Equal(t, core.PhasePreCodeReview, it.Phase)
}

func TestAdvanceToImplementation_SetsLayerZero(t *testing.T) {
	it := startedIteration(core.PhasePreCodeReview)
	task := core.NewTask("t1", "a", "ok")
	task.AssignedTo = "alice"
	c := New(it, []*core.Task{task}, nil, &recordingBoundary{})

	require.NoError(t, c.AdvanceToImplementation())

	assert.Equal(t, core.PhaseImplementation, it.Phase)
	require.NotNil(t, it.CurrentLayer)
	assert.Equal(t, 0, *it.CurrentLayer)
}

func TestAdvanceLayerOrComplete_ReturnsToImplementationWhileTasksRemain(t *testing.T) {
	it := startedIteration(core.PhaseCodeReview)
	it.SetLayer(0)
	done := core.NewTask("t1", "a", "ok")
	done.MarkDone("alice", "done")
	pending := core.NewTask("t2", "b", "ok", "t1")
	pending.Layer = 1
	c := New(it, []*core.Task{done, pending}, nil, &recordingBoundary{})

	finished, err := c.AdvanceLayerOrComplete()

	require.NoError(t, err)
	assert.False(t, finished)
	assert.Equal(t, core.PhaseImplementation, it.Phase)
	assert.Equal(t, 1, *it.CurrentLayer)
}

func TestAdvanceLayerOrComplete_FinishesWhenNoDeeperLayer(t *testing.T) {
	it := startedIteration(core.PhaseCodeReview)
	it.SetLayer(0)
	done := core.NewTask("t1", "a", "ok")
	done.MarkDone("alice", "done")
	c := New(it, []*core.Task{done}, nil, &recordingBoundary{})

	finished, err := c.AdvanceLayerOrComplete()

	require.NoError(t, err)
	assert.True(t, finished)
	assert.Equal(t, core.PhaseDone, it.Phase)
	assert.Equal(t, core.IterationDone, it.Status)
}

func TestAdvanceLayerOrComplete_RefusesWhileLayerIncomplete(t *testing.T) {
	it := startedIteration(core.PhaseCodeReview)
	it.SetLayer(0)
	pending := core.NewTask("t1", "a", "ok")
	c := New(it, []*core.Task{pending}, nil, &recordingBoundary{})

	_, err := c.AdvanceLayerOrComplete()

	require.Error(t, err)
	assert.Equal(t, core.PhaseCodeReview, it.Phase)
}

func TestParseTaskList_ToleratesCodeFence(t *testing.T) {
	tasks, err := ParseTaskList("```json\n[{\"id\": \"t1\", \"description\": \"a\", \"done_criteria\": \"ok\"}]\n```")

	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, core.TaskID("t1"), tasks[0].ID)
}

func TestParseTaskList_RejectsNonJSON(t *testing.T) {
	_, err := ParseTaskList("I could not produce a task list, sorry.")

	require.Error(t, err)
}
