package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MBifolco/gotg-sub000/internal/core"
)

func diamond() []*core.Task {
	return []*core.Task{
		core.NewTask("t1", "base", "done"),
		core.NewTask("t2", "left", "done", "t1"),
		core.NewTask("t3", "right", "done", "t1"),
		core.NewTask("t4", "join", "done", "t2", "t3"),
	}
}

func layersByID(tasks []*core.Task) map[core.TaskID]int {
	out := make(map[core.TaskID]int, len(tasks))
	for _, t := range tasks {
		out[t.ID] = t.Layer
	}
	return out
}

func TestComputeLayers_Diamond(t *testing.T) {
	tasks := diamond()
	require.NoError(t, ComputeLayers(tasks))

	assert.Equal(t, map[core.TaskID]int{"t1": 0, "t2": 1, "t3": 1, "t4": 2}, layersByID(tasks))
}

func TestComputeLayers_NoDepsMeansLayerZero(t *testing.T) {
	tasks := []*core.Task{
		core.NewTask("a", "a", "done"),
		core.NewTask("b", "b", "done"),
	}
	require.NoError(t, ComputeLayers(tasks))

	assert.Equal(t, 0, tasks[0].Layer)
	assert.Equal(t, 0, tasks[1].Layer)
}

func TestComputeLayers_StableUnderReordering(t *testing.T) {
	forward := diamond()
	require.NoError(t, ComputeLayers(forward))

	reversed := diamond()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	require.NoError(t, ComputeLayers(reversed))

	assert.Equal(t, layersByID(forward), layersByID(reversed))
}

func TestComputeLayers_CycleIsAnError(t *testing.T) {
	tasks := []*core.Task{
		core.NewTask("t1", "a", "done", "t2"),
		core.NewTask("t2", "b", "done", "t1"),
	}

	err := ComputeLayers(tasks)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestComputeLayers_UnknownDependencyIsAnError(t *testing.T) {
	tasks := []*core.Task{core.NewTask("t1", "a", "done", "ghost")}

	require.Error(t, ComputeLayers(tasks))
}

func TestComputeLayers_DuplicateIDIsAnError(t *testing.T) {
	tasks := []*core.Task{
		core.NewTask("t1", "a", "done"),
		core.NewTask("t1", "b", "done"),
	}

	require.Error(t, ComputeLayers(tasks))
}

func TestReadyTasks_FiltersLayerAndStatus(t *testing.T) {
	tasks := diamond()
	require.NoError(t, ComputeLayers(tasks))
	tasks[1].MarkDone("alice", "done")

	ready := ReadyTasks(tasks, 1)

	require.Len(t, ready, 1)
	assert.Equal(t, core.TaskID("t3"), ready[0].ID)
}
