// Package dag computes dependency layers for planning-phase task lists.
package dag

import (
	"sort"

	"github.com/MBifolco/gotg-sub000/internal/core"
)

// ComputeLayers assigns Layer to every task such that
// Layer(t) = 1 + max(Layer(d) for d in deps(t)), or 0 if deps(t) is empty.
// It mutates Layer in place on the provided tasks and returns a core.ErrValidation
// error (category ErrCatPhaseTransition via the caller) if the dependency
// graph contains a cycle or references an unknown task id. The result is
// stable under reordering of the input slice — tasks are looked up by ID,
// never by position.
func ComputeLayers(tasks []*core.Task) error {
	byID := make(map[core.TaskID]*core.Task, len(tasks))
	for _, t := range tasks {
		if _, dup := byID[t.ID]; dup {
			return core.ErrValidation("DUPLICATE_TASK_ID", "duplicate task id: "+string(t.ID))
		}
		byID[t.ID] = t
	}
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			if _, ok := byID[dep]; !ok {
				return core.ErrValidation("MISSING_DEPENDENCY", "task "+string(t.ID)+" depends on unknown task "+string(dep))
			}
		}
	}

	if err := detectCycle(tasks); err != nil {
		return err
	}

	memo := make(map[core.TaskID]int, len(tasks))
	var layerOf func(id core.TaskID) int
	layerOf = func(id core.TaskID) int {
		if l, ok := memo[id]; ok {
			return l
		}
		t := byID[id]
		if len(t.DependsOn) == 0 {
			memo[id] = 0
			return 0
		}
		max := -1
		for _, dep := range t.DependsOn {
			if l := layerOf(dep); l > max {
				max = l
			}
		}
		l := max + 1
		memo[id] = l
		return l
	}

	for _, t := range tasks {
		t.Layer = layerOf(t.ID)
	}
	return nil
}

// detectCycle runs DFS with a recursion stack over the dependency edges,
// mirroring the detection used elsewhere in this codebase for workflow
// task graphs.
func detectCycle(tasks []*core.Task) error {
	byID := make(map[core.TaskID]*core.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	visited := make(map[core.TaskID]bool)
	recStack := make(map[core.TaskID]bool)

	var dfs func(id core.TaskID) bool
	dfs = func(id core.TaskID) bool {
		visited[id] = true
		recStack[id] = true
		for _, dep := range byID[id].DependsOn {
			if !visited[dep] {
				if dfs(dep) {
					return true
				}
			} else if recStack[dep] {
				return true
			}
		}
		recStack[id] = false
		return false
	}

	// Iterate in a stable (sorted) order so error messages are deterministic.
	ids := make([]core.TaskID, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if !visited[id] {
			if dfs(id) {
				return core.ErrPhaseTransition("DAG_CYCLE", "task dependency graph contains a cycle")
			}
		}
	}
	return nil
}

// ReadyTasks returns tasks within the given layer whose status is still
// pending, grouped implicitly by the caller filtering further by assignee.
func ReadyTasks(tasks []*core.Task, layer int) []*core.Task {
	ready := make([]*core.Task, 0)
	for _, t := range tasks {
		if t.Layer == layer && t.Status == core.TaskStatusPending {
			ready = append(ready, t)
		}
	}
	return ready
}
