package service

import (
	"slices"
	"sort"

	apperr "goal-planner/internal/errors"
	"goal-planner/internal/model"
)

// NextTask is the answer to "what should I work on next" for one goal.
type NextTask struct {
	// Task is nil when every task is done or every remaining one is blocked.
	Task *model.Task
	// Position is the number of completed tasks plus one.
	Position     int
	TotalTasks   int
	GoalProgress int
	// Blocked counts pending tasks waiting on an unfinished dependency.
	// Blocked > 0 with Task == nil means the goal is starved.
	Blocked int
}

// Starved reports whether pending work exists but none of it can start.
func (n NextTask) Starved() bool {
	return n.Task == nil && n.Blocked > 0
}

// SelectNext picks the pending task with the smallest sort order whose
// dependencies are all completed. tasks must be the goal's active tasks. A
// dependency that is not among them was deleted and counts as satisfied.
func SelectNext(tasks []model.Task) NextTask {
	ordered := slices.Clone(tasks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SortOrder < ordered[j].SortOrder
	})

	byID := make(map[string]*model.Task, len(ordered))
	completed := 0
	for i := range ordered {
		byID[ordered[i].ID] = &ordered[i]
		if ordered[i].Status == model.TaskCompleted {
			completed++
		}
	}

	result := NextTask{
		Position:     completed + 1,
		TotalTasks:   len(ordered),
		GoalProgress: ComputeProgress(ordered),
	}
	for i := range ordered {
		task := &ordered[i]
		if task.Status != model.TaskPending {
			continue
		}
		if !dependenciesSatisfied(task, byID) {
			result.Blocked++
			continue
		}
		if result.Task == nil {
			result.Task = task
		}
	}
	return result
}

func dependenciesSatisfied(task *model.Task, byID map[string]*model.Task) bool {
	for _, depID := range task.DependsOn {
		dep, ok := byID[depID]
		if ok && dep.Status != model.TaskCompleted {
			return false
		}
	}
	return true
}

// ValidateDependencies checks that setting taskID's dependencies to
// dependsOn keeps the goal's graph valid: every entry is an active sibling
// other than the task itself, and no cycle is introduced. siblings are the
// goal's active tasks; taskID may be absent from them for a task being
// created. It returns the deduplicated dependency list.
func ValidateDependencies(siblings []model.Task, taskID string, dependsOn []string) ([]string, error) {
	deps := make([]string, 0, len(dependsOn))
	seen := make(map[string]bool, len(dependsOn))
	live := make(map[string]bool, len(siblings))
	for _, t := range siblings {
		live[t.ID] = true
	}
	for _, id := range dependsOn {
		if seen[id] {
			continue
		}
		seen[id] = true
		if id == taskID || !live[id] {
			return nil, apperr.BadInput("dependency", id, apperr.ErrInvalidDependency)
		}
		deps = append(deps, id)
	}

	graph := make(map[string][]string, len(siblings)+1)
	for _, t := range siblings {
		graph[t.ID] = t.DependsOn
	}
	graph[taskID] = deps
	if hasCycle(graph) {
		return nil, apperr.BadInput("task", taskID, apperr.ErrDependencyCycle)
	}
	return deps, nil
}

// hasCycle runs a Kahn topological sort over graph (task -> dependencies)
// and reports whether some tasks could never be ordered. Edges to unknown
// ids are ignored.
func hasCycle(graph map[string][]string) bool {
	inDegree := make(map[string]int, len(graph))
	dependents := make(map[string][]string, len(graph))
	for id := range graph {
		inDegree[id] += 0
	}
	for id, deps := range graph {
		for _, depID := range deps {
			if _, ok := graph[depID]; ok {
				inDegree[id]++
				dependents[depID] = append(dependents[depID], id)
			}
		}
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range dependents[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	return visited < len(graph)
}
