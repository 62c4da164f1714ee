package service

import (
	"context"
	"math"

	"goal-planner/internal/model"
	"goal-planner/internal/repository"
)

// ComputeProgress returns round(100 * completed / total) over tasks, or 0
// when there are none. tasks must already exclude tombstones.
func ComputeProgress(tasks []model.Task) int {
	if len(tasks) == 0 {
		return 0
	}
	completed := 0
	for _, t := range tasks {
		if t.Status == model.TaskCompleted {
			completed++
		}
	}
	return int(math.Round(100 * float64(completed) / float64(len(tasks))))
}

// ProgressAggregator keeps a goal's cached progress equal to what its live
// tasks say. It always recounts; it never applies deltas.
type ProgressAggregator struct {
	clock Clock
}

func NewProgressAggregator(clock Clock) *ProgressAggregator {
	return &ProgressAggregator{clock: clock}
}

// Recompute recounts goal's active tasks through tx, persists the new
// progress and, on reaching 100, completes an active goal. completedAt is
// stamped only the first time. A goal is never reverted from completed.
func (a *ProgressAggregator) Recompute(ctx context.Context, tx *repository.Store, goal *model.Goal) (int, error) {
	tasks, err := tx.Tasks.ListByGoal(ctx, goal.ID)
	if err != nil {
		return 0, err
	}

	goal.Progress = ComputeProgress(tasks)
	if goal.Progress == 100 && goal.Status == model.GoalActive {
		goal.Status = model.GoalCompleted
		if goal.CompletedAt == nil {
			now := a.clock.Now()
			goal.CompletedAt = &now
		}
	}

	if err := tx.Goals.SaveProgress(ctx, goal); err != nil {
		return 0, err
	}
	return goal.Progress, nil
}
