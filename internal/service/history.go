package service

import (
	"context"

	apperr "goal-planner/internal/errors"
	"goal-planner/internal/model"
	"goal-planner/internal/repository"
)

// History summarizes a user's activity over the last Days days.
type History struct {
	Days                int
	Records             []model.ProgressRecord
	TotalTasksCompleted int
	GoalsCompleted      int
	AverageTasksPerDay  float64
	CurrentStreak       int
	LongestStreak       int
}

// ProgressLedger reads the per-day progress records written on completion.
type ProgressLedger struct {
	store *repository.Store
	clock Clock
}

func NewProgressLedger(store *repository.Store, clock Clock) *ProgressLedger {
	return &ProgressLedger{store: store, clock: clock}
}

// History returns records for today and the days-1 days before it.
func (p *ProgressLedger) History(ctx context.Context, userID string, days int) (*History, error) {
	if days < 1 {
		return nil, apperr.BadInput("history", userID, apperr.New("days must be at least 1"))
	}
	user, err := p.store.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user", userID)
	}

	records, err := p.store.Progress.ListSince(ctx, userID, p.clock.DaysAgo(days-1))
	if err != nil {
		return nil, err
	}
	completedGoals, err := p.store.Progress.CountCompletedGoals(ctx, userID)
	if err != nil {
		return nil, err
	}

	h := &History{
		Days:           days,
		Records:        records,
		GoalsCompleted: int(completedGoals),
		CurrentStreak:  user.CurrentStreak,
		LongestStreak:  user.LongestStreak,
	}
	for _, r := range records {
		h.TotalTasksCompleted += r.TasksCompleted
	}
	h.AverageTasksPerDay = float64(h.TotalTasksCompleted) / float64(days)
	return h, nil
}
