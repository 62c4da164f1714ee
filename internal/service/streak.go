package service

import (
	"context"

	"goal-planner/internal/model"
	"goal-planner/internal/repository"
)

// StreakUpdate is the streak state after a completion.
type StreakUpdate struct {
	Current     int
	Longest     int
	IsNewRecord bool
	// Changed is false when the user was already active today.
	Changed bool
}

// AdvanceStreak applies one completion on day today to a streak last
// active on lastActive (nil if never).
func AdvanceStreak(today string, lastActive *string, current, longest int) StreakUpdate {
	if lastActive != nil && *lastActive == today {
		return StreakUpdate{Current: current, Longest: longest}
	}

	next := 1
	if lastActive != nil && *lastActive == previousDay(today) {
		next = current + 1
	}
	return StreakUpdate{
		Current:     next,
		Longest:     max(longest, next),
		IsNewRecord: next > longest,
		Changed:     true,
	}
}

// StreakTracker persists streak state. Callers must hold the user's lock
// and pass the transaction the completion runs in.
type StreakTracker struct {
	clock Clock
}

func NewStreakTracker(clock Clock) *StreakTracker {
	return &StreakTracker{clock: clock}
}

func (s *StreakTracker) Record(ctx context.Context, tx *repository.Store, user *model.User) (StreakUpdate, error) {
	today := s.clock.Today()
	update := AdvanceStreak(today, user.LastActiveDate, user.CurrentStreak, user.LongestStreak)
	if !update.Changed {
		return update, nil
	}

	user.CurrentStreak = update.Current
	user.LongestStreak = update.Longest
	user.LastActiveDate = &today
	if err := tx.Users.SaveStreak(ctx, user); err != nil {
		return StreakUpdate{}, err
	}
	return update, nil
}
