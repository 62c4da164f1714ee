package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperr "goal-planner/internal/errors"
	"goal-planner/internal/logging"
	"goal-planner/internal/model"
	"goal-planner/internal/repository"
)

// Options configures an Engine. Zero values pick defaults.
type Options struct {
	Clock                 Clock
	FocusThresholdMinutes int
	Logger                *logging.Logger
	MilestoneStore        MilestoneStore
	// ReinforcementSeed seeds message selection; 0 uses the current time.
	ReinforcementSeed uint64
}

// Engine wires the planner services over one store. All services share
// the same clock, lock set and milestone memory.
type Engine struct {
	Clock      Clock
	Store      *repository.Store
	Users      *UserService
	Goals      *GoalService
	Tasks      *TaskService
	Inbox      *InboxService
	Deletes    *SoftDeleteCoordinator
	Plans      *DailyPlanLedger
	History    *ProgressLedger
	Milestones *MilestoneTracker
}

func NewEngine(store *repository.Store, opts Options) *Engine {
	if opts.Clock.now == nil {
		opts.Clock = NewClock(time.Local)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NopLogger()
	}
	if opts.ReinforcementSeed == 0 {
		opts.ReinforcementSeed = uint64(time.Now().UnixNano())
	}

	locks := NewLocker()
	milestones := NewMilestoneTracker(opts.MilestoneStore)
	progress := NewProgressAggregator(opts.Clock)
	streaks := NewStreakTracker(opts.Clock)
	reinforcer := NewReinforcer(opts.ReinforcementSeed)

	goals := NewGoalService(store, progress, milestones, locks, opts.Clock, opts.Logger)
	tasks := NewTaskService(store, progress, milestones, streaks, reinforcer, locks, opts.Clock, opts.Logger)

	return &Engine{
		Clock:      opts.Clock,
		Store:      store,
		Users:      NewUserService(store, opts.Logger),
		Goals:      goals,
		Tasks:      tasks,
		Inbox:      NewInboxService(store, goals, tasks, locks, opts.Logger),
		Deletes:    NewSoftDeleteCoordinator(store, progress, milestones, locks, opts.Clock, opts.Logger),
		Plans:      NewDailyPlanLedger(store, locks, opts.Clock, opts.FocusThresholdMinutes, opts.Logger),
		History:    NewProgressLedger(store, opts.Clock),
		Milestones: milestones,
	}
}

// WarmMilestones seeds milestone memory with the stored progress of every
// live goal that is not archived, so a restarted process does not report
// old crossings again.
func (e *Engine) WarmMilestones(ctx context.Context) (int, error) {
	users, err := e.Store.Users.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	seeded := 0
	for _, u := range users {
		goals, err := e.Store.Goals.ListByUser(ctx, u.ID, nil)
		if err != nil {
			return seeded, err
		}
		for i := range goals {
			if goals[i].Status == model.GoalArchived {
				continue
			}
			e.Milestones.SeedGoal(&goals[i])
			seeded++
		}
	}
	return seeded, nil
}

// notFound translates gorm's missing-row error into the engine taxonomy.
func notFound(err error, resource, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(resource, id)
	}
	return err
}

// missingUser maps a missing owner to PreconditionFailed.
func missingUser(err error, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.PreconditionFailed("user", id, apperr.ErrUserMissing)
	}
	return err
}
