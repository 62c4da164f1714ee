package service

import (
	"context"
	"strings"

	apperr "goal-planner/internal/errors"
	"goal-planner/internal/logging"
	"goal-planner/internal/model"
	"goal-planner/internal/repository"
)

// GoalInput represents data required to create a goal.
type GoalInput struct {
	UserID      string
	Title       string
	Purpose     string
	Description string
}

// GoalService wraps goal-related business logic.
type GoalService struct {
	store      *repository.Store
	progress   *ProgressAggregator
	milestones *MilestoneTracker
	locks      *Locker
	clock      Clock
	log        *logging.Logger
}

func NewGoalService(store *repository.Store, progress *ProgressAggregator, milestones *MilestoneTracker, locks *Locker, clock Clock, log *logging.Logger) *GoalService {
	return &GoalService{store: store, progress: progress, milestones: milestones, locks: locks, clock: clock, log: log}
}

func (s *GoalService) CreateGoal(ctx context.Context, input GoalInput) (*model.Goal, error) {
	return s.create(ctx, input, nil)
}

// create inserts a goal; within, when set, runs in the same transaction.
func (s *GoalService) create(ctx context.Context, input GoalInput, within func(tx *repository.Store, goal *model.Goal) error) (*model.Goal, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperr.BadInput("goal", "", apperr.New("title is required"))
	}

	unlock := s.locks.Lock(userKey(input.UserID))
	defer unlock()

	goal := model.Goal{
		UserID:      input.UserID,
		Title:       title,
		Purpose:     input.Purpose,
		Description: input.Description,
		Status:      model.GoalActive,
	}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Users.FindByID(ctx, input.UserID); err != nil {
			return missingUser(err, input.UserID)
		}
		count, err := tx.Goals.CountByUser(ctx, input.UserID)
		if err != nil {
			return err
		}
		goal.SortOrder = int(count)
		if err := tx.Goals.Create(ctx, &goal); err != nil {
			return err
		}
		if within != nil {
			return within(tx, &goal)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.milestones.Seed(goal.ID, 0)
	s.log.WithUser(goal.UserID).Info("goal created", "goal_id", goal.ID)
	return &goal, nil
}

// GetGoal returns an active goal with its task counts.
func (s *GoalService) GetGoal(ctx context.Context, goalID string) (*model.GoalWithCounts, error) {
	goal, err := s.store.Goals.FindByID(ctx, goalID)
	if err != nil {
		return nil, notFound(err, "goal", goalID)
	}
	counts, err := s.store.Tasks.CountByGoals(ctx, []string{goal.ID})
	if err != nil {
		return nil, err
	}
	c := counts[goal.ID]
	return &model.GoalWithCounts{Goal: *goal, TaskCount: c.Total, CompletedTaskCount: c.Completed}, nil
}

// ListGoals returns the user's active goals, optionally only those in status.
func (s *GoalService) ListGoals(ctx context.Context, userID string, status *model.GoalStatus) ([]model.GoalWithCounts, error) {
	goals, err := s.store.Goals.ListByUser(ctx, userID, status)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(goals))
	for i, g := range goals {
		ids[i] = g.ID
	}
	counts, err := s.store.Tasks.CountByGoals(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]model.GoalWithCounts, len(goals))
	for i, g := range goals {
		c := counts[g.ID]
		out[i] = model.GoalWithCounts{Goal: g, TaskCount: c.Total, CompletedTaskCount: c.Completed}
	}
	return out, nil
}

// ArchiveGoal moves a goal to archived and drops its milestone memory.
func (s *GoalService) ArchiveGoal(ctx context.Context, goalID string) (*model.Goal, error) {
	unlock := s.locks.Lock(goalKey(goalID))
	defer unlock()

	var goal *model.Goal
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		goal, err = tx.Goals.FindByID(ctx, goalID)
		if err != nil {
			return notFound(err, "goal", goalID)
		}
		if goal.Status == model.GoalArchived {
			return apperr.InvalidTransition("goal", goalID, apperr.New("goal is already archived"))
		}
		return tx.Goals.SetStatus(ctx, goal, model.GoalArchived)
	})
	if err != nil {
		return nil, err
	}

	s.milestones.Forget(goalID)
	s.log.WithGoal(goalID).Info("goal archived")
	return goal, nil
}

// GoalUpdate carries the goal fields to change; nil fields stay as they are.
type GoalUpdate struct {
	Title       *string
	Purpose     *string
	Description *string
	Status      *model.GoalStatus
	SortOrder   *int
}

// UpdateGoal edits a goal's details and, optionally, its status. Moving to
// completed stamps completedAt once. Archiving drops milestone memory and
// leaving archived seeds it from the stored progress.
func (s *GoalService) UpdateGoal(ctx context.Context, goalID string, update GoalUpdate) (*model.Goal, error) {
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return nil, apperr.BadInput("goal", goalID, apperr.New("title is required"))
		}
		update.Title = &title
	}
	if update.Status != nil && !update.Status.Valid() {
		return nil, apperr.BadInput("status", string(*update.Status), apperr.New("unknown goal status"))
	}

	unlock := s.locks.Lock(goalKey(goalID))
	defer unlock()

	var goal *model.Goal
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		goal, err = tx.Goals.FindByID(ctx, goalID)
		if err != nil {
			return notFound(err, "goal", goalID)
		}
		if update.Title != nil {
			goal.Title = *update.Title
		}
		if update.Purpose != nil {
			goal.Purpose = *update.Purpose
		}
		if update.Description != nil {
			goal.Description = *update.Description
		}
		if update.SortOrder != nil {
			goal.SortOrder = *update.SortOrder
		}
		if update.Status != nil {
			goal.Status = *update.Status
			if goal.Status == model.GoalCompleted && goal.CompletedAt == nil {
				now := s.clock.Now()
				goal.CompletedAt = &now
			}
		}
		return tx.Goals.SaveDetails(ctx, goal)
	})
	if err != nil {
		return nil, err
	}

	if goal.Status == model.GoalArchived {
		s.milestones.Forget(goal.ID)
	} else if !s.milestones.Remembers(goal.ID) {
		s.milestones.SeedGoal(goal)
	}
	s.log.WithGoal(goal.ID).Info("goal updated", "status", string(goal.Status))
	return goal, nil
}
