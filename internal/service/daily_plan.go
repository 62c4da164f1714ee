package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperr "goal-planner/internal/errors"
	"goal-planner/internal/logging"
	"goal-planner/internal/model"
	"goal-planner/internal/repository"
)

// Overcommitment compares a plan's estimated minutes with the focus budget.
type Overcommitment struct {
	TotalMinutes           int
	ThresholdMinutes       int
	IsOvercommitted        bool
	OvercommittedByMinutes int
}

// CalculateOvercommitment reports whether total exceeds threshold and by how much.
func CalculateOvercommitment(total, threshold int) Overcommitment {
	return Overcommitment{
		TotalMinutes:           total,
		ThresholdMinutes:       threshold,
		IsOvercommitted:        total > threshold,
		OvercommittedByMinutes: max(0, total-threshold),
	}
}

// PlanStart is the result of starting today's planning session.
type PlanStart struct {
	Plan                *model.DailyPlan
	Created             bool
	YesterdayUnfinished []model.UnfinishedTask
}

// PlanConfirmation summarizes a confirmed plan.
type PlanConfirmation struct {
	ConfirmedTaskCount    int
	TotalEstimatedMinutes int
}

// DailyPlanLedger keeps one plan per user and day and tracks its minute
// budget.
type DailyPlanLedger struct {
	store     *repository.Store
	locks     *Locker
	clock     Clock
	threshold int
	log       *logging.Logger
}

func NewDailyPlanLedger(store *repository.Store, locks *Locker, clock Clock, thresholdMinutes int, log *logging.Logger) *DailyPlanLedger {
	if thresholdMinutes <= 0 {
		thresholdMinutes = model.DefaultFocusThresholdMinutes
	}
	return &DailyPlanLedger{store: store, locks: locks, clock: clock, threshold: thresholdMinutes, log: log}
}

// Start returns today's plan for userID, creating an in_progress one if
// none exists. An existing plan is returned whatever its status.
func (l *DailyPlanLedger) Start(ctx context.Context, userID string) (*PlanStart, error) {
	unlock := l.locks.Lock(userKey(userID))
	defer unlock()

	today := l.clock.Today()
	result := &PlanStart{}
	err := l.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Users.FindByID(ctx, userID); err != nil {
			return missingUser(err, userID)
		}
		plan, err := tx.Plans.FindByUserDate(ctx, userID, today)
		switch {
		case err == nil:
			result.Plan = plan
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		plan = &model.DailyPlan{
			UserID:                userID,
			Date:                  today,
			SelectedTaskIDs:       []string{},
			FocusThresholdMinutes: l.threshold,
			Status:                model.PlanInProgress,
		}
		if err := tx.Plans.Create(ctx, plan); err != nil {
			return err
		}
		result.Plan = plan
		result.Created = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.YesterdayUnfinished, err = l.store.Tasks.ListUnfinishedOn(ctx, userID, l.clock.DaysAgo(1))
	if err != nil {
		return nil, err
	}
	if result.Created {
		l.log.WithUser(userID).Info("daily plan started", "plan_id", result.Plan.ID, "date", today)
	}
	return result, nil
}

// Today returns the user's plan for the current day.
func (l *DailyPlanLedger) Today(ctx context.Context, userID string) (*model.DailyPlan, error) {
	plan, err := l.store.Plans.FindByUserDate(ctx, userID, l.clock.Today())
	if err != nil {
		return nil, notFound(err, "daily plan", userID)
	}
	return plan, nil
}

// UpdateSelections replaces the plan's selected tasks and recomputes the
// minute total from the tasks' current estimates. Unknown or deleted ids
// stay selected but count zero minutes.
func (l *DailyPlanLedger) UpdateSelections(ctx context.Context, planID string, taskIDs []string) (Overcommitment, error) {
	var result Overcommitment
	err := l.withOpenPlan(ctx, planID, func(tx *repository.Store, plan *model.DailyPlan) error {
		selected := dedupe(taskIDs)
		tasks, err := tx.Tasks.FindByIDs(ctx, selected)
		if err != nil {
			return err
		}
		total := 0
		for _, t := range tasks {
			total += t.EstimatedMinutes
		}

		result = CalculateOvercommitment(total, plan.FocusThresholdMinutes)
		plan.SelectedTaskIDs = selected
		plan.TotalEstimatedMinutes = total
		plan.IsOvercommitted = result.IsOvercommitted
		return tx.Plans.SaveSelections(ctx, plan)
	})
	if err != nil {
		return Overcommitment{}, err
	}
	return result, nil
}

// Confirm moves an in_progress plan to confirmed.
func (l *DailyPlanLedger) Confirm(ctx context.Context, planID string) (PlanConfirmation, error) {
	var result PlanConfirmation
	err := l.withOpenPlan(ctx, planID, func(tx *repository.Store, plan *model.DailyPlan) error {
		if err := tx.Plans.SetStatus(ctx, plan, model.PlanConfirmed); err != nil {
			return err
		}
		result = PlanConfirmation{
			ConfirmedTaskCount:    len(plan.SelectedTaskIDs),
			TotalEstimatedMinutes: plan.TotalEstimatedMinutes,
		}
		l.log.WithUser(plan.UserID).Info("daily plan confirmed", "plan_id", plan.ID, "tasks", result.ConfirmedTaskCount)
		return nil
	})
	return result, err
}

// Skip moves an in_progress plan to skipped.
func (l *DailyPlanLedger) Skip(ctx context.Context, planID string) (*model.DailyPlan, error) {
	var skipped *model.DailyPlan
	err := l.withOpenPlan(ctx, planID, func(tx *repository.Store, plan *model.DailyPlan) error {
		skipped = plan
		return tx.Plans.SetStatus(ctx, plan, model.PlanSkipped)
	})
	if err != nil {
		return nil, err
	}
	return skipped, nil
}

// YesterdayUnfinished lists the user's tasks scheduled for the previous
// day that are not completed.
func (l *DailyPlanLedger) YesterdayUnfinished(ctx context.Context, userID string) ([]model.UnfinishedTask, error) {
	return l.store.Tasks.ListUnfinishedOn(ctx, userID, l.clock.DaysAgo(1))
}

// withOpenPlan runs fn in a transaction on planID, which must exist and be
// in_progress, holding the owner's lock.
func (l *DailyPlanLedger) withOpenPlan(ctx context.Context, planID string, fn func(tx *repository.Store, plan *model.DailyPlan) error) error {
	current, err := l.store.Plans.FindByID(ctx, planID)
	if err != nil {
		return notFound(err, "daily plan", planID)
	}
	unlock := l.locks.Lock(userKey(current.UserID))
	defer unlock()

	return l.store.Transaction(ctx, func(tx *repository.Store) error {
		plan, err := tx.Plans.FindByID(ctx, planID)
		if err != nil {
			return notFound(err, "daily plan", planID)
		}
		if plan.Status != model.PlanInProgress {
			return apperr.InvalidTransition("daily plan", planID, apperr.ErrPlanTerminal)
		}
		return fn(tx, plan)
	})
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
