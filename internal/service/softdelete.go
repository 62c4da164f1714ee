package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperr "goal-planner/internal/errors"
	"goal-planner/internal/logging"
	"goal-planner/internal/model"
	"goal-planner/internal/repository"
)

// UndoWindow is how long after deletion a tombstone can be restored.
const UndoWindow = 30 * time.Second

// DefaultPurgeAge is the tombstone age PurgeExpired uses when given none.
const DefaultPurgeAge = UndoWindow

// TaskDeletion describes one task delete and its one-level cascade.
type TaskDeletion struct {
	TaskID            string
	GoalID            string
	DeletedAt         time.Time
	CascadeDeletedIDs []string
	GoalProgress      int
	Milestone         Milestone
}

// GoalDeletion describes one goal delete.
type GoalDeletion struct {
	GoalID                string
	DeletedAt             time.Time
	CascadeDeletedTaskIDs []string
}

// Restoration is the result of an undo.
type Restoration struct {
	GoalID          string
	RestoredTaskIDs []string
	GoalProgress    int
	Milestone       Milestone
}

// PurgeResult counts rows removed by PurgeExpired.
type PurgeResult struct {
	Tasks int64
	Goals int64
	Inbox int64
}

func (r PurgeResult) Total() int64 {
	return r.Tasks + r.Goals + r.Inbox
}

// InboxDeletion describes one inbox item delete.
type InboxDeletion struct {
	ItemID    string
	DeletedAt time.Time
}

// SoftDeleteCoordinator tombstones tasks and goals, restores them within
// UndoWindow and purges them afterwards.
type SoftDeleteCoordinator struct {
	store      *repository.Store
	progress   *ProgressAggregator
	milestones *MilestoneTracker
	locks      *Locker
	clock      Clock
	log        *logging.Logger
}

func NewSoftDeleteCoordinator(store *repository.Store, progress *ProgressAggregator, milestones *MilestoneTracker, locks *Locker, clock Clock, log *logging.Logger) *SoftDeleteCoordinator {
	return &SoftDeleteCoordinator{store: store, progress: progress, milestones: milestones, locks: locks, clock: clock, log: log}
}

// undoable checks that deletedAt is a tombstone still inside the window.
func (c *SoftDeleteCoordinator) undoable(resource, id string, deletedAt gorm.DeletedAt, batch *string) error {
	if !deletedAt.Valid || batch == nil {
		return apperr.InvalidTransition(resource, id, apperr.ErrNotTombstoned)
	}
	if c.clock.Now().Sub(deletedAt.Time) > UndoWindow {
		return apperr.InvalidTransition(resource, id, apperr.ErrUndoWindowExpired)
	}
	return nil
}

// SoftDeleteTask tombstones a task and every active sibling that depends
// on it directly, all with one batch id, and clears the task's schedule.
func (c *SoftDeleteCoordinator) SoftDeleteTask(ctx context.Context, taskID string) (*TaskDeletion, error) {
	current, err := c.store.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, notFound(err, "task", taskID)
	}
	unlock := c.locks.Lock(goalKey(current.GoalID))
	defer unlock()

	result := &TaskDeletion{TaskID: taskID, GoalID: current.GoalID, CascadeDeletedIDs: []string{}}
	var goal *model.Goal
	err = c.store.Transaction(ctx, func(tx *repository.Store) error {
		task, err := tx.Tasks.FindByID(ctx, taskID)
		if err != nil {
			return notFound(err, "task", taskID)
		}
		siblings, err := tx.Tasks.ListByGoal(ctx, task.GoalID)
		if err != nil {
			return err
		}
		ids := []string{task.ID}
		for _, sib := range siblings {
			if sib.ID != task.ID && sib.DependsOnTask(task.ID) {
				ids = append(ids, sib.ID)
				result.CascadeDeletedIDs = append(result.CascadeDeletedIDs, sib.ID)
			}
		}

		if err := tx.Tasks.SetSchedule(ctx, task, nil, nil, nil); err != nil {
			return err
		}
		now := c.clock.Now()
		if _, err := tx.Tasks.Tombstone(ctx, ids, now, uuid.NewString()); err != nil {
			return err
		}
		result.DeletedAt = now

		goal, err = tx.Goals.FindByID(ctx, task.GoalID)
		if err != nil {
			return notFound(err, "goal", task.GoalID)
		}
		result.GoalProgress, err = c.progress.Recompute(ctx, tx, goal)
		return err
	})
	if err != nil {
		return nil, err
	}

	result.Milestone = c.milestones.Observe(goal)
	c.log.WithGoal(result.GoalID).Info("task deleted",
		"task_id", taskID,
		"cascade", len(result.CascadeDeletedIDs),
	)
	return result, nil
}

// UndoDeleteTask restores the whole delete batch taskID belongs to.
func (c *SoftDeleteCoordinator) UndoDeleteTask(ctx context.Context, taskID string) (*Restoration, error) {
	current, err := c.store.Tasks.FindAnyByID(ctx, taskID)
	if err != nil {
		return nil, notFound(err, "task", taskID)
	}
	unlock := c.locks.Lock(goalKey(current.GoalID))
	defer unlock()

	result := &Restoration{GoalID: current.GoalID}
	var goal *model.Goal
	err = c.store.Transaction(ctx, func(tx *repository.Store) error {
		task, err := tx.Tasks.FindAnyByID(ctx, taskID)
		if err != nil {
			return notFound(err, "task", taskID)
		}
		if err := c.undoable("task", taskID, task.DeletedAt, task.DeleteBatch); err != nil {
			return err
		}
		goal, err = tx.Goals.FindByID(ctx, task.GoalID)
		if err != nil {
			return notFound(err, "goal", task.GoalID)
		}

		cohort, err := tx.Tasks.ListBatch(ctx, goal.ID, *task.DeleteBatch)
		if err != nil {
			return err
		}
		ids := make([]string, len(cohort))
		for i, t := range cohort {
			ids[i] = t.ID
		}
		if _, err := tx.Tasks.Restore(ctx, goal.ID, ids); err != nil {
			return err
		}
		result.RestoredTaskIDs = ids
		result.GoalProgress, err = c.progress.Recompute(ctx, tx, goal)
		return err
	})
	if err != nil {
		return nil, err
	}

	result.Milestone = c.milestones.Observe(goal)
	c.log.WithGoal(result.GoalID).Info("task delete undone", "task_id", taskID, "restored", len(result.RestoredTaskIDs))
	return result, nil
}

// SoftDeleteGoal tombstones a goal and all its active tasks with one batch id.
func (c *SoftDeleteCoordinator) SoftDeleteGoal(ctx context.Context, goalID string) (*GoalDeletion, error) {
	unlock := c.locks.Lock(goalKey(goalID))
	defer unlock()

	result := &GoalDeletion{GoalID: goalID, CascadeDeletedTaskIDs: []string{}}
	err := c.store.Transaction(ctx, func(tx *repository.Store) error {
		goal, err := tx.Goals.FindByID(ctx, goalID)
		if err != nil {
			return notFound(err, "goal", goalID)
		}
		tasks, err := tx.Tasks.ListByGoal(ctx, goal.ID)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			result.CascadeDeletedTaskIDs = append(result.CascadeDeletedTaskIDs, t.ID)
		}

		now := c.clock.Now()
		batch := uuid.NewString()
		if _, err := tx.Tasks.Tombstone(ctx, result.CascadeDeletedTaskIDs, now, batch); err != nil {
			return err
		}
		if err := tx.Goals.Tombstone(ctx, goal.ID, now, batch); err != nil {
			return notFound(err, "goal", goalID)
		}
		result.DeletedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.milestones.Forget(goalID)
	c.log.WithGoal(goalID).Info("goal deleted", "cascade", len(result.CascadeDeletedTaskIDs))
	return result, nil
}

// UndoDeleteGoal restores a goal and those of taskIDs that are tombstoned
// tasks of it. An empty taskIDs restores the goal's own delete batch.
func (c *SoftDeleteCoordinator) UndoDeleteGoal(ctx context.Context, goalID string, taskIDs []string) (*Restoration, error) {
	unlock := c.locks.Lock(goalKey(goalID))
	defer unlock()

	result := &Restoration{GoalID: goalID}
	var goal *model.Goal
	err := c.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		goal, err = tx.Goals.FindAnyByID(ctx, goalID)
		if err != nil {
			return notFound(err, "goal", goalID)
		}
		if err := c.undoable("goal", goalID, goal.DeletedAt, goal.DeleteBatch); err != nil {
			return err
		}

		if len(taskIDs) == 0 {
			cohort, err := tx.Tasks.ListBatch(ctx, goal.ID, *goal.DeleteBatch)
			if err != nil {
				return err
			}
			for _, t := range cohort {
				taskIDs = append(taskIDs, t.ID)
			}
		}
		if err := tx.Goals.Restore(ctx, goal.ID); err != nil {
			return err
		}
		goal.DeletedAt = gorm.DeletedAt{}
		goal.DeleteBatch = nil

		restorable, err := restorableTasks(ctx, tx, goal.ID, taskIDs)
		if err != nil {
			return err
		}
		if _, err := tx.Tasks.Restore(ctx, goal.ID, restorable); err != nil {
			return err
		}
		result.RestoredTaskIDs = restorable
		result.GoalProgress, err = c.progress.Recompute(ctx, tx, goal)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.milestones.SeedGoal(goal)
	c.log.WithGoal(goalID).Info("goal delete undone", "restored", len(result.RestoredTaskIDs))
	return result, nil
}

// SoftDeleteInboxItem tombstones a live inbox item, converted or not.
func (c *SoftDeleteCoordinator) SoftDeleteInboxItem(ctx context.Context, itemID string) (*InboxDeletion, error) {
	current, err := c.store.Inbox.FindByID(ctx, itemID)
	if err != nil {
		return nil, notFound(err, "inbox item", itemID)
	}
	unlock := c.locks.Lock(userKey(current.UserID))
	defer unlock()

	now := c.clock.Now()
	err = c.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Inbox.Tombstone(ctx, itemID, now, uuid.NewString()); err != nil {
			return notFound(err, "inbox item", itemID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log.WithUser(current.UserID).Info("inbox item deleted", "item_id", itemID)
	return &InboxDeletion{ItemID: itemID, DeletedAt: now}, nil
}

// UndoDeleteInboxItem restores a tombstoned inbox item within UndoWindow.
func (c *SoftDeleteCoordinator) UndoDeleteInboxItem(ctx context.Context, itemID string) (*model.InboxItem, error) {
	current, err := c.store.Inbox.FindAnyByID(ctx, itemID)
	if err != nil {
		return nil, notFound(err, "inbox item", itemID)
	}
	unlock := c.locks.Lock(userKey(current.UserID))
	defer unlock()

	var item *model.InboxItem
	err = c.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		item, err = tx.Inbox.FindAnyByID(ctx, itemID)
		if err != nil {
			return notFound(err, "inbox item", itemID)
		}
		if err := c.undoable("inbox item", itemID, item.DeletedAt, item.DeleteBatch); err != nil {
			return err
		}
		if err := tx.Inbox.Restore(ctx, itemID); err != nil {
			return err
		}
		item.DeletedAt = gorm.DeletedAt{}
		item.DeleteBatch = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log.WithUser(item.UserID).Info("inbox item delete undone", "item_id", itemID)
	return item, nil
}

// restorableTasks filters ids down to tombstoned tasks of goalID.
func restorableTasks(ctx context.Context, tx *repository.Store, goalID string, ids []string) ([]string, error) {
	out := []string{}
	for _, id := range ids {
		task, err := tx.Tasks.FindAnyByID(ctx, id)
		if err != nil {
			if apperr.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		if task.GoalID == goalID && task.IsDeleted() {
			out = append(out, task.ID)
		}
	}
	return out, nil
}

// PurgeExpired permanently removes tasks, goals and inbox items tombstoned
// more than age ago. Purging a goal removes all of its tasks. age <= 0 means
// DefaultPurgeAge.
func (c *SoftDeleteCoordinator) PurgeExpired(ctx context.Context, age time.Duration) (PurgeResult, error) {
	if age <= 0 {
		age = DefaultPurgeAge
	}
	cutoff := c.clock.Now().Add(-age)

	var result PurgeResult
	var purgedGoals []string
	err := c.store.Transaction(ctx, func(tx *repository.Store) error {
		tasks, err := tx.Tasks.ListTombstonedBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		goals, err := tx.Goals.ListTombstonedBefore(ctx, cutoff)
		if err != nil {
			return err
		}

		taskIDs := make([]string, len(tasks))
		for i, t := range tasks {
			taskIDs[i] = t.ID
		}
		purgedGoals = make([]string, len(goals))
		for i, g := range goals {
			purgedGoals[i] = g.ID
		}

		n, err := tx.Tasks.Purge(ctx, taskIDs)
		if err != nil {
			return err
		}
		result.Tasks += n
		n, err = tx.Tasks.PurgeByGoals(ctx, purgedGoals)
		if err != nil {
			return err
		}
		result.Tasks += n
		result.Goals, err = tx.Goals.Purge(ctx, purgedGoals)
		if err != nil {
			return err
		}
		result.Inbox, err = tx.Inbox.PurgeTombstonedBefore(ctx, cutoff)
		return err
	})
	if err != nil {
		return PurgeResult{}, err
	}

	for _, id := range purgedGoals {
		c.milestones.Forget(id)
	}
	if result.Total() > 0 {
		c.log.Info("purged expired tombstones", "tasks", result.Tasks, "goals", result.Goals, "inbox", result.Inbox)
	}
	return result, nil
}
