package service

import (
	"context"
	"strings"

	apperr "goal-planner/internal/errors"
	"goal-planner/internal/logging"
	"goal-planner/internal/model"
	"goal-planner/internal/repository"
)

// DefaultInboxMinutes is the estimate given to tasks converted from the inbox.
const DefaultInboxMinutes = 30

// InboxService captures loose notes and converts them into goals, tasks
// and subtasks. Deletion and undo of items go through SoftDeleteCoordinator.
type InboxService struct {
	store *repository.Store
	goals *GoalService
	tasks *TaskService
	locks *Locker
	log   *logging.Logger
}

func NewInboxService(store *repository.Store, goals *GoalService, tasks *TaskService, locks *Locker, log *logging.Logger) *InboxService {
	return &InboxService{store: store, goals: goals, tasks: tasks, locks: locks, log: log}
}

// Capture appends a new unprocessed item to the end of the user's inbox.
func (s *InboxService) Capture(ctx context.Context, userID, title, description string) (*model.InboxItem, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.BadInput("inbox item", "", apperr.New("title is required"))
	}

	unlock := s.locks.Lock(userKey(userID))
	defer unlock()

	item := model.InboxItem{
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(description),
		Status:      model.InboxUnprocessed,
	}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Users.FindByID(ctx, userID); err != nil {
			return missingUser(err, userID)
		}
		n, err := tx.Inbox.CountUnprocessed(ctx, userID)
		if err != nil {
			return err
		}
		item.SortOrder = int(n)
		return tx.Inbox.Create(ctx, &item)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithUser(userID).Info("inbox item captured", "item_id", item.ID)
	return &item, nil
}

// List returns the user's live items in status, unprocessed when empty.
func (s *InboxService) List(ctx context.Context, userID string, status model.InboxStatus) ([]model.InboxItem, error) {
	if status == "" {
		status = model.InboxUnprocessed
	}
	return s.store.Inbox.ListByUser(ctx, userID, status)
}

func (s *InboxService) Count(ctx context.Context, userID string) (int, error) {
	n, err := s.store.Inbox.CountUnprocessed(ctx, userID)
	return int(n), err
}

// Reorder gives itemIDs sort orders 0..n-1 in the order given. Every id
// must be a live unprocessed item of the user.
func (s *InboxService) Reorder(ctx context.Context, userID string, itemIDs []string) error {
	seen := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		if seen[id] {
			return apperr.BadInput("inbox item", id, apperr.New("listed twice"))
		}
		seen[id] = true
	}

	unlock := s.locks.Lock(userKey(userID))
	defer unlock()

	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		for i, id := range itemIDs {
			item, err := tx.Inbox.FindByID(ctx, id)
			if err != nil {
				return notFound(err, "inbox item", id)
			}
			if item.UserID != userID || item.Status != model.InboxUnprocessed {
				return apperr.NotFound("inbox item", id)
			}
			if err := tx.Inbox.SetSortOrder(ctx, id, i); err != nil {
				return err
			}
		}
		return nil
	})
}

// ConvertToTask appends the item to goalID as a pending task.
func (s *InboxService) ConvertToTask(ctx context.Context, itemID, goalID string) (*model.Task, error) {
	item, err := s.pending(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return s.tasks.create(ctx, taskFromItem(item, goalID, nil), []string{userKey(item.UserID)},
		func(tx *repository.Store, task *model.Task) error {
			return s.assign(ctx, tx, itemID, task.GoalID, &task.ID)
		})
}

// ConvertToSubtask adds the item under parentTaskID, in the parent's goal.
func (s *InboxService) ConvertToSubtask(ctx context.Context, itemID, parentTaskID string) (*model.Task, error) {
	item, err := s.pending(ctx, itemID)
	if err != nil {
		return nil, err
	}
	parent, err := s.tasks.GetTask(ctx, parentTaskID)
	if err != nil {
		return nil, err
	}
	return s.tasks.create(ctx, taskFromItem(item, parent.GoalID, &parent.ID), []string{userKey(item.UserID)},
		func(tx *repository.Store, task *model.Task) error {
			return s.assign(ctx, tx, itemID, task.GoalID, &task.ID)
		})
}

// ConvertToGoal turns the item into a new goal of its owner.
func (s *InboxService) ConvertToGoal(ctx context.Context, itemID string) (*model.Goal, error) {
	item, err := s.pending(ctx, itemID)
	if err != nil {
		return nil, err
	}
	input := GoalInput{
		UserID:      item.UserID,
		Title:       item.Title,
		Purpose:     item.Title,
		Description: item.Description,
	}
	return s.goals.create(ctx, input, func(tx *repository.Store, goal *model.Goal) error {
		return s.assign(ctx, tx, itemID, goal.ID, nil)
	})
}

// pending loads a live item that has not been converted yet.
func (s *InboxService) pending(ctx context.Context, itemID string) (*model.InboxItem, error) {
	item, err := s.store.Inbox.FindByID(ctx, itemID)
	if err != nil {
		return nil, notFound(err, "inbox item", itemID)
	}
	if item.Status != model.InboxUnprocessed {
		return nil, apperr.InvalidTransition("inbox item", itemID, apperr.ErrAlreadyConverted)
	}
	return item, nil
}

// assign re-reads the item inside tx so two conversions of one item cannot
// both succeed. The target goal must belong to the item's owner.
func (s *InboxService) assign(ctx context.Context, tx *repository.Store, itemID, goalID string, taskID *string) error {
	item, err := tx.Inbox.FindByID(ctx, itemID)
	if err != nil {
		return notFound(err, "inbox item", itemID)
	}
	if item.Status != model.InboxUnprocessed {
		return apperr.InvalidTransition("inbox item", itemID, apperr.ErrAlreadyConverted)
	}
	goal, err := tx.Goals.FindByID(ctx, goalID)
	if err != nil {
		return notFound(err, "goal", goalID)
	}
	if goal.UserID != item.UserID {
		return apperr.NotFound("goal", goalID)
	}
	if err := tx.Inbox.MarkAssigned(ctx, item, goalID, taskID); err != nil {
		return err
	}
	s.log.WithUser(item.UserID).Info("inbox item converted", "item_id", itemID, "goal_id", goalID)
	return nil
}

func taskFromItem(item *model.InboxItem, goalID string, parentID *string) TaskInput {
	return TaskInput{
		GoalID:           goalID,
		Title:            item.Title,
		Description:      item.Description,
		DoneDefinition:   item.Title,
		EstimatedMinutes: DefaultInboxMinutes,
		ParentTaskID:     parentID,
	}
}
