package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"goal-planner/internal/model"
)

// InboxRepository handles captured inbox items. Like the task repository
// it hides tombstoned rows unless a method says otherwise.
type InboxRepository struct {
	db *gorm.DB
}

func NewInboxRepository(db *gorm.DB) *InboxRepository {
	return &InboxRepository{db: db}
}

func (r *InboxRepository) Create(ctx context.Context, item *model.InboxItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("create inbox item: %w", err)
	}
	return nil
}

func (r *InboxRepository) FindByID(ctx context.Context, id string) (*model.InboxItem, error) {
	var item model.InboxItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindAnyByID returns the item whether or not it is tombstoned.
func (r *InboxRepository) FindAnyByID(ctx context.Context, id string) (*model.InboxItem, error) {
	var item model.InboxItem
	if err := r.db.WithContext(ctx).Unscoped().Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ListByUser returns a user's live items in status, in inbox order.
func (r *InboxRepository) ListByUser(ctx context.Context, userID string, status model.InboxStatus) ([]model.InboxItem, error) {
	var items []model.InboxItem
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, status).
		Order("sort_order ASC, created_at ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	return items, nil
}

// CountUnprocessed counts a user's live items still waiting in the inbox.
func (r *InboxRepository) CountUnprocessed(ctx context.Context, userID string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.InboxItem{}).
		Where("user_id = ? AND status = ?", userID, model.InboxUnprocessed).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count inbox: %w", err)
	}
	return n, nil
}

func (r *InboxRepository) SetSortOrder(ctx context.Context, id string, order int) error {
	if err := r.db.WithContext(ctx).Model(&model.InboxItem{}).Where("id = ?", id).
		Update("sort_order", order).Error; err != nil {
		return fmt.Errorf("reorder inbox item: %w", err)
	}
	return nil
}

// MarkAssigned records what item was converted into.
func (r *InboxRepository) MarkAssigned(ctx context.Context, item *model.InboxItem, goalID string, taskID *string) error {
	err := r.db.WithContext(ctx).Model(item).Updates(map[string]interface{}{
		"status":           model.InboxAssigned,
		"assigned_goal_id": goalID,
		"assigned_task_id": taskID,
	}).Error
	if err != nil {
		return fmt.Errorf("assign inbox item: %w", err)
	}
	item.Status = model.InboxAssigned
	item.AssignedGoalID = &goalID
	item.AssignedTaskID = taskID
	return nil
}

// Tombstone marks a live item deleted with the given batch id.
func (r *InboxRepository) Tombstone(ctx context.Context, id string, at time.Time, batch string) error {
	res := r.db.WithContext(ctx).Model(&model.InboxItem{}).Where("id = ?", id).Updates(map[string]interface{}{
		"deleted_at":   at,
		"delete_batch": batch,
	})
	if res.Error != nil {
		return fmt.Errorf("tombstone inbox item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Restore clears the tombstone of item id.
func (r *InboxRepository) Restore(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Unscoped().Model(&model.InboxItem{}).Where("id = ?", id).Updates(map[string]interface{}{
		"deleted_at":   nil,
		"delete_batch": nil,
	}).Error
	if err != nil {
		return fmt.Errorf("restore inbox item: %w", err)
	}
	return nil
}

// PurgeTombstonedBefore permanently removes items tombstoned strictly
// before cutoff.
func (r *InboxRepository) PurgeTombstonedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Delete(&model.InboxItem{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge inbox: %w", res.Error)
	}
	return res.RowsAffected, nil
}
