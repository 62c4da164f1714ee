package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"goal-planner/internal/model"
)

// GoalRepository handles CRUD and tombstones for goals.
type GoalRepository struct {
	db *gorm.DB
}

func NewGoalRepository(db *gorm.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

func (r *GoalRepository) Create(ctx context.Context, goal *model.Goal) error {
	if err := r.db.WithContext(ctx).Create(goal).Error; err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	return nil
}

// FindByID returns an active (non-tombstoned) goal.
func (r *GoalRepository) FindByID(ctx context.Context, id string) (*model.Goal, error) {
	var goal model.Goal
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&goal).Error; err != nil {
		return nil, err
	}
	return &goal, nil
}

// FindAnyByID returns the goal whether or not it is tombstoned.
func (r *GoalRepository) FindAnyByID(ctx context.Context, id string) (*model.Goal, error) {
	var goal model.Goal
	if err := r.db.WithContext(ctx).Unscoped().Where("id = ?", id).First(&goal).Error; err != nil {
		return nil, err
	}
	return &goal, nil
}

// ListByUser returns active goals of a user, optionally filtered by status.
func (r *GoalRepository) ListByUser(ctx context.Context, userID string, status *model.GoalStatus) ([]model.Goal, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var goals []model.Goal
	if err := q.Order("sort_order ASC, created_at ASC").Find(&goals).Error; err != nil {
		return nil, err
	}
	return goals, nil
}

// CountByUser counts active goals of a user; used for sort order.
func (r *GoalRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Goal{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count goals: %w", err)
	}
	return n, nil
}

// SaveProgress persists progress, status and completedAt of goal.
func (r *GoalRepository) SaveProgress(ctx context.Context, goal *model.Goal) error {
	err := r.db.WithContext(ctx).Model(goal).Updates(map[string]interface{}{
		"progress":     goal.Progress,
		"status":       goal.Status,
		"completed_at": goal.CompletedAt,
	}).Error
	if err != nil {
		return fmt.Errorf("save goal progress: %w", err)
	}
	return nil
}

// SaveDetails persists the editable fields of goal.
func (r *GoalRepository) SaveDetails(ctx context.Context, goal *model.Goal) error {
	err := r.db.WithContext(ctx).Model(goal).Updates(map[string]interface{}{
		"title":        goal.Title,
		"purpose":      goal.Purpose,
		"description":  goal.Description,
		"status":       goal.Status,
		"sort_order":   goal.SortOrder,
		"completed_at": goal.CompletedAt,
	}).Error
	if err != nil {
		return fmt.Errorf("save goal: %w", err)
	}
	return nil
}

func (r *GoalRepository) SetStatus(ctx context.Context, goal *model.Goal, status model.GoalStatus) error {
	if err := r.db.WithContext(ctx).Model(goal).Update("status", status).Error; err != nil {
		return fmt.Errorf("set goal status: %w", err)
	}
	goal.Status = status
	return nil
}

// Tombstone marks an active goal deleted with the given batch id.
func (r *GoalRepository) Tombstone(ctx context.Context, id string, at time.Time, batch string) error {
	res := r.db.WithContext(ctx).Model(&model.Goal{}).Where("id = ?", id).Updates(map[string]interface{}{
		"deleted_at":   at,
		"delete_batch": batch,
	})
	if res.Error != nil {
		return fmt.Errorf("tombstone goal: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Restore clears the tombstone of goal id.
func (r *GoalRepository) Restore(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Unscoped().Model(&model.Goal{}).Where("id = ?", id).Updates(map[string]interface{}{
		"deleted_at":   nil,
		"delete_batch": nil,
	}).Error
	if err != nil {
		return fmt.Errorf("restore goal: %w", err)
	}
	return nil
}

// ListTombstonedBefore returns goals tombstoned strictly before cutoff.
func (r *GoalRepository) ListTombstonedBefore(ctx context.Context, cutoff time.Time) ([]model.Goal, error) {
	var goals []model.Goal
	if err := r.db.WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("list tombstoned goals: %w", err)
	}
	return goals, nil
}

// Purge permanently removes the given goals.
func (r *GoalRepository) Purge(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Unscoped().Where("id IN ?", ids).Delete(&model.Goal{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge goals: %w", res.Error)
	}
	return res.RowsAffected, nil
}
