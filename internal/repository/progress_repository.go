package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"goal-planner/internal/model"
)

// ProgressRepository stores per-day activity records.
type ProgressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// RecordCompletion bumps today's counters for userID, creating the record
// on the first completion of the day.
func (r *ProgressRepository) RecordCompletion(ctx context.Context, userID, date string, goalAdvanced bool) error {
	db := r.db.WithContext(ctx)
	advanced := 0
	if goalAdvanced {
		advanced = 1
	}

	var rec model.ProgressRecord
	err := db.Where("user_id = ? AND date = ?", userID, date).First(&rec).Error
	switch {
	case err == nil:
		err = db.Model(&rec).Updates(map[string]interface{}{
			"tasks_completed": gorm.Expr("tasks_completed + ?", 1),
			"goals_advanced":  gorm.Expr("goals_advanced + ?", advanced),
		}).Error
		if err != nil {
			return fmt.Errorf("update progress record: %w", err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		rec = model.ProgressRecord{UserID: userID, Date: date, TasksCompleted: 1, GoalsAdvanced: advanced}
		if err := db.Create(&rec).Error; err != nil {
			return fmt.Errorf("create progress record: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("find progress record: %w", err)
	}
}

// ListSince returns records of userID with date >= from, newest first.
func (r *ProgressRepository) ListSince(ctx context.Context, userID, from string) ([]model.ProgressRecord, error) {
	var records []model.ProgressRecord
	if err := r.db.WithContext(ctx).Where("user_id = ? AND date >= ?", userID, from).
		Order("date DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list progress records: %w", err)
	}
	return records, nil
}

// CountCompletedGoals counts goals of userID in completed status.
func (r *ProgressRepository) CountCompletedGoals(ctx context.Context, userID string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Goal{}).
		Where("user_id = ? AND status = ?", userID, model.GoalCompleted).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count completed goals: %w", err)
	}
	return n, nil
}
