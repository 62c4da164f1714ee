package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"goal-planner/internal/model"
)

// DailyPlanRepository handles CRUD for daily plans.
type DailyPlanRepository struct {
	db *gorm.DB
}

func NewDailyPlanRepository(db *gorm.DB) *DailyPlanRepository {
	return &DailyPlanRepository{db: db}
}

func (r *DailyPlanRepository) Create(ctx context.Context, plan *model.DailyPlan) error {
	if err := r.db.WithContext(ctx).Create(plan).Error; err != nil {
		return fmt.Errorf("create daily plan: %w", err)
	}
	return nil
}

func (r *DailyPlanRepository) FindByID(ctx context.Context, id string) (*model.DailyPlan, error) {
	var plan model.DailyPlan
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *DailyPlanRepository) FindByUserDate(ctx context.Context, userID, date string) (*model.DailyPlan, error) {
	var plan model.DailyPlan
	if err := r.db.WithContext(ctx).Where("user_id = ? AND date = ?", userID, date).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

// SaveSelections persists selection, total and overcommit flag of plan.
func (r *DailyPlanRepository) SaveSelections(ctx context.Context, plan *model.DailyPlan) error {
	err := r.db.WithContext(ctx).Model(plan).Select("selected_task_ids", "total_estimated_minutes", "is_overcommitted").
		Updates(plan).Error
	if err != nil {
		return fmt.Errorf("save plan selections: %w", err)
	}
	return nil
}

func (r *DailyPlanRepository) SetStatus(ctx context.Context, plan *model.DailyPlan, status model.PlanStatus) error {
	if err := r.db.WithContext(ctx).Model(plan).Update("status", status).Error; err != nil {
		return fmt.Errorf("set plan status: %w", err)
	}
	plan.Status = status
	return nil
}
