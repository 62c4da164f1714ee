package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"

	"goal-planner/internal/model"
)

// TaskRepository handles CRUD and tombstones for tasks. Unless a method
// says otherwise it only sees active (non-tombstoned) tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindAnyByID returns the task whether or not it is tombstoned.
func (r *TaskRepository) FindAnyByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Unscoped().Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindByIDs returns the active tasks among ids, in no particular order.
func (r *TaskRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	return tasks, nil
}

// ListByGoal returns the active tasks of a goal ordered by sort order.
func (r *TaskRepository) ListByGoal(ctx context.Context, goalID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("goal_id = ?", goalID).
		Order("sort_order ASC, created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// MaxSortOrder returns the highest sort order among a goal's tasks, or -1.
func (r *TaskRepository) MaxSortOrder(ctx context.Context, goalID string) (int, error) {
	var max sql.NullInt64
	if err := r.db.WithContext(ctx).Model(&model.Task{}).Unscoped().
		Where("goal_id = ?", goalID).
		Select("MAX(sort_order)").Row().Scan(&max); err != nil {
		return 0, fmt.Errorf("max sort order: %w", err)
	}
	if !max.Valid {
		return -1, nil
	}
	return int(max.Int64), nil
}

// SetStatus updates status and completedAt of task.
func (r *TaskRepository) SetStatus(ctx context.Context, task *model.Task, status model.TaskStatus, completedAt *time.Time) error {
	err := r.db.WithContext(ctx).Model(task).Updates(map[string]interface{}{
		"status":       status,
		"completed_at": completedAt,
	}).Error
	if err != nil {
		return fmt.Errorf("set task status: %w", err)
	}
	task.Status = status
	task.CompletedAt = completedAt
	return nil
}

func (r *TaskRepository) SetDependencies(ctx context.Context, task *model.Task, dependsOn []string) error {
	task.DependsOn = dependsOn
	if err := r.db.WithContext(ctx).Model(task).Select("depends_on").Updates(task).Error; err != nil {
		return fmt.Errorf("set task dependencies: %w", err)
	}
	return nil
}

// SetSchedule writes the schedule fields; nil values clear them.
func (r *TaskRepository) SetSchedule(ctx context.Context, task *model.Task, date, start *string, duration *int) error {
	err := r.db.WithContext(ctx).Model(task).Updates(map[string]interface{}{
		"scheduled_date":     date,
		"scheduled_start":    start,
		"scheduled_duration": duration,
	}).Error
	if err != nil {
		return fmt.Errorf("set task schedule: %w", err)
	}
	task.ScheduledDate, task.ScheduledStart, task.ScheduledDuration = date, start, duration
	return nil
}

// Tombstone marks the given active tasks deleted with one batch id and instant.
func (r *TaskRepository) Tombstone(ctx context.Context, ids []string, at time.Time, batch string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("id IN ?", ids).Updates(map[string]interface{}{
		"deleted_at":   at,
		"delete_batch": batch,
	})
	if res.Error != nil {
		return 0, fmt.Errorf("tombstone tasks: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListBatch returns the tombstoned tasks of a goal that share batch.
func (r *TaskRepository) ListBatch(ctx context.Context, goalID, batch string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Unscoped().
		Where("goal_id = ? AND delete_batch = ? AND deleted_at IS NOT NULL", goalID, batch).
		Order("sort_order ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list delete batch: %w", err)
	}
	return tasks, nil
}

// Restore clears the tombstone of the given tasks within goalID.
func (r *TaskRepository) Restore(ctx context.Context, goalID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Unscoped().Model(&model.Task{}).
		Where("goal_id = ? AND id IN ? AND deleted_at IS NOT NULL", goalID, ids).
		Updates(map[string]interface{}{
			"deleted_at":   nil,
			"delete_batch": nil,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("restore tasks: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListTombstonedBefore returns tasks tombstoned strictly before cutoff.
func (r *TaskRepository) ListTombstonedBefore(ctx context.Context, cutoff time.Time) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tombstoned tasks: %w", err)
	}
	return tasks, nil
}

// Purge permanently removes the given tasks.
func (r *TaskRepository) Purge(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Unscoped().Where("id IN ?", ids).Delete(&model.Task{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge tasks: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// PurgeByGoals permanently removes every task, tombstoned or not, of the given goals.
func (r *TaskRepository) PurgeByGoals(ctx context.Context, goalIDs []string) (int64, error) {
	if len(goalIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Unscoped().Where("goal_id IN ?", goalIDs).Delete(&model.Task{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge goal tasks: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// TaskCount is the number of active and completed tasks of one goal.
type TaskCount struct {
	GoalID    string
	Total     int
	Completed int
}

// CountByGoals returns active task counts keyed by goal id. Goals without
// tasks are absent from the map.
func (r *TaskRepository) CountByGoals(ctx context.Context, goalIDs []string) (map[string]TaskCount, error) {
	counts := make(map[string]TaskCount, len(goalIDs))
	if len(goalIDs) == 0 {
		return counts, nil
	}
	var rows []TaskCount
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("goal_id, COUNT(*) AS total, SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS completed", model.TaskCompleted).
		Where("goal_id IN ?", goalIDs).
		Group("goal_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	for _, row := range rows {
		counts[row.GoalID] = row
	}
	return counts, nil
}

// ListUnfinishedOn returns the user's active, not completed tasks scheduled
// on date, from active goals.
func (r *TaskRepository) ListUnfinishedOn(ctx context.Context, userID, date string) ([]model.UnfinishedTask, error) {
	var out []model.UnfinishedTask
	err := r.db.WithContext(ctx).Table("tasks").
		Select("tasks.id AS id, tasks.title AS title, goals.title AS goal_title, tasks.estimated_minutes AS estimated_minutes").
		Joins("JOIN goals ON goals.id = tasks.goal_id").
		Where("goals.user_id = ? AND goals.status = ? AND tasks.scheduled_date = ? AND tasks.status <> ?",
			userID, model.GoalActive, date, model.TaskCompleted).
		Where("tasks.deleted_at IS NULL AND goals.deleted_at IS NULL").
		Order("tasks.sort_order ASC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list unfinished tasks: %w", err)
	}
	return out, nil
}
