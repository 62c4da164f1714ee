package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskSkipped    TaskStatus = "skipped"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskSkipped:
		return true
	}
	return false
}

// Task is an atomic unit of work belonging to a goal. DependsOn holds ids of
// sibling tasks in the same goal.
type Task struct {
	ID                string `gorm:"primaryKey;type:varchar(36)"`
	GoalID            string `gorm:"index:idx_task_goal_order;not null"`
	Title             string `gorm:"not null"`
	Description       string
	DoneDefinition    string
	EstimatedMinutes  int        `gorm:"not null"`
	Status            TaskStatus `gorm:"index;type:varchar(16);not null"`
	SortOrder         int        `gorm:"index:idx_task_goal_order"`
	DependsOn         []string   `gorm:"serializer:json"`
	ParentTaskID      *string    `gorm:"type:varchar(36)"`
	CompletedAt       *time.Time
	ScheduledDate     *string `gorm:"index;type:varchar(10)"` // YYYY-MM-DD
	ScheduledStart    *string `gorm:"type:varchar(5)"`        // HH:MM
	ScheduledDuration *int
	DeletedAt         gorm.DeletedAt `gorm:"index"`
	DeleteBatch       *string        `gorm:"index;type:varchar(36)"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = TaskPending
	}
	return nil
}

// DependsOnTask reports whether id is one of t's dependencies.
func (t *Task) DependsOnTask(id string) bool {
	return slices.Contains(t.DependsOn, id)
}

// IsDeleted reports whether t carries a tombstone.
func (t *Task) IsDeleted() bool {
	return t.DeletedAt.Valid
}

// UnfinishedTask is a read-only view of a scheduled task that was not completed.
type UnfinishedTask struct {
	ID               string
	Title            string
	GoalTitle        string
	EstimatedMinutes int
}
