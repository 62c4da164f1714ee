package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalArchived  GoalStatus = "archived"
)

// Valid reports whether s is a known goal status.
func (s GoalStatus) Valid() bool {
	switch s {
	case GoalActive, GoalCompleted, GoalArchived:
		return true
	}
	return false
}

// Goal is a user objective composed of ordered tasks. Progress is a cached
// value recomputed from the goal's live tasks on every mutation.
type Goal struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	UserID      string `gorm:"index:idx_goal_user_status;not null"`
	Title       string `gorm:"not null"`
	Purpose     string
	Description string
	Status      GoalStatus `gorm:"index:idx_goal_user_status;type:varchar(16);not null"`
	Progress    int        `gorm:"not null;default:0"`
	SortOrder   int
	CompletedAt *time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
	DeleteBatch *string        `gorm:"index;type:varchar(36)"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (g *Goal) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.Status == "" {
		g.Status = GoalActive
	}
	return nil
}

// GoalWithCounts is a goal plus its active task counts.
type GoalWithCounts struct {
	Goal
	TaskCount          int
	CompletedTaskCount int
}
