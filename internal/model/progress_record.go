package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProgressRecord aggregates one user's activity for one date.
type ProgressRecord struct {
	ID             string `gorm:"primaryKey;type:varchar(36)"`
	UserID         string `gorm:"uniqueIndex:idx_progress_user_date;not null"`
	Date           string `gorm:"uniqueIndex:idx_progress_user_date;type:varchar(10);not null"`
	TasksCompleted int    `gorm:"not null;default:0"`
	GoalsAdvanced  int    `gorm:"not null;default:0"`
	FocusMinutes   int    `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (r *ProgressRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
