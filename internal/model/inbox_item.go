package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InboxStatus string

const (
	InboxUnprocessed InboxStatus = "unprocessed"
	InboxAssigned    InboxStatus = "assigned"
)

// InboxItem is a captured note waiting to become a goal, a task or a
// subtask. Once converted it keeps pointers to what it became.
type InboxItem struct {
	ID             string `gorm:"primaryKey;type:varchar(36)"`
	UserID         string `gorm:"index:idx_inbox_user_status;not null"`
	Title          string `gorm:"not null"`
	Description    string
	Status         InboxStatus `gorm:"index:idx_inbox_user_status;type:varchar(16);not null"`
	AssignedGoalID *string     `gorm:"type:varchar(36)"`
	AssignedTaskID *string     `gorm:"type:varchar(36)"`
	SortOrder      int
	DeletedAt      gorm.DeletedAt `gorm:"index"`
	DeleteBatch    *string        `gorm:"index;type:varchar(36)"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (i *InboxItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Status == "" {
		i.Status = InboxUnprocessed
	}
	return nil
}
