package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User owns goals and carries the streak state.
type User struct {
	ID             string `gorm:"primaryKey;type:varchar(36)"`
	Name           string
	TelegramID     *int64  `gorm:"uniqueIndex"`
	CurrentStreak  int     `gorm:"not null;default:0"`
	LongestStreak  int     `gorm:"not null;default:0"`
	LastActiveDate *string `gorm:"type:varchar(10)"` // YYYY-MM-DD
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
