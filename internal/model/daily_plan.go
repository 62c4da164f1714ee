package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PlanStatus string

const (
	PlanInProgress PlanStatus = "in_progress"
	PlanConfirmed  PlanStatus = "confirmed"
	PlanSkipped    PlanStatus = "skipped"
)

// DefaultFocusThresholdMinutes is the daily focus budget when none is configured.
const DefaultFocusThresholdMinutes = 360

// DailyPlan is the set of tasks a user commits to for one date. There is
// exactly one plan per (user, date).
type DailyPlan struct {
	ID                    string     `gorm:"primaryKey;type:varchar(36)"`
	UserID                string     `gorm:"uniqueIndex:idx_daily_plan_user_date;not null"`
	Date                  string     `gorm:"uniqueIndex:idx_daily_plan_user_date;type:varchar(10);not null"`
	SelectedTaskIDs       []string   `gorm:"serializer:json"`
	TotalEstimatedMinutes int        `gorm:"not null;default:0"`
	FocusThresholdMinutes int        `gorm:"not null"`
	IsOvercommitted       bool       `gorm:"not null"`
	Status                PlanStatus `gorm:"type:varchar(16);not null"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (p *DailyPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = PlanInProgress
	}
	if p.FocusThresholdMinutes <= 0 {
		p.FocusThresholdMinutes = DefaultFocusThresholdMinutes
	}
	if p.SelectedTaskIDs == nil {
		p.SelectedTaskIDs = []string{}
	}
	return nil
}

// IsTerminal reports whether the plan is confirmed or skipped.
func (p *DailyPlan) IsTerminal() bool {
	return p.Status == PlanConfirmed || p.Status == PlanSkipped
}
