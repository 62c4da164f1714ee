package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories over one *gorm.DB, which is either the
// pool or an open transaction.
type Store struct {
	db       *gorm.DB
	Users    *UserRepository
	Goals    *GoalRepository
	Tasks    *TaskRepository
	Inbox    *InboxRepository
	Plans    *DailyPlanRepository
	Progress *ProgressRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		Users:    NewUserRepository(db),
		Goals:    NewGoalRepository(db),
		Tasks:    NewTaskRepository(db),
		Inbox:    NewInboxRepository(db),
		Plans:    NewDailyPlanRepository(db),
		Progress: NewProgressRepository(db),
	}
}

// Transaction runs fn against a Store bound to a single transaction. Any
// error returned by fn rolls back every write made through tx.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// DB exposes the underlying handle, mainly for closing it.
func (s *Store) DB() *gorm.DB {
	return s.db
}
