package service

import (
	"context"
	"strings"

	apperr "goal-planner/internal/errors"
	"goal-planner/internal/logging"
	"goal-planner/internal/model"
	"goal-planner/internal/repository"
)

// UserService manages user records and exposes streak state.
type UserService struct {
	store *repository.Store
	log   *logging.Logger
}

func NewUserService(store *repository.Store, log *logging.Logger) *UserService {
	return &UserService{store: store, log: log}
}

func (s *UserService) CreateUser(ctx context.Context, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.BadInput("user", "", apperr.New("name is required"))
	}
	user := model.User{Name: name}
	if err := s.store.Users.Create(ctx, &user); err != nil {
		return nil, err
	}
	s.log.Info("user created", "user_id", user.ID)
	return &user, nil
}

// EnsureTelegramUser returns the user bound to a Telegram account, creating it on first contact.
func (s *UserService) EnsureTelegramUser(ctx context.Context, telegramID int64, name string) (*model.User, error) {
	return s.store.Users.UpsertFromTelegram(ctx, telegramID, strings.TrimSpace(name))
}

func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.store.Users.ListAll(ctx)
}
