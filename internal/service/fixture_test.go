package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goal-planner/internal/model"
	"goal-planner/internal/repository"
	"goal-planner/internal/testutil"
)

var day0 = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	t          *testing.T
	ctx        context.Context
	store      *repository.Store
	clock      *testutil.Clock
	milestones *MemoryMilestoneStore
	engine     *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewStore(t)
	clk := testutil.NewClock(day0)
	milestones := NewMemoryMilestoneStore()
	engine := NewEngine(store, Options{
		Clock:                 NewClockFunc(clk.Now, time.UTC),
		FocusThresholdMinutes: 360,
		MilestoneStore:        milestones,
		ReinforcementSeed:     7,
	})
	return &fixture{
		t:          t,
		ctx:        context.Background(),
		store:      store,
		clock:      clk,
		milestones: milestones,
		engine:     engine,
	}
}

func (f *fixture) user(name string) *model.User {
	f.t.Helper()
	u, err := f.engine.Users.CreateUser(f.ctx, name)
	require.NoError(f.t, err)
	return u
}

func (f *fixture) goal(userID, title string) *model.Goal {
	f.t.Helper()
	g, err := f.engine.Goals.CreateGoal(f.ctx, GoalInput{UserID: userID, Title: title})
	require.NoError(f.t, err)
	return g
}

func (f *fixture) task(goalID, title string, minutes int, dependsOn ...string) *model.Task {
	f.t.Helper()
	task, err := f.engine.Tasks.CreateTask(f.ctx, TaskInput{
		GoalID:           goalID,
		Title:            title,
		EstimatedMinutes: minutes,
		DependsOn:        dependsOn,
	})
	require.NoError(f.t, err)
	return task
}

func (f *fixture) reloadGoal(id string) *model.Goal {
	f.t.Helper()
	g, err := f.store.Goals.FindAnyByID(f.ctx, id)
	require.NoError(f.t, err)
	return g
}

func (f *fixture) reloadTask(id string) *model.Task {
	f.t.Helper()
	task, err := f.store.Tasks.FindAnyByID(f.ctx, id)
	require.NoError(f.t, err)
	return task
}
