package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goal-planner/internal/model"
	"goal-planner/internal/repository"
)

func TestComputeProgress(t *testing.T) {
	task := func(s model.TaskStatus) model.Task { return model.Task{Status: s} }
	tests := []struct {
		name  string
		tasks []model.Task
		want  int
	}{
		{"no tasks", nil, 0},
		{"none done", []model.Task{task(model.TaskPending)}, 0},
		{"one of three rounds down", []model.Task{task(model.TaskCompleted), task(model.TaskPending), task(model.TaskSkipped)}, 33},
		{"two of three rounds up", []model.Task{task(model.TaskCompleted), task(model.TaskCompleted), task(model.TaskPending)}, 67},
		{"half", []model.Task{task(model.TaskCompleted), task(model.TaskInProgress)}, 50},
		{"all", []model.Task{task(model.TaskCompleted)}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeProgress(tt.tasks))
		})
	}
}

func TestRecompute_CompletesGoalOnce(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")
	g := f.goal(u.ID, "Ship it")
	t1 := f.task(g.ID, "only", 30)

	_, err := f.engine.Tasks.CompleteTask(f.ctx, t1.ID)
	require.NoError(t, err)

	goal := f.reloadGoal(g.ID)
	assert.Equal(t, model.GoalCompleted, goal.Status)
	require.NotNil(t, goal.CompletedAt)
	firstStamp := *goal.CompletedAt

	// Recompute again later; the stamp must not move.
	f.clock.Advance(time.Hour)
	err = f.store.Transaction(f.ctx, func(tx *repository.Store) error {
		_, err := f.engine.Tasks.progress.Recompute(f.ctx, tx, goal)
		return err
	})
	require.NoError(t, err)

	goal = f.reloadGoal(g.ID)
	assert.Equal(t, 100, goal.Progress)
	assert.True(t, firstStamp.Equal(*goal.CompletedAt))
}

func TestRecompute_ArchivedGoalStaysArchived(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")
	g := f.goal(u.ID, "Someday")
	t1 := f.task(g.ID, "only", 30)

	_, err := f.engine.Goals.ArchiveGoal(f.ctx, g.ID)
	require.NoError(t, err)
	_, err = f.engine.Tasks.CompleteTask(f.ctx, t1.ID)
	require.NoError(t, err)

	goal := f.reloadGoal(g.ID)
	assert.Equal(t, model.GoalArchived, goal.Status)
	assert.Equal(t, 100, goal.Progress)
	assert.Nil(t, goal.CompletedAt)
}

func TestProgress_FollowsEveryMutation(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")
	g := f.goal(u.ID, "Four steps")
	tasks := make([]string, 4)
	for i := range tasks {
		tasks[i] = f.task(g.ID, "step", 15).ID
	}
	assert.Equal(t, 0, f.reloadGoal(g.ID).Progress)

	_, err := f.engine.Tasks.CompleteTask(f.ctx, tasks[0])
	require.NoError(t, err)
	assert.Equal(t, 25, f.reloadGoal(g.ID).Progress)

	_, err = f.engine.Deletes.SoftDeleteTask(f.ctx, tasks[3])
	require.NoError(t, err)
	assert.Equal(t, 33, f.reloadGoal(g.ID).Progress)

	_, err = f.engine.Deletes.UndoDeleteTask(f.ctx, tasks[3])
	require.NoError(t, err)
	assert.Equal(t, 25, f.reloadGoal(g.ID).Progress)

	f.task(g.ID, "late addition", 15)
	assert.Equal(t, 20, f.reloadGoal(g.ID).Progress)
}
