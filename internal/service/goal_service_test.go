package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "goal-planner/internal/errors"
	"goal-planner/internal/model"
)

func TestCreateGoal(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")

	g1 := f.goal(u.ID, "First")
	g2 := f.goal(u.ID, "Second")
	assert.Equal(t, 0, g1.SortOrder)
	assert.Equal(t, 1, g2.SortOrder)
	assert.Equal(t, model.GoalActive, g2.Status)

	_, err := f.engine.Goals.CreateGoal(f.ctx, GoalInput{UserID: "00000000-0000-0000-0000-000000000000", Title: "x"})
	assert.ErrorIs(t, err, apperr.ErrUserMissing)
	assert.Equal(t, apperr.KindPreconditionFailed, apperr.KindOf(err))

	_, err = f.engine.Goals.CreateGoal(f.ctx, GoalInput{UserID: u.ID, Title: " "})
	assert.Equal(t, apperr.KindBadInput, apperr.KindOf(err))
}

func TestListGoals_WithCounts(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")
	g1 := f.goal(u.ID, "First")
	g2 := f.goal(u.ID, "Second")
	a := f.task(g1.ID, "a", 10)
	f.task(g1.ID, "b", 10)
	_, err := f.engine.Tasks.CompleteTask(f.ctx, a.ID)
	require.NoError(t, err)

	goals, err := f.engine.Goals.ListGoals(f.ctx, u.ID, nil)
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.Equal(t, g1.ID, goals[0].ID)
	assert.Equal(t, 2, goals[0].TaskCount)
	assert.Equal(t, 1, goals[0].CompletedTaskCount)
	assert.Equal(t, 50, goals[0].Progress)
	assert.Equal(t, g2.ID, goals[1].ID)
	assert.Equal(t, 0, goals[1].TaskCount)

	_, err = f.engine.Goals.ArchiveGoal(f.ctx, g2.ID)
	require.NoError(t, err)
	active := model.GoalActive
	goals, err = f.engine.Goals.ListGoals(f.ctx, u.ID, &active)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, g1.ID, goals[0].ID)
}

func TestArchiveGoal(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")
	g := f.goal(u.ID, "Goal")

	_, ok := f.milestones.Get(g.ID)
	require.True(t, ok)

	archived, err := f.engine.Goals.ArchiveGoal(f.ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, model.GoalArchived, archived.Status)
	_, ok = f.milestones.Get(g.ID)
	assert.False(t, ok)

	_, err = f.engine.Goals.ArchiveGoal(f.ctx, g.ID)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
}

func TestArchivedGoal_ReportsNoMilestones(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")
	g := f.goal(u.ID, "Goal")
	tasks := make([]*model.Task, 10)
	for i := range tasks {
		tasks[i] = f.task(g.ID, fmt.Sprintf("t%d", i), 10)
	}
	for _, task := range tasks[:8] {
		_, err := f.engine.Tasks.CompleteTask(f.ctx, task.ID)
		require.NoError(t, err)
	}
	_, err := f.engine.Goals.ArchiveGoal(f.ctx, g.ID)
	require.NoError(t, err)

	out, err := f.engine.Tasks.CompleteTask(f.ctx, tasks[8].ID)
	require.NoError(t, err)
	assert.Equal(t, 90, out.GoalProgress)
	assert.Equal(t, NoMilestone, out.Milestone)
	_, ok := f.milestones.Get(g.ID)
	assert.False(t, ok)

	change, err := f.engine.Tasks.UpdateStatus(f.ctx, tasks[0].ID, model.TaskPending)
	require.NoError(t, err)
	assert.Equal(t, NoMilestone, change.Milestone)

	del, err := f.engine.Deletes.SoftDeleteTask(f.ctx, tasks[9].ID)
	require.NoError(t, err)
	assert.Equal(t, NoMilestone, del.Milestone)
	undo, err := f.engine.Deletes.UndoDeleteTask(f.ctx, tasks[9].ID)
	require.NoError(t, err)
	assert.Equal(t, NoMilestone, undo.Milestone)

	f.task(g.ID, "late", 10)
	_, ok = f.milestones.Get(g.ID)
	assert.False(t, ok)
	assert.Equal(t, model.GoalArchived, f.reloadGoal(g.ID).Status)
}

func TestEnsureTelegramUser(t *testing.T) {
	f := newFixture(t)

	u1, err := f.engine.Users.EnsureTelegramUser(f.ctx, 1001, "Ada")
	require.NoError(t, err)
	u2, err := f.engine.Users.EnsureTelegramUser(f.ctx, 1001, "Ada L")
	require.NoError(t, err)
	assert.Equal(t, u1.ID, u2.ID)

	got, err := f.engine.Users.GetUser(f.ctx, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada L", got.Name)

	_, err = f.engine.Users.CreateUser(f.ctx, "")
	assert.Equal(t, apperr.KindBadInput, apperr.KindOf(err))
}

func TestUpdateGoal(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")
	g := f.goal(u.ID, "Goal")
	a := f.task(g.ID, "a", 10)
	f.task(g.ID, "b", 10)
	_, err := f.engine.Tasks.CompleteTask(f.ctx, a.ID)
	require.NoError(t, err)

	title, purpose, order := " Renamed ", "because", 5
	got, err := f.engine.Goals.UpdateGoal(f.ctx, g.ID, GoalUpdate{Title: &title, Purpose: &purpose, SortOrder: &order})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	stored := f.reloadGoal(g.ID)
	assert.Equal(t, "Renamed", stored.Title)
	assert.Equal(t, "because", stored.Purpose)
	assert.Equal(t, 5, stored.SortOrder)
	assert.Equal(t, model.GoalActive, stored.Status)
	assert.Equal(t, 50, stored.Progress)

	archived := model.GoalArchived
	_, err = f.engine.Goals.UpdateGoal(f.ctx, g.ID, GoalUpdate{Status: &archived})
	require.NoError(t, err)
	assert.False(t, f.engine.Milestones.Remembers(g.ID))

	// Back to active: memory is seeded from the stored 50, so only later
	// thresholds are reported.
	active := model.GoalActive
	_, err = f.engine.Goals.UpdateGoal(f.ctx, g.ID, GoalUpdate{Status: &active})
	require.NoError(t, err)
	baseline, ok := f.milestones.Get(g.ID)
	require.True(t, ok)
	assert.Equal(t, 50, baseline)

	completed := model.GoalCompleted
	got, err = f.engine.Goals.UpdateGoal(f.ctx, g.ID, GoalUpdate{Status: &completed})
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, day0.Equal(*got.CompletedAt))

	blank, bogus := "  ", model.GoalStatus("paused")
	_, err = f.engine.Goals.UpdateGoal(f.ctx, g.ID, GoalUpdate{Title: &blank})
	assert.Equal(t, apperr.KindBadInput, apperr.KindOf(err))
	_, err = f.engine.Goals.UpdateGoal(f.ctx, g.ID, GoalUpdate{Status: &bogus})
	assert.Equal(t, apperr.KindBadInput, apperr.KindOf(err))
	_, err = f.engine.Goals.UpdateGoal(f.ctx, "missing", GoalUpdate{Title: &title})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
