package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "goal-planner/internal/errors"
	"goal-planner/internal/model"
)

func TestCreateTask_Validation(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")
	g := f.goal(u.ID, "Goal")

	_, err := f.engine.Tasks.CreateTask(f.ctx, TaskInput{GoalID: g.ID, Title: "  "})
	assert.Equal(t, apperr.KindBadInput, apperr.KindOf(err))

	_, err = f.engine.Tasks.CreateTask(f.ctx, TaskInput{GoalID: "00000000-0000-0000-0000-000000000000", Title: "x"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.engine.Tasks.CreateTask(f.ctx, TaskInput{GoalID: g.ID, Title: "x", DependsOn: []string{"nope"}})
	assert.ErrorIs(t, err, apperr.ErrInvalidDependency)
}

func TestCreateTask_AppendsSortOrder(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")
	g := f.goal(u.ID, "Goal")

	a := f.task(g.ID, "a", 10)
	b := f.task(g.ID, "b", 10, a.ID)

	assert.Equal(t, 0, a.SortOrder)
	assert.Equal(t, 1, b.SortOrder)
	assert.Equal(t, []string{a.ID}, f.reloadTask(b.ID).DependsOn)
}

func TestCreateTasks_Breakdown(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")
	g := f.goal(u.ID, "Write a book")

	tasks, err := f.engine.Tasks.CreateTasks(f.ctx, g.ID, []BreakdownInput{
		{Title: "Outline", EstimatedMinutes: 60},
		{Title: "Chapter one", EstimatedMinutes: 120, DependsOn: []int{0}},
		{Title: "Chapter two", EstimatedMinutes: 120, DependsOn: []int{0, 1}},
	})
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, []string{tasks[0].ID}, tasks[1].DependsOn)
	assert.Equal(t, []string{tasks[0].ID, tasks[1].ID}, tasks[2].DependsOn)

	listed, err := f.engine.Tasks.ListTasks(f.ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "Outline", listed[0].Title)
	assert.Equal(t, 2, listed[2].SortOrder)

	_, err = f.engine.Tasks.CreateTasks(f.ctx, g.ID, []BreakdownInput{
		{Title: "forward ref", EstimatedMinutes: 10, DependsOn: []int{1}},
		{Title: "target", EstimatedMinutes: 10},
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidDependency)

	listed, err = f.engine.Tasks.ListTasks(f.ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 3)
}

func TestGetNextTask(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")
	g := f.goal(u.ID, "Goal")
	a := f.task(g.ID, "a", 10)
	b := f.task(g.ID, "b", 10, a.ID)

	next, err := f.engine.Tasks.GetNextTask(f.ctx, g.ID)
	require.NoError(t, err)
	require.NotNil(t, next.Task)
	assert.Equal(t, a.ID, next.Task.ID)
	assert.Equal(t, 1, next.Blocked)

	_, err = f.engine.Tasks.CompleteTask(f.ctx, a.ID)
	require.NoError(t, err)

	next, err = f.engine.Tasks.GetNextTask(f.ctx, g.ID)
	require.NoError(t, err)
	require.NotNil(t, next.Task)
	assert.Equal(t, b.ID, next.Task.ID)
	assert.Equal(t, 2, next.Position)
	assert.Equal(t, 2, next.TotalTasks)
	assert.Equal(t, 50, next.GoalProgress)

	_, err = f.engine.Tasks.GetNextTask(f.ctx, "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestGetNextTask_DeletedDependencyIsSatisfied(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")
	g := f.goal(u.ID, "Goal")
	a := f.task(g.ID, "a", 10)
	b := f.task(g.ID, "b", 10, a.ID)

	// Tombstone a alone, without the cascade SoftDeleteTask would apply.
	_, err := f.store.Tasks.Tombstone(f.ctx, []string{a.ID}, f.clock.Now(), "manual")
	require.NoError(t, err)

	next, err := f.engine.Tasks.GetNextTask(f.ctx, g.ID)
	require.NoError(t, err)
	require.NotNil(t, next.Task)
	assert.Equal(t, b.ID, next.Task.ID)
	assert.Equal(t, 1, next.TotalTasks)
}

func TestCompleteTask_Outcome(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")
	g := f.goal(u.ID, "Goal")
	a := f.task(g.ID, "a", 10)
	b := f.task(g.ID, "b", 10, a.ID)

	out, err := f.engine.Tasks.CompleteTask(f.ctx, a.ID)
	require.NoError(t, err)

	assert.Equal(t, a.ID, out.CompletedTask.ID)
	assert.Equal(t, model.TaskCompleted, out.CompletedTask.Status)
	assert.NotNil(t, out.CompletedTask.CompletedAt)
	assert.Equal(t, 50, out.GoalProgress)
	assert.Equal(t, Milestone(25), out.Milestone)
	assert.Equal(t, ReinforceMilestone, out.Reinforcement.Type)
	assert.Equal(t, 1, out.Streak.Current)
	assert.False(t, out.GoalCompleted)
	require.NotNil(t, out.Next.Task)
	assert.Equal(t, b.ID, out.Next.Task.ID)

	out, err = f.engine.Tasks.CompleteTask(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, out.GoalProgress)
	assert.Equal(t, Milestone(75), out.Milestone)
	assert.True(t, out.GoalCompleted)
	assert.Nil(t, out.Next.Task)

	records, err := f.store.Progress.ListSince(f.ctx, u.ID, "2026-03-10")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].TasksCompleted)
	assert.Equal(t, 2, records[0].GoalsAdvanced)
}

func TestCompleteTask_AlreadyCompleted(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")
	g := f.goal(u.ID, "Goal")
	a := f.task(g.ID, "a", 10)
	f.task(g.ID, "b", 10)

	_, err := f.engine.Tasks.CompleteTask(f.ctx, a.ID)
	require.NoError(t, err)

	_, err = f.engine.Tasks.CompleteTask(f.ctx, a.ID)
	assert.ErrorIs(t, err, apperr.ErrAlreadyCompleted)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))

	records, err := f.store.Progress.ListSince(f.ctx, u.ID, "2026-03-10")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].TasksCompleted)
}

func TestCompleteTask_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Tasks.CompleteTask(f.ctx, "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCompleteTask_ConcurrentCompletionsConverge(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")
	goals := []*model.Goal{f.goal(u.ID, "one"), f.goal(u.ID, "two")}

	var ids []string
	for _, g := range goals {
		for i := 0; i < 4; i++ {
			ids = append(ids, f.task(g.ID, "t", 10).ID)
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.engine.Tasks.CompleteTask(f.ctx, id)
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for _, g := range goals {
		goal := f.reloadGoal(g.ID)
		assert.Equal(t, 100, goal.Progress)
		assert.Equal(t, model.GoalCompleted, goal.Status)
	}
	user, err := f.engine.Users.GetUser(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, user.CurrentStreak)

	records, err := f.store.Progress.ListSince(f.ctx, u.ID, "2026-03-10")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, len(ids), records[0].TasksCompleted)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")
	g := f.goal(u.ID, "Goal")
	a := f.task(g.ID, "a", 10)

	change, err := f.engine.Tasks.UpdateStatus(f.ctx, a.ID, model.TaskInProgress)
	require.NoError(t, err)
	assert.Equal(t, model.TaskInProgress, change.Task.Status)
	assert.Nil(t, change.Completion)

	change, err = f.engine.Tasks.UpdateStatus(f.ctx, a.ID, model.TaskCompleted)
	require.NoError(t, err)
	require.NotNil(t, change.Completion)
	assert.Equal(t, 100, change.GoalProgress)

	// Reopening clears completedAt but the goal stays completed.
	change, err = f.engine.Tasks.UpdateStatus(f.ctx, a.ID, model.TaskPending)
	require.NoError(t, err)
	assert.Equal(t, 0, change.GoalProgress)
	assert.Nil(t, f.reloadTask(a.ID).CompletedAt)

	goal := f.reloadGoal(g.ID)
	assert.Equal(t, model.GoalCompleted, goal.Status)
	assert.NotNil(t, goal.CompletedAt)

	_, err = f.engine.Tasks.UpdateStatus(f.ctx, a.ID, "done")
	assert.Equal(t, apperr.KindBadInput, apperr.KindOf(err))
}

func TestSetDependencies_RejectsCycle(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")
	g := f.goal(u.ID, "Goal")
	a := f.task(g.ID, "a", 10)
	b := f.task(g.ID, "b", 10, a.ID)

	_, err := f.engine.Tasks.SetDependencies(f.ctx, a.ID, []string{b.ID})
	assert.ErrorIs(t, err, apperr.ErrDependencyCycle)
	assert.Empty(t, f.reloadTask(a.ID).DependsOn)

	other := f.goal(u.ID, "Other")
	x := f.task(other.ID, "x", 10)
	_, err = f.engine.Tasks.SetDependencies(f.ctx, a.ID, []string{x.ID})
	assert.ErrorIs(t, err, apperr.ErrInvalidDependency)

	task, err := f.engine.Tasks.SetDependencies(f.ctx, b.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, task.DependsOn)
}

func TestSchedule(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")
	g := f.goal(u.ID, "Goal")
	a := f.task(g.ID, "a", 10)

	date, start, duration := "2026-03-11", "09:30", 45
	task, err := f.engine.Tasks.Schedule(f.ctx, a.ID, &date, &start, &duration)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-11", *task.ScheduledDate)

	reloaded := f.reloadTask(a.ID)
	require.NotNil(t, reloaded.ScheduledStart)
	assert.Equal(t, "09:30", *reloaded.ScheduledStart)
	assert.Equal(t, 45, *reloaded.ScheduledDuration)

	bad := "11/03/2026"
	_, err = f.engine.Tasks.Schedule(f.ctx, a.ID, &bad, nil, nil)
	assert.Equal(t, apperr.KindBadInput, apperr.KindOf(err))

	task, err = f.engine.Tasks.Schedule(f.ctx, a.ID, nil, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, task.ScheduledDate)
}
