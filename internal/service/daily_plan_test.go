package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "goal-planner/internal/errors"
	"goal-planner/internal/model"
)

func TestCalculateOvercommitment(t *testing.T) {
	assert.Equal(t, Overcommitment{TotalMinutes: 400, ThresholdMinutes: 360, IsOvercommitted: true, OvercommittedByMinutes: 40},
		CalculateOvercommitment(400, 360))
	assert.Equal(t, Overcommitment{TotalMinutes: 300, ThresholdMinutes: 360},
		CalculateOvercommitment(300, 360))
	assert.Equal(t, Overcommitment{TotalMinutes: 360, ThresholdMinutes: 360},
		CalculateOvercommitment(360, 360))
}

func TestStart_IdempotentPerDay(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")

	first, err := f.engine.Plans.Start(f.ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "2026-03-10", first.Plan.Date)
	assert.Equal(t, model.PlanInProgress, first.Plan.Status)
	assert.Equal(t, 360, first.Plan.FocusThresholdMinutes)

	second, err := f.engine.Plans.Start(f.ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Plan.ID, second.Plan.ID)

	// Still the same plan after it is skipped.
	_, err = f.engine.Plans.Skip(f.ctx, first.Plan.ID)
	require.NoError(t, err)
	third, err := f.engine.Plans.Start(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Plan.ID, third.Plan.ID)
	assert.Equal(t, model.PlanSkipped, third.Plan.Status)

	f.clock.Advance(24 * time.Hour)
	next, err := f.engine.Plans.Start(f.ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.Plan.ID, next.Plan.ID)
}

func TestStart_MissingUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Plans.Start(f.ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, apperr.ErrUserMissing)
	assert.Equal(t, apperr.KindPreconditionFailed, apperr.KindOf(err))
}

func TestUpdateSelections(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")
	g := f.goal(u.ID, "Goal")
	a := f.task(g.ID, "a", 200)
	b := f.task(g.ID, "b", 200)
	c := f.task(g.ID, "c", 100)
	gone := f.task(g.ID, "gone", 100)
	_, err := f.engine.Deletes.SoftDeleteTask(f.ctx, gone.ID)
	require.NoError(t, err)

	start, err := f.engine.Plans.Start(f.ctx, u.ID)
	require.NoError(t, err)
	planID := start.Plan.ID

	res, err := f.engine.Plans.UpdateSelections(f.ctx, planID, []string{a.ID, b.ID, a.ID})
	require.NoError(t, err)
	assert.Equal(t, 400, res.TotalMinutes)
	assert.True(t, res.IsOvercommitted)
	assert.Equal(t, 40, res.OvercommittedByMinutes)

	res, err = f.engine.Plans.UpdateSelections(f.ctx, planID, []string{a.ID, c.ID, gone.ID, "unknown"})
	require.NoError(t, err)
	assert.Equal(t, 300, res.TotalMinutes)
	assert.False(t, res.IsOvercommitted)
	assert.Equal(t, 0, res.OvercommittedByMinutes)

	plan, err := f.engine.Plans.Today(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, c.ID, gone.ID, "unknown"}, plan.SelectedTaskIDs)
	assert.Equal(t, 300, plan.TotalEstimatedMinutes)
	assert.False(t, plan.IsOvercommitted)

	_, err = f.engine.Plans.UpdateSelections(f.ctx, "00000000-0000-0000-0000-000000000000", nil)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestConfirmAndSkip_Transitions(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")
	g := f.goal(u.ID, "Goal")
	a := f.task(g.ID, "a", 45)

	start, err := f.engine.Plans.Start(f.ctx, u.ID)
	require.NoError(t, err)
	planID := start.Plan.ID
	_, err = f.engine.Plans.UpdateSelections(f.ctx, planID, []string{a.ID})
	require.NoError(t, err)

	conf, err := f.engine.Plans.Confirm(f.ctx, planID)
	require.NoError(t, err)
	assert.Equal(t, PlanConfirmation{ConfirmedTaskCount: 1, TotalEstimatedMinutes: 45}, conf)

	_, err = f.engine.Plans.Confirm(f.ctx, planID)
	assert.ErrorIs(t, err, apperr.ErrPlanTerminal)
	_, err = f.engine.Plans.Skip(f.ctx, planID)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
	_, err = f.engine.Plans.UpdateSelections(f.ctx, planID, nil)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
}

func TestYesterdayUnfinished(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")
	g := f.goal(u.ID, "Goal")
	done := f.task(g.ID, "done", 10)
	open := f.task(g.ID, "open", 20)
	today := f.task(g.ID, "today", 10)
	deleted := f.task(g.ID, "deleted", 10)

	yesterday, now := "2026-03-09", "2026-03-10"
	for _, id := range []string{done.ID, open.ID, deleted.ID} {
		_, err := f.engine.Tasks.Schedule(f.ctx, id, &yesterday, nil, nil)
		require.NoError(t, err)
	}
	_, err := f.engine.Tasks.Schedule(f.ctx, today.ID, &now, nil, nil)
	require.NoError(t, err)
	_, err = f.engine.Tasks.CompleteTask(f.ctx, done.ID)
	require.NoError(t, err)
	_, err = f.engine.Deletes.SoftDeleteTask(f.ctx, deleted.ID)
	require.NoError(t, err)

	list, err := f.engine.Plans.YesterdayUnfinished(f.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, open.ID, list[0].ID)
	assert.Equal(t, "Goal", list[0].GoalTitle)
	assert.Equal(t, 20, list[0].EstimatedMinutes)

	start, err := f.engine.Plans.Start(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, start.YesterdayUnfinished, 1)

	old := f.goal(u.ID, "Old")
	shelved := f.task(old.ID, "shelved", 15)
	_, err = f.engine.Tasks.Schedule(f.ctx, shelved.ID, &yesterday, nil, nil)
	require.NoError(t, err)
	list, err = f.engine.Plans.YesterdayUnfinished(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = f.engine.Goals.ArchiveGoal(f.ctx, old.ID)
	require.NoError(t, err)
	list, err = f.engine.Plans.YesterdayUnfinished(f.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, open.ID, list[0].ID)
}
