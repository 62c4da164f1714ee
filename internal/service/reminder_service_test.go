package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailySummary_Empty(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")
	reminders := NewReminderService(f.store, f.engine.Clock)

	text, err := reminders.DailySummary(f.ctx, *u)
	require.NoError(t, err)
	assert.Contains(t, text, "Daily report")
	assert.Contains(t, text, "Tue, 10 Mar 2026")
	assert.Contains(t, text, "No active streak")
	assert.Contains(t, text, "not planned yet")
	assert.Contains(t, text, "nothing left over")
	assert.Contains(t, text, "no active goals")
}

func TestDailySummary_Populated(t *testing.T) {
	f := newFixture(t)
	u := f.user("ada")
	g := f.goal(u.ID, "Learn <Go>")
	a := f.task(g.ID, "Read tour", 30)
	b := f.task(g.ID, "Write CLI", 300, a.ID)
	f.task(g.ID, "Ship it", 120, b.ID)

	yesterday := "2026-03-09"
	_, err := f.engine.Tasks.Schedule(f.ctx, b.ID, &yesterday, nil, nil)
	require.NoError(t, err)
	_, err = f.engine.Tasks.CompleteTask(f.ctx, a.ID)
	require.NoError(t, err)

	start, err := f.engine.Plans.Start(f.ctx, u.ID)
	require.NoError(t, err)
	_, err = f.engine.Plans.UpdateSelections(f.ctx, start.Plan.ID, []string{b.ID, a.ID, "x"})
	require.NoError(t, err)

	user, err := f.engine.Users.GetUser(f.ctx, u.ID)
	require.NoError(t, err)
	text, err := NewReminderService(f.store, f.engine.Clock).DailySummary(f.ctx, *user)
	require.NoError(t, err)

	assert.Contains(t, text, "Streak: 1 day(s) · best 1")
	assert.Contains(t, text, "in progress · 3 task(s) · 330/360 min")
	assert.NotContains(t, text, "overcommitted")
	assert.Contains(t, text, "• Write CLI <i>(Learn &lt;Go&gt;, 300 min)</i>")
	assert.Contains(t, text, "Learn &lt;Go&gt; <b>33%</b>")
	assert.Contains(t, text, "next: Write CLI (2/3)")
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "▱▱▱▱▱▱▱▱▱▱", progressBar(0))
	assert.Equal(t, "▰▰▰▱▱▱▱▱▱▱", progressBar(33))
	assert.Equal(t, "▰▰▰▰▰▰▰▰▰▰", progressBar(100))
}
