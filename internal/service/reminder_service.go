package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"gorm.io/gorm"

	"goal-planner/internal/model"
	"goal-planner/internal/repository"
)

// ReminderService builds human-readable summaries for daily notifications.
type ReminderService struct {
	store *repository.Store
	clock Clock
}

func NewReminderService(store *repository.Store, clock Clock) *ReminderService {
	return &ReminderService{store: store, clock: clock}
}

// DailySummary renders the user's streak, today's plan, yesterday's
// unfinished tasks and active goals as Telegram HTML.
func (s *ReminderService) DailySummary(ctx context.Context, user model.User) (string, error) {
	today := s.clock.Today()

	plan, err := s.store.Plans.FindByUserDate(ctx, user.ID, today)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}
	unfinished, err := s.store.Tasks.ListUnfinishedOn(ctx, user.ID, s.clock.DaysAgo(1))
	if err != nil {
		return "", err
	}
	active := model.GoalActive
	goals, err := s.store.Goals.ListByUser(ctx, user.ID, &active)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily report</b>\n")
	if d, err := time.Parse(DateLayout, today); err == nil {
		builder.WriteString(fmt.Sprintf("🗓 %s\n", d.Format("Mon, 02 Jan 2006")))
	}
	builder.WriteString(formatStreak(user))

	builder.WriteString("\n🎯 <b>Today's plan</b>\n")
	builder.WriteString(formatPlan(plan))

	builder.WriteString("\n⏪ <b>Unfinished yesterday</b>\n")
	if len(unfinished) == 0 {
		builder.WriteString("— nothing left over\n")
	} else {
		for _, t := range unfinished {
			builder.WriteString(fmt.Sprintf("• %s <i>(%s, %d min)</i>\n",
				html.EscapeString(strings.TrimSpace(t.Title)),
				html.EscapeString(strings.TrimSpace(t.GoalTitle)),
				t.EstimatedMinutes))
		}
	}

	builder.WriteString("\n🔥 <b>Active goals</b>\n")
	if len(goals) == 0 {
		builder.WriteString("— no active goals\n")
	}
	for _, g := range goals {
		tasks, err := s.store.Tasks.ListByGoal(ctx, g.ID)
		if err != nil {
			return "", err
		}
		builder.WriteString(formatGoal(g, SelectNext(tasks)))
	}

	return strings.TrimSpace(builder.String()), nil
}

func formatStreak(user model.User) string {
	if user.CurrentStreak == 0 {
		return "💤 No active streak. Complete a task to start one.\n"
	}
	return fmt.Sprintf("⚡ Streak: %d day(s) · best %d\n", user.CurrentStreak, user.LongestStreak)
}

func formatPlan(plan *model.DailyPlan) string {
	if plan == nil {
		return "— not planned yet, send /plan\n"
	}
	var sb strings.Builder
	switch plan.Status {
	case model.PlanSkipped:
		sb.WriteString("— skipped today\n")
		return sb.String()
	case model.PlanConfirmed:
		sb.WriteString("✅ confirmed")
	default:
		sb.WriteString("✏️ in progress")
	}
	sb.WriteString(fmt.Sprintf(" · %d task(s) · %d/%d min",
		len(plan.SelectedTaskIDs), plan.TotalEstimatedMinutes, plan.FocusThresholdMinutes))
	if plan.IsOvercommitted {
		sb.WriteString(fmt.Sprintf("\n   ⚠️ <b>overcommitted by %d min</b>",
			CalculateOvercommitment(plan.TotalEstimatedMinutes, plan.FocusThresholdMinutes).OvercommittedByMinutes))
	}
	sb.WriteByte('\n')
	return sb.String()
}

func formatGoal(goal model.Goal, next NextTask) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s <b>%d%%</b>", progressBar(goal.Progress), html.EscapeString(strings.TrimSpace(goal.Title)), goal.Progress))
	switch {
	case next.Task != nil:
		sb.WriteString(fmt.Sprintf("\n   ➡️ next: %s (%d/%d)", html.EscapeString(next.Task.Title), next.Position, next.TotalTasks))
	case next.Starved():
		sb.WriteString(fmt.Sprintf("\n   ⛔ %d task(s) blocked by dependencies", next.Blocked))
	}
	sb.WriteByte('\n')
	return sb.String()
}

// progressBar draws progress as ten cells.
func progressBar(progress int) string {
	filled := max(0, min(10, progress/10))
	return strings.Repeat("▰", filled) + strings.Repeat("▱", 10-filled)
}
