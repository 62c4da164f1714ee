package bot

import (
	"fmt"
	"html"
	"strings"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"goal-planner/internal/model"
	"goal-planner/internal/service"
)

func formatGoal(g model.GoalWithCounts) string {
	var b strings.Builder
	icon := "🟢"
	switch g.Status {
	case model.GoalCompleted:
		icon = "🏆"
	case model.GoalArchived:
		icon = "📦"
	}
	b.WriteString(fmt.Sprintf("%s <b>%s</b> · %d%% (%d/%d)\n", icon, escape(normalizeTitle(g.Title)), g.Progress, g.CompletedTaskCount, g.TaskCount))
	if g.Purpose != "" {
		b.WriteString(fmt.Sprintf("   💡 %s\n", escape(g.Purpose)))
	}
	b.WriteString(fmt.Sprintf("   <code>%s</code>\n\n", g.ID))
	return b.String()
}

func formatCompletion(out *service.CompletionOutcome) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("✅ <b>%s</b> done.\n", escape(normalizeTitle(out.CompletedTask.Title))))
	b.WriteString(escape(out.Reinforcement.Message))
	b.WriteByte('\n')
	b.WriteString(fmt.Sprintf("\n📈 Goal progress: %d%%", out.GoalProgress))
	if out.Milestone != service.NoMilestone {
		b.WriteString(fmt.Sprintf(" · 🎉 %d%% milestone", out.Milestone))
	}
	if out.Streak.Current > 0 {
		b.WriteString(fmt.Sprintf("\n⚡ Streak: %d day(s)", out.Streak.Current))
		if out.Streak.IsNewRecord {
			b.WriteString(" · new record!")
		}
	}
	if out.GoalCompleted {
		b.WriteString("\n🏆 <b>Goal completed!</b>")
	} else if out.Next.Starved() {
		b.WriteString(fmt.Sprintf("\n⛔ %d task(s) are blocked by dependencies.", out.Next.Blocked))
	}
	return b.String()
}

func planStatusLabel(s model.PlanStatus) string {
	switch s {
	case model.PlanConfirmed:
		return "confirmed"
	case model.PlanSkipped:
		return "skipped"
	default:
		return "in progress"
	}
}

func undoKeyboard(data string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("↩️ Undo", data),
	))
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewGoal),
			tgbotapi.NewKeyboardButton(menuLabelGoals),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelPlan),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "cancel"
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func escape(s string) string {
	return html.EscapeString(s)
}
