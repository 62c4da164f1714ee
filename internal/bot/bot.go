package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	apperr "goal-planner/internal/errors"
	"goal-planner/internal/input"
	"goal-planner/internal/logging"
	"goal-planner/internal/model"
	"goal-planner/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stagePurpose
	stageTasks
)

const (
	cbDonePrefix     = "done:"
	cbNextPrefix     = "next:"
	cbUndoTaskPrefix = "undo:"
	cbUndoGoalPrefix = "undogoal:"

	cbInboxGoalPrefix   = "inboxgoal:"
	cbInboxDeletePrefix = "inboxdel:"
	cbUndoInboxPrefix   = "undoinbox:"
)

const (
	btnSkip          = "⏭️ Skip"
	btnCancelDialog  = "⏪ Cancel"
	menuLabelGoals   = "🎯 Goals"
	menuLabelNewGoal = "➕ New goal"
	menuLabelPlan    = "🗓 Plan"
	menuLabelHelp    = "ℹ️ Help"
)

type conversationState struct {
	stage conversationStage
	goal  service.GoalInput
}

// sender is the part of the Telegram API the handlers use.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api           *tgbotapi.BotAPI
	out           sender
	engine        *service.Engine
	reminderSvc   *service.ReminderService
	log           *logging.Logger
	conversations map[int64]*conversationState
	mu            sync.Mutex
}

func New(token string, engine *service.Engine, reminderSvc *service.ReminderService, log *logging.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Info("bot authorized", "account", api.Self.UserName)

	b := newBot(api, engine, reminderSvc, log)
	b.api = api
	return b, nil
}

func newBot(out sender, engine *service.Engine, reminderSvc *service.ReminderService, log *logging.Logger) *Bot {
	return &Bot{
		out:           out,
		engine:        engine,
		reminderSvc:   reminderSvc,
		log:           log.With("component", "bot"),
		conversations: make(map[int64]*conversationState),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Error("handle callback", "error", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Error("handle message", "error", err)
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Goal setup cancelled.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		b.log.Debug("command", "telegram_id", msg.From.ID, "command", msg.Command(), "args", msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "I didn't get that. Send /newgoal to add a goal or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "goals":
		return b.handleGoals(ctx, msg)
	case "newgoal":
		return b.startNewGoalConversation(ctx, msg)
	case "next":
		return b.handleNext(ctx, msg)
	case "done":
		return b.handleDone(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "deletegoal":
		return b.handleDeleteGoal(ctx, msg)
	case "inbox":
		return b.handleInbox(ctx, msg)
	case "totask":
		return b.handleConvertTask(ctx, msg, false)
	case "subtask":
		return b.handleConvertTask(ctx, msg, true)
	case "plan":
		return b.handlePlan(ctx, msg)
	case "select":
		return b.handleSelect(ctx, msg)
	case "confirm":
		return b.handleConfirm(ctx, msg)
	case "skip":
		return b.handleSkip(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Goal setup cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf("👋 Hi, %s!\n<b>I turn goals into small next steps and keep you moving.</b>\n\n%s",
		escape(name), helpText)
	return b.sendText(msg.Chat.ID, text)
}

const helpText = "ℹ️ <b>Commands</b>\n" +
	"• /newgoal — add a goal and its tasks step by step\n" +
	"• /goals — active goals with progress\n" +
	"• /next &lt;goal&gt; — what to work on next\n" +
	"• /done &lt;task&gt; — mark a task completed\n" +
	"• /delete &lt;task&gt; — delete a task (undo for 30 s)\n" +
	"• /deletegoal &lt;goal&gt; — delete a goal (undo for 30 s)\n" +
	"• /inbox [note] — capture a note, or list the inbox\n" +
	"• /totask &lt;note&gt; &lt;goal&gt; — turn a note into a task\n" +
	"• /subtask &lt;note&gt; &lt;task&gt; — turn a note into a subtask\n" +
	"• /plan — start today's plan\n" +
	"• /select &lt;task&gt; … — choose today's tasks\n" +
	"• /confirm, /skip — finish today's plan\n" +
	"• /report — daily report now\n" +
	"• /cancel — abort the current input"

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, helpText)
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text, err := b.reminderSvc.DailySummary(ctx, *user)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) startNewGoalConversation(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	b.setConversation(msg.From.ID, &conversationState{stage: stageTitle, goal: service.GoalInput{UserID: user.ID}})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New goal.\n<b>Step 1:</b> what do you want to achieve?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		title, err := input.Title("goal", text)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The title must be 1–200 characters. Try again.", cancelKeyboard())
		}
		state.goal.Title = title
		state.stage = stagePurpose
		return b.sendWithReplyMarkup(msg.Chat.ID, "💡 <b>Step 2:</b> why does it matter to you? (or press Skip)", skipKeyboard())
	case stagePurpose:
		if !isSkipInput(text) {
			state.goal.Purpose = text
		}
		state.stage = stageTasks
		return b.sendWithReplyMarkup(msg.Chat.ID,
			"🧩 <b>Step 3:</b> send the tasks, one per line:\n"+
				"<code>title | minutes | depends on lines</code>\n"+
				"e.g. <code>Draft outline | 30</code>\n<code>Write intro | 45 | 1</code>",
			cancelKeyboard())
	case stageTasks:
		breakdown, err := parseBreakdown(text)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, escape(err.Error()), cancelKeyboard())
		}
		err = b.finishGoalCreation(ctx, msg.Chat.ID, state.goal, breakdown)
		b.clearConversation(msg.From.ID)
		return err
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Setup was reset. Start again with /newgoal.")
	}
}

func (b *Bot) finishGoalCreation(ctx context.Context, chatID int64, goalInput service.GoalInput, breakdown []service.BreakdownInput) error {
	goal, err := b.engine.Goals.CreateGoal(ctx, goalInput)
	if err != nil {
		return b.sendError(chatID, err)
	}
	tasks, err := b.engine.Tasks.CreateTasks(ctx, goal.ID, breakdown)
	if err != nil {
		return b.sendError(chatID, err)
	}

	var summary strings.Builder
	summary.WriteString("✅ <b>Goal saved</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>Title:</b> %s\n", escape(normalizeTitle(goal.Title))))
	if goal.Purpose != "" {
		summary.WriteString(fmt.Sprintf("• <b>Why:</b> %s\n", escape(goal.Purpose)))
	}
	summary.WriteString(fmt.Sprintf("• <b>Tasks:</b> %d\n", len(tasks)))
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> <code>%s</code>", goal.ID))

	msg := tgbotapi.NewMessage(chatID, summary.String())
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.out.Send(msg); err != nil {
		return err
	}
	return b.sendNextTask(ctx, chatID, goal.ID)
}

// parseBreakdown reads "title | minutes | deps" lines; deps are 1-based
// line numbers of earlier lines.
func parseBreakdown(text string) ([]service.BreakdownInput, error) {
	var out []service.BreakdownInput
	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lineNo := len(out) + 1
		parts := strings.Split(line, "|")
		title, err := input.Title("task", parts[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: title must be 1–200 characters", n+1)
		}
		task := service.BreakdownInput{Title: title, EstimatedMinutes: 30}
		if len(parts) > 1 {
			minutes, err := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err != nil || input.Minutes("task", minutes) != nil {
				return nil, fmt.Errorf("line %d: minutes must be a number from %d to %d", n+1, input.MinMinutes, input.MaxMinutes)
			}
			task.EstimatedMinutes = minutes
		}
		if len(parts) > 2 {
			for _, raw := range strings.FieldsFunc(parts[2], func(r rune) bool { return r == ',' || unicode.IsSpace(r) }) {
				dep, err := strconv.Atoi(raw)
				if err != nil || dep < 1 || dep >= lineNo {
					return nil, fmt.Errorf("line %d: a task can only depend on earlier lines", n+1)
				}
				task.DependsOn = append(task.DependsOn, dep-1)
			}
		}
		out = append(out, task)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("send at least one task")
	}
	return out, nil
}

func (b *Bot) handleGoals(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	goals, err := b.engine.Goals.ListGoals(ctx, user.ID, nil)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	if len(goals) == 0 {
		return b.sendText(msg.Chat.ID, "You have no goals yet. Add one with /newgoal.")
	}

	var builder strings.Builder
	builder.WriteString("🎯 <b>Your goals</b>\n\n")
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, g := range goals {
		builder.WriteString(formatGoal(g))
		if g.Status == model.GoalActive {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("➡️ "+shortTitle(g.Title, 28), cbNextPrefix+g.ID),
			))
		}
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, strings.TrimSpace(builder.String()))
	reply.ParseMode = tgbotapi.ModeHTML
	if len(buttons) > 0 {
		reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	}
	_, err = b.out.Send(reply)
	return err
}

func (b *Bot) handleNext(ctx context.Context, msg *tgbotapi.Message) error {
	goalID, err := input.ID("goal", msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give the goal id: /next &lt;goal&gt;. /goals lists them.")
	}
	return b.sendNextTask(ctx, msg.Chat.ID, goalID)
}

func (b *Bot) sendNextTask(ctx context.Context, chatID int64, goalID string) error {
	next, err := b.engine.Tasks.GetNextTask(ctx, goalID)
	if err != nil {
		return b.sendError(chatID, err)
	}

	switch {
	case next.Task != nil:
		text := fmt.Sprintf("➡️ <b>Next (%d/%d):</b> %s\n⏱ %d min · goal at %d%%",
			next.Position, next.TotalTasks, escape(normalizeTitle(next.Task.Title)),
			next.Task.EstimatedMinutes, next.GoalProgress)
		if next.Task.DoneDefinition != "" {
			text += "\n🏁 " + escape(next.Task.DoneDefinition)
		}
		markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Done", cbDonePrefix+next.Task.ID),
		))
		return b.sendWithReplyMarkup(chatID, text, markup)
	case next.Starved():
		return b.sendText(chatID, fmt.Sprintf("⛔ %d task(s) are waiting on dependencies that are not done.", next.Blocked))
	default:
		return b.sendText(chatID, fmt.Sprintf("🏆 Nothing left to do here. Goal at %d%%.", next.GoalProgress))
	}
}

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := input.ID("task", msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give the task id: /done &lt;task&gt;")
	}
	return b.completeTask(ctx, msg.Chat.ID, taskID)
}

func (b *Bot) completeTask(ctx context.Context, chatID int64, taskID string) error {
	outcome, err := b.engine.Tasks.CompleteTask(ctx, taskID)
	if err != nil {
		return b.sendError(chatID, err)
	}
	if err := b.sendText(chatID, formatCompletion(outcome)); err != nil {
		return err
	}
	if outcome.Next.Task != nil {
		return b.sendNextTask(ctx, chatID, outcome.CompletedTask.GoalID)
	}
	return nil
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := input.ID("task", msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give the task id: /delete &lt;task&gt;")
	}

	deletion, err := b.engine.Deletes.SoftDeleteTask(ctx, taskID)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}

	text := "🗑 Task deleted."
	if n := len(deletion.CascadeDeletedIDs); n > 0 {
		text += fmt.Sprintf(" %d dependent task(s) went with it.", n)
	}
	text += fmt.Sprintf("\nGoal now at %d%%. You can undo for %d seconds.", deletion.GoalProgress, int(service.UndoWindow.Seconds()))
	return b.sendWithReplyMarkup(msg.Chat.ID, text, undoKeyboard(cbUndoTaskPrefix+taskID))
}

func (b *Bot) handleDeleteGoal(ctx context.Context, msg *tgbotapi.Message) error {
	goalID, err := input.ID("goal", msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give the goal id: /deletegoal &lt;goal&gt;")
	}

	deletion, err := b.engine.Deletes.SoftDeleteGoal(ctx, goalID)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	text := fmt.Sprintf("🗑 Goal deleted with %d task(s). You can undo for %d seconds.",
		len(deletion.CascadeDeletedTaskIDs), int(service.UndoWindow.Seconds()))
	return b.sendWithReplyMarkup(msg.Chat.ID, text, undoKeyboard(cbUndoGoalPrefix+goalID))
}

// handleInbox captures the command text as a note, or lists the inbox
// when there is none.
func (b *Bot) handleInbox(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	if note := strings.TrimSpace(msg.CommandArguments()); note != "" {
		title, err := input.Title("inbox item", note)
		if err != nil {
			return b.sendError(msg.Chat.ID, err)
		}
		item, err := b.engine.Inbox.Capture(ctx, user.ID, title, "")
		if err != nil {
			return b.sendError(msg.Chat.ID, err)
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("📥 Noted: %s\n<code>%s</code>", escape(item.Title), item.ID))
	}

	items, err := b.engine.Inbox.List(ctx, user.ID, model.InboxUnprocessed)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	if len(items) == 0 {
		return b.sendText(msg.Chat.ID, "📥 Inbox is empty. Capture a note with /inbox &lt;text&gt;.")
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📥 <b>Inbox (%d)</b>\n\n", len(items)))
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, item := range items {
		builder.WriteString(fmt.Sprintf("• %s\n  <code>%s</code>\n", escape(item.Title), item.ID))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎯 "+shortTitle(item.Title, 24), cbInboxGoalPrefix+item.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbInboxDeletePrefix+item.ID),
		))
	}
	return b.sendWithReplyMarkup(msg.Chat.ID, strings.TrimSpace(builder.String()), tgbotapi.NewInlineKeyboardMarkup(buttons...))
}

// handleConvertTask turns a note into a task of a goal, or into a subtask
// of a task.
func (b *Bot) handleConvertTask(ctx context.Context, msg *tgbotapi.Message, subtask bool) error {
	usage := "Give the note and goal ids: /totask &lt;note&gt; &lt;goal&gt;"
	target := "goal"
	if subtask {
		usage = "Give the note and task ids: /subtask &lt;note&gt; &lt;task&gt;"
		target = "task"
	}
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		return b.sendText(msg.Chat.ID, usage)
	}
	itemID, err := input.ID("inbox item", args[0])
	if err != nil {
		return b.sendText(msg.Chat.ID, usage)
	}
	targetID, err := input.ID(target, args[1])
	if err != nil {
		return b.sendText(msg.Chat.ID, usage)
	}

	var task *model.Task
	if subtask {
		task, err = b.engine.Inbox.ConvertToSubtask(ctx, itemID, targetID)
	} else {
		task, err = b.engine.Inbox.ConvertToTask(ctx, itemID, targetID)
	}
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Added task: %s\n<code>%s</code>", escape(task.Title), task.ID))
}

func (b *Bot) handlePlan(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	start, err := b.engine.Plans.Start(ctx, user.ID)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🗓 <b>Plan for %s</b> (%s)\n", start.Plan.Date, planStatusLabel(start.Plan.Status)))
	builder.WriteString(fmt.Sprintf("Selected %d task(s), %d of %d min\n",
		len(start.Plan.SelectedTaskIDs), start.Plan.TotalEstimatedMinutes, start.Plan.FocusThresholdMinutes))

	if len(start.YesterdayUnfinished) > 0 {
		builder.WriteString("\n⏪ <b>Unfinished yesterday</b>\n")
		for _, t := range start.YesterdayUnfinished {
			builder.WriteString(fmt.Sprintf("• %s · %d min\n  <code>%s</code>\n", escape(t.Title), t.EstimatedMinutes, t.ID))
		}
	}

	active := model.GoalActive
	goals, err := b.engine.Goals.ListGoals(ctx, user.ID, &active)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	var candidates strings.Builder
	for _, g := range goals {
		next, err := b.engine.Tasks.GetNextTask(ctx, g.ID)
		if err != nil || next.Task == nil {
			continue
		}
		candidates.WriteString(fmt.Sprintf("• %s · %d min <i>(%s)</i>\n  <code>%s</code>\n",
			escape(next.Task.Title), next.Task.EstimatedMinutes, escape(g.Title), next.Task.ID))
	}
	if candidates.Len() > 0 {
		builder.WriteString("\n➡️ <b>Next steps</b>\n")
		builder.WriteString(candidates.String())
	}
	if start.Plan.Status == model.PlanInProgress {
		builder.WriteString("\nPick tasks with /select &lt;task&gt; …, then /confirm or /skip.")
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleSelect(ctx context.Context, msg *tgbotapi.Message) error {
	taskIDs, err := input.IDs("task", strings.Fields(msg.CommandArguments()))
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give task ids separated by spaces: /select &lt;task&gt; &lt;task&gt;")
	}
	plan, err := b.todayPlan(ctx, msg)
	if err != nil || plan == nil {
		return err
	}

	result, err := b.engine.Plans.UpdateSelections(ctx, plan.ID, taskIDs)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	text := fmt.Sprintf("📝 %d task(s) · %d of %d min", len(taskIDs), result.TotalMinutes, result.ThresholdMinutes)
	if result.IsOvercommitted {
		text += fmt.Sprintf("\n⚠️ <b>Overcommitted by %d min.</b> Consider dropping something.", result.OvercommittedByMinutes)
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleConfirm(ctx context.Context, msg *tgbotapi.Message) error {
	plan, err := b.todayPlan(ctx, msg)
	if err != nil || plan == nil {
		return err
	}
	result, err := b.engine.Plans.Confirm(ctx, plan.ID)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Plan confirmed: %d task(s), %d min. Go!",
		result.ConfirmedTaskCount, result.TotalEstimatedMinutes))
}

func (b *Bot) handleSkip(ctx context.Context, msg *tgbotapi.Message) error {
	plan, err := b.todayPlan(ctx, msg)
	if err != nil || plan == nil {
		return err
	}
	if _, err := b.engine.Plans.Skip(ctx, plan.ID); err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, "⏭️ Planning skipped for today.")
}

// todayPlan returns today's plan, or nil after telling the user to run /plan.
func (b *Bot) todayPlan(ctx context.Context, msg *tgbotapi.Message) (*model.DailyPlan, error) {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return nil, err
	}
	plan, err := b.engine.Plans.Today(ctx, user.ID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, b.sendText(msg.Chat.ID, "No plan for today yet. Start one with /plan.")
		}
		return nil, b.sendError(msg.Chat.ID, err)
	}
	return plan, nil
}

// SendDailyReports sends a summary to every user linked to Telegram.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.engine.Users.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if user.TelegramID == nil {
			continue
		}
		text, err := b.reminderSvc.DailySummary(ctx, user)
		if err != nil {
			b.log.WithUser(user.ID).Error("build summary", "error", err)
			continue
		}
		if err := b.sendText(*user.TelegramID, text); err != nil {
			b.log.WithUser(user.ID).Error("send summary", "error", err)
		}
	}
	return nil
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.out.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn("callback ack", "error", err)
	}

	data := cb.Data
	chatID := cb.Message.Chat.ID
	b.log.Debug("callback", "telegram_id", cb.From.ID, "data", data)

	switch {
	case strings.HasPrefix(data, cbDonePrefix):
		taskID, err := input.ID("task", strings.TrimPrefix(data, cbDonePrefix))
		if err != nil {
			return nil
		}
		return b.completeTask(ctx, chatID, taskID)
	case strings.HasPrefix(data, cbNextPrefix):
		goalID, err := input.ID("goal", strings.TrimPrefix(data, cbNextPrefix))
		if err != nil {
			return nil
		}
		return b.sendNextTask(ctx, chatID, goalID)
	case strings.HasPrefix(data, cbUndoTaskPrefix):
		taskID, err := input.ID("task", strings.TrimPrefix(data, cbUndoTaskPrefix))
		if err != nil {
			return nil
		}
		restored, err := b.engine.Deletes.UndoDeleteTask(ctx, taskID)
		if err != nil {
			return b.sendError(chatID, err)
		}
		return b.sendText(chatID, fmt.Sprintf("↩️ Restored %d task(s). Goal at %d%%.", len(restored.RestoredTaskIDs), restored.GoalProgress))
	case strings.HasPrefix(data, cbUndoGoalPrefix):
		goalID, err := input.ID("goal", strings.TrimPrefix(data, cbUndoGoalPrefix))
		if err != nil {
			return nil
		}
		restored, err := b.engine.Deletes.UndoDeleteGoal(ctx, goalID, nil)
		if err != nil {
			return b.sendError(chatID, err)
		}
		return b.sendText(chatID, fmt.Sprintf("↩️ Goal restored with %d task(s).", len(restored.RestoredTaskIDs)))
	case strings.HasPrefix(data, cbInboxGoalPrefix):
		itemID, err := input.ID("inbox item", strings.TrimPrefix(data, cbInboxGoalPrefix))
		if err != nil {
			return nil
		}
		goal, err := b.engine.Inbox.ConvertToGoal(ctx, itemID)
		if err != nil {
			return b.sendError(chatID, err)
		}
		return b.sendText(chatID, fmt.Sprintf("🎯 New goal: %s\n<code>%s</code>", escape(goal.Title), goal.ID))
	case strings.HasPrefix(data, cbInboxDeletePrefix):
		itemID, err := input.ID("inbox item", strings.TrimPrefix(data, cbInboxDeletePrefix))
		if err != nil {
			return nil
		}
		if _, err := b.engine.Deletes.SoftDeleteInboxItem(ctx, itemID); err != nil {
			return b.sendError(chatID, err)
		}
		text := fmt.Sprintf("🗑 Note deleted. You can undo for %d seconds.", int(service.UndoWindow.Seconds()))
		return b.sendWithReplyMarkup(chatID, text, undoKeyboard(cbUndoInboxPrefix+itemID))
	case strings.HasPrefix(data, cbUndoInboxPrefix):
		itemID, err := input.ID("inbox item", strings.TrimPrefix(data, cbUndoInboxPrefix))
		if err != nil {
			return nil
		}
		item, err := b.engine.Deletes.UndoDeleteInboxItem(ctx, itemID)
		if err != nil {
			return b.sendError(chatID, err)
		}
		return b.sendText(chatID, "↩️ Note restored: "+escape(item.Title))
	default:
		return nil
	}
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	name := strings.TrimSpace(strings.Join([]string{from.FirstName, from.LastName}, " "))
	if name == "" {
		name = from.UserName
	}
	return b.engine.Users.EnsureTelegramUser(ctx, from.ID, name)
}

// sendError reports err to the chat. Engine errors are shown verbatim,
// anything else is logged and replaced by a generic line.
func (b *Bot) sendError(chatID int64, err error) error {
	if !apperr.IsUserFacing(err) {
		b.log.Error("request failed", "chat_id", chatID, "error", err)
		return b.sendText(chatID, "Something went wrong. Please try again.")
	}
	return b.sendText(chatID, "⚠️ "+escape(userMessage(err)))
}

func userMessage(err error) string {
	switch {
	case apperr.Is(err, apperr.ErrUndoWindowExpired):
		return "Too late to undo, the 30 second window has passed."
	case apperr.Is(err, apperr.ErrAlreadyCompleted):
		return "That task is already completed."
	case apperr.Is(err, apperr.ErrPlanTerminal):
		return "Today's plan is already confirmed or skipped."
	case apperr.Is(err, apperr.ErrNotTombstoned):
		return "There is nothing to undo."
	case apperr.Is(err, apperr.ErrAlreadyConverted):
		return "That note was already turned into a goal or task."
	}
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return "Not found. It may have been deleted."
	case apperr.KindPreconditionFailed:
		return "Send /start first."
	default:
		return err.Error()
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewGoal):
		return true, b.startNewGoalConversation(ctx, msg)
	case strings.ToLower(menuLabelGoals):
		return true, b.handleGoals(ctx, msg)
	case strings.ToLower(menuLabelPlan):
		return true, b.handlePlan(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}
