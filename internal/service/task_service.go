package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	apperr "goal-planner/internal/errors"
	"goal-planner/internal/logging"
	"goal-planner/internal/model"
	"goal-planner/internal/repository"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	GoalID           string
	Title            string
	Description      string
	DoneDefinition   string
	EstimatedMinutes int
	DependsOn        []string
	ParentTaskID     *string
}

// BreakdownInput is one task of a goal breakdown. DependsOn holds indices
// of earlier entries in the same batch.
type BreakdownInput struct {
	Title            string
	Description      string
	DoneDefinition   string
	EstimatedMinutes int
	DependsOn        []int
}

// CompletionOutcome combines everything a completion changes.
type CompletionOutcome struct {
	CompletedTask *model.Task
	Next          NextTask
	GoalProgress  int
	GoalCompleted bool
	Milestone     Milestone
	Streak        StreakUpdate
	Reinforcement Reinforcement
}

// StatusChange is the result of UpdateStatus. Completion is set when the
// new status was completed.
type StatusChange struct {
	Task         *model.Task
	GoalProgress int
	Milestone    Milestone
	Completion   *CompletionOutcome
}

// TaskService wraps task-related business logic.
type TaskService struct {
	store      *repository.Store
	progress   *ProgressAggregator
	milestones *MilestoneTracker
	streaks    *StreakTracker
	reinforcer *Reinforcer
	locks      *Locker
	clock      Clock
	log        *logging.Logger
}

func NewTaskService(
	store *repository.Store,
	progress *ProgressAggregator,
	milestones *MilestoneTracker,
	streaks *StreakTracker,
	reinforcer *Reinforcer,
	locks *Locker,
	clock Clock,
	log *logging.Logger,
) *TaskService {
	return &TaskService{
		store:      store,
		progress:   progress,
		milestones: milestones,
		streaks:    streaks,
		reinforcer: reinforcer,
		locks:      locks,
		clock:      clock,
		log:        log,
	}
}

func validateTaskFields(title string, minutes int) error {
	if strings.TrimSpace(title) == "" {
		return apperr.BadInput("task", "", apperr.New("title is required"))
	}
	if minutes < 0 {
		return apperr.BadInput("task", "", apperr.New("estimated minutes must not be negative"))
	}
	return nil
}

func (s *TaskService) CreateTask(ctx context.Context, input TaskInput) (*model.Task, error) {
	return s.create(ctx, input, nil, nil)
}

// create appends a task to its goal. within, when set, runs in the same
// transaction after the insert; keys are locked alongside the goal.
func (s *TaskService) create(
	ctx context.Context,
	input TaskInput,
	keys []string,
	within func(tx *repository.Store, task *model.Task) error,
) (*model.Task, error) {
	if err := validateTaskFields(input.Title, input.EstimatedMinutes); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(append(keys, goalKey(input.GoalID))...)
	defer unlock()

	task := model.Task{
		ID:               uuid.NewString(),
		GoalID:           input.GoalID,
		Title:            strings.TrimSpace(input.Title),
		Description:      input.Description,
		DoneDefinition:   input.DoneDefinition,
		EstimatedMinutes: input.EstimatedMinutes,
		ParentTaskID:     input.ParentTaskID,
	}
	var goal *model.Goal
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		goal, err = tx.Goals.FindByID(ctx, input.GoalID)
		if err != nil {
			return notFound(err, "goal", input.GoalID)
		}
		siblings, err := tx.Tasks.ListByGoal(ctx, goal.ID)
		if err != nil {
			return err
		}
		deps, err := ValidateDependencies(siblings, task.ID, input.DependsOn)
		if err != nil {
			return err
		}
		task.DependsOn = deps
		if input.ParentTaskID != nil && !hasTask(siblings, *input.ParentTaskID) {
			return apperr.NotFound("task", *input.ParentTaskID)
		}

		maxOrder, err := tx.Tasks.MaxSortOrder(ctx, goal.ID)
		if err != nil {
			return err
		}
		task.SortOrder = maxOrder + 1
		if err := tx.Tasks.Create(ctx, &task); err != nil {
			return err
		}
		if within != nil {
			if err := within(tx, &task); err != nil {
				return err
			}
		}
		_, err = s.progress.Recompute(ctx, tx, goal)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.milestones.Observe(goal)
	s.log.WithGoal(task.GoalID).Info("task created", "task_id", task.ID)
	return &task, nil
}

func hasTask(tasks []model.Task, id string) bool {
	for _, t := range tasks {
		if t.ID == id {
			return true
		}
	}
	return false
}

// CreateTasks appends a breakdown batch to a goal in one transaction.
func (s *TaskService) CreateTasks(ctx context.Context, goalID string, inputs []BreakdownInput) ([]model.Task, error) {
	if len(inputs) == 0 {
		return nil, apperr.BadInput("goal", goalID, apperr.New("breakdown is empty"))
	}
	tasks := make([]model.Task, len(inputs))
	for i, in := range inputs {
		if err := validateTaskFields(in.Title, in.EstimatedMinutes); err != nil {
			return nil, err
		}
		tasks[i] = model.Task{
			ID:               uuid.NewString(),
			GoalID:           goalID,
			Title:            strings.TrimSpace(in.Title),
			Description:      in.Description,
			DoneDefinition:   in.DoneDefinition,
			EstimatedMinutes: in.EstimatedMinutes,
		}
	}
	for i, in := range inputs {
		for _, dep := range in.DependsOn {
			if dep < 0 || dep >= i {
				return nil, apperr.BadInput("task", tasks[i].Title, apperr.ErrInvalidDependency)
			}
			tasks[i].DependsOn = append(tasks[i].DependsOn, tasks[dep].ID)
		}
	}

	unlock := s.locks.Lock(goalKey(goalID))
	defer unlock()

	var goal *model.Goal
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		goal, err = tx.Goals.FindByID(ctx, goalID)
		if err != nil {
			return notFound(err, "goal", goalID)
		}
		maxOrder, err := tx.Tasks.MaxSortOrder(ctx, goal.ID)
		if err != nil {
			return err
		}
		for i := range tasks {
			tasks[i].SortOrder = maxOrder + 1 + i
			if err := tx.Tasks.Create(ctx, &tasks[i]); err != nil {
				return err
			}
		}
		_, err = s.progress.Recompute(ctx, tx, goal)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.milestones.Observe(goal)
	s.log.WithGoal(goalID).Info("goal breakdown stored", "tasks", len(tasks))
	return tasks, nil
}

func (s *TaskService) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	task, err := s.store.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, notFound(err, "task", taskID)
	}
	return task, nil
}

// ListTasks returns the active tasks of an active goal in sort order.
func (s *TaskService) ListTasks(ctx context.Context, goalID string) ([]model.Task, error) {
	if _, err := s.store.Goals.FindByID(ctx, goalID); err != nil {
		return nil, notFound(err, "goal", goalID)
	}
	return s.store.Tasks.ListByGoal(ctx, goalID)
}

// GetNextTask answers which task of goalID to work on next.
func (s *TaskService) GetNextTask(ctx context.Context, goalID string) (NextTask, error) {
	if _, err := s.store.Goals.FindByID(ctx, goalID); err != nil {
		return NextTask{}, notFound(err, "goal", goalID)
	}
	tasks, err := s.store.Tasks.ListByGoal(ctx, goalID)
	if err != nil {
		return NextTask{}, err
	}
	return SelectNext(tasks), nil
}

// SetDependencies replaces the dependency set of a task.
func (s *TaskService) SetDependencies(ctx context.Context, taskID string, dependsOn []string) (*model.Task, error) {
	current, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(goalKey(current.GoalID))
	defer unlock()

	var task *model.Task
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		task, err = tx.Tasks.FindByID(ctx, taskID)
		if err != nil {
			return notFound(err, "task", taskID)
		}
		siblings, err := tx.Tasks.ListByGoal(ctx, task.GoalID)
		if err != nil {
			return err
		}
		deps, err := ValidateDependencies(siblings, task.ID, dependsOn)
		if err != nil {
			return err
		}
		return tx.Tasks.SetDependencies(ctx, task, deps)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Schedule sets or, with all nil arguments, clears a task's schedule.
func (s *TaskService) Schedule(ctx context.Context, taskID string, date, start *string, duration *int) (*model.Task, error) {
	if date != nil {
		if _, err := time.Parse(DateLayout, *date); err != nil {
			return nil, apperr.BadInput("schedule", *date, apperr.New("date must be YYYY-MM-DD"))
		}
	}
	if start != nil {
		if _, err := time.Parse("15:04", *start); err != nil {
			return nil, apperr.BadInput("schedule", *start, apperr.New("start must be HH:MM"))
		}
	}
	if duration != nil && *duration <= 0 {
		return nil, apperr.BadInput("schedule", taskID, apperr.New("duration must be positive"))
	}

	current, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(goalKey(current.GoalID))
	defer unlock()

	var task *model.Task
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		task, err = tx.Tasks.FindByID(ctx, taskID)
		if err != nil {
			return notFound(err, "task", taskID)
		}
		return tx.Tasks.SetSchedule(ctx, task, date, start, duration)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateStatus moves a task to status. Moving to completed goes through
// CompleteTask; leaving completed clears completedAt but never reopens
// the goal.
func (s *TaskService) UpdateStatus(ctx context.Context, taskID string, status model.TaskStatus) (*StatusChange, error) {
	if !status.Valid() {
		return nil, apperr.BadInput("status", string(status), apperr.New("unknown task status"))
	}
	if status == model.TaskCompleted {
		outcome, err := s.CompleteTask(ctx, taskID)
		if err != nil {
			return nil, err
		}
		return &StatusChange{
			Task:         outcome.CompletedTask,
			GoalProgress: outcome.GoalProgress,
			Milestone:    outcome.Milestone,
			Completion:   outcome,
		}, nil
	}

	current, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(goalKey(current.GoalID))
	defer unlock()

	change := &StatusChange{}
	var goal *model.Goal
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		task, err := tx.Tasks.FindByID(ctx, taskID)
		if err != nil {
			return notFound(err, "task", taskID)
		}
		if err := tx.Tasks.SetStatus(ctx, task, status, nil); err != nil {
			return err
		}
		goal, err = tx.Goals.FindByID(ctx, task.GoalID)
		if err != nil {
			return notFound(err, "goal", task.GoalID)
		}
		change.Task = task
		change.GoalProgress, err = s.progress.Recompute(ctx, tx, goal)
		return err
	})
	if err != nil {
		return nil, err
	}

	change.Milestone = s.milestones.Observe(goal)
	return change, nil
}

// CompleteTask marks a task completed and, in the same transaction,
// recomputes goal progress, advances the user's streak and bumps today's
// progress record. Milestone memory and the reinforcement message are
// updated only after commit.
func (s *TaskService) CompleteTask(ctx context.Context, taskID string) (*CompletionOutcome, error) {
	current, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	owner, err := s.store.Goals.FindByID(ctx, current.GoalID)
	if err != nil {
		return nil, notFound(err, "goal", current.GoalID)
	}
	unlock := s.locks.Lock(goalKey(owner.ID), userKey(owner.UserID))
	defer unlock()

	out := &CompletionOutcome{}
	var goal *model.Goal
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		task, err := tx.Tasks.FindByID(ctx, taskID)
		if err != nil {
			return notFound(err, "task", taskID)
		}
		if task.Status == model.TaskCompleted {
			return apperr.InvalidTransition("task", taskID, apperr.ErrAlreadyCompleted)
		}
		goal, err = tx.Goals.FindByID(ctx, task.GoalID)
		if err != nil {
			return notFound(err, "goal", task.GoalID)
		}
		user, err := tx.Users.FindByID(ctx, goal.UserID)
		if err != nil {
			return missingUser(err, goal.UserID)
		}

		now := s.clock.Now()
		if err := tx.Tasks.SetStatus(ctx, task, model.TaskCompleted, &now); err != nil {
			return err
		}
		wasCompleted := goal.Status == model.GoalCompleted
		progress, err := s.progress.Recompute(ctx, tx, goal)
		if err != nil {
			return err
		}
		streak, err := s.streaks.Record(ctx, tx, user)
		if err != nil {
			return err
		}
		if err := tx.Progress.RecordCompletion(ctx, user.ID, s.clock.Today(), progress > 0); err != nil {
			return err
		}
		remaining, err := tx.Tasks.ListByGoal(ctx, goal.ID)
		if err != nil {
			return err
		}

		out.CompletedTask = task
		out.GoalProgress = progress
		out.GoalCompleted = !wasCompleted && goal.Status == model.GoalCompleted
		out.Streak = streak
		out.Next = SelectNext(remaining)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out.Milestone = s.milestones.Observe(goal)
	out.Reinforcement = s.reinforcer.ForCompletion(out.GoalProgress, out.Milestone, out.Streak)

	s.log.WithUser(owner.UserID).WithGoal(owner.ID).Info("task completed",
		"task_id", taskID,
		"progress", out.GoalProgress,
		"milestone", int(out.Milestone),
		"streak", out.Streak.Current,
	)
	return out, nil
}
