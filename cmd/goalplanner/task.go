package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"goal-planner/internal/input"
	"goal-planner/internal/model"
	"goal-planner/internal/service"
)

func taskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	cmd.AddCommand(taskAddCmd(a))
	cmd.AddCommand(taskScheduleCmd(a))

	cmd.AddCommand(&cobra.Command{
		Use:   "list <goal-id>",
		Short: "List a goal's tasks in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goalID, err := input.ID("goal", args[0])
			if err != nil {
				return err
			}
			tasks, err := a.engine.Tasks.ListTasks(cmd.Context(), goalID)
			if err != nil {
				return err
			}
			for _, t := range tasks {
				printTask(cmd.OutOrStdout(), t)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "next <goal-id>",
		Short: "Show the next task whose dependencies are done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goalID, err := input.ID("goal", args[0])
			if err != nil {
				return err
			}
			next, err := a.engine.Tasks.GetNextTask(cmd.Context(), goalID)
			if err != nil {
				return err
			}
			printNext(cmd.OutOrStdout(), next)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "done <task-id>",
		Short: "Complete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := input.ID("task", args[0])
			if err != nil {
				return err
			}
			out, err := a.engine.Tasks.CompleteTask(cmd.Context(), taskID)
			if err != nil {
				return err
			}
			printCompletion(cmd.OutOrStdout(), out)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status <task-id> <pending|in_progress|completed|skipped>",
		Short: "Change a task's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := input.ID("task", args[0])
			if err != nil {
				return err
			}
			change, err := a.engine.Tasks.UpdateStatus(cmd.Context(), taskID, model.TaskStatus(args[1]))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if change.Completion != nil {
				printCompletion(w, change.Completion)
				return nil
			}
			fmt.Fprintf(w, "Task is %s; goal at %d%%\n", change.Task.Status, change.GoalProgress)
			printMilestone(w, change.Milestone)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "deps <task-id> [depends-on-id...]",
		Short: "Replace a task's dependencies; none clears them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := input.ID("task", args[0])
			if err != nil {
				return err
			}
			deps, err := input.IDs("task", args[1:])
			if err != nil {
				return err
			}
			task, err := a.engine.Tasks.SetDependencies(cmd.Context(), taskID, deps)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task depends on %d task(s)\n", len(task.DependsOn))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task and its direct dependents (undo within 30s)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := input.ID("task", args[0])
			if err != nil {
				return err
			}
			res, err := a.engine.Deletes.SoftDeleteTask(cmd.Context(), taskID)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Task deleted with %d dependent(s); goal at %d%%\n", len(res.CascadeDeletedIDs), res.GoalProgress)
			printMilestone(w, res.Milestone)
			fmt.Fprintf(w, "Undo with: task undo %s\n", taskID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "undo <task-id>",
		Short: "Restore a deleted task and the dependents deleted with it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := input.ID("task", args[0])
			if err != nil {
				return err
			}
			res, err := a.engine.Deletes.UndoDeleteTask(cmd.Context(), taskID)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Restored %d task(s); goal at %d%%\n", len(res.RestoredTaskIDs), res.GoalProgress)
			printMilestone(w, res.Milestone)
			return nil
		},
	})

	return cmd
}

func taskAddCmd(a *app) *cobra.Command {
	var (
		minutes        int
		dependsOn      []string
		description    string
		doneDefinition string
		parent         string
	)
	cmd := &cobra.Command{
		Use:   "add <goal-id> <title>",
		Short: "Add a task to a goal and print its id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			goalID, err := input.ID("goal", args[0])
			if err != nil {
				return err
			}
			title, err := input.Title("task", args[1])
			if err != nil {
				return err
			}
			if err := input.Minutes("task", minutes); err != nil {
				return err
			}
			deps, err := input.IDs("task", dependsOn)
			if err != nil {
				return err
			}
			in := service.TaskInput{
				GoalID:           goalID,
				Title:            title,
				Description:      description,
				DoneDefinition:   doneDefinition,
				EstimatedMinutes: minutes,
				DependsOn:        deps,
			}
			if parent != "" {
				parentID, err := input.ID("task", parent)
				if err != nil {
					return err
				}
				in.ParentTaskID = &parentID
			}

			task, err := a.engine.Tasks.CreateTask(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), task.ID)
			return nil
		},
	}
	cmd.Flags().IntVarP(&minutes, "minutes", "m", 30, "estimated minutes (5-480)")
	cmd.Flags().StringSliceVar(&dependsOn, "depends", nil, "ids of tasks that must be done first")
	cmd.Flags().StringVar(&description, "description", "", "task description")
	cmd.Flags().StringVar(&doneDefinition, "done", "", "what done looks like")
	cmd.Flags().StringVar(&parent, "parent", "", "parent task id")
	return cmd
}

func taskScheduleCmd(a *app) *cobra.Command {
	var (
		date, start string
		duration    int
		unset       bool
	)
	cmd := &cobra.Command{
		Use:   "schedule <task-id>",
		Short: "Put a task on the calendar, or clear it with --clear",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := input.ID("task", args[0])
			if err != nil {
				return err
			}
			var datePtr, startPtr *string
			var durationPtr *int
			if !unset {
				d, err := input.Date(date)
				if err != nil {
					return err
				}
				datePtr = &d
				if start != "" {
					s, err := input.Clock(start)
					if err != nil {
						return err
					}
					startPtr = &s
				}
				if cmd.Flags().Changed("duration") {
					durationPtr = &duration
				}
			}
			task, err := a.engine.Tasks.Schedule(cmd.Context(), taskID, datePtr, startPtr, durationPtr)
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), *task)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD")
	cmd.Flags().StringVar(&start, "start", "", "start time as HH:MM")
	cmd.Flags().IntVar(&duration, "duration", 0, "scheduled minutes")
	cmd.Flags().BoolVar(&unset, "clear", false, "remove the schedule")
	return cmd
}

func printNext(w io.Writer, next service.NextTask) {
	switch {
	case next.Task != nil:
		fmt.Fprintf(w, "Next (%d/%d): %s  %d min  %s\n",
			next.Position, next.TotalTasks, next.Task.Title, next.Task.EstimatedMinutes, next.Task.ID)
	case next.Starved():
		fmt.Fprintf(w, "%d task(s) blocked by unfinished dependencies\n", next.Blocked)
	default:
		fmt.Fprintf(w, "Nothing left; goal at %d%%\n", next.GoalProgress)
	}
}

func printCompletion(w io.Writer, out *service.CompletionOutcome) {
	fmt.Fprintf(w, "Done: %s\n", out.CompletedTask.Title)
	if out.Reinforcement.Message != "" {
		fmt.Fprintln(w, out.Reinforcement.Message)
	}
	fmt.Fprintf(w, "Goal at %d%%\n", out.GoalProgress)
	printMilestone(w, out.Milestone)
	if out.Streak.Current > 0 {
		fmt.Fprintf(w, "Streak: %d day(s) (best %d)\n", out.Streak.Current, out.Streak.Longest)
	}
	if out.GoalCompleted {
		fmt.Fprintln(w, "Goal completed!")
		return
	}
	printNext(w, out.Next)
}

func printMilestone(w io.Writer, m service.Milestone) {
	if m != service.NoMilestone {
		fmt.Fprintf(w, "Milestone reached: %d%%\n", m)
	}
}
