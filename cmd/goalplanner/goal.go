package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"goal-planner/internal/input"
	"goal-planner/internal/model"
	"goal-planner/internal/service"
)

func goalCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Manage goals",
	}
	cmd.AddCommand(goalAddCmd(a))
	cmd.AddCommand(goalListCmd(a))
	cmd.AddCommand(goalEditCmd(a))

	cmd.AddCommand(&cobra.Command{
		Use:   "show <goal-id>",
		Short: "Show a goal and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goalID, err := input.ID("goal", args[0])
			if err != nil {
				return err
			}
			goal, err := a.engine.Goals.GetGoal(cmd.Context(), goalID)
			if err != nil {
				return err
			}
			tasks, err := a.engine.Tasks.ListTasks(cmd.Context(), goalID)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			printGoal(w, *goal)
			for _, t := range tasks {
				printTask(w, t)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "archive <goal-id>",
		Short: "Archive a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goalID, err := input.ID("goal", args[0])
			if err != nil {
				return err
			}
			if _, err := a.engine.Goals.ArchiveGoal(cmd.Context(), goalID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Goal archived")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <goal-id>",
		Short: "Delete a goal and its tasks (undo within 30s)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goalID, err := input.ID("goal", args[0])
			if err != nil {
				return err
			}
			res, err := a.engine.Deletes.SoftDeleteGoal(cmd.Context(), goalID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Goal deleted with %d task(s); undo with: goal undo %s\n",
				len(res.CascadeDeletedTaskIDs), goalID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "undo <goal-id> [task-id...]",
		Short: "Restore a deleted goal; without task ids its deleted tasks come back too",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goalID, err := input.ID("goal", args[0])
			if err != nil {
				return err
			}
			taskIDs, err := input.IDs("task", args[1:])
			if err != nil {
				return err
			}
			res, err := a.engine.Deletes.UndoDeleteGoal(cmd.Context(), goalID, taskIDs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Goal restored with %d task(s), %d%%\n", len(res.RestoredTaskIDs), res.GoalProgress)
			return nil
		},
	})

	return cmd
}

func goalAddCmd(a *app) *cobra.Command {
	var purpose, description string
	cmd := &cobra.Command{
		Use:   "add <user-id> <title>",
		Short: "Create a goal and print its id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := input.ID("user", args[0])
			if err != nil {
				return err
			}
			title, err := input.Title("goal", args[1])
			if err != nil {
				return err
			}
			goal, err := a.engine.Goals.CreateGoal(cmd.Context(), service.GoalInput{
				UserID:      userID,
				Title:       title,
				Purpose:     purpose,
				Description: description,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), goal.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&purpose, "purpose", "", "why the goal matters")
	cmd.Flags().StringVar(&description, "description", "", "longer description")
	return cmd
}

func goalListCmd(a *app) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list <user-id>",
		Short: "List a user's goals with progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := input.ID("user", args[0])
			if err != nil {
				return err
			}
			var filter *model.GoalStatus
			if status != "" {
				s := model.GoalStatus(status)
				if !s.Valid() {
					return fmt.Errorf("unknown goal status %q", status)
				}
				filter = &s
			}
			goals, err := a.engine.Goals.ListGoals(cmd.Context(), userID, filter)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(goals) == 0 {
				fmt.Fprintln(w, "No goals")
			}
			for _, g := range goals {
				printGoal(w, g)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only goals in this status (active, completed, archived)")
	return cmd
}

func goalEditCmd(a *app) *cobra.Command {
	var title, purpose, description, status string
	var order int
	cmd := &cobra.Command{
		Use:   "edit <goal-id>",
		Short: "Rename a goal or change its status or position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goalID, err := input.ID("goal", args[0])
			if err != nil {
				return err
			}
			var update service.GoalUpdate
			flags := cmd.Flags()
			if flags.Changed("title") {
				t, err := input.Title("goal", title)
				if err != nil {
					return err
				}
				update.Title = &t
			}
			if flags.Changed("purpose") {
				update.Purpose = &purpose
			}
			if flags.Changed("description") {
				update.Description = &description
			}
			if flags.Changed("status") {
				s := model.GoalStatus(status)
				if !s.Valid() {
					return fmt.Errorf("unknown goal status %q", status)
				}
				update.Status = &s
			}
			if flags.Changed("order") {
				update.SortOrder = &order
			}
			goal, err := a.engine.Goals.UpdateGoal(cmd.Context(), goalID, update)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  [%s] %s\n", goal.ID, goal.Status, goal.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&purpose, "purpose", "", "new purpose")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&status, "status", "", "active, completed or archived")
	cmd.Flags().IntVar(&order, "order", 0, "position among the user's goals")
	return cmd
}

func printGoal(w io.Writer, g model.GoalWithCounts) {
	fmt.Fprintf(w, "%s  [%s] %s  %d%% (%d/%d)\n", g.ID, g.Status, g.Title, g.Progress, g.CompletedTaskCount, g.TaskCount)
}

func printTask(w io.Writer, t model.Task) {
	fmt.Fprintf(w, "  %s  [%s] %s  %d min", t.ID, t.Status, t.Title, t.EstimatedMinutes)
	if len(t.DependsOn) > 0 {
		fmt.Fprintf(w, "  after %d task(s)", len(t.DependsOn))
	}
	if t.ScheduledDate != nil {
		fmt.Fprintf(w, "  on %s", *t.ScheduledDate)
		if t.ScheduledStart != nil {
			fmt.Fprintf(w, " %s", *t.ScheduledStart)
		}
	}
	fmt.Fprintln(w)
}
