package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"goal-planner/internal/input"
	"goal-planner/internal/model"
)

func planCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan the day",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "start <user-id>",
		Short: "Start today's plan, or show it if it exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := input.ID("user", args[0])
			if err != nil {
				return err
			}
			start, err := a.engine.Plans.Start(cmd.Context(), userID)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			p := start.Plan
			fmt.Fprintf(w, "Plan %s for %s [%s]: %d task(s), %d/%d min\n",
				p.ID, p.Date, p.Status, len(p.SelectedTaskIDs), p.TotalEstimatedMinutes, p.FocusThresholdMinutes)
			if len(start.YesterdayUnfinished) > 0 {
				fmt.Fprintln(w, "Unfinished yesterday:")
				for _, t := range start.YesterdayUnfinished {
					fmt.Fprintf(w, "  %s  %s (%s)  %d min\n", t.ID, t.Title, t.GoalTitle, t.EstimatedMinutes)
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "select <user-id> [task-id...]",
		Short: "Replace the tasks selected for today",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := a.todayPlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			taskIDs, err := input.IDs("task", args[1:])
			if err != nil {
				return err
			}
			res, err := a.engine.Plans.UpdateSelections(cmd.Context(), plan.ID, taskIDs)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%d of %d min\n", res.TotalMinutes, res.ThresholdMinutes)
			if res.IsOvercommitted {
				fmt.Fprintf(w, "Overcommitted by %d min\n", res.OvercommittedByMinutes)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "confirm <user-id>",
		Short: "Confirm today's plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := a.todayPlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res, err := a.engine.Plans.Confirm(cmd.Context(), plan.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Confirmed %d task(s), %d min\n", res.ConfirmedTaskCount, res.TotalEstimatedMinutes)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "skip <user-id>",
		Short: "Skip planning today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := a.todayPlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if _, err := a.engine.Plans.Skip(cmd.Context(), plan.ID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Skipped")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "yesterday <user-id>",
		Short: "List tasks scheduled yesterday that are not done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := input.ID("user", args[0])
			if err != nil {
				return err
			}
			tasks, err := a.engine.Plans.YesterdayUnfinished(cmd.Context(), userID)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintln(w, "Nothing left over")
			}
			for _, t := range tasks {
				fmt.Fprintf(w, "%s  %s (%s)  %d min\n", t.ID, t.Title, t.GoalTitle, t.EstimatedMinutes)
			}
			return nil
		},
	})

	return cmd
}

func (a *app) todayPlan(ctx context.Context, rawUserID string) (*model.DailyPlan, error) {
	userID, err := input.ID("user", rawUserID)
	if err != nil {
		return nil, err
	}
	return a.engine.Plans.Today(ctx, userID)
}
