package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"goal-planner/internal/input"
)

func userCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Create a user and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.engine.Users.CreateUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), user.ID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users with their streaks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.engine.Users.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, u := range users {
				fmt.Fprintf(w, "%s  %s  streak %d (best %d)\n", u.ID, u.Name, u.CurrentStreak, u.LongestStreak)
			}
			return nil
		},
	})

	return cmd
}

func historyCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "history <user-id>",
		Short: "Show completed work per day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := input.ID("user", args[0])
			if err != nil {
				return err
			}
			h, err := a.engine.History.History(cmd.Context(), userID, days)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Last %d day(s): %d task(s), %.1f per day\n", h.Days, h.TotalTasksCompleted, h.AverageTasksPerDay)
			fmt.Fprintf(w, "Goals completed: %d\n", h.GoalsCompleted)
			fmt.Fprintf(w, "Streak: %d (best %d)\n", h.CurrentStreak, h.LongestStreak)
			for _, r := range h.Records {
				fmt.Fprintf(w, "  %s  %d task(s), %d goal step(s)\n", r.Date, r.TasksCompleted, r.GoalsAdvanced)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 7, "number of days to include")
	return cmd
}

func purgeCmd(a *app) *cobra.Command {
	var age time.Duration
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Permanently remove tombstones older than the undo window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("age") {
				age = a.cfg.PurgeAge
			}
			res, err := a.engine.Deletes.PurgeExpired(cmd.Context(), age)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d task(s), %d goal(s) and %d inbox item(s)\n", res.Tasks, res.Goals, res.Inbox)
			return nil
		},
	}
	cmd.Flags().DurationVar(&age, "age", 0, "minimum tombstone age (default from config)")
	return cmd
}
