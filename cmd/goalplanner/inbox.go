package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"goal-planner/internal/input"
	"goal-planner/internal/model"
)

func inboxCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Capture notes and turn them into goals or tasks",
	}
	cmd.AddCommand(inboxAddCmd(a))
	cmd.AddCommand(inboxListCmd(a))

	cmd.AddCommand(&cobra.Command{
		Use:   "count <user-id>",
		Short: "Count notes waiting in the inbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := input.ID("user", args[0])
			if err != nil {
				return err
			}
			n, err := a.engine.Inbox.Count(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reorder <user-id> <item-id>...",
		Short: "Put inbox notes in the given order",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := input.ID("user", args[0])
			if err != nil {
				return err
			}
			itemIDs, err := input.IDs("inbox item", args[1:])
			if err != nil {
				return err
			}
			if err := a.engine.Inbox.Reorder(cmd.Context(), userID, itemIDs); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Inbox reordered")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "to-task <item-id> <goal-id>",
		Short: "Turn a note into a task of a goal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := input.ID("inbox item", args[0])
			if err != nil {
				return err
			}
			goalID, err := input.ID("goal", args[1])
			if err != nil {
				return err
			}
			task, err := a.engine.Inbox.ConvertToTask(cmd.Context(), itemID, goalID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), task.ID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "to-subtask <item-id> <parent-task-id>",
		Short: "Turn a note into a subtask of a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := input.ID("inbox item", args[0])
			if err != nil {
				return err
			}
			parentID, err := input.ID("task", args[1])
			if err != nil {
				return err
			}
			task, err := a.engine.Inbox.ConvertToSubtask(cmd.Context(), itemID, parentID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), task.ID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "to-goal <item-id>",
		Short: "Turn a note into a new goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := input.ID("inbox item", args[0])
			if err != nil {
				return err
			}
			goal, err := a.engine.Inbox.ConvertToGoal(cmd.Context(), itemID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), goal.ID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <item-id>",
		Short: "Delete a note (undo within 30s)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := input.ID("inbox item", args[0])
			if err != nil {
				return err
			}
			if _, err := a.engine.Deletes.SoftDeleteInboxItem(cmd.Context(), itemID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Note deleted; undo with: inbox undo %s\n", itemID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "undo <item-id>",
		Short: "Restore a deleted note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := input.ID("inbox item", args[0])
			if err != nil {
				return err
			}
			item, err := a.engine.Deletes.UndoDeleteInboxItem(cmd.Context(), itemID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored: %s\n", item.Title)
			return nil
		},
	})

	return cmd
}

func inboxAddCmd(a *app) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "add <user-id> <title>",
		Short: "Capture a note and print its id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := input.ID("user", args[0])
			if err != nil {
				return err
			}
			title, err := input.Title("inbox item", args[1])
			if err != nil {
				return err
			}
			item, err := a.engine.Inbox.Capture(cmd.Context(), userID, title, description)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), item.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "details")
	return cmd
}

func inboxListCmd(a *app) *cobra.Command {
	var assigned bool
	cmd := &cobra.Command{
		Use:   "list <user-id>",
		Short: "List inbox notes in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := input.ID("user", args[0])
			if err != nil {
				return err
			}
			status := model.InboxUnprocessed
			if assigned {
				status = model.InboxAssigned
			}
			items, err := a.engine.Inbox.List(cmd.Context(), userID, status)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(w, "Inbox is empty")
			}
			for _, item := range items {
				printInboxItem(w, item)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&assigned, "assigned", false, "list notes already turned into goals or tasks")
	return cmd
}

func printInboxItem(w io.Writer, item model.InboxItem) {
	fmt.Fprintf(w, "%s  %s", item.ID, item.Title)
	if item.AssignedTaskID != nil {
		fmt.Fprintf(w, "  -> task %s", *item.AssignedTaskID)
	} else if item.AssignedGoalID != nil {
		fmt.Fprintf(w, "  -> goal %s", *item.AssignedGoalID)
	}
	fmt.Fprintln(w)
}
