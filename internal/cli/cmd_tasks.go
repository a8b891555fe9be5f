package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/tasksync/internal/events"
	"github.com/randalmurphal/tasksync/internal/task"
)

// newShowCmd creates the show command
func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show task details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, events.NewNopPublisher())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			t, err := resolveTask(cmd.Context(), a.repo, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return printJSON(out, t)
			}

			st := newStyles(out)
			fmt.Fprintf(out, "%s %s\n", statusIcon(t), st.Header.Render(t.TitleForList()))
			fmt.Fprintf(out, "  ID:     %s\n", t.ID)
			fmt.Fprintf(out, "  Status: %s\n", t.Status())
			if t.Description != "" && t.Title != "" {
				fmt.Fprintln(out)
				for _, line := range strings.Split(t.Description, "\n") {
					fmt.Fprintln(out, "  "+st.Subtle.Render(line))
				}
			}
			return nil
		},
	}
}

// newNewCmd creates the new command
func newNewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new <title>",
		Short: "Create a task",
		Long: `Create a task and write it to both stores.

Examples:
  tasksync new "Buy milk"
  tasksync new "Buy milk" -d "2 litres, semi-skimmed"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description, _ := cmd.Flags().GetString("description")

			t := task.New(args[0], description)
			if t.IsEmpty() {
				return fmt.Errorf("title or description is required")
			}

			a, err := openApp(cmd, events.NewNopPublisher())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			out := cmd.OutOrStdout()
			err = a.repo.SaveTask(cmd.Context(), t)
			if jsonOut && err == nil {
				return printJSON(out, t)
			}
			return reportWrite(out, newStyles(out), fmt.Sprintf("Created task %s", t.ID), err)
		},
	}

	cmd.Flags().StringP("description", "d", "", "Task description")

	return cmd
}

// newCompleteCmd creates the complete command
func newCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <task-id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, events.NewNopPublisher())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			t, err := resolveTask(cmd.Context(), a.repo, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			err = a.repo.CompleteTask(cmd.Context(), t)
			return reportWrite(out, newStyles(out), fmt.Sprintf("Completed task %s", t.ID), err)
		},
	}
}

// newActivateCmd creates the activate command
func newActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "activate <task-id>",
		Aliases: []string{"reopen"},
		Short:   "Mark a task active again",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, events.NewNopPublisher())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			t, err := resolveTask(cmd.Context(), a.repo, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			err = a.repo.ActivateTask(cmd.Context(), t)
			return reportWrite(out, newStyles(out), fmt.Sprintf("Activated task %s", t.ID), err)
		},
	}
}

// newDeleteCmd creates the delete command
func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete [task-id]",
		Aliases: []string{"rm"},
		Short:   "Delete a task, or every task with --all",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			if all == (len(args) == 1) {
				return fmt.Errorf("specify either a task id or --all")
			}

			a, err := openApp(cmd, events.NewNopPublisher())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			out := cmd.OutOrStdout()
			st := newStyles(out)
			if all {
				err = a.repo.DeleteAllTasks(cmd.Context())
				return reportWrite(out, st, "Deleted all tasks", err)
			}
			err = a.repo.DeleteTask(cmd.Context(), args[0])
			return reportWrite(out, st, fmt.Sprintf("Deleted task %s", args[0]), err)
		},
	}

	cmd.Flags().Bool("all", false, "Delete every task")

	return cmd
}

// newClearCompletedCmd creates the clear-completed command
func newClearCompletedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-completed",
		Short: "Delete all completed tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, events.NewNopPublisher())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			out := cmd.OutOrStdout()
			err = a.repo.ClearCompletedTasks(cmd.Context())
			return reportWrite(out, newStyles(out), "Cleared completed tasks", err)
		},
	}
}
