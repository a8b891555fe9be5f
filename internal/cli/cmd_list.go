package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/tasksync/internal/events"
	"github.com/randalmurphal/tasksync/internal/task"
)

// newListCmd creates the list command
func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Long: `List tasks. The list is read from the remote store and mirrored
into the local store.

Example:
  tasksync list
  tasksync list --active
  tasksync list --completed --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			status := task.Status("")
			if active, _ := cmd.Flags().GetBool("active"); active {
				status = task.StatusActive
			}
			if completed, _ := cmd.Flags().GetBool("completed"); completed {
				status = task.StatusCompleted
			}

			a, err := openApp(cmd, events.NewNopPublisher())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			tasks, err := a.repo.ListTasks(cmd.Context())
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}
			tasks = task.FilterByStatus(tasks, status)

			out := cmd.OutOrStdout()
			if jsonOut {
				if tasks == nil {
					tasks = []task.Task{}
				}
				return printJSON(out, tasks)
			}

			if len(tasks) == 0 {
				fmt.Fprintln(out, "No tasks found. Create one with: tasksync new \"Your task\"")
				return nil
			}

			st := newStyles(out)
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tTITLE")
			fmt.Fprintln(w, "──\t──────\t─────")
			for _, t := range tasks {
				title := truncate(t.TitleForList(), 60)
				if t.IsCompleted() {
					title = st.Completed.Render(title)
				} else {
					title = st.Active.Render(title)
				}
				fmt.Fprintf(w, "%s\t%s %s\t%s\n", t.ID, statusIcon(t), t.Status(), title)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Bool("all", false, "Show all tasks (default)")
	cmd.Flags().BoolP("active", "a", false, "Show only active tasks")
	cmd.Flags().BoolP("completed", "c", false, "Show only completed tasks")
	cmd.MarkFlagsMutuallyExclusive("all", "active", "completed")

	return cmd
}
