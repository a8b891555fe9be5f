package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/randalmurphal/tasksync/internal/errors"
	"github.com/randalmurphal/tasksync/internal/repository"
	"github.com/randalmurphal/tasksync/internal/task"
)

// styles holds the terminal styles for command output.
type styles struct {
	Header    lipgloss.Style
	Active    lipgloss.Style
	Completed lipgloss.Style
	Subtle    lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
}

// newStyles returns colored styles when w is a terminal and color is not
// disabled, plain styles otherwise.
func newStyles(w io.Writer) styles {
	if !useColor(w) {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain}
	}
	return styles{
		Header:    lipgloss.NewStyle().Bold(true),
		Active:    lipgloss.NewStyle().Foreground(lipgloss.Color("170")),
		Completed: lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Strikethrough(true),
		Subtle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Success:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Warning:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

func useColor(w io.Writer) bool {
	if noColor {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func statusIcon(t task.Task) string {
	if t.IsCompleted() {
		return "✓"
	}
	return "○"
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// resolveTask finds a task by id. The cache is primed from remote first so
// a fresh process sees remote tasks; when remote is not available the
// lookup falls back to the local store.
func resolveTask(ctx context.Context, repo *repository.Repository, id string) (task.Task, error) {
	if _, err := repo.ListTasks(ctx); err != nil && !errors.IsNotAvailable(err) {
		return task.Task{}, err
	}

	t, err := repo.GetTask(ctx, id)
	if err != nil {
		if errors.IsNotAvailable(err) {
			return task.Task{}, errors.ErrTaskNotFound(id)
		}
		return task.Task{}, err
	}
	return t, nil
}

// reportWrite prints the outcome of a write. A write that reached only
// one store is reported as a warning together with the error.
func reportWrite(w io.Writer, st styles, msg string, err error) error {
	if err == nil {
		if !quiet {
			fmt.Fprintln(w, st.Success.Render(msg))
		}
		return nil
	}
	if !quiet {
		fmt.Fprintln(w, st.Warning.Render(msg+" (not every store accepted the change)"))
	}
	return err
}
