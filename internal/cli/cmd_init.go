package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/tasksync/internal/config"
	"github.com/randalmurphal/tasksync/internal/events"
)

// newInitCmd creates the init command
func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize tasksync in current directory",
		Long: `Initialize tasksync in the current directory.

Creates .tasksync/config.yaml with default settings and opens both stores
so their schemas are in place.

Examples:
  tasksync init            # Create .tasksync/
  tasksync init --force    # Overwrite existing configuration`,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")

			if err := config.Init(force); err != nil {
				return err
			}

			a, err := openApp(cmd, events.NewNopPublisher())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if !quiet {
				st := newStyles(cmd.OutOrStdout())
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, st.Success.Render("Initialized tasksync in "+config.Dir+"/"))
				fmt.Fprintf(out, "  config: %s\n", filepath.Join(config.Dir, config.ConfigFileName))
				fmt.Fprintf(out, "  local:  %s\n", a.cfg.Local.Path)
				fmt.Fprintf(out, "  remote: %s\n", a.cfg.Remote.Driver)
			}
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "Overwrite existing configuration")

	return cmd
}
