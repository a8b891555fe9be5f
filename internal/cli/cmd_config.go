package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/tasksync/internal/config"
)

// newConfigCmd creates the config command with subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View configuration",
		Long: `View tasksync configuration.

Configuration is loaded from multiple sources with this priority:
  1. CLI flags (--log-level, --log-format, --remote-driver)
  2. Environment variables (TASKSYNC_*)
  3. Project: .tasksync/config.yaml
  4. User: ~/.tasksync/config.yaml
  5. Defaults: Built-in values

Examples:
  tasksync config show            # Show merged config as YAML
  tasksync config show --source   # Show where each overridden value came from
  tasksync config env             # List supported environment variables`,
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigEnvCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show merged configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			showSource, _ := cmd.Flags().GetBool("source")

			tc, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if showSource {
				keys := make([]string, 0, len(tc.Sources))
				for k := range tc.Sources {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				if len(keys) == 0 {
					fmt.Fprintln(out, "All values are defaults.")
					return nil
				}
				for _, k := range keys {
					fmt.Fprintf(out, "%s = %s\n", k, tc.GetTrackedSource(k))
				}
				return nil
			}

			// Keep the password out of terminal output.
			shown := *tc.Config
			if shown.Remote.Postgres.Password != "" {
				shown.Remote.Postgres.Password = "********"
			}
			if jsonOut {
				return printJSON(out, &shown)
			}

			data, err := yaml.Marshal(&shown)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = out.Write(data)
			return err
		},
	}

	cmd.Flags().Bool("source", false, "Show the source of each overridden value")

	return cmd
}

func newConfigEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "List supported environment variables",
		RunE: func(cmd *cobra.Command, args []string) error {
			vars := make([]string, 0, len(config.EnvVarMapping))
			for v := range config.EnvVarMapping {
				vars = append(vars, v)
			}
			sort.Strings(vars)

			out := cmd.OutOrStdout()
			for _, v := range vars {
				fmt.Fprintf(out, "%-28s %s\n", v, config.EnvVarMapping[v])
			}
			return nil
		},
	}
}
