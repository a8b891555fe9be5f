// Package cli implements the tasksync command-line interface.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/randalmurphal/tasksync/internal/config"
)

// Version is the tasksync version.
var Version = "0.1.0-dev"

var (
	cfgFile string
	verbose bool
	quiet   bool
	jsonOut bool
	noColor bool
)

// flagBindings maps persistent flags to the config paths they override.
var flagBindings = map[string]string{
	"log-level":     "log.level",
	"log-format":    "log.format",
	"remote-driver": "remote.driver",
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasksync",
		Short: "Task list kept in sync between a local store and a remote store",
		Long: `tasksync keeps a task list in sync between a local SQLite mirror and a
remote source of truth (PostgreSQL, SQLite or in-memory).

Lists are served from an in-memory cache. A refresh reads the remote
store and mirrors it into the local store. Writes go to both stores.

Quick start:
  tasksync init                    Initialize tasksync in current directory
  tasksync new "Buy milk"          Create a task
  tasksync list                    List tasks
  tasksync complete <id>           Mark a task completed
  tasksync serve                   Start the HTTP/WebSocket API`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initConfig()
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is .tasksync/config.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	pf.BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	pf.BoolVar(&jsonOut, "json", false, "output as JSON")
	pf.BoolVar(&noColor, "no-color", false, "disable colored output")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-format", "", "log format (text, json)")
	pf.String("remote-driver", "", "remote store driver (postgres, sqlite, memory)")

	for flag, key := range flagBindings {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newNewCmd())
	cmd.AddCommand(newCompleteCmd())
	cmd.AddCommand(newActivateCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newClearCompletedCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and prints any error.
func Execute() error {
	err := newRootCmd().Execute()
	if err != nil {
		PrintError(err)
	}
	return err
}

// initConfig points viper at the config file and TASKSYNC_* environment.
// The typed config is still built by internal/config; viper contributes
// flag values on top of it.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(config.Dir)
		viper.AddConfigPath(filepath.Join("$HOME", config.Dir))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("TASKSYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// loadConfig loads the layered config and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.TrackedConfig, error) {
	var (
		tc  *config.TrackedConfig
		err error
	)
	if cfgFile != "" {
		tc, err = config.LoadWithSourcesFile(cfgFile)
	} else {
		tc, err = config.LoadWithSources()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	for flag, key := range flagBindings {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if !config.ApplyFlag(tc, key, viper.GetString(key)) {
			return nil, fmt.Errorf("invalid --%s value %q", flag, f.Value.String())
		}
	}

	if err := tc.Config.Validate(); err != nil {
		return nil, err
	}
	return tc, nil
}
