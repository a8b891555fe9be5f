package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/tasksync/internal/config"
	"github.com/randalmurphal/tasksync/internal/db"
	"github.com/randalmurphal/tasksync/internal/db/driver"
	"github.com/randalmurphal/tasksync/internal/events"
	"github.com/randalmurphal/tasksync/internal/repository"
	"github.com/randalmurphal/tasksync/internal/source"
)

// app holds the stores and repository for one command invocation.
type app struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *slog.Logger

	// tracker is set when the remote can send change notifications.
	tracker *source.WriteTracker

	closers []io.Closer
}

// openApp loads config, opens both stores and builds the repository.
// The caller must Close the app.
func openApp(cmd *cobra.Command, pub events.Publisher) (*app, error) {
	if cfgFile == "" {
		if err := config.RequireInit(); err != nil {
			return nil, err
		}
	}

	tc, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	cfg := tc.Config
	logger := newLogger(cfg.Log, cmd.ErrOrStderr())

	a := &app{cfg: cfg, logger: logger}

	localDB, err := db.Open(cfg.Local.Path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	a.closers = append(a.closers, localDB)
	local := source.NewLocal(localDB, source.WithStoreLogger(logger))

	remote, err := a.openRemote(cmd.Context(), localDB)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.repo = repository.New(remote, local,
		repository.WithLogger(logger),
		repository.WithPublisher(pub),
		repository.WithColdStartRefresh(cfg.Cache.ColdStartRefresh),
	)
	return a, nil
}

// openRemote opens the remote store for the configured driver. The memory
// driver starts from the local store's tasks, so a cold-start refresh
// mirrors them back instead of clearing the local store.
func (a *app) openRemote(ctx context.Context, localDB *db.DB) (source.DataSource, error) {
	switch a.cfg.Remote.Driver {
	case config.RemoteDriverPostgres:
		remoteDB, err := db.OpenWithDialect(a.cfg.RemoteDSN(), driver.DialectPostgres,
			db.WithPoolMax(a.cfg.Remote.Postgres.PoolMax))
		if err != nil {
			return nil, fmt.Errorf("open remote store: %w", err)
		}
		a.closers = append(a.closers, remoteDB)
		remote := source.NewRemote(remoteDB, source.WithStoreLogger(a.logger))
		if !a.cfg.Remote.Listen {
			return remote, nil
		}
		a.tracker = source.NewWriteTracker(remote, 0)
		return a.tracker, nil
	case config.RemoteDriverSQLite:
		remoteDB, err := db.Open(a.cfg.Remote.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open remote store: %w", err)
		}
		a.closers = append(a.closers, remoteDB)
		return source.NewRemote(remoteDB, source.WithStoreLogger(a.logger)), nil
	case config.RemoteDriverMemory:
		if ctx == nil {
			ctx = context.Background()
		}
		tasks, err := localDB.ListTasks(ctx)
		if err != nil {
			return nil, fmt.Errorf("seed memory remote: %w", err)
		}
		m := source.NewMemory("remote")
		m.Seed(tasks...)
		a.logger.Debug("memory remote seeded from local store", "tasks", len(tasks))
		return m, nil
	default:
		return nil, fmt.Errorf("unknown remote driver %q", a.cfg.Remote.Driver)
	}
}

// Close closes every opened store.
func (a *app) Close() error {
	var firstErr error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

// newLogger builds the process logger from config.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if verbose && level > slog.LevelDebug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if w == nil {
		w = os.Stderr
	}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
