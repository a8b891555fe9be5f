package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/tasksync/internal/api"
	"github.com/randalmurphal/tasksync/internal/config"
	"github.com/randalmurphal/tasksync/internal/events"
	"github.com/randalmurphal/tasksync/internal/source"
)

// newServeCmd creates the serve command
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the tasksync HTTP API server.

The server keeps one repository alive, so lists are answered from the
cache until a write, a refresh, or a remote change notification.

The API provides:
  • Task CRUD under /api/tasks
  • Cache refresh via POST /api/tasks/refresh
  • A WebSocket event stream at /api/ws

With the postgres remote driver and remote.listen enabled, the server
also listens on remote.channel and refreshes the cache when another
writer changes the remote store. Notifications caused by the server's
own writes are ignored.

Example:
  tasksync serve              # Start on the configured address
  tasksync serve --port 3000  # Start on a custom port`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pub := events.NewMemoryPublisher()
			defer pub.Close()

			a, err := openApp(cmd, pub)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host, _ = cmd.Flags().GetString("host")
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr := a.cfg.Server.Addr()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}

			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s (remote: %s)\n", ln.Addr(), a.cfg.Remote.Driver)
				fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")
			}

			return a.serve(ctx, pub, ln)
		},
	}

	cmd.Flags().String("host", "", "Listen host (default from config)")
	cmd.Flags().IntP("port", "p", 0, "Listen port (default from config)")

	return cmd
}

// serve runs the API server on ln, plus the remote change listener when
// the remote can notify, until ctx is cancelled. It takes ownership of ln.
func (a *app) serve(ctx context.Context, pub events.Publisher, ln net.Listener) error {
	server := api.New(a.repo, pub, &api.Config{
		Addr:   ln.Addr().String(),
		Logger: a.logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(gctx, ln)
	})
	if l := a.remoteListener(); l != nil {
		g.Go(func() error {
			return l.Run(gctx)
		})
	}
	return g.Wait()
}

// remoteListener returns a listener that invalidates the repository
// cache on remote changes, or nil when the remote cannot notify.
func (a *app) remoteListener() *source.Listener {
	if a.cfg.Remote.Driver != config.RemoteDriverPostgres || !a.cfg.Remote.Listen {
		return nil
	}
	return source.NewListener(a.cfg.RemoteDSN(), a.onRemoteChange,
		source.WithChannel(a.cfg.Remote.Channel),
		source.WithListenerLogger(a.logger),
	)
}

// onRemoteChange marks the cache dirty unless c echoes one of this
// process's own writes, which the cache already reflects.
func (a *app) onRemoteChange(ctx context.Context, c source.Change) {
	if a.tracker != nil && a.tracker.IsEcho(c) {
		a.logger.Debug("ignoring own remote change", "op", c.Op, "id", c.ID)
		return
	}
	a.logger.Debug("invalidating cache", "op", c.Op, "id", c.ID)
	if err := a.repo.RefreshTasks(ctx); err != nil {
		a.logger.Warn("invalidate cache", "error", err)
	}
}
