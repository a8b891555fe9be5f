package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tidwall/gjson"
)

// DefaultChannel is the notification channel installed by the Postgres
// task schema.
const DefaultChannel = "tasks_changed"

// OpReconnect is reported after the listener re-establishes its connection.
// Notifications may have been missed while it was down.
const OpReconnect = "reconnect"

// Change describes one remote modification.
type Change struct {
	Op string // insert, update, delete, or reconnect
	ID string // empty for reconnect
}

// ChangeFunc is called for every remote change.
type ChangeFunc func(ctx context.Context, c Change)

// notifyConn is the subset of *pgx.Conn the listener uses.
type notifyConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

type dialFunc func(ctx context.Context, dsn string) (notifyConn, error)

func dialPgx(ctx context.Context, dsn string) (notifyConn, error) {
	return pgx.Connect(ctx, dsn)
}

// Listener holds a dedicated Postgres connection subscribed to task change
// notifications and reports each one to a callback.
type Listener struct {
	dsn        string
	channel    string
	onChange   ChangeFunc
	logger     *slog.Logger
	dial       dialFunc
	minBackoff time.Duration
	maxBackoff time.Duration
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithChannel overrides the notification channel.
func WithChannel(channel string) ListenerOption {
	return func(l *Listener) {
		if channel != "" {
			l.channel = channel
		}
	}
}

// WithListenerLogger sets the logger.
func WithListenerLogger(logger *slog.Logger) ListenerOption {
	return func(l *Listener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithBackoff sets the reconnect delay bounds.
func WithBackoff(initial, limit time.Duration) ListenerOption {
	return func(l *Listener) {
		l.minBackoff = initial
		l.maxBackoff = limit
	}
}

// NewListener creates a listener for the Postgres database at dsn.
func NewListener(dsn string, onChange ChangeFunc, opts ...ListenerOption) *Listener {
	l := &Listener{
		dsn:        dsn,
		channel:    DefaultChannel,
		onChange:   onChange,
		logger:     slog.Default(),
		dial:       dialPgx,
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run listens until ctx is cancelled, reconnecting with exponential backoff.
// It returns nil on cancellation.
func (l *Listener) Run(ctx context.Context) error {
	backoff := l.minBackoff
	connected := false

	for {
		conn, err := l.dial(ctx, l.dsn)
		if err == nil {
			if connected {
				l.onChange(ctx, Change{Op: OpReconnect})
			}
			connected = true
			backoff = l.minBackoff
			err = l.listen(ctx, conn)
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = conn.Close(closeCtx)
			cancel()
		}

		if ctx.Err() != nil {
			return nil
		}
		l.logger.Warn("remote listener disconnected", "channel", l.channel, "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, l.maxBackoff)
	}
}

func (l *Listener) listen(ctx context.Context, conn notifyConn) error {
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	l.logger.Info("listening for remote changes", "channel", l.channel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		change, ok := ParseChange(n.Payload)
		if !ok {
			l.logger.Debug("ignoring malformed notification", "payload", n.Payload)
			continue
		}
		l.logger.Debug("remote change", "op", change.Op, "id", change.ID)
		l.onChange(ctx, change)
	}
}

// ParseChange decodes a notification payload of the form
// {"op": "update", "id": "..."}.
func ParseChange(payload string) (Change, bool) {
	if !gjson.Valid(payload) {
		return Change{}, false
	}
	res := gjson.GetMany(payload, "op", "id")
	if !res[0].Exists() {
		return Change{}, false
	}
	return Change{Op: res[0].String(), ID: res[1].String()}, true
}
