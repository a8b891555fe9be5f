// Package db provides database persistence for tasksync.
//
// The same task schema is used by two stores:
//   - Local (.tasksync/tasks.db): SQLite mirror of the remote
//   - Remote: PostgreSQL, the source of truth shared between clients
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/randalmurphal/tasksync/internal/db/driver"
)

//go:embed schema
var schemaFS embed.FS

// schemaType is the migration prefix for the task schema.
const schemaType = "tasks"

// embedFSAdapter wraps embed.FS to implement driver.SchemaFS.
type embedFSAdapter struct {
	fs embed.FS
}

func (e *embedFSAdapter) ReadDir(name string) ([]driver.DirEntry, error) {
	entries, err := e.fs.ReadDir(name)
	if err != nil {
		return nil, err
	}
	result := make([]driver.DirEntry, len(entries))
	for i, entry := range entries {
		result[i] = dirEntryAdapter{entry}
	}
	return result, nil
}

func (e *embedFSAdapter) ReadFile(name string) ([]byte, error) {
	return e.fs.ReadFile(name)
}

type dirEntryAdapter struct {
	fs.DirEntry
}

// DB wraps a database connection with driver abstraction.
type DB struct {
	driver driver.Driver
	path   string
}

// Option configures how a database is opened.
type Option func(driver.Driver)

// WithPoolMax caps the number of open connections for Postgres.
func WithPoolMax(n int) Option {
	return func(d driver.Driver) {
		if pg, ok := d.(*driver.PostgresDriver); ok {
			pg.SetPoolMax(n)
		}
	}
}

// Open opens a SQLite task store at the given path and applies migrations.
// Creates the parent directory if it doesn't exist.
func Open(path string) (*DB, error) {
	return OpenWithDialect(path, driver.DialectSQLite)
}

// OpenInMemory opens an in-memory SQLite task store.
// Each call creates a new isolated database.
func OpenInMemory() (*DB, error) {
	drv, err := driver.New(driver.DialectSQLite)
	if err != nil {
		return nil, err
	}

	if err := drv.Open(":memory:"); err != nil {
		return nil, err
	}

	d := &DB{driver: drv, path: ":memory:"}
	if err := d.Migrate(context.Background()); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

// OpenWithDialect opens a task store with a specific dialect and applies
// migrations. For SQLite, dsn is the file path. For PostgreSQL, dsn is the
// connection string.
func OpenWithDialect(dsn string, dialect driver.Dialect, opts ...Option) (*DB, error) {
	if dialect == driver.DialectSQLite {
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	drv, err := driver.New(dialect)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(drv)
	}

	if err := drv.Open(dsn); err != nil {
		return nil, err
	}

	d := &DB{driver: drv, path: dsn}
	if err := d.Migrate(context.Background()); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.driver.Close()
}

// Path returns the database DSN/path.
func (d *DB) Path() string {
	return d.path
}

// DB returns the underlying sql.DB for advanced operations.
func (d *DB) DB() *sql.DB {
	return d.driver.DB()
}

// Driver returns the underlying driver for dialect-specific operations.
func (d *DB) Driver() driver.Driver {
	return d.driver
}

// Dialect returns the database dialect.
func (d *DB) Dialect() driver.Dialect {
	return d.driver.Dialect()
}

// Ping checks that the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.driver.Ping(ctx)
}

// Migrate applies pending task schema migrations.
func (d *DB) Migrate(ctx context.Context) error {
	adapter := &embedFSAdapter{fs: schemaFS}
	if err := d.driver.Migrate(ctx, adapter, schemaType); err != nil {
		return fmt.Errorf("migrate %s db: %w", d.driver.Dialect(), err)
	}
	return nil
}

// rebind adapts a ?-placeholder query to the database dialect.
func (d *DB) rebind(query string) string {
	return driver.Rebind(d.driver, query)
}
