// Package config provides configuration management for tasksync.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/tasksync/internal/errors"
)

const (
	// Dir is the project directory name.
	Dir = ".tasksync"
	// ConfigFileName is the config file name inside Dir.
	ConfigFileName = "config.yaml"
)

// Remote drivers.
const (
	RemoteDriverPostgres = "postgres"
	RemoteDriverSQLite   = "sqlite"
	RemoteDriverMemory   = "memory"
)

// Config represents the tasksync configuration.
type Config struct {
	Version int `yaml:"version"`

	Cache  CacheConfig  `yaml:"cache"`
	Local  LocalConfig  `yaml:"local"`
	Remote RemoteConfig `yaml:"remote"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// CacheConfig controls the repository cache.
type CacheConfig struct {
	// ColdStartRefresh fetches remote on the first list of a process.
	// When false, an unpopulated cache answers "not available" until the
	// first write or explicit refresh.
	ColdStartRefresh bool `yaml:"cold_start_refresh"`
}

// LocalConfig defines the local SQLite mirror.
type LocalConfig struct {
	Path string `yaml:"path"`
}

// RemoteConfig defines the remote source of truth.
type RemoteConfig struct {
	// Driver is "postgres", "sqlite" or "memory".
	Driver string `yaml:"driver"`

	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`

	// Listen subscribes to remote change notifications (postgres only).
	Listen bool `yaml:"listen"`
	// Channel is the LISTEN/NOTIFY channel name.
	Channel string `yaml:"channel"`
}

// PostgresConfig defines PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"` // Use env TASKSYNC_DB_PASSWORD
	SSLMode  string `yaml:"ssl_mode"`
	PoolMax  int    `yaml:"pool_max"`
}

// SQLiteConfig defines a SQLite-backed remote, e.g. a file on a shared mount.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig defines the API server.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LogConfig defines logging output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Cache: CacheConfig{
			ColdStartRefresh: true,
		},
		Local: LocalConfig{
			Path: filepath.Join(Dir, "tasks.db"),
		},
		Remote: RemoteConfig{
			Driver: RemoteDriverSQLite,
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "tasksync",
				User:     "tasksync",
				SSLMode:  "disable",
				PoolMax:  10,
			},
			SQLite: SQLiteConfig{
				Path: filepath.Join(Dir, "remote.db"),
			},
			Listen:  true,
			Channel: "tasks_changed",
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// RemoteDSN returns the PostgreSQL connection URL.
func (c *Config) RemoteDSN() string {
	pg := c.Remote.Postgres
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(pg.Host, strconv.Itoa(pg.Port)),
		Path:   "/" + pg.Database,
	}
	if pg.User != "" {
		if pg.Password != "" {
			u.User = url.UserPassword(pg.User, pg.Password)
		} else {
			u.User = url.User(pg.User)
		}
	}
	if pg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {pg.SSLMode}}.Encode()
	}
	return u.String()
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.Remote.Driver {
	case RemoteDriverPostgres:
		if c.Remote.Postgres.Host == "" {
			return errors.ErrConfigMissing("remote.postgres.host")
		}
		if c.Remote.Postgres.Database == "" {
			return errors.ErrConfigMissing("remote.postgres.database")
		}
		if p := c.Remote.Postgres.Port; p <= 0 || p > 65535 {
			return errors.ErrConfigInvalid("remote.postgres.port", fmt.Sprintf("port %d out of range", p))
		}
		if c.Remote.Postgres.PoolMax < 0 {
			return errors.ErrConfigInvalid("remote.postgres.pool_max", "must not be negative")
		}
	case RemoteDriverSQLite:
		if c.Remote.SQLite.Path == "" {
			return errors.ErrConfigMissing("remote.sqlite.path")
		}
		if filepath.Clean(c.Remote.SQLite.Path) == filepath.Clean(c.Local.Path) {
			return errors.ErrConfigInvalid("remote.sqlite.path", "remote and local must be different databases")
		}
	case RemoteDriverMemory:
	default:
		return errors.ErrConfigInvalid("remote.driver",
			fmt.Sprintf("unknown driver %q (want postgres, sqlite or memory)", c.Remote.Driver))
	}

	if c.Local.Path == "" {
		return errors.ErrConfigMissing("local.path")
	}
	if c.Remote.Listen && c.Remote.Channel == "" {
		return errors.ErrConfigMissing("remote.channel")
	}
	if p := c.Server.Port; p < 0 || p > 65535 {
		return errors.ErrConfigInvalid("server.port", fmt.Sprintf("port %d out of range", p))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.ErrConfigInvalid("log.level", fmt.Sprintf("unknown level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.ErrConfigInvalid("log.format", fmt.Sprintf("unknown format %q", c.Log.Format))
	}
	return nil
}

// Load loads the config from the default location.
func Load() (*Config, error) {
	return LoadFrom(filepath.Join(Dir, ConfigFileName))
}

// LoadFrom loads the config from a specific path. A missing file yields
// the defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Save saves the config to the default location.
func (c *Config) Save() error {
	return c.SaveTo(filepath.Join(Dir, ConfigFileName))
}

// SaveTo saves the config to a specific path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Init creates the project directory and a default config in the current
// directory.
func Init(force bool) error {
	return InitAt(".", force)
}

// InitAt creates the project directory and a default config under root.
func InitAt(root string, force bool) error {
	dir := filepath.Join(root, Dir)
	if !force {
		if _, err := os.Stat(dir); err == nil {
			return errors.ErrAlreadyInitialized(dir)
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	if err := Default().SaveTo(filepath.Join(dir, ConfigFileName)); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// IsInitialized returns true if tasksync is initialized in the current directory.
func IsInitialized() bool {
	_, err := os.Stat(Dir)
	return err == nil
}

// RequireInit returns an error if tasksync is not initialized.
func RequireInit() error {
	if !IsInitialized() {
		return errors.ErrNotInitialized()
	}
	return nil
}
