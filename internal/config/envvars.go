package config

import (
	"os"
	"strconv"
	"strings"
)

// EnvVarMapping defines the mapping between environment variables and config paths.
var EnvVarMapping = map[string]string{
	"TASKSYNC_COLD_START_REFRESH": "cache.cold_start_refresh",
	"TASKSYNC_LOCAL_PATH":         "local.path",
	// Remote settings
	"TASKSYNC_REMOTE_DRIVER":      "remote.driver",
	"TASKSYNC_REMOTE_LISTEN":      "remote.listen",
	"TASKSYNC_REMOTE_CHANNEL":     "remote.channel",
	"TASKSYNC_REMOTE_SQLITE_PATH": "remote.sqlite.path",
	"TASKSYNC_DB_HOST":            "remote.postgres.host",
	"TASKSYNC_DB_PORT":            "remote.postgres.port",
	"TASKSYNC_DB_NAME":            "remote.postgres.database",
	"TASKSYNC_DB_USER":            "remote.postgres.user",
	"TASKSYNC_DB_PASSWORD":        "remote.postgres.password",
	"TASKSYNC_DB_SSL_MODE":        "remote.postgres.ssl_mode",
	"TASKSYNC_DB_POOL_MAX":        "remote.postgres.pool_max",
	// Server settings
	"TASKSYNC_HOST": "server.host",
	"TASKSYNC_PORT": "server.port",
	// Logging
	"TASKSYNC_LOG_LEVEL":  "log.level",
	"TASKSYNC_LOG_FORMAT": "log.format",
}

// ApplyEnvVars applies environment variable overrides to a TrackedConfig.
// Returns a list of paths that were overridden.
func ApplyEnvVars(tc *TrackedConfig) []string {
	var overridden []string

	for envVar, configPath := range EnvVarMapping {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}

		if applyEnvVar(tc.Config, configPath, value) {
			tc.SetSource(configPath, SourceEnv)
			overridden = append(overridden, configPath)
		}
	}

	return overridden
}

// applyEnvVar applies a single environment variable to the config.
// Returns true if the value was applied.
func applyEnvVar(cfg *Config, path string, value string) bool {
	switch path {
	case "cache.cold_start_refresh":
		cfg.Cache.ColdStartRefresh = parseBool(value)
	case "local.path":
		cfg.Local.Path = value
	case "remote.driver":
		cfg.Remote.Driver = value
	case "remote.listen":
		cfg.Remote.Listen = parseBool(value)
	case "remote.channel":
		cfg.Remote.Channel = value
	case "remote.sqlite.path":
		cfg.Remote.SQLite.Path = value
	case "remote.postgres.host":
		cfg.Remote.Postgres.Host = value
	case "remote.postgres.port":
		v, err := strconv.Atoi(value)
		if err != nil {
			return false
		}
		cfg.Remote.Postgres.Port = v
	case "remote.postgres.database":
		cfg.Remote.Postgres.Database = value
	case "remote.postgres.user":
		cfg.Remote.Postgres.User = value
	case "remote.postgres.password":
		cfg.Remote.Postgres.Password = value
	case "remote.postgres.ssl_mode":
		cfg.Remote.Postgres.SSLMode = value
	case "remote.postgres.pool_max":
		v, err := strconv.Atoi(value)
		if err != nil {
			return false
		}
		cfg.Remote.Postgres.PoolMax = v
	case "server.host":
		cfg.Server.Host = value
	case "server.port":
		v, err := strconv.Atoi(value)
		if err != nil {
			return false
		}
		cfg.Server.Port = v
	case "log.level":
		cfg.Log.Level = strings.ToLower(value)
	case "log.format":
		cfg.Log.Format = strings.ToLower(value)
	default:
		return false
	}
	return true
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// ApplyFlag applies a CLI flag value to the config path and records the
// flag as its source. Returns false if the path is unknown or the value
// does not parse.
func ApplyFlag(tc *TrackedConfig, path, value string) bool {
	if !applyEnvVar(tc.Config, path, value) {
		return false
	}
	tc.SetSource(path, SourceFlag)
	return true
}
