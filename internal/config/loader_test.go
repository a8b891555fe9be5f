package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, root, content string) string {
	t.Helper()
	dir := filepath.Join(root, Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadWithSources_DefaultsOnly(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", filepath.Join(tmpDir, "nonexistent"))

	tc, err := LoadWithSourcesFrom(tmpDir)
	if err != nil {
		t.Fatalf("LoadWithSourcesFrom failed: %v", err)
	}
	if tc.Config.Remote.Driver != RemoteDriverSQLite {
		t.Errorf("Remote.Driver = %q, want sqlite", tc.Config.Remote.Driver)
	}
	if tc.GetSource("remote.driver") != SourceDefault {
		t.Errorf("remote.driver source = %q, want default", tc.GetSource("remote.driver"))
	}
}

func TestLoadWithSources_Layering(t *testing.T) {
	tmpDir := t.TempDir()
	home := filepath.Join(tmpDir, "home")
	project := filepath.Join(tmpDir, "project")
	t.Setenv("HOME", home)

	writeConfig(t, home, `
log:
  level: debug
remote:
  driver: postgres
  postgres:
    host: user-db
`)
	projectPath := writeConfig(t, project, `
remote:
  postgres:
    host: project-db
    database: team
`)
	t.Setenv("TASKSYNC_DB_PASSWORD", "secret")
	t.Setenv("TASKSYNC_PORT", "not-a-number")

	tc, err := LoadWithSourcesFrom(project)
	if err != nil {
		t.Fatalf("LoadWithSourcesFrom failed: %v", err)
	}
	cfg := tc.Config

	if cfg.Log.Level != "debug" || tc.GetSource("log.level") != SourceUser {
		t.Errorf("log.level = %s from %s, want debug from user", cfg.Log.Level, tc.GetSource("log.level"))
	}
	if cfg.Remote.Driver != RemoteDriverPostgres {
		t.Errorf("remote.driver = %s, want postgres from user", cfg.Remote.Driver)
	}
	if cfg.Remote.Postgres.Host != "project-db" {
		t.Errorf("remote.postgres.host = %s, want project-db", cfg.Remote.Postgres.Host)
	}
	if ts := tc.GetTrackedSource("remote.postgres.host"); ts.Source != SourceProject || ts.Path != projectPath {
		t.Errorf("remote.postgres.host tracked as %s", ts)
	}
	if cfg.Remote.Postgres.User != "tasksync" {
		t.Errorf("unset fields keep defaults, got user %s", cfg.Remote.Postgres.User)
	}
	if cfg.Remote.Postgres.Password != "secret" || tc.GetSource("remote.postgres.password") != SourceEnv {
		t.Error("TASKSYNC_DB_PASSWORD not applied")
	}
	if cfg.Server.Port != 8080 || tc.GetSource("server.port") != SourceDefault {
		t.Errorf("invalid TASKSYNC_PORT should be ignored, got %d", cfg.Server.Port)
	}
}

func TestLoadWithSources_InvalidProjectConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", filepath.Join(tmpDir, "nonexistent"))
	writeConfig(t, tmpDir, "remote: [")

	if _, err := LoadWithSourcesFrom(tmpDir); err == nil {
		t.Error("expected error for invalid project config")
	}
}

func TestLoadWithSources_InvalidUserConfigIgnored(t *testing.T) {
	tmpDir := t.TempDir()
	home := filepath.Join(tmpDir, "home")
	t.Setenv("HOME", home)
	writeConfig(t, home, "remote: [")

	if _, err := LoadWithSourcesFrom(filepath.Join(tmpDir, "project")); err != nil {
		t.Errorf("user config errors should only warn: %v", err)
	}
}

func TestApplyEnvVars(t *testing.T) {
	t.Setenv("TASKSYNC_COLD_START_REFRESH", "false")
	t.Setenv("TASKSYNC_REMOTE_DRIVER", "memory")
	t.Setenv("TASKSYNC_LOG_LEVEL", "WARN")
	t.Setenv("TASKSYNC_DB_POOL_MAX", "3")

	tc := NewTrackedConfig()
	overridden := ApplyEnvVars(tc)

	if len(overridden) != 4 {
		t.Errorf("overridden = %v, want 4 paths", overridden)
	}
	if tc.Config.Cache.ColdStartRefresh {
		t.Error("cold_start_refresh should be false")
	}
	if tc.Config.Remote.Driver != RemoteDriverMemory {
		t.Errorf("remote.driver = %s", tc.Config.Remote.Driver)
	}
	if tc.Config.Log.Level != "warn" {
		t.Errorf("log.level = %s, want warn", tc.Config.Log.Level)
	}
	if tc.Config.Remote.Postgres.PoolMax != 3 {
		t.Errorf("pool_max = %d, want 3", tc.Config.Remote.Postgres.PoolMax)
	}
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"true", "TRUE", "1", "yes", "on"} {
		if !parseBool(s) {
			t.Errorf("parseBool(%q) = false", s)
		}
	}
	for _, s := range []string{"false", "0", "no", "off", ""} {
		if parseBool(s) {
			t.Errorf("parseBool(%q) = true", s)
		}
	}
}

func TestFlattenKeys(t *testing.T) {
	raw := map[string]any{
		"version": 1,
		"remote": map[string]any{
			"driver":   "postgres",
			"postgres": map[string]any{"host": "x"},
		},
	}
	got := flattenKeys("", raw)
	want := []string{"remote.driver", "remote.postgres.host", "version"}
	if len(got) != len(want) {
		t.Fatalf("flattenKeys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("flattenKeys[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestApplyFlag(t *testing.T) {
	tc := NewTrackedConfig()

	if !ApplyFlag(tc, "log.level", "DEBUG") {
		t.Fatal("ApplyFlag(log.level) = false, want true")
	}
	if tc.Config.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", tc.Config.Log.Level)
	}
	if tc.GetSource("log.level") != SourceFlag {
		t.Errorf("log.level source = %q, want flag", tc.GetSource("log.level"))
	}

	if ApplyFlag(tc, "server.port", "eighty") {
		t.Error("ApplyFlag with a non-numeric port should fail")
	}
	if tc.GetSource("server.port") != SourceDefault {
		t.Errorf("server.port source = %q, want default", tc.GetSource("server.port"))
	}
	if ApplyFlag(tc, "no.such.key", "x") {
		t.Error("ApplyFlag with an unknown path should fail")
	}
}

func TestLoadWithSourcesFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", filepath.Join(tmpDir, "nonexistent"))

	path := filepath.Join(tmpDir, "custom.yaml")
	if err := os.WriteFile(path, []byte("remote:\n  driver: memory\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tc, err := LoadWithSourcesFile(path)
	if err != nil {
		t.Fatalf("LoadWithSourcesFile failed: %v", err)
	}
	if tc.Config.Remote.Driver != RemoteDriverMemory {
		t.Errorf("Remote.Driver = %q, want memory", tc.Config.Remote.Driver)
	}
	if got := tc.GetTrackedSource("remote.driver"); got.Path != path {
		t.Errorf("remote.driver path = %q, want %q", got.Path, path)
	}

	if _, err := LoadWithSourcesFile(filepath.Join(tmpDir, "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}
