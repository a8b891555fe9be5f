package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// LoadWithSources loads configuration with source tracking from the
// current directory.
// Load order (later sources override earlier):
//  1. Built-in defaults
//  2. User config (~/.tasksync/config.yaml) - optional
//  3. Project config (.tasksync/config.yaml)
//  4. Environment variables (TASKSYNC_*)
func LoadWithSources() (*TrackedConfig, error) {
	return LoadWithSourcesFrom(".")
}

// LoadWithSourcesFrom is LoadWithSources for the project rooted at root.
func LoadWithSourcesFrom(root string) (*TrackedConfig, error) {
	tc := NewTrackedConfig()
	mergeUserConfig(tc)

	projectPath := filepath.Join(root, Dir, ConfigFileName)
	if _, err := os.Stat(projectPath); err == nil {
		if err := mergeFromFile(tc, projectPath, SourceProject); err != nil {
			return nil, err // Project config errors are fatal
		}
	}

	ApplyEnvVars(tc)

	return tc, nil
}

// LoadWithSourcesFile is LoadWithSources with an explicit project config
// file. Unlike the discovered project config, the file must exist.
func LoadWithSourcesFile(path string) (*TrackedConfig, error) {
	tc := NewTrackedConfig()
	mergeUserConfig(tc)

	if err := mergeFromFile(tc, path, SourceProject); err != nil {
		return nil, err
	}

	ApplyEnvVars(tc)

	return tc, nil
}

// mergeUserConfig overlays ~/.tasksync/config.yaml if present. Errors are
// logged, not returned.
func mergeUserConfig(tc *TrackedConfig) {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	userPath := filepath.Join(home, Dir, ConfigFileName)
	if _, err := os.Stat(userPath); err != nil {
		return
	}
	if err := mergeFromFile(tc, userPath, SourceUser); err != nil {
		slog.Warn("failed to load user config", "path", userPath, "error", err)
	}
}

// mergeFromFile overlays the file onto tc.Config. Fields absent from the
// file keep their current value.
func mergeFromFile(tc *TrackedConfig, path string, source ConfigSource) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	// Parse into a map to learn which fields the file sets
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, tc.Config); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	for _, key := range flattenKeys("", raw) {
		tc.SetSourceWithPath(key, source, path)
	}
	return nil
}

// flattenKeys returns the dotted paths of every leaf in raw, sorted.
func flattenKeys(prefix string, raw map[string]any) []string {
	var keys []string
	for k, v := range raw {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			keys = append(keys, flattenKeys(path, nested)...)
			continue
		}
		keys = append(keys, path)
	}
	sort.Strings(keys)
	return keys
}
