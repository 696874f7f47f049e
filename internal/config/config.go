package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"nxgradle/internal/gradle"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DirName is the per-workspace state directory holding config and logs.
const DirName = ".nxgradle"

// Environment variables consulted by applyEnvOverrides.
const (
	EnvPluginVersion = "NXGRADLE_PLUGIN_VERSION"
	EnvDuplicates    = "NXGRADLE_DUPLICATES"
	EnvConcurrency   = "NXGRADLE_CONCURRENCY"
	EnvDebug         = "NXGRADLE_DEBUG"
)

// Config holds all nxgradle configuration.
type Config struct {
	Name string `yaml:"name"`

	// Plugin to declare and apply
	Plugin PluginConfig `yaml:"plugin"`

	// Which files are considered
	Workspace WorkspaceConfig `yaml:"workspace"`

	// Execution settings
	Execution ExecutionConfig `yaml:"execution"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// PluginConfig configures the injected plugin.
type PluginConfig struct {
	ID         string `yaml:"id"`
	Version    string `yaml:"version"`
	Duplicates string `yaml:"duplicates"` // update-first, update-all, reject
}

// WorkspaceConfig configures settings file discovery.
type WorkspaceConfig struct {
	SettingsPatterns []string `yaml:"settings_patterns"`
	Exclude          []string `yaml:"exclude"`
}

// ExecutionConfig configures how a run is carried out.
type ExecutionConfig struct {
	// Files whose content is computed in parallel; 0 or 1 is sequential.
	Concurrency int `yaml:"concurrency"`

	// Quiet period before watch mode re-runs.
	WatchDebounce string `yaml:"watch_debounce"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "nxgradle",

		Plugin: PluginConfig{
			ID:         gradle.PluginID,
			Version:    gradle.DefaultPluginVersion,
			Duplicates: string(gradle.UpdateFirst),
		},

		Workspace: WorkspaceConfig{
			SettingsPatterns: append([]string(nil), gradle.DefaultSettingsPatterns...),
			Exclude:          []string{"node_modules", ".git", ".gradle", "build", DirName},
		},

		Execution: ExecutionConfig{
			Concurrency:   1,
			WatchDebounce: "500ms",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// DefaultConfigPath returns the config file location for a workspace.
func DefaultConfigPath(workspace string) string {
	return filepath.Join(workspace, DirName, "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// LoadWorkspace loads <workspace>/.env (if present) into the process
// environment without overriding variables already set, then loads the
// config file at path, or the workspace default when path is empty.
func LoadWorkspace(workspace, path string) (*Config, error) {
	envFile := filepath.Join(workspace, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if path == "" {
		path = DefaultConfigPath(workspace)
	}
	return Load(path)
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides. Malformed
// numeric or boolean values are ignored.
func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv(EnvPluginVersion)); v != "" {
		c.Plugin.Version = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDuplicates)); v != "" {
		c.Plugin.Duplicates = v
	}
	if v := os.Getenv(EnvConcurrency); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Execution.Concurrency = n
		}
	}
	if v := os.Getenv(EnvDebug); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = on
		}
	}
}

// GetWatchDebounce returns the watch debounce as a duration.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Execution.WatchDebounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// DuplicatePolicy parses the configured duplicate policy.
func (c *Config) DuplicatePolicy() (gradle.DuplicatePolicy, error) {
	return gradle.ParseDuplicatePolicy(c.Plugin.Duplicates)
}

// ValidLogLevels lists accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := gradle.ValidatePluginID(c.Plugin.ID); err != nil {
		return fmt.Errorf("plugin.id: %w", err)
	}
	if err := gradle.ValidateVersion(c.Plugin.Version); err != nil {
		return fmt.Errorf("plugin.version: %w", err)
	}
	if _, err := c.DuplicatePolicy(); err != nil {
		return fmt.Errorf("plugin.duplicates: %w", err)
	}
	if c.Execution.Concurrency < 0 {
		return fmt.Errorf("execution.concurrency must not be negative: %d", c.Execution.Concurrency)
	}
	if c.Execution.WatchDebounce != "" {
		if _, err := time.ParseDuration(c.Execution.WatchDebounce); err != nil {
			return fmt.Errorf("execution.watch_debounce: %w", err)
		}
	}

	validLevel := false
	for _, l := range ValidLogLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid logging level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid logging format: %s (valid: json, text)", c.Logging.Format)
	}

	return nil
}
