// ABOUTME: Configuration loading and parsing for walletd
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete walletd configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	RemoteSync RemoteSyncConfig `yaml:"remote_sync"`
	Wallet     WalletConfig     `yaml:"wallet"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds the HTTP/WebSocket listen address
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds the primary store location
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RemoteSyncConfig holds the optional secondary store configuration.
// When RedisURL is empty the host has no secondary store at all; Enabled
// is the user's toggle on top of that.
type RemoteSyncConfig struct {
	Enabled  bool   `yaml:"enabled"`
	RedisURL string `yaml:"redis_url"`
	Key      string `yaml:"key"`

	SyncTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	SyncTimeoutRaw string `yaml:"sync_timeout"`
}

// WalletConfig holds wallet behavior configuration
type WalletConfig struct {
	// PopupCommand is the command (argv) run to surface the wallet UI.
	// Empty means popup requests are logged only.
	PopupCommand []string `yaml:"popup_command"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	// Remote sync cannot be enabled without a backend to sync to
	if c.RemoteSync.Enabled && c.RemoteSync.RedisURL == "" {
		return fmt.Errorf("remote_sync.redis_url is required when remote_sync is enabled")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.RemoteSync.SyncTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.RemoteSync.SyncTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing sync_timeout %q: %w", cfg.RemoteSync.SyncTimeoutRaw, err)
		}
		cfg.RemoteSync.SyncTimeout = d
	}

	return nil
}
