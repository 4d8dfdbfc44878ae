// ABOUTME: Configuration loading and parsing for pulse-server
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied where the file leaves a value unset.
const (
	DefaultHTTPAddr        = "0.0.0.0:8080"
	DefaultMetricsInterval = 5 * time.Second
	DefaultAgentInterval   = 3 * time.Second
	DefaultBaseDelay       = 1 * time.Second
	DefaultMaxDelay        = 5 * time.Second
	DefaultMaxAttempts     = 5
)

// Config represents the complete pulse-server configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// BroadcastConfig holds the periodic broadcast timing configuration
type BroadcastConfig struct {
	MetricsInterval time.Duration `yaml:"-"`
	AgentInterval   time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	MetricsIntervalRaw string `yaml:"metrics_interval"`
	AgentIntervalRaw   string `yaml:"agent_interval"`
}

// ReconnectConfig holds client reconnection tuning, served to pulse-watch
// and any other sync client reading the same file.
type ReconnectConfig struct {
	BaseDelay   time.Duration `yaml:"-"`
	MaxDelay    time.Duration `yaml:"-"`
	MaxAttempts int           `yaml:"max_attempts"`

	// Raw string values for YAML unmarshaling
	BaseDelayRaw string `yaml:"base_delay"`
	MaxDelayRaw  string `yaml:"max_delay"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config populated with every default value.
func Default() *Config {
	return &Config{
		Server: ServerConfig{HTTPAddr: DefaultHTTPAddr},
		Broadcast: BroadcastConfig{
			MetricsInterval: DefaultMetricsInterval,
			AgentInterval:   DefaultAgentInterval,
		},
		Reconnect: ReconnectConfig{
			BaseDelay:   DefaultBaseDelay,
			MaxDelay:    DefaultMaxDelay,
			MaxAttempts: DefaultMaxAttempts,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
// Fields left unset in the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(cfg)

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all configuration fields are sane.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Broadcast.MetricsInterval <= 0 {
		return fmt.Errorf("broadcast.metrics_interval must be positive")
	}
	if c.Broadcast.AgentInterval <= 0 {
		return fmt.Errorf("broadcast.agent_interval must be positive")
	}
	if c.Reconnect.BaseDelay <= 0 {
		return fmt.Errorf("reconnect.base_delay must be positive")
	}
	if c.Reconnect.MaxDelay < c.Reconnect.BaseDelay {
		return fmt.Errorf("reconnect.max_delay must be at least reconnect.base_delay")
	}
	if c.Reconnect.MaxAttempts <= 0 {
		return fmt.Errorf("reconnect.max_attempts must be positive")
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Broadcast.MetricsIntervalRaw != "" {
		cfg.Broadcast.MetricsInterval, err = time.ParseDuration(cfg.Broadcast.MetricsIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing metrics_interval %q: %w", cfg.Broadcast.MetricsIntervalRaw, err)
		}
	}

	if cfg.Broadcast.AgentIntervalRaw != "" {
		cfg.Broadcast.AgentInterval, err = time.ParseDuration(cfg.Broadcast.AgentIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing agent_interval %q: %w", cfg.Broadcast.AgentIntervalRaw, err)
		}
	}

	if cfg.Reconnect.BaseDelayRaw != "" {
		cfg.Reconnect.BaseDelay, err = time.ParseDuration(cfg.Reconnect.BaseDelayRaw)
		if err != nil {
			return fmt.Errorf("parsing base_delay %q: %w", cfg.Reconnect.BaseDelayRaw, err)
		}
	}

	if cfg.Reconnect.MaxDelayRaw != "" {
		cfg.Reconnect.MaxDelay, err = time.ParseDuration(cfg.Reconnect.MaxDelayRaw)
		if err != nil {
			return fmt.Errorf("parsing max_delay %q: %w", cfg.Reconnect.MaxDelayRaw, err)
		}
	}

	return nil
}

// applyDefaults restores defaults for fields an explicit empty value wiped out.
func applyDefaults(cfg *Config) {
	if cfg.Server.HTTPAddr == "" {
		cfg.Server.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.Reconnect.MaxAttempts == 0 {
		cfg.Reconnect.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}
