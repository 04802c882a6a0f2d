package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Log       LogConfig       `yaml:"log"`
	Session   SessionConfig   `yaml:"session"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type LogConfig struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	JSON      bool   `yaml:"json"`
}

// SessionConfig tunes the in-memory workout sessions served over HTTP and MCP.
type SessionConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	AutoEndRest  bool          `yaml:"auto_end_rest"`
}

const (
	DefaultTickInterval = time.Second
	DefaultIdleTimeout  = 2 * time.Hour
	DefaultHostname     = "stitch"
)

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix STITCH_ and underscore-separated paths:
//
//	STITCH_SERVER_HOST, STITCH_SERVER_PORT,
//	STITCH_DB_HOST, STITCH_DB_PORT, STITCH_DB_NAME,
//	STITCH_DB_USER, STITCH_DB_PASSWORD, STITCH_DB_SSLMODE,
//	STITCH_AUTH_API_KEY, STITCH_TAILSCALE_ENABLED,
//	STITCH_LOG_LEVEL, STITCH_LOG_FILE,
//	STITCH_SESSION_IDLE_TIMEOUT, STITCH_SESSION_AUTO_END_REST
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STITCH_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("STITCH_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("STITCH_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("STITCH_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("STITCH_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("STITCH_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("STITCH_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("STITCH_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("STITCH_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("STITCH_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	if v := os.Getenv("STITCH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("STITCH_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("STITCH_SESSION_IDLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Session.IdleTimeout = d
		}
	}
	if v := os.Getenv("STITCH_SESSION_AUTO_END_REST"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Session.AutoEndRest = b
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Session.TickInterval == 0 {
		c.Session.TickInterval = DefaultTickInterval
	}
	if c.Session.IdleTimeout == 0 {
		c.Session.IdleTimeout = DefaultIdleTimeout
	}
	if c.Tailscale.Hostname == "" {
		c.Tailscale.Hostname = DefaultHostname
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.StateDir == "" {
		return fmt.Errorf("tailscale.state_dir is required when tailscale is enabled")
	}
	if c.Session.TickInterval < 0 {
		return fmt.Errorf("session.tick_interval must be positive")
	}
	if c.Session.IdleTimeout < 0 {
		return fmt.Errorf("session.idle_timeout must be positive")
	}
	return nil
}
