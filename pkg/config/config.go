// Package config loads landscape engine configuration from config.yaml and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultConfigPath is read when CONFIG_PATH is not set.
const DefaultConfigPath = "config.yaml"

// Config holds all configuration for the landscape engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	Log        LogConfig        `yaml:"log"`
	Landscapes LandscapesConfig `yaml:"landscapes"`
	CORS       CORSConfig       `yaml:"cors"`
	MCP        MCPConfig        `yaml:"mcp"`

	// Database configuration (PostgreSQL). Optional source of landscape documents.
	Database DatabaseConfig `yaml:"database"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Pretty bool   `yaml:"pretty" env:"LOG_PRETTY" env-default:"false"`
}

// LandscapesConfig locates file landscapes.
type LandscapesConfig struct {
	Directory string `yaml:"directory" env:"LANDSCAPES_DIR" env-default:"data"`
	// Autoload names landscapes that are loaded and fully built at startup.
	Autoload []string `yaml:"autoload" env:"LANDSCAPES_AUTOLOAD" env-separator:","`
}

// CORSConfig lists the origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
}

// MCPConfig toggles the MCP endpoint.
type MCPConfig struct {
	Enabled bool `yaml:"enabled" env:"MCP_ENABLED" env-default:"true"`
}

// DatabaseConfig holds PostgreSQL database configuration.
// The database source is disabled when Host is empty.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:""`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"landscape"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"landscape_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"5"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// Load reads configuration from CONFIG_PATH (default config.yaml) with environment
// variable overrides. A missing file is not an error: environment variables and
// defaults are used instead.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Landscapes.Directory == "" {
		return nil, fmt.Errorf("landscapes.directory must not be empty")
	}

	return cfg, nil
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return c.BindAddr + ":" + c.Port
}

// Enabled reports whether a database source is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// ConnectionString returns a PostgreSQL URL. User, password and database name are escaped.
// Inside Docker, localhost is rewritten to host.docker.internal.
func (c *DatabaseConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		resolveHostForDocker(c.Host),
		c.Port,
		url.QueryEscape(c.Database),
		sslMode,
	)
}

func resolveHostForDocker(host string) string {
	if host != "localhost" && host != "127.0.0.1" {
		return host
	}
	if _, err := os.Stat("/.dockerenv"); err != nil {
		return host
	}
	return "host.docker.internal"
}
