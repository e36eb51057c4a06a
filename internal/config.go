package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Sync   SyncConfig        `yaml:"sync"`
	MCP    MCPConfig         `yaml:"mcp"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Sync.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds session and registration configuration.
//
// Durations are plain integers (hours) because yaml.v3 has no native
// duration decoding.
type AuthConfig struct {
	SessionTTLHours int  `yaml:"session_ttl_hours"`
	AllowSignup     bool `yaml:"allow_signup"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SessionTTLHours, validation.Required, validation.Min(1)),
	)
}

// SessionTTL returns the session lifetime as a duration.
func (c *AuthConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// SyncConfig tunes the realtime layer: how long reorders coalesce before
// the order is persisted, and how many events a slow subscriber may lag.
type SyncConfig struct {
	OrderDebounceMS int `yaml:"order_debounce_ms"`
	EventBuffer     int `yaml:"event_buffer"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.OrderDebounceMS, validation.Required, validation.Min(1)),
		validation.Field(&c.EventBuffer, validation.Required, validation.Min(1)),
	)
}

// OrderDebounce returns the reorder debounce window as a duration.
func (c *SyncConfig) OrderDebounce() time.Duration {
	return time.Duration(c.OrderDebounceMS) * time.Millisecond
}

// MCPConfig selects the account the stdio MCP server acts as. Unused by
// the HTTP server.
type MCPConfig struct {
	User string `yaml:"user"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./wunjo.db",
		},
		Auth: AuthConfig{
			SessionTTLHours: 720,
			AllowSignup:     true,
		},
		Sync: SyncConfig{
			OrderDebounceMS: 1000,
			EventBuffer:     256,
		},
	}
}
