package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Ticketing provider configuration
	Freshdesk FreshdeskConfig

	// Poll loop configuration
	Monitor MonitorConfig

	// Control API authentication
	Auth AuthConfig

	// Rate limiting configuration
	RateLimit RateLimitConfig

	// CORS configuration
	CORS CORSConfig

	// WebSocket configuration
	WebSocket WebSocketConfig

	// Logging configuration
	Logging LoggingConfig

	// Application metadata
	App AppConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// FreshdeskConfig holds the ticketing provider settings
type FreshdeskConfig struct {
	Domain         string
	APIKey         string
	BaseURL        string // overrides https://{Domain}/api/v2
	RequestTimeout time.Duration
	RateLimitRPS   float64 // outbound throttle, 0 disables
	RateLimitBurst int
}

// MonitorConfig holds poll loop settings
type MonitorConfig struct {
	PollingInterval time.Duration
	AutoStart       bool
	RulesFile       string
}

// AuthConfig holds control API token settings. An empty secret leaves the
// control API open.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	ControlRPS        float64 // Stricter limit for start/stop
	ControlBurst      int
}

// CORSConfig holds cross-origin settings for the control API
type CORSConfig struct {
	AllowedOrigins []string
}

// WebSocketConfig holds WebSocket configuration
type WebSocketConfig struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := LoadUnvalidated()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadUnvalidated reads an optional .env file and builds a Config without
// validating it. Commands that never reach the provider use it.
func LoadUnvalidated() *Config {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment without validating it.
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", ":8000"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationOrDefault("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Freshdesk: FreshdeskConfig{
			Domain:         os.Getenv("FRESHDESK_DOMAIN"),
			APIKey:         os.Getenv("FRESHDESK_API_KEY"),
			BaseURL:        os.Getenv("FRESHDESK_BASE_URL"),
			RequestTimeout: getDurationOrDefault("FRESHDESK_REQUEST_TIMEOUT", 30*time.Second),
			RateLimitRPS:   getFloatOrDefault("FRESHDESK_RATE_LIMIT_RPS", 0),
			RateLimitBurst: getIntOrDefault("FRESHDESK_RATE_LIMIT_BURST", 1),
		},
		Monitor: MonitorConfig{
			PollingInterval: getSecondsOrDefault("POLLING_INTERVAL", 300*time.Second),
			AutoStart:       getBoolOrDefault("MONITOR_AUTO_START", true),
			RulesFile:       os.Getenv("MONITOR_RULES_FILE"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("CONTROL_JWT_SECRET"),
			TokenTTL:  getDurationOrDefault("CONTROL_TOKEN_TTL", 24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getBoolOrDefault("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getFloatOrDefault("RATE_LIMIT_RPS", 10),
			BurstSize:         getIntOrDefault("RATE_LIMIT_BURST", 20),
			ControlRPS:        getFloatOrDefault("RATE_LIMIT_CONTROL_RPS", 1),
			ControlBurst:      getIntOrDefault("RATE_LIMIT_CONTROL_BURST", 5),
		},
		CORS: CORSConfig{
			AllowedOrigins: getStringSliceOrDefault("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins:  getStringSliceOrDefault("WS_ALLOWED_ORIGINS", []string{}),
			ReadBufferSize:  getIntOrDefault("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize: getIntOrDefault("WS_WRITE_BUFFER_SIZE", 1024),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		App: AppConfig{
			Name:        getEnvOrDefault("APP_NAME", "ticket-monitor"),
			Version:     getEnvOrDefault("APP_VERSION", "dev"),
			Environment: getEnvOrDefault("APP_ENV", "development"),
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	// Required fields
	if c.Freshdesk.Domain == "" && c.Freshdesk.BaseURL == "" {
		errs = append(errs, "FRESHDESK_DOMAIN is required")
	}

	if c.Freshdesk.APIKey == "" {
		errs = append(errs, "FRESHDESK_API_KEY is required")
	}

	// Logical validations
	if c.Monitor.PollingInterval <= 0 {
		errs = append(errs, "POLLING_INTERVAL must be a positive number of seconds")
	}

	if c.Freshdesk.RateLimitRPS < 0 {
		errs = append(errs, "FRESHDESK_RATE_LIMIT_RPS cannot be negative")
	}

	// Security validations
	if c.App.Environment == "production" {
		if c.Auth.JWTSecret == "" {
			errs = append(errs, "CONTROL_JWT_SECRET must be set in production")
		} else if len(c.Auth.JWTSecret) < 32 {
			errs = append(errs, "CONTROL_JWT_SECRET must be at least 32 characters in production")
		}
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// AuthEnabled reports whether the control API requires a bearer token
func (c *Config) AuthEnabled() bool {
	return c.Auth.JWTSecret != ""
}

// Helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getSecondsOrDefault accepts a bare integer (seconds) or a Go duration string.
func getSecondsOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// String returns a redacted string representation of the config (safe for logging)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Server: %s, Freshdesk: %s, APIKey: %s, Interval: %s, Auth: %v, Environment: %s}",
		c.Server.Port,
		c.Freshdesk.Domain,
		redact(c.Freshdesk.APIKey),
		c.Monitor.PollingInterval,
		c.AuthEnabled(),
		c.App.Environment,
	)
}

// redact hides a secret while keeping a hint of its presence
func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "[REDACTED]"
}
