// Package config provides configuration for the jobpilot client and the
// reference dev server, read from environment variables.
//
// Both binaries call godotenv first, so a .env file in the working
// directory fills in anything the real environment leaves unset.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/jobpilot/internal/auth"
	"github.com/sakif/jobpilot/internal/tracker"
)

// MemorySessionDB as JOBPILOT_SESSION_DB keeps the session in memory only.
const MemorySessionDB = "memory"

// Client holds the CLI's configuration.
type Client struct {
	APIURL              string
	AuthPrefix          string
	SessionDB           string
	Timeout             time.Duration
	OwnerFilter         tracker.OwnerFilter
	RejectExpiredTokens bool
	LogLevel            slog.Level
}

// LoadClient reads the client configuration.
func LoadClient() (*Client, error) {
	filter, err := ParseOwnerFilter(getEnv("JOBPILOT_OWNER_FILTER", "strict"))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	level, err := ParseLogLevel(getEnv("LOG_LEVEL", "warn"))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Client{
		APIURL:              getEnv("JOBPILOT_API_URL", "http://localhost:8080"),
		AuthPrefix:          getEnv("JOBPILOT_AUTH_PREFIX", ""),
		SessionDB:           getEnv("JOBPILOT_SESSION_DB", defaultSessionDB()),
		Timeout:             getEnvDuration("JOBPILOT_TIMEOUT", 30*time.Second),
		OwnerFilter:         filter,
		RejectExpiredTokens: getEnvBool("JOBPILOT_REJECT_EXPIRED_TOKENS", true),
		LogLevel:            level,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Client) Validate() error {
	if c.APIURL == "" {
		return errors.New("JOBPILOT_API_URL cannot be empty")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("JOBPILOT_API_URL must be an absolute URL, got %q", c.APIURL)
	}
	if c.SessionDB == "" {
		return errors.New("JOBPILOT_SESSION_DB cannot be empty")
	}
	if c.Timeout <= 0 {
		return errors.New("JOBPILOT_TIMEOUT must be > 0")
	}
	return nil
}

// InMemorySession reports whether the session should not touch disk.
func (c *Client) InMemorySession() bool {
	return c.SessionDB == MemorySessionDB
}

// DevServer holds the reference backend's configuration.
type DevServer struct {
	Port       int
	DBPath     string
	JWTSecret  string
	TokenTTL   time.Duration
	AuthPrefix string
	LogLevel   slog.Level
}

// LoadDevServer reads the dev server configuration.
func LoadDevServer() (*DevServer, error) {
	level, err := ParseLogLevel(getEnv("LOG_LEVEL", "debug"))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &DevServer{
		Port:       getEnvInt("PORT", 8080),
		DBPath:     getEnv("DB_PATH", "data/jobpilot.db"),
		JWTSecret:  getEnv("JWT_SECRET", ""),
		TokenTTL:   getEnvDuration("TOKEN_TTL", 24*time.Hour),
		AuthPrefix: getEnv("AUTH_PREFIX", ""),
		LogLevel:   level,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *DevServer) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH cannot be empty")
	}
	// Generate one with: openssl rand -hex 32
	if len(c.JWTSecret) < auth.MinSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", auth.MinSecretLength)
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be > 0")
	}
	return nil
}

// ParseOwnerFilter maps "strict" / "show-all" to a tracker.OwnerFilter.
func ParseOwnerFilter(s string) (tracker.OwnerFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return tracker.OwnerFilterStrict, nil
	case "show-all", "showall", "all":
		return tracker.OwnerFilterShowAll, nil
	default:
		return 0, fmt.Errorf("JOBPILOT_OWNER_FILTER must be strict or show-all, got %q", s)
	}
}

// ParseLogLevel accepts debug, info, warn or error.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

func defaultSessionDB() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".jobpilot", "session.db")
	}
	return filepath.Join(home, ".jobpilot", "session.db")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("30s", "2m") or bare seconds ("45").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
