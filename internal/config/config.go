package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend names accepted by DATA_BACKEND.
const (
	BackendSupabase = "supabase"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// Config holds all application configuration.
// It is loaded once at startup and passed explicitly to every component.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Backend selection
	DataBackend string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// SQLite
	SQLiteDBPath string

	// HTTP client to the backend
	HTTPTimeout time.Duration

	// Resilience. Zero retries keeps a failed read visible to the caller.
	MaxRetries     int
	InitialBackoff time.Duration

	// Sessions
	SessionCookieName string
	SessionSecret     string // verifies session cookies when set (Supabase JWT secret)
	SessionTTL        time.Duration
	SecureCookies     bool

	// Local operator account (sqlite / memory backends)
	OperatorEmail        string
	OperatorPasswordHash string // bcrypt

	// Dashboard
	ViewStateTTL time.Duration
	Timezone     string

	// Observability
	OTLPEndpoint string

	// Dev mode
	DevTools bool // DEV_TOOLS=true enables sample-data generation
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend: strings.ToLower(getEnv("DATA_BACKEND", BackendSupabase)),

		SupabaseURL:        strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/chalet.db"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 0),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),

		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "sb-access-token"),
		SessionSecret:     getEnv("SESSION_SECRET", ""),
		SessionTTL:        getEnvDuration("SESSION_TTL", 12*time.Hour),
		SecureCookies:     getEnv("SECURE_COOKIES", "true") == "true",

		OperatorEmail:        getEnv("OPERATOR_EMAIL", ""),
		OperatorPasswordHash: getEnv("OPERATOR_PASSWORD_HASH", ""),

		ViewStateTTL: getEnvDuration("VIEW_STATE_TTL", 30*time.Minute),
		Timezone:     getEnv("TIMEZONE", "UTC"),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		DevTools: getEnv("DEV_TOOLS", "false") == "true",
	}
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var problems []string

	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.Port))
	}

	switch c.DataBackend {
	case BackendSupabase:
		if c.SupabaseURL == "" {
			problems = append(problems, "SUPABASE_URL is required when using the supabase backend")
		}
		if c.SupabaseAnonKey == "" {
			problems = append(problems, "SUPABASE_ANON_KEY is required when using the supabase backend")
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLITE_DB_PATH cannot be empty when using the sqlite backend")
		}
	case BackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s %s]",
			c.DataBackend, BackendSupabase, BackendSQLite, BackendMemory))
	}

	if c.DataBackend != BackendSupabase && c.SessionSecret == "" {
		problems = append(problems, "SESSION_SECRET is required to sign local sessions")
	}
	if c.SessionCookieName == "" {
		problems = append(problems, "SESSION_COOKIE_NAME cannot be empty")
	}
	if c.MaxRetries < 0 {
		problems = append(problems, fmt.Sprintf("invalid max retries %d: must not be negative", c.MaxRetries))
	}
	if c.ViewStateTTL <= 0 {
		problems = append(problems, fmt.Sprintf("invalid view state ttl %v: must be positive", c.ViewStateTTL))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
