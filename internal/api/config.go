package api

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the server configuration, loaded from environment variables.
type Config struct {
	ListenAddr      string
	DBPath          string
	DBDriver        string // "sqlite" (modernc, default) or "sqlite3" (cgo)
	SessionTTL      time.Duration
	ShutdownTimeout time.Duration
	LogFormat       string // "json" (default) or "text"
	LogLevel        string // "debug", "info" (default), "warn", "error"

	// Bootstrap admin, created or promoted at startup when both are set.
	AdminAccount  string
	AdminPassword string

	RateLimitAuth int // login/register per IP per minute (default: 20)

	CORSAllowedOrigins []string // empty = CORS disabled
	CookieSecure       bool

	AuthEventRetention time.Duration // default: 90 days
}

// LoadConfig reads configuration from environment variables with sensible defaults.
func LoadConfig() Config {
	cfg := Config{
		ListenAddr:      ":8123",
		DBPath:          "./data/aicode.db",
		DBDriver:        "sqlite",
		SessionTTL:      30 * 24 * time.Hour,
		ShutdownTimeout: 30 * time.Second,
		LogFormat:       "json",
		LogLevel:        "info",

		RateLimitAuth: 20,

		AuthEventRetention: 90 * 24 * time.Hour,
	}

	if v := os.Getenv("AICODE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("AICODE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("AICODE_DB_DRIVER"); v != "" {
		cfg.DBDriver = v
	}
	if v := os.Getenv("AICODE_SESSION_TTL"); v != "" {
		if d := parseDaysDuration(v); d > 0 {
			cfg.SessionTTL = d
		}
	}
	if v := os.Getenv("AICODE_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ShutdownTimeout = d
		}
	}
	if v := os.Getenv("AICODE_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("AICODE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	cfg.AdminAccount = os.Getenv("AICODE_ADMIN_ACCOUNT")
	cfg.AdminPassword = os.Getenv("AICODE_ADMIN_PASSWORD")

	if v := os.Getenv("AICODE_RATE_LIMIT_AUTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimitAuth = n
		}
	}
	if v := os.Getenv("AICODE_COOKIE_SECURE"); v == "true" || v == "1" {
		cfg.CookieSecure = true
	}
	if v := os.Getenv("AICODE_AUTH_EVENT_RETENTION"); v != "" {
		if d := parseDaysDuration(v); d > 0 {
			cfg.AuthEventRetention = d
		}
	}

	if v := os.Getenv("AICODE_CORS_ALLOWED_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}

	return cfg
}

// parseDaysDuration parses a string like "90d", "30d" into a time.Duration.
// Falls back to time.ParseDuration for standard Go durations.
func parseDaysDuration(s string) time.Duration {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "d") {
		numStr := strings.TrimSuffix(s, "d")
		if n, err := strconv.Atoi(numStr); err == nil && n > 0 {
			return time.Duration(n) * 24 * time.Hour
		}
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return 0
}
