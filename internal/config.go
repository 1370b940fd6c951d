package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session store backends selectable with SESSION_STORE.
const (
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
	SessionStoreMemory   = "memory"
)

// MinSessionSecretLength is the shortest SESSION_SECRET accepted.
// securecookie recommends a 32 or 64 byte HMAC key.
const MinSessionSecretLength = 32

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// Session Configuration
	SessionSecret        string        // HMAC key for signing the session cookie
	SessionStore         string        // "postgres", "redis" or "memory"
	RedisURL             string        // required when SessionStore is "redis"
	SessionSweepInterval time.Duration // how often expired sessions are purged

	// Origins allowed to make credentialed cross-origin requests
	CORSAllowedOrigins []string

	// Reverse proxies (CIDRs or addresses) whose X-Forwarded-For is honored.
	// Empty means the client IP is always the connection's peer address.
	TrustedProxies []string

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

// IsProduction reports whether the app runs in production.
// Cookies are marked Secure and HSTS is sent only in production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		SessionStore:         strings.ToLower(getEnv("SESSION_STORE", SessionStorePostgres)),
		RedisURL:             getEnv("REDIS_URL", ""),
		SessionSweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", time.Hour),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES", nil),

		// Metrics authentication
		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	// Required
	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}
	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("SESSION_SECRET must be at least %d bytes, got %d", MinSessionSecretLength, len(cfg.SessionSecret))
	}

	// Validate session store configuration
	switch cfg.SessionStore {
	case SessionStorePostgres, SessionStoreMemory:
	case SessionStoreRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when SESSION_STORE is 'redis'")
		}
	default:
		return nil, fmt.Errorf("SESSION_STORE must be one of 'postgres', 'redis' or 'memory', got: %s", cfg.SessionStore)
	}

	if cfg.Env != "development" && cfg.Env != "production" {
		return nil, fmt.Errorf("ENV must be either 'development' or 'production', got: %s", cfg.Env)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList parses a comma-separated list, dropping empty entries.
func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	if len(list) == 0 {
		return fallback
	}
	return list
}
