// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/outreach.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Table names — single source of truth, matches schema.sql
// --------------------------------------------------------------------------

const (
	UsersTable       = "users"
	PreferencesTable = "outreach_preferences"
	EngagementTable  = "engagement_models"
	StreaksTable     = "streaks"
	AlertsTable      = "health_alerts"
	OutreachLogTable = "outreach_log"
	OutcomesTable    = "interaction_outcomes"
	AuditLogTable    = "audit_log"
	ActivityLogTable = "activity_log"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// Service auth — scheduler/ops credential, never an end-user token
	AuthSecret   string
	AuthIssuer   string
	AuthTokenTTL time.Duration

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Batch runs
	BatchWorkers    int
	BatchInterval   time.Duration
	PerUserTimeout  time.Duration
	ScheduleEnabled bool

	// Delivery channel
	RedisURL       string
	DeliveryStream string

	// Alert listener (LISTEN/NOTIFY fast path for new alerts)
	AlertListenerEnabled bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", envOr("BEATHEALTH_DATABASE_URL", ""))
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or BEATHEALTH_DATABASE_URL must be set")
	}

	secret := envOr("OUTREACH_AUTH_SECRET", "")
	if secret == "" {
		return nil, fmt.Errorf("OUTREACH_AUTH_SECRET must be set")
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		AuthSecret:   secret,
		AuthIssuer:   envOr("OUTREACH_AUTH_ISSUER", "beathealth-scheduler"),
		AuthTokenTTL: time.Duration(envInt("OUTREACH_AUTH_TTL_MINUTES", 60)) * time.Minute,

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		BatchWorkers:    envInt("OUTREACH_BATCH_WORKERS", 4),
		BatchInterval:   time.Duration(envInt("OUTREACH_BATCH_INTERVAL_MINUTES", 60)) * time.Minute,
		PerUserTimeout:  time.Duration(envInt("OUTREACH_USER_TIMEOUT_SECONDS", 15)) * time.Second,
		ScheduleEnabled: envBool("OUTREACH_SCHEDULE_ENABLED", true),

		RedisURL:       envOr("REDIS_URL", ""),
		DeliveryStream: envOr("DELIVERY_STREAM", "outreach:deliveries"),

		AlertListenerEnabled: envBool("ALERT_LISTENER_ENABLED", true),
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
