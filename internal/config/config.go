package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig is everything the dashboard reads from the environment.
// Secrets (Zoho credentials, the operator password hash, the JWT
// secret) only ever live here; they are never persisted or logged.
type AppConfig struct {
	// Server
	HTTPAddr    string
	GinMode     string
	CORSOrigins []string

	// Zoho CRM
	ZohoClientID     string
	ZohoClientSecret string
	ZohoRefreshToken string
	ZohoAccountsURL  string
	ZohoAPIDomain    string

	// Redis
	RedisAddr string
	RedisPass string
	RedisDB   int

	// Postgres (trend snapshots); empty disables the trend chart.
	PostgresURL string

	// Dashboard login. An empty password hash disables auth entirely,
	// leaving the board open, which is the mode the original tool ran in.
	DashboardUser         string
	DashboardPasswordHash string
	JWTSecret             string
	SessionTTL            time.Duration
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8000"),
		GinMode:     getEnv("GIN_MODE", "release"),
		CORSOrigins: getEnvSlice("CORS_ORIGINS", nil),

		ZohoClientID:     getEnv("ZOHO_CLIENT_ID", ""),
		ZohoClientSecret: getEnv("ZOHO_CLIENT_SECRET", ""),
		ZohoRefreshToken: getEnv("ZOHO_REFRESH_TOKEN", ""),
		ZohoAccountsURL:  getEnv("ZOHO_ACCOUNTS_URL", "https://accounts.zoho.com"),
		ZohoAPIDomain:    getEnv("ZOHO_API_DOMAIN", "https://www.zohoapis.com"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASS", ""),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		PostgresURL: getEnv("DATABASE_URL", ""),

		DashboardUser:         getEnv("DASHBOARD_USER", "operator"),
		DashboardPasswordHash: getEnv("DASHBOARD_PASSWORD_HASH", ""),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		SessionTTL:            getEnvDuration("SESSION_TTL", 12*time.Hour),
	}
}

// AuthEnabled reports whether the operator login is configured. With
// no password hash the dashboard runs open and every route is public.
func (c AppConfig) AuthEnabled() bool {
	return c.DashboardPasswordHash != ""
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return defaultValue
}
