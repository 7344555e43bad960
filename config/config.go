/*
Package config loads server configuration from the environment.

PURPOSE:
  One typed struct for everything the binary needs: listen port, store
  selection, currency labels, CORS origins. A .env file is loaded first
  when present, then real environment variables win.

STORE SELECTION:
  DATABASE_URL set   -> Postgres (pgx pool)
  DATABASE_URL empty -> SQLite at SQLITE_PATH

SEE ALSO:
  - cmd/server/main.go: Where this is consumed
*/
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/susu-engine/susu"
)

type Config struct {
	// Server
	Port            int
	ShutdownTimeout time.Duration

	// Store
	DatabaseURL string
	SQLitePath  string

	// Display
	Currency susu.Currency

	// CORS
	AllowedOrigins []string
}

// Load reads .env (if present) and the environment. Missing values fall
// back to development defaults; nothing is required.
func Load() *Config {
	// Ignore the error: a missing .env file is the normal case outside
	// local development.
	_ = godotenv.Load()

	return &Config{
		Port:            getEnvInt("PORT", 8080),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SQLitePath:      getEnv("SQLITE_PATH", "susu.db"),
		Currency: susu.Currency{
			Code:   getEnv("CURRENCY_CODE", susu.DefaultCurrency.Code),
			Symbol: getEnv("CURRENCY_SYMBOL", susu.DefaultCurrency.Symbol),
		},
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS",
			[]string{"http://localhost:5173", "http://localhost:8080"}),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
