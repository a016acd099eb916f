package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func LoadEnv() error {
	// Try to load .env file if it exists (for local development).
	// In production the environment is set directly.
	if err := godotenv.Load(); err != nil {
		return nil
	}
	return nil
}

// ValidateEnv checks that critical environment variables are set and warns
// about optional ones that disable a feature when missing.
func ValidateEnv(log *zap.Logger) error {
	var missing []string

	// Critical variables - application cannot function without these
	if os.Getenv("JWT_SECRET") == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if os.Getenv("DATABASE_URL") == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return fmt.Errorf("critical environment variables not set: %v", missing)
	}

	if log == nil {
		log = zap.NewNop()
	}
	warn := func(key, effect string) {
		if os.Getenv(key) == "" {
			log.Warn(key+" not set", zap.String("effect", effect))
		}
	}

	if GetEnv("STORAGE_DRIVER", "firebase") == "firebase" {
		warn("FIREBASE_STORAGE_BUCKET", "file uploads will fail")
		warn("GOOGLE_APPLICATION_CREDENTIALS", "firebase may fall back to default credentials")
	}
	warn("FRONTEND_URL", "CORS may not work correctly")
	warn("ADMIN_URL", "admin panel origin not allowed by CORS")
	warn("SMTP_HOST", "email notifications disabled")
	warn("SMTP_FROM", "email notifications disabled")
	warn("TELEGRAM_BOT_TOKEN", "admin telegram notifications disabled")
	warn("SENTRY_DSN", "error reporting disabled")

	return nil
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvInt returns defaultValue when key is unset or not an integer.
func GetEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// GetEnvInt64 is GetEnvInt for 64-bit ids such as Telegram chat ids.
func GetEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}

// GetEnvDuration parses values like "24h" or "30m". Invalid or non-positive
// values yield defaultValue.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
