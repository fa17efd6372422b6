package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	API       APIConfig
	DevServer DevServerConfig
	Env       string
	LogLevel  string
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type DevServerConfig struct {
	Port               string
	SessionTTL         time.Duration
	TokenSecret        string
	LoginRateLimit     int
	LoginRateWindow    time.Duration
	VerificationExpiry time.Duration
	CleanupInterval    time.Duration
	AllowedOrigins     []string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		API: APIConfig{
			BaseURL: getEnv("DESTINYPAL_API_URL", "http://localhost:8000/api/v1"),
			Timeout: getEnvAsDuration("DESTINYPAL_HTTP_TIMEOUT", 30*time.Second),
		},
		DevServer: DevServerConfig{
			Port:               getEnv("DEVSERVER_PORT", "8000"),
			SessionTTL:         getEnvAsDuration("DEVSERVER_SESSION_TTL", 24*time.Hour),
			TokenSecret:        getEnv("DEVSERVER_TOKEN_SECRET", "destinypal-dev-only-secret"),
			LoginRateLimit:     getEnvAsInt("DEVSERVER_LOGIN_RATE_LIMIT", 10),
			LoginRateWindow:    getEnvAsDuration("DEVSERVER_LOGIN_RATE_WINDOW", 1*time.Minute),
			VerificationExpiry: getEnvAsDuration("DEVSERVER_VERIFICATION_EXPIRY", 15*time.Minute),
			CleanupInterval:    getEnvAsDuration("DEVSERVER_CLEANUP_INTERVAL", 5*time.Minute),
			AllowedOrigins:     getEnvAsSlice("DEVSERVER_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		},
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := validateBaseURL(cfg.API.BaseURL); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateBaseURL rejects values the HTTP client would silently mangle
func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("DESTINYPAL_API_URL is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("DESTINYPAL_API_URL must use http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("DESTINYPAL_API_URL is missing a host: %q", raw)
	}
	return nil
}

// NormalizedBaseURL returns the base URL without a trailing slash.
func (c *APIConfig) NormalizedBaseURL() string {
	return strings.TrimRight(c.BaseURL, "/")
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsSlice(key string, defaultVal []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
