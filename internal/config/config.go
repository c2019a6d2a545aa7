// Package config loads runtime configuration from the environment into an
// immutable struct once at startup, following the env-with-defaults pattern
// used throughout this codebase rather than a config file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains runtime configuration values.
type Config struct {
	Environment   string
	ServerHost    string
	ServerPort    string
	DatabaseURL   string
	ServiceName   string

	JWTPrivateKeyPath    string
	JWTPublicKeyPath     string
	JWTIssuer            string
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	RefreshTokenBytes    int

	RateLimitAuthRPM  int
	RateLimitOAuthRPM int
	RateLimitUserRPM  int
	RateLimitAdminRPM int

	CORSAllowedOrigins []string

	TelemetryEndpoint string
	TelemetryInsecure bool
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		Environment: getEnv("APP_ENV", "development"),
		ServerHost:  getEnv("SERVER_HOST", "127.0.0.1"),
		ServerPort:  getEnv("SERVER_PORT", "3000"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		ServiceName: getEnv("SERVICE_NAME", "auth-service"),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "keys/private.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "keys/public.pem"),
		JWTIssuer:         getEnv("JWT_ISSUER", "auth-service"),
		AccessTokenTTL:    getSecondsDuration("JWT_ACCESS_TOKEN_EXPIRY_SECS", time.Hour),
		RefreshTokenTTL:   getDaysDuration("JWT_REFRESH_TOKEN_EXPIRY_DAYS", 30*24*time.Hour),
		RefreshTokenBytes: getInt("REFRESH_TOKEN_BYTES", 32),

		RateLimitAuthRPM:  getInt("RATE_LIMIT_AUTH_RPM", 20),
		RateLimitOAuthRPM: getInt("RATE_LIMIT_OAUTH_RPM", 30),
		RateLimitUserRPM:  getInt("RATE_LIMIT_USER_RPM", 60),
		RateLimitAdminRPM: getInt("RATE_LIMIT_ADMIN_RPM", 60),

		CORSAllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),

		TelemetryEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure: getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RefreshTokenBytes < 32 {
		cfg.RefreshTokenBytes = 32
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getSecondsDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return def
}

func getDaysDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * 24 * time.Hour
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
