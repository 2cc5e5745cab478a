package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAddr       = ":8080"
	defaultJWTSecret  = "change-me-jwt-secret"
	defaultAccessTTL  = "24h"
	defaultSessionTTL = "24h"
	defaultRateLimit  = "20"
	defaultRateBurst  = "40"
)

// Config is the API server's runtime configuration, read from the
// environment (cmd/api loads a .env file first when present).
type Config struct {
	Addr            string
	DatabaseURL     string
	JWTSecret       string
	AccessTTL       time.Duration
	SessionTTL      time.Duration
	RateLimitPerSec float64
	RateBurst       int
}

func Load() (*Config, error) {
	cfg := &Config{
		Addr:        getEnv("ADDR", defaultAddr),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   getEnv("JWT_SECRET", defaultJWTSecret),
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var err error
	cfg.AccessTTL, err = parseDurationEnv("ACCESS_TTL", defaultAccessTTL)
	if err != nil {
		return nil, err
	}
	cfg.SessionTTL, err = parseDurationEnv("SESSION_TTL", defaultSessionTTL)
	if err != nil {
		return nil, err
	}

	cfg.RateLimitPerSec, err = parseFloatEnv("RATE_LIMIT_PER_SEC", defaultRateLimit)
	if err != nil {
		return nil, err
	}
	burst, err := parseIntEnv("RATE_BURST", defaultRateBurst)
	if err != nil {
		return nil, err
	}
	cfg.RateBurst = burst

	if isProdLike(os.Getenv("APP_ENV")) && cfg.JWTSecret == defaultJWTSecret {
		return nil, fmt.Errorf("in prod JWT_SECRET must be set and not default")
	}

	return cfg, nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseFloatEnv(name, fallback string) (float64, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return f, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
