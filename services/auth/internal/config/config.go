package config

import (
	"os"
	"strconv"
	"time"

	"github.com/ahmedafzal2677/exact-sol-task/shared/token"
)

type Config struct {
	HTTPPort     string
	GRPCPort     string
	LogLevel     string
	TokenSecret  string
	TokenTTL     time.Duration
	CookieSecure bool
}

func Load() (*Config, error) {
	ttl, err := time.ParseDuration(getEnv("TOKEN_TTL", token.DefaultTTL.String()))
	if err != nil {
		return nil, err
	}
	secure, err := strconv.ParseBool(getEnv("AUTH_COOKIE_SECURE", "true"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPPort:     getEnv("AUTH_HTTP_PORT", "8081"),
		GRPCPort:     getEnv("AUTH_GRPC_PORT", "50051"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		TokenSecret:  getEnv("TOKEN_SECRET", "dev-token-secret"),
		TokenTTL:     ttl,
		CookieSecure: secure,
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
