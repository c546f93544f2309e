package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Admission control
	RateLimitMax    int
	RateLimitWindow time.Duration

	// Room expiry
	RoomTTL           time.Duration
	RoomSweepInterval time.Duration
}

func LoadConfig() (*Config, error) {
	return &Config{
		Port:              getEnv("PORT", "8080"),
		RateLimitMax:      getEnvInt("RATE_LIMIT_MAX", 10),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", 60*time.Second),
		RoomTTL:           getEnvDuration("ROOM_TTL", 10*time.Minute),
		RoomSweepInterval: getEnvDuration("ROOM_SWEEP_INTERVAL", 10*time.Minute),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
