package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string
	DBRetries  int

	RedisAddr   string
	KafkaBroker string
	JWTSecret   string

	DecisionLockTTL  time.Duration
	DecisionRate     float64
	DecisionBurst    int
	DocumentCacheTTL time.Duration
	SectorCacheTTL   time.Duration
	OutboxPoll       time.Duration
}

// Load reads the process environment, after merging an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:     getEnv("PORT", "3000"),
		ReadTimeout:  getDuration("HTTP_READ_TIMEOUT", 5*time.Second),
		WriteTimeout: getDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
		IdleTimeout:  getDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "dispensa"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBRetries:  getInt("DB_MAX_RETRIES", 5),

		RedisAddr:   getOptional("REDIS_ADDR", "localhost:6379"),
		KafkaBroker: getEnv("KAFKA_BROKER", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),

		DecisionLockTTL:  getDuration("DECISION_LOCK_TTL", 5*time.Second),
		DecisionRate:     getFloat("DECISION_RATE_PER_SECOND", 2),
		DecisionBurst:    getInt("DECISION_RATE_BURST", 5),
		DocumentCacheTTL: getDuration("DOCUMENT_CACHE_TTL", 24*time.Hour),
		SectorCacheTTL:   getDuration("SECTOR_CACHE_TTL", 10*time.Minute),
		OutboxPoll:       getDuration("OUTBOX_POLL_INTERVAL", 3*time.Second),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// RequireKafka fails when no broker is configured; only the worker and consumer need one.
func (c *Config) RequireKafka() error {
	if c.KafkaBroker == "" {
		return fmt.Errorf("KAFKA_BROKER is required")
	}
	return nil
}

// RequireRedis fails when Redis was switched off; the consumer only exists to fill the Redis cache.
func (c *Config) RequireRedis() error {
	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// getOptional keeps an explicitly empty value, which switches the feature off.
func getOptional(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
