package main

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPPort           string
	LogLevel           string
	BackendURL         string
	BackendTimeout     time.Duration
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	MaxImageSize       int64
	AllowedOrigins     []string

	CatalogTTL time.Duration
	OrdersTTL  time.Duration

	SessionTTL    time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JournalPath string
	// MigrationsPath overrides the migrations embedded in the binary.
	MigrationsPath string

	KafkaBrokers []string
	KafkaTopic   string
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		BackendURL:         getEnv("BACKEND_URL", "http://localhost:8000"),
		BackendTimeout:     getEnvDuration("BACKEND_TIMEOUT", 10*time.Second),
		BreakerMaxFailures: uint32(getEnvInt("BREAKER_MAX_FAILURES", 5)),
		BreakerOpenTimeout: getEnvDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: 1 << 20, // 1MB
		MaxImageSize:       int64(getEnvInt("MAX_IMAGE_SIZE", 5<<20)),
		AllowedOrigins:     getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		CatalogTTL: getEnvDuration("CATALOG_TTL", time.Minute),
		OrdersTTL:  getEnvDuration("ORDERS_TTL", 5*time.Minute),

		SessionTTL:    getEnvDuration("SESSION_TTL", 8*time.Hour),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JournalPath:    getEnv("JOURNAL_PATH", "pos-journal.db"),
		MigrationsPath: getEnv("JOURNAL_MIGRATIONS_PATH", ""),

		KafkaBrokers: getEnvList("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "pos.orders"),
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
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
