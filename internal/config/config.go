package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                   string
	DatabaseURL            string
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	QueueStatusTTL         time.Duration
	SessionTTL             time.Duration
	RateLimitPerMinute     int
	RateLimitBurst         int
	UserRateLimitPerMinute int
	UserRateLimitBurst     int
	OTLPEndpoint           string
	OTLPInsecure           bool
	LogLevel               string
}

func Load() Config {
	// Missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return Config{
		Port:                   port,
		DatabaseURL:            os.Getenv("DB_DSN"),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                readInt("REDIS_DB", 0),
		QueueStatusTTL:         readDurationSeconds("QUEUE_STATUS_TTL_SECONDS", 5),
		SessionTTL:             readDurationSeconds("SESSION_TTL_SECONDS", 7*24*3600),
		RateLimitPerMinute:     readInt("RATE_LIMIT_PER_MIN", 300),
		RateLimitBurst:         readInt("RATE_LIMIT_BURST", 60),
		UserRateLimitPerMinute: readInt("USER_RATE_LIMIT_PER_MIN", 120),
		UserRateLimitBurst:     readInt("USER_RATE_LIMIT_BURST", 30),
		OTLPEndpoint:           os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPInsecure:           readBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		LogLevel:               logLevel,
	}
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
