package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string
	PostgresDSN  string
	RedisAddr    string
	KafkaBrokers []string

	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	WebhookURL     string
	WebhookTimeout time.Duration

	ProcessorDelay       time.Duration
	ProcessorSuccessRate float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using default values", "error", err)
	}

	cfg := &Config{
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		PostgresDSN:          getEnv("POSTGRES_DSN", "host=localhost user=postgres password=postgres dbname=payments sslmode=disable"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:         []string{getEnv("KAFKA_BROKER", "localhost:9092")},
		JWTSecret:            getEnv("JWT_SECRET", "supersecret"),
		TokenTTL:             getDuration("TOKEN_TTL", 7*24*time.Hour),
		BcryptCost:           getInt("BCRYPT_COST", 12),
		WebhookURL:           getEnv("WEBHOOK_URL", "http://localhost:9099/webhook"),
		WebhookTimeout:       getDuration("WEBHOOK_TIMEOUT", 5*time.Second),
		ProcessorDelay:       getDuration("PROCESSOR_DELAY", time.Second),
		ProcessorSuccessRate: getFloat("PROCESSOR_SUCCESS_RATE", 0.9),
	}

	// bcrypt below cost 10 is too cheap for stored credentials
	if cfg.BcryptCost < 10 {
		cfg.BcryptCost = 10
	}

	slog.Info("config loaded",
		"http_addr", cfg.HTTPAddr,
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", cfg.KafkaBrokers,
		"webhook_url", cfg.WebhookURL,
		"token_ttl", cfg.TokenTTL)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		slog.Warn("invalid int in env, using default", "key", key, "value", v)
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		slog.Warn("invalid float in env, using default", "key", key, "value", v)
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		slog.Warn("invalid duration in env, using default", "key", key, "value", v)
	}
	return def
}
