package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr                  string
	PostgresDSN           string
	MigrationsURL         string
	RedisAddr             string
	KafkaBrokers          []string
	JWTSecret             string
	StripeSecretKey       string
	StripeWebhookSecret   string
	IdentityWebhookSecret string
	IdentityAPIURL        string
	IdentityAPIKey        string
	Currency              string
	AdminUserID           string
	OTLPEndpoint          string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using default values", "error", err)
	}

	cfg := &Config{
		Addr:                  os.Getenv("HTTP_ADDR"),
		PostgresDSN:           os.Getenv("POSTGRES_DSN"),
		MigrationsURL:         os.Getenv("MIGRATIONS_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		KafkaBrokers:          []string{os.Getenv("KAFKA_BROKER")},
		JWTSecret:             os.Getenv("JWT_SECRET"),
		StripeSecretKey:       os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:   os.Getenv("STRIPE_WEBHOOK_SECRET"),
		IdentityWebhookSecret: os.Getenv("IDENTITY_WEBHOOK_SECRET"),
		IdentityAPIURL:        os.Getenv("IDENTITY_API_URL"),
		IdentityAPIKey:        os.Getenv("IDENTITY_API_KEY"),
		Currency:              os.Getenv("CURRENCY"),
		AdminUserID:           os.Getenv("ADMIN_USER_ID"),
		OTLPEndpoint:          os.Getenv("OTLP_ENDPOINT"),
	}

	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = "host=localhost user=postgres password=postgres dbname=skillsync sslmode=disable"
	}
	if cfg.MigrationsURL == "" {
		cfg.MigrationsURL = "file://migrations"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if len(cfg.KafkaBrokers) == 1 && cfg.KafkaBrokers[0] == "" {
		cfg.KafkaBrokers = []string{"localhost:9092"}
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "supersecret"
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.OTLPEndpoint == "" {
		cfg.OTLPEndpoint = "localhost:4318"
	}

	slog.Info("config loaded",
		"addr", cfg.Addr,
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", cfg.KafkaBrokers,
		"currency", cfg.Currency)
	return cfg
}
