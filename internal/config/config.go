package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/honeynil/ParcelMatchService/internal/pricing"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	ServiceName string `env:"SERVICE_NAME" env-default:"parcel-match-service"`
	HTTPAddr    string `env:"HTTP_ADDR" env-default:":8080"`
	MetricsAddr string `env:"METRICS_ADDR" env-default:":9090"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`

	StorageDriver string `env:"STORAGE_DRIVER" env-default:"postgres"`
	PostgresDSN   string `env:"POSTGRES_DSN" env-default:"host=localhost user=postgres password=postgres dbname=parcels sslmode=disable"`
	RedisAddr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`

	KafkaBrokers            []string `env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	KafkaNotificationsTopic string   `env:"KAFKA_NOTIFICATIONS_TOPIC" env-default:"parcel-status"`
	KafkaPaymentsTopic      string   `env:"KAFKA_PAYMENTS_TOPIC" env-default:"payments"`
	KafkaGroupID            string   `env:"KAFKA_GROUP_ID" env-default:"parcel-match-service"`

	JWTSecret    string `env:"JWT_SECRET" env-default:"supersecret"`
	OTLPEndpoint string `env:"OTLP_ENDPOINT"`

	SenderRatePerKg     float64 `env:"PRICING_SENDER_RATE_PER_KG" env-default:"8"`
	TravelerPayoutPerKg float64 `env:"PRICING_TRAVELER_PAYOUT_PER_KG" env-default:"5"`
	InsurancePerKg      float64 `env:"PRICING_INSURANCE_PER_KG" env-default:"2"`

	// YAML file replacing the compiled-in moderation keyword list.
	ModerationKeywordsFile string `env:"MODERATION_KEYWORDS_FILE"`
}

func (c *Config) Rates() pricing.Rates {
	return pricing.Rates{
		SenderRatePerKg:     c.SenderRatePerKg,
		TravelerPayoutPerKg: c.TravelerPayoutPerKg,
		InsurancePerKg:      c.InsurancePerKg,
	}
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if err := c.Rates().Validate(); err != nil {
		return fmt.Errorf("invalid pricing rates: %w", err)
	}
	return nil
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using environment and defaults", "error", err)
	}

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Info("config loaded",
		"http_addr", cfg.HTTPAddr,
		"storage_driver", cfg.StorageDriver,
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", cfg.KafkaBrokers,
		"sender_rate_per_kg", cfg.SenderRatePerKg,
		"traveler_payout_per_kg", cfg.TravelerPayoutPerKg,
		"insurance_per_kg", cfg.InsurancePerKg,
	)
	return cfg, nil
}
