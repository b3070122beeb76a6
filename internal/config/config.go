// Package config содержит логику чтения конфигурации интернет-магазина.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации интернет-магазина.
type Config struct {
	RunAddress            string `env:"RUN_ADDRESS"`
	DatabaseURI           string `env:"DATABASE_URI"`
	RedisAddress          string `env:"REDIS_ADDRESS"`
	PaymentGatewayAddress string `env:"PAYMENT_GATEWAY_ADDRESS"`

	AuthSecret    string `env:"AUTH_SECRET" envDefault:"storefront-secret"`
	APIKey        string `env:"API_KEY"`
	EncryptionKey string `env:"ENCRYPTION_KEY"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"no-reply@storefront.local"`

	EmailPollInterval   time.Duration `env:"EMAIL_POLL_INTERVAL" envDefault:"60s"`
	PaymentGatewayDelay time.Duration `env:"PAYMENT_GATEWAY_DELAY" envDefault:"1s"`

	TokenizeRateLimit float64 `env:"TOKENIZE_RATE_LIMIT" envDefault:"5"`
	TokenizeRateBurst int     `env:"TOKENIZE_RATE_BURST" envDefault:"10"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envRedisAddress := cfg.RedisAddress
	envGatewayAddress := cfg.PaymentGatewayAddress

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.RedisAddress, "r", "", "redis address for cart locks")
	flag.StringVar(&cfg.PaymentGatewayAddress, "g", "", "payment gateway address")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envRedisAddress != "" {
		cfg.RedisAddress = envRedisAddress
	}
	if envGatewayAddress != "" {
		cfg.PaymentGatewayAddress = envGatewayAddress
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.DatabaseURI == "" {
		return nil, errors.New("database URI is required")
	}

	return cfg, nil
}
