package utils

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Checkout CheckoutConfig
	Saga     SagaConfig
	Worker   WorkerConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type CheckoutConfig struct {
	// PriceToleranceCents is the largest per-item price drift (in minor units)
	// still treated as "unchanged" during price re-verification.
	PriceToleranceCents int64
	SessionTTLMinutes   int
	CartTTLHours        int
}

type SagaConfig struct {
	MaxRetries          int
	RetryBackoff        time.Duration
	ExternalCallTimeout time.Duration
}

type WorkerConfig struct {
	ReconcileInterval time.Duration
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("PRICE_TOLERANCE_CENTS", 0)
	viper.SetDefault("SESSION_TTL_MINUTES", 30)
	viper.SetDefault("CART_TTL_HOURS", 72)
	viper.SetDefault("SAGA_MAX_RETRIES", 3)
	viper.SetDefault("SAGA_RETRY_BACKOFF_MS", 500)
	viper.SetDefault("EXTERNAL_CALL_TIMEOUT_MS", 10000)
	viper.SetDefault("RECONCILE_INTERVAL_SECONDS", 30)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Checkout: CheckoutConfig{
			PriceToleranceCents: viper.GetInt64("PRICE_TOLERANCE_CENTS"),
			SessionTTLMinutes:   viper.GetInt("SESSION_TTL_MINUTES"),
			CartTTLHours:        viper.GetInt("CART_TTL_HOURS"),
		},
		Saga: SagaConfig{
			MaxRetries:          viper.GetInt("SAGA_MAX_RETRIES"),
			RetryBackoff:        time.Duration(viper.GetInt("SAGA_RETRY_BACKOFF_MS")) * time.Millisecond,
			ExternalCallTimeout: time.Duration(viper.GetInt("EXTERNAL_CALL_TIMEOUT_MS")) * time.Millisecond,
		},
		Worker: WorkerConfig{
			ReconcileInterval: time.Duration(viper.GetInt("RECONCILE_INTERVAL_SECONDS")) * time.Second,
		},
	}

	return config, nil
}
