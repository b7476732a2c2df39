package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port string
	Env  string
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MigrationsPath  string
}

type MidtransConfig struct {
	ServerKey  string
	Production bool
	Timeout    time.Duration
}

type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Midtrans MidtransConfig
}

// Load reads configuration from the environment, optionally seeded from a
// .env file. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := &Config{}

	cfg.App.Port = getEnv("APP_PORT", "8080")
	cfg.App.Env = getEnv("APP_ENV", "development")

	var err error
	if cfg.Postgres.Host, err = requireEnv("DB_HOST"); err != nil {
		return nil, err
	}
	if cfg.Postgres.Port, err = requireEnv("DB_PORT"); err != nil {
		return nil, err
	}
	if cfg.Postgres.User, err = requireEnv("DB_USER"); err != nil {
		return nil, err
	}
	if cfg.Postgres.Password, err = requireEnv("DB_PASSWORD"); err != nil {
		return nil, err
	}
	if cfg.Postgres.DBName, err = requireEnv("DB_NAME"); err != nil {
		return nil, err
	}
	cfg.Postgres.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Postgres.MaxConns = int32(getEnvInt("DB_MAX_CONNS", 10))
	cfg.Postgres.MinConns = int32(getEnvInt("DB_MIN_CONNS", 2))
	cfg.Postgres.MaxConnLifetime = getEnvDuration("DB_MAX_CONN_LIFETIME", time.Hour)
	cfg.Postgres.MigrationsPath = getEnv("DB_MIGRATIONS_PATH", "migrations")

	if cfg.Midtrans.ServerKey, err = requireEnv("MIDTRANS_SERVER_KEY"); err != nil {
		return nil, err
	}
	cfg.Midtrans.Production = getEnv("MIDTRANS_ENV", "sandbox") == "production"
	cfg.Midtrans.Timeout = getEnvDuration("MIDTRANS_TIMEOUT", 30*time.Second)

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func requireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
