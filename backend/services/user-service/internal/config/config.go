package config

import (
	"errors"
	"strings"
	"time"

	libconfig "evcharge/backend/libs/config"
	libdb "evcharge/backend/libs/db"
	"evcharge/backend/libs/retry"
)

// Config represents service configuration loaded from YAML/env.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"USER_HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN  string            `yaml:"dsn" env:"USER_POSTGRES_DSN"`
		Pool libdb.PoolOptions `yaml:"pool"`
	} `yaml:"database"`
	JWT struct {
		Secret           string `yaml:"secret" env:"JWT_SECRET"`
		ExpiresInMinutes int    `yaml:"expiresInMinutes" env:"JWT_EXPIRES_MINUTES"`
	} `yaml:"jwt"`
	Password struct {
		BcryptCost int `yaml:"bcryptCost" env:"BCRYPT_COST"`
		MinLength  int `yaml:"minLength" env:"PASSWORD_MIN_LENGTH"`
	} `yaml:"password"`
	Services struct {
		// PaymentsURL enables wallet provisioning on signup. Empty disables it.
		PaymentsURL string        `yaml:"paymentsURL" env:"PAYMENTS_SERVICE_URL"`
		Timeout     time.Duration `yaml:"timeout" env:"SERVICES_TIMEOUT"`
		Retry       retry.Policy  `yaml:"retry"`
	} `yaml:"services"`
}

// Load reads configuration using the shared config loader.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8084"
	cfg.JWT.ExpiresInMinutes = 60
	cfg.Password.MinLength = 8
	cfg.Services.Timeout = 3 * time.Second
	cfg.Services.Retry = retry.DefaultPolicy()

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database DSN is required")
	}
	if cfg.JWT.Secret == "" {
		return nil, errors.New("config: jwt secret is required")
	}
	if cfg.JWT.ExpiresInMinutes <= 0 {
		cfg.JWT.ExpiresInMinutes = 60
	}

	return cfg, nil
}

// HTTPAddress ensures we always return host:port formatted string.
func (c *Config) HTTPAddress() string {
	return libconfig.Address(c.HTTP.Port, "8084")
}

// JWTExpiration converts configured expiry to duration.
func (c *Config) JWTExpiration() time.Duration {
	if c.JWT.ExpiresInMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.JWT.ExpiresInMinutes) * time.Minute
}
