package config

import (
	"errors"
	"strings"

	libconfig "evcharge/backend/libs/config"
	libdb "evcharge/backend/libs/db"
)

// Config defines payment service configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"PAYMENT_HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN  string            `yaml:"dsn" env:"PAYMENT_POSTGRES_DSN"`
		Pool libdb.PoolOptions `yaml:"pool"`
	} `yaml:"database"`
}

// Load configuration from file/env.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8083"

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	return cfg, nil
}

// HTTPAddress returns :port style string.
func (c *Config) HTTPAddress() string {
	return libconfig.Address(c.HTTP.Port, "8083")
}
