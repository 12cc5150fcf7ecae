package config

import (
	"errors"
	"strings"
	"time"

	libconfig "evcharge/backend/libs/config"
)

// Config defines gateway configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"API_GATEWAY_HTTP_PORT"`
	} `yaml:"http"`
	JWT struct {
		Secret string `yaml:"secret" env:"JWT_SECRET"`
	} `yaml:"jwt"`
	Services struct {
		UsersURL    string        `yaml:"usersURL" env:"USERS_SERVICE_URL"`
		ChargingURL string        `yaml:"chargingURL" env:"CHARGING_SERVICE_URL"`
		PaymentsURL string        `yaml:"paymentsURL" env:"PAYMENTS_SERVICE_URL"`
		StationsURL string        `yaml:"stationsURL" env:"STATIONS_SERVICE_URL"`
		Timeout     time.Duration `yaml:"timeout" env:"API_GATEWAY_HTTP_TIMEOUT"`
	} `yaml:"services"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowedOrigins" env:"CORS_ALLOWED_ORIGINS"`
	} `yaml:"cors"`
}

// Load configuration via shared helper.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8080"
	cfg.Services.Timeout = 5 * time.Second
	cfg.CORS.AllowedOrigins = []string{"http://localhost:5173"}

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, errors.New("config: jwt secret required")
	}
	s := cfg.Services
	for _, u := range []string{s.UsersURL, s.ChargingURL, s.PaymentsURL, s.StationsURL} {
		if strings.TrimSpace(u) == "" {
			return nil, errors.New("config: users, charging, payments and stations urls required")
		}
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	return libconfig.Address(c.HTTP.Port, "8080")
}

// HTTPTimeout returns http client timeout.
func (c *Config) HTTPTimeout() time.Duration {
	if c.Services.Timeout <= 0 {
		return 5 * time.Second
	}
	return c.Services.Timeout
}
