package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "evcharge/backend/libs/config"
	"evcharge/backend/libs/contracts"
	libdb "evcharge/backend/libs/db"
	"evcharge/backend/libs/retry"
)

// Config defines station service configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"STATION_HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN  string            `yaml:"dsn" env:"STATION_POSTGRES_DSN"`
		Pool libdb.PoolOptions `yaml:"pool"`
	} `yaml:"database"`
	Services struct {
		UsersURL    string        `yaml:"usersURL" env:"USERS_SERVICE_URL"`
		ChargingURL string        `yaml:"chargingURL" env:"CHARGING_SERVICE_URL"`
		Timeout     time.Duration `yaml:"timeout" env:"SERVICES_TIMEOUT"`
		Retry       retry.Policy  `yaml:"retry"`
	} `yaml:"services"`
	WebSocket struct {
		PingIntervalSeconds      int `yaml:"pingIntervalSeconds" env:"OCPP_PING_INTERVAL"`
		WriteTimeoutSeconds      int `yaml:"writeTimeoutSeconds" env:"OCPP_WRITE_TIMEOUT"`
		HeartbeatIntervalSeconds int `yaml:"heartbeatIntervalSeconds" env:"OCPP_HEARTBEAT_INTERVAL"`
	} `yaml:"websocket"`
	Tariffs struct {
		// DefaultPricePerKWh is quoted when no tariff matches. Empty disables it.
		DefaultPricePerKWh string `yaml:"defaultPricePerKWh" env:"DEFAULT_PRICE_PER_KWH"`
	} `yaml:"tariffs"`
}

// Load uses shared config loader and validates required fields.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8081"
	cfg.Services.Timeout = 3 * time.Second
	cfg.Services.Retry = retry.Policy{
		MaxAttempts:    3,
		BaseDelay:      200 * time.Millisecond,
		MaxDelay:       2 * time.Second,
		AttemptTimeout: 3 * time.Second,
		Jitter:         0.2,
	}
	cfg.WebSocket.PingIntervalSeconds = 30
	cfg.WebSocket.WriteTimeoutSeconds = 15
	cfg.WebSocket.HeartbeatIntervalSeconds = 300

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database DSN is required")
	}
	if strings.TrimSpace(cfg.Services.UsersURL) == "" || strings.TrimSpace(cfg.Services.ChargingURL) == "" {
		return nil, errors.New("config: users and charging urls required")
	}
	if _, err := cfg.DefaultPrice(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// HTTPAddress returns :port style address.
func (c *Config) HTTPAddress() string {
	return libconfig.Address(c.HTTP.Port, "8081")
}

// PingInterval returns websocket ping interval.
func (c *Config) PingInterval() time.Duration {
	if c.WebSocket.PingIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.WebSocket.PingIntervalSeconds) * time.Second
}

// WriteTimeout returns websocket write timeout.
func (c *Config) WriteTimeout() time.Duration {
	if c.WebSocket.WriteTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.WebSocket.WriteTimeoutSeconds) * time.Second
}

// HeartbeatInterval is sent to stations in BootNotification.
func (c *Config) HeartbeatInterval() time.Duration {
	if c.WebSocket.HeartbeatIntervalSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.WebSocket.HeartbeatIntervalSeconds) * time.Second
}

// DefaultPrice parses the fallback price; nil when unset.
func (c *Config) DefaultPrice() (*contracts.Money, error) {
	raw := strings.TrimSpace(c.Tariffs.DefaultPricePerKWh)
	if raw == "" {
		return nil, nil
	}
	price, err := contracts.NewMoney(raw)
	if err != nil {
		return nil, fmt.Errorf("config: default price: %w", err)
	}
	if price.IsNegative() {
		return nil, errors.New("config: default price must not be negative")
	}
	return &price, nil
}
