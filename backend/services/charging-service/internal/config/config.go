package config

import (
	"errors"
	"os"
	"strings"
	"time"

	libconfig "evcharge/backend/libs/config"
	libdb "evcharge/backend/libs/db"
	"evcharge/backend/libs/events"
	libredis "evcharge/backend/libs/redis"
	"evcharge/backend/libs/retry"
)

// Config defines charging service configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"CHARGING_HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN  string            `yaml:"dsn" env:"CHARGING_POSTGRES_DSN"`
		Pool libdb.PoolOptions `yaml:"pool"`
	} `yaml:"database"`
	Redis struct {
		libredis.Options `yaml:",inline"`
		ActiveTTL        time.Duration `yaml:"activeTTL"`
	} `yaml:"redis" env:"CHARGING_REDIS"`
	Services struct {
		UsersURL         string        `yaml:"usersURL" env:"USERS_SERVICE_URL"`
		StationsURL      string        `yaml:"stationsURL" env:"STATIONS_SERVICE_URL"`
		PaymentsURL      string        `yaml:"paymentsURL" env:"PAYMENTS_SERVICE_URL"`
		NotificationsURL string        `yaml:"notificationsURL" env:"NOTIFICATIONS_SERVICE_URL"`
		Timeout          time.Duration `yaml:"timeout" env:"SERVICES_TIMEOUT"`
	} `yaml:"services"`
	Settlement struct {
		Payment retry.Policy  `yaml:"payment"`
		Release retry.Policy  `yaml:"release"`
		LockTTL time.Duration `yaml:"lockTTL"`
	} `yaml:"settlement"`
	Sweep struct {
		Interval time.Duration `yaml:"interval"`
		MaxAge   time.Duration `yaml:"maxAge"`
		Batch    int           `yaml:"batch"`
	} `yaml:"sweep"`
	Events struct {
		events.StreamOptions `yaml:",inline"`
		Group                string `yaml:"group"`
		Consumer             string `yaml:"consumer"`
	} `yaml:"events"`
}

// Load reads configuration via shared helper.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8082"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.ActiveTTL = 24 * time.Hour
	cfg.Services.Timeout = 3 * time.Second
	cfg.Settlement.Payment = retry.DefaultPolicy()
	cfg.Settlement.Release = retry.Policy{
		MaxAttempts:    3,
		BaseDelay:      100 * time.Millisecond,
		MaxDelay:       time.Second,
		AttemptTimeout: 2 * time.Second,
	}
	cfg.Settlement.LockTTL = 2 * time.Minute
	cfg.Sweep.Interval = time.Minute
	cfg.Sweep.MaxAge = 2 * time.Minute
	cfg.Sweep.Batch = 100
	cfg.Events.Stream = events.DefaultStream
	cfg.Events.Group = "settlement"
	if host, err := os.Hostname(); err == nil {
		cfg.Events.Consumer = host
	}

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		return nil, errors.New("config: redis addr required")
	}
	for _, url := range []string{cfg.Services.UsersURL, cfg.Services.StationsURL, cfg.Services.PaymentsURL} {
		if strings.TrimSpace(url) == "" {
			return nil, errors.New("config: users, stations and payments urls required")
		}
	}
	if strings.TrimSpace(cfg.Events.Consumer) == "" {
		cfg.Events.Consumer = "charging-service"
	}
	if floor := cfg.MinLockTTL(); cfg.Settlement.LockTTL < floor {
		cfg.Settlement.LockTTL = floor
	}
	return cfg, nil
}

// MinLockTTL is the worst-case length of one settlement run: rate lookup, processPayment
// and cancelPayment under the payment policy, charger release and notification under the
// release policy, and slack for store calls. The settlement lock must not expire sooner.
func (c *Config) MinLockTTL() time.Duration {
	s := c.Settlement
	return 3*s.Payment.Budget() + 2*s.Release.Budget() + 10*time.Second
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	return libconfig.Address(c.HTTP.Port, "8082")
}
