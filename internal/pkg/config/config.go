// Package config loads service configuration from an optional YAML file and
// ORDERING_* environment variables, env taking precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "ORDERING_"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	Redis     RedisConfig     `koanf:"redis"`
	Broker    BrokerConfig    `koanf:"broker"`
	Outbox    OutboxConfig    `koanf:"outbox"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
}

type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver      string `koanf:"driver"`
	SQLitePath  string `koanf:"sqlitepath"`
	PostgresDSN string `koanf:"postgresdsn"`
}

type RedisConfig struct {
	Addr string `koanf:"addr"`
}

type BrokerConfig struct {
	URL string `koanf:"url"`
}

type OutboxConfig struct {
	// Enabled switches event propagation from direct best-effort publish to
	// the transactional outbox + relay.
	Enabled      bool          `koanf:"enabled"`
	PollInterval time.Duration `koanf:"pollinterval"`
	BatchSize    int           `koanf:"batchsize"`
}

type TelemetryConfig struct {
	ServiceName string `koanf:"servicename"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Store: StoreConfig{
			Driver:     "sqlite",
			SQLitePath: "./data/ordering.db",
		},
		Redis:  RedisConfig{Addr: "localhost:6379"},
		Broker: BrokerConfig{URL: "nats://localhost:4222"},
		Outbox: OutboxConfig{
			Enabled:      true,
			PollInterval: time.Second,
			BatchSize:    50,
		},
		Telemetry: TelemetryConfig{ServiceName: "order-service"},
	}
}

// Load reads the config file at path (skipped if empty or missing) and then
// applies ORDERING_* environment variables, e.g. ORDERING_STORE_DRIVER.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("config: load %s: %w", path, err)
			}
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	cfg := defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("config: store.sqlitepath is required with the sqlite driver")
		}
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("config: store.postgresdsn is required with the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	return nil
}
