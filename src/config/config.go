package config

import (
	"fmt"
	"os"
	"strings"

	"trade-orders/src/models"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DBTypeSQLite   = "sqlite"
	DBTypePostgres = "postgres"
	DBTypeRedis    = "redis"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// databaseURL selects the store from a single DATABASE_URL.
type databaseURL struct {
	Value string `env:"DATABASE_URL"`
}

// -----------------------------------------------------------------------------

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{MConfig: &models.MConfig{}}
	cfg.applyDefaults()
	return cfg
}

// -----------------------------------------------------------------------------

// NewConfig builds the configuration from an optional YAML file, then the
// environment (.env is loaded first when present), then validates it.
func NewConfig(configPath string) (*Config, error) {
	var modelConfig models.MConfig

	// 1. YAML file
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
		}
		if err := yaml.Unmarshal(data, &modelConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
		}
	}

	// 2. Environment overrides
	_ = godotenv.Load()
	if err := env.Parse(&modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from environment: %w", err)
	}

	config := &Config{MConfig: &modelConfig}

	var dbURL databaseURL
	if err := env.Parse(&dbURL); err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if dbURL.Value != "" {
		if err := config.applyDatabaseURL(dbURL.Value); err != nil {
			return nil, err
		}
	}

	config.applyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDatabaseURL(raw string) error {
	switch {
	case strings.HasPrefix(raw, "sqlite:///"):
		c.Storage.DBType = DBTypeSQLite
		c.Storage.DBPath = strings.TrimPrefix(raw, "sqlite:///")
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		c.Storage.DBType = DBTypePostgres
		c.Storage.DBConnectionString = raw
	case strings.HasPrefix(raw, "redis://"), strings.HasPrefix(raw, "rediss://"):
		c.Storage.DBType = DBTypeRedis
		c.Storage.DBConnectionString = raw
	default:
		return fmt.Errorf("unsupported DATABASE_URL scheme: %q", raw)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "trade-orders"
	}
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}

	if c.Storage.DBType == "" {
		c.Storage.DBType = DBTypeSQLite
	}
	if c.Storage.DBType == DBTypeSQLite && c.Storage.DBPath == "" {
		c.Storage.DBPath = "./orders.db"
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "orders"
	}

	if c.WebSocket.SendBuffer == 0 {
		c.WebSocket.SendBuffer = 256
	}
	if c.WebSocket.WriteWaitSeconds == 0 {
		c.WebSocket.WriteWaitSeconds = 10
	}
	if c.WebSocket.PongWaitSeconds == 0 {
		c.WebSocket.PongWaitSeconds = 60
	}
	if c.WebSocket.MaxMessageSize == 0 {
		c.WebSocket.MaxMessageSize = 64 * 1024
	}

	if c.Events.Topic == "" {
		c.Events.Topic = "orders"
	}
	if c.Events.WriteTimeoutSeconds == 0 {
		c.Events.WriteTimeoutSeconds = 5
	}
	if c.Events.BatchTimeoutMillis == 0 {
		c.Events.BatchTimeoutMillis = 10
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	switch c.Storage.DBType {
	case DBTypeSQLite:
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case DBTypePostgres:
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	case DBTypeRedis:
		if c.Storage.DBConnectionString == "" && c.Storage.RedisAddr == "" {
			return fmt.Errorf("redis address or connection string must be set for redis")
		}
	case "":
		return fmt.Errorf("database type cannot be empty")
	default:
		return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
	}

	// Validate WebSocket configuration
	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("websocket send buffer must be greater than 0")
	}
	if c.WebSocket.WriteWaitSeconds <= 0 || c.WebSocket.PongWaitSeconds <= 0 {
		return fmt.Errorf("websocket timeouts must be greater than 0")
	}
	if c.WebSocket.MaxMessageSize <= 0 {
		return fmt.Errorf("websocket max message size must be greater than 0")
	}

	// Validate Events configuration
	if c.Events.Enabled {
		if len(c.Events.Brokers) == 0 {
			return fmt.Errorf("at least one broker must be configured when events are enabled")
		}
		if c.Events.Topic == "" {
			return fmt.Errorf("events topic cannot be empty")
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
