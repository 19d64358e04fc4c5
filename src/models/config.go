package models

// MConfig Structure
type MConfig struct {
	Name        string           `yaml:"name" env:"APP_NAME"`
	Host        string           `yaml:"host" env:"APP_HOST"`
	Port        int              `yaml:"port" env:"APP_PORT"`
	LogLevel    string           `yaml:"log_level" env:"LOG_LEVEL"`
	CORSOrigins []string         `yaml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
	Storage     MStorageConfig   `yaml:"storage" envPrefix:"STORAGE_"`
	WebSocket   MWebSocketConfig `yaml:"websocket" envPrefix:"WS_"`
	Events      MEventsConfig    `yaml:"events" envPrefix:"EVENTS_"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type" env:"DB_TYPE"` // sqlite, postgres, redis
	DBPath             string `yaml:"db_path" env:"DB_PATH"`
	DBConnectionString string `yaml:"db_connection_string" env:"DB_CONNECTION_STRING"`
	Schema             string `yaml:"schema" env:"SCHEMA"` // postgres only, defaults to executable name
	RedisAddr          string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword      string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB            int    `yaml:"redis_db" env:"REDIS_DB"`
	KeyPrefix          string `yaml:"key_prefix" env:"KEY_PREFIX"` // redis only
}

type MWebSocketConfig struct {
	SendBuffer       int   `yaml:"send_buffer" env:"SEND_BUFFER"`
	WriteWaitSeconds int   `yaml:"write_wait_seconds" env:"WRITE_WAIT_SECONDS"`
	PongWaitSeconds  int   `yaml:"pong_wait_seconds" env:"PONG_WAIT_SECONDS"`
	MaxMessageSize   int64 `yaml:"max_message_size" env:"MAX_MESSAGE_SIZE"`
}

type MEventsConfig struct {
	Enabled             bool     `yaml:"enabled" env:"ENABLED"`
	Brokers             []string `yaml:"brokers" env:"BROKERS" envSeparator:","`
	Topic               string   `yaml:"topic" env:"TOPIC"`
	WriteTimeoutSeconds int      `yaml:"write_timeout_seconds" env:"WRITE_TIMEOUT_SECONDS"`
	BatchTimeoutMillis  int      `yaml:"batch_timeout_millis" env:"BATCH_TIMEOUT_MILLIS"`
}
