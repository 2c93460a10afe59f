package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName            string        `env:"APP_NAME" env-default:"rams"`
	Port               int           `env:"PORT" env-default:"3000"`
	LogLevel           string        `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs         bool          `env:"PRETTY_LOGS" env-default:"false"`
	HttpReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	HttpWriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	StartupMaxAttempts int           `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`
	Version            string        `env:"APP_VERSION" env-default:"dev"`

	// Database host
	DatabaseHost string `env:"DB_HOST" env-default:"localhost"`
	// Database port
	DatabasePort int `env:"DB_PORT" env-default:"5432"`
	// Database user
	DatabaseUserName string `env:"DB_USER_NAME" env-default:"postgres"`
	// Database user password
	DatabasePassword string `env:"DB_PASSWORD" env-default:""`
	// Database name
	DatabaseName string `env:"DB_NAME" env-default:"rams"`
	// Database SSL Mode
	DatabaseSSLMode string `env:"DB_SSL_MODE" env-default:"disable"`
	// Max Open Conns
	DatabaseMaxOpenConns int `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	// Max Idle Conns
	DatabaseMaxIdleConns int `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	// Conn Max Lifetime
	DatabaseConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"5m"`

	// Migration folder path; the embedded migrations are used when it does not exist
	MigrationFolderPath string `env:"MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	// Target migration version, 0 for latest
	MigrationVersion int `env:"MIGRATION_VERSION" env-default:"0"`
	// Version to force before migrating, 0 to skip
	MigrationForce int `env:"MIGRATION_FORCE" env-default:"0"`
	// Roll a dirty database back to its previous version
	MigrationAutoRollback bool `env:"MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	KafkaEnabled        bool     `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers        []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaSightingsTopic string   `env:"KAFKA_SIGHTINGS_TOPIC" env-default:"rams.sightings"`

	RedisEnabled          bool   `env:"REDIS_ENABLED" env-default:"false"`
	RedisHost             string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort             int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword         string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB               int    `env:"REDIS_DB" env-default:"0"`
	RedisSightingsChannel string `env:"REDIS_SIGHTINGS_CHANNEL" env-default:"rams:sightings"`

	OtelEnabled  bool   `env:"OTEL_ENABLED" env-default:"false"`
	OtelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4317"`
	// grpc or http
	OtelProtocol string `env:"OTEL_EXPORTER_OTLP_PROTOCOL" env-default:"grpc"`
	OtelInsecure bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" env-default:"true"`
	// Comma separated key=value pairs sent with every export
	OtelHeaders      []string      `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	OtelTimeout      time.Duration `env:"OTEL_EXPORTER_OTLP_TIMEOUT" env-default:"10s"`
	OtelSamplingRate float64       `env:"OTEL_SAMPLING_RATE" env-default:"1.0"`

	// Mapping applied to undiscovered imports when the request names none
	UndiscoveredMapping string `env:"UNDISCOVERED_MAPPING" env-default:"sap-v1"`
	// How long an import holds the feed lock
	UndiscoveredImportLockTTL time.Duration `env:"UNDISCOVERED_IMPORT_LOCK_TTL" env-default:"2m"`
}

// Load reads an optional .env file and then the process environment
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.MigrationVersion < 0 {
		return nil, fmt.Errorf("MIGRATION_VERSION must not be negative, got %d", cfg.MigrationVersion)
	}
	return &cfg, nil
}
