package infra

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Audit log backends.
const (
	AuditBackendMemory   = "memory"
	AuditBackendPostgres = "postgres"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Player database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"player"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"player"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"player"`

	// Publisher database, read only. Falls back to the player database.
	PublisherDatabaseURL string `env:"PUBLISHER_DATABASE_URL"`

	RunMigrations bool `env:"RUN_MIGRATIONS" envDefault:"true"`

	// Kafka
	KafkaBrokers   string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled   bool   `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaGroupID   string `env:"KAFKA_GROUP_ID" envDefault:"player-service"`
	KafkaAutostart bool   `env:"KAFKA_AUTOSTART" envDefault:"false"`

	// Catalog cache. A zero TTL disables caching.
	RedisURL        string        `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"0s"`

	// Catalog circuit breaker
	CatalogBreakerThreshold int           `env:"CATALOG_BREAKER_THRESHOLD" envDefault:"5"`
	CatalogBreakerReset     time.Duration `env:"CATALOG_BREAKER_RESET" envDefault:"30s"`

	AuditLogBackend string `env:"AUDIT_LOG_BACKEND" envDefault:"memory"`

	// Logging. An empty LOG_FILE logs to stderr.
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`

	// Ops HTTP port, 0 disables the server.
	OpsPort int `env:"OPS_PORT" envDefault:"3200"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch c.AuditLogBackend {
	case AuditBackendMemory, AuditBackendPostgres:
	default:
		return fmt.Errorf("AUDIT_LOG_BACKEND must be %q or %q, got %q", AuditBackendMemory, AuditBackendPostgres, c.AuditLogBackend)
	}
	if c.CatalogCacheTTL < 0 {
		return fmt.Errorf("CATALOG_CACHE_TTL must not be negative, got %s", c.CatalogCacheTTL)
	}
	if c.CatalogBreakerThreshold < 1 {
		return fmt.Errorf("CATALOG_BREAKER_THRESHOLD must be at least 1, got %d", c.CatalogBreakerThreshold)
	}
	if c.KafkaEnabled && c.KafkaGroupID == "" {
		return fmt.Errorf("KAFKA_GROUP_ID is required when KAFKA_ENABLED=true")
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// PublisherDSN returns the catalog connection string.
func (c *Config) PublisherDSN() string {
	if c.PublisherDatabaseURL != "" {
		return c.PublisherDatabaseURL
	}
	return c.DSN()
}
