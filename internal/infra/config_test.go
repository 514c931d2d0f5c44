package infra

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "player-service", cfg.KafkaGroupID)
	assert.False(t, cfg.KafkaEnabled)
	assert.False(t, cfg.KafkaAutostart)
	assert.Equal(t, AuditBackendMemory, cfg.AuditLogBackend)
	assert.Equal(t, time.Duration(0), cfg.CatalogCacheTTL)
	assert.Equal(t, 5, cfg.CatalogBreakerThreshold)
	assert.Equal(t, 30*time.Second, cfg.CatalogBreakerReset)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_GROUP_ID", "players-eu")
	t.Setenv("CATALOG_CACHE_TTL", "30s")
	t.Setenv("AUDIT_LOG_BACKEND", "postgres")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, "players-eu", cfg.KafkaGroupID)
	assert.Equal(t, 30*time.Second, cfg.CatalogCacheTTL)
	assert.Equal(t, AuditBackendPostgres, cfg.AuditLogBackend)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown audit backend", func(c *Config) { c.AuditLogBackend = "s3" }, "AUDIT_LOG_BACKEND"},
		{"negative ttl", func(c *Config) { c.CatalogCacheTTL = -time.Second }, "CATALOG_CACHE_TTL"},
		{"breaker threshold", func(c *Config) { c.CatalogBreakerThreshold = 0 }, "CATALOG_BREAKER_THRESHOLD"},
		{"kafka without group", func(c *Config) { c.KafkaEnabled = true; c.KafkaGroupID = "" }, "KAFKA_GROUP_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{AuditLogBackend: AuditBackendMemory, KafkaGroupID: "g", CatalogBreakerThreshold: 5}
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{PGUser: "u", PGPassword: "p", PGHost: "db", PGPort: 5433, PGDatabase: "player"}
	assert.Equal(t, "postgres://u:p@db:5433/player?sslmode=disable", cfg.DSN())
	assert.Equal(t, cfg.DSN(), cfg.PublisherDSN())

	cfg.DatabaseURL = "postgres://override"
	cfg.PublisherDatabaseURL = "postgres://publisher"
	assert.Equal(t, "postgres://override", cfg.DSN())
	assert.Equal(t, "postgres://publisher", cfg.PublisherDSN())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLogger_RotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "player.log")
	logger, closer := NewLogger(&Config{LogLevel: "info", LogFile: path, LogMaxSizeMB: 1})

	logger.Debug("hidden")
	logger.Info("install applied", "player_id", 1)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"install applied"`)
	assert.NotContains(t, string(data), "hidden")
}
