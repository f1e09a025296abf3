package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8070", cfg.Addr)
	assert.Equal(t, "./audit-archive", cfg.AuditDir)
	assert.Equal(t, "terminal.audit", cfg.KafkaTopic)
	assert.Equal(t, 256, cfg.AuditBuffer)
	assert.False(t, cfg.StrictRelease)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TERMINAL_ADDR", ":9090")
	t.Setenv("TERMINAL_KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	t.Setenv("TERMINAL_STRICT_RELEASE", "true")
	t.Setenv("TERMINAL_RATE_RPS", "5.5")
	t.Setenv("DATABASE_URL", "postgres://fallback")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.StrictRelease)
	assert.Equal(t, 5.5, cfg.RateRPS)

	// TERMINAL_DATABASE_URL wins over the plain DATABASE_URL fallback.
	assert.Equal(t, "postgres://fallback", cfg.DatabaseURL)
	t.Setenv("TERMINAL_DATABASE_URL", "postgres://primary")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://primary", cfg.DatabaseURL)
}
