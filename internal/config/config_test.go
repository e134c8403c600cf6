package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads; getenv treats "" as unset.
func clearEnv(t *testing.T) {
	for _, k := range []string{
		"HTTP_ADDR", "CORS_ALLOWED_ORIGINS", "GRPC_ADDR", "STORE_DRIVER", "PG_URL", "PG_MAX_CONNS", "REDIS_ADDR",
		"KAFKA_ADDR", "OUTBOX_TOPIC", "OTLP_ENDPOINT", "LOG_LEVEL", "SHUTDOWN_TIMEOUT",
		"LOCK_TIMEOUT_MS", "IDEMPOTENCY_TTL", "CONFLICT_RETRIES", "RELAY_BATCH_SIZE", "RELAY_INTERVAL_MS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Second, cfg.LockTimeout)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, 3, cfg.ConflictRetries)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("LOCK_TIMEOUT_MS", "750")
	t.Setenv("SHUTDOWN_TIMEOUT", "3")
	t.Setenv("CONFLICT_RETRIES", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 750*time.Millisecond, cfg.LockTimeout)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 3, cfg.ConflictRetries)
}

func TestLoadBrokerList(t *testing.T) {
	clearEnv(t)
	t.Setenv("KAFKA_ADDR", "k1:9092, k2:9092,,")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"unknown driver":   {"STORE_DRIVER", "sqlite"},
		"zero lock wait":   {"LOCK_TIMEOUT_MS", "0"},
		"negative retries": {"CONFLICT_RETRIES", "-1"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadKafkaNeedsPostgres(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("KAFKA_ADDR", "localhost:9092")
	_, err := Load()
	assert.Error(t, err)
}
