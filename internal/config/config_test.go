package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load consults so the host environment
// cannot leak into a case.
func clearEnv(t *testing.T) {
	for _, k := range []string{
		"APP_ENV", "APP_PORT", "DB_DRIVER", "DB_USER", "DB_PASS", "DB_HOST", "DB_PORT", "DB_NAME",
		"SQLITE_DSN", "JWT_SECRET", "OFFER_TTL", "BOOKING_PAST_GRACE", "BEST_SLOTS_LIMIT",
		"LOCK_BACKEND", "LOCK_TIMEOUT", "LOCK_LEASE", "OFFER_SWEEP_SCHEDULE", "LOG_LEVEL", "LOG_FORMAT",
		"EVENTS_ENABLED", "RABBITMQ_URL", "AMQP_URL", "EVENTS_EXCHANGE", "EVENTS_CONSUMER_ENABLED",
		"EVENTS_QUEUE", "EVENTS_LOG_PATH", "REDIS_ENABLED", "REDIS_ADDR", "REDIS_HOST", "REDIS_PORT",
		"RATE_LIMIT_BURST", "RATE_LIMIT_REFILL_EVERY", "RATE_LIMIT_CAPACITY", "CACHE_METHODS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("DB_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.DBDriver)
	assert.Equal(t, 15*time.Minute, cfg.OfferTTL)
	assert.Equal(t, 5*time.Minute, cfg.PastGrace)
	assert.Equal(t, LockLocal, cfg.LockBackend)
	assert.Equal(t, 3*time.Second, cfg.LockTimeout)
	assert.Equal(t, "@every 30s", cfg.OfferSweepSchedule)
	assert.Equal(t, 50, cfg.BestSlotsLimit)
	assert.Equal(t, "workspace.events", cfg.EventsExchange)
	assert.False(t, cfg.EventsEnabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Cache.Methods["GET"])
}

func TestLoadReportsEveryProblem(t *testing.T) {
	clearEnv(t)
	t.Setenv("OFFER_TTL", "soon")
	t.Setenv("LOCK_BACKEND", "zookeeper")

	_, err := Load()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{"JWT_SECRET", "DB_USER", "DB_HOST", "DB_PORT", "DB_NAME", "OFFER_TTL", "LOCK_BACKEND"} {
		assert.Contains(t, msg, want)
	}
	assert.NotContains(t, msg, "DB_PASS")
}

func TestLoadMySQLAndSQLite(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("DB_USER", "u")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "ws")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMySQL, cfg.DBDriver)
	assert.Equal(t, "db", cfg.DBHost)
	assert.Empty(t, cfg.DBPass)

	clearEnv(t)
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("DB_DRIVER", "SQLite")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Contains(t, cfg.SQLiteDSN, "_time_format=sqlite")
}

func TestRedisLockNeedsRedis(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("LOCK_BACKEND", "redis")
	t.Setenv("REDIS_ENABLED", "false")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOCK_BACKEND")
}

func TestRedisHostPortOverridesAddr(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_ADDR", "a:1")
	t.Setenv("REDIS_HOST", "b")
	t.Setenv("REDIS_PORT", "2")
	assert.Equal(t, "b:2", LoadRedisConfig().Addr)
}

func TestRateLimitShorthands(t *testing.T) {
	clearEnv(t)
	t.Setenv("RATE_LIMIT_BURST", "10")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	cfg := LoadRateLimitConfig()
	assert.Equal(t, 10, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	assert.GreaterOrEqual(t, cfg.TTL, 10*time.Second)
}

func TestParseMethods(t *testing.T) {
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, parseMethods(" get, HEAD ,"))
}
