package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "REMOTE_TIMEOUT", "BUSINESS_IDS", "SYNC_SCHEDULE", "DB_DRIVER", "STALE_POLICY", "REMOTE_PUSH_URL", "REMOTE_BASE_URL", "CORS_ORIGINS", "API_RATE_LIMIT", "API_RATE_BURST", "PUSH_TRANSPORT"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, "@every 30s", cfg.SyncSchedule)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "discard", cfg.StalePolicy)
	assert.Empty(t, cfg.BusinessIDs)
	assert.Empty(t, cfg.CORSOrigins)
	assert.Equal(t, 50.0, cfg.APIRateLimit)
	assert.Equal(t, 100, cfg.APIRateBurst)
	assert.Equal(t, "ws", cfg.PushTransport)
	assert.Equal(t, "ws://localhost:9000", cfg.PushURL())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("BUSINESS_IDS", " b1, b2,,b1 ")
	t.Setenv("REMOTE_TIMEOUT", "5")
	t.Setenv("REMOTE_RATE_LIMIT", "2.5")
	t.Setenv("REMOTE_BASE_URL", "https://api.example.com")
	t.Setenv("REMOTE_PUSH_URL", "")
	t.Setenv("DB_DRIVER", "MySQL")

	cfg := FromEnv()
	assert.Equal(t, []string{"b1", "b2"}, cfg.BusinessIDs)
	assert.Equal(t, 5*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, 2.5, cfg.RemoteRateLimit)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, "wss://api.example.com", cfg.PushURL())

	t.Setenv("REMOTE_TIMEOUT", "nonsense")
	assert.Equal(t, 15*time.Second, FromEnv().RemoteTimeout)
}

func TestInitDBSqlite(t *testing.T) {
	db, err := InitDB(Config{DBDriver: "sqlite", DBDSN: "file:config_test?mode=memory&cache=shared"})
	require.NoError(t, err)
	assert.True(t, db.Migrator().HasTable("sync_checkpoints"))

	_, err = InitDB(Config{DBDriver: "oracle"})
	assert.Error(t, err)
}
