package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(env(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 128, cfg.SendBuffer)
	assert.Equal(t, 2*time.Second, cfg.SendTimeout)
	assert.Equal(t, int64(1<<20), cfg.MaxMessageBytes)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod())
	assert.Empty(t, cfg.DBURL)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := load(env(map[string]string{
		"PORT":                  "9000",
		"REDIS_URL":             " redis://localhost:6379/0 ",
		"COLLAB_IDLE_TIMEOUT":   "90s",
		"COLLAB_SWEEP_INTERVAL": "15s",
		"COLLAB_SEND_BUFFER":    "16",
		"LOG_LEVEL":             "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, 90*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 15*time.Second, cfg.SweepInterval)
	assert.Equal(t, 16, cfg.SendBuffer)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestHTTPAddrWinsOverPort(t *testing.T) {
	cfg, err := load(env(map[string]string{"PORT": "9000", "HTTP_ADDR": "127.0.0.1:7000"}))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.HTTPAddr)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := load(env(map[string]string{
		"COLLAB_IDLE_TIMEOUT": "soon",
		"COLLAB_SEND_BUFFER":  "many",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COLLAB_IDLE_TIMEOUT")
	assert.Contains(t, err.Error(), "COLLAB_SEND_BUFFER")
}

func TestLoadRejectsSweepLongerThanTimeout(t *testing.T) {
	_, err := load(env(map[string]string{
		"COLLAB_IDLE_TIMEOUT":   "1m",
		"COLLAB_SWEEP_INTERVAL": "2m",
	}))
	assert.ErrorContains(t, err, "must not exceed")
}

func TestSendTimeoutBoundedByWriteWait(t *testing.T) {
	_, err := load(env(map[string]string{
		"COLLAB_SEND_TIMEOUT": "20s",
		"COLLAB_WRITE_WAIT":   "5s",
	}))
	assert.ErrorContains(t, err, "COLLAB_SEND_TIMEOUT")
}
