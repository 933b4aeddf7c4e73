package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.False(t, cfg.SimulatedNotification)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 64, cfg.QueueSize)
	assert.Equal(t, 10*time.Second, cfg.NotificationTimeout)
	assert.Equal(t, int64(64*1024), cfg.MaxResponseSize)
	assert.Equal(t, "@every 10s", cfg.StatusSyncSchedule)
	assert.Equal(t, "notify.batches", cfg.NatsSubject)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := []byte("worker_count: 8\nnotification_timeout: 3s\nsimulated_notification: true\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o644))

	t.Setenv("DISPATCHER_WORKER_COUNT", "2")
	t.Setenv("DISPATCHER_LOG_LEVEL", "debug")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, 3*time.Second, cfg.NotificationTimeout)
	assert.True(t, cfg.SimulatedNotification)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("DISPATCHER_WORKER_COUNT", "0")

	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("worker_count: [oops"), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}
