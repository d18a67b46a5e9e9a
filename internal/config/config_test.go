package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultsWhenFileMissing(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	cfg := m.Get()
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "adsbcot", cfg.Service.Unit)
	assert.Equal(t, "/etc/default/adsbcot", cfg.Service.EnvFile)
	assert.Equal(t, 100, cfg.Journal.DefaultLines)
	assert.Equal(t, 5, cfg.Journal.MaxFollow)
	assert.Equal(t, 2*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, 120, cfg.Monitor.HistorySize)
	assert.Equal(t, 20, cfg.Storage.MaxRevisions)
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Updater.Enabled)
}

func TestLoadsFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
service:
  unit: aprscot
  env_file: /etc/default/aprscot
journal:
  default_lines: 50
auth:
  enabled: true
  username: ops
monitor:
  interval: 5s
`)

	m, err := NewManager(path)
	require.NoError(t, err)

	cfg := m.Get()
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "aprscot", cfg.Service.Unit)
	assert.Equal(t, "/etc/default/aprscot", cfg.Service.EnvFile)
	assert.Equal(t, 50, cfg.Journal.DefaultLines)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, "ops", cfg.Auth.Username)
	assert.Equal(t, 5*time.Second, cfg.Monitor.Interval)

	// Unset sections keep their defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 120, cfg.Monitor.HistorySize)
}

func TestMalformedFileFails(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping\n")

	_, err := NewManager(path)
	assert.Error(t, err)
}

func TestReloadAppliesChanges(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")

	m, err := NewManager(path)
	require.NoError(t, err)
	require.Equal(t, 9000, m.Get().Server.Port)

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0644))
	require.NoError(t, m.Reload())

	assert.Equal(t, 9100, m.Get().Server.Port)
}

func TestOnReloadNotified(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")

	m, err := NewManager(path)
	require.NoError(t, err)

	notified := make(chan *Config, 1)
	m.OnReload(func(c *Config) {
		notified <- c
	})

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0644))
	require.NoError(t, m.Reload())

	select {
	case cfg := <-notified:
		assert.Equal(t, 9100, cfg.Server.Port)
	case <-time.After(2 * time.Second):
		t.Fatal("reload callback never fired")
	}
}

func TestAddress(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Host: "127.0.0.1", Port: 8181}}
	assert.Equal(t, "127.0.0.1:8181", cfg.Address())
}
