// Package config loads the panel's own configuration file and hot-reloads
// it when it changes on disk.
package config

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all panel configuration values
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Service ServiceConfig `mapstructure:"service"`
	Journal JournalConfig `mapstructure:"journal"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Storage StorageConfig `mapstructure:"storage"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Updater UpdaterConfig `mapstructure:"updater"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ServiceConfig names the managed unit and its environment file
type ServiceConfig struct {
	Unit    string `mapstructure:"unit"`
	EnvFile string `mapstructure:"env_file"`
}

// JournalConfig holds log viewer configuration
type JournalConfig struct {
	DefaultLines int `mapstructure:"default_lines"`
	MaxFollow    int `mapstructure:"max_follow"`
}

// MonitorConfig holds status poller configuration
type MonitorConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	HistorySize int           `mapstructure:"history_size"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Path           string        `mapstructure:"path"`
	AuditRetention time.Duration `mapstructure:"audit_retention"`
	MaxRevisions   int           `mapstructure:"max_revisions"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// UpdaterConfig holds self-update configuration
type UpdaterConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Repo          string        `mapstructure:"repo"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Manager manages configuration with hot reload support
type Manager struct {
	config *Config
	viper  *viper.Viper
	mu     sync.RWMutex

	onReload []func(*Config)
}

// NewManager creates a configuration manager for the given file. A missing
// file is not an error; defaults apply until one is created.
func NewManager(configPath string) (*Manager, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	m := &Manager{
		config: &Config{},
		viper:  v,
	}

	if err := v.Unmarshal(m.config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Watch for config changes
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		m.reload()
	})

	return m, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults. 8181 keeps clear of the usual decoder ports.
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8181)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Service defaults
	v.SetDefault("service.unit", "adsbcot")
	v.SetDefault("service.env_file", "/etc/default/adsbcot")

	// Journal defaults
	v.SetDefault("journal.default_lines", 100)
	v.SetDefault("journal.max_follow", 5)

	// Monitor defaults
	v.SetDefault("monitor.interval", "2s")
	v.SetDefault("monitor.history_size", 120)

	// Storage defaults
	v.SetDefault("storage.path", "/var/lib/cotpanel/cotpanel.db")
	v.SetDefault("storage.audit_retention", "720h")
	v.SetDefault("storage.max_revisions", 20)

	// Auth defaults
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.username", "admin")
	v.SetDefault("auth.password", "changeme")

	// Updater defaults
	v.SetDefault("updater.enabled", true)
	v.SetDefault("updater.repo", "cotpanel/cotpanel")
	v.SetDefault("updater.check_interval", "24h")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// reload re-unmarshals the configuration and notifies listeners
func (m *Manager) reload() {
	m.mu.Lock()
	defer m.mu.Unlock()

	newConfig := &Config{}
	if err := m.viper.Unmarshal(newConfig); err != nil {
		return
	}

	m.config = newConfig

	for _, fn := range m.onReload {
		go fn(m.config)
	}
}

// Reload forces a configuration reload
func (m *Manager) Reload() error {
	if err := m.viper.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	m.reload()
	return nil
}

// OnReload registers a callback for configuration changes
func (m *Manager) OnReload(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReload = append(m.onReload, fn)
}

// Address returns the server address string
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
