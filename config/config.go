// ABOUTME: Agent configuration and credential management
// ABOUTME: Handles config storage at XDG paths, environment variable overrides, and device ID generation
package config

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/oklog/ulid/v2"
)

// Config stores field-ops server credentials and agent settings.
type Config struct {
	Server        string `json:"server"`
	Token         string `json:"token,omitempty"`
	DeviceID      string `json:"device_id"`
	ListenAddr    string `json:"listen_addr"`
	SyncInterval  string `json:"sync_interval,omitempty"`
	ProbeInterval string `json:"probe_interval,omitempty"`
	LogLevel      string `json:"log_level,omitempty"`
}

// Defaults.
const (
	DefaultListenAddr    = "127.0.0.1:7337"
	DefaultSyncInterval  = time.Minute
	DefaultProbeInterval = 15 * time.Second
)

// Dir returns the XDG-compliant directory for agent state.
func Dir() string {
	return filepath.Join(xdg.DataHome, "fieldsync")
}

// Path returns the XDG-compliant path of the config file.
func Path() string {
	return filepath.Join(Dir(), "config.json")
}

// QueuePath returns the directory of the durable queue store.
func QueuePath() string {
	return filepath.Join(Dir(), "queue")
}

// HistoryPath returns the path of the sync-history database.
func HistoryPath() string {
	return filepath.Join(Dir(), "history.db")
}

// Load reads configuration from the XDG data directory. Returns defaults if
// the file does not exist. Environment variables override file values:
// - FIELDSYNC_SERVER
// - FIELDSYNC_TOKEN
// - FIELDSYNC_DEVICE_ID
// - FIELDSYNC_LISTEN
// - FIELDSYNC_LOG_LEVEL.
func Load() (*Config, error) {
	path := Path()

	cfg := &Config{
		ListenAddr: DefaultListenAddr,
		LogLevel:   "info",
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if server := os.Getenv("FIELDSYNC_SERVER"); server != "" {
		cfg.Server = server
	}
	if token := os.Getenv("FIELDSYNC_TOKEN"); token != "" {
		cfg.Token = token
	}
	if deviceID := os.Getenv("FIELDSYNC_DEVICE_ID"); deviceID != "" {
		cfg.DeviceID = deviceID
	}
	if listen := os.Getenv("FIELDSYNC_LISTEN"); listen != "" {
		cfg.ListenAddr = listen
	}
	if level := os.Getenv("FIELDSYNC_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
}

// Save writes the configuration to the XDG data directory.
func Save(cfg *Config) error {
	path := Path()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write config file with restricted permissions, it carries the token
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// IsConfigured checks whether the agent can reach a server.
func (c *Config) IsConfigured() bool {
	return c.Server != ""
}

// SyncEvery parses the configured sync interval, falling back to the
// default on empty or bad values.
func (c *Config) SyncEvery() time.Duration {
	d, err := time.ParseDuration(c.SyncInterval)
	if err != nil || d <= 0 {
		return DefaultSyncInterval
	}
	return d
}

// ProbeEvery parses the configured connectivity probe interval.
func (c *Config) ProbeEvery() time.Duration {
	d, err := time.ParseDuration(c.ProbeInterval)
	if err != nil || d <= 0 {
		return DefaultProbeInterval
	}
	return d
}

// GenerateDeviceID generates a new ULID for device identification.
func GenerateDeviceID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
