package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3000, cfg.UnlockDuration)
	assert.Equal(t, 15, cfg.PollInterval)
	assert.Equal(t, 10, cfg.LockedAngle)
	assert.Equal(t, 100, cfg.UnlockedAngle)
	assert.Equal(t, "simulator", cfg.Reader)
	assert.Equal(t, "info", cfg.LogLevel)

	require.NoError(t, cfg.Validate())
}

func TestLoadWithoutConfigFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().UnlockDuration, cfg.UnlockDuration)
}

func TestLoadFromFile(t *testing.T) {
	configYAML := `
storage_path: /var/lib/doorlock/eeprom.bin
database_path: /var/lib/doorlock/audit.db
unlock_duration: 5000
reader: serial
reader_settings:
  devicePath: /dev/ttyUSB0
  baudRate: 115200
log_level: debug
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/doorlock/eeprom.bin", cfg.StoragePath)
	assert.Equal(t, 5000, cfg.UnlockDuration)
	assert.Equal(t, "serial", cfg.Reader)
	assert.Equal(t, "/dev/ttyUSB0", cfg.ReaderSettings["devicePath"])
	assert.Equal(t, "debug", cfg.LogLevel)

	// Unspecified keys keep their defaults
	assert.Equal(t, 15, cfg.PollInterval)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		expectError bool
	}{
		{
			name:        "default config is valid",
			modify:      func(c *Config) {},
			expectError: false,
		},
		{
			name:        "missing storage path",
			modify:      func(c *Config) { c.StoragePath = "" },
			expectError: true,
		},
		{
			name:        "missing database path",
			modify:      func(c *Config) { c.DatabasePath = "" },
			expectError: true,
		},
		{
			name:        "zero poll interval",
			modify:      func(c *Config) { c.PollInterval = 0 },
			expectError: true,
		},
		{
			name:        "negative post scan delay",
			modify:      func(c *Config) { c.PostScanDelay = -1 },
			expectError: true,
		},
		{
			name:        "zero unlock duration",
			modify:      func(c *Config) { c.UnlockDuration = 0 },
			expectError: true,
		},
		{
			name:        "equal lock angles",
			modify:      func(c *Config) { c.UnlockedAngle = c.LockedAngle },
			expectError: true,
		},
		{
			name:        "unknown reader",
			modify:      func(c *Config) { c.Reader = "wiegand" },
			expectError: true,
		},
		{
			name:        "invalid api port",
			modify:      func(c *Config) { c.APIPort = 70000 },
			expectError: true,
		},
		{
			name:        "auth enabled without secret",
			modify:      func(c *Config) { c.APIAuthEnabled = true },
			expectError: true,
		},
		{
			name: "auth enabled with secret",
			modify: func(c *Config) {
				c.APIAuthEnabled = true
				c.APIJWTSecret = "bench-secret"
			},
			expectError: false,
		},
		{
			name:        "invalid log level",
			modify:      func(c *Config) { c.LogLevel = "verbose" },
			expectError: true,
		},
		{
			name:        "api disabled ignores port",
			modify:      func(c *Config) { c.APIEnabled = false; c.APIPort = 0 },
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
