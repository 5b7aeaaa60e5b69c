package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the door controller configuration.
type Config struct {
	// Persistent storage
	StoragePath  string `mapstructure:"storage_path"`  // credential region file
	DatabasePath string `mapstructure:"database_path"` // scan audit log

	// Control loop timing (milliseconds)
	PollInterval       int `mapstructure:"poll_interval"`
	EnrollPollInterval int `mapstructure:"enroll_poll_interval"`
	PostScanDelay      int `mapstructure:"post_scan_delay"`

	// Lock actuator
	UnlockDuration int `mapstructure:"unlock_duration"` // milliseconds the door stays unlocked
	LockedAngle    int `mapstructure:"locked_angle"`
	UnlockedAngle  int `mapstructure:"unlocked_angle"`

	// Card reader
	Reader         string                 `mapstructure:"reader"` // "simulator" or "serial"
	ReaderSettings map[string]interface{} `mapstructure:"reader_settings"`

	// Status API
	APIEnabled     bool   `mapstructure:"api_enabled"`
	APIPort        int    `mapstructure:"api_port"`
	APIAuthEnabled bool   `mapstructure:"api_auth_enabled"`
	APIJWTSecret   string `mapstructure:"api_jwt_secret"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

// DefaultConfig returns a configuration with default values. Timings match
// the door unit's stock firmware behavior.
func DefaultConfig() *Config {
	return &Config{
		StoragePath:        "./doorlock.eeprom",
		DatabasePath:       "./doorlock.db",
		PollInterval:       15,
		EnrollPollInterval: 10,
		PostScanDelay:      700,
		UnlockDuration:     3000,
		LockedAngle:        10,
		UnlockedAngle:      100,
		Reader:             "simulator",
		ReaderSettings:     make(map[string]interface{}),
		APIEnabled:         true,
		APIPort:            8089,
		APIAuthEnabled:     false,
		APIJWTSecret:       "",
		LogLevel:           "info",
		LogFile:            "",
	}
}

// Load loads configuration from file and environment variables.
func Load(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	setDefaults(v, cfg)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/rfid-door-lock")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".rfid-door-lock"))
		}
	}

	v.SetEnvPrefix("DOORLOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("storage_path", cfg.StoragePath)
	v.SetDefault("database_path", cfg.DatabasePath)
	v.SetDefault("poll_interval", cfg.PollInterval)
	v.SetDefault("enroll_poll_interval", cfg.EnrollPollInterval)
	v.SetDefault("post_scan_delay", cfg.PostScanDelay)
	v.SetDefault("unlock_duration", cfg.UnlockDuration)
	v.SetDefault("locked_angle", cfg.LockedAngle)
	v.SetDefault("unlocked_angle", cfg.UnlockedAngle)
	v.SetDefault("reader", cfg.Reader)
	v.SetDefault("reader_settings", cfg.ReaderSettings)
	v.SetDefault("api_enabled", cfg.APIEnabled)
	v.SetDefault("api_port", cfg.APIPort)
	v.SetDefault("api_auth_enabled", cfg.APIAuthEnabled)
	v.SetDefault("api_jwt_secret", cfg.APIJWTSecret)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_file", cfg.LogFile)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.StoragePath == "" {
		return fmt.Errorf("storage_path is required")
	}

	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}

	if c.EnrollPollInterval <= 0 {
		return fmt.Errorf("enroll_poll_interval must be positive")
	}

	if c.PostScanDelay < 0 {
		return fmt.Errorf("post_scan_delay must not be negative")
	}

	if c.UnlockDuration <= 0 {
		return fmt.Errorf("unlock_duration must be positive")
	}

	if c.LockedAngle == c.UnlockedAngle {
		return fmt.Errorf("locked_angle and unlocked_angle must differ")
	}

	if c.Reader != "simulator" && c.Reader != "serial" {
		return fmt.Errorf("reader must be one of: simulator, serial")
	}

	if c.APIEnabled && (c.APIPort <= 0 || c.APIPort > 65535) {
		return fmt.Errorf("api_port must be a valid TCP port")
	}

	if c.APIAuthEnabled && c.APIJWTSecret == "" {
		return fmt.Errorf("api_jwt_secret is required when api_auth_enabled is set")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}

	return nil
}
