package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigDir  = ".sideai"
	DefaultConfigFile = "config.yaml"
)

// Config represents the application configuration. User-facing chat
// settings (API key, models, generation parameters) live in the
// key/value store, not here; this file only controls where that store
// lives and whether debug logging is on.
type Config struct {
	// DataDir is the directory holding the key/value database and logs.
	// Empty means "<home>/.sideai".
	DataDir string `yaml:"data_dir"`

	// DebugLog enables the file debug logger.
	DebugLog bool `yaml:"debug_log"`
}

func DefaultConfig() *Config {
	return &Config{
		DataDir:  "",
		DebugLog: false,
	}
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, DefaultConfigDir)
	return filepath.Join(configDir, DefaultConfigFile), nil
}

// ResolveDataDir returns the effective data directory, creating it if needed.
func (c *Config) ResolveDataDir() (string, error) {
	dir := c.DataDir
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(homeDir, DefaultConfigDir)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dir, nil
}

// Load loads the configuration from file, creating default if not exists
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Config file doesn't exist, create default
		cfg := DefaultConfig()
		if err := Save(cfg); err != nil {
			// If save fails, just return default config without error
			// so the app still works on a read-only home.
			return cfg, nil
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// Save saves the configuration to file
func Save(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
