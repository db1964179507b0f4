package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var (
	// configDir is the configuration directory path
	// Can be set via SetConfigDir before loading config
	configDir     string
	configDirInit bool
)

// SetConfigDir sets a custom configuration directory
// Must be called before any config loading functions
func SetConfigDir(dir string) {
	configDir = dir
	configDirInit = true
}

// GetConfigDir returns the configuration directory
// Priority: 1. Manually set via SetConfigDir, 2. ./config in current directory
func GetConfigDir() string {
	if !configDirInit {
		// Default to ./config in current working directory
		cwd, err := os.Getwd()
		if err == nil {
			configDir = filepath.Join(cwd, "config")
		}
		configDirInit = true
	}
	return configDir
}

// Config application configuration structure
type Config struct {
	Search  SearchConfig  `yaml:"search"`
	History HistoryConfig `yaml:"history"`
}

// SearchConfig aggregation engine configuration
type SearchConfig struct {
	// SearXNGURL enables the self-hosted meta-search provider when set.
	SearXNGURL     string `yaml:"searxng_url"`
	UserAgent      string `yaml:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxResults     int    `yaml:"max_results"`

	// SearXNG basic auth; usually supplied via the .secrets file instead.
	SearXNGUsername string `yaml:"searxng_username,omitempty"`
	SearXNGPassword string `yaml:"searxng_password,omitempty"`
}

// HistoryConfig conversation history storage configuration
type HistoryConfig struct {
	DBPath string `yaml:"db_path"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Search: SearchConfig{
			SearXNGURL:     "",
			UserAgent:      "bplus/1.0",
			TimeoutSeconds: 15,
			MaxResults:     15,
		},
		History: HistoryConfig{
			DBPath: filepath.Join(homeDir, ".bplus", "research.db"),
		},
	}
}

// ConfigDir returns the configuration directory path
func ConfigDir() (string, error) {
	dir := GetConfigDir()
	if dir == "" {
		return "", fmt.Errorf("failed to determine config directory")
	}
	return dir, nil
}

// LogDir returns the log directory path
func LogDir() string {
	dir := GetConfigDir()
	if dir == "" {
		return "logs"
	}
	return filepath.Join(dir, "logs")
}

// ConfigPath returns the configuration file path
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load loads configuration from file and merges with secrets
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Config file doesn't exist, create default config
		cfg := DefaultConfig()
		mergeSecrets(cfg)

		if err := Save(cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse config
	cfg := DefaultConfig() // Use default values as base
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeSecrets(cfg)

	// Validate config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeSecrets fills credentials from the .secrets file when the
// config file leaves them blank.
func mergeSecrets(cfg *Config) {
	secrets, _ := LoadSecrets()
	if secrets == nil {
		return
	}
	if cfg.Search.SearXNGURL == "" {
		cfg.Search.SearXNGURL = secrets.GetSearXNGURL()
	}
	if cfg.Search.SearXNGUsername == "" {
		cfg.Search.SearXNGUsername = secrets.GetSearXNGUsername()
	}
	if cfg.Search.SearXNGPassword == "" {
		cfg.Search.SearXNGPassword = secrets.GetSearXNGPassword()
	}
}

// Save saves configuration to file
func Save(cfg *Config) error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	// Ensure config directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Serialize config
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	// Add header comment
	content := "# bplus-searchrs Configuration File\n\n" + string(data)

	// Write file
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Search.TimeoutSeconds <= 0 {
		return fmt.Errorf("config error: search.timeout_seconds must be greater than 0")
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("config error: search.max_results must be greater than 0")
	}
	if c.Search.UserAgent == "" {
		return fmt.Errorf("config error: search.user_agent cannot be empty")
	}
	if c.History.DBPath == "" {
		return fmt.Errorf("config error: history.db_path cannot be empty")
	}
	return nil
}

// String returns string representation of config (hides sensitive info)
func (c *Config) String() string {
	return fmt.Sprintf(`bplus-searchrs Configuration:
  Search:
    SearXNG URL: %s
    SearXNG Username: %s
    SearXNG Password: %s
    User Agent: %s
    Timeout Seconds: %d
    Max Results: %d
  History:
    DB Path: %s`,
		displayOrNone(c.Search.SearXNGURL),
		displayOrNone(c.Search.SearXNGUsername),
		redactSecret(c.Search.SearXNGPassword),
		c.Search.UserAgent,
		c.Search.TimeoutSeconds,
		c.Search.MaxResults,
		c.History.DBPath,
	)
}

func displayOrNone(value string) string {
	if value == "" {
		return "(not configured)"
	}
	return value
}

func redactSecret(value string) string {
	if value == "" {
		return "(not configured)"
	}
	return "***"
}
