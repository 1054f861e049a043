// Package config holds the MZ assistant configuration: Gemini credentials
// and model selection, persistence location, poller cadence, and logging.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all MZ configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Gemini  GeminiConfig  `yaml:"gemini"`
	Store   StoreConfig   `yaml:"store"`
	Poller  PollerConfig  `yaml:"poller"`
	Chat    ChatConfig    `yaml:"chat"`
	Logging LoggingConfig `yaml:"logging"`
}

// GeminiConfig configures the remote generation gateway.
type GeminiConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`       // conversational model
	ImageModel string `yaml:"image_model"` // one-shot image generation
	EditModel  string `yaml:"edit_model"`  // image editing
	VideoModel string `yaml:"video_model"` // long-running video generation
	Timeout    string `yaml:"timeout"`
}

// StoreConfig configures local persistence.
type StoreConfig struct {
	DataDir      string `yaml:"data_dir"`
	DatabaseFile string `yaml:"database_file"`
}

// PollerConfig configures long-running job polling.
type PollerConfig struct {
	StatusInterval  string `yaml:"status_interval"`  // gateway status-check cadence
	MessageInterval string `yaml:"message_interval"` // progress message rotation cadence
	MaxDuration     string `yaml:"max_duration"`     // force-fail bound for stuck jobs
}

// ChatConfig configures conversation defaults.
type ChatConfig struct {
	DefaultMode string `yaml:"default_mode"`
	TitleLimit  int    `yaml:"title_limit"` // rune cap for derived conversation titles
}

// LoggingConfig configures debug logging.
type LoggingConfig struct {
	DebugMode bool   `yaml:"debug_mode"`
	Level     string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Name:    "MZ",
		Version: "1.0.0",

		Gemini: GeminiConfig{
			BaseURL:    "https://generativelanguage.googleapis.com/v1beta",
			Model:      "gemini-2.5-flash",
			ImageModel: "imagen-4.0-generate-001",
			EditModel:  "gemini-2.5-flash-image-preview",
			VideoModel: "veo-2.0-generate-001",
			Timeout:    "120s",
		},

		Store: StoreConfig{
			DataDir:      filepath.Join(home, ".mz"),
			DatabaseFile: "mz.db",
		},

		Poller: PollerConfig{
			StatusInterval:  "10s",
			MessageInterval: "5s",
			MaxDuration:     "10m",
		},

		Chat: ChatConfig{
			DefaultMode: "default",
			TitleLimit:  40,
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Gemini.APIKey = key
	}
	if dir := os.Getenv("MZ_DATA_DIR"); dir != "" {
		c.Store.DataDir = dir
	}
	if os.Getenv("MZ_DEBUG") == "1" {
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
	}
}

// DatabasePath returns the full path of the SQLite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Store.DataDir, c.Store.DatabaseFile)
}

// GatewayTimeout returns the parsed gateway timeout.
func (c *Config) GatewayTimeout() time.Duration {
	return parseDuration(c.Gemini.Timeout, 120*time.Second)
}

// StatusInterval returns the parsed poller status-check interval.
func (c *Config) StatusInterval() time.Duration {
	return parseDuration(c.Poller.StatusInterval, 10*time.Second)
}

// MessageInterval returns the parsed progress rotation interval.
func (c *Config) MessageInterval() time.Duration {
	return parseDuration(c.Poller.MessageInterval, 5*time.Second)
}

// MaxPollDuration returns the parsed force-fail bound for stuck jobs.
func (c *Config) MaxPollDuration() time.Duration {
	return parseDuration(c.Poller.MaxDuration, 10*time.Minute)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
