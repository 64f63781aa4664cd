package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Profile    Profile    `yaml:"profile"`
	Generation Generation `yaml:"generation"`
	History    History    `yaml:"history"`
	Viewing    Viewing    `yaml:"viewing"`
	Sources    Sources    `yaml:"sources"`
	Output     Output     `yaml:"output"`
	Server     Server     `yaml:"server"`
	Logging    Logging    `yaml:"logging"`
}

type Profile struct {
	UserID       string   `yaml:"user_id"`
	DisplayName  string   `yaml:"display_name"`
	Categories   []string `yaml:"categories"`
	DailyMinutes int      `yaml:"daily_minutes"`
}

type Generation struct {
	WebhookURL          string `yaml:"webhook_url"`
	WebhookTimeout      int    `yaml:"webhook_timeout_seconds"`
	WatchTimeoutSeconds int    `yaml:"watch_timeout_seconds"`
	PollIntervalMs      int    `yaml:"poll_interval_ms"`
}

type History struct {
	MaxSummaries int `yaml:"max_summaries"`
}

type Viewing struct {
	ConfirmSeconds int `yaml:"confirm_seconds"`
}

type Sources struct {
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for learnloop.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "learnloop")
}

// DataDir returns the XDG data directory for learnloop.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "learnloop")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/learnloop/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'learnloop init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Profile: Profile{
			UserID:       "local",
			DisplayName:  "Learner",
			DailyMinutes: 5,
		},
		Generation: Generation{
			WebhookTimeout:      15,
			WatchTimeoutSeconds: 60,
			PollIntervalMs:      500,
		},
		History: History{MaxSummaries: 20},
		Viewing: Viewing{ConfirmSeconds: 5},
		Sources: Sources{FetchTimeoutSeconds: 15},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// WebhookTimeout returns the generation webhook HTTP timeout.
func (c *Config) WebhookTimeout() time.Duration {
	return time.Duration(c.Generation.WebhookTimeout) * time.Second
}

// WatchTimeout returns how long to wait for a generation result before
// marking the request timed out.
func (c *Config) WatchTimeout() time.Duration {
	return time.Duration(c.Generation.WatchTimeoutSeconds) * time.Second
}

// PollInterval returns how often the watcher checks for a delivered result.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Generation.PollIntervalMs) * time.Millisecond
}

// ConfirmDelay returns how long content must stay open before it counts
// as viewed.
func (c *Config) ConfirmDelay() time.Duration {
	return time.Duration(c.Viewing.ConfirmSeconds) * time.Second
}

// FetchTimeout returns the source excerpt HTTP timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Sources.FetchTimeoutSeconds) * time.Second
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
