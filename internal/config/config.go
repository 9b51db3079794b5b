// Package config defines the anticlanker YAML configuration file and its
// defaults. Process-level overrides (flags, environment) are layered on top
// by the CLI via viper.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level anticlanker configuration file.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	GroupMe    GroupMeConfig    `yaml:"groupme"`
	Model      ModelConfig      `yaml:"model"`
	Moderation ModerationConfig `yaml:"moderation"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
	CORSOrigins     []string `yaml:"cors_origins"`
	RatePerMinute   int      `yaml:"rate_per_minute"`
}

// AuthConfig controls credential intake for the authorization middleware.
type AuthConfig struct {
	// AllowQueryParams accepts api_key / admin_key query parameters as a
	// fallback for clients that cannot set headers. Disable in deployments
	// where URLs reach access logs.
	AllowQueryParams bool `yaml:"allow_query_params"`
}

// GroupMeConfig holds the GroupMe API credentials and group identity.
type GroupMeConfig struct {
	BaseURL     string   `yaml:"base_url"`
	AccessToken string   `yaml:"access_token"`
	BotID       string   `yaml:"bot_id"`
	GroupID     string   `yaml:"group_id"`
	Admins      []string `yaml:"admins"`
}

// ModelConfig points at the inference host and selects the active model.
type ModelConfig struct {
	Host         string `yaml:"host"`
	Name         string `yaml:"name"`
	TrainingFile string `yaml:"training_file"`
}

// ModerationConfig tunes the strike flow.
type ModerationConfig struct {
	// WarnStrikes is the strike count at which the offending message is
	// deleted with a warning; one more strike removes the member.
	WarnStrikes int      `yaml:"warn_strikes"`
	Ignored     []string `yaml:"ignored"`
}

// Default returns a Config with sensible defaults for a local deployment.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: "30s",
			CORSOrigins:     []string{"*"},
			RatePerMinute:   120,
		},
		GroupMe: GroupMeConfig{
			BaseURL: "https://api.groupme.com/v3",
		},
		Model: ModelConfig{
			Host: "http://127.0.0.1:11434",
			Name: "deepseek-r1:14b",
		},
		Moderation: ModerationConfig{
			WarnStrikes: 1,
		},
	}
}

// Load reads and parses a YAML config file, applying defaults for any
// omitted section.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// ShutdownTimeout parses the configured shutdown timeout, falling back to
// 30 seconds on a missing or malformed value.
func (c ServerConfig) ShutdownTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}
