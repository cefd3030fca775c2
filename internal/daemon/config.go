// Package daemon loads configuration and wires the service together.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/listinggopher/listinggopher/internal/app/costs"
)

// Config is the TOML configuration, by default at
// ~/.listinggopher/config.toml. Every field has a working default; API keys
// are read from the environment, never from the file.
type Config struct {
	DataDir  string `toml:"data_dir"`
	LogLevel string `toml:"log_level"` // debug, info, warn, error

	API       APIConfig       `toml:"api"`
	Providers ProvidersConfig `toml:"providers"`
	Credits   CreditsConfig   `toml:"credits"`
	Costs     CostsConfig     `toml:"costs"`
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// ProviderConfig configures one generation backend.
type ProviderConfig struct {
	APIKeyEnv string `toml:"api_key_env"` // env var holding the key
	Model     string `toml:"model"`
	Timeout   string `toml:"timeout"` // duration string, e.g. "60s"
}

// APIKey resolves the provider's key from the environment.
func (p ProviderConfig) APIKey() string { return os.Getenv(p.APIKeyEnv) }

// TimeoutDuration parses the timeout, falling back to fallback on error.
func (p ProviderConfig) TimeoutDuration(fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(p.Timeout)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ProvidersConfig holds the primary and fallback providers.
type ProvidersConfig struct {
	OpenAI ProviderConfig `toml:"openai"`
	Gemini ProviderConfig `toml:"gemini"`
}

// CreditsConfig holds credit business settings.
type CreditsConfig struct {
	SignupGrant int64 `toml:"signup_grant"` // credits granted to a new owner
}

// CostsConfig configures the cost tracker.
type CostsConfig struct {
	AlertThresholdUSD float64                `toml:"alert_threshold_usd"`
	DefaultRates      costs.Rates            `toml:"default_rates"`
	Models            map[string]costs.Rates `toml:"models"`
}

// DefaultConfig returns working defaults for a local deployment.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:  filepath.Join(home, ".listinggopher"),
		LogLevel: "info",
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8860,
		},
		Providers: ProvidersConfig{
			OpenAI: ProviderConfig{
				APIKeyEnv: "OPENAI_API_KEY",
				Model:     "gpt-5.2",
				Timeout:   "60s",
			},
			Gemini: ProviderConfig{
				APIKeyEnv: "GEMINI_API_KEY",
				Model:     "gemini-2.0-flash",
				Timeout:   "60s",
			},
		},
		Credits: CreditsConfig{
			SignupGrant: 3,
		},
		Costs: CostsConfig{
			AlertThresholdUSD: 10.0,
			DefaultRates:      costs.Rates{InputPer1K: 0.0025, OutputPer1K: 0.01},
			Models: map[string]costs.Rates{
				"gpt-5.2":          {InputPer1K: 0.0025, OutputPer1K: 0.01},
				"gemini-2.0-flash": {InputPer1K: 0.002, OutputPer1K: 0.012},
			},
		},
	}
}

// DefaultConfigPath returns the standard config file location.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".listinggopher", "config.toml")
}

// LoadConfig reads path over the defaults. A missing file is not an error —
// the defaults stand.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
