package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/tradelog/risk"
)

// Config represents the complete ledger configuration
type Config struct {
	Ledger LedgerConfig `json:"ledger" yaml:"ledger"`
	Risk   RiskConfig   `json:"risk" yaml:"risk"`
	Broker BrokerConfig `json:"broker" yaml:"broker"`
	Log    LogConfig    `json:"log" yaml:"log"`
}

// LedgerConfig locates the trade store. Timezone is an IANA name; calendar
// dates for deadlines and analytics are taken in it.
type LedgerConfig struct {
	DBPath   string `json:"db_path" yaml:"db_path"`
	Timezone string `json:"timezone" yaml:"timezone"`
}

// RiskConfig contains monitor thresholds and pacing
type RiskConfig struct {
	WarningPercent       float64 `json:"warning_percent" yaml:"warning_percent"`
	CriticalPercent      float64 `json:"critical_percent" yaml:"critical_percent"`
	PollInterval         string  `json:"poll_interval" yaml:"poll_interval"` // e.g. "30s"
	PriceTimeout         string  `json:"price_timeout" yaml:"price_timeout"` // per lookup
	MaxConcurrentFetches int     `json:"max_concurrent_fetches" yaml:"max_concurrent_fetches"`
}

type BrokerConfig struct {
	Provider string `json:"provider" yaml:"provider"`
	PageSize int    `json:"page_size,omitempty" yaml:"page_size,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Pretty bool   `json:"pretty" yaml:"pretty"`
}

func (r RiskConfig) Thresholds() risk.Thresholds {
	return risk.Thresholds{WarningPercent: r.WarningPercent, CriticalPercent: r.CriticalPercent}
}

// Poll parses PollInterval.
func (r RiskConfig) Poll() (time.Duration, error) {
	return time.ParseDuration(r.PollInterval)
}

// Timeout parses PriceTimeout.
func (r RiskConfig) Timeout() (time.Duration, error) {
	return time.ParseDuration(r.PriceTimeout)
}

// Monitor converts the section to monitor settings.
func (r RiskConfig) Monitor() (risk.Config, error) {
	timeout, err := r.Timeout()
	if err != nil {
		return risk.Config{}, fmt.Errorf("risk.price_timeout: %w", err)
	}
	return risk.Config{
		Thresholds:    r.Thresholds(),
		PriceTimeout:  timeout,
		MaxConcurrent: r.MaxConcurrentFetches,
	}, nil
}

// LoadFromFile loads configuration from a file, YAML first with JSON as the
// fallback. Missing sections keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ApplyEnv loads a .env file from the working directory when present and
// overlays TRADELOG_DB, TRADELOG_TZ and TRADELOG_LOG_LEVEL.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("TRADELOG_DB"); v != "" {
		c.Ledger.DBPath = v
	}
	if v := os.Getenv("TRADELOG_TZ"); v != "" {
		c.Ledger.Timezone = v
	}
	if v := os.Getenv("TRADELOG_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Location resolves Ledger.Timezone. An empty name is UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Ledger.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Ledger.Timezone)
	if err != nil {
		return nil, fmt.Errorf("ledger.timezone: %w", err)
	}
	return loc, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Ledger.DBPath == "" {
		return fmt.Errorf("ledger.db_path is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if err := c.Risk.Thresholds().Validate(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}
	if d, err := c.Risk.Poll(); err != nil || d <= 0 {
		return fmt.Errorf("risk.poll_interval must be a positive duration, got %q", c.Risk.PollInterval)
	}
	if d, err := c.Risk.Timeout(); err != nil || d <= 0 {
		return fmt.Errorf("risk.price_timeout must be a positive duration, got %q", c.Risk.PriceTimeout)
	}
	if c.Risk.MaxConcurrentFetches <= 0 {
		return fmt.Errorf("risk.max_concurrent_fetches must be positive")
	}
	if c.Broker.Provider != "alpaca" {
		return fmt.Errorf("broker.provider must be 'alpaca'")
	}
	if c.Broker.PageSize < 0 {
		return fmt.Errorf("broker.page_size must not be negative")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	th := risk.DefaultThresholds()
	return &Config{
		Ledger: LedgerConfig{
			DBPath:   "./tradelog.db",
			Timezone: "UTC",
		},
		Risk: RiskConfig{
			WarningPercent:       th.WarningPercent,
			CriticalPercent:      th.CriticalPercent,
			PollInterval:         "30s",
			PriceTimeout:         "5s",
			MaxConcurrentFetches: 4,
		},
		Broker: BrokerConfig{
			Provider: "alpaca",
			PageSize: 100,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
