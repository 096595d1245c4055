// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quantdesk/quantdesk/internal/types"
)

// Config represents the full application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Upstream    UpstreamConfig    `yaml:"upstream"`
	Desk        DeskConfig        `yaml:"desk"`
	Impact      ImpactConfig      `yaml:"impact"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// ServerConfig holds API server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// UpstreamConfig holds market data source settings.
type UpstreamConfig struct {
	BaseURL            string  `yaml:"base_url"`
	UserAgent          string  `yaml:"user_agent"`
	RequestsPerSecond  float64 `yaml:"requests_per_second"`
	Burst              int     `yaml:"burst"`
	TimeoutSec         int     `yaml:"timeout_sec"`
	HistoryCacheTTLMin int     `yaml:"history_cache_ttl_min"`
}

// DeskConfig holds order desk defaults, overridable per request.
type DeskConfig struct {
	SalesTaxPercent   float64 `yaml:"sales_tax_percent"`
	BrokerFeePercent  float64 `yaml:"broker_fee_percent"`
	TargetETADays     float64 `yaml:"target_eta_days"`
	WarnExpiryDays    int     `yaml:"warn_expiry_days"`
	HistoryWindowDays int     `yaml:"history_window_days"`
}

// ImpactConfig holds calibration defaults.
type ImpactConfig struct {
	LookbackDays int `yaml:"lookback_days"`
}

// PersistenceConfig holds persistence settings.
type PersistenceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes, expanding environment
// variable references first.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Upstream.RequestsPerSecond == 0 {
		c.Upstream.RequestsPerSecond = 10
	}
	if c.Upstream.Burst == 0 {
		c.Upstream.Burst = 20
	}
	if c.Upstream.TimeoutSec == 0 {
		c.Upstream.TimeoutSec = 15
	}
	if c.Upstream.HistoryCacheTTLMin == 0 {
		c.Upstream.HistoryCacheTTLMin = 60
	}
	if c.Desk.TargetETADays == 0 {
		c.Desk.TargetETADays = 3
	}
	if c.Desk.WarnExpiryDays == 0 {
		c.Desk.WarnExpiryDays = 2
	}
	if c.Desk.HistoryWindowDays == 0 {
		c.Desk.HistoryWindowDays = 7
	}
	if c.Impact.LookbackDays == 0 {
		c.Impact.LookbackDays = 30
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = 9090
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Upstream.BaseURL == "" {
		errs = append(errs, "upstream.base_url is required")
	}
	if c.Upstream.RequestsPerSecond < 0 {
		errs = append(errs, "upstream.requests_per_second must not be negative")
	}
	if c.Desk.SalesTaxPercent < 0 || c.Desk.SalesTaxPercent > 100 {
		errs = append(errs, "desk.sales_tax_percent must be between 0 and 100")
	}
	if c.Desk.BrokerFeePercent < 0 || c.Desk.BrokerFeePercent > 100 {
		errs = append(errs, "desk.broker_fee_percent must be between 0 and 100")
	}
	if c.Desk.TargetETADays < 0 {
		errs = append(errs, "desk.target_eta_days must not be negative")
	}
	if c.Impact.LookbackDays < 0 {
		errs = append(errs, "impact.lookback_days must not be negative")
	}
	if c.Persistence.Enabled && c.Persistence.Path == "" {
		errs = append(errs, "persistence.path is required when persistence is enabled")
	}
	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		errs = append(errs, "metrics.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", types.ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// UpstreamTimeout returns the upstream request timeout.
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutSec) * time.Second
}

// HistoryCacheTTL returns how long cached history stays fresh.
func (c *Config) HistoryCacheTTL() time.Duration {
	return time.Duration(c.Upstream.HistoryCacheTTLMin) * time.Minute
}
