// Package config loads runtime settings from .env, the environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. METRICS_PROVIDER_API_TOKEN.
const EnvPrefix = "METRICS"

// DefaultFile is read when present; its absence is not an error.
const DefaultFile = "config/metrics.yaml"

type Config struct {
	LogLevel    string          `mapstructure:"log_level"`
	DatabaseURL string          `mapstructure:"database_url"`
	CatalogFile string          `mapstructure:"catalog_file"`
	Provider    ProviderConfig  `mapstructure:"provider"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Valuation   ValuationConfig `mapstructure:"valuation"`
	Server      ServerConfig    `mapstructure:"server"`
	Refresh     RefreshConfig   `mapstructure:"refresh"`
}

type ProviderConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIToken   string        `mapstructure:"api_token"`
	RatePerSec int           `mapstructure:"rate_per_sec"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	Dir    string        `mapstructure:"dir"`
	MaxAge time.Duration `mapstructure:"max_age"`
}

type ValuationConfig struct {
	RiskFreeRate      float64 `mapstructure:"risk_free_rate"`
	EquityRiskPremium float64 `mapstructure:"equity_risk_premium"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type RefreshConfig struct {
	Schedule string   `mapstructure:"schedule"`
	Tickers  []string `mapstructure:"tickers"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("database_url", "")
	v.SetDefault("catalog_file", "")
	v.SetDefault("provider.base_url", "https://eodhd.com")
	v.SetDefault("provider.api_token", "")
	v.SetDefault("provider.rate_per_sec", 5)
	v.SetDefault("provider.timeout", 20*time.Second)
	v.SetDefault("cache.dir", ".cache/statements")
	v.SetDefault("cache.max_age", 24*time.Hour)
	v.SetDefault("valuation.risk_free_rate", 0.04)
	v.SetDefault("valuation.equity_risk_premium", 0.055)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("refresh.schedule", "")
	v.SetDefault("refresh.tickers", []string{})
}

// Load reads .env (if any), then path (DefaultFile when empty), then
// METRICS_* environment variables, later sources winning.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	// Comma lists from the environment arrive as a single element.
	cfg.Refresh.Tickers = splitList(cfg.Refresh.Tickers)
	return &cfg, nil
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Logger builds the process logger at the configured level.
func (c *Config) Logger() zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || c.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}
