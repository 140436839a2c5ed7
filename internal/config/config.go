// Package config loads gateway configuration: a .env file when present,
// environment variables, and an optional YAML override file for routing
// tables. Environment always wins over the file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all gateway configuration. Frozen after Load.
type Config struct {
	FinnhubAPIKey      string `envconfig:"FINNHUB_API_KEY"`
	AlphaVantageAPIKey string `envconfig:"ALPHAVANTAGE_API_KEY"`
	TwelveDataAPIKey   string `envconfig:"TWELVEDATA_API_KEY"`
	TiingoAPIKey       string `envconfig:"TIINGO_API_KEY"`

	APIFailoverEnabled bool   `envconfig:"API_FAILOVER_ENABLED" default:"true"`
	PrimaryAPISource   string `envconfig:"PRIMARY_API_SOURCE"`
	SecondaryAPISource string `envconfig:"SECONDARY_API_SOURCE"`

	RetryEnabled        bool `envconfig:"RETRY_ENABLED" default:"false"`
	RetryMaxAttempts    int  `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialDelayMS int  `envconfig:"RETRY_INITIAL_DELAY_MS" default:"500"`
	RetryMaxDelayMS     int  `envconfig:"RETRY_MAX_DELAY_MS" default:"5000"`

	APITimeoutMS          int `envconfig:"API_TIMEOUT_MS" default:"30000"`
	FinnhubTimeoutMS      int `envconfig:"FINNHUB_TIMEOUT_MS"`
	AlphaVantageTimeoutMS int `envconfig:"ALPHAVANTAGE_TIMEOUT_MS"`

	CircuitBreakerEnabled          bool `envconfig:"CIRCUIT_BREAKER_ENABLED" default:"true"`
	CircuitBreakerFailureThreshold int  `envconfig:"CIRCUIT_BREAKER_FAILURE_THRESHOLD" default:"5"`
	CircuitBreakerTimeoutMS        int  `envconfig:"CIRCUIT_BREAKER_TIMEOUT_MS" default:"60000"`
	CircuitBreakerHalfOpenAttempts int  `envconfig:"CIRCUIT_BREAKER_HALF_OPEN_ATTEMPTS" default:"1"`

	KeyRotationEnabled       bool `envconfig:"KEY_ROTATION_ENABLED" default:"true"`
	KeyRotationResetWindowMS int  `envconfig:"KEY_ROTATION_RESET_WINDOW_MS" default:"60000"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	AdminAddr      string `envconfig:"ADMIN_ADDR"`
	StatusInterval string `envconfig:"STATUS_INTERVAL" default:"1m"`

	SinaMinIntervalMS      int `envconfig:"SINA_MIN_INTERVAL_MS" default:"200"`
	EastMoneyMinIntervalMS int `envconfig:"EASTMONEY_MIN_INTERVAL_MS" default:"200"`

	// SourcePriorities maps lower-case tool names to provider tag lists,
	// merged from the YAML file and SOURCE_PRIORITY_* variables.
	SourcePriorities map[string][]string `ignored:"true"`

	// MarketSources maps upper-case market tags to provider tag lists,
	// merged from the YAML file and MARKET_SOURCES_* variables.
	MarketSources map[string][]string `ignored:"true"`
}

// Load reads .env (when present), the optional YAML file at filePath, and
// the environment, in ascending precedence.
func Load(filePath string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			slog.Warn("failed to load .env file", "error", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	cfg.SourcePriorities = make(map[string][]string)
	cfg.MarketSources = make(map[string][]string)

	if filePath != "" {
		if err := cfg.applyFile(filePath); err != nil {
			return nil, err
		}
	}
	cfg.applyRoutingEnv(os.Environ())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyRoutingEnv folds SOURCE_PRIORITY_<TOOL> and MARKET_SOURCES_<MARKET>
// variables into the routing maps, overriding any file values.
func (c *Config) applyRoutingEnv(environ []string) {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" {
			continue
		}
		switch {
		case strings.HasPrefix(key, "SOURCE_PRIORITY_"):
			tool := strings.ToLower(strings.TrimPrefix(key, "SOURCE_PRIORITY_"))
			c.SourcePriorities[tool] = splitList(value)
		case strings.HasPrefix(key, "MARKET_SOURCES_"):
			mkt := strings.ToUpper(strings.TrimPrefix(key, "MARKET_SOURCES_"))
			c.MarketSources[mkt] = splitList(value)
		}
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks value ranges. Routing tags are validated later against
// the provider registry, where unknown tags are ignored.
func (c *Config) Validate() error {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("invalid config: LOG_LEVEL must be DEBUG, INFO, WARN or ERROR, got %q", c.LogLevel)
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("invalid config: RETRY_MAX_ATTEMPTS must be >= 1, got %d", c.RetryMaxAttempts)
	}
	if c.APITimeoutMS < 1 {
		return fmt.Errorf("invalid config: API_TIMEOUT_MS must be >= 1, got %d", c.APITimeoutMS)
	}
	if c.CircuitBreakerFailureThreshold < 1 {
		return fmt.Errorf("invalid config: CIRCUIT_BREAKER_FAILURE_THRESHOLD must be >= 1, got %d", c.CircuitBreakerFailureThreshold)
	}
	if c.KeyRotationResetWindowMS < 1 {
		return fmt.Errorf("invalid config: KEY_ROTATION_RESET_WINDOW_MS must be >= 1, got %d", c.KeyRotationResetWindowMS)
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// APITimeout returns the default per-call deadline.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.APITimeoutMS) * time.Millisecond
}

// ProviderTimeout returns the per-call deadline override for a provider,
// zero when the provider inherits the default.
func (c *Config) ProviderTimeout(provider string) time.Duration {
	switch provider {
	case "finnhub":
		return time.Duration(c.FinnhubTimeoutMS) * time.Millisecond
	case "alphavantage":
		return time.Duration(c.AlphaVantageTimeoutMS) * time.Millisecond
	default:
		return 0
	}
}
