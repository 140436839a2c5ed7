package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"FINNHUB_API_KEY", "ALPHAVANTAGE_API_KEY", "TWELVEDATA_API_KEY", "TIINGO_API_KEY",
		"API_FAILOVER_ENABLED", "LOG_LEVEL", "RETRY_MAX_ATTEMPTS",
		"SOURCE_PRIORITY_GET_STOCK_QUOTE", "MARKET_SOURCES_US",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.APIFailoverEnabled {
		t.Error("failover should default on")
	}
	if cfg.RetryEnabled {
		t.Error("retry should default off")
	}
	if cfg.APITimeout() != 30*time.Second {
		t.Errorf("api timeout = %v", cfg.APITimeout())
	}
	if cfg.CircuitBreakerFailureThreshold != 5 || cfg.CircuitBreakerTimeoutMS != 60000 {
		t.Errorf("breaker defaults = %d/%d", cfg.CircuitBreakerFailureThreshold, cfg.CircuitBreakerTimeoutMS)
	}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("log level = %v", cfg.SlogLevel())
	}
}

func TestLoadRoutingEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SOURCE_PRIORITY_GET_STOCK_QUOTE", "twelvedata, finnhub,")
	t.Setenv("MARKET_SOURCES_US", "finnhub")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	prio := cfg.SourcePriorities["get_stock_quote"]
	if len(prio) != 2 || prio[0] != "twelvedata" || prio[1] != "finnhub" {
		t.Errorf("priorities = %v", prio)
	}
	cov := cfg.MarketSources["US"]
	if len(cov) != 1 || cov[0] != "finnhub" {
		t.Errorf("coverage = %v", cov)
	}
}

func TestLoadFileOverriddenByEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "finbridge.yaml")
	err := os.WriteFile(path, []byte(
		"priorities:\n  get_stock_quote: [tiingo]\n  get_news: [alphavantage]\nmarkets:\n  HK: [eastmoney]\n",
	), 0o600)
	if err != nil {
		t.Fatal(err)
	}

	t.Setenv("SOURCE_PRIORITY_GET_STOCK_QUOTE", "finnhub")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	// Env wins over file for the same tool.
	if got := cfg.SourcePriorities["get_stock_quote"]; len(got) != 1 || got[0] != "finnhub" {
		t.Errorf("quote priorities = %v", got)
	}
	// File-only entries survive.
	if got := cfg.SourcePriorities["get_news"]; len(got) != 1 || got[0] != "alphavantage" {
		t.Errorf("news priorities = %v", got)
	}
	if got := cfg.MarketSources["HK"]; len(got) != 1 || got[0] != "eastmoney" {
		t.Errorf("HK coverage = %v", got)
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "LOUD")

	if _, err := Load(""); err == nil {
		t.Fatal("want validation error for bad LOG_LEVEL")
	}
}

func TestProviderTimeoutOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("FINNHUB_TIMEOUT_MS", "5000")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ProviderTimeout("finnhub") != 5*time.Second {
		t.Errorf("finnhub timeout = %v", cfg.ProviderTimeout("finnhub"))
	}
	if cfg.ProviderTimeout("tiingo") != 0 {
		t.Errorf("tiingo timeout = %v, want inherit", cfg.ProviderTimeout("tiingo"))
	}
}
