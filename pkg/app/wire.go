// Package app assembles the gateway: configuration, provider registry,
// router, dispatcher, facade, and the optional admin and telemetry
// surfaces. Everything is instance-based so tests can build isolated
// cores.
package app

import (
	"log/slog"
	"time"

	"github.com/flemzord/finbridge/internal/breaker"
	"github.com/flemzord/finbridge/internal/config"
	"github.com/flemzord/finbridge/internal/dispatch"
	"github.com/flemzord/finbridge/internal/gateway"
	"github.com/flemzord/finbridge/internal/keypool"
	"github.com/flemzord/finbridge/internal/market"
	"github.com/flemzord/finbridge/internal/router"
	"github.com/flemzord/finbridge/internal/source"
	"github.com/flemzord/finbridge/internal/tool"
	"github.com/flemzord/finbridge/modules/source/alphavantage"
	"github.com/flemzord/finbridge/modules/source/eastmoney"
	"github.com/flemzord/finbridge/modules/source/finnhub"
	"github.com/flemzord/finbridge/modules/source/sina"
	"github.com/flemzord/finbridge/modules/source/tiingo"
	"github.com/flemzord/finbridge/modules/source/twelvedata"
)

// Core is the assembled dispatch stack.
type Core struct {
	Registry   *source.Registry
	Router     *router.Router
	Dispatcher *dispatch.Dispatcher
	Facade     *tool.Facade
}

// BuildCore wires the dispatch stack from configuration. metrics may be
// nil (no observer).
func BuildCore(cfg *config.Config, logger *slog.Logger, metrics *gateway.Metrics) *Core {
	if logger == nil {
		logger = slog.Default()
	}

	reg := buildRegistry(cfg, logger, metrics)
	rt := router.New(routerConfig(cfg), reg, logger)

	dispCfg := dispatch.Config{
		FailoverEnabled: cfg.APIFailoverEnabled,
		DefaultTimeout:  cfg.APITimeout(),
		Retry: dispatch.RetryConfig{
			Enabled:      cfg.RetryEnabled,
			MaxAttempts:  cfg.RetryMaxAttempts,
			InitialDelay: time.Duration(cfg.RetryInitialDelayMS) * time.Millisecond,
			MaxDelay:     time.Duration(cfg.RetryMaxDelayMS) * time.Millisecond,
		},
	}

	opts := []dispatch.Option{dispatch.WithLogger(logger)}
	if metrics != nil {
		opts = append(opts, dispatch.WithObserver(metrics))
	}
	disp := dispatch.New(dispCfg, reg, rt, opts...)

	return &Core{
		Registry:   reg,
		Router:     rt,
		Dispatcher: disp,
		Facade:     tool.NewFacade(disp),
	}
}

// buildRegistry constructs one entry per provider. Keyed providers without
// credentials still register (the router needs their capabilities) but
// their empty pools make them unavailable to the dispatcher.
func buildRegistry(cfg *config.Config, logger *slog.Logger, metrics *gateway.Metrics) *source.Registry {
	reg := source.NewRegistry()
	resetWindow := time.Duration(cfg.KeyRotationResetWindowMS) * time.Millisecond

	keyedPool := func(raw string) *keypool.Pool {
		return keypool.New(keypool.ParseCredentials(raw), resetWindow, cfg.KeyRotationEnabled)
	}
	newBreaker := func(name source.Name) *breaker.Breaker {
		b := breaker.New(breaker.Config{
			Enabled:          cfg.CircuitBreakerEnabled,
			FailureThreshold: cfg.CircuitBreakerFailureThreshold,
			Timeout:          time.Duration(cfg.CircuitBreakerTimeoutMS) * time.Millisecond,
			HalfOpenMax:      cfg.CircuitBreakerHalfOpenAttempts,
		})
		logFn := func(from, to breaker.State) {
			logger.Warn("circuit transition",
				"provider", string(name),
				"from", string(from),
				"to", string(to),
			)
		}
		if metrics != nil {
			metricFn := metrics.BreakerTransition(name)
			b.OnTransition(func(from, to breaker.State) {
				logFn(from, to)
				metricFn(from, to)
			})
		} else {
			b.OnTransition(logFn)
		}
		return b
	}

	add := func(adapter source.Adapter, pool *keypool.Pool) {
		name := adapter.Name()
		entry := &source.Entry{
			Adapter: adapter,
			Pool:    pool,
			Breaker: newBreaker(name),
			Timeout: cfg.ProviderTimeout(string(name)),
		}
		reg.Add(entry)
		logger.Debug("source registered",
			"provider", string(name),
			"pool_size", pool.Size(),
			"available", entry.Available(),
		)
	}

	add(finnhub.New(finnhub.Config{Logger: logger}), keyedPool(cfg.FinnhubAPIKey))
	add(alphavantage.New(alphavantage.Config{Logger: logger}), keyedPool(cfg.AlphaVantageAPIKey))
	add(twelvedata.New(twelvedata.Config{Logger: logger}), keyedPool(cfg.TwelveDataAPIKey))
	add(tiingo.New(tiingo.Config{Logger: logger}), keyedPool(cfg.TiingoAPIKey))
	add(sina.New(sina.Config{
		Logger:      logger,
		MinInterval: time.Duration(cfg.SinaMinIntervalMS) * time.Millisecond,
	}), keypool.NewKeyless())
	add(eastmoney.New(eastmoney.Config{
		Logger:      logger,
		MinInterval: time.Duration(cfg.EastMoneyMinIntervalMS) * time.Millisecond,
	}), keypool.NewKeyless())

	return reg
}

// routerConfig translates the string-keyed config tables into typed
// routing tables, dropping unknown tool and provider tags. Market tags are
// copied as given; the router never looks up a tag it does not classify to.
func routerConfig(cfg *config.Config) router.Config {
	rc := router.Config{
		Custom:   make(map[source.Operation][]source.Name),
		Coverage: make(map[market.Market][]source.Name),
	}

	opByTool := make(map[string]source.Operation)
	for _, e := range tool.Entries() {
		opByTool[e.Name] = e.Op
	}

	for toolName, tags := range cfg.SourcePriorities {
		op, ok := opByTool[toolName]
		if !ok {
			continue
		}
		if names := parseNames(tags); len(names) > 0 {
			rc.Custom[op] = names
		}
	}

	for mkt, tags := range cfg.MarketSources {
		if names := parseNames(tags); len(names) > 0 {
			rc.Coverage[market.Market(mkt)] = names
		}
	}

	if name, ok := source.ParseName(cfg.PrimaryAPISource); ok {
		rc.Primary = name
	}
	if name, ok := source.ParseName(cfg.SecondaryAPISource); ok {
		rc.Secondary = name
	}
	return rc
}

func parseNames(tags []string) []source.Name {
	var out []source.Name
	for _, tag := range tags {
		if name, ok := source.ParseName(tag); ok {
			out = append(out, name)
		}
	}
	return out
}

// StatusFunc builds the admin snapshot closure over the registry.
func (c *Core) StatusFunc() gateway.StatusFunc {
	return func() gateway.Status {
		var st gateway.Status
		for _, name := range c.Registry.Names() {
			entry, _ := c.Registry.Get(name)

			var cooling int
			var usage int64
			for _, k := range entry.Pool.Snapshot() {
				if k.InCooldown {
					cooling++
				}
				usage += k.UsageCount
			}

			st.Providers = append(st.Providers, gateway.ProviderStatus{
				Name:         string(name),
				Available:    entry.Available(),
				PoolSize:     entry.Pool.Size(),
				KeysCooling:  cooling,
				UsageCount:   usage,
				CircuitState: string(entry.Breaker.State()),
				FailureCount: entry.Breaker.Failures(),
			})
		}
		return st
	}
}
