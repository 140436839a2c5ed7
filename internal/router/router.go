// Package router picks the ordered candidate provider list for a
// (operation, symbol) pair: custom or default priority, narrowed by the
// symbol's market, filtered by capability.
package router

import (
	"log/slog"

	"github.com/flemzord/finbridge/internal/market"
	"github.com/flemzord/finbridge/internal/source"
)

// DefaultPriorities is the built-in per-operation source order.
var DefaultPriorities = map[source.Operation][]source.Name{
	source.OpQuote:           {source.Finnhub, source.TwelveData, source.AlphaVantage, source.Tiingo, source.Sina, source.EastMoney},
	source.OpCandles:         {source.Finnhub, source.TwelveData, source.Tiingo, source.EastMoney},
	source.OpDailyPrices:     {source.AlphaVantage, source.Tiingo, source.TwelveData, source.EastMoney},
	source.OpNews:            {source.Finnhub, source.AlphaVantage, source.Tiingo},
	source.OpCompanyOverview: {source.Finnhub, source.AlphaVantage, source.TwelveData},
	source.OpBasicFinancials: {source.Finnhub},
	source.OpCompanyMetrics:  {source.Finnhub},
	source.OpIncomeStatement: {source.AlphaVantage},
	source.OpBalanceSheet:    {source.AlphaVantage},
	source.OpCashFlow:        {source.AlphaVantage},
	source.OpIndicator:       {source.TwelveData, source.AlphaVantage},
}

// DefaultCoverage maps each market to the providers that can serve it, in
// canonical fallback order. Unknown symbols route everywhere.
var DefaultCoverage = map[market.Market][]source.Name{
	market.US:      {source.Finnhub, source.AlphaVantage, source.TwelveData, source.Tiingo},
	market.SH:      {source.Sina, source.EastMoney},
	market.SZ:      {source.Sina, source.EastMoney},
	market.BJ:      {source.Sina, source.EastMoney},
	market.HK:      {source.Sina, source.EastMoney, source.TwelveData},
	market.Unknown: {source.Finnhub, source.AlphaVantage, source.TwelveData, source.Tiingo, source.Sina, source.EastMoney},
}

// Config holds the routing tables, frozen at startup.
type Config struct {
	// Custom overrides the default priority per operation
	// (SOURCE_PRIORITY_* / config file).
	Custom map[source.Operation][]source.Name

	// Coverage overrides DefaultCoverage per market (MARKET_SOURCES_*).
	Coverage map[market.Market][]source.Name

	// Primary and Secondary are the legacy order override applied to every
	// operation's base list. Empty means unset.
	Primary   source.Name
	Secondary source.Name
}

// Router computes candidate lists. Immutable after construction.
type Router struct {
	cfg    Config
	reg    *source.Registry
	logger *slog.Logger
}

// New creates a router over the given registry.
func New(cfg Config, reg *source.Registry, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{cfg: cfg, reg: reg, logger: logger}
}

// Route returns the ordered providers to try for op on symbol. An empty
// result means no provider can serve the call.
func (r *Router) Route(op source.Operation, symbol string) []source.Name {
	base := r.cfg.Custom[op]
	if len(base) == 0 {
		base = DefaultPriorities[op]
	}
	if len(base) == 0 {
		base = []source.Name{source.Finnhub}
	}
	base = r.applyLegacyOrder(base)

	if symbol != "" {
		m := market.Classify(symbol)
		cov := r.coverage(m)
		narrowed := intersect(base, cov)
		if len(narrowed) == 0 {
			// Priority list and market coverage are disjoint: fall back to
			// the coverage set in its canonical order.
			narrowed = cov
		}
		base = narrowed
	}

	var out []source.Name
	for _, name := range base {
		entry, ok := r.reg.Get(name)
		if !ok || !entry.Supports(op) {
			continue
		}
		out = append(out, name)
	}

	r.logger.Debug("routed",
		"operation", string(op),
		"symbol", symbol,
		"candidates", names(out),
	)
	return out
}

// coverage returns the (possibly overridden) provider set for a market.
func (r *Router) coverage(m market.Market) []source.Name {
	if cov, ok := r.cfg.Coverage[m]; ok && len(cov) > 0 {
		return cov
	}
	return DefaultCoverage[m]
}

// applyLegacyOrder hoists PRIMARY_API_SOURCE / SECONDARY_API_SOURCE to the
// front of the base list, keeping the remaining order intact.
func (r *Router) applyLegacyOrder(base []source.Name) []source.Name {
	if r.cfg.Primary == "" && r.cfg.Secondary == "" {
		return base
	}

	var head []source.Name
	if r.cfg.Primary != "" {
		head = append(head, r.cfg.Primary)
	}
	if r.cfg.Secondary != "" && r.cfg.Secondary != r.cfg.Primary {
		head = append(head, r.cfg.Secondary)
	}

	out := make([]source.Name, 0, len(base)+len(head))
	out = append(out, head...)
	for _, n := range base {
		if !contains(head, n) {
			out = append(out, n)
		}
	}
	return out
}

func intersect(base, cov []source.Name) []source.Name {
	var out []source.Name
	for _, n := range base {
		if contains(cov, n) {
			out = append(out, n)
		}
	}
	return out
}

func contains(list []source.Name, n source.Name) bool {
	for _, x := range list {
		if x == n {
			return true
		}
	}
	return false
}

func names(list []source.Name) []string {
	out := make([]string, len(list))
	for i, n := range list {
		out[i] = string(n)
	}
	return out
}
