// Package alphavantage adapts the Alpha Vantage query API (daily series,
// company overview, statements, technical indicators) to the gateway's
// common record shapes.
package alphavantage

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/flemzord/finbridge/internal/source"
)

const defaultBaseURL = "https://www.alphavantage.co"

// Config tunes the adapter.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// AlphaVantage is the adapter. All operations go through the single /query
// endpoint selected by the function parameter.
type AlphaVantage struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// New creates the adapter.
func New(cfg Config) *AlphaVantage {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &AlphaVantage{
		baseURL: cfg.BaseURL,
		client:  cfg.HTTPClient,
		logger:  cfg.Logger,
	}
}

// Name returns the provider tag.
func (a *AlphaVantage) Name() source.Name { return source.AlphaVantage }

// Capabilities declares the operations Alpha Vantage serves.
func (a *AlphaVantage) Capabilities() map[source.Operation]source.Handler {
	return map[source.Operation]source.Handler{
		source.OpQuote:           a.quote,
		source.OpDailyPrices:     a.dailyPrices,
		source.OpNews:            a.news,
		source.OpCompanyOverview: a.overview,
		source.OpIncomeStatement: a.incomeStatement,
		source.OpBalanceSheet:    a.balanceSheet,
		source.OpCashFlow:        a.cashFlow,
		source.OpIndicator:       a.indicator,
	}
}

var _ source.Adapter = (*AlphaVantage)(nil)
