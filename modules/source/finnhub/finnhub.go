// Package finnhub adapts the Finnhub REST API (US market quotes, candles,
// news, company data) to the gateway's common record shapes.
package finnhub

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/flemzord/finbridge/internal/source"
)

const defaultBaseURL = "https://finnhub.io/api/v1"

// Config tunes the adapter. Zero values take the defaults.
type Config struct {
	// BaseURL overrides the API root. Tests point it at a local server.
	BaseURL string

	// HTTPClient overrides the default client.
	HTTPClient *http.Client

	// Logger for request diagnostics. Nil discards.
	Logger *slog.Logger
}

// Finnhub is the adapter. Stateless beyond its HTTP client; safe for
// concurrent use.
type Finnhub struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// New creates the adapter.
func New(cfg Config) *Finnhub {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Finnhub{
		baseURL: cfg.BaseURL,
		client:  cfg.HTTPClient,
		logger:  cfg.Logger,
	}
}

// Name returns the provider tag.
func (f *Finnhub) Name() source.Name { return source.Finnhub }

// Capabilities declares the operations Finnhub serves.
func (f *Finnhub) Capabilities() map[source.Operation]source.Handler {
	return map[source.Operation]source.Handler{
		source.OpQuote:           f.quote,
		source.OpCandles:         f.candles,
		source.OpNews:            f.news,
		source.OpCompanyOverview: f.overview,
		source.OpBasicFinancials: f.basicFinancials,
		source.OpCompanyMetrics:  f.metrics,
	}
}

var _ source.Adapter = (*Finnhub)(nil)
