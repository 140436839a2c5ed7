// Package tiingo adapts the Tiingo REST API (IEX quotes, daily prices,
// news) to the gateway's common record shapes.
package tiingo

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/flemzord/finbridge/internal/source"
)

const defaultBaseURL = "https://api.tiingo.com"

// Config tunes the adapter.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Tiingo is the adapter. Authentication uses the Authorization: Token
// header, falling back to the token query parameter when a proxy strips
// the header (observed as HTTP 403).
type Tiingo struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// New creates the adapter.
func New(cfg Config) *Tiingo {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Tiingo{
		baseURL: cfg.BaseURL,
		client:  cfg.HTTPClient,
		logger:  cfg.Logger,
	}
}

// Name returns the provider tag.
func (t *Tiingo) Name() source.Name { return source.Tiingo }

// Capabilities declares the operations Tiingo serves.
func (t *Tiingo) Capabilities() map[source.Operation]source.Handler {
	return map[source.Operation]source.Handler{
		source.OpQuote:       t.quote,
		source.OpCandles:     t.candles,
		source.OpDailyPrices: t.dailyPrices,
		source.OpNews:        t.news,
	}
}

var _ source.Adapter = (*Tiingo)(nil)
