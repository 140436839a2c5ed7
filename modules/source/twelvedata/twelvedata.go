// Package twelvedata adapts the Twelve Data REST API (quotes, time series,
// profiles, technical indicators) to the gateway's common record shapes.
package twelvedata

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/flemzord/finbridge/internal/source"
)

const defaultBaseURL = "https://api.twelvedata.com"

// Config tunes the adapter.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// TwelveData is the adapter.
type TwelveData struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// New creates the adapter.
func New(cfg Config) *TwelveData {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &TwelveData{
		baseURL: cfg.BaseURL,
		client:  cfg.HTTPClient,
		logger:  cfg.Logger,
	}
}

// Name returns the provider tag.
func (t *TwelveData) Name() source.Name { return source.TwelveData }

// Capabilities declares the operations Twelve Data serves.
func (t *TwelveData) Capabilities() map[source.Operation]source.Handler {
	return map[source.Operation]source.Handler{
		source.OpQuote:           t.quote,
		source.OpCandles:         t.candles,
		source.OpDailyPrices:     t.dailyPrices,
		source.OpCompanyOverview: t.overview,
		source.OpIndicator:       t.indicator,
	}
}

var _ source.Adapter = (*TwelveData)(nil)

// intervalFor maps gateway resolutions/intervals onto Twelve Data interval
// tags. Unrecognized values pass through unchanged.
func intervalFor(v string) string {
	switch v {
	case "", "D", "daily", "1day":
		return "1day"
	case "W", "weekly":
		return "1week"
	case "M", "monthly":
		return "1month"
	case "1":
		return "1min"
	case "5":
		return "5min"
	case "15":
		return "15min"
	case "30":
		return "30min"
	case "60":
		return "1h"
	default:
		return v
	}
}
