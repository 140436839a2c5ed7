// Package eastmoney adapts the East Money push2 quote and kline APIs for
// mainland China and Hong Kong symbols. Like sina, the feed is public but
// IP-throttled: requests are paced and carry the quote.eastmoney.com
// referer.
package eastmoney

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/flemzord/finbridge/internal/source"
)

const (
	defaultQuoteBaseURL   = "https://push2.eastmoney.com"
	defaultHistoryBaseURL = "https://push2his.eastmoney.com"
	refererValue          = "https://quote.eastmoney.com/"
)

// Config tunes the adapter.
type Config struct {
	// QuoteBaseURL and HistoryBaseURL override the API roots. Tests point
	// both at one local server.
	QuoteBaseURL   string
	HistoryBaseURL string

	HTTPClient *http.Client
	Logger     *slog.Logger

	// MinInterval spaces successive requests. Default: 200ms.
	MinInterval time.Duration
}

// EastMoney is the adapter.
type EastMoney struct {
	quoteBaseURL   string
	historyBaseURL string
	client         *http.Client
	logger         *slog.Logger
	limiter        *rate.Limiter
}

// New creates the adapter.
func New(cfg Config) *EastMoney {
	if cfg.QuoteBaseURL == "" {
		cfg.QuoteBaseURL = defaultQuoteBaseURL
	}
	if cfg.HistoryBaseURL == "" {
		cfg.HistoryBaseURL = defaultHistoryBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 200 * time.Millisecond
	}
	return &EastMoney{
		quoteBaseURL:   cfg.QuoteBaseURL,
		historyBaseURL: cfg.HistoryBaseURL,
		client:         cfg.HTTPClient,
		logger:         cfg.Logger,
		limiter:        rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
	}
}

// Name returns the provider tag.
func (e *EastMoney) Name() source.Name { return source.EastMoney }

// Capabilities declares the operations East Money serves.
func (e *EastMoney) Capabilities() map[source.Operation]source.Handler {
	return map[source.Operation]source.Handler{
		source.OpQuote:       e.quote,
		source.OpCandles:     e.candles,
		source.OpDailyPrices: e.dailyPrices,
	}
}

var _ source.Adapter = (*EastMoney)(nil)
