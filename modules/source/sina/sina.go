// Package sina adapts the Sina hq quote feed for mainland China and Hong
// Kong symbols. The feed is public but IP-throttled, so the adapter paces
// its requests and authenticates with the finance.sina.com.cn referer.
package sina

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/flemzord/finbridge/internal/source"
)

const (
	defaultBaseURL = "https://hq.sinajs.cn"
	refererValue   = "https://finance.sina.com.cn/"
)

// Config tunes the adapter.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger

	// MinInterval spaces successive requests to stay below the IP
	// throttle. Default: 200ms.
	MinInterval time.Duration
}

// Sina is the adapter. The pacing wait is cooperative: it suspends the
// calling request without blocking calls to other providers.
type Sina struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
	limiter *rate.Limiter
}

// New creates the adapter.
func New(cfg Config) *Sina {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
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
	return &Sina{
		baseURL: cfg.BaseURL,
		client:  cfg.HTTPClient,
		logger:  cfg.Logger,
		limiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
	}
}

// Name returns the provider tag.
func (s *Sina) Name() source.Name { return source.Sina }

// Capabilities declares the operations Sina serves.
func (s *Sina) Capabilities() map[source.Operation]source.Handler {
	return map[source.Operation]source.Handler{
		source.OpQuote: s.quote,
	}
}

var _ source.Adapter = (*Sina)(nil)
