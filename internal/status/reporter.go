// Package status periodically logs a snapshot of the dispatch core and
// sweeps expired key cooldowns. Purely observational: correctness relies
// on the lazy sweep in the pools, this just keeps operators informed.
package status

import (
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/flemzord/finbridge/internal/gateway"
)

// Reporter runs the snapshot job on a cron schedule.
type Reporter struct {
	cron     *cron.Cron
	logger   *slog.Logger
	statusFn gateway.StatusFunc
}

// New creates a reporter. spec accepts cron syntax or @every forms; an
// empty or "off" spec disables the reporter.
func New(spec string, statusFn gateway.StatusFunc, logger *slog.Logger) (*Reporter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Reporter{logger: logger, statusFn: statusFn}
	if spec == "" || spec == "off" {
		return r, nil
	}

	// Bare durations ("1m") are accepted as @every shorthand.
	if spec[0] != '@' && !hasCronFields(spec) {
		spec = "@every " + spec
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, r.report); err != nil {
		return nil, err
	}
	r.cron = c
	return r, nil
}

// Start launches the schedule. No-op when disabled.
func (r *Reporter) Start() {
	if r.cron != nil {
		r.cron.Start()
	}
}

// Stop halts the schedule, waiting for a running job.
func (r *Reporter) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

// report logs one status line per provider. Reading the snapshot also
// lazily sweeps expired cooldowns in every pool.
func (r *Reporter) report() {
	st := r.statusFn()
	for _, p := range st.Providers {
		r.logger.Info("source status",
			"provider", p.Name,
			"available", p.Available,
			"pool_size", p.PoolSize,
			"keys_cooling", p.KeysCooling,
			"usage", p.UsageCount,
			"circuit", p.CircuitState,
			"failures", p.FailureCount,
		)
	}
}

// hasCronFields reports whether spec looks like a 5-field cron expression
// rather than a bare duration.
func hasCronFields(spec string) bool {
	fields := 1
	for _, ch := range spec {
		if ch == ' ' {
			fields++
		}
	}
	return fields >= 5
}
