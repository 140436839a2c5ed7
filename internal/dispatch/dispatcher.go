// Package dispatch drives cascading failover across upstream providers:
// candidates in router order, key rotation within a provider, circuit
// breakers around every call, and a per-call audit trail of attempts.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/finbridge/internal/breaker"
	"github.com/flemzord/finbridge/internal/faults"
	"github.com/flemzord/finbridge/internal/keypool"
	"github.com/flemzord/finbridge/internal/router"
	"github.com/flemzord/finbridge/internal/source"
)

// Executor runs one operation against one provider entry using the
// acquired key. The tool facade builds it with the call arguments bound,
// keeping the dispatcher oblivious to payload shapes.
type Executor func(ctx context.Context, entry *source.Entry, key keypool.Key) (any, error)

// Attempt is the audit record for a single provider try.
type Attempt struct {
	Provider   source.Name `json:"provider"`
	KeyIndex   int         `json:"key_index"`
	StartNS    int64       `json:"start_ns"`
	EndNS      int64       `json:"end_ns"`
	DurationMS int64       `json:"duration_ms"`
	Success    bool        `json:"success"`
	Skipped    bool        `json:"skipped,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Result is a successful dispatch.
type Result struct {
	Data            any         `json:"data"`
	WinningProvider source.Name `json:"winning_provider"`
	Attempts        []Attempt   `json:"attempts"`
	TotalDurationMS int64       `json:"total_duration_ms"`
}

// RetryConfig tunes the optional same-provider retry envelope. It wraps a
// single provider attempt and is independent of the cross-provider cascade.
type RetryConfig struct {
	Enabled      bool
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Config tunes the dispatcher.
type Config struct {
	// FailoverEnabled=false restricts every dispatch to the first
	// candidate.
	FailoverEnabled bool

	// Retry is the same-provider retry envelope.
	Retry RetryConfig

	// DefaultTimeout bounds a single upstream call when the provider entry
	// has no override.
	DefaultTimeout time.Duration
}

// Dispatcher walks candidate providers for each call. Stateless per call;
// the shared mutable state lives in the pools and breakers it consults.
type Dispatcher struct {
	cfg      Config
	reg      *source.Registry
	router   *router.Router
	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer
}

// Option configures optional Dispatcher behavior.
type Option func(*Dispatcher)

// WithLogger injects a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithObserver injects a telemetry observer.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// New creates a dispatcher.
func New(cfg Config, reg *source.Registry, rt *router.Router, opts ...Option) *Dispatcher {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 30 * time.Second
	}
	d := &Dispatcher{
		cfg:      cfg,
		reg:      reg,
		router:   rt,
		logger:   slog.Default(),
		observer: nopObserver{},
		tracer:   otel.Tracer("github.com/flemzord/finbridge/internal/dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch routes, then cascades: providers strictly in router order, keys
// in acquisition order within a provider. Attempts are appended in real
// time and preserved on failure.
func (d *Dispatcher) Dispatch(ctx context.Context, op source.Operation, tool, symbol string, exec Executor) (Result, error) {
	start := time.Now()

	ctx, span := d.tracer.Start(ctx, "dispatch",
		trace.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("symbol", symbol),
		))
	defer span.End()

	candidates := d.router.Route(op, symbol)
	if len(candidates) == 0 {
		d.observer.ObserveDispatch(op, "unavailable", time.Since(start))
		return Result{}, &ServiceUnavailableError{Tool: tool}
	}
	if !d.cfg.FailoverEnabled {
		candidates = candidates[:1]
	}

	var attempts []Attempt
	var errs []error

	for _, name := range candidates {
		entry, ok := d.reg.Get(name)
		if !ok || !entry.Available() {
			continue
		}

		res, done, err := d.tryProvider(ctx, entry, exec, &attempts, &errs)
		if done {
			if err == nil {
				res.TotalDurationMS = time.Since(start).Milliseconds()
				span.SetAttributes(
					attribute.String("winning_provider", string(res.WinningProvider)),
					attribute.Int("attempts", len(res.Attempts)),
				)
				d.observer.ObserveDispatch(op, "success", time.Since(start))
				return res, nil
			}

			var de *DeadlineError
			if errors.As(err, &de) {
				de.Tool = tool
				d.observer.ObserveDispatch(op, "deadline", time.Since(start))
				return Result{}, de
			}

			d.observer.ObserveDispatch(op, "permanent", time.Since(start))
			return Result{}, &PermanentError{Attempts: attempts, Err: err}
		}
	}

	if len(errs) == 0 {
		// Every candidate was skipped without an upstream call.
		d.observer.ObserveDispatch(op, "unavailable", time.Since(start))
		return Result{}, &ServiceUnavailableError{Tool: tool, Attempts: attempts}
	}

	d.logger.Error("all sources exhausted",
		"tool", tool,
		"symbol", symbol,
		"attempts", len(attempts),
	)
	d.observer.ObserveDispatch(op, "aggregate", time.Since(start))
	return Result{}, &AggregateError{Tool: tool, Attempts: attempts, Errs: errs}
}

// tryProvider walks the provider's keys. done=true means the cascade ends
// here: success, permanent failure, or caller deadline.
func (d *Dispatcher) tryProvider(ctx context.Context, entry *source.Entry, exec Executor, attempts *[]Attempt, errs *[]error) (Result, bool, error) {
	name := entry.Name()

	for k := 0; k < entry.Pool.Size(); k++ {
		if err := entry.Breaker.Allow(); err != nil {
			*attempts = append(*attempts, Attempt{
				Provider: name,
				KeyIndex: -1,
				StartNS:  time.Now().UnixNano(),
				EndNS:    time.Now().UnixNano(),
				Skipped:  true,
				Error:    breaker.ErrOpen.Error(),
			})
			d.observer.ObserveAttempt(name, false)
			d.logger.Debug("circuit open, skipping source", "provider", string(name))
			return Result{}, false, nil
		}

		key, ok := entry.Pool.Acquire()
		if !ok {
			// Every key is cooling down.
			return Result{}, false, nil
		}

		attStart := time.Now()
		data, err := d.attempt(ctx, entry, key, exec)
		attEnd := time.Now()

		att := Attempt{
			Provider:   name,
			KeyIndex:   key.Index,
			StartNS:    attStart.UnixNano(),
			EndNS:      attEnd.UnixNano(),
			DurationMS: attEnd.Sub(attStart).Milliseconds(),
			Success:    err == nil,
		}
		if err != nil {
			att.Error = err.Error()
		}
		*attempts = append(*attempts, att)
		d.observer.ObserveAttempt(name, err == nil)

		if err == nil {
			entry.Pool.RecordSuccess(key.Index)
			entry.Breaker.RecordSuccess()
			return Result{Data: data, WinningProvider: name, Attempts: *attempts}, true, nil
		}

		// A caller-initiated abort ends the cascade without poisoning the
		// key or the breaker.
		if ctx.Err() != nil {
			return Result{}, true, &DeadlineError{Attempts: *attempts, Cause: ctx.Err()}
		}

		entry.Breaker.RecordFailure()
		*errs = append(*errs, err)

		switch faults.Classify(err) {
		case faults.ClassRateLimit:
			entry.Pool.MarkRateLimited(key.Index)
			d.observer.ObserveRotation(name)
			d.logger.Warn("key rate limited, rotating",
				"provider", string(name),
				"key_index", key.Index,
			)
			if !entry.Pool.Rotate() {
				return Result{}, false, nil
			}

		case faults.ClassTimeout, faults.ClassTransient:
			d.logger.Warn("source failed, failing over",
				"provider", string(name),
				"error", err,
			)
			return Result{}, false, nil

		default:
			// Permanent: do not mask user-facing errors behind failover.
			return Result{}, true, err
		}
	}

	return Result{}, false, nil
}

// attempt runs the executor once (or, with retry enabled, inside an
// exponential-backoff-plus-jitter envelope) under the provider's per-call
// deadline.
func (d *Dispatcher) attempt(ctx context.Context, entry *source.Entry, key keypool.Key, exec Executor) (any, error) {
	run := func() (any, error) {
		timeout := entry.Timeout
		if timeout <= 0 {
			timeout = d.cfg.DefaultTimeout
		}
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return exec(callCtx, entry, key)
	}

	if !d.cfg.Retry.Enabled || d.cfg.Retry.MaxAttempts <= 1 {
		return run()
	}

	op := func() (any, error) {
		data, err := run()
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		switch faults.Classify(err) {
		case faults.ClassTimeout, faults.ClassTransient:
			return nil, err
		default:
			// Rate limits go to key rotation, permanent errors to the
			// caller; neither is retried in place.
			return nil, backoff.Permanent(err)
		}
	}

	b := backoff.NewExponentialBackOff()
	if d.cfg.Retry.InitialDelay > 0 {
		b.InitialInterval = d.cfg.Retry.InitialDelay
	}
	if d.cfg.Retry.MaxDelay > 0 {
		b.MaxInterval = d.cfg.Retry.MaxDelay
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(d.cfg.Retry.MaxAttempts)),
	)
}
