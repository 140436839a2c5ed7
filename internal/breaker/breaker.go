// Package breaker implements the per-provider circuit breaker.
//
// State machine:
//   - closed: requests pass; consecutive failures increment the counter,
//     reaching the threshold trips to open.
//   - open: requests are short-circuited with ErrOpen until the timeout has
//     elapsed since the last failure, then trials pass (half-open).
//   - half-open: a success closes the circuit and resets the counter; a
//     failure reopens it and restarts the timeout.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Allow while the circuit is open. The dispatcher
// treats it as "skip this provider", never as a caller-facing error.
var ErrOpen = errors.New("circuit open")

// State is the breaker position.
type State string

// Breaker states.
const (
	Closed   State = "closed"
	Open     State = "open"
	HalfOpen State = "half_open"
)

// Config tunes one breaker. Zero values take the defaults.
type Config struct {
	// Enabled=false makes the breaker transparent: Allow always passes and
	// records are ignored.
	Enabled bool

	// FailureThreshold is the consecutive-failure count that trips the
	// circuit. Default: 5.
	FailureThreshold int

	// Timeout is how long the circuit stays open after the last failure
	// before permitting a half-open trial. Default: 60s.
	Timeout time.Duration

	// HalfOpenMax is how many trial calls half-open admits before blocking
	// again. Default: 1.
	HalfOpenMax int
}

func (c *Config) defaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.HalfOpenMax <= 0 {
		c.HalfOpenMax = 1
	}
}

// Breaker is one provider's circuit. Safe for concurrent use; the lock is
// only held to read or transition state, never across upstream I/O.
type Breaker struct {
	cfg Config

	mu              sync.Mutex
	state           State
	failures        int
	lastFailure     time.Time
	lastStateChange time.Time
	halfOpenCount   int

	onTransition func(from, to State)

	// now is injectable for tests.
	now func() time.Time
}

// New creates a closed breaker.
func New(cfg Config) *Breaker {
	cfg.defaults()
	return &Breaker{
		cfg:   cfg,
		state: Closed,
		now:   time.Now,
	}
}

// SetNow overrides the breaker clock. Test hook.
func (b *Breaker) SetNow(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// OnTransition registers a callback fired (outside the lock) on every state
// change. Used for logging and metrics.
func (b *Breaker) OnTransition(fn func(from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTransition = fn
}

// Allow reports whether a call may proceed. An open circuit whose timeout
// has elapsed transitions to half-open and admits the trial; otherwise
// ErrOpen is returned.
func (b *Breaker) Allow() error {
	if !b.cfg.Enabled {
		return nil
	}

	b.mu.Lock()

	switch b.state {
	case Closed:
		b.mu.Unlock()
		return nil

	case Open:
		if b.now().Sub(b.lastFailure) < b.cfg.Timeout {
			b.mu.Unlock()
			return ErrOpen
		}
		fire := b.transitionLocked(HalfOpen)
		b.halfOpenCount = 1
		b.mu.Unlock()
		fire()
		return nil

	default: // HalfOpen
		if b.halfOpenCount < b.cfg.HalfOpenMax {
			b.halfOpenCount++
			b.mu.Unlock()
			return nil
		}
		b.mu.Unlock()
		return ErrOpen
	}
}

// RecordSuccess closes the circuit and resets the failure counter.
func (b *Breaker) RecordSuccess() {
	if !b.cfg.Enabled {
		return
	}

	b.mu.Lock()
	fire := func() {}
	if b.state != Closed {
		fire = b.transitionLocked(Closed)
	}
	b.failures = 0
	b.halfOpenCount = 0
	b.mu.Unlock()
	fire()
}

// RecordFailure counts a failure. In closed it trips to open at the
// threshold; in half-open it reopens immediately and restarts the timeout.
func (b *Breaker) RecordFailure() {
	if !b.cfg.Enabled {
		return
	}

	b.mu.Lock()
	fire := func() {}
	b.failures++
	b.lastFailure = b.now()

	switch b.state {
	case HalfOpen:
		fire = b.transitionLocked(Open)
		b.halfOpenCount = 0
	case Closed:
		if b.failures >= b.cfg.FailureThreshold {
			fire = b.transitionLocked(Open)
		}
	}
	b.mu.Unlock()
	fire()
}

// transitionLocked moves to the given state and returns the callback to run
// after the lock is released.
func (b *Breaker) transitionLocked(to State) func() {
	from := b.state
	b.state = to
	b.lastStateChange = b.now()
	if b.onTransition == nil || from == to {
		return func() {}
	}
	fn := b.onTransition
	return func() { fn(from, to) }
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// LastFailure returns when the most recent failure was recorded.
func (b *Breaker) LastFailure() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastFailure
}
