// Package keypool manages a provider's ordered credential set with
// round-robin advancement and per-key cooldown on rate limits.
package keypool

import (
	"strings"
	"sync"
	"time"
)

// Key is a snapshot of one credential slot. Returned by value so callers
// never observe concurrent mutation.
type Key struct {
	Credential      string
	Index           int
	UsageCount      int64
	LastUsed        time.Time
	InCooldown      bool
	CooldownUntil   time.Time
	LastRateLimited time.Time
}

type slot struct {
	credential      string
	usageCount      int64
	lastUsed        time.Time
	inCooldown      bool
	cooldownUntil   time.Time
	lastRateLimited time.Time
}

// Pool is the per-provider credential pool. The zero value is unusable;
// construct with New or NewKeyless.
type Pool struct {
	mu          sync.Mutex
	keys        []slot
	current     int
	resetWindow time.Duration
	rotation    bool
	keyless     bool

	// now is injectable for tests.
	now func() time.Time
}

// ParseCredentials splits a credential environment value on commas,
// dropping empty and whitespace-only entries.
func ParseCredentials(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// New creates a pool over the given credentials. A nil or empty credential
// list yields a nil pool, which callers treat as "provider unavailable".
// Rotation only engages with more than one key; with rotationEnabled=false
// Rotate always reports false, but Acquire still skips keys in cooldown.
func New(credentials []string, resetWindow time.Duration, rotationEnabled bool) *Pool {
	if len(credentials) == 0 {
		return nil
	}
	keys := make([]slot, len(credentials))
	for i, c := range credentials {
		keys[i] = slot{credential: c}
	}
	return &Pool{
		keys:        keys,
		resetWindow: resetWindow,
		rotation:    rotationEnabled && len(credentials) > 1,
		now:         time.Now,
	}
}

// NewKeyless creates a single-entry pool with a synthetic empty credential
// that never enters cooldown. Used by providers that authenticate by
// referer instead of API key.
func NewKeyless() *Pool {
	return &Pool{
		keys:    []slot{{credential: ""}},
		keyless: true,
		now:     time.Now,
	}
}

// SetNow overrides the pool clock. Test hook.
func (p *Pool) SetNow(now func() time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = now
}

// Size returns the number of credentials in the pool.
func (p *Pool) Size() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

// sweepLocked lazily clears expired cooldowns. Callers hold p.mu.
func (p *Pool) sweepLocked() {
	now := p.now()
	for i := range p.keys {
		if p.keys[i].inCooldown && !now.Before(p.keys[i].cooldownUntil) {
			p.keys[i].inCooldown = false
			p.keys[i].cooldownUntil = time.Time{}
		}
	}
}

// Acquire returns the current key if it is not cooling down; otherwise it
// scans forward up to 2n positions for an available key, advancing the
// cursor. The second return is false when every key is in cooldown.
func (p *Pool) Acquire() (Key, bool) {
	if p == nil {
		return Key{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sweepLocked()

	n := len(p.keys)
	for step := 0; step < 2*n; step++ {
		idx := (p.current + step) % n
		if !p.keys[idx].inCooldown {
			p.current = idx
			return p.snapshotLocked(idx), true
		}
	}
	return Key{}, false
}

// MarkRateLimited puts the key at index into cooldown for the reset window.
// Keyless pools ignore the call.
func (p *Pool) MarkRateLimited(index int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.keyless || index < 0 || index >= len(p.keys) {
		return
	}
	now := p.now()
	p.keys[index].inCooldown = true
	p.keys[index].cooldownUntil = now.Add(p.resetWindow)
	p.keys[index].lastRateLimited = now
}

// RecordSuccess bumps usage accounting for the key at index. Cooldown state
// is unchanged.
func (p *Pool) RecordSuccess(index int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= len(p.keys) {
		return
	}
	p.keys[index].usageCount++
	p.keys[index].lastUsed = p.now()
}

// Rotate advances the cursor past the current key to the next one not in
// cooldown. It reports whether such a key exists. Single-key pools and pools
// with rotation disabled never rotate.
func (p *Pool) Rotate() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.rotation {
		return false
	}

	p.sweepLocked()

	n := len(p.keys)
	for step := 1; step <= n; step++ {
		idx := (p.current + step) % n
		if !p.keys[idx].inCooldown {
			p.current = idx
			return true
		}
	}
	return false
}

// Snapshot returns a copy of every key slot, for status reporting.
func (p *Pool) Snapshot() []Key {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sweepLocked()

	out := make([]Key, len(p.keys))
	for i := range p.keys {
		out[i] = p.snapshotLocked(i)
	}
	return out
}

func (p *Pool) snapshotLocked(i int) Key {
	s := p.keys[i]
	return Key{
		Credential:      s.credential,
		Index:           i,
		UsageCount:      s.usageCount,
		LastUsed:        s.lastUsed,
		InCooldown:      s.inCooldown,
		CooldownUntil:   s.cooldownUntil,
		LastRateLimited: s.lastRateLimited,
	}
}
