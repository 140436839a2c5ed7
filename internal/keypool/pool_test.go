package keypool

import (
	"testing"
	"time"
)

func fakeClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}

func TestParseCredentials(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{" , ,", nil},
		{"k1", []string{"k1"}},
		{"k1,k2,k3", []string{"k1", "k2", "k3"}},
		{" k1 , ,k2 ", []string{"k1", "k2"}},
	}
	for _, tt := range tests {
		got := ParseCredentials(tt.raw)
		if len(got) != len(tt.want) {
			t.Errorf("ParseCredentials(%q) = %v, want %v", tt.raw, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseCredentials(%q)[%d] = %q, want %q", tt.raw, i, got[i], tt.want[i])
			}
		}
	}
}

func TestEmptyPoolIsUnavailable(t *testing.T) {
	p := New(nil, time.Minute, true)
	if p != nil {
		t.Fatal("pool over zero credentials should be nil")
	}
	if p.Size() != 0 {
		t.Fatal("nil pool size should be 0")
	}
	if _, ok := p.Acquire(); ok {
		t.Fatal("nil pool must not hand out keys")
	}
}

func TestAcquireRoundRobinAfterRateLimit(t *testing.T) {
	clock, _ := fakeClock(time.Unix(1000, 0))
	p := New([]string{"bad1", "good2"}, time.Minute, true)
	p.SetNow(clock)

	k, ok := p.Acquire()
	if !ok || k.Index != 0 || k.Credential != "bad1" {
		t.Fatalf("first acquire = %+v ok=%v, want index 0", k, ok)
	}

	p.MarkRateLimited(0)
	if !p.Rotate() {
		t.Fatal("rotate should find key 1")
	}

	k, ok = p.Acquire()
	if !ok || k.Index != 1 || k.Credential != "good2" {
		t.Fatalf("acquire after rotate = %+v ok=%v, want index 1", k, ok)
	}

	snap := p.Snapshot()
	if !snap[0].InCooldown {
		t.Error("key 0 should be cooling down")
	}
	if snap[1].InCooldown {
		t.Error("key 1 should be available")
	}
}

// All keys rate-limited within one window: acquire returns nothing until a
// cooldown expires, then keys flow again.
func TestAllKeysCoolingThenExpiry(t *testing.T) {
	clock, advance := fakeClock(time.Unix(1000, 0))
	p := New([]string{"a", "b", "c"}, time.Minute, true)
	p.SetNow(clock)

	for i := 0; i < 3; i++ {
		p.MarkRateLimited(i)
	}

	if _, ok := p.Acquire(); ok {
		t.Fatal("acquire should fail with every key cooling")
	}
	if p.Rotate() {
		t.Fatal("rotate should fail with every key cooling")
	}

	advance(time.Minute)

	k, ok := p.Acquire()
	if !ok {
		t.Fatal("acquire should succeed after cooldown expiry")
	}
	if k.InCooldown {
		t.Error("lazily swept key must not report cooldown")
	}
}

func TestSingleKeyNeverRotates(t *testing.T) {
	p := New([]string{"only"}, time.Minute, true)
	if p.Rotate() {
		t.Fatal("single-key pool must not rotate")
	}
	k, ok := p.Acquire()
	if !ok || k.Index != 0 {
		t.Fatalf("acquire = %+v ok=%v", k, ok)
	}
}

func TestRotationDisabled(t *testing.T) {
	p := New([]string{"a", "b"}, time.Minute, false)
	if p.Rotate() {
		t.Fatal("rotation disabled: Rotate must report false")
	}
}

func TestRecordSuccessCountsUsage(t *testing.T) {
	clock, _ := fakeClock(time.Unix(2000, 0))
	p := New([]string{"a"}, time.Minute, true)
	p.SetNow(clock)

	p.RecordSuccess(0)
	p.RecordSuccess(0)

	snap := p.Snapshot()
	if snap[0].UsageCount != 2 {
		t.Errorf("usage count = %d, want 2", snap[0].UsageCount)
	}
	if !snap[0].LastUsed.Equal(time.Unix(2000, 0)) {
		t.Errorf("last used = %v", snap[0].LastUsed)
	}
}

func TestKeylessPoolNeverCoolsDown(t *testing.T) {
	p := NewKeyless()
	if p.Size() != 1 {
		t.Fatalf("keyless pool size = %d, want 1", p.Size())
	}

	p.MarkRateLimited(0)

	k, ok := p.Acquire()
	if !ok {
		t.Fatal("keyless pool must always hand out its key")
	}
	if k.Credential != "" {
		t.Errorf("keyless credential = %q, want empty", k.Credential)
	}
	if k.InCooldown {
		t.Error("keyless key must never cool down")
	}
}

// Cooldown invariant: in_cooldown iff cooldown_until > now, enforced lazily
// on any access.
func TestCooldownClearedLazily(t *testing.T) {
	clock, advance := fakeClock(time.Unix(1000, 0))
	p := New([]string{"a", "b"}, 30*time.Second, true)
	p.SetNow(clock)

	p.MarkRateLimited(0)
	advance(31 * time.Second)

	k, ok := p.Acquire()
	if !ok || k.Index != 0 {
		t.Fatalf("acquire = %+v ok=%v, want swept key 0", k, ok)
	}
	if k.InCooldown || !k.CooldownUntil.IsZero() {
		t.Errorf("cooldown not cleared: %+v", k)
	}
}
