package breaker

import (
	"errors"
	"testing"
	"time"
)

func testBreaker(threshold int, timeout time.Duration) (*Breaker, func(time.Duration)) {
	b := New(Config{Enabled: true, FailureThreshold: threshold, Timeout: timeout})
	now := time.Unix(1000, 0)
	b.SetNow(func() time.Time { return now })
	return b, func(d time.Duration) { now = now.Add(d) }
}

// Exactly threshold consecutive failures trip closed -> open.
func TestTripsAtThreshold(t *testing.T) {
	b, _ := testBreaker(3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	if b.State() != Closed {
		t.Fatalf("state after 2 failures = %s, want closed", b.State())
	}

	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("state after 3 failures = %s, want open", b.State())
	}
	if b.Failures() != 3 {
		t.Fatalf("failures = %d, want 3", b.Failures())
	}
}

func TestOpenShortCircuits(t *testing.T) {
	b, advance := testBreaker(1, time.Minute)

	b.RecordFailure()
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("Allow while open = %v, want ErrOpen", err)
	}

	advance(59 * time.Second)
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("Allow before timeout = %v, want ErrOpen", err)
	}

	advance(time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("Allow after timeout = %v, want trial permitted", err)
	}
	if b.State() != HalfOpen {
		t.Fatalf("state = %s, want half_open", b.State())
	}
}

func TestHalfOpenSuccessCloses(t *testing.T) {
	b, advance := testBreaker(1, time.Minute)

	b.RecordFailure()
	advance(time.Minute)
	if err := b.Allow(); err != nil {
		t.Fatal(err)
	}

	b.RecordSuccess()
	if b.State() != Closed {
		t.Fatalf("state = %s, want closed", b.State())
	}
	if b.Failures() != 0 {
		t.Fatalf("failures = %d, want 0", b.Failures())
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b, advance := testBreaker(1, time.Minute)

	b.RecordFailure()
	advance(time.Minute)
	if err := b.Allow(); err != nil {
		t.Fatal(err)
	}

	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("state = %s, want open", b.State())
	}

	// The timeout restarts from the half-open failure.
	advance(30 * time.Second)
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("Allow = %v, want ErrOpen", err)
	}
}

func TestHalfOpenAdmitsLimitedTrials(t *testing.T) {
	b := New(Config{Enabled: true, FailureThreshold: 1, Timeout: time.Minute, HalfOpenMax: 2})
	now := time.Unix(1000, 0)
	b.SetNow(func() time.Time { return now })

	b.RecordFailure()
	now = now.Add(time.Minute)

	if err := b.Allow(); err != nil {
		t.Fatal("first trial should pass")
	}
	if err := b.Allow(); err != nil {
		t.Fatal("second trial should pass")
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("third trial = %v, want ErrOpen", err)
	}
}

func TestSuccessResetsClosedCounter(t *testing.T) {
	b, _ := testBreaker(3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	if b.Failures() != 0 {
		t.Fatalf("failures = %d, want 0", b.Failures())
	}

	b.RecordFailure()
	b.RecordFailure()
	if b.State() != Closed {
		t.Fatal("two failures after reset must not trip a threshold-3 breaker")
	}
}

func TestDisabledBreakerIsTransparent(t *testing.T) {
	b := New(Config{Enabled: false, FailureThreshold: 1})
	b.RecordFailure()
	b.RecordFailure()
	if err := b.Allow(); err != nil {
		t.Fatalf("disabled breaker Allow = %v, want nil", err)
	}
	if b.State() != Closed {
		t.Fatalf("disabled breaker state = %s", b.State())
	}
}

func TestOnTransitionFires(t *testing.T) {
	b, advance := testBreaker(1, time.Minute)

	var transitions []string
	b.OnTransition(func(from, to State) {
		transitions = append(transitions, string(from)+">"+string(to))
	})

	b.RecordFailure()
	advance(time.Minute)
	_ = b.Allow()
	b.RecordSuccess()

	want := []string{"closed>open", "open>half_open", "half_open>closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", transitions, want)
		}
	}
}
