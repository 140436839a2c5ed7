package dispatch

import (
	"time"

	"github.com/flemzord/finbridge/internal/source"
)

// Observer receives dispatch telemetry. The gateway wires a Prometheus
// implementation; the default discards everything.
type Observer interface {
	// ObserveAttempt is called once per provider attempt (including
	// circuit-open skips, with success=false).
	ObserveAttempt(provider source.Name, success bool)

	// ObserveRotation is called when a rate limit forces key rotation.
	ObserveRotation(provider source.Name)

	// ObserveDispatch is called once per dispatch with the terminal
	// outcome tag ("success", "permanent", "aggregate", "deadline",
	// "unavailable") and the total duration.
	ObserveDispatch(op source.Operation, outcome string, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveAttempt(source.Name, bool) {}
func (nopObserver) ObserveRotation(source.Name) {}
func (nopObserver) ObserveDispatch(source.Operation, string, time.Duration) {}
