// Package faults is the error taxonomy shared by adapters and the
// dispatcher. Adapters wrap upstream failures in UpstreamError; the
// dispatcher switches on Classify instead of on error ancestry.
package faults

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Class partitions upstream failures by how the dispatcher should react.
type Class int

// Classification outcomes. RateLimit, Transient and Timeout fail over to
// the next candidate; Permanent aborts the cascade.
const (
	ClassPermanent Class = iota
	ClassRateLimit
	ClassTransient
	ClassTimeout
)

// String returns the classification tag used in logs and attempt records.
func (c Class) String() string {
	switch c {
	case ClassRateLimit:
		return "RATE_LIMIT"
	case ClassTransient:
		return "TRANSIENT"
	case ClassTimeout:
		return "TIMEOUT"
	default:
		return "PERMANENT"
	}
}

// Retryable reports whether the cascade should continue past this class.
func (c Class) Retryable() bool {
	return c == ClassRateLimit || c == ClassTransient || c == ClassTimeout
}

// UpstreamError is a failure reported by a provider adapter. Status is the
// HTTP status code when one was observed, zero otherwise. The rendered
// message always embeds the status so substring classification holds even
// after the error crosses a string boundary.
type UpstreamError struct {
	Provider string
	Status   int
	Message  string
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

var rateLimitMarkers = []string{
	"429",
	"rate limit",
	"rate-limit",
	"ratelimit",
	"too many requests",
	"quota exceeded",
	"api limit",
	"throttl",
}

var transientMarkers = []string{
	"econnreset",
	"econnrefused",
	"network",
}

// Classify tags an error. Rules run in order: rate-limit markers, timeout
// signals, transient signals, then Permanent. Matching is case-insensitive
// over the full rendered message, so a wrapped "HTTP 429" still classifies
// as a rate limit.
func Classify(err error) Class {
	if err == nil {
		return ClassPermanent
	}

	msg := strings.ToLower(err.Error())

	for _, m := range rateLimitMarkers {
		if strings.Contains(msg, m) {
			return ClassRateLimit
		}
	}

	var ue *UpstreamError
	hasStatus := errors.As(err, &ue)
	if hasStatus && ue.Status == 429 {
		return ClassRateLimit
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTimeout
	}
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") {
		return ClassTimeout
	}

	if hasStatus && ue.Status >= 500 {
		return ClassTransient
	}
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return ClassTransient
		}
	}

	return ClassPermanent
}
