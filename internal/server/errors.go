package server

import (
	"encoding/json"
	"errors"

	"github.com/flemzord/finbridge/internal/dispatch"
)

// renderError maps dispatch and validation errors onto the caller-facing
// message. Aggregate and deadline failures carry their attempt log for
// debuggability.
func renderError(err error) string {
	var ae *dispatch.AggregateError
	if errors.As(err, &ae) {
		return withAttempts(ae.Error(), ae.Attempts)
	}

	var de *dispatch.DeadlineError
	if errors.As(err, &de) {
		return withAttempts(de.Error(), de.Attempts)
	}

	// INVALID_ARGUMENT, SERVICE_UNAVAILABLE and UPSTREAM_PERMANENT carry
	// their message directly.
	return err.Error()
}

func withAttempts(msg string, attempts []dispatch.Attempt) string {
	log, err := json.Marshal(attempts)
	if err != nil {
		return msg
	}
	return msg + "\nattempts: " + string(log)
}
