package server

import (
	"errors"
	"strings"
	"testing"

	"github.com/flemzord/finbridge/internal/dispatch"
)

func TestRenderErrorAttachesAttempts(t *testing.T) {
	err := &dispatch.AggregateError{
		Tool: "get_stock_quote",
		Attempts: []dispatch.Attempt{
			{Provider: "finnhub", KeyIndex: 0, Error: "finnhub: HTTP 503: down"},
			{Provider: "twelvedata", KeyIndex: 0, Error: "twelvedata: HTTP 503: down"},
		},
		Errs: []error{errors.New("finnhub: HTTP 503: down"), errors.New("twelvedata: HTTP 503: down")},
	}

	msg := renderError(err)
	if !strings.Contains(msg, "all sources failed for get_stock_quote") {
		t.Errorf("message = %q", msg)
	}
	if !strings.Contains(msg, "finnhub: HTTP 503: down; twelvedata: HTTP 503: down") {
		t.Errorf("message must concatenate per-provider errors, got %q", msg)
	}
	if !strings.Contains(msg, `"key_index":0`) {
		t.Errorf("message must attach the attempt log, got %q", msg)
	}
}

func TestRenderErrorDeadlineNotesAttemptCount(t *testing.T) {
	err := &dispatch.DeadlineError{
		Tool:     "get_news",
		Attempts: []dispatch.Attempt{{Provider: "finnhub"}},
	}

	msg := renderError(err)
	if !strings.Contains(msg, "deadline exceeded") || !strings.Contains(msg, "1 attempts") {
		t.Errorf("message = %q", msg)
	}
}

func TestRenderErrorPlainMessagePassesThrough(t *testing.T) {
	err := errors.New("invalid argument: get_stock_quote requires \"symbol\"")
	if got := renderError(err); got != err.Error() {
		t.Errorf("message = %q", got)
	}
}
