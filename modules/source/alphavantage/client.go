package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/flemzord/finbridge/internal/faults"
	"github.com/flemzord/finbridge/internal/source"
)

// query issues GET /query?function=... and returns the raw body. Alpha
// Vantage reports quota exhaustion and bad requests inside HTTP 200
// payloads, so the body is screened for application-level errors before
// the caller decodes it.
func (a *AlphaVantage) query(ctx context.Context, params url.Values, key string) ([]byte, error) {
	params.Set("apikey", key)
	u := a.baseURL + "/query?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("alphavantage: building request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alphavantage: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &faults.UpstreamError{
			Provider: string(source.AlphaVantage),
			Status:   resp.StatusCode,
			Message:  http.StatusText(resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("alphavantage: reading response: %w", err)
	}

	if err := screenBody(body); err != nil {
		return nil, err
	}
	return body, nil
}

// screenBody detects Alpha Vantage's in-band error envelopes: an "Error
// Message" is a permanent bad request, a "Note" or "Information" is the
// free-tier quota notice.
func screenBody(body []byte) error {
	var envelope struct {
		ErrorMessage string `json:"Error Message"`
		Note         string `json:"Note"`
		Information  string `json:"Information"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		// Non-object payloads pass through to the caller's decoder.
		return nil
	}

	switch {
	case envelope.ErrorMessage != "":
		return &faults.UpstreamError{Provider: string(source.AlphaVantage), Message: envelope.ErrorMessage}
	case envelope.Note != "":
		return &faults.UpstreamError{Provider: string(source.AlphaVantage), Message: "rate limit: " + envelope.Note}
	case envelope.Information != "":
		return &faults.UpstreamError{Provider: string(source.AlphaVantage), Message: "api limit: " + envelope.Information}
	}
	return nil
}
