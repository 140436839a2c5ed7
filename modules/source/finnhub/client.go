package finnhub

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

// get issues an authenticated GET against path with query and decodes the
// JSON body into out. Upstream failures carry the HTTP status in the
// message so the error classifier can categorize them.
func (f *Finnhub) get(ctx context.Context, path string, query url.Values, key string, out any) error {
	u := f.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("finnhub: building request: %w", err)
	}
	req.Header.Set("X-Finnhub-Token", key)

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("finnhub: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return mapHTTPError(resp.StatusCode, resp.Body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &faults.UpstreamError{Provider: string(source.Finnhub), Message: fmt.Sprintf("decoding response: %v", err)}
	}
	return nil
}

// mapHTTPError turns a non-2xx response into a classifiable UpstreamError.
func mapHTTPError(status int, body io.Reader) error {
	data, _ := io.ReadAll(io.LimitReader(body, 2048))

	var payload struct {
		Error string `json:"error"`
	}
	msg := ""
	if len(data) > 0 {
		_ = json.Unmarshal(data, &payload)
		msg = payload.Error
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &faults.UpstreamError{Provider: string(source.Finnhub), Status: status, Message: msg}
}
