package tiingo

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

// get issues an authenticated GET and decodes into out. Header auth is
// tried first; an HTTP 403 triggers one retry with token= query auth
// before the error is surfaced.
func (t *Tiingo) get(ctx context.Context, path string, query url.Values, key string, out any) error {
	resp, err := t.do(ctx, path, query, key, true)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusForbidden {
		_ = resp.Body.Close()
		t.logger.Debug("header auth rejected, retrying with query token", "path", path)
		resp, err = t.do(ctx, path, query, key, false)
		if err != nil {
			return err
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return mapHTTPError(resp.StatusCode, resp.Body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &faults.UpstreamError{Provider: string(source.Tiingo), Message: "decoding response: " + err.Error()}
	}
	return nil
}

func (t *Tiingo) do(ctx context.Context, path string, query url.Values, key string, headerAuth bool) (*http.Response, error) {
	q := url.Values{}
	for k, vs := range query {
		q[k] = vs
	}
	if !headerAuth {
		q.Set("token", key)
	}

	u := t.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("tiingo: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if headerAuth {
		req.Header.Set("Authorization", "Token "+key)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tiingo: %w", err)
	}
	return resp, nil
}

func mapHTTPError(status int, body io.Reader) error {
	data, _ := io.ReadAll(io.LimitReader(body, 2048))

	var payload struct {
		Detail string `json:"detail"`
	}
	msg := ""
	if len(data) > 0 {
		_ = json.Unmarshal(data, &payload)
		msg = payload.Detail
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &faults.UpstreamError{Provider: string(source.Tiingo), Status: status, Message: msg}
}
