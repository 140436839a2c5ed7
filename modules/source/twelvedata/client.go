package twelvedata

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

// get issues a GET against path and decodes into out. Twelve Data reports
// errors both as HTTP status and as a {"code":...,"status":"error"} body;
// both paths end in a classifiable UpstreamError.
func (t *TwelveData) get(ctx context.Context, path string, query url.Values, key string, out any) error {
	query.Set("apikey", key)
	u := t.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("twelvedata: building request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("twelvedata: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("twelvedata: reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &faults.UpstreamError{
			Provider: string(source.TwelveData),
			Status:   resp.StatusCode,
			Message:  string(body),
		}
	}

	var envelope struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Status == "error" {
		return &faults.UpstreamError{
			Provider: string(source.TwelveData),
			Status:   envelope.Code,
			Message:  envelope.Message,
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &faults.UpstreamError{Provider: string(source.TwelveData), Message: "decoding response: " + err.Error()}
	}
	return nil
}
