package sina

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/flemzord/finbridge/internal/faults"
	"github.com/flemzord/finbridge/internal/market"
	"github.com/flemzord/finbridge/internal/source"
	"github.com/flemzord/finbridge/pkg/record"
)

func (s *Sina) quote(ctx context.Context, call source.Call) (any, error) {
	code, mkt, err := sinaCode(call.Symbol)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("sina: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/list="+code, nil)
	if err != nil {
		return nil, fmt.Errorf("sina: building request: %w", err)
	}
	req.Header.Set("Referer", refererValue)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sina: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &faults.UpstreamError{Provider: string(source.Sina), Status: resp.StatusCode, Message: "quote fetch failed"}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("sina: reading response: %w", err)
	}

	fields, err := parseFields(string(body))
	if err != nil {
		return nil, err
	}

	if mkt == market.HK {
		return hkQuote(call.Symbol, fields)
	}
	return ashareQuote(call.Symbol, fields)
}

// parseFields extracts the comma-separated payload from the
// `var hq_str_xx="...";` envelope.
func parseFields(body string) ([]string, error) {
	start := strings.Index(body, `"`)
	end := strings.LastIndex(body, `"`)
	if start < 0 || end <= start {
		return nil, &faults.UpstreamError{Provider: string(source.Sina), Message: "malformed quote payload"}
	}
	payload := body[start+1 : end]
	if payload == "" {
		return nil, &faults.UpstreamError{Provider: string(source.Sina), Status: 404, Message: "empty quote payload"}
	}
	return strings.Split(payload, ","), nil
}

// A-share field layout: name, open, prev close, current, high, low, ...
func ashareQuote(symbol string, f []string) (record.Quote, error) {
	if len(f) < 6 {
		return record.Quote{}, &faults.UpstreamError{Provider: string(source.Sina), Message: "unexpected quote field count"}
	}

	current := fnum(f[3])
	prevClose := fnum(f[2])

	q := record.Quote{
		Symbol:    symbol,
		Current:   current,
		DayOpen:   fnum(f[1]),
		DayHigh:   fnum(f[4]),
		DayLow:    fnum(f[5]),
		PrevClose: prevClose,
	}
	if prevClose != 0 {
		q.Change = current - prevClose
		q.PercentChange = q.Change / prevClose * 100
	}
	return q, nil
}

// HK field layout: english name, name, open, prev close, high, low,
// current, change, percent change, ...
func hkQuote(symbol string, f []string) (record.Quote, error) {
	if len(f) < 9 {
		return record.Quote{}, &faults.UpstreamError{Provider: string(source.Sina), Message: "unexpected quote field count"}
	}

	return record.Quote{
		Symbol:        symbol,
		Current:       fnum(f[6]),
		Change:        fnum(f[7]),
		PercentChange: fnum(f[8]),
		DayHigh:       fnum(f[4]),
		DayLow:        fnum(f[5]),
		DayOpen:       fnum(f[2]),
		PrevClose:     fnum(f[3]),
	}, nil
}

// sinaCode converts a gateway symbol into Sina's list code (sh601899,
// sz000001, hk00700).
func sinaCode(symbol string) (string, market.Market, error) {
	m := market.Classify(symbol)
	digits := strings.SplitN(symbol, ".", 2)[0]

	switch m {
	case market.SH:
		return "sh" + digits, m, nil
	case market.SZ:
		return "sz" + digits, m, nil
	case market.BJ:
		return "bj" + digits, m, nil
	case market.HK:
		for len(digits) < 5 {
			digits = "0" + digits
		}
		return "hk" + digits, m, nil
	default:
		return "", m, &faults.UpstreamError{Provider: string(source.Sina), Message: "unsupported market for symbol " + symbol}
	}
}

func fnum(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
