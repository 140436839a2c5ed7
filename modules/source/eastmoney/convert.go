package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/flemzord/finbridge/internal/faults"
	"github.com/flemzord/finbridge/internal/market"
	"github.com/flemzord/finbridge/internal/source"
	"github.com/flemzord/finbridge/pkg/record"
)

// get performs a paced GET with the required referer and decodes into out.
func (e *EastMoney) get(ctx context.Context, base, path string, query url.Values, out any) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("eastmoney: %w", err)
	}

	u := base + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("eastmoney: building request: %w", err)
	}
	req.Header.Set("Referer", refererValue)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("eastmoney: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &faults.UpstreamError{Provider: string(source.EastMoney), Status: resp.StatusCode, Message: "request failed"}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("eastmoney: reading response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &faults.UpstreamError{Provider: string(source.EastMoney), Message: "decoding response: " + err.Error()}
	}
	return nil
}

func (e *EastMoney) quote(ctx context.Context, call source.Call) (any, error) {
	secid, err := secidFor(call.Symbol)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data *struct {
			Current   float64 `json:"f43"`
			High      float64 `json:"f44"`
			Low       float64 `json:"f45"`
			Open      float64 `json:"f46"`
			PrevClose float64 `json:"f60"`
			Change    float64 `json:"f169"`
			PctChange float64 `json:"f170"`
		} `json:"data"`
	}

	q := url.Values{
		"invt":   {"2"},
		"fltt":   {"2"},
		"secid":  {secid},
		"fields": {"f43,f44,f45,f46,f60,f169,f170"},
	}
	if err := e.get(ctx, e.quoteBaseURL, "/api/qt/stock/get", q, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, &faults.UpstreamError{Provider: string(source.EastMoney), Status: 404, Message: "no quote data for " + call.Symbol}
	}

	d := resp.Data
	return record.Quote{
		Symbol:        call.Symbol,
		Current:       d.Current,
		Change:        d.Change,
		PercentChange: d.PctChange,
		DayHigh:       d.High,
		DayLow:        d.Low,
		DayOpen:       d.Open,
		PrevClose:     d.PrevClose,
	}, nil
}

func (e *EastMoney) fetchKlines(ctx context.Context, call source.Call) ([]record.Candle, error) {
	secid, err := secidFor(call.Symbol)
	if err != nil {
		return nil, err
	}

	beg := "0"
	end := "20500101"
	if call.From != "" {
		beg = strings.ReplaceAll(call.From, "-", "")
	}
	if call.To != "" {
		end = strings.ReplaceAll(call.To, "-", "")
	}

	var resp struct {
		Data *struct {
			Klines []string `json:"klines"`
		} `json:"data"`
	}

	q := url.Values{
		"secid":   {secid},
		"klt":     {"101"},
		"fqt":     {"1"},
		"beg":     {beg},
		"end":     {end},
		"fields1": {"f1,f2,f3"},
		"fields2": {"f51,f52,f53,f54,f55,f56"},
	}
	if err := e.get(ctx, e.historyBaseURL, "/api/qt/stock/kline/get", q, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil || len(resp.Data.Klines) == 0 {
		return nil, &faults.UpstreamError{Provider: string(source.EastMoney), Status: 404, Message: "no kline data for " + call.Symbol}
	}

	candles := make([]record.Candle, 0, len(resp.Data.Klines))
	for _, row := range resp.Data.Klines {
		c, err := parseKline(row)
		if err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func (e *EastMoney) candles(ctx context.Context, call source.Call) (any, error) {
	return e.fetchKlines(ctx, call)
}

func (e *EastMoney) dailyPrices(ctx context.Context, call source.Call) (any, error) {
	candles, err := e.fetchKlines(ctx, call)
	if err != nil {
		return nil, err
	}
	out := make(map[string]record.Candle, len(candles))
	for _, c := range candles {
		out[c.Date] = c
	}
	return out, nil
}

// parseKline splits one "date,open,close,high,low,volume" row.
func parseKline(row string) (record.Candle, error) {
	f := strings.Split(row, ",")
	if len(f) < 6 {
		return record.Candle{}, &faults.UpstreamError{Provider: string(source.EastMoney), Message: "unexpected kline row: " + row}
	}
	return record.Candle{
		Date:   f[0],
		Open:   fnum(f[1]),
		Close:  fnum(f[2]),
		High:   fnum(f[3]),
		Low:    fnum(f[4]),
		Volume: fnum(f[5]),
	}, nil
}

// secidFor maps a symbol to East Money's market-prefixed security id:
// 1.<code> for Shanghai, 0.<code> for Shenzhen and Beijing, 116.<code>
// for Hong Kong.
func secidFor(symbol string) (string, error) {
	digits := strings.SplitN(symbol, ".", 2)[0]

	switch market.Classify(symbol) {
	case market.SH:
		return "1." + digits, nil
	case market.SZ, market.BJ:
		return "0." + digits, nil
	case market.HK:
		for len(digits) < 5 {
			digits = "0" + digits
		}
		return "116." + digits, nil
	default:
		return "", &faults.UpstreamError{Provider: string(source.EastMoney), Message: "unsupported market for symbol " + symbol}
	}
}

func fnum(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
