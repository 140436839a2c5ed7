package twelvedata

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/flemzord/finbridge/internal/faults"
	"github.com/flemzord/finbridge/internal/source"
	"github.com/flemzord/finbridge/pkg/record"
)

func (t *TwelveData) quote(ctx context.Context, call source.Call) (any, error) {
	var resp struct {
		Symbol        string `json:"symbol"`
		Open          string `json:"open"`
		High          string `json:"high"`
		Low           string `json:"low"`
		Close         string `json:"close"`
		PreviousClose string `json:"previous_close"`
		Change        string `json:"change"`
		PercentChange string `json:"percent_change"`
	}

	q := url.Values{"symbol": {call.Symbol}}
	if err := t.get(ctx, "/quote", q, call.Key, &resp); err != nil {
		return nil, err
	}
	if resp.Symbol == "" {
		return nil, t.notFound("no quote data for " + call.Symbol)
	}

	return record.Quote{
		Symbol:        call.Symbol,
		Current:       num(resp.Close),
		Change:        num(resp.Change),
		PercentChange: num(resp.PercentChange),
		DayHigh:       num(resp.High),
		DayLow:        num(resp.Low),
		DayOpen:       num(resp.Open),
		PrevClose:     num(resp.PreviousClose),
	}, nil
}

// seriesResponse is the shared shape of /time_series and indicator
// endpoints.
type seriesResponse struct {
	Values []map[string]string `json:"values"`
	Status string              `json:"status"`
}

func (t *TwelveData) timeSeries(ctx context.Context, call source.Call, interval, outputSize string) ([]record.Candle, error) {
	q := url.Values{
		"symbol":   {call.Symbol},
		"interval": {interval},
	}
	if outputSize != "" {
		q.Set("outputsize", outputSize)
	}
	if call.From != "" {
		q.Set("start_date", call.From)
	}
	if call.To != "" {
		q.Set("end_date", call.To)
	}

	var resp seriesResponse
	if err := t.get(ctx, "/time_series", q, call.Key, &resp); err != nil {
		return nil, err
	}
	if len(resp.Values) == 0 {
		return nil, t.notFound("no time series for " + call.Symbol)
	}

	// Twelve Data returns newest first; the gateway's candle order is
	// oldest first.
	candles := make([]record.Candle, 0, len(resp.Values))
	for i := len(resp.Values) - 1; i >= 0; i-- {
		v := resp.Values[i]
		candles = append(candles, record.Candle{
			Date:   v["datetime"],
			Open:   num(v["open"]),
			High:   num(v["high"]),
			Low:    num(v["low"]),
			Close:  num(v["close"]),
			Volume: num(v["volume"]),
		})
	}
	return candles, nil
}

func (t *TwelveData) candles(ctx context.Context, call source.Call) (any, error) {
	return t.timeSeries(ctx, call, intervalFor(call.Resolution), "")
}

func (t *TwelveData) dailyPrices(ctx context.Context, call source.Call) (any, error) {
	size := "30"
	if call.OutputSize == "full" {
		size = "5000"
	}
	candles, err := t.timeSeries(ctx, call, "1day", size)
	if err != nil {
		return nil, err
	}

	out := make(map[string]record.Candle, len(candles))
	for _, c := range candles {
		out[c.Date] = c
	}
	return out, nil
}

func (t *TwelveData) overview(ctx context.Context, call source.Call) (any, error) {
	var resp struct {
		Symbol      string `json:"symbol"`
		Name        string `json:"name"`
		Industry    string `json:"industry"`
		Sector      string `json:"sector"`
		Description string `json:"description"`
	}

	q := url.Values{"symbol": {call.Symbol}}
	if err := t.get(ctx, "/profile", q, call.Key, &resp); err != nil {
		return nil, err
	}
	if resp.Symbol == "" && resp.Name == "" {
		return nil, t.notFound("no profile for " + call.Symbol)
	}

	return record.CompanyInfo{
		Symbol:      call.Symbol,
		Name:        resp.Name,
		Industry:    resp.Industry,
		Sector:      resp.Sector,
		Description: resp.Description,
	}, nil
}

func (t *TwelveData) indicator(ctx context.Context, call source.Call) (any, error) {
	name := strings.ToLower(call.Indicator)
	if name == "" {
		return nil, t.notFound("missing indicator name")
	}
	period := call.TimePeriod
	if period == "" {
		period = "14"
	}

	q := url.Values{
		"symbol":      {call.Symbol},
		"interval":    {intervalFor(call.Interval)},
		"time_period": {period},
	}

	var resp seriesResponse
	if err := t.get(ctx, "/"+name, q, call.Key, &resp); err != nil {
		return nil, err
	}
	if len(resp.Values) == 0 {
		return nil, t.notFound("no " + strings.ToUpper(name) + " series for " + call.Symbol)
	}

	points := make([]record.IndicatorPoint, 0, len(resp.Values))
	for i := len(resp.Values) - 1; i >= 0; i-- {
		v := resp.Values[i]
		val, ok := v[name]
		if !ok {
			for k, vv := range v {
				if k != "datetime" {
					val = vv
					break
				}
			}
		}
		points = append(points, record.IndicatorPoint{Timestamp: v["datetime"], Value: num(val)})
	}

	return record.Indicator{
		Name:   strings.ToUpper(name),
		Symbol: call.Symbol,
		Series: points,
	}, nil
}

func (t *TwelveData) notFound(msg string) error {
	return &faults.UpstreamError{Provider: string(source.TwelveData), Status: 404, Message: msg}
}

func num(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
