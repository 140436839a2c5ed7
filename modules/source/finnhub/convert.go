package finnhub

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/flemzord/finbridge/internal/faults"
	"github.com/flemzord/finbridge/internal/source"
	"github.com/flemzord/finbridge/pkg/record"
)

func (f *Finnhub) quote(ctx context.Context, call source.Call) (any, error) {
	var resp struct {
		Current   float64 `json:"c"`
		Change    float64 `json:"d"`
		PctChange float64 `json:"dp"`
		High      float64 `json:"h"`
		Low       float64 `json:"l"`
		Open      float64 `json:"o"`
		PrevClose float64 `json:"pc"`
	}

	q := url.Values{"symbol": {call.Symbol}}
	if err := f.get(ctx, "/quote", q, call.Key, &resp); err != nil {
		return nil, err
	}

	// Finnhub answers 200 with all-zero fields for unknown symbols.
	if resp.Current == 0 && resp.PrevClose == 0 && resp.Open == 0 {
		return nil, &faults.UpstreamError{Provider: string(source.Finnhub), Status: 404, Message: "no quote data for " + call.Symbol}
	}

	return record.Quote{
		Symbol:        call.Symbol,
		Current:       resp.Current,
		Change:        resp.Change,
		PercentChange: resp.PctChange,
		DayHigh:       resp.High,
		DayLow:        resp.Low,
		DayOpen:       resp.Open,
		PrevClose:     resp.PrevClose,
	}, nil
}

func (f *Finnhub) candles(ctx context.Context, call source.Call) (any, error) {
	from, to := candleRange(call.From, call.To)

	resolution := call.Resolution
	if resolution == "" {
		resolution = "D"
	}

	var resp struct {
		Close  []float64 `json:"c"`
		High   []float64 `json:"h"`
		Low    []float64 `json:"l"`
		Open   []float64 `json:"o"`
		Times  []int64   `json:"t"`
		Volume []float64 `json:"v"`
		Status string    `json:"s"`
	}

	q := url.Values{
		"symbol":     {call.Symbol},
		"resolution": {resolution},
		"from":       {strconv.FormatInt(from, 10)},
		"to":         {strconv.FormatInt(to, 10)},
	}
	if err := f.get(ctx, "/stock/candle", q, call.Key, &resp); err != nil {
		return nil, err
	}

	if resp.Status != "ok" {
		return nil, &faults.UpstreamError{Provider: string(source.Finnhub), Status: 404, Message: "no candle data for " + call.Symbol}
	}

	candles := make([]record.Candle, 0, len(resp.Times))
	for i := range resp.Times {
		candles = append(candles, record.Candle{
			Date:   time.Unix(resp.Times[i], 0).UTC().Format("2006-01-02"),
			Open:   resp.Open[i],
			High:   resp.High[i],
			Low:    resp.Low[i],
			Close:  resp.Close[i],
			Volume: resp.Volume[i],
		})
	}
	return candles, nil
}

func (f *Finnhub) news(ctx context.Context, call source.Call) (any, error) {
	from, to := candleRange("", "")

	var resp []struct {
		Category string `json:"category"`
		Datetime int64  `json:"datetime"`
		Headline string `json:"headline"`
		ID       int64  `json:"id"`
		Related  string `json:"related"`
		Source   string `json:"source"`
		Summary  string `json:"summary"`
		URL      string `json:"url"`
	}

	q := url.Values{
		"symbol": {call.Symbol},
		"from":   {time.Unix(from, 0).UTC().Format("2006-01-02")},
		"to":     {time.Unix(to, 0).UTC().Format("2006-01-02")},
	}
	if err := f.get(ctx, "/company-news", q, call.Key, &resp); err != nil {
		return nil, err
	}

	var minID int64
	if call.MinID != "" {
		minID, _ = strconv.ParseInt(call.MinID, 10, 64)
	}

	items := make([]record.NewsItem, 0, len(resp))
	for _, n := range resp {
		if minID > 0 && n.ID <= minID {
			continue
		}
		if call.Category != "" && n.Category != call.Category {
			continue
		}
		items = append(items, record.NewsItem{
			ID:       n.ID,
			Headline: n.Headline,
			Summary:  n.Summary,
			URL:      n.URL,
			Datetime: n.Datetime,
			Source:   n.Source,
			Category: n.Category,
			Related:  n.Related,
		})
	}
	return items, nil
}

func (f *Finnhub) overview(ctx context.Context, call source.Call) (any, error) {
	var resp struct {
		Industry          string  `json:"finnhubIndustry"`
		MarketCap         float64 `json:"marketCapitalization"`
		Name              string  `json:"name"`
		SharesOutstanding float64 `json:"shareOutstanding"`
		Ticker            string  `json:"ticker"`
	}

	q := url.Values{"symbol": {call.Symbol}}
	if err := f.get(ctx, "/stock/profile2", q, call.Key, &resp); err != nil {
		return nil, err
	}

	if resp.Name == "" && resp.Ticker == "" {
		return nil, &faults.UpstreamError{Provider: string(source.Finnhub), Status: 404, Message: "no profile for " + call.Symbol}
	}

	return record.CompanyInfo{
		Symbol:            call.Symbol,
		Name:              resp.Name,
		Industry:          resp.Industry,
		MarketCap:         resp.MarketCap,
		SharesOutstanding: resp.SharesOutstanding,
	}, nil
}

// metricResponse is shared by the basic-financials and metrics handlers.
type metricResponse struct {
	Metric map[string]any `json:"metric"`
	Symbol string         `json:"symbol"`
}

func (f *Finnhub) fetchMetric(ctx context.Context, call source.Call, metricType string) (metricResponse, error) {
	if metricType == "" {
		metricType = "all"
	}
	var resp metricResponse
	q := url.Values{"symbol": {call.Symbol}, "metric": {metricType}}
	err := f.get(ctx, "/stock/metric", q, call.Key, &resp)
	return resp, err
}

func (f *Finnhub) basicFinancials(ctx context.Context, call source.Call) (any, error) {
	resp, err := f.fetchMetric(ctx, call, "all")
	if err != nil {
		return nil, err
	}
	if len(resp.Metric) == 0 {
		return nil, &faults.UpstreamError{Provider: string(source.Finnhub), Status: 404, Message: "no financials for " + call.Symbol}
	}
	return record.Financials{
		Symbol: call.Symbol,
		Period: "current",
		Income: numericLines(resp.Metric),
	}, nil
}

func (f *Finnhub) metrics(ctx context.Context, call source.Call) (any, error) {
	resp, err := f.fetchMetric(ctx, call, call.MetricType)
	if err != nil {
		return nil, err
	}
	if len(resp.Metric) == 0 {
		return nil, &faults.UpstreamError{Provider: string(source.Finnhub), Status: 404, Message: "no metrics for " + call.Symbol}
	}

	info := record.CompanyInfo{Symbol: call.Symbol}
	if v, ok := resp.Metric["marketCapitalization"].(float64); ok {
		info.MarketCap = v
	}
	return info, nil
}

// numericLines keeps only the numeric entries of a mixed metric map.
func numericLines(metric map[string]any) map[string]float64 {
	out := make(map[string]float64, len(metric))
	for k, v := range metric {
		if f, ok := v.(float64); ok {
			out[k] = f
		}
	}
	return out
}

// candleRange resolves the from/to date arguments, defaulting to the last
// year ending now.
func candleRange(fromArg, toArg string) (int64, int64) {
	now := time.Now().UTC()

	to := now
	if t, err := time.Parse("2006-01-02", toArg); err == nil {
		to = t
	}
	from := to.AddDate(-1, 0, 0)
	if t, err := time.Parse("2006-01-02", fromArg); err == nil {
		from = t
	}
	return from.Unix(), to.Unix()
}
