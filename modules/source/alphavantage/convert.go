package alphavantage

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/flemzord/finbridge/internal/faults"
	"github.com/flemzord/finbridge/internal/source"
	"github.com/flemzord/finbridge/pkg/record"
)

func (a *AlphaVantage) quote(ctx context.Context, call source.Call) (any, error) {
	body, err := a.query(ctx, url.Values{
		"function": {"GLOBAL_QUOTE"},
		"symbol":   {call.Symbol},
	}, call.Key)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Quote map[string]string `json:"Global Quote"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, a.decodeErr(err)
	}
	if len(resp.Quote) == 0 {
		return nil, a.notFound("no quote data for " + call.Symbol)
	}

	q := resp.Quote
	return record.Quote{
		Symbol:        call.Symbol,
		Current:       num(q["05. price"]),
		Change:        num(q["09. change"]),
		PercentChange: num(strings.TrimSuffix(q["10. change percent"], "%")),
		DayHigh:       num(q["03. high"]),
		DayLow:        num(q["04. low"]),
		DayOpen:       num(q["02. open"]),
		PrevClose:     num(q["08. previous close"]),
	}, nil
}

func (a *AlphaVantage) dailyPrices(ctx context.Context, call source.Call) (any, error) {
	size := call.OutputSize
	if size == "" {
		size = "compact"
	}

	body, err := a.query(ctx, url.Values{
		"function":   {"TIME_SERIES_DAILY"},
		"symbol":     {call.Symbol},
		"outputsize": {size},
	}, call.Key)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Series map[string]map[string]string `json:"Time Series (Daily)"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, a.decodeErr(err)
	}
	if len(resp.Series) == 0 {
		return nil, a.notFound("no daily series for " + call.Symbol)
	}

	out := make(map[string]record.Candle, len(resp.Series))
	for date, bar := range resp.Series {
		out[date] = record.Candle{
			Date:   date,
			Open:   num(bar["1. open"]),
			High:   num(bar["2. high"]),
			Low:    num(bar["3. low"]),
			Close:  num(bar["4. close"]),
			Volume: num(bar["5. volume"]),
		}
	}
	return out, nil
}

func (a *AlphaVantage) news(ctx context.Context, call source.Call) (any, error) {
	body, err := a.query(ctx, url.Values{
		"function": {"NEWS_SENTIMENT"},
		"tickers":  {call.Symbol},
	}, call.Key)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Feed []struct {
			Title         string `json:"title"`
			URL           string `json:"url"`
			TimePublished string `json:"time_published"`
			Summary       string `json:"summary"`
			Source        string `json:"source"`
		} `json:"feed"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, a.decodeErr(err)
	}

	items := make([]record.NewsItem, 0, len(resp.Feed))
	for _, n := range resp.Feed {
		items = append(items, record.NewsItem{
			Headline: n.Title,
			Summary:  n.Summary,
			URL:      n.URL,
			Datetime: parseNewsTime(n.TimePublished),
			Source:   n.Source,
			Related:  call.Symbol,
		})
	}
	return items, nil
}

func (a *AlphaVantage) overview(ctx context.Context, call source.Call) (any, error) {
	body, err := a.query(ctx, url.Values{
		"function": {"OVERVIEW"},
		"symbol":   {call.Symbol},
	}, call.Key)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Symbol            string `json:"Symbol"`
		Name              string `json:"Name"`
		Industry          string `json:"Industry"`
		Sector            string `json:"Sector"`
		MarketCap         string `json:"MarketCapitalization"`
		SharesOutstanding string `json:"SharesOutstanding"`
		Description       string `json:"Description"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, a.decodeErr(err)
	}
	if resp.Symbol == "" {
		return nil, a.notFound("no overview for " + call.Symbol)
	}

	return record.CompanyInfo{
		Symbol:            resp.Symbol,
		Name:              resp.Name,
		Industry:          resp.Industry,
		Sector:            resp.Sector,
		MarketCap:         num(resp.MarketCap),
		SharesOutstanding: num(resp.SharesOutstanding),
		Description:       resp.Description,
	}, nil
}

func (a *AlphaVantage) incomeStatement(ctx context.Context, call source.Call) (any, error) {
	lines, period, err := a.statement(ctx, call, "INCOME_STATEMENT")
	if err != nil {
		return nil, err
	}
	return record.Financials{Symbol: call.Symbol, Period: period, Income: lines}, nil
}

func (a *AlphaVantage) balanceSheet(ctx context.Context, call source.Call) (any, error) {
	lines, period, err := a.statement(ctx, call, "BALANCE_SHEET")
	if err != nil {
		return nil, err
	}
	return record.Financials{Symbol: call.Symbol, Period: period, Balance: lines}, nil
}

func (a *AlphaVantage) cashFlow(ctx context.Context, call source.Call) (any, error) {
	lines, period, err := a.statement(ctx, call, "CASH_FLOW")
	if err != nil {
		return nil, err
	}
	return record.Financials{Symbol: call.Symbol, Period: period, CashFlow: lines}, nil
}

// statement fetches one statement function and flattens the most recent
// annual report into named numeric lines.
func (a *AlphaVantage) statement(ctx context.Context, call source.Call, function string) (map[string]float64, string, error) {
	body, err := a.query(ctx, url.Values{
		"function": {function},
		"symbol":   {call.Symbol},
	}, call.Key)
	if err != nil {
		return nil, "", err
	}

	var resp struct {
		AnnualReports []map[string]string `json:"annualReports"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", a.decodeErr(err)
	}
	if len(resp.AnnualReports) == 0 {
		return nil, "", a.notFound("no " + strings.ToLower(function) + " for " + call.Symbol)
	}

	report := resp.AnnualReports[0]
	period := report["fiscalDateEnding"]
	lines := make(map[string]float64, len(report))
	for k, v := range report {
		if k == "fiscalDateEnding" || k == "reportedCurrency" {
			continue
		}
		// Alpha Vantage reports missing lines as "None".
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			lines[k] = f
		}
	}
	return lines, period, nil
}

func (a *AlphaVantage) indicator(ctx context.Context, call source.Call) (any, error) {
	name := strings.ToUpper(call.Indicator)
	interval := call.Interval
	if interval == "" {
		interval = "daily"
	}
	period := call.TimePeriod
	if period == "" {
		period = "14"
	}

	body, err := a.query(ctx, url.Values{
		"function":    {name},
		"symbol":      {call.Symbol},
		"interval":    {interval},
		"time_period": {period},
		"series_type": {"close"},
	}, call.Key)
	if err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, a.decodeErr(err)
	}

	// The series key is "Technical Analysis: <NAME>".
	var series map[string]map[string]string
	for k, v := range raw {
		if strings.HasPrefix(k, "Technical Analysis") {
			if err := json.Unmarshal(v, &series); err != nil {
				return nil, a.decodeErr(err)
			}
			break
		}
	}
	if len(series) == 0 {
		return nil, a.notFound("no " + name + " series for " + call.Symbol)
	}

	points := make([]record.IndicatorPoint, 0, len(series))
	for ts, values := range series {
		// Single-value indicators key the value by their own name; for
		// multi-value ones (MACD) the primary line wins.
		v, ok := values[name]
		if !ok {
			for _, vv := range values {
				v = vv
				break
			}
		}
		points = append(points, record.IndicatorPoint{Timestamp: ts, Value: num(v)})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })

	return record.Indicator{Name: name, Symbol: call.Symbol, Series: points}, nil
}

func (a *AlphaVantage) decodeErr(err error) error {
	return &faults.UpstreamError{Provider: string(source.AlphaVantage), Message: "decoding response: " + err.Error()}
}

func (a *AlphaVantage) notFound(msg string) error {
	return &faults.UpstreamError{Provider: string(source.AlphaVantage), Status: 404, Message: msg}
}

func num(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

// parseNewsTime parses Alpha Vantage's 20240102T153000 stamps into unix
// seconds.
func parseNewsTime(s string) int64 {
	t, err := time.Parse("20060102T150405", s)
	if err != nil {
		return 0
	}
	return t.Unix()
}
