package tiingo

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/flemzord/finbridge/internal/faults"
	"github.com/flemzord/finbridge/internal/source"
	"github.com/flemzord/finbridge/pkg/record"
)

func (t *Tiingo) quote(ctx context.Context, call source.Call) (any, error) {
	var resp []struct {
		Ticker    string  `json:"ticker"`
		Last      float64 `json:"last"`
		TngoLast  float64 `json:"tngoLast"`
		Open      float64 `json:"open"`
		High      float64 `json:"high"`
		Low       float64 `json:"low"`
		PrevClose float64 `json:"prevClose"`
	}

	q := url.Values{"tickers": {call.Symbol}}
	if err := t.get(ctx, "/iex/", q, call.Key, &resp); err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, t.notFound("no quote data for " + call.Symbol)
	}

	r := resp[0]
	last := r.Last
	if last == 0 {
		last = r.TngoLast
	}

	quote := record.Quote{
		Symbol:    call.Symbol,
		Current:   last,
		DayHigh:   r.High,
		DayLow:    r.Low,
		DayOpen:   r.Open,
		PrevClose: r.PrevClose,
	}
	if r.PrevClose != 0 {
		quote.Change = last - r.PrevClose
		quote.PercentChange = quote.Change / r.PrevClose * 100
	}
	return quote, nil
}

// dailyBar is one row of /tiingo/daily/<symbol>/prices.
type dailyBar struct {
	Date     string  `json:"date"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
	AdjClose float64 `json:"adjClose"`
}

func (t *Tiingo) fetchDaily(ctx context.Context, call source.Call) ([]record.Candle, error) {
	q := url.Values{}
	if call.From != "" {
		q.Set("startDate", call.From)
	}
	if call.To != "" {
		q.Set("endDate", call.To)
	}

	var resp []dailyBar
	if err := t.get(ctx, "/tiingo/daily/"+url.PathEscape(call.Symbol)+"/prices", q, call.Key, &resp); err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, t.notFound("no price data for " + call.Symbol)
	}

	candles := make([]record.Candle, 0, len(resp))
	for _, bar := range resp {
		candles = append(candles, record.Candle{
			Date:     dateOnly(bar.Date),
			Open:     bar.Open,
			High:     bar.High,
			Low:      bar.Low,
			Close:    bar.Close,
			Volume:   bar.Volume,
			AdjClose: bar.AdjClose,
		})
	}
	return candles, nil
}

func (t *Tiingo) candles(ctx context.Context, call source.Call) (any, error) {
	return t.fetchDaily(ctx, call)
}

func (t *Tiingo) dailyPrices(ctx context.Context, call source.Call) (any, error) {
	bars, err := t.fetchDaily(ctx, call)
	if err != nil {
		return nil, err
	}
	out := make(map[string]record.Candle, len(bars))
	for _, c := range bars {
		out[c.Date] = c
	}
	return out, nil
}

func (t *Tiingo) news(ctx context.Context, call source.Call) (any, error) {
	var resp []struct {
		ID            int64  `json:"id"`
		Title         string `json:"title"`
		URL           string `json:"url"`
		Description   string `json:"description"`
		PublishedDate string `json:"publishedDate"`
		Source        string `json:"source"`
	}

	q := url.Values{"tickers": {call.Symbol}}
	if err := t.get(ctx, "/tiingo/news", q, call.Key, &resp); err != nil {
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
		items = append(items, record.NewsItem{
			ID:       n.ID,
			Headline: n.Title,
			Summary:  n.Description,
			URL:      n.URL,
			Datetime: parseTime(n.PublishedDate),
			Source:   n.Source,
			Related:  call.Symbol,
		})
	}
	return items, nil
}

func (t *Tiingo) notFound(msg string) error {
	return &faults.UpstreamError{Provider: string(source.Tiingo), Status: 404, Message: msg}
}

// dateOnly truncates Tiingo's 2024-01-02T00:00:00.000Z stamps to a date.
func dateOnly(s string) string {
	if len(s) >= 10 {
		return s[:10]
	}
	return s
}

func parseTime(s string) int64 {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0
	}
	return t.Unix()
}
