package tiingo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flemzord/finbridge/internal/faults"
	"github.com/flemzord/finbridge/internal/source"
	"github.com/flemzord/finbridge/pkg/record"
)

func testServer(t *testing.T, handler http.HandlerFunc) *Tiingo {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL})
}

func TestQuoteUsesHeaderAuth(t *testing.T) {
	ti := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Token k1" {
			t.Errorf("auth header = %q", got)
		}
		if r.URL.Query().Get("token") != "" {
			t.Error("token query must not be sent on the first try")
		}
		_, _ = w.Write([]byte(`[{"ticker":"aapl","last":190.5,"open":189.0,"high":191.2,"low":188.9,"prevClose":189.0}]`))
	})

	got, err := ti.quote(context.Background(), source.Call{Symbol: "AAPL", Key: "k1"})
	if err != nil {
		t.Fatal(err)
	}
	q := got.(record.Quote)
	if q.Current != 190.5 || q.PrevClose != 189.0 {
		t.Errorf("quote = %+v", q)
	}
	if q.Change != 1.5 {
		t.Errorf("change = %v, want 1.5", q.Change)
	}
}

// HTTP 403 on header auth falls back to token query auth once.
func TestForbiddenFallsBackToQueryToken(t *testing.T) {
	calls := 0
	ti := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("token") == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`[{"ticker":"aapl","last":190.5,"prevClose":189.0}]`))
	})

	_, err := ti.quote(context.Background(), source.Call{Symbol: "AAPL", Key: "k1"})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want header try + query retry", calls)
	}
}

// If the query fallback also fails, the error surfaces with its status.
func TestForbiddenTwiceSurfaces(t *testing.T) {
	ti := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail":"invalid token"}`))
	})

	_, err := ti.quote(context.Background(), source.Call{Symbol: "AAPL", Key: "bad"})
	if err == nil {
		t.Fatal("want error")
	}
	if got := faults.Classify(err); got != faults.ClassPermanent {
		t.Errorf("classification = %s, want PERMANENT", got)
	}
}

func TestDailyPrices(t *testing.T) {
	ti := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tiingo/daily/AAPL/prices" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[
			{"date":"2024-01-02T00:00:00.000Z","open":189.0,"high":191.2,"low":188.9,"close":190.5,"volume":1000,"adjClose":190.5}
		]`))
	})

	got, err := ti.dailyPrices(context.Background(), source.Call{Symbol: "AAPL", Key: "k"})
	if err != nil {
		t.Fatal(err)
	}
	series := got.(map[string]record.Candle)
	bar := series["2024-01-02"]
	if bar.Close != 190.5 || bar.AdjClose != 190.5 {
		t.Errorf("bar = %+v", bar)
	}
}

func TestNews(t *testing.T) {
	ti := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":5,"title":"old","url":"https://x/1","publishedDate":"2024-01-02T15:30:00Z","source":"wire"},
			{"id":9,"title":"new","url":"https://x/2","publishedDate":"2024-01-03T15:30:00Z","source":"wire"}
		]`))
	})

	got, err := ti.news(context.Background(), source.Call{Symbol: "AAPL", MinID: "5", Key: "k"})
	if err != nil {
		t.Fatal(err)
	}
	items := got.([]record.NewsItem)
	if len(items) != 1 || items[0].Headline != "new" {
		t.Errorf("items = %+v", items)
	}
	if items[0].Datetime == 0 {
		t.Error("published date must parse to unix seconds")
	}
}
