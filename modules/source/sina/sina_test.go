package sina

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flemzord/finbridge/internal/faults"
	"github.com/flemzord/finbridge/internal/source"
	"github.com/flemzord/finbridge/pkg/record"
)

func testServer(t *testing.T, handler http.HandlerFunc) *Sina {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, MinInterval: time.Millisecond})
}

func TestSinaCode(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"601899.SH", "sh601899"},
		{"600519.SS", "sh600519"},
		{"000001.SZ", "sz000001"},
		{"430047.BJ", "bj430047"},
		{"0700.HK", "hk00700"},
		{"00700", "hk00700"},
		{"601899", "sh601899"},
	}
	for _, tt := range tests {
		got, _, err := sinaCode(tt.symbol)
		if err != nil {
			t.Errorf("sinaCode(%q) error: %v", tt.symbol, err)
			continue
		}
		if got != tt.want {
			t.Errorf("sinaCode(%q) = %q, want %q", tt.symbol, got, tt.want)
		}
	}

	if _, _, err := sinaCode("AAPL"); err == nil {
		t.Error("US symbols must be rejected")
	}
}

func TestAShareQuote(t *testing.T) {
	s := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Referer"); got != "https://finance.sina.com.cn/" {
			t.Errorf("referer = %q", got)
		}
		if r.URL.Path != "/list=sh601899" {
			t.Errorf("url = %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`var hq_str_sh601899="ZJKY,10.00,9.90,10.10,10.30,9.80,10.09,10.10,12345678,124681011.00";` + "\n"))
	})

	got, err := s.quote(context.Background(), source.Call{Symbol: "601899.SH"})
	if err != nil {
		t.Fatal(err)
	}
	q := got.(record.Quote)
	if q.Current != 10.10 || q.DayOpen != 10.00 || q.PrevClose != 9.90 {
		t.Errorf("quote = %+v", q)
	}
	if math.Abs(q.Change-0.20) > 1e-9 {
		t.Errorf("change = %v, want 0.20", q.Change)
	}
	if q.DayHigh != 10.30 || q.DayLow != 9.80 {
		t.Errorf("quote = %+v", q)
	}
}

func TestHKQuote(t *testing.T) {
	s := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`var hq_str_hk00700="TENCENT,TENCENT HLDGS,418.20,418.60,427.40,415.80,421.80,3.20,0.764,421.6,421.8,0,0";`))
	})

	got, err := s.quote(context.Background(), source.Call{Symbol: "0700.HK"})
	if err != nil {
		t.Fatal(err)
	}
	q := got.(record.Quote)
	if q.Current != 421.80 || q.Change != 3.20 || q.PercentChange != 0.764 {
		t.Errorf("quote = %+v", q)
	}
	if q.DayOpen != 418.20 || q.PrevClose != 418.60 {
		t.Errorf("quote = %+v", q)
	}
}

func TestEmptyPayloadIsPermanent(t *testing.T) {
	s := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`var hq_str_sh999999="";`))
	})

	_, err := s.quote(context.Background(), source.Call{Symbol: "601899.SH"})
	if err == nil {
		t.Fatal("want error for empty payload")
	}
	if got := faults.Classify(err); got != faults.ClassPermanent {
		t.Errorf("classification = %s, want PERMANENT", got)
	}
}

// Pacing suspends the caller instead of failing when requests arrive
// back-to-back.
func TestPacing(t *testing.T) {
	s := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`var hq_str_sh601899="ZJKY,10.00,9.90,10.10,10.30,9.80";`))
	})
	s.limiter.SetLimit(5) // 200ms spacing at test scale

	start := time.Now()
	for i := 0; i < 2; i++ {
		if _, err := s.quote(context.Background(), source.Call{Symbol: "601899.SH"}); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("two paced requests completed in %v, want >= spacing", elapsed)
	}
}
