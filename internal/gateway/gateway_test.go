package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flemzord/finbridge/internal/source"
)

func testStatus() Status {
	return Status{Providers: []ProviderStatus{
		{Name: "finnhub", Available: true, PoolSize: 2, KeysCooling: 1, CircuitState: "closed"},
	}}
}

func testHandler(t *testing.T) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ObserveAttempt(source.Finnhub, true)
	m.ObserveDispatch(source.OpQuote, "success", 120*time.Millisecond)

	s := NewServer("127.0.0.1:0", testStatus, reg, nil)
	s.Start()
	t.Cleanup(func() { _ = s.Shutdown(t.Context()) })
	return s.srv.Handler
}

func TestStatusEndpoint(t *testing.T) {
	h := testHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got Status
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Providers) != 1 || got.Providers[0].Name != "finnhub" || got.Providers[0].KeysCooling != 1 {
		t.Errorf("status = %+v", got)
	}
}

func TestHealthzEndpoint(t *testing.T) {
	h := testHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMetricsEndpointExposesCounters(t *testing.T) {
	h := testHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"finbridge_attempts_total", "finbridge_dispatches_total"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}
