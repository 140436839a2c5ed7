package tool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flemzord/finbridge/internal/breaker"
	"github.com/flemzord/finbridge/internal/dispatch"
	"github.com/flemzord/finbridge/internal/keypool"
	"github.com/flemzord/finbridge/internal/router"
	"github.com/flemzord/finbridge/internal/source"
	"github.com/flemzord/finbridge/pkg/record"
)

func TestBuildCallRequiresSymbol(t *testing.T) {
	entry := Entries()[0] // get_stock_quote

	_, err := entry.BuildCall(map[string]string{})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}

	_, err = entry.BuildCall(map[string]string{"symbol": ""})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("empty symbol: err = %v, want ErrInvalidArgument", err)
	}
}

func TestBuildCallDefaults(t *testing.T) {
	var candles Entry
	for _, e := range Entries() {
		if e.Name == "get_stock_candles" {
			candles = e
		}
	}

	call, err := candles.BuildCall(map[string]string{"symbol": "AAPL"})
	if err != nil {
		t.Fatal(err)
	}
	if call.Symbol != "AAPL" || call.Resolution != "D" {
		t.Errorf("call = %+v", call)
	}
}

func TestBuildCallEnum(t *testing.T) {
	var daily Entry
	for _, e := range Entries() {
		if e.Name == "get_daily_prices" {
			daily = e
		}
	}

	if _, err := daily.BuildCall(map[string]string{"symbol": "AAPL", "outputsize": "huge"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}

	call, err := daily.BuildCall(map[string]string{"symbol": "AAPL", "outputsize": "full"})
	if err != nil {
		t.Fatal(err)
	}
	if call.OutputSize != "full" {
		t.Errorf("outputsize = %q", call.OutputSize)
	}
}

func TestBuildCallIndicatorRequired(t *testing.T) {
	var ind Entry
	for _, e := range Entries() {
		if e.Name == "get_technical_indicator" {
			ind = e
		}
	}

	if _, err := ind.BuildCall(map[string]string{"symbol": "AAPL"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}

	call, err := ind.BuildCall(map[string]string{"symbol": "AAPL", "indicator": "RSI"})
	if err != nil {
		t.Fatal(err)
	}
	if call.Indicator != "RSI" || call.Interval != "daily" || call.TimePeriod != "14" {
		t.Errorf("call = %+v", call)
	}
}

func TestQuoteAliasesShareOperation(t *testing.T) {
	var byName = map[string]Entry{}
	for _, e := range Entries() {
		byName[e.Name] = e
	}
	if byName["get_quote"].Op != byName["get_stock_quote"].Op {
		t.Fatal("get_quote must alias get_stock_quote's operation")
	}
}

type fixedAdapter struct {
	name source.Name
	data any
}

func (a fixedAdapter) Name() source.Name { return a.name }

func (a fixedAdapter) Capabilities() map[source.Operation]source.Handler {
	return map[source.Operation]source.Handler{
		source.OpQuote: func(context.Context, source.Call) (any, error) { return a.data, nil },
	}
}

func TestFacadeInvoke(t *testing.T) {
	reg := source.NewRegistry()
	reg.Add(&source.Entry{
		Adapter: fixedAdapter{name: source.Finnhub, data: record.Quote{Symbol: "AAPL", Current: 190}},
		Pool:    keypool.New([]string{"k"}, time.Minute, true),
		Breaker: breaker.New(breaker.Config{Enabled: true}),
	})
	rt := router.New(router.Config{}, reg, nil)
	disp := dispatch.New(dispatch.Config{FailoverEnabled: true}, reg, rt)
	f := NewFacade(disp)

	res, err := f.Invoke(context.Background(), "get_stock_quote", map[string]string{"symbol": "AAPL"})
	if err != nil {
		t.Fatal(err)
	}
	if res.WinningProvider != source.Finnhub {
		t.Errorf("winning provider = %s", res.WinningProvider)
	}
	q := res.Data.(record.Quote)
	if q.Symbol != "AAPL" {
		t.Errorf("data = %+v", q)
	}
}

func TestFacadeUnknownTool(t *testing.T) {
	f := NewFacade(nil)
	_, err := f.Invoke(context.Background(), "get_everything", nil)
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("err = %v, want ErrUnknownTool", err)
	}
}
