package tool

import (
	"context"
	"fmt"

	"github.com/flemzord/finbridge/internal/dispatch"
	"github.com/flemzord/finbridge/internal/keypool"
	"github.com/flemzord/finbridge/internal/source"
)

// Facade resolves tool names to entries and runs them through the
// dispatcher. Immutable after construction.
type Facade struct {
	disp    *dispatch.Dispatcher
	entries map[string]Entry
	order   []string
}

// NewFacade creates a facade over the standard entries.
func NewFacade(disp *dispatch.Dispatcher) *Facade {
	f := &Facade{
		disp:    disp,
		entries: make(map[string]Entry),
	}
	for _, e := range Entries() {
		f.entries[e.Name] = e
		f.order = append(f.order, e.Name)
	}
	return f
}

// Entries returns the exposed tools in presentation order.
func (f *Facade) Entries() []Entry {
	out := make([]Entry, 0, len(f.order))
	for _, name := range f.order {
		out = append(out, f.entries[name])
	}
	return out
}

// Invoke validates the arguments for toolName, builds the executor closure
// and hands it to the dispatcher.
func (f *Facade) Invoke(ctx context.Context, toolName string, args map[string]string) (dispatch.Result, error) {
	entry, ok := f.entries[toolName]
	if !ok {
		return dispatch.Result{}, fmt.Errorf("%w: %s", ErrUnknownTool, toolName)
	}

	call, err := entry.BuildCall(args)
	if err != nil {
		return dispatch.Result{}, err
	}

	exec := func(ctx context.Context, se *source.Entry, key keypool.Key) (any, error) {
		handler, ok := se.Handler(entry.Op)
		if !ok {
			return nil, fmt.Errorf("%s does not support %s", se.Name(), entry.Op)
		}
		bound := call
		bound.Key = key.Credential
		return handler(ctx, bound)
	}

	return f.disp.Dispatch(ctx, entry.Op, toolName, call.Symbol, exec)
}
