// Package tool is the facade between the transport layer and the dispatch
// core: one entry per exposed tool, argument validation, and the executor
// closure handed to the dispatcher. This is the only place operation
// argument shapes appear.
package tool

import (
	"errors"
	"fmt"

	"github.com/flemzord/finbridge/internal/source"
)

// ErrInvalidArgument tags caller mistakes: missing or empty required
// fields, values outside an enum.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrUnknownTool is returned when no entry matches the requested name.
var ErrUnknownTool = errors.New("unknown tool")

// Arg describes one tool argument. All arguments are string-typed from
// JSON; Default is applied when the argument is absent or empty.
type Arg struct {
	Name        string
	Description string
	Required    bool
	Default     string
	Enum        []string
}

// Entry is one exposed tool.
type Entry struct {
	Name        string
	Description string
	Op          source.Operation
	Args        []Arg
}

// BuildCall validates args against the entry and binds them into a Call.
func (e Entry) BuildCall(args map[string]string) (source.Call, error) {
	var call source.Call

	for _, a := range e.Args {
		v := args[a.Name]
		if v == "" {
			if a.Required {
				return source.Call{}, fmt.Errorf("%w: %s requires %q", ErrInvalidArgument, e.Name, a.Name)
			}
			v = a.Default
		}
		if v != "" && len(a.Enum) > 0 && !inEnum(a.Enum, v) {
			return source.Call{}, fmt.Errorf("%w: %q must be one of %v, got %q", ErrInvalidArgument, a.Name, a.Enum, v)
		}
		bind(&call, a.Name, v)
	}

	return call, nil
}

func inEnum(enum []string, v string) bool {
	for _, e := range enum {
		if e == v {
			return true
		}
	}
	return false
}

// bind maps an argument name onto its Call field.
func bind(call *source.Call, name, value string) {
	switch name {
	case "symbol":
		call.Symbol = value
	case "resolution":
		call.Resolution = value
	case "from":
		call.From = value
	case "to":
		call.To = value
	case "outputsize":
		call.OutputSize = value
	case "category":
		call.Category = value
	case "minId":
		call.MinID = value
	case "metricType":
		call.MetricType = value
	case "indicator":
		call.Indicator = value
	case "interval":
		call.Interval = value
	case "time_period":
		call.TimePeriod = value
	}
}
