package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/aepbridge/internal/dyn"
	"github.com/roach88/aepbridge/internal/journal"
)

// AssertionError describes a failed assertion. Its message prints the whole
// trace after the expected and actual outcome.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Seq, event.Type, describe(event))
		}
	}

	return buf.String()
}

func describe(e TraceEvent) string {
	switch e.Type {
	case TypeEvent:
		return e.Name + " " + compact(e.Payload)
	case TypePresent, TypePresented:
		return e.Message
	}
	return e.Op + " " + compact(e.Args)
}

func compact(v dyn.Value) string {
	data, err := dyn.MarshalCanonical(orNull(v))
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// selected returns the trace entries a trace assertion looks at.
func selected(trace []TraceEvent, on string) []TraceEvent {
	if on == "" {
		on = OnVendor
	}
	var out []TraceEvent
	for _, e := range trace {
		if e.Type == on {
			out = append(out, e)
		}
	}
	return out
}

// assertTraceContains checks if the trace contains an entry matching
// the specified action and args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	var want dyn.Value
	if assertion.Args != nil {
		v, err := dyn.FromAny(assertion.Args)
		if err != nil {
			return fmt.Errorf("trace_contains: bad args: %w", err)
		}
		want = v
	}

	for _, event := range selected(trace, assertion.On) {
		if event.key() != assertion.Action {
			continue
		}
		if want == nil || dyn.Contains(orNull(event.matchValue()), want) {
			return nil
		}
	}

	expected := assertion.Action
	if want != nil {
		expected += " with args " + compact(want)
	}
	return &AssertionError{
		Type:     "trace_contains",
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that each action first appears after the one
// before it. Other entries may come in between.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range selected(trace, assertion.On) {
		if _, seen := positions[event.key()]; !seen {
			positions[event.key()] = i + 1
		}
	}

	for _, action := range assertion.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     "trace_order",
				Expected: fmt.Sprintf("all actions present: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Actions); i++ {
		prev := assertion.Actions[i-1]
		curr := assertion.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     "trace_order",
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount wants exactly Count matching entries.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range selected(trace, assertion.On) {
		if event.key() == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     "trace_count",
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertJournalCount checks how many journaled calls match the filter.
func assertJournalCount(ctx context.Context, j *journal.Journal, assertion Assertion) error {
	f := journal.Filter{Module: assertion.Module, Method: assertion.Method, FailedOnly: assertion.Failed}
	n, err := j.Count(ctx, f)
	if err != nil {
		return fmt.Errorf("journal_count: %w", err)
	}
	if n != assertion.Count {
		return &AssertionError{
			Type:     "journal_count",
			Expected: fmt.Sprintf("%d journaled calls matching %s", assertion.Count, formatFilter(f)),
			Actual:   fmt.Sprintf("%d calls", n),
		}
	}
	return nil
}

func formatFilter(f journal.Filter) string {
	var parts []string
	if f.Module != "" {
		parts = append(parts, "module="+f.Module)
	}
	if f.Method != "" {
		parts = append(parts, "method="+f.Method)
	}
	if f.FailedOnly {
		parts = append(parts, "failed")
	}
	if len(parts) == 0 {
		return "(any)"
	}
	return strings.Join(parts, " ")
}

// EvaluateAssertions returns one message per failed assertion, in scenario
// order. j backs journal_count; with a nil journal those assertions fail.
func EvaluateAssertions(ctx context.Context, result *Result, assertions []Assertion, j *journal.Journal) []string {
	var failures []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertJournalCount:
			if j == nil {
				err = fmt.Errorf("assertion[%d]: journal_count requires a journal", i)
			} else {
				err = assertJournalCount(ctx, j, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			failures = append(failures, err.Error())
		}
	}

	return failures
}
