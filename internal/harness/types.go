package harness

import (
	"github.com/roach88/aepbridge/internal/call"
	"github.com/roach88/aepbridge/internal/dyn"
)

// Trace entry types.
const (
	TypeCall      = "call"
	TypeVendor    = "vendor"
	TypeEvent     = "event"
	TypePresent   = "present"
	TypePresented = "presented"
)

// TraceEvent is one observable thing that happened during a scenario.
// Which fields are set depends on Type.
type TraceEvent struct {
	Type string `json:"type"`
	Seq  int64  `json:"seq"`

	// Op is "Module.method" for call and vendor entries.
	Op     string    `json:"op,omitempty"`
	Args   dyn.List  `json:"args,omitempty"`
	Result dyn.Value `json:"result,omitempty"`
	Error  dyn.Map   `json:"error,omitempty"`

	// Name and Payload describe an emitted event.
	Name    string    `json:"name,omitempty"`
	Payload dyn.Value `json:"payload,omitempty"`

	// Message is the in-app message id of present and presented entries.
	Message string `json:"message,omitempty"`
	Shown   bool   `json:"shown,omitempty"`
}

// key is what trace assertions match Action against.
func (e TraceEvent) key() string {
	if e.Type == TypeEvent {
		return e.Name
	}
	return e.Op
}

// matchValue is what trace assertions match Args against.
func (e TraceEvent) matchValue() dyn.Value {
	if e.Type == TypeEvent {
		return e.Payload
	}
	return e.Args
}

// Value renders the entry as a dynamic map for canonical serialization.
func (e TraceEvent) Value() dyn.Map {
	m := dyn.Map{
		"type": dyn.String(e.Type),
		"seq":  dyn.NewInt(e.Seq),
	}
	if e.Op != "" {
		m["op"] = dyn.String(e.Op)
	}
	if e.Args != nil {
		m["args"] = e.Args
	}
	if e.Type == TypeCall && e.Error == nil {
		m["result"] = orNull(e.Result)
	}
	if e.Error != nil {
		m["error"] = e.Error
	}
	if e.Name != "" {
		m["name"] = dyn.String(e.Name)
		m["payload"] = orNull(e.Payload)
	}
	if e.Message != "" {
		m["message"] = dyn.String(e.Message)
	}
	if e.Type == TypePresented {
		m["shown"] = dyn.Bool(e.Shown)
	}
	return m
}

func orNull(v dyn.Value) dyn.Value {
	if v == nil {
		return dyn.Null{}
	}
	return v
}

// errorValue keeps the stable parts of a boundary error. The message is
// dropped since it may embed vendor text.
func errorValue(err *call.Error) dyn.Map {
	return dyn.Map{
		"kind": dyn.String(string(err.Kind)),
		"code": dyn.String(err.Code),
	}
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains calls, vendor invocations and events in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// add appends e with the next sequence number.
func (r *Result) add(e TraceEvent) {
	e.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, e)
}

// EventNames returns the names of emitted events in order.
func (r *Result) EventNames() []string {
	names := []string{}
	for _, e := range r.Trace {
		if e.Type == TypeEvent {
			names = append(names, e.Name)
		}
	}
	return names
}
