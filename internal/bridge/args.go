package bridge

import (
	"github.com/roach88/aepbridge/internal/call"
	"github.com/roach88/aepbridge/internal/codec"
	"github.com/roach88/aepbridge/internal/dyn"
)

// Args reads positional call arguments. Wrong arity or a wrong type is a
// programming error: the first one is kept and later reads return zero
// values. Decoding the contents of a map argument into a domain object is
// the handler's job and fails as a decode error instead.
type Args struct {
	op   string
	list dyn.List
	err  error
}

// NewArgs wraps the argument list of operation op.
func NewArgs(op string, list dyn.List) *Args {
	return &Args{op: op, list: list}
}

// Op returns "Module.method".
func (a *Args) Op() string {
	return a.op
}

// Len returns the number of arguments passed.
func (a *Args) Len() int {
	return len(a.list)
}

// Err returns the first argument failure.
func (a *Args) Err() error {
	return a.err
}

func (a *Args) fail(format string, args ...any) {
	if a.err == nil {
		a.err = call.Programming(a.op, format, args...)
	}
}

// Value returns argument i; a missing argument is a programming error.
func (a *Args) Value(i int) dyn.Value {
	if a.err != nil {
		return dyn.Null{}
	}
	if i >= len(a.list) {
		a.fail("argument %d: missing (got %d arguments)", i, len(a.list))
		return dyn.Null{}
	}
	if a.list[i] == nil {
		return dyn.Null{}
	}
	return a.list[i]
}

// Opt returns argument i when present and non-null.
func (a *Args) Opt(i int) (dyn.Value, bool) {
	if a.err != nil || i >= len(a.list) || dyn.IsNull(a.list[i]) {
		return nil, false
	}
	return a.list[i], true
}

func (a *Args) mismatch(i int, want string, got dyn.Value) {
	a.fail("argument %d: expected %s, got %s", i, want, dyn.KindName(got))
}

// String reads a required string argument.
func (a *Args) String(i int) string {
	v := a.Value(i)
	s, ok := v.(dyn.String)
	if !ok {
		a.mismatch(i, "string", v)
		return ""
	}
	return string(s)
}

// OptString reads an optional string argument.
func (a *Args) OptString(i int) (string, bool) {
	v, ok := a.Opt(i)
	if !ok {
		return "", false
	}
	s, ok := v.(dyn.String)
	if !ok {
		a.mismatch(i, "string", v)
		return "", false
	}
	return string(s), true
}

// Bool reads a required bool argument.
func (a *Args) Bool(i int) bool {
	v := a.Value(i)
	b, ok := v.(dyn.Bool)
	if !ok {
		a.mismatch(i, "bool", v)
		return false
	}
	return bool(b)
}

// OptBool reads an optional bool argument.
func (a *Args) OptBool(i int) (bool, bool) {
	v, ok := a.Opt(i)
	if !ok {
		return false, false
	}
	b, ok := v.(dyn.Bool)
	if !ok {
		a.mismatch(i, "bool", v)
		return false, false
	}
	return bool(b), true
}

// Number reads a required number argument.
func (a *Args) Number(i int) float64 {
	v := a.Value(i)
	n, ok := v.(dyn.Number)
	if !ok {
		a.mismatch(i, "number", v)
		return 0
	}
	return float64(n)
}

// Int reads a required integral number argument.
func (a *Args) Int(i int) int64 {
	v := a.Value(i)
	return a.toInt(i, v)
}

// OptInt reads an optional integral number argument.
func (a *Args) OptInt(i int) (int64, bool) {
	v, ok := a.Opt(i)
	if !ok {
		return 0, false
	}
	n := a.toInt(i, v)
	return n, a.err == nil
}

func (a *Args) toInt(i int, v dyn.Value) int64 {
	n, ok := v.(dyn.Number)
	if !ok {
		a.mismatch(i, "number", v)
		return 0
	}
	out, ok := n.Int()
	if !ok {
		a.fail("argument %d: expected integral number, got %v", i, float64(n))
		return 0
	}
	return out
}

// Map reads a required map argument.
func (a *Args) Map(i int) dyn.Map {
	v := a.Value(i)
	m, ok := v.(dyn.Map)
	if !ok {
		a.mismatch(i, "map", v)
		return nil
	}
	return m
}

// OptMap reads an optional map argument.
func (a *Args) OptMap(i int) (dyn.Map, bool) {
	v, ok := a.Opt(i)
	if !ok {
		return nil, false
	}
	m, ok := v.(dyn.Map)
	if !ok {
		a.mismatch(i, "map", v)
		return nil, false
	}
	return m, true
}

// List reads a required list argument.
func (a *Args) List(i int) dyn.List {
	v := a.Value(i)
	l, ok := v.(dyn.List)
	if !ok {
		a.mismatch(i, "list", v)
		return nil
	}
	return l
}

// StringList reads a required list-of-strings argument.
func (a *Args) StringList(i int) []string {
	l := a.List(i)
	if a.err != nil {
		return nil
	}
	out, err := codec.StringList("arguments", l)
	if err != nil {
		a.fail("argument %d: %s", i, err.(*codec.DecodeError).Reason)
		return nil
	}
	return out
}

// StringMap reads a required map-of-strings argument.
func (a *Args) StringMap(i int) map[string]string {
	m := a.Map(i)
	if a.err != nil {
		return nil
	}
	return a.toStringMap(i, m)
}

// OptStringMap reads an optional map-of-strings argument.
func (a *Args) OptStringMap(i int) (map[string]string, bool) {
	m, ok := a.OptMap(i)
	if !ok {
		return nil, false
	}
	out := a.toStringMap(i, m)
	return out, a.err == nil
}

func (a *Args) toStringMap(i int, m dyn.Map) map[string]string {
	out, err := codec.StringMap("arguments", m)
	if err != nil {
		de := err.(*codec.DecodeError)
		a.fail("argument %d: key %q: %s", i, de.Path, de.Reason)
		return nil
	}
	return out
}
