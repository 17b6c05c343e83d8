package codec

import (
	"github.com/roach88/aepbridge/internal/dyn"
)

// Reader reads typed fields from a dynamic map. The first failure is kept
// and every later accessor becomes a no-op returning the zero value, so
// decoders can read all fields and check Err once before constructing the
// domain object.
//
// Optional accessors treat an absent key and an explicit null the same way.
// Unknown keys are ignored.
type Reader struct {
	typ string
	m   dyn.Map
	err error
}

// NewReader creates a Reader for a value expected to be a map.
func NewReader(typ string, v dyn.Value) *Reader {
	r := &Reader{typ: typ}
	m, ok := v.(dyn.Map)
	if !ok {
		r.err = Errorf(typ, "", "%s, got %s", ReasonNotMap, dyn.KindName(v))
		return r
	}
	r.m = m
	return r
}

// Err returns the first decode failure, if any.
func (r *Reader) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

// Fail records a custom failure for key unless one is already recorded.
func (r *Reader) Fail(key, format string, args ...any) {
	if r.err == nil {
		r.err = Errorf(r.typ, key, format, args...)
	}
}

// Has reports whether key is present with a non-null value.
func (r *Reader) Has(key string) bool {
	if r.err != nil {
		return false
	}
	v, ok := r.m[key]
	return ok && !dyn.IsNull(v)
}

// Value returns the raw value for key.
func (r *Reader) Value(key string) (dyn.Value, bool) {
	if !r.Has(key) {
		return nil, false
	}
	return r.m[key], true
}

func (r *Reader) required(key string) (dyn.Value, bool) {
	if r.err != nil {
		return nil, false
	}
	v, ok := r.m[key]
	if !ok || dyn.IsNull(v) {
		r.err = Errorf(r.typ, key, ReasonMissing)
		return nil, false
	}
	return v, true
}

func (r *Reader) mismatch(key, want string, got dyn.Value) {
	r.Fail(key, "expected %s, got %s", want, dyn.KindName(got))
}

// RequiredString reads a mandatory string field.
func (r *Reader) RequiredString(key string) string {
	v, ok := r.required(key)
	if !ok {
		return ""
	}
	s, ok := v.(dyn.String)
	if !ok {
		r.mismatch(key, "string", v)
		return ""
	}
	return string(s)
}

// String reads an optional string field.
func (r *Reader) String(key string) (string, bool) {
	v, ok := r.Value(key)
	if !ok {
		return "", false
	}
	s, ok := v.(dyn.String)
	if !ok {
		r.mismatch(key, "string", v)
		return "", false
	}
	return string(s), true
}

// StringOr reads an optional string field with a default.
func (r *Reader) StringOr(key, def string) string {
	if s, ok := r.String(key); ok {
		return s
	}
	return def
}

// RequiredNumber reads a mandatory number field.
func (r *Reader) RequiredNumber(key string) float64 {
	v, ok := r.required(key)
	if !ok {
		return 0
	}
	n, ok := v.(dyn.Number)
	if !ok {
		r.mismatch(key, "number", v)
		return 0
	}
	return float64(n)
}

// Number reads an optional number field.
func (r *Reader) Number(key string) (float64, bool) {
	v, ok := r.Value(key)
	if !ok {
		return 0, false
	}
	n, ok := v.(dyn.Number)
	if !ok {
		r.mismatch(key, "number", v)
		return 0, false
	}
	return float64(n), true
}

// NumberOr reads an optional number field with a default.
func (r *Reader) NumberOr(key string, def float64) float64 {
	if n, ok := r.Number(key); ok {
		return n
	}
	return def
}

// RequiredInt reads a mandatory integral number field.
func (r *Reader) RequiredInt(key string) int64 {
	v, ok := r.required(key)
	if !ok {
		return 0
	}
	return r.toInt(key, v)
}

// Int reads an optional integral number field. A fractional value fails.
func (r *Reader) Int(key string) (int64, bool) {
	v, ok := r.Value(key)
	if !ok {
		return 0, false
	}
	n := r.toInt(key, v)
	return n, r.err == nil
}

// IntOr reads an optional integral number field with a default.
func (r *Reader) IntOr(key string, def int64) int64 {
	if n, ok := r.Int(key); ok {
		return n
	}
	return def
}

func (r *Reader) toInt(key string, v dyn.Value) int64 {
	n, ok := v.(dyn.Number)
	if !ok {
		r.mismatch(key, "number", v)
		return 0
	}
	i, ok := n.Int()
	if !ok {
		r.Fail(key, "%s, got %v", ReasonNotInt, float64(n))
		return 0
	}
	return i
}

// Bool reads an optional bool field.
func (r *Reader) Bool(key string) (bool, bool) {
	v, ok := r.Value(key)
	if !ok {
		return false, false
	}
	b, ok := v.(dyn.Bool)
	if !ok {
		r.mismatch(key, "bool", v)
		return false, false
	}
	return bool(b), true
}

// BoolOr reads an optional bool field with a default.
func (r *Reader) BoolOr(key string, def bool) bool {
	if b, ok := r.Bool(key); ok {
		return b
	}
	return def
}

// RequiredMap reads a mandatory map field.
func (r *Reader) RequiredMap(key string) dyn.Map {
	v, ok := r.required(key)
	if !ok {
		return nil
	}
	m, ok := v.(dyn.Map)
	if !ok {
		r.mismatch(key, "map", v)
		return nil
	}
	return m
}

// Map reads an optional map field.
func (r *Reader) Map(key string) (dyn.Map, bool) {
	v, ok := r.Value(key)
	if !ok {
		return nil, false
	}
	m, ok := v.(dyn.Map)
	if !ok {
		r.mismatch(key, "map", v)
		return nil, false
	}
	return m, true
}

// List reads an optional list field.
func (r *Reader) List(key string) (dyn.List, bool) {
	v, ok := r.Value(key)
	if !ok {
		return nil, false
	}
	l, ok := v.(dyn.List)
	if !ok {
		r.mismatch(key, "list", v)
		return nil, false
	}
	return l, true
}

// RequiredList reads a mandatory list field.
func (r *Reader) RequiredList(key string) dyn.List {
	v, ok := r.required(key)
	if !ok {
		return nil
	}
	l, ok := v.(dyn.List)
	if !ok {
		r.mismatch(key, "list", v)
		return nil
	}
	return l
}

// StringMap reads an optional map whose values must all be strings.
func (r *Reader) StringMap(key string) (map[string]string, bool) {
	m, ok := r.Map(key)
	if !ok {
		return nil, false
	}
	out, err := StringMap(r.typ, m)
	if err != nil {
		r.setErr(WithPath(r.typ, key, err))
		return nil, false
	}
	return out, true
}

// StringList reads an optional list whose elements must all be strings.
func (r *Reader) StringList(key string) ([]string, bool) {
	l, ok := r.List(key)
	if !ok {
		return nil, false
	}
	out, err := StringList(r.typ, l)
	if err != nil {
		r.setErr(WithPath(r.typ, key, err))
		return nil, false
	}
	return out, true
}

// Object decodes an optional nested object with fn, prefixing any failure
// path with key.
func (r *Reader) Object(key string, fn func(dyn.Value) error) bool {
	v, ok := r.Value(key)
	if !ok {
		return false
	}
	if err := fn(v); err != nil {
		r.setErr(WithPath(r.typ, key, err))
		return false
	}
	return true
}

// RequiredObject is Object for a mandatory field.
func (r *Reader) RequiredObject(key string, fn func(dyn.Value) error) {
	v, ok := r.required(key)
	if !ok {
		return
	}
	if err := fn(v); err != nil {
		r.setErr(WithPath(r.typ, key, err))
	}
}

func (r *Reader) setErr(err error) {
	if r.err == nil {
		r.err = err
	}
}
