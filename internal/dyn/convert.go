package dyn

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
)

// ErrCycle is returned by FromAny when the input refers back to itself.
var ErrCycle = errors.New("dyn: cyclic input")

// FromAny converts a native Go tree into a Value.
//
// Accepted leaves are nil, bool, string, every integer and float kind,
// json.Number, and Value itself. Maps must have string keys; slices, arrays
// and pointers are followed. A map, slice or pointer that is reached again
// while it is still being converted fails with ErrCycle instead of
// recursing forever.
func FromAny(v any) (Value, error) {
	c := converter{visiting: make(map[visitKey]struct{})}
	return c.convert(v)
}

type visitKey struct {
	ptr uintptr
	typ reflect.Type
	n   int
}

type converter struct {
	visiting map[visitKey]struct{}
}

func (c *converter) convert(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return c.fromValue(val)
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case float64:
		return finite(val)
	case float32:
		return finite(float64(val))
	case int:
		return Number(float64(val)), nil
	case int64:
		return Number(float64(val)), nil
	case int32:
		return Number(float64(val)), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", val.String(), err)
		}
		return finite(f)
	case map[string]string:
		m := make(Map, len(val))
		for k, s := range val {
			m[k] = String(s)
		}
		return m, nil
	case []string:
		l := make(List, len(val))
		for i, s := range val {
			l[i] = String(s)
		}
		return l, nil
	}
	return c.reflectValue(reflect.ValueOf(v))
}

// fromValue copies a Value tree so that a Map or List that contains itself
// is still detected.
func (c *converter) fromValue(v Value) (Value, error) {
	switch val := v.(type) {
	case List:
		return c.reflectValue(reflect.ValueOf(val))
	case Map:
		return c.reflectValue(reflect.ValueOf(val))
	case Number:
		return finite(float64(val))
	default:
		return v, nil
	}
}

func (c *converter) reflectValue(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Invalid:
		return Null{}, nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Number(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return finite(rv.Float())
	case reflect.Interface:
		if rv.IsNil() {
			return Null{}, nil
		}
		return c.convert(rv.Elem().Interface())
	case reflect.Pointer:
		if rv.IsNil() {
			return Null{}, nil
		}
		leave, err := c.enter(rv, 0)
		if err != nil {
			return nil, err
		}
		defer leave()
		return c.convert(rv.Elem().Interface())
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type: %s", rv.Type().Key())
		}
		if rv.IsNil() {
			return Null{}, nil
		}
		leave, err := c.enter(rv, 0)
		if err != nil {
			return nil, err
		}
		defer leave()
		m := make(Map, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			elem, err := c.convert(iter.Value().Interface())
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			m[k] = elem
		}
		return m, nil
	case reflect.Slice:
		if rv.IsNil() {
			return Null{}, nil
		}
		leave, err := c.enter(rv, rv.Len())
		if err != nil {
			return nil, err
		}
		defer leave()
		return c.convertSeq(rv)
	case reflect.Array:
		return c.convertSeq(rv)
	default:
		return nil, fmt.Errorf("unsupported type: %s", rv.Type())
	}
}

func (c *converter) convertSeq(rv reflect.Value) (Value, error) {
	l := make(List, rv.Len())
	for i := range l {
		elem, err := c.convert(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		l[i] = elem
	}
	return l, nil
}

// enter marks a reference as being converted. Empty slices share no
// backing storage worth tracking.
func (c *converter) enter(rv reflect.Value, n int) (func(), error) {
	if rv.Kind() == reflect.Slice && n == 0 {
		return func() {}, nil
	}
	key := visitKey{ptr: rv.Pointer(), typ: rv.Type(), n: n}
	if _, seen := c.visiting[key]; seen {
		return nil, ErrCycle
	}
	c.visiting[key] = struct{}{}
	return func() { delete(c.visiting, key) }, nil
}

func finite(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, ErrNonFinite
	}
	return Number(f), nil
}

// ToAny converts a Value back into a native Go tree: nil, bool, string,
// int64 (integral numbers), float64, []any and map[string]any.
func ToAny(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(val)
	case Number:
		if n, ok := val.Int(); ok {
			return n
		}
		return float64(val)
	case String:
		return string(val)
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case Map:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToAny(elem)
		}
		return out
	default:
		return nil
	}
}
