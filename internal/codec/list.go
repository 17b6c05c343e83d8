package codec

import (
	"fmt"

	"github.com/roach88/aepbridge/internal/dyn"
)

// DecodeList decodes every element of v with fn. Any element failure fails
// the whole list; no partial list is returned.
func DecodeList[T any](typ string, v dyn.Value, fn func(dyn.Value) (T, error)) ([]T, error) {
	l, ok := v.(dyn.List)
	if !ok {
		return nil, Errorf(typ, "", "%s, got %s", ReasonNotList, dyn.KindName(v))
	}
	out := make([]T, 0, len(l))
	for i, elem := range l {
		item, err := fn(elem)
		if err != nil {
			return nil, WithPath(typ, fmt.Sprintf("[%d]", i), err)
		}
		out = append(out, item)
	}
	return out, nil
}

// EncodeList encodes items with fn. A nil slice encodes as an empty list.
func EncodeList[T any](items []T, fn func(T) dyn.Value) dyn.List {
	out := make(dyn.List, len(items))
	for i, item := range items {
		out[i] = fn(item)
	}
	return out
}

// StringMap converts a map whose values must all be strings.
func StringMap(typ string, m dyn.Map) (map[string]string, error) {
	out := make(map[string]string, len(m))
	for k, v := range m {
		s, ok := v.(dyn.String)
		if !ok {
			return nil, Errorf(typ, k, "expected string, got %s", dyn.KindName(v))
		}
		out[k] = string(s)
	}
	return out, nil
}

// StringList converts a list whose elements must all be strings.
func StringList(typ string, l dyn.List) ([]string, error) {
	out := make([]string, len(l))
	for i, v := range l {
		s, ok := v.(dyn.String)
		if !ok {
			return nil, Errorf(typ, fmt.Sprintf("[%d]", i), "expected string, got %s", dyn.KindName(v))
		}
		out[i] = string(s)
	}
	return out, nil
}

// StringMapValue encodes a string map. A nil map encodes as an empty map.
func StringMapValue(m map[string]string) dyn.Map {
	out := make(dyn.Map, len(m))
	for k, v := range m {
		out[k] = dyn.String(v)
	}
	return out
}

// StringListValue encodes a string slice.
func StringListValue(l []string) dyn.List {
	out := make(dyn.List, len(l))
	for i, s := range l {
		out[i] = dyn.String(s)
	}
	return out
}
