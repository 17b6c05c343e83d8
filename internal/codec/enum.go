package codec

import (
	"github.com/roach88/aepbridge/internal/dyn"
)

// Enum maps a closed set of Go constants to their wire strings. Anything
// not in the table, including a missing or non-string value, decodes to the
// neutral member. The neutral member must be a "no information" value such
// as Unknown, never one that changes behaviour.
type Enum[T comparable] struct {
	name    string
	neutral T
	toWire  map[T]string
	byWire  map[string]T
}

// NewEnum builds an Enum. The neutral member must appear in wire.
func NewEnum[T comparable](name string, neutral T, wire map[T]string) *Enum[T] {
	if _, ok := wire[neutral]; !ok {
		panic("codec: neutral member of " + name + " has no wire form")
	}
	e := &Enum[T]{
		name:    name,
		neutral: neutral,
		toWire:  wire,
		byWire:  make(map[string]T, len(wire)),
	}
	for k, v := range wire {
		e.byWire[v] = k
	}
	return e
}

// Name returns the enum's display name.
func (e *Enum[T]) Name() string {
	return e.name
}

// Neutral returns the fallback member.
func (e *Enum[T]) Neutral() T {
	return e.neutral
}

// Decode maps a wire string to its member, or the neutral member.
func (e *Enum[T]) Decode(s string) T {
	if v, ok := e.byWire[s]; ok {
		return v
	}
	return e.neutral
}

// Lookup is Decode that also reports whether s was recognised.
func (e *Enum[T]) Lookup(s string) (T, bool) {
	v, ok := e.byWire[s]
	if !ok {
		return e.neutral, false
	}
	return v, true
}

// DecodeValue decodes a dynamic value. Non-strings give the neutral member.
func (e *Enum[T]) DecodeValue(v dyn.Value) T {
	s, ok := v.(dyn.String)
	if !ok {
		return e.neutral
	}
	return e.Decode(string(s))
}

// Encode maps a member to its wire string. Unknown members encode as the
// neutral member's wire string.
func (e *Enum[T]) Encode(v T) string {
	if s, ok := e.toWire[v]; ok {
		return s
	}
	return e.toWire[e.neutral]
}

// EncodeValue is Encode wrapped as a dynamic string.
func (e *Enum[T]) EncodeValue(v T) dyn.Value {
	return dyn.String(e.Encode(v))
}
