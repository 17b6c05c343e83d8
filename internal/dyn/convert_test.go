package dyn

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAny(t *testing.T) {
	in := map[string]any{
		"s":   "str",
		"i":   7,
		"u":   uint8(3),
		"f":   2.5,
		"b":   true,
		"n":   nil,
		"num": json.Number("12"),
		"l":   []any{1, "two"},
		"ss":  []string{"a", "b"},
		"sm":  map[string]string{"k": "v"},
	}
	v, err := FromAny(in)
	require.NoError(t, err)

	want := Map{
		"s":   NewString("str"),
		"i":   NewInt(7),
		"u":   NewInt(3),
		"f":   NewNumber(2.5),
		"b":   NewBool(true),
		"n":   Null{},
		"num": NewInt(12),
		"l":   List{NewInt(1), NewString("two")},
		"ss":  List{NewString("a"), NewString("b")},
		"sm":  Map{"k": NewString("v")},
	}
	assert.True(t, Equal(want, v), "got %#v", v)
}

func TestFromAnyCycleMap(t *testing.T) {
	m := map[string]any{}
	m["self"] = m
	_, err := FromAny(m)
	require.ErrorIs(t, err, ErrCycle)
}

func TestFromAnyCycleSlice(t *testing.T) {
	s := make([]any, 1)
	s[0] = s
	_, err := FromAny(s)
	require.ErrorIs(t, err, ErrCycle)
}

func TestFromAnyCycleValueMap(t *testing.T) {
	m := Map{}
	m["loop"] = List{m}
	_, err := FromAny(m)
	require.ErrorIs(t, err, ErrCycle)
}

func TestFromAnySharedNotCycle(t *testing.T) {
	shared := map[string]any{"x": 1}
	v, err := FromAny(map[string]any{"a": shared, "b": shared})
	require.NoError(t, err)
	assert.True(t, Equal(Map{"a": Map{"x": NewInt(1)}, "b": Map{"x": NewInt(1)}}, v))
}

func TestFromAnyRejectsNonFinite(t *testing.T) {
	_, err := FromAny([]any{math.Inf(-1)})
	require.ErrorIs(t, err, ErrNonFinite)
}

func TestFromAnyRejectsUnsupported(t *testing.T) {
	_, err := FromAny(map[int]string{1: "x"})
	require.Error(t, err)
	_, err = FromAny(struct{}{})
	require.Error(t, err)
}

func TestToAnyNumericPolicy(t *testing.T) {
	got := ToAny(List{NewInt(5), NewNumber(5.5)})
	require.IsType(t, []any{}, got)
	l := got.([]any)
	assert.Equal(t, int64(5), l[0])
	assert.Equal(t, 5.5, l[1])
}

func TestToAnyRoundTrip(t *testing.T) {
	v := Map{"a": List{NewString("x"), NewBool(false), Null{}}, "n": NewNumber(-0.5)}
	back, err := FromAny(ToAny(v))
	require.NoError(t, err)
	assert.True(t, Equal(v, back))
}
