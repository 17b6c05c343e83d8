package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aepbridge/internal/dyn"
)

func TestReaderRequiredAndOptional(t *testing.T) {
	v := dyn.Map{
		"id":      dyn.NewString("a"),
		"score":   dyn.NewNumber(2.5),
		"count":   dyn.NewInt(3),
		"primary": dyn.NewBool(true),
		"note":    dyn.Null{},
		"extra":   dyn.NewString("ignored"),
	}
	r := NewReader("Thing", v)
	assert.Equal(t, "a", r.RequiredString("id"))
	assert.Equal(t, 2.5, r.RequiredNumber("score"))
	assert.Equal(t, int64(3), r.RequiredInt("count"))
	assert.True(t, r.BoolOr("primary", false))

	note, ok := r.String("note")
	assert.False(t, ok, "null must read as absent")
	assert.Empty(t, note)

	assert.Equal(t, "fallback", r.StringOr("missing", "fallback"))
	require.NoError(t, r.Err())
}

func TestReaderMissingRequired(t *testing.T) {
	r := NewReader("Event", dyn.Map{"eventName": dyn.NewString("x")})
	r.RequiredString("eventName")
	r.RequiredString("eventType")
	r.RequiredString("eventSource")

	err := r.Err()
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "Event", de.Type)
	assert.Equal(t, "eventType", de.Path, "first failure wins")
	assert.Equal(t, ReasonMissing, de.Reason)
}

func TestReaderTypeMismatch(t *testing.T) {
	r := NewReader("Thing", dyn.Map{"id": dyn.NewInt(1)})
	assert.Empty(t, r.RequiredString("id"))
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "expected string, got number")
}

func TestReaderNotMap(t *testing.T) {
	r := NewReader("Thing", dyn.List{})
	assert.Empty(t, r.RequiredString("id"))
	require.Error(t, r.Err())
	assert.True(t, IsDecodeError(r.Err()))
}

func TestReaderIntRejectsFraction(t *testing.T) {
	r := NewReader("Thing", dyn.Map{"limit": dyn.NewNumber(5.5)})
	_, ok := r.Int("limit")
	assert.False(t, ok)
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), ReasonNotInt)
}

func TestReaderIntAcceptsIntegralFloat(t *testing.T) {
	r := NewReader("Thing", dyn.Map{"limit": dyn.NewNumber(5.0)})
	n, ok := r.Int("limit")
	assert.True(t, ok)
	assert.Equal(t, int64(5), n)
	require.NoError(t, r.Err())
}

func TestReaderStringMap(t *testing.T) {
	r := NewReader("Ctx", dyn.Map{"data": dyn.Map{"k": dyn.NewString("v")}})
	m, ok := r.StringMap("data")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"k": "v"}, m)

	r = NewReader("Ctx", dyn.Map{"data": dyn.Map{"k": dyn.NewInt(1)}})
	_, ok = r.StringMap("data")
	assert.False(t, ok)
	var de *DecodeError
	require.ErrorAs(t, r.Err(), &de)
	assert.Equal(t, "data.k", de.Path)
}

func TestReaderObjectPrefixesPath(t *testing.T) {
	inner := func(v dyn.Value) error {
		r := NewReader("Inner", v)
		r.RequiredString("id")
		return r.Err()
	}
	r := NewReader("Outer", dyn.Map{"activity": dyn.Map{}})
	r.Object("activity", inner)

	var de *DecodeError
	require.ErrorAs(t, r.Err(), &de)
	assert.Equal(t, "Outer", de.Type)
	assert.Equal(t, "activity.id", de.Path)
}
