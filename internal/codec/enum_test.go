package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/aepbridge/internal/dyn"
)

type color int

const (
	colorUnknown color = iota
	colorRed
	colorBlue
)

var colors = NewEnum("Color", colorUnknown, map[color]string{
	colorUnknown: "UNKNOWN",
	colorRed:     "RED",
	colorBlue:    "BLUE",
})

func TestEnumDecode(t *testing.T) {
	assert.Equal(t, colorRed, colors.Decode("RED"))
	assert.Equal(t, colorUnknown, colors.Decode("GREEN"))
	assert.Equal(t, colorUnknown, colors.Decode(""))
	assert.Equal(t, colorUnknown, colors.DecodeValue(dyn.NewInt(1)))
	assert.Equal(t, colorUnknown, colors.DecodeValue(nil))

	_, ok := colors.Lookup("GREEN")
	assert.False(t, ok)
}

func TestEnumEncode(t *testing.T) {
	assert.Equal(t, "BLUE", colors.Encode(colorBlue))
	assert.Equal(t, "UNKNOWN", colors.Encode(color(99)))
	assert.Equal(t, dyn.String("RED"), colors.EncodeValue(colorRed))
}

func TestEnumRoundTrip(t *testing.T) {
	for _, c := range []color{colorUnknown, colorRed, colorBlue} {
		assert.Equal(t, c, colors.Decode(colors.Encode(c)))
	}
}

func TestNewEnumPanicsWithoutNeutral(t *testing.T) {
	assert.Panics(t, func() {
		NewEnum("Bad", colorUnknown, map[color]string{colorRed: "RED"})
	})
}
