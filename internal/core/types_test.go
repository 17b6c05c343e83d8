package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aepbridge/internal/codec"
	"github.com/roach88/aepbridge/internal/dyn"
)

func TestEventRoundTrip(t *testing.T) {
	ev := Event{
		Name:   "test",
		Type:   "com.adobe.eventType.generic.track",
		Source: "com.adobe.eventSource.requestContent",
		Data:   dyn.Map{"k": dyn.NewString("v"), "n": dyn.NewInt(5)},
	}
	back, err := DecodeEvent(ev.Encode())
	require.NoError(t, err)
	assert.Equal(t, ev.Name, back.Name)
	assert.True(t, dyn.Equal(ev.Encode(), back.Encode()))
}

func TestEventEncodeOmitsAbsentData(t *testing.T) {
	m := Event{Name: "a", Type: "b", Source: "c"}.Encode()
	_, has := m["eventData"]
	assert.False(t, has)
}

func TestEventEncodeIdempotent(t *testing.T) {
	first := Event{Name: "a", Type: "b", Source: "c", Data: dyn.Map{}}.Encode()
	ev, err := DecodeEvent(first)
	require.NoError(t, err)
	assert.True(t, dyn.Equal(first, ev.Encode()))
}

func TestDecodeEventMissingField(t *testing.T) {
	for _, missing := range []string{"eventName", "eventType", "eventSource"} {
		t.Run(missing, func(t *testing.T) {
			m := Event{Name: "a", Type: "b", Source: "c"}.Encode()
			delete(m, missing)
			_, err := DecodeEvent(m)
			var de *codec.DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, missing, de.Path)
		})
	}
}

func TestDecodeInitOptions(t *testing.T) {
	opts, err := DecodeInitOptions(dyn.Map{
		"appId":                             dyn.NewString("app-1"),
		"lifecycleAutomaticTrackingEnabled": dyn.NewBool(false),
		"lifecycleAdditionalContextData":    dyn.Map{"k": dyn.NewString("v")},
	})
	require.NoError(t, err)
	assert.Equal(t, "app-1", opts.AppID)
	require.NotNil(t, opts.LifecycleAutomaticTracking)
	assert.False(t, *opts.LifecycleAutomaticTracking)
	assert.Equal(t, map[string]string{"k": "v"}, opts.LifecycleAdditionalContextData)

	back, err := DecodeInitOptions(opts.Encode())
	require.NoError(t, err)
	assert.Equal(t, opts, back)

	_, err = DecodeInitOptions(dyn.Map{})
	require.Error(t, err)
}

func TestEnumsNeutralDefault(t *testing.T) {
	assert.Equal(t, LogLevelUnknown, LogLevels.Decode("AEP_LOG_LEVEL_LOUD"))
	assert.Equal(t, PrivacyUnknown, PrivacyStatuses.Decode("OPT_IN"))
	assert.Equal(t, "AEP_PRIVACY_STATUS_OPT_OUT", PrivacyOptOut.String())
	assert.Equal(t, "AEP_LOG_LEVEL_VERBOSE", LogLevelVerbose.String())
}
