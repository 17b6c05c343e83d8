package places

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aepbridge/internal/bridge"
	"github.com/roach88/aepbridge/internal/call"
	"github.com/roach88/aepbridge/internal/dyn"
)

type fakeSDK struct {
	pois      []POI
	nearbyErr error
	last      *Location
	lastQuery Location
	limit     int
	geofences []Geofence
	status    AuthStatus
	cleared   bool
}

func (f *fakeSDK) ExtensionVersion() string { return "3.0.1" }
func (f *fakeSDK) GetNearbyPointsOfInterest(loc Location, limit int, done func([]POI, error)) {
	f.lastQuery, f.limit = loc, limit
	if f.nearbyErr != nil {
		done(nil, f.nearbyErr)
		return
	}
	done(f.pois, nil)
}
func (f *fakeSDK) GetCurrentPointsOfInterest(done func([]POI, error)) { done(f.pois, nil) }
func (f *fakeSDK) GetLastKnownLocation(done func(*Location, error))   { done(f.last, nil) }
func (f *fakeSDK) ProcessGeofence(g Geofence, _ Transition)           { f.geofences = append(f.geofences, g) }
func (f *fakeSDK) Clear()                                             { f.cleared = true }
func (f *fakeSDK) SetAuthorizationStatus(s AuthStatus)                { f.status = s }

func newTestBridge(t *testing.T, sdk SDK) *bridge.Bridge {
	t.Helper()
	b := bridge.New(bridge.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, b.Register(New(sdk, b.Env())))
	t.Cleanup(b.Close)
	return b
}

func TestLocationKeepsLongitude(t *testing.T) {
	loc := Location{Latitude: 37.33, Longitude: -121.89}
	enc := loc.Encode().(dyn.Map)
	assert.Equal(t, dyn.NewNumber(-121.89), enc["longitude"])

	back, err := DecodeLocation(enc)
	require.NoError(t, err)
	assert.Equal(t, loc, back)
}

func TestLocationRequiresBothCoordinates(t *testing.T) {
	_, err := DecodeLocation(dyn.Map{"latitude": dyn.NewNumber(1)})
	require.Error(t, err)
}

func TestPOIRoundTrip(t *testing.T) {
	p := POI{
		Identifier: "poi-1", Name: "HQ", Latitude: 37.33, Longitude: -121.89,
		Radius: 150, UserIsWithin: true, Library: "lib", Weight: 5,
		Metadata: map[string]string{"city": "San Jose"},
	}
	back, err := DecodePOI(p.Encode())
	require.NoError(t, err)
	assert.Equal(t, p, back)
}

func TestGeofenceDefaults(t *testing.T) {
	g, err := DecodeGeofence(dyn.Map{
		"identifier": dyn.NewString("g1"),
		"latitude":   dyn.NewNumber(1.5),
		"longitude":  dyn.NewNumber(2.5),
		"radius":     dyn.NewInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, NeverExpire, g.ExpirationDuration)

	_, err = DecodeGeofence(dyn.Map{
		"identifier":         dyn.NewString("g1"),
		"latitude":           dyn.NewNumber(1.5),
		"longitude":          dyn.NewNumber(2.5),
		"radius":             dyn.NewInt(100),
		"expirationDuration": dyn.NewNumber(5.5),
	})
	require.Error(t, err)
}

func TestGetNearbyPointsOfInterest(t *testing.T) {
	sdk := &fakeSDK{pois: []POI{{Identifier: "poi-1", Weight: 1}}}
	b := newTestBridge(t, sdk)

	v, err := b.Call(context.Background(), Name, "getNearbyPointsOfInterest", dyn.List{
		dyn.Map{"latitude": dyn.NewNumber(37.33), "longitude": dyn.NewNumber(-121.89)},
		dyn.NewInt(10),
	})
	require.NoError(t, err)
	require.Len(t, v, 1)
	assert.Equal(t, -121.89, sdk.lastQuery.Longitude)
	assert.Equal(t, 10, sdk.limit)
}

func TestGetNearbyPointsOfInterestRequestError(t *testing.T) {
	b := newTestBridge(t, &fakeSDK{nearbyErr: ErrPrivacyOptedOut})

	_, err := b.Call(context.Background(), Name, "getNearbyPointsOfInterest", dyn.List{
		dyn.Map{"latitude": dyn.NewNumber(1), "longitude": dyn.NewNumber(2)},
		dyn.NewInt(10),
	})
	var ce *call.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, call.KindVendor, ce.Kind)
	assert.Equal(t, "6", ce.Code)
	assert.Equal(t, "PRIVACY_OPTED_OUT", ce.Message)
}

func TestGetNearbyPointsOfInterestFractionalLimit(t *testing.T) {
	b := newTestBridge(t, &fakeSDK{})
	_, err := b.Call(context.Background(), Name, "getNearbyPointsOfInterest", dyn.List{
		dyn.Map{"latitude": dyn.NewNumber(1), "longitude": dyn.NewNumber(2)},
		dyn.NewNumber(5.5),
	})
	assert.True(t, call.IsProgramming(err))
}

func TestLastKnownLocation(t *testing.T) {
	sdk := &fakeSDK{}
	b := newTestBridge(t, sdk)
	v, err := b.Call(context.Background(), Name, "getLastKnownLocation", nil)
	require.NoError(t, err)
	assert.Equal(t, dyn.Null{}, v)

	sdk.last = &Location{Latitude: 1, Longitude: 2}
	v, err = b.Call(context.Background(), Name, "getLastKnownLocation", nil)
	require.NoError(t, err)
	assert.True(t, dyn.Equal(dyn.Map{"latitude": dyn.NewInt(1), "longitude": dyn.NewInt(2)}, v))
}

func TestProcessGeofence(t *testing.T) {
	sdk := &fakeSDK{}
	b := newTestBridge(t, sdk)
	g := Geofence{Identifier: "g1", Latitude: 1, Longitude: 2, Radius: 50, ExpirationDuration: 60}

	_, err := b.Call(context.Background(), Name, "processGeofence", dyn.List{g.Encode(), dyn.NewInt(1)})
	require.NoError(t, err)
	assert.Equal(t, []Geofence{g}, sdk.geofences)

	_, err = b.Call(context.Background(), Name, "processGeofence", dyn.List{g.Encode(), dyn.NewInt(3)})
	assert.True(t, call.IsProgramming(err))
}

func TestSetAuthorizationStatus(t *testing.T) {
	sdk := &fakeSDK{status: AuthAlways}
	b := newTestBridge(t, sdk)

	_, err := b.Call(context.Background(), Name, "setAuthorizationStatus", dyn.List{dyn.NewString("PLACES_AUTH_STATUS_WHEN_IN_USE")})
	require.NoError(t, err)
	assert.Equal(t, AuthWhenInUse, sdk.status)

	_, err = b.Call(context.Background(), Name, "setAuthorizationStatus", dyn.List{dyn.Null{}})
	require.NoError(t, err)
	assert.Equal(t, AuthUnknown, sdk.status)
}
