package identity

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aepbridge/internal/aep"
	"github.com/roach88/aepbridge/internal/bridge"
	"github.com/roach88/aepbridge/internal/call"
	"github.com/roach88/aepbridge/internal/dyn"
)

type fakeSDK struct {
	synced map[string]string
	state  AuthState
	ids    []VisitorID
	ecidErr error
}

func (f *fakeSDK) ExtensionVersion() string { return "2.0.0" }
func (f *fakeSDK) SyncIdentifiers(ids map[string]string, s AuthState) {
	f.synced, f.state = ids, s
}
func (f *fakeSDK) SyncIdentifier(t, id string, s AuthState) {
	f.synced, f.state = map[string]string{t: id}, s
}
func (f *fakeSDK) AppendVisitorInfoForURL(url string, done func(string, error)) {
	go done(url+"?adobe_mc=MCMID%3D123", nil)
}
func (f *fakeSDK) GetURLVariables(done func(string, error)) { done("adobe_mc=MCMID%3D123", nil) }
func (f *fakeSDK) GetIdentifiers(done func([]VisitorID, error)) {
	done(f.ids, nil)
}
func (f *fakeSDK) GetExperienceCloudID(done func(string, error)) { done("", f.ecidErr) }

func newTestBridge(t *testing.T, sdk SDK) *bridge.Bridge {
	t.Helper()
	b := bridge.New(bridge.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, b.Register(New(sdk, b.Env())))
	t.Cleanup(b.Close)
	return b
}

func TestVisitorIDRoundTrip(t *testing.T) {
	id := VisitorID{Origin: "d_cid_ic", Type: "email", Identifier: "x@y.z", AuthState: AuthLoggedOut}
	back, err := DecodeVisitorID(id.Encode())
	require.NoError(t, err)
	assert.Equal(t, id, back)
}

func TestVisitorIDUnknownState(t *testing.T) {
	id, err := DecodeVisitorID(dyn.Map{
		"idType":              dyn.NewString("crm"),
		"identifier":          dyn.NewString("42"),
		"authenticationState": dyn.NewString("SOMETHING_NEW"),
	})
	require.NoError(t, err)
	assert.Equal(t, AuthUnknown, id.AuthState)

	_, err = DecodeVisitorID(dyn.Map{"idType": dyn.NewString("crm")})
	require.Error(t, err)
}

func TestSyncIdentifiersWithAuthState(t *testing.T) {
	sdk := &fakeSDK{}
	b := newTestBridge(t, sdk)

	_, err := b.Call(context.Background(), Name, "syncIdentifiersWithAuthState", dyn.List{
		dyn.Map{"crm": dyn.NewString("42")},
		dyn.NewString("VISITOR_AUTH_STATE_AUTHENTICATED"),
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"crm": "42"}, sdk.synced)
	assert.Equal(t, AuthAuthenticated, sdk.state)

	_, err = b.Call(context.Background(), Name, "syncIdentifier", dyn.List{
		dyn.NewString("email"), dyn.NewString("a@b.c"), dyn.NewString("bogus"),
	})
	require.NoError(t, err)
	assert.Equal(t, AuthUnknown, sdk.state)
}

func TestGetIdentifiers(t *testing.T) {
	sdk := &fakeSDK{ids: []VisitorID{{Type: "crm", Identifier: "42", AuthState: AuthAuthenticated}}}
	b := newTestBridge(t, sdk)

	v, err := b.Call(context.Background(), Name, "getIdentifiers", nil)
	require.NoError(t, err)
	assert.True(t, dyn.Equal(dyn.List{dyn.Map{
		"idType":              dyn.NewString("crm"),
		"identifier":          dyn.NewString("42"),
		"authenticationState": dyn.NewString("VISITOR_AUTH_STATE_AUTHENTICATED"),
	}}, v))
}

func TestGetIdentifiersEmpty(t *testing.T) {
	b := newTestBridge(t, &fakeSDK{})
	v, err := b.Call(context.Background(), Name, "getIdentifiers", nil)
	require.NoError(t, err)
	assert.Equal(t, dyn.List{}, v)
}

func TestAppendVisitorInfoForURL(t *testing.T) {
	b := newTestBridge(t, &fakeSDK{})
	v, err := b.Call(context.Background(), Name, "appendVisitorInfoForURL", dyn.List{dyn.NewString("https://example.com")})
	require.NoError(t, err)
	assert.Equal(t, dyn.String("https://example.com?adobe_mc=MCMID%3D123"), v)
}

func TestGetExperienceCloudIDFailure(t *testing.T) {
	b := newTestBridge(t, &fakeSDK{ecidErr: aep.ErrNetworkError})
	_, err := b.Call(context.Background(), Name, "getExperienceCloudId", nil)
	assert.True(t, call.IsVendor(err))
}
