package edgeidentity

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
	ids   *IdentityMap
	reset bool
}

func (f *fakeSDK) ExtensionVersion() string                      { return "2.0.1" }
func (f *fakeSDK) GetExperienceCloudID(done func(string, error)) { done("ecid-1", nil) }
func (f *fakeSDK) GetURLVariables(done func(string, error))      { done("adobe_mc=TS%3D1", nil) }
func (f *fakeSDK) GetIdentities(done func(*IdentityMap, error))  { done(f.ids, nil) }
func (f *fakeSDK) UpdateIdentities(m *IdentityMap) {
	if f.ids == nil {
		f.ids = NewIdentityMap()
	}
	f.ids.Merge(m)
}
func (f *fakeSDK) RemoveIdentity(item Item, ns string) { f.ids.RemoveItem(item, ns) }
func (f *fakeSDK) ResetIdentities()                    { f.reset = true; f.ids = nil }

func newTestBridge(t *testing.T, sdk SDK) *bridge.Bridge {
	t.Helper()
	b := bridge.New(bridge.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, b.Register(New(sdk, b.Env())))
	t.Cleanup(b.Close)
	return b
}

func TestGetIdentitiesNilIsEmptyMap(t *testing.T) {
	b := newTestBridge(t, &fakeSDK{})
	v, err := b.Call(context.Background(), Name, "getIdentities", nil)
	require.NoError(t, err)
	assert.Equal(t, dyn.Map{}, v)
}

func TestUpdateAndRemoveIdentities(t *testing.T) {
	sdk := &fakeSDK{}
	b := newTestBridge(t, sdk)
	ctx := context.Background()

	_, err := b.Call(ctx, Name, "updateIdentities", dyn.List{dyn.Map{"items": dyn.Map{
		"Email": dyn.List{dyn.Map{
			"id":                 dyn.NewString("a@b.c"),
			"authenticatedState": dyn.NewString("authenticated"),
			"primary":            dyn.NewBool(true),
		}},
	}}})
	require.NoError(t, err)

	v, err := b.Call(ctx, Name, "getIdentities", nil)
	require.NoError(t, err)
	assert.True(t, dyn.Equal(dyn.Map{"Email": dyn.List{dyn.Map{
		"id":                 dyn.NewString("a@b.c"),
		"authenticatedState": dyn.NewString("authenticated"),
		"primary":            dyn.NewBool(true),
	}}}, v))

	_, err = b.Call(ctx, Name, "removeIdentity", dyn.List{
		dyn.Map{"id": dyn.NewString("A@B.C")}, dyn.NewString("Email"),
	})
	require.NoError(t, err)
	assert.True(t, sdk.ids.IsEmpty())
}

func TestUpdateIdentitiesDecodeFailure(t *testing.T) {
	sdk := &fakeSDK{}
	b := newTestBridge(t, sdk)
	_, err := b.Call(context.Background(), Name, "updateIdentities", dyn.List{dyn.Map{
		"Email": dyn.NewString("not a list"),
	}})
	assert.True(t, call.IsDecode(err))
	assert.Nil(t, sdk.ids)
}

func TestStringGetters(t *testing.T) {
	b := newTestBridge(t, &fakeSDK{})
	v, err := b.Call(context.Background(), Name, "getExperienceCloudId", nil)
	require.NoError(t, err)
	assert.Equal(t, dyn.String("ecid-1"), v)

	v, err = b.Call(context.Background(), Name, "getUrlVariables", nil)
	require.NoError(t, err)
	assert.Equal(t, dyn.String("adobe_mc=TS%3D1"), v)
}
