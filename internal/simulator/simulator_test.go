package simulator

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aepbridge/internal/bridge"
	"github.com/roach88/aepbridge/internal/call"
	"github.com/roach88/aepbridge/internal/codec"
	"github.com/roach88/aepbridge/internal/dyn"
	"github.com/roach88/aepbridge/internal/messaging"
	"github.com/roach88/aepbridge/internal/optimize"
	"github.com/roach88/aepbridge/internal/target"
	"github.com/roach88/aepbridge/internal/testutil"
)

func loadTestFixture(t *testing.T, name string) *Fixture {
	t.Helper()
	f, err := LoadFixture(filepath.Join("testdata", name))
	require.NoError(t, err)
	return f
}

func newTestBridge(t *testing.T, f *Fixture) (*bridge.Bridge, *Simulator) {
	t.Helper()
	sim, err := New(f, WithLogger(testutil.DiscardLogger()))
	require.NoError(t, err)
	b := bridge.New(bridge.WithLogger(testutil.DiscardLogger()))
	require.NoError(t, b.Register(sim.Modules(b.Env())...))
	t.Cleanup(b.Close)
	return b, sim
}

func mustCall(t *testing.T, b *bridge.Bridge, op string, args ...dyn.Value) dyn.Value {
	t.Helper()
	v, err := b.CallOp(context.Background(), op, dyn.List(args))
	require.NoError(t, err, op)
	return v
}

func TestFixtureFormatsAgree(t *testing.T) {
	js := loadTestFixture(t, "fixture.json")
	ym := loadTestFixture(t, "fixture.yaml")
	assert.Equal(t, js, ym)

	cue := loadTestFixture(t, "fixture.cue")
	assert.Equal(t, js.PrivacyStatus, cue.PrivacyStatus)
	assert.Equal(t, js.Versions, cue.Versions)
	assert.Equal(t, js.Failures, cue.Failures)
	assert.Equal(t, js.TargetContent, cue.TargetContent)
	assert.Len(t, cue.POIs, 2)
	assert.NotNil(t, cue.MessagingPropositions["cards"])
}

func TestLoadFixtureErrors(t *testing.T) {
	_, err := LoadFixture(filepath.Join("testdata", "bad_schema.cue"))
	require.Error(t, err)

	_, err = LoadFixture(filepath.Join("testdata", "missing.json"))
	require.Error(t, err)

	_, err = ParseFixture(".toml", "x.toml", []byte("a = 1"))
	assert.ErrorContains(t, err, "unsupported fixture format")

	_, err = DecodeFixture(dyn.Map{"versions": dyn.NewString("5.0.0")})
	assert.True(t, codec.IsDecodeError(err))
}

func TestNewRejectsMalformedNestedObjects(t *testing.T) {
	f := loadTestFixture(t, "bad_poi.json")
	_, err := New(f)
	require.Error(t, err)
	var de *codec.DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "[0].longitude", de.Path)
}

func TestNilFixtureIsEmpty(t *testing.T) {
	b, _ := newTestBridge(t, nil)
	assert.Equal(t, dyn.NewString("AEP_PRIVACY_STATUS_OPT_IN"), mustCall(t, b, "AEPCore.getPrivacyStatus"))
	assert.Equal(t, dyn.NewString("5.0.0"), mustCall(t, b, "AEPCore.extensionVersion"))
	assert.Equal(t, dyn.Null{}, mustCall(t, b, "AEPPlaces.getLastKnownLocation"))
}

func TestCoreAndIdentity(t *testing.T) {
	b, sim := newTestBridge(t, loadTestFixture(t, "fixture.cue"))

	assert.Equal(t, dyn.NewString("5.2.0"), mustCall(t, b, "AEPCore.extensionVersion"))
	assert.Equal(t, dyn.NewString("AEP_PRIVACY_STATUS_OPT_OUT"), mustCall(t, b, "AEPCore.getPrivacyStatus"))
	mustCall(t, b, "AEPCore.setPrivacyStatus", dyn.NewString("AEP_PRIVACY_STATUS_OPT_IN"))
	assert.Equal(t, dyn.NewString("AEP_PRIVACY_STATUS_OPT_IN"), mustCall(t, b, "AEPCore.getPrivacyStatus"))

	assert.Equal(t, dyn.NewString("ecid-1234"), mustCall(t, b, "AEPIdentity.getExperienceCloudId"))

	mustCall(t, b, "AEPIdentity.syncIdentifier", dyn.NewString("crm"), dyn.NewString("user-2"), dyn.NewString("VISITOR_AUTH_STATE_LOGGED_OUT"))
	ids := mustCall(t, b, "AEPIdentity.getIdentifiers").(dyn.List)
	require.Len(t, ids, 1)
	assert.Equal(t, dyn.NewString("user-2"), ids[0].(dyn.Map)["identifier"])

	mustCall(t, b, "AEPCore.resetIdentities")
	assert.Equal(t, dyn.List{}, mustCall(t, b, "AEPIdentity.getIdentifiers"))

	url := mustCall(t, b, "AEPIdentity.appendVisitorInfoForURL", dyn.NewString("https://example.com/a?x=1"))
	assert.Equal(t, dyn.NewString("https://example.com/a?x=1&adobe_mc=TS%3D1"), url)

	assert.Contains(t, sim.CallOps(), "AEPIdentity.syncIdentifier")
	assert.Contains(t, sim.CallOps(), "AEPCore.resetIdentities")
}

func TestConfiguredFailure(t *testing.T) {
	b, sim := newTestBridge(t, loadTestFixture(t, "fixture.json"))

	_, err := b.CallOp(context.Background(), "AEPIdentity.getUrlVariables", nil)
	require.Error(t, err)
	var ce *call.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, call.KindVendor, ce.Kind)
	assert.Equal(t, "general.network.error", ce.Code)

	sim.Fail("AEPIdentity.getUrlVariables", "")
	assert.Equal(t, dyn.NewString("adobe_mc=TS%3D1"), mustCall(t, b, "AEPIdentity.getUrlVariables"))

	sim.Fail("AEPCore.getSdkIdentities", "general.callback.timeout")
	_, err = b.CallOp(context.Background(), "AEPCore.getSdkIdentities", nil)
	assert.True(t, call.IsVendor(err))
}

func TestEdgeAndConsent(t *testing.T) {
	b, _ := newTestBridge(t, loadTestFixture(t, "fixture.cue"))

	handles := mustCall(t, b, "AEPEdge.sendEvent", dyn.Map{"xdmData": dyn.Map{"eventType": dyn.NewString("test")}}).(dyn.List)
	require.Len(t, handles, 1)
	assert.Equal(t, dyn.NewString("personalization:decisions"), handles[0].(dyn.Map)["type"])

	assert.Equal(t, dyn.NewString("or2"), mustCall(t, b, "AEPEdge.getLocationHint"))
	mustCall(t, b, "AEPEdge.setLocationHint", dyn.Null{})
	assert.Equal(t, dyn.Null{}, mustCall(t, b, "AEPEdge.getLocationHint"))

	mustCall(t, b, "AEPEdgeConsent.update", dyn.Map{"consents": dyn.Map{"adID": dyn.Map{"val": dyn.NewString("n")}}})
	got := mustCall(t, b, "AEPEdgeConsent.getConsents").(dyn.Map)
	consents := got["consents"].(dyn.Map)
	assert.Contains(t, consents, "collect")
	assert.Contains(t, consents, "adID")
}

func TestEdgeIdentityMap(t *testing.T) {
	b, _ := newTestBridge(t, loadTestFixture(t, "fixture.cue"))

	mustCall(t, b, "AEPEdgeIdentity.updateIdentities", dyn.Map{
		"Email": dyn.List{dyn.Map{"id": dyn.NewString("a@example.com")}},
	})
	got := mustCall(t, b, "AEPEdgeIdentity.getIdentities").(dyn.Map)
	assert.Contains(t, got, "ECID")
	assert.Contains(t, got, "Email")

	mustCall(t, b, "AEPEdgeIdentity.resetIdentities")
	assert.Equal(t, dyn.Map{}, mustCall(t, b, "AEPEdgeIdentity.getIdentities"))
}

func TestPlacesNearbyOrdersByDistance(t *testing.T) {
	b, _ := newTestBridge(t, loadTestFixture(t, "fixture.cue"))
	loc := dyn.Map{"latitude": dyn.NewNumber(37.3383), "longitude": dyn.NewNumber(-121.8864)}

	pois := mustCall(t, b, "AEPPlaces.getNearbyPointsOfInterest", loc, dyn.NewInt(10)).(dyn.List)
	require.Len(t, pois, 2)
	assert.Equal(t, dyn.NewString("park"), pois[0].(dyn.Map)["identifier"])
	assert.Equal(t, dyn.Bool(true), pois[0].(dyn.Map)["userIsWithin"])
	assert.Equal(t, dyn.Bool(false), pois[1].(dyn.Map)["userIsWithin"])

	limited := mustCall(t, b, "AEPPlaces.getNearbyPointsOfInterest", loc, dyn.NewInt(1)).(dyn.List)
	assert.Len(t, limited, 1)

	current := mustCall(t, b, "AEPPlaces.getCurrentPointsOfInterest").(dyn.List)
	require.Len(t, current, 1)
	assert.Equal(t, dyn.NewString("park"), current[0].(dyn.Map)["identifier"])

	assert.Equal(t, loc, mustCall(t, b, "AEPPlaces.getLastKnownLocation"))

	mustCall(t, b, "AEPPlaces.clear")
	assert.Equal(t, dyn.Null{}, mustCall(t, b, "AEPPlaces.getLastKnownLocation"))
	assert.Equal(t, dyn.List{}, mustCall(t, b, "AEPPlaces.getCurrentPointsOfInterest"))
}

func TestPlacesFailureUsesRequestError(t *testing.T) {
	b, sim := newTestBridge(t, nil)
	sim.Fail("AEPPlaces.getCurrentPointsOfInterest", "PRIVACY_OPTED_OUT")
	_, err := b.CallOp(context.Background(), "AEPPlaces.getCurrentPointsOfInterest", nil)
	var ce *call.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "6", ce.Code)

	sim.Fail("AEPPlaces.getCurrentPointsOfInterest", "general.server.error")
	_, err = b.CallOp(context.Background(), "AEPPlaces.getCurrentPointsOfInterest", nil)
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "general.server.error", ce.Code)
}

func TestOptimizeUpdateThenGet(t *testing.T) {
	b, sim := newTestBridge(t, loadTestFixture(t, "fixture.cue"))
	var updates []dyn.Value
	b.Events().Subscribe(optimize.EventPropositionsUpdate, func(_ string, payload dyn.Value) {
		updates = append(updates, payload)
	})

	scopes := dyn.List{dyn.NewString("scope-a"), dyn.NewString("scope-missing")}
	assert.Equal(t, dyn.Map{}, mustCall(t, b, "AEPOptimize.getPropositions", scopes))

	mustCall(t, b, "AEPOptimize.onPropositionsUpdate")
	mustCall(t, b, "AEPOptimize.updatePropositions", scopes)
	require.Len(t, updates, 1)
	assert.Contains(t, updates[0].(dyn.Map), "scope-a")

	got := mustCall(t, b, "AEPOptimize.getPropositions", scopes).(dyn.Map)
	assert.Contains(t, got, "scope-a")
	assert.NotContains(t, got, "scope-missing")

	mustCall(t, b, "AEPOptimize.clearCachedPropositions")
	assert.Equal(t, dyn.Map{}, mustCall(t, b, "AEPOptimize.getPropositions", scopes))

	sim.Fail("AEPOptimize.getPropositions", "invalid.scope")
	_, err := b.CallOp(context.Background(), "AEPOptimize.getPropositions", scopes)
	var ce *call.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "invalid.scope", ce.Code)
}

func TestMessagingPresentMessage(t *testing.T) {
	b, sim := newTestBridge(t, loadTestFixture(t, "fixture.cue"))

	_, err := sim.PresentMessage("m-1")
	require.ErrorIs(t, err, ErrNoDelegate)

	mustCall(t, b, "AEPMessaging.setMessagingDelegate")
	var mu sync.Mutex
	var shown []dyn.Value
	b.Events().Subscribe(messaging.EventOnShow, func(_ string, payload dyn.Value) {
		mu.Lock()
		shown = append(shown, payload)
		mu.Unlock()
	})

	type presented struct {
		ok  bool
		err error
	}
	done := make(chan presented, 1)
	go func() {
		ok, err := sim.PresentMessage("m-1")
		done <- presented{ok, err}
	}()
	// Answered whether or not the question is already parked.
	mustCall(t, b, "AEPMessaging.setMessageSettings", dyn.Bool(true), dyn.Bool(true))

	var got presented
	select {
	case got = <-done:
	case <-time.After(time.Second):
		t.Fatal("PresentMessage did not return")
	}
	require.NoError(t, got.err)
	assert.True(t, got.ok)
	mu.Lock()
	require.Len(t, shown, 1)
	assert.Equal(t, dyn.NewString("m-1"), shown[0].(dyn.Map)["id"])
	mu.Unlock()

	content := mustCall(t, b, "AEPMessaging.handleJavascriptMessage", dyn.NewString("m-1"), dyn.NewString("myHandler"))
	assert.Equal(t, dyn.NewString("myHandler"), content)
	sim.SetScriptContent("myHandler", "posted")
	content = mustCall(t, b, "AEPMessaging.handleJavascriptMessage", dyn.NewString("m-1"), dyn.NewString("myHandler"))
	assert.Equal(t, dyn.NewString("posted"), content)

	mustCall(t, b, "AEPMessaging.dismiss", dyn.NewString("m-1"), dyn.Bool(false))
	assert.Contains(t, sim.CallOps(), "AEPMessaging.Message.dismiss")
}

func TestMessagingPropositionsBySurface(t *testing.T) {
	b, _ := newTestBridge(t, loadTestFixture(t, "fixture.cue"))
	got := mustCall(t, b, "AEPMessaging.getPropositionsForSurfaces", dyn.List{dyn.NewString("cards"), dyn.NewString("none")}).(dyn.Map)
	require.Contains(t, got, "cards")
	assert.NotContains(t, got, "none")
	props := got["cards"].(dyn.List)
	require.Len(t, props, 1)
	item := props[0].(dyn.Map)["items"].(dyn.List)[0].(dyn.Map)
	assert.NotEmpty(t, item["uuid"])
}

func TestTargetRetrieveLocationContent(t *testing.T) {
	b, sim := newTestBridge(t, loadTestFixture(t, "fixture.cue"))
	var delivered []dyn.Value
	b.Events().Subscribe(target.EventRequestContent, func(_ string, payload dyn.Value) {
		delivered = append(delivered, payload)
	})

	mustCall(t, b, "AEPTarget.registerTargetRequests", dyn.Map{"id": dyn.NewString("r1"), "name": dyn.NewString("home-banner")})
	mustCall(t, b, "AEPTarget.registerTargetRequests", dyn.Map{"id": dyn.NewString("r2"), "name": dyn.NewString("other"), "defaultContent": dyn.NewString("fallback")})
	mustCall(t, b, "AEPTarget.retrieveLocationContent", dyn.List{dyn.Map{"id": dyn.NewString("r1")}, dyn.Map{"id": dyn.NewString("r2")}})

	require.Len(t, delivered, 2)
	assert.Equal(t, dyn.NewString("<div>welcome</div>"), delivered[0].(dyn.Map)["content"])
	assert.Equal(t, dyn.NewString("fallback"), delivered[1].(dyn.Map)["content"])

	sid := mustCall(t, b, "AEPTarget.getSessionId")
	assert.Equal(t, sid, mustCall(t, b, "AEPTarget.getSessionId"))
	mustCall(t, b, "AEPTarget.resetExperience")
	assert.NotEqual(t, sid, mustCall(t, b, "AEPTarget.getSessionId"))

	sim.Fail("AEPTarget.retrieveLocationContent", "general.network.error")
	mustCall(t, b, "AEPTarget.retrieveLocationContent", dyn.List{dyn.Map{"id": dyn.NewString("r1")}})
	require.Len(t, delivered, 3)
	assert.Equal(t, dyn.NewString(""), delivered[2].(dyn.Map)["content"])
}

func TestUserProfile(t *testing.T) {
	b, _ := newTestBridge(t, loadTestFixture(t, "fixture.yaml"))
	names := dyn.List{dyn.NewString("tier"), dyn.NewString("visits")}
	assert.Equal(t, dyn.Map{"tier": dyn.NewString("gold"), "visits": dyn.NewInt(3)}, mustCall(t, b, "AEPUserProfile.getUserAttributes", names))

	mustCall(t, b, "AEPUserProfile.removeUserAttributes", names)
	assert.Equal(t, dyn.Null{}, mustCall(t, b, "AEPUserProfile.getUserAttributes", names))
}

func TestCallsRecordsArguments(t *testing.T) {
	b, sim := newTestBridge(t, nil)
	mustCall(t, b, "AEPCore.trackAction", dyn.NewString("login"), dyn.Map{"k": dyn.NewString("v")})
	mustCall(t, b, "AEPAssurance.startSession", dyn.NewString("app://assurance"))

	calls := sim.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, Invocation{
		Op:   "AEPCore.trackAction",
		Args: dyn.List{dyn.NewString("login"), dyn.Map{"k": dyn.NewString("v")}},
	}, calls[0])
	assert.Equal(t, "AEPAssurance.startSession", calls[1].Op)

	sim.ResetCalls()
	assert.Empty(t, sim.Calls())
}
