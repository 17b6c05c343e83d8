package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aepbridge/internal/dyn"
	"github.com/roach88/aepbridge/internal/simulator"
)

func mustParse(t *testing.T, content string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(content), "")
	require.NoError(t, err)
	return s
}

func TestRun_MinimalScenario(t *testing.T) {
	scenario := mustParse(t, `
name: minimal
steps:
  - call: AEPCore.getPrivacyStatus
    expect:
      result: AEP_PRIVACY_STATUS_OPT_IN
`)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, result.Errors)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, TypeCall, result.Trace[0].Type)
	assert.Equal(t, int64(1), result.Trace[0].Seq)
	assert.Equal(t, TypeVendor, result.Trace[1].Type)
	assert.Equal(t, "AEPCore.getPrivacyStatus", result.Trace[1].Op)
}

func TestRun_ExpectMismatches(t *testing.T) {
	scenario := mustParse(t, `
name: mismatches
fixture:
  identities:
    experienceCloudId: ecid-1
  failures:
    AEPIdentity.getUrlVariables: general.network.error
steps:
  - call: AEPIdentity.getExperienceCloudId
    expect:
      result: ecid-2
  - call: AEPIdentity.getUrlVariables
    expect:
      ok: true
  - call: AEPIdentity.getExperienceCloudId
    expect:
      error_code: general.network.error
  - call: AEPEdge.sendEvent
    args: [{data: {}}]
    expect:
      error_code: NOT_FOUND
`)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], `expected result "ecid-2", got "ecid-1"`)
	assert.Contains(t, result.Errors[1], "expected success, got VENDOR/general.network.error")
	assert.Contains(t, result.Errors[2], "expected failure, got success")
	assert.Contains(t, result.Errors[3], `expected error code "NOT_FOUND", got "DECODE_FAILED"`)
}

func TestRun_LookupMissIsNotAFailure(t *testing.T) {
	scenario := mustParse(t, `
name: lookup_miss
steps:
  - call: AEPMessaging.show
    args: [missing]
    expect:
      ok: true
assertions:
  - type: journal_count
    module: AEPMessaging
    method: show
    count: 1
  - type: journal_count
    failed: true
    count: 1
`)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	// Lookup misses are journaled with their kind but answered with null.
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_EventsMustMatchExactly(t *testing.T) {
	scenario := mustParse(t, `
name: events
steps:
  - call: AEPMessaging.setMessagingDelegate
  - present: m-1
events: [onShow]
`)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "events: expected [onShow], got [shouldShowMessage]")
}

func TestRun_PresentWithoutDelegate(t *testing.T) {
	scenario := mustParse(t, `
name: no_delegate
steps:
  - present: m-1
events: []
`)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, result.Errors)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, TypePresented, result.Trace[1].Type)
	assert.False(t, result.Trace[1].Shown)
	msg, _ := result.Trace[1].Error["message"].(dyn.String)
	assert.Equal(t, simulator.ErrNoDelegate.Error(), string(msg))
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/message_presentation.yaml")
	require.NoError(t, err)

	var snapshots [][]byte
	for range 3 {
		result, err := Run(context.Background(), scenario)
		require.NoError(t, err)
		assert.True(t, result.Pass, result.Errors)

		snap := TraceSnapshot{ScenarioName: scenario.Name, Trace: result.Trace}
		data, err := snap.Marshal()
		require.NoError(t, err)
		snapshots = append(snapshots, data)
	}
	assert.Equal(t, snapshots[0], snapshots[1])
	assert.Equal(t, snapshots[0], snapshots[2])
}

func TestRun_FreshStatePerRun(t *testing.T) {
	scenario := mustParse(t, `
name: fresh
steps:
  - call: AEPUserProfile.updateUserAttributes
    args: [{tier: gold}]
  - call: AEPUserProfile.getUserAttributes
    args: [[tier]]
    expect:
      result: {tier: gold}
assertions:
  - type: journal_count
    count: 2
`)

	for range 2 {
		result, err := Run(context.Background(), scenario)
		require.NoError(t, err)
		assert.True(t, result.Pass, result.Errors)
	}
}

func TestRun_BadFixture(t *testing.T) {
	scenario := mustParse(t, `
name: bad_fixture
fixture:
  places:
    pois:
      - identifier: hq
        latitude: 1
steps:
  - call: AEPPlaces.clear
`)

	_, err := Run(context.Background(), scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create simulator")
	assert.Contains(t, err.Error(), "longitude")
}

func TestRun_ExampleScenarios(t *testing.T) {
	for _, name := range []string{"identity_basics", "message_presentation", "places_nearby"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := Run(context.Background(), scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, result.Errors)
		})
	}
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	assert.Empty(t, r.Errors)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
