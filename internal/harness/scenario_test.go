package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
fixture:
  privacyStatus: AEP_PRIVACY_STATUS_OPT_OUT
steps:
  - call: AEPCore.getPrivacyStatus
    expect:
      result: AEP_PRIVACY_STATUS_OPT_OUT
  - present: m-1
events: [shouldShowMessage]
assertions:
  - type: trace_contains
    action: AEPCore.getPrivacyStatus
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	require.Len(t, scenario.Steps, 2)
	assert.Equal(t, "AEPCore.getPrivacyStatus", scenario.Steps[0].Call)
	assert.Equal(t, "AEP_PRIVACY_STATUS_OPT_OUT", scenario.Steps[0].Expect.Result)
	assert.Equal(t, "m-1", scenario.Steps[1].Present)
	assert.Equal(t, []string{"shouldShowMessage"}, scenario.Events)
	assert.Len(t, scenario.Assertions, 1)

	fx, err := scenario.LoadFixture()
	require.NoError(t, err)
	assert.Equal(t, "AEP_PRIVACY_STATUS_OPT_OUT", fx.PrivacyStatus)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "steps:\n  - call: AEPCore.trackAction\n",
			wantErr: "name is required",
		},
		{
			name:    "missing steps",
			content: "name: x\n",
			wantErr: "steps list is required",
		},
		{
			name:    "empty step",
			content: "name: x\nsteps:\n  - args: [1]\n",
			wantErr: "steps[0]: one of call or present is required",
		},
		{
			name:    "call and present",
			content: "name: x\nsteps:\n  - call: AEPCore.trackAction\n    present: m-1\n",
			wantErr: "call and present are exclusive",
		},
		{
			name:    "present with args",
			content: "name: x\nsteps:\n  - present: m-1\n    args: [1]\n",
			wantErr: "present takes no args or expect",
		},
		{
			name:    "bad op",
			content: "name: x\nsteps:\n  - call: trackAction\n",
			wantErr: `call "trackAction" is not Module.method`,
		},
		{
			name:    "fixture list",
			content: "name: x\nfixture: [1, 2]\nsteps:\n  - call: AEPCore.trackAction\n",
			wantErr: "fixture must be a mapping or a file path",
		},
		{
			name:    "unknown assertion",
			content: "name: x\nsteps:\n  - call: AEPCore.trackAction\nassertions:\n  - type: final_state\n",
			wantErr: `unknown assertion type "final_state"`,
		},
		{
			name:    "unknown selector",
			content: "name: x\nsteps:\n  - call: AEPCore.trackAction\nassertions:\n  - type: trace_count\n    on: journal\n    action: a.b\n",
			wantErr: `unknown trace selector "journal"`,
		},
		{
			name:    "trace_order without actions",
			content: "name: x\nsteps:\n  - call: AEPCore.trackAction\nassertions:\n  - type: trace_order\n",
			wantErr: "actions list is required for trace_order",
		},
		{
			name:    "negative count",
			content: "name: x\nsteps:\n  - call: AEPCore.trackAction\nassertions:\n  - type: trace_count\n    action: a.b\n    count: -1\n",
			wantErr: "count must be non-negative for trace_count",
		},
		{
			name:    "malformed yaml",
			content: "name: [unclosed\n",
			wantErr: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_UnknownFieldsRejected(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
steps:
  - call: AEPCore.trackAction
    expect:
      okay: true
`), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "okay")
}

func TestLoadScenario_FixturePathIsRelative(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/places_nearby.yaml")
	require.NoError(t, err)

	fx, err := scenario.LoadFixture()
	require.NoError(t, err)
	assert.Len(t, fx.POIs, 2)
}

func TestLoadScenario_MissingFixtureFile(t *testing.T) {
	path := writeScenario(t, "name: x\nfixture: nope.yaml\nsteps:\n  - call: AEPCore.trackAction\n")
	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	_, err = scenario.LoadFixture()
	assert.ErrorContains(t, err, "read fixture")
}

func TestLoadScenario_TraceCountZeroAllowed(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: zero
steps:
  - call: AEPCore.trackAction
assertions:
  - type: trace_count
    action: AEPCore.trackState
    count: 0
`), "")
	assert.NoError(t, err)
}

func TestLoadExampleScenarios(t *testing.T) {
	tests := []struct {
		file           string
		wantName       string
		wantSteps      int
		wantAssertions int
	}{
		{"identity_basics.yaml", "identity_basics", 3, 4},
		{"message_presentation.yaml", "message_presentation", 7, 4},
		{"places_nearby.yaml", "places_nearby", 3, 2},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", tt.file))
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, scenario.Name)
			assert.Len(t, scenario.Steps, tt.wantSteps)
			assert.Len(t, scenario.Assertions, tt.wantAssertions)
		})
	}
}

func TestAssertionConstants(t *testing.T) {
	assert.Equal(t, "trace_contains", AssertTraceContains)
	assert.Equal(t, "trace_order", AssertTraceOrder)
	assert.Equal(t, "trace_count", AssertTraceCount)
	assert.Equal(t, "journal_count", AssertJournalCount)
}
