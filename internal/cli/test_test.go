package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: privacy
steps:
  - call: AEPCore.setPrivacyStatus
    args: [AEP_PRIVACY_STATUS_OPT_OUT]
  - call: AEPCore.getPrivacyStatus
    expect:
      result: AEP_PRIVACY_STATUS_OPT_OUT
`

const failingScenario = `name: wrong_ecid
fixture:
  identities:
    experienceCloudId: ecid-1
steps:
  - call: AEPIdentity.getExperienceCloudId
    expect:
      result: ecid-2
`

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestCmd(format string, args ...string) (*bytes.Buffer, func() error) {
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	return buf, cmd.Execute
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, run := newTestCmd("text")
	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentPath(t *testing.T) {
	_, run := newTestCmd("text", "/nonexistent/scenarios")
	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	buf, run := newTestCmd("text", t.TempDir())
	require.NoError(t, run())
	assert.Contains(t, buf.String(), "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	buf, run := newTestCmd("json", t.TempDir())
	require.NoError(t, run())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestTestCommandSingleFile(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "privacy.yaml", passingScenario)

	buf, run := newTestCmd("text", path)
	require.NoError(t, run())
	assert.Contains(t, buf.String(), "✓ privacy")
	assert.Contains(t, buf.String(), "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, buf.String(), "✓ All scenarios passed")
}

func TestTestCommandFailure(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "a_privacy.yaml", passingScenario)
	writeScenario(t, dir, "b_wrong.yaml", failingScenario)

	buf, run := newTestCmd("text", dir)
	err := run()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ wrong_ecid")
	assert.Contains(t, buf.String(), `expected result "ecid-2", got "ecid-1"`)
	assert.Contains(t, buf.String(), "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandFailureJSON(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "wrong.yaml", failingScenario)

	buf, run := newTestCmd("json", dir)
	err := run()
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: broken\n")

	buf, run := newTestCmd("text", dir)
	require.Error(t, run())
	assert.Contains(t, buf.String(), "✗ broken.yaml")
	assert.Contains(t, buf.String(), "failed to load scenario")
}

func TestTestCommandGoldenUpdateAndCompare(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "privacy.yaml", passingScenario)
	goldenPath := filepath.Join(dir, "golden", "privacy.golden")

	buf, run := newTestCmd("text", path, "--update")
	require.NoError(t, run())
	assert.Contains(t, buf.String(), "✓ privacy (golden updated)")

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `{"entries":4,"scenario_name":"privacy"}`)

	// A second run compares against the file just written.
	_, run = newTestCmd("text", path)
	require.NoError(t, run())

	// Any drift in the trace is a failure.
	require.NoError(t, os.WriteFile(goldenPath, append(golden, '\n'), 0o644))
	buf, run = newTestCmd("text", path)
	require.Error(t, run())
	assert.Contains(t, buf.String(), "trace does not match golden file")
}

func TestTestCommandHarnessExamples(t *testing.T) {
	buf, run := newTestCmd("text", "../harness/testdata/scenarios")
	require.NoError(t, run(), buf.String())
	assert.Contains(t, buf.String(), "Test Summary: 3 passed, 0 failed, 3 total")
}

func TestTestHelpText(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	assert.Contains(t, cmd.Long, "Exit codes:")
	assert.Contains(t, cmd.Long, "--update")
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "one.yaml", passingScenario)
	writeScenario(t, dir, "two.yml", passingScenario)
	writeScenario(t, dir, "notes.txt", "ignored")
	writeScenario(t, dir, "nested/three.yaml", passingScenario)
	writeScenario(t, dir, "golden/skip.yaml", passingScenario)

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "one.yaml"),
		filepath.Join(dir, "two.yml"),
		filepath.Join(dir, "nested", "three.yaml"),
	}, files)
}

func TestFindScenarioFilesWithFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "message-show.yaml", passingScenario)
	writeScenario(t, dir, "message-dismiss.yaml", passingScenario)
	writeScenario(t, dir, "identity.yaml", passingScenario)

	files, err := findScenarioFiles(dir, "message-*")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = findScenarioFiles(dir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestGoldenFilePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"scenarios/identity.yaml", "scenarios/golden/identity.golden"},
		{"/abs/path/message.yml", "/abs/path/golden/message.golden"},
		{"simple.yaml", "golden/simple.golden"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, filepath.FromSlash(tt.expected), goldenFilePath(filepath.FromSlash(tt.input)))
		})
	}
}
