package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/aepbridge/internal/bridge"
	"github.com/roach88/aepbridge/internal/dyn"
	"github.com/roach88/aepbridge/internal/simulator"
)

// Scenario is a scripted session against the simulated vendor SDKs.
// Steps run in order against a fresh bridge; the resulting trace is what
// golden files record.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description,omitempty"`

	// Fixture seeds the simulator. Either an inline mapping or a path to a
	// .cue, .yaml or .json file relative to the scenario file.
	Fixture any `yaml:"fixture,omitempty"`

	// PackageName overrides the simulated app package.
	PackageName string `yaml:"package_name,omitempty"`

	Steps []Step `yaml:"steps"`

	// Events, when set, is the exact sequence of emitted event names.
	Events []string `yaml:"events,omitempty"`

	// Assertions are evaluated after every step has run.
	// Supported types: trace_contains, trace_order, trace_count, journal_count
	Assertions []Assertion `yaml:"assertions,omitempty"`

	dir string
}

// Step is either a boundary call or the presentation of an in-app message.
type Step struct {
	// Call is "Module.method".
	Call string `yaml:"call,omitempty"`

	// Args are the positional call arguments.
	Args []any `yaml:"args,omitempty"`

	// Present triggers the in-app message with this id. The harness waits
	// until the application has been asked whether to show it.
	Present string `yaml:"present,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect checks the outcome of a call step.
type Expect struct {
	// OK is whether the call should succeed. Setting ErrorCode or ErrorKind
	// implies false.
	OK *bool `yaml:"ok,omitempty"`

	// Result is matched as a subset: maps may carry extra keys, lists must
	// match element-wise.
	Result any `yaml:"result,omitempty"`

	ErrorCode string `yaml:"error_code,omitempty"`
	ErrorKind string `yaml:"error_kind,omitempty"`
}

// Assertion validates the trace or the journal.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an entry for action appears with args
	// - "trace_order": actions appear in order
	// - "trace_count": action appears exactly count times
	// - "journal_count": the journal holds count matching calls
	Type string `yaml:"type"`

	// On selects the trace entries trace assertions look at: "vendor"
	// (default), "call" or "event".
	On string `yaml:"on,omitempty"`

	// Action is an op, or an event name when On is "event".
	Action string `yaml:"action,omitempty"`

	// Args are matched as a subset of the entry's arguments, or of the
	// payload for events.
	Args any `yaml:"args,omitempty"`

	Count int `yaml:"count,omitempty"`

	Actions []string `yaml:"actions,omitempty"`

	// Module, Method and Failed filter journal_count.
	Module string `yaml:"module,omitempty"`
	Method string `yaml:"method,omitempty"`
	Failed bool   `yaml:"failed,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertJournalCount  = "journal_count"
)

// Trace entry kinds an assertion can look at.
const (
	OnVendor = "vendor"
	OnCall   = "call"
	OnEvent  = "event"
)

// LoadScenario decodes a scenario file strictly. Unknown keys are errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML. Fixture paths resolve against dir.
func ParseScenario(data []byte, dir string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	scenario.dir = dir

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadFixture resolves the scenario's fixture.
func (s *Scenario) LoadFixture() (*simulator.Fixture, error) {
	switch f := s.Fixture.(type) {
	case nil:
		return &simulator.Fixture{}, nil
	case string:
		path := f
		if !filepath.IsAbs(path) && s.dir != "" {
			path = filepath.Join(s.dir, path)
		}
		return simulator.LoadFixture(path)
	default:
		v, err := dyn.FromAny(f)
		if err != nil {
			return nil, fmt.Errorf("inline fixture: %w", err)
		}
		fx, err := simulator.DecodeFixture(v)
		if err != nil {
			return nil, fmt.Errorf("inline fixture: %w", err)
		}
		return fx, nil
	}
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	switch s.Fixture.(type) {
	case nil, string, map[string]any:
	default:
		return fmt.Errorf("fixture must be a mapping or a file path")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, step Step) error {
	switch {
	case step.Call == "" && step.Present == "":
		return fmt.Errorf("steps[%d]: one of call or present is required", index)
	case step.Call != "" && step.Present != "":
		return fmt.Errorf("steps[%d]: call and present are exclusive", index)
	case step.Present != "":
		if len(step.Args) > 0 || step.Expect != nil {
			return fmt.Errorf("steps[%d]: present takes no args or expect", index)
		}
		return nil
	}
	if _, _, ok := bridge.SplitOp(step.Call); !ok {
		return fmt.Errorf("steps[%d]: call %q is not Module.method", index, step.Call)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.On {
	case "", OnVendor, OnCall, OnEvent:
	default:
		return fmt.Errorf("assertions[%d]: unknown trace selector %q", index, a.On)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertJournalCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for journal_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
