package simulator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/aepbridge/internal/codec"
	"github.com/roach88/aepbridge/internal/dyn"
)

// Fixture is the initial vendor state of a simulator run. Nested domain
// objects are kept as dynamic values and decoded by the port that serves
// them, so a malformed entry surfaces as the same decode error the bridge
// would report.
type Fixture struct {
	// Versions maps boundary module name to extension version.
	Versions map[string]string

	PrivacyStatus string
	LogLevel      string

	// Identities holds the Identity extension state: experienceCloudId,
	// sdkIdentities, urlVariables and visitorIds.
	Identities dyn.Map

	// EdgeIdentities is an identity map.
	EdgeIdentities dyn.Value

	// Edge holds locationHint and handles returned by sendEvent.
	Edge dyn.Map

	Consents dyn.Map

	// OptimizePropositions maps decision scope to proposition.
	OptimizePropositions dyn.Map

	// MessagingPropositions maps surface path to a list of propositions.
	MessagingPropositions dyn.Map

	POIs              dyn.List
	LastKnownLocation dyn.Value

	// TargetContent maps mbox name to delivered content.
	TargetContent map[string]string

	UserAttributes dyn.Map

	// Failures maps "Module.method" to the vendor error name that call
	// fails with.
	Failures map[string]string
}

// DecodeFixture reads a fixture from its dynamic form. Every key is
// optional.
func DecodeFixture(v dyn.Value) (*Fixture, error) {
	if dyn.IsNull(v) {
		return &Fixture{}, nil
	}
	r := codec.NewReader("Fixture", v)
	f := &Fixture{}
	f.Versions, _ = r.StringMap("versions")
	f.PrivacyStatus, _ = r.String("privacyStatus")
	f.LogLevel, _ = r.String("logLevel")
	f.Identities, _ = r.Map("identities")
	f.EdgeIdentities, _ = r.Value("edgeIdentities")
	f.Edge, _ = r.Map("edge")
	f.Consents, _ = r.Map("consents")
	r.Object("optimize", func(v dyn.Value) error {
		o := codec.NewReader("OptimizeFixture", v)
		f.OptimizePropositions, _ = o.Map("propositions")
		return o.Err()
	})
	r.Object("messaging", func(v dyn.Value) error {
		m := codec.NewReader("MessagingFixture", v)
		f.MessagingPropositions, _ = m.Map("propositions")
		return m.Err()
	})
	r.Object("places", func(v dyn.Value) error {
		p := codec.NewReader("PlacesFixture", v)
		f.POIs, _ = p.List("pois")
		f.LastKnownLocation, _ = p.Value("lastKnownLocation")
		return p.Err()
	})
	r.Object("target", func(v dyn.Value) error {
		t := codec.NewReader("TargetFixture", v)
		f.TargetContent, _ = t.StringMap("content")
		return t.Err()
	})
	f.UserAttributes, _ = r.Map("userAttributes")
	f.Failures, _ = r.StringMap("failures")
	if err := r.Err(); err != nil {
		return nil, err
	}
	return f, nil
}

// LoadFixture reads a fixture file. The format follows the extension:
// .cue, .yaml/.yml or .json.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	v, err := ParseFixture(filepath.Ext(path), path, data)
	if err != nil {
		return nil, err
	}
	f, err := DecodeFixture(v)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return f, nil
}

// ParseFixture converts raw fixture bytes into a dynamic value. name is
// used in error positions only.
func ParseFixture(ext, name string, data []byte) (dyn.Value, error) {
	switch strings.ToLower(ext) {
	case ".json":
		v, err := dyn.UnmarshalValue(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		return v, nil
	case ".yaml", ".yml":
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		v, err := dyn.FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		return v, nil
	case ".cue":
		return parseCUE(name, data)
	}
	return nil, fmt.Errorf("unsupported fixture format %q (want .cue, .yaml, .yml or .json)", ext)
}

// parseCUE evaluates a CUE fixture. The result must be concrete; schema
// definitions in the same file constrain it.
func parseCUE(name string, data []byte) (dyn.Value, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate %s: %w", name, err)
	}
	js, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", name, err)
	}
	return dyn.UnmarshalValue(js)
}
