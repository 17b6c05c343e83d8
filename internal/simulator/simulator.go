// Package simulator is an in-memory stand-in for the vendor SDK. It
// implements every extension port from fixture state, records each vendor
// invocation, and can be told to fail chosen operations.
//
// It backs the CLI, the dev transport and the scenario harness:
//
//	sim, err := simulator.New(fixture)
//	b := bridge.New()
//	b.Register(sim.Modules(b.Env())...)
package simulator

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/aepbridge/internal/aep"
	"github.com/roach88/aepbridge/internal/assurance"
	"github.com/roach88/aepbridge/internal/bridge"
	"github.com/roach88/aepbridge/internal/campaign"
	"github.com/roach88/aepbridge/internal/consent"
	"github.com/roach88/aepbridge/internal/core"
	"github.com/roach88/aepbridge/internal/dyn"
	"github.com/roach88/aepbridge/internal/edge"
	"github.com/roach88/aepbridge/internal/edgeidentity"
	"github.com/roach88/aepbridge/internal/identity"
	"github.com/roach88/aepbridge/internal/messaging"
	"github.com/roach88/aepbridge/internal/optimize"
	"github.com/roach88/aepbridge/internal/places"
	"github.com/roach88/aepbridge/internal/target"
	"github.com/roach88/aepbridge/internal/userprofile"
)

// DefaultPackageName is the app package used for messaging surfaces.
const DefaultPackageName = "com.example.app"

var defaultVersions = map[string]string{
	core.Name:         "5.0.0",
	identity.Name:     "5.0.0",
	edge.Name:         "5.0.0",
	edgeidentity.Name: "5.0.0",
	consent.Name:      "5.0.0",
	messaging.Name:    "5.0.0",
	optimize.Name:     "5.0.0",
	places.Name:       "5.0.0",
	target.Name:       "5.0.0",
	userprofile.Name:  "5.0.0",
	campaign.Name:     "3.0.0",
	assurance.Name:    "5.0.0",
}

// Invocation is one recorded vendor call.
type Invocation struct {
	// Op is "Module.method" using the vendor-side method name.
	Op   string
	Args dyn.List
}

// Simulator holds vendor state shared by all ports. Safe for concurrent
// use.
type Simulator struct {
	mu       sync.Mutex
	fixture  *Fixture
	pkg      string
	logger   *slog.Logger
	calls    []Invocation
	failures map[string]string

	core      *coreState
	identity  *identityState
	edge      *edgeState
	optimize  *optimizeState
	messaging *messagingState
	places    *placesState
	target    *targetState
	profile   dyn.Map
	consents  dyn.Map
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithPackageName sets the app package that prefixes messaging surfaces.
func WithPackageName(pkg string) Option {
	return func(s *Simulator) { s.pkg = pkg }
}

// WithLogger sets where failures of fire-and-forget calls are logged.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// New creates a simulator seeded from f. A nil fixture is empty. Nested
// fixture objects are decoded here, so a malformed fixture fails early.
func New(f *Fixture, opts ...Option) (*Simulator, error) {
	if f == nil {
		f = &Fixture{}
	}
	s := &Simulator{fixture: f, pkg: DefaultPackageName, logger: slog.Default(), failures: map[string]string{}}
	for _, opt := range opts {
		opt(s)
	}
	for op, name := range f.Failures {
		s.failures[op] = name
	}
	s.core = newCoreState(f)
	s.target = newTargetState(f)
	s.profile = f.UserAttributes.Clone()
	s.consents = f.Consents.Clone()

	var err error
	if s.identity, err = newIdentityState(f); err != nil {
		return nil, fmt.Errorf("fixture identities: %w", err)
	}
	if s.edge, err = newEdgeState(f); err != nil {
		return nil, fmt.Errorf("fixture edge: %w", err)
	}
	if s.places, err = newPlacesState(f); err != nil {
		return nil, fmt.Errorf("fixture places: %w", err)
	}
	if s.optimize, err = newOptimizeState(f); err != nil {
		return nil, fmt.Errorf("fixture optimize: %w", err)
	}
	if s.messaging, err = newMessagingState(f); err != nil {
		return nil, fmt.Errorf("fixture messaging: %w", err)
	}
	return s, nil
}

// Modules builds every extension module on top of the simulator's ports.
func (s *Simulator) Modules(env bridge.Env) []bridge.Module {
	return []bridge.Module{
		core.New(corePort{s}, env),
		identity.New(identityPort{s}, env),
		edge.New(edgePort{s}, env),
		edgeidentity.New(edgeIdentityPort{s}, env),
		consent.New(consentPort{s}, env),
		messaging.New(&messagingPort{s: s}, env),
		optimize.New(optimizePort{s}, env),
		places.New(placesPort{s}, env),
		target.New(targetPort{s}, env),
		userprofile.New(profilePort{s}, env),
		campaign.New(campaignPort{s}, env),
		assurance.New(assurancePort{s}, env),
	}
}

// Calls returns every vendor invocation so far, oldest first.
func (s *Simulator) Calls() []Invocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// CallOps returns the Op of every recorded invocation.
func (s *Simulator) CallOps() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	for i, c := range s.calls {
		out[i] = c.Op
	}
	return out
}

// ResetCalls forgets the recorded invocations.
func (s *Simulator) ResetCalls() {
	s.mu.Lock()
	s.calls = nil
	s.mu.Unlock()
}

// Fail makes op fail with the vendor error called name. An empty name
// removes the failure.
func (s *Simulator) Fail(op, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "" {
		delete(s.failures, op)
		return
	}
	s.failures[op] = name
}

// record logs an invocation and reports the configured failure for it, if
// any.
func (s *Simulator) record(op string, args ...dyn.Value) (failure string, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if args == nil {
		args = dyn.List{}
	}
	s.calls = append(s.calls, Invocation{Op: op, Args: args})
	failure, failed = s.failures[op]
	return failure, failed
}

// fail is record returning the configured failure as a vendor error.
func (s *Simulator) fail(op string, args ...dyn.Value) error {
	if name, ok := s.record(op, args...); ok {
		return aep.ErrorByName(name)
	}
	return nil
}

// logFailure reports a configured failure on a call that has no way to
// return it.
func (s *Simulator) logFailure(op, name string) {
	s.logger.Warn("simulated vendor failure", "op", op, "error", name)
}

func (s *Simulator) version(module string) string {
	if v, ok := s.fixture.Versions[module]; ok {
		return v
	}
	return defaultVersions[module]
}

func strOrNull(p *string) dyn.Value {
	if p == nil {
		return dyn.Null{}
	}
	return dyn.String(*p)
}
