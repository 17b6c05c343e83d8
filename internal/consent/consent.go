// Package consent bridges the Consent for Edge Network extension.
package consent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/aepbridge/internal/aep"
	"github.com/roach88/aepbridge/internal/bridge"
	"github.com/roach88/aepbridge/internal/call"
	"github.com/roach88/aepbridge/internal/dyn"
)

// Name is the boundary module name.
const Name = "AEPEdgeConsent"

// SDK is the vendor Consent API.
type SDK interface {
	ExtensionVersion() string
	Update(consents dyn.Map)
	GetConsents(done func(dyn.Map, error))
}

// Module exposes SDK through the bridge.
type Module struct {
	sdk     SDK
	logger  *slog.Logger
	pending *call.Group
}

// New creates the module.
func New(sdk SDK, env bridge.Env) *Module {
	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Module{sdk: sdk, logger: logger.With("module", Name), pending: call.NewGroup()}
}

func (m *Module) Name() string { return Name }
func (m *Module) Close()       { m.pending.Close() }

func (m *Module) Register(t *bridge.Table) {
	t.Handle(bridge.VersionMethod, func(context.Context, *bridge.Args) (dyn.Value, error) {
		return dyn.String(m.sdk.ExtensionVersion()), nil
	})
	t.Handle("update", m.update)
	t.Handle("getConsents", m.getConsents)
}

func (m *Module) update(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	consents := a.Map(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	m.sdk.Update(consents)
	return nil, nil
}

// getConsents resolves a nil consent map as an empty one.
func (m *Module) getConsents(ctx context.Context, a *bridge.Args) (dyn.Value, error) {
	consents, err := call.Do(ctx, m.pending, m.sdk.GetConsents)
	if err != nil {
		var ae *aep.Error
		if !errors.As(err, &ae) {
			return nil, aep.Fail(a.Op(), err)
		}
		return nil, call.Vendor(a.Op(), ae.Name, fmt.Sprintf("getConsents - Failed to retrieve consents (%s)", ae.Name))
	}
	if consents == nil {
		return dyn.Map{}, nil
	}
	return consents, nil
}
