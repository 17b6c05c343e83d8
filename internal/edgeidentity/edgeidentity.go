// Package edgeidentity bridges the Identity for Edge Network extension.
package edgeidentity

import (
	"context"
	"log/slog"

	"github.com/roach88/aepbridge/internal/aep"
	"github.com/roach88/aepbridge/internal/bridge"
	"github.com/roach88/aepbridge/internal/call"
	"github.com/roach88/aepbridge/internal/dyn"
)

// Name is the boundary module name.
const Name = "AEPEdgeIdentity"

// SDK is the vendor Identity for Edge Network API.
type SDK interface {
	ExtensionVersion() string
	GetExperienceCloudID(done func(string, error))
	GetIdentities(done func(*IdentityMap, error))
	GetURLVariables(done func(string, error))
	UpdateIdentities(m *IdentityMap)
	RemoveIdentity(item Item, namespace string)
	ResetIdentities()
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
	t.Handle("getExperienceCloudId", m.stringCall(m.sdk.GetExperienceCloudID))
	t.Handle("getUrlVariables", m.stringCall(m.sdk.GetURLVariables))
	t.Handle("getIdentities", m.getIdentities)
	t.Handle("updateIdentities", m.updateIdentities)
	t.Handle("removeIdentity", m.removeIdentity)
	t.Handle("resetIdentities", func(context.Context, *bridge.Args) (dyn.Value, error) {
		m.sdk.ResetIdentities()
		return nil, nil
	})
}

func (m *Module) stringCall(start func(func(string, error))) bridge.Handler {
	return func(ctx context.Context, a *bridge.Args) (dyn.Value, error) {
		s, err := call.Do(ctx, m.pending, start)
		if err != nil {
			return nil, aep.Fail(a.Op(), err)
		}
		return dyn.String(s), nil
	}
}

func (m *Module) getIdentities(ctx context.Context, a *bridge.Args) (dyn.Value, error) {
	ids, err := call.Do(ctx, m.pending, m.sdk.GetIdentities)
	if err != nil {
		return nil, aep.Fail(a.Op(), err)
	}
	if ids == nil {
		return dyn.Map{}, nil
	}
	return ids.Encode(), nil
}

func (m *Module) updateIdentities(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	raw := a.Value(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	ids, err := DecodeIdentityMap(raw)
	if err != nil {
		return nil, err
	}
	m.sdk.UpdateIdentities(ids)
	return nil, nil
}

func (m *Module) removeIdentity(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	raw := a.Value(0)
	namespace := a.String(1)
	if a.Err() != nil {
		return nil, a.Err()
	}
	item, err := DecodeItem(raw)
	if err != nil {
		return nil, err
	}
	m.sdk.RemoveIdentity(item, namespace)
	return nil, nil
}
