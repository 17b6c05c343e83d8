// Package userprofile bridges the UserProfile extension.
package userprofile

import (
	"context"

	"github.com/roach88/aepbridge/internal/aep"
	"github.com/roach88/aepbridge/internal/bridge"
	"github.com/roach88/aepbridge/internal/call"
	"github.com/roach88/aepbridge/internal/dyn"
)

// Name is the boundary module name.
const Name = "AEPUserProfile"

// SDK is the vendor UserProfile API.
type SDK interface {
	ExtensionVersion() string
	UpdateUserAttributes(attrs dyn.Map)
	GetUserAttributes(names []string, done func(dyn.Map, error))
	RemoveUserAttributes(names []string)
}

type Module struct {
	sdk     SDK
	pending *call.Group
}

func New(sdk SDK, _ bridge.Env) *Module {
	return &Module{sdk: sdk, pending: call.NewGroup()}
}

func (m *Module) Name() string { return Name }
func (m *Module) Close()       { m.pending.Close() }

func (m *Module) Register(t *bridge.Table) {
	t.Handle(bridge.VersionMethod, func(context.Context, *bridge.Args) (dyn.Value, error) {
		return dyn.String(m.sdk.ExtensionVersion()), nil
	})
	t.Handle("updateUserAttributes", func(_ context.Context, a *bridge.Args) (dyn.Value, error) {
		attrs := a.Map(0)
		if a.Err() != nil {
			return nil, a.Err()
		}
		m.sdk.UpdateUserAttributes(attrs)
		return nil, nil
	})
	t.Handle("getUserAttributes", func(ctx context.Context, a *bridge.Args) (dyn.Value, error) {
		names := a.StringList(0)
		if a.Err() != nil {
			return nil, a.Err()
		}
		attrs, err := call.Do(ctx, m.pending, func(done func(dyn.Map, error)) {
			m.sdk.GetUserAttributes(names, done)
		})
		if err != nil {
			return nil, aep.Fail(a.Op(), err)
		}
		if attrs == nil {
			return dyn.Null{}, nil
		}
		return attrs, nil
	})
	t.Handle("removeUserAttributes", func(_ context.Context, a *bridge.Args) (dyn.Value, error) {
		names := a.StringList(0)
		if a.Err() != nil {
			return nil, a.Err()
		}
		m.sdk.RemoveUserAttributes(names)
		return nil, nil
	})
}
