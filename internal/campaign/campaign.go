// Package campaign bridges the Campaign Classic extension.
package campaign

import (
	"context"

	"github.com/roach88/aepbridge/internal/bridge"
	"github.com/roach88/aepbridge/internal/dyn"
)

// Name is the boundary module name.
const Name = "AEPCampaignClassic"

// SDK is the vendor Campaign Classic API.
type SDK interface {
	ExtensionVersion() string
	RegisterDevice(token, userKey string, additional dyn.Map)
	TrackNotificationReceive(info map[string]string)
	TrackNotificationClick(info map[string]string)
}

type Module struct{ sdk SDK }

func New(sdk SDK, _ bridge.Env) *Module { return &Module{sdk: sdk} }

func (m *Module) Name() string { return Name }
func (m *Module) Close()       {}

func (m *Module) Register(t *bridge.Table) {
	t.Handle(bridge.VersionMethod, func(context.Context, *bridge.Args) (dyn.Value, error) {
		return dyn.String(m.sdk.ExtensionVersion()), nil
	})
	t.Handle("registerDeviceWithToken", m.registerDeviceWithToken)
	t.Handle("trackNotificationReceiveWithUserInfo", m.track(m.sdk.TrackNotificationReceive))
	t.Handle("trackNotificationClickWithUserInfo", m.track(m.sdk.TrackNotificationClick))
}

func (m *Module) registerDeviceWithToken(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	token := a.String(0)
	userKey, _ := a.OptString(1)
	params, _ := a.OptMap(2)
	if a.Err() != nil {
		return nil, a.Err()
	}
	m.sdk.RegisterDevice(token, userKey, params)
	return nil, nil
}

func (m *Module) track(fn func(map[string]string)) bridge.Handler {
	return func(_ context.Context, a *bridge.Args) (dyn.Value, error) {
		info := a.StringMap(0)
		if a.Err() != nil {
			return nil, a.Err()
		}
		fn(info)
		return nil, nil
	}
}
