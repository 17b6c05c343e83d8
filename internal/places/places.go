// Package places bridges the Places extension: points of interest around
// a location, geofence processing and location authorization.
package places

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/roach88/aepbridge/internal/aep"
	"github.com/roach88/aepbridge/internal/bridge"
	"github.com/roach88/aepbridge/internal/call"
	"github.com/roach88/aepbridge/internal/codec"
	"github.com/roach88/aepbridge/internal/dyn"
)

// Name is the boundary module name.
const Name = "AEPPlaces"

// SDK is the vendor Places API. GetNearbyPointsOfInterest fails with a
// RequestError.
type SDK interface {
	ExtensionVersion() string
	GetNearbyPointsOfInterest(loc Location, limit int, done func([]POI, error))
	GetCurrentPointsOfInterest(done func([]POI, error))
	// GetLastKnownLocation yields nil when no location is known.
	GetLastKnownLocation(done func(*Location, error))
	ProcessGeofence(g Geofence, t Transition)
	Clear()
	SetAuthorizationStatus(s AuthStatus)
}

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
	t.Handle("getNearbyPointsOfInterest", m.getNearbyPointsOfInterest)
	t.Handle("getCurrentPointsOfInterest", m.getCurrentPointsOfInterest)
	t.Handle("getLastKnownLocation", m.getLastKnownLocation)
	t.Handle("processGeofence", m.processGeofence)
	t.Handle("clear", func(context.Context, *bridge.Args) (dyn.Value, error) {
		m.sdk.Clear()
		return nil, nil
	})
	t.Handle("setAuthorizationStatus", m.setAuthorizationStatus)
}

func (m *Module) getNearbyPointsOfInterest(ctx context.Context, a *bridge.Args) (dyn.Value, error) {
	raw := a.Value(0)
	limit := a.Int(1)
	if a.Err() != nil {
		return nil, a.Err()
	}
	loc, err := DecodeLocation(raw)
	if err != nil {
		return nil, err
	}
	pois, err := call.Do(ctx, m.pending, func(done func([]POI, error)) {
		m.sdk.GetNearbyPointsOfInterest(loc, int(limit), done)
	})
	if err != nil {
		return nil, requestFailure(a.Op(), err)
	}
	return codec.EncodeList(pois, POI.Encode), nil
}

// requestFailure reports a RequestError with its numeric value as code.
func requestFailure(op string, err error) error {
	var re RequestError
	if errors.As(err, &re) {
		return call.Vendor(op, strconv.Itoa(int(re)), re.Error())
	}
	return aep.Fail(op, err)
}

func (m *Module) getCurrentPointsOfInterest(ctx context.Context, a *bridge.Args) (dyn.Value, error) {
	pois, err := call.Do(ctx, m.pending, m.sdk.GetCurrentPointsOfInterest)
	if err != nil {
		return nil, requestFailure(a.Op(), err)
	}
	return codec.EncodeList(pois, POI.Encode), nil
}

func (m *Module) getLastKnownLocation(ctx context.Context, a *bridge.Args) (dyn.Value, error) {
	loc, err := call.Do(ctx, m.pending, m.sdk.GetLastKnownLocation)
	if err != nil {
		return nil, aep.Fail(a.Op(), err)
	}
	if loc == nil {
		return dyn.Null{}, nil
	}
	return loc.Encode(), nil
}

func (m *Module) processGeofence(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	raw := a.Value(0)
	transition := Transition(a.Int(1))
	if a.Err() != nil {
		return nil, a.Err()
	}
	if !transition.Valid() {
		return nil, call.Programming(a.Op(), "unknown transition type %d", int(transition))
	}
	g, err := DecodeGeofence(raw)
	if err != nil {
		return nil, err
	}
	m.sdk.ProcessGeofence(g, transition)
	return nil, nil
}

// setAuthorizationStatus maps null and unknown strings to unknown.
func (m *Module) setAuthorizationStatus(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	s, _ := a.OptString(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	m.sdk.SetAuthorizationStatus(AuthStatuses.Decode(s))
	return nil, nil
}
