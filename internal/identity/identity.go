// Package identity bridges the Experience Cloud Identity extension
// (visitor identifiers and URL decoration).
package identity

import (
	"context"
	"log/slog"

	"github.com/roach88/aepbridge/internal/aep"
	"github.com/roach88/aepbridge/internal/bridge"
	"github.com/roach88/aepbridge/internal/call"
	"github.com/roach88/aepbridge/internal/codec"
	"github.com/roach88/aepbridge/internal/dyn"
)

// Name is the boundary module name.
const Name = "AEPIdentity"

// AuthState is the authentication state attached to a visitor identifier.
type AuthState int

const (
	AuthUnknown AuthState = iota
	AuthAuthenticated
	AuthLoggedOut
)

// AuthStates is the wire table for AuthState.
var AuthStates = codec.NewEnum("VisitorAuthState", AuthUnknown, map[AuthState]string{
	AuthUnknown:       "VISITOR_AUTH_STATE_UNKNOWN",
	AuthAuthenticated: "VISITOR_AUTH_STATE_AUTHENTICATED",
	AuthLoggedOut:     "VISITOR_AUTH_STATE_LOGGED_OUT",
})

// VisitorID is one synced customer identifier.
type VisitorID struct {
	Origin     string
	Type       string
	Identifier string
	AuthState  AuthState
}

// DecodeVisitorID decodes {idOrigin, idType, identifier, authenticationState}.
// idType and identifier are required.
func DecodeVisitorID(v dyn.Value) (VisitorID, error) {
	r := codec.NewReader("VisitorID", v)
	id := VisitorID{
		Type:       r.RequiredString("idType"),
		Identifier: r.RequiredString("identifier"),
	}
	id.Origin, _ = r.String("idOrigin")
	if s, ok := r.String("authenticationState"); ok {
		id.AuthState = AuthStates.Decode(s)
	}
	if err := r.Err(); err != nil {
		return VisitorID{}, err
	}
	return id, nil
}

// Encode renders the identifier. idOrigin is omitted when empty.
func (v VisitorID) Encode() dyn.Value {
	m := dyn.Map{
		"idType":              dyn.String(v.Type),
		"identifier":          dyn.String(v.Identifier),
		"authenticationState": AuthStates.EncodeValue(v.AuthState),
	}
	if v.Origin != "" {
		m["idOrigin"] = dyn.String(v.Origin)
	}
	return m
}

// SDK is the vendor Identity API.
type SDK interface {
	ExtensionVersion() string
	SyncIdentifiers(ids map[string]string, state AuthState)
	SyncIdentifier(idType, id string, state AuthState)
	AppendVisitorInfoForURL(url string, done func(string, error))
	GetURLVariables(done func(string, error))
	GetIdentifiers(done func([]VisitorID, error))
	GetExperienceCloudID(done func(string, error))
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
	t.Handle("syncIdentifiers", m.syncIdentifiers)
	t.Handle("syncIdentifiersWithAuthState", m.syncIdentifiersWithAuthState)
	t.Handle("syncIdentifier", m.syncIdentifier)
	t.Handle("appendVisitorInfoForURL", m.appendVisitorInfoForURL)
	t.Handle("getUrlVariables", m.stringCall(m.sdk.GetURLVariables))
	t.Handle("getExperienceCloudId", m.stringCall(m.sdk.GetExperienceCloudID))
	t.Handle("getIdentifiers", m.getIdentifiers)
}

func (m *Module) syncIdentifiers(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	ids, _ := a.OptStringMap(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	m.sdk.SyncIdentifiers(ids, AuthUnknown)
	return nil, nil
}

func (m *Module) syncIdentifiersWithAuthState(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	ids, _ := a.OptStringMap(0)
	state, _ := a.OptString(1)
	if a.Err() != nil {
		return nil, a.Err()
	}
	m.sdk.SyncIdentifiers(ids, AuthStates.Decode(state))
	return nil, nil
}

func (m *Module) syncIdentifier(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	idType := a.String(0)
	id := a.String(1)
	state, _ := a.OptString(2)
	if a.Err() != nil {
		return nil, a.Err()
	}
	m.sdk.SyncIdentifier(idType, id, AuthStates.Decode(state))
	return nil, nil
}

func (m *Module) appendVisitorInfoForURL(ctx context.Context, a *bridge.Args) (dyn.Value, error) {
	url := a.String(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	out, err := call.Do(ctx, m.pending, func(done func(string, error)) {
		m.sdk.AppendVisitorInfoForURL(url, done)
	})
	if err != nil {
		return nil, aep.Fail(a.Op(), err)
	}
	return dyn.String(out), nil
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

func (m *Module) getIdentifiers(ctx context.Context, a *bridge.Args) (dyn.Value, error) {
	ids, err := call.Do(ctx, m.pending, m.sdk.GetIdentifiers)
	if err != nil {
		return nil, aep.Fail(a.Op(), err)
	}
	return codec.EncodeList(ids, VisitorID.Encode), nil
}
