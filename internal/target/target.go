// Package target bridges the Target extension: location content,
// prefetching, notifications and visitor identifiers.
package target

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/roach88/aepbridge/internal/aep"
	"github.com/roach88/aepbridge/internal/bridge"
	"github.com/roach88/aepbridge/internal/call"
	"github.com/roach88/aepbridge/internal/codec"
	"github.com/roach88/aepbridge/internal/dyn"
	"github.com/roach88/aepbridge/internal/registry"
)

// Name is the boundary module name.
const Name = "AEPTarget"

// EventRequestContent carries {id, content} for a registered request.
const EventRequestContent = "onTargetRequestContent"

// SDK is the vendor Target API.
type SDK interface {
	ExtensionVersion() string
	ClearPrefetchCache()
	GetSessionID(done func(string, error))
	GetThirdPartyID(done func(string, error))
	GetTntID(done func(string, error))
	SetSessionID(id string)
	SetThirdPartyID(id string)
	SetTntID(id string)
	ResetExperience()
	SetPreviewRestartDeepLink(u *url.URL)
	// RetrieveLocationContent calls deliver once per request as content
	// arrives; content is the default content when no offer applies.
	RetrieveLocationContent(reqs []Request, params *Parameters, deliver func(req Request, content string))
	DisplayedLocations(names []string, params *Parameters)
	ClickedLocation(name string, params *Parameters)
	PrefetchContent(prefetches []Prefetch, params *Parameters, done func(struct{}, error))
}

// Module exposes SDK through the bridge and owns the registered request
// registry.
type Module struct {
	sdk      SDK
	logger   *slog.Logger
	events   *call.Emitter
	pending  *call.Group
	requests *registry.Registry[Request]
}

// New creates the module.
func New(sdk SDK, env bridge.Env) *Module {
	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}
	events := env.Events
	if events == nil {
		events = call.NewEmitter()
	}
	return &Module{
		sdk:      sdk,
		logger:   logger.With("module", Name),
		events:   events,
		pending:  call.NewGroup(),
		requests: registry.New[Request](),
	}
}

func (m *Module) Name() string { return Name }

func (m *Module) Close() {
	m.pending.Close()
	m.requests.Clear()
}

func (m *Module) Register(t *bridge.Table) {
	t.Handle(bridge.VersionMethod, func(context.Context, *bridge.Args) (dyn.Value, error) {
		return dyn.String(m.sdk.ExtensionVersion()), nil
	})
	t.Handle("clearPrefetchCache", m.noArgs(m.sdk.ClearPrefetchCache))
	t.Handle("resetExperience", m.noArgs(m.sdk.ResetExperience))
	t.Handle("getSessionId", m.stringCall(m.sdk.GetSessionID))
	t.Handle("getThirdPartyId", m.stringCall(m.sdk.GetThirdPartyID))
	t.Handle("getTntId", m.stringCall(m.sdk.GetTntID))
	t.Handle("setSessionId", m.setString(m.sdk.SetSessionID))
	t.Handle("setThirdPartyId", m.setString(m.sdk.SetThirdPartyID))
	t.Handle("setTntId", m.setString(m.sdk.SetTntID))
	t.Handle("setPreviewRestartDeeplink", m.setPreviewRestartDeeplink)
	t.Handle("registerTargetRequests", m.registerTargetRequests)
	t.Handle("retrieveLocationContent", m.retrieveLocationContent)
	t.Handle("displayedLocations", m.displayedLocations)
	t.Handle("locationsDisplayed", m.displayedLocations)
	t.Handle("clickedLocation", m.clickedLocation)
	t.Handle("locationClickedWithName", m.clickedLocation)
	t.Handle("prefetchContent", m.prefetchContent)
}

func (m *Module) noArgs(fn func()) bridge.Handler {
	return func(context.Context, *bridge.Args) (dyn.Value, error) {
		fn()
		return nil, nil
	}
}

func (m *Module) setString(fn func(string)) bridge.Handler {
	return func(_ context.Context, a *bridge.Args) (dyn.Value, error) {
		s := a.String(0)
		if a.Err() != nil {
			return nil, a.Err()
		}
		fn(s)
		return nil, nil
	}
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

func (m *Module) setPreviewRestartDeeplink(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	raw := a.String(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return nil, call.Programming(a.Op(), "invalid deep link %q", raw)
	}
	m.sdk.SetPreviewRestartDeepLink(u)
	return nil, nil
}

// registerTargetRequests replaces any request already registered under the
// same id.
func (m *Module) registerTargetRequests(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	raw := a.Value(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	req, err := DecodeRequest(raw)
	if err != nil {
		return nil, err
	}
	m.requests.Put(req.ID, req)
	return nil, nil
}

// retrieveLocationContent looks requests up by id. Unregistered ids are
// skipped; content for the rest arrives as EventRequestContent events.
func (m *Module) retrieveLocationContent(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	list := a.List(0)
	rawParams, _ := a.Opt(1)
	if a.Err() != nil {
		return nil, a.Err()
	}
	ids, err := codec.DecodeList("TargetRequest", list, func(v dyn.Value) (string, error) {
		r := codec.NewReader("TargetRequest", v)
		id := r.RequiredString("id")
		return id, r.Err()
	})
	if err != nil {
		return nil, err
	}
	params, err := DecodeOptionalParameters(rawParams)
	if err != nil {
		return nil, err
	}
	reqs := make([]Request, 0, len(ids))
	for _, id := range ids {
		req, ok := m.requests.Get(id)
		if !ok {
			m.logger.Debug("no registered request", "id", id)
			continue
		}
		reqs = append(reqs, req)
	}
	m.sdk.RetrieveLocationContent(reqs, params, m.deliver)
	return nil, nil
}

func (m *Module) deliver(req Request, content string) {
	m.events.Emit(EventRequestContent, dyn.Map{
		"id":      dyn.String(req.ID),
		"content": dyn.String(content),
	})
}

func (m *Module) displayedLocations(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	names := a.StringList(0)
	rawParams, _ := a.Opt(1)
	if a.Err() != nil {
		return nil, a.Err()
	}
	params, err := DecodeOptionalParameters(rawParams)
	if err != nil {
		return nil, err
	}
	m.sdk.DisplayedLocations(names, params)
	return nil, nil
}

func (m *Module) clickedLocation(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	name := a.String(0)
	rawParams, _ := a.Opt(1)
	if a.Err() != nil {
		return nil, a.Err()
	}
	params, err := DecodeOptionalParameters(rawParams)
	if err != nil {
		return nil, err
	}
	m.sdk.ClickedLocation(name, params)
	return nil, nil
}

func (m *Module) prefetchContent(ctx context.Context, a *bridge.Args) (dyn.Value, error) {
	list := a.List(0)
	rawParams, _ := a.Opt(1)
	if a.Err() != nil {
		return nil, a.Err()
	}
	prefetches, err := codec.DecodeList("TargetPrefetch", list, DecodePrefetch)
	if err != nil {
		return nil, err
	}
	params, err := DecodeOptionalParameters(rawParams)
	if err != nil {
		return nil, err
	}
	_, err = call.Do(ctx, m.pending, func(done func(struct{}, error)) {
		m.sdk.PrefetchContent(prefetches, params, done)
	})
	if err != nil {
		return nil, aep.Fail(a.Op(), err)
	}
	return nil, nil
}
