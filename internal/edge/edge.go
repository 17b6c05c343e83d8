// Package edge bridges the Edge Network extension.
package edge

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
const Name = "AEPEdge"

// ExperienceEvent is an XDM event sent to the Edge Network.
type ExperienceEvent struct {
	XDM               dyn.Map
	Data              dyn.Map
	DatasetIdentifier string
}

// DecodeExperienceEvent requires xdmData; data and datasetIdentifier are
// optional.
func DecodeExperienceEvent(v dyn.Value) (ExperienceEvent, error) {
	r := codec.NewReader("ExperienceEvent", v)
	ev := ExperienceEvent{XDM: r.RequiredMap("xdmData")}
	ev.Data, _ = r.Map("data")
	ev.DatasetIdentifier, _ = r.String("datasetIdentifier")
	if err := r.Err(); err != nil {
		return ExperienceEvent{}, err
	}
	return ev, nil
}

func (e ExperienceEvent) Encode() dyn.Value {
	m := dyn.Map{"xdmData": e.XDM}
	if e.Data != nil {
		m["data"] = e.Data
	}
	if e.DatasetIdentifier != "" {
		m["datasetIdentifier"] = dyn.String(e.DatasetIdentifier)
	}
	return m
}

// EventHandle is one response handle returned by the Edge Network.
type EventHandle struct {
	Type    string
	Payload []dyn.Map
}

// Encode omits an empty type and a nil payload.
func (h EventHandle) Encode() dyn.Value {
	m := dyn.Map{}
	if h.Type != "" {
		m["type"] = dyn.String(h.Type)
	}
	if h.Payload != nil {
		m["payload"] = codec.EncodeList(h.Payload, func(p dyn.Map) dyn.Value { return p })
	}
	return m
}

// DecodeEventHandle is the inverse of Encode. Payload entries must be maps.
func DecodeEventHandle(v dyn.Value) (EventHandle, error) {
	r := codec.NewReader("EdgeEventHandle", v)
	var h EventHandle
	h.Type, _ = r.String("type")
	r.Object("payload", func(v dyn.Value) error {
		payload, err := codec.DecodeList("EdgeEventHandle", v, func(v dyn.Value) (dyn.Map, error) {
			m, ok := v.(dyn.Map)
			if !ok {
				return nil, codec.Errorf("EdgeEventHandle", "", "%s, got %s", codec.ReasonNotMap, dyn.KindName(v))
			}
			return m, nil
		})
		h.Payload = payload
		return err
	})
	if err := r.Err(); err != nil {
		return EventHandle{}, err
	}
	return h, nil
}

// SDK is the vendor Edge API.
type SDK interface {
	ExtensionVersion() string
	SendEvent(ev ExperienceEvent, done func([]EventHandle, error))
	// SetLocationHint clears the hint when hint is nil.
	SetLocationHint(hint *string)
	GetLocationHint(done func(*string, error))
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
	t.Handle("sendEvent", m.sendEvent)
	t.Handle("setLocationHint", m.setLocationHint)
	t.Handle("getLocationHint", m.getLocationHint)
}

func (m *Module) sendEvent(ctx context.Context, a *bridge.Args) (dyn.Value, error) {
	raw := a.Value(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	ev, err := DecodeExperienceEvent(raw)
	if err != nil {
		return nil, err
	}
	handles, err := call.Do(ctx, m.pending, func(done func([]EventHandle, error)) {
		m.sdk.SendEvent(ev, done)
	})
	if err != nil {
		return nil, aep.Fail(a.Op(), err)
	}
	return codec.EncodeList(handles, EventHandle.Encode), nil
}

// setLocationHint treats null and "" alike: both clear the hint.
func (m *Module) setLocationHint(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	hint, ok := a.OptString(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	if !ok || hint == "" {
		m.sdk.SetLocationHint(nil)
		return nil, nil
	}
	m.sdk.SetLocationHint(&hint)
	return nil, nil
}

func (m *Module) getLocationHint(ctx context.Context, a *bridge.Args) (dyn.Value, error) {
	hint, err := call.Do(ctx, m.pending, m.sdk.GetLocationHint)
	if err != nil {
		return nil, aep.Fail(a.Op(), err)
	}
	if hint == nil {
		return dyn.Null{}, nil
	}
	return dyn.String(*hint), nil
}
