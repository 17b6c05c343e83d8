// Package core bridges the MobileCore extension: SDK lifecycle,
// configuration, logging, privacy, event dispatch and analytics tracking.
package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/aepbridge/internal/aep"
	"github.com/roach88/aepbridge/internal/bridge"
	"github.com/roach88/aepbridge/internal/call"
	"github.com/roach88/aepbridge/internal/dyn"
)

// Name is the boundary module name.
const Name = "AEPCore"

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

// Close releases pending callbacks.
func (m *Module) Close() { m.pending.Close() }

func (m *Module) Register(t *bridge.Table) {
	t.Handle(bridge.VersionMethod, m.extensionVersion)
	t.Handle("configureWithAppId", m.configureWithAppID)
	t.Handle("initializeWithAppId", m.initializeWithAppID)
	t.Handle("initialize", m.initialize)
	t.Handle("updateConfiguration", m.updateConfiguration)
	t.Handle("clearUpdatedConfiguration", m.clearUpdatedConfiguration)
	t.Handle("setLogLevel", m.setLogLevel)
	t.Handle("getLogLevel", m.getLogLevel)
	t.Handle("log", m.log)
	t.Handle("setPrivacyStatus", m.setPrivacyStatus)
	t.Handle("getPrivacyStatus", m.getPrivacyStatus)
	t.Handle("getSdkIdentities", m.getSdkIdentities)
	t.Handle("dispatchEvent", m.dispatchEvent)
	t.Handle("dispatchEventWithResponseCallback", m.dispatchEventWithResponseCallback)
	t.Handle("trackAction", m.trackAction)
	t.Handle("trackState", m.trackState)
	t.Handle("setAdvertisingIdentifier", m.setAdvertisingIdentifier)
	t.Handle("setPushIdentifier", m.setPushIdentifier)
	t.Handle("collectPii", m.collectPii)
	t.Handle("setSmallIconResourceID", m.setSmallIconResourceID)
	t.Handle("setLargeIconResourceID", m.setLargeIconResourceID)
	t.Handle("setAppGroup", m.setAppGroup)
	t.Handle("downloadRules", m.downloadRules)
	t.Handle("resetIdentities", m.resetIdentities)
}

func (m *Module) extensionVersion(context.Context, *bridge.Args) (dyn.Value, error) {
	return dyn.String(m.sdk.ExtensionVersion()), nil
}

// configureWithAppId with a null app id has no effect.
func (m *Module) configureWithAppID(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	if appID, ok := a.OptString(0); ok {
		m.sdk.ConfigureWithAppID(appID)
	}
	return nil, nil
}

func (m *Module) initializeWithAppID(ctx context.Context, a *bridge.Args) (dyn.Value, error) {
	appID := a.String(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	m.logger.Debug("initializing", "app_id", appID)
	return m.doInitialize(ctx, a.Op(), InitOptions{AppID: appID})
}

func (m *Module) initialize(ctx context.Context, a *bridge.Args) (dyn.Value, error) {
	opts, err := DecodeInitOptions(a.Value(0))
	if a.Err() != nil {
		return nil, a.Err()
	}
	if err != nil {
		return nil, err
	}
	m.logger.Debug("initializing", "app_id", opts.AppID)
	return m.doInitialize(ctx, a.Op(), opts)
}

func (m *Module) doInitialize(ctx context.Context, op string, opts InitOptions) (dyn.Value, error) {
	_, err := call.Do(ctx, m.pending, func(done func(struct{}, error)) {
		m.sdk.Initialize(opts, done)
	})
	if err != nil {
		return nil, aep.Fail(op, err)
	}
	return nil, nil
}

func (m *Module) updateConfiguration(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	if cfg, ok := a.OptMap(0); ok {
		m.sdk.UpdateConfiguration(cfg)
	}
	return nil, nil
}

func (m *Module) clearUpdatedConfiguration(context.Context, *bridge.Args) (dyn.Value, error) {
	m.sdk.ClearUpdatedConfiguration()
	return nil, nil
}

// setLogLevel ignores unrecognised levels instead of picking one.
func (m *Module) setLogLevel(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	s := a.String(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	level, ok := LogLevels.Lookup(s)
	if !ok || level == LogLevelUnknown {
		m.logger.Debug("ignoring unrecognised log level", "level", s)
		return nil, nil
	}
	m.sdk.SetLogLevel(level)
	return nil, nil
}

func (m *Module) getLogLevel(context.Context, *bridge.Args) (dyn.Value, error) {
	return LogLevels.EncodeValue(m.sdk.LogLevel()), nil
}

func (m *Module) log(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	level := LogLevels.Decode(a.String(0))
	tag := a.String(1)
	msg := a.String(2)
	if a.Err() != nil {
		return nil, a.Err()
	}
	if level == LogLevelUnknown {
		level = LogLevelDebug
	}
	m.sdk.Log(level, tag, msg)
	return nil, nil
}

func (m *Module) setPrivacyStatus(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	status := PrivacyStatuses.Decode(a.String(0))
	if a.Err() != nil {
		return nil, a.Err()
	}
	m.sdk.SetPrivacyStatus(status)
	return nil, nil
}

func (m *Module) getPrivacyStatus(ctx context.Context, a *bridge.Args) (dyn.Value, error) {
	status, err := call.Do(ctx, m.pending, m.sdk.GetPrivacyStatus)
	if err != nil {
		return nil, aep.Fail(a.Op(), err)
	}
	return PrivacyStatuses.EncodeValue(status), nil
}

func (m *Module) getSdkIdentities(ctx context.Context, a *bridge.Args) (dyn.Value, error) {
	ids, err := call.Do(ctx, m.pending, m.sdk.GetSdkIdentities)
	if err != nil {
		return nil, aep.Fail(a.Op(), err)
	}
	return dyn.String(ids), nil
}

func (m *Module) dispatchEvent(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	ev, err := DecodeEvent(a.Value(0))
	if a.Err() != nil {
		return nil, a.Err()
	}
	if err != nil {
		return nil, err
	}
	m.sdk.DispatchEvent(ev)
	return dyn.Bool(true), nil
}

func (m *Module) dispatchEventWithResponseCallback(ctx context.Context, a *bridge.Args) (dyn.Value, error) {
	raw := a.Value(0)
	timeoutMs := a.Int(1)
	if a.Err() != nil {
		return nil, a.Err()
	}
	if timeoutMs <= 0 {
		return nil, call.Programming(a.Op(), "timeout must be positive, got %d", timeoutMs)
	}
	ev, err := DecodeEvent(raw)
	if err != nil {
		return nil, err
	}
	resp, err := call.Do(ctx, m.pending, func(done func(Event, error)) {
		m.sdk.DispatchEventWithResponseCallback(ev, time.Duration(timeoutMs)*time.Millisecond, done)
	})
	if err != nil {
		return nil, aep.Fail(a.Op(), err)
	}
	return resp.Encode(), nil
}

func (m *Module) trackAction(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	action, _ := a.OptString(0)
	data, _ := a.OptStringMap(1)
	if a.Err() != nil {
		return nil, a.Err()
	}
	m.sdk.TrackAction(action, data)
	return nil, nil
}

func (m *Module) trackState(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	state, _ := a.OptString(0)
	data, _ := a.OptStringMap(1)
	if a.Err() != nil {
		return nil, a.Err()
	}
	m.sdk.TrackState(state, data)
	return nil, nil
}

func (m *Module) setAdvertisingIdentifier(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	id, _ := a.OptString(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	m.sdk.SetAdvertisingIdentifier(id)
	return nil, nil
}

func (m *Module) setPushIdentifier(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	token, _ := a.OptString(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	m.sdk.SetPushIdentifier(token)
	return nil, nil
}

func (m *Module) collectPii(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	data := a.StringMap(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	m.sdk.CollectPii(data)
	return nil, nil
}

func (m *Module) setSmallIconResourceID(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	id := a.Int(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	m.sdk.SetSmallIconResourceID(int(id))
	return nil, nil
}

func (m *Module) setLargeIconResourceID(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	id := a.Int(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	m.sdk.SetLargeIconResourceID(int(id))
	return nil, nil
}

func (m *Module) setAppGroup(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	group, _ := a.OptString(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	m.sdk.SetAppGroup(group)
	return nil, nil
}

// downloadRules has no vendor counterpart on this platform.
func (m *Module) downloadRules(context.Context, *bridge.Args) (dyn.Value, error) {
	m.logger.Debug("downloadRules() is not supported; ignoring")
	return nil, nil
}

func (m *Module) resetIdentities(context.Context, *bridge.Args) (dyn.Value, error) {
	m.sdk.ResetIdentities()
	return nil, nil
}
