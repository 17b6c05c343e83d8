package simulator

import (
	"time"

	"github.com/roach88/aepbridge/internal/codec"
	"github.com/roach88/aepbridge/internal/core"
	"github.com/roach88/aepbridge/internal/dyn"
)

type coreState struct {
	appID         string
	config        dyn.Map
	logLevel      core.LogLevel
	privacy       core.PrivacyStatus
	sdkIdentities string
	initialized   bool
}

func newCoreState(f *Fixture) *coreState {
	st := &coreState{
		config:   dyn.Map{},
		logLevel: core.LogLevels.Decode(f.LogLevel),
		privacy:  core.PrivacyStatuses.Decode(f.PrivacyStatus),
	}
	if st.logLevel == core.LogLevelUnknown {
		st.logLevel = core.LogLevelError
	}
	if st.privacy == core.PrivacyUnknown {
		st.privacy = core.PrivacyOptIn
	}
	if ids, ok := f.Identities["sdkIdentities"].(dyn.String); ok {
		st.sdkIdentities = string(ids)
	}
	return st
}

type corePort struct{ s *Simulator }

func (p corePort) ExtensionVersion() string { return p.s.version(core.Name) }

func (p corePort) ConfigureWithAppID(appID string) {
	p.s.record("AEPCore.configureWithAppId", dyn.String(appID))
	p.s.mu.Lock()
	p.s.core.appID = appID
	p.s.mu.Unlock()
}

func (p corePort) Initialize(opts core.InitOptions, done func(struct{}, error)) {
	if err := p.s.fail("AEPCore.initialize", opts.Encode()); err != nil {
		done(struct{}{}, err)
		return
	}
	p.s.mu.Lock()
	p.s.core.appID = opts.AppID
	p.s.core.initialized = true
	p.s.mu.Unlock()
	done(struct{}{}, nil)
}

func (p corePort) UpdateConfiguration(config dyn.Map) {
	p.s.record("AEPCore.updateConfiguration", config)
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	for k, v := range config {
		p.s.core.config[k] = v
	}
}

func (p corePort) ClearUpdatedConfiguration() {
	p.s.record("AEPCore.clearUpdatedConfiguration")
	p.s.mu.Lock()
	p.s.core.config = dyn.Map{}
	p.s.mu.Unlock()
}

func (p corePort) SetLogLevel(level core.LogLevel) {
	p.s.record("AEPCore.setLogLevel", core.LogLevels.EncodeValue(level))
	p.s.mu.Lock()
	p.s.core.logLevel = level
	p.s.mu.Unlock()
}

func (p corePort) LogLevel() core.LogLevel {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	return p.s.core.logLevel
}

func (p corePort) Log(level core.LogLevel, tag, message string) {
	p.s.record("AEPCore.log", core.LogLevels.EncodeValue(level), dyn.String(tag), dyn.String(message))
}

func (p corePort) SetPrivacyStatus(status core.PrivacyStatus) {
	p.s.record("AEPCore.setPrivacyStatus", core.PrivacyStatuses.EncodeValue(status))
	p.s.mu.Lock()
	p.s.core.privacy = status
	p.s.mu.Unlock()
}

func (p corePort) GetPrivacyStatus(done func(core.PrivacyStatus, error)) {
	if err := p.s.fail("AEPCore.getPrivacyStatus"); err != nil {
		done(core.PrivacyUnknown, err)
		return
	}
	p.s.mu.Lock()
	status := p.s.core.privacy
	p.s.mu.Unlock()
	done(status, nil)
}

func (p corePort) GetSdkIdentities(done func(string, error)) {
	if err := p.s.fail("AEPCore.getSdkIdentities"); err != nil {
		done("", err)
		return
	}
	p.s.mu.Lock()
	ids := p.s.core.sdkIdentities
	p.s.mu.Unlock()
	done(ids, nil)
}

func (p corePort) DispatchEvent(ev core.Event) {
	p.s.record("AEPCore.dispatchEvent", ev.Encode())
}

// DispatchEventWithResponseCallback answers with a response event that
// echoes the request data.
func (p corePort) DispatchEventWithResponseCallback(ev core.Event, timeout time.Duration, done func(core.Event, error)) {
	if err := p.s.fail("AEPCore.dispatchEventWithResponseCallback", ev.Encode(), dyn.NewInt(timeout.Milliseconds())); err != nil {
		done(core.Event{}, err)
		return
	}
	done(core.Event{
		Name:   ev.Name + " response",
		Type:   ev.Type,
		Source: "com.adobe.eventSource.responseContent",
		Data:   ev.Data,
	}, nil)
}

func (p corePort) TrackAction(action string, contextData map[string]string) {
	p.s.record("AEPCore.trackAction", dyn.String(action), codec.StringMapValue(contextData))
}

func (p corePort) TrackState(state string, contextData map[string]string) {
	p.s.record("AEPCore.trackState", dyn.String(state), codec.StringMapValue(contextData))
}

func (p corePort) SetAdvertisingIdentifier(id string) {
	p.s.record("AEPCore.setAdvertisingIdentifier", dyn.String(id))
}

func (p corePort) SetPushIdentifier(token string) {
	p.s.record("AEPCore.setPushIdentifier", dyn.String(token))
}

func (p corePort) CollectPii(data map[string]string) {
	p.s.record("AEPCore.collectPii", codec.StringMapValue(data))
}

func (p corePort) SetSmallIconResourceID(id int) {
	p.s.record("AEPCore.setSmallIconResourceID", dyn.NewInt(int64(id)))
}

func (p corePort) SetLargeIconResourceID(id int) {
	p.s.record("AEPCore.setLargeIconResourceID", dyn.NewInt(int64(id)))
}

func (p corePort) SetAppGroup(group string) {
	p.s.record("AEPCore.setAppGroup", dyn.String(group))
}

func (p corePort) ResetIdentities() {
	p.s.record("AEPCore.resetIdentities")
	p.s.resetIdentities()
}
