package core

import (
	"time"

	"github.com/roach88/aepbridge/internal/dyn"
)

// SDK is the vendor MobileCore API as seen by the bridge. Callback methods
// may invoke done on any goroutine, exactly once.
type SDK interface {
	ExtensionVersion() string
	ConfigureWithAppID(appID string)
	Initialize(opts InitOptions, done func(struct{}, error))
	UpdateConfiguration(config dyn.Map)
	ClearUpdatedConfiguration()
	SetLogLevel(level LogLevel)
	LogLevel() LogLevel
	Log(level LogLevel, tag, message string)
	SetPrivacyStatus(status PrivacyStatus)
	GetPrivacyStatus(done func(PrivacyStatus, error))
	GetSdkIdentities(done func(string, error))
	DispatchEvent(ev Event)
	DispatchEventWithResponseCallback(ev Event, timeout time.Duration, done func(Event, error))
	TrackAction(action string, contextData map[string]string)
	TrackState(state string, contextData map[string]string)
	SetAdvertisingIdentifier(id string)
	SetPushIdentifier(token string)
	CollectPii(data map[string]string)
	SetSmallIconResourceID(id int)
	SetLargeIconResourceID(id int)
	SetAppGroup(group string)
	ResetIdentities()
}
