package core

import (
	"github.com/roach88/aepbridge/internal/codec"
	"github.com/roach88/aepbridge/internal/dyn"
)

// LogLevel is the SDK logging verbosity.
type LogLevel int

const (
	// LogLevelUnknown is the neutral value: setLogLevel with it leaves the
	// current level alone.
	LogLevelUnknown LogLevel = iota
	LogLevelError
	LogLevelWarning
	LogLevelDebug
	LogLevelVerbose
)

// LogLevels is the wire table for LogLevel.
var LogLevels = codec.NewEnum("LogLevel", LogLevelUnknown, map[LogLevel]string{
	LogLevelUnknown: "AEP_LOG_LEVEL_UNKNOWN",
	LogLevelError:   "AEP_LOG_LEVEL_ERROR",
	LogLevelWarning: "AEP_LOG_LEVEL_WARNING",
	LogLevelDebug:   "AEP_LOG_LEVEL_DEBUG",
	LogLevelVerbose: "AEP_LOG_LEVEL_VERBOSE",
})

func (l LogLevel) String() string { return LogLevels.Encode(l) }

// PrivacyStatus is the user's consent for data collection.
type PrivacyStatus int

const (
	PrivacyUnknown PrivacyStatus = iota
	PrivacyOptIn
	PrivacyOptOut
)

// PrivacyStatuses is the wire table for PrivacyStatus.
var PrivacyStatuses = codec.NewEnum("PrivacyStatus", PrivacyUnknown, map[PrivacyStatus]string{
	PrivacyUnknown: "AEP_PRIVACY_STATUS_UNKNOWN",
	PrivacyOptIn:   "AEP_PRIVACY_STATUS_OPT_IN",
	PrivacyOptOut:  "AEP_PRIVACY_STATUS_OPT_OUT",
})

func (p PrivacyStatus) String() string { return PrivacyStatuses.Encode(p) }

// Event is an SDK event dispatched by or delivered to the application.
type Event struct {
	Name   string
	Type   string
	Source string
	Data   dyn.Map // nil when absent
}

// DecodeEvent decodes {eventName, eventType, eventSource, eventData?}.
func DecodeEvent(v dyn.Value) (Event, error) {
	r := codec.NewReader("Event", v)
	ev := Event{
		Name:   r.RequiredString("eventName"),
		Type:   r.RequiredString("eventType"),
		Source: r.RequiredString("eventSource"),
	}
	if data, ok := r.Map("eventData"); ok {
		ev.Data = data
	}
	if err := r.Err(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Encode renders the event; eventData is omitted when nil.
func (e Event) Encode() dyn.Map {
	m := dyn.Map{
		"eventName":   dyn.String(e.Name),
		"eventType":   dyn.String(e.Type),
		"eventSource": dyn.String(e.Source),
	}
	if e.Data != nil {
		m["eventData"] = e.Data
	}
	return m
}

// InitOptions configures SDK initialization.
type InitOptions struct {
	AppID string

	// LifecycleAutomaticTracking is nil when the caller left it to the SDK
	// default.
	LifecycleAutomaticTracking *bool

	LifecycleAdditionalContextData map[string]string

	// AppGroup is the iOS app group identifier.
	AppGroup string
}

// DecodeInitOptions decodes an initOptions map. appId is required.
func DecodeInitOptions(v dyn.Value) (InitOptions, error) {
	r := codec.NewReader("InitOptions", v)
	opts := InitOptions{AppID: r.RequiredString("appId")}
	if b, ok := r.Bool("lifecycleAutomaticTrackingEnabled"); ok {
		opts.LifecycleAutomaticTracking = &b
	}
	if m, ok := r.StringMap("lifecycleAdditionalContextData"); ok {
		opts.LifecycleAdditionalContextData = m
	}
	opts.AppGroup, _ = r.String("appGroupIOS")
	if err := r.Err(); err != nil {
		return InitOptions{}, err
	}
	return opts, nil
}

// Encode renders the options, omitting unset fields.
func (o InitOptions) Encode() dyn.Map {
	m := dyn.Map{"appId": dyn.String(o.AppID)}
	if o.LifecycleAutomaticTracking != nil {
		m["lifecycleAutomaticTrackingEnabled"] = dyn.Bool(*o.LifecycleAutomaticTracking)
	}
	if o.LifecycleAdditionalContextData != nil {
		m["lifecycleAdditionalContextData"] = codec.StringMapValue(o.LifecycleAdditionalContextData)
	}
	if o.AppGroup != "" {
		m["appGroupIOS"] = dyn.String(o.AppGroup)
	}
	return m
}
