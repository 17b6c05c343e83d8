package simulator

import (
	"github.com/roach88/aepbridge/internal/assurance"
	"github.com/roach88/aepbridge/internal/campaign"
	"github.com/roach88/aepbridge/internal/codec"
	"github.com/roach88/aepbridge/internal/dyn"
	"github.com/roach88/aepbridge/internal/userprofile"
)

type profilePort struct{ s *Simulator }

func (p profilePort) ExtensionVersion() string { return p.s.version(userprofile.Name) }

// UpdateUserAttributes stores attrs; a null value removes its key.
func (p profilePort) UpdateUserAttributes(attrs dyn.Map) {
	p.s.record("AEPUserProfile.updateUserAttributes", attrs)
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	for k, v := range attrs {
		if dyn.IsNull(v) {
			delete(p.s.profile, k)
			continue
		}
		p.s.profile[k] = v
	}
}

// GetUserAttributes yields nil when none of names is set.
func (p profilePort) GetUserAttributes(names []string, done func(dyn.Map, error)) {
	if err := p.s.fail("AEPUserProfile.getUserAttributes", codec.StringListValue(names)); err != nil {
		done(nil, err)
		return
	}
	p.s.mu.Lock()
	out := dyn.Map{}
	for _, n := range names {
		if v, ok := p.s.profile[n]; ok {
			out[n] = v
		}
	}
	p.s.mu.Unlock()
	if len(out) == 0 {
		done(nil, nil)
		return
	}
	done(out, nil)
}

func (p profilePort) RemoveUserAttributes(names []string) {
	p.s.record("AEPUserProfile.removeUserAttributes", codec.StringListValue(names))
	p.s.mu.Lock()
	for _, n := range names {
		delete(p.s.profile, n)
	}
	p.s.mu.Unlock()
}

type campaignPort struct{ s *Simulator }

func (p campaignPort) ExtensionVersion() string { return p.s.version(campaign.Name) }

func (p campaignPort) RegisterDevice(token, userKey string, additional dyn.Map) {
	p.s.record("AEPCampaignClassic.registerDevice", dyn.String(token), dyn.String(userKey), mapOrNull(additional))
}

func (p campaignPort) TrackNotificationReceive(info map[string]string) {
	p.s.record("AEPCampaignClassic.trackNotificationReceive", codec.StringMapValue(info))
}

func (p campaignPort) TrackNotificationClick(info map[string]string) {
	p.s.record("AEPCampaignClassic.trackNotificationClick", codec.StringMapValue(info))
}

type assurancePort struct{ s *Simulator }

func (p assurancePort) ExtensionVersion() string { return p.s.version(assurance.Name) }

func (p assurancePort) StartSession(url string) {
	p.s.record("AEPAssurance.startSession", dyn.String(url))
}
