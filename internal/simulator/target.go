package simulator

import (
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/roach88/aepbridge/internal/codec"
	"github.com/roach88/aepbridge/internal/dyn"
	"github.com/roach88/aepbridge/internal/target"
)

type targetState struct {
	content    map[string]string
	prefetched map[string]bool
	sessionID  string
	tntID      string
	thirdParty string
	sessions   int
}

func newTargetState(f *Fixture) *targetState {
	st := &targetState{content: map[string]string{}, prefetched: map[string]bool{}}
	for k, v := range f.TargetContent {
		st.content[k] = v
	}
	return st
}

// targetSession returns the current session id, minting a deterministic one
// when none is set.
func (s *Simulator) targetSession() string {
	st := s.target
	if st.sessionID == "" {
		st.sessions++
		seed := s.pkg + "#session#" + strconv.Itoa(st.sessions)
		st.sessionID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
	}
	return st.sessionID
}

type targetPort struct{ s *Simulator }

func (p targetPort) ExtensionVersion() string { return p.s.version(target.Name) }

func (p targetPort) ClearPrefetchCache() {
	p.s.record("AEPTarget.clearPrefetchCache")
	p.s.mu.Lock()
	p.s.target.prefetched = map[string]bool{}
	p.s.mu.Unlock()
}

func (p targetPort) GetSessionID(done func(string, error)) {
	p.s.stringResult("AEPTarget.getSessionId", p.s.targetSession, done)
}

func (p targetPort) GetThirdPartyID(done func(string, error)) {
	p.s.stringResult("AEPTarget.getThirdPartyId", func() string { return p.s.target.thirdParty }, done)
}

func (p targetPort) GetTntID(done func(string, error)) {
	p.s.stringResult("AEPTarget.getTntId", func() string { return p.s.target.tntID }, done)
}

func (p targetPort) SetSessionID(id string) {
	p.s.record("AEPTarget.setSessionId", dyn.String(id))
	p.s.mu.Lock()
	p.s.target.sessionID = id
	p.s.mu.Unlock()
}

func (p targetPort) SetThirdPartyID(id string) {
	p.s.record("AEPTarget.setThirdPartyId", dyn.String(id))
	p.s.mu.Lock()
	p.s.target.thirdParty = id
	p.s.mu.Unlock()
}

func (p targetPort) SetTntID(id string) {
	p.s.record("AEPTarget.setTntId", dyn.String(id))
	p.s.mu.Lock()
	p.s.target.tntID = id
	p.s.mu.Unlock()
}

// ResetExperience forgets every visitor identifier and the session.
func (p targetPort) ResetExperience() {
	p.s.record("AEPTarget.resetExperience")
	p.s.mu.Lock()
	p.s.target.sessionID = ""
	p.s.target.tntID = ""
	p.s.target.thirdParty = ""
	p.s.mu.Unlock()
}

func (p targetPort) SetPreviewRestartDeepLink(u *url.URL) {
	p.s.record("AEPTarget.setPreviewRestartDeepLink", dyn.String(u.String()))
}

// RetrieveLocationContent delivers the fixture content for each request
// name, or the request's default content. A configured failure delivers
// default content for every request.
func (p targetPort) RetrieveLocationContent(reqs []target.Request, params *target.Parameters, deliver func(target.Request, string)) {
	_, failed := p.s.record("AEPTarget.retrieveLocationContent",
		codec.EncodeList(reqs, target.Request.Encode), paramsOrNull(params))
	for _, req := range reqs {
		p.s.mu.Lock()
		content, ok := p.s.target.content[req.Name]
		p.s.mu.Unlock()
		if failed || !ok {
			content = req.DefaultContent
		}
		deliver(req, content)
	}
}

func (p targetPort) DisplayedLocations(names []string, params *target.Parameters) {
	p.s.record("AEPTarget.displayedLocations", codec.StringListValue(names), paramsOrNull(params))
}

func (p targetPort) ClickedLocation(name string, params *target.Parameters) {
	p.s.record("AEPTarget.clickedLocation", dyn.String(name), paramsOrNull(params))
}

func (p targetPort) PrefetchContent(prefetches []target.Prefetch, params *target.Parameters, done func(struct{}, error)) {
	names := make([]string, len(prefetches))
	for i, pf := range prefetches {
		names[i] = pf.Name
	}
	if err := p.s.fail("AEPTarget.prefetchContent", codec.StringListValue(names), paramsOrNull(params)); err != nil {
		done(struct{}{}, err)
		return
	}
	p.s.mu.Lock()
	for _, n := range names {
		p.s.target.prefetched[n] = true
	}
	p.s.mu.Unlock()
	done(struct{}{}, nil)
}

func paramsOrNull(p *target.Parameters) dyn.Value {
	if p == nil {
		return dyn.Null{}
	}
	return p.Encode()
}
