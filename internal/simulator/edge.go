package simulator

import (
	"github.com/roach88/aepbridge/internal/codec"
	"github.com/roach88/aepbridge/internal/consent"
	"github.com/roach88/aepbridge/internal/dyn"
	"github.com/roach88/aepbridge/internal/edge"
)

type edgeState struct {
	locationHint *string
	handles      []edge.EventHandle
}

func newEdgeState(f *Fixture) (*edgeState, error) {
	st := &edgeState{}
	if f.Edge == nil {
		return st, nil
	}
	r := codec.NewReader("EdgeFixture", f.Edge)
	if hint, ok := r.String("locationHint"); ok {
		st.locationHint = &hint
	}
	r.Object("handles", func(v dyn.Value) error {
		handles, err := codec.DecodeList("EdgeFixture", v, edge.DecodeEventHandle)
		st.handles = handles
		return err
	})
	if err := r.Err(); err != nil {
		return nil, err
	}
	return st, nil
}

type edgePort struct{ s *Simulator }

func (p edgePort) ExtensionVersion() string { return p.s.version(edge.Name) }

// SendEvent answers with the fixture handles whatever the event.
func (p edgePort) SendEvent(ev edge.ExperienceEvent, done func([]edge.EventHandle, error)) {
	if err := p.s.fail("AEPEdge.sendEvent", ev.Encode()); err != nil {
		done(nil, err)
		return
	}
	p.s.mu.Lock()
	handles := append([]edge.EventHandle{}, p.s.edge.handles...)
	p.s.mu.Unlock()
	done(handles, nil)
}

func (p edgePort) SetLocationHint(hint *string) {
	p.s.record("AEPEdge.setLocationHint", strOrNull(hint))
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if hint == nil {
		p.s.edge.locationHint = nil
		return
	}
	h := *hint
	p.s.edge.locationHint = &h
}

func (p edgePort) GetLocationHint(done func(*string, error)) {
	if err := p.s.fail("AEPEdge.getLocationHint"); err != nil {
		done(nil, err)
		return
	}
	p.s.mu.Lock()
	hint := p.s.edge.locationHint
	p.s.mu.Unlock()
	done(hint, nil)
}

type consentPort struct{ s *Simulator }

func (p consentPort) ExtensionVersion() string { return p.s.version(consent.Name) }

// Update merges consents into the stored preferences. Nested maps merge
// key by key.
func (p consentPort) Update(consents dyn.Map) {
	p.s.record("AEPEdgeConsent.update", consents)
	p.s.mu.Lock()
	p.s.consents = mergeMaps(p.s.consents, consents)
	p.s.mu.Unlock()
}

func (p consentPort) GetConsents(done func(dyn.Map, error)) {
	if err := p.s.fail("AEPEdgeConsent.getConsents"); err != nil {
		done(nil, err)
		return
	}
	p.s.mu.Lock()
	c := p.s.consents.Clone()
	p.s.mu.Unlock()
	done(c, nil)
}

func mergeMaps(dst, src dyn.Map) dyn.Map {
	out := dst.Clone()
	for k, v := range src {
		if sub, ok := v.(dyn.Map); ok {
			if prev, ok := out[k].(dyn.Map); ok {
				out[k] = mergeMaps(prev, sub)
				continue
			}
		}
		out[k] = v
	}
	return out
}
