package simulator

import (
	"net/url"

	"github.com/roach88/aepbridge/internal/codec"
	"github.com/roach88/aepbridge/internal/dyn"
	"github.com/roach88/aepbridge/internal/edgeidentity"
	"github.com/roach88/aepbridge/internal/identity"
)

type identityState struct {
	ecid         string
	urlVariables string
	visitorIDs   []identity.VisitorID
	edge         *edgeidentity.IdentityMap
}

func newIdentityState(f *Fixture) (*identityState, error) {
	st := &identityState{edge: edgeidentity.NewIdentityMap()}
	if f.Identities != nil {
		r := codec.NewReader("IdentitiesFixture", f.Identities)
		st.ecid, _ = r.String("experienceCloudId")
		st.urlVariables, _ = r.String("urlVariables")
		r.Object("visitorIds", func(v dyn.Value) error {
			ids, err := codec.DecodeList("IdentitiesFixture", v, identity.DecodeVisitorID)
			st.visitorIDs = ids
			return err
		})
		if err := r.Err(); err != nil {
			return nil, err
		}
	}
	if !dyn.IsNull(f.EdgeIdentities) {
		m, err := edgeidentity.DecodeIdentityMap(f.EdgeIdentities)
		if err != nil {
			return nil, err
		}
		st.edge = m
	}
	return st, nil
}

func (s *Simulator) resetIdentities() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity.visitorIDs = nil
	s.identity.edge = edgeidentity.NewIdentityMap()
}

// stringResult serves a single string value guarded by a failure hook.
func (s *Simulator) stringResult(op string, get func() string, done func(string, error), args ...dyn.Value) {
	if err := s.fail(op, args...); err != nil {
		done("", err)
		return
	}
	s.mu.Lock()
	v := get()
	s.mu.Unlock()
	done(v, nil)
}

type identityPort struct{ s *Simulator }

func (p identityPort) ExtensionVersion() string { return p.s.version(identity.Name) }

// SyncIdentifiers replaces ids of the same type.
func (p identityPort) SyncIdentifiers(ids map[string]string, state identity.AuthState) {
	p.s.record("AEPIdentity.syncIdentifiers", codec.StringMapValue(ids), identity.AuthStates.EncodeValue(state))
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	for _, typ := range codec.StringMapValue(ids).SortedKeys() {
		p.s.syncLocked(typ, ids[typ], state)
	}
}

func (p identityPort) SyncIdentifier(idType, id string, state identity.AuthState) {
	p.s.record("AEPIdentity.syncIdentifier", dyn.String(idType), dyn.String(id), identity.AuthStates.EncodeValue(state))
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.syncLocked(idType, id, state)
}

func (s *Simulator) syncLocked(idType, id string, state identity.AuthState) {
	vid := identity.VisitorID{Origin: "d_cid_ic", Type: idType, Identifier: id, AuthState: state}
	for i, e := range s.identity.visitorIDs {
		if e.Type == idType {
			s.identity.visitorIDs[i] = vid
			return
		}
	}
	s.identity.visitorIDs = append(s.identity.visitorIDs, vid)
}

// AppendVisitorInfoForURL appends the url variables as query parameters.
func (p identityPort) AppendVisitorInfoForURL(raw string, done func(string, error)) {
	if err := p.s.fail("AEPIdentity.appendVisitorInfoForURL", dyn.String(raw)); err != nil {
		done("", err)
		return
	}
	p.s.mu.Lock()
	vars := p.s.identity.urlVariables
	p.s.mu.Unlock()
	u, err := url.Parse(raw)
	if err != nil || vars == "" {
		done(raw, nil)
		return
	}
	if u.RawQuery != "" {
		u.RawQuery += "&"
	}
	u.RawQuery += vars
	done(u.String(), nil)
}

func (p identityPort) GetURLVariables(done func(string, error)) {
	p.s.stringResult("AEPIdentity.getUrlVariables", func() string { return p.s.identity.urlVariables }, done)
}

func (p identityPort) GetIdentifiers(done func([]identity.VisitorID, error)) {
	if err := p.s.fail("AEPIdentity.getIdentifiers"); err != nil {
		done(nil, err)
		return
	}
	p.s.mu.Lock()
	ids := append([]identity.VisitorID(nil), p.s.identity.visitorIDs...)
	p.s.mu.Unlock()
	done(ids, nil)
}

func (p identityPort) GetExperienceCloudID(done func(string, error)) {
	p.s.stringResult("AEPIdentity.getExperienceCloudId", func() string { return p.s.identity.ecid }, done)
}

type edgeIdentityPort struct{ s *Simulator }

func (p edgeIdentityPort) ExtensionVersion() string { return p.s.version(edgeidentity.Name) }

func (p edgeIdentityPort) GetExperienceCloudID(done func(string, error)) {
	p.s.stringResult("AEPEdgeIdentity.getExperienceCloudId", func() string { return p.s.identity.ecid }, done)
}

func (p edgeIdentityPort) GetIdentities(done func(*edgeidentity.IdentityMap, error)) {
	if err := p.s.fail("AEPEdgeIdentity.getIdentities"); err != nil {
		done(nil, err)
		return
	}
	p.s.mu.Lock()
	m := edgeidentity.NewIdentityMap()
	m.Merge(p.s.identity.edge)
	p.s.mu.Unlock()
	done(m, nil)
}

func (p edgeIdentityPort) GetURLVariables(done func(string, error)) {
	p.s.stringResult("AEPEdgeIdentity.getUrlVariables", func() string { return p.s.identity.urlVariables }, done)
}

func (p edgeIdentityPort) UpdateIdentities(m *edgeidentity.IdentityMap) {
	p.s.record("AEPEdgeIdentity.updateIdentities", m.Encode())
	p.s.mu.Lock()
	p.s.identity.edge.Merge(m)
	p.s.mu.Unlock()
}

func (p edgeIdentityPort) RemoveIdentity(item edgeidentity.Item, namespace string) {
	p.s.record("AEPEdgeIdentity.removeIdentity", item.Encode(), dyn.String(namespace))
	p.s.mu.Lock()
	p.s.identity.edge.RemoveItem(item, namespace)
	p.s.mu.Unlock()
}

func (p edgeIdentityPort) ResetIdentities() {
	p.s.record("AEPEdgeIdentity.resetIdentities")
	p.s.resetIdentities()
}
