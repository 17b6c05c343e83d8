package simulator

import (
	"github.com/roach88/aepbridge/internal/codec"
	"github.com/roach88/aepbridge/internal/dyn"
	"github.com/roach88/aepbridge/internal/optimize"
)

// optimizeState separates what the decisioning service would return
// (available) from what the SDK has fetched so far (cached).
type optimizeState struct {
	available map[string]optimize.Proposition
	cached    map[string]optimize.Proposition
	listener  func(map[string]optimize.Proposition)
}

func newOptimizeState(f *Fixture) (*optimizeState, error) {
	st := &optimizeState{
		available: map[string]optimize.Proposition{},
		cached:    map[string]optimize.Proposition{},
	}
	for _, scope := range f.OptimizePropositions.SortedKeys() {
		p, err := optimize.DecodeProposition(f.OptimizePropositions[scope])
		if err != nil {
			return nil, codec.WithPath("OptimizeFixture", scope, err)
		}
		st.available[scope] = p
	}
	return st, nil
}

type optimizePort struct{ s *Simulator }

func (p optimizePort) ExtensionVersion() string { return p.s.version(optimize.Name) }

func (p optimizePort) ClearCachedPropositions() {
	p.s.record("AEPOptimize.clearCachedPropositions")
	p.s.mu.Lock()
	p.s.optimize.cached = map[string]optimize.Proposition{}
	p.s.mu.Unlock()
}

// UpdatePropositions fetches the requested scopes into the cache and
// notifies the update listener with whatever was found.
func (p optimizePort) UpdatePropositions(scopes []string, xdm, data dyn.Map) {
	failure, failed := p.s.record("AEPOptimize.updatePropositions", codec.StringListValue(scopes), mapOrNull(xdm), mapOrNull(data))
	if failed {
		p.s.logFailure("AEPOptimize.updatePropositions", failure)
		return
	}
	p.s.mu.Lock()
	found := map[string]optimize.Proposition{}
	for _, scope := range scopes {
		if prop, ok := p.s.optimize.available[scope]; ok {
			found[scope] = prop
			p.s.optimize.cached[scope] = prop
		}
	}
	listener := p.s.optimize.listener
	p.s.mu.Unlock()
	if listener != nil && len(found) > 0 {
		listener(found)
	}
}

// GetPropositions answers from the cache. A configured failure surfaces as
// a service error body carrying the failure name.
func (p optimizePort) GetPropositions(scopes []string, done func(map[string]optimize.Proposition, error)) {
	if name, failed := p.s.record("AEPOptimize.getPropositions", codec.StringListValue(scopes)); failed {
		done(nil, &optimize.Error{
			Type:     "https://ns.adobe.com/aep/errors/" + name,
			Status:   500,
			Title:    "Request failed",
			Detail:   name,
			AEPError: name,
		})
		return
	}
	p.s.mu.Lock()
	out := map[string]optimize.Proposition{}
	for _, scope := range scopes {
		if prop, ok := p.s.optimize.cached[scope]; ok {
			out[scope] = prop
		}
	}
	p.s.mu.Unlock()
	done(out, nil)
}

func (p optimizePort) OnPropositionsUpdate(fn func(map[string]optimize.Proposition)) {
	p.s.record("AEPOptimize.onPropositionsUpdate")
	p.s.mu.Lock()
	p.s.optimize.listener = fn
	p.s.mu.Unlock()
}

func (p optimizePort) OfferDisplayed(o optimize.Offer, prop optimize.Proposition) {
	p.s.record("AEPOptimize.offerDisplayed", dyn.String(o.ID), dyn.String(prop.ID))
}

func (p optimizePort) OfferTapped(o optimize.Offer, prop optimize.Proposition) {
	p.s.record("AEPOptimize.offerTapped", dyn.String(o.ID), dyn.String(prop.ID))
}

func (p optimizePort) Displayed(offers []optimize.Offer) {
	ids := make([]string, len(offers))
	for i, o := range offers {
		ids[i] = o.ID
	}
	p.s.record("AEPOptimize.displayed", codec.StringListValue(ids))
}

func (p optimizePort) GenerateDisplayInteractionXDM(o optimize.Offer, prop optimize.Proposition) dyn.Map {
	return interactionXDM("decisioning.propositionDisplay", o, prop)
}

func (p optimizePort) GenerateTapInteractionXDM(o optimize.Offer, prop optimize.Proposition) dyn.Map {
	return interactionXDM("decisioning.propositionInteract", o, prop)
}

func (p optimizePort) GenerateReferenceXDM(prop optimize.Proposition) dyn.Map {
	return dyn.Map{
		"_experience": dyn.Map{
			"decisioning": dyn.Map{"propositionID": dyn.String(prop.ID)},
		},
	}
}

func interactionXDM(eventType string, o optimize.Offer, prop optimize.Proposition) dyn.Map {
	entry := dyn.Map{
		"id":    dyn.String(prop.ID),
		"scope": dyn.String(prop.Scope),
		"items": dyn.List{dyn.Map{"id": dyn.String(o.ID)}},
	}
	if prop.ScopeDetails != nil {
		entry["scopeDetails"] = prop.ScopeDetails
	}
	return dyn.Map{
		"eventType": dyn.String(eventType),
		"_experience": dyn.Map{
			"decisioning": dyn.Map{"propositions": dyn.List{entry}},
		},
	}
}

func mapOrNull(m dyn.Map) dyn.Value {
	if m == nil {
		return dyn.Null{}
	}
	return m
}
