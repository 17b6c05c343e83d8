// Package optimize bridges the Optimize extension: decision scope
// propositions, their offers and offer interaction tracking.
//
// Propositions and offers handed across the boundary are kept in per-module
// registries so later calls can refer to them by id.
package optimize

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/aepbridge/internal/aep"
	"github.com/roach88/aepbridge/internal/bridge"
	"github.com/roach88/aepbridge/internal/call"
	"github.com/roach88/aepbridge/internal/dyn"
	"github.com/roach88/aepbridge/internal/registry"
)

// Name is the boundary module name.
const Name = "AEPOptimize"

// EventPropositionsUpdate carries a scope → proposition map.
const EventPropositionsUpdate = "onPropositionsUpdate"

// SDK is the vendor Optimize API. GetPropositions may fail with *Error.
type SDK interface {
	ExtensionVersion() string
	ClearCachedPropositions()
	UpdatePropositions(scopes []string, xdm, data dyn.Map)
	GetPropositions(scopes []string, done func(map[string]Proposition, error))
	OnPropositionsUpdate(fn func(map[string]Proposition))
	OfferDisplayed(o Offer, p Proposition)
	OfferTapped(o Offer, p Proposition)
	Displayed(offers []Offer)
	GenerateDisplayInteractionXDM(o Offer, p Proposition) dyn.Map
	GenerateTapInteractionXDM(o Offer, p Proposition) dyn.Map
	GenerateReferenceXDM(p Proposition) dyn.Map
}

// Module exposes SDK through the bridge.
type Module struct {
	sdk          SDK
	logger       *slog.Logger
	events       *call.Emitter
	pending      *call.Group
	propositions *registry.Registry[Proposition]
	offers       *registry.Registry[Offer]
	subscribed   atomic.Bool
}

// New creates the module.
func New(sdk SDK, env bridge.Env) *Module {
	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}
	events := env.Events
	if events == nil {
		events = call.NewEmitter()
	}
	return &Module{
		sdk:          sdk,
		logger:       logger.With("module", Name),
		events:       events,
		pending:      call.NewGroup(),
		propositions: registry.New[Proposition](),
		offers:       registry.New[Offer](),
	}
}

func (m *Module) Name() string { return Name }

func (m *Module) Close() {
	m.pending.Close()
	m.propositions.Clear()
	m.offers.Clear()
}

func (m *Module) Register(t *bridge.Table) {
	t.Handle(bridge.VersionMethod, func(context.Context, *bridge.Args) (dyn.Value, error) {
		return dyn.String(m.sdk.ExtensionVersion()), nil
	})
	t.Handle("clearCachedPropositions", m.clearCachedPropositions)
	t.Handle("updatePropositions", m.updatePropositions)
	t.Handle("getPropositions", m.getPropositions)
	t.Handle("onPropositionsUpdate", m.onPropositionsUpdate)
	t.Handle("offerDisplayed", m.offerInteraction(m.sdk.OfferDisplayed))
	t.Handle("offerTapped", m.offerInteraction(m.sdk.OfferTapped))
	t.Handle("displayed", m.displayed)
	t.Handle("multipleOffersDisplayed", m.displayed)
	t.Handle("generateDisplayInteractionXdm", m.generateXDM(m.sdk.GenerateDisplayInteractionXDM))
	t.Handle("generateTapInteractionXdm", m.generateXDM(m.sdk.GenerateTapInteractionXDM))
	t.Handle("generateReferenceXdm", m.generateReferenceXDM)
}

// track registers p and its offers, replacing earlier entries with the
// same ids.
func (m *Module) track(p Proposition) {
	m.propositions.Put(p.ID, p)
	for _, o := range p.Items {
		m.offers.Put(o.ID, o)
	}
}

func (m *Module) clearCachedPropositions(context.Context, *bridge.Args) (dyn.Value, error) {
	m.sdk.ClearCachedPropositions()
	m.propositions.Clear()
	m.offers.Clear()
	return nil, nil
}

func (m *Module) updatePropositions(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	scopes := a.StringList(0)
	xdm, _ := a.OptMap(1)
	data, _ := a.OptMap(2)
	if a.Err() != nil {
		return nil, a.Err()
	}
	m.sdk.UpdatePropositions(nonEmpty(scopes), xdm, data)
	return nil, nil
}

func nonEmpty(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (m *Module) getPropositions(ctx context.Context, a *bridge.Args) (dyn.Value, error) {
	scopes := a.StringList(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	props, err := call.Do(ctx, m.pending, func(done func(map[string]Proposition, error)) {
		m.sdk.GetPropositions(nonEmpty(scopes), done)
	})
	if err != nil {
		var oe *Error
		if errors.As(err, &oe) {
			return nil, call.VendorDetails(a.Op(), oe.Code(), oe.Error(), oe.Encode())
		}
		return nil, aep.Fail(a.Op(), err)
	}
	for _, p := range props {
		m.track(p)
	}
	return EncodePropositions(props), nil
}

// onPropositionsUpdate subscribes to vendor updates once; later calls are
// no-ops.
func (m *Module) onPropositionsUpdate(context.Context, *bridge.Args) (dyn.Value, error) {
	if !m.subscribed.CompareAndSwap(false, true) {
		return nil, nil
	}
	m.sdk.OnPropositionsUpdate(func(props map[string]Proposition) {
		for _, p := range props {
			m.track(p)
		}
		m.events.Emit(EventPropositionsUpdate, EncodePropositions(props))
	})
	return nil, nil
}

// resolve finds the offer and its proposition. Registered objects win; the
// proposition argument, when given, fills a registry miss.
func (m *Module) resolve(a *bridge.Args) (Offer, Proposition, error) {
	offerID := a.String(0)
	raw, hasRaw := a.Opt(1)
	if a.Err() != nil {
		return Offer{}, Proposition{}, a.Err()
	}
	if o, ok := m.offers.Get(offerID); ok {
		if p, ok := m.propositions.Get(o.PropositionID); ok {
			return o, p, nil
		}
	}
	if hasRaw {
		p, err := DecodeProposition(raw)
		if err != nil {
			return Offer{}, Proposition{}, err
		}
		if o, ok := p.Offer(offerID); ok {
			m.track(p)
			return o, p, nil
		}
	}
	return Offer{}, Proposition{}, call.LookupMiss(a.Op(), offerID)
}

func (m *Module) offerInteraction(fn func(Offer, Proposition)) bridge.Handler {
	return func(_ context.Context, a *bridge.Args) (dyn.Value, error) {
		o, p, err := m.resolve(a)
		if err != nil {
			return nil, err
		}
		fn(o, p)
		return nil, nil
	}
}

func (m *Module) generateXDM(fn func(Offer, Proposition) dyn.Map) bridge.Handler {
	return func(_ context.Context, a *bridge.Args) (dyn.Value, error) {
		o, p, err := m.resolve(a)
		if err != nil {
			return nil, err
		}
		return fn(o, p), nil
	}
}

// displayed reports every registered offer among ids; unknown ids are
// skipped.
func (m *Module) displayed(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	ids := a.StringList(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	offers := make([]Offer, 0, len(ids))
	for _, id := range ids {
		o, ok := m.offers.Get(id)
		if !ok {
			m.logger.Debug("offer not registered", "offer_id", id)
			continue
		}
		offers = append(offers, o)
	}
	if len(offers) > 0 {
		m.sdk.Displayed(offers)
	}
	return nil, nil
}

func (m *Module) generateReferenceXDM(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	raw := a.Value(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	p, err := DecodeProposition(raw)
	if err != nil {
		return nil, err
	}
	if reg, ok := m.propositions.Get(p.ID); ok {
		p = reg
	}
	return m.sdk.GenerateReferenceXDM(p), nil
}

