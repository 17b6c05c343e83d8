// Package messaging bridges the Messaging extension: in-app messages shown
// through a delegate, content card and code-based propositions, and
// interaction tracking for both.
//
// The vendor asks the delegate whether to show each message and blocks
// until the application answers through setMessageSettings. Answers are
// matched to questions in arrival order.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/roach88/aepbridge/internal/aep"
	"github.com/roach88/aepbridge/internal/bridge"
	"github.com/roach88/aepbridge/internal/call"
	"github.com/roach88/aepbridge/internal/dyn"
	"github.com/roach88/aepbridge/internal/registry"
)

// Name is the boundary module name.
const Name = "AEPMessaging"

// Events emitted by the module.
const (
	EventOnShow            = "onShow"
	EventOnDismiss         = "onDismiss"
	EventShouldShowMessage = "shouldShowMessage"
	EventURLLoaded         = "urlLoaded"
	EventJavascriptMessage = "onJavascriptMessage"
	EventJavascriptResult  = "onJavascriptResult"
)

// Delegate receives message lifecycle callbacks from the vendor.
// ShouldShowMessage may block; the vendor calls it off its UI thread.
type Delegate interface {
	OnShow(msg Message)
	OnDismiss(msg Message)
	ShouldShowMessage(msg Message) bool
	URLLoaded(url string, msg Message)
}

// SDK is the vendor Messaging API. Surface maps returned by
// GetPropositionsForSurfaces are keyed by full surface URI.
type SDK interface {
	ExtensionVersion() string
	PackageName() string
	RefreshInAppMessages()
	SetMessagingDelegate(d Delegate)
	GetPropositionsForSurfaces(surfaces []string, done func(map[string][]Proposition, error))
	UpdatePropositionsForSurfaces(surfaces []string)
	TrackPropositionItem(p Proposition, it Item, interaction string, t EdgeEventType, tokens []string)
}

type itemRef struct {
	prop Proposition
	item Item
}

// Module exposes SDK through the bridge and implements Delegate.
type Module struct {
	sdk     SDK
	logger  *slog.Logger
	events  *call.Emitter
	pending *call.Group

	messages        *registry.Registry[Message]
	handlerMessages *registry.Registry[Message]
	propositions    *registry.Registry[itemRef]
	itemSeq         atomic.Uint64

	mu      sync.Mutex
	latest  Message
	waiting []*call.Gate[Settings]
	banked  []Settings
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
		sdk:             sdk,
		logger:          logger.With("module", Name),
		events:          events,
		pending:         call.NewGroup(),
		messages:        registry.New[Message](),
		handlerMessages: registry.New[Message](),
		propositions:    registry.New[itemRef](),
	}
}

func (m *Module) Name() string { return Name }

// Close releases any parked shouldShowMessage decision and forgets every
// registered object.
func (m *Module) Close() {
	m.pending.Close()
	m.messages.Clear()
	m.handlerMessages.Clear()
	m.propositions.Clear()
	m.mu.Lock()
	m.latest = nil
	m.waiting = nil
	m.banked = nil
	m.mu.Unlock()
}

func (m *Module) Register(t *bridge.Table) {
	t.Handle(bridge.VersionMethod, func(context.Context, *bridge.Args) (dyn.Value, error) {
		return dyn.String(m.sdk.ExtensionVersion()), nil
	})
	t.Handle("refreshInAppMessages", m.refreshInAppMessages)
	t.Handle("setMessagingDelegate", m.setMessagingDelegate)
	t.Handle("setMessageSettings", m.setMessageSettings)
	t.Handle("getCachedMessages", m.getCachedMessages)
	t.Handle("getLatestMessage", m.getLatestMessage)
	t.Handle("getPropositionsForSurfaces", m.getPropositionsForSurfaces)
	t.Handle("updatePropositionsForSurfaces", m.updatePropositionsForSurfaces)
	t.Handle("clear", m.clear)
	t.Handle("dismiss", m.dismiss)
	t.Handle("setAutoTrack", m.setAutoTrack)
	t.Handle("show", m.show)
	t.Handle("track", m.track)
	t.Handle("handleJavascriptMessage", m.handleJavascriptMessage)
	t.Handle("evaluateJavascript", m.evaluateJavascript)
	t.Handle("trackContentCardDisplay", m.trackContentCard(EventDisplay, ""))
	t.Handle("trackContentCardInteraction", m.trackContentCard(EventInteract, "click"))
	t.Handle("trackPropositionItem", m.trackPropositionItem)
}

func (m *Module) refreshInAppMessages(context.Context, *bridge.Args) (dyn.Value, error) {
	m.sdk.RefreshInAppMessages()
	return nil, nil
}

func (m *Module) setMessagingDelegate(context.Context, *bridge.Args) (dyn.Value, error) {
	m.sdk.SetMessagingDelegate(m)
	return nil, nil
}

// setMessageSettings answers the oldest parked shouldShowMessage. With
// nobody waiting the answer is kept for the next question.
func (m *Module) setMessageSettings(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	s := Settings{Show: a.Bool(0), Save: a.Bool(1)}
	if a.Err() != nil {
		return nil, a.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.waiting) > 0 {
		g := m.waiting[0]
		m.waiting = m.waiting[1:]
		if g.Open(s) {
			return nil, nil
		}
	}
	m.banked = append(m.banked, s)
	return nil, nil
}

func (m *Module) getCachedMessages(context.Context, *bridge.Args) (dyn.Value, error) {
	msgs := m.messages.Values()
	out := make(dyn.List, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, EncodeMessage(msg))
	}
	return out, nil
}

func (m *Module) getLatestMessage(context.Context, *bridge.Args) (dyn.Value, error) {
	m.mu.Lock()
	latest := m.latest
	m.mu.Unlock()
	if latest == nil {
		return dyn.Null{}, nil
	}
	return EncodeMessage(latest), nil
}

func (m *Module) getPropositionsForSurfaces(ctx context.Context, a *bridge.Args) (dyn.Value, error) {
	surfaces := a.StringList(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	bySurface, err := call.Do(ctx, m.pending, func(done func(map[string][]Proposition, error)) {
		m.sdk.GetPropositionsForSurfaces(surfaces, done)
	})
	if err != nil {
		var ae *aep.Error
		if errors.As(err, &ae) {
			return nil, call.Vendor(a.Op(), ae.Name, "Unable to get Propositions")
		}
		return nil, aep.Fail(a.Op(), err)
	}
	pkg := m.sdk.PackageName()
	out := dyn.Map{}
	for uri, props := range bySurface {
		list := make(dyn.List, 0, len(props))
		for _, p := range props {
			list = append(list, m.publish(p).Encode())
		}
		out[SurfaceKey(uri, pkg)] = list
	}
	return out, nil
}

// publish stamps every item of p with a fresh uuid and registers it so
// trackPropositionItem can find it again.
func (m *Module) publish(p Proposition) Proposition {
	items := make([]Item, len(p.Items))
	for i, it := range p.Items {
		key := p.ActivityID() + "#" + strconv.FormatUint(m.itemSeq.Add(1), 10)
		it.UUID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
		items[i] = it
	}
	p.Items = items
	for _, it := range items {
		m.propositions.Put(it.UUID, itemRef{prop: p, item: it})
	}
	return p
}

func (m *Module) updatePropositionsForSurfaces(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	surfaces := a.StringList(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	m.sdk.UpdatePropositionsForSurfaces(surfaces)
	m.propositions.Clear()
	return nil, nil
}

// message reads the id argument and looks it up among saved messages.
func (m *Module) message(a *bridge.Args, reg *registry.Registry[Message]) (Message, error) {
	id := a.String(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	msg, ok := reg.Get(id)
	if !ok {
		return nil, call.LookupMiss(a.Op(), id)
	}
	return msg, nil
}

func (m *Module) clear(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	id := a.String(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	if _, ok := m.messages.Take(id); !ok {
		return nil, call.LookupMiss(a.Op(), id)
	}
	return nil, nil
}

func (m *Module) dismiss(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	suppress, _ := a.OptBool(1)
	msg, err := m.message(a, m.messages)
	if err != nil {
		return nil, err
	}
	msg.Dismiss(suppress)
	return nil, nil
}

func (m *Module) setAutoTrack(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	on := a.Bool(1)
	msg, err := m.message(a, m.messages)
	if err != nil {
		return nil, err
	}
	msg.SetAutoTrack(on)
	return nil, nil
}

func (m *Module) show(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	msg, err := m.message(a, m.messages)
	if err != nil {
		return nil, err
	}
	msg.Show()
	return nil, nil
}

// track ignores an unknown event type after logging it.
func (m *Module) track(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	interaction, _ := a.OptString(1)
	et := EdgeEventType(a.Int(2))
	msg, err := m.message(a, m.messages)
	if err != nil {
		return nil, err
	}
	if !et.Valid() {
		m.logger.Debug("ignoring track with unknown event type", "id", msg.ID(), "event_type", int(et))
		return nil, nil
	}
	msg.Track(interaction, et)
	return nil, nil
}

func (m *Module) handleJavascriptMessage(ctx context.Context, a *bridge.Args) (dyn.Value, error) {
	handler := a.String(1)
	msg, err := m.message(a, m.handlerMessages)
	if err != nil {
		return nil, err
	}
	content, err := call.Do(ctx, m.pending, func(done func(*string, error)) {
		msg.HandleJavascriptMessage(handler, func(content *string) { done(content, nil) })
	})
	if err != nil {
		return nil, aep.Fail(a.Op(), err)
	}
	if content == nil {
		return nil, call.Vendor(a.Op(), "error", fmt.Sprintf("error in handling javascriptMessage %s", handler))
	}
	m.events.Emit(EventJavascriptMessage, dyn.Map{
		"messageId":   dyn.String(msg.ID()),
		"handlerName": dyn.String(handler),
		"content":     dyn.String(*content),
	})
	return dyn.String(*content), nil
}

// evaluateJavascript returns at once; the script result arrives as an
// onJavascriptResult event.
func (m *Module) evaluateJavascript(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	script := a.String(1)
	msg, err := m.message(a, m.handlerMessages)
	if err != nil {
		return nil, err
	}
	id := msg.ID()
	msg.EvaluateJavascript(script, func(result string, err error) {
		if err != nil {
			m.logger.Debug("evaluateJavascript failed", "id", id, "error", err)
		}
		m.events.Emit(EventJavascriptResult, dyn.Map{
			"messageId":        dyn.String(id),
			"javascriptString": dyn.String(script),
			"result":           dyn.String(result),
		})
	})
	return nil, nil
}

// trackContentCard tracks the proposition item whose id matches the card.
func (m *Module) trackContentCard(t EdgeEventType, interaction string) bridge.Handler {
	return func(_ context.Context, a *bridge.Args) (dyn.Value, error) {
		raw := a.Value(0)
		card := a.Map(1)
		if a.Err() != nil {
			return nil, a.Err()
		}
		cardID, ok := card["id"].(dyn.String)
		if !ok {
			return nil, call.Programming(a.Op(), "argument 1: content card id is missing or not a string")
		}
		p, err := DecodeProposition(raw)
		if err != nil {
			return nil, err
		}
		it, ok := p.Item(string(cardID))
		if !ok {
			return nil, call.LookupMiss(a.Op(), string(cardID))
		}
		m.sdk.TrackPropositionItem(p, it, interaction, t, nil)
		return nil, nil
	}
}

// trackPropositionItem with an empty uuid is a no-op; an unknown event type
// tracks as display.
func (m *Module) trackPropositionItem(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	id := a.String(0)
	interaction, _ := a.OptString(1)
	et := EdgeEventType(a.Int(2))
	var tokens []string
	if _, ok := a.Opt(3); ok {
		tokens = a.StringList(3)
	}
	if a.Err() != nil {
		return nil, a.Err()
	}
	if id == "" {
		return nil, nil
	}
	ref, ok := m.propositions.Get(id)
	if !ok {
		return nil, call.LookupMiss(a.Op(), id)
	}
	if !et.Valid() {
		et = EventDisplay
	}
	m.sdk.TrackPropositionItem(ref.prop, ref.item, interaction, et, tokens)
	return nil, nil
}

// OnShow makes msg addressable by javascript handler calls.
func (m *Module) OnShow(msg Message) {
	m.handlerMessages.Put(msg.ID(), msg)
	m.events.Emit(EventOnShow, EncodeMessage(msg))
}

func (m *Module) OnDismiss(msg Message) {
	m.handlerMessages.Remove(msg.ID())
	m.events.Emit(EventOnDismiss, EncodeMessage(msg))
}

// ShouldShowMessage emits shouldShowMessage and parks until the application
// answers. A nil msg is not shown and the application is not asked.
// Teardown answers "do not show".
func (m *Module) ShouldShowMessage(msg Message) bool {
	if msg == nil {
		m.logger.Debug("shouldShowMessage without a message; not showing")
		return false
	}
	gate := m.park()
	m.events.Emit(EventShouldShowMessage, EncodeMessage(msg))
	s, ok := gate.Wait()
	if !ok {
		m.logger.Debug("shouldShowMessage released without an answer")
		return false
	}
	if s.Save {
		m.messages.Put(msg.ID(), msg)
	}
	if s.Show {
		m.mu.Lock()
		m.latest = msg
		m.mu.Unlock()
	}
	return s.Show
}

// park queues a gate for the next answer, or opens it with a banked one.
func (m *Module) park() *call.Gate[Settings] {
	gate := call.TrackGate(m.pending, call.NewGate[Settings]())
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.banked) > 0 {
		s := m.banked[0]
		m.banked = m.banked[1:]
		gate.Open(s)
		return gate
	}
	m.waiting = append(m.waiting, gate)
	return gate
}

func (m *Module) URLLoaded(url string, msg Message) {
	m.events.Emit(EventURLLoaded, dyn.Map{
		"url":     dyn.String(url),
		"message": EncodeMessage(msg),
	})
}

// Waiting returns how many shouldShowMessage questions are unanswered.
func (m *Module) Waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiting)
}
