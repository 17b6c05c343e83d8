package simulator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/aepbridge/internal/codec"
	"github.com/roach88/aepbridge/internal/dyn"
	"github.com/roach88/aepbridge/internal/messaging"
)

type messagingState struct {
	delegate     messaging.Delegate
	propositions map[string][]messaging.Proposition
	messages     map[string]*simMessage
	scripts      map[string]string
}

func newMessagingState(f *Fixture) (*messagingState, error) {
	st := &messagingState{
		propositions: map[string][]messaging.Proposition{},
		messages:     map[string]*simMessage{},
		scripts:      map[string]string{},
	}
	for _, surface := range f.MessagingPropositions.SortedKeys() {
		props, err := codec.DecodeList("MessagingFixture", f.MessagingPropositions[surface], messaging.DecodeProposition)
		if err != nil {
			return nil, codec.WithPath("MessagingFixture", surface, err)
		}
		st.propositions[surface] = props
	}
	return st, nil
}

type messagingPort struct{ s *Simulator }

func (p *messagingPort) ExtensionVersion() string { return p.s.version(messaging.Name) }
func (p *messagingPort) PackageName() string      { return p.s.pkg }

func (p *messagingPort) RefreshInAppMessages() {
	p.s.record("AEPMessaging.refreshInAppMessages")
}

func (p *messagingPort) SetMessagingDelegate(d messaging.Delegate) {
	p.s.record("AEPMessaging.setMessagingDelegate")
	p.s.mu.Lock()
	p.s.messaging.delegate = d
	p.s.mu.Unlock()
}

// GetPropositionsForSurfaces keys results by full surface URI. Surfaces
// without fixture propositions are left out.
func (p *messagingPort) GetPropositionsForSurfaces(surfaces []string, done func(map[string][]messaging.Proposition, error)) {
	if err := p.s.fail("AEPMessaging.getPropositionsForSurfaces", codec.StringListValue(surfaces)); err != nil {
		done(nil, err)
		return
	}
	p.s.mu.Lock()
	out := map[string][]messaging.Proposition{}
	for _, surface := range surfaces {
		if props, ok := p.s.messaging.propositions[surface]; ok {
			out["mobileapp://"+p.s.pkg+"/"+surface] = props
		}
	}
	p.s.mu.Unlock()
	done(out, nil)
}

func (p *messagingPort) UpdatePropositionsForSurfaces(surfaces []string) {
	p.s.record("AEPMessaging.updatePropositionsForSurfaces", codec.StringListValue(surfaces))
}

func (p *messagingPort) TrackPropositionItem(prop messaging.Proposition, it messaging.Item, interaction string, t messaging.EdgeEventType, tokens []string) {
	p.s.record("AEPMessaging.trackPropositionItem",
		dyn.String(prop.ID), dyn.String(it.ID), dyn.String(interaction), dyn.String(t.String()), codec.StringListValue(tokens))
}

// simMessage is an in-app message presented by the simulator.
type simMessage struct {
	s  *Simulator
	id string

	mu        sync.Mutex
	autoTrack bool
}

func (m *simMessage) ID() string { return m.id }

func (m *simMessage) AutoTrack() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autoTrack
}

func (m *simMessage) SetAutoTrack(on bool) {
	m.s.record("AEPMessaging.Message.setAutoTrack", dyn.String(m.id), dyn.Bool(on))
	m.mu.Lock()
	m.autoTrack = on
	m.mu.Unlock()
}

func (m *simMessage) Show() {
	m.s.record("AEPMessaging.Message.show", dyn.String(m.id))
	if d := m.s.delegate(); d != nil {
		d.OnShow(m)
	}
}

func (m *simMessage) Dismiss(suppressAutoTrack bool) {
	m.s.record("AEPMessaging.Message.dismiss", dyn.String(m.id), dyn.Bool(suppressAutoTrack))
	if d := m.s.delegate(); d != nil {
		d.OnDismiss(m)
	}
}

func (m *simMessage) Track(interaction string, t messaging.EdgeEventType) {
	m.s.record("AEPMessaging.Message.track", dyn.String(m.id), dyn.String(interaction), dyn.String(t.String()))
}

// HandleJavascriptMessage answers at once with the content configured by
// SetScriptContent, defaulting to the handler name. A configured failure
// delivers nil.
func (m *simMessage) HandleJavascriptMessage(handler string, fn func(content *string)) {
	if _, failed := m.s.record("AEPMessaging.Message.handleJavascriptMessage", dyn.String(m.id), dyn.String(handler)); failed {
		fn(nil)
		return
	}
	m.s.mu.Lock()
	content, ok := m.s.messaging.scripts[handler]
	m.s.mu.Unlock()
	if !ok {
		content = handler
	}
	fn(&content)
}

func (m *simMessage) EvaluateJavascript(script string, fn func(result string, err error)) {
	if name, failed := m.s.record("AEPMessaging.Message.evaluateJavascript", dyn.String(m.id), dyn.String(script)); failed {
		fn("", errors.New(name))
		return
	}
	fn(fmt.Sprintf("evaluated(%d)", len(script)), nil)
}

func (s *Simulator) delegate() messaging.Delegate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messaging.delegate
}

func (s *Simulator) message(id string) *simMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messaging.messages[id]
	if !ok {
		msg = &simMessage{s: s, id: id, autoTrack: true}
		s.messaging.messages[id] = msg
	}
	return msg
}

// ErrNoDelegate is returned when a message is triggered before the
// application installed the messaging delegate.
var ErrNoDelegate = errors.New("simulator: no messaging delegate")

// PresentMessage triggers in-app message id. It asks the delegate whether
// to show it, blocking until the application answers, and shows it when
// allowed.
func (s *Simulator) PresentMessage(id string) (bool, error) {
	d := s.delegate()
	if d == nil {
		return false, ErrNoDelegate
	}
	msg := s.message(id)
	if !d.ShouldShowMessage(msg) {
		return false, nil
	}
	s.record("AEPMessaging.Message.show", dyn.String(id))
	d.OnShow(msg)
	return true, nil
}

// LoadURL reports a URL load inside the web view of message id.
func (s *Simulator) LoadURL(id, url string) error {
	d := s.delegate()
	if d == nil {
		return ErrNoDelegate
	}
	d.URLLoaded(url, s.message(id))
	return nil
}

// SetScriptContent sets what javascript handler name posts back.
func (s *Simulator) SetScriptContent(handler, content string) {
	s.mu.Lock()
	s.messaging.scripts[handler] = content
	s.mu.Unlock()
}
