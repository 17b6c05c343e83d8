package messaging

import (
	"fmt"
	"strings"

	"github.com/roach88/aepbridge/internal/codec"
	"github.com/roach88/aepbridge/internal/dyn"
)

// EdgeEventType is the interaction kind recorded when tracking a message or
// a proposition item. The numeric values are the boundary encoding.
type EdgeEventType int

const (
	EventDismiss EdgeEventType = iota
	EventInteract
	EventTrigger
	EventDisplay
	EventPushApplicationOpened
	EventPushCustomAction
)

var edgeEventNames = [...]string{
	"dismiss", "interact", "trigger", "display",
	"pushApplicationOpened", "pushCustomAction",
}

// Valid reports whether t is one of the six known types.
func (t EdgeEventType) Valid() bool {
	return t >= EventDismiss && t <= EventPushCustomAction
}

func (t EdgeEventType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("EdgeEventType(%d)", int(t))
	}
	return edgeEventNames[t]
}

// Message is a live in-app message owned by the vendor SDK.
type Message interface {
	ID() string
	AutoTrack() bool
	SetAutoTrack(on bool)
	Show()
	Dismiss(suppressAutoTrack bool)
	Track(interaction string, t EdgeEventType)
	// HandleJavascriptMessage registers handler on the message's web view.
	// fn receives the script's content, or nil when the handler failed.
	HandleJavascriptMessage(handler string, fn func(content *string))
	EvaluateJavascript(script string, fn func(result string, err error))
}

// EncodeMessage renders the application-facing view of msg.
func EncodeMessage(msg Message) dyn.Value {
	return dyn.Map{
		"id":        dyn.String(msg.ID()),
		"autoTrack": dyn.Bool(msg.AutoTrack()),
	}
}

// Settings is the application's answer to shouldShowMessage.
type Settings struct {
	Show bool
	Save bool
}

// Item is one entry of a messaging proposition. UUID is assigned by the
// bridge when the proposition is handed out and is empty otherwise.
type Item struct {
	ID     string
	Schema string
	Data   dyn.Map
	UUID   string
}

// DecodeItem requires id.
func DecodeItem(v dyn.Value) (Item, error) {
	r := codec.NewReader("PropositionItem", v)
	it := Item{ID: r.RequiredString("id")}
	it.Schema, _ = r.String("schema")
	it.Data, _ = r.Map("data")
	it.UUID, _ = r.String("uuid")
	if err := r.Err(); err != nil {
		return Item{}, err
	}
	return it, nil
}

func (it Item) Encode() dyn.Value {
	m := dyn.Map{"id": dyn.String(it.ID)}
	if it.Schema != "" {
		m["schema"] = dyn.String(it.Schema)
	}
	if it.Data != nil {
		m["data"] = it.Data
	}
	if it.UUID != "" {
		m["uuid"] = dyn.String(it.UUID)
	}
	return m
}

// Proposition is the content decided for one surface.
type Proposition struct {
	ID           string
	Scope        string
	ScopeDetails dyn.Map
	Items        []Item
}

// DecodeProposition requires id and scope. Missing items decode as empty.
func DecodeProposition(v dyn.Value) (Proposition, error) {
	r := codec.NewReader("MessagingProposition", v)
	p := Proposition{
		ID:    r.RequiredString("id"),
		Scope: r.RequiredString("scope"),
	}
	p.ScopeDetails, _ = r.Map("scopeDetails")
	r.Object("items", func(v dyn.Value) error {
		items, err := codec.DecodeList("MessagingProposition", v, DecodeItem)
		p.Items = items
		return err
	})
	if err := r.Err(); err != nil {
		return Proposition{}, err
	}
	if p.Items == nil {
		p.Items = []Item{}
	}
	return p, nil
}

// Encode omits scopeDetails when it was never set.
func (p Proposition) Encode() dyn.Value {
	m := dyn.Map{
		"id":    dyn.String(p.ID),
		"scope": dyn.String(p.Scope),
		"items": codec.EncodeList(p.Items, Item.Encode),
	}
	if p.ScopeDetails != nil {
		m["scopeDetails"] = p.ScopeDetails
	}
	return m
}

// ActivityID reads scopeDetails.activity.id.
func (p Proposition) ActivityID() string {
	act, ok := p.ScopeDetails["activity"].(dyn.Map)
	if !ok {
		return ""
	}
	id, _ := act["id"].(dyn.String)
	return string(id)
}

// Item returns the entry with id.
func (p Proposition) Item(id string) (Item, bool) {
	for _, it := range p.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// SurfaceKey strips the app surface prefix "mobileapp://<pkg>/" from uri.
func SurfaceKey(uri, pkg string) string {
	return strings.TrimPrefix(uri, "mobileapp://"+pkg+"/")
}
