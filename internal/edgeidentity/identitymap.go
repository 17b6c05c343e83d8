package edgeidentity

import (
	"strings"

	"github.com/roach88/aepbridge/internal/codec"
	"github.com/roach88/aepbridge/internal/dyn"
)

// AuthenticatedState of an identity item.
type AuthenticatedState int

const (
	Ambiguous AuthenticatedState = iota
	Authenticated
	LoggedOut
)

// AuthenticatedStates is the wire table; unknown values decode as ambiguous.
var AuthenticatedStates = codec.NewEnum("AuthenticatedState", Ambiguous, map[AuthenticatedState]string{
	Ambiguous:     "ambiguous",
	Authenticated: "authenticated",
	LoggedOut:     "loggedOut",
})

// Item is one identity within a namespace.
type Item struct {
	ID                 string
	AuthenticatedState AuthenticatedState
	Primary            bool
}

// DecodeItem requires id. primary defaults to false but must be a bool when
// present.
func DecodeItem(v dyn.Value) (Item, error) {
	r := codec.NewReader("IdentityItem", v)
	it := Item{ID: r.RequiredString("id")}
	if s, ok := r.String("authenticatedState"); ok {
		it.AuthenticatedState = AuthenticatedStates.Decode(s)
	}
	it.Primary = r.BoolOr("primary", false)
	if err := r.Err(); err != nil {
		return Item{}, err
	}
	return it, nil
}

func (it Item) Encode() dyn.Value {
	return dyn.Map{
		"id":                 dyn.String(it.ID),
		"authenticatedState": AuthenticatedStates.EncodeValue(it.AuthenticatedState),
		"primary":            dyn.Bool(it.Primary),
	}
}

// IdentityMap groups identity items by namespace. Ids compare
// case-insensitively within a namespace.
type IdentityMap struct {
	items map[string][]Item
}

// NewIdentityMap returns an empty map.
func NewIdentityMap() *IdentityMap {
	return &IdentityMap{items: map[string][]Item{}}
}

// AddItem adds or replaces item in namespace. Items with an empty id and
// empty namespaces are ignored.
func (m *IdentityMap) AddItem(item Item, namespace string) {
	if namespace == "" || item.ID == "" {
		return
	}
	list := m.items[namespace]
	for i, e := range list {
		if strings.EqualFold(e.ID, item.ID) {
			list[i] = item
			return
		}
	}
	m.items[namespace] = append(list, item)
}

// RemoveItem drops item from namespace, and the namespace once empty.
func (m *IdentityMap) RemoveItem(item Item, namespace string) {
	if namespace == "" || item.ID == "" {
		return
	}
	list, ok := m.items[namespace]
	if !ok {
		return
	}
	kept := list[:0:0]
	for _, e := range list {
		if !strings.EqualFold(e.ID, item.ID) {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(m.items, namespace)
		return
	}
	m.items[namespace] = kept
}

// Merge adds every item of other.
func (m *IdentityMap) Merge(other *IdentityMap) {
	for _, ns := range other.Namespaces() {
		for _, it := range other.items[ns] {
			m.AddItem(it, ns)
		}
	}
}

// Items returns a copy of the items in namespace.
func (m *IdentityMap) Items(namespace string) []Item {
	return append([]Item(nil), m.items[namespace]...)
}

// Namespaces returns the namespaces in canonical key order.
func (m *IdentityMap) Namespaces() []string {
	keys := make(dyn.Map, len(m.items))
	for ns := range m.items {
		keys[ns] = dyn.Null{}
	}
	return keys.SortedKeys()
}

func (m *IdentityMap) IsEmpty() bool { return len(m.items) == 0 }

// Encode renders {namespace: [item, ...]}; empty namespaces are omitted.
func (m *IdentityMap) Encode() dyn.Value {
	out := dyn.Map{}
	for ns, items := range m.items {
		if len(items) == 0 {
			continue
		}
		out[ns] = codec.EncodeList(items, Item.Encode)
	}
	return out
}

// DecodeIdentityMap accepts both the bare {namespace: [...]} form and the
// {items: {namespace: [...]}} wrapper used by the JavaScript model.
func DecodeIdentityMap(v dyn.Value) (*IdentityMap, error) {
	m, ok := v.(dyn.Map)
	if !ok {
		return nil, codec.Errorf("IdentityMap", "", "%s, got %s", codec.ReasonNotMap, dyn.KindName(v))
	}
	if inner, ok := m["items"].(dyn.Map); ok && len(m) == 1 {
		m = inner
	}
	out := NewIdentityMap()
	for _, ns := range m.SortedKeys() {
		items, err := codec.DecodeList("IdentityMap", m[ns], DecodeItem)
		if err != nil {
			return nil, codec.WithPath("IdentityMap", ns, err)
		}
		for _, it := range items {
			out.AddItem(it, ns)
		}
	}
	return out, nil
}
