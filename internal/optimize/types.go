package optimize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/aepbridge/internal/codec"
	"github.com/roach88/aepbridge/internal/dyn"
)

// OfferType is derived from an offer's format.
type OfferType int

const (
	OfferUnknown OfferType = iota
	OfferJSON
	OfferText
	OfferHTML
	OfferImage
)

// Type classifies a format string such as "application/json".
func Type(format string) OfferType {
	switch {
	case format == "application/json":
		return OfferJSON
	case format == "text/plain":
		return OfferText
	case format == "text/html":
		return OfferHTML
	case strings.HasPrefix(format, "image/"):
		return OfferImage
	}
	return OfferUnknown
}

// Offer is one personalized item of a proposition. PropositionID names the
// owning proposition and is set by DecodeProposition.
type Offer struct {
	ID              string
	Etag            string
	Schema          string
	Score           float64
	Meta            dyn.Map
	Format          string
	Content         string
	Language        []string
	Characteristics map[string]string
	PropositionID   string
}

func (o Offer) Type() OfferType { return Type(o.Format) }

// DecodeOffer requires id and schema; data fields are optional apart from
// format.
func DecodeOffer(v dyn.Value) (Offer, error) {
	r := codec.NewReader("Offer", v)
	o := Offer{
		ID:     r.RequiredString("id"),
		Schema: r.RequiredString("schema"),
	}
	o.Etag, _ = r.String("etag")
	o.Score, _ = r.Number("score")
	o.Meta, _ = r.Map("meta")
	r.RequiredObject("data", func(v dyn.Value) error {
		d := codec.NewReader("OfferData", v)
		o.Format = d.RequiredString("format")
		o.Content, _ = d.String("content")
		o.Language, _ = d.StringList("language")
		o.Characteristics, _ = d.StringMap("characteristics")
		return d.Err()
	})
	if err := r.Err(); err != nil {
		return Offer{}, err
	}
	return o, nil
}

// Encode renders the offer; the owning proposition id is not part of the
// wire shape.
func (o Offer) Encode() dyn.Value {
	data := dyn.Map{
		"id":      dyn.String(o.ID),
		"format":  dyn.String(o.Format),
		"content": dyn.String(o.Content),
	}
	if o.Language != nil {
		data["language"] = codec.StringListValue(o.Language)
	}
	if o.Characteristics != nil {
		data["characteristics"] = codec.StringMapValue(o.Characteristics)
	}
	m := dyn.Map{
		"id":     dyn.String(o.ID),
		"schema": dyn.String(o.Schema),
		"score":  dyn.NewNumber(o.Score),
		"data":   data,
	}
	if o.Etag != "" {
		m["etag"] = dyn.String(o.Etag)
	}
	if o.Meta != nil {
		m["meta"] = o.Meta
	}
	return m
}

// Ref identifies an activity or placement.
type Ref struct {
	ID   string
	Etag string
}

func decodeRef(typ string, v dyn.Value) (Ref, error) {
	r := codec.NewReader(typ, v)
	ref := Ref{ID: r.RequiredString("id")}
	ref.Etag, _ = r.String("etag")
	return ref, r.Err()
}

func (r Ref) Encode() dyn.Value {
	m := dyn.Map{"id": dyn.String(r.ID)}
	if r.Etag != "" {
		m["etag"] = dyn.String(r.Etag)
	}
	return m
}

// Proposition is the set of offers decided for one scope.
type Proposition struct {
	ID           string
	Scope        string
	Items        []Offer
	ScopeDetails dyn.Map
	Activity     *Ref
	Placement    *Ref
}

// DecodeProposition requires id and scope. Each decoded offer records the
// proposition id. A missing items list decodes as empty.
func DecodeProposition(v dyn.Value) (Proposition, error) {
	r := codec.NewReader("Proposition", v)
	p := Proposition{
		ID:    r.RequiredString("id"),
		Scope: r.RequiredString("scope"),
	}
	p.ScopeDetails, _ = r.Map("scopeDetails")
	r.Object("activity", func(v dyn.Value) error {
		ref, err := decodeRef("Activity", v)
		p.Activity = &ref
		return err
	})
	r.Object("placement", func(v dyn.Value) error {
		ref, err := decodeRef("Placement", v)
		p.Placement = &ref
		return err
	})
	r.Object("items", func(v dyn.Value) error {
		items, err := codec.DecodeList("Proposition", v, DecodeOffer)
		p.Items = items
		return err
	})
	if err := r.Err(); err != nil {
		return Proposition{}, err
	}
	if p.Items == nil {
		p.Items = []Offer{}
	}
	for i := range p.Items {
		p.Items[i].PropositionID = p.ID
	}
	return p, nil
}

func (p Proposition) Encode() dyn.Value {
	m := dyn.Map{
		"id":    dyn.String(p.ID),
		"scope": dyn.String(p.Scope),
		"items": codec.EncodeList(p.Items, Offer.Encode),
	}
	if p.ScopeDetails != nil {
		m["scopeDetails"] = p.ScopeDetails
	}
	if p.Activity != nil {
		m["activity"] = p.Activity.Encode()
	}
	if p.Placement != nil {
		m["placement"] = p.Placement.Encode()
	}
	return m
}

// Offer returns the item with id.
func (p Proposition) Offer(id string) (Offer, bool) {
	for _, o := range p.Items {
		if o.ID == id {
			return o, true
		}
	}
	return Offer{}, false
}

// ActivityID is the activity id from activity, or from scopeDetails when
// the proposition carries no activity.
func (p Proposition) ActivityID() string {
	if p.Activity != nil && p.Activity.ID != "" {
		return p.Activity.ID
	}
	act, _ := p.ScopeDetails["activity"].(dyn.Map)
	id, _ := act["id"].(dyn.String)
	return string(id)
}

// EncodePropositions renders a scope → proposition map.
func EncodePropositions(props map[string]Proposition) dyn.Map {
	out := make(dyn.Map, len(props))
	for scope, p := range props {
		out[scope] = p.Encode()
	}
	return out
}

// Error is the failure body reported by the personalization service.
type Error struct {
	Type     string
	Status   int
	Title    string
	Detail   string
	Report   dyn.Map
	AEPError string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return e.Title
}

// Code is the AEP error name, or the HTTP status when none is set.
func (e *Error) Code() string {
	if e.AEPError != "" {
		return e.AEPError
	}
	return strconv.Itoa(e.Status)
}

// Encode renders {type, status, title, detail, report, aepError}, omitting
// empty fields.
func (e *Error) Encode() dyn.Map {
	m := dyn.Map{}
	if e.Type != "" {
		m["type"] = dyn.String(e.Type)
	}
	if e.Status != 0 {
		m["status"] = dyn.NewInt(int64(e.Status))
	}
	if e.Title != "" {
		m["title"] = dyn.String(e.Title)
	}
	if e.Detail != "" {
		m["detail"] = dyn.String(e.Detail)
	}
	if e.Report != nil {
		m["report"] = e.Report
	}
	if e.AEPError != "" {
		m["aepError"] = dyn.String(e.AEPError)
	}
	return m
}
