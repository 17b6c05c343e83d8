package target

import (
	"github.com/roach88/aepbridge/internal/codec"
	"github.com/roach88/aepbridge/internal/dyn"
)

// Order describes a purchase attached to a location request.
type Order struct {
	ID                  string
	Total               float64
	PurchasedProductIDs []string
}

func DecodeOrder(v dyn.Value) (Order, error) {
	r := codec.NewReader("TargetOrder", v)
	o := Order{ID: r.RequiredString("orderId")}
	o.Total, _ = r.Number("total")
	o.PurchasedProductIDs, _ = r.StringList("purchasedProductIds")
	if err := r.Err(); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (o Order) Encode() dyn.Value {
	m := dyn.Map{
		"orderId": dyn.String(o.ID),
		"total":   dyn.NewNumber(o.Total),
	}
	if o.PurchasedProductIDs != nil {
		m["purchasedProductIds"] = codec.StringListValue(o.PurchasedProductIDs)
	}
	return m
}

type Product struct {
	ID         string
	CategoryID string
}

func DecodeProduct(v dyn.Value) (Product, error) {
	r := codec.NewReader("TargetProduct", v)
	p := Product{ID: r.RequiredString("productId")}
	p.CategoryID, _ = r.String("categoryId")
	if err := r.Err(); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (p Product) Encode() dyn.Value {
	m := dyn.Map{"productId": dyn.String(p.ID)}
	if p.CategoryID != "" {
		m["categoryId"] = dyn.String(p.CategoryID)
	}
	return m
}

// Parameters are the mbox, profile, order and product parameters sent
// with a request. Every part is optional.
type Parameters struct {
	Parameters        map[string]string
	ProfileParameters map[string]string
	Order             *Order
	Product           *Product
}

func DecodeParameters(v dyn.Value) (Parameters, error) {
	r := codec.NewReader("TargetParameters", v)
	var p Parameters
	p.Parameters, _ = r.StringMap("parameters")
	p.ProfileParameters, _ = r.StringMap("profileParameters")
	r.Object("order", func(v dyn.Value) error {
		o, err := DecodeOrder(v)
		p.Order = &o
		return err
	})
	r.Object("product", func(v dyn.Value) error {
		pr, err := DecodeProduct(v)
		p.Product = &pr
		return err
	})
	if err := r.Err(); err != nil {
		return Parameters{}, err
	}
	return p, nil
}

// DecodeOptionalParameters returns nil for a nil or null value.
func DecodeOptionalParameters(v dyn.Value) (*Parameters, error) {
	if v == nil || dyn.IsNull(v) {
		return nil, nil
	}
	p, err := DecodeParameters(v)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (p Parameters) Encode() dyn.Value {
	m := dyn.Map{}
	if p.Parameters != nil {
		m["parameters"] = codec.StringMapValue(p.Parameters)
	}
	if p.ProfileParameters != nil {
		m["profileParameters"] = codec.StringMapValue(p.ProfileParameters)
	}
	if p.Order != nil {
		m["order"] = p.Order.Encode()
	}
	if p.Product != nil {
		m["product"] = p.Product.Encode()
	}
	return m
}

// Prefetch names an mbox whose content should be cached ahead of use.
type Prefetch struct {
	Name       string
	Parameters *Parameters
}

func DecodePrefetch(v dyn.Value) (Prefetch, error) {
	r := codec.NewReader("TargetPrefetch", v)
	p := Prefetch{Name: r.RequiredString("name")}
	r.Object("targetParameters", func(v dyn.Value) error {
		tp, err := DecodeParameters(v)
		p.Parameters = &tp
		return err
	})
	if err := r.Err(); err != nil {
		return Prefetch{}, err
	}
	return p, nil
}

// Request is a registered location request. Content retrieved for it is
// delivered as an event carrying ID.
type Request struct {
	ID             string
	Name           string
	DefaultContent string
	Parameters     *Parameters
}

// DecodeRequest requires id and name.
func DecodeRequest(v dyn.Value) (Request, error) {
	r := codec.NewReader("TargetRequest", v)
	req := Request{
		ID:   r.RequiredString("id"),
		Name: r.RequiredString("name"),
	}
	req.DefaultContent, _ = r.String("defaultContent")
	r.Object("targetParameters", func(v dyn.Value) error {
		tp, err := DecodeParameters(v)
		req.Parameters = &tp
		return err
	})
	if err := r.Err(); err != nil {
		return Request{}, err
	}
	return req, nil
}

func (req Request) Encode() dyn.Value {
	m := dyn.Map{
		"id":   dyn.String(req.ID),
		"name": dyn.String(req.Name),
	}
	if req.DefaultContent != "" {
		m["defaultContent"] = dyn.String(req.DefaultContent)
	}
	if req.Parameters != nil {
		m["targetParameters"] = req.Parameters.Encode()
	}
	return m
}
