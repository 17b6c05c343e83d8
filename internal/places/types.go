package places

import (
	"fmt"

	"github.com/roach88/aepbridge/internal/codec"
	"github.com/roach88/aepbridge/internal/dyn"
)

// AuthStatus is the device location authorization reported to Places.
type AuthStatus int

const (
	AuthUnknown AuthStatus = iota
	AuthDenied
	AuthAlways
	AuthRestricted
	AuthWhenInUse
)

var AuthStatuses = codec.NewEnum("PlacesAuthStatus", AuthUnknown, map[AuthStatus]string{
	AuthUnknown:    "PLACES_AUTH_STATUS_UNKNOWN",
	AuthDenied:     "PLACES_AUTH_STATUS_DENIED",
	AuthAlways:     "PLACES_AUTH_STATUS_ALWAYS",
	AuthRestricted: "PLACES_AUTH_STATUS_RESTRICTED",
	AuthWhenInUse:  "PLACES_AUTH_STATUS_WHEN_IN_USE",
})

// Transition is a geofence transition type.
type Transition int

const (
	TransitionEnter Transition = 1
	TransitionExit  Transition = 2
	TransitionDwell Transition = 4
)

func (t Transition) Valid() bool {
	return t == TransitionEnter || t == TransitionExit || t == TransitionDwell
}

// NeverExpire is the geofence expiration used when none is given.
const NeverExpire int64 = -1

type Location struct {
	Latitude  float64
	Longitude float64
}

// DecodeLocation requires both coordinates.
func DecodeLocation(v dyn.Value) (Location, error) {
	r := codec.NewReader("PlacesLocation", v)
	loc := Location{
		Latitude:  r.RequiredNumber("latitude"),
		Longitude: r.RequiredNumber("longitude"),
	}
	if err := r.Err(); err != nil {
		return Location{}, err
	}
	return loc, nil
}

func (l Location) Encode() dyn.Value {
	return dyn.Map{
		"latitude":  dyn.NewNumber(l.Latitude),
		"longitude": dyn.NewNumber(l.Longitude),
	}
}

// POI is a point of interest.
type POI struct {
	Identifier   string
	Name         string
	Latitude     float64
	Longitude    float64
	Radius       float64
	UserIsWithin bool
	Library      string
	Weight       int64
	Metadata     map[string]string
}

func (p POI) Encode() dyn.Value {
	return dyn.Map{
		"identifier":   dyn.String(p.Identifier),
		"name":         dyn.String(p.Name),
		"latitude":     dyn.NewNumber(p.Latitude),
		"longitude":    dyn.NewNumber(p.Longitude),
		"radius":       dyn.NewNumber(p.Radius),
		"userIsWithin": dyn.Bool(p.UserIsWithin),
		"library":      dyn.String(p.Library),
		"weight":       dyn.NewInt(p.Weight),
		"metadata":     codec.StringMapValue(p.Metadata),
	}
}

// DecodePOI requires identifier and coordinates.
func DecodePOI(v dyn.Value) (POI, error) {
	r := codec.NewReader("PlacesPOI", v)
	p := POI{
		Identifier: r.RequiredString("identifier"),
		Latitude:   r.RequiredNumber("latitude"),
		Longitude:  r.RequiredNumber("longitude"),
	}
	p.Name, _ = r.String("name")
	p.Radius, _ = r.Number("radius")
	p.UserIsWithin, _ = r.Bool("userIsWithin")
	p.Library, _ = r.String("library")
	p.Weight, _ = r.Int("weight")
	p.Metadata, _ = r.StringMap("metadata")
	if err := r.Err(); err != nil {
		return POI{}, err
	}
	return p, nil
}

// Geofence is a circular region reported by the host's location service.
type Geofence struct {
	Identifier         string
	Latitude           float64
	Longitude          float64
	Radius             float64
	ExpirationDuration int64
}

// DecodeGeofence requires identifier, coordinates and radius. A missing
// expirationDuration means the geofence never expires.
func DecodeGeofence(v dyn.Value) (Geofence, error) {
	r := codec.NewReader("PlacesGeofence", v)
	g := Geofence{
		Identifier: r.RequiredString("identifier"),
		Latitude:   r.RequiredNumber("latitude"),
		Longitude:  r.RequiredNumber("longitude"),
		Radius:     r.RequiredNumber("radius"),
	}
	g.ExpirationDuration = r.IntOr("expirationDuration", NeverExpire)
	if err := r.Err(); err != nil {
		return Geofence{}, err
	}
	return g, nil
}

func (g Geofence) Encode() dyn.Value {
	return dyn.Map{
		"identifier":         dyn.String(g.Identifier),
		"latitude":           dyn.NewNumber(g.Latitude),
		"longitude":          dyn.NewNumber(g.Longitude),
		"radius":             dyn.NewNumber(g.Radius),
		"expirationDuration": dyn.NewInt(g.ExpirationDuration),
	}
}

// RequestError is a failed Places service query.
type RequestError int

const (
	ErrConnectivity RequestError = iota + 1
	ErrServerResponse
	ErrInvalidLatLong
	ErrConfiguration
	ErrQueryServiceUnavailable
	ErrPrivacyOptedOut
	ErrUnknown
)

var requestErrorNames = map[RequestError]string{
	ErrConnectivity:            "CONNECTIVITY_ERROR",
	ErrServerResponse:          "SERVER_RESPONSE_ERROR",
	ErrInvalidLatLong:          "INVALID_LATLONG_ERROR",
	ErrConfiguration:           "CONFIGURATION_ERROR",
	ErrQueryServiceUnavailable: "QUERY_SERVICE_UNAVAILABLE",
	ErrPrivacyOptedOut:         "PRIVACY_OPTED_OUT",
	ErrUnknown:                 "UNKNOWN_ERROR",
}

func (e RequestError) Error() string {
	if name, ok := requestErrorNames[e]; ok {
		return name
	}
	return fmt.Sprintf("places request error %d", int(e))
}

// RequestErrorByName resolves a request error name; unknown names map to
// ErrUnknown.
func RequestErrorByName(name string) RequestError {
	for e, n := range requestErrorNames {
		if n == name {
			return e
		}
	}
	return ErrUnknown
}
