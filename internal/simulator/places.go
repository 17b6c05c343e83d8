package simulator

import (
	"math"
	"sort"

	"github.com/roach88/aepbridge/internal/aep"
	"github.com/roach88/aepbridge/internal/codec"
	"github.com/roach88/aepbridge/internal/dyn"
	"github.com/roach88/aepbridge/internal/places"
)

const earthRadiusMeters = 6371e3

type placesState struct {
	pois      []places.POI
	within    map[string]bool
	lastKnown *places.Location
	auth      places.AuthStatus
}

func newPlacesState(f *Fixture) (*placesState, error) {
	st := &placesState{within: map[string]bool{}}
	pois, err := codec.DecodeList("PlacesFixture", f.POIs, places.DecodePOI)
	if err != nil {
		return nil, err
	}
	st.pois = pois
	for _, p := range pois {
		if p.UserIsWithin {
			st.within[p.Identifier] = true
		}
	}
	if !dyn.IsNull(f.LastKnownLocation) {
		loc, err := places.DecodeLocation(f.LastKnownLocation)
		if err != nil {
			return nil, codec.WithPath("PlacesFixture", "lastKnownLocation", err)
		}
		st.lastKnown = &loc
	}
	return st, nil
}

// placesFailure maps a configured failure name to a Places request error
// when it names one, and to a general vendor error otherwise.
func placesFailure(name string) error {
	if re := places.RequestErrorByName(name); re != places.ErrUnknown || name == places.ErrUnknown.Error() {
		return re
	}
	return aep.ErrorByName(name)
}

// distance is the great-circle distance in meters.
func distance(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

type placesPort struct{ s *Simulator }

func (p placesPort) ExtensionVersion() string { return p.s.version(places.Name) }

// GetNearbyPointsOfInterest returns up to limit fixture POIs ordered by
// distance from loc and records loc as the last known location. POIs whose
// radius covers loc are entered.
func (p placesPort) GetNearbyPointsOfInterest(loc places.Location, limit int, done func([]places.POI, error)) {
	if name, failed := p.s.record("AEPPlaces.getNearbyPointsOfInterest", loc.Encode(), dyn.NewInt(int64(limit))); failed {
		done(nil, placesFailure(name))
		return
	}
	p.s.mu.Lock()
	st := p.s.places
	type ranked struct {
		poi  places.POI
		dist float64
	}
	all := make([]ranked, 0, len(st.pois))
	for _, poi := range st.pois {
		d := distance(loc.Latitude, loc.Longitude, poi.Latitude, poi.Longitude)
		all = append(all, ranked{poi, d})
		st.within[poi.Identifier] = d <= poi.Radius
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].dist < all[j].dist })
	if limit >= 0 && limit < len(all) {
		all = all[:limit]
	}
	out := make([]places.POI, len(all))
	for i, r := range all {
		out[i] = r.poi
		out[i].UserIsWithin = st.within[r.poi.Identifier]
	}
	l := loc
	st.lastKnown = &l
	p.s.mu.Unlock()
	done(out, nil)
}

func (p placesPort) GetCurrentPointsOfInterest(done func([]places.POI, error)) {
	if name, failed := p.s.record("AEPPlaces.getCurrentPointsOfInterest"); failed {
		done(nil, placesFailure(name))
		return
	}
	p.s.mu.Lock()
	out := []places.POI{}
	for _, poi := range p.s.places.pois {
		if p.s.places.within[poi.Identifier] {
			poi.UserIsWithin = true
			out = append(out, poi)
		}
	}
	p.s.mu.Unlock()
	done(out, nil)
}

func (p placesPort) GetLastKnownLocation(done func(*places.Location, error)) {
	if name, failed := p.s.record("AEPPlaces.getLastKnownLocation"); failed {
		done(nil, placesFailure(name))
		return
	}
	p.s.mu.Lock()
	var loc *places.Location
	if p.s.places.lastKnown != nil {
		l := *p.s.places.lastKnown
		loc = &l
	}
	p.s.mu.Unlock()
	done(loc, nil)
}

// ProcessGeofence enters or exits the POI sharing the geofence identifier.
// Dwell changes nothing.
func (p placesPort) ProcessGeofence(g places.Geofence, t places.Transition) {
	p.s.record("AEPPlaces.processGeofence", g.Encode(), dyn.NewInt(int64(t)))
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	switch t {
	case places.TransitionEnter:
		p.s.places.within[g.Identifier] = true
	case places.TransitionExit:
		delete(p.s.places.within, g.Identifier)
	}
}

func (p placesPort) Clear() {
	p.s.record("AEPPlaces.clear")
	p.s.mu.Lock()
	p.s.places.within = map[string]bool{}
	p.s.places.lastKnown = nil
	p.s.mu.Unlock()
}

func (p placesPort) SetAuthorizationStatus(status places.AuthStatus) {
	p.s.record("AEPPlaces.setAuthorizationStatus", places.AuthStatuses.EncodeValue(status))
	p.s.mu.Lock()
	p.s.places.auth = status
	p.s.mu.Unlock()
}
