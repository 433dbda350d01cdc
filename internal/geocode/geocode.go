// Package geocode resolves place names to coordinates through OSM Nominatim.
package geocode

import (
	"errors"
	"fmt"

	geo "github.com/codingsince1985/geo-golang"
	"github.com/codingsince1985/geo-golang/openstreetmap"

	"github.com/cdurand/climatrend/internal/models"
)

// ErrNotFound means the service answered but had no match for the name.
var ErrNotFound = errors.New("location not found")

// Resolver turns a place name into coordinates.
type Resolver interface {
	Lookup(name string) (models.Location, error)
}

type Geocoder struct {
	geocoder geo.Geocoder
}

// New returns a Nominatim-backed geocoder. A base URL can be supplied to point
// at a self-hosted instance (or a test server).
func New(baseURL ...string) *Geocoder {
	if len(baseURL) > 0 {
		return &Geocoder{geocoder: openstreetmap.GeocoderWithURL(baseURL[0])}
	}
	return &Geocoder{geocoder: openstreetmap.Geocoder()}
}

// NewWithBackend wraps an existing geo.Geocoder implementation.
func NewWithBackend(g geo.Geocoder) *Geocoder {
	return &Geocoder{geocoder: g}
}

func (g *Geocoder) Lookup(name string) (models.Location, error) {
	loc, err := g.geocoder.Geocode(name)
	if err != nil {
		return models.Location{}, fmt.Errorf("geocoding %q: %w", name, err)
	}
	if loc == nil {
		return models.Location{}, fmt.Errorf("geocoding %q: %w", name, ErrNotFound)
	}

	resolved := models.Location{Name: name, Lat: loc.Lat, Lon: loc.Lng}
	if !resolved.Valid() {
		return models.Location{}, fmt.Errorf("geocoding %q: coordinates out of range (%f, %f)", name, loc.Lat, loc.Lng)
	}
	return resolved, nil
}
