package geocode

import (
	"errors"
	"testing"

	geo "github.com/codingsince1985/geo-golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	loc *geo.Location
	err error
}

func (s stubBackend) Geocode(address string) (*geo.Location, error) { return s.loc, s.err }

func (s stubBackend) ReverseGeocode(lat, lng float64) (*geo.Address, error) {
	return nil, errors.New("not implemented")
}

func TestLookup(t *testing.T) {
	g := NewWithBackend(stubBackend{loc: &geo.Location{Lat: 52.1, Lng: 5.18}})

	loc, err := g.Lookup("De Bilt, Netherlands")
	require.NoError(t, err)
	assert.Equal(t, "De Bilt, Netherlands", loc.Name)
	assert.Equal(t, 52.1, loc.Lat)
	assert.Equal(t, 5.18, loc.Lon)
}

func TestLookupNoMatch(t *testing.T) {
	g := NewWithBackend(stubBackend{loc: nil})

	_, err := g.Lookup("Nowhereville Qzx")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "Nowhereville Qzx")
}

func TestLookupBackendError(t *testing.T) {
	backendErr := errors.New("connection refused")
	g := NewWithBackend(stubBackend{err: backendErr})

	_, err := g.Lookup("Toronto")
	require.Error(t, err)
	assert.ErrorIs(t, err, backendErr)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestLookupRejectsBogusCoordinates(t *testing.T) {
	g := NewWithBackend(stubBackend{loc: &geo.Location{Lat: 512, Lng: 5}})

	_, err := g.Lookup("Toronto")
	assert.Error(t, err)
}
