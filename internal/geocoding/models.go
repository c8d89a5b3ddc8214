// Package geocoding defines the outbound geocoder boundary.
package geocoding

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the geocoder could not serve the request.
var ErrUnavailable = errors.New("geocoder unavailable")

// Location types returned by the geocoder that qualify as a city match.
const (
	TypeCity = "city"
	TypeTown = "town"
)

// RawLocation is a single geocoder result before conversion to a City.
type RawLocation struct {
	// Type is the administrative classification ("city", "town",
	// "village", "road", ...).
	Type string

	// City and Town carry the place name; depending on Type only one of
	// them is set.
	City string
	Town string

	State   string
	Country string
	County  string

	Lat float64
	Lon float64
}

// Name returns the place name, preferring the city component.
func (l RawLocation) Name() string {
	if l.City != "" {
		return l.City
	}
	return l.Town
}

// IsCity reports whether the location classifies as a city or town.
func (l RawLocation) IsCity() bool {
	return l.Type == TypeCity || l.Type == TypeTown
}

// Geocoder resolves coordinates and names to candidate locations.
type Geocoder interface {
	// ReverseGeocode returns all locations found at the given coordinates.
	ReverseGeocode(ctx context.Context, lat, lon float64) ([]RawLocation, error)

	// SearchByName returns all locations matching the given place name.
	SearchByName(ctx context.Context, name string) ([]RawLocation, error)
}
