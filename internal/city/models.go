// Package city provides the city domain: persistence, and resolution of
// coordinates and place names to city records via the geocoder.
package city

import (
	"time"

	"github.com/cityair/cityair/internal/geocoding"
)

// City represents a geocoded city or town that owns pollution records.
type City struct {
	// ID is the persistence-assigned identifier; zero before creation.
	ID int

	// Name is the city or town name.
	Name string

	State   *string
	Country string
	County  *string

	Lat float64
	Lon float64

	TimeCreated time.Time
	TimeUpdated *time.Time
}

// FromRawLocation converts a geocoder result into a City candidate.
// Non-city locations and results without a usable name yield nil.
func FromRawLocation(loc geocoding.RawLocation) *City {
	if !loc.IsCity() {
		return nil
	}
	name := loc.Name()
	if name == "" {
		return nil
	}

	c := &City{
		Name:    name,
		Country: loc.Country,
		Lat:     loc.Lat,
		Lon:     loc.Lon,
	}
	if loc.State != "" {
		state := loc.State
		c.State = &state
	}
	if loc.County != "" {
		county := loc.County
		c.County = &county
	}
	return c
}
