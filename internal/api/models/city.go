package models

import "github.com/cityair/cityair/internal/city"

// CityItem is a stored city on the wire.
type CityItem struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	State       *string    `json:"state,omitempty"`
	Country     string     `json:"country"`
	County      *string    `json:"county,omitempty"`
	Lat         float64    `json:"lat"`
	Lon         float64    `json:"lon"`
	TimeCreated Timestamp  `json:"time_created"`
	TimeUpdated *Timestamp `json:"time_updated,omitempty"`
}

// CityItemFromCity converts a domain city to its wire form.
func CityItemFromCity(c *city.City) CityItem {
	item := CityItem{
		ID:          c.ID,
		Name:        c.Name,
		State:       c.State,
		Country:     c.Country,
		County:      c.County,
		Lat:         c.Lat,
		Lon:         c.Lon,
		TimeCreated: Timestamp(c.TimeCreated),
	}
	if c.TimeUpdated != nil {
		ts := Timestamp(*c.TimeUpdated)
		item.TimeUpdated = &ts
	}
	return item
}

// CityList is the response body for city listing and search.
type CityList struct {
	Data []CityItem `json:"data"`
}
