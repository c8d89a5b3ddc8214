// Package airquality defines the outbound air-pollution provider boundary.
package airquality

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable indicates the upstream provider could not serve the request.
// Callers translate it into an upstream-failure response; the import either
// fully succeeds or nothing is written.
var ErrUnavailable = errors.New("pollution provider unavailable")

// RawSample is a single timestamped reading as returned by the provider.
// Pollutant concentrations are µg/m³ and nullable: the provider may omit
// individual components for a given hour.
type RawSample struct {
	CO   *float64
	NO   *float64
	NO2  *float64
	O3   *float64
	SO2  *float64
	PM25 *float64
	PM10 *float64
	NH3  *float64

	// Timestamp is the Unix time of the reading.
	Timestamp int64
}

// Time returns the sample timestamp as UTC time.
func (s RawSample) Time() time.Time {
	return time.Unix(s.Timestamp, 0).UTC()
}

// Provider fetches historical pollution readings for a location.
type Provider interface {
	// FetchPollution returns all raw samples between start and end
	// (Unix timestamps, inclusive) for the given coordinates.
	FetchPollution(ctx context.Context, lat, lon float64, start, end int64) ([]RawSample, error)
}
