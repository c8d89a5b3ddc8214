package city

import (
	"context"
	"errors"
)

// Repository errors.
var (
	ErrCityNotFound = errors.New("city not found")
)

// DefaultCoordinateTolerance is the window, in degrees, used when looking a
// city up by coordinates. Repeated geocoder queries rarely return
// bit-identical coordinates for the same place.
const DefaultCoordinateTolerance = 0.01

// ListOptions controls pagination of city listings.
// Zero values mean no limit and no offset.
type ListOptions struct {
	Limit  int
	Offset int
}

// Repository defines the interface for city persistence.
type Repository interface {
	// Create stores a new city and returns it with its assigned ID.
	// Creation is idempotent by (name, lat, lon): if an identical triple
	// already exists, the existing city is returned untouched.
	Create(ctx context.Context, c *City) (*City, error)

	// GetByID retrieves a city by ID.
	GetByID(ctx context.Context, id int) (*City, error)

	// GetByCoordinates retrieves the first city whose coordinates lie
	// within tolerance degrees of (lat, lon).
	GetByCoordinates(ctx context.Context, lat, lon, tolerance float64) (*City, error)

	// SearchByNameAndCoordinates retrieves a city by exact (name, lat, lon).
	SearchByNameAndCoordinates(ctx context.Context, name string, lat, lon float64) (*City, error)

	// List retrieves stored cities with pagination.
	List(ctx context.Context, opts ListOptions) ([]City, error)

	// Delete removes a city and, by ownership, all its pollution records.
	Delete(ctx context.Context, id int) error
}
