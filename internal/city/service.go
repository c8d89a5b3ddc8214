package city

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/cityair/cityair/internal/geocoding"
)

// ResolutionTolerance is the maximum distance, in degrees, between the
// requested coordinates and a geocoder candidate for the candidate to be
// accepted. Reverse and forward geocoding rarely agree on a city's
// canonical coordinate to machine precision.
const ResolutionTolerance = 0.5

// ErrNoCityMatch indicates the geocoder returned no city or town candidate
// within the resolution tolerance.
var ErrNoCityMatch = errors.New("no city matched the given coordinates")

// Service provides city lookup, resolution, and management.
type Service struct {
	repo     Repository
	geocoder geocoding.Geocoder
	logger   zerolog.Logger
}

// ServiceConfig holds configuration for creating a city Service.
type ServiceConfig struct {
	Repository Repository
	Geocoder   geocoding.Geocoder
	Logger     zerolog.Logger
}

// NewService creates a new city service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:     cfg.Repository,
		geocoder: cfg.Geocoder,
		logger:   cfg.Logger,
	}
}

// LookupOrResolve finds the city for the given coordinates and optional
// name, first in storage, then via the geocoder. A geocoder hit is persisted
// before being returned, so subsequent imports reuse the stored row.
func (s *Service) LookupOrResolve(ctx context.Context, lat, lon float64, name string) (*City, error) {
	var (
		stored *City
		err    error
	)
	if name != "" {
		stored, err = s.repo.SearchByNameAndCoordinates(ctx, name, lat, lon)
	} else {
		stored, err = s.repo.GetByCoordinates(ctx, lat, lon, DefaultCoordinateTolerance)
	}
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, ErrCityNotFound) {
		return nil, err
	}

	resolved, err := s.Resolve(ctx, lat, lon, name)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, resolved)
	if err != nil {
		return nil, fmt.Errorf("persist resolved city: %w", err)
	}

	s.logger.Info().
		Str("city", created.Name).
		Float64("lat", created.Lat).
		Float64("lon", created.Lon).
		Int("city_id", created.ID).
		Msg("city resolved and created")

	return created, nil
}

// Resolve queries the geocoder by reverse lookup and by name, merges both
// result sets, keeps only city and town entries, and accepts the first
// candidate whose coordinates lie within ResolutionTolerance of the request.
func (s *Service) Resolve(ctx context.Context, lat, lon float64, name string) (*City, error) {
	byCoords, err := s.geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	var byName []geocoding.RawLocation
	if name != "" {
		byName, err = s.geocoder.SearchByName(ctx, name)
		if err != nil {
			return nil, err
		}
	}

	// Name matches first: a forward lookup for an explicit name is more
	// specific than whatever surrounds the coordinates.
	candidates := append(byName, byCoords...)

	for _, loc := range candidates {
		candidate := FromRawLocation(loc)
		if candidate == nil {
			continue
		}
		if math.Abs(candidate.Lat-lat) < ResolutionTolerance && math.Abs(candidate.Lon-lon) < ResolutionTolerance {
			return candidate, nil
		}
	}
	return nil, ErrNoCityMatch
}

// SearchByName returns all city and town candidates the geocoder knows for
// a place name, without touching storage.
func (s *Service) SearchByName(ctx context.Context, name string) ([]City, error) {
	locations, err := s.geocoder.SearchByName(ctx, name)
	if err != nil {
		return nil, err
	}

	var cities []City
	for _, loc := range locations {
		if c := FromRawLocation(loc); c != nil {
			cities = append(cities, *c)
		}
	}
	if len(cities) == 0 {
		return nil, ErrCityNotFound
	}
	return cities, nil
}

// Get retrieves a stored city by ID.
func (s *Service) Get(ctx context.Context, id int) (*City, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves stored cities with pagination.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]City, error) {
	return s.repo.List(ctx, opts)
}

// Delete removes a city and all its pollution records.
func (s *Service) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}
