package city

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	nextID int
	cities map[int]*City

	// OnDelete, if set, is invoked with the deleted city's ID. Tests use it
	// to mimic the database-level cascade onto pollution records.
	OnDelete func(cityID int)
}

// NewInMemoryRepository creates a new in-memory city repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		nextID: 1,
		cities: make(map[int]*City),
	}
}

// Create stores a new city, idempotent by (name, lat, lon).
func (r *InMemoryRepository) Create(_ context.Context, c *City) (*City, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.cities {
		if existing.Name == c.Name && existing.Lat == c.Lat && existing.Lon == c.Lon {
			cpy := *existing
			return &cpy, nil
		}
	}

	created := *c
	created.ID = r.nextID
	created.TimeCreated = time.Now().UTC()
	r.nextID++
	r.cities[created.ID] = &created

	cpy := created
	return &cpy, nil
}

// GetByID retrieves a city by ID.
func (r *InMemoryRepository) GetByID(_ context.Context, id int) (*City, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.cities[id]
	if !ok {
		return nil, ErrCityNotFound
	}
	cpy := *c
	return &cpy, nil
}

// GetByCoordinates retrieves the first city within the tolerance window.
func (r *InMemoryRepository) GetByCoordinates(_ context.Context, lat, lon, tolerance float64) (*City, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int, 0, len(r.cities))
	for id := range r.cities {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		c := r.cities[id]
		if math.Abs(c.Lat-lat) <= tolerance && math.Abs(c.Lon-lon) <= tolerance {
			cpy := *c
			return &cpy, nil
		}
	}
	return nil, ErrCityNotFound
}

// SearchByNameAndCoordinates retrieves a city by exact (name, lat, lon).
func (r *InMemoryRepository) SearchByNameAndCoordinates(_ context.Context, name string, lat, lon float64) (*City, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.cities {
		if c.Name == name && c.Lat == lat && c.Lon == lon {
			cpy := *c
			return &cpy, nil
		}
	}
	return nil, ErrCityNotFound
}

// List retrieves stored cities ordered by ID.
func (r *InMemoryRepository) List(_ context.Context, opts ListOptions) ([]City, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int, 0, len(r.cities))
	for id := range r.cities {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var cities []City
	for _, id := range ids {
		cities = append(cities, *r.cities[id])
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(cities) {
			return nil, nil
		}
		cities = cities[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(cities) {
		cities = cities[:opts.Limit]
	}
	return cities, nil
}

// Delete removes a city, cascading via OnDelete if set.
func (r *InMemoryRepository) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	if _, ok := r.cities[id]; !ok {
		r.mu.Unlock()
		return ErrCityNotFound
	}
	delete(r.cities, id)
	onDelete := r.OnDelete
	r.mu.Unlock()

	if onDelete != nil {
		onDelete(id)
	}
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
