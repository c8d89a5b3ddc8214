package pollution

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu      sync.RWMutex
	nextID  int
	records []Record
}

// NewInMemoryRepository creates a new in-memory pollution repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{nextID: 1}
}

// BulkInsert stores the given records.
func (r *InMemoryRepository) BulkInsert(_ context.Context, records []Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.insertLocked(records)
	return nil
}

// QueryRange returns the city's records in [start, end], ordered by date.
func (r *InMemoryRepository) QueryRange(_ context.Context, cityID int, start, end time.Time, opts QueryOptions) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []Record
	for _, rec := range r.records {
		if rec.CityID == cityID && !rec.Date.Before(start) && !rec.Date.After(end) {
			matched = append(matched, rec)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Date.Before(matched[j].Date) })

	if opts.Offset > 0 {
		if opts.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}
	return matched, nil
}

// DeleteRange removes the city's records in [start, end].
func (r *InMemoryRepository) DeleteRange(_ context.Context, cityID int, start, end time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.deleteLocked(cityID, start, end), nil
}

// ReplaceRange replaces the city's records in [start, end] with the given ones.
func (r *InMemoryRepository) ReplaceRange(_ context.Context, cityID int, start, end time.Time, records []Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.deleteLocked(cityID, start, end)
	r.insertLocked(records)
	return nil
}

// DeleteByCity removes all records owned by a city. Supports the city
// repository's cascading delete.
func (r *InMemoryRepository) DeleteByCity(cityID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.records[:0]
	for _, rec := range r.records {
		if rec.CityID != cityID {
			kept = append(kept, rec)
		}
	}
	r.records = kept
}

func (r *InMemoryRepository) insertLocked(records []Record) {
	for _, rec := range records {
		id := r.nextID
		r.nextID++
		rec.ID = &id
		r.records = append(r.records, rec)
	}
}

func (r *InMemoryRepository) deleteLocked(cityID int, start, end time.Time) int64 {
	var deleted int64
	kept := r.records[:0]
	for _, rec := range r.records {
		if rec.CityID == cityID && !rec.Date.Before(start) && !rec.Date.After(end) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return deleted
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
