package pollution

import (
	"context"
	"errors"
	"time"
)

// Repository errors.
var (
	// ErrNoPollutionData indicates that no pollution records exist (or were
	// fetched) for the requested city and date range.
	ErrNoPollutionData = errors.New("pollution data not found")
)

// QueryOptions controls pagination of range queries.
// Zero values mean no limit and no offset.
type QueryOptions struct {
	Limit  int
	Offset int
}

// Repository defines the interface for pollution record persistence.
type Repository interface {
	// BulkInsert stores the given records.
	BulkInsert(ctx context.Context, records []Record) error

	// QueryRange returns the city's records with start <= date <= end,
	// ordered ascending by date.
	QueryRange(ctx context.Context, cityID int, start, end time.Time, opts QueryOptions) ([]Record, error)

	// DeleteRange removes the city's records with start <= date <= end and
	// returns the number of rows removed.
	DeleteRange(ctx context.Context, cityID int, start, end time.Time) (int64, error)

	// ReplaceRange atomically replaces the city's records in the given date
	// range with the supplied ones. Delete and insert happen inside a single
	// transaction: a failure leaves the previous data untouched.
	ReplaceRange(ctx context.Context, cityID int, start, end time.Time, records []Record) error
}
