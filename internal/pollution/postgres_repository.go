package pollution

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL pollution repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

var pollutionColumns = []string{"co", "no", "no2", "o3", "so2", "pm2_5", "pm10", "nh3", "date", "city_id"}

// BulkInsert stores the given records using the COPY protocol.
func (r *PostgresRepository) BulkInsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"pollution"},
		pollutionColumns,
		copySourceFor(records),
	)
	if err != nil {
		return fmt.Errorf("bulk insert pollution: %w", err)
	}
	return nil
}

// QueryRange returns the city's records in [start, end], ordered by date.
func (r *PostgresRepository) QueryRange(ctx context.Context, cityID int, start, end time.Time, opts QueryOptions) ([]Record, error) {
	query := `
		SELECT id, co, no, no2, o3, so2, pm2_5, pm10, nh3, date, city_id
		FROM pollution
		WHERE city_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`
	args := []any{cityID, start, end}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pollution range: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID,
			&rec.CO, &rec.NO, &rec.NO2, &rec.O3,
			&rec.SO2, &rec.PM25, &rec.PM10, &rec.NH3,
			&rec.Date, &rec.CityID,
		); err != nil {
			return nil, fmt.Errorf("scan pollution row: %w", err)
		}
		rec.Date = DateOf(rec.Date)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteRange removes the city's records in [start, end].
func (r *PostgresRepository) DeleteRange(ctx context.Context, cityID int, start, end time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM pollution WHERE city_id = $1 AND date >= $2 AND date <= $3`,
		cityID, start, end,
	)
	if err != nil {
		return 0, fmt.Errorf("delete pollution range: %w", err)
	}
	return result.RowsAffected(), nil
}

// ReplaceRange deletes and re-inserts the city's records for a date range
// inside a single transaction, so a crash mid-import cannot leave the range
// half-written.
func (r *PostgresRepository) ReplaceRange(ctx context.Context, cityID int, start, end time.Time, records []Record) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	_, err = tx.Exec(ctx,
		`DELETE FROM pollution WHERE city_id = $1 AND date >= $2 AND date <= $3`,
		cityID, start, end,
	)
	if err != nil {
		return fmt.Errorf("delete pollution range: %w", err)
	}

	if len(records) > 0 {
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"pollution"}, pollutionColumns, copySourceFor(records))
		if err != nil {
			return fmt.Errorf("insert pollution records: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace transaction: %w", err)
	}
	return nil
}

// copySourceFor adapts records to the pgx COPY protocol.
func copySourceFor(records []Record) pgx.CopyFromSource {
	return pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		rec := records[i]
		return []any{
			rec.CO, rec.NO, rec.NO2, rec.O3,
			rec.SO2, rec.PM25, rec.PM10, rec.NH3,
			rec.Date, rec.CityID,
		}, nil
	})
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
