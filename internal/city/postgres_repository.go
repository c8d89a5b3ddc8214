package city

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// The pollution table declares city_id with ON DELETE CASCADE, so deleting
// a city removes its records at the database level.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL city repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const cityColumns = `id, name, state, country, county, lat, lon, time_created, time_updated`

// Create stores a new city, returning the existing row when the exact
// (name, lat, lon) triple is already present.
func (r *PostgresRepository) Create(ctx context.Context, c *City) (*City, error) {
	existing, err := r.SearchByNameAndCoordinates(ctx, c.Name, c.Lat, c.Lon)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrCityNotFound) {
		return nil, err
	}

	query := `
		INSERT INTO cities (name, state, country, county, lat, lon, time_created)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, time_created
	`
	created := *c
	now := time.Now().UTC()
	err = r.pool.QueryRow(ctx, query,
		c.Name, c.State, c.Country, c.County, c.Lat, c.Lon, now,
	).Scan(&created.ID, &created.TimeCreated)
	if err != nil {
		return nil, fmt.Errorf("create city: %w", err)
	}
	return &created, nil
}

// GetByID retrieves a city by ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id int) (*City, error) {
	query := `SELECT ` + cityColumns + ` FROM cities WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetByCoordinates retrieves the first city within the tolerance window.
func (r *PostgresRepository) GetByCoordinates(ctx context.Context, lat, lon, tolerance float64) (*City, error) {
	query := `
		SELECT ` + cityColumns + `
		FROM cities
		WHERE lat BETWEEN $1 AND $2 AND lon BETWEEN $3 AND $4
		ORDER BY id
		LIMIT 1
	`
	row := r.pool.QueryRow(ctx, query, lat-tolerance, lat+tolerance, lon-tolerance, lon+tolerance)
	return r.scanOne(row)
}

// SearchByNameAndCoordinates retrieves a city by exact (name, lat, lon).
func (r *PostgresRepository) SearchByNameAndCoordinates(ctx context.Context, name string, lat, lon float64) (*City, error) {
	query := `SELECT ` + cityColumns + ` FROM cities WHERE name = $1 AND lat = $2 AND lon = $3`
	return r.scanOne(r.pool.QueryRow(ctx, query, name, lat, lon))
}

// List retrieves stored cities ordered by ID.
func (r *PostgresRepository) List(ctx context.Context, opts ListOptions) ([]City, error) {
	query := `SELECT ` + cityColumns + ` FROM cities ORDER BY id`
	args := []any{}
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
		return nil, fmt.Errorf("list cities: %w", err)
	}
	defer rows.Close()

	var cities []City
	for rows.Next() {
		var c City
		if err := rows.Scan(
			&c.ID, &c.Name, &c.State, &c.Country, &c.County,
			&c.Lat, &c.Lon, &c.TimeCreated, &c.TimeUpdated,
		); err != nil {
			return nil, fmt.Errorf("scan city row: %w", err)
		}
		cities = append(cities, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cities, nil
}

// Delete removes a city; its pollution records cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id int) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM cities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete city: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrCityNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(row pgx.Row) (*City, error) {
	var c City
	err := row.Scan(
		&c.ID, &c.Name, &c.State, &c.Country, &c.County,
		&c.Lat, &c.Lon, &c.TimeCreated, &c.TimeUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCityNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
