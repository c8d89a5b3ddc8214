package pollution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cityair/cityair/internal/airquality"
	"github.com/cityair/cityair/internal/city"
)

// Renderer turns aggregated pollution records into an image artifact.
// Implementations return the artifact's public URL, or an empty URL for
// empty input.
type Renderer interface {
	Render(records []Record, c *city.City) (string, error)
}

// Service provides pollution import, retrieval, and deletion for cities.
type Service struct {
	cities   *city.Service
	repo     Repository
	provider airquality.Provider
	renderer Renderer
	logger   zerolog.Logger
}

// ServiceConfig holds configuration for creating a pollution Service.
type ServiceConfig struct {
	Cities   *city.Service
	Repo     Repository
	Provider airquality.Provider
	Renderer Renderer
	Logger   zerolog.Logger
}

// NewService creates a new pollution service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		cities:   cfg.Cities,
		repo:     cfg.Repo,
		provider: cfg.Provider,
		renderer: cfg.Renderer,
		logger:   cfg.Logger,
	}
}

// ImportParams describes a historical pollution import request.
type ImportParams struct {
	Lat   float64
	Lon   float64
	Name  string
	Start time.Time
	End   time.Time
}

// ImportResult describes a completed import.
type ImportResult struct {
	City    *city.City
	Records int
	Gaps    bool
}

// Import resolves (or creates) the city for the given location, fetches raw
// pollution samples for the date range, aggregates them into daily records,
// and replaces the city's stored data for that range in one transaction.
// Nothing is written when the fetch fails or returns no data.
func (s *Service) Import(ctx context.Context, params ImportParams) (*ImportResult, error) {
	c, err := s.cities.LookupOrResolve(ctx, params.Lat, params.Lon, params.Name)
	if err != nil {
		return nil, err
	}

	start := DateOf(params.Start)
	end := DateOf(params.End)

	samples, err := s.provider.FetchPollution(ctx, params.Lat, params.Lon, start.Unix(), end.Unix())
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, ErrNoPollutionData
	}

	raw := Normalize(samples, c.ID)
	daily, gaps := DailyMeans(raw, c.ID)
	if gaps {
		s.logger.Info().
			Int("city_id", c.ID).
			Time("start", start).
			Time("end", end).
			Msg("date gaps in imported pollution data")
	}

	if err := s.repo.ReplaceRange(ctx, c.ID, start, end, daily); err != nil {
		return nil, fmt.Errorf("replace pollution range: %w", err)
	}

	s.logger.Info().
		Str("city", c.Name).
		Int("city_id", c.ID).
		Int("records", len(daily)).
		Bool("gaps", gaps).
		Msg("pollution data imported")

	return &ImportResult{City: c, Records: len(daily), Gaps: gaps}, nil
}

// QueryResult is the assembled answer to a pollution data query.
type QueryResult struct {
	Records []Record
	City    *city.City
	Start   *time.Time
	End     *time.Time
	Gaps    bool
	PlotURL string
}

// Get returns a city's stored pollution data for a date range, optionally
// re-aggregated by month or year, and renders a chart when a renderer is
// configured. Pagination applies to daily retrieval only; period aggregation
// always covers the full range.
func (s *Service) Get(ctx context.Context, cityID int, start, end time.Time, aggregate Aggregate, opts QueryOptions) (*QueryResult, error) {
	c, err := s.cities.Get(ctx, cityID)
	if err != nil {
		return nil, err
	}

	start = DateOf(start)
	end = DateOf(end)

	result := &QueryResult{City: c}
	if aggregate == AggregateDaily {
		records, err := s.repo.QueryRange(ctx, cityID, start, end, opts)
		if err != nil {
			return nil, err
		}
		result.Records = records
	} else {
		records, err := s.repo.QueryRange(ctx, cityID, start, end, QueryOptions{})
		if err != nil {
			return nil, err
		}
		aggregated, gaps, err := PeriodMeans(records, cityID, aggregate)
		if err != nil {
			return nil, err
		}
		result.Records = aggregated
		result.Gaps = gaps
	}

	if len(result.Records) > 0 {
		first := result.Records[0].Date
		last := result.Records[len(result.Records)-1].Date
		result.Start = &first
		result.End = &last

		if s.renderer != nil {
			url, err := s.renderer.Render(result.Records, c)
			if err != nil {
				// A chart failure should not fail the data request.
				s.logger.Error().Err(err).Int("city_id", cityID).Msg("plot rendering failed")
			} else {
				result.PlotURL = url
			}
		}
	}

	return result, nil
}

// DeleteRange removes a city's pollution records for a date range and
// returns the number of rows removed.
func (s *Service) DeleteRange(ctx context.Context, cityID int, start, end time.Time) (int64, error) {
	if _, err := s.cities.Get(ctx, cityID); err != nil {
		return 0, err
	}
	return s.repo.DeleteRange(ctx, cityID, DateOf(start), DateOf(end))
}

// IsNotFound reports whether err maps to the not-found error class.
func IsNotFound(err error) bool {
	return errors.Is(err, city.ErrCityNotFound) ||
		errors.Is(err, city.ErrNoCityMatch) ||
		errors.Is(err, ErrNoPollutionData)
}
