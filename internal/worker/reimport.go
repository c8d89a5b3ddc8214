package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cityair/cityair/internal/city"
	"github.com/cityair/cityair/internal/pollution"
)

// ReimportJob refreshes the stored pollution history of every known city
// over a trailing date window.
type ReimportJob struct {
	config    ReimportConfig
	logger    zerolog.Logger
	cities    *city.Service
	pollution *pollution.Service

	// now is swappable for tests.
	now func() time.Time
}

// ReimportJobConfig holds configuration for creating a ReimportJob.
type ReimportJobConfig struct {
	Config           ReimportConfig
	Logger           zerolog.Logger
	CityService      *city.Service
	PollutionService *pollution.Service
}

// NewReimportJob creates a new re-import job processor.
func NewReimportJob(cfg ReimportJobConfig) *ReimportJob {
	return &ReimportJob{
		config:    cfg.Config.normalized(),
		logger:    cfg.Logger,
		cities:    cfg.CityService,
		pollution: cfg.PollutionService,
		now:       time.Now,
	}
}

// ReimportResult contains the result of a re-import run.
type ReimportResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalCities int
	Successful  int
	Failed      int
	Errors      []ReimportError
}

// ReimportError represents a failed city import.
type ReimportError struct {
	CityID int
	City   string
	Error  string
}

// Run executes the re-import job for all stored cities.
func (j *ReimportJob) Run(ctx context.Context) *ReimportResult {
	startTime := j.now()
	result := &ReimportResult{StartTime: startTime}

	cities, err := j.cities.List(ctx, city.ListOptions{})
	if err != nil {
		j.logger.Error().Err(err).Msg("listing cities for re-import failed")
		result.EndTime = j.now()
		result.Duration = result.EndTime.Sub(startTime)
		return result
	}
	result.TotalCities = len(cities)

	// Window ends yesterday; today's data is still incomplete upstream.
	end := startTime.UTC().AddDate(0, 0, -1)
	start := end.AddDate(0, 0, -(j.config.WindowDays - 1))

	j.logger.Info().
		Int("cities", len(cities)).
		Int("concurrency", j.config.Concurrency).
		Time("start", start).
		Time("end", end).
		Msg("starting pollution re-import job")

	citiesChan := make(chan city.City, len(cities))
	errsChan := make(chan ReimportError, len(cities))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.importWorker(ctx, citiesChan, errsChan, start, end)
		}()
	}

	for _, c := range cities {
		citiesChan <- c
	}
	close(citiesChan)

	wg.Wait()
	close(errsChan)

	for e := range errsChan {
		result.Errors = append(result.Errors, e)
	}
	result.Failed = len(result.Errors)
	result.Successful = result.TotalCities - result.Failed
	result.EndTime = j.now()
	result.Duration = result.EndTime.Sub(startTime)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("pollution re-import job completed")

	return result
}

func (j *ReimportJob) importWorker(ctx context.Context, cities <-chan city.City, errs chan<- ReimportError, start, end time.Time) {
	for c := range cities {
		select {
		case <-ctx.Done():
			errs <- ReimportError{CityID: c.ID, City: c.Name, Error: ctx.Err().Error()}
			continue
		default:
		}

		importCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
		_, err := j.pollution.Import(importCtx, pollution.ImportParams{
			Lat:   c.Lat,
			Lon:   c.Lon,
			Name:  c.Name,
			Start: start,
			End:   end,
		})
		cancel()

		if err != nil {
			j.logger.Warn().
				Err(err).
				Int("city_id", c.ID).
				Str("city", c.Name).
				Msg("city re-import failed")
			errs <- ReimportError{CityID: c.ID, City: c.Name, Error: err.Error()}
			continue
		}

		j.logger.Debug().
			Int("city_id", c.ID).
			Str("city", c.Name).
			Msg("city re-imported")
	}
}
