package pollution_test

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityair/cityair/internal/airquality"
	"github.com/cityair/cityair/internal/city"
	"github.com/cityair/cityair/internal/geocoding"
	"github.com/cityair/cityair/internal/pollution"
)

// fakeProvider returns a fixed set of samples.
type fakeProvider struct {
	samples []airquality.RawSample
	err     error
}

func (p *fakeProvider) FetchPollution(_ context.Context, _, _ float64, _, _ int64) ([]airquality.RawSample, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.samples, nil
}

// fakeGeocoder resolves every request to a single fixed city.
type fakeGeocoder struct {
	location geocoding.RawLocation
}

func (g *fakeGeocoder) ReverseGeocode(_ context.Context, _, _ float64) ([]geocoding.RawLocation, error) {
	return []geocoding.RawLocation{g.location}, nil
}

func (g *fakeGeocoder) SearchByName(_ context.Context, _ string) ([]geocoding.RawLocation, error) {
	return []geocoding.RawLocation{g.location}, nil
}

// fakeRenderer records the last render call.
type fakeRenderer struct {
	url      string
	err      error
	rendered []pollution.Record
}

func (r *fakeRenderer) Render(records []pollution.Record, _ *city.City) (string, error) {
	r.rendered = records
	return r.url, r.err
}

func sampleAt(d time.Time, co float64) airquality.RawSample {
	return airquality.RawSample{CO: &co, Timestamp: d.Unix()}
}

type serviceFixture struct {
	service  *pollution.Service
	repo     *pollution.InMemoryRepository
	provider *fakeProvider
	renderer *fakeRenderer
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	logger := zerolog.New(io.Discard)
	provider := &fakeProvider{}
	renderer := &fakeRenderer{url: "/api/plots/test.png"}
	repo := pollution.NewInMemoryRepository()

	cityService := city.NewService(city.ServiceConfig{
		Repository: city.NewInMemoryRepository(),
		Geocoder: &fakeGeocoder{location: geocoding.RawLocation{
			Type:    geocoding.TypeCity,
			City:    "Utrecht",
			Country: "Netherlands",
			Lat:     52.09,
			Lon:     5.11,
		}},
		Logger: logger,
	})

	service := pollution.NewService(pollution.ServiceConfig{
		Cities:   cityService,
		Repo:     repo,
		Provider: provider,
		Renderer: renderer,
		Logger:   logger,
	})

	return &serviceFixture{
		service:  service,
		repo:     repo,
		provider: provider,
		renderer: renderer,
	}
}

func importRange(t *testing.T, fx *serviceFixture, start, end time.Time) *pollution.ImportResult {
	t.Helper()
	result, err := fx.service.Import(context.Background(), pollution.ImportParams{
		Lat:   52.09,
		Lon:   5.11,
		Name:  "Utrecht",
		Start: start,
		End:   end,
	})
	require.NoError(t, err)
	return result
}

func TestService_Import_StoresDailyAggregates(t *testing.T) {
	fx := newServiceFixture(t)
	d1 := date(2024, 1, 1)
	d2 := date(2024, 1, 2)
	fx.provider.samples = []airquality.RawSample{
		sampleAt(d1, 90),
		sampleAt(d1.Add(time.Hour), 110),
		sampleAt(d2, 50),
	}

	result := importRange(t, fx, d1, d2)

	assert.Equal(t, "Utrecht", result.City.Name)
	assert.Equal(t, 2, result.Records)
	assert.False(t, result.Gaps)

	stored, err := fx.repo.QueryRange(context.Background(), result.City.ID, d1, d2, pollution.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 100.0, *stored[0].CO)
	assert.Equal(t, 50.0, *stored[1].CO)
}

func TestService_Import_ReplacesExistingRange(t *testing.T) {
	fx := newServiceFixture(t)
	d := date(2024, 1, 1)

	fx.provider.samples = []airquality.RawSample{sampleAt(d, 100)}
	result := importRange(t, fx, d, d)

	// Re-import the same day with different data.
	fx.provider.samples = []airquality.RawSample{sampleAt(d, 60)}
	importRange(t, fx, d, d)

	stored, err := fx.repo.QueryRange(context.Background(), result.City.ID, d, d, pollution.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 60.0, *stored[0].CO)
}

func TestService_Import_EmptyFetch(t *testing.T) {
	fx := newServiceFixture(t)
	fx.provider.samples = nil

	_, err := fx.service.Import(context.Background(), pollution.ImportParams{
		Lat:   52.09,
		Lon:   5.11,
		Start: date(2024, 1, 1),
		End:   date(2024, 1, 2),
	})

	assert.ErrorIs(t, err, pollution.ErrNoPollutionData)
}

func TestService_Import_ProviderError(t *testing.T) {
	fx := newServiceFixture(t)
	fx.provider.err = fmt.Errorf("%w: timeout", airquality.ErrUnavailable)

	_, err := fx.service.Import(context.Background(), pollution.ImportParams{
		Lat:   52.09,
		Lon:   5.11,
		Start: date(2024, 1, 1),
		End:   date(2024, 1, 2),
	})

	assert.ErrorIs(t, err, airquality.ErrUnavailable)

	// Nothing was written.
	stored, qerr := fx.repo.QueryRange(context.Background(), 1, date(2024, 1, 1), date(2024, 1, 2), pollution.QueryOptions{})
	require.NoError(t, qerr)
	assert.Empty(t, stored)
}

func TestService_Get_Daily(t *testing.T) {
	fx := newServiceFixture(t)
	d1 := date(2024, 1, 1)
	d3 := date(2024, 1, 3)
	fx.provider.samples = []airquality.RawSample{
		sampleAt(d1, 10),
		sampleAt(date(2024, 1, 2), 20),
		sampleAt(d3, 30),
	}
	imported := importRange(t, fx, d1, d3)

	result, err := fx.service.Get(context.Background(), imported.City.ID, d1, d3, pollution.AggregateDaily, pollution.QueryOptions{})

	require.NoError(t, err)
	require.Len(t, result.Records, 3)
	assert.False(t, result.Gaps)
	require.NotNil(t, result.Start)
	assert.Equal(t, d1, *result.Start)
	require.NotNil(t, result.End)
	assert.Equal(t, d3, *result.End)
	assert.Equal(t, "/api/plots/test.png", result.PlotURL)
	assert.Len(t, fx.renderer.rendered, 3)
}

func TestService_Get_DailyPagination(t *testing.T) {
	fx := newServiceFixture(t)
	d1 := date(2024, 1, 1)
	d4 := date(2024, 1, 4)
	fx.provider.samples = []airquality.RawSample{
		sampleAt(d1, 1),
		sampleAt(date(2024, 1, 2), 2),
		sampleAt(date(2024, 1, 3), 3),
		sampleAt(d4, 4),
	}
	imported := importRange(t, fx, d1, d4)

	result, err := fx.service.Get(context.Background(), imported.City.ID, d1, d4, pollution.AggregateDaily, pollution.QueryOptions{Limit: 2, Offset: 1})

	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Equal(t, date(2024, 1, 2), result.Records[0].Date)
	assert.Equal(t, date(2024, 1, 3), result.Records[1].Date)
}

func TestService_Get_Monthly(t *testing.T) {
	fx := newServiceFixture(t)
	start := date(2024, 1, 1)
	end := date(2024, 2, 15)
	fx.provider.samples = []airquality.RawSample{
		sampleAt(date(2024, 1, 1), 10),
		sampleAt(date(2024, 1, 31), 20),
		sampleAt(date(2024, 2, 15), 30),
	}
	imported := importRange(t, fx, start, end)

	result, err := fx.service.Get(context.Background(), imported.City.ID, start, end, pollution.AggregateMonthly, pollution.QueryOptions{})

	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Equal(t, date(2024, 1, 1), result.Records[0].Date)
	assert.Equal(t, 15.0, *result.Records[0].CO)
	assert.Equal(t, date(2024, 2, 1), result.Records[1].Date)
	// The stored dailies have gaps, which period aggregation reports.
	assert.True(t, result.Gaps)
}

func TestService_Get_UnknownCity(t *testing.T) {
	fx := newServiceFixture(t)

	_, err := fx.service.Get(context.Background(), 99, date(2024, 1, 1), date(2024, 1, 2), pollution.AggregateDaily, pollution.QueryOptions{})

	assert.ErrorIs(t, err, city.ErrCityNotFound)
}

func TestService_Get_EmptyRangeSkipsRendering(t *testing.T) {
	fx := newServiceFixture(t)
	d := date(2024, 1, 1)
	fx.provider.samples = []airquality.RawSample{sampleAt(d, 10)}
	imported := importRange(t, fx, d, d)

	result, err := fx.service.Get(context.Background(), imported.City.ID, date(2024, 6, 1), date(2024, 6, 2), pollution.AggregateDaily, pollution.QueryOptions{})

	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Nil(t, result.Start)
	assert.Empty(t, result.PlotURL)
}

func TestService_Get_RenderFailureDoesNotFailRequest(t *testing.T) {
	fx := newServiceFixture(t)
	fx.renderer.err = fmt.Errorf("disk full")
	d := date(2024, 1, 1)
	fx.provider.samples = []airquality.RawSample{sampleAt(d, 10)}
	imported := importRange(t, fx, d, d)

	result, err := fx.service.Get(context.Background(), imported.City.ID, d, d, pollution.AggregateDaily, pollution.QueryOptions{})

	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Empty(t, result.PlotURL)
}

func TestService_DeleteRange(t *testing.T) {
	fx := newServiceFixture(t)
	d1 := date(2024, 1, 1)
	d2 := date(2024, 1, 2)
	fx.provider.samples = []airquality.RawSample{
		sampleAt(d1, 10),
		sampleAt(d2, 20),
	}
	imported := importRange(t, fx, d1, d2)

	deleted, err := fx.service.DeleteRange(context.Background(), imported.City.ID, d1, d1)

	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	stored, err := fx.repo.QueryRange(context.Background(), imported.City.ID, d1, d2, pollution.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, d2, stored[0].Date)
}

func TestService_DeleteRange_UnknownCity(t *testing.T) {
	fx := newServiceFixture(t)

	_, err := fx.service.DeleteRange(context.Background(), 42, date(2024, 1, 1), date(2024, 1, 2))

	assert.ErrorIs(t, err, city.ErrCityNotFound)
}
