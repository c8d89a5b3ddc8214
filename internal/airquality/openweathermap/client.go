// Package openweathermap provides an OpenWeatherMap air pollution history client.
package openweathermap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/cityair/cityair/internal/airquality"
	"github.com/cityair/cityair/internal/provider/resilience"
)

// MetricsRecorder receives timing, outcome, and volume data for each
// upstream call.
type MetricsRecorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
	RecordSamples(provider string, count int)
}

const (
	// ProviderName identifies this pollution provider.
	ProviderName = "openweathermap"

	// DefaultBaseURL is the OpenWeatherMap air pollution history endpoint.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5/air_pollution/history"
)

// ClientConfig holds configuration for the OpenWeatherMap client.
type ClientConfig struct {
	// APIKey is the OpenWeatherMap API key (required).
	APIKey string

	// BaseURL is the history endpoint URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client without retries: an upstream failure
	// propagates to the caller rather than being re-attempted.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger

	// Metrics receives per-request instrumentation (optional).
	Metrics MetricsRecorder
}

// Client is an OpenWeatherMap air pollution API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
	metrics    MetricsRecorder
}

// NewClient creates a new OpenWeatherMap client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.MaxRetries = 0
		clientCfg.Registry = resilience.GlobalRegistry
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// FetchPollution fetches hourly pollution readings for a location and time range.
func (c *Client) FetchPollution(ctx context.Context, lat, lon float64, start, end int64) (samples []airquality.RawSample, err error) {
	if c.metrics != nil {
		began := time.Now()
		defer func() {
			c.metrics.RecordRequest(ProviderName, "fetch_pollution", time.Since(began), err)
			if err == nil {
				c.metrics.RecordSamples(ProviderName, len(samples))
			}
		}()
	}

	url := fmt.Sprintf("%s?lat=%.6f&lon=%.6f&start=%d&end=%d&appid=%s",
		c.baseURL, lat, lon, start, end, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure(err)
		return nil, fmt.Errorf("%w: executing request: %v", airquality.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recordFailure(fmt.Errorf("status %d", resp.StatusCode))
		return nil, fmt.Errorf("%w: unexpected status code: %d", airquality.ErrUnavailable, resp.StatusCode)
	}

	var owmResp historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&owmResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	c.recordSuccess()

	samples = make([]airquality.RawSample, 0, len(owmResp.List))
	for _, entry := range owmResp.List {
		samples = append(samples, airquality.RawSample{
			CO:        entry.Components.CO,
			NO:        entry.Components.NO,
			NO2:       entry.Components.NO2,
			O3:        entry.Components.O3,
			SO2:       entry.Components.SO2,
			PM25:      entry.Components.PM25,
			PM10:      entry.Components.PM10,
			NH3:       entry.Components.NH3,
			Timestamp: entry.Dt,
		})
	}

	c.logger.Debug().
		Float64("lat", lat).
		Float64("lon", lon).
		Int("samples", len(samples)).
		Msg("fetched pollution history")

	return samples, nil
}

// recordSuccess reports a healthy upstream call to the registry the
// underlying HTTP client was configured with, if any.
func (c *Client) recordSuccess() {
	if reg := c.httpClient.Registry(); reg != nil {
		reg.RecordSuccess(ProviderName)
	}
}

func (c *Client) recordFailure(err error) {
	if reg := c.httpClient.Registry(); reg != nil {
		reg.RecordFailure(ProviderName, err)
	}
}

// OpenWeatherMap API response structures.

type historyResponse struct {
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
		Components struct {
			CO   *float64 `json:"co"`
			NO   *float64 `json:"no"`
			NO2  *float64 `json:"no2"`
			O3   *float64 `json:"o3"`
			SO2  *float64 `json:"so2"`
			PM25 *float64 `json:"pm2_5"`
			PM10 *float64 `json:"pm10"`
			NH3  *float64 `json:"nh3"`
		} `json:"components"`
	} `json:"list"`
}
