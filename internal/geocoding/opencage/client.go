// Package opencage provides an OpenCage geocoding API client.
package opencage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/cityair/cityair/internal/geocoding"
	"github.com/cityair/cityair/internal/provider/resilience"
)

// MetricsRecorder receives timing and outcome data for each upstream call.
type MetricsRecorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
}

const (
	// ProviderName identifies this geocoding provider.
	ProviderName = "opencage"

	// DefaultBaseURL is the OpenCage geocoding API endpoint.
	DefaultBaseURL = "https://api.opencagedata.com/geocode/v1/json"
)

// ClientConfig holds configuration for the OpenCage client.
type ClientConfig struct {
	// APIKey is the OpenCage API key (required).
	APIKey string

	// BaseURL is the API endpoint URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client without retries.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger

	// Metrics receives per-request instrumentation (optional).
	Metrics MetricsRecorder
}

// Client is an OpenCage geocoding API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
	metrics    MetricsRecorder
}

// NewClient creates a new OpenCage client.
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

// ReverseGeocode returns all locations found at the given coordinates.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) ([]geocoding.RawLocation, error) {
	query := fmt.Sprintf("%.6f+%.6f", lat, lon)
	return c.geocode(ctx, "reverse_geocode", query)
}

// SearchByName returns all locations matching the given place name.
func (c *Client) SearchByName(ctx context.Context, name string) ([]geocoding.RawLocation, error) {
	return c.geocode(ctx, "search_by_name", name)
}

func (c *Client) geocode(ctx context.Context, operation, query string) (locations []geocoding.RawLocation, err error) {
	if c.metrics != nil {
		start := time.Now()
		defer func() {
			c.metrics.RecordRequest(ProviderName, operation, time.Since(start), err)
		}()
	}

	reqURL := fmt.Sprintf("%s?q=%s&key=%s&no_annotations=1",
		c.baseURL, url.QueryEscape(query), c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure(err)
		return nil, fmt.Errorf("%w: executing request: %v", geocoding.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recordFailure(fmt.Errorf("status %d", resp.StatusCode))
		return nil, fmt.Errorf("%w: unexpected status code: %d", geocoding.ErrUnavailable, resp.StatusCode)
	}

	var ocResp geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&ocResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	c.recordSuccess()

	locations = make([]geocoding.RawLocation, 0, len(ocResp.Results))
	for _, result := range ocResp.Results {
		locations = append(locations, geocoding.RawLocation{
			Type:    result.Components.Type,
			City:    result.Components.City,
			Town:    result.Components.Town,
			State:   result.Components.State,
			Country: result.Components.Country,
			County:  result.Components.County,
			Lat:     result.Geometry.Lat,
			Lon:     result.Geometry.Lng,
		})
	}

	c.logger.Debug().
		Str("query", query).
		Int("results", len(locations)).
		Msg("geocode lookup")

	return locations, nil
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

// OpenCage API response structures.

type geocodeResponse struct {
	Results []struct {
		Components struct {
			Type    string `json:"_type"`
			City    string `json:"city"`
			Town    string `json:"town"`
			State   string `json:"state"`
			Country string `json:"country"`
			County  string `json:"county"`
		} `json:"components"`
		Geometry struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"geometry"`
	} `json:"results"`
}
