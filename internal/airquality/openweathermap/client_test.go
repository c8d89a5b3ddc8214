package openweathermap_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityair/cityair/internal/airquality"
	"github.com/cityair/cityair/internal/airquality/openweathermap"
	"github.com/cityair/cityair/internal/provider/resilience"
)

func noRetryClient(name string) *resilience.Client {
	cfg := resilience.DefaultClientConfig(name)
	cfg.MaxRetries = 0
	return resilience.NewClient(cfg)
}

func TestClient_FetchPollution(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "52.370216", r.URL.Query().Get("lat"))
		assert.Equal(t, "4.895168", r.URL.Query().Get("lon"))
		assert.Equal(t, "1712188800", r.URL.Query().Get("start"))
		assert.Equal(t, "1712275200", r.URL.Query().Get("end"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))

		response := map[string]interface{}{
			"coord": map[string]float64{"lat": 52.370216, "lon": 4.895168},
			"list": []map[string]interface{}{
				{
					"dt":   1712188800,
					"main": map[string]int{"aqi": 2},
					"components": map[string]float64{
						"co": 201.94, "no": 0.02, "no2": 0.77, "o3": 68.66,
						"so2": 0.64, "pm2_5": 0.5, "pm10": 0.54, "nh3": 0.12,
					},
				},
				{
					"dt":   1712192400,
					"main": map[string]int{"aqi": 2},
					"components": map[string]float64{
						"co": 211.03, "no": 0.03, "no2": 0.81, "o3": 70.1,
						"so2": 0.66, "pm2_5": 0.52, "pm10": 0.57, "nh3": 0.11,
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: noRetryClient("owm-test"),
	})

	samples, err := client.FetchPollution(context.Background(), 52.370216, 4.895168, 1712188800, 1712275200)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.Equal(t, int64(1712188800), samples[0].Timestamp)
	require.NotNil(t, samples[0].CO)
	assert.InDelta(t, 201.94, *samples[0].CO, 0.001)
	require.NotNil(t, samples[1].NO2)
	assert.InDelta(t, 0.81, *samples[1].NO2, 0.001)
}

func TestClient_FetchPollution_MissingComponents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		response := map[string]interface{}{
			"list": []map[string]interface{}{
				{
					"dt": 1712188800,
					"components": map[string]float64{
						"co": 100.0, "no2": 10.0,
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: noRetryClient("owm-test-missing"),
	})

	samples, err := client.FetchPollution(context.Background(), 52.0, 4.0, 1712188800, 1712275200)
	require.NoError(t, err)
	require.Len(t, samples, 1)

	// Components absent from the payload stay nil.
	assert.Nil(t, samples[0].SO2)
	assert.Nil(t, samples[0].NH3)
	require.NotNil(t, samples[0].CO)
	assert.InDelta(t, 100.0, *samples[0].CO, 0.001)
}

func TestClient_FetchPollution_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     "bad-key",
		BaseURL:    server.URL,
		HTTPClient: noRetryClient("owm-test-err"),
	})

	_, err := client.FetchPollution(context.Background(), 52.0, 4.0, 1712188800, 1712275200)
	require.Error(t, err)
	assert.ErrorIs(t, err, airquality.ErrUnavailable)
}

func TestClient_RecordsFailureInConfiguredRegistry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	httpCfg := resilience.DefaultClientConfig(openweathermap.ProviderName)
	httpCfg.MaxRetries = 0
	httpCfg.Registry = registry

	client := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     "bad-key",
		BaseURL:    server.URL,
		HTTPClient: resilience.NewClient(httpCfg),
	})

	_, err := client.FetchPollution(context.Background(), 52.0, 4.0, 1712188800, 1712275200)
	require.Error(t, err)

	health := registry.GetHealth(openweathermap.ProviderName)
	require.NotNil(t, health)
	require.NotNil(t, health.LastFailureAt)
	assert.Contains(t, health.LastError, "status 401")
	assert.Nil(t, resilience.GlobalRegistry.GetHealth(openweathermap.ProviderName))
}

func TestClient_FetchPollution_EmptyList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"list": []interface{}{}})
	}))
	defer server.Close()

	client := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: noRetryClient("owm-test-empty"),
	})

	samples, err := client.FetchPollution(context.Background(), 52.0, 4.0, 1712188800, 1712275200)
	require.NoError(t, err)
	assert.Empty(t, samples)
}
