package client_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TechRadar-Intelligence/pkg/client"
	radartypes "github.com/turtacn/TechRadar-Intelligence/pkg/types/radar"
)

func TestClient_HealthDecodesSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"status": "healthy",
			"timestamp": "2023-12-01T12:00:00Z",
			"data_sources": {
				"patents_db": {"available": true, "path": "data/patents.db", "size_mb": 42.5},
				"gleif_api": "public_access"
			}
		}`))
	}))
	defer srv.Close()

	resp, err := fastClient(t, srv.URL).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "public_access", resp.DataSources["gleif_api"])

	patents, ok := resp.DataSources["patents_db"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 42.5, patents["size_mb"])
}

func TestClient_MetadataDecodesAvailability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/data/metadata", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"patents_db_available": true,
			"cordis_db_available": false,
			"openaire_available": true,
			"patents_db_path": "data/patents.db",
			"cordis_db_path": "data/cordis.db"
		}`))
	}))
	defer srv.Close()

	resp, err := fastClient(t, srv.URL).Metadata(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.PatentsDBAvailable)
	assert.False(t, resp.CordisDBAvailable)
	assert.Equal(t, "data/patents.db", resp.PatentsDBPath)
}

func TestClient_SuggestionsEncodesQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/suggestions", r.URL.Path)
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"suggestions": ["Quantum Sensor", "Quantum Radar"]}`))
	}))
	defer srv.Close()

	got, err := fastClient(t, srv.URL).Suggestions(context.Background(), "quantum sensing", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Quantum Sensor", "Quantum Radar"}, got)
	assert.Equal(t, "limit=5&q=quantum+sensing", gotQuery)
}

func TestClient_SuggestionsOmitsZeroLimit(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"suggestions": []}`))
	}))
	defer srv.Close()

	got, err := fastClient(t, srv.URL).Suggestions(context.Background(), "qu", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, "q=qu", gotQuery)
}

func TestClient_RadarPostsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/radar", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "photonics", body["technology"])
		assert.Equal(t, 5.0, body["years"])

		_, _ = w.Write([]byte(`{"technology": "photonics", "analysis_period": "2018-2023"}`))
	}))
	defer srv.Close()

	resp, err := fastClient(t, srv.URL).Radar(context.Background(),
		radartypes.RadarRequest{Technology: "photonics", Years: 5})
	require.NoError(t, err)
	assert.Equal(t, "photonics", resp.Technology)
	assert.Equal(t, "2018-2023", resp.AnalysisPeriod)
}

func TestClient_RadarDefaultsZeroYears(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(radartypes.DefaultYears), body["years"])
		_, _ = w.Write([]byte(`{"technology": "photonics"}`))
	}))
	defer srv.Close()

	_, err := fastClient(t, srv.URL).Radar(context.Background(),
		radartypes.RadarRequest{Technology: "photonics"})
	require.NoError(t, err)
}

func TestClient_RadarSurfacesValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error": {"code": "RADAR_002", "message": "years must be between 3 and 30", "detail": "field=years"}}`))
	}))
	defer srv.Close()

	_, err := fastClient(t, srv.URL).Radar(context.Background(),
		radartypes.RadarRequest{Technology: "photonics", Years: 99})
	require.Error(t, err)

	var apiErr *client.APIError
	require.True(t, stderrors.As(err, &apiErr))
	assert.True(t, apiErr.IsValidation())
	assert.Equal(t, "RADAR_002", apiErr.Code)
}
