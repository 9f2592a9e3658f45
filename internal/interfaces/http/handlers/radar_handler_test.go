package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TechRadar-Intelligence/internal/interfaces/http/handlers"
	radartypes "github.com/turtacn/TechRadar-Intelligence/pkg/types/radar"
)

// errorEnvelope mirrors the wire shape of every non-2xx response.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	} `json:"error"`
}

type stubRadar struct {
	gotReq radartypes.RadarRequest
	called bool
}

func (s *stubRadar) BuildRadar(_ context.Context, req radartypes.RadarRequest) *radartypes.RadarResponse {
	s.gotReq = req
	s.called = true
	return &radartypes.RadarResponse{
		Technology:     req.Technology,
		AnalysisPeriod: "2013-2023",
	}
}

func postRadar(t *testing.T, h *handlers.RadarHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/radar", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Build(rec, req)
	return rec
}

func TestRadarHandler_BuildReturnsResponse(t *testing.T) {
	radar := &stubRadar{}
	h := handlers.NewRadarHandler(radar, nil, nil)

	rec := postRadar(t, h, `{"technology": "photonics", "years": 5}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var resp radartypes.RadarResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "photonics", resp.Technology)

	assert.Equal(t, "photonics", radar.gotReq.Technology)
	assert.Equal(t, 5, radar.gotReq.Years)
}

func TestRadarHandler_BuildDefaultsYears(t *testing.T) {
	radar := &stubRadar{}
	h := handlers.NewRadarHandler(radar, nil, nil)

	rec := postRadar(t, h, `{"technology": "photonics"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, radartypes.DefaultYears, radar.gotReq.Years)
}

func TestRadarHandler_BuildRejectsEmptyTechnology(t *testing.T) {
	radar := &stubRadar{}
	h := handlers.NewRadarHandler(radar, nil, nil)

	rec := postRadar(t, h, `{"technology": ""}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.False(t, radar.called)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "RADAR_001", env.Error.Code)
	assert.Equal(t, "technology must not be empty", env.Error.Message)
	assert.Equal(t, "field=technology", env.Error.Detail)
}

func TestRadarHandler_BuildRejectsYearsOutOfRange(t *testing.T) {
	radar := &stubRadar{}
	h := handlers.NewRadarHandler(radar, nil, nil)

	rec := postRadar(t, h, `{"technology": "photonics", "years": 2}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "RADAR_002", env.Error.Code)
	assert.Equal(t, "field=years", env.Error.Detail)
}

func TestRadarHandler_BuildRejectsMalformedJSON(t *testing.T) {
	radar := &stubRadar{}
	h := handlers.NewRadarHandler(radar, nil, nil)

	rec := postRadar(t, h, `{"technology": `)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, radar.called)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "COMMON_002", env.Error.Code)
	assert.Equal(t, "request body is not valid JSON", env.Error.Message)
}

func TestRadarHandler_BuildRejectsOversizedBody(t *testing.T) {
	radar := &stubRadar{}
	h := handlers.NewRadarHandler(radar, nil, nil)

	body := `{"technology": "` + strings.Repeat("a", 1<<20) + `"}`
	rec := postRadar(t, h, body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, radar.called)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "COMMON_002", env.Error.Code)
	assert.Equal(t, "request body exceeds 1048576 bytes", env.Error.Message)
}
