package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/TechRadar-Intelligence/pkg/errors"
	radartypes "github.com/turtacn/TechRadar-Intelligence/pkg/types/radar"
)

// maxRadarBodyBytes caps the radar request body. The request is a two-field
// JSON object; anything approaching the cap is not a legitimate client.
const maxRadarBodyBytes = 1 << 20

// RadarBuilder runs the full radar analysis for one request. Implemented by
// internal/application/radar.Service.
type RadarBuilder interface {
	BuildRadar(ctx context.Context, req radartypes.RadarRequest) *radartypes.RadarResponse
}

// RadarHandler serves POST /api/v1/radar.
type RadarHandler struct {
	radar   RadarBuilder
	metrics *prometheus.RadarMetrics
	log     logging.Logger
}

// NewRadarHandler creates the radar endpoint handler. Nil metrics and logger
// degrade to no-ops.
func NewRadarHandler(radar RadarBuilder, metrics *prometheus.RadarMetrics, logger logging.Logger) *RadarHandler {
	if metrics == nil {
		metrics = prometheus.NewRadarMetrics(nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RadarHandler{radar: radar, metrics: metrics, log: logger.Named("radar")}
}

// Build handles POST /api/v1/radar: decode, validate, analyze, render.
// Analysis itself never fails the request; degraded panels surface through
// the explainability warnings inside the 200 response.
func (h *RadarHandler) Build(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRadarBodyBytes)

	var req radartypes.RadarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.metrics.RadarRequestsTotal.WithLabelValues("validation_error").Inc()
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeAppError(w, errors.Newf(errors.CodeBadRequest,
				"request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeAppError(w, errors.InvalidParam("request body is not valid JSON").
			WithDetail(err.Error()))
		return
	}

	if err := req.Validate(); err != nil {
		h.metrics.RadarRequestsTotal.WithLabelValues("validation_error").Inc()
		h.log.Debug("radar request rejected",
			logging.String("reason", err.Message),
			logging.String("detail", err.Detail))
		writeAppError(w, err)
		return
	}

	resp := h.radar.BuildRadar(r.Context(), req)
	writeJSON(w, http.StatusOK, resp)
}
