package handlers

import (
	"context"
	"math"
	"net/http"
	"os"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/turtacn/TechRadar-Intelligence/internal/config"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TechRadar-Intelligence/pkg/errors"
	radartypes "github.com/turtacn/TechRadar-Intelligence/pkg/types/radar"
)

// Suggestion query bounds.
const (
	maxSuggestQueryRunes = 100
	minSuggestLimit      = 1
	maxSuggestLimit      = 20
)

// Suggester mines autocomplete terms for a query prefix. Implemented by
// internal/application/suggest.Service.
type Suggester interface {
	Suggest(ctx context.Context, q string, limit int) []string
}

// DataHandler serves the health, metadata, and suggestion endpoints.
type DataHandler struct {
	cfg     *config.Config
	suggest Suggester
	log     logging.Logger
}

// NewDataHandler creates the data endpoint handler.
func NewDataHandler(cfg *config.Config, suggester Suggester, logger logging.Logger) *DataHandler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &DataHandler{cfg: cfg, suggest: suggester, log: logger.Named("data")}
}

// Health handles GET /health. The service reports healthy as long as it can
// answer at all; individual data sources carry their own status so operators
// see which legs of the radar are live.
func (h *DataHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, radartypes.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DataSources: map[string]interface{}{
			"patents_db":           storeStatus(h.cfg.Database.PatentsPath),
			"cordis_db":            storeStatus(h.cfg.Database.ProjectsPath),
			"epo_api":              credentialState(h.cfg.APIs.EPO.ConsumerKey != "", "not_configured"),
			"cordis_api":           credentialState(h.cfg.APIs.Cordis.APIKey != "", "not_configured"),
			"openaire_api":         credentialState(h.cfg.APIs.OpenAIRE.AccessToken != "", "public_access"),
			"semantic_scholar_api": credentialState(h.cfg.APIs.SemanticScholar.APIKey != "", "public_access"),
			"gleif_api":            "public_access",
		},
	})
}

// Metadata handles GET /api/v1/data/metadata.
func (h *DataHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, radartypes.MetadataResponse{
		PatentsDBAvailable: h.cfg.PatentsAvailable(),
		CordisDBAvailable:  h.cfg.ProjectsAvailable(),
		OpenAIREAvailable:  h.cfg.APIs.OpenAIRE.AccessToken != "",
		PatentsDBPath:      h.cfg.Database.PatentsPath,
		CordisDBPath:       h.cfg.Database.ProjectsPath,
	})
}

// Suggestions handles GET /api/v1/suggestions. An absent limit falls back to
// the service default; an explicit out-of-range limit is a client error.
func (h *DataHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if utf8.RuneCountInString(q) > maxSuggestQueryRunes {
		writeAppError(w, errors.Newf(errors.CodeValidation,
			"q must be at most %d characters", maxSuggestQueryRunes).
			WithDetail("field=q"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeAppError(w, errors.Validation("limit must be an integer").
				WithDetail("field=limit"))
			return
		}
		if n < minSuggestLimit || n > maxSuggestLimit {
			writeAppError(w, errors.Newf(errors.CodeValidation,
				"limit must be between %d and %d", minSuggestLimit, maxSuggestLimit).
				WithDetail("field=limit"))
			return
		}
		limit = n
	}

	writeJSON(w, http.StatusOK, radartypes.SuggestionsResponse{
		Suggestions: h.suggest.Suggest(r.Context(), q, limit),
	})
}

// storeStatus probes one SQLite file for the health response. A missing file
// reports unavailable with size 0 rather than an error.
func storeStatus(path string) radartypes.StoreStatus {
	st := radartypes.StoreStatus{Path: path}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return st
	}
	st.Available = true
	st.SizeMB = math.Round(float64(info.Size())/(1<<20)*10) / 10
	return st
}

func credentialState(configured bool, fallback string) string {
	if configured {
		return "configured"
	}
	return fallback
}
