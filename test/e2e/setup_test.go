// Package e2e_test boots the complete service in-process — fixture
// databases, canned upstream APIs, real HTTP router on a test listener —
// and drives it through the Go SDK, the same path a production client
// takes.
package e2e_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/turtacn/TechRadar-Intelligence/internal/application/panels"
	radarsvc "github.com/turtacn/TechRadar-Intelligence/internal/application/radar"
	"github.com/turtacn/TechRadar-Intelligence/internal/application/suggest"
	"github.com/turtacn/TechRadar-Intelligence/internal/config"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/apiclients"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/database/sqlite"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/TechRadar-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/TechRadar-Intelligence/internal/testutil"
	"github.com/turtacn/TechRadar-Intelligence/pkg/client"

	httpapi "github.com/turtacn/TechRadar-Intelligence/internal/interfaces/http"
)

const fixtureTech = "quantum computing"

// publicationsPerYear is what the canned OpenAIRE upstream reports for
// every year query.
const publicationsPerYear = 4

// fixedClock pins the analysis window so the fixture databases line up
// with the computed start/end years.
func fixedClock(year int) func() time.Time {
	return func() time.Time {
		return time.Date(year, time.December, 1, 12, 0, 0, 0, time.UTC)
	}
}

// stack is one fully wired service instance on a test listener.
type stack struct {
	server *httptest.Server
	sdk    *client.Client
	cfg    *config.Config
}

// newStack builds the full object graph the way cmd/apiserver does, with
// the three upstream APIs replaced by canned test servers.
func newStack(t *testing.T) *stack {
	t.Helper()

	dir := t.TempDir()
	cfg := config.NewDefaultConfig()
	cfg.Database.PatentsPath = filepath.Join(dir, "patents.db")
	cfg.Database.ProjectsPath = filepath.Join(dir, "cordis.db")
	cfg.Database.GleifCachePath = filepath.Join(dir, "api_cache.db")

	patentsDB := testutil.NewPatentDBAt(t, cfg.Database.PatentsPath)
	projectsDB := testutil.NewProjectDBAt(t, cfg.Database.ProjectsPath)
	cacheDB := testutil.NewGleifCacheDBAt(t, cfg.Database.GleifCachePath)

	logger := logging.NewNop()

	// Canned upstreams. OpenAIRE reports a fixed count per year, Semantic
	// Scholar one page of two papers, GLEIF a German entity for any name.
	openaireSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"response":{"header":{"total":{"$":%d}}}}`, publicationsPerYear)
	}))
	t.Cleanup(openaireSrv.Close)

	s2Srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"total": 2, "offset": 0,
			"data": [
				{"title":"Quantum supremacy using a programmable superconducting processor",
				 "year":2019,"citationCount":2000,"influentialCitationCount":150,
				 "referenceCount":60,"venue":"Nature",
				 "authors":[{"name":"F. Arute"}],
				 "fieldsOfStudy":["Physics"],"publicationTypes":["JournalArticle"]},
				{"title":"Quantum error mitigation in practice","year":2022,
				 "citationCount":40,"influentialCitationCount":4,"referenceCount":30,
				 "venue":"PRX Quantum","authors":[{"name":"A. Kandala"}],
				 "fieldsOfStudy":["Physics"],"publicationTypes":["JournalArticle"]}
			]
		}`)
	}))
	t.Cleanup(s2Srv.Close)

	gleifSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("filter[entity.legalName]")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w,
			`{"data":[{"attributes":{"lei":"E2E000000000000000001","entity":{"legalName":{"name":%q},"legalAddress":{"country":"DE","city":"Muenchen"}}}}]}`,
			name)
	}))
	t.Cleanup(gleifSrv.Close)

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace: "techradar",
	}, logger)
	require.NoError(t, err)
	metrics := prometheus.NewRadarMetrics(collector)

	clientOpts := []apiclients.Option{apiclients.WithMetrics(metrics)}
	openaire := apiclients.NewOpenAIREClient(apiclients.OpenAIREConfig{
		BaseURL: openaireSrv.URL,
	}, logger, clientOpts...)
	cache := sqlite.NewGleifCache(cacheDB, cfg.Radar.GleifTTL)

	data := panels.DataContext{
		Patents:      sqlite.NewPatentStore(patentsDB),
		Projects:     sqlite.NewProjectStore(projectsDB),
		Publications: openaire,
		Papers: apiclients.NewSemanticScholarClient(apiclients.SemanticScholarConfig{
			BaseURL: s2Srv.URL,
		}, logger, clientOpts...),
		Entities: apiclients.NewGleifClient(apiclients.GleifConfig{
			BaseURL: gleifSrv.URL,
		}, cache, logger, clientOpts...),
	}

	radarService := radarsvc.NewService(radarsvc.ServiceConfig{
		Data:    data,
		Radar:   cfg.Radar,
		Tokens:  openaire,
		Metrics: metrics,
		Logger:  logger,
		Clock:   fixedClock(2023),
	})
	suggestService := suggest.NewService(data.Patents, data.Projects, logger)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		RadarHandler:   handlers.NewRadarHandler(radarService, metrics, logger),
		DataHandler:    handlers.NewDataHandler(cfg, suggestService, logger),
		Logger:         logger,
		Metrics:        metrics,
		MetricsHandler: collector.Handler(),
		CORS:           cfg.CORS,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	sdk, err := client.NewClient(srv.URL)
	require.NoError(t, err)

	return &stack{server: srv, sdk: sdk, cfg: cfg}
}
