package main

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/turtacn/TechRadar-Intelligence/internal/application/panels"
	"github.com/turtacn/TechRadar-Intelligence/internal/application/radar"
	"github.com/turtacn/TechRadar-Intelligence/internal/application/suggest"
	"github.com/turtacn/TechRadar-Intelligence/internal/config"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/apiclients"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/database/sqlite"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/prometheus"
	httpapi "github.com/turtacn/TechRadar-Intelligence/internal/interfaces/http"
	"github.com/turtacn/TechRadar-Intelligence/internal/interfaces/http/handlers"
)

// application holds the wired object graph and the resources it owns.
type application struct {
	Router  http.Handler
	closers []func() error
	log     logging.Logger
}

// Close releases owned resources in reverse construction order.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("resource close failed", logging.Err(err))
		}
	}
}

// buildApplication wires stores, API clients, services, and the HTTP
// router. Absent data extracts degrade the service instead of failing it:
// the corresponding DataContext field stays nil and the panels report the
// gap in their warnings.
func buildApplication(cfg *config.Config, logger logging.Logger) (*application, error) {
	app := &application{log: logger}
	built := false
	defer func() {
		if !built {
			app.Close()
		}
	}()

	data := panels.DataContext{}

	if cfg.PatentsAvailable() {
		db, err := sqlite.Open(cfg.Database.PatentsPath, true)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, db.Close)
		data.Patents = sqlite.NewPatentStore(db)
		logger.Info("patent store opened", logging.String("path", cfg.Database.PatentsPath))
	} else {
		logger.Warn("patent store unavailable", logging.String("path", cfg.Database.PatentsPath))
	}

	if cfg.ProjectsAvailable() {
		db, err := sqlite.Open(cfg.Database.ProjectsPath, true)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, db.Close)
		data.Projects = sqlite.NewProjectStore(db)
		logger.Info("project store opened", logging.String("path", cfg.Database.ProjectsPath))
	} else {
		logger.Warn("project store unavailable", logging.String("path", cfg.Database.ProjectsPath))
	}

	// The entity-resolution cache is read-write and created on first
	// start, so its directory has to exist before the driver opens it.
	if dir := filepath.Dir(cfg.Database.GleifCachePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	cacheDB, err := sqlite.Open(cfg.Database.GleifCachePath, false)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, cacheDB.Close)
	if err := sqlite.Migrate(cacheDB.DB, sqlite.MigrationsFS(), sqlite.GleifCacheMigrations); err != nil {
		return nil, err
	}
	cache := sqlite.NewGleifCache(cacheDB, cfg.Radar.GleifTTL)

	var (
		radarMetrics   *prometheus.RadarMetrics
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			return nil, err
		}
		radarMetrics = prometheus.NewRadarMetrics(collector)
		metricsHandler = collector.Handler()
	} else {
		radarMetrics = prometheus.NewRadarMetrics(nil)
	}

	clientOpts := []apiclients.Option{apiclients.WithMetrics(radarMetrics)}
	openaire := apiclients.NewOpenAIREClient(apiclients.OpenAIREConfig{
		AccessToken:  cfg.APIs.OpenAIRE.AccessToken,
		RefreshToken: cfg.APIs.OpenAIRE.RefreshToken,
	}, logger, clientOpts...)
	data.Publications = openaire
	data.Papers = apiclients.NewSemanticScholarClient(apiclients.SemanticScholarConfig{
		APIKey: cfg.APIs.SemanticScholar.APIKey,
	}, logger, clientOpts...)
	data.Entities = apiclients.NewGleifClient(apiclients.GleifConfig{}, cache, logger, clientOpts...)

	radarSvc := radar.NewService(radar.ServiceConfig{
		Data:    data,
		Radar:   cfg.Radar,
		Tokens:  openaire,
		Metrics: radarMetrics,
		Logger:  logger,
	})
	suggestSvc := suggest.NewService(data.Patents, data.Projects, logger)

	app.Router = httpapi.NewRouter(httpapi.RouterConfig{
		RadarHandler:   handlers.NewRadarHandler(radarSvc, radarMetrics, logger),
		DataHandler:    handlers.NewDataHandler(cfg, suggestSvc, logger),
		Logger:         logger,
		Metrics:        radarMetrics,
		MetricsHandler: metricsHandler,
		CORS:           cfg.CORS,
		RateLimit:      cfg.RateLimit,
	})
	built = true
	return app, nil
}
