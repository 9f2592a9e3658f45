// Command apiserver runs the technology-radar HTTP service: the radar
// composition endpoint, title suggestions, and the health and metadata
// probes, backed by the local SQLite extracts and the public upstream APIs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/turtacn/TechRadar-Intelligence/internal/config"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
	httpapi "github.com/turtacn/TechRadar-Intelligence/internal/interfaces/http"
)

const defaultConfigPath = "configs/config.yaml"

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", defaultConfigPath, "path to the YAML configuration file")
	flag.Parse()

	// Local development keeps upstream credentials in a .env file; a
	// missing file is not an error.
	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      cfg.Log.OutputPaths,
		ErrorOutputPaths: cfg.Log.ErrorOutputPaths,
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	logging.SetDefault(logger)

	logger.Info("starting apiserver",
		logging.String("version", version),
		logging.String("host", cfg.Server.Host),
		logging.Int("port", cfg.Server.Port))

	app, err := buildApplication(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := httpapi.NewServer(cfg.Server, app.Router, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case sig := <-quit:
		logger.Info("shutdown signal received", logging.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// loadConfig reads the YAML file when it exists and falls back to
// environment variables plus defaults when it does not, so the binary
// also starts in a bare container without a mounted config.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config: %w", err)
		}
		return config.Load()
	}
	return config.Load(config.WithConfigPath(path))
}
