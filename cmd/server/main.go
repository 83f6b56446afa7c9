package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lnies/pressure-display/internal/api"
	"github.com/lnies/pressure-display/internal/config"
	"github.com/lnies/pressure-display/internal/ingest"
	"github.com/lnies/pressure-display/internal/models"
	"github.com/lnies/pressure-display/internal/observability"
	"github.com/lnies/pressure-display/internal/refresh"
	"github.com/lnies/pressure-display/internal/schema"
	"github.com/lnies/pressure-display/internal/seriesdb"
	"github.com/rs/zerolog/log"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath, err := resolveConfigPath()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}

	// Load XML configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logCloser := observability.InitLogger(cfg.Advanced.LogLevel, cfg.Advanced.LogFile)
	defer logCloser.Close()

	if err := run(cfg, configPath); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		logCloser.Close()
		os.Exit(1)
	}
}

// resolveConfigPath prefers CONFIG_PATH and otherwise looks next to the
// executable.
func resolveConfigPath() (string, error) {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p, nil
	}
	exePath, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exePath), "PressureDisplay.config.xml"), nil
}

func run(cfg *config.AppConfig, configPath string) error {
	s, err := loadSchema(cfg.Ingest.SchemaFile)
	if err != nil {
		return err
	}

	pipeline, err := newPipeline(cfg, s)
	if err != nil {
		return err
	}

	holder := refresh.NewHolder()
	defer holder.Close()

	dbOpts := seriesdb.Options{
		Threads:     cfg.Advanced.DuckDBThreads,
		MemoryLimit: cfg.Advanced.DuckDBMemoryLimit,
	}
	driver, err := refresh.NewDriver(pipeline, holder, func(ctx context.Context, series *models.Series) (*seriesdb.Index, error) {
		return seriesdb.Build(ctx, series, dbOpts)
	}, cfg.RefreshInterval())
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, api.MiddlewareOptions{
		EnableCORS:           cfg.Server.EnableCORS,
		AllowOrigins:         cfg.GetAllowOrigins(),
		EnableRequestLogging: cfg.Advanced.EnableRequestLogging,
		EnableCompression:    cfg.Advanced.EnableCompression,
		CompressionLevel:     cfg.Advanced.CompressionLevel,
	})

	handlers := api.NewHandlers(&api.Dependencies{
		Source:          holder,
		Schema:          s,
		RefreshInterval: driver.Interval(),
		Version:         Version,
	})
	api.RegisterRoutes(e, handlers)

	// Configure server with settings from XML config
	srv := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(cfg, configPath)

	// The first refresh runs before the listener opens so the API never
	// serves a cold holder in normal operation.
	driver.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- e.StartServer(srv)
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			driver.Stop(context.Background())
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	handlers.Stream.Close()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server did not shut down cleanly")
	}
	if err := driver.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Refresh still running at shutdown")
	}
	return nil
}

func loadSchema(path string) (*schema.Schema, error) {
	if path == "" {
		return schema.Default(), nil
	}
	s, err := schema.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	log.Info().Str("file", path).Int("columns", s.Width()).Msg("Loaded channel schema")
	return s, nil
}

func newPipeline(cfg *config.AppConfig, s *schema.Schema) (*ingest.Pipeline, error) {
	policy, err := ingest.ParseMarkerPolicy(cfg.Ingest.MarkerPolicy)
	if err != nil {
		return nil, err
	}
	ordering, err := ingest.OrderingFor(cfg.Ingest.Ordering)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	return ingest.NewPipeline(ingest.Options{
		Pattern:           cfg.Ingest.DataPattern,
		Window:            cfg.Ingest.WindowFiles,
		Ordering:          ordering,
		Schema:            s,
		HeaderLines:       cfg.Ingest.HeaderLines,
		Normalizer:        ingest.Normalizer{Policy: policy, Location: loc},
		MaxReportedErrors: cfg.Ingest.MaxReportedErrors,
	})
}

func printBanner(cfg *config.AppConfig, configPath string) {
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Vacuum Pressure Display Server                  ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Logs:      %-46s║\n", cfg.Ingest.DataPattern)
	fmt.Printf("║  Window:    %-46s║\n", fmt.Sprintf("%d files, every %ds", cfg.Ingest.WindowFiles, cfg.Ingest.RefreshIntervalSeconds))
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
}
