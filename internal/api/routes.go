// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lnies/pressure-display/internal/schema"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Source          SeriesSource
	Schema          *schema.Schema
	RefreshInterval time.Duration
	Version         string
}

// Handlers holds all handler instances
type Handlers struct {
	Health HealthHandler
	Series SeriesHandler
	Stream StreamHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health: NewHealthHandler(deps.Version, deps.Source),
		Series: NewSeriesHandler(deps.Source, deps.Schema, deps.RefreshInterval),
		Stream: NewWebSocketHandler(deps.Source),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	api := e.Group("/api")

	// Health check
	api.GET("/health", handlers.Health.HandleHealth)

	api.GET("/status", handlers.Series.HandleStatus)
	api.GET("/groups", handlers.Series.HandleGroups)
	api.GET("/errors", handlers.Series.HandleErrors)

	seriesGroup := api.Group("/series")
	seriesGroup.GET("", handlers.Series.HandleSeries)
	seriesGroup.GET("/msgpack", handlers.Series.HandleSeriesMsgpack)
	seriesGroup.GET("/downsample", handlers.Series.HandleDownsample)
	seriesGroup.GET("/latest", handlers.Series.HandleLatest)

	api.GET("/ws", handlers.Stream.HandleWebSocket)
}

// MiddlewareOptions selects the optional middleware.
type MiddlewareOptions struct {
	EnableCORS           bool
	AllowOrigins         []string
	EnableRequestLogging bool
	EnableCompression    bool
	CompressionLevel     int
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, opts MiddlewareOptions) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.Recover())

	if opts.EnableRequestLogging {
		e.Use(RequestLogger())
	}

	if opts.EnableCORS {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: opts.AllowOrigins,
			AllowMethods: []string{echo.GET, echo.HEAD, echo.OPTIONS},
		}))
	}

	if opts.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: opts.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				// Gzip breaks the WebSocket upgrade
				return c.Path() == "/api/ws"
			},
		}))
	}
}
