// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	source  SeriesSource
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, source SeriesSource) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		source:  source,
	}
}

// HandleHealth returns server health status. The server is healthy as soon
// as it is up; "ready" reports whether the first refresh has been published.
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"ready":   h.source != nil && h.source.Latest() != nil,
	})
}
