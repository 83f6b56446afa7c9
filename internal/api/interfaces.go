// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/lnies/pressure-display/internal/refresh"
	"github.com/lnies/pressure-display/internal/seriesdb"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SeriesHandler serves the latest merged series and its metadata.
type SeriesHandler interface {
	HandleStatus(c echo.Context) error
	HandleGroups(c echo.Context) error
	HandleSeries(c echo.Context) error
	HandleSeriesMsgpack(c echo.Context) error
	HandleDownsample(c echo.Context) error
	HandleLatest(c echo.Context) error
	HandleErrors(c echo.Context) error
}

// StreamHandler pushes refresh notifications to browsers.
type StreamHandler interface {
	HandleWebSocket(c echo.Context) error
	Close()
}

// SeriesSource is the read side of the refresh holder.
// This allows mocking in tests
type SeriesSource interface {
	Latest() *refresh.Snapshot
	WithIndex(fn func(*refresh.Snapshot, *seriesdb.Index) error) (bool, error)
	Subscribe() (<-chan refresh.Tick, func())
}
