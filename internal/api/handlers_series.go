// handlers_series.go - Read-only series handlers
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lnies/pressure-display/internal/refresh"
	"github.com/lnies/pressure-display/internal/schema"
	"github.com/lnies/pressure-display/internal/seriesdb"
	"github.com/vmihailenco/msgpack/v5"
)

const defaultBucket = time.Minute

// SeriesHandlerImpl implements the SeriesHandler interface
type SeriesHandlerImpl struct {
	source   SeriesSource
	schema   *schema.Schema
	interval time.Duration
}

// NewSeriesHandler creates a new series handler
func NewSeriesHandler(source SeriesSource, s *schema.Schema, interval time.Duration) SeriesHandler {
	return &SeriesHandlerImpl{
		source:   source,
		schema:   s,
		interval: interval,
	}
}

// HandleStatus returns the metadata of the last refresh.
func (h *SeriesHandlerImpl) HandleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, buildStatusView(h.source.Latest(), h.interval))
}

// HandleGroups returns the static channel grouping.
func (h *SeriesHandlerImpl) HandleGroups(c echo.Context) error {
	groups := h.schema.Groups
	if groups == nil {
		groups = []schema.Group{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"groups": groups,
	})
}

// HandleSeries returns the latest merged series as JSON.
func (h *SeriesHandlerImpl) HandleSeries(c echo.Context) error {
	view, err := h.seriesView(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// HandleSeriesMsgpack returns the latest merged series as MessagePack.
func (h *SeriesHandlerImpl) HandleSeriesMsgpack(c echo.Context) error {
	view, err := h.seriesView(c)
	if err != nil {
		return err
	}
	data, encErr := msgpack.Marshal(view)
	if encErr != nil {
		return NewInternalError("failed to encode msgpack", encErr)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleDownsample returns per-bucket min/max/avg traces computed by the
// series index. Query: bucket (Go duration, default 1m), group, start and
// end (RFC 3339).
func (h *SeriesHandlerImpl) HandleDownsample(c echo.Context) error {
	snap, err := h.snapshot()
	if err != nil {
		return err
	}
	group, channels, err := h.groupChannels(c.QueryParam("group"))
	if err != nil {
		return err
	}

	bucket := defaultBucket
	if raw := c.QueryParam("bucket"); raw != "" {
		d, parseErr := time.ParseDuration(raw)
		if parseErr != nil {
			return NewBadRequestError("invalid bucket", parseErr)
		}
		if d < time.Second {
			return NewBadRequestError("bucket must be at least 1s", nil)
		}
		bucket = d
	}
	start, err := timeParam(c, "start")
	if err != nil {
		return err
	}
	end, err := timeParam(c, "end")
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return NewBadRequestError("end is before start", nil)
	}

	if snap.Result == nil || snap.Result.NoData {
		return c.JSON(http.StatusOK, map[string]interface{}{"noData": true, "seq": snap.Seq})
	}

	var traces []seriesdb.ChannelPoints
	ok, queryErr := h.source.WithIndex(func(_ *refresh.Snapshot, ix *seriesdb.Index) error {
		var err error
		traces, err = ix.Downsample(c.Request().Context(), channels, start, end, bucket)
		return err
	})
	if !ok {
		return NewServiceUnavailableError("series index is not available")
	}
	if queryErr != nil {
		return NewInternalError("downsample failed", queryErr)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"noData":   false,
		"seq":      snap.Seq,
		"runId":    snap.Result.RunID,
		"group":    group,
		"bucket":   bucket.String(),
		"channels": traces,
	})
}

// HandleLatest returns the most recent finite reading of each channel.
func (h *SeriesHandlerImpl) HandleLatest(c echo.Context) error {
	snap, err := h.snapshot()
	if err != nil {
		return err
	}
	group, channels, err := h.groupChannels(c.QueryParam("group"))
	if err != nil {
		return err
	}
	if snap.Result == nil || snap.Result.NoData {
		return c.JSON(http.StatusOK, map[string]interface{}{"noData": true, "seq": snap.Seq})
	}

	var readings []seriesdb.Reading
	ok, queryErr := h.source.WithIndex(func(_ *refresh.Snapshot, ix *seriesdb.Index) error {
		var err error
		readings, err = ix.Latest(c.Request().Context(), channels)
		return err
	})
	if !ok {
		return NewServiceUnavailableError("series index is not available")
	}
	if queryErr != nil {
		return NewInternalError("latest query failed", queryErr)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"noData":   false,
		"seq":      snap.Seq,
		"group":    group,
		"readings": readings,
	})
}

// HandleErrors returns the parse errors reported by the last refresh.
func (h *SeriesHandlerImpl) HandleErrors(c echo.Context) error {
	snap, err := h.snapshot()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, buildErrorsView(snap))
}

func (h *SeriesHandlerImpl) seriesView(c echo.Context) (*SeriesView, error) {
	snap, err := h.snapshot()
	if err != nil {
		return nil, err
	}
	group, channels, err := h.groupChannels(c.QueryParam("group"))
	if err != nil {
		return nil, err
	}
	return buildSeriesView(snap, h.schema, group, channels), nil
}

func (h *SeriesHandlerImpl) snapshot() (*refresh.Snapshot, error) {
	snap := h.source.Latest()
	if snap == nil {
		return nil, NewServiceUnavailableError("no refresh has completed yet")
	}
	return snap, nil
}

// groupChannels resolves the group query parameter. An empty name selects
// every channel and yields nil.
func (h *SeriesHandlerImpl) groupChannels(name string) (string, []string, error) {
	if name == "" {
		return "", nil, nil
	}
	g, ok := h.schema.Group(name)
	if !ok {
		return "", nil, NewNotFoundError("group", name)
	}
	return g.Name, append([]string{}, g.Channels...), nil
}

func timeParam(c echo.Context, name string) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, NewBadRequestError("invalid "+name, err)
	}
	return t, nil
}
