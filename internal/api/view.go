// view.go - Response shapes for the series endpoints
package api

import (
	"math"
	"strconv"
	"time"

	"github.com/lnies/pressure-display/internal/ingest"
	"github.com/lnies/pressure-display/internal/models"
	"github.com/lnies/pressure-display/internal/refresh"
	"github.com/lnies/pressure-display/internal/schema"
)

// Pressure is a gauge reading. NaN and infinities have no JSON
// representation and are written as null.
type Pressure float64

// MarshalJSON implements json.Marshaler.
func (p Pressure) MarshalJSON() ([]byte, error) {
	f := float64(p)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

// ChannelTrace is one pressure channel laid out as a column aligned with
// SeriesView.Timestamps.
type ChannelTrace struct {
	Name   string     `json:"name" msgpack:"name"`
	Group  string     `json:"group,omitempty" msgpack:"group,omitempty"`
	Values []Pressure `json:"values" msgpack:"values"`
	Status []string   `json:"status,omitempty" msgpack:"status,omitempty"`
}

// SeriesView is the column-oriented rendering of a published series.
// Timestamps are Unix milliseconds in series order, which is file order and
// not necessarily chronological.
type SeriesView struct {
	NoData      bool              `json:"noData" msgpack:"noData"`
	Seq         uint64            `json:"seq" msgpack:"seq"`
	RunID       string            `json:"runId" msgpack:"runId"`
	PublishedAt time.Time         `json:"publishedAt" msgpack:"publishedAt"`
	Group       string            `json:"group,omitempty" msgpack:"group,omitempty"`
	Files       []string          `json:"files" msgpack:"files"`
	TimeRange   *models.TimeRange `json:"timeRange,omitempty" msgpack:"timeRange,omitempty"`
	Timestamps  []int64           `json:"timestamps" msgpack:"timestamps"`
	Channels    []ChannelTrace    `json:"channels" msgpack:"channels"`
}

// StatusView summarises the last refresh.
type StatusView struct {
	Ready                  bool              `json:"ready"`
	Seq                    uint64            `json:"seq"`
	RunID                  string            `json:"runId,omitempty"`
	StartedAt              *time.Time        `json:"startedAt,omitempty"`
	DurationMs             int64             `json:"durationMs"`
	PublishedAt            *time.Time        `json:"publishedAt,omitempty"`
	NextRefreshAt          *time.Time        `json:"nextRefreshAt,omitempty"`
	RefreshIntervalSeconds int               `json:"refreshIntervalSeconds"`
	NoData                 bool              `json:"noData"`
	Rows                   int               `json:"rows"`
	Files                  []string          `json:"files"`
	TimeRange              *models.TimeRange `json:"timeRange,omitempty"`
	Stats                  ingest.Stats      `json:"stats"`
	ReportedErrors         int               `json:"reportedErrors"`
}

// ErrorsView lists the parse problems of the last refresh.
type ErrorsView struct {
	Seq       uint64              `json:"seq"`
	RunID     string              `json:"runId"`
	Total     int                 `json:"total"`
	Truncated bool                `json:"truncated"`
	Errors    []models.ParseError `json:"errors"`
}

// buildSeriesView renders a snapshot, optionally restricted to one channel
// group. channels must be pressure channel names in display order.
func buildSeriesView(snap *refresh.Snapshot, s *schema.Schema, group string, channels []string) *SeriesView {
	view := &SeriesView{
		Seq:         snap.Seq,
		PublishedAt: snap.PublishedAt,
		Group:       group,
		Files:       []string{},
		Timestamps:  []int64{},
		Channels:    []ChannelTrace{},
	}
	res := snap.Result
	if res == nil || res.NoData || res.Series == nil {
		view.NoData = true
		if res != nil {
			view.RunID = res.RunID
		}
		return view
	}

	series := res.Series
	view.RunID = res.RunID
	view.Files = append(view.Files, series.Files...)
	view.TimeRange = series.TimeRange

	view.Timestamps = make([]int64, len(series.Rows))
	for i, row := range series.Rows {
		view.Timestamps[i] = row.Timestamp.UnixMilli()
	}

	if channels == nil {
		for _, ch := range series.Channels {
			if ch.Kind == models.ChannelKindPressure {
				channels = append(channels, ch.Name)
			}
		}
	}

	for _, name := range channels {
		values, ok := series.Pressures(name)
		if !ok {
			continue
		}
		trace := ChannelTrace{
			Name:   name,
			Group:  s.GroupOf(name),
			Values: make([]Pressure, len(values)),
		}
		for i, v := range values {
			trace.Values[i] = Pressure(v)
		}
		if statusCol, ok := s.StatusOf(name); ok {
			trace.Status, _ = series.Statuses(statusCol)
		}
		view.Channels = append(view.Channels, trace)
	}
	return view
}

// buildStatusView renders the metadata of a snapshot; snap may be nil.
func buildStatusView(snap *refresh.Snapshot, interval time.Duration) *StatusView {
	view := &StatusView{
		RefreshIntervalSeconds: int(interval / time.Second),
		Files:                  []string{},
	}
	if snap == nil {
		return view
	}

	view.Ready = true
	view.Seq = snap.Seq
	publishedAt := snap.PublishedAt
	view.PublishedAt = &publishedAt
	if interval > 0 {
		next := publishedAt.Add(interval)
		view.NextRefreshAt = &next
	}

	res := snap.Result
	if res == nil {
		view.NoData = true
		return view
	}
	startedAt := res.StartedAt
	view.StartedAt = &startedAt
	view.RunID = res.RunID
	view.DurationMs = res.Duration.Milliseconds()
	view.NoData = res.NoData
	view.Stats = res.Stats
	view.ReportedErrors = len(res.Errors)
	if res.Series != nil {
		view.Rows = res.Series.Len()
		view.Files = append(view.Files, res.Series.Files...)
		view.TimeRange = res.Series.TimeRange
	}
	return view
}

func buildErrorsView(snap *refresh.Snapshot) *ErrorsView {
	view := &ErrorsView{Seq: snap.Seq, Errors: []models.ParseError{}}
	res := snap.Result
	if res == nil {
		return view
	}
	view.RunID = res.RunID
	view.Total = res.Stats.RowsMalformed + res.Stats.TimestampsMalformed + res.Stats.FilesUnreadable
	view.Errors = append(view.Errors, res.Errors...)
	view.Truncated = view.Total > len(view.Errors)
	return view
}
