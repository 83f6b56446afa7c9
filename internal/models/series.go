package models

import "time"

// Series is the merged output of one ingestion run. Rows keep file
// selection order and are never re-sorted by timestamp.
type Series struct {
	Channels  []Channel       `json:"channels" msgpack:"channels"`
	Files     []string        `json:"files" msgpack:"files"`
	Rows      []NormalizedRow `json:"rows" msgpack:"rows"`
	TimeRange *TimeRange      `json:"timeRange,omitempty" msgpack:"timeRange,omitempty"`
}

// TimeRange represents a time window.
type TimeRange struct {
	Start time.Time `json:"start" msgpack:"start"`
	End   time.Time `json:"end" msgpack:"end"`
}

// NewSeries creates an empty Series over the given channels.
func NewSeries(channels []Channel) *Series {
	return &Series{
		Channels: channels,
		Files:    make([]string, 0),
		Rows:     make([]NormalizedRow, 0),
	}
}

// Len returns the number of rows.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}

// ChannelIndex returns the position of the named channel in Values, or -1.
func (s *Series) ChannelIndex(name string) int {
	for i, ch := range s.Channels {
		if ch.Name == name {
			return i
		}
	}
	return -1
}

// Timestamps returns the row timestamps in series order.
func (s *Series) Timestamps() []time.Time {
	out := make([]time.Time, len(s.Rows))
	for i, row := range s.Rows {
		out[i] = row.Timestamp
	}
	return out
}

// Pressures returns the named pressure channel as a column.
func (s *Series) Pressures(name string) ([]float64, bool) {
	idx := s.ChannelIndex(name)
	if idx < 0 || s.Channels[idx].Kind != ChannelKindPressure {
		return nil, false
	}
	out := make([]float64, len(s.Rows))
	for i, row := range s.Rows {
		out[i] = row.Values[idx].Pressure
	}
	return out, true
}

// Statuses returns the named status channel as a column.
func (s *Series) Statuses(name string) ([]string, bool) {
	idx := s.ChannelIndex(name)
	if idx < 0 || s.Channels[idx].Kind != ChannelKindStatus {
		return nil, false
	}
	out := make([]string, len(s.Rows))
	for i, row := range s.Rows {
		out[i] = row.Values[idx].Status
	}
	return out, true
}
