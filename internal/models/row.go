// Package models contains domain types for the pressure display backend.
package models

import "time"

// ChannelKind distinguishes pressure readings from their status flags.
type ChannelKind string

const (
	ChannelKindPressure ChannelKind = "pressure"
	ChannelKindStatus   ChannelKind = "status"
)

// Channel is one named signal column of the log schema.
type Channel struct {
	Name string      `json:"name" msgpack:"name"`
	Kind ChannelKind `json:"kind" msgpack:"kind"`
}

// Value holds one channel reading. Pressure is set for pressure channels,
// Status for status channels.
type Value struct {
	Pressure float64 `json:"pressure,omitempty" msgpack:"pressure,omitempty"`
	Status   string  `json:"status,omitempty" msgpack:"status,omitempty"`
}

// RawRow is one content line of a log file after column coercion but before
// timestamp normalization.
type RawRow struct {
	Line   int     // 1-based line number in the source file
	Index  string  // leading index column, cleared by RawTable.DropIndex
	Date   string  // MM/DD/YYYY
	Clock  string  // HH:MM:SS followed by AM or PM
	Values []Value // one per schema channel, in schema order
}

// NormalizedRow is a RawRow whose date/clock pair was replaced by an
// absolute timestamp.
type NormalizedRow struct {
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
	Source    string    `json:"source" msgpack:"source"` // file name the row came from
	Line      int       `json:"line" msgpack:"line"`
	Values    []Value   `json:"values" msgpack:"values"`
}
