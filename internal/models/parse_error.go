package models

import "fmt"

// ParseErrorKind classifies a recoverable ingestion failure.
type ParseErrorKind string

const (
	ParseErrorMalformedRow       ParseErrorKind = "malformed_row"
	ParseErrorMalformedTimestamp ParseErrorKind = "malformed_timestamp"
	ParseErrorUnreadableFile     ParseErrorKind = "unreadable_file"
)

// ParseError represents an error encountered during ingestion. Err holds the
// underlying error so callers can match sentinels with errors.Is.
type ParseError struct {
	File    string         `json:"file" msgpack:"file"`
	Line    int            `json:"line" msgpack:"line"`
	Content string         `json:"content,omitempty" msgpack:"content,omitempty"`
	Reason  string         `json:"reason" msgpack:"reason"`
	Kind    ParseErrorKind `json:"kind" msgpack:"kind"`
	Err     error          `json:"-" msgpack:"-"`
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
