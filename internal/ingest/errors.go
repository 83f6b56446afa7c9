// Package ingest turns a directory of tab-separated vacuum pressure logs
// into one merged, timestamp-normalized series.
package ingest

import "errors"

var (
	// ErrNoMatchingFiles is returned when the locator pattern is unusable.
	ErrNoMatchingFiles = errors.New("no matching files")
	// ErrNoData signals that no file survived window selection.
	ErrNoData = errors.New("no data")
	// ErrMalformedRow marks a content line with the wrong arity or a value
	// that could not be coerced.
	ErrMalformedRow = errors.New("malformed row")
	// ErrMalformedTimestamp marks a row whose date/clock pair does not parse.
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	// ErrUnreadableFile marks a selected file that could not be read.
	ErrUnreadableFile = errors.New("unreadable file")
)
