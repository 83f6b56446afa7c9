package models

import "time"

// LogFile is a discovered log file. Name is the basename used for ordering.
type LogFile struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	ModTime time.Time `json:"modTime"`
}
