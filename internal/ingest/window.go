package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lnies/pressure-display/internal/models"
)

// Ordering decides which of two log files is older. Compare returns a
// negative number when a sorts before b.
type Ordering interface {
	Compare(a, b models.LogFile) int
}

// ByName orders files lexically by basename. It assumes the logger writes
// names that sort chronologically (zero-padded timestamps).
type ByName struct{}

func (ByName) Compare(a, b models.LogFile) int {
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return strings.Compare(a.Path, b.Path)
}

// ByModTime orders files by modification time, falling back to the name.
type ByModTime struct{}

func (ByModTime) Compare(a, b models.LogFile) int {
	if c := a.ModTime.Compare(b.ModTime); c != 0 {
		return c
	}
	return ByName{}.Compare(a, b)
}

// Ordering names accepted by OrderingFor.
const (
	OrderingName    = "name"
	OrderingModTime = "mtime"
)

// OrderingFor returns the Ordering registered under name.
func OrderingFor(name string) (Ordering, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", OrderingName:
		return ByName{}, nil
	case OrderingModTime:
		return ByModTime{}, nil
	default:
		return nil, fmt.Errorf("unknown file ordering %q", name)
	}
}

// SelectWindow sorts the candidates and keeps the last n. It returns
// ErrNoData when nothing is left. The input slice is not modified.
func SelectWindow(files []models.LogFile, n int, ordering Ordering) ([]models.LogFile, error) {
	if n <= 0 || len(files) == 0 {
		return nil, ErrNoData
	}
	if ordering == nil {
		ordering = ByName{}
	}

	sorted := make([]models.LogFile, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool {
		return ordering.Compare(sorted[i], sorted[j]) < 0
	})

	if len(sorted) > n {
		sorted = sorted[len(sorted)-n:]
	}
	return sorted, nil
}
