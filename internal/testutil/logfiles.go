// Package testutil writes pressure log fixtures for tests.
package testutil

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// Gauges is the number of reading/status pairs in the default log layout.
const Gauges = 23

// Header is a header line as the logger writes it. Parsers skip it without
// looking at it.
const Header = "VI\tDate\tTime\tAlkali\tAlkali_status"

// LogLine builds a content line in the default layout where every gauge
// reads pressure with status "0".
func LogLine(index int, date, clock string, pressure float64) string {
	fields := []string{strconv.Itoa(index), date, clock}
	for i := 0; i < Gauges; i++ {
		fields = append(fields, strconv.FormatFloat(pressure, 'E', 3, 64), "0")
	}
	return strings.Join(fields, "\t")
}

// WriteLog writes Header followed by lines into dir/name and returns the
// path.
func WriteLog(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := Header + "\n" + strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}
