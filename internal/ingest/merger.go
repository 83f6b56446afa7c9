package ingest

import (
	"github.com/lnies/pressure-display/internal/models"
)

// FileRows holds the normalized rows of one selected file.
type FileRows struct {
	File models.LogFile
	Rows []models.NormalizedRow
}

// MergeSeries concatenates per-file rows in the order the files were
// selected. Rows are neither re-sorted nor deduplicated, so overlapping
// files show up verbatim.
func MergeSeries(channels []models.Channel, parts []FileRows) *models.Series {
	series := models.NewSeries(channels)

	total := 0
	for _, part := range parts {
		total += len(part.Rows)
	}
	series.Rows = make([]models.NormalizedRow, 0, total)

	for _, part := range parts {
		series.Files = append(series.Files, part.File.Name)
		series.Rows = append(series.Rows, part.Rows...)
	}

	// Time range covers all rows; series order is file order, so the first
	// and last rows are not necessarily the extremes.
	for i, row := range series.Rows {
		if i == 0 {
			series.TimeRange = &models.TimeRange{Start: row.Timestamp, End: row.Timestamp}
			continue
		}
		if row.Timestamp.Before(series.TimeRange.Start) {
			series.TimeRange.Start = row.Timestamp
		}
		if row.Timestamp.After(series.TimeRange.End) {
			series.TimeRange.End = row.Timestamp
		}
	}

	return series
}
