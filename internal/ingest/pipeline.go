package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lnies/pressure-display/internal/models"
	"github.com/lnies/pressure-display/internal/schema"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultMaxReportedErrors bounds the parse errors kept on a Result.
const DefaultMaxReportedErrors = 100

// Options configures a Pipeline.
type Options struct {
	Pattern           string // glob for candidate log files
	Window            int    // number of most recent files to merge
	Ordering          Ordering
	Schema            *schema.Schema
	HeaderLines       int
	Normalizer        Normalizer
	MaxReportedErrors int
}

// Stats counts what happened during one run.
type Stats struct {
	FilesLocated        int `json:"filesLocated" msgpack:"filesLocated"`
	FilesSelected       int `json:"filesSelected" msgpack:"filesSelected"`
	FilesUnreadable     int `json:"filesUnreadable" msgpack:"filesUnreadable"`
	RowsParsed          int `json:"rowsParsed" msgpack:"rowsParsed"`
	RowsMalformed       int `json:"rowsMalformed" msgpack:"rowsMalformed"`
	TimestampsMalformed int `json:"timestampsMalformed" msgpack:"timestampsMalformed"`
}

// Result is the outcome of one ingestion run. Series is nil exactly when
// NoData is set; otherwise it may still hold zero rows.
type Result struct {
	RunID     string              `json:"runId" msgpack:"runId"`
	StartedAt time.Time           `json:"startedAt" msgpack:"startedAt"`
	Duration  time.Duration       `json:"duration" msgpack:"duration"`
	NoData    bool                `json:"noData" msgpack:"noData"`
	Series    *models.Series      `json:"series,omitempty" msgpack:"series,omitempty"`
	Stats     Stats               `json:"stats" msgpack:"stats"`
	Errors    []models.ParseError `json:"errors" msgpack:"errors"`
}

// Pipeline runs locate → select → parse → normalize → merge.
type Pipeline struct {
	opts   Options
	parser *RowParser
}

// NewPipeline validates options and fills in defaults.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Schema == nil {
		return nil, fmt.Errorf("pipeline requires a schema")
	}
	if opts.Pattern == "" {
		return nil, fmt.Errorf("pipeline requires a file pattern")
	}
	if opts.Window < 0 {
		return nil, fmt.Errorf("window must not be negative, got %d", opts.Window)
	}
	if opts.Ordering == nil {
		opts.Ordering = ByName{}
	}
	if opts.MaxReportedErrors <= 0 {
		opts.MaxReportedErrors = DefaultMaxReportedErrors
	}

	return &Pipeline{
		opts:   opts,
		parser: NewRowParser(opts.Schema, opts.HeaderLines),
	}, nil
}

// Schema returns the schema the pipeline parses with.
func (p *Pipeline) Schema() *schema.Schema {
	return p.opts.Schema
}

// Run executes one ingestion. It never fails: every problem is either
// recovered per row/file or reported through NoData.
func (p *Pipeline) Run() *Result {
	res := &Result{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
		Errors:    make([]models.ParseError, 0),
	}
	logger := log.With().Str("run_id", shortID(res.RunID)).Logger()

	defer func() {
		res.Duration = time.Since(res.StartedAt)
		logger.Info().
			Bool("no_data", res.NoData).
			Int("files_selected", res.Stats.FilesSelected).
			Int("files_unreadable", res.Stats.FilesUnreadable).
			Int("rows", res.Stats.RowsParsed).
			Int("rows_malformed", res.Stats.RowsMalformed).
			Int("timestamps_malformed", res.Stats.TimestampsMalformed).
			Dur("duration", res.Duration).
			Msg("Ingestion run complete")
	}()

	located, err := Locate(p.opts.Pattern)
	if err != nil {
		logger.Warn().Err(err).Str("pattern", p.opts.Pattern).Msg("Locating log files failed")
	}
	res.Stats.FilesLocated = len(located)

	selected, err := SelectWindow(located, p.opts.Window, p.opts.Ordering)
	if errors.Is(err, ErrNoData) {
		logger.Debug().Str("pattern", p.opts.Pattern).Int("window", p.opts.Window).Msg("No log files to ingest")
		res.NoData = true
		return res
	}
	res.Stats.FilesSelected = len(selected)

	parts := make([]FileRows, 0, len(selected))
	for _, file := range selected {
		rows, ok := p.ingestFile(file, res, logger)
		if !ok {
			continue
		}
		parts = append(parts, FileRows{File: file, Rows: rows})
	}

	res.Series = MergeSeries(p.opts.Schema.Channels(), parts)
	return res
}

// ingestFile parses and normalizes one file. ok is false when the file
// could not be read at all.
func (p *Pipeline) ingestFile(file models.LogFile, res *Result, logger zerolog.Logger) ([]models.NormalizedRow, bool) {
	table, parseErrs, err := p.parser.Parse(file.Path)
	if err != nil {
		res.Stats.FilesUnreadable++
		p.report(res, models.ParseError{
			File:   file.Name,
			Reason: err.Error(),
			Kind:   models.ParseErrorUnreadableFile,
			Err:    err,
		})
		logger.Warn().Err(err).Str("file", file.Path).Msg("Skipping unreadable log file")
		return nil, false
	}

	res.Stats.RowsMalformed += len(parseErrs)
	for _, pe := range parseErrs {
		pe.File = file.Name
		p.report(res, *pe)
	}

	table = table.DropIndex()

	rows := make([]models.NormalizedRow, 0, len(table.Rows))
	for _, raw := range table.Rows {
		row, err := p.opts.Normalizer.Normalize(raw, file.Name)
		if err != nil {
			res.Stats.TimestampsMalformed++
			p.report(res, models.ParseError{
				File:    file.Name,
				Line:    raw.Line,
				Content: raw.Date + " " + raw.Clock,
				Reason:  err.Error(),
				Kind:    models.ParseErrorMalformedTimestamp,
				Err:     err,
			})
			continue
		}
		rows = append(rows, row)
	}
	res.Stats.RowsParsed += len(rows)

	if len(parseErrs) > 0 || len(rows) < len(table.Rows) {
		logger.Debug().
			Str("file", file.Name).
			Int("rows", len(rows)).
			Int("malformed_rows", len(parseErrs)).
			Int("malformed_timestamps", len(table.Rows)-len(rows)).
			Msg("Dropped lines while ingesting file")
	}

	return rows, true
}

func (p *Pipeline) report(res *Result, pe models.ParseError) {
	if len(res.Errors) < p.opts.MaxReportedErrors {
		res.Errors = append(res.Errors, pe)
	}
}

// shortID truncates an ID for logging.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
