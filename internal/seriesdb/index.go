// Package seriesdb holds the merged series of one refresh in an in-memory
// DuckDB database so the API can bucket and range-query it without walking
// every row in Go.
package seriesdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/lnies/pressure-display/internal/models"
	"github.com/marcboeker/go-duckdb"
	"github.com/rs/zerolog/log"
)

// Options tunes the embedded database.
type Options struct {
	Threads     int    // PRAGMA threads, 0 keeps the DuckDB default
	MemoryLimit string // PRAGMA memory_limit, e.g. "256MB"
}

// Point is one downsampled bucket of a pressure channel.
type Point struct {
	Bucket time.Time `json:"t" msgpack:"t"`
	Min    float64   `json:"min" msgpack:"min"`
	Max    float64   `json:"max" msgpack:"max"`
	Avg    float64   `json:"avg" msgpack:"avg"`
	Count  int       `json:"n" msgpack:"n"`
}

// ChannelPoints is the downsampled trace of one channel.
type ChannelPoints struct {
	Channel string  `json:"channel" msgpack:"channel"`
	Points  []Point `json:"points" msgpack:"points"`
}

// Reading is the last finite value of a channel in series order.
type Reading struct {
	Channel   string    `json:"channel" msgpack:"channel"`
	Timestamp time.Time `json:"t" msgpack:"t"`
	Value     float64   `json:"value" msgpack:"value"`
}

// Index is a read-only, in-memory view of one Series. It is rebuilt from
// scratch on every refresh and never written to disk.
type Index struct {
	db       *sql.DB
	rows     int
	samples  int
	channels []string

	// Limits concurrent queries so a burst of dashboards cannot pile up
	// DuckDB work.
	querySem chan struct{}
}

// Build loads the pressure channels of series into a fresh in-memory
// database. Status columns are not indexed.
func Build(ctx context.Context, series *models.Series, opts Options) (*Index, error) {
	connector, err := duckdb.NewConnector("", func(execer driver.ExecerContext) error {
		pragmas := []string{"PRAGMA enable_progress_bar=false"}
		if opts.Threads > 0 {
			pragmas = append(pragmas, fmt.Sprintf("PRAGMA threads=%d", opts.Threads))
		}
		if opts.MemoryLimit != "" {
			pragmas = append(pragmas, fmt.Sprintf("PRAGMA memory_limit='%s'", strings.ReplaceAll(opts.MemoryLimit, "'", "")))
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return fmt.Errorf("%s: %w", pragma, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	_, err = db.ExecContext(ctx, `
		CREATE TABLE samples (
			seq     BIGINT NOT NULL,
			ts      BIGINT NOT NULL,
			file    VARCHAR NOT NULL,
			channel VARCHAR NOT NULL,
			value   DOUBLE
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	ix := &Index{
		db:       db,
		querySem: make(chan struct{}, 4),
	}
	if err := ix.load(ctx, series); err != nil {
		db.Close()
		return nil, err
	}

	log.Debug().
		Int("rows", ix.rows).
		Int("samples", ix.samples).
		Int("channels", len(ix.channels)).
		Msg("Series index built")
	return ix, nil
}

// load appends every pressure value using the native Appender API.
func (ix *Index) load(ctx context.Context, series *models.Series) error {
	if series == nil {
		return nil
	}

	positions := make([]int, 0, len(series.Channels))
	for i, ch := range series.Channels {
		if ch.Kind == models.ChannelKindPressure {
			positions = append(positions, i)
			ix.channels = append(ix.channels, ch.Name)
		}
	}

	conn, err := ix.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", "samples")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		for seq, row := range series.Rows {
			ts := row.Timestamp.UnixMilli()
			for _, pos := range positions {
				if pos >= len(row.Values) {
					continue
				}
				err := appender.AppendRow(int64(seq), ts, row.Source, series.Channels[pos].Name, row.Values[pos].Pressure)
				if err != nil {
					return fmt.Errorf("failed to append row %d: %w", seq, err)
				}
				ix.samples++
			}
		}
		return appender.Flush()
	})
	if err != nil {
		return fmt.Errorf("appender error: %w", err)
	}

	ix.rows = series.Len()
	return nil
}

// Len returns the number of series rows in the index.
func (ix *Index) Len() int {
	return ix.rows
}

// Channels returns the indexed pressure channels in schema order.
func (ix *Index) Channels() []string {
	return append([]string(nil), ix.channels...)
}

// Range returns the earliest and latest timestamp, or nil when empty.
func (ix *Index) Range(ctx context.Context) (*models.TimeRange, error) {
	if err := ix.acquire(ctx); err != nil {
		return nil, err
	}
	defer ix.release()

	var minTs, maxTs sql.NullInt64
	err := ix.db.QueryRowContext(ctx, "SELECT MIN(ts), MAX(ts) FROM samples").Scan(&minTs, &maxTs)
	if err != nil {
		return nil, fmt.Errorf("range query failed: %w", err)
	}
	if !minTs.Valid || !maxTs.Valid {
		return nil, nil
	}
	return &models.TimeRange{
		Start: time.UnixMilli(minTs.Int64).UTC(),
		End:   time.UnixMilli(maxTs.Int64).UTC(),
	}, nil
}

// Downsample aggregates the named channels into fixed-width time buckets.
// NaN and infinite readings are ignored. A zero start or end leaves that
// side open, and an empty channel list means every indexed channel. The
// result follows the order of the requested channels; unknown channels come
// back with no points.
func (ix *Index) Downsample(ctx context.Context, channels []string, start, end time.Time, bucket time.Duration) ([]ChannelPoints, error) {
	width := bucket.Milliseconds()
	if width <= 0 {
		return nil, fmt.Errorf("bucket must be at least 1ms, got %s", bucket)
	}
	if len(channels) == 0 {
		channels = ix.channels
	}

	if err := ix.acquire(ctx); err != nil {
		return nil, err
	}
	defer ix.release()

	where, args := buildWhereClause(channels, start, end)
	query := fmt.Sprintf(`
		SELECT channel, (ts // %d) * %d AS bucket, MIN(value), MAX(value), AVG(value), COUNT(*)
		FROM samples
		WHERE %s
		GROUP BY channel, bucket
		ORDER BY channel, bucket
	`, width, width, where)

	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("downsample query failed: %w", err)
	}
	defer rows.Close()

	byChannel := make(map[string][]Point, len(channels))
	for rows.Next() {
		var (
			channel string
			ts      int64
			p       Point
		)
		if err := rows.Scan(&channel, &ts, &p.Min, &p.Max, &p.Avg, &p.Count); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		p.Bucket = time.UnixMilli(ts).UTC()
		byChannel[channel] = append(byChannel[channel], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("downsample rows: %w", err)
	}

	out := make([]ChannelPoints, 0, len(channels))
	for _, name := range channels {
		points := byChannel[name]
		if points == nil {
			points = []Point{}
		}
		out = append(out, ChannelPoints{Channel: name, Points: points})
	}
	return out, nil
}

// Latest returns the last finite reading of each requested channel, taken
// by series position rather than by timestamp. Channels with no finite
// reading are omitted.
func (ix *Index) Latest(ctx context.Context, channels []string) ([]Reading, error) {
	if len(channels) == 0 {
		channels = ix.channels
	}

	if err := ix.acquire(ctx); err != nil {
		return nil, err
	}
	defer ix.release()

	where, args := buildWhereClause(channels, time.Time{}, time.Time{})
	query := `
		SELECT channel, arg_max(ts, seq), arg_max(value, seq)
		FROM samples
		WHERE ` + where + `
		GROUP BY channel
	`
	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("latest query failed: %w", err)
	}
	defer rows.Close()

	byChannel := make(map[string]Reading, len(channels))
	for rows.Next() {
		var (
			r  Reading
			ts int64
		)
		if err := rows.Scan(&r.Channel, &ts, &r.Value); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		r.Timestamp = time.UnixMilli(ts).UTC()
		byChannel[r.Channel] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("latest rows: %w", err)
	}

	out := make([]Reading, 0, len(byChannel))
	for _, name := range channels {
		if r, ok := byChannel[name]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// Close releases the database.
func (ix *Index) Close() error {
	if ix == nil || ix.db == nil {
		return nil
	}
	return ix.db.Close()
}

func (ix *Index) acquire(ctx context.Context) error {
	select {
	case ix.querySem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (ix *Index) release() {
	<-ix.querySem
}

// buildWhereClause filters on channels and an optional time window. Non-finite
// readings never match.
func buildWhereClause(channels []string, start, end time.Time) (string, []interface{}) {
	conditions := []string{"isfinite(value)"}
	args := make([]interface{}, 0, len(channels)+2)

	if len(channels) > 0 {
		placeholders := make([]string, len(channels))
		for i, name := range channels {
			placeholders[i] = "?"
			args = append(args, name)
		}
		conditions = append(conditions, "channel IN ("+strings.Join(placeholders, ", ")+")")
	}
	if !start.IsZero() {
		conditions = append(conditions, "ts >= ?")
		args = append(args, start.UnixMilli())
	}
	if !end.IsZero() {
		conditions = append(conditions, "ts <= ?")
		args = append(args, end.UnixMilli())
	}

	return strings.Join(conditions, " AND "), args
}
