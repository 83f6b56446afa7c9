package ingest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/lnies/pressure-display/internal/models"
	"github.com/lnies/pressure-display/internal/schema"
)

const (
	maxLineSize    = 1024 * 1024
	readBufferSize = 64 * 1024
)

// RowParser decodes the tab-delimited pressure log format. Column names come
// from the schema, never from the file: the leading header lines are
// skipped without being inspected.
type RowParser struct {
	schema      *schema.Schema
	channels    []models.Channel
	headerLines int
}

// NewRowParser creates a parser for the given schema.
func NewRowParser(s *schema.Schema, headerLines int) *RowParser {
	if headerLines < 0 {
		headerLines = 0
	}
	return &RowParser{schema: s, channels: s.Channels(), headerLines: headerLines}
}

// Parse reads a whole file. The returned error is non-nil only when the file
// itself cannot be read; bad lines are reported in the ParseError slice.
func (p *RowParser) Parse(filePath string) (*models.RawTable, []*models.ParseError, error) {
	file, err := openLog(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	defer file.Close()

	return p.ParseReader(file, filePath)
}

// ParseReader is Parse over an arbitrary reader; source names the input in
// parse errors.
func (p *RowParser) ParseReader(r io.Reader, source string) (*models.RawTable, []*models.ParseError, error) {
	rows := make([]models.RawRow, 0)
	errors := make([]*models.ParseError, 0)
	strs := newStringPool()

	reader := bufio.NewReaderSize(r, readBufferSize)
	var buf []byte

	lineNum := 0
	for {
		raw, tooLong, err := readLine(reader, buf[:0])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
		}
		buf = raw
		lineNum++
		if lineNum <= p.headerLines {
			continue
		}
		if tooLong {
			errors = append(errors, malformedRow(source, lineNum, "", "line exceeds %d bytes", maxLineSize))
			continue
		}

		line := strings.TrimRight(string(raw), "\r")
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		row, parseErr := p.parseLine(line, lineNum, strs)
		if parseErr != nil {
			parseErr.File = source
			errors = append(errors, parseErr)
			continue
		}
		rows = append(rows, *row)
	}

	return &models.RawTable{
		Source:   source,
		Columns:  append([]string(nil), p.schema.Columns...),
		HasIndex: p.schema.HasIndex(),
		Rows:     rows,
	}, errors, nil
}

// readLine reads the next line into buf without its newline. A line longer
// than maxLineSize is consumed up to its newline and reported with tooLong;
// its content is not returned. io.EOF is returned only when no bytes are
// left.
func readLine(r *bufio.Reader, buf []byte) ([]byte, bool, error) {
	read := 0
	tooLong := false
	for {
		chunk, err := r.ReadSlice('\n')
		read += len(chunk)
		if !tooLong {
			if len(buf)+len(chunk) > maxLineSize+2 {
				tooLong = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}

		switch {
		case err == bufio.ErrBufferFull:
			continue
		case err == io.EOF:
			if read == 0 {
				return nil, false, io.EOF
			}
			return bytes.TrimSuffix(buf, []byte("\n")), tooLong, nil
		case err != nil:
			return nil, false, err
		}
		return bytes.TrimSuffix(buf, []byte("\n")), tooLong, nil
	}
}

func malformedRow(source string, lineNum int, content, format string, args ...interface{}) *models.ParseError {
	err := fmt.Errorf("%w: "+format, append([]interface{}{ErrMalformedRow}, args...)...)
	return &models.ParseError{
		File:    source,
		Line:    lineNum,
		Content: content,
		Reason:  err.Error(),
		Kind:    models.ParseErrorMalformedRow,
		Err:     err,
	}
}

func (p *RowParser) parseLine(line string, lineNum int, strs *stringPool) (*models.RawRow, *models.ParseError) {
	fields := strings.Split(line, "\t")
	if len(fields) != p.schema.Width() {
		return nil, malformedRow("", lineNum, line, "expected %d columns, got %d", p.schema.Width(), len(fields))
	}

	values := make([]models.Value, len(p.channels))
	for i, ch := range p.channels {
		raw := strings.TrimSpace(fields[p.schema.ChannelColumn(i)])
		if ch.Kind == models.ChannelKindStatus {
			values[i] = models.Value{Status: strs.intern(raw)}
			continue
		}
		if raw == "" {
			values[i] = models.Value{Pressure: math.NaN()}
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, malformedRow("", lineNum, line, "column %s: %q is not a number", ch.Name, raw)
		}
		values[i] = models.Value{Pressure: v}
	}

	row := &models.RawRow{
		Line:   lineNum,
		Date:   strs.intern(fields[p.schema.DatePos()]),
		Clock:  fields[p.schema.TimePos()],
		Values: values,
	}
	if p.schema.HasIndex() {
		row.Index = fields[0]
	}
	return row, nil
}
