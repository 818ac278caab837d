package importer

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

const maxLineSize = 1 << 20

// RawRow is one split data line.
type RawRow struct {
	Line   int // 1-based source line
	Fields []string
}

// RowReader splits text into rows. It skips a fixed number of leading lines
// and silently drops blank lines and lines the ignore func reports. Rows are
// produced one at a time; a RowReader is a single forward pass over its input.
type RowReader struct {
	sc     *bufio.Scanner
	delim  rune
	skip   int
	ignore func(line string) bool
	line   int
}

// NewRowReader returns a RowReader over r. ignore may be nil.
func NewRowReader(r io.Reader, delim rune, skip int, ignore func(line string) bool) *RowReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &RowReader{sc: sc, delim: delim, skip: skip, ignore: ignore}
}

// Next returns the next row, or io.EOF when the input is exhausted. A line
// that cannot be split is returned as a *MalformedLineError; reading may
// continue after it.
func (rr *RowReader) Next() (RawRow, error) {
	for rr.sc.Scan() {
		rr.line++
		text := strings.TrimSuffix(rr.sc.Text(), "\r")

		if rr.line <= rr.skip || strings.TrimSpace(text) == "" {
			continue
		}
		if rr.ignore != nil && rr.ignore(text) {
			continue
		}
		return rr.split(rr.line, text)
	}
	if err := rr.sc.Err(); err != nil {
		return RawRow{}, fmt.Errorf("reading line %d: %w", rr.line+1, err)
	}
	return RawRow{}, io.EOF
}

// Line returns the number of source lines consumed so far.
func (rr *RowReader) Line() int { return rr.line }

func (rr *RowReader) split(line int, text string) (RawRow, error) {
	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = rr.delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	fields, err := cr.Read()
	if err != nil {
		return RawRow{Line: line}, &MalformedLineError{Line: line, Err: err}
	}
	return RawRow{Line: line, Fields: fields}, nil
}
