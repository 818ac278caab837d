package output

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cleared-dev/bankcsv/internal/model"
)

// LogEntry is one row in the diagnostics log.
type LogEntry struct {
	Timestamp time.Time
	model.Diagnostic
}

// LogHeader is the CSV header for the diagnostics log.
const LogHeader = "timestamp,file,line,kind,rule,message"

const (
	numLogFields = 6
	colTimestamp = 0
	colFile      = 1
	colLine      = 2
	colKind      = 3
	colRule      = 4
	colMessage   = 5
)

// MarshalLogEntry converts a LogEntry to a CSV row. A rule index of -1 is
// written as an empty cell.
func MarshalLogEntry(e LogEntry) []string {
	row := make([]string, numLogFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colFile] = e.File
	row[colLine] = strconv.Itoa(e.Line)
	row[colKind] = string(e.Kind)
	if e.Rule >= 0 {
		row[colRule] = strconv.Itoa(e.Rule)
	}
	row[colMessage] = e.Message
	return row
}

// UnmarshalLogEntry converts a CSV row to a LogEntry.
func UnmarshalLogEntry(record []string) (LogEntry, error) {
	if len(record) != numLogFields {
		return LogEntry{}, fmt.Errorf("expected %d fields, got %d", numLogFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return LogEntry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	line, err := strconv.Atoi(record[colLine])
	if err != nil {
		return LogEntry{}, fmt.Errorf("parsing line %q: %w", record[colLine], err)
	}

	rule := -1
	if record[colRule] != "" {
		rule, err = strconv.Atoi(record[colRule])
		if err != nil {
			return LogEntry{}, fmt.Errorf("parsing rule %q: %w", record[colRule], err)
		}
	}

	return LogEntry{
		Timestamp: ts,
		Diagnostic: model.Diagnostic{
			File:    record[colFile],
			Line:    line,
			Kind:    model.DiagnosticKind(record[colKind]),
			Rule:    rule,
			Message: record[colMessage],
		},
	}, nil
}

// AppendLog writes diagnostics to the log at path, stamped with ts. The file
// and its directory are created on first use; the header is written whenever
// the file is empty.
func AppendLog(path string, ts time.Time, diags []model.Diagnostic) error {
	if len(diags) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening diagnostics log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat diagnostics log: %w", err)
	}

	if err := writeLogEntries(f, info.Size() == 0, ts, diags); err != nil {
		f.Close()
		return fmt.Errorf("writing diagnostics log: %w", err)
	}
	return f.Close()
}

func writeLogEntries(w io.Writer, header bool, ts time.Time, diags []model.Diagnostic) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(strings.Split(LogHeader, ",")); err != nil {
			return err
		}
	}
	for _, d := range diags {
		if err := cw.Write(MarshalLogEntry(LogEntry{Timestamp: ts, Diagnostic: d})); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadLog returns all entries of the diagnostics log at path, oldest first.
// A missing file has no entries.
func ReadLog(path string) ([]LogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening diagnostics log: %w", err)
	}
	defer f.Close()

	entries, err := readLogEntries(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

func readLogEntries(r io.Reader) ([]LogEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numLogFields
	cr.ReuseRecord = true

	var entries []LogEntry
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		if row == 1 {
			if strings.Join(rec, ",") != LogHeader {
				return nil, fmt.Errorf("row 1: unexpected header %q", strings.Join(rec, ","))
			}
			continue
		}
		e, err := UnmarshalLogEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		entries = append(entries, e)
	}
}
