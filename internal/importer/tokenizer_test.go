package importer

import (
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/bankcsv/internal/schema"
)

func readRows(t *testing.T, rr *RowReader) ([]RawRow, []error) {
	t.Helper()
	var rows []RawRow
	var errs []error
	for {
		row, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return rows, errs
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rows = append(rows, row)
	}
}

func TestRowReader_SkipsHeaderRows(t *testing.T) {
	input := "Bank export\nAccount;123\nDate;Amount\n01.01.2024;1,00\n02.01.2024;2,00\n"
	rows, errs := readRows(t, NewRowReader(strings.NewReader(input), ';', 3, nil))
	require.Empty(t, errs)
	require.Len(t, rows, 2)
	assert.Equal(t, 4, rows[0].Line)
	assert.Equal(t, []string{"01.01.2024", "1,00"}, rows[0].Fields)
	assert.Equal(t, 5, rows[1].Line)
}

func TestRowReader_SkipIgnoresContent(t *testing.T) {
	// Header rows are skipped even when they look like data.
	input := "01.01.2024;1,00\n02.01.2024;2,00\n"
	rows, _ := readRows(t, NewRowReader(strings.NewReader(input), ';', 1, nil))
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Line)
}

func TestRowReader_IgnorePatterns(t *testing.T) {
	input := "01.01.2024;1,00\n;;\nBalance;99,00\n02.01.2024;2,00\n"
	s := &schema.BankSchema{IgnorePatterns: []*regexp.Regexp{regexp.MustCompile(`^;+$`), regexp.MustCompile(`^Balance`)}}
	rows, errs := readRows(t, NewRowReader(strings.NewReader(input), ';', 0, s.IgnoreLine))
	require.Empty(t, errs)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Line)
	assert.Equal(t, 4, rows[1].Line)
}

func TestRowReader_TrailingBlankLinesDropped(t *testing.T) {
	input := "a;1\r\nb;2\r\n\r\n\n   \n"
	rows, errs := readRows(t, NewRowReader(strings.NewReader(input), ';', 0, nil))
	require.Empty(t, errs)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"b", "2"}, rows[1].Fields)
}

func TestRowReader_InteriorBlankLinesDropped(t *testing.T) {
	input := "a;1\n\n  \r\nb;2\n"
	rows, errs := readRows(t, NewRowReader(strings.NewReader(input), ';', 0, nil))
	require.Empty(t, errs)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Line)
	assert.Equal(t, 4, rows[1].Line, "line numbers still count blank lines")
	assert.Equal(t, []string{"b", "2"}, rows[1].Fields)
}

func TestRowReader_QuotedDelimiter(t *testing.T) {
	input := `01/02/2024,"ACME, Inc.",-4.00` + "\n"
	rows, errs := readRows(t, NewRowReader(strings.NewReader(input), ',', 0, nil))
	require.Empty(t, errs)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"01/02/2024", "ACME, Inc.", "-4.00"}, rows[0].Fields)
}

func TestRowReader_BareQuoteKeptVerbatim(t *testing.T) {
	input := "01/02/2024,MONITOR 27\" 4K,-199.00\n"
	rows, errs := readRows(t, NewRowReader(strings.NewReader(input), ',', 0, nil))
	require.Empty(t, errs)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"01/02/2024", `MONITOR 27" 4K`, "-199.00"}, rows[0].Fields)
}

func TestRowReader_TabDelimiter(t *testing.T) {
	rows, errs := readRows(t, NewRowReader(strings.NewReader("x\ty\tz\n"), '\t', 0, nil))
	require.Empty(t, errs)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"x", "y", "z"}, rows[0].Fields)
}

func TestRowReader_EmptyInput(t *testing.T) {
	rr := NewRowReader(strings.NewReader(""), ';', 5, nil)
	_, err := rr.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 0, rr.Line())
}
