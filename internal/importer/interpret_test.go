package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/bankcsv/internal/model"
)

const sparkasseYAML = `
name: Sparkasse
ignore_header_rows: 16
ignore_patterns: ['^;+$']
delimiter: ";"
columns:
  - {type: date, args: "%d.%m.%Y"}
  - ignore
  - {type: extra, args: transaction_type}
  - ignore
  - payee
  - ignore
  - ignore
  - ignore
  - ignore
  - memo
  - ignore
  - ignore
  - {type: inflow, args: comma}
  - {type: cdflag, args: S}
`

const splitYAML = `
name: Split
delimiter: ","
columns:
  - {type: date, args: "%Y-%m-%d"}
  - payee
  - {type: inflow, args: period}
  - {type: outflow, args: period}
`

func readAll(t *testing.T, r *Reader) ([]Draft, []RowError) {
	t.Helper()
	var drafts []Draft
	var rowErrs []RowError
	for {
		d, err := r.Read()
		if errors.Is(err, io.EOF) {
			return drafts, rowErrs
		}
		if err != nil {
			re, ok := AsRowError(err)
			require.True(t, ok, "unexpected fatal error: %v", err)
			rowErrs = append(rowErrs, re)
			continue
		}
		drafts = append(drafts, d)
	}
}

func TestInterpret_SparkasseExample(t *testing.T) {
	s := mustSchema(t, sparkasseYAML)
	row := RawRow{Line: 17, Fields: strings.Split("01.01.2024;;TRANSFER;;ACME Corp;;;;;Invoice 123;;;12,50;S", ";")}

	txn, err := NewInterpreter(s).Interpret(row)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), txn.Date)
	assert.Equal(t, "ACME Corp", txn.Payee)
	assert.Equal(t, "Invoice 123", txn.Memo)
	assert.Equal(t, "-12.50", model.FormatAmount(txn.Amount))
	assert.Equal(t, map[string]string{"transaction_type": "TRANSFER"}, txn.Extra)
}

func TestInterpret_FlagSign(t *testing.T) {
	s := mustSchema(t, sparkasseYAML)
	in := NewInterpreter(s)

	tests := []struct {
		amount string
		flag   string
		want   string
	}{
		{"12,50", "S", "-12.50"},
		{"12,50", "H", "12.50"},
		{"-12,50", "S", "-12.50"},
		{"-12,50", "H", "12.50"},
		{"1.234,00", "S", "-1234.00"},
		{"12,50", "s", "12.50"}, // marker is case-sensitive
	}
	for _, tt := range tests {
		line := fmt.Sprintf("01.01.2024;;X;;P;;;;;M;;;%s;%s", tt.amount, tt.flag)
		txn, err := in.Interpret(RawRow{Line: 1, Fields: strings.Split(line, ";")})
		require.NoError(t, err, line)
		assert.Equal(t, tt.want, model.FormatAmount(txn.Amount), line)
	}
}

func TestInterpret_TrimsText(t *testing.T) {
	s := mustSchema(t, splitYAML)
	txn, err := NewInterpreter(s).Interpret(RawRow{Line: 1, Fields: []string{" 2024-03-01 ", "  Coffee Shop ", "", " 3.20 "}})
	require.NoError(t, err)
	assert.Equal(t, "Coffee Shop", txn.Payee)
	assert.Equal(t, "-3.20", model.FormatAmount(txn.Amount))
	assert.Nil(t, txn.Extra)
}

func TestInterpret_Errors(t *testing.T) {
	s := mustSchema(t, splitYAML)
	in := NewInterpreter(s)

	tests := []struct {
		name   string
		fields []string
		kind   model.DiagnosticKind
		msg    string
	}{
		{"too few fields", []string{"2024-03-01", "x", "1.00"}, model.DiagMalformedLine, "expected 4 fields, got 3"},
		{"too many fields", []string{"2024-03-01", "x", "1.00", "", ""}, model.DiagMalformedLine, "expected 4 fields, got 5"},
		{"bad date", []string{"01.03.2024", "x", "1.00", ""}, model.DiagDateParse, `parsing date "01.03.2024"`},
		{"empty date", []string{"", "x", "1.00", ""}, model.DiagDateParse, "parsing date"},
		{"bad amount", []string{"2024-03-01", "x", "N/A", ""}, model.DiagAmountParse, `column 3: parsing amount "N/A"`},
		{"no amount", []string{"2024-03-01", "x", "", ""}, model.DiagAmountParse, "no amount in row"},
		{"ambiguous", []string{"2024-03-01", "x", "1.00", "2.00"}, model.DiagAmbiguousAmount, "both inflow 1 and outflow 2 are set"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := in.Interpret(RawRow{Line: 9, Fields: tt.fields})
			require.Error(t, err)
			re, ok := AsRowError(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, re.Kind())
			assert.Equal(t, 9, re.SourceLine())
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestInterpret_AmbiguousAmountType(t *testing.T) {
	s := mustSchema(t, splitYAML)
	_, err := NewInterpreter(s).Interpret(RawRow{Line: 3, Fields: []string{"2024-03-01", "x", "5.00", "5.00"}})
	var amb *AmbiguousAmountError
	require.True(t, errors.As(err, &amb))
	assert.Equal(t, 3, amb.Line)
	assert.Equal(t, "5", amb.Inflow.String())
}

func TestReader_BadRowDoesNotAbortFile(t *testing.T) {
	s := mustSchema(t, splitYAML)
	input := "2024-03-01,a,1.00,\n2024-03-02,b,oops,\n2024-03-03,c,,2.00\n"

	r, err := NewReader(strings.NewReader(input), s)
	require.NoError(t, err)
	drafts, rowErrs := readAll(t, r)

	require.Len(t, drafts, 2)
	assert.Equal(t, 1, drafts[0].Line)
	assert.Equal(t, 3, drafts[1].Line)
	assert.Equal(t, "-2.00", model.FormatAmount(drafts[1].Txn.Amount))

	require.Len(t, rowErrs, 1)
	assert.Equal(t, 2, rowErrs[0].SourceLine())
	assert.Equal(t, model.DiagAmountParse, rowErrs[0].Kind())
}

func TestReader_IgnoredRowsLeaveNoTrace(t *testing.T) {
	s := mustSchema(t, sparkasseYAML)
	var b strings.Builder
	for i := 0; i < 16; i++ {
		fmt.Fprintf(&b, "header %d\n", i)
	}
	b.WriteString("01.01.2024;;TRANSFER;;ACME Corp;;;;;Invoice 123;;;12,50;S\n")
	b.WriteString(";;;;;;;;;;;;;\n")
	b.WriteString("\n")
	b.WriteString("not;enough;fields\n")

	r, err := NewReader(strings.NewReader(b.String()), s)
	require.NoError(t, err)
	drafts, rowErrs := readAll(t, r)

	require.Len(t, drafts, 1)
	require.Len(t, rowErrs, 1)
	assert.Equal(t, 20, rowErrs[0].SourceLine())
	assert.Equal(t, model.DiagMalformedLine, rowErrs[0].Kind())
}

func TestReader_HeaderSkipBoundary(t *testing.T) {
	const n = 3
	input := "Account statement\nIBAN;DE00\nDate;Payee;Amount\n2024-01-05;Shop;-9.99\n"
	doc := func(skip int) string {
		return fmt.Sprintf("name: B\nignore_header_rows: %d\ndelimiter: ';'\ncolumns: [{type: date, args: '%%Y-%%m-%%d'}, payee, inflow]\n", skip)
	}

	// Exactly N: one transaction.
	r, err := NewReader(strings.NewReader(input), mustSchema(t, doc(n)))
	require.NoError(t, err)
	drafts, rowErrs := readAll(t, r)
	require.Len(t, drafts, 1)
	assert.Empty(t, rowErrs)
	assert.Equal(t, "-9.99", model.FormatAmount(drafts[0].Txn.Amount))

	// N-1: the last header row becomes a data row and fails.
	r, err = NewReader(strings.NewReader(input), mustSchema(t, doc(n-1)))
	require.NoError(t, err)
	drafts, rowErrs = readAll(t, r)
	require.Len(t, drafts, 1)
	require.Len(t, rowErrs, 1)
	assert.Equal(t, 3, rowErrs[0].SourceLine())
	assert.Equal(t, model.DiagDateParse, rowErrs[0].Kind())

	// N+1: the transaction row is skipped without a trace.
	r, err = NewReader(strings.NewReader(input), mustSchema(t, doc(n+1)))
	require.NoError(t, err)
	drafts, rowErrs = readAll(t, r)
	assert.Empty(t, drafts)
	assert.Empty(t, rowErrs)
}

func TestReader_Latin1Fallback(t *testing.T) {
	s := mustSchema(t, splitYAML)
	input := []byte("2024-03-01,M\xfcller GmbH,10.00,\n")

	r, err := NewReader(strings.NewReader(string(input)), s)
	require.NoError(t, err)
	drafts, rowErrs := readAll(t, r)
	require.Empty(t, rowErrs)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Müller GmbH", drafts[0].Txn.Payee)
}

func TestDecode_StripsBOM(t *testing.T) {
	r, err := Decode(strings.NewReader("\xef\xbb\xbfa;b\n"), "")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "a;b\n", string(data))

	r, err = Decode(strings.NewReader("\xef\xbb\xbfa;b\n"), "utf-8")
	require.NoError(t, err)
	data, err = io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "a;b\n", string(data))

	r, err = Decode(strings.NewReader("caf\xe9"), "latin1")
	require.NoError(t, err)
	data, err = io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "café", string(data))

	_, err = Decode(strings.NewReader(""), "ebcdic")
	assert.Error(t, err)
}
