// Package output writes converted transactions and run diagnostics as CSV.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/cleared-dev/bankcsv/internal/model"
)

// Header is the CSV header for converted transactions. Extra columns follow it.
const Header = "Date,Payee,Category,Memo,Amount"

const (
	numFields   = 5
	colDate     = 0
	colPayee    = 1
	colCategory = 2
	colMemo     = 3
	colAmount   = 4
)

// TransactionWriter writes transactions in the output CSV layout.
type TransactionWriter struct {
	cw          *csv.Writer
	extra       []string
	wroteHeader bool
}

// NewTransactionWriter returns a writer that appends the named extra fields
// as additional columns after the canonical ones.
func NewTransactionWriter(w io.Writer, extraColumns []string) *TransactionWriter {
	return &TransactionWriter{cw: csv.NewWriter(w), extra: extraColumns}
}

// Write writes txns, preceded by the header on the first call.
func (tw *TransactionWriter) Write(txns []model.Transaction) error {
	if !tw.wroteHeader {
		header := append(strings.Split(Header, ","), tw.extra...)
		if err := tw.cw.Write(header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		tw.wroteHeader = true
	}
	for i, t := range txns {
		if err := tw.cw.Write(MarshalTransaction(t, tw.extra)); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	tw.cw.Flush()
	return tw.cw.Error()
}

// WriteTransactions writes a complete output file (including header).
func WriteTransactions(w io.Writer, txns []model.Transaction, extraColumns []string) error {
	return NewTransactionWriter(w, extraColumns).Write(txns)
}

// MarshalTransaction converts a Transaction to a CSV row. Missing extra
// fields are written as empty cells.
func MarshalTransaction(t model.Transaction, extraColumns []string) []string {
	row := make([]string, numFields, numFields+len(extraColumns))
	row[colDate] = t.Date.Format(model.DateFormat)
	row[colPayee] = t.Payee
	row[colCategory] = t.Category
	row[colMemo] = t.Memo
	row[colAmount] = model.FormatAmount(t.Amount)
	for _, k := range extraColumns {
		row = append(row, t.Extra[k])
	}
	return row
}
