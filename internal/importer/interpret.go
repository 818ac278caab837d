package importer

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/bankcsv/internal/model"
	"github.com/cleared-dev/bankcsv/internal/schema"
)

// Interpreter turns raw rows into draft transactions according to a schema's
// positional column layout.
type Interpreter struct {
	schema  *schema.BankSchema
	flagged bool
}

// NewInterpreter returns an Interpreter for s. s must not be modified afterwards.
func NewInterpreter(s *schema.BankSchema) *Interpreter {
	return &Interpreter{schema: s, flagged: s.HasFlag()}
}

// Interpret maps row onto a draft transaction. Field i is read strictly as
// column i; the first failing field fails the whole row with a RowError.
func (in *Interpreter) Interpret(row RawRow) (model.Transaction, error) {
	cols := in.schema.Columns
	if len(row.Fields) != len(cols) {
		return model.Transaction{}, &MalformedLineError{Line: row.Line, Got: len(row.Fields), Want: len(cols)}
	}

	var txn model.Transaction
	parts := AmountParts{Flagged: in.flagged}

	for i, col := range cols {
		v := strings.TrimSpace(row.Fields[i])

		switch col.Kind {
		case schema.KindIgnore:
		case schema.KindDate:
			d, err := time.Parse(col.Layout, v)
			if err != nil {
				return model.Transaction{}, &DateParseError{Line: row.Line, Column: i + 1, Value: v, Format: col.DateFormat, Err: err}
			}
			txn.Date = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		case schema.KindPayee:
			txn.Payee = v
		case schema.KindMemo:
			txn.Memo = v
		case schema.KindCategory:
			txn.Category = v
		case schema.KindExtra:
			if txn.Extra == nil {
				txn.Extra = make(map[string]string)
			}
			txn.Extra[col.Key] = v
		case schema.KindInflow, schema.KindOutflow:
			if v == "" {
				continue
			}
			d, err := col.Number.Parse(v)
			if err != nil {
				return model.Transaction{}, &AmountParseError{Line: row.Line, Column: i + 1, Value: v, Err: err}
			}
			if col.Kind == schema.KindInflow {
				parts.Inflow = decimal.NewNullDecimal(d)
			} else {
				parts.Outflow = decimal.NewNullDecimal(d)
			}
		case schema.KindCDFlag:
			parts.Debit = v == col.Debit
		}
	}

	amount, err := ResolveAmount(parts)
	if err != nil {
		var amb *AmbiguousAmountError
		if errors.As(err, &amb) {
			amb.Line = row.Line
			return model.Transaction{}, amb
		}
		return model.Transaction{}, &AmountParseError{Line: row.Line, Err: err}
	}
	txn.Amount = amount
	return txn, nil
}
