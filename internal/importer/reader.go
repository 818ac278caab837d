package importer

import (
	"io"

	"github.com/cleared-dev/bankcsv/internal/model"
	"github.com/cleared-dev/bankcsv/internal/schema"
)

// Draft is an interpreted row that has not been through the rule engine yet.
type Draft struct {
	Line int
	Txn  model.Transaction
}

// Reader reads draft transactions from one bank export.
type Reader struct {
	rows   *RowReader
	interp *Interpreter
}

// NewReader decodes r according to the schema's encoding and prepares a
// forward-only row pipeline over it.
func NewReader(r io.Reader, s *schema.BankSchema) (*Reader, error) {
	text, err := Decode(r, s.Encoding)
	if err != nil {
		return nil, err
	}
	return &Reader{
		rows:   NewRowReader(text, s.Delimiter, s.IgnoreHeaderRows, s.IgnoreLine),
		interp: NewInterpreter(s),
	}, nil
}

// Read returns the next draft. It returns io.EOF at the end of input and a
// RowError for a row that could not be interpreted, after which reading may
// continue. Any other error is fatal for the file.
func (r *Reader) Read() (Draft, error) {
	row, err := r.rows.Next()
	if err != nil {
		return Draft{Line: row.Line}, err
	}
	txn, err := r.interp.Interpret(row)
	if err != nil {
		return Draft{Line: row.Line}, err
	}
	return Draft{Line: row.Line, Txn: txn}, nil
}
