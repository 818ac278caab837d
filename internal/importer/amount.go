package importer

import "github.com/shopspring/decimal"

// AmountParts holds the amount-bearing values of one row.
type AmountParts struct {
	Inflow  decimal.NullDecimal
	Outflow decimal.NullDecimal
	Flagged bool // the schema has a credit/debit flag column
	Debit   bool // the flag column held the debit marker
}

// ResolveAmount combines a row's amount columns into one signed amount:
// inflow positive, outflow negative.
//
// With a flag column the single amount's magnitude is used and negated for
// debits. With split columns the inflow wins when non-zero, otherwise the
// outflow is negated; both non-zero is an *AmbiguousAmountError. A row with
// no amount at all yields ErrNoAmount.
func ResolveAmount(p AmountParts) (decimal.Decimal, error) {
	if p.Flagged {
		v := p.Inflow
		if !v.Valid {
			v = p.Outflow
		}
		if !v.Valid {
			return decimal.Decimal{}, ErrNoAmount
		}
		if p.Debit {
			return v.Decimal.Abs().Neg(), nil
		}
		return v.Decimal.Abs(), nil
	}

	hasIn := p.Inflow.Valid && !p.Inflow.Decimal.IsZero()
	hasOut := p.Outflow.Valid && !p.Outflow.Decimal.IsZero()

	switch {
	case hasIn && hasOut:
		return decimal.Decimal{}, &AmbiguousAmountError{Inflow: p.Inflow.Decimal, Outflow: p.Outflow.Decimal}
	case hasIn:
		return p.Inflow.Decimal, nil
	case hasOut:
		return p.Outflow.Decimal.Abs().Neg(), nil
	case p.Inflow.Valid:
		return p.Inflow.Decimal, nil
	case p.Outflow.Valid:
		return p.Outflow.Decimal.Abs(), nil
	}
	return decimal.Decimal{}, ErrNoAmount
}
