package importer

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nd(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestResolveAmount(t *testing.T) {
	tests := []struct {
		name  string
		parts AmountParts
		want  string
	}{
		{"flag credit", AmountParts{Inflow: nd("12.50"), Flagged: true}, "12.5"},
		{"flag debit", AmountParts{Inflow: nd("12.50"), Flagged: true, Debit: true}, "-12.5"},
		{"flag debit on outflow column", AmountParts{Outflow: nd("3"), Flagged: true, Debit: true}, "-3"},
		{"flag debit with signed source", AmountParts{Inflow: nd("-7"), Flagged: true, Debit: true}, "-7"},
		{"split inflow", AmountParts{Inflow: nd("10")}, "10"},
		{"split outflow", AmountParts{Outflow: nd("10")}, "-10"},
		{"split negative outflow", AmountParts{Outflow: nd("-10")}, "-10"},
		{"split zero inflow with outflow", AmountParts{Inflow: nd("0"), Outflow: nd("4")}, "-4"},
		{"split zero outflow with inflow", AmountParts{Inflow: nd("4"), Outflow: nd("0.00")}, "4"},
		{"both zero", AmountParts{Inflow: nd("0.00"), Outflow: nd("0.00")}, "0"},
		{"signed single column", AmountParts{Inflow: nd("-99.95")}, "-99.95"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveAmount(tt.parts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestResolveAmount_Ambiguous(t *testing.T) {
	_, err := ResolveAmount(AmountParts{Inflow: nd("1"), Outflow: nd("2")})
	var amb *AmbiguousAmountError
	require.True(t, errors.As(err, &amb))
	assert.Equal(t, "1", amb.Inflow.String())
	assert.Equal(t, "2", amb.Outflow.String())
}

func TestResolveAmount_NoAmount(t *testing.T) {
	_, err := ResolveAmount(AmountParts{})
	assert.ErrorIs(t, err, ErrNoAmount)

	_, err = ResolveAmount(AmountParts{Flagged: true, Debit: true})
	assert.ErrorIs(t, err, ErrNoAmount)
}

func TestResolveAmount_KeepsPrecision(t *testing.T) {
	got, err := ResolveAmount(AmountParts{Inflow: nd("0.125"), Flagged: true, Debit: true})
	require.NoError(t, err)
	assert.Equal(t, int32(-3), got.Exponent())
	assert.Equal(t, "-0.125", got.String())
}
