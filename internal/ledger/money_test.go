package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseBaht(t *testing.T) {
	cases := []struct {
		in   string
		want Money
	}{
		{"0", 0},
		{"1", 100},
		{"1234.50", 123450},
		{"0.07", 7},
		{"10000000", 1000000000},
	}
	for _, tc := range cases {
		got, err := ParseBaht(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseBahtRejectsSubSatang(t *testing.T) {
	_, err := ParseBaht("1.005")
	require.Error(t, err)
	_, err = ParseBaht("not a number")
	require.Error(t, err)
}

func TestFromDecimalBahtRoundsHalfUpOnce(t *testing.T) {
	// 7% VAT on 10.05 baht is 0.7035, which must land on the satang grid
	// exactly once: 0.70.
	vat := decimal.RequireFromString("10.05").Mul(decimal.RequireFromString("0.07"))
	require.Equal(t, Money(70), FromDecimalBaht(vat))

	// Half-up at the boundary.
	require.Equal(t, Money(71), FromDecimalBaht(decimal.RequireFromString("0.705")))
}

func TestBahtString(t *testing.T) {
	require.Equal(t, "1234.50", Money(123450).Baht())
	require.Equal(t, "-0.07", Money(-7).Baht())
	require.Equal(t, "0.00", Money(0).Baht())
}
