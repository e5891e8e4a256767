package types

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"0", "0", nil},
		{"", "0", nil},
		{"1_000_000", "1000000", nil},
		{" 500000000000000000000 ", "500000000000000000000", nil},
		{"-1", "", ErrInvalidParameter},
		{"12abc", "", ErrInvalidParameter},
		{"115792089237316195423570985008687907853269984665640564039457584007913129639936", "", ErrArithmeticOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, FormatAmount(got))
		})
	}
}

func TestUnits(t *testing.T) {
	assert.Equal(t, "500000000000000000000", FormatAmount(Units(500, 18)))
	assert.Equal(t, "1000000000000000000000000000000", FormatAmount(Units(1_000_000_000_000, 18)))
	assert.Equal(t, "7", FormatAmount(Units(7, 0)))
}

func TestRateHelpers(t *testing.T) {
	tax, err := ApplyBps(NewAmount(12345), 500)
	require.NoError(t, err)
	assert.Equal(t, uint64(617), tax.Uint64())

	burn, err := ApplyPercent(tax, 20)
	require.NoError(t, err)
	assert.Equal(t, uint64(123), burn.Uint64())

	_, err = MulDiv(NewAmount(1), NewAmount(1), new(uint256.Int))
	assert.ErrorIs(t, err, ErrArithmeticOverflow)

	top := new(uint256.Int).SetAllOne()
	_, err = MulDiv(top, NewAmount(2), NewAmount(1))
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
	_, err = Add(top, NewAmount(1))
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
	_, err = Sub(NewAmount(1), NewAmount(2))
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
}

func TestMinAndSqrt(t *testing.T) {
	a, b := NewAmount(3), NewAmount(9)
	m := Min(a, b)
	assert.Equal(t, uint64(3), m.Uint64())
	m.SetUint64(100)
	assert.Equal(t, uint64(3), a.Uint64(), "Min returns a copy")

	assert.Equal(t, uint64(3), Sqrt(NewAmount(9)).Uint64())
	assert.Equal(t, uint64(3), Sqrt(NewAmount(15)).Uint64())
	assert.Equal(t, uint64(1_000_000), Sqrt(NewAmount(1_000_000_000_000)).Uint64())
}

func TestAccumulator(t *testing.T) {
	acc := NewAccumulator(new(uint256.Int))

	same, err := acc.Increase(NewAmount(100), new(uint256.Int))
	require.NoError(t, err)
	assert.Equal(t, 0, same.Cmp(acc), "zero stake leaves the accumulator unchanged")

	next, err := acc.Increase(NewAmount(3), NewAmount(7))
	require.NoError(t, err)
	assert.Equal(t, "428571428571", next.String())
	assert.Equal(t, 1, next.Cmp(acc))
	assert.Equal(t, "0", acc.String(), "receiver is not mutated")

	share, err := next.Share(NewAmount(7))
	require.NoError(t, err)
	// truncation never pays out more than was distributed
	assert.Equal(t, uint64(2), share.Uint64())
}

func TestMinAmountOut(t *testing.T) {
	quote := NewAmount(10_000)

	got, err := MinAmountOut(quote, SlippageConfig{Type: SlippageBps, Value: 50})
	require.NoError(t, err)
	assert.Equal(t, uint64(9950), got.Uint64())

	got, err = MinAmountOut(quote, SlippageConfig{Type: SlippageFixed, Value: 7})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.Uint64())

	got, err = MinAmountOut(quote, SlippageConfig{})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.Uint64())

	_, err = MinAmountOut(quote, SlippageConfig{Type: SlippageBps, Value: 10_001})
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = MinAmountOut(quote, SlippageConfig{Type: "percent"})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestParseUnits(t *testing.T) {
	tests := []struct {
		in       string
		decimals uint8
		want     string
		wantErr  bool
	}{
		{"1", 18, "1000000000000000000", false},
		{"12.5", 6, "12500000", false},
		{".25", 2, "25", false},
		{"1_000.000001", 6, "1000000001", false},
		{"0.1234", 3, "", true},
		{"abc", 6, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUnits(tt.in, tt.decimals)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, FormatAmount(got))
		})
	}
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "1", FormatUnits(Units(1, 18), 18))
	assert.Equal(t, "0.05", FormatUnits(NewAmount(50), 3))
	assert.Equal(t, "12.5", FormatUnits(NewAmount(12_500_000), 6))
	assert.Equal(t, "42", FormatUnits(NewAmount(42), 0))
	assert.Equal(t, "0", FormatUnits(new(uint256.Int), 9))
}
