package dex

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

func TestGetAmountOut(t *testing.T) {
	reserves := uint64(742080)
	otherReserves := uint64(33322)
	amount := uint64(136824)

	// out = y * a*(10000-fee) / (x*10000 + a*(10000-fee)), exact in big.Int
	a := new(big.Int).Mul(new(big.Int).SetUint64(amount), big.NewInt(int64(types.BasisPoints-DefaultFeeBps)))
	num := new(big.Int).Mul(a, new(big.Int).SetUint64(otherReserves))
	den := new(big.Int).Add(new(big.Int).Mul(new(big.Int).SetUint64(reserves), big.NewInt(types.BasisPoints)), a)
	expected := new(big.Int).Quo(num, den)

	got, err := GetAmountOut(uint256.NewInt(amount), uint256.NewInt(reserves), uint256.NewInt(otherReserves), DefaultFeeBps)
	require.NoError(t, err)
	assert.Equal(t, expected.String(), types.FormatAmount(got))
	t.Logf("Raw output: %s", types.FormatAmount(got))

	_, err = GetAmountOut(uint256.NewInt(1), new(uint256.Int), uint256.NewInt(1), DefaultFeeBps)
	assert.ErrorIs(t, err, types.ErrInsufficientLiquidity)
	_, err = GetAmountOut(new(uint256.Int), uint256.NewInt(1), uint256.NewInt(1), DefaultFeeBps)
	assert.ErrorIs(t, err, types.ErrInvalidParameter)
}

func TestGetAmountOutNeverDrainsPool(t *testing.T) {
	reserve := types.NewAmount(1_000_000)
	huge := types.Units(1_000_000_000, 18)

	out, err := GetAmountOut(huge, reserve, reserve, DefaultFeeBps)
	require.NoError(t, err)
	assert.True(t, out.Lt(reserve))
}

func TestOptimalAmounts(t *testing.T) {
	rt, rb := types.NewAmount(2000), types.NewAmount(1000)

	tok, base, err := optimalAmounts(types.NewAmount(100), types.NewAmount(500), rt, rb)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), tok.Uint64())
	assert.Equal(t, uint64(50), base.Uint64())

	tok, base, err = optimalAmounts(types.NewAmount(1000), types.NewAmount(100), rt, rb)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), tok.Uint64())
	assert.Equal(t, uint64(100), base.Uint64())

	tok, base, err = optimalAmounts(types.NewAmount(7), types.NewAmount(9), new(uint256.Int), new(uint256.Int))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), tok.Uint64())
	assert.Equal(t, uint64(9), base.Uint64())
}

func TestSharesFor(t *testing.T) {
	zero := new(uint256.Int)

	shares, err := sharesFor(types.NewAmount(1_000_000), types.NewAmount(1_000_000), zero, zero, zero)
	require.NoError(t, err)
	assert.Equal(t, uint64(999_000), shares.Uint64())

	_, err = sharesFor(types.NewAmount(1000), types.NewAmount(1000), zero, zero, zero)
	assert.ErrorIs(t, err, types.ErrInsufficientLiquidity)

	shares, err = sharesFor(types.NewAmount(100), types.NewAmount(30), types.NewAmount(1000), types.NewAmount(200), types.NewAmount(500))
	require.NoError(t, err)
	// min(100*500/1000, 30*500/200) = min(50, 75)
	assert.Equal(t, uint64(50), shares.Uint64())
}
