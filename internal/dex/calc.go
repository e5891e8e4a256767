// internal/dex/calc.go
package dex

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

const (
	// DefaultFeeBps is the swap fee left in the pool, 0.25%.
	DefaultFeeBps uint64 = 25
	// MaxFeeBps bounds the configurable fee.
	MaxFeeBps uint64 = 1000
)

// MinimumLiquidity is the share amount locked on the burn address by the
// first deposit so the share price can never be reset to zero.
var MinimumLiquidity = uint256.NewInt(1000)

// GetAmountOut returns the constant-product output for amountIn:
//
//	out = reserveOut * a / (reserveIn + a), a = amountIn * (10000 - fee) / 10000
//
// computed without intermediate truncation of a.
func GetAmountOut(amountIn, reserveIn, reserveOut *uint256.Int, feeBps uint64) (*uint256.Int, error) {
	if amountIn.IsZero() {
		return nil, fmt.Errorf("%w: zero input", types.ErrInvalidParameter)
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, fmt.Errorf("%w: empty pool", types.ErrInsufficientLiquidity)
	}
	withFee, overflow := new(uint256.Int).MulOverflow(amountIn, uint256.NewInt(types.BasisPoints-feeBps))
	if overflow {
		return nil, fmt.Errorf("%w: swap input", types.ErrArithmeticOverflow)
	}
	numerator, overflow := new(uint256.Int).MulOverflow(withFee, reserveOut)
	if overflow {
		return nil, fmt.Errorf("%w: swap numerator", types.ErrArithmeticOverflow)
	}
	scaled, overflow := new(uint256.Int).MulOverflow(reserveIn, uint256.NewInt(types.BasisPoints))
	if overflow {
		return nil, fmt.Errorf("%w: swap reserve", types.ErrArithmeticOverflow)
	}
	denominator, err := types.Add(scaled, withFee)
	if err != nil {
		return nil, err
	}
	return numerator.Div(numerator, denominator), nil
}

// Quote returns the amount of B worth amountA at the current reserve ratio.
func Quote(amountA, reserveA, reserveB *uint256.Int) (*uint256.Int, error) {
	if reserveA.IsZero() || reserveB.IsZero() {
		return nil, fmt.Errorf("%w: empty pool", types.ErrInsufficientLiquidity)
	}
	return types.MulDiv(amountA, reserveB, reserveA)
}

// optimalAmounts scales the larger side of a deposit down to the reserve
// ratio. An empty pool accepts both amounts as given.
func optimalAmounts(tokenDesired, baseDesired, reserveToken, reserveBase *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if reserveToken.IsZero() && reserveBase.IsZero() {
		return tokenDesired.Clone(), baseDesired.Clone(), nil
	}
	baseOptimal, err := Quote(tokenDesired, reserveToken, reserveBase)
	if err != nil {
		return nil, nil, err
	}
	if !baseOptimal.Gt(baseDesired) {
		return tokenDesired.Clone(), baseOptimal, nil
	}
	tokenOptimal, err := Quote(baseDesired, reserveBase, reserveToken)
	if err != nil {
		return nil, nil, err
	}
	return tokenOptimal, baseDesired.Clone(), nil
}

// sharesFor returns the LP shares minted for a deposit. For the first
// deposit it is sqrt(token*base) minus MinimumLiquidity.
func sharesFor(tokenIn, baseIn, reserveToken, reserveBase, supply *uint256.Int) (*uint256.Int, error) {
	if supply.IsZero() {
		product, overflow := new(uint256.Int).MulOverflow(tokenIn, baseIn)
		if overflow {
			return nil, fmt.Errorf("%w: initial liquidity", types.ErrArithmeticOverflow)
		}
		root := types.Sqrt(product)
		if !root.Gt(MinimumLiquidity) {
			return nil, fmt.Errorf("%w: initial deposit below minimum liquidity", types.ErrInsufficientLiquidity)
		}
		return root.Sub(root, MinimumLiquidity), nil
	}
	byToken, err := types.MulDiv(tokenIn, supply, reserveToken)
	if err != nil {
		return nil, err
	}
	byBase, err := types.MulDiv(baseIn, supply, reserveBase)
	if err != nil {
		return nil, err
	}
	return types.Min(byToken, byBase), nil
}
