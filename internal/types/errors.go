// internal/types/errors.go
package types

import "errors"

var (
	// ErrAccessDenied indicates the caller does not hold the required role.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidParameter indicates a parameter outside its allowed range.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrSupplyCapExceeded indicates a mint would push supply over the cap.
	ErrSupplyCapExceeded = errors.New("supply cap exceeded")

	// ErrInsufficientBalance indicates the sender balance is too small.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientAllowance indicates the spender allowance is too small.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrAntiWhaleLimitExceeded indicates a transfer above maxTransferAmount.
	ErrAntiWhaleLimitExceeded = errors.New("anti-whale limit exceeded")

	// ErrZeroAddress indicates the zero address was used where it is not allowed.
	ErrZeroAddress = errors.New("zero address")

	// ErrInsufficientStake indicates a withdrawal above the staked amount.
	ErrInsufficientStake = errors.New("insufficient stake")

	// ErrReentrantCall indicates a guarded entry point was entered twice.
	ErrReentrantCall = errors.New("reentrant call")

	// ErrUnknownPool indicates a pool id that was never added.
	ErrUnknownPool = errors.New("unknown pool")

	// ErrArithmeticOverflow indicates a 256-bit overflow or underflow.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrInsufficientLiquidity indicates a swap against empty or tiny reserves.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrBlockRegression indicates an attempt to move the block height backwards.
	ErrBlockRegression = errors.New("block height regression")
)
