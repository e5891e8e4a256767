// internal/types/accumulator.go
package types

import (
	"github.com/holiman/uint256"
)

// AccPrecision is the fixed-point scale of the reward-per-share accumulator.
var AccPrecision = uint256.NewInt(1_000_000_000_000)

// Accumulator is a reward-per-share value scaled by AccPrecision.
// All conversions truncate toward zero.
type Accumulator struct {
	v uint256.Int
}

// NewAccumulator wraps a raw scaled value.
func NewAccumulator(raw *uint256.Int) Accumulator {
	var a Accumulator
	a.v.Set(raw)
	return a
}

// Raw returns a copy of the scaled value.
func (a Accumulator) Raw() *uint256.Int {
	return a.v.Clone()
}

// Increase returns a + floor(reward * AccPrecision / staked). The receiver is
// unchanged so callers can journal the old value.
func (a Accumulator) Increase(reward, staked *uint256.Int) (Accumulator, error) {
	if staked.IsZero() || reward.IsZero() {
		return a, nil
	}
	delta, err := MulDiv(reward, AccPrecision, staked)
	if err != nil {
		return a, err
	}
	sum, err := Add(&a.v, delta)
	if err != nil {
		return a, err
	}
	return NewAccumulator(sum), nil
}

// Share returns floor(amount * a / AccPrecision): the rewards amount has
// earned since the accumulator was zero.
func (a Accumulator) Share(amount *uint256.Int) (*uint256.Int, error) {
	return MulDiv(amount, &a.v, AccPrecision)
}

// Cmp compares two accumulators.
func (a Accumulator) Cmp(b Accumulator) int {
	return a.v.Cmp(&b.v)
}

// String renders the raw scaled value.
func (a Accumulator) String() string {
	return FormatAmount(&a.v)
}
