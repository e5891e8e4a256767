// internal/types/amount.go
package types

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// BasisPoints is the denominator for every rate expressed in bps.
const BasisPoints = 10_000

// NewAmount returns v as a 256-bit amount.
func NewAmount(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// Units returns whole * 10^decimals, e.g. Units(500, 18) is 500 tokens.
func Units(whole uint64, decimals uint8) *uint256.Int {
	scale := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(decimals)))
	return new(uint256.Int).Mul(uint256.NewInt(whole), scale)
}

// ParseAmount decodes a base-10 amount. Underscores are accepted as digit
// separators so config files can write 1_000_000.
func ParseAmount(s string) (*uint256.Int, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	if clean == "" {
		return new(uint256.Int), nil
	}
	b, ok := new(big.Int).SetString(clean, 10)
	if !ok || b.Sign() < 0 {
		return nil, fmt.Errorf("%w: amount %q", ErrInvalidParameter, s)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("%w: amount %q does not fit 256 bits", ErrArithmeticOverflow, s)
	}
	return v, nil
}

// MustParseAmount is ParseAmount for constants.
func MustParseAmount(s string) *uint256.Int {
	v, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FormatAmount renders x in base 10.
func FormatAmount(x *uint256.Int) string {
	if x == nil {
		return "0"
	}
	return x.ToBig().String()
}

// Add returns x+y or ErrArithmeticOverflow.
func Add(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, fmt.Errorf("%w: %s + %s", ErrArithmeticOverflow, FormatAmount(x), FormatAmount(y))
	}
	return z, nil
}

// Sub returns x-y or ErrArithmeticOverflow when y > x.
func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, fmt.Errorf("%w: %s - %s", ErrArithmeticOverflow, FormatAmount(x), FormatAmount(y))
	}
	return z, nil
}

// MulDiv returns floor(x*y/d). The intermediate product must fit in 256 bits.
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("%w: division by zero", ErrArithmeticOverflow)
	}
	p, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s", ErrArithmeticOverflow, FormatAmount(x), FormatAmount(y))
	}
	return p.Div(p, d), nil
}

// ApplyBps returns floor(amount * bps / 10000).
func ApplyBps(amount *uint256.Int, bps uint64) (*uint256.Int, error) {
	return MulDiv(amount, uint256.NewInt(bps), uint256.NewInt(BasisPoints))
}

// ApplyPercent returns floor(amount * pct / 100).
func ApplyPercent(amount *uint256.Int, pct uint64) (*uint256.Int, error) {
	return MulDiv(amount, uint256.NewInt(pct), uint256.NewInt(100))
}

// Min returns a copy of the smaller of x and y.
func Min(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return x.Clone()
	}
	return y.Clone()
}

// Sqrt returns floor(sqrt(x)).
func Sqrt(x *uint256.Int) *uint256.Int {
	r, _ := uint256.FromBig(new(big.Int).Sqrt(x.ToBig()))
	return r
}

// ParseUnits decodes a decimal token amount such as "12.5" into base units
// of a token with the given decimals. Digits past the token's precision are
// rejected rather than rounded.
func ParseUnits(s string, decimals uint8) (*uint256.Int, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	whole, frac, found := strings.Cut(clean, ".")
	if !found {
		v, err := ParseAmount(whole)
		if err != nil {
			return nil, err
		}
		return MulDiv(v, Units(1, decimals), NewAmount(1))
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidParameter, s, decimals)
	}
	if whole == "" {
		whole = "0"
	}
	return ParseAmount(whole + frac + strings.Repeat("0", int(decimals)-len(frac)))
}

// FormatUnits renders base units of a token with the given decimals as a
// decimal string, trimming trailing zeros.
func FormatUnits(x *uint256.Int, decimals uint8) string {
	s := FormatAmount(x)
	if decimals == 0 {
		return s
	}
	d := int(decimals)
	if len(s) <= d {
		s = strings.Repeat("0", d-len(s)+1) + s
	}
	whole, frac := s[:len(s)-d], strings.TrimRight(s[len(s)-d:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}
