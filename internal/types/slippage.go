// internal/types/slippage.go
package types

import (
	"fmt"

	"github.com/holiman/uint256"
)

// SlippageType selects how the minimum acceptable swap output is derived.
type SlippageType string

const (
	// SlippageFixed uses Value as the exact minimum output.
	SlippageFixed SlippageType = "fixed"
	// SlippageBps accepts an output up to Value basis points below the quote.
	SlippageBps SlippageType = "bps"
	// SlippageNone only requires a non-zero output.
	SlippageNone SlippageType = "none"
)

// SlippageConfig is the slippage policy for one swap.
type SlippageConfig struct {
	Type SlippageType `json:"type" mapstructure:"type"`
	// Value is the minimum output for SlippageFixed and the tolerance in bps
	// for SlippageBps. Ignored for SlippageNone.
	Value uint64 `json:"value" mapstructure:"value"`
}

// MinAmountOut derives the minimum output for a quote under cfg.
func MinAmountOut(quote *uint256.Int, cfg SlippageConfig) (*uint256.Int, error) {
	switch cfg.Type {
	case SlippageFixed:
		return NewAmount(cfg.Value), nil
	case SlippageBps:
		if cfg.Value > BasisPoints {
			return nil, fmt.Errorf("%w: slippage %d bps", ErrInvalidParameter, cfg.Value)
		}
		return ApplyBps(quote, BasisPoints-cfg.Value)
	case SlippageNone, "":
		return NewAmount(1), nil
	default:
		return nil, fmt.Errorf("%w: slippage type %q", ErrInvalidParameter, cfg.Type)
	}
}
