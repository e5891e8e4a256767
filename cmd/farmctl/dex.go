// cmd/farmctl/dex.go
package main

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/urfave/cli/v2"

	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

var (
	slippageFlag = &cli.Uint64Flag{
		Name:  "slippage-bps",
		Usage: "accepted shortfall against the quote, in basis points",
		Value: 100,
	}
	minOutFlag = &cli.StringFlag{
		Name:  "min-out",
		Usage: "exact minimum output; overrides --slippage-bps",
	}
)

var commandDex = &cli.Command{
	Name:  "dex",
	Usage: "trade and provide liquidity on the token/base pair",
	Subcommands: []*cli.Command{
		{
			Name:      "fund",
			Usage:     "issue base asset to an address (pair owner only)",
			ArgsUsage: "<to> <amount>",
			Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
				to, amount, err := targetAmount(s, c, "to")
				if err != nil {
					return err
				}
				return s.Engine.Fund(ctx, s.caller, to, amount)
			}),
		},
		{
			Name:      "buy",
			Usage:     "spend base on reward tokens",
			ArgsUsage: "<base-amount>",
			Flags:     []cli.Flag{slippageFlag, minOutFlag},
			Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
				amount, slippage, err := swapArgs(s, c)
				if err != nil {
					return err
				}
				out, err := s.Engine.Buy(ctx, s.caller, amount, slippage)
				if err != nil {
					return err
				}
				s.printf("bought %s tokens\n", s.format(out))
				return nil
			}),
		},
		{
			Name:      "sell",
			Usage:     "swap reward tokens for base (approve the pair first)",
			ArgsUsage: "<token-amount>",
			Flags:     []cli.Flag{slippageFlag, minOutFlag},
			Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
				amount, slippage, err := swapArgs(s, c)
				if err != nil {
					return err
				}
				out, err := s.Engine.Sell(ctx, s.caller, amount, slippage)
				if err != nil {
					return err
				}
				s.printf("received %s base\n", s.format(out))
				return nil
			}),
		},
		{
			Name:      "add-liquidity",
			Usage:     "deposit tokens and base for pair shares (approve the pair first)",
			ArgsUsage: "<token-amount> <base-amount>",
			Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
				tokens, err := amountAt(s, c, 0, "token-amount")
				if err != nil {
					return err
				}
				base, err := amountAt(s, c, 1, "base-amount")
				if err != nil {
					return err
				}
				return s.Engine.AddLiquidity(ctx, s.caller, tokens, base)
			}),
		},
		{
			Name:      "remove-liquidity",
			Usage:     "redeem pair shares (approve the pair on lp first)",
			ArgsUsage: "<shares>",
			Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
				shares, err := amountAt(s, c, 0, "shares")
				if err != nil {
					return err
				}
				tokens, base, err := s.Engine.RemoveLiquidity(ctx, s.caller, shares)
				if err != nil {
					return err
				}
				s.printf("received %s tokens and %s base\n", s.format(tokens), s.format(base))
				return nil
			}),
		},
	},
}

func amountAt(s *session, c *cli.Context, i int, name string) (*uint256.Int, error) {
	v, err := argAt(c, i, name)
	if err != nil {
		return nil, err
	}
	return s.amount(v)
}

func targetAmount(s *session, c *cli.Context, target string) (types.Address, *uint256.Int, error) {
	v, err := argAt(c, 0, target)
	if err != nil {
		return types.ZeroAddress, nil, err
	}
	addr, err := s.address(v)
	if err != nil {
		return types.ZeroAddress, nil, err
	}
	amount, err := amountAt(s, c, 1, "amount")
	return addr, amount, err
}

func swapArgs(s *session, c *cli.Context) (*uint256.Int, types.SlippageConfig, error) {
	amount, err := amountAt(s, c, 0, "amount")
	if err != nil {
		return nil, types.SlippageConfig{}, err
	}
	slippage := types.SlippageConfig{Type: types.SlippageBps, Value: c.Uint64(slippageFlag.Name)}
	if v := c.String(minOutFlag.Name); v != "" {
		minOut, err := s.amount(v)
		if err != nil {
			return nil, slippage, err
		}
		if !minOut.IsUint64() {
			return nil, slippage, fmt.Errorf("%w: min-out %s too large", types.ErrInvalidParameter, v)
		}
		slippage = types.SlippageConfig{Type: types.SlippageFixed, Value: minOut.Uint64()}
	}
	return amount, slippage, nil
}
