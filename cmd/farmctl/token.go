// cmd/farmctl/token.go
package main

import (
	"context"
	"strconv"

	"github.com/holiman/uint256"
	"github.com/urfave/cli/v2"

	"github.com/rovshanmuradov/tokenfarm/internal/engine"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

var commandToken = &cli.Command{
	Name:  "token",
	Usage: "move and approve balances",
	Subcommands: []*cli.Command{
		{
			Name:      "transfer",
			Usage:     "send an asset (token, lp or base)",
			ArgsUsage: "<asset> <to> <amount>",
			Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
				asset, to, amount, err := assetTargetAmount(s, c, "to")
				if err != nil {
					return err
				}
				if asset == engine.AssetToken {
					split, err := s.Engine.QuoteTransfer(s.caller, to, amount)
					if err != nil {
						return err
					}
					s.printf("recipient gets %s, %s burned, %s held for liquify\n",
						s.format(split.Received), s.format(split.Burned), s.format(split.Retained))
				}
				return s.Engine.Transfer(ctx, s.caller, asset, to, amount)
			}),
		},
		{
			Name:      "approve",
			Usage:     "set a spender allowance (spender may be farm or pair)",
			ArgsUsage: "<asset> <spender> <amount>",
			Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
				asset, spender, amount, err := assetTargetAmount(s, c, "spender")
				if err != nil {
					return err
				}
				return s.Engine.Approve(ctx, s.caller, asset, spender, amount)
			}),
		},
		{
			Name:      "allowance",
			Usage:     "show a spender allowance over the caller's asset",
			ArgsUsage: "<asset> <spender>",
			Action: readOnly(func(_ context.Context, s *session, c *cli.Context) error {
				asset, err := assetArg(c, 0)
				if err != nil {
					return err
				}
				v, err := argAt(c, 1, "spender")
				if err != nil {
					return err
				}
				spender, err := s.address(v)
				if err != nil {
					return err
				}
				allowance, err := s.Engine.Allowance(asset, s.caller, spender)
				if err != nil {
					return err
				}
				s.printf("%s\n", s.format(allowance))
				return nil
			}),
		},
		{
			Name:      "burn",
			Usage:     "destroy reward tokens from the caller",
			ArgsUsage: "<amount>",
			Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
				v, err := argAt(c, 0, "amount")
				if err != nil {
					return err
				}
				amount, err := s.amount(v)
				if err != nil {
					return err
				}
				return s.Engine.Burn(ctx, s.caller, amount)
			}),
		},
		{
			Name:      "set-policy",
			Usage:     "change one transfer policy field (owner only)",
			ArgsUsage: "<field> <value>",
			Description: `
Fields: transfer_tax_rate (bps), burn_rate (percent of tax),
max_transfer_amount_rate (bps of supply), swap_and_liquify_enabled (bool),
min_amount_to_liquify (amount).`,
			Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
				field, err := argAt(c, 0, "field")
				if err != nil {
					return err
				}
				value, err := argAt(c, 1, "value")
				if err != nil {
					return err
				}
				if field == engine.PolicyMinAmountToLiquify {
					amount, err := s.amount(value)
					if err != nil {
						return err
					}
					value = types.FormatAmount(amount)
				}
				return s.Engine.SetPolicy(ctx, s.caller, field, value)
			}),
		},
		{
			Name:      "exclude",
			Usage:     "exempt an address from the anti-whale limit (owner only)",
			ArgsUsage: "<address> [true|false]",
			Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
				v, err := argAt(c, 0, "address")
				if err != nil {
					return err
				}
				addr, err := s.address(v)
				if err != nil {
					return err
				}
				excluded := true
				if c.NArg() > 1 {
					if excluded, err = strconv.ParseBool(c.Args().Get(1)); err != nil {
						return err
					}
				}
				return s.Engine.SetExcludedFromAntiWhale(ctx, s.caller, addr, excluded)
			}),
		},
	},
}

func assetTargetAmount(s *session, c *cli.Context, target string) (engine.Asset, types.Address, *uint256.Int, error) {
	asset, err := assetArg(c, 0)
	if err != nil {
		return "", types.ZeroAddress, nil, err
	}
	v, err := argAt(c, 1, target)
	if err != nil {
		return "", types.ZeroAddress, nil, err
	}
	addr, err := s.address(v)
	if err != nil {
		return "", types.ZeroAddress, nil, err
	}
	v, err = argAt(c, 2, "amount")
	if err != nil {
		return "", types.ZeroAddress, nil, err
	}
	amount, err := s.amount(v)
	if err != nil {
		return "", types.ZeroAddress, nil, err
	}
	return asset, addr, amount, nil
}
