// cmd/farmctl/farm.go
package main

import (
	"context"

	"github.com/holiman/uint256"
	"github.com/urfave/cli/v2"

	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

var referrerFlag = &cli.StringFlag{
	Name:  "referrer",
	Usage: "address credited with the caller's referral on first deposit",
}

var commandFarm = &cli.Command{
	Name:  "farm",
	Usage: "stake and harvest",
	Subcommands: []*cli.Command{
		{
			Name:      "deposit",
			Usage:     "stake into a pool (approve the farm first)",
			ArgsUsage: "<pid> <amount>",
			Flags:     []cli.Flag{referrerFlag},
			Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
				pid, amount, err := poolAmount(s, c)
				if err != nil {
					return err
				}
				referrer := types.ZeroAddress
				if v := c.String(referrerFlag.Name); v != "" {
					if referrer, err = s.address(v); err != nil {
						return err
					}
				}
				return s.Engine.Deposit(ctx, s.caller, pid, amount, referrer)
			}),
		},
		{
			Name:      "harvest",
			Usage:     "collect pending rewards from a pool",
			ArgsUsage: "<pid>",
			Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
				pid, err := poolID(c, 0)
				if err != nil {
					return err
				}
				before, err := s.Engine.Account(s.caller)
				if err != nil {
					return err
				}
				if err := s.Engine.Harvest(ctx, s.caller, pid); err != nil {
					return err
				}
				after, err := s.Engine.Account(s.caller)
				if err != nil {
					return err
				}
				gained, err := types.Sub(after.Token, before.Token)
				if err != nil {
					return err
				}
				s.printf("harvested %s\n", s.format(gained))
				return nil
			}),
		},
		{
			Name:      "withdraw",
			Usage:     "unstake from a pool, collecting pending rewards",
			ArgsUsage: "<pid> <amount>",
			Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
				pid, amount, err := poolAmount(s, c)
				if err != nil {
					return err
				}
				return s.Engine.Withdraw(ctx, s.caller, pid, amount)
			}),
		},
		{
			Name:      "emergency-withdraw",
			Usage:     "unstake everything from a pool, forfeiting rewards",
			ArgsUsage: "<pid>",
			Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
				pid, err := poolID(c, 0)
				if err != nil {
					return err
				}
				return s.Engine.EmergencyWithdraw(ctx, s.caller, pid)
			}),
		},
		{
			Name:      "pending",
			Usage:     "show the caller's pending reward in a pool",
			ArgsUsage: "<pid>",
			Action: readOnly(func(_ context.Context, s *session, c *cli.Context) error {
				pid, err := poolID(c, 0)
				if err != nil {
					return err
				}
				pending, err := s.Engine.PendingReward(pid, s.caller)
				if err != nil {
					return err
				}
				s.printf("%s\n", s.format(pending))
				return nil
			}),
		},
		{
			Name:      "update",
			Usage:     "accrue rewards for one pool, or every pool without <pid>",
			ArgsUsage: "[pid]",
			Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
				if c.NArg() == 0 {
					return s.Engine.MassUpdatePools(ctx, s.caller)
				}
				pid, err := poolID(c, 0)
				if err != nil {
					return err
				}
				return s.Engine.UpdatePool(ctx, s.caller, pid)
			}),
		},
	},
}

func poolAmount(s *session, c *cli.Context) (int, *uint256.Int, error) {
	pid, err := poolID(c, 0)
	if err != nil {
		return 0, nil, err
	}
	v, err := argAt(c, 1, "amount")
	if err != nil {
		return 0, nil, err
	}
	amount, err := s.amount(v)
	return pid, amount, err
}
