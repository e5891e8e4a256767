// cmd/farmctl/admin.go
package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/rovshanmuradov/tokenfarm/internal/engine"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

var (
	weightFlag = &cli.Uint64Flag{
		Name:     "weight",
		Usage:    "allocation weight",
		Required: true,
	}
	depositFeeFlag = &cli.Uint64Flag{
		Name:  "deposit-fee",
		Usage: "deposit fee in basis points",
	}
	withUpdateFlag = &cli.BoolFlag{
		Name:  "with-update",
		Usage: "accrue every pool before the change",
		Value: true,
	}
)

var commandAdmin = &cli.Command{
	Name:  "admin",
	Usage: "pool registry administration (owner or operator)",
	Subcommands: []*cli.Command{
		{
			Name:      "add-pool",
			Usage:     "add a pool staking token or lp",
			ArgsUsage: "<asset>",
			Flags:     []cli.Flag{weightFlag, depositFeeFlag, withUpdateFlag},
			Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
				asset, err := assetArg(c, 0)
				if err != nil {
					return err
				}
				pid, err := s.Engine.AddPool(ctx, s.caller, asset,
					c.Uint64(weightFlag.Name), c.Uint64(depositFeeFlag.Name), c.Bool(withUpdateFlag.Name))
				if err != nil {
					return err
				}
				s.printf("pool %d added\n", pid)
				return nil
			}),
		},
		{
			Name:      "set-pool",
			Usage:     "change a pool's weight and deposit fee",
			ArgsUsage: "<pid>",
			Flags:     []cli.Flag{weightFlag, depositFeeFlag, withUpdateFlag},
			Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
				pid, err := poolID(c, 0)
				if err != nil {
					return err
				}
				return s.Engine.SetPool(ctx, s.caller, pid,
					c.Uint64(weightFlag.Name), c.Uint64(depositFeeFlag.Name), c.Bool(withUpdateFlag.Name))
			}),
		},
		{
			Name:      "emission",
			Usage:     "set the reward per block",
			ArgsUsage: "<amount>",
			Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
				amount, err := amountAt(s, c, 0, "amount")
				if err != nil {
					return err
				}
				return s.Engine.UpdateEmissionRate(ctx, s.caller, amount)
			}),
		},
		{
			Name:      "referral-rate",
			Usage:     "set the referral commission in basis points",
			ArgsUsage: "<bps>",
			Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
				v, err := argAt(c, 0, "bps")
				if err != nil {
					return err
				}
				rate, err := strconv.ParseUint(v, 10, 64)
				if err != nil {
					return fmt.Errorf("%w: rate %q", types.ErrInvalidParameter, v)
				}
				return s.Engine.SetReferralCommissionRate(ctx, s.caller, rate)
			}),
		},
		{
			Name:      "referrals",
			Usage:     "enable or disable referral tracking",
			ArgsUsage: "<true|false>",
			Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
				v, err := argAt(c, 0, "enabled")
				if err != nil {
					return err
				}
				enabled, err := strconv.ParseBool(v)
				if err != nil {
					return err
				}
				return s.Engine.SetReferralsEnabled(ctx, s.caller, enabled)
			}),
		},
		{
			Name:      "dev",
			Usage:     "move the dev share to a new address (current dev only)",
			ArgsUsage: "<address>",
			Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
				addr, err := addressArg(s, c, 0)
				if err != nil {
					return err
				}
				return s.Engine.SetDevAddress(ctx, s.caller, addr)
			}),
		},
		{
			Name:      "fee",
			Usage:     "move deposit fees to a new address (current fee address only)",
			ArgsUsage: "<address>",
			Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
				addr, err := addressArg(s, c, 0)
				if err != nil {
					return err
				}
				return s.Engine.SetFeeAddress(ctx, s.caller, addr)
			}),
		},
		{
			Name:      "operator",
			Usage:     "hand the pool registry operator role to an address",
			ArgsUsage: "<address>",
			Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
				addr, err := addressArg(s, c, 0)
				if err != nil {
					return err
				}
				return s.Engine.TransferFarmOperator(ctx, s.caller, addr)
			}),
		},
	},
}

var commandUnlock = &cli.Command{
	Name:      "unlock",
	Usage:     "release everything the locker holds of an asset (locker owner only)",
	ArgsUsage: "<asset> <recipient>",
	Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
		asset, err := assetArg(c, 0)
		if err != nil {
			return err
		}
		if asset == engine.AssetBase {
			return fmt.Errorf("%w: the locker holds no base", types.ErrInvalidParameter)
		}
		to, err := addressArg(s, c, 1)
		if err != nil {
			return err
		}
		released, err := s.Engine.Unlock(ctx, s.caller, asset, to)
		if err != nil {
			return err
		}
		s.printf("released %s %s to %s\n", s.format(released), asset, to)
		return nil
	}),
}

func addressArg(s *session, c *cli.Context, i int) (types.Address, error) {
	v, err := argAt(c, i, "address")
	if err != nil {
		return types.ZeroAddress, err
	}
	return s.address(v)
}
