// cmd/farmctl/inspect.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli/v2"

	"github.com/rovshanmuradov/tokenfarm/internal/app"
	"github.com/rovshanmuradov/tokenfarm/internal/config"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

var (
	ownerFlag = &cli.StringFlag{
		Name:  "owner",
		Usage: "deployer address; a fresh one is generated when empty",
	}
	forceFlag = &cli.BoolFlag{
		Name:  "force",
		Usage: "deploy again even if the store already holds state",
	}
	writeFlag = &cli.BoolFlag{
		Name:  "write-config",
		Usage: "write the default configuration to --config first",
	}
)

var commandInit = &cli.Command{
	Name:  "init",
	Usage: "deploy a fresh farm from the configuration",
	Description: `
Deploys the token, pair, referral registry, pool registry and locker described
by --config and stores the first snapshot.

With --write-config a default configuration for --owner is written first.`,
	Flags: []cli.Flag{ownerFlag, forceFlag, writeFlag},
	Action: func(c *cli.Context) error {
		path := c.String(configFlag.Name)
		if c.Bool(writeFlag.Name) {
			if _, err := os.Stat(path); err == nil && !c.Bool(forceFlag.Name) {
				return fmt.Errorf("%s exists, use --force to overwrite", path)
			}
			owner := types.NewAccount()
			if v := c.String(ownerFlag.Name); v != "" {
				var err error
				if owner, err = types.ParseAddress(v); err != nil {
					return err
				}
			}
			if err := config.Save(config.Default(owner), path); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "wrote %s for owner %s\n", path, owner)
		}

		a, err := app.Init(c.Context, path, app.Options{Quiet: !c.Bool(verboseFlag.Name)}, c.Bool(forceFlag.Name))
		if err != nil {
			if errors.Is(err, app.ErrAlreadyInitialized) {
				return fmt.Errorf("%w (use --force to redeploy)", err)
			}
			return err
		}
		defer a.Close(context.Background())

		addrs := a.Engine.Addresses()
		fmt.Fprintf(c.App.Writer, "deployed at block %d\n", a.Engine.BlockNumber())
		fmt.Fprintf(c.App.Writer, "  owner     %s\n", a.Engine.Owner())
		fmt.Fprintf(c.App.Writer, "  token     %s\n", addrs.Token)
		fmt.Fprintf(c.App.Writer, "  pair      %s\n", addrs.Pair)
		fmt.Fprintf(c.App.Writer, "  farm      %s\n", addrs.Farm)
		fmt.Fprintf(c.App.Writer, "  referral  %s\n", addrs.Referral)
		fmt.Fprintf(c.App.Writer, "  locker    %s\n", addrs.Locker)
		return nil
	},
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

var commandStatus = &cli.Command{
	Name:  "status",
	Usage: "show the token, pools, pair and locker",
	Action: readOnly(func(_ context.Context, s *session, _ *cli.Context) error {
		st := s.Engine.Status()
		return s.emit(st, func() {
			s.printf("block %d\n\n", st.Block)
			s.printf("%s (%s) operator %s\n", st.Token.Symbol, st.Token.Address, st.Token.Operator)
			s.printf("  supply %s / cap %s, circulating %s, mintable %s\n",
				s.format(st.Token.TotalSupply), s.format(st.Token.Cap),
				s.format(st.Token.CirculatingSupply), s.format(st.Token.MintableSupply))
			s.printf("  burned %s, held for liquify %s, max transfer %s\n",
				s.format(st.Token.Burned), s.format(st.Token.Retained), s.format(st.Token.MaxTransferAmount))
			p := st.Token.Policy
			s.printf("  tax %d bps, burn %d%% of tax, anti-whale %d bps, liquify %t at %s\n\n",
				p.TransferTaxRate, p.BurnRate, p.MaxTransferAmountRate, p.SwapAndLiquifyEnabled, s.format(p.MinAmountToLiquify))

			s.printf("farm %s owner %s operator %s\n", st.Farm.Address, st.Farm.Owner, st.Farm.Operator)
			s.printf("  %s per block from %d, reserve %s, referral %d bps (enabled %t)\n",
				s.format(st.Farm.RewardPerBlock), st.Farm.StartBlock, s.format(st.Farm.RewardReserve),
				st.Farm.ReferralCommissionRate, st.Farm.ReferralsEnabled)
			t := newTable("pid", "asset", "weight", "fee bps", "staked", "last reward")
			for _, pool := range st.Farm.Pools {
				t.Row(strconv.Itoa(pool.ID), string(pool.Asset), strconv.FormatUint(pool.Weight, 10),
					strconv.FormatUint(pool.DepositFeeRate, 10), s.format(pool.StakedSupply),
					strconv.FormatUint(pool.LastRewardBlock, 10))
			}
			s.printf("%s\n\n", t.Render())

			s.printf("pair %s fee %d bps\n", st.Pair.Address, st.Pair.FeeBps)
			s.printf("  reserves %s token / %s base, %s shares\n",
				s.format(st.Pair.ReserveToken), s.format(st.Pair.ReserveBase), s.format(st.Pair.LPSupply))
			s.printf("locker %s holds %s token, %s lp\n", st.Locker.Address, s.format(st.Locker.Token), s.format(st.Locker.LP))
		})
	}),
}

var commandAccount = &cli.Command{
	Name:      "account",
	Usage:     "show balances, stakes and referrals of an address",
	ArgsUsage: "[address]",
	Action: readOnly(func(_ context.Context, s *session, c *cli.Context) error {
		addr := s.caller
		if c.NArg() > 0 {
			var err error
			if addr, err = s.address(c.Args().First()); err != nil {
				return err
			}
		}
		acc, err := s.Engine.Account(addr)
		if err != nil {
			return err
		}
		return s.emit(acc, func() {
			s.printf("%s\n", acc.Address)
			s.printf("  token %s, lp %s, base %s\n", s.format(acc.Token), s.format(acc.LP), s.format(acc.Base))
			if !types.IsZero(acc.Referral.Referrer) {
				s.printf("  referred by %s\n", acc.Referral.Referrer)
			}
			s.printf("  %d referrals, %s commission earned\n", acc.Referral.Referred, s.format(acc.Referral.Commissions))
			if len(acc.Positions) == 0 {
				return
			}
			t := newTable("pid", "staked", "pending")
			for _, p := range acc.Positions {
				t.Row(strconv.Itoa(p.PoolID), s.format(p.Staked), s.format(p.Pending))
			}
			s.printf("%s\n", t.Render())
		})
	}),
}

var limitFlag = &cli.IntFlag{
	Name:  "limit",
	Usage: "number of snapshots to list",
	Value: 20,
}

var commandSnapshots = &cli.Command{
	Name:  "snapshots",
	Usage: "list stored snapshots, newest first",
	Flags: []cli.Flag{limitFlag},
	Action: readOnly(func(ctx context.Context, s *session, c *cli.Context) error {
		infos, err := s.Store.ListSnapshots(ctx, c.Int(limitFlag.Name))
		if err != nil {
			return err
		}
		return s.emit(infos, func() {
			t := newTable("block", "bytes")
			for _, info := range infos {
				t.Row(strconv.FormatUint(info.Block, 10), strconv.Itoa(info.Size))
			}
			s.printf("%s\n", t.Render())
		})
	}),
}

var commandMetrics = &cli.Command{
	Name:  "metrics",
	Usage: "print the Prometheus metrics of the loaded farm",
	Action: readOnly(func(_ context.Context, s *session, _ *cli.Context) error {
		return s.Engine.Metrics().WriteText(s.out)
	}),
}

var commandAdvance = &cli.Command{
	Name:      "advance",
	Usage:     "mine blocks",
	ArgsUsage: "<blocks>",
	Action: mutating(func(ctx context.Context, s *session, c *cli.Context) error {
		v, err := argAt(c, 0, "blocks")
		if err != nil {
			return err
		}
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: blocks %q", types.ErrInvalidParameter, v)
		}
		if err := s.Engine.AdvanceBlocks(ctx, n); err != nil {
			return err
		}
		s.printf("block %d\n", s.Engine.BlockNumber())
		return nil
	}),
}
