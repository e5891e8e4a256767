// cmd/farmctl/session.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tokenfarm/internal/app"
	"github.com/rovshanmuradov/tokenfarm/internal/engine"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// session is one loaded farm plus the caller a command acts as.
type session struct {
	*app.App
	caller   types.Address
	decimals uint8
	raw      bool
	json     bool
	out      io.Writer
}

type action func(ctx context.Context, s *session, c *cli.Context) error

// readOnly loads the farm, runs fn and closes it again.
func readOnly(fn action) cli.ActionFunc {
	return withSession(false, fn)
}

// mutating is readOnly plus a snapshot commit when fn succeeds.
func mutating(fn action) cli.ActionFunc {
	return withSession(true, fn)
}

func withSession(commit bool, fn action) cli.ActionFunc {
	return func(c *cli.Context) (err error) {
		ctx := c.Context
		a, err := app.Open(ctx, c.String(configFlag.Name), app.Options{Quiet: !c.Bool(verboseFlag.Name)})
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, a.Close(context.Background()))
		}()

		s := &session{
			App:      a,
			decimals: a.Config.Token.Decimals,
			raw:      c.Bool(rawFlag.Name),
			json:     c.Bool(jsonFlag.Name),
			out:      c.App.Writer,
		}
		if s.caller, err = s.resolveCaller(c.String(fromFlag.Name)); err != nil {
			return err
		}

		log := a.Logger.WithOperation(c.Command.FullName())
		if err := fn(ctx, s, c); err != nil {
			log.Debug("Command failed", zap.Stringer("caller", s.caller), zap.Error(err))
			return err
		}
		if commit {
			if err := a.Commit(ctx); err != nil {
				return err
			}
			log.Info("Committed", zap.Stringer("caller", s.caller), zap.Uint64("block", a.Engine.BlockNumber()))
		}
		return nil
	}
}

func (s *session) resolveCaller(name string) (types.Address, error) {
	switch name {
	case "", "owner":
		return s.Engine.Owner(), nil
	case "operator":
		return s.Engine.Status().Farm.Operator, nil
	case "dev":
		return s.Engine.Status().Farm.DevAddress, nil
	}
	return types.ParseAddress(name)
}

// address resolves a role or component name, falling back to base58.
func (s *session) address(name string) (types.Address, error) {
	addrs := s.Engine.Addresses()
	switch strings.ToLower(name) {
	case "":
		return types.ZeroAddress, fmt.Errorf("%w: missing address", types.ErrInvalidParameter)
	case "owner":
		return s.Engine.Owner(), nil
	case "farm":
		return addrs.Farm, nil
	case "pair", "router":
		return addrs.Pair, nil
	case "locker":
		return addrs.Locker, nil
	case "token":
		return addrs.Token, nil
	case "referral":
		return addrs.Referral, nil
	case "burn":
		return types.BurnAddress, nil
	}
	return types.ParseAddress(name)
}

// amount reads a decimal amount, scaled by the token decimals unless --raw.
func (s *session) amount(v string) (*uint256.Int, error) {
	if s.raw {
		return types.ParseAmount(v)
	}
	return types.ParseUnits(v, s.decimals)
}

func (s *session) format(x *uint256.Int) string {
	if x == nil {
		return "0"
	}
	if s.raw {
		return types.FormatAmount(x)
	}
	return types.FormatUnits(x, s.decimals)
}

func (s *session) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format, args...)
}

// emit writes v as JSON when --json is set and calls human otherwise.
func (s *session) emit(v interface{}, human func()) error {
	if !s.json {
		human()
		return nil
	}
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func argAt(c *cli.Context, i int, name string) (string, error) {
	if c.NArg() <= i {
		return "", fmt.Errorf("%w: missing <%s>", types.ErrInvalidParameter, name)
	}
	return c.Args().Get(i), nil
}

func poolID(c *cli.Context, i int) (int, error) {
	v, err := argAt(c, i, "pid")
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(v)
	if err != nil || pid < 0 {
		return 0, fmt.Errorf("%w: pool id %q", types.ErrInvalidParameter, v)
	}
	return pid, nil
}

func assetArg(c *cli.Context, i int) (engine.Asset, error) {
	v, err := argAt(c, i, "asset")
	if err != nil {
		return "", err
	}
	return engine.ParseAsset(v)
}
