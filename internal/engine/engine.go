// internal/engine/engine.go
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/tokenfarm/internal/chain"
	"github.com/rovshanmuradov/tokenfarm/internal/config"
	"github.com/rovshanmuradov/tokenfarm/internal/dex"
	"github.com/rovshanmuradov/tokenfarm/internal/events"
	"github.com/rovshanmuradov/tokenfarm/internal/farm"
	"github.com/rovshanmuradov/tokenfarm/internal/locker"
	"github.com/rovshanmuradov/tokenfarm/internal/referral"
	"github.com/rovshanmuradov/tokenfarm/internal/token"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// Engine wires the reward token, referral registry, pair, pool registry and
// locker onto one host and serializes every call against them. It plays the
// platform: one operation at a time, each atomic.
type Engine struct {
	mu      sync.Mutex
	logger  *zap.Logger
	host    *chain.Host
	metrics *Metrics

	owner     types.Address
	token     *token.Ledger
	referrals *referral.Registry
	pair      *dex.Pair
	farm      *farm.Registry
	locker    *locker.Locker
}

// Addresses are the component accounts derived from the deployer.
type Addresses struct {
	Token    types.Address
	Referral types.Address
	Pair     types.Address
	Farm     types.Address
	Locker   types.Address
}

// DeriveAddresses returns the accounts owner's deployment uses.
func DeriveAddresses(owner types.Address) (Addresses, error) {
	var a Addresses
	for _, d := range []struct {
		seed string
		dst  *types.Address
	}{
		{types.SeedToken, &a.Token},
		{types.SeedReferral, &a.Referral},
		{types.SeedPair, &a.Pair},
		{types.SeedFarm, &a.Farm},
		{types.SeedLocker, &a.Locker},
	} {
		addr, err := types.DeriveAddress(owner, d.seed)
		if err != nil {
			return Addresses{}, err
		}
		*d.dst = addr
	}
	return a, nil
}

// New deploys a fresh farm described by cfg. sink receives committed events
// and may be nil; metrics may be nil.
//
// Everything that needs the token operator (allocations, initial liquidity,
// anti-whale exclusions, the router) happens before the operator role moves
// to the pool registry, which is the only minter afterwards.
func New(logger *zap.Logger, cfg *config.Config, sink events.Sink, metrics *Metrics) (*Engine, error) {
	d, err := cfg.Deployment()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	addrs, err := DeriveAddresses(d.Owner)
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	logger = logger.Named("engine")
	host := chain.NewHost(logger, sink, cfg.GenesisBlock)

	e := &Engine{
		logger:  logger,
		host:    host,
		metrics: metrics,
		owner:   d.Owner,
	}
	if e.token, err = token.New(host, logger, addrs.Token, d.Owner, d.Token); err != nil {
		return nil, fmt.Errorf("token: %w", err)
	}
	e.referrals = referral.New(host, logger, addrs.Referral, d.Owner)
	if e.pair, err = dex.New(host, logger, addrs.Pair, d.Owner, e.token, d.DexFeeBps); err != nil {
		return nil, fmt.Errorf("pair: %w", err)
	}
	e.locker = locker.New(host, logger, addrs.Locker, d.Owner)
	e.farm, err = farm.New(host, logger, addrs.Farm, d.Owner, e.token, e.referrals, farm.Config{
		RewardPerBlock: d.RewardPerBlock,
		StartBlock:     d.StartBlock,
		DevAddress:     d.DevAddress,
		FeeAddress:     d.FeeAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("farm: %w", err)
	}

	if err := host.Call("engine.bootstrap", d.Owner, func() error { return e.bootstrap(d) }); err != nil {
		return nil, err
	}
	metrics.observeState(e)

	logger.Info("Farm deployed",
		zap.Stringer("owner", d.Owner),
		zap.Stringer("token", addrs.Token),
		zap.Stringer("farm", addrs.Farm),
		zap.Stringer("pair", addrs.Pair),
		zap.Int("pools", e.farm.PoolLength()),
		zap.Uint64("block", host.BlockNumber()))
	return e, nil
}

func (e *Engine) bootstrap(d *config.Deployment) error {
	owner := d.Owner
	if d.ReferralCommissionRate != farm.DefaultReferralCommissionRate {
		if err := e.farm.SetReferralCommissionRate(owner, d.ReferralCommissionRate); err != nil {
			return err
		}
	}
	for _, addr := range []types.Address{e.pair.Address(), e.locker.Address()} {
		if err := e.token.SetExcludedFromAntiWhale(owner, addr, true); err != nil {
			return err
		}
	}

	for _, m := range d.Allocations {
		to := m.To
		if m.Lock {
			to = e.locker.Address()
		}
		if err := e.token.Mint(owner, to, m.Amount); err != nil {
			return fmt.Errorf("allocation to %s: %w", to, err)
		}
	}

	if !d.InitialTokens.IsZero() {
		lpTo := owner
		if d.LockLiquidity {
			lpTo = e.locker.Address()
		}
		if err := e.token.Mint(owner, owner, d.InitialTokens); err != nil {
			return fmt.Errorf("initial liquidity: %w", err)
		}
		if err := e.pair.Fund(owner, owner, d.InitialBase); err != nil {
			return err
		}
		if err := e.token.Approve(owner, e.pair.Address(), d.InitialTokens); err != nil {
			return err
		}
		if err := e.pair.AddLiquidity(owner, d.InitialTokens, d.InitialBase, lpTo); err != nil {
			return fmt.Errorf("initial liquidity: %w", err)
		}
	}
	if err := e.token.UpdateRouter(owner, e.pair); err != nil {
		return err
	}

	for _, p := range d.Pools {
		stake, err := e.stakeToken(p.Stake)
		if err != nil {
			return err
		}
		if _, err := e.farm.Add(owner, p.Weight, stake, p.DepositFeeRate, d.StartBlock, false); err != nil {
			return fmt.Errorf("pool %s: %w", p.Stake, err)
		}
	}

	if err := e.token.TransferOperator(owner, e.farm.Address()); err != nil {
		return err
	}
	if err := e.referrals.UpdateOperator(owner, e.farm.Address(), true); err != nil {
		return err
	}
	if !types.IsZero(d.Operator) && d.Operator != owner {
		if err := e.farm.TransferOperator(owner, d.Operator); err != nil {
			return err
		}
	}
	return nil
}

// stakeToken maps a pool stake keyword to its ledger.
func (e *Engine) stakeToken(kind string) (farm.StakeToken, error) {
	switch kind {
	case config.StakeToken:
		return e.token, nil
	case config.StakeLP:
		return e.pair.LP(), nil
	default:
		return nil, fmt.Errorf("%w: stake %q", types.ErrInvalidParameter, kind)
	}
}

// run executes fn as one serialized operation and records its metrics.
func (e *Engine) run(ctx context.Context, op string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		e.metrics.observe(ctx, op, 0, err)
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	err := fn()
	e.metrics.observe(ctx, op, time.Since(start), err)
	e.metrics.observeState(e)
	if err != nil {
		e.logger.Debug("Operation failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

// view runs fn under the engine lock without recording metrics.
func (e *Engine) view(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

// Owner returns the deployer.
func (e *Engine) Owner() types.Address { return e.owner }

// Metrics returns the engine instrumentation.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// Addresses returns the component accounts.
func (e *Engine) Addresses() Addresses {
	return Addresses{
		Token:    e.token.Address(),
		Referral: e.referrals.Address(),
		Pair:     e.pair.Address(),
		Farm:     e.farm.Address(),
		Locker:   e.locker.Address(),
	}
}

// BlockNumber returns the current height.
func (e *Engine) BlockNumber() uint64 {
	var n uint64
	e.view(func() { n = e.host.BlockNumber() })
	return n
}

// AdvanceBlocks moves the chain forward by n blocks.
func (e *Engine) AdvanceBlocks(ctx context.Context, n uint64) error {
	return e.run(ctx, "advance", func() error {
		return e.host.AdvanceBlocks(n)
	})
}

// SetBlockNumber moves the chain forward to height n.
func (e *Engine) SetBlockNumber(ctx context.Context, n uint64) error {
	return e.run(ctx, "set_block", func() error {
		return e.host.SetBlockNumber(n)
	})
}
