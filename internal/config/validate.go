// =================================
// File: internal/config/validate.go
// =================================
package config

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/multierr"

	"github.com/rovshanmuradov/tokenfarm/internal/dex"
	"github.com/rovshanmuradov/tokenfarm/internal/farm"
	"github.com/rovshanmuradov/tokenfarm/internal/token"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// Deployment is a validated Config with addresses and amounts decoded.
type Deployment struct {
	Owner    types.Address
	Operator types.Address // zero when the owner operates the registry

	Token       token.Config
	Allocations []Mint

	RewardPerBlock         *uint256.Int
	StartBlock             uint64
	DevAddress             types.Address
	FeeAddress             types.Address
	ReferralCommissionRate uint64
	Pools                  []PoolConfig

	DexFeeBps     uint64
	InitialTokens *uint256.Int
	InitialBase   *uint256.Int
	LockLiquidity bool
}

// Mint is a decoded Allocation.
type Mint struct {
	To     types.Address
	Amount *uint256.Int
	Lock   bool
}

// Validate reports every problem in c at once.
func (c *Config) Validate() error {
	_, err := c.Deployment()
	return err
}

// Deployment decodes c. All errors are collected into one.
func (c *Config) Deployment() (*Deployment, error) {
	var errs error
	d := &Deployment{
		StartBlock:             c.Farm.StartBlock,
		ReferralCommissionRate: c.Farm.ReferralCommissionRate,
		Pools:                  c.Farm.Pools,
		DexFeeBps:              c.Dex.FeeBps,
		LockLiquidity:          c.Dex.LockLiquidity,
	}
	addr := func(field, s string, required bool) types.Address {
		a, err := types.ParseAddress(s)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", field, err))
			return types.ZeroAddress
		}
		if required && types.IsZero(a) {
			errs = multierr.Append(errs, fmt.Errorf("%s is required", field))
		}
		return a
	}
	units := func(field, s string) *uint256.Int {
		v, err := types.ParseUnits(s, c.Token.Decimals)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", field, err))
			return new(uint256.Int)
		}
		return v
	}

	d.Owner = addr("roles.owner", c.Roles.Owner, true)
	d.Operator = addr("roles.operator", c.Roles.Operator, false)
	d.DevAddress = addr("farm.dev_address", c.Farm.DevAddress, false)
	d.FeeAddress = addr("farm.fee_address", c.Farm.FeeAddress, false)
	if types.IsZero(d.DevAddress) {
		d.DevAddress = d.Owner
	}
	if types.IsZero(d.FeeAddress) {
		d.FeeAddress = d.Owner
	}

	if c.Token.Symbol == "" {
		errs = multierr.Append(errs, errors.New("token.symbol is required"))
	}
	d.Token = token.Config{
		Name:        c.Token.Name,
		Symbol:      c.Token.Symbol,
		Decimals:    c.Token.Decimals,
		Cap:         units("token.cap", c.Token.Cap),
		GenesisBurn: units("token.genesis_burn", c.Token.GenesisBurn),
		Policy: token.Policy{
			TransferTaxRate:       c.Token.TransferTaxRate,
			BurnRate:              c.Token.BurnRate,
			MaxTransferAmountRate: c.Token.MaxTransferAmountRate,
			SwapAndLiquifyEnabled: c.Token.SwapAndLiquifyEnabled,
			MinAmountToLiquify:    units("token.min_amount_to_liquify", c.Token.MinAmountToLiquify),
		},
	}
	if d.Token.Cap.IsZero() {
		errs = multierr.Append(errs, errors.New("token.cap must be positive"))
	}
	if err := token.ValidatePolicy(d.Token.Policy); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("token: %w", err))
	}

	minted := d.Token.GenesisBurn.Clone()
	for i, a := range c.Token.Allocations {
		field := fmt.Sprintf("token.allocations[%d]", i)
		m := Mint{Amount: units(field+".amount", a.Amount), Lock: a.Lock}
		if !a.Lock {
			m.To = addr(field+".address", a.Address, true)
		}
		minted.Add(minted, m.Amount)
		d.Allocations = append(d.Allocations, m)
	}
	d.InitialTokens = units("dex.initial_tokens", c.Dex.InitialTokens)
	d.InitialBase = units("dex.initial_base", c.Dex.InitialBase)
	minted.Add(minted, d.InitialTokens)
	if minted.Gt(d.Token.Cap) {
		errs = multierr.Append(errs, fmt.Errorf("genesis burn, allocations and initial liquidity exceed token.cap: %w",
			types.ErrSupplyCapExceeded))
	}
	if d.InitialTokens.IsZero() != d.InitialBase.IsZero() {
		errs = multierr.Append(errs, errors.New("dex.initial_tokens and dex.initial_base must both be set or both be zero"))
	}
	if c.Dex.FeeBps > dex.MaxFeeBps {
		errs = multierr.Append(errs, fmt.Errorf("dex.fee_bps %d exceeds %d", c.Dex.FeeBps, dex.MaxFeeBps))
	}
	if c.Dex.LockLiquidity && d.InitialTokens.IsZero() {
		errs = multierr.Append(errs, errors.New("dex.lock_liquidity needs initial liquidity"))
	}

	d.RewardPerBlock = units("farm.reward_per_block", c.Farm.RewardPerBlock)
	if c.Farm.ReferralCommissionRate > farm.MaxReferralCommissionRate {
		errs = multierr.Append(errs, fmt.Errorf("farm.referral_commission_rate %d exceeds %d bps",
			c.Farm.ReferralCommissionRate, farm.MaxReferralCommissionRate))
	}
	seen := make(map[string]bool)
	for i, p := range c.Farm.Pools {
		field := fmt.Sprintf("farm.pools[%d]", i)
		switch p.Stake {
		case StakeToken, StakeLP:
		default:
			errs = multierr.Append(errs, fmt.Errorf("%s.stake %q must be %q or %q", field, p.Stake, StakeToken, StakeLP))
		}
		if seen[p.Stake] {
			errs = multierr.Append(errs, fmt.Errorf("%s.stake %q is already pooled", field, p.Stake))
		}
		seen[p.Stake] = true
		if p.DepositFeeRate > farm.MaxDepositFeeRate {
			errs = multierr.Append(errs, fmt.Errorf("%s.deposit_fee_rate %d exceeds %d bps", field, p.DepositFeeRate, farm.MaxDepositFeeRate))
		}
	}
	if seen[StakeLP] && d.InitialTokens.IsZero() {
		errs = multierr.Append(errs, errors.New("an lp pool needs dex.initial_tokens and dex.initial_base"))
	}

	if c.Store.Path == "" {
		errs = multierr.Append(errs, errors.New("store.path is required"))
	}
	if c.Store.Retries < 0 {
		errs = multierr.Append(errs, errors.New("invalid store.retries"))
	}
	if c.Journal.Path != "" && c.Journal.FlushInterval <= 0 {
		errs = multierr.Append(errs, errors.New("invalid journal.flush_interval"))
	}

	if errs != nil {
		return nil, errs
	}
	return d, nil
}
