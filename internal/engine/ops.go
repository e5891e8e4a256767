// internal/engine/ops.go
package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/holiman/uint256"

	"github.com/rovshanmuradov/tokenfarm/internal/token"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// Asset selects one of the balances the engine tracks.
type Asset string

const (
	AssetToken Asset = "token" // the reward token
	AssetLP    Asset = "lp"    // pair liquidity shares
	AssetBase  Asset = "base"  // the pair's native base asset
)

// ParseAsset accepts the asset keywords used by the CLI.
func ParseAsset(s string) (Asset, error) {
	switch a := Asset(s); a {
	case AssetToken, AssetLP, AssetBase:
		return a, nil
	default:
		return "", fmt.Errorf("%w: asset %q (want token, lp or base)", types.ErrInvalidParameter, s)
	}
}

func (e *Engine) ledger(a Asset) (*token.Ledger, error) {
	switch a {
	case AssetToken:
		return e.token, nil
	case AssetLP:
		return e.pair.LP(), nil
	default:
		return nil, fmt.Errorf("%w: %s is not a token ledger", types.ErrInvalidParameter, a)
	}
}

// Transfer moves amount of asset from caller to to.
func (e *Engine) Transfer(ctx context.Context, caller types.Address, asset Asset, to types.Address, amount *uint256.Int) error {
	return e.run(ctx, "transfer", func() error {
		if asset == AssetBase {
			return e.pair.TransferBase(caller, to, amount)
		}
		l, err := e.ledger(asset)
		if err != nil {
			return err
		}
		return l.Transfer(caller, to, amount)
	})
}

// Approve sets spender's allowance over caller's asset.
func (e *Engine) Approve(ctx context.Context, caller types.Address, asset Asset, spender types.Address, amount *uint256.Int) error {
	return e.run(ctx, "approve", func() error {
		l, err := e.ledger(asset)
		if err != nil {
			return err
		}
		return l.Approve(caller, spender, amount)
	})
}

// Burn destroys amount of caller's reward tokens.
func (e *Engine) Burn(ctx context.Context, caller types.Address, amount *uint256.Int) error {
	return e.run(ctx, "burn", func() error {
		return e.token.Burn(caller, amount)
	})
}

// Policy fields accepted by SetPolicy.
const (
	PolicyTransferTaxRate       = "transfer_tax_rate"
	PolicyBurnRate              = "burn_rate"
	PolicyMaxTransferAmountRate = "max_transfer_amount_rate"
	PolicySwapAndLiquifyEnabled = "swap_and_liquify_enabled"
	PolicyMinAmountToLiquify    = "min_amount_to_liquify"
)

// SetPolicy changes one field of the reward token's transfer policy. The
// pool registry operates the token, so the call is forwarded through it and
// only the registry owner may make it. value is a bps/percent integer, a
// boolean, or a base-unit amount depending on field.
func (e *Engine) SetPolicy(ctx context.Context, caller types.Address, field, value string) error {
	return e.run(ctx, "set_policy", func() error {
		apply, err := policySetter(e.token, field, value)
		if err != nil {
			return err
		}
		return e.farm.AsOperator(caller, "token."+field, apply)
	})
}

func policySetter(l *token.Ledger, field, value string) (func(types.Address) error, error) {
	switch field {
	case PolicyTransferTaxRate, PolicyBurnRate, PolicyMaxTransferAmountRate:
		rate, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q", types.ErrInvalidParameter, field, value)
		}
		return func(op types.Address) error {
			switch field {
			case PolicyTransferTaxRate:
				return l.UpdateTransferTaxRate(op, rate)
			case PolicyBurnRate:
				return l.UpdateBurnRate(op, rate)
			default:
				return l.UpdateMaxTransferAmountRate(op, rate)
			}
		}, nil
	case PolicySwapAndLiquifyEnabled:
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q", types.ErrInvalidParameter, field, value)
		}
		return func(op types.Address) error { return l.UpdateSwapAndLiquifyEnabled(op, enabled) }, nil
	case PolicyMinAmountToLiquify:
		amount, err := types.ParseAmount(value)
		if err != nil {
			return nil, err
		}
		return func(op types.Address) error { return l.UpdateMinAmountToLiquify(op, amount) }, nil
	default:
		return nil, fmt.Errorf("%w: unknown policy field %q", types.ErrInvalidParameter, field)
	}
}

// SetExcludedFromAntiWhale toggles the anti-whale exemption of addr.
// Forwarded through the pool registry like SetPolicy.
func (e *Engine) SetExcludedFromAntiWhale(ctx context.Context, caller, addr types.Address, excluded bool) error {
	return e.run(ctx, "set_anti_whale_exclusion", func() error {
		return e.farm.AsOperator(caller, "token.setExcludedFromAntiWhale", func(op types.Address) error {
			return e.token.SetExcludedFromAntiWhale(op, addr, excluded)
		})
	})
}

// Deposit stakes amount into pool pid, paying out pending rewards first.
func (e *Engine) Deposit(ctx context.Context, caller types.Address, pid int, amount *uint256.Int, referrer types.Address) error {
	return e.run(ctx, "deposit", func() error {
		return e.farm.Deposit(caller, pid, amount, referrer)
	})
}

// Harvest pays out caller's pending rewards in pool pid.
func (e *Engine) Harvest(ctx context.Context, caller types.Address, pid int) error {
	return e.run(ctx, "harvest", func() error {
		return e.farm.Deposit(caller, pid, new(uint256.Int), types.ZeroAddress)
	})
}

// Withdraw unstakes amount from pool pid, paying out pending rewards first.
func (e *Engine) Withdraw(ctx context.Context, caller types.Address, pid int, amount *uint256.Int) error {
	return e.run(ctx, "withdraw", func() error {
		return e.farm.Withdraw(caller, pid, amount)
	})
}

// EmergencyWithdraw returns caller's whole stake in pid without rewards.
func (e *Engine) EmergencyWithdraw(ctx context.Context, caller types.Address, pid int) error {
	return e.run(ctx, "emergency_withdraw", func() error {
		return e.farm.EmergencyWithdraw(caller, pid)
	})
}

// UpdatePool brings pool pid up to date.
func (e *Engine) UpdatePool(ctx context.Context, caller types.Address, pid int) error {
	return e.run(ctx, "update_pool", func() error {
		return e.farm.UpdatePool(caller, pid)
	})
}

// MassUpdatePools brings every pool up to date.
func (e *Engine) MassUpdatePools(ctx context.Context, caller types.Address) error {
	return e.run(ctx, "mass_update_pools", func() error {
		return e.farm.MassUpdatePools(caller)
	})
}

// AddPool adds a pool staking asset and returns its id.
func (e *Engine) AddPool(ctx context.Context, caller types.Address, asset Asset, weight, depositFeeRate uint64, withUpdate bool) (int, error) {
	pid := -1
	err := e.run(ctx, "add_pool", func() error {
		stake, err := e.stakeToken(string(asset))
		if err != nil {
			return err
		}
		pid, err = e.farm.Add(caller, weight, stake, depositFeeRate, e.host.BlockNumber(), withUpdate)
		return err
	})
	return pid, err
}

// SetPool changes the weight and deposit fee of pool pid.
func (e *Engine) SetPool(ctx context.Context, caller types.Address, pid int, weight, depositFeeRate uint64, withUpdate bool) error {
	return e.run(ctx, "set_pool", func() error {
		return e.farm.Set(caller, pid, weight, depositFeeRate, withUpdate)
	})
}

// UpdateEmissionRate changes the reward minted per block.
func (e *Engine) UpdateEmissionRate(ctx context.Context, caller types.Address, rewardPerBlock *uint256.Int) error {
	return e.run(ctx, "update_emission_rate", func() error {
		return e.farm.UpdateEmissionRate(caller, rewardPerBlock)
	})
}

// SetReferralCommissionRate changes the referral cut in bps.
func (e *Engine) SetReferralCommissionRate(ctx context.Context, caller types.Address, rate uint64) error {
	return e.run(ctx, "set_referral_commission_rate", func() error {
		return e.farm.SetReferralCommissionRate(caller, rate)
	})
}

// SetDevAddress changes the dev-split recipient.
func (e *Engine) SetDevAddress(ctx context.Context, caller, dev types.Address) error {
	return e.run(ctx, "set_dev_address", func() error {
		return e.farm.SetDevAddress(caller, dev)
	})
}

// SetFeeAddress changes the deposit fee recipient.
func (e *Engine) SetFeeAddress(ctx context.Context, caller, fee types.Address) error {
	return e.run(ctx, "set_fee_address", func() error {
		return e.farm.SetFeeAddress(caller, fee)
	})
}

// SetReferralsEnabled attaches or detaches the referral registry.
func (e *Engine) SetReferralsEnabled(ctx context.Context, caller types.Address, enabled bool) error {
	return e.run(ctx, "set_referrals", func() error {
		if enabled {
			return e.farm.SetReferralRegistry(caller, e.referrals)
		}
		return e.farm.SetReferralRegistry(caller, nil)
	})
}

// TransferFarmOperator hands the pool registry operator role to next.
func (e *Engine) TransferFarmOperator(ctx context.Context, caller, next types.Address) error {
	return e.run(ctx, "transfer_farm_operator", func() error {
		return e.farm.TransferOperator(caller, next)
	})
}

// Fund issues amount of base asset to to. Pair owner only.
func (e *Engine) Fund(ctx context.Context, caller, to types.Address, amount *uint256.Int) error {
	return e.run(ctx, "fund", func() error {
		return e.pair.Fund(caller, to, amount)
	})
}

// Buy spends amount of base on reward tokens. The minimum output is derived
// from the current quote under slippage.
func (e *Engine) Buy(ctx context.Context, caller types.Address, amount *uint256.Int, slippage types.SlippageConfig) (*uint256.Int, error) {
	var out *uint256.Int
	err := e.run(ctx, "buy", func() error {
		quote, err := e.pair.QuoteBaseForTokens(amount)
		if err != nil {
			return err
		}
		minOut, err := types.MinAmountOut(quote, slippage)
		if err != nil {
			return err
		}
		out, err = e.pair.SwapExactBaseForTokens(caller, amount, minOut)
		return err
	})
	return out, err
}

// Sell swaps amount of caller's reward tokens for base. The caller must have
// approved the pair. The quote accounts for the transfer tax on the way in.
func (e *Engine) Sell(ctx context.Context, caller types.Address, amount *uint256.Int, slippage types.SlippageConfig) (*uint256.Int, error) {
	var out *uint256.Int
	err := e.run(ctx, "sell", func() error {
		split, err := e.token.QuoteTransfer(caller, e.pair.Address(), amount)
		if err != nil {
			return err
		}
		quote, err := e.pair.QuoteTokensForBase(split.Received)
		if err != nil {
			return err
		}
		minOut, err := types.MinAmountOut(quote, slippage)
		if err != nil {
			return err
		}
		out, err = e.pair.SwapExactTokensForBase(caller, amount, minOut)
		return err
	})
	return out, err
}

// AddLiquidity deposits up to tokenAmount tokens (through caller's allowance
// to the pair) and baseAmount base, minting shares to caller.
func (e *Engine) AddLiquidity(ctx context.Context, caller types.Address, tokenAmount, baseAmount *uint256.Int) error {
	return e.run(ctx, "add_liquidity", func() error {
		return e.pair.AddLiquidity(caller, tokenAmount, baseAmount, caller)
	})
}

// RemoveLiquidity redeems shares. The caller must have approved the pair on
// the share ledger.
func (e *Engine) RemoveLiquidity(ctx context.Context, caller types.Address, shares *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	var tokens, base *uint256.Int
	err := e.run(ctx, "remove_liquidity", func() error {
		var err error
		tokens, base, err = e.pair.RemoveLiquidity(caller, shares)
		return err
	})
	return tokens, base, err
}

// Unlock releases the locker's whole balance of asset to recipient.
func (e *Engine) Unlock(ctx context.Context, caller types.Address, asset Asset, recipient types.Address) (*uint256.Int, error) {
	var released *uint256.Int
	err := e.run(ctx, "unlock", func() error {
		l, err := e.ledger(asset)
		if err != nil {
			return err
		}
		released, err = e.locker.Unlock(caller, l, recipient)
		return err
	})
	return released, err
}
