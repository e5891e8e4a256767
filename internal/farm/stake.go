// internal/farm/stake.go
package farm

import (
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tokenfarm/internal/chain"
	"github.com/rovshanmuradov/tokenfarm/internal/events"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// Deposit settles caller's pending reward in pool pid and stakes amount more.
// A non-zero referrer is recorded the first time the caller names one along
// with a non-zero amount.
// The stake is credited with what the registry actually received, less the
// pool's deposit fee.
func (r *Registry) Deposit(caller types.Address, pid int, amount *uint256.Int, referrer types.Address) error {
	return r.guarded("farm.deposit", caller, func() error {
		p, err := r.pool(pid)
		if err != nil {
			return err
		}
		if err := r.updatePool(pid); err != nil {
			return err
		}
		if r.referrals != nil && !amount.IsZero() && !types.IsZero(referrer) && referrer != caller {
			if err := r.referrals.RecordReferral(r.address, caller, referrer); err != nil {
				return err
			}
		}

		key := userKey{pid, caller}
		u := r.users[key]
		if !u.amount.IsZero() {
			if err := r.settle(pid, p, caller, &u); err != nil {
				return err
			}
		}

		credited := new(uint256.Int)
		if !amount.IsZero() {
			received, err := r.pull(p, caller, amount)
			if err != nil {
				return err
			}
			credited = received
			if p.depositFeeRate > 0 {
				fee, err := types.ApplyBps(received, p.depositFeeRate)
				if err != nil {
					return err
				}
				if !fee.IsZero() {
					if err := p.token.Transfer(r.address, r.feeAddress, fee); err != nil {
						return err
					}
				}
				credited = new(uint256.Int).Sub(received, fee)
			}
		}

		next, err := types.Add(&u.amount, credited)
		if err != nil {
			return err
		}
		u.amount = *next
		if err := r.storeUser(key, p, &u); err != nil {
			return err
		}
		staked, err := types.Add(&p.stakedSupply, credited)
		if err != nil {
			return err
		}
		chain.Set(r.host, &p.stakedSupply, *staked)

		r.logger.Debug("Deposit",
			zap.Stringer("user", caller),
			zap.Int("pid", pid),
			zap.String("requested", types.FormatAmount(amount)),
			zap.String("credited", types.FormatAmount(credited)))
		r.host.Emit(&events.StakeEvent{
			BaseEvent: events.NewBase(events.Deposit, r.host.BlockNumber()),
			User:      caller,
			PoolID:    pid,
			Amount:    credited.Clone(),
		})
		return nil
	})
}

// Withdraw settles caller's pending reward in pool pid and returns amount of
// stake.
func (r *Registry) Withdraw(caller types.Address, pid int, amount *uint256.Int) error {
	return r.guarded("farm.withdraw", caller, func() error {
		p, err := r.pool(pid)
		if err != nil {
			return err
		}
		key := userKey{pid, caller}
		u := r.users[key]
		if amount.Gt(&u.amount) {
			return fmt.Errorf("%w: withdraw %s, staked %s", types.ErrInsufficientStake,
				types.FormatAmount(amount), types.FormatAmount(&u.amount))
		}
		if err := r.updatePool(pid); err != nil {
			return err
		}
		if err := r.settle(pid, p, caller, &u); err != nil {
			return err
		}

		u.amount.Sub(&u.amount, amount)
		if err := r.storeUser(key, p, &u); err != nil {
			return err
		}
		chain.Set(r.host, &p.stakedSupply, *new(uint256.Int).Sub(&p.stakedSupply, amount))
		if !amount.IsZero() {
			if err := p.token.Transfer(r.address, caller, amount); err != nil {
				return err
			}
		}

		r.logger.Debug("Withdraw",
			zap.Stringer("user", caller),
			zap.Int("pid", pid),
			zap.String("amount", types.FormatAmount(amount)))
		r.host.Emit(&events.StakeEvent{
			BaseEvent: events.NewBase(events.Withdraw, r.host.BlockNumber()),
			User:      caller,
			PoolID:    pid,
			Amount:    amount.Clone(),
		})
		return nil
	})
}

// EmergencyWithdraw returns caller's whole stake in pool pid and forfeits any
// pending reward.
func (r *Registry) EmergencyWithdraw(caller types.Address, pid int) error {
	return r.guarded("farm.emergencyWithdraw", caller, func() error {
		p, err := r.pool(pid)
		if err != nil {
			return err
		}
		key := userKey{pid, caller}
		u := r.users[key]
		amount := u.amount.Clone()

		chain.SetKey(r.host, r.users, key, userInfo{})
		chain.Set(r.host, &p.stakedSupply, *new(uint256.Int).Sub(&p.stakedSupply, amount))
		if !amount.IsZero() {
			if err := p.token.Transfer(r.address, caller, amount); err != nil {
				return err
			}
		}

		r.logger.Warn("Emergency withdraw",
			zap.Stringer("user", caller),
			zap.Int("pid", pid),
			zap.String("amount", types.FormatAmount(amount)))
		r.host.Emit(&events.StakeEvent{
			BaseEvent: events.NewBase(events.EmergencyWithdraw, r.host.BlockNumber()),
			User:      caller,
			PoolID:    pid,
			Amount:    amount,
		})
		return nil
	})
}

// pull moves amount of p's token from user to the registry and returns what
// arrived, which is less than amount when the token taxes the transfer.
func (r *Registry) pull(p *pool, user types.Address, amount *uint256.Int) (*uint256.Int, error) {
	before := p.token.BalanceOf(r.address)
	if err := p.token.TransferFrom(r.address, user, r.address, amount); err != nil {
		return nil, err
	}
	after := p.token.BalanceOf(r.address)
	if after.Lt(before) {
		return new(uint256.Int), nil
	}
	return new(uint256.Int).Sub(after, before), nil
}

// settle pays u's pending reward from the reserve. The payout is capped at
// the reserve, and the referrer of user takes its commission out of it.
func (r *Registry) settle(pid int, p *pool, user types.Address, u *userInfo) error {
	pending, err := r.pending(p.accRewardPerShare, u)
	if err != nil {
		return err
	}
	if pending.IsZero() {
		return nil
	}
	payout := types.Min(pending, &r.rewardReserve)
	if payout.IsZero() {
		return nil
	}

	var referrer types.Address
	commission := new(uint256.Int)
	if r.referrals != nil && r.referralCommissionRate > 0 {
		referrer = r.referrals.GetReferrer(user)
		if !types.IsZero(referrer) {
			if commission, err = types.ApplyBps(payout, r.referralCommissionRate); err != nil {
				return err
			}
		}
	}
	net := new(uint256.Int).Sub(payout, commission)

	chain.Set(r.host, &r.rewardReserve, *new(uint256.Int).Sub(&r.rewardReserve, payout))
	if !net.IsZero() {
		if err := r.reward.Transfer(r.address, user, net); err != nil {
			return err
		}
	}
	if !commission.IsZero() {
		if err := r.reward.Transfer(r.address, referrer, commission); err != nil {
			return err
		}
		if err := r.referrals.RecordReferralCommission(r.address, referrer, commission); err != nil {
			return err
		}
	}

	r.host.Emit(&events.RewardPaidEvent{
		BaseEvent:  events.NewBase(events.RewardPaid, r.host.BlockNumber()),
		User:       user,
		PoolID:     pid,
		Amount:     net,
		Referrer:   referrer,
		Commission: commission,
	})
	return nil
}

func (r *Registry) storeUser(key userKey, p *pool, u *userInfo) error {
	debt, err := p.accRewardPerShare.Share(&u.amount)
	if err != nil {
		return err
	}
	u.rewardDebt = *debt
	chain.SetKey(r.host, r.users, key, *u)
	return nil
}
