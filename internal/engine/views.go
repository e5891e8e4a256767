// internal/engine/views.go
package engine

import (
	"github.com/holiman/uint256"

	"github.com/rovshanmuradov/tokenfarm/internal/token"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// Status is a point-in-time summary of the deployment.
type Status struct {
	Block  uint64
	Token  TokenStatus
	Farm   FarmStatus
	Pair   PairStatus
	Locker LockerStatus
}

type TokenStatus struct {
	Address           types.Address
	Symbol            string
	Decimals          uint8
	Operator          types.Address
	Cap               *uint256.Int
	TotalSupply       *uint256.Int
	CirculatingSupply *uint256.Int
	MintableSupply    *uint256.Int
	Burned            *uint256.Int
	Retained          *uint256.Int // tax held for liquify
	MaxTransferAmount *uint256.Int
	Policy            token.Policy
}

type FarmStatus struct {
	Address                types.Address
	Owner                  types.Address
	Operator               types.Address
	RewardPerBlock         *uint256.Int
	StartBlock             uint64
	TotalWeight            uint64
	RewardReserve          *uint256.Int
	ReferralCommissionRate uint64
	ReferralsEnabled       bool
	DevAddress             types.Address
	FeeAddress             types.Address
	Pools                  []PoolStatus
}

type PoolStatus struct {
	ID                int
	Asset             Asset
	StakedToken       types.Address
	Weight            uint64
	DepositFeeRate    uint64
	StakedSupply      *uint256.Int
	LastRewardBlock   uint64
	AccRewardPerShare types.Accumulator
}

type PairStatus struct {
	Address      types.Address
	FeeBps       uint64
	ReserveToken *uint256.Int
	ReserveBase  *uint256.Int
	LPSupply     *uint256.Int
}

type LockerStatus struct {
	Address types.Address
	Token   *uint256.Int
	LP      *uint256.Int
}

// Status captures the current state.
func (e *Engine) Status() Status {
	var s Status
	e.view(func() {
		s.Block = e.host.BlockNumber()
		s.Token = TokenStatus{
			Address:           e.token.Address(),
			Symbol:            e.token.Symbol(),
			Decimals:          e.token.Decimals(),
			Operator:          e.token.Operator(),
			Cap:               e.token.Cap(),
			TotalSupply:       e.token.TotalSupply(),
			CirculatingSupply: e.token.CirculatingSupply(),
			MintableSupply:    e.token.MintableSupply(),
			Burned:            e.token.BalanceOf(types.BurnAddress),
			Retained:          e.token.BalanceOf(e.token.Address()),
			MaxTransferAmount: e.token.MaxTransferAmount(),
			Policy:            e.token.Policy(),
		}
		s.Farm = FarmStatus{
			Address:                e.farm.Address(),
			Owner:                  e.farm.Owner(),
			Operator:               e.farm.Operator(),
			RewardPerBlock:         e.farm.RewardPerBlock(),
			StartBlock:             e.farm.StartBlock(),
			TotalWeight:            e.farm.TotalWeight(),
			RewardReserve:          e.farm.RewardReserve(),
			ReferralCommissionRate: e.farm.ReferralCommissionRate(),
			ReferralsEnabled:       e.farm.Referrals() != nil,
			DevAddress:             e.farm.DevAddress(),
			FeeAddress:             e.farm.FeeAddress(),
		}
		for pid := 0; pid < e.farm.PoolLength(); pid++ {
			info, err := e.farm.PoolInfo(pid)
			if err != nil {
				continue
			}
			asset := AssetToken
			if info.StakedToken == e.pair.LP().Address() {
				asset = AssetLP
			}
			s.Farm.Pools = append(s.Farm.Pools, PoolStatus{
				ID:                pid,
				Asset:             asset,
				StakedToken:       info.StakedToken,
				Weight:            info.Weight,
				DepositFeeRate:    info.DepositFeeRate,
				StakedSupply:      info.StakedSupply,
				LastRewardBlock:   info.LastRewardBlock,
				AccRewardPerShare: info.AccRewardPerShare,
			})
		}
		reserveToken, reserveBase := e.pair.Reserves()
		s.Pair = PairStatus{
			Address:      e.pair.Address(),
			FeeBps:       e.pair.FeeBps(),
			ReserveToken: reserveToken,
			ReserveBase:  reserveBase,
			LPSupply:     e.pair.LP().TotalSupply(),
		}
		s.Locker = LockerStatus{
			Address: e.locker.Address(),
			Token:   e.locker.Locked(e.token),
			LP:      e.locker.Locked(e.pair.LP()),
		}
	})
	return s
}

// Account is everything one address holds.
type Account struct {
	Address   types.Address
	Token     *uint256.Int
	LP        *uint256.Int
	Base      *uint256.Int
	Positions []Position
	Referral  ReferralInfo
}

// Position is a stake in one pool.
type Position struct {
	PoolID  int
	Staked  *uint256.Int
	Pending *uint256.Int
}

// ReferralInfo is addr's side of the referral registry.
type ReferralInfo struct {
	Referrer    types.Address
	Referred    uint64
	Commissions *uint256.Int
}

// Account captures addr's balances, stakes and referral record.
func (e *Engine) Account(addr types.Address) (Account, error) {
	var (
		a   Account
		err error
	)
	e.view(func() {
		a = Account{
			Address: addr,
			Token:   e.token.BalanceOf(addr),
			LP:      e.pair.LP().BalanceOf(addr),
			Base:    e.pair.BaseBalanceOf(addr),
			Referral: ReferralInfo{
				Referrer:    e.referrals.GetReferrer(addr),
				Referred:    e.referrals.ReferralsCount(addr),
				Commissions: e.referrals.TotalReferralCommissions(addr),
			},
		}
		for pid := 0; pid < e.farm.PoolLength(); pid++ {
			info, uerr := e.farm.UserInfo(pid, addr)
			if uerr != nil {
				err = uerr
				return
			}
			pending, perr := e.farm.PendingReward(pid, addr)
			if perr != nil {
				err = perr
				return
			}
			if info.Amount.IsZero() && pending.IsZero() {
				continue
			}
			a.Positions = append(a.Positions, Position{PoolID: pid, Staked: info.Amount, Pending: pending})
		}
	})
	return a, err
}

// PendingReward returns user's unsettled reward in pool pid.
func (e *Engine) PendingReward(pid int, user types.Address) (*uint256.Int, error) {
	var (
		out *uint256.Int
		err error
	)
	e.view(func() { out, err = e.farm.PendingReward(pid, user) })
	return out, err
}

// Allowance returns spender's allowance over owner's asset.
func (e *Engine) Allowance(asset Asset, owner, spender types.Address) (*uint256.Int, error) {
	var (
		out *uint256.Int
		err error
	)
	e.view(func() {
		var l *token.Ledger
		if l, err = e.ledger(asset); err == nil {
			out = l.Allowance(owner, spender)
		}
	})
	return out, err
}

// QuoteTransfer returns how a reward token transfer would be split.
func (e *Engine) QuoteTransfer(from, to types.Address, amount *uint256.Int) (token.TaxBreakdown, error) {
	var (
		out token.TaxBreakdown
		err error
	)
	e.view(func() { out, err = e.token.QuoteTransfer(from, to, amount) })
	return out, err
}
