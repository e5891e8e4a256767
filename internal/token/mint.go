// internal/token/mint.go
package token

import (
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tokenfarm/internal/chain"
	"github.com/rovshanmuradov/tokenfarm/internal/events"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// DevSplit is how a MintWithDevReward amount was divided.
type DevSplit struct {
	Primary *uint256.Int
	Dev     *uint256.Int
}

// SplitDevReward returns the dev-split of amount without minting:
// dev = floor(amount * 20 / 110), primary = amount - dev.
func SplitDevReward(amount *uint256.Int) (DevSplit, error) {
	dev, err := types.MulDiv(amount, uint256.NewInt(DevRewardNumerator), uint256.NewInt(DevRewardDenominator))
	if err != nil {
		return DevSplit{}, err
	}
	return DevSplit{Primary: new(uint256.Int).Sub(amount, dev), Dev: dev}, nil
}

// Mint creates amount new tokens for to. Operator-only.
func (l *Ledger) Mint(caller, to types.Address, amount *uint256.Int) error {
	return l.host.Call("token.mint", caller, func() error {
		if err := l.roles.RequireOperator(caller); err != nil {
			return err
		}
		if err := l.mint(to, amount); err != nil {
			return err
		}
		l.host.Emit(&events.MintEvent{
			BaseEvent: events.NewBase(events.Mint, l.host.BlockNumber()),
			Token:     l.address,
			To:        to,
			Amount:    amount.Clone(),
			DevAmount: new(uint256.Int),
		})
		return nil
	})
}

// MintWithDevReward mints amount split between to and devTo. The cap is
// checked against the combined amount, so either both parts are minted or
// neither is. Operator-only.
func (l *Ledger) MintWithDevReward(caller, to, devTo types.Address, amount *uint256.Int) (DevSplit, error) {
	var split DevSplit
	err := l.host.Call("token.mintWithDevReward", caller, func() error {
		if err := l.roles.RequireOperator(caller); err != nil {
			return err
		}
		if types.IsZero(to) || types.IsZero(devTo) {
			return fmt.Errorf("%w: mint recipient", types.ErrZeroAddress)
		}
		if err := l.checkCap(amount); err != nil {
			return err
		}
		s, err := SplitDevReward(amount)
		if err != nil {
			return err
		}
		if err := l.mint(to, s.Primary); err != nil {
			return err
		}
		if err := l.mint(devTo, s.Dev); err != nil {
			return err
		}
		l.host.Emit(&events.MintEvent{
			BaseEvent: events.NewBase(events.Mint, l.host.BlockNumber()),
			Token:     l.address,
			To:        to,
			Amount:    s.Primary.Clone(),
			DevTo:     devTo,
			DevAmount: s.Dev.Clone(),
		})
		split = s
		return nil
	})
	return split, err
}

func (l *Ledger) checkCap(amount *uint256.Int) error {
	next, err := types.Add(&l.totalSupply, amount)
	if err != nil || next.Gt(&l.cap) {
		return fmt.Errorf("%w: supply %s + %s > cap %s", types.ErrSupplyCapExceeded,
			types.FormatAmount(&l.totalSupply), types.FormatAmount(amount), types.FormatAmount(&l.cap))
	}
	return nil
}

// mint credits to and grows supply. Zero amounts are a no-op.
func (l *Ledger) mint(to types.Address, amount *uint256.Int) error {
	if types.IsZero(to) {
		return fmt.Errorf("%w: mint to the zero address", types.ErrZeroAddress)
	}
	if err := l.checkCap(amount); err != nil {
		return err
	}
	if amount.IsZero() {
		return nil
	}
	supply := new(uint256.Int).Add(&l.totalSupply, amount)
	chain.Set(l.host, &l.totalSupply, *supply)

	bal := l.balances[to]
	l.setBalance(to, new(uint256.Int).Add(&bal, amount))
	l.emitTransfer(types.ZeroAddress, to, amount)

	l.logger.Debug("Minted",
		zap.Stringer("to", to),
		zap.String("amount", types.FormatAmount(amount)),
		zap.String("total_supply", types.FormatAmount(supply)))
	return nil
}

// Burn destroys amount of caller's own balance and lowers total supply.
func (l *Ledger) Burn(caller types.Address, amount *uint256.Int) error {
	return l.host.Call("token.burn", caller, func() error {
		bal := l.balances[caller]
		if bal.Lt(amount) {
			return fmt.Errorf("%w: %s holds %s, burning %s", types.ErrInsufficientBalance,
				caller, types.FormatAmount(&bal), types.FormatAmount(amount))
		}
		if amount.IsZero() {
			return nil
		}
		l.setBalance(caller, new(uint256.Int).Sub(&bal, amount))
		supply := new(uint256.Int).Sub(&l.totalSupply, amount)
		chain.Set(l.host, &l.totalSupply, *supply)
		l.emitTransfer(caller, types.ZeroAddress, amount)
		return nil
	})
}
