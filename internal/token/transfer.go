// internal/token/transfer.go
package token

import (
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tokenfarm/internal/events"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// Transfer moves amount from caller to to through the transfer policy.
func (l *Ledger) Transfer(caller, to types.Address, amount *uint256.Int) error {
	return l.host.Call("token.transfer", caller, func() error {
		return l.transfer(caller, to, amount)
	})
}

// TransferFrom moves amount from from to to on behalf of caller, spending
// caller's allowance.
func (l *Ledger) TransferFrom(caller, from, to types.Address, amount *uint256.Int) error {
	return l.host.Call("token.transferFrom", caller, func() error {
		allowed := l.allowances[allowanceKey{from, caller}]
		if allowed.Lt(amount) {
			return fmt.Errorf("%w: allowance %s < %s", types.ErrInsufficientAllowance,
				types.FormatAmount(&allowed), types.FormatAmount(amount))
		}
		l.setAllowance(from, caller, new(uint256.Int).Sub(&allowed, amount))
		return l.transfer(from, to, amount)
	})
}

// Approve sets the amount spender may move on behalf of caller.
func (l *Ledger) Approve(caller, spender types.Address, amount *uint256.Int) error {
	return l.host.Call("token.approve", caller, func() error {
		return l.approve(caller, spender, amount)
	})
}

func (l *Ledger) approve(owner, spender types.Address, amount *uint256.Int) error {
	if types.IsZero(owner) || types.IsZero(spender) {
		return fmt.Errorf("%w: approve", types.ErrZeroAddress)
	}
	l.setAllowance(owner, spender, amount)
	l.host.Emit(&events.ApprovalEvent{
		BaseEvent: events.NewBase(events.Approval, l.host.BlockNumber()),
		Token:     l.address,
		Owner:     owner,
		Spender:   spender,
		Amount:    amount.Clone(),
	})
	return nil
}

// TaxBreakdown is how a transfer amount is divided.
type TaxBreakdown struct {
	Received *uint256.Int // credited to the recipient
	Burned   *uint256.Int // credited to the burn address
	Retained *uint256.Int // credited to the ledger account for liquify
}

// QuoteTransfer returns the split Transfer(from, to, amount) would apply,
// without checking balances or the anti-whale cap.
func (l *Ledger) QuoteTransfer(from, to types.Address, amount *uint256.Int) (TaxBreakdown, error) {
	out := TaxBreakdown{Received: amount.Clone(), Burned: new(uint256.Int), Retained: new(uint256.Int)}
	if !l.isTaxable(from, to) {
		return out, nil
	}
	tax, err := types.ApplyBps(amount, l.policy.TransferTaxRate)
	if err != nil {
		return out, err
	}
	if tax.IsZero() {
		return out, nil
	}
	burn, err := types.ApplyPercent(tax, l.policy.BurnRate)
	if err != nil {
		return out, err
	}
	out.Burned = burn
	out.Retained = new(uint256.Int).Sub(tax, burn)
	out.Received = new(uint256.Int).Sub(amount, tax)
	return out, nil
}

func (l *Ledger) isTaxable(from, to types.Address) bool {
	if l.inSwapAndLiquify || l.policy.TransferTaxRate == 0 {
		return false
	}
	if to == types.BurnAddress || from == l.address || to == l.address {
		return false
	}
	op := l.roles.Operator()
	return from != op && to != op
}

func (l *Ledger) transfer(from, to types.Address, amount *uint256.Int) error {
	if types.IsZero(from) || types.IsZero(to) {
		return fmt.Errorf("%w: transfer", types.ErrZeroAddress)
	}
	bal := l.balances[from]
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s, needs %s", types.ErrInsufficientBalance,
			from, types.FormatAmount(&bal), types.FormatAmount(amount))
	}
	if !l.IsExcludedFromAntiWhale(from) && !l.IsExcludedFromAntiWhale(to) {
		if limit := l.MaxTransferAmount(); amount.Gt(limit) {
			return fmt.Errorf("%w: %s > maxTransferAmount %s", types.ErrAntiWhaleLimitExceeded,
				types.FormatAmount(amount), types.FormatAmount(limit))
		}
	}

	split, err := l.QuoteTransfer(from, to, amount)
	if err != nil {
		return err
	}

	l.move(from, types.BurnAddress, split.Burned)
	l.move(from, l.address, split.Retained)
	l.move(from, to, split.Received)

	if !split.Burned.IsZero() || !split.Retained.IsZero() {
		l.logger.Debug("Transfer taxed",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
			zap.String("amount", types.FormatAmount(amount)),
			zap.String("burned", types.FormatAmount(split.Burned)),
			zap.String("retained", types.FormatAmount(split.Retained)))
	}

	return l.maybeSwapAndLiquify(from)
}

// move debits from and credits to. The caller has checked the balance.
func (l *Ledger) move(from, to types.Address, amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	fb := l.balances[from]
	l.setBalance(from, new(uint256.Int).Sub(&fb, amount))
	tb := l.balances[to]
	l.setBalance(to, new(uint256.Int).Add(&tb, amount))
	l.emitTransfer(from, to, amount)
}
