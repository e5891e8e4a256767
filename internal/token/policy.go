// internal/token/policy.go
package token

import (
	"fmt"
	"strconv"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tokenfarm/internal/chain"
	"github.com/rovshanmuradov/tokenfarm/internal/events"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// UpdateTransferTaxRate sets the tax in bps (at most 1000). Operator-only.
func (l *Ledger) UpdateTransferTaxRate(caller types.Address, rate uint64) error {
	return l.operatorCall("token.updateTransferTaxRate", caller, func() error {
		if rate > MaxTransferTaxRate {
			return fmt.Errorf("%w: transfer tax rate %d exceeds %d bps", types.ErrInvalidParameter, rate, MaxTransferTaxRate)
		}
		l.policyChanged(caller, "transfer_tax_rate", l.policy.TransferTaxRate, rate)
		chain.Set(l.host, &l.policy.TransferTaxRate, rate)
		return nil
	})
}

// UpdateBurnRate sets the burned share of the tax in percent (at most 100). Operator-only.
func (l *Ledger) UpdateBurnRate(caller types.Address, rate uint64) error {
	return l.operatorCall("token.updateBurnRate", caller, func() error {
		if rate > MaxBurnRate {
			return fmt.Errorf("%w: burn rate %d exceeds %d%%", types.ErrInvalidParameter, rate, MaxBurnRate)
		}
		l.policyChanged(caller, "burn_rate", l.policy.BurnRate, rate)
		chain.Set(l.host, &l.policy.BurnRate, rate)
		return nil
	})
}

// UpdateMaxTransferAmountRate sets the anti-whale rate in bps (50..10000). Operator-only.
func (l *Ledger) UpdateMaxTransferAmountRate(caller types.Address, rate uint64) error {
	return l.operatorCall("token.updateMaxTransferAmountRate", caller, func() error {
		if rate < MinMaxTransferAmountRate || rate > MaxMaxTransferAmountRate {
			return fmt.Errorf("%w: max transfer amount rate %d outside [%d, %d] bps", types.ErrInvalidParameter,
				rate, MinMaxTransferAmountRate, MaxMaxTransferAmountRate)
		}
		l.policyChanged(caller, "max_transfer_amount_rate", l.policy.MaxTransferAmountRate, rate)
		chain.Set(l.host, &l.policy.MaxTransferAmountRate, rate)
		return nil
	})
}

// UpdateSwapAndLiquifyEnabled toggles auto-liquify. Operator-only.
func (l *Ledger) UpdateSwapAndLiquifyEnabled(caller types.Address, enabled bool) error {
	return l.operatorCall("token.updateSwapAndLiquifyEnabled", caller, func() error {
		l.emitPolicy(caller, "swap_and_liquify_enabled",
			strconv.FormatBool(l.policy.SwapAndLiquifyEnabled), strconv.FormatBool(enabled))
		chain.Set(l.host, &l.policy.SwapAndLiquifyEnabled, enabled)
		return nil
	})
}

// UpdateMinAmountToLiquify sets the auto-liquify threshold. Operator-only.
func (l *Ledger) UpdateMinAmountToLiquify(caller types.Address, amount *uint256.Int) error {
	return l.operatorCall("token.updateMinAmountToLiquify", caller, func() error {
		l.emitPolicy(caller, "min_amount_to_liquify",
			types.FormatAmount(l.policy.MinAmountToLiquify), types.FormatAmount(amount))
		chain.Set(l.host, &l.policy.MinAmountToLiquify, amount.Clone())
		return nil
	})
}

// SetExcludedFromAntiWhale adds or removes addr from the explicit exclusion set. Operator-only.
func (l *Ledger) SetExcludedFromAntiWhale(caller, addr types.Address, excluded bool) error {
	return l.operatorCall("token.setExcludedFromAntiWhale", caller, func() error {
		was := l.excluded.Contains(addr)
		if was == excluded {
			return nil
		}
		if excluded {
			l.excluded.Add(addr)
			l.host.Record(func() { l.excluded.Remove(addr) })
		} else {
			l.excluded.Remove(addr)
			l.host.Record(func() { l.excluded.Add(addr) })
		}
		l.emitPolicy(caller, "excluded_from_anti_whale:"+addr.String(),
			strconv.FormatBool(was), strconv.FormatBool(excluded))
		return nil
	})
}

// UpdateRouter sets the liquify router. Operator-only.
func (l *Ledger) UpdateRouter(caller types.Address, router Router) error {
	return l.operatorCall("token.updateRouter", caller, func() error {
		if router == nil || types.IsZero(router.Address()) {
			return fmt.Errorf("%w: router", types.ErrZeroAddress)
		}
		prev := "none"
		if l.router != nil {
			prev = l.router.Address().String()
		}
		l.emitPolicy(caller, "router", prev, router.Address().String())
		chain.Set(l.host, &l.router, router)
		return nil
	})
}

// TransferOperator hands the operator role to next. Operator-only.
func (l *Ledger) TransferOperator(caller, next types.Address) error {
	return l.host.Call("token.transferOperator", caller, func() error {
		if err := l.roles.TransferOperator(caller, next); err != nil {
			return err
		}
		l.logger.Info("Operator transferred", zap.Stringer("from", caller), zap.Stringer("to", next))
		return nil
	})
}

// TransferOwnership hands the owner role to next. Owner-only.
func (l *Ledger) TransferOwnership(caller, next types.Address) error {
	return l.host.Call("token.transferOwnership", caller, func() error {
		if err := l.roles.TransferOwnership(caller, next); err != nil {
			return err
		}
		l.logger.Info("Ownership transferred", zap.Stringer("from", caller), zap.Stringer("to", next))
		return nil
	})
}

func (l *Ledger) operatorCall(op string, caller types.Address, fn func() error) error {
	return l.host.Call(op, caller, func() error {
		if err := l.roles.RequireOperator(caller); err != nil {
			return err
		}
		return fn()
	})
}

func (l *Ledger) policyChanged(caller types.Address, field string, prev, next uint64) {
	l.emitPolicy(caller, field, strconv.FormatUint(prev, 10), strconv.FormatUint(next, 10))
}

func (l *Ledger) emitPolicy(caller types.Address, field, prev, next string) {
	l.logger.Info("Policy updated",
		zap.String("field", field),
		zap.String("previous", prev),
		zap.String("current", next))
	l.host.Emit(&events.PolicyUpdatedEvent{
		BaseEvent: events.NewBase(events.PolicyUpdated, l.host.BlockNumber()),
		Token:     l.address,
		Operator:  caller,
		Field:     field,
		Previous:  prev,
		Current:   next,
	})
}
