// internal/token/liquify.go
package token

import (
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tokenfarm/internal/chain"
	"github.com/rovshanmuradov/tokenfarm/internal/events"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// Router is the external market the ledger liquifies accrued tax through.
// Both methods pull tokens from `from` with TransferFrom against an allowance
// the ledger grants right before calling them.
type Router interface {
	// Address is the account that holds the market's reserves.
	Address() types.Address
	// SwapTokensForBase sells amount tokens and credits the base asset to from.
	SwapTokensForBase(from types.Address, amount *uint256.Int) (*uint256.Int, error)
	// AddLiquidity deposits tokens and base asset from `from` and mints LP shares to lpTo.
	AddLiquidity(from types.Address, tokenAmount, baseAmount *uint256.Int, lpTo types.Address) error
}

// maybeSwapAndLiquify runs the liquify step at most once per transfer, after
// the transfer's own effects are in place.
func (l *Ledger) maybeSwapAndLiquify(from types.Address) error {
	if !l.policy.SwapAndLiquifyEnabled || l.inSwapAndLiquify || l.router == nil {
		return nil
	}
	if from == l.router.Address() || from == l.roles.Owner() {
		return nil
	}
	threshold := l.policy.MinAmountToLiquify
	if threshold.IsZero() {
		return nil
	}
	available := types.Min(l.BalanceOf(l.address), l.MaxTransferAmount())
	if available.Lt(threshold) {
		return nil
	}
	return l.swapAndLiquify(threshold.Clone())
}

// swapAndLiquify sells half of amount for the base asset and adds the other
// half plus the proceeds as liquidity. LP shares go to the owner. The
// router's results are checked against the ledger's own balance afterwards.
func (l *Ledger) swapAndLiquify(amount *uint256.Int) error {
	chain.Set(l.host, &l.inSwapAndLiquify, true)

	half := new(uint256.Int).Div(amount, uint256.NewInt(2))
	otherHalf := new(uint256.Int).Sub(amount, half)
	before := l.BalanceOf(l.address)

	router := l.router
	if err := l.approve(l.address, router.Address(), amount); err != nil {
		return err
	}
	baseReceived, err := router.SwapTokensForBase(l.address, half)
	if err != nil {
		return fmt.Errorf("liquify swap: %w", err)
	}
	if err := router.AddLiquidity(l.address, otherHalf, baseReceived, l.roles.Owner()); err != nil {
		return fmt.Errorf("liquify add liquidity: %w", err)
	}
	// revoke whatever the router did not pull
	if err := l.approve(l.address, router.Address(), new(uint256.Int)); err != nil {
		return err
	}

	after := l.BalanceOf(l.address)
	if after.Gt(before) {
		return fmt.Errorf("%w: router credited the ledger account during liquify", types.ErrInvalidParameter)
	}
	spent := new(uint256.Int).Sub(before, after)
	intoPool := new(uint256.Int)
	if spent.Gt(half) {
		intoPool.Sub(spent, half)
	}

	chain.Set(l.host, &l.inSwapAndLiquify, false)

	l.logger.Info("Swap and liquify",
		zap.String("swapped", types.FormatAmount(half)),
		zap.String("base_received", types.FormatAmount(baseReceived)),
		zap.String("tokens_spent", types.FormatAmount(spent)))
	l.host.Emit(&events.SwapAndLiquifyEvent{
		BaseEvent:      events.NewBase(events.SwapAndLiquify, l.host.BlockNumber()),
		Token:          l.address,
		TokensSwapped:  half,
		BaseReceived:   baseReceived.Clone(),
		TokensIntoPool: intoPool,
	})
	return nil
}
