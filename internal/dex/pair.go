// internal/dex/pair.go
package dex

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tokenfarm/internal/access"
	"github.com/rovshanmuradov/tokenfarm/internal/chain"
	"github.com/rovshanmuradov/tokenfarm/internal/events"
	"github.com/rovshanmuradov/tokenfarm/internal/token"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// ErrSlippageExceeded is returned when a swap would pay out less than the
// caller's minimum.
var ErrSlippageExceeded = errors.New("slippage exceeded")

// Pair is a constant-product market between a token ledger and the native
// base asset. Base balances live in the pair itself; the owner funds
// accounts with base through Fund. Liquidity shares are a token.Ledger the
// pair operates.
//
// Pair satisfies token.Router so the ledger can liquify accrued tax through it.
type Pair struct {
	host    *chain.Host
	logger  *zap.Logger
	roles   *access.Roles
	address types.Address
	feeBps  uint64

	token *token.Ledger
	lp    *token.Ledger

	reserveToken uint256.Int
	reserveBase  uint256.Int
	baseSupply   uint256.Int
	base         map[types.Address]uint256.Int
	locked       bool
}

var _ token.Router = (*Pair)(nil)

// LPConfig returns the share ledger configuration for a pair over tok:
// untaxed, no anti-whale cap, no genesis burn.
func LPConfig(tok *token.Ledger) token.Config {
	return token.Config{
		Name:        tok.Name() + " LP",
		Symbol:      tok.Symbol() + "-LP",
		Decimals:    tok.Decimals(),
		Cap:         new(uint256.Int).Lsh(uint256.NewInt(1), 128),
		GenesisBurn: new(uint256.Int),
		Policy: token.Policy{
			MaxTransferAmountRate: token.MaxMaxTransferAmountRate,
			MinAmountToLiquify:    new(uint256.Int),
		},
	}
}

// New creates an empty pair at address for tok.
func New(host *chain.Host, logger *zap.Logger, address, owner types.Address, tok *token.Ledger, feeBps uint64) (*Pair, error) {
	if feeBps > MaxFeeBps {
		return nil, fmt.Errorf("%w: fee %d bps exceeds %d", types.ErrInvalidParameter, feeBps, MaxFeeBps)
	}
	lpAddr, err := types.DeriveAddress(address, types.SeedLPToken)
	if err != nil {
		return nil, err
	}
	lp, err := token.New(host, logger, lpAddr, address, LPConfig(tok))
	if err != nil {
		return nil, fmt.Errorf("lp ledger: %w", err)
	}
	p := &Pair{
		host:    host,
		logger:  logger.Named("dex").With(zap.String("pair", tok.Symbol())),
		roles:   access.NewRoles(host, address, owner),
		address: address,
		feeBps:  feeBps,
		token:   tok,
		lp:      lp,
		base:    make(map[types.Address]uint256.Int),
	}
	p.logger.Info("Pair created",
		zap.Stringer("address", address),
		zap.Stringer("lp", lpAddr),
		zap.Uint64("fee_bps", feeBps))
	return p, nil
}

// Address returns the pair account. It holds the token reserve.
func (p *Pair) Address() types.Address { return p.address }

// Token returns the traded ledger.
func (p *Pair) Token() *token.Ledger { return p.token }

// LP returns the share ledger.
func (p *Pair) LP() *token.Ledger { return p.lp }

// FeeBps returns the swap fee.
func (p *Pair) FeeBps() uint64 { return p.feeBps }

// Owner returns the pair owner.
func (p *Pair) Owner() types.Address { return p.roles.Owner() }

// Reserves returns copies of the token and base reserves.
func (p *Pair) Reserves() (*uint256.Int, *uint256.Int) {
	return p.reserveToken.Clone(), p.reserveBase.Clone()
}

// BaseBalanceOf returns the base asset held by addr.
func (p *Pair) BaseBalanceOf(addr types.Address) *uint256.Int {
	b := p.base[addr]
	return b.Clone()
}

// BaseSupply returns all base ever funded: balances plus reserve.
func (p *Pair) BaseSupply() *uint256.Int { return p.baseSupply.Clone() }

// QuoteTokensForBase returns the base paid for selling amount tokens,
// before any transfer tax on the way in.
func (p *Pair) QuoteTokensForBase(amount *uint256.Int) (*uint256.Int, error) {
	return GetAmountOut(amount, &p.reserveToken, &p.reserveBase, p.feeBps)
}

// QuoteBaseForTokens returns the tokens paid for amount base.
func (p *Pair) QuoteBaseForTokens(amount *uint256.Int) (*uint256.Int, error) {
	return GetAmountOut(amount, &p.reserveBase, &p.reserveToken, p.feeBps)
}

// Fund credits amount of newly issued base asset to to. Owner-only.
func (p *Pair) Fund(caller, to types.Address, amount *uint256.Int) error {
	return p.host.Call("dex.fund", caller, func() error {
		if err := p.roles.RequireOwner(caller); err != nil {
			return err
		}
		if types.IsZero(to) {
			return fmt.Errorf("%w: fund recipient", types.ErrZeroAddress)
		}
		supply, err := types.Add(&p.baseSupply, amount)
		if err != nil {
			return err
		}
		chain.Set(p.host, &p.baseSupply, *supply)
		return p.creditBase(to, amount)
	})
}

// TransferBase moves base asset between accounts.
func (p *Pair) TransferBase(caller, to types.Address, amount *uint256.Int) error {
	return p.host.Call("dex.transferBase", caller, func() error {
		if types.IsZero(to) {
			return fmt.Errorf("%w: base recipient", types.ErrZeroAddress)
		}
		if err := p.debitBase(caller, amount); err != nil {
			return err
		}
		return p.creditBase(to, amount)
	})
}

// SwapTokensForBase sells amount tokens from caller without an output floor.
// It is the liquify entry point of token.Router.
func (p *Pair) SwapTokensForBase(caller types.Address, amount *uint256.Int) (*uint256.Int, error) {
	return p.SwapExactTokensForBase(caller, amount, new(uint256.Int))
}

// SwapExactTokensForBase sells amount tokens from caller, who must have
// approved the pair. Output below minOut aborts the swap.
func (p *Pair) SwapExactTokensForBase(caller types.Address, amount, minOut *uint256.Int) (*uint256.Int, error) {
	var out *uint256.Int
	err := p.host.Call("dex.swapExactTokensForBase", caller, func() error {
		if amount.IsZero() {
			return fmt.Errorf("%w: zero swap amount", types.ErrInvalidParameter)
		}
		// Pull first: the transfer may run the token's liquify step, which
		// trades against this pair before our own reserves are touched.
		received, err := p.pullToken(caller, amount)
		if err != nil {
			return err
		}
		if err := p.lock(); err != nil {
			return err
		}
		out, err = GetAmountOut(received, &p.reserveToken, &p.reserveBase, p.feeBps)
		if err != nil {
			return err
		}
		if out.IsZero() || out.Lt(minOut) {
			return fmt.Errorf("%w: out %s < min %s", ErrSlippageExceeded,
				types.FormatAmount(out), types.FormatAmount(minOut))
		}
		p.setReserves(new(uint256.Int).Add(&p.reserveToken, received), new(uint256.Int).Sub(&p.reserveBase, out))
		if err := p.creditBase(caller, out); err != nil {
			return err
		}
		p.unlock()

		p.emitSwap(caller, true, received, out)
		return nil
	})
	return out, err
}

// SwapExactBaseForTokens buys tokens with amount base. Output below minOut
// (measured before any transfer tax on the way out) aborts the swap.
func (p *Pair) SwapExactBaseForTokens(caller types.Address, amount, minOut *uint256.Int) (*uint256.Int, error) {
	var out *uint256.Int
	err := p.host.Call("dex.swapExactBaseForTokens", caller, func() error {
		if amount.IsZero() {
			return fmt.Errorf("%w: zero swap amount", types.ErrInvalidParameter)
		}
		if err := p.lock(); err != nil {
			return err
		}
		var err error
		out, err = GetAmountOut(amount, &p.reserveBase, &p.reserveToken, p.feeBps)
		if err != nil {
			return err
		}
		if out.IsZero() || out.Lt(minOut) {
			return fmt.Errorf("%w: out %s < min %s", ErrSlippageExceeded,
				types.FormatAmount(out), types.FormatAmount(minOut))
		}
		if err := p.debitBase(caller, amount); err != nil {
			return err
		}
		p.setReserves(new(uint256.Int).Sub(&p.reserveToken, out), new(uint256.Int).Add(&p.reserveBase, amount))
		p.unlock()

		if err := p.token.Transfer(p.address, caller, out); err != nil {
			return err
		}
		p.emitSwap(caller, false, amount, out)
		return nil
	})
	return out, err
}

// AddLiquidity deposits up to tokenAmount tokens and baseAmount base from
// caller at the current ratio and mints shares to lpTo. Tokens are pulled
// through the caller's allowance.
func (p *Pair) AddLiquidity(caller types.Address, tokenAmount, baseAmount *uint256.Int, lpTo types.Address) error {
	return p.host.Call("dex.addLiquidity", caller, func() error {
		if tokenAmount.IsZero() || baseAmount.IsZero() {
			return fmt.Errorf("%w: liquidity amounts must be positive", types.ErrInvalidParameter)
		}
		if types.IsZero(lpTo) {
			return fmt.Errorf("%w: share recipient", types.ErrZeroAddress)
		}
		tokenUse, baseUse, err := optimalAmounts(tokenAmount, baseAmount, &p.reserveToken, &p.reserveBase)
		if err != nil {
			return err
		}
		if err := p.debitBase(caller, baseUse); err != nil {
			return err
		}
		received, err := p.pullToken(caller, tokenUse)
		if err != nil {
			return err
		}
		if err := p.lock(); err != nil {
			return err
		}

		first := p.lp.TotalSupply().IsZero()
		shares, err := sharesFor(received, baseUse, &p.reserveToken, &p.reserveBase, p.lp.TotalSupply())
		if err != nil {
			return err
		}
		if shares.IsZero() {
			return fmt.Errorf("%w: deposit too small", types.ErrInsufficientLiquidity)
		}
		p.setReserves(new(uint256.Int).Add(&p.reserveToken, received), new(uint256.Int).Add(&p.reserveBase, baseUse))
		p.unlock()

		if first {
			if err := p.lp.Mint(p.address, types.BurnAddress, MinimumLiquidity); err != nil {
				return err
			}
		}
		if err := p.lp.Mint(p.address, lpTo, shares); err != nil {
			return err
		}

		p.logger.Debug("Liquidity added",
			zap.Stringer("provider", caller),
			zap.String("tokens", types.FormatAmount(received)),
			zap.String("base", types.FormatAmount(baseUse)),
			zap.String("shares", types.FormatAmount(shares)))
		p.host.Emit(&events.LiquidityEvent{
			BaseEvent:   events.NewBase(events.LiquidityAdded, p.host.BlockNumber()),
			Pair:        p.address,
			Provider:    caller,
			TokenAmount: received,
			BaseAmount:  baseUse,
			Shares:      shares,
		})
		return nil
	})
}

// RemoveLiquidity redeems shares for a pro-rata part of both reserves.
// The caller must have approved the pair on the share ledger.
func (p *Pair) RemoveLiquidity(caller types.Address, shares *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	var tokenOut, baseOut *uint256.Int
	err := p.host.Call("dex.removeLiquidity", caller, func() error {
		if shares.IsZero() {
			return fmt.Errorf("%w: zero shares", types.ErrInvalidParameter)
		}
		supply := p.lp.TotalSupply()
		if err := p.lp.TransferFrom(p.address, caller, p.address, shares); err != nil {
			return err
		}
		if err := p.lock(); err != nil {
			return err
		}
		var err error
		if tokenOut, err = types.MulDiv(shares, &p.reserveToken, supply); err != nil {
			return err
		}
		if baseOut, err = types.MulDiv(shares, &p.reserveBase, supply); err != nil {
			return err
		}
		if tokenOut.IsZero() || baseOut.IsZero() {
			return fmt.Errorf("%w: redemption rounds to zero", types.ErrInsufficientLiquidity)
		}
		p.setReserves(new(uint256.Int).Sub(&p.reserveToken, tokenOut), new(uint256.Int).Sub(&p.reserveBase, baseOut))
		if err := p.creditBase(caller, baseOut); err != nil {
			return err
		}
		p.unlock()

		if err := p.lp.Burn(p.address, shares); err != nil {
			return err
		}
		if err := p.token.Transfer(p.address, caller, tokenOut); err != nil {
			return err
		}
		p.host.Emit(&events.LiquidityEvent{
			BaseEvent:   events.NewBase(events.LiquidityRemoved, p.host.BlockNumber()),
			Pair:        p.address,
			Provider:    caller,
			TokenAmount: tokenOut.Clone(),
			BaseAmount:  baseOut.Clone(),
			Shares:      shares.Clone(),
		})
		return nil
	})
	return tokenOut, baseOut, err
}

// pullToken moves amount from `from` into the pair and returns what actually
// arrived, net of transfer tax and of anything nested swaps added to the
// reserve while the transfer ran.
func (p *Pair) pullToken(from types.Address, amount *uint256.Int) (*uint256.Int, error) {
	before := p.token.BalanceOf(p.address)
	reserveBefore := p.reserveToken.Clone()
	if err := p.token.TransferFrom(p.address, from, p.address, amount); err != nil {
		return nil, err
	}
	after := p.token.BalanceOf(p.address)
	gross, err := types.Add(after, reserveBefore)
	if err != nil {
		return nil, err
	}
	received, err := types.Sub(gross, before)
	if err == nil {
		received, err = types.Sub(received, &p.reserveToken)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: token reserve out of sync", types.ErrInsufficientLiquidity)
	}
	if received.IsZero() {
		return nil, fmt.Errorf("%w: nothing received", types.ErrInvalidParameter)
	}
	return received, nil
}

func (p *Pair) lock() error {
	if p.locked {
		return fmt.Errorf("%w: pair %s", types.ErrReentrantCall, p.address)
	}
	chain.Set(p.host, &p.locked, true)
	return nil
}

func (p *Pair) unlock() {
	chain.Set(p.host, &p.locked, false)
}

func (p *Pair) setReserves(tokenReserve, baseReserve *uint256.Int) {
	chain.Set(p.host, &p.reserveToken, *tokenReserve)
	chain.Set(p.host, &p.reserveBase, *baseReserve)
}

func (p *Pair) creditBase(to types.Address, amount *uint256.Int) error {
	bal := p.base[to]
	next, err := types.Add(&bal, amount)
	if err != nil {
		return err
	}
	chain.SetKey(p.host, p.base, to, *next)
	return nil
}

func (p *Pair) debitBase(from types.Address, amount *uint256.Int) error {
	bal := p.base[from]
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s base, needs %s", types.ErrInsufficientBalance,
			from, types.FormatAmount(&bal), types.FormatAmount(amount))
	}
	next := new(uint256.Int).Sub(&bal, amount)
	if next.IsZero() {
		chain.DeleteKey(p.host, p.base, from)
		return nil
	}
	chain.SetKey(p.host, p.base, from, *next)
	return nil
}

func (p *Pair) emitSwap(trader types.Address, tokenIn bool, in, out *uint256.Int) {
	p.logger.Debug("Swap",
		zap.Stringer("trader", trader),
		zap.Bool("token_in", tokenIn),
		zap.String("in", types.FormatAmount(in)),
		zap.String("out", types.FormatAmount(out)))
	p.host.Emit(&events.SwapEvent{
		BaseEvent: events.NewBase(events.Swap, p.host.BlockNumber()),
		Pair:      p.address,
		Trader:    trader,
		TokenIn:   tokenIn,
		AmountIn:  in.Clone(),
		AmountOut: out.Clone(),
	})
}
