// internal/locker/locker.go
package locker

import (
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tokenfarm/internal/access"
	"github.com/rovshanmuradov/tokenfarm/internal/chain"
	"github.com/rovshanmuradov/tokenfarm/internal/events"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// Token is any balance the locker can hold.
type Token interface {
	Address() types.Address
	BalanceOf(addr types.Address) *uint256.Int
	Transfer(caller, to types.Address, amount *uint256.Int) error
}

// Locker is an owner-gated escrow account. Anything sent to its address
// stays there until the owner unlocks it.
type Locker struct {
	host    *chain.Host
	logger  *zap.Logger
	roles   *access.Roles
	address types.Address
}

// New creates a locker at address.
func New(host *chain.Host, logger *zap.Logger, address, owner types.Address) *Locker {
	return &Locker{
		host:    host,
		logger:  logger.Named("locker"),
		roles:   access.NewRoles(host, address, owner),
		address: address,
	}
}

// Address returns the escrow account.
func (l *Locker) Address() types.Address { return l.address }

// Owner returns the owner.
func (l *Locker) Owner() types.Address { return l.roles.Owner() }

// Locked returns the locker's balance of tok.
func (l *Locker) Locked(tok Token) *uint256.Int { return tok.BalanceOf(l.address) }

// Unlock sends the whole balance of tok to recipient. Owner-only.
func (l *Locker) Unlock(caller types.Address, tok Token, recipient types.Address) (*uint256.Int, error) {
	var released *uint256.Int
	err := l.host.Call("locker.unlock", caller, func() error {
		if err := l.roles.RequireOwner(caller); err != nil {
			return err
		}
		if types.IsZero(recipient) {
			return fmt.Errorf("%w: unlock recipient", types.ErrZeroAddress)
		}
		amount := tok.BalanceOf(l.address)
		if !amount.IsZero() {
			if err := tok.Transfer(l.address, recipient, amount); err != nil {
				return err
			}
		}
		l.logger.Info("Unlocked",
			zap.Stringer("token", tok.Address()),
			zap.Stringer("recipient", recipient),
			zap.String("amount", types.FormatAmount(amount)))
		l.host.Emit(&events.UnlockedEvent{
			BaseEvent: events.NewBase(events.Unlocked, l.host.BlockNumber()),
			Token:     tok.Address(),
			Recipient: recipient,
			Amount:    amount.Clone(),
		})
		released = amount
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// TransferOwnership hands the owner role to next. Owner-only.
func (l *Locker) TransferOwnership(caller, next types.Address) error {
	return l.host.Call("locker.transferOwnership", caller, func() error {
		return l.roles.TransferOwnership(caller, next)
	})
}

// Restore resets the owner after a snapshot load.
func (l *Locker) Restore(owner types.Address) {
	l.roles.Restore(owner, owner)
}
