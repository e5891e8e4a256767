// internal/referral/registry.go
package referral

import (
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tokenfarm/internal/access"
	"github.com/rovshanmuradov/tokenfarm/internal/chain"
	"github.com/rovshanmuradov/tokenfarm/internal/events"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// Registry records who referred whom and how much commission each referrer
// has accrued. Only whitelisted operators (normally the pool registry) can
// write to it; the owner manages the whitelist.
type Registry struct {
	host      *chain.Host
	logger    *zap.Logger
	address   types.Address
	roles     *access.Roles
	operators *access.Whitelist

	referrers   map[types.Address]types.Address
	counts      map[types.Address]uint64
	commissions map[types.Address]uint256.Int
}

// New creates an empty registry owned by owner.
func New(host *chain.Host, logger *zap.Logger, address, owner types.Address) *Registry {
	return &Registry{
		host:        host,
		logger:      logger.Named("referral"),
		address:     address,
		roles:       access.NewRoles(host, address, owner),
		operators:   access.NewWhitelist(host),
		referrers:   make(map[types.Address]types.Address),
		counts:      make(map[types.Address]uint64),
		commissions: make(map[types.Address]uint256.Int),
	}
}

// Address returns the registry account.
func (r *Registry) Address() types.Address { return r.address }

// Owner returns the owner.
func (r *Registry) Owner() types.Address { return r.roles.Owner() }

// UpdateOperator adds or removes op from the writer whitelist. Owner-only.
func (r *Registry) UpdateOperator(caller, op types.Address, enabled bool) error {
	return r.host.Call("referral.updateOperator", caller, func() error {
		if err := r.roles.RequireOwner(caller); err != nil {
			return err
		}
		r.operators.Set(op, enabled)
		r.logger.Info("Operator updated", zap.Stringer("operator", op), zap.Bool("enabled", enabled))
		r.host.Emit(&events.OperatorUpdatedEvent{
			BaseEvent: events.NewBase(events.OperatorUpdated, r.host.BlockNumber()),
			Operator:  op,
			Enabled:   enabled,
		})
		return nil
	})
}

// RecordReferral sets referrer for user once. Invalid or repeated input is
// accepted silently without changing state. Whitelist-only.
func (r *Registry) RecordReferral(caller, user, referrer types.Address) error {
	return r.host.Call("referral.recordReferral", caller, func() error {
		if err := access.Require(r.operators, caller); err != nil {
			return err
		}
		if types.IsZero(user) || types.IsZero(referrer) || user == referrer {
			r.logger.Warn("Referral ignored",
				zap.Stringer("user", user),
				zap.Stringer("referrer", referrer))
			return nil
		}
		if _, ok := r.referrers[user]; ok {
			return nil
		}

		chain.SetKey(r.host, r.referrers, user, referrer)
		chain.SetKey(r.host, r.counts, referrer, r.counts[referrer]+1)
		r.host.Emit(&events.ReferralRecordedEvent{
			BaseEvent: events.NewBase(events.ReferralRecorded, r.host.BlockNumber()),
			User:      user,
			Referrer:  referrer,
		})
		return nil
	})
}

// RecordReferralCommission adds amount to referrer's accrued total. A zero
// referrer or zero amount is a silent no-op. Whitelist-only.
func (r *Registry) RecordReferralCommission(caller, referrer types.Address, amount *uint256.Int) error {
	return r.host.Call("referral.recordReferralCommission", caller, func() error {
		if err := access.Require(r.operators, caller); err != nil {
			return err
		}
		if types.IsZero(referrer) || amount.IsZero() {
			return nil
		}
		total := r.commissions[referrer]
		next, err := types.Add(&total, amount)
		if err != nil {
			return err
		}
		chain.SetKey(r.host, r.commissions, referrer, *next)
		r.host.Emit(&events.ReferralCommissionRecordedEvent{
			BaseEvent: events.NewBase(events.ReferralCommissionRecorded, r.host.BlockNumber()),
			Referrer:  referrer,
			Amount:    amount.Clone(),
		})
		return nil
	})
}

// TransferOwnership hands the owner role to next. Owner-only.
func (r *Registry) TransferOwnership(caller, next types.Address) error {
	return r.host.Call("referral.transferOwnership", caller, func() error {
		return r.roles.TransferOwnership(caller, next)
	})
}

// GetReferrer returns user's referrer, or the zero address.
func (r *Registry) GetReferrer(user types.Address) types.Address {
	return r.referrers[user]
}

// ReferralsCount returns how many users addr has referred.
func (r *Registry) ReferralsCount(addr types.Address) uint64 {
	return r.counts[addr]
}

// TotalReferralCommissions returns the commission accrued by addr.
func (r *Registry) TotalReferralCommissions(addr types.Address) *uint256.Int {
	c := r.commissions[addr]
	return c.Clone()
}

// IsOperator reports whether addr is on the writer whitelist.
func (r *Registry) IsOperator(addr types.Address) bool {
	return r.operators.Contains(addr)
}

// Operators lists the writer whitelist.
func (r *Registry) Operators() []types.Address {
	return r.operators.Members()
}
