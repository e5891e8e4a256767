// internal/engine/snapshot.go
package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/tokenfarm/internal/chain"
	"github.com/rovshanmuradov/tokenfarm/internal/dex"
	"github.com/rovshanmuradov/tokenfarm/internal/events"
	"github.com/rovshanmuradov/tokenfarm/internal/farm"
	"github.com/rovshanmuradov/tokenfarm/internal/locker"
	"github.com/rovshanmuradov/tokenfarm/internal/referral"
	"github.com/rovshanmuradov/tokenfarm/internal/token"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// SnapshotVersion is bumped whenever a component state changes shape.
const SnapshotVersion = 1

// Snapshot is the complete persisted state of an engine.
type Snapshot struct {
	Version          int             `json:"version"`
	Block            uint64          `json:"block"`
	Owner            types.Address   `json:"owner"`
	Token            *token.State    `json:"token"`
	Referral         *referral.State `json:"referral"`
	Pair             *dex.State      `json:"pair"`
	Farm             *farm.State     `json:"farm"`
	ReferralsEnabled bool            `json:"referrals_enabled"`
	Locker           LockerState     `json:"locker"`
}

// LockerState is the persisted locker.
type LockerState struct {
	Address types.Address `json:"address"`
	Owner   types.Address `json:"owner"`
}

// Snapshot captures the engine state between operations.
func (e *Engine) Snapshot() *Snapshot {
	var s *Snapshot
	e.view(func() {
		s = &Snapshot{
			Version:          SnapshotVersion,
			Block:            e.host.BlockNumber(),
			Owner:            e.owner,
			Token:            e.token.Export(),
			Referral:         e.referrals.Export(),
			Pair:             e.pair.Export(),
			Farm:             e.farm.Export(),
			ReferralsEnabled: e.farm.Referrals() != nil,
			Locker:           LockerState{Address: e.locker.Address(), Owner: e.locker.Owner()},
		}
	})
	return s
}

// Restore rebuilds an engine from s. Every component verifies its own
// conservation rules while loading.
func Restore(logger *zap.Logger, s *Snapshot, sink events.Sink, metrics *Metrics) (*Engine, error) {
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: snapshot version %d, want %d", types.ErrInvalidParameter, s.Version, SnapshotVersion)
	}
	if s.Token == nil || s.Referral == nil || s.Pair == nil || s.Farm == nil {
		return nil, fmt.Errorf("%w: incomplete snapshot", types.ErrInvalidParameter)
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	logger = logger.Named("engine")
	host := chain.NewHost(logger, sink, s.Block)
	e := &Engine{
		logger:  logger,
		host:    host,
		metrics: metrics,
		owner:   s.Owner,
	}

	var err error
	if e.token, err = token.FromState(host, logger, s.Token); err != nil {
		return nil, fmt.Errorf("token: %w", err)
	}
	if e.referrals, err = referral.FromState(host, logger, s.Referral); err != nil {
		return nil, fmt.Errorf("referral: %w", err)
	}
	if e.pair, err = dex.FromState(host, logger, s.Pair, e.token); err != nil {
		return nil, fmt.Errorf("pair: %w", err)
	}
	if s.Token.Router != nil {
		if *s.Token.Router != e.pair.Address() {
			return nil, fmt.Errorf("%w: token router %s is not the pair", types.ErrInvalidParameter, s.Token.Router)
		}
		e.token.RestoreRouter(e.pair)
	}

	var refs farm.Referrals
	if s.ReferralsEnabled {
		refs = e.referrals
	}
	resolve := func(addr types.Address) (farm.StakeToken, bool) {
		switch addr {
		case e.token.Address():
			return e.token, true
		case e.pair.LP().Address():
			return e.pair.LP(), true
		}
		return nil, false
	}
	if e.farm, err = farm.FromState(host, logger, s.Farm, e.token, refs, resolve); err != nil {
		return nil, fmt.Errorf("farm: %w", err)
	}

	e.locker = locker.New(host, logger, s.Locker.Address, s.Locker.Owner)
	e.locker.Restore(s.Locker.Owner)
	metrics.observeState(e)

	logger.Debug("Engine restored",
		zap.Uint64("block", s.Block),
		zap.Int("pools", e.farm.PoolLength()))
	return e, nil
}
