// internal/chain/host.go
package chain

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/tokenfarm/internal/events"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// CallError is returned when an outermost call aborts. Everything the call
// (and every nested call it made) wrote has already been reverted.
type CallError struct {
	Op     string
	Caller types.Address
	Err    error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s by %s aborted: %v", e.Op, e.Caller, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Host is the execution environment shared by all components: the current
// block height, the undo journal and the event buffer.
//
// A Host is not safe for concurrent use. Calls are serialized by the owner
// of the Host (see engine.Engine), which plays the role of the platform.
type Host struct {
	logger  *zap.Logger
	sink    events.Sink
	block   uint64
	journal journal
	pending []events.Event
	depth   int
}

// NewHost creates a host starting at block. sink may be nil.
func NewHost(logger *zap.Logger, sink events.Sink, block uint64) *Host {
	return &Host{
		logger: logger.Named("host"),
		sink:   sink,
		block:  block,
	}
}

// BlockNumber returns the current block height.
func (h *Host) BlockNumber() uint64 {
	return h.block
}

// SetBlockNumber moves the height forward. It cannot be called inside a call.
func (h *Host) SetBlockNumber(n uint64) error {
	if h.depth > 0 {
		return fmt.Errorf("%w: block height changed inside a call", types.ErrReentrantCall)
	}
	if n < h.block {
		return fmt.Errorf("%w: %d -> %d", types.ErrBlockRegression, h.block, n)
	}
	h.block = n
	return nil
}

// AdvanceBlocks moves the height forward by n.
func (h *Host) AdvanceBlocks(n uint64) error {
	return h.SetBlockNumber(h.block + n)
}

// InCall reports whether a call is executing.
func (h *Host) InCall() bool {
	return h.depth > 0
}

// Call runs fn as one atomic unit. If fn returns an error (or panics) every
// change recorded since the call started is undone and buffered events are
// dropped. Nested calls revert only their own changes; the error they return
// usually aborts the parent as well. When the outermost call succeeds the
// journal is discarded and the buffered events are published.
func (h *Host) Call(op string, caller types.Address, fn func() error) (err error) {
	snap := h.journal.snapshot()
	evSnap := len(h.pending)
	h.depth++

	defer func() {
		h.depth--
		if r := recover(); r != nil {
			h.abort(snap, evSnap)
			panic(r)
		}
		if err != nil {
			h.abort(snap, evSnap)
			if h.depth == 0 {
				var ce *CallError
				if !errors.As(err, &ce) {
					err = &CallError{Op: op, Caller: caller, Err: err}
				}
				h.logger.Debug("Call aborted",
					zap.String("op", op),
					zap.Stringer("caller", caller),
					zap.Error(err))
			}
			return
		}
		if h.depth == 0 {
			h.commit()
		}
	}()

	return fn()
}

// Record registers an undo action for a state change made inside a call.
// Outside a call there is nothing to roll back to and undo is discarded.
func (h *Host) Record(undo func()) {
	if h.depth == 0 {
		return
	}
	h.journal.append(undo)
}

// Emit buffers an event until the outermost call commits.
func (h *Host) Emit(e events.Event) {
	if h.depth == 0 {
		h.publish([]events.Event{e})
		return
	}
	h.pending = append(h.pending, e)
}

func (h *Host) abort(snap, evSnap int) {
	h.journal.revert(snap)
	h.pending = h.pending[:evSnap]
}

func (h *Host) commit() {
	h.journal.reset()
	if len(h.pending) == 0 {
		return
	}
	pending := h.pending
	h.pending = nil
	h.publish(pending)
}

func (h *Host) publish(evs []events.Event) {
	if h.sink == nil {
		return
	}
	for _, e := range evs {
		if err := h.sink.Publish(e); err != nil {
			h.logger.Warn("Event not delivered",
				zap.String("event_type", string(e.Type())),
				zap.Error(err))
		}
	}
}
