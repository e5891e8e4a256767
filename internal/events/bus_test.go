package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

func transferEvent(block uint64) *TransferEvent {
	return &TransferEvent{
		BaseEvent: NewBase(Transfer, block),
		Token:     types.NewAccount(),
		From:      types.NewAccount(),
		To:        types.NewAccount(),
		Amount:    types.NewAmount(42),
	}
}

func TestBus_PublishSyncFansOut(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 8)
	defer bus.Shutdown(context.Background())

	var typed, wildcard int32
	bus.SubscribeFunc(Transfer, func(context.Context, Event) error {
		atomic.AddInt32(&typed, 1)
		return nil
	})
	bus.SubscribeFunc(AnyEvent, func(context.Context, Event) error {
		atomic.AddInt32(&wildcard, 1)
		return nil
	})
	sub := bus.SubscribeFunc(Mint, func(context.Context, Event) error {
		t.Error("mint handler must not see transfers")
		return nil
	})
	defer sub.Unsubscribe()

	require.NoError(t, bus.PublishSync(context.Background(), transferEvent(1)))
	assert.Equal(t, int32(1), atomic.LoadInt32(&typed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&wildcard))
}

func TestBus_PublishSyncReturnsHandlerError(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 8)
	defer bus.Shutdown(context.Background())

	boom := errors.New("boom")
	bus.SubscribeFunc(Transfer, func(context.Context, Event) error { return boom })
	err := bus.PublishSync(context.Background(), transferEvent(1))
	assert.ErrorIs(t, err, boom)
}

func TestBus_AsyncDelivery(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 8)
	rec := &Recorder{}
	bus.Subscribe(AnyEvent, rec)

	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, bus.Publish(transferEvent(i)))
	}
	require.NoError(t, bus.Shutdown(context.Background()))
	assert.Len(t, rec.Events(), 3)
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 8)
	defer bus.Shutdown(context.Background())

	rec := &Recorder{}
	sub := bus.Subscribe(Transfer, rec)
	sub.Unsubscribe()

	require.NoError(t, bus.PublishSync(context.Background(), transferEvent(1)))
	assert.Empty(t, rec.Events())
	assert.Equal(t, 0, bus.Stats()["event_types"])
}

func TestBus_ShutdownHonoursContext(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 1)
	block := make(chan struct{})
	bus.SubscribeFunc(Transfer, func(context.Context, Event) error {
		<-block
		return nil
	})
	require.NoError(t, bus.Publish(transferEvent(1)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	time.Sleep(5 * time.Millisecond)
	assert.ErrorIs(t, bus.Shutdown(ctx), context.DeadlineExceeded)
	close(block)
}
