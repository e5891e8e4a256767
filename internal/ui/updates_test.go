package ui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/tokenfarm/internal/events"
)

func TestUpdateSenderNonBlocking(t *testing.T) {
	msgChan := make(chan tea.Msg, 10)
	sender := NewUpdateSender(msgChan, zap.NewNop())
	defer sender.Close()

	base := events.NewBase(events.Deposit, 1)
	for i := 0; i < 10; i++ {
		require.NoError(t, sender.Handle(context.Background(), &base))
	}

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, sender.Handle(context.Background(), &base))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	sent, dropped := sender.GetStats()
	assert.Equal(t, uint64(10), sent)
	assert.Equal(t, uint64(100), dropped)

	msg := <-msgChan
	require.IsType(t, EventMsg{}, msg)
	assert.Equal(t, events.Deposit, msg.(EventMsg).Event.Type())
}

func TestUpdateSenderConcurrent(t *testing.T) {
	msgChan := make(chan tea.Msg, 100)
	sender := NewUpdateSender(msgChan, zap.NewNop())
	defer sender.Close()

	const goroutines, perGoroutine = 10, 100
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				sender.SendUpdate(tickMsg(time.Now()))
			}
		}()
	}
	wg.Wait()

	sent, dropped := sender.GetStats()
	assert.Equal(t, uint64(goroutines*perGoroutine), sent+dropped)
	assert.Equal(t, uint64(100), sent)
}

func TestUpdateSenderOnBus(t *testing.T) {
	logger := zaptest.NewLogger(t)
	bus := events.NewBus(logger, 16)
	msgChan := make(chan tea.Msg, 16)
	sender := NewUpdateSender(msgChan, logger)
	defer sender.Close()
	bus.Subscribe(events.AnyEvent, sender)

	base := events.NewBase(events.RewardPaid, 4)
	require.NoError(t, bus.Publish(&base))

	msg := Listen(msgChan)()
	require.IsType(t, EventMsg{}, msg)
	assert.Equal(t, uint64(4), msg.(EventMsg).Event.BlockNumber())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Shutdown(ctx))
}
