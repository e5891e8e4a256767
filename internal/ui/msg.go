package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rovshanmuradov/tokenfarm/internal/engine"
	"github.com/rovshanmuradov/tokenfarm/internal/events"
)

// EventMsg carries a committed farm event into the program.
type EventMsg struct {
	Event events.Event
}

// refreshedMsg is a fresh read of the farm.
type refreshedMsg struct {
	status  engine.Status
	account engine.Account
	err     error
}

// opDoneMsg reports the result of a key-triggered operation.
type opDoneMsg struct {
	op  string
	err error
}

type tickMsg time.Time

func tick(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Listen waits for the next message on ch.
func Listen(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}
