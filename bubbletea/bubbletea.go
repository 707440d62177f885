// Package bubbletea provides the Bubble Tea TUI for the coach client: the
// sign-in and sign-up forms, the chat dashboard and the chat screen.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/coach"
)

// Run creates and runs the Bubble Tea TUI program. It blocks until the program
// exits. The context is used for graceful shutdown and is passed to every
// service call the model makes.
func Run(ctx context.Context, m Model) error {
	m.ctx = ctx
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// RestoredMsg reports the outcome of restoring the persisted session.
type RestoredMsg struct {
	Err error
}

// SignedInMsg reports the outcome of a sign-in attempt.
type SignedInMsg struct {
	Err error
}

// SignedUpMsg reports the outcome of a sign-up attempt.
type SignedUpMsg struct {
	Email string
	Err   error
}

// SignedOutMsg reports that the session was cleared.
type SignedOutMsg struct {
	Err error
}

// ChatsLoadedMsg carries the dashboard's chat list.
type ChatsLoadedMsg struct {
	Chats []coach.ChatSession
	Err   error
}

// ChatCreatedMsg reports the outcome of creating a chat.
type ChatCreatedMsg struct {
	ID  string
	Err error
}

// TranscriptLoadedMsg reports that the open chat's history was fetched.
type TranscriptLoadedMsg struct {
	ChatID string
	Err    error
}

// SendResultMsg reports the outcome of sending a message in a chat.
type SendResultMsg struct {
	ChatID string
	Err    error
}

// RecoveredMsg reports the outcome of recovering from an unauthorized
// response. Retry, when set, replays the request that failed.
type RecoveredMsg struct {
	Err   error
	Retry tea.Cmd
}
