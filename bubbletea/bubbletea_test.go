package bubbletea_test

import (
	"context"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/coach"
	bt "github.com/fwojciec/coach/bubbletea"
	coachjson "github.com/fwojciec/coach/json"
	"github.com/fwojciec/coach/mock"
	"github.com/stretchr/testify/require"
)

// newStore returns a file-backed store, holding a token pair when signedIn.
func newStore(t *testing.T, signedIn bool) *coachjson.SessionStore {
	t.Helper()
	store := coachjson.NewSessionStore(filepath.Join(t.TempDir(), "session.json"))
	if signedIn {
		require.NoError(t, store.Save(coach.Session{AccessToken: "tok1", RefreshToken: "ref1"}))
	}
	return store
}

// nopAuth fails the test on any remote auth call.
func nopAuth(t *testing.T) *mock.AuthService {
	t.Helper()
	return &mock.AuthService{
		SignInFn: func(context.Context, coach.Credentials) (coach.Session, error) {
			t.Error("unexpected SignIn")
			return coach.Session{}, nil
		},
		SignUpFn: func(context.Context, coach.Credentials) error {
			t.Error("unexpected SignUp")
			return nil
		},
		RefreshFn: func(context.Context, string) (coach.Session, error) {
			t.Error("unexpected Refresh")
			return coach.Session{}, nil
		},
	}
}

// emptyChats serves no chats and no messages.
func emptyChats() *mock.ChatService {
	return &mock.ChatService{
		ChatsFn:    func(context.Context) ([]coach.ChatSession, error) { return nil, nil },
		MessagesFn: func(context.Context, string) ([]coach.Message, error) { return nil, nil },
	}
}

// startModel creates a model, sizes it, restores the session and follows
// the initial navigation. The returned command is whatever the landing
// screen asked for.
func startModel(t *testing.T, mgr *coach.SessionManager, chats coach.ChatService, opts ...bt.Option) (bt.Model, tea.Cmd) {
	t.Helper()
	m := bt.New(mgr, chats, coach.DefaultTheme(), opts...)
	m = updateModel(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	return update(t, m, bt.RestoredMsg{Err: mgr.Restore(context.Background())})
}

// update sends a message and returns the updated Model and command.
func update(t *testing.T, m bt.Model, msg tea.Msg) (bt.Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model, cmd
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	model, _ := update(t, m, msg)
	return model
}

// follow runs cmd and feeds its message back into the model.
func follow(t *testing.T, m bt.Model, cmd tea.Cmd) (bt.Model, tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	return update(t, m, cmd())
}

func typeText(t *testing.T, m bt.Model, s string) bt.Model {
	t.Helper()
	return updateModel(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }
