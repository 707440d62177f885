// Package mock provides test doubles for coach interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/coach"
)

// Interface compliance checks.
var (
	_ coach.AuthService  = (*AuthService)(nil)
	_ coach.ChatService  = (*ChatService)(nil)
	_ coach.SessionStore = (*SessionStore)(nil)
	_ coach.TokenSource  = TokenSource(nil)
)

// AuthService is a test double for coach.AuthService.
// Set the function fields for the methods you need.
type AuthService struct {
	SignInFn  func(ctx context.Context, c coach.Credentials) (coach.Session, error)
	SignUpFn  func(ctx context.Context, c coach.Credentials) error
	RefreshFn func(ctx context.Context, refreshToken string) (coach.Session, error)
}

// SignIn delegates to SignInFn.
func (a *AuthService) SignIn(ctx context.Context, c coach.Credentials) (coach.Session, error) {
	return a.SignInFn(ctx, c)
}

// SignUp delegates to SignUpFn.
func (a *AuthService) SignUp(ctx context.Context, c coach.Credentials) error {
	return a.SignUpFn(ctx, c)
}

// Refresh delegates to RefreshFn.
func (a *AuthService) Refresh(ctx context.Context, refreshToken string) (coach.Session, error) {
	return a.RefreshFn(ctx, refreshToken)
}

// ChatService is a test double for coach.ChatService.
type ChatService struct {
	ChatsFn       func(ctx context.Context) ([]coach.ChatSession, error)
	CreateChatFn  func(ctx context.Context, c coach.NewChat) error
	MessagesFn    func(ctx context.Context, chatID string) ([]coach.Message, error)
	SendMessageFn func(ctx context.Context, chatID, text string) (string, error)
}

// Chats delegates to ChatsFn.
func (s *ChatService) Chats(ctx context.Context) ([]coach.ChatSession, error) {
	return s.ChatsFn(ctx)
}

// CreateChat delegates to CreateChatFn.
func (s *ChatService) CreateChat(ctx context.Context, c coach.NewChat) error {
	return s.CreateChatFn(ctx, c)
}

// Messages delegates to MessagesFn.
func (s *ChatService) Messages(ctx context.Context, chatID string) ([]coach.Message, error) {
	return s.MessagesFn(ctx, chatID)
}

// SendMessage delegates to SendMessageFn.
func (s *ChatService) SendMessage(ctx context.Context, chatID, text string) (string, error) {
	return s.SendMessageFn(ctx, chatID, text)
}

// SessionStore is a test double for coach.SessionStore.
type SessionStore struct {
	LoadFn  func() (coach.Session, error)
	SaveFn  func(s coach.Session) error
	ClearFn func() error
}

// Load delegates to LoadFn.
func (s *SessionStore) Load() (coach.Session, error) { return s.LoadFn() }

// Save delegates to SaveFn.
func (s *SessionStore) Save(sess coach.Session) error { return s.SaveFn(sess) }

// Clear delegates to ClearFn.
func (s *SessionStore) Clear() error { return s.ClearFn() }

// TokenSource adapts a function to coach.TokenSource.
type TokenSource func() string

// AccessToken calls f.
func (f TokenSource) AccessToken() string { return f() }
