package coach

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// AuthState is a SessionManager state.
type AuthState int

const (
	StateUnauthenticated AuthState = iota
	StateRestoring
	StateAuthenticated
	StateRefreshing
)

func (s AuthState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateRestoring:
		return "restoring"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("AuthState(%d)", int(s))
	}
}

// AuthStatus is the projection of SessionManager state read by navigation.
type AuthStatus struct {
	Authenticated bool
	Restoring     bool
}

// SessionManager owns the authentication state machine and the single live
// Session of the process. It is safe for concurrent use.
//
// Restore is optimistic: stored tokens are trusted without contacting the
// service, and a bad token is discovered by the first request that fails.
// RecoverUnauthorized is the explicit transition for that case.
type SessionManager struct {
	auth  AuthService
	store SessionStore
	hook  func(from, to AuthState)

	mu      sync.Mutex
	state   AuthState
	session Session
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithStateHook sets a callback invoked on every state transition. The hook
// runs with the manager's lock held and must not call back into it.
func WithStateHook(h func(from, to AuthState)) SessionOption {
	return func(m *SessionManager) { m.hook = h }
}

// NewSessionManager creates a SessionManager in StateRestoring; call Restore
// to settle it.
func NewSessionManager(auth AuthService, store SessionStore, opts ...SessionOption) *SessionManager {
	m := &SessionManager{auth: auth, store: store, state: StateRestoring}
	for _, o := range opts {
		o(m)
	}
	return m
}

// State returns the current state.
func (m *SessionManager) State() AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status returns the navigation projection of the current state. A session
// being refreshed still counts as authenticated.
func (m *SessionManager) Status() AuthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return AuthStatus{
		Authenticated: m.state == StateAuthenticated || m.state == StateRefreshing,
		Restoring:     m.state == StateRestoring,
	}
}

// Session returns a copy of the live session and whether one exists.
func (m *SessionManager) Session() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, m.session.Valid()
}

// AccessToken implements TokenSource.
func (m *SessionManager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.AccessToken
}

// Restore reads the persisted token pair. When both tokens are present the
// manager becomes authenticated without any network call. A store read
// failure other than ErrNoSession is returned and leaves the manager
// unauthenticated.
func (m *SessionManager) Restore(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setState(StateRestoring)

	s, err := m.store.Load()
	switch {
	case errors.Is(err, ErrNoSession):
		m.reset()
		return nil
	case err != nil:
		m.reset()
		return fmt.Errorf("restore session: %w", err)
	case !s.Valid():
		m.reset()
		return nil
	}
	m.session = Session{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
	m.setState(StateAuthenticated)
	return nil
}

// SignIn submits credentials. On success the token pair is kept in memory
// and persisted. A status failure yields ErrInvalidCredentials and a
// transport failure ErrNetwork; either way the prior state is kept.
//
// A persistence failure is returned but the in-memory session stands.
func (m *SessionManager) SignIn(ctx context.Context, c Credentials) error {
	s, err := m.auth.SignIn(ctx, c)
	if err != nil {
		return fmt.Errorf("sign in: %w", classifyAuthError(err))
	}
	if !s.Valid() {
		return fmt.Errorf("sign in: incomplete token pair: %w", ErrInvalidCredentials)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
	m.setState(StateAuthenticated)
	if err := m.store.Save(s); err != nil {
		return fmt.Errorf("sign in: persist session: %w", err)
	}
	return nil
}

// SignUp registers a new account. It never establishes a session; callers
// sign in separately.
func (m *SessionManager) SignUp(ctx context.Context, c Credentials) error {
	if err := m.auth.SignUp(ctx, c); err != nil {
		return fmt.Errorf("sign up: %w", classifyAuthError(err))
	}
	return nil
}

// Refresh obtains a new access token with the stored refresh token, keeping
// the refresh token. Any failure, including a missing refresh token, forces
// a full sign-out before the error is returned. If clearing the store also
// fails, both errors are returned.
//
// A sign-out or sign-in that lands while the call is in flight wins: the
// outcome of the call is then discarded and the session is left alone.
func (m *SessionManager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	refreshToken := m.session.RefreshToken
	if refreshToken == "" {
		err := fmt.Errorf("refresh: %w", ErrNoRefreshToken)
		err = errors.Join(err, m.signOutLocked())
		m.mu.Unlock()
		return err
	}
	m.setState(StateRefreshing)
	m.mu.Unlock()

	s, err := m.auth.Refresh(ctx, refreshToken)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateRefreshing {
		return fmt.Errorf("refresh: session changed during refresh: %w", ErrNoRefreshToken)
	}
	if err != nil {
		return errors.Join(fmt.Errorf("refresh: %w", classifyAuthError(err)), m.signOutLocked())
	}
	if s.AccessToken == "" {
		return errors.Join(fmt.Errorf("refresh: empty access token: %w", ErrInvalidCredentials), m.signOutLocked())
	}
	m.session.AccessToken = s.AccessToken
	m.session.ExpiresAt = s.ExpiresAt
	m.setState(StateAuthenticated)
	if err := m.store.Save(m.session); err != nil {
		return fmt.Errorf("refresh: persist session: %w", err)
	}
	return nil
}

// RecoverUnauthorized handles an error from an authenticated request. For an
// HTTP 401 it runs Refresh and returns its result: nil means the caller may
// retry with the new token, an error means the session is gone. Any other
// error is returned unchanged.
func (m *SessionManager) RecoverUnauthorized(ctx context.Context, err error) error {
	if !IsUnauthorized(err) {
		return err
	}
	return m.Refresh(ctx)
}

// SignOut clears the persisted and in-memory tokens. It is idempotent and
// always leaves the manager unauthenticated; a store failure is returned.
func (m *SessionManager) SignOut() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signOutLocked()
}

func (m *SessionManager) signOutLocked() error {
	m.reset()
	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("sign out: clear store: %w", err)
	}
	return nil
}

func (m *SessionManager) reset() {
	m.session = Session{}
	m.setState(StateUnauthenticated)
}

func (m *SessionManager) setState(to AuthState) {
	from := m.state
	m.state = to
	if m.hook != nil && from != to {
		m.hook(from, to)
	}
}

// classifyAuthError maps a service error onto the binary split callers see:
// status failures become ErrInvalidCredentials, everything else ErrNetwork.
// The cause stays in the chain.
func classifyAuthError(err error) error {
	var he *HTTPError
	if errors.As(err, &he) {
		return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}
