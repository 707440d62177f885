package coach_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/coach"
	coachjson "github.com/fwojciec/coach/json"
	"github.com/fwojciec/coach/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is a SessionStore backed by a variable.
type memStore struct {
	mu      sync.Mutex
	s       coach.Session
	saved   bool
	saves   int
	clears  int
	saveErr error
}

func (m *memStore) Load() (coach.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.saved {
		return coach.Session{}, coach.ErrNoSession
	}
	return m.s, nil
}

func (m *memStore) Save(s coach.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.s, m.saved = s, true
	return nil
}

func (m *memStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	m.s, m.saved = coach.Session{}, false
	return nil
}

// noNetwork fails the test on any auth call.
func noNetwork(t *testing.T) *mock.AuthService {
	t.Helper()
	return &mock.AuthService{
		SignInFn: func(context.Context, coach.Credentials) (coach.Session, error) {
			t.Error("unexpected SignIn call")
			return coach.Session{}, nil
		},
		SignUpFn: func(context.Context, coach.Credentials) error {
			t.Error("unexpected SignUp call")
			return nil
		},
		RefreshFn: func(context.Context, string) (coach.Session, error) {
			t.Error("unexpected Refresh call")
			return coach.Session{}, nil
		},
	}
}

func signedIn(t *testing.T, auth coach.AuthService, store coach.SessionStore) *coach.SessionManager {
	t.Helper()
	m := coach.NewSessionManager(auth, store)
	require.NoError(t, m.Restore(context.Background()))
	return m
}

func TestSessionManager_StartsRestoring(t *testing.T) {
	t.Parallel()
	m := coach.NewSessionManager(noNetwork(t), &memStore{})
	assert.Equal(t, coach.StateRestoring, m.State())
	assert.Equal(t, coach.AuthStatus{Restoring: true}, m.Status())
}

func TestSessionManager_Restore(t *testing.T) {
	t.Parallel()

	t.Run("nothing stored leaves unauthenticated without network", func(t *testing.T) {
		t.Parallel()
		m := coach.NewSessionManager(noNetwork(t), &memStore{})
		require.NoError(t, m.Restore(context.Background()))
		assert.Equal(t, coach.StateUnauthenticated, m.State())
		_, ok := m.Session()
		assert.False(t, ok)
	})

	t.Run("stored pair is trusted without network", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "session.json")
		require.NoError(t, coachjson.NewSessionStore(path).Save(coach.Session{AccessToken: "tok1", RefreshToken: "ref1"}))

		m := coach.NewSessionManager(noNetwork(t), coachjson.NewSessionStore(path))
		require.NoError(t, m.Restore(context.Background()))
		assert.Equal(t, coach.StateAuthenticated, m.State())
		assert.Equal(t, "tok1", m.AccessToken())
	})

	t.Run("half a pair is treated as no session", func(t *testing.T) {
		t.Parallel()
		store := &memStore{s: coach.Session{AccessToken: "tok1"}, saved: true}
		m := coach.NewSessionManager(noNetwork(t), store)
		require.NoError(t, m.Restore(context.Background()))
		assert.Equal(t, coach.StateUnauthenticated, m.State())
	})

	t.Run("store failure is returned", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("disk on fire")
		store := &mock.SessionStore{LoadFn: func() (coach.Session, error) { return coach.Session{}, boom }}
		m := coach.NewSessionManager(noNetwork(t), store)
		err := m.Restore(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, coach.StateUnauthenticated, m.State())
	})
}

func TestSessionManager_SignIn(t *testing.T) {
	t.Parallel()

	t.Run("success authenticates and persists", func(t *testing.T) {
		t.Parallel()
		auth := &mock.AuthService{
			SignInFn: func(_ context.Context, c coach.Credentials) (coach.Session, error) {
				assert.Equal(t, coach.Credentials{Email: "user@example.com", Password: "Secret123"}, c)
				return coach.Session{AccessToken: "tok1", RefreshToken: "ref1"}, nil
			},
		}
		store := &memStore{}
		m := signedIn(t, auth, store)

		require.NoError(t, m.SignIn(context.Background(), coach.Credentials{Email: "user@example.com", Password: "Secret123"}))
		assert.Equal(t, coach.StateAuthenticated, m.State())
		assert.Equal(t, "tok1", m.AccessToken())
		stored, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, "ref1", stored.RefreshToken)
	})

	t.Run("status failure is invalid credentials and keeps state", func(t *testing.T) {
		t.Parallel()
		auth := &mock.AuthService{
			SignInFn: func(context.Context, coach.Credentials) (coach.Session, error) {
				return coach.Session{}, &coach.HTTPError{StatusCode: 400}
			},
		}
		m := signedIn(t, auth, &memStore{})
		err := m.SignIn(context.Background(), coach.Credentials{Email: "a@b.cd", Password: "x"})
		assert.ErrorIs(t, err, coach.ErrInvalidCredentials)
		assert.NotErrorIs(t, err, coach.ErrNetwork)
		assert.Equal(t, coach.StateUnauthenticated, m.State())
	})

	t.Run("transport failure is a network error", func(t *testing.T) {
		t.Parallel()
		auth := &mock.AuthService{
			SignInFn: func(context.Context, coach.Credentials) (coach.Session, error) {
				return coach.Session{}, errors.New("connection refused")
			},
		}
		m := signedIn(t, auth, &memStore{})
		err := m.SignIn(context.Background(), coach.Credentials{})
		assert.ErrorIs(t, err, coach.ErrNetwork)
		assert.Equal(t, coach.StateUnauthenticated, m.State())
	})

	t.Run("incomplete pair is rejected", func(t *testing.T) {
		t.Parallel()
		auth := &mock.AuthService{
			SignInFn: func(context.Context, coach.Credentials) (coach.Session, error) {
				return coach.Session{AccessToken: "tok1"}, nil
			},
		}
		store := &memStore{}
		m := signedIn(t, auth, store)
		err := m.SignIn(context.Background(), coach.Credentials{})
		assert.ErrorIs(t, err, coach.ErrInvalidCredentials)
		assert.Equal(t, 0, store.saves)
	})

	t.Run("persist failure keeps the in-memory session", func(t *testing.T) {
		t.Parallel()
		auth := &mock.AuthService{
			SignInFn: func(context.Context, coach.Credentials) (coach.Session, error) {
				return coach.Session{AccessToken: "tok1", RefreshToken: "ref1"}, nil
			},
		}
		m := signedIn(t, auth, &memStore{saveErr: errors.New("read-only")})
		err := m.SignIn(context.Background(), coach.Credentials{})
		require.Error(t, err)
		assert.Equal(t, coach.StateAuthenticated, m.State())
		assert.Equal(t, "tok1", m.AccessToken())
	})
}

func TestSessionManager_SignUp(t *testing.T) {
	t.Parallel()
	var calls int
	auth := &mock.AuthService{
		SignUpFn: func(context.Context, coach.Credentials) error {
			calls++
			return nil
		},
	}
	store := &memStore{}
	m := signedIn(t, auth, store)
	require.NoError(t, m.SignUp(context.Background(), coach.Credentials{Email: "a@b.cd", Password: "Secret123"}))
	assert.Equal(t, 1, calls)
	assert.Equal(t, coach.StateUnauthenticated, m.State())
	assert.Equal(t, 0, store.saves)
}

func TestSessionManager_Refresh(t *testing.T) {
	t.Parallel()

	t.Run("replaces the access token and keeps the refresh token", func(t *testing.T) {
		t.Parallel()
		exp := time.Date(2026, 10, 16, 13, 0, 0, 0, time.UTC)
		auth := &mock.AuthService{
			RefreshFn: func(_ context.Context, rt string) (coach.Session, error) {
				assert.Equal(t, "ref1", rt)
				return coach.Session{AccessToken: "tok2", ExpiresAt: exp}, nil
			},
		}
		store := &memStore{s: coach.Session{AccessToken: "tok1", RefreshToken: "ref1"}, saved: true}
		m := signedIn(t, auth, store)

		require.NoError(t, m.Refresh(context.Background()))
		s, ok := m.Session()
		require.True(t, ok)
		assert.Equal(t, coach.Session{AccessToken: "tok2", RefreshToken: "ref1", ExpiresAt: exp}, s)
		assert.Equal(t, coach.StateAuthenticated, m.State())
		stored, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, "tok2", stored.AccessToken)
	})

	t.Run("failure signs out", func(t *testing.T) {
		t.Parallel()
		auth := &mock.AuthService{
			RefreshFn: func(context.Context, string) (coach.Session, error) {
				return coach.Session{}, &coach.HTTPError{StatusCode: 401}
			},
		}
		store := &memStore{s: coach.Session{AccessToken: "tok1", RefreshToken: "ref1"}, saved: true}
		m := signedIn(t, auth, store)

		err := m.Refresh(context.Background())
		assert.ErrorIs(t, err, coach.ErrInvalidCredentials)
		assert.Equal(t, coach.StateUnauthenticated, m.State())
		_, err = store.Load()
		assert.ErrorIs(t, err, coach.ErrNoSession)
	})

	t.Run("missing refresh token signs out without network", func(t *testing.T) {
		t.Parallel()
		store := &memStore{}
		m := signedIn(t, noNetwork(t), store)
		err := m.Refresh(context.Background())
		assert.ErrorIs(t, err, coach.ErrNoRefreshToken)
		assert.Equal(t, coach.StateUnauthenticated, m.State())
		assert.Equal(t, 1, store.clears)
	})

	t.Run("empty access token signs out", func(t *testing.T) {
		t.Parallel()
		auth := &mock.AuthService{
			RefreshFn: func(context.Context, string) (coach.Session, error) {
				return coach.Session{}, nil
			},
		}
		store := &memStore{s: coach.Session{AccessToken: "tok1", RefreshToken: "ref1"}, saved: true}
		m := signedIn(t, auth, store)
		assert.ErrorIs(t, m.Refresh(context.Background()), coach.ErrInvalidCredentials)
		assert.Equal(t, coach.StateUnauthenticated, m.State())
	})

	t.Run("sign-out during refresh is not undone", func(t *testing.T) {
		t.Parallel()
		entered := make(chan struct{})
		release := make(chan struct{})
		auth := &mock.AuthService{
			RefreshFn: func(context.Context, string) (coach.Session, error) {
				close(entered)
				<-release
				return coach.Session{AccessToken: "tok2"}, nil
			},
		}
		store := &memStore{s: coach.Session{AccessToken: "tok1", RefreshToken: "ref1"}, saved: true}
		m := signedIn(t, auth, store)

		done := make(chan error, 1)
		go func() { done <- m.Refresh(context.Background()) }()
		<-entered
		assert.Equal(t, coach.StateRefreshing, m.State())
		assert.True(t, m.Status().Authenticated)
		require.NoError(t, m.SignOut())
		close(release)

		assert.ErrorIs(t, <-done, coach.ErrNoRefreshToken)
		assert.Equal(t, coach.StateUnauthenticated, m.State())
		assert.Empty(t, m.AccessToken())
	})

	t.Run("failed refresh does not sign out a newer sign-in", func(t *testing.T) {
		t.Parallel()
		entered := make(chan struct{})
		release := make(chan struct{})
		auth := &mock.AuthService{
			RefreshFn: func(context.Context, string) (coach.Session, error) {
				close(entered)
				<-release
				return coach.Session{}, &coach.HTTPError{StatusCode: 401}
			},
			SignInFn: func(context.Context, coach.Credentials) (coach.Session, error) {
				return coach.Session{AccessToken: "tok9", RefreshToken: "ref9"}, nil
			},
		}
		store := &memStore{s: coach.Session{AccessToken: "tok1", RefreshToken: "ref1"}, saved: true}
		m := signedIn(t, auth, store)

		done := make(chan error, 1)
		go func() { done <- m.Refresh(context.Background()) }()
		<-entered
		require.NoError(t, m.SignIn(context.Background(), coach.Credentials{Email: "user@example.com", Password: "Secret123"}))
		close(release)

		require.Error(t, <-done)
		assert.Equal(t, coach.StateAuthenticated, m.State())
		assert.Equal(t, "tok9", m.AccessToken())
		s, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, "ref9", s.RefreshToken)
	})

	t.Run("store clear failure is reported with the refresh failure", func(t *testing.T) {
		t.Parallel()
		clearErr := errors.New("disk is read-only")
		auth := &mock.AuthService{
			RefreshFn: func(context.Context, string) (coach.Session, error) {
				return coach.Session{}, &coach.HTTPError{StatusCode: 401}
			},
		}
		store := &mock.SessionStore{
			LoadFn: func() (coach.Session, error) {
				return coach.Session{AccessToken: "tok1", RefreshToken: "ref1"}, nil
			},
			SaveFn:  func(coach.Session) error { return nil },
			ClearFn: func() error { return clearErr },
		}
		m := signedIn(t, auth, store)

		err := m.Refresh(context.Background())
		assert.ErrorIs(t, err, coach.ErrInvalidCredentials)
		assert.ErrorIs(t, err, clearErr)
		assert.Equal(t, coach.StateUnauthenticated, m.State())
	})

	t.Run("store clear failure is reported without a refresh token", func(t *testing.T) {
		t.Parallel()
		clearErr := errors.New("disk is read-only")
		store := &mock.SessionStore{
			LoadFn:  func() (coach.Session, error) { return coach.Session{}, coach.ErrNoSession },
			ClearFn: func() error { return clearErr },
		}
		m := signedIn(t, noNetwork(t), store)

		err := m.Refresh(context.Background())
		assert.ErrorIs(t, err, coach.ErrNoRefreshToken)
		assert.ErrorIs(t, err, clearErr)
	})
}

func TestSessionManager_RecoverUnauthorized(t *testing.T) {
	t.Parallel()

	t.Run("401 refreshes", func(t *testing.T) {
		t.Parallel()
		auth := &mock.AuthService{
			RefreshFn: func(context.Context, string) (coach.Session, error) {
				return coach.Session{AccessToken: "tok2"}, nil
			},
		}
		store := &memStore{s: coach.Session{AccessToken: "tok1", RefreshToken: "ref1"}, saved: true}
		m := signedIn(t, auth, store)

		err := m.RecoverUnauthorized(context.Background(), &coach.HTTPError{StatusCode: 401})
		require.NoError(t, err)
		assert.Equal(t, "tok2", m.AccessToken())
	})

	t.Run("failed refresh after 401 signs out", func(t *testing.T) {
		t.Parallel()
		auth := &mock.AuthService{
			RefreshFn: func(context.Context, string) (coach.Session, error) {
				return coach.Session{}, &coach.HTTPError{StatusCode: 401}
			},
		}
		store := &memStore{s: coach.Session{AccessToken: "tok1", RefreshToken: "ref1"}, saved: true}
		m := signedIn(t, auth, store)

		err := m.RecoverUnauthorized(context.Background(), &coach.HTTPError{StatusCode: 401})
		require.Error(t, err)
		assert.Equal(t, coach.StateUnauthenticated, m.State())
	})

	t.Run("other errors pass through untouched", func(t *testing.T) {
		t.Parallel()
		store := &memStore{s: coach.Session{AccessToken: "tok1", RefreshToken: "ref1"}, saved: true}
		m := signedIn(t, noNetwork(t), store)

		orig := &coach.HTTPError{StatusCode: 500}
		assert.Same(t, orig, m.RecoverUnauthorized(context.Background(), orig))
		assert.Nil(t, m.RecoverUnauthorized(context.Background(), nil))
		assert.Equal(t, coach.StateAuthenticated, m.State())
	})
}

func TestSessionManager_SignOut(t *testing.T) {
	t.Parallel()
	store := &memStore{s: coach.Session{AccessToken: "tok1", RefreshToken: "ref1"}, saved: true}
	m := signedIn(t, noNetwork(t), store)

	require.NoError(t, m.SignOut())
	require.NoError(t, m.SignOut())
	assert.Equal(t, coach.StateUnauthenticated, m.State())
	assert.Empty(t, m.AccessToken())
	_, err := store.Load()
	assert.ErrorIs(t, err, coach.ErrNoSession)
}

func TestSessionManager_StateHook(t *testing.T) {
	t.Parallel()
	var transitions [][2]coach.AuthState
	auth := &mock.AuthService{
		SignInFn: func(context.Context, coach.Credentials) (coach.Session, error) {
			return coach.Session{AccessToken: "tok1", RefreshToken: "ref1"}, nil
		},
	}
	m := coach.NewSessionManager(auth, &memStore{}, coach.WithStateHook(func(from, to coach.AuthState) {
		transitions = append(transitions, [2]coach.AuthState{from, to})
	}))
	require.NoError(t, m.Restore(context.Background()))
	require.NoError(t, m.SignIn(context.Background(), coach.Credentials{}))
	require.NoError(t, m.SignOut())

	assert.Equal(t, [][2]coach.AuthState{
		{coach.StateRestoring, coach.StateUnauthenticated},
		{coach.StateUnauthenticated, coach.StateAuthenticated},
		{coach.StateAuthenticated, coach.StateUnauthenticated},
	}, transitions)
}

func TestAuthState_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "refreshing", coach.StateRefreshing.String())
	assert.Equal(t, "AuthState(9)", coach.AuthState(9).String())
}
