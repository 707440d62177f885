package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/fwojciec/coach"
	coachjson "github.com/fwojciec/coach/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService is a minimal CoachAI backend. Chats are only served to the
// current access token.
type fakeService struct {
	access    atomic.Value // string
	refreshes atomic.Int32
}

func newFakeService(t *testing.T) (*fakeService, *httptest.Server) {
	t.Helper()
	f := &fakeService{}
	f.access.Store("tok1")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/sign-in", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "6131", r.Header.Get("ngrok-skip-browser-warning"))
		if r.URL.Query().Get("Password") != "Secret123" {
			http.Error(w, "bad credentials", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"accessToken":  "tok1",
			"refreshTokem": "ref1",
		})
	})
	mux.HandleFunc("GET /auth/token/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("RefreshToken") != "ref1" {
			http.Error(w, "bad refresh token", http.StatusUnauthorized)
			return
		}
		f.refreshes.Add(1)
		f.access.Store("tok2")
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": "tok2"})
	})
	mux.HandleFunc("GET /chats", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+f.access.Load().(string) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": "chat-1", "name": "Prep", "technology": "Java", "grade": "Junior", "questionsAmount": 5},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

type harness struct {
	home        string
	sessionPath string
	baseURL     string
}

func newHarness(t *testing.T, baseURL string) harness {
	t.Helper()
	home := t.TempDir()
	return harness{home: home, sessionPath: filepath.Join(home, "session.json"), baseURL: baseURL}
}

// exec runs the command line with stdin and returns stdout.
func (h harness) exec(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	env := environment{home: h.home, lookup: mapLookup(map[string]string{
		envBaseURL:     h.baseURL,
		envSessionPath: h.sessionPath,
		envLogPath:     filepath.Join(h.home, "coach.log"),
	})}
	cmd := newRootCmd(env)
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func (h harness) saveSession(t *testing.T, s coach.Session) {
	t.Helper()
	require.NoError(t, coachjson.NewSessionStore(h.sessionPath).Save(s))
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("saves the session", func(t *testing.T) {
		t.Parallel()
		_, srv := newFakeService(t)
		h := newHarness(t, srv.URL)

		out, err := h.exec(t, "Secret123\n", "login", "--email", "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Signed in as user@example.com\n", out)

		s, err := coachjson.NewSessionStore(h.sessionPath).Load()
		require.NoError(t, err)
		assert.Equal(t, coach.Session{AccessToken: "tok1", RefreshToken: "ref1"}, s)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()
		_, srv := newFakeService(t)
		h := newHarness(t, srv.URL)

		_, err := h.exec(t, "Wrong1234", "login", "--email", "user@example.com")
		require.ErrorIs(t, err, coach.ErrInvalidCredentials)
	})

	t.Run("invalid email is rejected locally", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, "http://127.0.0.1:0")

		_, err := h.exec(t, "Secret123\n", "login", "--email", "nope")
		require.ErrorIs(t, err, coach.ErrValidation)
	})

	t.Run("email flag is required", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, "http://127.0.0.1:0")
		_, err := h.exec(t, "", "login")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "email")
	})
}

func TestStatusAndLogout(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "http://127.0.0.1:0")

	out, err := h.exec(t, "", "status")
	require.NoError(t, err)
	assert.Equal(t, "Signed out\n", out)

	h.saveSession(t, coach.Session{AccessToken: "tok1", RefreshToken: "ref1"})
	out, err = h.exec(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in")
	assert.Contains(t, out, h.sessionPath)

	out, err = h.exec(t, "", "logout")
	require.NoError(t, err)
	assert.Equal(t, "Signed out\n", out)

	out, err = h.exec(t, "", "status")
	require.NoError(t, err)
	assert.Equal(t, "Signed out\n", out)
}

func TestChats(t *testing.T) {
	t.Parallel()

	t.Run("requires a session", func(t *testing.T) {
		t.Parallel()
		_, srv := newFakeService(t)
		h := newHarness(t, srv.URL)
		_, err := h.exec(t, "", "chats")
		require.ErrorIs(t, err, errNotSignedIn)
	})

	t.Run("lists chats", func(t *testing.T) {
		t.Parallel()
		f, srv := newFakeService(t)
		h := newHarness(t, srv.URL)
		h.saveSession(t, coach.Session{AccessToken: "tok1", RefreshToken: "ref1"})

		out, err := h.exec(t, "", "chats")
		require.NoError(t, err)
		assert.Contains(t, out, "Prep - Java (Junior)")
		assert.Contains(t, out, "chat-1")
		assert.Equal(t, int32(0), f.refreshes.Load())
	})

	t.Run("stale token is refreshed once", func(t *testing.T) {
		t.Parallel()
		f, srv := newFakeService(t)
		f.access.Store("tok2")
		h := newHarness(t, srv.URL)
		h.saveSession(t, coach.Session{AccessToken: "tok1", RefreshToken: "ref1"})

		out, err := h.exec(t, "", "chats")
		require.NoError(t, err)
		assert.Contains(t, out, "chat-1")
		assert.Equal(t, int32(1), f.refreshes.Load())

		s, err := coachjson.NewSessionStore(h.sessionPath).Load()
		require.NoError(t, err)
		assert.Equal(t, "tok2", s.AccessToken)
		assert.Equal(t, "ref1", s.RefreshToken)
	})

	t.Run("failed refresh signs out", func(t *testing.T) {
		t.Parallel()
		f, srv := newFakeService(t)
		f.access.Store("other")
		h := newHarness(t, srv.URL)
		h.saveSession(t, coach.Session{AccessToken: "tok1", RefreshToken: "stale"})

		_, err := h.exec(t, "", "chats")
		require.ErrorIs(t, err, errNotSignedIn)

		_, err = coachjson.NewSessionStore(h.sessionPath).Load()
		assert.ErrorIs(t, err, coach.ErrNoSession)
	})
}

func TestReadPassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"Secret123\n", "Secret123"},
		{"Secret123\r\nextra\n", "Secret123"},
		{"Secret123", "Secret123"},
		{"", ""},
	}
	for _, tt := range tests {
		got, err := readPassword(strings.NewReader(tt.in))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
