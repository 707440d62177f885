package coachai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fwojciec/coach"
	"go.uber.org/zap"
)

// Interface compliance checks.
var (
	_ coach.AuthService = (*Client)(nil)
	_ coach.ChatService = (*Client)(nil)
)

// maxErrorBody caps how much of an error response is kept in HTTPError.
const maxErrorBody = 4 << 10

// Client talks to the CoachAI API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	headers    http.Header
	tokens     coach.TokenSource
	logger     *zap.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithHeader adds a fixed header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

// WithLogger sets the request logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a [Client] without credentials. It serves the auth endpoints;
// use [Client.WithTokens] for chat calls.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// WithTokens returns a copy of c that attaches the access token from ts to
// every request.
func (c *Client) WithTokens(ts coach.TokenSource) *Client {
	cp := *c
	cp.headers = c.headers.Clone()
	cp.tokens = ts
	return &cp
}

// SignIn authenticates with the service. Credentials travel as query
// parameters, which is what the service accepts.
func (c *Client) SignIn(ctx context.Context, cred coach.Credentials) (coach.Session, error) {
	q := url.Values{"Login": {cred.Email}, "Password": {cred.Password}}
	var resp apiTokens
	if err := c.do(ctx, http.MethodGet, signInPath, q, nil, &resp); err != nil {
		return coach.Session{}, err
	}
	return coach.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.refreshToken(),
		ExpiresAt:    resp.ExpirationTime.value(),
	}, nil
}

// SignUp registers a new account.
func (c *Client) SignUp(ctx context.Context, cred coach.Credentials) error {
	return c.do(ctx, http.MethodPost, signUpPath, nil, apiSignUp{Email: cred.Email, Password: cred.Password}, nil)
}

// Refresh exchanges refreshToken for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (coach.Session, error) {
	q := url.Values{"RefreshToken": {refreshToken}}
	var resp apiRefresh
	if err := c.do(ctx, http.MethodGet, refreshPath, q, nil, &resp); err != nil {
		return coach.Session{}, err
	}
	return coach.Session{AccessToken: resp.AccessToken, ExpiresAt: resp.ExpirationDate.value()}, nil
}

// Chats lists the user's chats.
func (c *Client) Chats(ctx context.Context) ([]coach.ChatSession, error) {
	var resp []apiChat
	if err := c.do(ctx, http.MethodGet, chatsPath, nil, nil, &resp); err != nil {
		return nil, err
	}
	chats := make([]coach.ChatSession, len(resp))
	for i, ch := range resp {
		chats[i] = coach.ChatSession{
			ID:            ch.ID,
			Name:          ch.Name,
			Technology:    coach.Technology(ch.Technology),
			Grade:         coach.Grade(ch.Grade),
			QuestionCount: ch.QuestionsAmount,
			CreatedAt:     ch.CreatedAt.value(),
		}
	}
	return chats, nil
}

// CreateChat creates a chat with the client-chosen id.
func (c *Client) CreateChat(ctx context.Context, nc coach.NewChat) error {
	body := apiChat{
		ID:              nc.ID,
		Name:            nc.Name,
		Technology:      string(nc.Technology),
		Grade:           string(nc.Grade),
		QuestionsAmount: nc.QuestionCount,
	}
	return c.do(ctx, http.MethodPost, chatsPath, nil, body, nil)
}

// Messages returns the chat's messages in the order the service sent them.
func (c *Client) Messages(ctx context.Context, chatID string) ([]coach.Message, error) {
	var resp []apiMessage
	if err := c.do(ctx, http.MethodGet, chatPath(chatID, "messages"), nil, nil, &resp); err != nil {
		return nil, err
	}
	msgs := make([]coach.Message, len(resp))
	for i, m := range resp {
		sender := coach.SenderAssistant
		if m.SenderType == senderUser {
			sender = coach.SenderUser
		}
		msgs[i] = coach.Message{Text: m.Value, Sender: sender, Timestamp: m.CreatedAt.value()}
	}
	return msgs, nil
}

// SendMessage submits text and returns the assistant's reply.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) (string, error) {
	var resp apiAnswer
	if err := c.do(ctx, http.MethodPost, chatPath(chatID, "message"), nil, apiAnswer{Answer: text}, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

func chatPath(chatID, leaf string) string {
	return chatsPath + "/" + url.PathEscape(chatID) + "/" + leaf
}

// do performs one request. A nil body sends no payload; a nil out discards
// the response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("coachai: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("coachai: %w", err)
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentType)
	if c.tokens != nil {
		if tok := c.tokens.AccessToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	// Only the path is logged: sign-in carries the password in the query.
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return fmt.Errorf("coachai: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseHTTPError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("coachai: decode %s %s: %w", method, path, err)
	}
	return nil
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("coachai: %w (failed to read body: %v)", &coach.HTTPError{StatusCode: resp.StatusCode}, err)
	}
	return fmt.Errorf("coachai: %w", &coach.HTTPError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))})
}
