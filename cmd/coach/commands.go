package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/coach"
	bt "github.com/fwojciec/coach/bubbletea"
	"github.com/fwojciec/coach/coachai"
	coachjson "github.com/fwojciec/coach/json"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// The service sits behind an ngrok tunnel that shows an interstitial page
// unless this header is present.
const (
	ngrokHeader = "ngrok-skip-browser-warning"
	ngrokValue  = "6131"
)

// errNotSignedIn is returned by commands that need a saved session.
var errNotSignedIn = errors.New("not signed in: run coach login")

// app holds the wired dependencies for one command invocation.
type app struct {
	cfg    Config
	logger *zap.Logger
	store  *coachjson.SessionStore
	auth   *coach.SessionManager
	chats  coach.ChatService
}

func newApp(cfg Config) (*app, error) {
	logger, err := newLogger(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	client := coachai.New(
		coachai.WithBaseURL(cfg.BaseURL),
		coachai.WithHeader(ngrokHeader, ngrokValue),
		coachai.WithLogger(logger.Named("coachai")),
	)
	store := coachjson.NewSessionStore(cfg.SessionPath)
	auth := coach.NewSessionManager(client, store, coach.WithStateHook(stateLogger(logger.Named("session"))))
	return &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		auth:   auth,
		chats:  client.WithTokens(auth),
	}, nil
}

// cli builds the command tree. The app is created once flags are parsed.
type cli struct {
	env environment
	app *app
}

func newRootCmd(env environment) *cobra.Command {
	c := &cli{env: env}
	var chatID string

	root := &cobra.Command{
		Use:           "coach",
		Short:         "Terminal client for CoachAI interview coaching",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(c.env, cmd.Flags())
			if err != nil {
				return err
			}
			c.app, err = newApp(cfg)
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.app != nil {
				_ = c.app.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.runTUI(cmd.Context(), chatID)
		},
	}
	addConfigFlags(root.PersistentFlags())
	root.Flags().StringVar(&chatID, "chat", "", "Open the chat with this id instead of the dashboard")

	root.AddCommand(c.loginCmd(), c.logoutCmd(), c.statusCmd(), c.chatsCmd())
	return root
}

func (a *app) runTUI(ctx context.Context, chatID string) error {
	opts := []bt.Option{bt.WithSendTimeout(a.cfg.SendTimeout)}
	if chatID != "" {
		opts = append(opts, bt.WithChat(chatID))
	}
	a.logger.Info("starting", zap.String("base_url", a.cfg.BaseURL), zap.String("chat", chatID))
	if err := bt.Run(ctx, bt.New(a.auth, a.chats, coach.DefaultTheme(), opts...)); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}
	return nil
}

func (c *cli) loginCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session",
		Long:  "Sign in with an email and a password read from the first line of stdin.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			cred := coach.Credentials{Email: strings.TrimSpace(email), Password: password}
			if err := coach.ValidateSignIn(cred); err != nil {
				return err
			}
			auth := c.app.auth
			if err := auth.SignIn(cmd.Context(), cred); err != nil {
				if auth.Status().Authenticated {
					return fmt.Errorf("signed in, but the session was not saved: %w", err)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", cred.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// readPassword reads one line, without its line ending.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.auth.SignOut(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a session is saved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := c.app
			if err := a.auth.Restore(cmd.Context()); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !a.auth.Status().Authenticated {
				fmt.Fprintln(out, "Signed out")
				return nil
			}
			fmt.Fprintf(out, "Signed in (session %s)\n", a.store.Path())
			return nil
		},
	}
}

// chatTitleWidth is the column width of chat titles in `coach chats`.
const chatTitleWidth = 48

func (c *cli) chatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chats",
		Short: "List chats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := c.app.listChats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No chats yet.")
				return nil
			}
			for _, ch := range list {
				title := runewidth.FillRight(runewidth.Truncate(ch.Title(), chatTitleWidth, "…"), chatTitleWidth)
				date := ""
				if !ch.CreatedAt.IsZero() {
					date = ch.CreatedAt.Local().Format("Jan 2, 2006 03:04 PM")
				}
				fmt.Fprintf(out, "%s  %-20s  %s\n", title, date, ch.ID)
			}
			return nil
		},
	}
}

// listChats restores the session and lists chats, refreshing the access
// token once if the service rejects it.
func (a *app) listChats(ctx context.Context) ([]coach.ChatSession, error) {
	if err := a.auth.Restore(ctx); err != nil {
		return nil, err
	}
	if !a.auth.Status().Authenticated {
		return nil, errNotSignedIn
	}
	list, err := a.chats.Chats(ctx)
	if !coach.IsUnauthorized(err) {
		return list, err
	}
	if rerr := a.auth.RecoverUnauthorized(ctx, err); rerr != nil {
		a.logger.Warn("session expired", zap.Error(rerr))
		return nil, fmt.Errorf("session expired: %w", errNotSignedIn)
	}
	return a.chats.Chats(ctx)
}
