package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/coach"
	"github.com/google/uuid"
)

var _ tea.Model = Model{}

// User-facing messages.
const (
	msgInvalidCredentials = "Invalid email or password"
	msgNetwork            = "Could not reach CoachAI. Check your connection and try again."
	msgFixErrors          = "Please fix the validation errors above"
	msgSignUpFailed       = "Failed to create account. Please try again."
	msgAccountCreated     = "Account created. Please sign in."
	msgSessionExpired     = "Your session has expired. Please sign in again."
	msgResend             = "Session renewed. Please send your message again."
	msgLoadChatsFailed    = "Failed to load chats."
	msgCreateChatFailed   = "Failed to create chat. Please try again"
	msgLoadChatFailed     = "Failed to load chat."
	msgSendFailed         = "Failed to send message. Please try again."
)

// Model is the Bubble Tea model for the coach TUI. Navigation between its
// screens always goes through coach.Guard.
type Model struct {
	auth   *coach.SessionManager
	chats  coach.ChatService
	theme  coach.Theme
	styles Styles

	ctx         context.Context
	newID       func() string
	now         func() time.Time
	sendTimeout time.Duration

	width, height int
	ready         bool

	route   coach.Route
	waiting bool
	pending coach.Route
	chatID  string
	notice  string

	// transcripts keeps one Transcript per opened chat so a send still in
	// flight is never duplicated by reopening the chat.
	transcripts map[string]*coach.Transcript

	spinner spinner.Model
	signIn  form
	signUp  form
	dash    dashboard
	chat    chatScreen
}

// Option configures a Model.
type Option func(*Model)

// WithIDFunc sets the generator for new chat ids. The default is a random
// UUID.
func WithIDFunc(f func() string) Option {
	return func(m *Model) { m.newID = f }
}

// WithClock sets the clock used to stamp sent messages.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// WithSendTimeout bounds each message send.
func WithSendTimeout(d time.Duration) Option {
	return func(m *Model) { m.sendTimeout = d }
}

// WithChat opens the chat with id once the session is restored, instead of
// the dashboard.
func WithChat(id string) Option {
	return func(m *Model) {
		m.chatID = id
		m.pending = coach.RouteChat
	}
}

// New creates a TUI Model. The session manager must not have been restored
// yet; Init does that.
func New(auth *coach.SessionManager, chats coach.ChatService, theme coach.Theme, opts ...Option) Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	styles := NewStyles(theme)
	sp.Style = styles.Accent

	m := Model{
		auth:        auth,
		chats:       chats,
		theme:       theme,
		styles:      styles,
		ctx:         context.Background(),
		newID:       uuid.NewString,
		now:         time.Now,
		waiting:     true,
		pending:     coach.RouteDashboard,
		transcripts: make(map[string]*coach.Transcript),
		spinner:     sp,
		signIn:      newSignInForm(),
		signUp:      newSignUpForm(),
	}
	for _, o := range opts {
		o(&m)
	}
	return m
}

// Route returns the screen currently shown.
func (m Model) Route() coach.Route { return m.route }

// Waiting reports whether the model is waiting for the session restore.
func (m Model) Waiting() bool { return m.waiting }

// Notice returns the informational banner, if any.
func (m Model) Notice() string { return m.notice }

// ChatInput returns the text in the chat input.
func (m Model) ChatInput() string { return m.chat.input.Value() }

// ChatError returns the error shown on the chat screen, if any.
func (m Model) ChatError() string { return m.chat.err }

// Transcript returns the open chat's transcript, or nil.
func (m Model) Transcript() *coach.Transcript { return m.chat.transcript }

// Chats returns the chats listed on the dashboard.
func (m Model) Chats() []coach.ChatSession { return m.dash.chats }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.restore(), m.spinner.Tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.route == coach.RouteChat && m.chat.sending {
			m.chat = m.chat.refresh(m.spinner.View(), m.styles)
		}
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.waiting {
			return m, nil
		}
		return m.handleKey(msg)

	case RestoredMsg:
		m.waiting = false
		if msg.Err != nil {
			m.notice = fmt.Sprintf("Could not restore session: %v", msg.Err)
		}
		return m.navigate(m.pending)

	case SignedInMsg:
		return m.handleSignedIn(msg)

	case SignedUpMsg:
		return m.handleSignedUp(msg)

	case SignedOutMsg:
		if msg.Err != nil {
			m.notice = fmt.Sprintf("Signed out, but the saved session could not be removed: %v", msg.Err)
		}
		m.transcripts = make(map[string]*coach.Transcript)
		return m.navigate(coach.RouteDashboard)

	case ChatsLoadedMsg:
		return m.handleChatsLoaded(msg)

	case ChatCreatedMsg:
		return m.handleChatCreated(msg)

	case TranscriptLoadedMsg:
		return m.handleTranscriptLoaded(msg)

	case SendResultMsg:
		return m.handleSendResult(msg)

	case noticeMsg:
		m.notice = string(msg)
		return m, nil

	case RecoveredMsg:
		if msg.Err != nil {
			m.notice = msgSessionExpired
			return m.navigate(m.route)
		}
		if msg.Retry == nil {
			return m, nil
		}
		return m, msg.Retry

	case retriedMsg:
		if coach.IsUnauthorized(resultErr(msg.msg)) {
			return m.expire()
		}
		return m.Update(msg.msg)
	}

	// Cursor blinks and other component messages go to the focused input.
	return m.updateFocused(msg)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.waiting {
		return m.spinner.View() + " " + m.styles.Muted.Render("Restoring session...")
	}

	var b strings.Builder
	switch m.route {
	case coach.RouteSignIn:
		b.WriteString(m.header("Sign In"))
		b.WriteString(m.banner())
		b.WriteString(m.signIn.view(m.width, m.styles))
		b.WriteString(m.footer("Enter sign in · Tab next field · Ctrl+N create account · Ctrl+C quit", m.signIn.busy))
	case coach.RouteSignUp:
		b.WriteString(m.header("Create Account"))
		b.WriteString(m.banner())
		b.WriteString(m.signUp.view(m.width, m.styles))
		b.WriteString(m.footer("Enter create account · Tab next field · Esc back to sign in · Ctrl+C quit", m.signUp.busy))
	case coach.RouteDashboard:
		b.WriteString(m.header("CoachAI"))
		b.WriteString(m.banner())
		b.WriteString(m.dash.view(m.width, m.styles))
		help := "n new chat · Enter open · r reload · Ctrl+X sign out · Ctrl+C quit"
		if m.dash.creating {
			help = "Enter create · Tab next field · ←/→ change · Esc cancel"
		}
		b.WriteString("\n" + m.styles.Muted.Render(help))
	case coach.RouteChat:
		b.WriteString(m.styles.Accent.Render(m.chat.title()) + "\n\n")
		b.WriteString(m.chat.viewport.View() + "\n")
		b.WriteString(m.chatStatus() + "\n")
		b.WriteString(m.chat.input.View())
	}
	return b.String()
}

func (m Model) header(title string) string {
	return m.styles.Accent.Render(title) + "\n\n"
}

func (m Model) banner() string {
	if m.notice == "" {
		return ""
	}
	return m.styles.Success.Render(m.notice) + "\n\n"
}

func (m Model) footer(help string, busy bool) string {
	if busy {
		return m.spinner.View() + " " + m.styles.Muted.Render("Please wait...")
	}
	return m.styles.Muted.Render(help)
}

func (m Model) chatStatus() string {
	switch {
	case m.notice != "":
		return m.styles.Success.Render(m.notice)
	case m.chat.err != "":
		return m.styles.Error.Render(m.chat.err)
	case m.chat.sending:
		return m.styles.Muted.Render("Waiting for reply...")
	}
	return m.styles.Muted.Render("Enter send · Esc back · Ctrl+X sign out · Ctrl+C quit")
}

func (m Model) resize(msg tea.WindowSizeMsg) Model {
	m.width, m.height = msg.Width, msg.Height
	m.ready = true
	if m.chat.transcript != nil {
		m.chat = m.chat.resize(msg.Width, msg.Height)
		m.chat = m.chat.refresh(m.spinner.View(), m.styles)
	}
	return m
}

// navigate moves to target, or wherever the guard redirects it. While the
// session is being restored the target is remembered and the model waits.
func (m Model) navigate(target coach.Route) (tea.Model, tea.Cmd) {
	d := coach.Guard(m.auth.Status(), target)
	if d.Wait {
		m.waiting, m.pending = true, target
		return m, nil
	}
	m.route = d.Route

	switch m.route {
	case coach.RouteDashboard:
		m.dash.loading = true
		m.dash.err = ""
		return m, m.loadChats()
	case coach.RouteChat:
		t, ok := m.transcripts[m.chatID]
		if !ok {
			t = coach.NewTranscript(m.chats, m.chatID, coach.WithClock(m.now), coach.WithSendTimeout(m.sendTimeout))
			m.transcripts[m.chatID] = t
		}
		m.chat = newChatScreen(t, m.width, m.height)
		if t.Sending() {
			// Reloading now would race the outstanding send; its result
			// refreshes the screen.
			m.chat.loading, m.chat.sending = false, true
			m.chat = m.chat.rebuild(m.theme, m.styles)
			m.chat = m.chat.refresh(m.spinner.View(), m.styles)
			return m, nil
		}
		m.chat = m.chat.refresh(m.spinner.View(), m.styles)
		return m, m.loadTranscript(t)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.route {
	case coach.RouteSignIn:
		return m.signInKey(msg)
	case coach.RouteSignUp:
		return m.signUpKey(msg)
	case coach.RouteDashboard:
		return m.dashboardKey(msg)
	case coach.RouteChat:
		return m.chatKey(msg)
	}
	return m, nil
}

func (m Model) signInKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.signIn.busy {
		return m, nil
	}
	switch msg.Type {
	case tea.KeyCtrlN:
		m.notice = ""
		return m.navigate(coach.RouteSignUp)
	case tea.KeyEnter:
		c := coach.Credentials{Email: strings.TrimSpace(m.signIn.value(0)), Password: m.signIn.value(1)}
		if err := coach.ValidateSignIn(c); err != nil {
			var verrs coach.ValidationErrors
			errors.As(err, &verrs)
			m.signIn.errs = verrs
			return m, nil
		}
		m.notice = ""
		m.signIn.errs, m.signIn.err = nil, ""
		m.signIn.busy = true
		return m, m.doSignIn(c)
	}
	var cmd tea.Cmd
	m.signIn, cmd = m.signIn.update(msg)
	return m, cmd
}

func (m Model) signUpKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.signUp.busy {
		return m, nil
	}
	switch msg.Type {
	case tea.KeyEsc:
		return m.navigate(coach.RouteSignIn)
	case tea.KeyEnter:
		c := coach.Credentials{Email: strings.TrimSpace(m.signUp.value(0)), Password: m.signUp.value(1)}
		if err := coach.ValidateSignUp(c, m.signUp.value(2)); err != nil {
			var verrs coach.ValidationErrors
			errors.As(err, &verrs)
			m.signUp.errs = verrs
			m.signUp.err = msgFixErrors
			return m, nil
		}
		m.signUp.errs, m.signUp.err = nil, ""
		m.signUp.busy = true
		return m, m.doSignUp(c)
	}
	var cmd tea.Cmd
	m.signUp, cmd = m.signUp.update(msg)
	return m, cmd
}

func (m Model) dashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlX {
		return m, m.signOut()
	}
	if m.dash.creating {
		return m.chatFormKey(msg)
	}
	switch msg.Type {
	case tea.KeyUp:
		m.dash = m.dash.moveCursor(-1)
	case tea.KeyDown:
		m.dash = m.dash.moveCursor(1)
	case tea.KeyEnter:
		if c, ok := m.dash.selected(); ok {
			m.notice = ""
			m.chatID = c.ID
			return m.navigate(coach.RouteChat)
		}
	case tea.KeyRunes:
		switch string(msg.Runes) {
		case "k":
			m.dash = m.dash.moveCursor(-1)
		case "j":
			m.dash = m.dash.moveCursor(1)
		case "n":
			m.notice = ""
			m.dash.creating = true
			m.dash.form = newChatForm()
		case "r":
			return m.navigate(coach.RouteDashboard)
		case "q":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) chatFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.dash.form.busy {
		return m, nil
	}
	switch msg.Type {
	case tea.KeyEsc:
		m.dash.creating = false
		return m, nil
	case tea.KeyEnter:
		nc := m.dash.form.request(m.newID())
		if err := nc.Validate(); err != nil {
			m.dash.form.err = firstValidationMessage(err)
			return m, nil
		}
		m.dash.form.busy = true
		return m, m.createChat(nc)
	}
	var cmd tea.Cmd
	m.dash.form, cmd = m.dash.form.update(msg)
	return m, cmd
}

func (m Model) chatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlX:
		return m, m.signOut()
	case tea.KeyEsc:
		m.notice = ""
		return m.navigate(coach.RouteDashboard)
	case tea.KeyEnter:
		text := m.chat.input.Value()
		if m.chat.sending || m.chat.loading || strings.TrimSpace(text) == "" {
			return m, nil
		}
		// The input is cleared before the reply arrives and is not restored
		// if the send fails.
		m.chat.input.SetValue("")
		m.chat.err, m.notice = "", ""
		m.chat.sending = true
		m.chat = m.chat.refresh(m.spinner.View(), m.styles)
		return m, m.send(m.chat.transcript, text)
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.chat.viewport, cmd = m.chat.viewport.Update(msg)
		return m, cmd
	}
	if m.chat.sending {
		return m, nil
	}
	var cmd tea.Cmd
	m.chat.input, cmd = m.chat.input.Update(msg)
	return m, cmd
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.waiting {
		return m, nil
	}
	var cmd tea.Cmd
	switch m.route {
	case coach.RouteSignIn:
		m.signIn.fields[m.signIn.focus].input, cmd = m.signIn.fields[m.signIn.focus].input.Update(msg)
	case coach.RouteSignUp:
		m.signUp.fields[m.signUp.focus].input, cmd = m.signUp.fields[m.signUp.focus].input.Update(msg)
	case coach.RouteDashboard:
		if m.dash.creating {
			m.dash.form.name, cmd = m.dash.form.name.Update(msg)
		}
	case coach.RouteChat:
		var vcmd tea.Cmd
		m.chat.viewport, vcmd = m.chat.viewport.Update(msg)
		m.chat.input, cmd = m.chat.input.Update(msg)
		cmd = tea.Batch(vcmd, cmd)
	}
	return m, cmd
}

func (m Model) handleSignedIn(msg SignedInMsg) (tea.Model, tea.Cmd) {
	m.signIn.busy = false
	m.signIn = m.signIn.clearSecrets()
	switch {
	case msg.Err == nil:
	case errors.Is(msg.Err, coach.ErrInvalidCredentials):
		m.signIn.err = msgInvalidCredentials
		return m, nil
	case errors.Is(msg.Err, coach.ErrNetwork):
		m.signIn.err = msgNetwork
		return m, nil
	case !m.auth.Status().Authenticated:
		m.signIn.err = msg.Err.Error()
		return m, nil
	default:
		m.notice = fmt.Sprintf("Signed in, but the session was not saved: %v", msg.Err)
	}
	return m.navigate(coach.RouteDashboard)
}

func (m Model) handleSignedUp(msg SignedUpMsg) (tea.Model, tea.Cmd) {
	m.signUp.busy = false
	if msg.Err != nil {
		m.signUp.err = msgSignUpFailed
		if errors.Is(msg.Err, coach.ErrNetwork) {
			m.signUp.err = msgNetwork
		}
		return m, nil
	}
	m.signUp = newSignUpForm()
	m.signIn = newSignInForm()
	m.signIn.fields[0].input.SetValue(msg.Email)
	m.signIn = m.signIn.setFocus(1)
	m.notice = msgAccountCreated
	return m.navigate(coach.RouteSignIn)
}

func (m Model) handleChatsLoaded(msg ChatsLoadedMsg) (tea.Model, tea.Cmd) {
	if m.route != coach.RouteDashboard {
		return m, nil
	}
	if coach.IsUnauthorized(msg.Err) {
		return m, m.recoverSession(msg.Err, m.loadChats())
	}
	m.dash.loading = false
	if msg.Err != nil {
		m.dash.err = msgLoadChatsFailed
		return m, nil
	}
	m.dash.err = ""
	m.dash.chats = msg.Chats
	m.dash.cursor = min(m.dash.cursor, max(len(m.dash.chats)-1, 0))
	return m, nil
}

func (m Model) handleChatCreated(msg ChatCreatedMsg) (tea.Model, tea.Cmd) {
	if m.route != coach.RouteDashboard {
		return m, nil
	}
	if coach.IsUnauthorized(msg.Err) {
		nc := m.dash.form.request(msg.ID)
		return m, m.recoverSession(msg.Err, m.createChat(nc))
	}
	m.dash.form.busy = false
	if msg.Err != nil {
		m.dash.form.err = msgCreateChatFailed
		return m, nil
	}
	m.dash.creating = false
	m.dash.form = newChatForm()
	m.dash.loading = true
	return m, m.loadChats()
}

func (m Model) handleTranscriptLoaded(msg TranscriptLoadedMsg) (tea.Model, tea.Cmd) {
	if m.route != coach.RouteChat || msg.ChatID != m.chatID {
		return m, nil
	}
	if coach.IsUnauthorized(msg.Err) {
		return m, m.recoverSession(msg.Err, m.loadTranscript(m.chat.transcript))
	}
	m.chat.loading = false
	if msg.Err != nil {
		m.chat.err = msgLoadChatFailed
	}
	m.chat = m.chat.rebuild(m.theme, m.styles)
	m.chat = m.chat.refresh(m.spinner.View(), m.styles)
	return m, nil
}

func (m Model) handleSendResult(msg SendResultMsg) (tea.Model, tea.Cmd) {
	if m.route != coach.RouteChat || msg.ChatID != m.chatID {
		return m, nil
	}
	if errors.Is(msg.Err, coach.ErrSendInProgress) {
		return m, nil
	}
	m.chat.sending = false
	var cmd tea.Cmd
	if msg.Err != nil {
		m.chat.err = msgSendFailed
		if coach.IsUnauthorized(msg.Err) {
			cmd = m.recoverSession(msg.Err, func() tea.Msg { return noticeMsg(msgResend) })
		}
	}
	m.chat = m.chat.rebuild(m.theme, m.styles)
	m.chat = m.chat.refresh(m.spinner.View(), m.styles)
	return m, cmd
}

// noticeMsg sets the informational banner.
type noticeMsg string

// retriedMsg wraps the result of a request replayed after a token refresh.
// A replay is never recovered a second time.
type retriedMsg struct {
	msg tea.Msg
}

// resultErr returns the error carried by a request result message.
func resultErr(msg tea.Msg) error {
	switch msg := msg.(type) {
	case ChatsLoadedMsg:
		return msg.Err
	case ChatCreatedMsg:
		return msg.Err
	case TranscriptLoadedMsg:
		return msg.Err
	case SendResultMsg:
		return msg.Err
	}
	return nil
}

// expire ends a session the service keeps rejecting even after a refresh.
func (m Model) expire() (tea.Model, tea.Cmd) {
	m.notice = msgSessionExpired
	m.dash.loading = false
	m.dash.form.busy = false
	m.chat.loading = false
	return m, m.signOut()
}

func (m Model) restore() tea.Cmd {
	auth, ctx := m.auth, m.ctx
	return func() tea.Msg {
		return RestoredMsg{Err: auth.Restore(ctx)}
	}
}

func (m Model) doSignIn(c coach.Credentials) tea.Cmd {
	auth, ctx := m.auth, m.ctx
	return func() tea.Msg {
		return SignedInMsg{Err: auth.SignIn(ctx, c)}
	}
}

func (m Model) doSignUp(c coach.Credentials) tea.Cmd {
	auth, ctx := m.auth, m.ctx
	return func() tea.Msg {
		return SignedUpMsg{Email: c.Email, Err: auth.SignUp(ctx, c)}
	}
}

func (m Model) signOut() tea.Cmd {
	auth := m.auth
	return func() tea.Msg {
		return SignedOutMsg{Err: auth.SignOut()}
	}
}

func (m Model) loadChats() tea.Cmd {
	chats, ctx := m.chats, m.ctx
	return func() tea.Msg {
		list, err := chats.Chats(ctx)
		return ChatsLoadedMsg{Chats: list, Err: err}
	}
}

func (m Model) createChat(nc coach.NewChat) tea.Cmd {
	chats, ctx := m.chats, m.ctx
	return func() tea.Msg {
		return ChatCreatedMsg{ID: nc.ID, Err: chats.CreateChat(ctx, nc)}
	}
}

func (m Model) loadTranscript(t *coach.Transcript) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return TranscriptLoadedMsg{ChatID: t.ChatID(), Err: t.Load(ctx)}
	}
}

func (m Model) send(t *coach.Transcript, text string) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return SendResultMsg{ChatID: t.ChatID(), Err: t.Send(ctx, text)}
	}
}

// recoverSession asks the session manager to recover from an unauthorized
// error. retry runs once if it succeeds; a second unauthorized result ends
// the session.
func (m Model) recoverSession(err error, retry tea.Cmd) tea.Cmd {
	auth, ctx := m.auth, m.ctx
	var replay tea.Cmd
	if retry != nil {
		replay = func() tea.Msg { return retriedMsg{msg: retry()} }
	}
	return func() tea.Msg {
		return RecoveredMsg{Err: auth.RecoverUnauthorized(ctx, err), Retry: replay}
	}
}
