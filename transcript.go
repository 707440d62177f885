package coach

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Transcript holds the ordered message history of one chat and mediates the
// send/receive protocol with the service. It is safe for concurrent use.
//
// Messages are kept in conversation order and never reordered. At most one
// Send is outstanding at a time; a concurrent Send is rejected with
// ErrSendInProgress and has no other effect.
type Transcript struct {
	chats       ChatService
	chatID      string
	now         func() time.Time
	sendTimeout time.Duration

	sending atomic.Bool

	mu       sync.RWMutex
	chat     ChatSession
	hasChat  bool
	messages []Message
}

// TranscriptOption configures a Transcript.
type TranscriptOption func(*Transcript)

// WithClock sets the clock used to stamp sent messages.
func WithClock(now func() time.Time) TranscriptOption {
	return func(t *Transcript) { t.now = now }
}

// WithSendTimeout bounds each Send. Zero (the default) leaves sends bounded
// only by the caller's context.
func WithSendTimeout(d time.Duration) TranscriptOption {
	return func(t *Transcript) { t.sendTimeout = d }
}

// NewTranscript creates an empty Transcript for chatID. Call Load to
// populate it.
func NewTranscript(chats ChatService, chatID string, opts ...TranscriptOption) *Transcript {
	t := &Transcript{chats: chats, chatID: chatID, now: time.Now}
	for _, o := range opts {
		o(t)
	}
	return t
}

// ChatID returns the id of the chat this transcript belongs to.
func (t *Transcript) ChatID() string { return t.chatID }

// Load fetches the chat metadata and its messages concurrently and replaces
// the transcript with the messages in the order the service returned them.
// If the messages cannot be fetched the transcript is left empty and the
// error wraps ErrFetchFailed.
//
// Metadata is best effort: when the chat list fails, or does not contain the
// chat, the messages are still kept and Chat reports false. An unauthorized
// metadata response is still returned so the caller can recover the session.
func (t *Transcript) Load(ctx context.Context) error {
	t.mu.Lock()
	t.messages = nil
	t.chat, t.hasChat = ChatSession{}, false
	t.mu.Unlock()

	var (
		chat    ChatSession
		found   bool
		metaErr error
		history []Message
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		chats, err := t.chats.Chats(gctx)
		if err != nil {
			metaErr = err
			return nil
		}
		for _, c := range chats {
			if c.ID == t.chatID {
				chat, found = c, true
				break
			}
		}
		return nil
	})
	g.Go(func() error {
		msgs, err := t.chats.Messages(gctx, t.chatID)
		if err != nil {
			return fmt.Errorf("messages: %w", err)
		}
		history = msgs
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load chat %s: %w: %w", t.chatID, ErrFetchFailed, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.chat, t.hasChat = chat, found
	t.messages = append([]Message(nil), history...)
	if IsUnauthorized(metaErr) {
		return fmt.Errorf("load chat %s: chat metadata: %w", t.chatID, metaErr)
	}
	return nil
}

// Send submits text as the user's utterance and waits for the reply. On
// success the user message and the reply are appended, in that order, with
// client-side timestamps. On failure nothing is appended and the error
// wraps ErrSendFailed. Text is trimmed; empty text fails validation.
func (t *Transcript) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("message text is empty: %w", ErrValidation)
	}
	if !t.sending.CompareAndSwap(false, true) {
		return ErrSendInProgress
	}
	defer t.sending.Store(false)

	if t.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.sendTimeout)
		defer cancel()
	}

	reply, err := t.chats.SendMessage(ctx, t.chatID, text)
	if err != nil {
		return fmt.Errorf("send to chat %s: %w: %w", t.chatID, ErrSendFailed, err)
	}
	t.appendExchange(text, reply)
	return nil
}

// appendExchange is the single place sent exchanges enter the transcript.
// Both timestamps are generated locally; the service assigns no message
// identity the client tracks.
func (t *Transcript) appendExchange(text, reply string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages,
		Message{Text: text, Sender: SenderUser, Timestamp: t.now()},
		Message{Text: reply, Sender: SenderAssistant, Timestamp: t.now()},
	)
}

// Sending reports whether a Send is outstanding.
func (t *Transcript) Sending() bool { return t.sending.Load() }

// Messages returns a copy of the transcript in conversation order.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Message(nil), t.messages...)
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Chat returns the chat metadata fetched by Load.
func (t *Transcript) Chat() (ChatSession, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.chat, t.hasChat
}
