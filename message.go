package coach

import "time"

// Sender identifies who authored a Message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is a single transcript entry. Messages are immutable once
// appended to a Transcript.
type Message struct {
	Text      string
	Sender    Sender
	Timestamp time.Time
}
