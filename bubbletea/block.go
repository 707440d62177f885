package bubbletea

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/coach"
	"github.com/fwojciec/coach/goldmark"
	"github.com/rivo/uniseg"
)

// MessageBlock is a renderable element in the conversation. View takes a
// width so the root model controls layout and blocks are testable in
// isolation.
type MessageBlock interface {
	View(width int) string
}

var (
	_ MessageBlock = (*UserMessageBlock)(nil)
	_ MessageBlock = (*AssistantMessageBlock)(nil)
)

const timeFormat = "15:04"

// bubbleShare is the fraction of the width a user message may occupy.
const bubbleShare = 0.75

// NewMessageBlock creates the block for msg.
func NewMessageBlock(msg coach.Message, theme coach.Theme, styles Styles) MessageBlock {
	if msg.Sender == coach.SenderUser {
		return NewUserMessageBlock(msg.Text, msg.Timestamp, styles)
	}
	return NewAssistantMessageBlock(msg.Text, msg.Timestamp, theme, styles)
}

// UserMessageBlock renders a user message flush right.
type UserMessageBlock struct {
	text   string
	at     time.Time
	styles Styles
}

// NewUserMessageBlock creates a UserMessageBlock.
func NewUserMessageBlock(text string, at time.Time, styles Styles) *UserMessageBlock {
	return &UserMessageBlock{text: text, at: at, styles: styles}
}

func (b *UserMessageBlock) View(width int) string {
	bubble := max(int(float64(width)*bubbleShare), 1)
	wrapped := lipgloss.NewStyle().Width(bubble).Render(b.text)

	var out []string
	for _, line := range strings.Split(wrapped, "\n") {
		line = strings.TrimRight(line, " ")
		out = append(out, alignRight(b.styles.User.Render(line), uniseg.StringWidth(line), width))
	}
	if !b.at.IsZero() {
		stamp := b.at.Local().Format(timeFormat)
		out = append(out, alignRight(b.styles.Muted.Render(stamp), uniseg.StringWidth(stamp), width))
	}
	return strings.Join(out, "\n")
}

// alignRight pads styled, whose visible width is visible, to end at width.
func alignRight(styled string, visible, width int) string {
	if visible >= width {
		return styled
	}
	return strings.Repeat(" ", width-visible) + styled
}

// AssistantMessageBlock renders a reply as markdown. Rendering is cached per
// width since replies never change once received.
type AssistantMessageBlock struct {
	text    string
	at      time.Time
	theme   coach.Theme
	styles  Styles
	byWidth map[int]string
}

// NewAssistantMessageBlock creates an AssistantMessageBlock.
func NewAssistantMessageBlock(text string, at time.Time, theme coach.Theme, styles Styles) *AssistantMessageBlock {
	return &AssistantMessageBlock{text: text, at: at, theme: theme, styles: styles, byWidth: make(map[int]string)}
}

func (b *AssistantMessageBlock) View(width int) string {
	if cached, ok := b.byWidth[width]; ok {
		return cached
	}
	var sb strings.Builder
	sb.WriteString(b.styles.Assistant.Render("CoachAI"))
	if !b.at.IsZero() {
		sb.WriteString(" " + b.styles.Muted.Render(b.at.Local().Format(timeFormat)))
	}
	if body := goldmark.Render(b.text, width, b.theme); body != "" {
		sb.WriteString("\n" + body)
	}
	b.byWidth[width] = sb.String()
	return b.byWidth[width]
}
