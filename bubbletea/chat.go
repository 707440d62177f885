package bubbletea

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/fwojciec/coach"
)

// chatScreen is the open chat: the transcript, its rendered blocks and the
// message input.
type chatScreen struct {
	transcript *coach.Transcript
	blocks     []MessageBlock
	viewport   viewport.Model
	input      textinput.Model
	loading    bool
	sending    bool
	err        string
}

func newChatScreen(t *coach.Transcript, width, height int) chatScreen {
	ti := textinput.New()
	ti.Placeholder = "Type your message here..."
	ti.Prompt = "> "
	ti.CharLimit = 0
	ti.Focus()
	c := chatScreen{
		transcript: t,
		viewport:   viewport.New(width, 1),
		input:      ti,
		loading:    true,
	}
	return c.resize(width, height)
}

// chatChrome is the number of lines around the viewport: header, blank
// line, status line and input.
const chatChrome = 4

func (c chatScreen) resize(width, height int) chatScreen {
	c.viewport.Width = width
	c.viewport.Height = max(height-chatChrome, 1)
	c.input.Width = max(width-3, 1)
	return c
}

// rebuild recreates blocks from the transcript. Called after the transcript
// changes; blocks cache their own rendering.
func (c chatScreen) rebuild(theme coach.Theme, styles Styles) chatScreen {
	msgs := c.transcript.Messages()
	c.blocks = make([]MessageBlock, len(msgs))
	for i, msg := range msgs {
		c.blocks[i] = NewMessageBlock(msg, theme, styles)
	}
	return c
}

func (c chatScreen) title() string {
	if c.loading {
		return "Loading..."
	}
	if chat, ok := c.transcript.Chat(); ok {
		return chat.Title()
	}
	return "Chat"
}

// content renders the scrollable area.
func (c chatScreen) content(thinking string, styles Styles) string {
	width := c.viewport.Width
	if c.loading {
		return styles.Muted.Render("Loading chat...")
	}
	if len(c.blocks) == 0 && !c.sending {
		topic := "this topic"
		if chat, ok := c.transcript.Chat(); ok {
			topic = chat.Technology.Label()
		}
		return styles.Accent.Render("Start Your Coaching Session") + "\n" +
			styles.Muted.Render("Ask a question or share what you'd like to learn about "+topic+"!")
	}
	var b strings.Builder
	for i, block := range c.blocks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block.View(width))
	}
	if c.sending {
		if len(c.blocks) > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(thinking + " " + styles.Muted.Render("CoachAI is thinking"))
	}
	return b.String()
}

func (c chatScreen) refresh(thinking string, styles Styles) chatScreen {
	c.viewport.SetContent(c.content(thinking, styles))
	c.viewport.GotoBottom()
	return c
}
