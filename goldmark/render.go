package goldmark

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/coach"
	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
)

// minWrap keeps deeply indented blocks readable on narrow terminals.
const minWrap = 10

type styles struct {
	heading lipgloss.Style
	bold    lipgloss.Style
	italic  lipgloss.Style
	strike  lipgloss.Style
	code    lipgloss.Style
	link    lipgloss.Style
	muted   lipgloss.Style
	quote   lipgloss.Style
}

func newStyles(theme coach.Theme) styles {
	return styles{
		heading: lipgloss.NewStyle().Foreground(color(theme.Accent)).Bold(true),
		bold:    lipgloss.NewStyle().Bold(true),
		italic:  lipgloss.NewStyle().Italic(true),
		strike:  lipgloss.NewStyle().Strikethrough(true),
		code:    lipgloss.NewStyle().Foreground(color(theme.Assistant)),
		link:    lipgloss.NewStyle().Underline(true),
		muted:   lipgloss.NewStyle().Foreground(color(theme.Muted)).Faint(true),
		quote:   lipgloss.NewStyle().Foreground(color(theme.Assistant)),
	}
}

func color(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

type writer struct {
	src   []byte
	width int
	st    styles
	buf   bytes.Buffer
}

func newWriter(src []byte, width int, st styles) *writer {
	return &writer{src: src, width: width, st: st}
}

// blocks renders the block children of n, separated by blank lines, with
// every line prefixed by indent spaces.
func (w *writer) blocks(n ast.Node, indent int) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		w.block(c, indent)
		if c.NextSibling() != nil {
			w.buf.WriteByte('\n')
		}
	}
}

func (w *writer) block(n ast.Node, indent int) {
	pad := strings.Repeat(" ", indent)
	switch n := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		w.wrapped(pad, pad, w.inline(n))
	case *ast.Heading:
		w.wrapped(pad, pad, w.st.heading.Render(w.inline(n)))
	case *ast.FencedCodeBlock:
		if lang := n.Language(w.src); len(lang) > 0 {
			w.buf.WriteString(pad + w.st.muted.Render(string(lang)) + "\n")
		}
		w.code(n, pad)
	case *ast.CodeBlock:
		w.code(n, pad)
	case *ast.List:
		w.list(n, indent)
	case *ast.Blockquote:
		sub := newWriter(w.src, max(w.width-indent-2, minWrap), w.st)
		sub.blocks(n, 0)
		bar := w.st.quote.Render("┃") + " "
		for _, line := range strings.Split(strings.TrimRight(sub.buf.String(), "\n"), "\n") {
			w.buf.WriteString(pad + bar + line + "\n")
		}
	case *ast.ThematicBreak:
		w.buf.WriteString(pad + w.st.muted.Render(strings.Repeat("─", max(w.width-indent, 3))) + "\n")
	case *ast.HTMLBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			w.buf.WriteString(pad + strings.TrimRight(string(seg.Value(w.src)), "\n") + "\n")
		}
	default:
		w.blocks(n, indent)
	}
}

func (w *writer) code(n ast.Node, pad string) {
	gutter := pad + w.st.muted.Render("│") + " "
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(w.src)), "\n")
		w.buf.WriteString(gutter + w.st.code.Render(line) + "\n")
	}
}

func (w *writer) list(n *ast.List, indent int) {
	num := n.Start
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		marker := "• "
		if n.IsOrdered() {
			marker = strconv.Itoa(num) + ". "
			num++
		}
		first := strings.Repeat(" ", indent) + marker
		rest := strings.Repeat(" ", lipgloss.Width(first))
		for ic := item.FirstChild(); ic != nil; ic = ic.NextSibling() {
			switch ic := ic.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				w.wrapped(first, rest, w.inline(ic))
			default:
				w.block(ic, len(rest))
			}
			first = rest
		}
	}
}

// wrapped writes content wrapped to the remaining width, with first before
// the first line and rest before each continuation line.
func (w *writer) wrapped(first, rest, content string) {
	width := max(w.width-len(rest), minWrap)
	lines := strings.Split(lipgloss.NewStyle().Width(width).Render(content), "\n")
	for i, line := range lines {
		prefix := rest
		if i == 0 {
			prefix = first
		}
		w.buf.WriteString(prefix + strings.TrimRight(line, " ") + "\n")
	}
}

func (w *writer) inline(n ast.Node) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		w.span(c, &b)
	}
	return b.String()
}

func (w *writer) span(n ast.Node, b *strings.Builder) {
	switch n := n.(type) {
	case *ast.Text:
		b.Write(n.Segment.Value(w.src))
		switch {
		case n.HardLineBreak():
			b.WriteByte('\n')
		case n.SoftLineBreak():
			b.WriteByte(' ')
		}
	case *ast.String:
		b.Write(n.Value)
	case *ast.Emphasis:
		if n.Level == 1 {
			b.WriteString(w.st.italic.Render(w.inline(n)))
		} else {
			b.WriteString(w.st.bold.Render(w.inline(n)))
		}
	case *east.Strikethrough:
		b.WriteString(w.st.strike.Render(w.inline(n)))
	case *ast.CodeSpan:
		b.WriteString(w.st.code.Render(w.inline(n)))
	case *ast.Link:
		b.WriteString(w.st.link.Render(w.inline(n)))
		b.WriteString(" " + w.st.muted.Render("("+string(n.Destination)+")"))
	case *ast.AutoLink:
		b.WriteString(w.st.link.Render(string(n.URL(w.src))))
	case *ast.Image:
		b.WriteString(w.st.link.Render(w.inline(n)))
		b.WriteString(" " + w.st.muted.Render("("+string(n.Destination)+")"))
	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			b.Write(seg.Value(w.src))
		}
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			w.span(c, b)
		}
	}
}
