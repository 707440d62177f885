// Package goldmark renders assistant replies, which the coaching service
// formats as markdown, to ANSI-styled terminal text. Parsing is done by
// goldmark and styling by lipgloss.
package goldmark

import (
	"strings"

	"github.com/fwojciec/coach"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// DefaultWidth is used when Render is given a non-positive width.
const DefaultWidth = 80

var parser = goldmark.New(goldmark.WithExtensions(extension.Strikethrough)).Parser()

// Render returns source as styled terminal text wrapped to width. Code is
// never reflowed.
func Render(source string, width int, theme coach.Theme) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	if width <= 0 {
		width = DefaultWidth
	}
	src := []byte(source)
	doc := parser.Parse(text.NewReader(src))

	w := newWriter(src, width, newStyles(theme))
	w.blocks(doc, 0)
	return strings.TrimRight(w.buf.String(), "\n")
}
