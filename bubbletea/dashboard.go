package bubbletea

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/coach"
	"github.com/mattn/go-runewidth"
)

// QuestionCounts are the question counts offered when creating a chat.
var QuestionCounts = []int{coach.DefaultQuestionCount, 10, 15, 20}

const dateFormat = "Jan 2, 2006 03:04 PM"

// Fields of the new chat form in focus order.
const (
	chatFieldName = iota
	chatFieldTechnology
	chatFieldGrade
	chatFieldQuestions
	chatFieldCount
)

// chatForm collects a coach.NewChat. Technology and grade start unselected.
type chatForm struct {
	name      textinput.Model
	focus     int
	tech      int // index into coach.Technologies, -1 when unselected
	grade     int // index into coach.Grades, -1 when unselected
	questions int // index into QuestionCounts
	err       string
	busy      bool
}

func newChatForm() chatForm {
	ti := textinput.New()
	ti.Placeholder = "e.g. Interview prep"
	ti.Prompt = ""
	ti.CharLimit = 64
	ti.Focus()
	return chatForm{name: ti, tech: -1, grade: -1}
}

func (f chatForm) request(id string) coach.NewChat {
	nc := coach.NewChat{
		ID:            id,
		Name:          strings.TrimSpace(f.name.Value()),
		QuestionCount: QuestionCounts[f.questions],
	}
	if f.tech >= 0 {
		nc.Technology = coach.Technologies[f.tech]
	}
	if f.grade >= 0 {
		nc.Grade = coach.Grades[f.grade]
	}
	return nc
}

func (f chatForm) update(msg tea.Msg) (chatForm, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.Type {
		case tea.KeyTab, tea.KeyDown:
			return f.setFocus(f.focus + 1), nil
		case tea.KeyShiftTab, tea.KeyUp:
			return f.setFocus(f.focus - 1), nil
		case tea.KeyLeft, tea.KeyRight:
			if f.focus != chatFieldName {
				step := 1
				if k.Type == tea.KeyLeft {
					step = -1
				}
				f.err = ""
				return f.cycle(step), nil
			}
		}
		if f.focus != chatFieldName {
			return f, nil
		}
		f.err = ""
	}
	var cmd tea.Cmd
	f.name, cmd = f.name.Update(msg)
	return f, cmd
}

func (f chatForm) setFocus(i int) chatForm {
	f.focus = ((i % chatFieldCount) + chatFieldCount) % chatFieldCount
	if f.focus == chatFieldName {
		f.name.Focus()
	} else {
		f.name.Blur()
	}
	return f
}

// cycle moves the focused picker by step, wrapping around. An unselected
// picker starts at the first or last option.
func (f chatForm) cycle(step int) chatForm {
	wrap := func(i, n int) int {
		if i < 0 {
			if step > 0 {
				return 0
			}
			return n - 1
		}
		return ((i+step)%n + n) % n
	}
	switch f.focus {
	case chatFieldTechnology:
		f.tech = wrap(f.tech, len(coach.Technologies))
	case chatFieldGrade:
		f.grade = wrap(f.grade, len(coach.Grades))
	case chatFieldQuestions:
		f.questions = wrap(f.questions, len(QuestionCounts))
	}
	return f
}

func (f chatForm) view(width int, styles Styles) string {
	tech, grade := "Select technology", "Select experience"
	if f.tech >= 0 {
		tech = coach.Technologies[f.tech].Label()
	}
	if f.grade >= 0 {
		grade = coach.Grades[f.grade].Label()
	}
	rows := []struct{ label, value string }{
		{"Session Name", ""},
		{"Technology", "‹ " + tech + " ›"},
		{"Experience Level", "‹ " + grade + " ›"},
		{"Questions Amount", fmt.Sprintf("‹ %d questions ›", QuestionCounts[f.questions])},
	}

	var b strings.Builder
	b.WriteString(styles.Accent.Render("Start a new coaching session") + "\n\n")
	for i, r := range rows {
		if i == f.focus {
			b.WriteString(styles.Accent.Render("› " + r.label))
		} else {
			b.WriteString(styles.Muted.Render("  " + r.label))
		}
		b.WriteString("\n  ")
		if i == chatFieldName {
			f.name.Width = max(width-4, 10)
			b.WriteString(f.name.View())
		} else {
			b.WriteString(r.value)
		}
		b.WriteString("\n")
	}
	if f.err != "" {
		b.WriteString("\n" + styles.Error.Render(f.err) + "\n")
	}
	if f.busy {
		b.WriteString("\n" + styles.Muted.Render("Creating...") + "\n")
	}
	return b.String()
}

// firstValidationMessage returns the message for the earliest field in form
// order, matching how the form is read top to bottom.
func firstValidationMessage(err error) string {
	var verrs coach.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	for _, f := range []string{coach.FieldName, coach.FieldTechnology, coach.FieldGrade, coach.FieldQuestionCount} {
		if msg, ok := verrs[f]; ok {
			return msg
		}
	}
	return err.Error()
}

// dashboard lists the user's chats and hosts the new chat form.
type dashboard struct {
	chats    []coach.ChatSession
	cursor   int
	loading  bool
	err      string
	creating bool
	form     chatForm
}

func (d dashboard) selected() (coach.ChatSession, bool) {
	if d.cursor < 0 || d.cursor >= len(d.chats) {
		return coach.ChatSession{}, false
	}
	return d.chats[d.cursor], true
}

func (d dashboard) moveCursor(step int) dashboard {
	if len(d.chats) == 0 {
		return d
	}
	d.cursor = min(max(d.cursor+step, 0), len(d.chats)-1)
	return d
}

func (d dashboard) view(width int, styles Styles) string {
	var b strings.Builder
	if d.creating {
		b.WriteString(d.form.view(width, styles))
		b.WriteString("\n")
	}
	b.WriteString(styles.Accent.Render("Your Chats") + "\n\n")
	switch {
	case d.loading:
		b.WriteString(styles.Muted.Render("Loading chats...") + "\n")
	case d.err != "":
		b.WriteString(styles.Error.Render(d.err) + "\n")
	case len(d.chats) == 0:
		b.WriteString(styles.Muted.Render("No chats yet. Press n to start a coaching session.") + "\n")
	default:
		for i, c := range d.chats {
			b.WriteString(chatRow(c, i == d.cursor && !d.creating, width, styles) + "\n")
		}
	}
	return b.String()
}

// chatRow renders one chat as its title, truncated to fit, followed by the
// creation date.
func chatRow(c coach.ChatSession, selected bool, width int, styles Styles) string {
	date := ""
	if !c.CreatedAt.IsZero() {
		date = c.CreatedAt.Local().Format(dateFormat)
	}
	titleWidth := max(width-runewidth.StringWidth(date)-4, 8)
	title := runewidth.Truncate(c.Title(), titleWidth, "…")
	title = runewidth.FillRight(title, titleWidth)

	marker := "  "
	if selected {
		marker = "› "
		title = styles.Selected.Render(title)
	}
	return marker + title + "  " + styles.Muted.Render(date)
}
