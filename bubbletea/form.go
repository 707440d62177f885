package bubbletea

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/coach"
)

// formField is one labelled input of a form.
type formField struct {
	key   string // coach.Field* name used for validation messages
	label string
	input textinput.Model
}

// form is a vertical stack of text inputs with one focused at a time.
type form struct {
	fields []formField
	focus  int
	errs   coach.ValidationErrors
	err    string // form-level error
	busy   bool
}

func newField(key, label, placeholder string, secret bool) formField {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = ""
	ti.CharLimit = 64
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return formField{key: key, label: label, input: ti}
}

func newSignInForm() form {
	f := form{fields: []formField{
		newField(coach.FieldEmail, "Email", "you@example.com", false),
		newField(coach.FieldPassword, "Password", "", true),
	}}
	f.fields[0].input.Focus()
	return f
}

func newSignUpForm() form {
	f := form{fields: []formField{
		newField(coach.FieldEmail, "Email", "you@example.com", false),
		newField(coach.FieldPassword, "Password", "", true),
		newField(coach.FieldConfirmPassword, "Confirm password", "", true),
	}}
	f.fields[0].input.Focus()
	return f
}

func (f form) value(i int) string { return f.fields[i].input.Value() }

func (f form) setFocus(i int) form {
	n := len(f.fields)
	f.focus = ((i % n) + n) % n
	for j := range f.fields {
		if j == f.focus {
			f.fields[j].input.Focus()
		} else {
			f.fields[j].input.Blur()
		}
	}
	return f
}

// update handles navigation keys and forwards everything else to the
// focused input. Editing a field clears its error.
func (f form) update(msg tea.Msg) (form, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.Type {
		case tea.KeyTab, tea.KeyDown:
			return f.setFocus(f.focus + 1), nil
		case tea.KeyShiftTab, tea.KeyUp:
			return f.setFocus(f.focus - 1), nil
		}
		delete(f.errs, f.fields[f.focus].key)
		f.err = ""
	}
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return f, cmd
}

// clearSecrets empties every password field.
func (f form) clearSecrets() form {
	for i := range f.fields {
		if f.fields[i].input.EchoMode == textinput.EchoPassword {
			f.fields[i].input.SetValue("")
		}
	}
	return f
}

func (f form) view(width int, styles Styles) string {
	var b strings.Builder
	for i, fld := range f.fields {
		label := fld.label
		if i == f.focus {
			b.WriteString(styles.Accent.Render("› " + label))
		} else {
			b.WriteString(styles.Muted.Render("  " + label))
		}
		b.WriteString("\n  ")
		fld.input.Width = max(width-4, 10)
		b.WriteString(fld.input.View())
		b.WriteString("\n")
		if msg := f.errs[fld.key]; msg != "" {
			b.WriteString("  " + styles.Warning.Render(msg) + "\n")
		}
		b.WriteString("\n")
	}
	if f.err != "" {
		b.WriteString(styles.Error.Render(f.err) + "\n")
	}
	return b.String()
}
