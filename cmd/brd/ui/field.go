package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"brdwizard/internal/schema"
)

// fieldInput wraps the bubbles widget suited to a field kind.
type fieldInput struct {
	field   schema.Field
	multi   bool
	text    textinput.Model
	area    textarea.Model
	touched bool
}

func newFieldInput(f schema.Field, value string, width int) *fieldInput {
	fi := &fieldInput{field: f, multi: f.Kind == schema.KindTextarea}
	if fi.multi {
		ta := textarea.New()
		ta.ShowLineNumbers = false
		ta.SetHeight(4)
		ta.SetWidth(width)
		ta.CharLimit = 0
		if f.Bounds.Max != nil {
			ta.CharLimit = *f.Bounds.Max + 1
		}
		ta.Placeholder = f.Help
		ta.SetValue(value)
		fi.area = ta
		return fi
	}

	ti := textinput.New()
	ti.Prompt = "› "
	ti.Width = width
	ti.Placeholder = f.Help
	switch f.Kind {
	case schema.KindDate:
		if ti.Placeholder == "" {
			ti.Placeholder = "YYYY-MM-DD"
		}
	case schema.KindChoice:
		ti.Placeholder = strings.Join(f.Options, " / ")
	}
	ti.SetValue(value)
	fi.text = ti
	return fi
}

func (f *fieldInput) Value() string {
	if f.multi {
		return f.area.Value()
	}
	return f.text.Value()
}

func (f *fieldInput) SetValue(v string) {
	if f.multi {
		f.area.SetValue(v)
		return
	}
	f.text.SetValue(v)
	f.text.CursorEnd()
}

func (f *fieldInput) Focus() tea.Cmd {
	if f.multi {
		return f.area.Focus()
	}
	return f.text.Focus()
}

func (f *fieldInput) Blur() {
	if f.multi {
		f.area.Blur()
		return
	}
	f.text.Blur()
}

func (f *fieldInput) SetWidth(w int) {
	if f.multi {
		f.area.SetWidth(w)
		return
	}
	f.text.Width = w
}

// Cycle moves a choice field to the next (delta 1) or previous option.
func (f *fieldInput) Cycle(delta int) bool {
	opts := f.field.Options
	if f.field.Kind != schema.KindChoice || len(opts) == 0 {
		return false
	}
	idx := -1
	for i, o := range opts {
		if o == f.Value() {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(opts)) % len(opts)
	f.SetValue(opts[idx])
	f.touched = true
	return true
}

func (f *fieldInput) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if f.multi {
		f.area, cmd = f.area.Update(msg)
	} else {
		f.text, cmd = f.text.Update(msg)
	}
	if _, ok := msg.(tea.KeyMsg); ok {
		f.touched = true
	}
	return cmd
}

func (f *fieldInput) View() string {
	if f.multi {
		return f.area.View()
	}
	return f.text.View()
}
