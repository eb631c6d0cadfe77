package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	NextField   key.Binding
	PrevField   key.Binding
	NextSection key.Binding
	PrevSection key.Binding
	Jump        key.Binding
	Cycle       key.Binding
	Save        key.Binding
	Theme       key.Binding
	Discard     key.Binding
	Quit        key.Binding
	Help        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		NextField: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev field"),
		),
		NextSection: key.NewBinding(
			key.WithKeys("ctrl+n", "pgdown"),
			key.WithHelp("ctrl+n", "next section / submit"),
		),
		PrevSection: key.NewBinding(
			key.WithKeys("ctrl+p", "pgup"),
			key.WithHelp("ctrl+p", "prev section"),
		),
		Jump: key.NewBinding(
			key.WithKeys("alt+1", "alt+2", "alt+3", "alt+4", "alt+5", "alt+6", "alt+7", "alt+8", "alt+9"),
			key.WithHelp("alt+1..9", "jump to section"),
		),
		Cycle: key.NewBinding(
			key.WithKeys("up", "down"),
			key.WithHelp("↑/↓", "change choice"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save draft"),
		),
		Theme: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "toggle theme"),
		),
		Discard: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "discard"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "save & quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("f1", "more keys"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextField, k.NextSection, k.PrevSection, k.Quit, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextField, k.PrevField, k.Cycle},
		{k.NextSection, k.PrevSection, k.Jump},
		{k.Save, k.Theme, k.Discard, k.Quit},
	}
}
