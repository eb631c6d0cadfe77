package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"brdwizard/internal/logging"
	"brdwizard/internal/ux"
	"brdwizard/internal/validation"
	"brdwizard/internal/wizard"
)

const defaultInputWidth = 72

// Result is how a wizard run ended.
type Result struct {
	Submitted bool
	RecordID  string
	Discarded bool
	Quit      bool // left mid-way; values are in the draft
}

// Options configure the wizard screen.
type Options struct {
	Theme ux.Theme
	// OnTheme persists a theme change. Optional.
	OnTheme func(ux.Theme) error
}

type stepMsg struct {
	res wizard.StepResult
	err error
}

// WizardModel is the bubbletea model of one wizard session. The controller
// must already be started.
type WizardModel struct {
	ctx    context.Context
	ctrl   *wizard.Controller
	opts   Options
	styles Styles
	keys   keyMap
	help   help.Model

	inputs   []*fieldInput
	focus    int
	section  int
	failures map[string]validation.Result
	status   string
	isError  bool
	busy     bool
	width    int
	result   Result
}

// NewWizard returns the model for a started controller.
func NewWizard(ctx context.Context, ctrl *wizard.Controller, opts Options) WizardModel {
	if opts.Theme == "" {
		opts.Theme = ux.DefaultTheme
	}
	m := WizardModel{
		ctx:      ctx,
		ctrl:     ctrl,
		opts:     opts,
		styles:   NewStyles(opts.Theme),
		keys:     defaultKeyMap(),
		help:     help.New(),
		failures: make(map[string]validation.Result),
		width:    defaultInputWidth,
	}
	m.loadSection()
	return m
}

// Result reports how the session ended.
func (m WizardModel) Result() Result { return m.result }

// loadSection rebuilds the inputs for the controller's current section.
func (m *WizardModel) loadSection() {
	sec := m.ctrl.Section()
	m.section = m.ctrl.Session().Index
	m.inputs = make([]*fieldInput, 0, len(sec.Fields))
	for _, f := range sec.Fields {
		m.inputs = append(m.inputs, newFieldInput(f, m.ctrl.Value(f.Key), m.width))
	}
	m.focus = 0
	if len(m.inputs) > 0 {
		m.inputs[0].Focus()
	}
}

func (m WizardModel) Init() tea.Cmd {
	if len(m.inputs) == 0 {
		return nil
	}
	return m.inputs[m.focus].Focus()
}

func (m WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(20, min(msg.Width-4, 100))
		m.help.Width = msg.Width
		for _, in := range m.inputs {
			in.SetWidth(m.width)
		}
		return m, nil

	case stepMsg:
		return m.handleStep(msg)

	case tea.KeyMsg:
		if m.busy && msg.String() != "ctrl+c" {
			return m, nil
		}
		return m.handleKey(msg)
	}

	if len(m.inputs) > 0 {
		return m, m.inputs[m.focus].Update(msg)
	}
	return m, nil
}

func (m WizardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.sync()
		if err := m.ctrl.Checkpoint(); err != nil && !errors.Is(err, wizard.ErrSessionClosed) {
			logging.WizardWarn("Checkpoint on quit failed: %v", err)
		}
		m.result.Quit = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Discard):
		if err := m.ctrl.Discard(); err != nil {
			return m.setStatus(err.Error(), true), nil
		}
		m.result.Discarded = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.NextField):
		cmd := m.moveFocus(1)
		return m, cmd

	case key.Matches(msg, m.keys.PrevField):
		cmd := m.moveFocus(-1)
		return m, cmd

	case key.Matches(msg, m.keys.NextSection):
		m.sync()
		m.busy = true
		m.status = "Checking section…"
		m.isError = false
		ctx, ctrl := m.ctx, m.ctrl
		return m, func() tea.Msg {
			res, err := ctrl.Next(ctx)
			return stepMsg{res: res, err: err}
		}

	case key.Matches(msg, m.keys.PrevSection):
		m.sync()
		if err := m.ctrl.Previous(); err != nil {
			if errors.Is(err, wizard.ErrFirstSection) {
				return m.setStatus("Already at the first section", false), nil
			}
			return m.setStatus(err.Error(), true), nil
		}
		m.failures = make(map[string]validation.Result)
		m.loadSection()
		return m.setStatus("", false), nil

	case key.Matches(msg, m.keys.Jump):
		m.sync()
		idx := int(msg.String()[len(msg.String())-1]-'1')
		if err := m.ctrl.JumpTo(idx); err != nil {
			return m.setStatus(fmt.Sprintf("No section %d", idx+1), true), nil
		}
		m.failures = make(map[string]validation.Result)
		m.loadSection()
		return m.setStatus("", false), nil

	case key.Matches(msg, m.keys.Save):
		m.sync()
		if err := m.ctrl.Checkpoint(); err != nil {
			return m.setStatus(err.Error(), true), nil
		}
		return m.setStatus("Draft saved", false), nil

	case key.Matches(msg, m.keys.Theme):
		next := m.styles.Theme.Toggle()
		m.styles = NewStyles(next)
		if m.opts.OnTheme != nil {
			if err := m.opts.OnTheme(next); err != nil {
				return m.setStatus(err.Error(), true), nil
			}
		}
		return m.setStatus("Theme: "+string(next), false), nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Cycle):
		if len(m.inputs) > 0 {
			delta := 1
			if msg.String() == "up" {
				delta = -1
			}
			if m.inputs[m.focus].Cycle(delta) {
				m.syncField(m.focus)
				return m, nil
			}
		}

	case msg.Type == tea.KeyEnter:
		if len(m.inputs) > 0 && !m.inputs[m.focus].multi {
			cmd := m.moveFocus(1)
			return m, cmd
		}
	}

	if len(m.inputs) == 0 {
		return m, nil
	}
	cmd := m.inputs[m.focus].Update(msg)
	m.syncField(m.focus)
	return m, cmd
}

func (m WizardModel) handleStep(msg stepMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.err != nil {
		if errors.Is(msg.err, wizard.ErrSaveFailed) {
			return m.setStatus("Save failed, your answers are kept in the draft: "+msg.err.Error(), true), nil
		}
		return m.setStatus(msg.err.Error(), true), nil
	}

	res := msg.res
	switch {
	case len(res.Failures) > 0:
		m.failures = res.Failures
		for i, in := range m.inputs {
			in.touched = true
			if _, bad := res.Failures[in.field.Key]; bad && i != m.focus {
				m.inputs[m.focus].Blur()
				m.focus = i
				m.inputs[i].Focus()
				break
			}
		}
		return m.setStatus(fmt.Sprintf("%d field(s) need attention", len(res.Failures)), true), nil

	case res.Submitted:
		m.result.Submitted = true
		m.result.RecordID = res.RecordID
		return m.setStatus("Saved", false), tea.Quit

	default:
		m.failures = make(map[string]validation.Result)
		m.loadSection()
		cmd := m.Init()
		return m.setStatus("", false), cmd
	}
}

func (m *WizardModel) moveFocus(delta int) tea.Cmd {
	if len(m.inputs) == 0 {
		return nil
	}
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.inputs)) % len(m.inputs)
	return m.inputs[m.focus].Focus()
}

// sync pushes every input value into the controller.
func (m *WizardModel) sync() {
	for i := range m.inputs {
		m.syncField(i)
	}
}

func (m *WizardModel) syncField(i int) {
	in := m.inputs[i]
	if err := m.ctrl.SetValue(in.field.Key, in.Value()); err != nil {
		logging.WizardDebug("SetValue(%s): %v", in.field.Key, err)
		return
	}
	if !in.touched {
		return
	}
	if r := m.ctrl.CheckField(in.field.Key); r.Valid {
		delete(m.failures, in.field.Key)
	} else {
		m.failures[in.field.Key] = r
	}
}

func (m WizardModel) setStatus(s string, isError bool) WizardModel {
	m.status = s
	m.isError = isError
	return m
}

func (m WizardModel) View() string {
	var b strings.Builder
	s := m.styles
	sch := m.ctrl.Schema()
	cur, total := m.ctrl.Progress()

	mode := m.ctrl.Session().Mode
	b.WriteString(s.Header.Render(fmt.Sprintf("%s · %s", sch.Name(), mode)))
	b.WriteString("\n")

	steps := make([]string, 0, total)
	for i, sec := range sch.Sections() {
		label := fmt.Sprintf("%d %s", i+1, sec.Title)
		if i == cur-1 {
			steps = append(steps, s.CurrentStep.Render(label))
		} else {
			steps = append(steps, s.Step.Render(label))
		}
	}
	b.WriteString(lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(steps, s.Muted.Render(" › "))))
	b.WriteString("\n")
	b.WriteString(s.RenderDivider(m.width))
	b.WriteString("\n\n")

	sec := m.ctrl.Section()
	b.WriteString(s.Title.Render(fmt.Sprintf("Step %d of %d: %s", cur, total, sec.Title)))
	b.WriteString("\n")
	if sec.Description != "" {
		b.WriteString(s.Subtitle.Render(sec.Description))
		b.WriteString("\n\n")
	}

	for i, in := range m.inputs {
		label := in.field.Label
		if in.field.Required {
			label += " *"
		}
		if i == m.focus {
			b.WriteString(s.Focused.Render(label))
		} else {
			b.WriteString(s.Label.Render(label))
		}
		b.WriteString("\n")
		b.WriteString(in.View())
		b.WriteString("\n")
		if f, bad := m.failures[in.field.Key]; bad {
			b.WriteString(s.Error.Render("  " + f.Reason))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.status != "" {
		if m.isError {
			b.WriteString(s.Warning.Render(m.status))
		} else {
			b.WriteString(s.Success.Render(m.status))
		}
		b.WriteString("\n")
	}
	b.WriteString(s.Help.Render(m.help.View(m.keys)))
	b.WriteString("\n")
	return b.String()
}

// RunWizard runs the full-screen wizard until the session ends.
func RunWizard(ctx context.Context, ctrl *wizard.Controller, opts Options) (Result, error) {
	p := tea.NewProgram(NewWizard(ctx, ctrl, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return Result{}, fmt.Errorf("wizard UI failed: %w", err)
	}
	fm, ok := final.(WizardModel)
	if !ok {
		return Result{}, fmt.Errorf("unexpected model %T", final)
	}
	return fm.Result(), nil
}
