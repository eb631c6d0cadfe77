// Package ui is the interactive front end of brd: a full-screen wizard that
// renders whatever the wizard controller reports.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"brdwizard/internal/ux"
)

var (
	LightForeground = lipgloss.Color("#101F38")
	LightPrimary    = lipgloss.Color("#101F38")
	LightAccent     = lipgloss.Color("#8BC34A")
	LightMuted      = lipgloss.Color("#6b7380")
	LightBorder     = lipgloss.Color("#dce0e5")

	DarkForeground = lipgloss.Color("#f2f2f2")
	DarkPrimary    = lipgloss.Color("#8BC34A")
	DarkAccent     = lipgloss.Color("#4db6ac")
	DarkMuted      = lipgloss.Color("#8a97ab")
	DarkBorder     = lipgloss.Color("#2a3850")

	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#8BC34A")
	Warning     = lipgloss.Color("#FFC107")
)

// Palette is one colour scheme.
type Palette struct {
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

// PaletteFor returns the palette of a stored theme.
func PaletteFor(t ux.Theme) Palette {
	if t == ux.ThemeLight {
		return Palette{
			Foreground: LightForeground,
			Primary:    LightPrimary,
			Accent:     LightAccent,
			Muted:      LightMuted,
			Border:     LightBorder,
		}
	}
	return Palette{
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		IsDark:     true,
	}
}

// Styles holds the styled components of the wizard screen.
type Styles struct {
	Theme   ux.Theme
	Palette Palette

	Header   lipgloss.Style
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Label    lipgloss.Style
	Focused  lipgloss.Style
	Help     lipgloss.Style
	Muted    lipgloss.Style

	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style

	Step        lipgloss.Style
	CurrentStep lipgloss.Style
	Divider     lipgloss.Style
}

// NewStyles builds Styles for theme.
func NewStyles(theme ux.Theme) Styles {
	p := PaletteFor(theme)
	return Styles{
		Theme:   theme,
		Palette: p,

		Header: lipgloss.NewStyle().
			Foreground(p.Primary).
			Bold(true).
			Padding(0, 1),

		Title: lipgloss.NewStyle().
			Foreground(p.Primary).
			Bold(true).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(p.Muted).
			Italic(true),

		Label: lipgloss.NewStyle().
			Foreground(p.Foreground),

		Focused: lipgloss.NewStyle().
			Foreground(p.Accent).
			Bold(true),

		Help: lipgloss.NewStyle().
			Foreground(p.Muted).
			Padding(0, 1),

		Muted: lipgloss.NewStyle().
			Foreground(p.Muted),

		Success: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive),

		Warning: lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true),

		Step: lipgloss.NewStyle().
			Foreground(p.Muted),

		CurrentStep: lipgloss.NewStyle().
			Foreground(p.Accent).
			Bold(true).
			Underline(true),

		Divider: lipgloss.NewStyle().
			Foreground(p.Border),
	}
}

// RenderDivider returns a horizontal rule.
func (s Styles) RenderDivider(width int) string {
	if width <= 0 {
		width = 40
	}
	return s.Divider.Render(strings.Repeat("─", width))
}
