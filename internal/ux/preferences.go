package ux

import (
	"fmt"
	"sync"

	"brdwizard/internal/logging"
	"brdwizard/internal/store"
)

// Theme is the colour scheme of the interactive front end.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// DefaultTheme applies when no theme is stored.
const DefaultTheme = ThemeDark

// ParseTheme accepts "light" or "dark".
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeLight, ThemeDark:
		return Theme(s), nil
	}
	return "", fmt.Errorf("unknown theme %q (want light or dark)", s)
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// Preferences reads and writes the theme and user mode keys.
type Preferences struct {
	mu sync.Mutex
	kv store.KV
}

// NewPreferences returns Preferences over kv.
func NewPreferences(kv store.KV) *Preferences {
	return &Preferences{kv: kv}
}

// Theme returns the stored theme, or DefaultTheme when absent or unreadable.
func (p *Preferences) Theme() Theme {
	p.mu.Lock()
	defer p.mu.Unlock()
	raw, ok, err := p.kv.Get(store.KeyTheme)
	if err != nil {
		logging.StoreWarn("Failed to read theme: %v", err)
		return DefaultTheme
	}
	if !ok {
		return DefaultTheme
	}
	t, err := ParseTheme(raw)
	if err != nil {
		return DefaultTheme
	}
	return t
}

// SetTheme stores t.
func (p *Preferences) SetTheme(t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.kv.Set(store.KeyTheme, string(t)); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	return nil
}

// UserMode returns the stored mode. Unknown values read as anonymous.
func (p *Preferences) UserMode() UserMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userModeLocked()
}

func (p *Preferences) userModeLocked() UserMode {
	raw, ok, err := p.kv.Get(store.KeyUserMode)
	if err != nil {
		logging.StoreWarn("Failed to read user mode: %v", err)
		return ModeAnonymous
	}
	if !ok || !UserMode(raw).valid() {
		return ModeAnonymous
	}
	return UserMode(raw)
}

// Apply moves the stored mode through ev and returns the resulting mode.
func (p *Preferences) Apply(ev Event) (UserMode, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := p.userModeLocked()
	next, changed := Transition(current, ev)
	if !changed {
		return current, nil
	}
	if err := p.kv.Set(store.KeyUserMode, string(next)); err != nil {
		return current, fmt.Errorf("failed to save user mode: %w", err)
	}
	logging.Auth("User mode %s -> %s", current, next)
	return next, nil
}
