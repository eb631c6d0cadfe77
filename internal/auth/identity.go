// Package auth supplies the signed-in identity that scopes the remote record
// collection. The core only observes identities; signing in and out is done
// by the CLI through FileProvider.
package auth

import (
	"sync"
)

// Identity is a signed-in user.
type Identity struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	SignedInAt int64  `json:"signedInAt,omitempty"` // Unix milliseconds
}

// Listener is called with the new identity, or ok=false after sign-out.
type Listener func(id Identity, ok bool)

// Provider reports the current identity and its changes.
type Provider interface {
	CurrentIdentity() (Identity, bool)
	// OnIdentityChanged registers fn and returns a function that removes it.
	OnIdentityChanged(fn Listener) (cancel func())
}

// listeners is the registry shared by the providers in this package.
type listeners struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]Listener
}

func (l *listeners) add(fn Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]Listener)
	}
	id := l.nextID
	l.nextID++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

func (l *listeners) notify(id Identity, ok bool) {
	l.mu.Lock()
	fns := make([]Listener, 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(id, ok)
	}
}

// Static is an in-memory Provider. The zero value is signed out.
type Static struct {
	mu       sync.RWMutex
	identity Identity
	ok       bool
	subs     listeners
}

// NewStatic returns a Static signed in as id.
func NewStatic(id Identity) *Static {
	return &Static{identity: id, ok: true}
}

// Anonymous returns a signed-out Static.
func Anonymous() *Static {
	return &Static{}
}

func (s *Static) CurrentIdentity() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.ok
}

func (s *Static) OnIdentityChanged(fn Listener) func() {
	return s.subs.add(fn)
}

// Set switches the identity and notifies listeners.
func (s *Static) Set(id Identity) {
	s.mu.Lock()
	s.identity, s.ok = id, true
	s.mu.Unlock()
	s.subs.notify(id, true)
}

// Clear signs out and notifies listeners.
func (s *Static) Clear() {
	s.mu.Lock()
	s.identity, s.ok = Identity{}, false
	s.mu.Unlock()
	s.subs.notify(Identity{}, false)
}
