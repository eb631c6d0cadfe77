package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"brdwizard/internal/logging"
)

// SessionFile is the name of the session document inside the data directory.
const SessionFile = "session.json"

// FileProvider keeps the identity in <dataDir>/session.json.
//
// SignIn and SignOut rewrite the file and notify listeners directly. After
// Start, edits made by other processes are picked up through fsnotify.
type FileProvider struct {
	mu       sync.RWMutex
	dir      string
	path     string
	identity Identity
	ok       bool
	subs     listeners

	watcher     *fsnotify.Watcher
	debounceDur time.Duration
	pending     time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	now         func() time.Time
}

// NewFileProvider loads the session in dataDir, if any.
func NewFileProvider(dataDir string) (*FileProvider, error) {
	if dataDir == "" {
		return nil, errors.New("data directory required")
	}
	p := &FileProvider{
		dir:         dataDir,
		path:        filepath.Join(dataDir, SessionFile),
		debounceDur: 150 * time.Millisecond,
		now:         time.Now,
	}
	id, ok, err := p.read()
	if err != nil {
		return nil, err
	}
	p.identity, p.ok = id, ok
	return p, nil
}

// Path returns the session file path.
func (p *FileProvider) Path() string { return p.path }

func (p *FileProvider) CurrentIdentity() (Identity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.identity, p.ok
}

func (p *FileProvider) OnIdentityChanged(fn Listener) func() {
	return p.subs.add(fn)
}

// SignIn writes the session file for userID.
func (p *FileProvider) SignIn(userID, name string) (Identity, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Identity{}, errors.New("user id required")
	}
	id := Identity{ID: userID, Name: name, SignedInAt: p.now().UnixMilli()}

	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return Identity{}, fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return Identity{}, fmt.Errorf("failed to create data directory: %w", err)
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return Identity{}, fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return Identity{}, fmt.Errorf("failed to write session: %w", err)
	}

	logging.Auth("Signed in as %s", userID)
	logging.Audit(logging.AuditEvent{EventType: logging.AuditIdentitySwap, OwnerID: userID, Success: true})
	p.apply(id, true)
	return id, nil
}

// SignOut removes the session file.
func (p *FileProvider) SignOut() error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	logging.Auth("Signed out")
	logging.Audit(logging.AuditEvent{EventType: logging.AuditIdentitySwap, Success: true})
	p.apply(Identity{}, false)
	return nil
}

// apply records the identity and notifies listeners when it changed.
func (p *FileProvider) apply(id Identity, ok bool) {
	p.mu.Lock()
	changed := ok != p.ok || id.ID != p.identity.ID
	p.identity, p.ok = id, ok
	p.mu.Unlock()

	if changed {
		p.subs.notify(id, ok)
	}
}

func (p *FileProvider) read() (Identity, bool, error) {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return Identity{}, false, nil
	}
	if err != nil {
		return Identity{}, false, fmt.Errorf("failed to read session: %w", err)
	}
	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		logging.AuthWarn("Ignoring unreadable session file %s: %v", p.path, err)
		return Identity{}, false, nil
	}
	if id.ID == "" {
		return Identity{}, false, nil
	}
	return id, true, nil
}

// Start watches the session file until ctx ends or Close is called.
func (p *FileProvider) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		p.mu.Unlock()
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		p.mu.Unlock()
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watch the directory: the file itself is replaced by rename and may not exist yet.
	if err := w.Add(p.dir); err != nil {
		w.Close()
		p.mu.Unlock()
		return fmt.Errorf("failed to watch %s: %w", p.dir, err)
	}
	p.watcher = w
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.running = true
	p.mu.Unlock()

	logging.Auth("Watching session file %s", p.path)
	go p.run(ctx)
	return nil
}

// Close stops the watcher. It is safe to call when not started.
func (p *FileProvider) Close() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	close(p.stopCh)
	<-p.doneCh
	return p.watcher.Close()
}

func (p *FileProvider) run(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(p.path) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logging.AuthDebug("Session file event %s", event.Op)
			p.mu.Lock()
			p.pending = time.Now()
			p.mu.Unlock()
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			logging.AuthWarn("Session watcher error: %v", err)
		case <-ticker.C:
			p.mu.Lock()
			due := !p.pending.IsZero() && time.Since(p.pending) >= p.debounceDur
			if due {
				p.pending = time.Time{}
			}
			p.mu.Unlock()
			if due {
				p.reload()
			}
		}
	}
}

func (p *FileProvider) reload() {
	id, ok, err := p.read()
	if err != nil {
		logging.AuthWarn("Session reload failed: %v", err)
		return
	}
	p.apply(id, ok)
}
