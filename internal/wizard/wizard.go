// Package wizard drives a multi-section form session.
//
// The Controller owns the canonical field values. Presentation layers read
// and write values through it and render whatever it reports; they never
// hold their own copy.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"brdwizard/internal/logging"
	"brdwizard/internal/records"
	"brdwizard/internal/schema"
	"brdwizard/internal/validation"
)

var (
	ErrSaveFailed        = errors.New("wizard: save failed")
	ErrFirstSection      = errors.New("wizard: already at first section")
	ErrSectionOutOfRange = errors.New("wizard: section index out of range")
	ErrUnknownField      = errors.New("wizard: unknown field")
	ErrSessionClosed     = errors.New("wizard: session closed")
)

// Mode selects whether a session creates a record or edits one.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// Drafts is the subset of the draft store the controller needs.
type Drafts interface {
	Save(partial records.Fields)
	Load() records.Fields
	Clear()
	LoadRecordAsDraft(rec records.Record)
}

// Records is the subset of the record store the controller needs.
type Records interface {
	Save(ctx context.Context, rec records.Record) (string, error)
	LoadOne(ctx context.Context, ident records.Identifier) (records.Record, error)
}

// Session is the state of one wizard run.
type Session struct {
	Mode      Mode
	Index     int
	RecordID  string // set in edit mode, and after a successful submit
	CreatedAt int64
	OwnerID   string
	StartedAt time.Time
	Submitted bool
}

// StepResult reports what Next did.
type StepResult struct {
	Advanced  bool
	Submitted bool
	RecordID  string
	Failures  map[string]validation.Result
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the time source for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller runs wizard sessions over a compiled schema.
type Controller struct {
	mu      sync.Mutex
	schema  *schema.Schema
	drafts  Drafts
	records Records
	now     func() time.Time

	session Session
	values  records.Fields
	open    bool
}

// New returns a Controller. Call Start before anything else.
func New(sc *schema.Schema, drafts Drafts, recs Records, opts ...Option) *Controller {
	c := &Controller{
		schema:  sc,
		drafts:  drafts,
		records: recs,
		now:     time.Now,
		values:  make(records.Fields),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins a session at the first section.
//
// Create mode resumes the cached draft. Edit mode loads recordID and makes
// its fields the draft. Keys the draft lacks get the schema defaults.
func (c *Controller) Start(ctx context.Context, mode Mode, recordID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess := Session{Mode: mode, StartedAt: c.now()}
	var seed records.Fields

	switch mode {
	case ModeEdit:
		rec, err := c.records.LoadOne(ctx, records.ByID(recordID))
		if err != nil {
			return fmt.Errorf("failed to load record %s: %w", recordID, err)
		}
		c.drafts.LoadRecordAsDraft(rec)
		sess.RecordID = rec.ID
		sess.CreatedAt = rec.CreatedAt
		sess.OwnerID = rec.OwnerID
		seed = rec.Fields
	default:
		seed = c.drafts.Load()
	}

	values := records.Fields(c.schema.Defaults())
	values.Merge(records.Fields(c.schema.Normalize(seed)))

	c.session = sess
	c.values = values
	c.open = true
	logging.Wizard("Started %s session (%d sections, record=%q)", mode, c.schema.Len(), sess.RecordID)
	return nil
}

// SetValue records the value of key.
func (c *Controller) SetValue(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrSessionClosed
	}
	if _, ok := c.schema.Field(key); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	c.values[key] = value
	return nil
}

// Value returns the current value of key.
func (c *Controller) Value(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key]
}

// Values returns a copy of all current values.
func (c *Controller) Values() records.Fields {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values.Clone()
}

// CheckField validates the current value of key without side effects.
func (c *Controller) CheckField(key string) validation.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.schema.Field(key)
	if !ok {
		return validation.Result{Valid: true}
	}
	return validation.Validate(f, c.values[key])
}

// Next validates the current section and advances. On the last section it
// saves the record instead.
//
// Validation failures are reported in the result with a nil error and leave
// the session untouched.
func (c *Controller) Next(ctx context.Context) (StepResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return StepResult{}, ErrSessionClosed
	}

	sec := c.schema.Section(c.session.Index)
	if failures := validation.ValidateSection(sec, c.values); len(failures) > 0 {
		logging.WizardDebug("Section %q blocked by %d invalid field(s)", sec.Key, len(failures))
		return StepResult{Failures: failures}, nil
	}

	c.checkpointLocked()
	if c.session.Index < c.schema.Len()-1 {
		c.session.Index++
		return StepResult{Advanced: true}, nil
	}
	return c.submitLocked(ctx)
}

func (c *Controller) submitLocked(ctx context.Context) (StepResult, error) {
	rec := records.Record{Fields: c.values.Clone()}
	if c.session.Mode == ModeEdit {
		rec.ID = c.session.RecordID
		rec.CreatedAt = c.session.CreatedAt
		rec.OwnerID = c.session.OwnerID
	}

	id, err := c.records.Save(ctx, rec)
	if err != nil {
		logging.WizardWarn("Submit failed, staying on last section: %v", err)
		return StepResult{}, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	c.drafts.Clear()
	c.session.RecordID = id
	c.session.Submitted = true
	c.open = false
	logging.Wizard("Submitted record %s after %s", id, c.now().Sub(c.session.StartedAt).Round(time.Millisecond))
	return StepResult{Submitted: true, RecordID: id}, nil
}

// Previous keeps the current section in the draft, unvalidated, and steps back.
func (c *Controller) Previous() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrSessionClosed
	}
	if c.session.Index == 0 {
		return ErrFirstSection
	}
	c.checkpointLocked()
	c.session.Index--
	return nil
}

// JumpTo keeps the current section in the draft and moves to index.
// Sections in between are not validated.
func (c *Controller) JumpTo(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrSessionClosed
	}
	if index < 0 || index >= c.schema.Len() {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrSectionOutOfRange, index, c.schema.Len()-1)
	}
	c.checkpointLocked()
	c.session.Index = index
	return nil
}

// Checkpoint writes the current section's values to the draft without moving.
func (c *Controller) Checkpoint() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrSessionClosed
	}
	c.checkpointLocked()
	return nil
}

// CheckpointAll writes the values of every section to the draft without
// moving. Used when answers for later sections arrive ahead of the walk.
func (c *Controller) CheckpointAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrSessionClosed
	}
	c.drafts.Save(c.values.Clone())
	return nil
}

func (c *Controller) checkpointLocked() {
	sec := c.schema.Section(c.session.Index)
	partial := make(records.Fields, len(sec.Fields))
	for _, f := range sec.Fields {
		partial[f.Key] = c.values[f.Key]
	}
	c.drafts.Save(partial)
}

// Discard clears the draft and ends the session.
func (c *Controller) Discard() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrSessionClosed
	}
	c.drafts.Clear()
	c.open = false
	logging.Wizard("Session discarded at section %d", c.session.Index)
	return nil
}

// Open reports whether a session is in progress.
func (c *Controller) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Session returns a copy of the session state.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Section returns the current section.
func (c *Controller) Section() schema.Section {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schema.Section(c.session.Index)
}

// Progress returns the 1-based current section number and the section count.
func (c *Controller) Progress() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Index + 1, c.schema.Len()
}

// Schema returns the schema the controller runs.
func (c *Controller) Schema() *schema.Schema { return c.schema }
