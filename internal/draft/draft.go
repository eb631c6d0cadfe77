// Package draft keeps the single in-progress form copy in the local medium.
//
// Failures of the medium never reach callers: they are logged and the
// draft is treated as absent.
package draft

import (
	"encoding/json"

	"brdwizard/internal/logging"
	"brdwizard/internal/records"
	"brdwizard/internal/store"
)

// Store reads and writes the draft key.
type Store struct {
	kv store.KV
}

// New returns a Store over kv.
func New(kv store.KV) *Store {
	return &Store{kv: kv}
}

// Save merges partial into the current draft and persists it immediately.
func (s *Store) Save(partial records.Fields) {
	current := s.Load()
	current.Merge(partial)
	s.write(current)
}

// Load returns the current draft, or an empty mapping.
func (s *Store) Load() records.Fields {
	raw, ok, err := s.kv.Get(store.KeyDraft)
	if err != nil {
		logging.DraftWarn("Draft read failed, treating as absent: %v", err)
		return records.Fields{}
	}
	if !ok || raw == "" {
		return records.Fields{}
	}
	var f records.Fields
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		logging.DraftWarn("Draft is unreadable, treating as absent: %v", err)
		return records.Fields{}
	}
	if f == nil {
		f = records.Fields{}
	}
	return f
}

// Exists reports whether a non-empty draft is stored.
func (s *Store) Exists() bool {
	return len(s.Load()) > 0
}

// Clear removes the draft.
func (s *Store) Clear() {
	if err := s.kv.Remove(store.KeyDraft); err != nil {
		logging.DraftWarn("Draft clear failed: %v", err)
		return
	}
	logging.DraftDebug("Draft cleared")
	logging.Audit(logging.AuditEvent{EventType: logging.AuditDraftClear, Success: true})
}

// LoadRecordAsDraft replaces the draft with rec's fields.
func (s *Store) LoadRecordAsDraft(rec records.Record) {
	s.write(rec.Fields.Clone())
	logging.Draft("Draft seeded from record %s", rec.ID)
}

func (s *Store) write(f records.Fields) {
	data, err := json.Marshal(f)
	if err != nil {
		logging.DraftWarn("Draft encode failed: %v", err)
		return
	}
	if err := s.kv.Set(store.KeyDraft, string(data)); err != nil {
		logging.DraftWarn("Draft write failed: %v", err)
		return
	}
	logging.DraftDebug("Draft saved (%d fields)", len(f))
}
