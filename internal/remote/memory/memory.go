// Package memory is a process-local records.Remote, used for demos and tests.
package memory

import (
	"context"
	"errors"
	"sync"

	"brdwizard/internal/records"
)

var _ records.Remote = (*Store)(nil)

// Store keeps one map of records per owner.
type Store struct {
	mu      sync.RWMutex
	byOwner map[string]map[string]records.Record
}

// New returns an empty Store.
func New() *Store {
	return &Store{byOwner: make(map[string]map[string]records.Record)}
}

func (s *Store) List(ctx context.Context, ownerID string) ([]records.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]records.Record, 0, len(s.byOwner[ownerID]))
	for _, rec := range s.byOwner[ownerID] {
		out = append(out, rec.Clone())
	}
	records.SortByLastUpdated(out)
	return out, nil
}

func (s *Store) Upsert(ctx context.Context, ownerID string, rec records.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.ID == "" {
		return errors.New("record id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.byOwner[ownerID]
	if bucket == nil {
		bucket = make(map[string]records.Record)
		s.byOwner[ownerID] = bucket
	}
	rec = rec.Clone()
	rec.OwnerID = ownerID
	bucket[rec.ID] = rec
	return nil
}

func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byOwner[ownerID], id)
	return nil
}

// Len returns the number of records held for ownerID.
func (s *Store) Len(ownerID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byOwner[ownerID])
}
