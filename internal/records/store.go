package records

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"brdwizard/internal/auth"
	"brdwizard/internal/logging"
	"brdwizard/internal/schema"
	"brdwizard/internal/store"
)

// Remote is a per-owner record collection keyed by record id.
type Remote interface {
	// List returns the owner's records, newest first.
	List(ctx context.Context, ownerID string) ([]Record, error)
	Upsert(ctx context.Context, ownerID string, rec Record) error
	Delete(ctx context.Context, ownerID, id string) error
}

// Identities reports the signed-in identity.
type Identities interface {
	CurrentIdentity() (auth.Identity, bool)
}

// Store presents the local cache and the optional remote as one collection.
//
// Conflicts resolve last-writer-wins per whole record: when the remote is
// readable it replaces the local cache, except for pending records. A pending
// record has no OwnerID: it was saved without an identity, or its remote write
// failed, and it stays local until MigrateToRemote pushes it.
type Store struct {
	local  store.KV
	ids    Identities
	remote Remote
	schema *schema.Schema
	now    func() time.Time
	newID  func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithSchema drops field keys the schema does not define on Save.
func WithSchema(sc *schema.Schema) Option {
	return func(s *Store) { s.schema = sc }
}

// New returns a Store. remote and ids may be nil for a local-only store.
func New(local store.KV, ids Identities, remote Remote, opts ...Option) *Store {
	s := &Store{
		local:  local,
		ids:    ids,
		remote: remote,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasRemote reports whether a remote is configured and someone is signed in.
func (s *Store) HasRemote() bool {
	_, ok := s.owner()
	return ok
}

func (s *Store) owner() (string, bool) {
	if s.remote == nil || s.ids == nil {
		return "", false
	}
	id, ok := s.ids.CurrentIdentity()
	if !ok || id.ID == "" {
		return "", false
	}
	return id.ID, true
}

// Save stamps and persists rec and returns its id.
//
// A remote failure is logged and does not stop the local write. A local
// failure is returned as ErrSaveFailed unless the remote write succeeded.
func (s *Store) Save(ctx context.Context, rec Record) (string, error) {
	timer := logging.StartTimer(logging.CategoryStore, "records.Save")
	defer timer.Stop()

	rec = rec.Clone()
	if rec.Fields == nil {
		rec.Fields = make(Fields)
	}
	if s.schema != nil {
		rec.Fields = Fields(s.schema.Normalize(rec.Fields))
	}

	now := s.now().UnixMilli()
	if rec.ID == "" {
		rec.ID = s.newID()
		rec.CreatedAt = now
	} else if rec.CreatedAt == 0 {
		rec.CreatedAt = now
	}
	rec.LastUpdated = now
	if rec.LastUpdated < rec.CreatedAt {
		rec.LastUpdated = rec.CreatedAt
	}

	remoteOK := false
	if owner, ok := s.owner(); ok {
		rec.OwnerID = owner
		if err := s.remote.Upsert(ctx, owner, rec); err != nil {
			logging.SyncWarn("Remote save of %s failed, keeping local copy: %v", rec.ID, err)
			logging.AuditResult(logging.AuditRemoteFailure, rec.ID, owner, err)
			rec.OwnerID = ""
		} else {
			remoteOK = true
		}
	}

	if err := s.upsertLocal(rec); err != nil {
		if remoteOK {
			logging.StoreWarn("Local cache write of %s failed after remote save: %v", rec.ID, err)
			logging.AuditResult(logging.AuditRecordSave, rec.ID, rec.OwnerID, nil)
			return rec.ID, nil
		}
		logging.AuditResult(logging.AuditRecordSave, rec.ID, rec.OwnerID, err)
		return "", fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	logging.Store("Saved record %s (%q)", rec.ID, rec.Title())
	logging.AuditResult(logging.AuditRecordSave, rec.ID, rec.OwnerID, nil)
	return rec.ID, nil
}

// LoadAll returns every record, newest first.
//
// When signed in, the remote collection is fetched and replaces the local
// cache; pending local records whose id the remote does not hold are kept and
// returned with it. If the fetch fails the local cache is returned instead;
// the only error surfaced is a local read failure.
func (s *Store) LoadAll(ctx context.Context) ([]Record, error) {
	if owner, ok := s.owner(); ok {
		recs, err := s.remote.List(ctx, owner)
		if err == nil {
			recs = s.withPending(recs)
			SortByLastUpdated(recs)
			if werr := s.writeLocal(recs); werr != nil {
				logging.StoreWarn("Failed to refresh local cache from remote: %v", werr)
			}
			logging.SyncDebug("Loaded %d records from remote for %s", len(recs), owner)
			return recs, nil
		}
		logging.SyncWarn("Remote list failed, falling back to local cache: %v", err)
	}

	recs, err := s.readLocal()
	if err != nil {
		return nil, err
	}
	SortByLastUpdated(recs)
	return recs, nil
}

// LoadOne resolves ident against LoadAll.
func (s *Store) LoadOne(ctx context.Context, ident Identifier) (Record, error) {
	recs, err := s.LoadAll(ctx)
	if err != nil {
		return Record{}, err
	}
	rec, ok := ident.resolve(recs)
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, ident)
	}
	return rec, nil
}

// Delete removes the record ident resolves to and returns it.
//
// The remote copy goes first; if that fails the local cache is left alone.
// A local failure after a remote success is returned; the next LoadAll
// repairs the cache.
func (s *Store) Delete(ctx context.Context, ident Identifier) (Record, error) {
	rec, err := s.LoadOne(ctx, ident)
	if err != nil {
		return Record{}, err
	}

	if owner, ok := s.owner(); ok {
		if err := s.remote.Delete(ctx, owner, rec.ID); err != nil {
			logging.SyncError("Remote delete of %s failed: %v", rec.ID, err)
			logging.AuditResult(logging.AuditRecordDelete, rec.ID, owner, err)
			return Record{}, fmt.Errorf("failed to delete %s remotely: %w", rec.ID, err)
		}
	}

	if err := s.deleteLocal(rec.ID); err != nil {
		logging.AuditResult(logging.AuditRecordDelete, rec.ID, rec.OwnerID, err)
		return Record{}, fmt.Errorf("failed to delete %s locally: %w", rec.ID, err)
	}

	logging.Store("Deleted record %s", rec.ID)
	logging.AuditResult(logging.AuditRecordDelete, rec.ID, rec.OwnerID, nil)
	return rec, nil
}

// MigrateToRemote pushes local-only records to the signed-in user's collection
// and returns how many were pushed.
//
// A local record counts as already migrated when some remote record has the
// same title and the same createdAt. Two distinct records sharing both are
// therefore treated as one.
func (s *Store) MigrateToRemote(ctx context.Context) (int, error) {
	owner, ok := s.owner()
	if !ok {
		return 0, ErrRemoteUnavailable
	}

	timer := logging.StartTimer(logging.CategorySync, "MigrateToRemote")
	defer timer.Stop()

	remoteRecs, err := s.remote.List(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("failed to list remote records: %w", err)
	}
	localRecs, err := s.readLocal()
	if err != nil {
		return 0, err
	}

	type matchKey struct {
		title     string
		createdAt int64
	}
	present := make(map[matchKey]bool, len(remoteRecs))
	for _, r := range remoteRecs {
		present[matchKey{r.Title(), r.CreatedAt}] = true
	}

	migrated := 0
	failed := make(map[string]error)
	for i, r := range localRecs {
		if present[matchKey{r.Title(), r.CreatedAt}] {
			localRecs[i].OwnerID = owner
			continue
		}
		r = r.Clone()
		r.OwnerID = owner
		if err := s.remote.Upsert(ctx, owner, r); err != nil {
			logging.SyncWarn("Migration of %s failed: %v", r.ID, err)
			failed[r.ID] = err
			continue
		}
		localRecs[i].OwnerID = owner
		migrated++
	}

	// Failed records keep an empty owner so LoadAll leaves them pending.
	if err := s.writeLocal(localRecs); err != nil {
		logging.StoreWarn("Failed to record migration ownership locally: %v", err)
	}

	logging.Sync("Migrated %d of %d local records for %s", migrated, len(localRecs), owner)
	if len(failed) > 0 {
		merr := &MigrationError{Migrated: migrated, Failed: failed}
		logging.AuditResult(logging.AuditMigration, "", owner, merr)
		return migrated, merr
	}
	logging.AuditResult(logging.AuditMigration, "", owner, nil)
	return migrated, nil
}

// withPending appends the cached records that never reached the remote.
// A cache that cannot be read contributes nothing.
func (s *Store) withPending(remote []Record) []Record {
	local, err := s.readLocal()
	if err != nil {
		logging.StoreWarn("Pending records unavailable: %v", err)
		return remote
	}
	held := make(map[string]bool, len(remote))
	for _, r := range remote {
		held[r.ID] = true
	}
	for _, r := range local {
		if r.OwnerID == "" && !held[r.ID] {
			remote = append(remote, r)
		}
	}
	return remote
}

// readLocal decodes the cached collection. An absent key is an empty collection.
func (s *Store) readLocal() ([]Record, error) {
	raw, ok, err := s.local.Get(store.KeyRecords)
	if err != nil {
		return nil, fmt.Errorf("failed to read local records: %w", err)
	}
	if !ok || raw == "" {
		return []Record{}, nil
	}
	var recs []Record
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		return nil, fmt.Errorf("failed to decode local records: %w", err)
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

func (s *Store) writeLocal(recs []Record) error {
	if recs == nil {
		recs = []Record{}
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("failed to encode local records: %w", err)
	}
	return s.local.Set(store.KeyRecords, string(data))
}

// upsertLocal replaces the cached record with the same id, or prepends rec.
func (s *Store) upsertLocal(rec Record) error {
	recs, err := s.readLocal()
	if err != nil {
		return err
	}
	for i := range recs {
		if recs[i].ID == rec.ID {
			recs[i] = rec
			return s.writeLocal(recs)
		}
	}
	return s.writeLocal(append([]Record{rec}, recs...))
}

func (s *Store) deleteLocal(id string) error {
	recs, err := s.readLocal()
	if err != nil {
		return err
	}
	kept := recs[:0]
	for _, r := range recs {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	return s.writeLocal(kept)
}
