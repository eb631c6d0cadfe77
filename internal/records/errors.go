package records

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSaveFailed means the record reached neither the local cache nor the remote.
	ErrSaveFailed = errors.New("save failed")
	// ErrNotFound means an identifier did not resolve to a record.
	ErrNotFound = errors.New("record not found")
	// ErrRemoteUnavailable means no remote is configured or nobody is signed in.
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	// ErrMigrationPartial matches a *MigrationError.
	ErrMigrationPartial = errors.New("migration partially failed")
)

// MigrationError reports the records that could not be pushed to the remote.
type MigrationError struct {
	Migrated int
	Failed   map[string]error // record id -> cause
}

func (e *MigrationError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	return fmt.Sprintf("migration partially failed: %d migrated, %d failed (%s)",
		e.Migrated, len(e.Failed), strings.Join(sortedStrings(ids), ", "))
}

func (e *MigrationError) Is(target error) bool {
	return target == ErrMigrationPartial
}
