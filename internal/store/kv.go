// Package store provides the local key/value medium that backs the record
// cache, the draft, and UI preferences.
package store

import "errors"

// Keys shared by every component that touches the local medium.
// Changing them breaks compatibility with existing data files.
const (
	KeyRecords  = "brd.records"
	KeyDraft    = "brd.draft"
	KeyTheme    = "brd.theme"
	KeyUserMode = "brd.userMode"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")

// KV is a string key/value medium. Get reports ok=false for absent keys.
// Remove of an absent key is not an error.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// Driver names accepted by Open.
const (
	DriverSQLite       = "sqlite"        // mattn/go-sqlite3, cgo
	DriverSQLitePureGo = "sqlite-purego" // modernc.org/sqlite
	DriverMemory       = "memory"
)

// Closer is implemented by stores that hold resources.
type Closer interface {
	Close() error
}

// Store is a KV that must be closed.
type Store interface {
	KV
	Closer
}

// Open returns the store for driver. path is ignored for the memory driver.
func Open(driver, path string) (Store, error) {
	switch driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite, "":
		return NewLocalStore(path)
	case DriverSQLitePureGo:
		return NewLocalStoreWithDriver(path, sqlDriverPureGo)
	default:
		return nil, errors.New("store: unknown driver " + driver)
	}
}
