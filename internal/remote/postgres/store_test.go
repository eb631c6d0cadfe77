package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brdwizard/internal/auth"
	"brdwizard/internal/records"
	"brdwizard/internal/store"
)

// stubConn understands the handful of statements Store issues.
type stubConn struct {
	mu        sync.Mutex
	execs     []string
	rows      map[[2]string]stubRow
	failPing  bool
	failExec  bool
	failQuery bool
}

type stubRow struct {
	owner, id string
	payload   string
	created   int64
	updated   int64
}

var stubSeq atomic.Int64

func newStubDB(t *testing.T) (*sql.DB, *stubConn) {
	t.Helper()
	conn := &stubConn{rows: make(map[[2]string]stubRow)}
	name := fmt.Sprintf("stubpg%d", stubSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, conn
}

type stubDriver struct{ conn *stubConn }

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("not implemented") }

func (c *stubConn) Ping(context.Context) error {
	if c.failPing {
		return errors.New("ping fail")
	}
	return nil
}

func (c *stubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, query)
	if c.failExec {
		return nil, errors.New("exec fail")
	}
	q := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(q, "INSERT INTO BRD_RECORDS"):
		row := stubRow{
			owner:   args[0].Value.(string),
			id:      args[1].Value.(string),
			payload: args[2].Value.(string),
			created: args[3].Value.(int64),
			updated: args[4].Value.(int64),
		}
		c.rows[[2]string{row.owner, row.id}] = row
	case strings.HasPrefix(q, "DELETE FROM BRD_RECORDS"):
		delete(c.rows, [2]string{args[0].Value.(string), args[1].Value.(string)})
	}
	return driver.RowsAffected(1), nil
}

func (c *stubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failQuery {
		return nil, errors.New("query fail")
	}
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT ID, PAYLOAD") {
		return nil, fmt.Errorf("unexpected query: %s", query)
	}
	owner := args[0].Value.(string)
	var matched []stubRow
	for _, r := range c.rows {
		if r.owner == owner {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].updated > matched[j].updated })

	out := &stubRows{cols: []string{"id", "payload", "created_at", "last_updated"}}
	for _, r := range matched {
		out.rows = append(out.rows, []driver.Value{r.id, []byte(r.payload), r.created, r.updated})
	}
	return out, nil
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }
func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

func openStub(t *testing.T) (*Store, *stubConn) {
	t.Helper()
	db, conn := newStubDB(t)
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	s, err := Open(context.Background(), "postgres://stub")
	require.NoError(t, err)
	return s, conn
}

func TestOpenEnsuresTable(t *testing.T) {
	_, conn := openStub(t)

	var sawTable, sawIndex bool
	for _, stmt := range conn.execs {
		up := strings.ToUpper(stmt)
		sawTable = sawTable || strings.Contains(up, "CREATE TABLE IF NOT EXISTS BRD_RECORDS")
		sawIndex = sawIndex || strings.Contains(up, "CREATE INDEX IF NOT EXISTS")
	}
	assert.True(t, sawTable, "execs: %v", conn.execs)
	assert.True(t, sawIndex, "execs: %v", conn.execs)
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)

	db, conn := newStubDB(t)
	conn.failPing = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	_, err = Open(context.Background(), "postgres://stub")
	assert.ErrorContains(t, err, "ping postgres")

	restoreErr := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("bad dsn") })
	defer restoreErr()
	_, err = Open(context.Background(), "postgres://stub")
	assert.ErrorContains(t, err, "open postgres")
}

func TestUpsertListDelete(t *testing.T) {
	s, _ := openStub(t)
	ctx := context.Background()

	older := records.Record{ID: "a", Fields: records.Fields{"title": "Older"}, CreatedAt: 1, LastUpdated: 10}
	newer := records.Record{ID: "b", Fields: records.Fields{"title": "Newer"}, CreatedAt: 2, LastUpdated: 20}
	require.NoError(t, s.Upsert(ctx, "alice", older))
	require.NoError(t, s.Upsert(ctx, "alice", newer))
	require.NoError(t, s.Upsert(ctx, "bob", records.Record{ID: "c", Fields: records.Fields{"title": "Bob's"}, LastUpdated: 99}))

	got, err := s.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "Newer", got[0].Title())
	assert.Equal(t, "alice", got[0].OwnerID)
	assert.Equal(t, int64(20), got[0].LastUpdated)

	older.Fields["title"] = "Older v2"
	older.LastUpdated = 30
	require.NoError(t, s.Upsert(ctx, "alice", older))
	got, err = s.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2, "upsert replaces")
	assert.Equal(t, "Older v2", got[0].Title())

	require.NoError(t, s.Delete(ctx, "alice", "a"))
	require.NoError(t, s.Delete(ctx, "alice", "missing"))
	got, err = s.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)

	empty, err := s.List(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestUpsertRequiresID(t *testing.T) {
	s, _ := openStub(t)
	assert.Error(t, s.Upsert(context.Background(), "alice", records.Record{}))
}

func TestFailuresAreWrapped(t *testing.T) {
	s, conn := openStub(t)
	ctx := context.Background()

	conn.failExec = true
	assert.ErrorContains(t, s.Upsert(ctx, "alice", records.Record{ID: "x"}), "upsert record x")
	assert.ErrorContains(t, s.Delete(ctx, "alice", "x"), "delete record x")

	conn.failQuery = true
	_, err := s.List(ctx, "alice")
	assert.ErrorContains(t, err, "select records")
}

func TestRecordStoreOverPostgres(t *testing.T) {
	remote, _ := openStub(t)
	ctx := context.Background()
	kv := store.NewMemoryStore()

	guest := records.New(kv, auth.Anonymous(), remote)
	_, err := guest.Save(ctx, records.Record{Fields: records.Fields{"title": "Drafted offline"}})
	require.NoError(t, err)

	signedIn := records.New(kv, auth.NewStatic(auth.Identity{ID: "alice"}), remote)
	n, err := signedIn.MigrateToRemote(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = signedIn.MigrateToRemote(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "second migration finds the record already present")

	all, err := signedIn.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Drafted offline", all[0].Title())
	assert.Equal(t, "alice", all[0].OwnerID)
}
