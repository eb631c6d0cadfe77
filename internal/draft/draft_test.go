package draft

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brdwizard/internal/records"
	"brdwizard/internal/store"
)

type brokenKV struct{}

func (brokenKV) Get(string) (string, bool, error) { return "", false, errors.New("unavailable") }
func (brokenKV) Set(string, string) error         { return errors.New("unavailable") }
func (brokenKV) Remove(string) error              { return errors.New("unavailable") }

func TestSaveMerges(t *testing.T) {
	s := New(store.NewMemoryStore())
	assert.False(t, s.Exists())
	assert.Empty(t, s.Load())

	s.Save(records.Fields{"title": "A", "summary": "first"})
	s.Save(records.Fields{"summary": "second", "sponsor": "Kim"})

	assert.Equal(t, records.Fields{"title": "A", "summary": "second", "sponsor": "Kim"}, s.Load())
	assert.True(t, s.Exists())
}

func TestClear(t *testing.T) {
	kv := store.NewMemoryStore()
	s := New(kv)
	s.Save(records.Fields{"title": "A"})
	s.Clear()

	assert.Empty(t, s.Load())
	_, ok, err := kv.Get(store.KeyDraft)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadRecordAsDraftOverwrites(t *testing.T) {
	s := New(store.NewMemoryStore())
	s.Save(records.Fields{"title": "old", "leftover": "x"})

	rec := records.Record{ID: "r1", Fields: records.Fields{"title": "from record"}}
	s.LoadRecordAsDraft(rec)
	assert.Equal(t, records.Fields{"title": "from record"}, s.Load())

	rec.Fields["title"] = "mutated after"
	assert.Equal(t, "from record", s.Load()["title"])
}

func TestFailuresTreatedAsAbsent(t *testing.T) {
	s := New(brokenKV{})
	s.Save(records.Fields{"title": "A"})
	s.Clear()
	s.LoadRecordAsDraft(records.Record{Fields: records.Fields{"x": "y"}})
	assert.Empty(t, s.Load())
	assert.False(t, s.Exists())
}

func TestCorruptDraftTreatedAsAbsent(t *testing.T) {
	kv := store.NewMemoryStore()
	require.NoError(t, kv.Set(store.KeyDraft, "[not an object"))
	s := New(kv)
	assert.Empty(t, s.Load())

	s.Save(records.Fields{"title": "fresh"})
	assert.Equal(t, records.Fields{"title": "fresh"}, s.Load())
}
