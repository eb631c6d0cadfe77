package records

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordJSON_FlatLayout(t *testing.T) {
	rec := Record{
		ID:          "abc",
		Fields:      Fields{"title": "Billing", "budget": "1200"},
		CreatedAt:   1700000000000,
		LastUpdated: 1700000000500,
		OwnerID:     "alice",
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "abc",
		"title": "Billing",
		"budget": "1200",
		"createdAt": 1700000000000,
		"lastUpdated": 1700000000500,
		"ownerId": "alice"
	}`, string(data))

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rec, back)
}

func TestRecordJSON_OmitsEmptyOwner(t *testing.T) {
	data, err := json.Marshal(Record{ID: "x", Fields: Fields{}})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "ownerId")
}

func TestRecordJSON_TolerantDecode(t *testing.T) {
	var rec Record
	err := json.Unmarshal([]byte(`{
		"id": "legacy",
		"title": "Old",
		"budget": 5000,
		"approved": true,
		"notes": null,
		"createdAt": "1690000000000",
		"lastUpdated": 1.6900000005e12
	}`), &rec)
	require.NoError(t, err)

	assert.Equal(t, "legacy", rec.ID)
	assert.Equal(t, "5000", rec.Get("budget"))
	assert.Equal(t, "true", rec.Get("approved"))
	_, hasNotes := rec.Fields["notes"]
	assert.False(t, hasNotes)
	assert.Equal(t, int64(1690000000000), rec.CreatedAt)
	assert.Equal(t, int64(1690000000500), rec.LastUpdated)
	assert.Empty(t, rec.OwnerID)
}

func TestRecordJSON_BadTimestamp(t *testing.T) {
	var rec Record
	assert.Error(t, json.Unmarshal([]byte(`{"id":"x","createdAt":"yesterday"}`), &rec))
}

func TestRecordJSON_ReservedFieldKeysIgnored(t *testing.T) {
	rec := Record{ID: "real", Fields: Fields{"id": "fake", "title": "T"}}
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "real", back.ID)
	assert.Equal(t, Fields{"title": "T"}, back.Fields)
}

func TestParseIdentifier(t *testing.T) {
	assert.True(t, ParseIdentifier("0").IsIndex())
	assert.True(t, ParseIdentifier(" 12 ").IsIndex())
	assert.False(t, ParseIdentifier("-1").IsIndex())
	assert.False(t, ParseIdentifier("6f1c2a").IsIndex())
	assert.Equal(t, "#3", ParseIdentifier("3").String())
	assert.Equal(t, "abc", ParseIdentifier("abc").String())
}

func TestFieldsMergeAndClone(t *testing.T) {
	f := Fields{"a": "1"}
	c := f.Clone()
	c.Merge(Fields{"a": "2", "b": "3"})
	assert.Equal(t, Fields{"a": "1"}, f)
	assert.Equal(t, Fields{"a": "2", "b": "3"}, c)
}
