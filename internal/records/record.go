// Package records persists completed documents in a local cache and, when a
// user is signed in, a remote per-user collection.
package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Fields maps field keys to their values. Absent keys read as empty.
type Fields map[string]string

// Clone returns a copy of f.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Merge overwrites keys of f with those of other.
func (f Fields) Merge(other Fields) {
	for k, v := range other {
		f[k] = v
	}
}

// Record is one completed document.
type Record struct {
	ID          string
	Fields      Fields
	CreatedAt   int64 // Unix milliseconds, set once
	LastUpdated int64 // Unix milliseconds, set on every save
	OwnerID     string
}

// Metadata keys of the flat JSON object.
const (
	keyID          = "id"
	keyCreatedAt   = "createdAt"
	keyLastUpdated = "lastUpdated"
	keyOwnerID     = "ownerId"
)

// Title returns the title field.
func (r Record) Title() string {
	return r.Fields["title"]
}

// Get returns a field value, empty when absent.
func (r Record) Get(key string) string {
	return r.Fields[key]
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	r.Fields = r.Fields.Clone()
	return r
}

// MarshalJSON writes the record as a flat object: metadata keys next to field keys.
func (r Record) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		switch k {
		case keyID, keyCreatedAt, keyLastUpdated, keyOwnerID:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	writeKV := func(k string, v []byte) {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(v)
	}

	id, _ := json.Marshal(r.ID)
	writeKV(keyID, id)
	for _, k := range keys {
		v, err := json.Marshal(r.Fields[k])
		if err != nil {
			return nil, err
		}
		writeKV(k, v)
	}
	writeKV(keyCreatedAt, []byte(strconv.FormatInt(r.CreatedAt, 10)))
	writeKV(keyLastUpdated, []byte(strconv.FormatInt(r.LastUpdated, 10)))
	if r.OwnerID != "" {
		owner, _ := json.Marshal(r.OwnerID)
		writeKV(keyOwnerID, owner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the flat object form. Non-string field values
// (numbers, booleans) are kept as their JSON text; nulls are dropped.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := Record{Fields: make(Fields)}
	for k, v := range raw {
		switch k {
		case keyID:
			if err := json.Unmarshal(v, &out.ID); err != nil {
				return fmt.Errorf("record id: %w", err)
			}
		case keyOwnerID:
			if string(v) != "null" {
				if err := json.Unmarshal(v, &out.OwnerID); err != nil {
					return fmt.Errorf("record ownerId: %w", err)
				}
			}
		case keyCreatedAt:
			n, err := decodeMillis(v)
			if err != nil {
				return fmt.Errorf("record createdAt: %w", err)
			}
			out.CreatedAt = n
		case keyLastUpdated:
			n, err := decodeMillis(v)
			if err != nil {
				return fmt.Errorf("record lastUpdated: %w", err)
			}
			out.LastUpdated = n
		default:
			if string(v) == "null" {
				continue
			}
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				s = string(v)
			}
			out.Fields[k] = s
		}
	}
	*r = out
	return nil
}

// decodeMillis accepts an integer, a float with no fraction, or a numeric string.
func decodeMillis(v json.RawMessage) (int64, error) {
	if string(v) == "null" {
		return 0, nil
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return 0, fmt.Errorf("not a timestamp: %s", v)
		}
		n = json.Number(s)
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("not a timestamp: %s", v)
	}
	return int64(f), nil
}

// SortByLastUpdated orders recs newest first. Ties keep their relative order.
func SortByLastUpdated(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].LastUpdated > recs[j].LastUpdated
	})
}
