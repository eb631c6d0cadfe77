package records

import (
	"sort"
	"strconv"
	"strings"
)

// Identifier selects a record either by position in the LoadAll ordering or by id.
type Identifier struct {
	index   int
	id      string
	byIndex bool
}

// ByIndex selects the record at position i of LoadAll.
func ByIndex(i int) Identifier { return Identifier{index: i, byIndex: true} }

// ByID selects the record with the given id.
func ByID(id string) Identifier { return Identifier{id: id} }

// ParseIdentifier treats a non-negative decimal integer as an index and
// anything else as an id.
func ParseIdentifier(s string) Identifier {
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil && i >= 0 {
		return ByIndex(i)
	}
	return ByID(s)
}

// IsIndex reports whether the identifier is positional.
func (i Identifier) IsIndex() bool { return i.byIndex }

func (i Identifier) String() string {
	if i.byIndex {
		return "#" + strconv.Itoa(i.index)
	}
	return i.id
}

func (i Identifier) resolve(recs []Record) (Record, bool) {
	if i.byIndex {
		if i.index < 0 || i.index >= len(recs) {
			return Record{}, false
		}
		return recs[i.index], true
	}
	if i.id == "" {
		return Record{}, false
	}
	for _, r := range recs {
		if r.ID == i.id {
			return r, true
		}
	}
	return Record{}, false
}

func sortedStrings(s []string) []string {
	sort.Strings(s)
	return s
}
