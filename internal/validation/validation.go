// Package validation checks single field values against their definitions.
// Checks are pure: the same field and value always give the same Result.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"brdwizard/internal/schema"
)

// Code classifies a failed check.
type Code string

const (
	CodeOK              Code = ""
	CodeMissingRequired Code = "MissingRequired"
	CodeTooShort        Code = "TooShort"
	CodeTooLong         Code = "TooLong"
)

// Result is the outcome of validating one value.
type Result struct {
	Valid  bool
	Code   Code
	Reason string
}

var ok = Result{Valid: true}

// Validate checks raw against field.
//
// Required fields fail on an empty trimmed value. Length bounds apply to the
// trimmed value counted in runes, and only when it is non-empty.
func Validate(field schema.Field, raw string) Result {
	v := strings.TrimSpace(raw)
	if v == "" {
		if field.Required {
			return Result{Code: CodeMissingRequired, Reason: fmt.Sprintf("%s is required", field.Label)}
		}
		return ok
	}

	n := utf8.RuneCountInString(v)
	if min := field.Bounds.Min; min != nil && n < *min {
		return Result{Code: CodeTooShort, Reason: fmt.Sprintf("%s must be at least %d characters", field.Label, *min)}
	}
	if max := field.Bounds.Max; max != nil && n > *max {
		return Result{Code: CodeTooLong, Reason: fmt.Sprintf("%s must be at most %d characters", field.Label, *max)}
	}
	return ok
}

// ValidateSection checks every field of sec against values and returns the
// failures keyed by field key. An empty map means the section is valid.
func ValidateSection(sec schema.Section, values map[string]string) map[string]Result {
	failures := make(map[string]Result)
	for _, f := range sec.Fields {
		if r := Validate(f, values[f.Key]); !r.Valid {
			failures[f.Key] = r
		}
	}
	return failures
}

// ValidateAll checks every section of s. Records that were imported or saved
// under an older form can fail it even though the wizard accepted them.
func ValidateAll(s *schema.Schema, values map[string]string) map[string]Result {
	failures := make(map[string]Result)
	for _, sec := range s.Sections() {
		for k, r := range ValidateSection(sec, values) {
			failures[k] = r
		}
	}
	return failures
}
