package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"brdwizard/internal/schema"
)

func intp(n int) *int { return &n }

func TestValidate(t *testing.T) {
	bounded := schema.Field{Key: "title", Label: "Title", Required: true, Bounds: schema.Bounds{Min: intp(3), Max: intp(5)}}
	optional := schema.Field{Key: "notes", Label: "Notes", Bounds: schema.Bounds{Min: intp(4)}}

	tests := []struct {
		name  string
		field schema.Field
		raw   string
		code  Code
	}{
		{"required empty", bounded, "", CodeMissingRequired},
		{"required whitespace", bounded, "   \n\t", CodeMissingRequired},
		{"too short", bounded, "ab", CodeTooShort},
		{"too short after trim", bounded, "  ab  ", CodeTooShort},
		{"exact min", bounded, "abc", CodeOK},
		{"exact max", bounded, "abcde", CodeOK},
		{"too long", bounded, "abcdef", CodeTooLong},
		{"padding not counted", bounded, "   abcde   ", CodeOK},
		{"runes not bytes", bounded, "héllo", CodeOK},
		{"optional empty skips bounds", optional, "", CodeOK},
		{"optional short", optional, "abc", CodeTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Validate(tt.field, tt.raw)
			assert.Equal(t, tt.code, r.Code)
			assert.Equal(t, tt.code == CodeOK, r.Valid)
			if !r.Valid {
				assert.NotEmpty(t, r.Reason)
			}
		})
	}
}

func TestValidate_Reasons(t *testing.T) {
	f := schema.Field{Key: "title", Label: "Project Title", Required: true, Bounds: schema.Bounds{Min: intp(3), Max: intp(4)}}
	assert.Equal(t, "Project Title is required", Validate(f, "").Reason)
	assert.Equal(t, "Project Title must be at least 3 characters", Validate(f, "a").Reason)
	assert.Equal(t, "Project Title must be at most 4 characters", Validate(f, "abcde").Reason)
}

func TestValidate_Idempotent(t *testing.T) {
	s := schema.Default()
	inputs := []string{"", "  ", "x", "Launch", string(make([]byte, 200))}
	for _, key := range s.Keys() {
		f, _ := s.Field(key)
		for _, in := range inputs {
			first := Validate(f, in)
			second := Validate(f, in)
			assert.Equal(t, first, second, "field %s input %q", key, in)
		}
	}
}

func TestValidateSection(t *testing.T) {
	sec := schema.Default().Section(0)

	failures := ValidateSection(sec, map[string]string{
		"businessOwner": "Dana",
		"summary":       "A sufficiently long summary of the project.",
	})
	assert.Len(t, failures, 1)
	assert.Equal(t, CodeMissingRequired, failures["title"].Code)

	failures = ValidateSection(sec, map[string]string{
		"title":         "Billing revamp",
		"businessOwner": "Dana",
		"summary":       "A sufficiently long summary of the project.",
	})
	assert.Empty(t, failures)
}

func TestValidateAll(t *testing.T) {
	failures := ValidateAll(schema.Default(), map[string]string{})
	assert.Contains(t, failures, "title")
	assert.Contains(t, failures, "startDate")
	assert.NotContains(t, failures, "budget")
}
