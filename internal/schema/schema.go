// Package schema compiles the form definition that drives the wizard:
// ordered sections, each holding ordered field definitions.
//
// A compiled Schema is immutable and safe for concurrent use.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the input kind of a field.
type Kind string

const (
	KindText     Kind = "text"     // single line
	KindTextarea Kind = "textarea" // multi line
	KindDate     Kind = "date"
	KindChoice   Kind = "choice"
	KindNumber   Kind = "number"
)

func (k Kind) valid() bool {
	switch k {
	case KindText, KindTextarea, KindDate, KindChoice, KindNumber:
		return true
	}
	return false
}

// TitleKey is the field every schema must define. It names records in
// listings, exports and migration matching.
const TitleKey = "title"

// ReservedKeys are record metadata keys that share the flat record object
// with field values and therefore cannot be used as field keys.
var ReservedKeys = []string{"id", "createdAt", "lastUpdated", "ownerId"}

// Bounds are inclusive rune-length limits on the trimmed value. Nil means unbounded.
type Bounds struct {
	Min *int
	Max *int
}

// Field is one input in a section.
type Field struct {
	Key      string
	Label    string
	Kind     Kind
	Required bool
	Bounds   Bounds
	Default  string
	Options  []string
	Help     string
}

// Section is an ordered group of fields shown as one wizard step.
type Section struct {
	Key         string
	Title       string
	Description string
	Fields      []Field
}

// Schema is the compiled form definition.
type Schema struct {
	name     string
	sections []Section
	index    map[string]fieldRef
}

type fieldRef struct {
	section int
	field   int
}

//go:embed default_brd.yaml
var defaultDefinition []byte

// ErrInvalid wraps every compile error.
var ErrInvalid = errors.New("invalid schema")

type document struct {
	Name     string        `yaml:"name"`
	Sections []sectionSpec `yaml:"sections"`
}

type sectionSpec struct {
	Key         string      `yaml:"key"`
	Title       string      `yaml:"title"`
	Description string      `yaml:"description"`
	Fields      []fieldSpec `yaml:"fields"`
}

type fieldSpec struct {
	Key      string   `yaml:"key"`
	Label    string   `yaml:"label"`
	Kind     string   `yaml:"kind"`
	Required bool     `yaml:"required"`
	Min      *int     `yaml:"min"`
	Max      *int     `yaml:"max"`
	Default  string   `yaml:"default"`
	Options  []string `yaml:"options"`
	Help     string   `yaml:"help"`
}

// Default returns the built-in business requirements schema.
func Default() *Schema {
	s, err := Compile(defaultDefinition)
	if err != nil {
		panic(fmt.Sprintf("built-in schema does not compile: %v", err))
	}
	return s
}

// Load compiles the schema at path, or the built-in one when path is empty.
func Load(path string) (*Schema, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	return Compile(data)
}

// Compile parses and checks a YAML form definition.
func Compile(data []byte) (*Schema, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if len(doc.Sections) == 0 {
		return nil, fmt.Errorf("%w: no sections", ErrInvalid)
	}

	s := &Schema{name: doc.Name, index: make(map[string]fieldRef)}
	sectionKeys := make(map[string]bool)

	for si, sec := range doc.Sections {
		if sec.Title == "" {
			return nil, fmt.Errorf("%w: section %d has no title", ErrInvalid, si)
		}
		key := sec.Key
		if key == "" {
			key = fmt.Sprintf("section%d", si+1)
		}
		if sectionKeys[key] {
			return nil, fmt.Errorf("%w: duplicate section key %q", ErrInvalid, key)
		}
		sectionKeys[key] = true
		if len(sec.Fields) == 0 {
			return nil, fmt.Errorf("%w: section %q has no fields", ErrInvalid, sec.Title)
		}

		out := Section{Key: key, Title: sec.Title, Description: sec.Description}
		for fi, fs := range sec.Fields {
			f, err := compileField(fs)
			if err != nil {
				return nil, fmt.Errorf("%w: section %q field %d: %v", ErrInvalid, sec.Title, fi, err)
			}
			if _, dup := s.index[f.Key]; dup {
				return nil, fmt.Errorf("%w: duplicate field key %q", ErrInvalid, f.Key)
			}
			s.index[f.Key] = fieldRef{section: si, field: fi}
			out.Fields = append(out.Fields, f)
		}
		s.sections = append(s.sections, out)
	}

	if _, ok := s.index[TitleKey]; !ok {
		return nil, fmt.Errorf("%w: missing required %q field", ErrInvalid, TitleKey)
	}
	return s, nil
}

func compileField(fs fieldSpec) (Field, error) {
	if strings.TrimSpace(fs.Key) == "" {
		return Field{}, errors.New("empty key")
	}
	for _, r := range ReservedKeys {
		if fs.Key == r {
			return Field{}, fmt.Errorf("key %q is reserved", fs.Key)
		}
	}
	kind := Kind(fs.Kind)
	if kind == "" {
		kind = KindText
	}
	if !kind.valid() {
		return Field{}, fmt.Errorf("unknown kind %q", fs.Kind)
	}
	if fs.Min != nil && *fs.Min < 0 {
		return Field{}, fmt.Errorf("negative min for %q", fs.Key)
	}
	if fs.Min != nil && fs.Max != nil && *fs.Min > *fs.Max {
		return Field{}, fmt.Errorf("min %d > max %d for %q", *fs.Min, *fs.Max, fs.Key)
	}
	if kind == KindChoice && len(fs.Options) == 0 {
		return Field{}, fmt.Errorf("choice field %q has no options", fs.Key)
	}
	label := fs.Label
	if label == "" {
		label = fs.Key
	}
	return Field{
		Key:      fs.Key,
		Label:    label,
		Kind:     kind,
		Required: fs.Required,
		Bounds:   Bounds{Min: fs.Min, Max: fs.Max},
		Default:  fs.Default,
		Options:  append([]string(nil), fs.Options...),
		Help:     fs.Help,
	}, nil
}

// Name returns the document name.
func (s *Schema) Name() string { return s.name }

// Len returns the number of sections.
func (s *Schema) Len() int { return len(s.sections) }

// Section returns section i. It panics when i is out of range.
func (s *Schema) Section(i int) Section { return s.sections[i] }

// Sections returns all sections in order.
func (s *Schema) Sections() []Section {
	return append([]Section(nil), s.sections...)
}

// Field looks up a field by key.
func (s *Schema) Field(key string) (Field, bool) {
	ref, ok := s.index[key]
	if !ok {
		return Field{}, false
	}
	return s.sections[ref.section].Fields[ref.field], true
}

// Keys returns every field key in form order.
func (s *Schema) Keys() []string {
	keys := make([]string, 0, len(s.index))
	for _, sec := range s.sections {
		for _, f := range sec.Fields {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// Defaults returns the default value of every field that declares one.
func (s *Schema) Defaults() map[string]string {
	out := make(map[string]string)
	for _, sec := range s.sections {
		for _, f := range sec.Fields {
			if f.Default != "" {
				out[f.Key] = f.Default
			}
		}
	}
	return out
}

// Normalize returns a copy of values restricted to keys the schema defines.
func (s *Schema) Normalize(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if _, ok := s.index[k]; ok {
			out[k] = v
		}
	}
	return out
}
