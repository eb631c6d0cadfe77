// Package export renders records into shareable documents.
//
// Exporters take a record snapshot and never validate it: missing field keys
// render blank.
package export

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"brdwizard/internal/records"
	"brdwizard/internal/schema"
)

// Format names an export rendering.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
)

// DefaultPageLines is the page height of text exports.
const DefaultPageLines = 55

// Artifact is one rendered document.
type Artifact struct {
	Name        string // file name including extension
	ContentType string
	Pages       int
	Body        []byte
}

// Exporter renders a record.
type Exporter interface {
	Export(rec records.Record) (Artifact, error)
}

// New returns the exporter for format. pageLines applies to text exports;
// zero or less means DefaultPageLines.
func New(format Format, sc *schema.Schema, pageLines int) (Exporter, error) {
	switch format {
	case FormatMarkdown:
		return NewMarkdown(sc), nil
	case FormatText:
		return NewText(sc, pageLines), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

var (
	nonWord    = regexp.MustCompile(`[^a-z0-9_]+`)
	underscore = regexp.MustCompile(`_+`)
)

// SanitizeFilename turns a title into a file stem: lower case, runs of
// characters outside [a-z0-9_] become one underscore, repeated underscores
// collapse and edge underscores are trimmed. An empty result is "untitled".
func SanitizeFilename(title string) string {
	s := nonWord.ReplaceAllString(strings.ToLower(title), "_")
	s = underscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "untitled"
	}
	return s
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04 UTC")
}

func documentTitle(rec records.Record) string {
	if t := strings.TrimSpace(rec.Title()); t != "" {
		return t
	}
	return "Untitled"
}
